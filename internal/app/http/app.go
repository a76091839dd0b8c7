package httpapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"sumai_assistant/internal/lib/logger/sl"
)

// shutdownTimeout — сколько ждать завершения активных запросов при остановке.
const shutdownTimeout = 10 * time.Second

type App struct {
	log    *slog.Logger
	server *http.Server
	port   int
}

// New создаёт HTTP-приложение поверх готового роутера.
func New(log *slog.Logger, handler http.Handler, port int, timeout time.Duration) *App {
	return &App{
		log:  log,
		port: port,
		server: &http.Server{
			Addr:              net.JoinHostPort("", strconv.Itoa(port)),
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       timeout,
			WriteTimeout:      timeout + 5*time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// MustRun запускает сервер и паникует при ошибке.
func (a *App) MustRun() {
	if err := a.Run(); err != nil {
		panic(err)
	}
}

// Run блокируется до остановки сервера.
func (a *App) Run() error {
	const op = "httpapp.Run"

	log := a.log.With(slog.String("op", op), slog.Int("port", a.port))
	log.Info("http server is running", slog.String("addr", a.server.Addr))

	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Stop останавливает сервер, дожидаясь активных запросов.
func (a *App) Stop() {
	const op = "httpapp.Stop"

	a.log.With(slog.String("op", op)).Info("stopping http server", slog.Int("port", a.port))

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.log.Error("graceful shutdown failed, closing", slog.String("op", op), sl.Err(err))
		_ = a.server.Close()
	}
}
