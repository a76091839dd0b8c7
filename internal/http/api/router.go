package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

// RouterOptions — параметры HTTP-роутера.
type RouterOptions struct {
	Timeout        time.Duration
	AllowedOrigins []string
}

// NewRouter собирает роутер со всеми маршрутами API.
func NewRouter(log *slog.Logger, h *Handler, opts RouterOptions) http.Handler {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-Id"},
		MaxAge:         300,
	}).Handler)
	r.Use(chimiddleware.Timeout(opts.Timeout))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/metrics", h.Metrics)

		r.Route("/recommendations", func(r chi.Router) {
			r.Post("/", h.Recommendations)
			r.Post("/similar", h.Similar)
		})

		r.Post("/requirements/analyze", h.AnalyzeRequirements)

		r.Route("/location", func(r chi.Router) {
			r.Post("/ambiguity", h.LocationAmbiguity)
			r.Get("/resolve", h.ResolveLocation)
		})

		r.Post("/chat", h.Chat)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.CreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetSession)
				r.Delete("/", h.DeleteSession)
				r.Post("/messages", h.SessionMessage)
				r.Post("/answers", h.SessionAnswers)
			})
		})
	})

	return r
}

// requestLogger пишет одну строку slog на запрос.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				log.Info("request completed",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", ww.Status()),
					slog.Int("bytes", ww.BytesWritten()),
					slog.String("request_id", chimiddleware.GetReqID(r.Context())),
					slog.Duration("duration", time.Since(start)),
				)
			}()

			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}
