package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	httpapp "sumai_assistant/internal/app/http"
	"sumai_assistant/internal/config"
	"sumai_assistant/internal/http/api"
	"sumai_assistant/internal/lib/archive"
	"sumai_assistant/internal/lib/cache"
	"sumai_assistant/internal/lib/geocoding"
	"sumai_assistant/internal/lib/logger/sl"
	"sumai_assistant/internal/lib/metrics"
	"sumai_assistant/internal/repository"
	"sumai_assistant/internal/repository/property_repository"
	"sumai_assistant/internal/repository/sqlite_repository"
	"sumai_assistant/internal/services/clarification"
	"sumai_assistant/internal/services/conversation"
	"sumai_assistant/internal/services/disambiguation"
	"sumai_assistant/internal/services/ranking"
	"sumai_assistant/internal/services/recommendation"
	"sumai_assistant/internal/services/scoring"
	"sumai_assistant/internal/services/session"
)

// memoryCacheSize — предел записей кэша в памяти, когда Redis выключен.
const memoryCacheSize = 10000

// ListingStore — база объявлений (SQLite или Postgres).
type ListingStore interface {
	recommendation.ListingRepository
	EnsureSchema(ctx context.Context, reset bool) error
	InsertListings(ctx context.Context, listings []repository.ListingRow) (int, error)
	Close() error
}

type App struct {
	HTTPServer      *httpapp.App
	Recommendations *recommendation.Service
	Conversation    *conversation.Service
	Sessions        session.Store
	Listings        ListingStore
	Metrics         *metrics.CallMetrics

	log     *slog.Logger
	closers []func() error
}

// New собирает зависимости приложения. Ошибки подключения к базе объявлений фатальны,
// к Redis и MinIO нет: они заменяются памятью и пустым архивом.
func New(ctx context.Context, log *slog.Logger, cfg *config.Config) (*App, error) {
	const op = "app.New"

	m := metrics.GetCallMetrics(log)

	listings, err := OpenListingStore(ctx, cfg.Storage, log, m)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a := &App{
		Listings: listings,
		Metrics:  m,
		log:      log,
		closers:  []func() error{listings.Close},
	}

	store := NewCache(ctx, cfg.Redis, m, log)
	a.closers = append(a.closers, store.Close)

	geo := geocoding.NewClient(cfg.Geocoding, m, log)
	geo = geocoding.NewCachedClient(geo, store, cfg.Redis.DistanceTTL, log)

	var distances disambiguation.DistanceLookup
	if geo.IsEnabled() {
		distances = geo
	}

	refs, err := archive.New(ctx, cfg.Minio, m, log)
	if err != nil {
		log.Warn("reference archive unavailable, continuing without it", sl.Err(err))
		refs = archive.Noop()
	}

	log.Info("collaborators initialized",
		slog.String("storage_driver", cfg.Storage.Driver),
		slog.Bool("redis_enabled", cfg.Redis.Enabled),
		slog.Bool("geocoding_enabled", geo.IsEnabled()),
		slog.Bool("archive_enabled", refs.IsEnabled()),
	)

	resolver := disambiguation.NewResolver(log, distances, cfg.Geocoding.Timeout)
	ranker := ranking.New(log, scoring.NewScorer(log))

	a.Recommendations = recommendation.New(log, listings, ranker, resolver, refs, cfg.Ranking)
	a.Sessions = session.NewCacheStore(log, store, cfg.Redis.SessionTTL)

	agent := clarification.NewAgent(log)
	a.Conversation = conversation.New(log, a.Sessions, a.Recommendations, agent)

	handler := api.NewHandler(log, a.Recommendations, a.Conversation, a.Sessions, agent, m)
	router := api.NewRouter(log, handler, api.RouterOptions{
		Timeout:        cfg.HTTP.Timeout,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	})
	a.HTTPServer = httpapp.New(log, router, cfg.HTTP.Port, cfg.HTTP.Timeout)

	return a, nil
}

// OpenListingStore открывает базу объявлений по драйверу из конфигурации.
func OpenListingStore(ctx context.Context, cfg config.StorageConfig, log *slog.Logger, m *metrics.CallMetrics) (ListingStore, error) {
	const op = "app.OpenListingStore"

	switch strings.ToLower(cfg.Driver) {
	case "sqlite", "":
		repo, err := sqlite_repository.Open(cfg.SQLitePath, log, m)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return repo, nil
	case "postgres", "pg":
		pool, err := property_repository.Connect(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return property_repository.NewPropertyRepository(pool, log, m), nil
	default:
		return nil, fmt.Errorf("%s: %w: %q", op, repository.ErrUnknownDriver, cfg.Driver)
	}
}

// NewCache возвращает Redis, если он включён и доступен, иначе кэш в памяти.
func NewCache(ctx context.Context, cfg config.RedisConfig, m *metrics.CallMetrics, log *slog.Logger) cache.Client {
	if !cfg.Enabled {
		return cache.NewMemoryClient(memoryCacheSize)
	}

	client, err := cache.NewRedisClient(ctx, cache.RedisConfig{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		Prefix:   cfg.Prefix,
	}, m)
	if err != nil {
		log.Warn("redis unavailable, falling back to in-memory cache", slog.String("addr", cfg.Addr), sl.Err(err))
		return cache.NewMemoryClient(memoryCacheSize)
	}
	return client
}

// Close освобождает соединения в обратном порядке открытия.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.log.Error("failed to close resources", sl.Err(err))
		return err
	}
	return nil
}
