package geocoding

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"sumai_assistant/internal/lib/cache"
	"sumai_assistant/internal/lib/logger/sl"
)

// CachedClient — Client с кэшем расстояний. Ошибки кэша не мешают запросу.
type CachedClient struct {
	next  Client
	cache cache.Client
	ttl   time.Duration
	log   *slog.Logger
}

// NewCachedClient оборачивает клиент кэшем. Для выключенного клиента кэш не нужен.
func NewCachedClient(next Client, c cache.Client, ttl time.Duration, log *slog.Logger) Client {
	if !next.IsEnabled() || c == nil {
		return next
	}
	return &CachedClient{next: next, cache: c, ttl: ttl, log: log}
}

// distanceKey не зависит от направления: расстояние A-B равно B-A.
func distanceKey(from, to string) string {
	if to < from {
		from, to = to, from
	}
	return cache.Key("distance", from, to)
}

func (c *CachedClient) Distance(ctx context.Context, from, to string) (float64, error) {
	const op = "geocoding.CachedClient.Distance"

	log := c.log.With(slog.String("op", op))
	key := distanceKey(from, to)

	raw, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		if km, parseErr := strconv.ParseFloat(string(raw), 64); parseErr == nil {
			return km, nil
		}
		log.Warn("invalid cached distance", slog.String("key", key))
	case !errors.Is(err, cache.ErrCacheMiss):
		log.Warn("distance cache read failed", sl.Err(err))
	}

	km, err := c.next.Distance(ctx, from, to)
	if err != nil {
		return 0, err
	}

	if err := c.cache.Set(ctx, key, []byte(strconv.FormatFloat(km, 'f', -1, 64)), c.ttl); err != nil {
		log.Warn("distance cache write failed", sl.Err(err))
	}
	return km, nil
}

func (c *CachedClient) IsEnabled() bool {
	return c.next.IsEnabled()
}
