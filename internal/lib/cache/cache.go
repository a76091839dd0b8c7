package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"sumai_assistant/internal/lib/metrics"
)

// ErrCacheMiss — ключа нет или он истёк.
var ErrCacheMiss = errors.New("cache miss")

// Client — кэш байтовых значений с TTL.
type Client interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// RedisClient — кэш поверх Redis. Все ключи получают общий префикс.
type RedisClient struct {
	client  *redis.Client
	prefix  string
	metrics *metrics.CallMetrics
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedisClient подключается к Redis и проверяет соединение.
func NewRedisClient(ctx context.Context, cfg RedisConfig, m *metrics.CallMetrics) (*RedisClient, error) {
	const op = "cache.NewRedisClient"

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	return &RedisClient{
		client:  client,
		prefix:  normalizePrefix(cfg.Prefix),
		metrics: m,
	}, nil
}

func normalizePrefix(prefix string) string {
	if prefix == "" {
		return "sumai:"
	}
	if !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return prefix
}

func (c *RedisClient) Get(ctx context.Context, key string) ([]byte, error) {
	timer := c.metrics.StartTimer(metrics.ServiceCache)

	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		timer.Stop(nil)
		return nil, ErrCacheMiss
	}
	timer.Stop(err)
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}

func (c *RedisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	timer := c.metrics.StartTimer(metrics.ServiceCache)
	err := c.client.Set(ctx, c.prefix+key, value, ttl).Err()
	timer.Stop(err)
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisClient) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	return c.client.Close()
}

// MemoryClient — кэш в памяти процесса. Истёкшие записи удаляются при чтении
// и при периодической очистке в Set.
type MemoryClient struct {
	mu      sync.Mutex
	data    map[string]entry
	maxSize int
	now     func() time.Time
	writes  int
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

const (
	defaultMaxSize = 10000
	sweepEvery     = 256
)

// NewMemoryClient создаёт кэш в памяти. maxSize <= 0 — значение по умолчанию.
func NewMemoryClient(maxSize int) *MemoryClient {
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}
	return &MemoryClient{
		data:    make(map[string]entry),
		maxSize: maxSize,
		now:     time.Now,
	}
}

func (c *MemoryClient) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	if c.expired(e) {
		delete(c.data, key)
		return nil, ErrCacheMiss
	}

	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// Set сохраняет копию значения. ttl <= 0 — без срока.
func (c *MemoryClient) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writes++
	if c.writes%sweepEvery == 0 {
		c.sweep()
	}
	if _, exists := c.data[key]; !exists && len(c.data) >= c.maxSize {
		c.sweep()
		if len(c.data) >= c.maxSize {
			c.evictOldest()
		}
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	e := entry{value: stored}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.data[key] = e
	return nil
}

func (c *MemoryClient) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, key)
	return nil
}

func (c *MemoryClient) Close() error {
	return nil
}

// Len — количество записей, включая ещё не удалённые истёкшие.
func (c *MemoryClient) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

func (c *MemoryClient) expired(e entry) bool {
	return !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt)
}

func (c *MemoryClient) sweep() {
	for key, e := range c.data {
		if c.expired(e) {
			delete(c.data, key)
		}
	}
}

// evictOldest удаляет запись с самым ранним сроком истечения; бессрочные вытесняются последними.
func (c *MemoryClient) evictOldest() {
	var (
		oldestKey  string
		oldestTime time.Time
		found      bool
	)
	for key, e := range c.data {
		if e.expiresAt.IsZero() {
			continue
		}
		if !found || e.expiresAt.Before(oldestTime) {
			oldestKey, oldestTime, found = key, e.expiresAt, true
		}
	}
	if !found {
		for key := range c.data {
			oldestKey = key
			break
		}
	}
	delete(c.data, oldestKey)
}

// Key собирает ключ из частей через ":".
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
