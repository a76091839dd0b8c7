package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sumai_assistant/internal/domain"
	"sumai_assistant/internal/lib/cache"
	"sumai_assistant/internal/lib/logger/sl"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidSession  = errors.New("invalid session")
)

const DefaultTTL = 24 * time.Hour

// Store — хранилище диалоговых сессий. Сессию создаёт и удаляет вызывающая сторона.
type Store interface {
	Create(ctx context.Context) (*domain.Session, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	Save(ctx context.Context, s *domain.Session) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CacheStore хранит сессии как JSON в cache.Client (Redis или память).
// Каждое сохранение продлевает TTL.
type CacheStore struct {
	log   *slog.Logger
	cache cache.Client
	ttl   time.Duration
	now   func() time.Time
}

// NewCacheStore создаёт хранилище сессий. ttl <= 0 — DefaultTTL.
func NewCacheStore(log *slog.Logger, c cache.Client, ttl time.Duration) *CacheStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CacheStore{
		log:   log,
		cache: c,
		ttl:   ttl,
		now:   time.Now,
	}
}

func sessionKey(id uuid.UUID) string {
	return cache.Key("session", id.String())
}

func (s *CacheStore) Create(ctx context.Context) (*domain.Session, error) {
	const op = "session.CacheStore.Create"

	sess := domain.NewSession(s.now())
	if err := s.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Debug("session created", slog.String("op", op), slog.String("session_id", sess.ID.String()))
	return sess, nil
}

func (s *CacheStore) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	const op = "session.CacheStore.Get"

	data, err := s.cache.Get(ctx, sessionKey(id))
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		s.log.Warn("corrupted session dropped",
			slog.String("op", op),
			slog.String("session_id", id.String()),
			sl.Err(err),
		)
		_ = s.cache.Delete(ctx, sessionKey(id))
		return nil, ErrSessionNotFound
	}

	return &sess, nil
}

func (s *CacheStore) Save(ctx context.Context, sess *domain.Session) error {
	const op = "session.CacheStore.Save"

	if sess == nil || sess.ID == uuid.Nil {
		return fmt.Errorf("%s: %w", op, ErrInvalidSession)
	}

	sess.UpdatedAt = s.now()

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Set(ctx, sessionKey(sess.ID), data, s.ttl); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *CacheStore) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "session.CacheStore.Delete"

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, sessionKey(id)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
