package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"sumai_assistant/internal/config"
	"sumai_assistant/internal/lib/metrics"
)

// Archive сохраняет загруженные пользователем эталонные объявления.
type Archive interface {
	// Store сохраняет сырую запись и возвращает ключ объекта.
	Store(ctx context.Context, raw map[string]any) (string, error)
	IsEnabled() bool
}

const referencePrefix = "references"

type minioArchive struct {
	client  *minio.Client
	bucket  string
	metrics *metrics.CallMetrics
	log     *slog.Logger
	now     func() time.Time
}

// New подключается к MinIO и создаёт бакет при необходимости.
// При выключенном архиве возвращает заглушку.
func New(ctx context.Context, cfg config.MinioConfig, m *metrics.CallMetrics, log *slog.Logger) (Archive, error) {
	const op = "archive.New"

	if !cfg.Enabled {
		return Noop(), nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.User, cfg.Password, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("%s: bucket check: %w", op, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("%s: make bucket: %w", op, err)
		}
		log.Info("archive bucket created", slog.String("bucket", cfg.Bucket))
	}

	return &minioArchive{
		client:  client,
		bucket:  cfg.Bucket,
		metrics: m,
		log:     log,
		now:     time.Now,
	}, nil
}

// ObjectName — "references/2006/01/02/<uuid>.json".
func ObjectName(at time.Time, id uuid.UUID) string {
	return path.Join(referencePrefix, at.UTC().Format("2006/01/02"), id.String()+".json")
}

func (a *minioArchive) Store(ctx context.Context, raw map[string]any) (key string, err error) {
	const op = "archive.Archive.Store"

	data, err := json.Marshal(raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	timer := a.metrics.StartTimer(metrics.ServiceArchive)
	defer func() { timer.Stop(err) }()

	key = ObjectName(a.now(), uuid.New())
	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	a.log.Debug("reference archived", slog.String("op", op), slog.String("key", key))
	return key, nil
}

func (a *minioArchive) IsEnabled() bool {
	return true
}

type noopArchive struct{}

// Noop — архив, который ничего не сохраняет.
func Noop() Archive {
	return noopArchive{}
}

func (noopArchive) Store(context.Context, map[string]any) (string, error) {
	return "", nil
}

func (noopArchive) IsEnabled() bool {
	return false
}
