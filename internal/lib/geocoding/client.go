package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"sumai_assistant/internal/config"
	"sumai_assistant/internal/lib/metrics"
)

var (
	// ErrDisabled — сервис расстояний выключен, используйте оценку.
	ErrDisabled = errors.New("geocoding disabled")
	// ErrNoRoute — сервис не смог построить маршрут между адресами.
	ErrNoRoute = errors.New("no route between addresses")
)

// Client — клиент сервиса расстояний между адресами.
type Client interface {
	// Distance возвращает расстояние между адресами в километрах.
	Distance(ctx context.Context, from, to string) (float64, error)
	IsEnabled() bool
}

// distanceMatrixResponse — ответ Distance Matrix API (нужные поля).
type distanceMatrixResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	Rows         []struct {
		Elements []struct {
			Status   string `json:"status"`
			Distance struct {
				// Value — метры
				Value float64 `json:"value"`
				Text  string  `json:"text"`
			} `json:"distance"`
		} `json:"elements"`
	} `json:"rows"`
}

type client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	apiKey     string
	language   string
	metrics    *metrics.CallMetrics
	log        *slog.Logger
}

// NewClient создаёт клиент Distance Matrix API. При выключенном сервисе возвращает заглушку.
func NewClient(cfg config.GeocodingConfig, m *metrics.CallMetrics, log *slog.Logger) Client {
	if !cfg.Enabled {
		return &noopClient{log: log}
	}

	limit := rate.Limit(cfg.RatePerSecond)
	if cfg.RatePerSecond <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter:  rate.NewLimiter(limit, burst),
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		language: cfg.Language,
		metrics:  m,
		log:      log,
	}
}

func (c *client) Distance(ctx context.Context, from, to string) (km float64, err error) {
	const op = "geocoding.Client.Distance"

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("%s: rate limiter: %w", op, err)
	}

	timer := c.metrics.StartTimer(metrics.ServiceGeocoding)
	defer func() { timer.Stop(err) }()

	query := url.Values{}
	query.Set("origins", from)
	query.Set("destinations", to)
	if c.language != "" {
		query.Set("language", c.language)
	}
	if c.apiKey != "" {
		query.Set("key", c.apiKey)
	}
	endpoint := c.baseURL + "/distancematrix/json?" + query.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to create request: %w", op, err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to send request: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("%s: unexpected status code %d: %s", op, resp.StatusCode, string(body))
	}

	var result distanceMatrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("%s: failed to decode response: %w", op, err)
	}

	if result.Status != "OK" {
		return 0, fmt.Errorf("%s: api status %s: %s", op, result.Status, result.ErrorMessage)
	}
	if len(result.Rows) == 0 || len(result.Rows[0].Elements) == 0 {
		return 0, fmt.Errorf("%s: %w", op, ErrNoRoute)
	}

	element := result.Rows[0].Elements[0]
	if element.Status != "OK" {
		return 0, fmt.Errorf("%s: element status %s: %w", op, element.Status, ErrNoRoute)
	}

	km = element.Distance.Value / 1000
	c.log.Debug("distance resolved",
		slog.String("from", from),
		slog.String("to", to),
		slog.Float64("km", km),
	)

	return km, nil
}

func (c *client) IsEnabled() bool {
	return true
}

// noopClient — заглушка для выключенного сервиса: резолвер переходит на оценку.
type noopClient struct {
	log *slog.Logger
}

func (c *noopClient) Distance(context.Context, string, string) (float64, error) {
	return 0, ErrDisabled
}

func (c *noopClient) IsEnabled() bool {
	return false
}
