package metrics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ServiceType — тип внешнего вызова.
type ServiceType string

const (
	ServiceGeocoding ServiceType = "geocoding"
	ServiceLookup    ServiceType = "lookup"
	ServiceCache     ServiceType = "cache"
	ServiceArchive   ServiceType = "archive"
)

// Services — все отслеживаемые типы вызовов.
var Services = []ServiceType{ServiceGeocoding, ServiceLookup, ServiceCache, ServiceArchive}

type counters struct {
	calls          atomic.Int64
	errors         atomic.Int64
	latencyTotalMs atomic.Int64
	lastLatencyMs  atomic.Int64
}

// CallMetrics — метрики внешних вызовов (геокодинг, база, кэш, архив).
type CallMetrics struct {
	log      *slog.Logger
	counters map[ServiceType]*counters
}

var (
	globalMetrics *CallMetrics
	metricsOnce   sync.Once
)

// GetCallMetrics возвращает глобальный экземпляр метрик.
func GetCallMetrics(log *slog.Logger) *CallMetrics {
	metricsOnce.Do(func() {
		globalMetrics = NewCallMetrics(log)
	})
	return globalMetrics
}

// NewCallMetrics создаёт независимый экземпляр (для тестов и CLI).
func NewCallMetrics(log *slog.Logger) *CallMetrics {
	m := &CallMetrics{
		log:      log,
		counters: make(map[ServiceType]*counters, len(Services)),
	}
	for _, s := range Services {
		m.counters[s] = &counters{}
	}
	return m
}

// RecordCall записывает один вызов. Неизвестные типы игнорируются.
func (m *CallMetrics) RecordCall(service ServiceType, latency time.Duration, err error) {
	if m == nil {
		return
	}
	c, ok := m.counters[service]
	if !ok {
		return
	}

	latencyMs := latency.Milliseconds()
	c.calls.Add(1)
	c.latencyTotalMs.Add(latencyMs)
	c.lastLatencyMs.Store(latencyMs)
	if err != nil {
		c.errors.Add(1)
	}

	if m.log != nil {
		logAttrs := []any{
			slog.String("service", string(service)),
			slog.Int64("latency_ms", latencyMs),
		}
		if err != nil {
			logAttrs = append(logAttrs, slog.String("error", err.Error()))
			m.log.Debug("external call failed", logAttrs...)
		} else {
			m.log.Debug("external call completed", logAttrs...)
		}
	}
}

// CallTimer помогает измерять время вызовов.
type CallTimer struct {
	metrics   *CallMetrics
	service   ServiceType
	startTime time.Time
}

// StartTimer начинает измерение времени вызова.
func (m *CallMetrics) StartTimer(service ServiceType) *CallTimer {
	return &CallTimer{
		metrics:   m,
		service:   service,
		startTime: time.Now(),
	}
}

// Stop останавливает таймер и записывает метрики.
func (t *CallTimer) Stop(err error) {
	t.metrics.RecordCall(t.service, time.Since(t.startTime), err)
}

// ServiceStats — статистика по одному типу вызовов.
type ServiceStats struct {
	CallsTotal    int64   `json:"calls_total"`
	ErrorsTotal   int64   `json:"errors_total"`
	ErrorRate     float64 `json:"error_rate"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
	LastLatencyMs int64   `json:"last_latency_ms"`
}

// Stats — текущая статистика по всем типам вызовов.
type Stats map[ServiceType]ServiceStats

// GetStats возвращает текущую статистику.
func (m *CallMetrics) GetStats() Stats {
	stats := make(Stats, len(m.counters))
	for service, c := range m.counters {
		calls := c.calls.Load()
		errors := c.errors.Load()

		var errorRate, avgLatency float64
		if calls > 0 {
			errorRate = float64(errors) / float64(calls)
			avgLatency = float64(c.latencyTotalMs.Load()) / float64(calls)
		}

		stats[service] = ServiceStats{
			CallsTotal:    calls,
			ErrorsTotal:   errors,
			ErrorRate:     errorRate,
			AvgLatencyMs:  avgLatency,
			LastLatencyMs: c.lastLatencyMs.Load(),
		}
	}
	return stats
}

// Reset сбрасывает все метрики.
func (m *CallMetrics) Reset() {
	for _, c := range m.counters {
		c.calls.Store(0)
		c.errors.Store(0)
		c.latencyTotalMs.Store(0)
		c.lastLatencyMs.Store(0)
	}
}

// WrapWithMetrics оборачивает функцию для автоматического сбора метрик.
func WrapWithMetrics[T any](
	ctx context.Context,
	m *CallMetrics,
	service ServiceType,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	timer := m.StartTimer(service)
	result, err := fn(ctx)
	timer.Stop(err)
	return result, err
}
