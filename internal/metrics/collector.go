package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type EventType string

const (
	EventCacheHit       EventType = "cache_hit"
	EventProbeCompleted EventType = "probe_completed"
)

type MetricEvent struct {
	Type       EventType
	Timestamp  time.Time
	Peer       string
	Down       bool
	Reason     string
	StatusCode int
	Duration   time.Duration
}

type Collector struct {
	eventCh  chan MetricEvent
	metrics  *Metrics
	exporter *exporter
	registry *prometheus.Registry
	logger   *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	registry := prometheus.NewRegistry()

	return &Collector{
		eventCh:  make(chan MetricEvent, bufferSize),
		metrics:  NewMetrics(),
		exporter: newExporter(registry),
		registry: registry,
		logger:   logger,
	}
}

func (c *Collector) EventChannel() chan<- MetricEvent {
	return c.eventCh
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventCacheHit:
		c.metrics.RecordCacheHit(event.Peer)
		c.exporter.lookups.WithLabelValues(event.Peer, "hit").Inc()

	case EventProbeCompleted:
		c.metrics.RecordProbe(event.Peer, event.Down, event.Reason, event.StatusCode, event.Duration)
		c.exporter.observeProbe(event)

	default:
		c.logger.Debug("Ignoring unknown metric event", slog.String("type", string(event.Type)))
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}

// Handler serves the Prometheus exposition of the collected counters.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the collector's Prometheus registry so callers can add
// their own collectors to the same endpoint.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
