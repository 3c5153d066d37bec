package peercache

import (
	"log/slog"
	"sort"
	"time"

	"github.com/angeloszaimis/peer-health-adapter/internal/metrics"
	"github.com/angeloszaimis/peer-health-adapter/internal/probe"
)

// Prober performs one health probe against target.
type Prober interface {
	Probe(target string) probe.Result
}

// Cache holds one entry per configured peer key. The key set is fixed at
// construction.
type Cache struct {
	prober  Prober
	ttl     time.Duration
	entries map[string]*entry
	now     func() time.Time
	logger  *slog.Logger
	events  chan<- metrics.MetricEvent
}

type Option func(*Cache)

// WithClock replaces time.Now as the cache's time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithEvents reports cache hits and completed probes on ch. Sends never
// block; events are dropped when ch is full.
func WithEvents(ch chan<- metrics.MetricEvent) Option {
	return func(c *Cache) {
		c.events = ch
	}
}

// New creates a cache for peers, a map of peer key to health URL. An empty
// URL is allowed and always reports the peer down.
func New(prober Prober, peers map[string]string, ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		prober:  prober,
		ttl:     ttl,
		entries: make(map[string]*entry, len(peers)),
		now:     time.Now,
		logger:  slog.Default(),
	}

	for key, target := range peers {
		c.entries[key] = newEntry(target)
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// DownState reports whether the peer behind key is considered down. Unknown
// keys are always down.
func (c *Cache) DownState(key string) bool {
	res, _ := c.Lookup(key)
	return res.Down
}

// Lookup returns the verdict for key along with the probe result that
// produced it. hit is true when the cached verdict was still fresh.
func (c *Cache) Lookup(key string) (res probe.Result, hit bool) {
	e, ok := c.entries[key]
	if !ok {
		c.logger.Warn("Lookup for unknown peer, reporting down", slog.String("peer", key))
		return probe.Result{Down: true, Reason: probe.ReasonUnconfigured}, false
	}

	e.refresh.Lock()
	defer e.refresh.Unlock()

	now := c.now()
	refreshedAt, last := e.state()
	if c.fresh(refreshedAt, now) {
		c.emit(metrics.MetricEvent{
			Type:      metrics.EventCacheHit,
			Timestamp: now,
			Peer:      key,
			Down:      last.Down,
		})
		return last, true
	}

	res = c.prober.Probe(e.target)
	prev := e.store(now, res)

	c.logTransition(key, prev, res)
	c.emit(metrics.MetricEvent{
		Type:       metrics.EventProbeCompleted,
		Timestamp:  now,
		Peer:       key,
		Down:       res.Down,
		Reason:     res.Reason.String(),
		StatusCode: res.StatusCode,
		Duration:   res.Latency,
	})

	return res, false
}

// Snapshot returns the state of every entry without probing. It does not
// wait for in-flight probes.
func (c *Cache) Snapshot() map[string]EntryState {
	now := c.now()
	out := make(map[string]EntryState, len(c.entries))

	for key, e := range c.entries {
		refreshedAt, last := e.state()

		st := EntryState{
			Peer:        key,
			Down:        last.Down,
			Fresh:       c.fresh(refreshedAt, now),
			RefreshedAt: refreshedAt,
			Reason:      last.Reason.String(),
			StatusCode:  last.StatusCode,
			Latency:     last.Latency,
		}
		if !refreshedAt.IsZero() {
			st.Age = now.Sub(refreshedAt)
		}
		if last.Err != nil {
			st.Error = last.Err.Error()
		}

		out[key] = st
	}

	return out
}

// Keys returns the configured peer keys in sorted order.
func (c *Cache) Keys() []string {
	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// fresh reports whether an entry refreshed at refreshedAt may still be
// served at now. A never-refreshed entry is always stale.
func (c *Cache) fresh(refreshedAt, now time.Time) bool {
	if refreshedAt.IsZero() {
		return false
	}
	return now.Sub(refreshedAt) <= c.ttl
}

func (c *Cache) emit(event metrics.MetricEvent) {
	if c.events == nil {
		return
	}

	select {
	case c.events <- event:
	default:
	}
}

func (c *Cache) logTransition(key string, prev, res probe.Result) {
	if prev.Reason == probe.ReasonPending {
		c.logger.Info("Peer state initialized",
			slog.String("peer", key),
			slog.Bool("down", res.Down),
			slog.String("reason", res.Reason.String()))
		return
	}

	if prev.Down == res.Down {
		c.logger.Debug("Peer probed",
			slog.String("peer", key),
			slog.Bool("down", res.Down),
			slog.String("reason", res.Reason.String()),
			slog.Duration("latency", res.Latency))
		return
	}

	if res.Down {
		attrs := []any{
			slog.String("peer", key),
			slog.String("reason", res.Reason.String()),
			slog.Int("status", res.StatusCode),
		}
		if res.Err != nil {
			attrs = append(attrs, slog.String("error", res.Err.Error()))
		}
		c.logger.Warn("Peer is down", attrs...)
	} else {
		c.logger.Info("Peer is back up",
			slog.String("peer", key),
			slog.Int("status", res.StatusCode))
	}
}
