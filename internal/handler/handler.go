package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/angeloszaimis/peer-health-adapter/internal/metrics"
	"github.com/angeloszaimis/peer-health-adapter/internal/peercache"
)

// PeerStates is the view of the peer cache the handlers need.
type PeerStates interface {
	DownState(key string) bool
	Snapshot() map[string]peercache.EntryState
	TTL() time.Duration
}

type MetricHandler struct {
	logger    *slog.Logger
	peers     PeerStates
	collector *metrics.Collector
}

type metricResponse struct {
	Value int `json:"value"`
}

type statusResponse struct {
	TTL   string                          `json:"ttl"`
	Peers map[string]peercache.EntryState `json:"peers"`
	Stats *metrics.Snapshot               `json:"stats,omitempty"`
}

// NewMetricHandler creates the handlers. collector may be nil, in which case
// the status view omits probe statistics.
func NewMetricHandler(logger *slog.Logger, peers PeerStates, collector *metrics.Collector) *MetricHandler {
	return &MetricHandler{
		logger:    logger,
		peers:     peers,
		collector: collector,
	}
}

// Metric returns the scaling signal for a site: 1 when peer is down, 0
// otherwise.
func (h *MetricHandler) Metric(peer string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		value := 0
		if h.peers.DownState(peer) {
			value = 1
		}

		h.logger.Debug("Served metric",
			slog.String("peer", peer),
			slog.Int("value", value),
			slog.String("from", r.RemoteAddr))

		h.writeJSON(w, metricResponse{Value: value})
	}
}

// Healthz reports the liveness of this service, not of the peers.
func (h *MetricHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Status shows the cached state of every peer. It never triggers a probe.
func (h *MetricHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		TTL:   h.peers.TTL().String(),
		Peers: h.peers.Snapshot(),
	}

	if h.collector != nil {
		snap := h.collector.Snapshot()
		resp.Stats = &snap
	}

	h.writeJSON(w, resp)
}

func (h *MetricHandler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", slog.Any("err", err))
	}
}
