package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type exporter struct {
	lookups       *prometheus.CounterVec
	probes        *prometheus.CounterVec
	probeDuration *prometheus.HistogramVec
	peerDown      *prometheus.GaugeVec
}

func newExporter(reg prometheus.Registerer) *exporter {
	e := &exporter{
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "peer_lookups_total",
				Help: "Peer state lookups, by cache result.",
			},
			[]string{"peer", "cache"},
		),
		probes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "peer_probes_total",
				Help: "Completed peer probes, by verdict reason.",
			},
			[]string{"peer", "reason"},
		),
		probeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "peer_probe_duration_seconds",
				Help:    "Duration of peer probes.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"peer"},
		),
		peerDown: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "peer_down",
				Help: "1 if the last completed probe reported the peer down.",
			},
			[]string{"peer"},
		),
	}

	reg.MustRegister(e.lookups, e.probes, e.probeDuration, e.peerDown)
	return e
}

func (e *exporter) observeProbe(event MetricEvent) {
	e.lookups.WithLabelValues(event.Peer, "miss").Inc()
	e.probes.WithLabelValues(event.Peer, event.Reason).Inc()
	e.probeDuration.WithLabelValues(event.Peer).Observe(event.Duration.Seconds())

	down := 0.0
	if event.Down {
		down = 1
	}
	e.peerDown.WithLabelValues(event.Peer).Set(down)
}
