// Package metrics collects peer lookup and probe statistics.
//
// Lookups and probes are reported as events on a buffered channel and folded
// into counters by a dedicated goroutine, so the lookup path never blocks on
// bookkeeping. Two views are exposed:
//   - a JSON-friendly Snapshot with per-peer counts, failure reasons and
//     probe latency percentiles (P50, P95, P99)
//   - a Prometheus registry served by Collector.Handler
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	collector.EventChannel() <- metrics.MetricEvent{
//		Type:       metrics.EventProbeCompleted,
//		Peer:       "b",
//		Down:       true,
//		Reason:     "timeout",
//		Duration:   3 * time.Second,
//	}
//
//	snapshot := collector.Snapshot()
//
// On shutdown the collector drains whatever is still buffered.
package metrics
