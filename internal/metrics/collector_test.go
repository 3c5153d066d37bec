package metrics_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/peer-health-adapter/internal/metrics"
)

var _ = Describe("Collector", func() {
	var (
		collector *metrics.Collector
		log       *slog.Logger
		ctx       context.Context
		cancel    context.CancelFunc
	)

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelError, // Suppress logs in tests
		}))
		ctx, cancel = context.WithCancel(context.Background())
		collector = metrics.NewCollector(100, log)
	})

	AfterEach(func() {
		cancel()
	})

	Describe("EventChannel", func() {
		It("should return a write-only channel", func() {
			Expect(collector.EventChannel()).NotTo(BeNil())
		})
	})

	Describe("Start and event processing", func() {
		It("should process EventCacheHit", func() {
			collector.Start(ctx)

			collector.EventChannel() <- metrics.MetricEvent{
				Type:      metrics.EventCacheHit,
				Timestamp: time.Now(),
				Peer:      "b",
			}

			Eventually(func() int64 {
				return collector.Snapshot().Peers["b"].CacheHits
			}).Should(Equal(int64(1)))
		})

		It("should process EventProbeCompleted", func() {
			collector.Start(ctx)

			collector.EventChannel() <- metrics.MetricEvent{
				Type:       metrics.EventProbeCompleted,
				Timestamp:  time.Now(),
				Peer:       "b",
				Down:       true,
				Reason:     "status",
				StatusCode: 503,
				Duration:   20 * time.Millisecond,
			}

			Eventually(func() int64 {
				return collector.Snapshot().Peers["b"].Probes
			}).Should(Equal(int64(1)))

			peer := collector.Snapshot().Peers["b"]
			Expect(peer.Down).To(BeTrue())
			Expect(peer.Failures["status"]).To(Equal(int64(1)))
			Expect(peer.AvgProbe).To(Equal(20 * time.Millisecond))
		})

		It("should drain events on context cancellation", func() {
			for i := 0; i < 5; i++ {
				collector.EventChannel() <- metrics.MetricEvent{
					Type: metrics.EventCacheHit,
					Peer: "a",
				}
			}

			collector.Start(ctx)
			cancel()

			Eventually(func() int64 {
				return collector.Snapshot().Peers["a"].CacheHits
			}).Should(Equal(int64(5)))
		})
	})

	Describe("Handler", func() {
		scrape := func() string {
			rec := httptest.NewRecorder()
			collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
			body, err := io.ReadAll(rec.Body)
			Expect(err).NotTo(HaveOccurred())
			return string(body)
		}

		It("should expose probe counters in Prometheus format", func() {
			collector.Start(ctx)

			collector.EventChannel() <- metrics.MetricEvent{
				Type:     metrics.EventProbeCompleted,
				Peer:     "a",
				Down:     true,
				Reason:   "timeout",
				Duration: time.Second,
			}
			collector.EventChannel() <- metrics.MetricEvent{
				Type: metrics.EventCacheHit,
				Peer: "a",
			}

			Eventually(scrape).Should(And(
				ContainSubstring(`peer_probes_total{peer="a",reason="timeout"} 1`),
				ContainSubstring(`peer_lookups_total{cache="hit",peer="a"} 1`),
				ContainSubstring(`peer_lookups_total{cache="miss",peer="a"} 1`),
				ContainSubstring(`peer_down{peer="a"} 1`),
			))
		})

		It("should share its registry", func() {
			Expect(collector.Registry()).NotTo(BeNil())
		})
	})
})
