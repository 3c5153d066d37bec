package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/peer-health-adapter/internal/handler"
	"github.com/angeloszaimis/peer-health-adapter/internal/metrics"
	"github.com/angeloszaimis/peer-health-adapter/internal/peercache"
	"github.com/angeloszaimis/peer-health-adapter/pkg/logger"
)

type fakePeers struct {
	mutex   sync.Mutex
	down    map[string]bool
	lookups int
}

func (f *fakePeers) DownState(key string) bool {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.lookups++
	down, ok := f.down[key]
	return !ok || down
}

func (f *fakePeers) Snapshot() map[string]peercache.EntryState {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	out := make(map[string]peercache.EntryState)
	for key, down := range f.down {
		out[key] = peercache.EntryState{
			Peer:    key,
			Down:    down,
			Reason:  "up",
			Age:     1500 * time.Millisecond,
			Latency: 20 * time.Millisecond,
		}
	}
	return out
}

func (f *fakePeers) TTL() time.Duration {
	return 5 * time.Second
}

func (f *fakePeers) lookupCount() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.lookups
}

var _ = Describe("MetricHandler", func() {
	var (
		peers *fakePeers
		h     *handler.MetricHandler
		rec   *httptest.ResponseRecorder
	)

	BeforeEach(func() {
		peers = &fakePeers{down: map[string]bool{"a": false, "b": true}}
		h = handler.NewMetricHandler(logger.Discard(), peers, nil)
		rec = httptest.NewRecorder()
	})

	decodeValue := func() int {
		var body map[string]int
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body).To(HaveKey("value"))
		return body["value"]
	}

	Describe("Metric", func() {
		It("should return 1 when the peer is down", func() {
			h.Metric("b")(rec, httptest.NewRequest(http.MethodGet, "/metric/site-a", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))
			Expect(decodeValue()).To(Equal(1))
		})

		It("should return 0 when the peer is up", func() {
			h.Metric("a")(rec, httptest.NewRequest(http.MethodGet, "/metric/site-b", nil))
			Expect(decodeValue()).To(Equal(0))
		})

		It("should return 1 for a peer the cache does not know", func() {
			h.Metric("c")(rec, httptest.NewRequest(http.MethodGet, "/metric/site-c", nil))
			Expect(decodeValue()).To(Equal(1))
		})
	})

	Describe("Healthz", func() {
		It("should report ok without touching the peers", func() {
			h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(Equal("ok"))
			Expect(peers.lookupCount()).To(BeZero())
		})
	})

	Describe("Status", func() {
		It("should render the cache snapshot without probing", func() {
			h.Status(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(peers.lookupCount()).To(BeZero())

			var body struct {
				TTL   string                          `json:"ttl"`
				Peers map[string]peercache.EntryState `json:"peers"`
				Stats *metrics.Snapshot               `json:"stats"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body.TTL).To(Equal("5s"))
			Expect(body.Peers).To(HaveLen(2))
			Expect(body.Peers["b"].Down).To(BeTrue())
			Expect(body.Peers["b"].Age).To(Equal(1500 * time.Millisecond))
			Expect(body.Stats).To(BeNil())
		})

		It("should render every duration as a duration string", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			collector := metrics.NewCollector(10, logger.Discard())
			collector.Start(ctx)
			collector.EventChannel() <- metrics.MetricEvent{
				Type:     metrics.EventProbeCompleted,
				Peer:     "b",
				Down:     true,
				Reason:   "timeout",
				Duration: 3 * time.Second,
			}
			Eventually(func() int64 {
				return collector.Snapshot().Peers["b"].Probes
			}).Should(Equal(int64(1)))

			h = handler.NewMetricHandler(logger.Discard(), peers, collector)
			h.Status(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

			var body struct {
				TTL   any                       `json:"ttl"`
				Peers map[string]map[string]any `json:"peers"`
				Stats struct {
					Uptime any                       `json:"uptime"`
					Peers  map[string]map[string]any `json:"peers"`
				} `json:"stats"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())

			Expect(body.TTL).To(Equal("5s"))
			Expect(body.Peers["b"]["age"]).To(Equal("1.5s"))
			Expect(body.Peers["b"]["latency"]).To(Equal("20ms"))
			Expect(body.Stats.Uptime).To(BeAssignableToTypeOf(""))
			Expect(body.Stats.Peers["b"]["avg_probe"]).To(Equal("3s"))
			Expect(body.Stats.Peers["b"]["p99_probe"]).To(Equal("3s"))
		})

		It("should include collector statistics when available", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			collector := metrics.NewCollector(10, logger.Discard())
			collector.Start(ctx)
			collector.EventChannel() <- metrics.MetricEvent{Type: metrics.EventCacheHit, Peer: "b"}
			Eventually(func() int64 {
				return collector.Snapshot().Peers["b"].CacheHits
			}).Should(Equal(int64(1)))

			h = handler.NewMetricHandler(logger.Discard(), peers, collector)
			h.Status(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

			var body struct {
				Stats *metrics.Snapshot `json:"stats"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body.Stats).NotTo(BeNil())
			Expect(body.Stats.Peers["b"].CacheHits).To(Equal(int64(1)))
		})
	})
})
