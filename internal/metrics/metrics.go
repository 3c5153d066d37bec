package metrics

import (
	"sort"
	"sync"
	"time"
)

// maxSamples bounds the per-peer latency window used for percentiles.
const maxSamples = 1000

type Metrics struct {
	mutex       sync.RWMutex
	cacheHits   map[string]int64
	probes      map[string]int64
	failures    map[string]map[string]int64
	probeTimes  map[string][]time.Duration
	statusCodes map[string]map[int]int64
	downState   map[string]bool
	startTime   time.Time
}

type Snapshot struct {
	TotalLookups int64                  `json:"total_lookups"`
	Uptime       time.Duration          `json:"uptime"`
	Peers        map[string]PeerMetrics `json:"peers"`
}

type PeerMetrics struct {
	Lookups     int64            `json:"lookups"`
	CacheHits   int64            `json:"cache_hits"`
	Probes      int64            `json:"probes"`
	Down        bool             `json:"down"`
	Failures    map[string]int64 `json:"failures,omitempty"`
	AvgProbe    time.Duration    `json:"avg_probe"`
	P50Probe    time.Duration    `json:"p50_probe"`
	P95Probe    time.Duration    `json:"p95_probe"`
	P99Probe    time.Duration    `json:"p99_probe"`
	StatusCodes map[int]int64    `json:"status_codes,omitempty"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		cacheHits:   make(map[string]int64),
		probes:      make(map[string]int64),
		failures:    make(map[string]map[string]int64),
		probeTimes:  make(map[string][]time.Duration),
		statusCodes: make(map[string]map[int]int64),
		downState:   make(map[string]bool),
		startTime:   time.Now(),
	}
}

func (m *Metrics) RecordCacheHit(peer string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.cacheHits[peer]++
}

// RecordProbe folds one completed probe into the peer's counters. Failures
// are counted by reason; a status code of 0 means no response arrived.
func (m *Metrics) RecordProbe(peer string, down bool, reason string, statusCode int, duration time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.probes[peer]++
	m.downState[peer] = down

	if down {
		if m.failures[peer] == nil {
			m.failures[peer] = make(map[string]int64)
		}
		m.failures[peer][reason]++
	}

	m.probeTimes[peer] = append(m.probeTimes[peer], duration)
	if len(m.probeTimes[peer]) > maxSamples {
		m.probeTimes[peer] = m.probeTimes[peer][1:]
	}

	if statusCode != 0 {
		if m.statusCodes[peer] == nil {
			m.statusCodes[peer] = make(map[int]int64)
		}
		m.statusCodes[peer][statusCode]++
	}
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime: time.Since(m.startTime),
		Peers:  make(map[string]PeerMetrics),
	}

	allPeers := make(map[string]bool)
	for peer := range m.cacheHits {
		allPeers[peer] = true
	}
	for peer := range m.probes {
		allPeers[peer] = true
	}

	for peer := range allPeers {
		pm := PeerMetrics{
			CacheHits:   m.cacheHits[peer],
			Probes:      m.probes[peer],
			Down:        m.downState[peer],
			Failures:    copyCounts(m.failures[peer]),
			StatusCodes: copyCodes(m.statusCodes[peer]),
		}
		pm.Lookups = pm.CacheHits + pm.Probes
		snap.TotalLookups += pm.Lookups

		durations := m.probeTimes[peer]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			pm.AvgProbe = average(sorted)
			pm.P50Probe = percentile(sorted, 0.50)
			pm.P95Probe = percentile(sorted, 0.95)
			pm.P99Probe = percentile(sorted, 0.99)
		}

		snap.Peers[peer] = pm
	}

	return snap
}

func copyCounts(src map[string]int64) map[string]int64 {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func copyCodes(src map[int]int64) map[int]int64 {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[int]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
