package metrics

import (
	"encoding/json"
	"time"
)

// Durations are rendered as Go duration strings ("1.5s") so the status
// view reads the same everywhere.

func (s Snapshot) MarshalJSON() ([]byte, error) {
	type alias Snapshot
	return json.Marshal(struct {
		alias
		Uptime string `json:"uptime"`
	}{
		alias:  alias(s),
		Uptime: s.Uptime.String(),
	})
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	type alias Snapshot
	aux := struct {
		*alias
		Uptime string `json:"uptime"`
	}{alias: (*alias)(s)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	s.Uptime, err = parseDuration(aux.Uptime)
	return err
}

func (p PeerMetrics) MarshalJSON() ([]byte, error) {
	type alias PeerMetrics
	return json.Marshal(struct {
		alias
		AvgProbe string `json:"avg_probe"`
		P50Probe string `json:"p50_probe"`
		P95Probe string `json:"p95_probe"`
		P99Probe string `json:"p99_probe"`
	}{
		alias:    alias(p),
		AvgProbe: p.AvgProbe.String(),
		P50Probe: p.P50Probe.String(),
		P95Probe: p.P95Probe.String(),
		P99Probe: p.P99Probe.String(),
	})
}

func (p *PeerMetrics) UnmarshalJSON(data []byte) error {
	type alias PeerMetrics
	aux := struct {
		*alias
		AvgProbe string `json:"avg_probe"`
		P50Probe string `json:"p50_probe"`
		P95Probe string `json:"p95_probe"`
		P99Probe string `json:"p99_probe"`
	}{alias: (*alias)(p)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	fields := []struct {
		dst *time.Duration
		src string
	}{
		{&p.AvgProbe, aux.AvgProbe},
		{&p.P50Probe, aux.P50Probe},
		{&p.P95Probe, aux.P95Probe},
		{&p.P99Probe, aux.P99Probe},
	}
	for _, f := range fields {
		d, err := parseDuration(f.src)
		if err != nil {
			return err
		}
		*f.dst = d
	}

	return nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
