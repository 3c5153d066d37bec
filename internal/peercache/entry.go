package peercache

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/angeloszaimis/peer-health-adapter/internal/probe"
)

type entry struct {
	target string

	// refresh is held across the whole check-probe-store sequence.
	refresh sync.Mutex

	mutex       sync.RWMutex
	refreshedAt time.Time
	last        probe.Result
}

func newEntry(target string) *entry {
	return &entry{
		target: target,
		last:   probe.Pending(),
	}
}

func (e *entry) state() (time.Time, probe.Result) {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.refreshedAt, e.last
}

// store records res as the current verdict. refreshedAt never moves
// backwards. Returns the previous verdict.
func (e *entry) store(at time.Time, res probe.Result) probe.Result {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	prev := e.last
	e.last = res
	if at.After(e.refreshedAt) {
		e.refreshedAt = at
	}
	return prev
}

// EntryState is a point-in-time view of one cache entry.
type EntryState struct {
	Peer        string        `json:"peer"`
	Down        bool          `json:"down"`
	Fresh       bool          `json:"fresh"`
	RefreshedAt time.Time     `json:"refreshed_at"`
	Age         time.Duration `json:"age"`
	Reason      string        `json:"reason"`
	StatusCode  int           `json:"status_code,omitempty"`
	Latency     time.Duration `json:"latency,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// MarshalJSON renders Age and Latency as duration strings.
func (s EntryState) MarshalJSON() ([]byte, error) {
	type alias EntryState
	aux := struct {
		alias
		Age     string `json:"age"`
		Latency string `json:"latency,omitempty"`
	}{
		alias: alias(s),
		Age:   s.Age.String(),
	}
	if s.Latency > 0 {
		aux.Latency = s.Latency.String()
	}
	return json.Marshal(aux)
}

func (s *EntryState) UnmarshalJSON(data []byte) error {
	type alias EntryState
	aux := struct {
		*alias
		Age     string `json:"age"`
		Latency string `json:"latency,omitempty"`
	}{alias: (*alias)(s)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if aux.Age != "" {
		if s.Age, err = time.ParseDuration(aux.Age); err != nil {
			return err
		}
	}
	if aux.Latency != "" {
		if s.Latency, err = time.ParseDuration(aux.Latency); err != nil {
			return err
		}
	}
	return nil
}
