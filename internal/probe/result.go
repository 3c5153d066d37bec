package probe

import "time"

// Reason explains a probe verdict.
type Reason int

const (
	ReasonNone Reason = iota // peer answered with an accepted status
	ReasonPending            // no probe has completed yet
	ReasonUnconfigured       // no URL configured for the peer
	ReasonRequest            // request could not be built
	ReasonTimeout
	ReasonTLS
	ReasonNetwork
	ReasonStatus // response status rejected by the acceptance pattern
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "up"
	case ReasonPending:
		return "pending"
	case ReasonUnconfigured:
		return "unconfigured"
	case ReasonRequest:
		return "request"
	case ReasonTimeout:
		return "timeout"
	case ReasonTLS:
		return "tls"
	case ReasonNetwork:
		return "network"
	case ReasonStatus:
		return "status"
	default:
		return "unknown"
	}
}

// Result is the outcome of one probe. StatusCode is 0 when no response
// was received.
type Result struct {
	Down       bool
	Reason     Reason
	StatusCode int
	Err        error
	Latency    time.Duration
	CheckedAt  time.Time
}

// Pending is the verdict held before the first probe completes. It reports
// the peer as down.
func Pending() Result {
	return Result{Down: true, Reason: ReasonPending}
}

func up(status int) Result {
	return Result{Reason: ReasonNone, StatusCode: status}
}

func down(reason Reason, status int, err error) Result {
	return Result{Down: true, Reason: reason, StatusCode: status, Err: err}
}
