// Package circuitbreaker keeps one sony/gobreaker breaker per outbound dependency.
package circuitbreaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// ErrOpen is returned without calling the wrapped function while a breaker is open, or
// when a half-open breaker already has its probe in flight.
var ErrOpen = errors.New("circuit breaker open")

// State is the breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
	StateUnknown  State = "unknown"
)

// Config holds the settings of one breaker.
type Config struct {
	// ConsecutiveFailures opens the breaker.
	ConsecutiveFailures uint32
	// Cooldown is how long the breaker stays open before allowing a probe.
	Cooldown time.Duration
	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32
	// Interval clears closed-state counts periodically; zero never clears them.
	Interval time.Duration
	// IsFailure decides whether an error counts against the breaker. Nil counts every error.
	IsFailure func(err error) bool
}

// Counts is a snapshot of breaker statistics.
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// StateChangeListener is notified synchronously on every transition. Implementations
// must not call back into the breaker that notified them.
type StateChangeListener interface {
	OnStateChange(name string, from, to State)
}

func convertState(state gobreaker.State) State {
	switch state {
	case gobreaker.StateClosed:
		return StateClosed
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateUnknown
	}
}

func convertCounts(counts gobreaker.Counts) Counts {
	return Counts{
		Requests:             counts.Requests,
		TotalSuccesses:       counts.TotalSuccesses,
		TotalFailures:        counts.TotalFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
		ConsecutiveFailures:  counts.ConsecutiveFailures,
	}
}
