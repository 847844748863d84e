// Package circuitbreaker implements the circuit-breaker primitive of
// spec §4.3: a per-service state machine (Closed → Open → HalfOpen →
// Closed/Open, plus a terminal-until-reset Isolated override) driven
// by a pluggable, policy-specific Metrics type, with an observer
// surface for state-change notification. Counts/StateChangeEvent/
// StateChangeListener are grounded on the teacher's
// pkg/mcircuitbreaker listener fixture; the generic Policy[M] shape
// is the Go rendering of the spec's `ICircuitBreakerPolicy<Metrics>`
// trait.
package circuitbreaker

import "time"

// State is one of the four circuit-breaker states named in spec §4.3.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
	// StateIsolated is a manually-forced-open state that ignores
	// policy decisions until an explicit Reset call clears it.
	StateIsolated State = "isolated"
	// StateUnknown is never assigned to a breaker; it is only
	// returned when converting from a foreign representation that
	// carries a value this package does not recognize.
	StateUnknown State = "unknown"
)

// Counts is the policy-agnostic summary reported to StateChangeEvent
// listeners, field-for-field the shape the teacher's
// pkg/mcircuitbreaker adapter reports.
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// Metrics is the constraint every policy's metrics type satisfies: it
// must be able to project itself into the common Counts shape so
// every policy can feed the same listener surface regardless of its
// internal accounting.
type Metrics interface {
	ToCounts() Counts
}

// StateChangeEvent describes one transition of a named breaker,
// carrying the counts observed at the moment of transition.
type StateChangeEvent struct {
	ServiceName string
	FromState   State
	ToState     State
	Counts      Counts
}

// StateChangeListener is notified of every breaker transition.
type StateChangeListener interface {
	OnCircuitBreakerStateChange(event StateChangeEvent)
}

// StateChangeListenerFunc adapts a plain function to StateChangeListener.
type StateChangeListenerFunc func(event StateChangeEvent)

func (f StateChangeListenerFunc) OnCircuitBreakerStateChange(event StateChangeEvent) { f(event) }

// Decision is what a policy returns from WhenClosed/WhenHalfOpened:
// whether (and how) the breaker should transition.
type Decision int

const (
	DecisionNone Decision = iota
	DecisionToOpen
	DecisionToClosed
)

// snapshot is the persisted/in-memory representation of a breaker's
// current state, parameterized by the policy's Metrics type M
// (spec §3 CircuitBreakerState).
type snapshot[M Metrics] struct {
	Status    State
	Metrics   M
	Attempt   int
	StartedAt time.Time
}
