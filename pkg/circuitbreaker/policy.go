package circuitbreaker

import "time"

// Policy is the Go rendering of spec §4.3's `ICircuitBreakerPolicy<Metrics>`
// trait: InitialMetrics/TrackSuccess/TrackFailure/WhenClosed/
// WhenHalfOpened/IsEqual, plus a BackoffPolicy governing how long the
// breaker stays Open before each successive probe attempt.
type Policy[M Metrics] interface {
	InitialMetrics() M
	TrackSuccess(m M) M
	TrackFailure(m M) M
	// WhenClosed is consulted after every tracked outcome while
	// Closed; DecisionToOpen trips the breaker.
	WhenClosed(m M, now time.Time) Decision
	// WhenHalfOpened is consulted after every call that completes
	// while HalfOpen; DecisionToClosed resets metrics and closes,
	// DecisionToOpen reopens with an incremented attempt.
	WhenHalfOpened(m M, now time.Time) Decision
	// BackoffPolicy computes how long the breaker stays Open before
	// allowing a probe, as a function of the 1-indexed attempt.
	BackoffPolicy(attempt int) time.Duration
	// IsEqual reports whether a and b should be treated as the same
	// state for persistence purposes, avoiding redundant writes.
	IsEqual(a, b M) bool
}

// ConsecutiveMetrics is ConsecutiveBreaker's Metrics: a simple
// consecutive failure/success tally (spec §4.3 policy 1).
type ConsecutiveMetrics struct {
	FailureCount uint32
	SuccessCount uint32
}

func (m ConsecutiveMetrics) ToCounts() Counts {
	return Counts{
		TotalFailures:        m.FailureCount,
		TotalSuccesses:       m.SuccessCount,
		ConsecutiveFailures:  m.FailureCount,
		ConsecutiveSuccesses: m.SuccessCount,
		Requests:             m.FailureCount + m.SuccessCount,
	}
}

// ConsecutiveBreaker trips after FailureThreshold consecutive
// failures while Closed, and closes again after SuccessThreshold
// consecutive successes while HalfOpen with zero interleaved
// failures, per spec §4.3 policy 1.
type ConsecutiveBreaker struct {
	FailureThreshold uint32
	SuccessThreshold uint32
	Open             time.Duration
}

func (p ConsecutiveBreaker) InitialMetrics() ConsecutiveMetrics { return ConsecutiveMetrics{} }

func (p ConsecutiveBreaker) TrackSuccess(m ConsecutiveMetrics) ConsecutiveMetrics {
	m.SuccessCount++
	m.FailureCount = 0
	return m
}

func (p ConsecutiveBreaker) TrackFailure(m ConsecutiveMetrics) ConsecutiveMetrics {
	m.FailureCount++
	return m
}

func (p ConsecutiveBreaker) WhenClosed(m ConsecutiveMetrics, now time.Time) Decision {
	if m.FailureCount >= p.FailureThreshold {
		return DecisionToOpen
	}
	return DecisionNone
}

func (p ConsecutiveBreaker) WhenHalfOpened(m ConsecutiveMetrics, now time.Time) Decision {
	if m.FailureCount > 0 {
		return DecisionToOpen
	}
	if m.SuccessCount >= p.SuccessThreshold {
		return DecisionToClosed
	}
	return DecisionNone
}

func (p ConsecutiveBreaker) BackoffPolicy(attempt int) time.Duration { return p.Open }

func (p ConsecutiveBreaker) IsEqual(a, b ConsecutiveMetrics) bool { return a == b }

// WindowMetrics is the Metrics type shared by CountBreaker and
// SamplingBreaker: failure and total tallies for the policy's current
// window (spec §4.3 policies 2 and 3).
type WindowMetrics struct {
	Window   time.Duration
	Failures uint32
	Total    uint32
	// windowStart anchors the rolling window; once now - windowStart
	// exceeds Window, the next tracked outcome resets the tally.
	windowStart time.Time
}

func (m WindowMetrics) ToCounts() Counts {
	successes := m.Total - m.Failures
	return Counts{
		Requests:             m.Total,
		TotalFailures:        m.Failures,
		TotalSuccesses:       successes,
		ConsecutiveFailures:  m.Failures,
		ConsecutiveSuccesses: successes,
	}
}

func (m WindowMetrics) rolled(now time.Time) WindowMetrics {
	if m.windowStart.IsZero() || now.Sub(m.windowStart) > m.Window {
		return WindowMetrics{Window: m.Window, windowStart: now}
	}
	return m
}

// CountBreaker opens once at least MinimumThroughput requests have
// landed within SamplingDuration and the failure ratio reaches
// Threshold, per spec §4.3 policy 2.
type CountBreaker struct {
	MinimumThroughput uint32
	Threshold         float64
	SamplingDuration  time.Duration
	Open              time.Duration
}

func (p CountBreaker) InitialMetrics() WindowMetrics {
	return WindowMetrics{Window: p.SamplingDuration}
}

func (p CountBreaker) TrackSuccess(m WindowMetrics) WindowMetrics {
	m = m.rolled(time.Now())
	m.Total++
	return m
}

func (p CountBreaker) TrackFailure(m WindowMetrics) WindowMetrics {
	m = m.rolled(time.Now())
	m.Total++
	m.Failures++
	return m
}

func (p CountBreaker) WhenClosed(m WindowMetrics, now time.Time) Decision {
	if m.Total >= p.MinimumThroughput && float64(m.Failures)/float64(m.Total) >= p.Threshold {
		return DecisionToOpen
	}
	return DecisionNone
}

func (p CountBreaker) WhenHalfOpened(m WindowMetrics, now time.Time) Decision {
	if m.Failures > 0 {
		return DecisionToOpen
	}
	if m.Total >= 1 {
		return DecisionToClosed
	}
	return DecisionNone
}

func (p CountBreaker) BackoffPolicy(attempt int) time.Duration { return p.Open }

func (p CountBreaker) IsEqual(a, b WindowMetrics) bool {
	return a.Failures == b.Failures && a.Total == b.Total
}

// SamplingBreaker trips on the failure ratio within a window of
// SamplingDuration that restarts with the first outcome tracked after
// it has elapsed, per spec §4.3 policy 3. Outcomes are not split into
// time buckets: it keeps the same WindowMetrics tallies as
// CountBreaker and counts them the same way.
type SamplingBreaker struct {
	MinimumThroughput uint32
	Threshold         float64
	SamplingDuration  time.Duration
	Open              time.Duration
}

func (p SamplingBreaker) InitialMetrics() WindowMetrics {
	return WindowMetrics{Window: p.SamplingDuration}
}

func (p SamplingBreaker) TrackSuccess(m WindowMetrics) WindowMetrics {
	m = m.rolled(time.Now())
	m.Total++
	return m
}

func (p SamplingBreaker) TrackFailure(m WindowMetrics) WindowMetrics {
	m = m.rolled(time.Now())
	m.Total++
	m.Failures++
	return m
}

func (p SamplingBreaker) WhenClosed(m WindowMetrics, now time.Time) Decision {
	if m.Total >= p.MinimumThroughput && float64(m.Failures)/float64(m.Total) >= p.Threshold {
		return DecisionToOpen
	}
	return DecisionNone
}

func (p SamplingBreaker) WhenHalfOpened(m WindowMetrics, now time.Time) Decision {
	if m.Failures > 0 {
		return DecisionToOpen
	}
	if m.Total >= 1 {
		return DecisionToClosed
	}
	return DecisionNone
}

func (p SamplingBreaker) BackoffPolicy(attempt int) time.Duration { return p.Open }

func (p SamplingBreaker) IsEqual(a, b WindowMetrics) bool {
	return a.Failures == b.Failures && a.Total == b.Total
}
