// Package timespan implements the duration value used throughout the
// coordination primitives: TTLs, backoff delays, and blocking windows.
package timespan

import "time"

// TimeSpan is an immutable, millisecond-resolution duration. Negative
// spans are permitted (used to construct already-expired instants in
// tests), matching spec §3's TimeSpan invariant.
type TimeSpan struct {
	ms int64
}

// FromMilliseconds builds a TimeSpan of the given millisecond count.
func FromMilliseconds(ms int64) TimeSpan { return TimeSpan{ms: ms} }

// FromSeconds builds a TimeSpan of the given second count.
func FromSeconds(s float64) TimeSpan { return TimeSpan{ms: int64(s * 1000)} }

// FromMinutes builds a TimeSpan of the given minute count.
func FromMinutes(m float64) TimeSpan { return TimeSpan{ms: int64(m * 60_000)} }

// FromHours builds a TimeSpan of the given hour count.
func FromHours(h float64) TimeSpan { return TimeSpan{ms: int64(h * 3_600_000)} }

// FromDuration converts a stdlib time.Duration into a TimeSpan.
func FromDuration(d time.Duration) TimeSpan { return TimeSpan{ms: d.Milliseconds()} }

// Zero is the zero-length TimeSpan.
var Zero = TimeSpan{}

// Milliseconds returns the span's length in milliseconds.
func (t TimeSpan) Milliseconds() int64 { return t.ms }

// ToDuration converts the span to a stdlib time.Duration.
func (t TimeSpan) ToDuration() time.Duration {
	return time.Duration(t.ms) * time.Millisecond
}

// Add returns t + other.
func (t TimeSpan) Add(other TimeSpan) TimeSpan { return TimeSpan{ms: t.ms + other.ms} }

// Subtract returns t - other.
func (t TimeSpan) Subtract(other TimeSpan) TimeSpan { return TimeSpan{ms: t.ms - other.ms} }

// Multiply returns t scaled by factor.
func (t TimeSpan) Multiply(factor float64) TimeSpan {
	return TimeSpan{ms: int64(float64(t.ms) * factor)}
}

// Divide returns t scaled by 1/divisor.
func (t TimeSpan) Divide(divisor float64) TimeSpan {
	return TimeSpan{ms: int64(float64(t.ms) / divisor)}
}

// IsNegative reports whether the span represents a negative duration.
func (t TimeSpan) IsNegative() bool { return t.ms < 0 }

// IsZero reports whether the span is exactly zero-length.
func (t TimeSpan) IsZero() bool { return t.ms == 0 }

// ToEndDate projects the span forward from now (or time.Now() if now
// is the zero value), producing the instant the span ends at.
func (t TimeSpan) ToEndDate(now time.Time) time.Time {
	if now.IsZero() {
		now = time.Now()
	}

	return now.Add(t.ToDuration())
}

// ToStartDate projects the span backwards from now (or time.Now() if
// now is the zero value), producing the instant the span started at.
func (t TimeSpan) ToStartDate(now time.Time) time.Time {
	if now.IsZero() {
		now = time.Now()
	}

	return now.Add(-t.ToDuration())
}
