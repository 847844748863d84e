package resilience

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/lerian-oss/coord/pkg/cerrors"
	"github.com/lerian-oss/coord/pkg/timespan"
)

// Default retry tunables, named and valued after the teacher's own
// mretry.Config defaults (DefaultMaxRetries, DefaultInitialBackoff,
// DefaultMaxBackoff, DefaultJitterFactor).
const (
	DefaultMaxRetries     = 10
	DefaultInitialBackoff = 1 * time.Second
	DefaultMaxBackoff     = 30 * time.Minute
	DefaultJitterFactor   = 0.25
)

// RetryConfig mirrors the teacher's chainable mretry.Config: a small
// struct with With* setters returning a modified copy, and a Validate
// that reports a ConfigValidationError-shaped message.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	JitterFactor   float64
	// BackoffPolicy overrides the default exponential-backoff-with-
	// jitter schedule. Receives the 1-indexed attempt number and the
	// error that triggered the retry, per spec §4.4.
	BackoffPolicy func(attempt int, err error) timespan.TimeSpan
	// ErrorPolicy decides whether an error is retryable. Defaults to
	// AnyError, per spec §4.4.
	ErrorPolicy ErrorPolicy
	// OnExecutionAttempt is called before each attempt (1-indexed).
	OnExecutionAttempt func(attempt int)
	// OnRetryDelay is called with the delay chosen before each sleep.
	OnRetryDelay func(attempt int, delay timespan.TimeSpan)
}

// DefaultRetryConfig returns production defaults matching the
// teacher's DefaultMetadataOutboxConfig.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    DefaultMaxRetries,
		InitialBackoff: DefaultInitialBackoff,
		MaxBackoff:     DefaultMaxBackoff,
		JitterFactor:   DefaultJitterFactor,
		ErrorPolicy:    AnyError,
	}
}

// WithMaxAttempts returns a copy of cfg with MaxAttempts set.
func (c RetryConfig) WithMaxAttempts(n int) RetryConfig { c.MaxAttempts = n; return c }

// WithInitialBackoff returns a copy of cfg with InitialBackoff set.
func (c RetryConfig) WithInitialBackoff(d time.Duration) RetryConfig { c.InitialBackoff = d; return c }

// WithMaxBackoff returns a copy of cfg with MaxBackoff set.
func (c RetryConfig) WithMaxBackoff(d time.Duration) RetryConfig { c.MaxBackoff = d; return c }

// WithJitterFactor returns a copy of cfg with JitterFactor set.
func (c RetryConfig) WithJitterFactor(f float64) RetryConfig { c.JitterFactor = f; return c }

// WithErrorPolicy returns a copy of cfg with ErrorPolicy set.
func (c RetryConfig) WithErrorPolicy(p ErrorPolicy) RetryConfig { c.ErrorPolicy = p; return c }

// Validate reports a ConfigValidationError-style message (mirroring
// the teacher's "mretry: invalid Field: message" format) if cfg is
// not usable.
func (c RetryConfig) Validate() error {
	if c.MaxAttempts < 1 {
		return ConfigValidationError{Field: "MaxAttempts", Message: "must be >= 1"}
	}

	if c.InitialBackoff <= 0 {
		return ConfigValidationError{Field: "InitialBackoff", Message: "must be > 0"}
	}

	if c.MaxBackoff <= 0 {
		return ConfigValidationError{Field: "MaxBackoff", Message: "must be > 0"}
	}

	if c.MaxBackoff < c.InitialBackoff {
		return ConfigValidationError{Field: "MaxBackoff", Message: "must be >= InitialBackoff"}
	}

	if c.JitterFactor < 0 || c.JitterFactor > 1 {
		return ConfigValidationError{Field: "JitterFactor", Message: "must be in range [0.0, 1.0]"}
	}

	return nil
}

func (c RetryConfig) backoff(attempt int, err error) timespan.TimeSpan {
	if c.BackoffPolicy != nil {
		return c.BackoffPolicy(attempt, err)
	}

	base := float64(c.InitialBackoff) * pow2(attempt-1)
	if max := float64(c.MaxBackoff); base > max {
		base = max
	}

	jitter := base * c.JitterFactor * rand.Float64()

	return timespan.FromDuration(time.Duration(base + jitter))
}

func pow2(n int) float64 {
	if n <= 0 {
		return 1
	}

	v := 1.0
	for i := 0; i < n; i++ {
		v *= 2
	}

	return v
}

// Retry builds the retry middleware (spec §4.4). On every failure
// matching cfg.ErrorPolicy it sleeps cfg.backoff(attempt, err)
// (cancellable via ctx) and retries, up to cfg.MaxAttempts total
// attempts. After exhaustion it wraps the last error in
// cerrors.RetryAsyncError.
func Retry[T any](cfg RetryConfig) Middleware[T] {
	if cfg.ErrorPolicy == nil {
		cfg.ErrorPolicy = AnyError
	}

	return func(ctx context.Context, next Func[T]) (T, error) {
		var (
			zero    T
			lastErr error
		)

		for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
			if cfg.OnExecutionAttempt != nil {
				cfg.OnExecutionAttempt(attempt)
			}

			result, err := next(ctx)
			if err == nil {
				return result, nil
			}

			lastErr = err

			if !cfg.ErrorPolicy(err) {
				return zero, err
			}

			if attempt == cfg.MaxAttempts {
				break
			}

			delay := cfg.backoff(attempt, err)
			if cfg.OnRetryDelay != nil {
				cfg.OnRetryDelay(attempt, delay)
			}

			select {
			case <-ctx.Done():
				return zero, cerrors.NewAbortAsyncError(ctx.Err())
			case <-time.After(delay.ToDuration()):
			}
		}

		return zero, cerrors.NewRetryAsyncError(cfg.MaxAttempts, lastErr)
	}
}

// ConfigValidationError is returned by RetryConfig.Validate(), in the
// teacher's "mretry: invalid Field: message" phrasing.
type ConfigValidationError struct {
	Field   string
	Message string
}

func (e ConfigValidationError) Error() string {
	return fmt.Sprintf("mretry: invalid %s: %s", e.Field, e.Message)
}
