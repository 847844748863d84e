package resilience

import (
	"context"
	"time"

	"github.com/lerian-oss/coord/pkg/timespan"
)

// ObserveConfig wires lifecycle hooks around a call without altering
// its outcome (spec §4.4's "observe" middleware). Every hook is
// optional.
type ObserveConfig[T any] struct {
	OnStart   func(ctx context.Context)
	OnSuccess func(ctx context.Context, result T, elapsed timespan.TimeSpan)
	OnError   func(ctx context.Context, err error, elapsed timespan.TimeSpan)
	OnFinally func(ctx context.Context, elapsed timespan.TimeSpan)
}

// Observe builds a middleware that reports start, success-or-error,
// and finally hooks around next, timed with a monotonic clock so
// elapsed is unaffected by wall-clock adjustments.
func Observe[T any](cfg ObserveConfig[T]) Middleware[T] {
	return func(ctx context.Context, next Func[T]) (T, error) {
		if cfg.OnStart != nil {
			cfg.OnStart(ctx)
		}

		start := time.Now()

		result, err := next(ctx)

		elapsed := timespan.FromDuration(time.Since(start))

		if err != nil {
			if cfg.OnError != nil {
				cfg.OnError(ctx, err, elapsed)
			}
		} else if cfg.OnSuccess != nil {
			cfg.OnSuccess(ctx, result, elapsed)
		}

		if cfg.OnFinally != nil {
			cfg.OnFinally(ctx, elapsed)
		}

		return result, err
	}
}
