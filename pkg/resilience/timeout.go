package resilience

import (
	"context"
	"time"

	"github.com/lerian-oss/coord/pkg/cerrors"
)

// Timeout builds a middleware that races next against d. If d elapses
// first the call fails with cerrors.TimeoutAsyncError; if the parent
// ctx is cancelled first it fails with cerrors.AbortAsyncError,
// distinguishing "we gave up" from "the caller gave up" per spec §4.4.
func Timeout[T any](d time.Duration) Middleware[T] {
	return func(ctx context.Context, next Func[T]) (T, error) {
		var zero T

		timeoutCtx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		type outcome struct {
			val T
			err error
		}

		done := make(chan outcome, 1)

		go func() {
			val, err := next(timeoutCtx)
			done <- outcome{val, err}
		}()

		select {
		case o := <-done:
			return o.val, o.err
		case <-timeoutCtx.Done():
			if ctx.Err() != nil {
				return zero, cerrors.NewAbortAsyncError(ctx.Err())
			}
			return zero, cerrors.NewTimeoutAsyncError(d.Milliseconds())
		}
	}
}
