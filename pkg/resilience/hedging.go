package resilience

import (
	"context"
	"time"

	"github.com/lerian-oss/coord/pkg/cerrors"
)

// HedgingConfig configures the hedging middleware (spec §4.4). Delay
// is the gap between launching each successive hedge; MaxHedges
// bounds how many extra attempts beyond the primary are launched.
type HedgingConfig struct {
	MaxHedges int
	Delay     time.Duration
	// ErrorPolicy decides whether a candidate's failure counts toward
	// HedgingAsyncError, or should simply propagate. Defaults to
	// AnyError.
	ErrorPolicy ErrorPolicy
}

// HedgingSequential launches next again, up to MaxHedges extras, each
// time Delay elapses without a result and straight after every failure
// ErrorPolicy matches. Earlier candidates keep running; the first
// success wins and the rest are left to complete in the background,
// their results discarded. A failure ErrorPolicy rejects is returned
// as-is; once every candidate has failed, their errors are returned
// together in cerrors.HedgingAsyncError.
func HedgingSequential[T any](cfg HedgingConfig) Middleware[T] {
	if cfg.ErrorPolicy == nil {
		cfg.ErrorPolicy = AnyError
	}

	return func(ctx context.Context, next Func[T]) (T, error) {
		var zero T

		type outcome struct {
			val T
			err error
		}

		results := make(chan outcome, cfg.MaxHedges+1)
		errs := make([]error, 0, cfg.MaxHedges+1)

		launch := func() {
			go func() {
				val, err := next(ctx)
				results <- outcome{val, err}
			}()
		}

		launch()

		remaining := cfg.MaxHedges
		ticker := time.NewTicker(cfg.Delay)
		defer ticker.Stop()

		pending := 1

		for pending > 0 {
			select {
			case o := <-results:
				pending--
				if o.err == nil {
					return o.val, nil
				}
				errs = append(errs, o.err)
				if !cfg.ErrorPolicy(o.err) {
					return zero, o.err
				}
				if remaining > 0 {
					remaining--
					pending++
					launch()
				}
			case <-ticker.C:
				if remaining > 0 {
					remaining--
					pending++
					launch()
				}
			case <-ctx.Done():
				return zero, cerrors.NewAbortAsyncError(ctx.Err())
			}
		}

		return zero, cerrors.NewHedgingAsyncError(errs)
	}
}

// HedgingConcurrent launches the primary plus all MaxHedges extras at
// once. The first candidate to resolve successfully wins; the rest
// are signalled via a cancelled context derived from ctx and their
// eventual outcomes are discarded (losing candidates that do complete
// report cerrors.ResolvedError internally, never surfaced to the
// caller). If every candidate fails, the accumulated errors are
// wrapped in cerrors.HedgingAsyncError.
func HedgingConcurrent[T any](cfg HedgingConfig) Middleware[T] {
	if cfg.ErrorPolicy == nil {
		cfg.ErrorPolicy = AnyError
	}

	return func(ctx context.Context, next Func[T]) (T, error) {
		var zero T

		racers := cfg.MaxHedges + 1

		raceCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		type outcome struct {
			val T
			err error
		}

		results := make(chan outcome, racers)

		for i := 0; i < racers; i++ {
			go func() {
				val, err := next(raceCtx)
				results <- outcome{val, err}
			}()
		}

		errs := make([]error, 0, racers)

		for i := 0; i < racers; i++ {
			select {
			case o := <-results:
				if o.err == nil {
					cancel()
					return o.val, nil
				}

				if cerrors.IsResolvedError(o.err) {
					continue
				}

				errs = append(errs, o.err)

				if !cfg.ErrorPolicy(o.err) {
					cancel()
					return zero, o.err
				}
			case <-ctx.Done():
				return zero, cerrors.NewAbortAsyncError(ctx.Err())
			}
		}

		return zero, cerrors.NewHedgingAsyncError(errs)
	}
}
