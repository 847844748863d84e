package resilience

import "context"

// FallbackConfig configures the fallback middleware (spec §4.4).
type FallbackConfig[T any] struct {
	// Value produces the substitute result when next fails and
	// ErrorPolicy matches. It receives the triggering error so the
	// fallback can vary by failure (e.g. stale-cache vs. zero-value).
	Value func(ctx context.Context, cause error) (T, error)
	// ErrorPolicy decides whether a failure should be replaced by
	// Value, or propagated as-is. Defaults to AnyError.
	ErrorPolicy ErrorPolicy
	// OnFallback is called whenever Value is invoked, before its
	// result is returned.
	OnFallback func(cause error)
}

// Fallback builds a middleware that substitutes cfg.Value's result
// whenever next fails in a way cfg.ErrorPolicy matches. A failure the
// policy rejects propagates unchanged, and a failure from Value
// itself propagates unchanged too (spec §4.4: fallback does not
// recurse).
func Fallback[T any](cfg FallbackConfig[T]) Middleware[T] {
	if cfg.ErrorPolicy == nil {
		cfg.ErrorPolicy = AnyError
	}

	return func(ctx context.Context, next Func[T]) (T, error) {
		result, err := next(ctx)
		if err == nil {
			return result, nil
		}

		if !cfg.ErrorPolicy(err) {
			return result, err
		}

		if cfg.OnFallback != nil {
			cfg.OnFallback(err)
		}

		return cfg.Value(ctx, err)
	}
}
