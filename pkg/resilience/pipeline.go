// Package resilience implements the composable async middleware
// pipeline of spec §4.4: retry, timeout, hedging, fallback, and
// observe, wrapped outer-to-inner around a user function.
package resilience

import "context"

// Func is a user function (or the tail of a middleware chain) that
// produces a T or fails, cooperating with ctx cancellation.
type Func[T any] func(ctx context.Context) (T, error)

// Middleware wraps next, the rest of the chain, the way spec §4.4
// describes: "(args, next, {context, signal, abort}) => Promise<T>".
// Go's context.Context already carries the cancellation signal every
// middleware needs, so it is threaded explicitly rather than via a
// side-channel signalBinder.
type Middleware[T any] func(ctx context.Context, next Func[T]) (T, error)

// Chain composes middlewares outer-to-inner around fn: Chain(A, B, C)
// runs A(ctx, () => B(ctx, () => C(ctx, fn))), matching spec §4.4's
// composition order.
func Chain[T any](fn Func[T], middlewares ...Middleware[T]) Func[T] {
	wrapped := fn
	for i := len(middlewares) - 1; i >= 0; i-- {
		mw := middlewares[i]
		next := wrapped
		wrapped = func(ctx context.Context) (T, error) {
			return mw(ctx, next)
		}
	}

	return wrapped
}

// Run executes fn wrapped by middlewares, in one call.
func Run[T any](ctx context.Context, fn Func[T], middlewares ...Middleware[T]) (T, error) {
	return Chain(fn, middlewares...)(ctx)
}
