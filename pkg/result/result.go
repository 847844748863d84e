// Package result implements the Success/Failure variant spec §4.2's
// `run`/`runBlocking` operations return: contention failures (e.g. a
// lock that could not be acquired) are reported as data rather than
// as a Go error, while unexpected backend errors still propagate
// through the normal (T, error) return path.
package result

// Result is either Ok(value) or Failed(err). Unlike a plain (T, error)
// pair, a Result's zero value is not a meaningful "no failure" state —
// always construct one via Ok or Failed.
type Result[T any] struct {
	value T
	err   error
	ok    bool
}

// Ok builds a successful Result.
func Ok[T any](value T) Result[T] { return Result[T]{value: value, ok: true} }

// Failed builds a failed Result wrapping err. Passing a nil err still
// produces a failed Result; callers must supply a concrete cause.
func Failed[T any](err error) Result[T] { return Result[T]{err: err} }

// IsOk reports whether the Result succeeded.
func (r Result[T]) IsOk() bool { return r.ok }

// Value returns the success value and true, or the zero value and
// false if the Result failed.
func (r Result[T]) Value() (T, bool) { return r.value, r.ok }

// Err returns the failure cause, or nil if the Result succeeded.
func (r Result[T]) Err() error { return r.err }

// Unwrap panics with the failure cause if the Result failed,
// otherwise returns the success value. Intended for call sites that
// have already checked IsOk or that want fail-fast semantics.
func (r Result[T]) Unwrap() T {
	if !r.ok {
		panic(r.err)
	}
	return r.value
}
