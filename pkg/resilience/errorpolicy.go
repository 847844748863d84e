package resilience

import "errors"

// ErrorPolicy decides whether an error observed from a wrapped call
// should be treated as retryable/hedgeable/fallback-worthy. Spec §4.4
// allows an error policy to be an error class, a predicate, or a
// false-as-error flag; Go expresses all three as one predicate func.
type ErrorPolicy func(err error) bool

// AnyError retries/hedges/falls-back on every non-nil error. This is
// the default error policy for retry per spec §4.4.
func AnyError(err error) bool { return err != nil }

// MatchErrorType returns an ErrorPolicy that matches only errors
// satisfying errors.As against target's type (the Go idiom for the
// "error class (instanceof)" policy spec §4.4 describes).
func MatchErrorType[E error](_ E) ErrorPolicy {
	return func(err error) bool {
		var target E
		return errors.As(err, &target)
	}
}

// Not inverts policy.
func Not(policy ErrorPolicy) ErrorPolicy {
	return func(err error) bool { return !policy(err) }
}

// Any reports true if any of the given policies match err.
func Any(policies ...ErrorPolicy) ErrorPolicy {
	return func(err error) bool {
		for _, p := range policies {
			if p(err) {
				return true
			}
		}

		return false
	}
}
