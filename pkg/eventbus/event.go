// Package eventbus implements the event-dispatch surface spec §1
// treats as an external collaborator but SPEC_FULL.md §3/§7 asks to
// be shipped: a typed, fire-and-forget publish/subscribe bus any
// provider (component E) can dispatch lifecycle events to.
package eventbus

import "context"

// Kind tags an Event the way spec §6 describes: "each primitive
// exposes a tagged event map." Every provider dispatches the shared
// Kind values declared below.
type Kind string

// Common lock/sharedlock/semaphore event kinds (spec §6).
const (
	Acquired        Kind = "ACQUIRED"
	Released        Kind = "RELEASED"
	ForceReleased   Kind = "FORCE_RELEASED"
	Refreshed       Kind = "REFRESHED"
	FailedAcquire   Kind = "FAILED_ACQUIRE"
	FailedRelease   Kind = "FAILED_RELEASE"
	FailedRefresh   Kind = "FAILED_REFRESH"
	Unavailable     Kind = "UNAVAILABLE"
	UnexpectedError Kind = "UNEXPECTED_ERROR"
)

// Event is a tagged record carried over the bus (spec §3's Event
// type): a compile-time-known Kind plus an arbitrary payload. Every
// event carries at minimum a Key, per spec §6.
type Event struct {
	Kind    Kind
	Key     string
	LockID  string
	Payload any
}

// Handler receives dispatched events. Both buses in this package run
// each handler call on its own goroutine, so a slow handler delays
// neither the publisher nor the other handlers.
type Handler func(ctx context.Context, event Event)

// EventBus is the publish/subscribe contract every provider dispatches
// through (spec §1's external collaborator, §4.5's "event dispatcher").
type EventBus interface {
	// Publish dispatches event to every handler subscribed to its
	// Kind. Publish itself never blocks on handler execution and
	// never returns a handler's error — listener errors never
	// propagate to the caller, per spec §5.
	Publish(ctx context.Context, event Event)
	// Subscribe registers handler for kind, returning an
	// unsubscribe function. Re-subscribing the same handler value is
	// not deduplicated; callers that need identity-based removal
	// should keep the returned unsubscribe closure (spec §5's
	// "Providers hold a map of event-listener functions keyed by
	// (eventName, listener-identity)").
	Subscribe(kind Kind, handler Handler) (unsubscribe func())
}
