// Package serde implements the handle-serialization layer spec §4.2
// describes: a lock/semaphore handle serializes as
// {key, lockId, ttlInMs}, and a registered transformer holds a closure
// over a process's {namespace, adapter, defaults, dispatcher} so
// deserialization rehydrates a handle bound to the *local* process
// rather than the one that produced the bytes.
package serde

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// HandleData is the wire shape of every lock/semaphore/shared-lock
// handle, per spec §4.2.
type HandleData struct {
	Key     string `msgpack:"key" json:"key"`
	LockID  string `msgpack:"lockId" json:"lockId"`
	TTLInMs int64  `msgpack:"ttlInMs" json:"ttlInMs"`
}

// Format selects the wire encoding. Msgpack is the default, matching
// the teacher's use of msgpack for cross-process payloads; JSON is
// offered for human-inspectable transport (debugging, logging sinks).
type Format int

const (
	Msgpack Format = iota
	JSON
)

// Marshal encodes data in the given Format.
func Marshal(format Format, data HandleData) ([]byte, error) {
	switch format {
	case JSON:
		return json.Marshal(data)
	default:
		return msgpack.Marshal(data)
	}
}

// Unmarshal decodes bytes produced by Marshal in the given Format.
func Unmarshal(format Format, raw []byte) (HandleData, error) {
	var data HandleData

	var err error
	switch format {
	case JSON:
		err = json.Unmarshal(raw, &data)
	default:
		err = msgpack.Unmarshal(raw, &data)
	}

	return data, err
}

// TransformerKey identifies a registered rehydration closure. Spec
// §4.2 requires the adapter class name in the tuple: without it, a
// process with two lock providers over different backends but the
// same namespace would deserialize into whichever transformer
// registered first.
type TransformerKey struct {
	Primitive    string
	Transformer  string
	AdapterClass string
	Namespace    string
}

// Rehydrator rebuilds a live handle of type T from wire data, closing
// over whatever local state (adapter, dispatcher, defaults) the
// provider that registered it needs.
type Rehydrator[T any] func(HandleData) (T, error)

// ErrNotRegistered reports a lookup against an unregistered tuple.
type ErrNotRegistered struct {
	Key TransformerKey
}

func (e ErrNotRegistered) Error() string {
	return fmt.Sprintf("serde: no transformer registered for primitive=%q transformer=%q adapter=%q namespace=%q",
		e.Key.Primitive, e.Key.Transformer, e.Key.AdapterClass, e.Key.Namespace)
}

// Registry holds Rehydrators keyed by TransformerKey, scoped to one
// handle type T (lock, shared-lock, or semaphore handles each keep
// their own Registry instance).
type Registry[T any] struct {
	mu      sync.RWMutex
	entries map[TransformerKey]Rehydrator[T]
}

// NewRegistry builds an empty Registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{entries: make(map[TransformerKey]Rehydrator[T])}
}

// Register installs fn under key, replacing any prior registration
// for the same tuple (re-registration happens naturally across
// process restarts, where rebinding to a fresh closure is intended).
func (r *Registry[T]) Register(key TransformerKey, fn Rehydrator[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[key] = fn
}

// Unregister removes any Rehydrator installed under key.
func (r *Registry[T]) Unregister(key TransformerKey) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, key)
}

// Rehydrate decodes raw using format, then looks up key and invokes
// its Rehydrator against the decoded HandleData.
func (r *Registry[T]) Rehydrate(format Format, raw []byte, key TransformerKey) (T, error) {
	var zero T

	data, err := Unmarshal(format, raw)
	if err != nil {
		return zero, err
	}

	r.mu.RLock()
	fn, ok := r.entries[key]
	r.mu.RUnlock()

	if !ok {
		return zero, ErrNotRegistered{Key: key}
	}

	return fn(data)
}
