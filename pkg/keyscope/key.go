// Package keyscope implements the namespaced-key algebra shared by every
// storage-scoped primitive (cache, lock, shared-lock, semaphore).
package keyscope

import "strings"

// DefaultSeparator joins a namespace prefix, an optional group, and a
// user key into a namespaced storage string.
const DefaultSeparator = "/"

// Namespace is an immutable key prefixer. It never mutates in place;
// WithGroup and derived Keys always return a new value.
type Namespace struct {
	prefix    string
	separator string
}

// NewNamespace builds a Namespace rooted at prefix. An empty separator
// falls back to DefaultSeparator.
func NewNamespace(prefix string, separator string) Namespace {
	if separator == "" {
		separator = DefaultSeparator
	}

	return Namespace{prefix: strings.TrimSuffix(prefix, separator), separator: separator}
}

// Prefix returns the namespace's prefix string.
func (n Namespace) Prefix() string { return n.prefix }

// Separator returns the namespace's join separator.
func (n Namespace) Separator() string { return n.separator }

// Key builds a Key scoped to this namespace with no group.
func (n Namespace) Key(userKey string) Key {
	return Key{namespace: n, userKey: userKey}
}

// KeyWithGroup builds a Key scoped to this namespace under group.
func (n Namespace) KeyWithGroup(group, userKey string) Key {
	return Key{namespace: n, group: group, userKey: userKey}
}

// Key is a structured, immutable storage key: a namespace prefix, an
// optional group, and the caller-supplied user key. See spec §3.
type Key struct {
	namespace Namespace
	group     string
	userKey   string
}

// Namespace returns the namespace this key is scoped to.
func (k Key) Namespace() Namespace { return k.namespace }

// Group returns the key's group, or "" if none.
func (k Key) Group() string { return k.group }

// UserKey returns the caller-supplied, unqualified key component.
func (k Key) UserKey() string { return k.userKey }

// Resolved returns the user-visible projection of the key: the group
// and user key joined by the namespace separator, omitting the prefix.
func (k Key) Resolved() string {
	if k.group == "" {
		return k.userKey
	}

	return k.group + k.namespace.separator + k.userKey
}

// Namespaced returns the fully-qualified storage string: prefix,
// optional group, and user key, all joined by the namespace separator.
func (k Key) Namespaced() string {
	parts := make([]string, 0, 3)
	if k.namespace.prefix != "" {
		parts = append(parts, k.namespace.prefix)
	}

	if k.group != "" {
		parts = append(parts, k.group)
	}

	parts = append(parts, k.userKey)

	return strings.Join(parts, k.namespace.separator)
}

// WithGroup derives a new Key sharing this key's namespace and user
// key but scoped under group. Keys are immutable; this never mutates k.
func (k Key) WithGroup(group string) Key {
	return Key{namespace: k.namespace, group: group, userKey: k.userKey}
}

// String implements fmt.Stringer as the namespaced projection, so keys
// are safe to log directly.
func (k Key) String() string { return k.Namespaced() }
