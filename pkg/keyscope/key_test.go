package keyscope

import "testing"

func TestKey_Namespaced(t *testing.T) {
	ns := NewNamespace("midaz-coord", "")
	k := ns.Key("user-123")

	if got, want := k.Namespaced(), "midaz-coord/user-123"; got != want {
		t.Fatalf("Namespaced() = %q, want %q", got, want)
	}

	if got, want := k.Resolved(), "user-123"; got != want {
		t.Fatalf("Resolved() = %q, want %q", got, want)
	}
}

func TestKey_WithGroup(t *testing.T) {
	ns := NewNamespace("ns", ":")
	base := ns.Key("k1")
	grouped := base.WithGroup("g1")

	if got, want := grouped.Namespaced(), "ns:g1:k1"; got != want {
		t.Fatalf("Namespaced() = %q, want %q", got, want)
	}

	if got, want := grouped.Resolved(), "g1:k1"; got != want {
		t.Fatalf("Resolved() = %q, want %q", got, want)
	}

	// Deriving a grouped key must not mutate the original.
	if got, want := base.Namespaced(), "ns:k1"; got != want {
		t.Fatalf("base Namespaced() mutated: got %q, want %q", got, want)
	}
}

func TestNamespace_TrimsTrailingSeparator(t *testing.T) {
	ns := NewNamespace("ns/", "/")
	if got, want := ns.Key("a").Namespaced(), "ns/a"; got != want {
		t.Fatalf("Namespaced() = %q, want %q", got, want)
	}
}

func TestNamespace_DefaultSeparator(t *testing.T) {
	ns := NewNamespace("ns", "")
	if ns.Separator() != DefaultSeparator {
		t.Fatalf("expected default separator, got %q", ns.Separator())
	}
}
