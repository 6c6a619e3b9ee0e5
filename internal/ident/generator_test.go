package ident

import "testing"

func TestNewKnownSchemes(t *testing.T) {
	for _, scheme := range []string{"", "uuid", "ksuid", "ulid", "nanoid"} {
		g, err := New(scheme)
		if err != nil {
			t.Fatalf("scheme %q: %v", scheme, err)
		}
		id, err := g.Generate()
		if err != nil {
			t.Fatalf("scheme %q: generate failed: %v", scheme, err)
		}
		if id == "" {
			t.Fatalf("scheme %q: empty id", scheme)
		}
	}
}

func TestNewUnknownScheme(t *testing.T) {
	if _, err := New("snowflake"); err == nil {
		t.Fatal("expected error for unknown scheme")
	}
}

func TestGeneratedIDsAreUnique(t *testing.T) {
	g := NewUUIDGenerator()
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id, err := g.Generate()
		if err != nil {
			t.Fatal(err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id generated: %s", id)
		}
		seen[id] = struct{}{}
	}
}
