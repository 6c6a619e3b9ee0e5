package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/sovanra-ruos/chat-service/internal/domain"
)

func TestBindLookupUnbind(t *testing.T) {
	r := NewMemoryRegistry()

	if _, ok := r.Lookup("s1"); ok {
		t.Fatal("expected no binding for fresh session")
	}

	r.Bind("s1", domain.Identity{UserID: "alice", Username: "alice"})

	id, ok := r.Lookup("s1")
	if !ok {
		t.Fatal("expected binding after Bind")
	}
	if id.UserID != "alice" {
		t.Fatalf("expected alice, got %s", id.UserID)
	}

	r.Unbind("s1")
	if _, ok := r.Lookup("s1"); ok {
		t.Fatal("expected no binding after Unbind")
	}
}

func TestRebindOverwrites(t *testing.T) {
	r := NewMemoryRegistry()

	r.Bind("s1", domain.Identity{UserID: "alice"})
	r.Bind("s1", domain.Identity{UserID: "alice", Username: "alice-refreshed"})

	id, ok := r.Lookup("s1")
	if !ok {
		t.Fatal("expected binding")
	}
	if id.Username != "alice-refreshed" {
		t.Fatalf("rebind did not overwrite, got %q", id.Username)
	}
}

func TestUnbindWithoutBindingIsNoop(t *testing.T) {
	r := NewMemoryRegistry()
	r.Unbind("never-bound") // must not panic
}

func TestOneIdentityManySessions(t *testing.T) {
	r := NewMemoryRegistry()

	r.Bind("phone", domain.Identity{UserID: "alice"})
	r.Bind("laptop", domain.Identity{UserID: "alice"})

	for _, sid := range []string{"phone", "laptop"} {
		id, ok := r.Lookup(sid)
		if !ok || id.UserID != "alice" {
			t.Fatalf("session %s: expected alice binding", sid)
		}
	}

	r.Unbind("phone")
	if _, ok := r.Lookup("laptop"); !ok {
		t.Fatal("unbinding one session must not affect the other")
	}
}

func TestConcurrentAccess(t *testing.T) {
	r := NewMemoryRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			sid := fmt.Sprintf("s%d", n)
			uid := fmt.Sprintf("u%d", n)
			for j := 0; j < 100; j++ {
				r.Bind(sid, domain.Identity{UserID: uid})
				if id, ok := r.Lookup(sid); !ok || id.UserID != uid {
					t.Errorf("session %s: lost binding", sid)
					return
				}
				r.Unbind(sid)
			}
		}(i)
	}
	wg.Wait()
}
