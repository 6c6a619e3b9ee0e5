package session

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/sovanra-ruos/chat-service/internal/domain"
)

const shardCount = 32

// MemoryRegistry is a sharded in-process registry. The shard map keeps
// unrelated sessions from serializing against each other on the hot ingress
// path; within a shard reads take an RLock only.
type MemoryRegistry struct {
	shards [shardCount]registryShard
}

type registryShard struct {
	mu       sync.RWMutex
	bindings map[string]Binding
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	r := &MemoryRegistry{}
	for i := range r.shards {
		r.shards[i].bindings = make(map[string]Binding)
	}
	return r
}

func (r *MemoryRegistry) shard(sessionID string) *registryShard {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return &r.shards[h.Sum32()%shardCount]
}

// Bind associates an identity with a session, overwriting any prior binding.
func (r *MemoryRegistry) Bind(sessionID string, identity domain.Identity) {
	s := r.shard(sessionID)
	s.mu.Lock()
	s.bindings[sessionID] = Binding{
		SessionID: sessionID,
		Identity:  identity,
		BoundAt:   time.Now(),
	}
	s.mu.Unlock()
}

// Lookup returns the bound identity, or false when the session is unbound.
func (r *MemoryRegistry) Lookup(sessionID string) (domain.Identity, bool) {
	s := r.shard(sessionID)
	s.mu.RLock()
	b, ok := s.bindings[sessionID]
	s.mu.RUnlock()
	if !ok {
		return domain.Identity{}, false
	}
	return b.Identity, true
}

// Unbind removes the binding for a session. No-op when none exists.
func (r *MemoryRegistry) Unbind(sessionID string) {
	s := r.shard(sessionID)
	s.mu.Lock()
	delete(s.bindings, sessionID)
	s.mu.Unlock()
}

var _ Registry = (*MemoryRegistry)(nil)
