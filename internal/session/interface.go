package session

import (
	"time"

	"github.com/sovanra-ruos/chat-service/internal/domain"
)

// Binding is the live association between a transport session and a verified
// identity. It exists only in process memory for the connection's lifetime.
type Binding struct {
	SessionID string
	Identity  domain.Identity
	BoundAt   time.Time
}

// Registry binds transport session identifiers to verified identities.
//
// Bind is idempotent per session: a later call overwrites the prior binding,
// which is how token refresh works without a reconnect. Lookup reports
// absence as a first-class result, not an error; callers reject the action.
// Unbind is safe to call when no binding exists.
type Registry interface {
	Bind(sessionID string, identity domain.Identity)
	Lookup(sessionID string) (domain.Identity, bool)
	Unbind(sessionID string)
}
