package ingress

import (
	"context"

	"github.com/sovanra-ruos/chat-service/internal/audit"
	"github.com/sovanra-ruos/chat-service/internal/cache"
	"github.com/sovanra-ruos/chat-service/internal/domain"
	"github.com/sovanra-ruos/chat-service/internal/session"
	"github.com/sovanra-ruos/chat-service/pkg/log"
)

// Validator admits inbound frames into the pipeline. Connect-time
// authentication is not enough on its own: one connection carries many
// logical messages with attacker-controllable payload fields, so every frame's
// claimed sender is checked against the session's bound identity.
type Validator struct {
	registry session.Registry
	store    cache.Store
}

// NewValidator creates an ingress validator.
func NewValidator(registry session.Registry, store cache.Store) *Validator {
	return &Validator{
		registry: registry,
		store:    store,
	}
}

// Admit returns the session's bound identity when the claimed sender matches
// it. Rejections are logged and returned as errors the caller must treat as
// terminal: nothing is sent back to the offending client.
//
// On acceptance the user's session marker is refreshed in the cache,
// best-effort.
func (v *Validator) Admit(ctx context.Context, sessionID, claimedSenderID string) (domain.Identity, error) {
	l := log.Ctx(ctx)

	identity, ok := v.registry.Lookup(sessionID)
	if !ok {
		l.Warn().
			Str(log.FieldSessionID, sessionID).
			Msg("frame from session with no bound identity rejected")
		return domain.Identity{}, domain.ErrAuthRejected
	}

	if claimedSenderID != identity.UserID {
		audit.LogWithDetail(ctx, audit.ActionSpoofRejected, identity.UserID, claimedSenderID,
			"claimed sender does not match bound identity")
		return domain.Identity{}, domain.ErrIdentitySpoofRejected
	}

	if err := v.store.StoreSessionMarker(ctx, identity.UserID, sessionID); err != nil {
		l.Warn().Err(err).
			Str(log.FieldUserID, identity.UserID).
			Msg("failed to store session marker")
	}

	return identity, nil
}
