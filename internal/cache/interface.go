package cache

import (
	"context"

	"github.com/sovanra-ruos/chat-service/internal/domain"
)

// PresenceRecord is a user's last-known presence state.
type PresenceRecord struct {
	UserID    string                `json:"user_id"`
	Username  string                `json:"username"`
	RoomID    string                `json:"room_id"`
	Status    domain.PresenceStatus `json:"status"`
	Timestamp int64                 `json:"timestamp"`
}

// Store holds the fast, bounded chat state: per-user presence records,
// per-room online sets, per-room recent-message rings, and per-user session
// markers. Sub-stores are updated independently; every write is
// last-write-wins so concurrent consumer instances stay consistent without
// cross-key transactions.
type Store interface {
	// UpdatePresence records the user's status (sliding TTL) and adjusts the
	// room's online set: add on ONLINE, remove on OFFLINE, untouched on AWAY.
	UpdatePresence(ctx context.Context, ev *domain.PresenceEvent) error

	// GetPresence returns the user's record, or nil when expired/unknown.
	GetPresence(ctx context.Context, userID string) (*PresenceRecord, error)

	// GetRoomUsers returns the set of currently-online user ids for a room.
	GetRoomUsers(ctx context.Context, roomID string) ([]string, error)

	// CacheRecentMessage inserts the event at the head of the room's ring and
	// trims to the cap. Redelivered events must not grow the ring past it.
	CacheRecentMessage(ctx context.Context, ev *domain.ChatEvent) error

	// GetRecentMessages returns the ring newest-first.
	GetRecentMessages(ctx context.Context, roomID string) ([]domain.ChatEvent, error)

	// StoreSessionMarker records the user's most recent transport session.
	StoreSessionMarker(ctx context.Context, userID, sessionID string) error

	// GetSessionMarker returns the marker, or empty when expired/unknown.
	GetSessionMarker(ctx context.Context, userID string) (string, error)

	// RemoveSessionMarker drops the marker. No-op when none exists.
	RemoveSessionMarker(ctx context.Context, userID string) error

	Close() error
}
