package domain

import "fmt"

// EventKind classifies a chat event. JOIN and LEAVE are notification-only:
// they are cached and broadcast but never persisted.
type EventKind string

const (
	KindChat  EventKind = "CHAT"
	KindJoin  EventKind = "JOIN"
	KindLeave EventKind = "LEAVE"
)

// PresenceStatus is a user's last-known presence state.
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "ONLINE"
	StatusOffline PresenceStatus = "OFFLINE"
	StatusAway    PresenceStatus = "AWAY"
)

// ChatEvent is an immutable room-scoped event. The ID is generated at publish
// time, never client-supplied, so downstream consumers can dedup on it.
type ChatEvent struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"room_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Content    string    `json:"content"`
	Kind       EventKind `json:"kind"`
	Timestamp  int64     `json:"timestamp"` // unix millis
}

// PresenceEvent is an immutable user-scoped presence change.
type PresenceEvent struct {
	UserID    string         `json:"user_id"`
	Username  string         `json:"username"`
	RoomID    string         `json:"room_id"`
	Status    PresenceStatus `json:"status"`
	Timestamp int64          `json:"timestamp"` // unix millis
}

// ChatTopic is the broadcast destination for a room's chat events.
func ChatTopic(roomID string) string {
	return fmt.Sprintf("room:%s", roomID)
}

// PresenceTopic is the broadcast destination for a room's presence changes.
func PresenceTopic(roomID string) string {
	return fmt.Sprintf("room:%s:presence", roomID)
}
