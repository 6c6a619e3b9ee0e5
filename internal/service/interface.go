package service

import (
	"context"

	"github.com/sovanra-ruos/chat-service/internal/domain"
)

// ChatService is the frame-level API the transport layer calls into. Every
// room-scoped operation validates the frame's claimed sender against the
// session's bound identity before producing any side effect.
type ChatService interface {
	// RegisterSession verifies a credential and binds the resulting identity
	// to the transport session.
	RegisterSession(ctx context.Context, sessionID, credential string) (*domain.Identity, error)

	// HandleChatSend publishes a chat event for the room. The event id and
	// timestamp are assigned server-side.
	HandleChatSend(ctx context.Context, sessionID string, msg *domain.ChatSendMessage) error

	// HandleJoin adds the user to the room's durable participant set and
	// publishes the ONLINE presence change plus a JOIN notification.
	HandleJoin(ctx context.Context, sessionID string, msg *domain.JoinRoomMessage) error

	// HandleLeave removes the user from the participant set and publishes the
	// OFFLINE presence change plus a LEAVE notification.
	HandleLeave(ctx context.Context, sessionID string, msg *domain.LeaveRoomMessage) error

	// HandlePresence publishes an explicit presence status change.
	HandlePresence(ctx context.Context, sessionID string, msg *domain.PresenceMessage) error

	// HandleDisconnect tears down a closed session: the binding is removed
	// first so no further frames can be admitted, then OFFLINE and LEAVE are
	// announced for every room the connection had joined. Durable room
	// membership is untouched.
	HandleDisconnect(ctx context.Context, sessionID string, roomIDs []string)

	// GetOnlineUsers returns the room's currently-online user ids. Cache
	// trouble degrades to an empty list rather than an error.
	GetOnlineUsers(ctx context.Context, roomID string) []string

	// GetRecentMessages returns the room's recent history, newest-first,
	// from the cache when warm and the message store otherwise.
	GetRecentMessages(ctx context.Context, roomID string) ([]domain.ChatEvent, error)
}

// RoomService manages rooms over the REST surface.
type RoomService interface {
	CreateRoom(ctx context.Context, name, description, createdBy string) (*domain.Room, error)
	GetRoom(ctx context.Context, id string) (*domain.Room, error)
	ListRooms(ctx context.Context) ([]domain.Room, error)
}
