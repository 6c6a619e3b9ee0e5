package repository

import (
	"context"
	"errors"

	"github.com/sovanra-ruos/chat-service/internal/domain"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

// MessageRepository is the historical chat store. Only CHAT events land here;
// JOIN/LEAVE notifications are never persisted.
type MessageRepository interface {
	// InsertIfAbsent persists the event keyed by its id; a redelivered event
	// collapses to the existing row.
	InsertIfAbsent(ctx context.Context, ev *domain.ChatEvent) error

	// FindRecent returns up to limit messages for a room, newest-first.
	FindRecent(ctx context.Context, roomID string, limit int) ([]domain.ChatEvent, error)
}

// RoomRepository stores rooms and their durable participant sets.
type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	GetByID(ctx context.Context, id string) (*domain.Room, error)
	List(ctx context.Context) ([]domain.Room, error)
	AddParticipant(ctx context.Context, roomID, userID string) error
	RemoveParticipant(ctx context.Context, roomID, userID string) error
}

// UserRepository stores registered users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
}
