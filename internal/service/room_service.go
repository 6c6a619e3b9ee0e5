package service

import (
	"context"

	"github.com/sovanra-ruos/chat-service/internal/domain"
	"github.com/sovanra-ruos/chat-service/internal/repository"
)

type roomService struct {
	rooms repository.RoomRepository
}

func NewRoomService(rooms repository.RoomRepository) RoomService {
	return &roomService{rooms: rooms}
}

func (s *roomService) CreateRoom(ctx context.Context, name, description, createdBy string) (*domain.Room, error) {
	room := &domain.Room{
		Name:        name,
		Description: description,
	}

	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, err
	}

	// The creator is a participant from the start.
	if createdBy != "" {
		if err := s.rooms.AddParticipant(ctx, room.ID, createdBy); err != nil {
			return nil, err
		}
		room.Participants = []string{createdBy}
	}

	return room, nil
}

func (s *roomService) GetRoom(ctx context.Context, id string) (*domain.Room, error) {
	return s.rooms.GetByID(ctx, id)
}

func (s *roomService) ListRooms(ctx context.Context) ([]domain.Room, error) {
	return s.rooms.List(ctx)
}
