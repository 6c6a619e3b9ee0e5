package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sovanra-ruos/chat-service/internal/domain"
	"github.com/sovanra-ruos/chat-service/pkg/log"
)

// GormRoomRepository implements RoomRepository using GORM.
type GormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository creates a new GORM-based room repository.
func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	return &GormRoomRepository{db: db}
}

// Create creates a new room.
func (r *GormRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	l := log.Ctx(ctx)

	room.ID = uuid.New().String()
	model := &domain.RoomModel{
		ID:          room.ID,
		Name:        room.Name,
		Description: room.Description,
	}

	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		l.Error().Err(result.Error).Msg("failed to create room in db")
		return result.Error
	}

	room.CreatedAt = model.CreatedAt
	l.Debug().Str(log.FieldRoomID, room.ID).Msg("room created in db")
	return nil
}

// GetByID retrieves a room with its durable participant set.
func (r *GormRoomRepository) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	var model domain.RoomModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, result.Error
	}

	var participants []domain.ParticipantModel
	if err := r.db.WithContext(ctx).
		Where("room_id = ?", id).
		Order("joined_at ASC").
		Find(&participants).Error; err != nil {
		return nil, err
	}

	room := &domain.Room{
		ID:           model.ID,
		Name:         model.Name,
		Description:  model.Description,
		CreatedAt:    model.CreatedAt,
		Participants: make([]string, len(participants)),
	}
	for i, p := range participants {
		room.Participants[i] = p.UserID
	}
	return room, nil
}

// List retrieves all rooms, newest-first.
func (r *GormRoomRepository) List(ctx context.Context) ([]domain.Room, error) {
	var models []domain.RoomModel
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}

	rooms := make([]domain.Room, len(models))
	for i, model := range models {
		rooms[i] = domain.Room{
			ID:          model.ID,
			Name:        model.Name,
			Description: model.Description,
			CreatedAt:   model.CreatedAt,
		}
	}
	return rooms, nil
}

// AddParticipant records the user in the room's durable participant set.
// Idempotent: joining twice keeps a single row.
func (r *GormRoomRepository) AddParticipant(ctx context.Context, roomID, userID string) error {
	l := log.Ctx(ctx)

	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.RoomModel{}).
		Where("id = ?", roomID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrRoomNotFound
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.ParticipantModel{RoomID: roomID, UserID: userID})
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldRoomID, roomID).Str(log.FieldUserID, userID).
			Msg("failed to add participant")
		return result.Error
	}
	return nil
}

// RemoveParticipant removes the user from the room's durable participant set.
func (r *GormRoomRepository) RemoveParticipant(ctx context.Context, roomID, userID string) error {
	l := log.Ctx(ctx)

	result := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Delete(&domain.ParticipantModel{})
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldRoomID, roomID).Str(log.FieldUserID, userID).
			Msg("failed to remove participant")
		return result.Error
	}
	return nil
}

var _ RoomRepository = (*GormRoomRepository)(nil)
