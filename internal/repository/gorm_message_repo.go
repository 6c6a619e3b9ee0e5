package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sovanra-ruos/chat-service/internal/domain"
	"github.com/sovanra-ruos/chat-service/pkg/log"
)

// GormMessageRepository implements MessageRepository using GORM.
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a new GORM-based message repository.
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

// InsertIfAbsent persists a chat event with insert-or-ignore semantics on the
// event id, so broker redelivery never produces duplicate rows.
func (r *GormMessageRepository) InsertIfAbsent(ctx context.Context, ev *domain.ChatEvent) error {
	model := domain.ModelFromEvent(ev)

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(model)
	if result.Error != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, result.Error)
	}

	l := log.Ctx(ctx)
	if result.RowsAffected == 0 {
		l.Debug().Str(log.FieldEventID, ev.ID).Msg("duplicate event, row already present")
	} else {
		l.Debug().Str(log.FieldEventID, ev.ID).Str(log.FieldRoomID, ev.RoomID).Msg("message persisted")
	}
	return nil
}

// FindRecent returns up to limit messages for a room, newest-first.
func (r *GormMessageRepository) FindRecent(ctx context.Context, roomID string, limit int) ([]domain.ChatEvent, error) {
	var models []domain.MessageModel
	result := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to load recent messages: %w", result.Error)
	}

	events := make([]domain.ChatEvent, len(models))
	for i := range models {
		events[i] = models[i].ToEvent()
	}
	return events, nil
}

var _ MessageRepository = (*GormMessageRepository)(nil)
