package domain

import "time"

// Room is a durable chat room. Participants records everyone who has ever
// joined; the currently-online set lives in the cache and is a separate
// concept.
type Room struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	Participants []string  `json:"participants"`
}

// RoomModel is the GORM model for the rooms table.
type RoomModel struct {
	ID          string    `gorm:"type:varchar(36);primaryKey"`
	Name        string    `gorm:"type:varchar(200);not null"`
	Description string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (RoomModel) TableName() string {
	return "rooms"
}

// ParticipantModel is the GORM model for room membership rows.
type ParticipantModel struct {
	RoomID   string    `gorm:"type:varchar(36);primaryKey"`
	UserID   string    `gorm:"type:varchar(36);primaryKey"`
	JoinedAt time.Time `gorm:"autoCreateTime"`
}

func (ParticipantModel) TableName() string {
	return "room_participants"
}

// MessageModel is the GORM model for persisted chat events. Only CHAT events
// are stored; the primary key is the event's own id so redelivered records
// collapse to a single row.
type MessageModel struct {
	ID         string    `gorm:"type:varchar(36);primaryKey"`
	RoomID     string    `gorm:"type:varchar(36);index:idx_messages_room_ts;not null"`
	SenderID   string    `gorm:"type:varchar(36);not null"`
	SenderName string    `gorm:"type:varchar(100);not null"`
	Content    string    `gorm:"type:text"`
	Kind       string    `gorm:"type:varchar(10);not null"`
	Timestamp  time.Time `gorm:"index:idx_messages_room_ts;not null"`
}

func (MessageModel) TableName() string {
	return "chat_messages"
}

// ToEvent converts a stored row back to the wire event.
func (m *MessageModel) ToEvent() ChatEvent {
	return ChatEvent{
		ID:         m.ID,
		RoomID:     m.RoomID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Content:    m.Content,
		Kind:       EventKind(m.Kind),
		Timestamp:  m.Timestamp.UnixMilli(),
	}
}

// ModelFromEvent converts a chat event to its stored form.
func ModelFromEvent(ev *ChatEvent) *MessageModel {
	return &MessageModel{
		ID:         ev.ID,
		RoomID:     ev.RoomID,
		SenderID:   ev.SenderID,
		SenderName: ev.SenderName,
		Content:    ev.Content,
		Kind:       string(ev.Kind),
		Timestamp:  time.UnixMilli(ev.Timestamp).UTC(),
	}
}
