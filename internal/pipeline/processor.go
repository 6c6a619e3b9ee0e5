package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sovanra-ruos/chat-service/internal/cache"
	"github.com/sovanra-ruos/chat-service/internal/domain"
	"github.com/sovanra-ruos/chat-service/internal/repository"
	"github.com/sovanra-ruos/chat-service/pkg/log"
)

// Broadcaster fans a decoded event out to the sessions subscribed to a
// hub topic.
type Broadcaster interface {
	Broadcast(topic string, payload interface{}) error
}

// Processor applies a consumed record's side effects in order: persist,
// cache, broadcast. Returning an error leaves the offset uncommitted so
// the record is redelivered; all side effects are therefore idempotent.
type Processor struct {
	chatTopic     string
	presenceTopic string
	messages      repository.MessageRepository
	store         cache.Store
	broadcaster   Broadcaster
}

func NewProcessor(chatTopic, presenceTopic string, messages repository.MessageRepository, store cache.Store, broadcaster Broadcaster) *Processor {
	return &Processor{
		chatTopic:     chatTopic,
		presenceTopic: presenceTopic,
		messages:      messages,
		store:         store,
		broadcaster:   broadcaster,
	}
}

func (p *Processor) HandleRecord(ctx context.Context, topic string, key, value []byte) error {
	switch topic {
	case p.chatTopic:
		return p.handleChat(ctx, value)
	case p.presenceTopic:
		return p.handlePresence(ctx, value)
	default:
		l := log.L()
		l.Warn().Str(log.FieldTopic, topic).Msg("record from unexpected topic, skipping")
		return nil
	}
}

func (p *Processor) handleChat(ctx context.Context, value []byte) error {
	var ev domain.ChatEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		// A malformed record will never decode on retry. Log and move on.
		l := log.L()
		l.Warn().Err(err).Msg("malformed chat event, skipping")
		return nil
	}

	// JOIN and LEAVE are notifications: they reach the cache and the
	// connected clients but are never written to the message table.
	if ev.Kind == domain.KindChat {
		if err := p.messages.InsertIfAbsent(ctx, &ev); err != nil {
			return fmt.Errorf("persist chat event %s: %w", ev.ID, err)
		}
	}

	if err := p.store.CacheRecentMessage(ctx, &ev); err != nil {
		return fmt.Errorf("cache chat event %s: %w", ev.ID, err)
	}

	if err := p.broadcaster.Broadcast(domain.ChatTopic(ev.RoomID), &ev); err != nil {
		return fmt.Errorf("broadcast chat event %s: %w", ev.ID, err)
	}

	l := log.L()
	l.Debug().
		Str(log.FieldEventID, ev.ID).
		Str(log.FieldRoomID, ev.RoomID).
		Str("kind", string(ev.Kind)).
		Msg("chat event delivered")
	return nil
}

func (p *Processor) handlePresence(ctx context.Context, value []byte) error {
	var ev domain.PresenceEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		l := log.L()
		l.Warn().Err(err).Msg("malformed presence event, skipping")
		return nil
	}

	if err := p.store.UpdatePresence(ctx, &ev); err != nil {
		return fmt.Errorf("update presence for %s: %w", ev.UserID, err)
	}

	if err := p.broadcaster.Broadcast(domain.PresenceTopic(ev.RoomID), &ev); err != nil {
		return fmt.Errorf("broadcast presence for %s: %w", ev.UserID, err)
	}

	l := log.L()
	l.Debug().
		Str(log.FieldUserID, ev.UserID).
		Str(log.FieldRoomID, ev.RoomID).
		Str("status", string(ev.Status)).
		Msg("presence event delivered")
	return nil
}
