package kafka

import (
	"context"

	"github.com/sovanra-ruos/chat-service/internal/domain"
)

// EventPublisher appends domain events to the durable log. Chat events are
// keyed by room id and presence events by user id, which is what gives the
// pipeline its per-room and per-user ordering guarantees.
//
// Publishing never blocks on broker acknowledgment: delivery outcomes are
// reported asynchronously and failures are logged. An error return means the
// event was not handed to the log at all.
type EventPublisher interface {
	PublishChatEvent(ctx context.Context, ev *domain.ChatEvent) error
	PublishPresenceEvent(ctx context.Context, ev *domain.PresenceEvent) error
	Close() error
}

// RecordHandler applies one consumed record. Returning an error prevents the
// record's offset from being committed, so the broker redelivers it.
type RecordHandler interface {
	HandleRecord(ctx context.Context, topic string, key, value []byte) error
}
