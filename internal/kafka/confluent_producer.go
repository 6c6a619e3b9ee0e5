package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/sovanra-ruos/chat-service/internal/domain"
	"github.com/sovanra-ruos/chat-service/pkg/log"
)

// ConfluentProducer publishes chat and presence events to their topics.
type ConfluentProducer struct {
	producer      *kafka.Producer
	chatTopic     string
	presenceTopic string
	doneCh        chan struct{}
}

// NewConfluentProducer creates a Kafka producer and ensures both topics exist
// with the desired partition count.
func NewConfluentProducer(brokers, chatTopic, presenceTopic string, partitions int) (*ConfluentProducer, error) {
	if err := ensureTopics(brokers, []string{chatTopic, presenceTopic}, partitions); err != nil {
		l := log.L()
		l.Warn().Err(err).Msg("failed to ensure topics, they may already exist")
	}

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "1",
		"linger.ms":         5,
		"compression.type":  "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	cp := &ConfluentProducer{
		producer:      p,
		chatTopic:     chatTopic,
		presenceTopic: presenceTopic,
		doneCh:        make(chan struct{}),
	}

	go cp.deliveryReportHandler()

	return cp, nil
}

func ensureTopics(brokers string, topics []string, partitions int) error {
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	specs := make([]kafka.TopicSpecification, len(topics))
	for i, topic := range topics {
		specs[i] = kafka.TopicSpecification{
			Topic:             topic,
			NumPartitions:     partitions,
			ReplicationFactor: 1,
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := admin.CreateTopics(ctx, specs)
	if err != nil {
		return err
	}

	for _, result := range results {
		if result.Error.Code() != kafka.ErrNoError && result.Error.Code() != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("failed to create topic %s: %v", result.Topic, result.Error)
		}
	}

	return nil
}

// deliveryReportHandler drains async delivery reports. A failed delivery is
// observable only here and in logs: callers already returned, so a client
// that never sees its message broadcast back must assume non-delivery.
func (cp *ConfluentProducer) deliveryReportHandler() {
	l := log.L()
	for e := range cp.producer.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				l.Error().
					Err(ev.TopicPartition.Error).
					Str(log.FieldTopic, safeTopic(ev.TopicPartition.Topic)).
					Msg("kafka delivery failed")
			}
		}
	}
	close(cp.doneCh)
}

func safeTopic(topic *string) string {
	if topic == nil {
		return ""
	}
	return *topic
}

// PublishChatEvent appends a chat event keyed by its room id.
func (cp *ConfluentProducer) PublishChatEvent(ctx context.Context, ev *domain.ChatEvent) error {
	return cp.publish(ctx, cp.chatTopic, ev.RoomID, ev)
}

// PublishPresenceEvent appends a presence event keyed by its user id.
func (cp *ConfluentProducer) PublishPresenceEvent(ctx context.Context, ev *domain.PresenceEvent) error {
	return cp.publish(ctx, cp.presenceTopic, ev.UserID, ev)
}

func (cp *ConfluentProducer) publish(ctx context.Context, topic, key string, payload interface{}) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = cp.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(key),
		Value: value,
	}, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPublishFailure, err)
	}

	return nil
}

func (cp *ConfluentProducer) Close() error {
	cp.producer.Flush(5000)
	cp.producer.Close()
	<-cp.doneCh
	return nil
}

var _ EventPublisher = (*ConfluentProducer)(nil)
