package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/sovanra-ruos/chat-service/pkg/log"
)

// ConsumerConfig carries the tunables for the poll loop.
type ConsumerConfig struct {
	Brokers             string
	GroupID             string
	Topics              []string
	AutoOffsetReset     string
	SessionTimeoutMs    int
	HeartbeatIntervalMs int
	MaxPollIntervalMs   int
	FetchMinBytes       int
	FetchMaxWaitMs      int
}

// ConfluentConsumer consumes chat and presence topics with manual offset
// commits. An offset is committed only after the handler fully succeeds, so
// a crash mid-delivery replays the record instead of dropping it.
type ConfluentConsumer struct {
	consumer *kafka.Consumer
	handler  RecordHandler
}

func NewConfluentConsumer(cfg ConsumerConfig, handler RecordHandler) (*ConfluentConsumer, error) {
	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":     cfg.Brokers,
		"group.id":              cfg.GroupID,
		"auto.offset.reset":     cfg.AutoOffsetReset,
		"enable.auto.commit":    false,
		"session.timeout.ms":    cfg.SessionTimeoutMs,
		"heartbeat.interval.ms": cfg.HeartbeatIntervalMs,
		"max.poll.interval.ms":  cfg.MaxPollIntervalMs,
		"fetch.min.bytes":       cfg.FetchMinBytes,
		"fetch.wait.max.ms":     cfg.FetchMaxWaitMs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	if err := c.SubscribeTopics(cfg.Topics, nil); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to subscribe to topics: %w", err)
	}

	return &ConfluentConsumer{
		consumer: c,
		handler:  handler,
	}, nil
}

// Run polls until the context is cancelled.
func (cc *ConfluentConsumer) Run(ctx context.Context) error {
	l := log.L()
	l.Info().Msg("kafka consumer started")

	for {
		select {
		case <-ctx.Done():
			l.Info().Msg("kafka consumer stopping")
			return cc.consumer.Close()
		default:
		}

		ev := cc.consumer.Poll(500)
		if ev == nil {
			continue
		}

		switch e := ev.(type) {
		case *kafka.Message:
			cc.handleMessage(ctx, e)
		case kafka.Error:
			if e.IsFatal() {
				l.Error().Err(e).Msg("fatal kafka error")
				cc.consumer.Close()
				return e
			}
			l.Warn().Err(e).Msg("kafka error")
		}
	}
}

func (cc *ConfluentConsumer) handleMessage(ctx context.Context, msg *kafka.Message) {
	l := log.L()
	topic := safeTopic(msg.TopicPartition.Topic)

	if err := cc.handler.HandleRecord(ctx, topic, msg.Key, msg.Value); err != nil {
		l.Error().
			Err(err).
			Str(log.FieldTopic, topic).
			Int32(log.FieldPartition, int32(msg.TopicPartition.Partition)).
			Int64(log.FieldOffset, int64(msg.TopicPartition.Offset)).
			Msg("record handling failed, will retry")

		// Rewind so the next poll redelivers the failed record.
		if seekErr := cc.consumer.Seek(msg.TopicPartition, 0); seekErr != nil {
			l.Error().Err(seekErr).Msg("failed to seek back to failed offset")
		}
		time.Sleep(time.Second)
		return
	}

	if _, err := cc.consumer.CommitMessage(msg); err != nil {
		l.Error().
			Err(err).
			Str(log.FieldTopic, topic).
			Int64(log.FieldOffset, int64(msg.TopicPartition.Offset)).
			Msg("failed to commit offset")
	}
}
