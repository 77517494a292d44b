package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/meridian-ledger/internal/config"
)

// EventMessageProducer publishes processed-transaction events to the outbound
// event topic for downstream consumers. The writer is asynchronous: Publish
// returns once the message is queued, and a failed broker write is logged by
// the completion callback rather than returned to the caller.
type EventMessageProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// NewEventMessageProducer creates the outbound event producer and ensures the
// topic exists. Returns nil, nil when no brokers are configured: the relay is
// optional and the service runs without it.
func NewEventMessageProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*EventMessageProducer, error) {
	if cfg.Brokers == "" {
		logger.Info("Kafka brokers are not configured. EventMessageProducer will not be initialized.")
		return nil, nil
	}
	if cfg.EventTopic == "" {
		return nil, fmt.Errorf("kafka event topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for event producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.EventTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure event topic %s exists for event producer: %w", cfg.EventTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.EventTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true, // Using async for high throughput
		WriteTimeout: cfg.WriteTimeout,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write messages asynchronously", "topic", cfg.EventTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Successfully wrote messages asynchronously", "topic", cfg.EventTopic, "count", len(messages))
			}
		},
	}

	return &EventMessageProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.EventTopic,
	}, nil
}

func (p *EventMessageProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message value for event producer: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish message via event producer",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish message to %s via event producer: %w", p.topic, err)
	}

	p.logger.Debug("Published message via event producer",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *EventMessageProducer) Close() error {
	p.logger.Info("Closing Kafka event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
