package eventbus

import (
	"context"
	"encoding/json"

	"github.com/meridian-ledger/internal/domain/event"
)

// MessagePublisher is the outbound topic contract the relay publishes to
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
}

// DeadLetterPublisher receives events the relay could not deliver
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
}

// RelayHandler forwards drained events to the outbound topic, at-least-once.
// An undeliverable event goes to the dead letter queue when one is
// configured; otherwise the failure is surfaced to the worker and logged.
type RelayHandler struct {
	publisher MessagePublisher
	dlq       DeadLetterPublisher
}

// NewRelayHandler creates a relay over the given publisher. dlq may be nil.
func NewRelayHandler(publisher MessagePublisher, dlq DeadLetterPublisher) *RelayHandler {
	return &RelayHandler{
		publisher: publisher,
		dlq:       dlq,
	}
}

func (h *RelayHandler) Name() string { return "kafka_relay" }

func (h *RelayHandler) Handle(ctx context.Context, ev *event.TransactionProcessed) error {
	err := h.publisher.Publish(ctx, ev.TransactionID.String(), ev)
	if err == nil {
		return nil
	}

	if h.dlq != nil {
		payload, marshalErr := json.Marshal(ev)
		if marshalErr != nil {
			return err
		}
		if dlqErr := h.dlq.PublishToDLQ(ctx, ev.TransactionID.String(), payload, err.Error()); dlqErr == nil {
			return nil
		}
	}

	return err
}
