package components

import (
	"log/slog"

	"github.com/meridian-ledger/internal/domain/account"
	"github.com/meridian-ledger/internal/domain/event"
	"github.com/meridian-ledger/internal/domain/transaction"
	"github.com/meridian-ledger/internal/engine/eventbus"
	"github.com/meridian-ledger/internal/engine/service"
)

type EventPublisherImpl struct {
	bus    *eventbus.Bus
	logger *slog.Logger
}

func NewEventPublisher(bus *eventbus.Bus, logger *slog.Logger) service.EventPublisher {
	return &EventPublisherImpl{
		bus:    bus,
		logger: logger,
	}
}

// PublishProcessed emits the terminal outcome onto the bus. Publication is
// best-effort and never blocks the request path.
func (p *EventPublisherImpl) PublishProcessed(txn *transaction.Transaction, acc *account.Account) {
	ev := event.NewTransactionProcessed(txn, acc)
	if !p.bus.Publish(ev) {
		p.logger.Warn("Processed event dropped by full bus",
			"transaction_id", txn.ID.String(),
			"status", string(txn.Status),
		)
	}
}
