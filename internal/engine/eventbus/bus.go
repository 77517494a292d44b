// Package eventbus provides the in-process domain event queue. Many engine
// goroutines publish; a background worker drains. Publication never blocks
// the request path: under overload events are dropped and counted rather
// than stalling a money movement.
package eventbus

import (
	"log/slog"
	"sync/atomic"

	"github.com/meridian-ledger/internal/domain/event"
)

// Bus is a bounded multi-producer/multi-consumer queue of domain events
type Bus struct {
	ch      chan event.TransactionProcessed
	dropped atomic.Int64
	logger  *slog.Logger
}

// NewBus creates a bus with the given buffer capacity
func NewBus(bufferSize int, logger *slog.Logger) *Bus {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Bus{
		ch:     make(chan event.TransactionProcessed, bufferSize),
		logger: logger,
	}
}

// Publish enqueues an event without blocking. Returns false when the buffer
// is full; the event is dropped and the drop counter advanced.
func (b *Bus) Publish(ev event.TransactionProcessed) bool {
	select {
	case b.ch <- ev:
		return true
	default:
		dropped := b.dropped.Add(1)
		b.logger.Warn("Event bus buffer full, dropping event",
			"event_id", ev.ID.String(),
			"transaction_id", ev.TransactionID.String(),
			"total_dropped", dropped,
		)
		return false
	}
}

// Events exposes the receive side of the queue to the worker
func (b *Bus) Events() <-chan event.TransactionProcessed {
	return b.ch
}

// Dropped returns the number of events lost to a full buffer
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Len returns the number of events currently buffered
func (b *Bus) Len() int {
	return len(b.ch)
}
