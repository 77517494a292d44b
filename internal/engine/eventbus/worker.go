package eventbus

import (
	"context"
	"log/slog"

	"github.com/meridian-ledger/internal/domain/event"
)

// Handler consumes one drained event. Processing is at-least-once: a handler
// error is logged and skipped, never redelivered by the bus itself.
type Handler interface {
	Name() string
	Handle(ctx context.Context, ev *event.TransactionProcessed) error
}

// Worker drains the bus until context cancellation, dispatching each event
// to every registered handler
type Worker struct {
	bus      *Bus
	handlers []Handler
	logger   *slog.Logger
}

// NewWorker creates a worker over the given bus and handlers
func NewWorker(bus *Bus, logger *slog.Logger, handlers ...Handler) *Worker {
	return &Worker{
		bus:      bus,
		handlers: handlers,
		logger:   logger,
	}
}

// Run processes events until ctx is cancelled
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("Starting event bus worker", "handlers", len(w.handlers))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Event bus worker stopping due to context cancellation",
				"undrained", w.bus.Len(),
				"dropped", w.bus.Dropped(),
			)
			return
		case ev := <-w.bus.Events():
			w.dispatch(ctx, &ev)
		}
	}
}

func (w *Worker) dispatch(ctx context.Context, ev *event.TransactionProcessed) {
	for _, h := range w.handlers {
		if err := h.Handle(ctx, ev); err != nil {
			w.logger.Error("Event handler failed, skipping event",
				"handler", h.Name(),
				"event_id", ev.ID.String(),
				"transaction_id", ev.TransactionID.String(),
				"error", err,
			)
		}
	}
}

// ArchiveHandler persists drained events to the audit archive
type ArchiveHandler struct {
	archive event.Archive
}

// NewArchiveHandler creates a handler over the given archive
func NewArchiveHandler(archive event.Archive) *ArchiveHandler {
	return &ArchiveHandler{archive: archive}
}

func (h *ArchiveHandler) Name() string { return "archive" }

func (h *ArchiveHandler) Handle(ctx context.Context, ev *event.TransactionProcessed) error {
	return h.archive.Store(ctx, ev)
}
