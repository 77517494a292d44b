package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-ledger/internal/domain/event"
)

func testEvent() event.TransactionProcessed {
	return event.TransactionProcessed{
		ID:            uuid.New(),
		Name:          event.TransactionProcessedName,
		TransactionID: uuid.New(),
		AccountID:     uuid.New(),
		OccurredAt:    time.Now(),
	}
}

type recordingHandler struct {
	mu     sync.Mutex
	events []uuid.UUID
	err    error
}

func (h *recordingHandler) Name() string { return "recording" }

func (h *recordingHandler) Handle(_ context.Context, ev *event.TransactionProcessed) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev.ID)
	return h.err
}

func (h *recordingHandler) seen() []uuid.UUID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]uuid.UUID(nil), h.events...)
}

func TestBus_Publish(t *testing.T) {
	t.Run("NonBlockingUntilFull", func(t *testing.T) {
		bus := NewBus(2, slog.Default())

		assert.True(t, bus.Publish(testEvent()))
		assert.True(t, bus.Publish(testEvent()))
		assert.Equal(t, int64(0), bus.Dropped())

		// Buffer full: publish must return immediately and count the drop.
		assert.False(t, bus.Publish(testEvent()))
		assert.Equal(t, int64(1), bus.Dropped())
		assert.Equal(t, 2, bus.Len())
	})

	t.Run("ConcurrentPublishers", func(t *testing.T) {
		bus := NewBus(1000, slog.Default())

		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				bus.Publish(testEvent())
			}()
		}
		wg.Wait()

		assert.Equal(t, 100, bus.Len())
		assert.Equal(t, int64(0), bus.Dropped())
	})
}

func TestWorker_Run(t *testing.T) {
	t.Run("DrainsAndDispatches", func(t *testing.T) {
		bus := NewBus(10, slog.Default())
		handler := &recordingHandler{}
		worker := NewWorker(bus, slog.Default(), handler)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			worker.Run(ctx)
			close(done)
		}()

		first := testEvent()
		second := testEvent()
		require.True(t, bus.Publish(first))
		require.True(t, bus.Publish(second))

		assert.Eventually(t, func() bool {
			return len(handler.seen()) == 2
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, []uuid.UUID{first.ID, second.ID}, handler.seen())

		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("worker did not stop on cancellation")
		}
	})

	t.Run("HandlerErrorIsSkipped", func(t *testing.T) {
		bus := NewBus(10, slog.Default())
		failing := &recordingHandler{err: errors.New("archive down")}
		healthy := &recordingHandler{}
		worker := NewWorker(bus, slog.Default(), failing, healthy)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go worker.Run(ctx)

		require.True(t, bus.Publish(testEvent()))
		require.True(t, bus.Publish(testEvent()))

		// A failing handler must not block later events or other handlers.
		assert.Eventually(t, func() bool {
			return len(healthy.seen()) == 2 && len(failing.seen()) == 2
		}, time.Second, 5*time.Millisecond)
	})
}

func TestArchiveHandler(t *testing.T) {
	archived := &archiveStub{}
	handler := NewArchiveHandler(archived)

	ev := testEvent()
	require.NoError(t, handler.Handle(context.Background(), &ev))
	assert.Equal(t, "archive", handler.Name())
	require.Len(t, archived.stored, 1)
	assert.Equal(t, ev.ID, archived.stored[0].ID)
}

type archiveStub struct {
	stored []*event.TransactionProcessed
}

func (a *archiveStub) Store(_ context.Context, ev *event.TransactionProcessed) error {
	a.stored = append(a.stored, ev)
	return nil
}

func (a *archiveStub) GetByTransactionID(context.Context, uuid.UUID) ([]*event.TransactionProcessed, error) {
	return nil, nil
}

func (a *archiveStub) GetByAccountID(context.Context, uuid.UUID, int, int) ([]*event.TransactionProcessed, error) {
	return nil, nil
}

func (a *archiveStub) GetByTimeRange(context.Context, time.Time, time.Time, int, int) ([]*event.TransactionProcessed, error) {
	return nil, nil
}
