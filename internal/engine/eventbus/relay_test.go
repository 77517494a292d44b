package eventbus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publisherStub struct {
	err  error
	keys []string
}

func (p *publisherStub) Publish(_ context.Context, key string, _ interface{}) error {
	p.keys = append(p.keys, key)
	return p.err
}

type dlqStub struct {
	err     error
	reasons []string
}

func (d *dlqStub) PublishToDLQ(_ context.Context, _ string, _ []byte, reason string) error {
	d.reasons = append(d.reasons, reason)
	return d.err
}

func TestRelayHandler_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("PublishesWithTransactionKey", func(t *testing.T) {
		publisher := &publisherStub{}
		handler := NewRelayHandler(publisher, nil)

		ev := testEvent()
		require.NoError(t, handler.Handle(ctx, &ev))
		require.Len(t, publisher.keys, 1)
		assert.Equal(t, ev.TransactionID.String(), publisher.keys[0])
	})

	t.Run("UndeliverableEventGoesToDLQ", func(t *testing.T) {
		publisher := &publisherStub{err: errors.New("broker down")}
		dlq := &dlqStub{}
		handler := NewRelayHandler(publisher, dlq)

		ev := testEvent()
		require.NoError(t, handler.Handle(ctx, &ev))
		require.Len(t, dlq.reasons, 1)
		assert.Contains(t, dlq.reasons[0], "broker down")
	})

	t.Run("DLQFailureSurfacesOriginalError", func(t *testing.T) {
		publishErr := errors.New("broker down")
		publisher := &publisherStub{err: publishErr}
		dlq := &dlqStub{err: errors.New("dlq down")}
		handler := NewRelayHandler(publisher, dlq)

		ev := testEvent()
		assert.ErrorIs(t, handler.Handle(ctx, &ev), publishErr)
	})

	t.Run("NoDLQSurfacesError", func(t *testing.T) {
		publishErr := errors.New("broker down")
		handler := NewRelayHandler(&publisherStub{err: publishErr}, nil)

		ev := testEvent()
		assert.ErrorIs(t, handler.Handle(ctx, &ev), publishErr)
	})
}
