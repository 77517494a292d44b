package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/meridian-ledger/internal/config"
	"github.com/meridian-ledger/internal/domain/account"
	"github.com/meridian-ledger/internal/domain/shared"
	"github.com/meridian-ledger/internal/domain/transaction"
)

type MockTransactionRepo struct {
	mock.Mock
}

func (m *MockTransactionRepo) Create(ctx context.Context, txn *transaction.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepo) GetByReferenceID(ctx context.Context, referenceID string) (*transaction.Transaction, error) {
	args := m.Called(ctx, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepo) GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*transaction.Transaction, error) {
	args := m.Called(ctx, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepo) CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepo) Update(ctx context.Context, txn *transaction.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepo) GetStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*transaction.Transaction, error) {
	args := m.Called(ctx, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepo) WithTx(tx pgx.Tx) transaction.Repository {
	args := m.Called(tx)
	return args.Get(0).(transaction.Repository)
}

type recordingPublisher struct {
	mu        sync.Mutex
	published []*transaction.Transaction
}

func (p *recordingPublisher) PublishProcessed(txn *transaction.Transaction, _ *account.Account) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, txn)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func sweeperConfig() *config.SweeperConfig {
	return &config.SweeperConfig{
		Interval:      10 * time.Millisecond,
		MaxPendingAge: time.Minute,
		BatchSize:     50,
	}
}

func pendingTxn(t *testing.T) *transaction.Transaction {
	t.Helper()
	txn, err := transaction.New("REF-"+uuid.NewString(), shared.OperationCredit, 100, "USD", uuid.New(), nil, nil, "")
	require.NoError(t, err)
	return txn
}

func TestSweeper_SweepOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("FailsStalePendingAndPublishes", func(t *testing.T) {
		mockRepo := &MockTransactionRepo{}
		publisher := &recordingPublisher{}
		s := NewSweeper(sweeperConfig(), mockRepo, publisher, slog.Default())

		stale := pendingTxn(t)
		mockRepo.On("GetStalePending", mock.Anything, mock.Anything, 50).Return([]*transaction.Transaction{stale}, nil)
		mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(txn *transaction.Transaction) bool {
			return txn.Status == shared.TransactionStatusFailed &&
				txn.FailureReason == string(shared.FailureReasonStalePending)
		})).Return(nil)

		require.NoError(t, s.sweepOnce(ctx))
		assert.Equal(t, shared.TransactionStatusFailed, stale.Status)
		assert.Equal(t, 1, publisher.count())
		mockRepo.AssertExpectations(t)
	})

	t.Run("EmptySweepIsQuiet", func(t *testing.T) {
		mockRepo := &MockTransactionRepo{}
		publisher := &recordingPublisher{}
		s := NewSweeper(sweeperConfig(), mockRepo, publisher, slog.Default())

		mockRepo.On("GetStalePending", mock.Anything, mock.Anything, 50).Return([]*transaction.Transaction{}, nil)

		require.NoError(t, s.sweepOnce(ctx))
		assert.Equal(t, 0, publisher.count())
		mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("PersistFailureSkipsPublish", func(t *testing.T) {
		mockRepo := &MockTransactionRepo{}
		publisher := &recordingPublisher{}
		s := NewSweeper(sweeperConfig(), mockRepo, publisher, slog.Default())

		stale := pendingTxn(t)
		mockRepo.On("GetStalePending", mock.Anything, mock.Anything, 50).Return([]*transaction.Transaction{stale}, nil)
		mockRepo.On("Update", mock.Anything, mock.Anything).Return(errors.New("db down"))

		require.NoError(t, s.sweepOnce(ctx))
		assert.Equal(t, 0, publisher.count())
	})

	t.Run("QueryFailurePropagates", func(t *testing.T) {
		mockRepo := &MockTransactionRepo{}
		publisher := &recordingPublisher{}
		s := NewSweeper(sweeperConfig(), mockRepo, publisher, slog.Default())

		mockRepo.On("GetStalePending", mock.Anything, mock.Anything, 50).Return(nil, errors.New("db down"))

		assert.Error(t, s.sweepOnce(ctx))
	})
}

func TestSweeper_Start(t *testing.T) {
	mockRepo := &MockTransactionRepo{}
	publisher := &recordingPublisher{}
	s := NewSweeper(sweeperConfig(), mockRepo, publisher, slog.Default())

	ticked := make(chan struct{}, 1)
	mockRepo.On("GetStalePending", mock.Anything, mock.Anything, 50).Run(func(mock.Arguments) {
		select {
		case ticked <- struct{}{}:
		default:
		}
	}).Return([]*transaction.Transaction{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	select {
	case <-ticked:
	case <-time.After(time.Second):
		t.Fatal("sweeper never ticked")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on cancellation")
	}
}
