package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/meridian-ledger/internal/domain/shared"
)

// WorkerPoolEngine bounds the number of requests processed concurrently by
// wrapping the base engine in an ants pool. Callers still observe synchronous
// semantics: ProcessTransaction blocks until its worker finishes.
type WorkerPoolEngine struct {
	baseEngine TransactionEngine
	pool       *ants.Pool
	logger     *slog.Logger
	// Use a mutex to protect access to the results map
	mu      sync.Mutex
	results map[string]chan engineOutcome
}

type engineOutcome struct {
	result *Result
	err    error
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolEngine(
	baseEngine TransactionEngine,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolEngine, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolEngine{
		baseEngine: baseEngine,
		pool:       pool,
		logger:     logger,
		results:    make(map[string]chan engineOutcome),
	}, nil
}

// ProcessTransaction submits a request to the worker pool and waits for the outcome.
func (s *WorkerPoolEngine) ProcessTransaction(ctx context.Context, request *shared.ProcessRequest) (*Result, error) {
	logger := s.logger
	if request.CorrelationID != "" {
		logger = s.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Info("Submitting transaction to worker pool",
		"reference_id", request.ReferenceID,
		"account_id", request.AccountID,
	)

	// Create a channel to receive the outcome of the processing
	resultChan := make(chan engineOutcome, 1)

	referenceID := request.ReferenceID
	s.mu.Lock()
	s.results[referenceID] = resultChan
	s.mu.Unlock()

	// Create a copy of the request to avoid data races
	requestCopy := *request

	err := s.pool.Submit(func() {
		result, processErr := s.baseEngine.ProcessTransaction(ctx, &requestCopy)

		resultChan <- engineOutcome{result: result, err: processErr}

		s.mu.Lock()
		delete(s.results, referenceID)
		close(resultChan)
		s.mu.Unlock()
	})

	if err != nil {
		// If we couldn't submit the task to the pool, remove the result channel
		s.mu.Lock()
		delete(s.results, referenceID)
		close(resultChan)
		s.mu.Unlock()

		logger.Error("Failed to submit transaction to worker pool",
			"reference_id", request.ReferenceID,
			"error", err,
		)
		return nil, err
	}

	outcome := <-resultChan
	return outcome.result, outcome.err
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolEngine) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolEngine) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolEngine) Capacity() int {
	return s.pool.Cap()
}
