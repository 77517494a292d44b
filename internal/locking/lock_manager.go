// Package locking provides cooperative per-account mutual exclusion within a
// single process. Multi-account operations acquire their locks in a canonical
// total order, which rules out cyclic waits between concurrent callers.
//
// The locks are process-local. Horizontal replication of the service requires
// a distributed lock keyed by account id with the same ordered-acquisition
// discipline, or single-writer sharding.
package locking

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// Manager hands out one weighted(1) semaphore per account id. Entries are
// created lazily and retained for the process lifetime; a bounded working set
// of accounts is assumed.
type Manager struct {
	mu   sync.Mutex
	sems map[uuid.UUID]*semaphore.Weighted
}

// NewManager creates an empty lock manager
func NewManager() *Manager {
	return &Manager{
		sems: make(map[uuid.UUID]*semaphore.Weighted),
	}
}

// WithLock acquires exclusive access to every id in ids, invokes fn, and
// releases all locks on every exit path. Acquisition blocks and honors
// context cancellation; on cancellation mid-acquisition, locks already held
// are released and the context error returned.
func (m *Manager) WithLock(ctx context.Context, ids []uuid.UUID, fn func() error) error {
	ordered := canonicalOrder(ids)

	acquired := make([]*semaphore.Weighted, 0, len(ordered))
	release := func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			acquired[i].Release(1)
		}
	}

	for _, id := range ordered {
		sem := m.semaphoreFor(id)
		if err := sem.Acquire(ctx, 1); err != nil {
			release()
			return fmt.Errorf("failed to acquire lock for account %s: %w", id.String(), err)
		}
		acquired = append(acquired, sem)
	}
	defer release()

	return fn()
}

func (m *Manager) semaphoreFor(id uuid.UUID) *semaphore.Weighted {
	m.mu.Lock()
	defer m.mu.Unlock()

	sem, ok := m.sems[id]
	if !ok {
		sem = semaphore.NewWeighted(1)
		m.sems[id] = sem
	}
	return sem
}

// canonicalOrder deduplicates the id set and sorts it by string form. Every
// caller acquiring in this order makes cyclic waits impossible.
func canonicalOrder(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	ordered := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ordered = append(ordered, id)
	}

	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].String() < ordered[j].String()
	})
	return ordered
}
