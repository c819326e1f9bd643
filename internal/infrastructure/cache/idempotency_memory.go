package cache

import (
	"context"
	"sync"
	"time"

	"github.com/finledger/backend/internal/domain/shared"
)

// markEntry records when a processed-event mark expires
type markEntry struct {
	expiresAt time.Time
}

// MemoryIdempotencyStore implements IdempotencyStore with an in-process map.
// Suitable for single-instance deployments and tests. Marks do not survive a
// restart and are not shared across instances; distributed deployments need
// the Redis store.
type MemoryIdempotencyStore struct {
	mu        sync.RWMutex
	marks     map[string]markEntry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewMemoryIdempotencyStore creates the store and starts a background sweep
// of expired marks.
func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return NewMemoryIdempotencyStoreWithSweep(5 * time.Minute)
}

// NewMemoryIdempotencyStoreWithSweep creates the store with a custom sweep
// interval. Tests use short intervals.
func NewMemoryIdempotencyStoreWithSweep(interval time.Duration) *MemoryIdempotencyStore {
	s := &MemoryIdempotencyStore{
		marks:    make(map[string]markEntry),
		stopChan: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.sweepLoop(interval)
	return s
}

// MarkProcessed marks an event as processed with a TTL. Returns true if the
// event was newly marked, false if a live mark already existed.
func (s *MemoryIdempotencyStore) MarkProcessed(_ context.Context, eventID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, exists := s.marks[eventID]; exists && time.Now().Before(e.expiresAt) {
		return false, nil
	}
	s.marks[eventID] = markEntry{expiresAt: time.Now().Add(ttl)}
	return true, nil
}

// IsProcessed checks whether a live mark exists for the event
func (s *MemoryIdempotencyStore) IsProcessed(_ context.Context, eventID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.marks[eventID]
	if !exists || time.Now().After(e.expiresAt) {
		return false, nil
	}
	return true, nil
}

// Close stops the sweep goroutine. Safe to call more than once.
func (s *MemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// Size returns the number of marks currently held, expired or not
func (s *MemoryIdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.marks)
}

func (s *MemoryIdempotencyStore) sweepLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryIdempotencyStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for eventID, e := range s.marks {
		if now.After(e.expiresAt) {
			delete(s.marks, eventID)
		}
	}
}

var _ shared.IdempotencyStore = (*MemoryIdempotencyStore)(nil)
