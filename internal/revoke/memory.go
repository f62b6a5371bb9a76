package revoke

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-process revocation set. Entries are checked against
// their expiry on read and swept by a janitor goroutine when a sweep
// interval is configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryStore describes the newmemorystore operation and its observable behavior.
func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]time.Time),
		done:    make(chan struct{}),
	}

	if sweepInterval > 0 {
		go s.janitor(sweepInterval)
	}

	return s
}

func (s *MemoryStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(time.Now())
		case <-s.done:
			return
		}
	}
}

func (s *MemoryStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, expiry := range s.entries {
		if !expiry.After(now) {
			delete(s.entries, id)
		}
	}
}

// Add describes the add operation and its observable behavior.
//
// Add does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *MemoryStore) Add(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	expiry := time.Now().Add(ttl)
	if existing, ok := s.entries[tokenID]; !ok || expiry.After(existing) {
		s.entries[tokenID] = expiry
	}

	return nil
}

// Contains describes the contains operation and its observable behavior.
//
// Contains does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *MemoryStore) Contains(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.entries[tokenID]
	if !ok {
		return false, nil
	}
	if !expiry.After(time.Now()) {
		delete(s.entries, tokenID)
		return false, nil
	}

	return true, nil
}

// Close stops the janitor goroutine.
func (s *MemoryStore) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}
