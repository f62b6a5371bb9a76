package rate

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	retain time.Duration
	stamps []time.Time
}

// MemoryStore is the in-process Store. A janitor goroutine sweeps aged-out
// buckets when a sweep interval is configured; otherwise memory is reclaimed
// only as individual keys are touched.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryStore describes the newmemorystore operation and its observable behavior.
func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		buckets: make(map[string]*bucket),
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

	for k, b := range s.buckets {
		b.stamps = trim(b.stamps, now.Add(-b.retain))
		if len(b.stamps) == 0 {
			delete(s.buckets, k)
		}
	}
}

// trim drops stamps older than cutoff. Stamps are append-ordered, so the
// first surviving index bounds the copy.
func trim(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && stamps[i].Before(cutoff) {
		i++
	}
	if i == 0 {
		return stamps
	}
	return append(stamps[:0], stamps[i:]...)
}

// CountSince describes the countsince operation and its observable behavior.
//
// CountSince does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *MemoryStore) CountSince(_ context.Context, key string, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok {
		return 0, nil
	}

	count := 0
	for _, at := range b.stamps {
		if !at.Before(since) {
			count++
		}
	}
	return count, nil
}

// Record describes the record operation and its observable behavior.
//
// Record does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *MemoryStore) Record(_ context.Context, key string, at time.Time, retain time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{retain: retain}
		s.buckets[key] = b
	}
	b.retain = retain
	b.stamps = trim(b.stamps, at.Add(-retain))
	b.stamps = append(b.stamps, at)

	return nil
}

// Clear describes the clear operation and its observable behavior.
//
// Clear does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *MemoryStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.buckets, key)
	return nil
}

// Close stops the janitor goroutine.
func (s *MemoryStore) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}
