package credstore

import (
	"context"
	"sync"
	"time"
)

// entry is a stored value with an absolute expiry. Counter entries reuse the
// same slot with the numeric value tracked separately.
type entry struct {
	value     string
	counter   int64
	expiresAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// MemoryStore implements Store with an in-process map and a reaper goroutine.
// Intended for tests and single-node development; per-key atomicity comes
// from the store mutex.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
	janitor *janitor
}

// NewMemoryStore creates an in-memory store and starts its reaper.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*entry),
	}

	s.janitor = &janitor{
		interval: time.Minute,
		stop:     make(chan struct{}),
	}
	go s.janitor.run(s)

	return s
}

func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return ErrUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = &entry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", ErrUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok || ent.expired(time.Now()) {
		delete(s.entries, key)
		return "", ErrNotFound
	}
	return ent.value, nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return ErrUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, ErrUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	ent, ok := s.entries[key]
	if !ok || ent.expired(now) {
		// First increment in a fresh window; the expiry is fixed here and is
		// not extended by later increments.
		s.entries[key] = &entry{
			counter:   1,
			expiresAt: now.Add(ttl),
		}
		return 1, nil
	}

	ent.counter++
	return ent.counter, nil
}

func (s *MemoryStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, ErrUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok {
		return 0, ErrNotFound
	}

	remaining := time.Until(ent.expiresAt)
	if remaining <= 0 {
		delete(s.entries, key)
		return 0, ErrNotFound
	}
	return remaining, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close stops the reaper goroutine
func (s *MemoryStore) Close() error {
	if s.janitor != nil {
		close(s.janitor.stop)
		s.janitor = nil
	}
	return nil
}

// reap removes expired entries
func (s *MemoryStore) reap() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, ent := range s.entries {
		if ent.expired(now) {
			delete(s.entries, key)
		}
	}
}

// janitor runs periodic cleanup of expired entries
type janitor struct {
	interval time.Duration
	stop     chan struct{}
}

func (j *janitor) run(s *MemoryStore) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.reap()
		case <-j.stop:
			return
		}
	}
}
