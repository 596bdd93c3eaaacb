package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps fixed-window counters in process memory. Counters are
// per instance; use RedisStore when several instances share a budget.
type MemoryStore struct {
	mu    sync.RWMutex
	data  map[string]*window
	clean *time.Ticker
	done  chan struct{}
	once  sync.Once
}

type window struct {
	count     int
	resetTime time.Time
}

// NewMemoryStore creates a new memory-based store whose expired windows are
// swept every cleanupInterval.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	store := &MemoryStore{
		data:  make(map[string]*window),
		clean: time.NewTicker(cleanupInterval),
		done:  make(chan struct{}),
	}

	go store.cleanup()
	return store
}

func (s *MemoryStore) cleanup() {
	for {
		select {
		case <-s.done:
			return
		case now := <-s.clean.C:
			s.mu.Lock()
			for key, w := range s.data {
				if now.After(w.resetTime) {
					delete(s.data, key)
				}
			}
			s.mu.Unlock()
		}
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (int, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	if w, exists := s.data[key]; exists && now.Before(w.resetTime) {
		return w.count, w.resetTime, nil
	}
	return 0, now, nil
}

func (s *MemoryStore) Increment(_ context.Context, key string, resetTime time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w, exists := s.data[key]; exists && time.Now().Before(w.resetTime) {
		w.count++
		return w.count, nil
	}

	s.data[key] = &window{count: 1, resetTime: resetTime}
	return 1, nil
}

func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *MemoryStore) Close() error {
	s.once.Do(func() {
		s.clean.Stop()
		close(s.done)
	})
	return nil
}
