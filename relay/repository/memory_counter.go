package repository

import (
	"context"
	"sync"
	"time"

	"github.com/GMOnyx/Commandlessapp-sub000/relay/domain"
)

type fixedWindow struct {
	count   int
	resetAt time.Time
}

// MemoryCounterStore is the in-process CounterStore. A single mutex serializes
// Acquire so checking and incrementing several counters is one atomic step.
type MemoryCounterStore struct {
	mu      sync.Mutex
	windows map[string]*fixedWindow
}

// NewMemoryCounterStore creates an empty store. Expired windows are removed by
// Cleanup, which the rate limiter calls on its own schedule.
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{
		windows: make(map[string]*fixedWindow),
	}
}

func (s *MemoryCounterStore) Acquire(ctx context.Context, now time.Time, window time.Duration, limits []domain.CounterLimit) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Primero verificar todos los contadores, sin tocar nada
	for _, l := range limits {
		if l.Limit <= 0 {
			continue
		}
		if w := s.activeLocked(now, l.Key); w != nil && w.count >= l.Limit {
			return false, nil
		}
	}

	for _, l := range limits {
		if l.Limit <= 0 {
			continue
		}
		w := s.activeLocked(now, l.Key)
		if w == nil {
			w = &fixedWindow{resetAt: now.Add(window)}
			s.windows[l.Key] = w
		}
		w.count++
	}
	return true, nil
}

func (s *MemoryCounterStore) Get(ctx context.Context, now time.Time, key string) (domain.CounterState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.activeLocked(now, key)
	if w == nil {
		return domain.CounterState{Key: key}, nil
	}
	return domain.CounterState{Key: key, Count: w.count, ResetAt: w.resetAt}, nil
}

func (s *MemoryCounterStore) Cleanup(ctx context.Context, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, w := range s.windows {
		if !now.Before(w.resetAt) {
			delete(s.windows, key)
		}
	}
	return nil
}

// Len returns the number of tracked windows, expired ones included.
func (s *MemoryCounterStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

// activeLocked returns the window for key if it has not rolled over yet.
func (s *MemoryCounterStore) activeLocked(now time.Time, key string) *fixedWindow {
	w, ok := s.windows[key]
	if !ok {
		return nil
	}
	if !now.Before(w.resetAt) {
		delete(s.windows, key)
		return nil
	}
	return w
}
