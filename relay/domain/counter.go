package domain

import (
	"context"
	"time"
)

// CounterLimit names one fixed-window counter and the maximum it may reach.
// A Limit <= 0 means the counter is not enforced.
type CounterLimit struct {
	Key   string
	Limit int
}

// CounterState is a read-only view of a window counter.
type CounterState struct {
	Key     string    `json:"key"`
	Count   int       `json:"count"`
	ResetAt time.Time `json:"reset_at"`
}

// CounterStore keeps fixed-window rate counters. It lives in process memory because
// the admission check must never wait on the network.
type CounterStore interface {
	// Acquire increments every enforced counter when all of them are below their
	// limit, otherwise it increments none and returns false.
	Acquire(ctx context.Context, now time.Time, window time.Duration, limits []CounterLimit) (bool, error)

	// Get returns the current state of a counter, zero-valued when absent or expired.
	Get(ctx context.Context, now time.Time, key string) (CounterState, error)

	// Cleanup removes expired windows. Called periodically.
	Cleanup(ctx context.Context, now time.Time) error
}
