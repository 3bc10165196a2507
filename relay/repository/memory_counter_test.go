package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/GMOnyx/Commandlessapp-sub000/relay/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCounterStore_AllOrNothing(t *testing.T) {
	store := NewMemoryCounterStore()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	limits := []domain.CounterLimit{{Key: "user:a", Limit: 5}, {Key: "server", Limit: 2}}

	for i := 0; i < 2; i++ {
		ok, err := store.Acquire(ctx, now, time.Hour, limits)
		require.NoError(t, err)
		require.True(t, ok)
	}

	// server llegó al límite: user no debe incrementarse
	ok, err := store.Acquire(ctx, now, time.Hour, limits)
	require.NoError(t, err)
	assert.False(t, ok)

	user, _ := store.Get(ctx, now, "user:a")
	server, _ := store.Get(ctx, now, "server")
	assert.Equal(t, 2, user.Count)
	assert.Equal(t, 2, server.Count)
}

func TestMemoryCounterStore_WindowRollover(t *testing.T) {
	store := NewMemoryCounterStore()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	limits := []domain.CounterLimit{{Key: "k", Limit: 1}}

	ok, _ := store.Acquire(ctx, now, time.Hour, limits)
	require.True(t, ok)
	ok, _ = store.Acquire(ctx, now.Add(59*time.Minute), time.Hour, limits)
	require.False(t, ok)

	ok, _ = store.Acquire(ctx, now.Add(time.Hour), time.Hour, limits)
	assert.True(t, ok, "a new window must start once resetAt is reached")

	state, _ := store.Get(ctx, now.Add(time.Hour), "k")
	assert.Equal(t, 1, state.Count)
	assert.Equal(t, now.Add(2*time.Hour), state.ResetAt)
}

func TestMemoryCounterStore_UnenforcedLimitsAreSkipped(t *testing.T) {
	store := NewMemoryCounterStore()
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 100; i++ {
		ok, err := store.Acquire(ctx, now, time.Hour, []domain.CounterLimit{{Key: "server", Limit: 0}})
		require.NoError(t, err)
		require.True(t, ok)
	}
	assert.Equal(t, 0, store.Len())
}

func TestMemoryCounterStore_ConcurrentAcquireNeverExceedsLimit(t *testing.T) {
	store := NewMemoryCounterStore()
	ctx := context.Background()
	now := time.Now()
	limits := []domain.CounterLimit{{Key: "user:x", Limit: 50}}

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := store.Acquire(ctx, now, time.Hour, limits); ok {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, admitted)
	state, _ := store.Get(ctx, now, "user:x")
	assert.Equal(t, 50, state.Count)
}

func TestMemoryCounterStore_Cleanup(t *testing.T) {
	store := NewMemoryCounterStore()
	ctx := context.Background()
	now := time.Now()

	_, _ = store.Acquire(ctx, now, time.Minute, []domain.CounterLimit{{Key: "a", Limit: 1}})
	_, _ = store.Acquire(ctx, now, time.Hour, []domain.CounterLimit{{Key: "b", Limit: 1}})
	require.Equal(t, 2, store.Len())

	require.NoError(t, store.Cleanup(ctx, now.Add(2*time.Minute)))
	assert.Equal(t, 1, store.Len())
}
