package application

import (
	"context"
	"sync"
	"time"

	"github.com/GMOnyx/Commandlessapp-sub000/relay/domain"
	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

// RateLimiter enforces per-user and per-bot fixed-window limits on top of a CounterStore.
type RateLimiter struct {
	store  domain.CounterStore
	clock  clock.Clock
	window time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewRateLimiter(store domain.CounterStore, clk clock.Clock) *RateLimiter {
	if clk == nil {
		clk = clock.New()
	}
	return &RateLimiter{store: store, clock: clk, window: domain.RateLimitWindow}
}

func UserCounterKey(botID, userID string) string {
	return "user:" + botID + ":" + userID
}

func ServerCounterKey(botID string) string {
	return "server:" + botID
}

// Allow reserves one slot on both the user's tier limit and the bot-wide limit.
// Either both counters move or neither does.
func (r *RateLimiter) Allow(ctx context.Context, botID, userID string, userLimit, serverLimit int) (bool, error) {
	limits := []domain.CounterLimit{
		{Key: UserCounterKey(botID, userID), Limit: userLimit},
		{Key: ServerCounterKey(botID), Limit: serverLimit},
	}
	return r.store.Acquire(ctx, r.clock.Now(), r.window, limits)
}

// Usage returns the current user and server window for a subject.
func (r *RateLimiter) Usage(ctx context.Context, botID, userID string) (user, server domain.CounterState, err error) {
	now := r.clock.Now()
	if user, err = r.store.Get(ctx, now, UserCounterKey(botID, userID)); err != nil {
		return
	}
	server, err = r.store.Get(ctx, now, ServerCounterKey(botID))
	return
}

// StartCleanup evicts expired windows every interval until Stop.
func (r *RateLimiter) StartCleanup(interval time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopCh != nil || interval <= 0 {
		return
	}
	r.stopCh = make(chan struct{})
	ticker := r.clock.Ticker(interval)

	r.wg.Add(1)
	go func(stop chan struct{}) {
		defer r.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := r.store.Cleanup(context.Background(), r.clock.Now()); err != nil {
					logrus.WithError(err).Warn("[RATE_LIMIT] cleanup failed")
				}
			}
		}
	}(r.stopCh)
}

func (r *RateLimiter) Stop() {
	r.mu.Lock()
	stop := r.stopCh
	r.stopCh = nil
	r.mu.Unlock()

	if stop != nil {
		close(stop)
		r.wg.Wait()
	}
}
