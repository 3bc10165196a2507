package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GMOnyx/Commandlessapp-sub000/relay/domain"
	"github.com/GMOnyx/Commandlessapp-sub000/relay/repository"
	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

const (
	DefaultRefreshInterval = 30 * time.Second
	DefaultConfigTTL       = 30 * time.Second
)

// ConfigFetcher loads the current BotConfig from the backend.
type ConfigFetcher interface {
	FetchConfig(ctx context.Context, botID string) (*domain.BotConfig, error)
}

type CacheOption func(*ConfigCache)

func WithClock(clk clock.Clock) CacheOption {
	return func(c *ConfigCache) { c.clock = clk }
}

func WithRefreshInterval(d time.Duration) CacheOption {
	return func(c *ConfigCache) {
		if d > 0 {
			c.refreshInterval = d
		}
	}
}

func WithConfigTTL(d time.Duration) CacheOption {
	return func(c *ConfigCache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithSnapshotStore persists every successful fetch and warm-starts Init from it.
func WithSnapshotStore(store domain.SnapshotStore) CacheOption {
	return func(c *ConfigCache) { c.store = store }
}

func WithCounterStore(store domain.CounterStore) CacheOption {
	return func(c *ConfigCache) { c.counters = store }
}

// WithFetchTimeout bounds each background refresh call.
func WithFetchTimeout(d time.Duration) CacheOption {
	return func(c *ConfigCache) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

type cacheEntry struct {
	config    atomic.Pointer[domain.BotConfig]
	fetchedAt atomic.Int64
	lastError atomic.Pointer[string]
}

// SnapshotInfo describes one cached snapshot for status output.
type SnapshotInfo struct {
	BotID     string            `json:"bot_id"`
	Version   int64             `json:"version"`
	FetchedAt time.Time         `json:"fetched_at"`
	Stale     bool              `json:"stale"`
	LastError string            `json:"last_error,omitempty"`
	Config    *domain.BotConfig `json:"config,omitempty"`
}

// ConfigCache holds the latest BotConfig per bot and answers admission queries
// from memory. Snapshots are swapped atomically and never mutated after publish.
type ConfigCache struct {
	fetcher  ConfigFetcher
	store    domain.SnapshotStore
	counters domain.CounterStore
	limiter  *RateLimiter
	clock    clock.Clock

	refreshInterval time.Duration
	ttl             time.Duration
	fetchTimeout    time.Duration

	mu      sync.RWMutex
	entries map[string]*cacheEntry

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewConfigCache(fetcher ConfigFetcher, opts ...CacheOption) *ConfigCache {
	c := &ConfigCache{
		fetcher:         fetcher,
		clock:           clock.New(),
		refreshInterval: DefaultRefreshInterval,
		ttl:             DefaultConfigTTL,
		fetchTimeout:    10 * time.Second,
		entries:         make(map[string]*cacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.counters == nil {
		c.counters = repository.NewMemoryCounterStore()
	}
	c.limiter = NewRateLimiter(c.counters, c.clock)
	return c
}

// Limiter exposes the embedded rate limiter.
func (c *ConfigCache) Limiter() *RateLimiter {
	return c.limiter
}

// Track adds botID to the set refreshed by the background loop.
func (c *ConfigCache) Track(botID string) {
	c.entry(botID, true)
}

func (c *ConfigCache) entry(botID string, create bool) *cacheEntry {
	c.mu.RLock()
	e, ok := c.entries[botID]
	c.mu.RUnlock()
	if ok || !create {
		return e
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok = c.entries[botID]; !ok {
		e = &cacheEntry{}
		c.entries[botID] = e
	}
	return e
}

func (c *ConfigCache) trackedIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Init tracks the bots and performs the first fetch. A bot whose fetch fails is
// warm-started from the snapshot store when one is configured. The returned error
// lists the bots left without any policy; it is informational, admission still
// works for them ("no config").
func (c *ConfigCache) Init(ctx context.Context, botIDs ...string) error {
	var errs []error
	for _, botID := range botIDs {
		c.Track(botID)
		_, err := c.Fetch(ctx, botID)
		if err == nil {
			continue
		}
		logrus.WithError(err).WithField("bot_id", botID).Warn("[CONFIG_CACHE] initial fetch failed")
		if c.warmStart(ctx, botID) {
			continue
		}
		errs = append(errs, fmt.Errorf("bot %s: %w", botID, err))
	}
	return errors.Join(errs...)
}

func (c *ConfigCache) warmStart(ctx context.Context, botID string) bool {
	if c.store == nil {
		return false
	}
	snap, err := c.store.Load(ctx, botID)
	if err != nil {
		logrus.WithError(err).WithField("bot_id", botID).Warn("[CONFIG_CACHE] failed to load stored snapshot")
		return false
	}
	if snap == nil || snap.Config == nil {
		return false
	}
	if err := snap.Config.Validate(); err != nil {
		logrus.WithError(err).WithField("bot_id", botID).Warn("[CONFIG_CACHE] stored snapshot is invalid, ignoring it")
		return false
	}
	c.publish(botID, snap.Config, snap.FetchedAt)
	logrus.WithFields(logrus.Fields{
		"bot_id":     botID,
		"version":    snap.Config.Version,
		"fetched_at": snap.FetchedAt,
	}).Info("[CONFIG_CACHE] warm start from stored snapshot")
	return true
}

func (c *ConfigCache) publish(botID string, cfg *domain.BotConfig, fetchedAt time.Time) {
	e := c.entry(botID, true)
	e.config.Store(cfg)
	e.fetchedAt.Store(fetchedAt.UnixNano())
}

// Fetch loads the config for botID and, on success, replaces the cached snapshot and
// resets its TTL. On failure the previous snapshot stays in place.
func (c *ConfigCache) Fetch(ctx context.Context, botID string) (*domain.BotConfig, error) {
	e := c.entry(botID, true)

	cfg, err := c.fetcher.FetchConfig(ctx, botID)
	if err == nil && cfg == nil {
		err = errors.New("empty config response")
	}
	if err != nil {
		msg := err.Error()
		e.lastError.Store(&msg)
		return nil, fmt.Errorf("failed to fetch config for %s: %w", botID, err)
	}

	// The published pointer is private to the cache.
	cfg = cfg.Clone()
	if cfg.BotID == "" {
		cfg.BotID = botID
	}
	now := c.clock.Now()
	c.publish(botID, cfg, now)
	e.lastError.Store(nil)

	if c.store != nil {
		if err := c.store.Save(ctx, botID, domain.StoredSnapshot{Config: cfg, FetchedAt: now}); err != nil {
			logrus.WithError(err).WithField("bot_id", botID).Warn("[CONFIG_CACHE] failed to persist snapshot")
		}
	}
	return cfg, nil
}

// Refresh fetches every tracked bot once. Failures are logged.
func (c *ConfigCache) Refresh(ctx context.Context) {
	for _, botID := range c.trackedIDs() {
		fctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
		cfg, err := c.Fetch(fctx, botID)
		cancel()
		if err != nil {
			logrus.WithError(err).WithField("bot_id", botID).Warn("[CONFIG_CACHE] refresh failed, keeping previous snapshot")
			continue
		}
		logrus.WithFields(logrus.Fields{"bot_id": botID, "version": cfg.Version}).Debug("[CONFIG_CACHE] refreshed")
	}
}

// Start runs the periodic refresh loop until Stop or ctx is done.
func (c *ConfigCache) Start(ctx context.Context) {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	if c.cancel != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	ticker := c.clock.Ticker(c.refreshInterval)
	c.limiter.StartCleanup(domain.RateLimitWindow)

	go func(done chan struct{}) {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				c.Refresh(loopCtx)
			}
		}
	}(c.done)

	logrus.WithField("interval", c.refreshInterval).Info("[CONFIG_CACHE] refresh loop started")
}

// Stop halts the refresh loop and waits for it to exit.
func (c *ConfigCache) Stop() {
	c.lifecycle.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.lifecycle.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	c.limiter.Stop()
	logrus.Info("[CONFIG_CACHE] refresh loop stopped")
}

// Snapshot returns the cached config for botID, or nil. The result is shared and
// must not be modified.
func (c *ConfigCache) Snapshot(botID string) *domain.BotConfig {
	e := c.entry(botID, false)
	if e == nil {
		return nil
	}
	return e.config.Load()
}

// FetchedAt returns when the current snapshot was fetched.
func (c *ConfigCache) FetchedAt(botID string) (time.Time, bool) {
	e := c.entry(botID, false)
	if e == nil || e.config.Load() == nil {
		return time.Time{}, false
	}
	return time.Unix(0, e.fetchedAt.Load()), true
}

// IsStale reports whether the snapshot is missing or older than the TTL.
func (c *ConfigCache) IsStale(botID string) bool {
	at, ok := c.FetchedAt(botID)
	if !ok {
		return true
	}
	return c.clock.Since(at) > c.ttl
}

// Snapshots lists every tracked bot, sorted by id.
func (c *ConfigCache) Snapshots() []SnapshotInfo {
	ids := c.trackedIDs()
	out := make([]SnapshotInfo, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.info(id))
	}
	return out
}

// SnapshotInfo returns the status view for one bot.
func (c *ConfigCache) SnapshotInfo(botID string) (SnapshotInfo, bool) {
	if c.entry(botID, false) == nil {
		return SnapshotInfo{}, false
	}
	return c.info(botID), true
}

func (c *ConfigCache) info(botID string) SnapshotInfo {
	e := c.entry(botID, false)
	info := SnapshotInfo{BotID: botID, Stale: c.IsStale(botID)}
	if e == nil {
		return info
	}
	if msg := e.lastError.Load(); msg != nil {
		info.LastError = *msg
	}
	if cfg := e.config.Load(); cfg != nil {
		info.Version = cfg.Version
		info.FetchedAt = time.Unix(0, e.fetchedAt.Load()).UTC()
		info.Config = cfg.Clone()
	}
	return info
}

// Trigger returns the snapshot's trigger policy when a snapshot exists.
func (c *ConfigCache) Trigger(botID string) (domain.TriggerPolicy, bool) {
	cfg := c.Snapshot(botID)
	if cfg == nil {
		return domain.TriggerPolicy{}, false
	}
	return cfg.Trigger(), true
}
