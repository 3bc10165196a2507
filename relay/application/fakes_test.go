package application

import (
	"context"
	"errors"
	"sync"

	"github.com/GMOnyx/Commandlessapp-sub000/relay/domain"
)

var errBackendDown = errors.New("backend down")

type fakeFetcher struct {
	mu      sync.Mutex
	configs map[string]*domain.BotConfig
	err     error
	calls   int
}

func newFakeFetcher(configs map[string]*domain.BotConfig) *fakeFetcher {
	return &fakeFetcher{configs: configs}
}

func (f *fakeFetcher) FetchConfig(ctx context.Context, botID string) (*domain.BotConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	cfg, ok := f.configs[botID]
	if !ok {
		return nil, errors.New("unknown bot")
	}
	return cfg.Clone(), nil
}

func (f *fakeFetcher) set(botID string, cfg *domain.BotConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configs[botID] = cfg
}

func (f *fakeFetcher) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type memorySnapshotStore struct {
	mu    sync.Mutex
	snaps map[string]domain.StoredSnapshot
}

func newMemorySnapshotStore() *memorySnapshotStore {
	return &memorySnapshotStore{snaps: make(map[string]domain.StoredSnapshot)}
}

func (s *memorySnapshotStore) Load(ctx context.Context, botID string) (*domain.StoredSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snaps[botID]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (s *memorySnapshotStore) Save(ctx context.Context, botID string, snap domain.StoredSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[botID] = snap
	return nil
}

func (s *memorySnapshotStore) Delete(ctx context.Context, botID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, botID)
	return nil
}

// openConfig admits everyone with the given per-user free limit.
func openConfig(freeLimit int) *domain.BotConfig {
	return &domain.BotConfig{
		Version:        1,
		Enabled:        true,
		ChannelMode:    domain.ChannelModeAll,
		PermissionMode: domain.PermissionModeAll,
		FreeRateLimit:  freeLimit,
	}
}
