package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/GMOnyx/Commandlessapp-sub000/infrastructure/valkey"
	"github.com/GMOnyx/Commandlessapp-sub000/relay/domain"
)

// SnapshotValkeyStore shares the last good snapshot between shards of the same bot.
type SnapshotValkeyStore struct {
	client *valkey.Client
	ttl    time.Duration
}

// NewSnapshotValkeyStore creates the store. A ttl of zero keeps snapshots until overwritten.
func NewSnapshotValkeyStore(client *valkey.Client, ttl time.Duration) *SnapshotValkeyStore {
	return &SnapshotValkeyStore{client: client, ttl: ttl}
}

func (s *SnapshotValkeyStore) key(botID string) string {
	return s.client.Key("snapshot", botID)
}

func (s *SnapshotValkeyStore) Load(ctx context.Context, botID string) (*domain.StoredSnapshot, error) {
	var snap domain.StoredSnapshot
	found, err := s.client.GetJSON(ctx, s.key(botID), &snap)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if !found || snap.Config == nil {
		return nil, nil
	}
	return &snap, nil
}

func (s *SnapshotValkeyStore) Save(ctx context.Context, botID string, snap domain.StoredSnapshot) error {
	if snap.Config == nil {
		return fmt.Errorf("nil snapshot for %s", botID)
	}
	return s.client.SetJSON(ctx, s.key(botID), snap, s.ttl)
}

func (s *SnapshotValkeyStore) Delete(ctx context.Context, botID string) error {
	return s.client.Del(ctx, s.key(botID))
}
