package domain

import (
	"context"
	"time"
)

// StoredSnapshot is a persisted BotConfig with the time it was fetched.
type StoredSnapshot struct {
	Config    *BotConfig `json:"config"`
	FetchedAt time.Time  `json:"fetched_at"`
}

// SnapshotStore persists the last good BotConfig per bot so a restart during a
// backend outage still starts with a policy. Implementations can be local
// (sqlite/postgres via gorm) or shared between shards (Valkey).
type SnapshotStore interface {
	// Load returns nil when nothing was stored for botID.
	Load(ctx context.Context, botID string) (*StoredSnapshot, error)

	Save(ctx context.Context, botID string, snap StoredSnapshot) error

	Delete(ctx context.Context, botID string) error
}
