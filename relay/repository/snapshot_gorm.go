package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/GMOnyx/Commandlessapp-sub000/relay/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BotConfigSnapshotModel struct {
	BotID     string    `gorm:"primaryKey;column:bot_id"`
	Version   int64     `gorm:"column:version"`
	Payload   string    `gorm:"column:payload;type:text"`
	FetchedAt time.Time `gorm:"column:fetched_at"`
}

func (BotConfigSnapshotModel) TableName() string {
	return "bot_config_snapshots"
}

// SnapshotGormRepository persists snapshots in sqlite or postgres.
type SnapshotGormRepository struct {
	db *gorm.DB
}

func NewSnapshotGormRepository(db *gorm.DB) *SnapshotGormRepository {
	return &SnapshotGormRepository{db: db}
}

func (r *SnapshotGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&BotConfigSnapshotModel{})
}

func (r *SnapshotGormRepository) Load(ctx context.Context, botID string) (*domain.StoredSnapshot, error) {
	var m BotConfigSnapshotModel
	if err := r.db.WithContext(ctx).First(&m, "bot_id = ?", botID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var cfg domain.BotConfig
	if err := json.Unmarshal([]byte(m.Payload), &cfg); err != nil {
		return nil, fmt.Errorf("corrupt snapshot for %s: %w", botID, err)
	}
	return &domain.StoredSnapshot{Config: &cfg, FetchedAt: m.FetchedAt}, nil
}

func (r *SnapshotGormRepository) Save(ctx context.Context, botID string, snap domain.StoredSnapshot) error {
	if snap.Config == nil {
		return fmt.Errorf("nil snapshot for %s", botID)
	}
	payload, err := json.Marshal(snap.Config)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "bot_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"version", "payload", "fetched_at"}),
	}).Create(&BotConfigSnapshotModel{
		BotID:     botID,
		Version:   snap.Config.Version,
		Payload:   string(payload),
		FetchedAt: snap.FetchedAt.UTC(),
	}).Error
}

func (r *SnapshotGormRepository) Delete(ctx context.Context, botID string) error {
	return r.db.WithContext(ctx).Delete(&BotConfigSnapshotModel{}, "bot_id = ?", botID).Error
}
