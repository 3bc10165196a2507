package database

import (
	"fmt"
	"time"

	"github.com/GMOnyx/Commandlessapp-sub000/core/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSnapshotDatabase opens the database backing the gorm snapshot store.
// For sqlite the path is a file, for postgres it is the database name.
func NewSnapshotDatabase(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	path := cfg.Snapshot.Path

	switch cfg.Snapshot.Driver {
	case "postgres":
		if path == "" {
			path = "commandless_relay"
		}
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
			cfg.Database.Host,
			cfg.Database.User,
			cfg.Database.Password,
			path,
			cfg.Database.Port,
		)
		dialector = postgres.Open(dsn)
	case "sqlite":
		if path == "" {
			path = "relay.db"
		}
		dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", path)
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Snapshot.Driver)
	}

	logLevel := logger.Warn
	if cfg.App.Debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database (%s): %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB instance: %w", err)
	}

	if cfg.Snapshot.Driver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(2)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}
