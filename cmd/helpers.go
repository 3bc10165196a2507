package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/GMOnyx/Commandlessapp-sub000/core/config"
	"github.com/GMOnyx/Commandlessapp-sub000/core/database"
	"github.com/GMOnyx/Commandlessapp-sub000/infrastructure/commandless"
	"github.com/GMOnyx/Commandlessapp-sub000/infrastructure/valkey"
	"github.com/GMOnyx/Commandlessapp-sub000/relay/domain"
	"github.com/GMOnyx/Commandlessapp-sub000/relay/repository"
	"github.com/GMOnyx/Commandlessapp-sub000/validations"
	"github.com/sirupsen/logrus"
)

// loadConfig reads and validates the configuration. run additionally needs the
// Discord token.
func loadConfig(requireBot bool) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if debugFlag {
		cfg.App.Debug = true
	}
	if requireBot {
		err = validations.ValidateRunConfig(cfg)
	} else {
		err = validations.ValidateConfig(cfg)
	}
	if err != nil {
		return nil, err
	}
	logrus.WithFields(cfg.Settings()).Debug("[CONFIG] Loaded configuration")
	return cfg, nil
}

func newCommandlessClient(cfg *config.Config) (*commandless.Client, error) {
	r := cfg.Relay
	return commandless.New(r.ServiceURL, r.APIKey,
		commandless.WithHMACSecret(r.HMACSecret),
		commandless.WithTimeout(r.RequestTimeout),
		commandless.WithMaxAttempts(r.MaxAttempts),
		commandless.WithBackoff(r.BackoffBase, r.BackoffMax),
		commandless.WithRequestRate(r.RequestRate, r.RequestBurst),
		commandless.WithQueue(r.QueueSize, r.QueueWorkers),
		commandless.WithUserAgent("commandless-relay-go/"+cfg.App.Version),
	)
}

// openSnapshotStore returns nil when persistence is disabled. The returned close
// func is never nil.
func openSnapshotStore(ctx context.Context, cfg *config.Config) (domain.SnapshotStore, func(), error) {
	noop := func() {}

	switch cfg.Snapshot.Driver {
	case "", "none":
		return nil, noop, nil
	case "sqlite", "postgres":
		if cfg.Snapshot.Driver == "sqlite" {
			if cfg.Snapshot.Path == "" {
				cfg.Snapshot.Path = filepath.Join(cfg.App.DataDir, "relay.db")
			}
			if err := os.MkdirAll(filepath.Dir(cfg.Snapshot.Path), 0o755); err != nil {
				return nil, noop, fmt.Errorf("create snapshot dir: %w", err)
			}
		}
		db, err := database.NewSnapshotDatabase(cfg)
		if err != nil {
			return nil, noop, err
		}
		closeDB := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		repo := repository.NewSnapshotGormRepository(db)
		if err := repo.InitSchema(ctx); err != nil {
			closeDB()
			return nil, noop, fmt.Errorf("init snapshot schema: %w", err)
		}
		logrus.Infof("[CONFIG] Persisting config snapshots with %s", cfg.Snapshot.Driver)
		return repo, closeDB, nil
	case "valkey":
		client, err := valkey.NewClient(valkey.Config{
			Address:   cfg.Valkey.Address,
			Password:  cfg.Valkey.Password,
			DB:        cfg.Valkey.DB,
			KeyPrefix: cfg.Valkey.KeyPrefix,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("connect valkey: %w", err)
		}
		logrus.Infof("[CONFIG] Persisting config snapshots in valkey at %s", cfg.Valkey.Address)
		return repository.NewSnapshotValkeyStore(client, cfg.Snapshot.TTL), client.Close, nil
	default:
		return nil, noop, fmt.Errorf("unsupported snapshot driver %q", cfg.Snapshot.Driver)
	}
}
