package validations

import (
	"testing"
	"time"

	"github.com/GMOnyx/Commandlessapp-sub000/core/config"
	pkgError "github.com/GMOnyx/Commandlessapp-sub000/pkg/error"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *config.Config {
	return &config.Config{
		Bot: config.BotConfig{Token: "discord-token"},
		Relay: config.RelayConfig{
			APIKey:            "key_1:secret",
			ServiceURL:        "https://api.commandless.app",
			MentionRequired:   true,
			ConfigRefresh:     30 * time.Second,
			MaxAttempts:       4,
			BackoffBase:       250 * time.Millisecond,
			BackoffMax:        4 * time.Second,
			RequestTimeout:    10 * time.Second,
			QueueSize:         256,
			QueueWorkers:      1,
			HeartbeatInterval: time.Minute,
		},
		Status:   config.StatusConfig{Enabled: true, Host: "127.0.0.1", Port: 3100},
		Snapshot: config.SnapshotConfig{Driver: "none"},
		Database: config.DatabaseConfig{Host: "localhost", Port: 5432},
		Valkey:   config.ValkeyConfig{Address: "localhost:6379"},
	}
}

func TestValidateConfig_Valid(t *testing.T) {
	require.NoError(t, ValidateConfig(validConfig()))
	require.NoError(t, ValidateRunConfig(validConfig()))
}

func TestValidateConfig_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		field  string
	}{
		{"missing api key", func(c *config.Config) { c.Relay.APIKey = "" }, "commandless.api_key"},
		{"api key without secret", func(c *config.Config) { c.Relay.APIKey = "key_1" }, "commandless.api_key"},
		{"bad service url", func(c *config.Config) { c.Relay.ServiceURL = "not a url" }, "commandless.service_url"},
		{"zero attempts", func(c *config.Config) { c.Relay.MaxAttempts = 0 }, "relay.max_attempts"},
		{"backoff max below base", func(c *config.Config) { c.Relay.BackoffMax = time.Millisecond }, "relay.backoff_max"},
		{"zero queue", func(c *config.Config) { c.Relay.QueueSize = 0 }, "relay.queue_size"},
		{"zero refresh", func(c *config.Config) { c.Relay.ConfigRefresh = 0 }, "relay.config_refresh"},
		{"status port out of range", func(c *config.Config) { c.Status.Port = 70000 }, "status.port"},
		{"unknown driver", func(c *config.Config) { c.Snapshot.Driver = "mongo" }, "snapshot.driver"},
		{"valkey without address", func(c *config.Config) {
			c.Snapshot.Driver = "valkey"
			c.Valkey.Address = ""
		}, "valkey.address"},
		{"postgres without host", func(c *config.Config) {
			c.Snapshot.Driver = "postgres"
			c.Database.Host = ""
		}, "db.host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)

			var vErr pkgError.ValidationError
			assert.ErrorAs(t, err, &vErr)
		})
	}
}

func TestValidateConfig_RelaxedWhenDisabled(t *testing.T) {
	cfg := validConfig()
	cfg.Relay.DisableConfigCache = true
	cfg.Relay.ConfigRefresh = 0
	cfg.Status.Enabled = false
	cfg.Status.Port = 0
	assert.NoError(t, ValidateConfig(cfg))
}

func TestValidateRunConfig_RequiresToken(t *testing.T) {
	cfg := validConfig()
	cfg.Bot.Token = ""
	assert.NoError(t, ValidateConfig(cfg))

	err := ValidateRunConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot.token")
}

func TestValidateConfig_Nil(t *testing.T) {
	assert.Error(t, ValidateConfig(nil))
}
