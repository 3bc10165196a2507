package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all relay configuration in a structured way.
type Config struct {
	App      AppConfig
	Bot      BotConfig
	Relay    RelayConfig
	Status   StatusConfig
	Snapshot SnapshotConfig
	Database DatabaseConfig
	Valkey   ValkeyConfig
}

type AppConfig struct {
	Version    string
	Debug      bool
	InstanceID string
	DataDir    string
}

type BotConfig struct {
	Token string
	// ID is the Commandless bot id. Empty means register on startup.
	ID string
}

type RelayConfig struct {
	APIKey             string
	ServiceURL         string
	HMACSecret         string
	DisableConfigCache bool
	MentionRequired    bool
	ConfigRefresh      time.Duration
	MaxAttempts        int
	BackoffBase        time.Duration
	BackoffMax         time.Duration
	RequestTimeout     time.Duration
	RequestRate        float64
	RequestBurst       int
	QueueSize          int
	QueueWorkers       int
	HeartbeatInterval  time.Duration
}

type StatusConfig struct {
	Enabled bool
	Host    string
	Port    int
}

type SnapshotConfig struct {
	// Driver is one of none, sqlite, postgres, valkey.
	Driver string
	// Path is the sqlite file, or the database name for postgres.
	Path string
	TTL  time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
}

type ValkeyConfig struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

const Version = "v0.4.0"

// secretKeys may only come from the environment.
var secretKeys = map[string]string{
	"bot.token":               "BOT_TOKEN",
	"commandless.api_key":     "COMMANDLESS_API_KEY",
	"commandless.hmac_secret": "COMMANDLESS_HMAC_SECRET",
	"db.password":             "DB_PASSWORD",
	"valkey.password":         "VALKEY_PASSWORD",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.debug", false)
	v.SetDefault("app.instance_id", "")
	v.SetDefault("app.data_dir", "storages")

	v.SetDefault("bot.token", "")
	v.SetDefault("bot.id", "")

	v.SetDefault("commandless.api_key", "")
	v.SetDefault("commandless.service_url", "https://api.commandless.app")
	v.SetDefault("commandless.hmac_secret", "")

	v.SetDefault("relay.disable_config_cache", false)
	v.SetDefault("relay.mention_required", true)
	v.SetDefault("relay.config_refresh", "30s")
	v.SetDefault("relay.max_attempts", 4)
	v.SetDefault("relay.backoff_base", "250ms")
	v.SetDefault("relay.backoff_max", "4s")
	v.SetDefault("relay.request_timeout", "10s")
	v.SetDefault("relay.request_rate", 0)
	v.SetDefault("relay.request_burst", 1)
	v.SetDefault("relay.queue_size", 256)
	v.SetDefault("relay.queue_workers", 1)
	v.SetDefault("relay.heartbeat_interval", "60s")

	v.SetDefault("status.enabled", true)
	v.SetDefault("status.host", "127.0.0.1")
	v.SetDefault("status.port", 3100)

	v.SetDefault("snapshot.driver", "none")
	v.SetDefault("snapshot.path", "")
	v.SetDefault("snapshot.ttl", "0s")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")

	v.SetDefault("valkey.address", "localhost:6379")
	v.SetDefault("valkey.password", "")
	v.SetDefault("valkey.db", 0)
	v.SetDefault("valkey.key_prefix", "commandless:")
}

// LoadConfig loads configuration with environment > config file > defaults precedence.
// Keys map to environment variables by upper-casing and replacing dots, so
// relay.queue_size is RELAY_QUEUE_SIZE.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := validateNoSecretsInConfig(v); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		App: AppConfig{
			Version:    Version,
			Debug:      v.GetBool("app.debug"),
			InstanceID: v.GetString("app.instance_id"),
			DataDir:    v.GetString("app.data_dir"),
		},
		Bot: BotConfig{
			Token: strings.TrimSpace(v.GetString("bot.token")),
			ID:    strings.TrimSpace(v.GetString("bot.id")),
		},
		Relay: RelayConfig{
			APIKey:             strings.TrimSpace(v.GetString("commandless.api_key")),
			ServiceURL:         strings.TrimRight(v.GetString("commandless.service_url"), "/"),
			HMACSecret:         v.GetString("commandless.hmac_secret"),
			DisableConfigCache: v.GetBool("relay.disable_config_cache"),
			MentionRequired:    v.GetBool("relay.mention_required"),
			ConfigRefresh:      v.GetDuration("relay.config_refresh"),
			MaxAttempts:        v.GetInt("relay.max_attempts"),
			BackoffBase:        v.GetDuration("relay.backoff_base"),
			BackoffMax:         v.GetDuration("relay.backoff_max"),
			RequestTimeout:     v.GetDuration("relay.request_timeout"),
			RequestRate:        v.GetFloat64("relay.request_rate"),
			RequestBurst:       v.GetInt("relay.request_burst"),
			QueueSize:          v.GetInt("relay.queue_size"),
			QueueWorkers:       v.GetInt("relay.queue_workers"),
			HeartbeatInterval:  v.GetDuration("relay.heartbeat_interval"),
		},
		Status: StatusConfig{
			Enabled: v.GetBool("status.enabled"),
			Host:    v.GetString("status.host"),
			Port:    v.GetInt("status.port"),
		},
		Snapshot: SnapshotConfig{
			Driver: strings.ToLower(strings.TrimSpace(v.GetString("snapshot.driver"))),
			Path:   v.GetString("snapshot.path"),
			TTL:    v.GetDuration("snapshot.ttl"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("db.host"),
			Port:     v.GetInt("db.port"),
			User:     v.GetString("db.user"),
			Password: v.GetString("db.password"),
		},
		Valkey: ValkeyConfig{
			Address:   v.GetString("valkey.address"),
			Password:  v.GetString("valkey.password"),
			DB:        v.GetInt("valkey.db"),
			KeyPrefix: v.GetString("valkey.key_prefix"),
		},
	}

	if cfg.Snapshot.Driver == "" {
		cfg.Snapshot.Driver = "none"
	}

	return cfg, nil
}

// validateNoSecretsInConfig enforces environment-only secrets.
func validateNoSecretsInConfig(v *viper.Viper) error {
	for key, env := range secretKeys {
		if v.InConfig(key) {
			return fmt.Errorf("%s not allowed in config files (use the %s environment variable)", key, env)
		}
	}
	return nil
}
