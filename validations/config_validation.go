package validations

import (
	"errors"
	"fmt"

	"github.com/GMOnyx/Commandlessapp-sub000/core/config"
	"github.com/GMOnyx/Commandlessapp-sub000/infrastructure/commandless"
	pkgError "github.com/GMOnyx/Commandlessapp-sub000/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

var snapshotDrivers = []any{"none", "sqlite", "postgres", "valkey"}

var apiKeyRule = validation.By(func(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := commandless.ParseAPIKey(s); err != nil {
		return errors.New("must have the form keyId:secret")
	}
	return nil
})

// ValidateConfig checks the settings every command needs.
func ValidateConfig(cfg *config.Config) error {
	if cfg == nil {
		return pkgError.ValidationError("config is required")
	}
	r := cfg.Relay
	err := validation.Errors{
		"commandless.api_key":      validation.Validate(r.APIKey, validation.Required, apiKeyRule),
		"commandless.service_url":  validation.Validate(r.ServiceURL, validation.Required, is.URL),
		"relay.max_attempts":       validation.Validate(r.MaxAttempts, validation.Required, validation.Min(1), validation.Max(10)),
		"relay.backoff_base":       validation.Validate(r.BackoffBase, validation.Min(0)),
		"relay.backoff_max":        validation.Validate(r.BackoffMax, validation.Min(r.BackoffBase)),
		"relay.request_timeout":    validation.Validate(r.RequestTimeout, validation.Required, validation.Min(0)),
		"relay.request_rate":       validation.Validate(r.RequestRate, validation.Min(0.0)),
		"relay.queue_size":         validation.Validate(r.QueueSize, validation.Required, validation.Min(1)),
		"relay.queue_workers":      validation.Validate(r.QueueWorkers, validation.Required, validation.Min(1)),
		"relay.config_refresh":     validation.Validate(r.ConfigRefresh, validation.When(!r.DisableConfigCache, validation.Required, validation.Min(0))),
		"relay.heartbeat_interval": validation.Validate(r.HeartbeatInterval, validation.Min(0)),
		"status.port":              validation.Validate(cfg.Status.Port, validation.When(cfg.Status.Enabled, validation.Required, validation.Min(1), validation.Max(65535))),
		"snapshot.driver":          validation.Validate(cfg.Snapshot.Driver, validation.Required, validation.In(snapshotDrivers...)),
		"db.port":                  validation.Validate(cfg.Database.Port, validation.When(cfg.Snapshot.Driver == "postgres", validation.Required, validation.Min(1), validation.Max(65535))),
		"db.host":                  validation.Validate(cfg.Database.Host, validation.When(cfg.Snapshot.Driver == "postgres", validation.Required)),
		"valkey.address":           validation.Validate(cfg.Valkey.Address, validation.When(cfg.Snapshot.Driver == "valkey", validation.Required, is.DialString)),
	}.Filter()

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}

// ValidateRunConfig additionally requires the Discord credentials.
func ValidateRunConfig(cfg *config.Config) error {
	if err := ValidateConfig(cfg); err != nil {
		return err
	}
	if err := validation.Validate(cfg.Bot.Token, validation.Required); err != nil {
		return pkgError.ValidationError(fmt.Sprintf("bot.token: %v", err))
	}
	return nil
}
