package config

import "strings"

// Settings returns the loaded configuration as a flat map with secrets masked.
func (c *Config) Settings() map[string]any {
	return map[string]any{
		"app_version":                c.App.Version,
		"app_debug":                  c.App.Debug,
		"bot_id":                     c.Bot.ID,
		"bot_token":                  MaskSecret(c.Bot.Token),
		"commandless_api_key":        MaskSecret(c.Relay.APIKey),
		"commandless_service_url":    c.Relay.ServiceURL,
		"commandless_hmac_secret":    MaskSecret(c.Relay.HMACSecret),
		"relay_disable_config_cache": c.Relay.DisableConfigCache,
		"relay_mention_required":     c.Relay.MentionRequired,
		"relay_config_refresh":       c.Relay.ConfigRefresh.String(),
		"relay_max_attempts":         c.Relay.MaxAttempts,
		"relay_request_timeout":      c.Relay.RequestTimeout.String(),
		"relay_request_rate":         c.Relay.RequestRate,
		"relay_queue_size":           c.Relay.QueueSize,
		"relay_heartbeat_interval":   c.Relay.HeartbeatInterval.String(),
		"status_enabled":             c.Status.Enabled,
		"status_port":                c.Status.Port,
		"snapshot_driver":            c.Snapshot.Driver,
	}
}

// MaskSecret keeps the first characters of a secret so operators can tell keys apart.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-4)
}
