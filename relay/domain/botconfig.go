package domain

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ChannelMode controls which channels the bot listens to.
type ChannelMode string

const (
	ChannelModeAll       ChannelMode = "all"
	ChannelModeWhitelist ChannelMode = "whitelist"
	ChannelModeBlacklist ChannelMode = "blacklist"
)

// PermissionMode controls which users and roles may talk to the bot.
type PermissionMode string

const (
	PermissionModeAll         PermissionMode = "all"
	PermissionModeWhitelist   PermissionMode = "whitelist"
	PermissionModeBlacklist   PermissionMode = "blacklist"
	PermissionModePremiumOnly PermissionMode = "premium_only"
)

// TriggerMode decides what counts as addressing the bot in a plain message.
type TriggerMode string

const (
	TriggerModeMention TriggerMode = "mention"
	TriggerModePrefix  TriggerMode = "prefix"
	TriggerModeAlways  TriggerMode = "always"
)

// RateLimitWindow is the length of one fixed rate-limit window.
const RateLimitWindow = time.Hour

// BotConfig is the dashboard-managed policy snapshot for one bot. Snapshots are
// replaced wholesale; never mutate one that has been published.
type BotConfig struct {
	BotID            string         `json:"botId,omitempty"`
	Version          int64          `json:"version"`
	Enabled          bool           `json:"enabled"`
	ChannelMode      ChannelMode    `json:"channelMode"`
	EnabledChannels  []string       `json:"enabledChannels"`
	DisabledChannels []string       `json:"disabledChannels"`
	PermissionMode   PermissionMode `json:"permissionMode"`
	EnabledRoles     []string       `json:"enabledRoles"`
	DisabledRoles    []string       `json:"disabledRoles"`
	EnabledUsers     []string       `json:"enabledUsers"`
	DisabledUsers    []string       `json:"disabledUsers"`
	PremiumRoleIDs   []string       `json:"premiumRoleIds"`
	PremiumUserIDs   []string       `json:"premiumUserIds"`
	FreeRateLimit    int            `json:"freeRateLimit"`
	PremiumRateLimit int            `json:"premiumRateLimit"`
	ServerRateLimit  int            `json:"serverRateLimit"`
	MentionRequired  *bool          `json:"mentionRequired,omitempty"`
	TriggerMode      TriggerMode    `json:"triggerMode,omitempty"`
	CustomPrefix     string         `json:"customPrefix,omitempty"`
}

// Validate rejects configs with modes this relay does not understand. Empty modes
// are accepted and behave like "all" / "mention".
func (c BotConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ChannelMode, validation.In(ChannelModeAll, ChannelModeWhitelist, ChannelModeBlacklist)),
		validation.Field(&c.PermissionMode, validation.In(PermissionModeAll, PermissionModeWhitelist, PermissionModeBlacklist, PermissionModePremiumOnly)),
		validation.Field(&c.TriggerMode, validation.In(TriggerModeMention, TriggerModePrefix, TriggerModeAlways)),
		validation.Field(&c.CustomPrefix, validation.When(c.TriggerMode == TriggerModePrefix, validation.Required)),
	)
}

// TriggerPolicy is what the pre-filter needs to know, with defaults applied.
type TriggerPolicy struct {
	MentionRequired bool
	Mode            TriggerMode
	Prefix          string
}

// Trigger resolves the pre-filter policy. A missing mentionRequired means true.
func (c *BotConfig) Trigger() TriggerPolicy {
	p := TriggerPolicy{MentionRequired: true, Mode: c.TriggerMode, Prefix: c.CustomPrefix}
	if c.MentionRequired != nil {
		p.MentionRequired = *c.MentionRequired
	}
	if p.Mode == "" {
		p.Mode = TriggerModeMention
	}
	return p
}

// IsPremium reports whether the subject belongs to the premium tier.
func (c *BotConfig) IsPremium(userID string, roles []string) bool {
	return Contains(c.PremiumUserIDs, userID) || ContainsAny(c.PremiumRoleIDs, roles)
}

// Clone returns a deep copy so callers can inspect a snapshot without sharing slices.
func (c *BotConfig) Clone() *BotConfig {
	if c == nil {
		return nil
	}
	out := *c
	out.EnabledChannels = cloneStrings(c.EnabledChannels)
	out.DisabledChannels = cloneStrings(c.DisabledChannels)
	out.EnabledRoles = cloneStrings(c.EnabledRoles)
	out.DisabledRoles = cloneStrings(c.DisabledRoles)
	out.EnabledUsers = cloneStrings(c.EnabledUsers)
	out.DisabledUsers = cloneStrings(c.DisabledUsers)
	out.PremiumRoleIDs = cloneStrings(c.PremiumRoleIDs)
	out.PremiumUserIDs = cloneStrings(c.PremiumUserIDs)
	if c.MentionRequired != nil {
		v := *c.MentionRequired
		out.MentionRequired = &v
	}
	return &out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

// Contains reports whether v is in list. Empty ids never match.
func Contains(list []string, v string) bool {
	if v == "" {
		return false
	}
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// ContainsAny reports whether any of values is in list.
func ContainsAny(list []string, values []string) bool {
	for _, v := range values {
		if Contains(list, v) {
			return true
		}
	}
	return false
}
