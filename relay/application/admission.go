package application

import (
	"context"

	"github.com/GMOnyx/Commandlessapp-sub000/relay/domain"
	"github.com/sirupsen/logrus"
)

const (
	ReasonBotDisabled       = "bot disabled"
	ReasonChannelNotEnabled = "channel not enabled"
	ReasonChannelDisabled   = "channel disabled"
	ReasonUserBlocked       = "user blocked"
	ReasonUserNotPermitted  = "user not permitted"
	ReasonRateLimit         = "rate limit"
	ReasonNoConfig          = "no config"
)

// ShouldProcessMessage runs the local admission check for one message. Rules are
// evaluated in a fixed order and the first one that applies decides. It only reads
// the cached snapshot and the in-memory counters.
func (c *ConfigCache) ShouldProcessMessage(botID string, msg domain.MessageContext) domain.Admission {
	cfg := c.Snapshot(botID)
	if cfg == nil {
		return domain.Admission{Allowed: true, Reason: ReasonNoConfig}
	}

	if reason, blocked := checkPolicy(cfg, msg); blocked {
		return domain.Admission{Reason: reason}
	}

	userLimit := cfg.FreeRateLimit
	if cfg.IsPremium(msg.AuthorID, msg.MemberRoles) {
		userLimit = cfg.PremiumRateLimit
	}

	ok, err := c.limiter.Allow(context.Background(), botID, msg.AuthorID, userLimit, cfg.ServerRateLimit)
	if err != nil {
		logrus.WithError(err).WithField("bot_id", botID).Warn("[CONFIG_CACHE] counter store failed, admitting")
		return domain.Admission{Allowed: true}
	}
	if !ok {
		return domain.Admission{Reason: ReasonRateLimit}
	}
	return domain.Admission{Allowed: true}
}

// checkPolicy applies the enabled flag, channel scoping and permission scoping.
func checkPolicy(cfg *domain.BotConfig, msg domain.MessageContext) (string, bool) {
	if !cfg.Enabled {
		return ReasonBotDisabled, true
	}

	switch cfg.ChannelMode {
	case domain.ChannelModeWhitelist:
		if !domain.Contains(cfg.EnabledChannels, msg.ChannelID) {
			return ReasonChannelNotEnabled, true
		}
	case domain.ChannelModeBlacklist:
		if domain.Contains(cfg.DisabledChannels, msg.ChannelID) {
			return ReasonChannelDisabled, true
		}
	}

	switch cfg.PermissionMode {
	case domain.PermissionModeBlacklist:
		if domain.Contains(cfg.DisabledUsers, msg.AuthorID) || domain.ContainsAny(cfg.DisabledRoles, msg.MemberRoles) {
			return ReasonUserBlocked, true
		}
	case domain.PermissionModeWhitelist:
		if !domain.Contains(cfg.EnabledUsers, msg.AuthorID) && !domain.ContainsAny(cfg.EnabledRoles, msg.MemberRoles) {
			return ReasonUserNotPermitted, true
		}
	}
	// premium_only only selects the rate tier.
	return "", false
}
