package application

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/GMOnyx/Commandlessapp-sub000/relay/domain"
	"github.com/benbjohnson/clock"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCacheWith(t *testing.T, cfg *domain.BotConfig, clk clock.Clock) *ConfigCache {
	t.Helper()
	cache := NewConfigCache(newFakeFetcher(map[string]*domain.BotConfig{"bot1": cfg}), WithClock(clk))
	_, err := cache.Fetch(context.Background(), "bot1")
	require.NoError(t, err)
	return cache
}

func TestShouldProcessMessage_Rules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.BotConfig)
		msg    domain.MessageContext
		want   domain.Admission
	}{
		{
			name:   "disabled bot",
			mutate: func(c *domain.BotConfig) { c.Enabled = false },
			msg:    domain.MessageContext{ChannelID: "c1", AuthorID: "u1"},
			want:   domain.Admission{Reason: ReasonBotDisabled},
		},
		{
			name: "whitelisted channel",
			mutate: func(c *domain.BotConfig) {
				c.ChannelMode = domain.ChannelModeWhitelist
				c.EnabledChannels = []string{"c1"}
			},
			msg:  domain.MessageContext{ChannelID: "c1", AuthorID: "u1"},
			want: domain.Admission{Allowed: true},
		},
		{
			name: "channel outside whitelist",
			mutate: func(c *domain.BotConfig) {
				c.ChannelMode = domain.ChannelModeWhitelist
				c.EnabledChannels = []string{"c1"}
			},
			msg:  domain.MessageContext{ChannelID: "c2", AuthorID: "u1"},
			want: domain.Admission{Reason: ReasonChannelNotEnabled},
		},
		{
			name: "blacklisted channel",
			mutate: func(c *domain.BotConfig) {
				c.ChannelMode = domain.ChannelModeBlacklist
				c.DisabledChannels = []string{"c2"}
			},
			msg:  domain.MessageContext{ChannelID: "c2", AuthorID: "u1"},
			want: domain.Admission{Reason: ReasonChannelDisabled},
		},
		{
			name: "disabled channels ignored in all mode",
			mutate: func(c *domain.BotConfig) {
				c.ChannelMode = domain.ChannelModeAll
				c.DisabledChannels = []string{"c2"}
			},
			msg:  domain.MessageContext{ChannelID: "c2", AuthorID: "u1"},
			want: domain.Admission{Allowed: true},
		},
		{
			name: "blacklisted user",
			mutate: func(c *domain.BotConfig) {
				c.PermissionMode = domain.PermissionModeBlacklist
				c.DisabledUsers = []string{"u1"}
			},
			msg:  domain.MessageContext{ChannelID: "c1", AuthorID: "u1"},
			want: domain.Admission{Reason: ReasonUserBlocked},
		},
		{
			name: "blacklisted role",
			mutate: func(c *domain.BotConfig) {
				c.PermissionMode = domain.PermissionModeBlacklist
				c.DisabledRoles = []string{"muted"}
			},
			msg:  domain.MessageContext{ChannelID: "c1", AuthorID: "u1", MemberRoles: []string{"member", "muted"}},
			want: domain.Admission{Reason: ReasonUserBlocked},
		},
		{
			name: "user outside whitelist",
			mutate: func(c *domain.BotConfig) {
				c.PermissionMode = domain.PermissionModeWhitelist
				c.EnabledUsers = []string{"u2"}
				c.EnabledRoles = []string{"mod"}
			},
			msg:  domain.MessageContext{ChannelID: "c1", AuthorID: "u1", MemberRoles: []string{"member"}},
			want: domain.Admission{Reason: ReasonUserNotPermitted},
		},
		{
			name: "whitelisted by role",
			mutate: func(c *domain.BotConfig) {
				c.PermissionMode = domain.PermissionModeWhitelist
				c.EnabledRoles = []string{"mod"}
			},
			msg:  domain.MessageContext{ChannelID: "c1", AuthorID: "u1", MemberRoles: []string{"mod"}},
			want: domain.Admission{Allowed: true},
		},
		{
			name:   "premium only does not block free users",
			mutate: func(c *domain.BotConfig) { c.PermissionMode = domain.PermissionModePremiumOnly },
			msg:    domain.MessageContext{ChannelID: "c1", AuthorID: "u1"},
			want:   domain.Admission{Allowed: true},
		},
		{
			name: "channel rule wins over permission rule",
			mutate: func(c *domain.BotConfig) {
				c.ChannelMode = domain.ChannelModeWhitelist
				c.PermissionMode = domain.PermissionModeBlacklist
				c.DisabledUsers = []string{"u1"}
			},
			msg:  domain.MessageContext{ChannelID: "c9", AuthorID: "u1"},
			want: domain.Admission{Reason: ReasonChannelNotEnabled},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := openConfig(0)
			tt.mutate(cfg)
			cache := newCacheWith(t, cfg, clock.NewMock())

			assert.Equal(t, tt.want, cache.ShouldProcessMessage("bot1", tt.msg))
		})
	}
}

func TestShouldProcessMessage_NoConfigAllows(t *testing.T) {
	cache := NewConfigCache(newFakeFetcher(map[string]*domain.BotConfig{}), WithClock(clock.NewMock()))

	got := cache.ShouldProcessMessage("unknown", domain.MessageContext{ChannelID: "c1", AuthorID: "u1"})
	assert.Equal(t, domain.Admission{Allowed: true, Reason: ReasonNoConfig}, got)
}

func TestShouldProcessMessage_FreeTierScenario(t *testing.T) {
	cache := newCacheWith(t, openConfig(10), clock.NewMock())
	msg := domain.MessageContext{ChannelID: "c1", AuthorID: "u1"}

	for i := 0; i < 10; i++ {
		require.True(t, cache.ShouldProcessMessage("bot1", msg).Allowed, "message %d", i+1)
	}
	assert.Equal(t, domain.Admission{Allowed: false, Reason: ReasonRateLimit}, cache.ShouldProcessMessage("bot1", msg))

	other := domain.MessageContext{ChannelID: "c1", AuthorID: "u2"}
	assert.True(t, cache.ShouldProcessMessage("bot1", other).Allowed, "limits are per user")
}

func TestShouldProcessMessage_WindowRollover(t *testing.T) {
	mock := clock.NewMock()
	cache := newCacheWith(t, openConfig(2), mock)
	msg := domain.MessageContext{ChannelID: "c1", AuthorID: "u1"}

	assert.True(t, cache.ShouldProcessMessage("bot1", msg).Allowed)
	assert.True(t, cache.ShouldProcessMessage("bot1", msg).Allowed)
	assert.False(t, cache.ShouldProcessMessage("bot1", msg).Allowed)

	mock.Add(59 * time.Minute)
	assert.False(t, cache.ShouldProcessMessage("bot1", msg).Allowed)

	mock.Add(time.Minute)
	assert.True(t, cache.ShouldProcessMessage("bot1", msg).Allowed, "admission resumes after the window")
}

func TestShouldProcessMessage_PremiumTierAndServerLimit(t *testing.T) {
	cfg := openConfig(1)
	cfg.PremiumRateLimit = 3
	cfg.PremiumRoleIDs = []string{"vip"}
	cfg.ServerRateLimit = 4
	cache := newCacheWith(t, cfg, clock.NewMock())

	free := domain.MessageContext{ChannelID: "c1", AuthorID: "free"}
	vip := domain.MessageContext{ChannelID: "c1", AuthorID: "vip", MemberRoles: []string{"vip"}}

	assert.True(t, cache.ShouldProcessMessage("bot1", free).Allowed)
	assert.False(t, cache.ShouldProcessMessage("bot1", free).Allowed)

	for i := 0; i < 3; i++ {
		assert.True(t, cache.ShouldProcessMessage("bot1", vip).Allowed)
	}
	assert.False(t, cache.ShouldProcessMessage("bot1", vip).Allowed, "premium limit reached")

	newcomer := domain.MessageContext{ChannelID: "c1", AuthorID: "new"}
	assert.Equal(t, ReasonRateLimit, cache.ShouldProcessMessage("bot1", newcomer).Reason, "server limit reached")

	user, server, err := cache.Limiter().Usage(context.Background(), "bot1", "new")
	require.NoError(t, err)
	assert.Equal(t, 0, user.Count, "rejected request increments nothing")
	assert.Equal(t, 4, server.Count)
}

func TestShouldProcessMessage_WhitelistProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("channel outside whitelist is always blocked", prop.ForAll(
		func(permIdx int, freeLimit int, userIsListed bool, burned int) bool {
			modes := []domain.PermissionMode{
				domain.PermissionModeAll,
				domain.PermissionModeWhitelist,
				domain.PermissionModeBlacklist,
				domain.PermissionModePremiumOnly,
			}
			cfg := openConfig(freeLimit)
			cfg.ChannelMode = domain.ChannelModeWhitelist
			cfg.EnabledChannels = []string{"allowed"}
			cfg.PermissionMode = modes[permIdx]
			if userIsListed {
				cfg.EnabledUsers = []string{"u1"}
				cfg.PremiumUserIDs = []string{"u1"}
			}
			cache := newCacheWith(t, cfg, clock.NewMock())
			for i := 0; i < burned; i++ {
				cache.ShouldProcessMessage("bot1", domain.MessageContext{ChannelID: "allowed", AuthorID: "u1"})
			}

			got := cache.ShouldProcessMessage("bot1", domain.MessageContext{ChannelID: "elsewhere", AuthorID: "u1"})
			return !got.Allowed && got.Reason == ReasonChannelNotEnabled
		},
		gen.IntRange(0, 3),
		gen.IntRange(0, 20),
		gen.Bool(),
		gen.IntRange(0, 25),
	))

	properties.TestingRun(t)
}

func TestShouldProcessMessage_LimitProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("exactly limit admitted per window", prop.ForAll(
		func(limit int, userSuffix int) bool {
			mock := clock.NewMock()
			cache := newCacheWith(t, openConfig(limit), mock)
			msg := domain.MessageContext{ChannelID: "c1", AuthorID: fmt.Sprintf("u%d", userSuffix)}

			for i := 0; i < limit; i++ {
				if !cache.ShouldProcessMessage("bot1", msg).Allowed {
					return false
				}
			}
			if cache.ShouldProcessMessage("bot1", msg).Allowed {
				return false
			}
			mock.Add(domain.RateLimitWindow)
			return cache.ShouldProcessMessage("bot1", msg).Allowed
		},
		gen.IntRange(1, 40),
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t)
}
