package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBotConfig_TriggerDefaults(t *testing.T) {
	var cfg BotConfig
	require.NoError(t, json.Unmarshal([]byte(`{"version":3,"enabled":true}`), &cfg))

	p := cfg.Trigger()
	assert.True(t, p.MentionRequired, "missing mentionRequired must default to true")
	assert.Equal(t, TriggerModeMention, p.Mode)

	require.NoError(t, json.Unmarshal([]byte(`{"mentionRequired":false,"triggerMode":"prefix","customPrefix":"!"}`), &cfg))
	p = cfg.Trigger()
	assert.False(t, p.MentionRequired)
	assert.Equal(t, TriggerModePrefix, p.Mode)
	assert.Equal(t, "!", p.Prefix)
}

func TestBotConfig_CloneIsDeep(t *testing.T) {
	mention := true
	orig := &BotConfig{EnabledChannels: []string{"c1"}, MentionRequired: &mention}
	cp := orig.Clone()

	cp.EnabledChannels[0] = "changed"
	*cp.MentionRequired = false

	assert.Equal(t, "c1", orig.EnabledChannels[0])
	assert.True(t, *orig.MentionRequired)
}

func TestBotConfig_IsPremium(t *testing.T) {
	cfg := &BotConfig{PremiumUserIDs: []string{"u1"}, PremiumRoleIDs: []string{"vip"}}

	assert.True(t, cfg.IsPremium("u1", nil))
	assert.True(t, cfg.IsPremium("u2", []string{"member", "vip"}))
	assert.False(t, cfg.IsPremium("u2", []string{"member"}))
	assert.False(t, cfg.IsPremium("", nil))
}

func TestNewEvent_FillsDefaultsAndCopies(t *testing.T) {
	roles := []string{"r1"}
	ev := NewEvent(Event{Kind: KindHeartbeat, MemberRoles: roles})

	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.Timestamp.IsZero())

	roles[0] = "mutated"
	assert.Equal(t, "r1", ev.MemberRoles[0])

	bare := NewEvent(Event{ID: "m1"})
	assert.Equal(t, "m1", bare.ID)
	assert.NotNil(t, bare.MemberRoles)
}

func TestBotConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{name: "full config", payload: `{"version":1,"enabled":true,"channelMode":"whitelist","permissionMode":"premium_only","triggerMode":"prefix","customPrefix":"!"}`},
		{name: "empty modes", payload: `{"version":1,"enabled":true}`},
		{name: "unknown channel mode", payload: `{"channelMode":"some"}`, wantErr: true},
		{name: "unknown permission mode", payload: `{"permissionMode":"admins"}`, wantErr: true},
		{name: "prefix mode without prefix", payload: `{"triggerMode":"prefix"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg BotConfig
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &cfg))
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}
