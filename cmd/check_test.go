package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/GMOnyx/Commandlessapp-sub000/relay/domain"
	"github.com/stretchr/testify/assert"
)

func TestPrintSummary(t *testing.T) {
	cfg := &domain.BotConfig{
		BotID:            "bot-1",
		Version:          7,
		Enabled:          true,
		ChannelMode:      domain.ChannelModeWhitelist,
		EnabledChannels:  []string{"c1", "c2"},
		FreeRateLimit:    10,
		PremiumRateLimit: 1500,
		TriggerMode:      domain.TriggerModePrefix,
		CustomPrefix:     "!",
	}
	stored := &domain.StoredSnapshot{Config: &domain.BotConfig{Version: 6}, FetchedAt: time.Now().Add(-2 * time.Hour)}

	var buf bytes.Buffer
	printSummary(&buf, cfg, stored, 42*time.Millisecond)
	out := buf.String()

	assert.Contains(t, out, "bot-1 (version 7)")
	assert.Contains(t, out, "whitelist (2 allowed)")
	assert.Contains(t, out, "Permissions:      all")
	assert.Contains(t, out, "free 10, premium 1,500, server unlimited per hour")
	assert.Contains(t, out, `prefix "!"`)
	assert.Contains(t, out, "version 6, fetched 2 hours ago")
}

func TestPrintSummary_NoStoredSnapshot(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, &domain.BotConfig{BotID: "bot-1"}, nil, time.Millisecond)
	assert.Contains(t, buf.String(), "Stored snapshot:  none")
	assert.Contains(t, buf.String(), "mention (mention required: true)")
}
