package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/GMOnyx/Commandlessapp-sub000/relay/domain"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Fetch the bot's policy once and print a summary",
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().String("bot-id", "", "Commandless bot id (defaults to BOT_ID)")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	botID, _ := cmd.Flags().GetString("bot-id")
	if botID == "" {
		botID = cfg.Bot.ID
	}
	if botID == "" {
		return errors.New("bot id is required (use --bot-id or BOT_ID)")
	}

	client, err := newCommandlessClient(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Relay.RequestTimeout)
	defer cancel()

	start := time.Now()
	remote, err := client.FetchConfig(ctx, botID)
	if err != nil {
		return fmt.Errorf("fetch config from %s: %w", client.BaseURL(), err)
	}
	elapsed := time.Since(start)

	var stored *domain.StoredSnapshot
	store, closeStore, err := openSnapshotStore(ctx, cfg)
	if err != nil {
		logrus.Warnf("[CONFIG] Snapshot store unavailable: %v", err)
	} else {
		defer closeStore()
		if store != nil {
			if stored, err = store.Load(ctx, botID); err != nil {
				logrus.Warnf("[CONFIG] Failed to read stored snapshot: %v", err)
			}
		}
	}

	printSummary(cmd.OutOrStdout(), remote, stored, elapsed)
	return nil
}

func printSummary(w io.Writer, cfg *domain.BotConfig, stored *domain.StoredSnapshot, elapsed time.Duration) {
	fmt.Fprintf(w, "Bot:              %s (version %d)\n", cfg.BotID, cfg.Version)
	fmt.Fprintf(w, "Enabled:          %t\n", cfg.Enabled)
	fmt.Fprintf(w, "Channels:         %s\n", modeSummary(string(cfg.ChannelMode), len(cfg.EnabledChannels), len(cfg.DisabledChannels)))
	fmt.Fprintf(w, "Permissions:      %s\n", modeSummary(string(cfg.PermissionMode), len(cfg.EnabledUsers)+len(cfg.EnabledRoles), len(cfg.DisabledUsers)+len(cfg.DisabledRoles)))
	fmt.Fprintf(w, "Rate limits:      free %s, premium %s, server %s per hour\n",
		limitString(cfg.FreeRateLimit), limitString(cfg.PremiumRateLimit), limitString(cfg.ServerRateLimit))

	trigger := cfg.Trigger()
	switch trigger.Mode {
	case domain.TriggerModePrefix:
		fmt.Fprintf(w, "Trigger:          prefix %q\n", trigger.Prefix)
	default:
		fmt.Fprintf(w, "Trigger:          %s (mention required: %t)\n", trigger.Mode, trigger.MentionRequired)
	}
	fmt.Fprintf(w, "Fetched in:       %s\n", elapsed.Round(time.Millisecond))

	if stored == nil || stored.Config == nil {
		fmt.Fprintln(w, "Stored snapshot:  none")
		return
	}
	fmt.Fprintf(w, "Stored snapshot:  version %d, fetched %s\n", stored.Config.Version, humanize.Time(stored.FetchedAt))
}

func modeSummary(mode string, enabled, disabled int) string {
	if mode == "" {
		mode = "all"
	}
	switch mode {
	case "whitelist":
		return fmt.Sprintf("%s (%s allowed)", mode, humanize.Comma(int64(enabled)))
	case "blacklist":
		return fmt.Sprintf("%s (%s blocked)", mode, humanize.Comma(int64(disabled)))
	default:
		return mode
	}
}

func limitString(n int) string {
	if n <= 0 {
		return "unlimited"
	}
	return humanize.Comma(int64(n))
}
