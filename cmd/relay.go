package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/GMOnyx/Commandlessapp-sub000/core/config"
	"github.com/GMOnyx/Commandlessapp-sub000/infrastructure/commandless"
	"github.com/GMOnyx/Commandlessapp-sub000/infrastructure/discord"
	"github.com/GMOnyx/Commandlessapp-sub000/pkg/relaymonitor"
	"github.com/GMOnyx/Commandlessapp-sub000/pkg/utils"
	"github.com/GMOnyx/Commandlessapp-sub000/relay/application"
	"github.com/GMOnyx/Commandlessapp-sub000/relay/domain"
	"github.com/GMOnyx/Commandlessapp-sub000/ui/rest"
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to Discord and relay events to Commandless",
	RunE:  runRelay,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRelay(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}
	instanceID := utils.GetPersistentInstanceID(cfg.App.InstanceID, cfg.App.DataDir)
	logrus.Infof("[RELAY] Starting %s (instance %s)", cfg.App.Version, instanceID)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := newCommandlessClient(cfg)
	if err != nil {
		return fmt.Errorf("commandless client: %w", err)
	}
	client.Start(ctx)
	defer client.Close()

	session, err := discord.NewSession(cfg.Bot.Token)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}
	if err := session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			logrus.Warnf("[DISCORD] Close failed: %v", err)
		}
	}()

	botID, err := resolveBotID(ctx, cfg, client, session, instanceID)
	if err != nil {
		return err
	}

	var cache *application.ConfigCache
	if !cfg.Relay.DisableConfigCache {
		store, closeStore, err := openSnapshotStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		opts := []application.CacheOption{
			application.WithRefreshInterval(cfg.Relay.ConfigRefresh),
			application.WithFetchTimeout(cfg.Relay.RequestTimeout),
		}
		if store != nil {
			opts = append(opts, application.WithSnapshotStore(store))
		}
		cache = application.NewConfigCache(client, opts...)
		if err := cache.Init(ctx, botID); err != nil {
			logrus.Warnf("[CONFIG_CACHE] Starting without policy: %v", err)
		}
		cache.Start(ctx)
		defer cache.Stop()
	} else {
		logrus.Warn("[CONFIG_CACHE] Config cache disabled, every addressed event is forwarded")
	}

	monitor := relaymonitor.New(relaymonitor.DefaultBufferSize)
	if err := monitor.RegisterQueue(func() (int, int64) {
		s := client.QueueStats()
		return s.Depth, s.TotalDropped
	}); err != nil {
		logrus.Warnf("[STATUS] Queue metrics unavailable: %v", err)
	}

	registry := application.NewRegistry()
	registerBuiltins(registry)

	var admitter application.Admitter
	if cache != nil {
		admitter = cache
	}
	pipeline := application.NewPipeline(admitter, client, application.NewExecutor(registry), application.PipelineOptions{
		DisableConfigCache: cfg.Relay.DisableConfigCache,
		MentionRequired:    cfg.Relay.MentionRequired,
		Observer:           monitor,
	})

	adapter := discord.NewAdapter(pipeline, botID)
	adapter.Bind(ctx, session)
	defer adapter.Unbind(shutdownTimeout)

	if cfg.Status.Enabled {
		opts := rest.Options{
			Version:    cfg.App.Version,
			InstanceID: instanceID,
			BotID:      botID,
			Debug:      cfg.App.Debug,
			Monitor:    monitor,
			Queue:      client,
		}
		if cache != nil {
			opts.Configs = cache
		}
		server := rest.NewServer(cfg.Status.Host, cfg.Status.Port, opts)
		server.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logrus.Warnf("[STATUS] Shutdown failed: %v", err)
			}
		}()
	}

	if cfg.Relay.HeartbeatInterval > 0 {
		go runHeartbeat(ctx, cfg, client, session, botID, instanceID)
	}

	logrus.Infof("[RELAY] Relaying events for bot %s, press Ctrl+C to stop", botID)
	<-ctx.Done()
	logrus.Info("[RELAY] Shutting down...")
	return nil
}

// resolveBotID returns the configured bot id or registers this application with
// the backend.
func resolveBotID(ctx context.Context, cfg *config.Config, client *commandless.Client, s *discordgo.Session, instanceID string) (string, error) {
	if cfg.Bot.ID != "" {
		return cfg.Bot.ID, nil
	}
	if s.State == nil || s.State.User == nil {
		return "", errors.New("discord session has no user; cannot register bot")
	}

	regCtx, cancel := context.WithTimeout(ctx, cfg.Relay.RequestTimeout*time.Duration(cfg.Relay.MaxAttempts+1))
	defer cancel()
	botID, err := client.RegisterBot(regCtx, commandless.RegisterRequest{
		Platform:      domain.PlatformDiscord,
		ApplicationID: s.State.User.ID,
		Name:          s.State.User.Username,
		InstanceID:    instanceID,
	})
	if err != nil {
		return "", fmt.Errorf("register bot: %w", err)
	}
	logrus.Infof("[RELAY] Registered bot %s for application %s", botID, s.State.User.ID)
	return botID, nil
}

// runHeartbeat enqueues a liveness event every interval until ctx ends.
func runHeartbeat(ctx context.Context, cfg *config.Config, client *commandless.Client, s *discordgo.Session, botID, instanceID string) {
	ticker := time.NewTicker(cfg.Relay.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			guilds := 0
			if s.State != nil {
				s.State.RLock()
				guilds = len(s.State.Guilds)
				s.State.RUnlock()
			}
			ev := domain.NewEvent(domain.Event{
				Platform: domain.PlatformDiscord,
				Kind:     domain.KindHeartbeat,
				BotID:    botID,
				Options: map[string]string{
					"instanceId": instanceID,
					"version":    cfg.App.Version,
					"guilds":     strconv.Itoa(guilds),
				},
			})
			if !client.Enqueue(ev) {
				logrus.Debug("[RELAY] Heartbeat not enqueued, queue closed")
			}
		}
	}
}
