package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/GMOnyx/Commandlessapp-sub000/relay/application"
	"github.com/GMOnyx/Commandlessapp-sub000/relay/domain"
	"github.com/sirupsen/logrus"
)

// logCommands logs every local command execution with its duration.
func logCommands(next domain.CommandHandler) domain.CommandHandler {
	return domain.CommandHandlerFunc(func(ctx context.Context, cmd domain.CommandContext, args domain.Args) error {
		start := time.Now()
		err := next.Execute(ctx, cmd, args)
		entry := logrus.WithFields(logrus.Fields{
			"command":  cmd.Action.Name,
			"event_id": cmd.Event.ID,
			"elapsed":  time.Since(start).String(),
		})
		if err != nil {
			entry.WithError(err).Warn("[EXECUTOR] Command failed")
		} else {
			entry.Debug("[EXECUTOR] Command done")
		}
		return err
	})
}

// registerBuiltins adds the commands every relay process answers.
func registerBuiltins(registry *application.Registry) {
	registry.Register("ping", domain.CommandHandlerFunc(func(ctx context.Context, cmd domain.CommandContext, _ domain.Args) error {
		return cmd.Responder.Reply(ctx, "pong")
	}), nil, logCommands)

	registry.Register("help", domain.CommandHandlerFunc(func(ctx context.Context, cmd domain.CommandContext, _ domain.Args) error {
		return cmd.Responder.Reply(ctx, fmt.Sprintf("Local commands: %s", strings.Join(registry.Names(), ", ")))
	}), []string{"commands"}, logCommands)
}
