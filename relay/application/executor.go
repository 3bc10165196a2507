package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/GMOnyx/Commandlessapp-sub000/relay/domain"
	"github.com/sirupsen/logrus"
)

// ExecutionReport summarizes what happened while running a decision.
type ExecutionReport struct {
	Replies  int
	Commands int
	Missing  []string
	Errors   []error
}

// Err joins the action errors, nil when every action succeeded.
func (r ExecutionReport) Err() error {
	return errors.Join(r.Errors...)
}

// Executor runs decision actions in order. Actions are independent: a failing or
// unknown command does not stop the ones after it.
type Executor struct {
	registry *Registry
}

func NewExecutor(registry *Registry) *Executor {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Executor{registry: registry}
}

func (x *Executor) Registry() *Registry {
	return x.registry
}

func (x *Executor) Execute(ctx context.Context, decision domain.Decision, cmd domain.CommandContext) ExecutionReport {
	var report ExecutionReport
	log := logrus.WithFields(logrus.Fields{"event_id": cmd.Event.ID, "channel_id": cmd.Event.ChannelID})

	for i, action := range decision.Actions {
		switch action.Kind {
		case domain.ActionReply:
			if err := x.reply(ctx, cmd, action); err != nil {
				log.WithError(err).Warnf("[EXECUTOR] reply action %d failed", i)
				report.Errors = append(report.Errors, err)
				continue
			}
			report.Replies++
		case domain.ActionCommand:
			name, err := x.command(ctx, cmd, action)
			if errors.Is(err, errUnknownCommand) {
				log.WithField("command", name).Warn("[EXECUTOR] no handler registered, skipping")
				report.Missing = append(report.Missing, name)
				continue
			}
			if err != nil {
				log.WithError(err).WithField("command", name).Warn("[EXECUTOR] command failed")
				report.Errors = append(report.Errors, err)
				continue
			}
			report.Commands++
		default:
			err := fmt.Errorf("unknown action kind %q", action.Kind)
			log.WithError(err).Warn("[EXECUTOR] skipping action")
			report.Errors = append(report.Errors, err)
		}
	}
	return report
}

var errUnknownCommand = errors.New("unknown command")

func (x *Executor) reply(ctx context.Context, cmd domain.CommandContext, action domain.Action) error {
	if cmd.Responder == nil {
		return errors.New("no responder for reply")
	}
	return cmd.Responder.Reply(ctx, action.Content)
}

// command resolves the handler from the structured name and args, falling back to
// the raw slash string.
func (x *Executor) command(ctx context.Context, cmd domain.CommandContext, action domain.Action) (name string, err error) {
	var args domain.Args
	if action.Name != "" {
		name = normalizeCommand(action.Name)
		args = domain.StringArgs(action.Args)
	} else {
		parsed, ok := ParseSlash(action.Slash)
		if !ok {
			return "", fmt.Errorf("unparseable slash command %q", action.Slash)
		}
		name, args = parsed.Action, parsed.Args
	}

	handler, ok := x.registry.Find(name)
	if !ok {
		return name, errUnknownCommand
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("command %s panicked: %v", name, r)
		}
	}()

	cmd.Action = action
	if err := handler.Execute(ctx, cmd, args); err != nil {
		return name, fmt.Errorf("command %s: %w", name, err)
	}
	return name, nil
}
