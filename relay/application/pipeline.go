package application

import (
	"context"
	"strings"
	"time"

	"github.com/GMOnyx/Commandlessapp-sub000/relay/domain"
	"github.com/sirupsen/logrus"
)

// Admitter is the local policy check. ConfigCache implements it.
type Admitter interface {
	ShouldProcessMessage(botID string, msg domain.MessageContext) domain.Admission
	Trigger(botID string) (domain.TriggerPolicy, bool)
}

// Sender delivers an event and returns the backend decision.
type Sender interface {
	SendEvent(ctx context.Context, ev domain.Event) (*domain.Decision, error)
}

type PipelineOptions struct {
	// DisableConfigCache skips the admission check entirely.
	DisableConfigCache bool
	// MentionRequired is used when no snapshot carries a trigger policy.
	MentionRequired bool
	Observer        domain.PipelineObserver
}

// Pipeline runs one normalized event through filter, admission, delivery and execution.
type Pipeline struct {
	admitter Admitter
	sender   Sender
	executor *Executor
	opts     PipelineOptions
}

func NewPipeline(admitter Admitter, sender Sender, executor *Executor, opts PipelineOptions) *Pipeline {
	if executor == nil {
		executor = NewExecutor(nil)
	}
	return &Pipeline{admitter: admitter, sender: sender, executor: executor, opts: opts}
}

func (p *Pipeline) Handle(ctx context.Context, ev domain.Event, responder domain.Responder) domain.Outcome {
	start := time.Now()
	if p.opts.Observer != nil {
		p.opts.Observer.Received(ev)
	}
	outcome, reason := p.handle(ctx, ev, responder)
	if p.opts.Observer != nil {
		p.opts.Observer.Finished(ev, outcome, reason, time.Since(start))
	}
	return outcome
}

func (p *Pipeline) handle(ctx context.Context, ev domain.Event, responder domain.Responder) (domain.Outcome, string) {
	log := logrus.WithFields(logrus.Fields{
		"bot_id":     ev.BotID,
		"event_id":   ev.ID,
		"channel_id": ev.ChannelID,
		"author_id":  ev.AuthorID,
	})

	if !PassesTrigger(ev, p.triggerPolicy(ev.BotID)) {
		log.Debug("[RELAY] dropped: bot not addressed")
		return domain.OutcomeDropped, "not addressed"
	}

	if !p.opts.DisableConfigCache && p.admitter != nil {
		if adm := p.admitter.ShouldProcessMessage(ev.BotID, ev.MessageContext()); !adm.Allowed {
			log.WithField("reason", adm.Reason).Debug("[RELAY] blocked by policy")
			return domain.OutcomeBlocked, adm.Reason
		}
	}

	decision, err := p.sender.SendEvent(ctx, ev)
	if err != nil {
		log.WithError(err).Warn("[RELAY] delivery failed, ignoring event")
		return domain.OutcomeFailed, err.Error()
	}
	if decision == nil {
		return domain.OutcomeFailed, "empty decision"
	}

	report := p.executor.Execute(ctx, *decision, domain.CommandContext{Event: ev, Responder: responder})
	log.WithFields(logrus.Fields{
		"replies":  report.Replies,
		"commands": report.Commands,
		"missing":  len(report.Missing),
		"errors":   len(report.Errors),
	}).Debug("[RELAY] decision executed")
	return domain.OutcomeExecuted, ""
}

func (p *Pipeline) triggerPolicy(botID string) domain.TriggerPolicy {
	if !p.opts.DisableConfigCache && p.admitter != nil {
		if policy, ok := p.admitter.Trigger(botID); ok {
			return policy
		}
	}
	return domain.TriggerPolicy{MentionRequired: p.opts.MentionRequired, Mode: domain.TriggerModeMention}
}

// PassesTrigger is the pre-filter that runs before any cache or network work.
func PassesTrigger(ev domain.Event, policy domain.TriggerPolicy) bool {
	if ev.AddressesBot() {
		return true
	}
	if !policy.MentionRequired || policy.Mode == domain.TriggerModeAlways {
		return true
	}
	if policy.Mode == domain.TriggerModePrefix && policy.Prefix != "" {
		return strings.HasPrefix(strings.TrimSpace(ev.Content), policy.Prefix)
	}
	return false
}
