package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/GMOnyx/Commandlessapp-sub000/relay/domain"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingAdmitter struct {
	inner  Admitter
	checks int
}

func (a *countingAdmitter) ShouldProcessMessage(botID string, msg domain.MessageContext) domain.Admission {
	a.checks++
	return a.inner.ShouldProcessMessage(botID, msg)
}

func (a *countingAdmitter) Trigger(botID string) (domain.TriggerPolicy, bool) {
	return a.inner.Trigger(botID)
}

type fakeSender struct {
	mu       sync.Mutex
	decision *domain.Decision
	err      error
	events   []domain.Event
}

func (s *fakeSender) SendEvent(ctx context.Context, ev domain.Event) (*domain.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.decision, s.err
}

func (s *fakeSender) sends() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type outcomeRecorder struct {
	received int
	outcomes []domain.Outcome
	reasons  []string
}

func (o *outcomeRecorder) Received(ev domain.Event) { o.received++ }

func (o *outcomeRecorder) Finished(ev domain.Event, outcome domain.Outcome, reason string, elapsed time.Duration) {
	o.outcomes = append(o.outcomes, outcome)
	o.reasons = append(o.reasons, reason)
}

func messageEvent(content string, mentioned bool) domain.Event {
	return domain.NewEvent(domain.Event{
		Platform:     domain.PlatformTest,
		Kind:         domain.KindMessage,
		ID:           "m1",
		BotID:        "bot1",
		ChannelID:    "c1",
		AuthorID:     "u1",
		Content:      content,
		MentionedBot: mentioned,
	})
}

func replyDecision(text string) *domain.Decision {
	return &domain.Decision{Actions: []domain.Action{{Kind: domain.ActionReply, Content: text}}}
}

func TestPipeline_UnaddressedMessageNeverReachesCacheOrNetwork(t *testing.T) {
	cache := newCacheWith(t, openConfig(0), clock.NewMock())
	admitter := &countingAdmitter{inner: cache}
	sender := &fakeSender{decision: replyDecision("hi")}
	rec := &outcomeRecorder{}
	p := NewPipeline(admitter, sender, nil, PipelineOptions{MentionRequired: true, Observer: rec})

	out := p.Handle(context.Background(), messageEvent("hello everyone", false), &recordingResponder{})

	assert.Equal(t, domain.OutcomeDropped, out)
	assert.Equal(t, 0, admitter.checks)
	assert.Equal(t, 0, sender.sends())
	assert.Equal(t, 1, rec.received)
	assert.Equal(t, []domain.Outcome{domain.OutcomeDropped}, rec.outcomes)
}

func TestPipeline_MentionFlowsToExecution(t *testing.T) {
	cache := newCacheWith(t, openConfig(0), clock.NewMock())
	sender := &fakeSender{decision: replyDecision("pong")}
	responder := &recordingResponder{}
	p := NewPipeline(cache, sender, nil, PipelineOptions{MentionRequired: true})

	out := p.Handle(context.Background(), messageEvent("<@bot> ping", true), responder)

	assert.Equal(t, domain.OutcomeExecuted, out)
	assert.Equal(t, 1, sender.sends())
	assert.Equal(t, []string{"pong"}, responder.sent())
}

func TestPipeline_BlockedByPolicy(t *testing.T) {
	cfg := openConfig(0)
	cfg.ChannelMode = domain.ChannelModeBlacklist
	cfg.DisabledChannels = []string{"c1"}
	cache := newCacheWith(t, cfg, clock.NewMock())
	sender := &fakeSender{decision: replyDecision("hi")}
	rec := &outcomeRecorder{}
	p := NewPipeline(cache, sender, nil, PipelineOptions{MentionRequired: true, Observer: rec})

	out := p.Handle(context.Background(), messageEvent("hey", true), &recordingResponder{})

	assert.Equal(t, domain.OutcomeBlocked, out)
	assert.Equal(t, 0, sender.sends())
	assert.Equal(t, []string{ReasonChannelDisabled}, rec.reasons)
}

func TestPipeline_DisableConfigCacheBypassesPolicy(t *testing.T) {
	cfg := openConfig(0)
	cfg.ChannelMode = domain.ChannelModeBlacklist
	cfg.DisabledChannels = []string{"c1"}
	cache := newCacheWith(t, cfg, clock.NewMock())
	admitter := &countingAdmitter{inner: cache}
	sender := &fakeSender{decision: replyDecision("hi")}
	p := NewPipeline(admitter, sender, nil, PipelineOptions{DisableConfigCache: true, MentionRequired: true})

	out := p.Handle(context.Background(), messageEvent("hey", true), &recordingResponder{})

	assert.Equal(t, domain.OutcomeExecuted, out)
	assert.Equal(t, 0, admitter.checks)
	require.Equal(t, 1, sender.sends())
	assert.Equal(t, "c1", sender.events[0].ChannelID)
}

func TestPipeline_DeliveryFailureIsSilent(t *testing.T) {
	sender := &fakeSender{err: assert.AnError}
	responder := &recordingResponder{}
	p := NewPipeline(nil, sender, nil, PipelineOptions{MentionRequired: true})

	out := p.Handle(context.Background(), messageEvent("hey", true), responder)

	assert.Equal(t, domain.OutcomeFailed, out)
	assert.Empty(t, responder.sent())
}

func TestPipeline_SnapshotTriggerPolicyWins(t *testing.T) {
	off := false
	cfg := openConfig(0)
	cfg.MentionRequired = &off
	cache := newCacheWith(t, cfg, clock.NewMock())
	sender := &fakeSender{decision: &domain.Decision{}}
	p := NewPipeline(cache, sender, nil, PipelineOptions{MentionRequired: true})

	out := p.Handle(context.Background(), messageEvent("no mention here", false), &recordingResponder{})
	assert.Equal(t, domain.OutcomeExecuted, out)
}

func TestPassesTrigger(t *testing.T) {
	mention := domain.TriggerPolicy{MentionRequired: true, Mode: domain.TriggerModeMention}
	prefix := domain.TriggerPolicy{MentionRequired: true, Mode: domain.TriggerModePrefix, Prefix: "!"}
	always := domain.TriggerPolicy{MentionRequired: true, Mode: domain.TriggerModeAlways}

	plain := messageEvent("hello", false)
	prefixed := messageEvent("  !help", false)
	reply := messageEvent("thanks", false)
	reply.ReplyToBot = true
	interaction := messageEvent("", false)
	interaction.Kind = domain.KindInteraction

	assert.False(t, PassesTrigger(plain, mention))
	assert.True(t, PassesTrigger(reply, mention))
	assert.True(t, PassesTrigger(interaction, mention))
	assert.True(t, PassesTrigger(prefixed, prefix))
	assert.False(t, PassesTrigger(plain, prefix))
	assert.False(t, PassesTrigger(prefixed, mention))
	assert.True(t, PassesTrigger(plain, always))
	assert.True(t, PassesTrigger(plain, domain.TriggerPolicy{MentionRequired: false}))
}
