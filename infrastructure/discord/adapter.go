package discord

import (
	"context"
	"sync"
	"time"

	"github.com/GMOnyx/Commandlessapp-sub000/relay/domain"
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

// DefaultEventTimeout bounds the handling of a single gateway event.
const DefaultEventTimeout = 60 * time.Second

// Intents are the gateway intents the relay needs.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsMessageContent

// EventHandler is the pipeline entry point the adapter feeds.
type EventHandler interface {
	Handle(ctx context.Context, ev domain.Event, responder domain.Responder) domain.Outcome
}

// Adapter binds a discordgo session to the relay pipeline.
type Adapter struct {
	handler EventHandler
	timeout time.Duration

	mu        sync.RWMutex
	botID     string
	botUserID string
	ctx       context.Context
	removers  []func()
	closed    bool

	inflight sync.WaitGroup
}

func NewAdapter(handler EventHandler, botID string) *Adapter {
	return &Adapter{
		handler: handler,
		botID:   botID,
		timeout: DefaultEventTimeout,
		ctx:     context.Background(),
	}
}

// NewSession creates a bot session with the relay's intents.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = Intents
	return s, nil
}

// Bind registers the gateway handlers. Once ctx is cancelled new events are
// dropped; events already in the pipeline keep running on their own timeout.
func (a *Adapter) Bind(ctx context.Context, s *discordgo.Session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ctx = ctx
	a.closed = false
	if s.State != nil && s.State.User != nil {
		a.botUserID = s.State.User.ID
	}
	a.removers = append(a.removers,
		s.AddHandler(a.onReady),
		s.AddHandler(a.onMessageCreate),
		s.AddHandler(a.onInteractionCreate),
	)
}

// Unbind removes every handler registered by Bind and waits up to timeout for
// in-flight events. It reports whether they all finished.
func (a *Adapter) Unbind(timeout time.Duration) bool {
	a.mu.Lock()
	for _, remove := range a.removers {
		remove()
	}
	a.removers = nil
	a.closed = true
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		logrus.Warnf("[DISCORD] Events still in flight after %s", timeout)
		return false
	}
}

func (a *Adapter) SetBotID(id string) {
	a.mu.Lock()
	a.botID = id
	a.mu.Unlock()
}

func (a *Adapter) SetBotUserID(id string) {
	a.mu.Lock()
	a.botUserID = id
	a.mu.Unlock()
}

func (a *Adapter) ids() (botID, botUserID string) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.botID, a.botUserID
}

// begin registers an event as in flight. It returns false once the bind context
// is done. The event context is detached from the bind context so shutdown does
// not cut a delivery short.
func (a *Adapter) begin() (context.Context, context.CancelFunc, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed || a.ctx.Err() != nil {
		return nil, nil, false
	}
	a.inflight.Add(1)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(a.ctx), a.timeout)
	return ctx, func() {
		cancel()
		a.inflight.Done()
	}, true
}

func (a *Adapter) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	if r.User == nil {
		return
	}
	a.SetBotUserID(r.User.ID)
	logrus.Infof("[DISCORD] Connected as %s (%s) in %d guilds", r.User.Username, r.User.ID, len(r.Guilds))
}

func (a *Adapter) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m == nil || m.Message == nil {
		return
	}
	a.dispatchMessage(s, m.Message)
}

func (a *Adapter) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i == nil || i.Interaction == nil {
		return
	}
	a.dispatchInteraction(s, i.Interaction)
}

func (a *Adapter) dispatchMessage(sender ChannelSender, m *discordgo.Message) domain.Outcome {
	ctx, done, ok := a.begin()
	if !ok {
		logrus.Debugf("[DISCORD] Shutting down, dropping message %s", m.ID)
		return domain.OutcomeDropped
	}
	defer done()
	return a.HandleMessage(ctx, sender, m)
}

func (a *Adapter) dispatchInteraction(sender InteractionSender, i *discordgo.Interaction) domain.Outcome {
	ctx, done, ok := a.begin()
	if !ok {
		logrus.Debugf("[DISCORD] Shutting down, dropping interaction %s", i.ID)
		return domain.OutcomeDropped
	}
	defer done()
	return a.HandleInteraction(ctx, sender, i)
}

// HandleMessage runs one channel message through the pipeline. Messages from bots,
// including this one, are ignored.
func (a *Adapter) HandleMessage(ctx context.Context, sender ChannelSender, m *discordgo.Message) domain.Outcome {
	if m.Author == nil || m.Author.Bot {
		return domain.OutcomeDropped
	}
	botID, botUserID := a.ids()
	if m.Author.ID == botUserID {
		return domain.OutcomeDropped
	}
	ev, ok := NormalizeMessage(m, botUserID, botID)
	if !ok {
		return domain.OutcomeDropped
	}
	return a.handler.Handle(ctx, ev, NewMessageResponder(sender, m))
}

// HandleInteraction defers the interaction, runs it through the pipeline and
// clears the placeholder when the pipeline posted nothing.
func (a *Adapter) HandleInteraction(ctx context.Context, sender InteractionSender, i *discordgo.Interaction) domain.Outcome {
	botID, _ := a.ids()
	ev, ok := NormalizeInteraction(i, botID)
	if !ok {
		return domain.OutcomeDropped
	}

	responder := NewInteractionResponder(sender, i)
	if err := responder.Defer(ctx); err != nil {
		logrus.Warnf("[DISCORD] Failed to defer interaction %s: %v", i.ID, err)
		return domain.OutcomeFailed
	}

	outcome := a.handler.Handle(ctx, ev, responder)
	if err := responder.Finish(context.WithoutCancel(ctx)); err != nil {
		logrus.Debugf("[DISCORD] Failed to clear deferred response for %s: %v", i.ID, err)
	}
	return outcome
}
