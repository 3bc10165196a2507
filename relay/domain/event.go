package domain

import (
	"time"

	"github.com/google/uuid"
)

// Platform representa la plataforma de origen del evento
type Platform string

const (
	PlatformDiscord Platform = "discord"
	PlatformTest    Platform = "test"
)

// EventKind distingue mensajes, interacciones (slash commands) y telemetría
type EventKind string

const (
	KindMessage     EventKind = "message"
	KindInteraction EventKind = "interaction"
	KindHeartbeat   EventKind = "heartbeat"
)

// Event is the normalized envelope forwarded to the decision service.
// Build it with NewEvent and treat it as read-only afterwards.
type Event struct {
	Platform     Platform          `json:"platform"`
	Kind         EventKind         `json:"kind"`
	ID           string            `json:"id"`
	BotID        string            `json:"botId"`
	GuildID      string            `json:"guildId,omitempty"`
	ChannelID    string            `json:"channelId"`
	AuthorID     string            `json:"authorId"`
	Username     string            `json:"username,omitempty"`
	Content      string            `json:"content"`
	MemberRoles  []string          `json:"memberRoles"`
	MentionedBot bool              `json:"mentionedBot"`
	ReplyToBot   bool              `json:"replyToBot"`
	CommandName  string            `json:"commandName,omitempty"`
	Options      map[string]string `json:"options,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
}

// NewEvent fills the fields the platform may leave empty: a random id when there is
// no native message id, a UTC timestamp, and a non-nil role list.
func NewEvent(e Event) Event {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.MemberRoles == nil {
		e.MemberRoles = []string{}
	} else {
		e.MemberRoles = append([]string(nil), e.MemberRoles...)
	}
	if e.Options != nil {
		opts := make(map[string]string, len(e.Options))
		for k, v := range e.Options {
			opts[k] = v
		}
		e.Options = opts
	}
	return e
}

// AddressesBot reports whether the event is explicitly directed at the bot.
// Interactions are always addressed to the application that owns the command.
func (e Event) AddressesBot() bool {
	return e.Kind == KindInteraction || e.MentionedBot || e.ReplyToBot
}

// MessageContext is the subset of an event the admission check looks at.
func (e Event) MessageContext() MessageContext {
	return MessageContext{
		ChannelID:   e.ChannelID,
		AuthorID:    e.AuthorID,
		GuildID:     e.GuildID,
		MemberRoles: e.MemberRoles,
	}
}

// MessageContext identifies who is talking and where.
type MessageContext struct {
	ChannelID   string
	AuthorID    string
	GuildID     string
	MemberRoles []string
}

// Admission is the outcome of the local policy check.
type Admission struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}
