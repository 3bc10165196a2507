package discord

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
)

// MaxMessageLength is Discord's per-message content limit, in runes.
const MaxMessageLength = 2000

// ChannelSender is the part of *discordgo.Session used to answer channel messages.
type ChannelSender interface {
	ChannelMessageSendReply(channelID string, content string, reference *discordgo.MessageReference, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// InteractionSender is the part of *discordgo.Session used to answer interactions.
type InteractionSender interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionResponseDelete(interaction *discordgo.Interaction, options ...discordgo.RequestOption) error
}

// MessageResponder replies in the channel of the originating message, quoting it.
type MessageResponder struct {
	sender  ChannelSender
	message *discordgo.Message
	sent    atomic.Int32
}

func NewMessageResponder(sender ChannelSender, m *discordgo.Message) *MessageResponder {
	return &MessageResponder{sender: sender, message: m}
}

func (r *MessageResponder) Reply(ctx context.Context, content string) error {
	if content == "" {
		return nil
	}
	ref := r.message.Reference()
	for _, chunk := range splitContent(content, MaxMessageLength) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := r.sender.ChannelMessageSendReply(r.message.ChannelID, chunk, ref, discordgo.WithContext(ctx)); err != nil {
			return err
		}
		r.sent.Add(1)
	}
	return nil
}

// Sent returns the number of messages posted so far.
func (r *MessageResponder) Sent() int { return int(r.sent.Load()) }

// InteractionResponder answers a deferred interaction with follow-up messages.
type InteractionResponder struct {
	sender      InteractionSender
	interaction *discordgo.Interaction
	sent        atomic.Int32
}

func NewInteractionResponder(sender InteractionSender, i *discordgo.Interaction) *InteractionResponder {
	return &InteractionResponder{sender: sender, interaction: i}
}

// Defer acknowledges the interaction so Discord does not time it out while the
// decision is pending.
func (r *InteractionResponder) Defer(ctx context.Context) error {
	return r.sender.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}, discordgo.WithContext(ctx))
}

func (r *InteractionResponder) Reply(ctx context.Context, content string) error {
	if content == "" {
		return nil
	}
	for _, chunk := range splitContent(content, MaxMessageLength) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := r.sender.FollowupMessageCreate(r.interaction, true, &discordgo.WebhookParams{Content: chunk}, discordgo.WithContext(ctx)); err != nil {
			return err
		}
		r.sent.Add(1)
	}
	return nil
}

// Finish removes the deferred "thinking" placeholder when nothing was sent.
func (r *InteractionResponder) Finish(ctx context.Context) error {
	if r.sent.Load() > 0 {
		return nil
	}
	err := r.sender.InteractionResponseDelete(r.interaction, discordgo.WithContext(ctx))
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == 404 {
		return nil
	}
	return err
}

func (r *InteractionResponder) Sent() int { return int(r.sent.Load()) }

// splitContent cuts s into chunks of at most limit runes, preferring line breaks.
func splitContent(s string, limit int) []string {
	runes := []rune(s)
	if len(runes) <= limit {
		return []string{s}
	}
	var chunks []string
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
