package discord

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/GMOnyx/Commandlessapp-sub000/relay/domain"
	"github.com/bwmarrin/discordgo"
)

// NormalizeMessage converts a gateway message into a relay event. botUserID is the
// bot's Discord user id, used for mention and reply detection; botID is the
// Commandless bot id. It returns false for messages without an author.
func NormalizeMessage(m *discordgo.Message, botUserID, botID string) (domain.Event, bool) {
	if m == nil || m.Author == nil {
		return domain.Event{}, false
	}

	var roles []string
	if m.Member != nil {
		roles = m.Member.Roles
	}

	ts := m.Timestamp
	if ts.IsZero() {
		ts = snowflakeTime(m.ID)
	}

	return domain.NewEvent(domain.Event{
		Platform:     domain.PlatformDiscord,
		Kind:         domain.KindMessage,
		ID:           m.ID,
		BotID:        botID,
		GuildID:      m.GuildID,
		ChannelID:    m.ChannelID,
		AuthorID:     m.Author.ID,
		Username:     m.Author.Username,
		Content:      m.Content,
		MemberRoles:  roles,
		MentionedBot: mentionsUser(m, botUserID),
		ReplyToBot:   repliesToUser(m, botUserID),
		Timestamp:    ts.UTC(),
	}), true
}

func mentionsUser(m *discordgo.Message, userID string) bool {
	if userID == "" {
		return false
	}
	for _, u := range m.Mentions {
		if u != nil && u.ID == userID {
			return true
		}
	}
	return strings.Contains(m.Content, "<@"+userID+">") || strings.Contains(m.Content, "<@!"+userID+">")
}

func repliesToUser(m *discordgo.Message, userID string) bool {
	if userID == "" || m.ReferencedMessage == nil || m.ReferencedMessage.Author == nil {
		return false
	}
	return m.ReferencedMessage.Author.ID == userID
}

// NormalizeInteraction converts an application command interaction into a relay
// event. Options are flattened to strings and the content carries the command in
// slash form, e.g. "/purge amount:5". Other interaction types return false.
func NormalizeInteraction(i *discordgo.Interaction, botID string) (domain.Event, bool) {
	if i == nil || i.Type != discordgo.InteractionApplicationCommand {
		return domain.Event{}, false
	}
	data, ok := i.Data.(discordgo.ApplicationCommandInteractionData)
	if !ok {
		return domain.Event{}, false
	}

	var (
		authorID string
		username string
		roles    []string
	)
	switch {
	case i.Member != nil && i.Member.User != nil:
		authorID, username, roles = i.Member.User.ID, i.Member.User.Username, i.Member.Roles
	case i.User != nil:
		authorID, username = i.User.ID, i.User.Username
	default:
		return domain.Event{}, false
	}

	name := strings.ToLower(data.Name)
	options := map[string]string{}
	name = flattenOptions(name, data.Options, options)

	return domain.NewEvent(domain.Event{
		Platform:     domain.PlatformDiscord,
		Kind:         domain.KindInteraction,
		ID:           i.ID,
		BotID:        botID,
		GuildID:      i.GuildID,
		ChannelID:    i.ChannelID,
		AuthorID:     authorID,
		Username:     username,
		Content:      slashContent(name, options),
		MemberRoles:  roles,
		MentionedBot: true,
		CommandName:  name,
		Options:      options,
		Timestamp:    snowflakeTime(i.ID),
	}), true
}

// flattenOptions descends into sub commands, appending their names to the command
// name, and collects leaf option values.
func flattenOptions(name string, opts []*discordgo.ApplicationCommandInteractionDataOption, out map[string]string) string {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		switch opt.Type {
		case discordgo.ApplicationCommandOptionSubCommand, discordgo.ApplicationCommandOptionSubCommandGroup:
			name = flattenOptions(name+" "+strings.ToLower(opt.Name), opt.Options, out)
		default:
			out[strings.ToLower(opt.Name)] = optionString(opt.Value)
		}
	}
	return name
}

func optionString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprint(val)
	}
}

func slashContent(name string, options map[string]string) string {
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("/")
	b.WriteString(name)
	for _, k := range keys {
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString(":")
		b.WriteString(options[k])
	}
	return b.String()
}

func snowflakeTime(id string) time.Time {
	ts, err := discordgo.SnowflakeTimestamp(id)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}
