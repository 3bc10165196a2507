package domain

import "context"

// Responder sends text back to wherever the event came from (channel message or
// interaction follow-up).
type Responder interface {
	Reply(ctx context.Context, content string) error
}

// CommandContext is handed to command handlers.
type CommandContext struct {
	Event     Event
	Responder Responder
	// Decision action that triggered the call, for handlers that want the raw form.
	Action Action
}

// CommandHandler is the capability a registered command exposes.
type CommandHandler interface {
	Execute(ctx context.Context, cmd CommandContext, args Args) error
}

// CommandHandlerFunc adapts a plain function to CommandHandler.
type CommandHandlerFunc func(ctx context.Context, cmd CommandContext, args Args) error

func (f CommandHandlerFunc) Execute(ctx context.Context, cmd CommandContext, args Args) error {
	return f(ctx, cmd, args)
}
