package application

import (
	"strings"

	"github.com/GMOnyx/Commandlessapp-sub000/relay/domain"
)

// SlashCommand is a raw slash string broken into an action and its arguments.
type SlashCommand struct {
	Action string
	Args   domain.Args
}

// ParseSlash tokenizes strings like "/purge 5 reason:spam cleaning up".
// The first token is the action. key:value tokens become named args, the first bare
// integer becomes "amount" and every other token is appended to "message".
// It returns false when there is no action.
func ParseSlash(raw string) (SlashCommand, bool) {
	fields := strings.Fields(strings.TrimSpace(raw))
	if len(fields) == 0 {
		return SlashCommand{}, false
	}

	action := strings.ToLower(strings.TrimLeft(fields[0], "/"))
	if action == "" {
		return SlashCommand{}, false
	}

	args := domain.Args{}
	var rest []string
	for _, tok := range fields[1:] {
		if key, value, ok := splitNamedArg(tok); ok {
			args[key] = value
			continue
		}
		if _, taken := args["amount"]; !taken && isInteger(tok) {
			args["amount"] = tok
			continue
		}
		rest = append(rest, tok)
	}
	if len(rest) > 0 {
		if named, ok := args["message"]; ok {
			rest = append([]string{named}, rest...)
		}
		args["message"] = strings.Join(rest, " ")
	}
	return SlashCommand{Action: action, Args: args}, true
}

func splitNamedArg(tok string) (string, string, bool) {
	key, value, found := strings.Cut(tok, ":")
	if !found || key == "" || value == "" || strings.HasPrefix(value, "//") {
		return "", "", false
	}
	for _, r := range key {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '-') {
			return "", "", false
		}
	}
	return strings.ToLower(key), value, true
}

func isInteger(tok string) bool {
	if tok == "" {
		return false
	}
	for _, r := range tok {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
