package domain

import (
	"fmt"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ActionKind identifica el tipo de acción devuelta por el backend
type ActionKind string

const (
	ActionReply   ActionKind = "reply"
	ActionCommand ActionKind = "command"
)

// Action is one step of a Decision. Reply actions use Content, command actions use
// Name/Args or, when the backend only produced a raw slash string, Slash.
type Action struct {
	Kind    ActionKind     `json:"kind"`
	Content string         `json:"content,omitempty"`
	Name    string         `json:"name,omitempty"`
	Args    map[string]any `json:"args,omitempty"`
	Slash   string         `json:"slash,omitempty"`
}

// Decision is the backend response for one event. Actions run in order.
type Decision struct {
	Actions []Action `json:"actions"`
}

func (a Action) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Kind, validation.Required, validation.In(ActionReply, ActionCommand)),
		validation.Field(&a.Content, validation.When(a.Kind == ActionReply, validation.Required)),
		validation.Field(&a.Name, validation.When(a.Kind == ActionCommand && strings.TrimSpace(a.Slash) == "", validation.Required)),
	)
}

// Validate rejects payloads that cannot be executed as a whole.
func (d Decision) Validate() error {
	for i, a := range d.Actions {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
	}
	return nil
}

// Args are command arguments flattened to strings, the way users type them.
type Args map[string]string

// Get returns the value for key, or "" when absent.
func (a Args) Get(key string) string {
	return a[key]
}

// Int parses the named argument as an integer.
func (a Args) Int(key string) (int, bool) {
	v, ok := a[key]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return n, true
}

// StringArgs flattens structured decision args; JSON numbers come back as float64
// so integral values are printed without a fractional part.
func StringArgs(in map[string]any) Args {
	out := make(Args, len(in))
	for k, v := range in {
		key := strings.ToLower(strings.TrimSpace(k))
		switch val := v.(type) {
		case nil:
			continue
		case string:
			out[key] = val
		case float64:
			out[key] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			out[key] = strconv.FormatBool(val)
		default:
			out[key] = fmt.Sprint(val)
		}
	}
	return out
}
