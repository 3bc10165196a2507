package application

import (
	"sort"
	"strings"
	"sync"

	"github.com/GMOnyx/Commandlessapp-sub000/relay/domain"
	"github.com/sirupsen/logrus"
)

// Middleware wraps a handler, e.g. for logging or permission checks.
type Middleware func(domain.CommandHandler) domain.CommandHandler

// Registry maps lower-cased command names and aliases to handlers.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]domain.CommandHandler
	names    map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]domain.CommandHandler),
		names:    make(map[string]struct{}),
	}
}

// Register adds handler under name and aliases. An existing name is replaced.
func (r *Registry) Register(name string, handler domain.CommandHandler, aliases []string, mws ...Middleware) {
	for i := len(mws) - 1; i >= 0; i-- {
		handler = mws[i](handler)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := normalizeCommand(name)
	r.commands[key] = handler
	r.names[key] = struct{}{}
	for _, alias := range aliases {
		if a := normalizeCommand(alias); a != "" {
			r.commands[a] = handler
		}
	}
	logrus.WithFields(logrus.Fields{"command": key, "aliases": aliases}).Debug("[EXECUTOR] command registered")
}

// RegisterFunc is Register for plain functions.
func (r *Registry) RegisterFunc(name string, fn domain.CommandHandlerFunc, aliases ...string) {
	r.Register(name, fn, aliases)
}

// Find resolves a command by name or alias, case-insensitively.
func (r *Registry) Find(name string) (domain.CommandHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.commands[normalizeCommand(name)]
	return h, ok
}

// Names lists the primary command names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.names))
	for n := range r.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func normalizeCommand(name string) string {
	return strings.ToLower(strings.TrimLeft(strings.TrimSpace(name), "/"))
}
