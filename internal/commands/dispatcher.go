package commands

import (
	"context"
	"strings"

	"roomchat/backend/internal/chat"
	"roomchat/backend/internal/storage"
)

// Dispatcher parses command text and runs the matching handler. It never
// mutates state itself.
type Dispatcher struct {
	prefix   string
	registry *Registry
	repo     storage.Repository
	chat     *chat.Service
}

func NewDispatcher(prefix string, registry *Registry, repo storage.Repository, chatService *chat.Service) *Dispatcher {
	if prefix == "" {
		prefix = "/"
	}
	return &Dispatcher{prefix: prefix, registry: registry, repo: repo, chat: chatService}
}

func (d *Dispatcher) Prefix() string { return d.prefix }

func (d *Dispatcher) Registry() *Registry { return d.registry }

// IsCommand reports whether input would be dispatched as a command.
func (d *Dispatcher) IsCommand(input string) bool {
	_, ok := d.split(input)
	return ok
}

// TryHandleCommand runs input as a command on behalf of caller. It returns
// false when input is ordinary chat text. parts[0] is the command name.
func (d *Dispatcher) TryHandleCommand(ctx context.Context, input string, caller Caller, notify NotificationService) (bool, error) {
	parts, ok := d.split(input)
	if !ok {
		return false, nil
	}
	entry, err := d.registry.Resolve(parts[0])
	if err != nil {
		return true, err
	}
	cmd := entry.Factory(Env{Repo: d.repo, Chat: d.chat, Notify: notify, Registry: d.registry})
	return true, cmd.Execute(ctx, parts, caller)
}

func (d *Dispatcher) split(input string) ([]string, bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, d.prefix) {
		return nil, false
	}
	rest := input[len(d.prefix):]
	// A doubled prefix escapes a literal message.
	if strings.HasPrefix(rest, d.prefix) {
		return nil, false
	}
	parts := strings.Fields(rest)
	if len(parts) == 0 {
		parts = []string{""}
	}
	return parts, true
}
