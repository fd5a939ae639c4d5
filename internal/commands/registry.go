// Package commands turns slash-command text into state changes and
// notifications.
package commands

import (
	"context"
	"fmt"
	"sort"

	"roomchat/backend/internal/apperror"
	"roomchat/backend/internal/chat"
	"roomchat/backend/internal/storage"
)

// Caller identifies who issued a command and from where.
type Caller struct {
	UserID    string
	RoomName  string
	ClientID  string
	UserAgent string
}

// Command is one resolved command handler.
type Command interface {
	Execute(ctx context.Context, parts []string, caller Caller) error
}

// Env holds the collaborators a handler is built with.
type Env struct {
	Repo     storage.Repository
	Chat     *chat.Service
	Notify   NotificationService
	Registry *Registry
}

// commit flushes the working set.
func (e Env) commit(ctx context.Context) error {
	return e.Repo.CommitChanges(ctx)
}

// Factory builds a handler for a single invocation.
type Factory func(env Env) Command

// Metadata is the help entry of a command.
type Metadata struct {
	Name   string  `json:"name"`
	Usage  string  `json:"usage"`
	Weight float64 `json:"weight"`
}

type Entry struct {
	Metadata
	Factory Factory
}

// Registry maps command names to handler factories.
type Registry struct {
	entries map[string]Entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register adds a command. Registering the same name twice panics.
func (r *Registry) Register(name, usage string, weight float64, factory Factory) {
	if _, exists := r.entries[name]; exists {
		panic(fmt.Sprintf("commands: %q registered twice", name))
	}
	r.entries[name] = Entry{
		Metadata: Metadata{Name: name, Usage: usage, Weight: weight},
		Factory:  factory,
	}
}

// Resolve looks a command up by its exact name.
func (r *Registry) Resolve(name string) (Entry, error) {
	entry, ok := r.entries[name]
	if !ok {
		return Entry{}, apperror.NotFound("'%s' is not a valid command.", name)
	}
	return entry, nil
}

// List returns the help entries ordered by weight.
func (r *Registry) List() []Metadata {
	out := make([]Metadata, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Metadata)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight < out[j].Weight
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// DefaultRegistry returns the full command table.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("help", "Type /help to show the list of commands", 1, func(e Env) Command { return &helpCommand{e} })
	r.Register("nick", "Type /nick [user] [password] to create a user or change your nickname. You can change your password with /nick [user] [oldpassword] [newpassword]", 2, func(e Env) Command { return &nickCommand{e} })
	r.Register("join", "Type /join [room] [inviteCode] - to join a channel of your choice. If it is private and you have an invite code, enter it after the room name", 3, func(e Env) Command { return &joinCommand{e} })
	r.Register("create", "Type /create [room] to create a room", 4, func(e Env) Command { return &createCommand{e} })
	r.Register("me", "Type /me 'does anything'", 5, func(e Env) Command { return &meCommand{e} })
	r.Register("msg", "Type /msg @nickname (message) to send a private message to nickname. @ is optional", 6, func(e Env) Command { return &msgCommand{e} })
	r.Register("leave", "Type /leave to leave the current room. Type /leave [room name] to leave a specific room.", 7, func(e Env) Command { return &leaveCommand{e} })
	r.Register("rooms", "Type /rooms to show the list of rooms", 8, func(e Env) Command { return &roomsCommand{e} })
	r.Register("where", "Type /where [name] to see the rooms that user is in", 9, func(e Env) Command { return &whereCommand{e} })
	r.Register("who", "Type /who to show a list of all users, /who [name] to show specific information about that user", 10, func(e Env) Command { return &whoCommand{e} })
	r.Register("list", "Type /list (room) to show a list of users in the room", 11, func(e Env) Command { return &listCommand{e} })
	r.Register("gravatar", "Type /gravatar [email] to set your gravatar", 12, func(e Env) Command { return &gravatarCommand{e} })
	r.Register("nudge", "Type /nudge to send a nudge to the whole room, or \"/nudge @nickname\" to nudge a particular user. @ is optional.", 13, func(e Env) Command { return &nudgeCommand{e} })
	r.Register("kick", "Type /kick [user] to kick a user from the room. Note, this is only valid for owners of the room.", 14, func(e Env) Command { return &kickCommand{e} })
	r.Register("logout", "Type /logout - To logout from this client (chat cookie will be removed).", 15, func(e Env) Command { return &logoutCommand{e} })
	r.Register("addowner", "Type /addowner [user] [room] - To add an owner a user as an owner to the specified room. Only works if you're an owner of that room.", 16, func(e Env) Command { return &addOwnerCommand{e} })
	r.Register("removeowner", "Type /removeowner [user] [room] - To remove an owner from the specified room. Only works if you're the creator of that room", 17, func(e Env) Command { return &removeOwnerCommand{e} })
	r.Register("lock", "Type /lock [room] - To make a room private. Only works if you're the creator of that room.", 18, func(e Env) Command { return &lockCommand{e} })
	r.Register("open", "Type /open [room] -  To open a room. Only works if you're the creator of that room.", 18.5, func(e Env) Command { return &openCommand{e} })
	r.Register("close", "Type /close [room] - To close a room. Only works if you're an owner of that room.", 19, func(e Env) Command { return &closeCommand{e} })
	r.Register("allow", "Type /allow [user] [room] - To give a user permission to a private room. Only works if you're an owner of that room.", 20, func(e Env) Command { return &allowCommand{e} })
	r.Register("unallow", "Type /unallow [user] [room] - To revoke a user's permission to a private room. Only works if you're an owner of that room.", 21, func(e Env) Command { return &unallowCommand{e} })
	r.Register("invitecode", "Type /invitecode - To show the current invite code", 22, func(e Env) Command { return &inviteCodeCommand{e} })
	r.Register("resetinvitecode", "Type /resetinvitecode - To reset the current invite code. This will render the previous invite code invalid", 23, func(e Env) Command { return &resetInviteCodeCommand{e} })
	r.Register("note", "Type /note - To set a note shown via a paperclip icon next to your name, with the message appearing when you hover over it.", 24, func(e Env) Command { return &noteCommand{e} })
	r.Register("afk", "Type /afk - (aka. Away From Keyboard). To set a temporary note shown via a paperclip icon next to your name, with the message appearing when you hover over it. This note will disappear when you first resume typing.", 25, func(e Env) Command { return &afkCommand{e} })
	r.Register("flag", "Type /flag [Iso 3366-2 Code] - To show a small flag which represents your nationality. Eg. /flag US for a USA flag. ISO Reference Chart: http://en.wikipedia.org/wiki/ISO_3166-1_alpha-2 (Apologies to people with dual citizenship).", 26, func(e Env) Command { return &flagCommand{e} })
	r.Register("topic", "Type /topic [topic] to set the room topic. Type /topic to clear the room's topic.", 27, func(e Env) Command { return &topicCommand{e} })
	return r
}
