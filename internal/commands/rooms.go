package commands

import (
	"context"
	"fmt"

	"roomchat/backend/internal/apperror"
)

type joinCommand struct{ Env }

// Execute joins a room. Joining a room twice only repeats the caller's
// own confirmation.
func (c *joinCommand) Execute(ctx context.Context, parts []string, caller Caller) error {
	user, err := c.Repo.VerifyUserID(caller.UserID)
	if err != nil {
		return err
	}
	if len(parts) < 2 {
		return apperror.Validation("Join which room?")
	}
	room, err := c.Repo.VerifyRoom(parts[1], true)
	if err != nil {
		return err
	}
	if !room.IsMember(user) {
		if err := c.Chat.JoinRoom(user, room, arg(parts, 2)); err != nil {
			return err
		}
		if err := c.commit(ctx); err != nil {
			return err
		}
	}
	c.Notify.JoinRoom(user, room)
	return nil
}

type createCommand struct{ Env }

func (c *createCommand) Execute(ctx context.Context, parts []string, caller Caller) error {
	user, err := c.Repo.VerifyUserID(caller.UserID)
	if err != nil {
		return err
	}
	if len(parts) > 2 {
		return apperror.Validation("Room name cannot contain spaces.")
	}
	if len(parts) == 1 || parts[1] == "" {
		return apperror.Validation("No room specified.")
	}
	name := parts[1]
	if existing := c.Repo.GetRoomByName(name); existing != nil {
		suffix := ""
		if existing.Closed {
			suffix = " but it's closed"
		}
		return apperror.Conflict("The room '%s' already exists%s", name, suffix)
	}
	room, err := c.Chat.AddRoom(user, name)
	if err != nil {
		return err
	}
	if err := c.Chat.JoinRoom(user, room, ""); err != nil {
		return err
	}
	if err := c.commit(ctx); err != nil {
		return err
	}
	c.Notify.JoinRoom(user, room)
	return nil
}

type leaveCommand struct{ Env }

// Execute leaves the named room, or the current one without an argument.
func (c *leaveCommand) Execute(ctx context.Context, parts []string, caller Caller) error {
	user, err := c.Repo.VerifyUserID(caller.UserID)
	if err != nil {
		return err
	}
	roomName := caller.RoomName
	if len(parts) == 2 {
		roomName = parts[1]
	}
	room, err := c.Repo.VerifyRoom(roomName, true)
	if err != nil {
		return err
	}
	if err := c.Chat.LeaveRoom(user, room); err != nil {
		return err
	}
	if err := c.commit(ctx); err != nil {
		return err
	}
	c.Notify.LeaveRoom(user, room)
	return nil
}

type lockCommand struct{ Env }

func (c *lockCommand) Execute(ctx context.Context, parts []string, caller Caller) error {
	user, err := c.Repo.VerifyUserID(caller.UserID)
	if err != nil {
		return err
	}
	if len(parts) < 2 {
		return apperror.Validation("Which room do you want to lock?")
	}
	room, err := c.Repo.VerifyRoom(parts[1], true)
	if err != nil {
		return err
	}
	if err := c.Chat.LockRoom(user, room); err != nil {
		return err
	}
	if err := c.commit(ctx); err != nil {
		return err
	}
	c.Notify.LockRoom(user, room)
	return nil
}

type openCommand struct{ Env }

// Execute reopens a closed room, joins the caller to it and resubscribes
// the members that were online when it closed.
func (c *openCommand) Execute(ctx context.Context, parts []string, caller Caller) error {
	user, err := c.Repo.VerifyUserID(caller.UserID)
	if err != nil {
		return err
	}
	if len(parts) < 2 {
		return apperror.Validation("Which room do you want to open?")
	}
	room, err := c.Repo.VerifyRoom(parts[1], false)
	if err != nil {
		return err
	}
	if err := c.Chat.OpenRoom(user, room); err != nil {
		return err
	}
	if err := c.Chat.JoinRoom(user, room, ""); err != nil {
		return err
	}
	if err := c.commit(ctx); err != nil {
		return err
	}
	c.Notify.OpenRoom(user, room)
	return nil
}

type closeCommand struct{ Env }

func (c *closeCommand) Execute(ctx context.Context, parts []string, caller Caller) error {
	user, err := c.Repo.VerifyUserID(caller.UserID)
	if err != nil {
		return err
	}
	if len(parts) < 2 {
		return apperror.Validation("Which room do you want to close?")
	}
	room, err := c.Repo.VerifyRoom(parts[1], true)
	if err != nil {
		return err
	}
	members := room.Members()
	if err := c.Chat.CloseRoom(user, room); err != nil {
		return err
	}
	if err := c.commit(ctx); err != nil {
		return err
	}
	c.Notify.CloseRoom(members, room)
	return nil
}

type topicCommand struct{ Env }

// Execute sets the current room's topic; no text clears it.
func (c *topicCommand) Execute(ctx context.Context, parts []string, caller Caller) error {
	user, err := c.Repo.VerifyUserID(caller.UserID)
	if err != nil {
		return err
	}
	room, err := c.Repo.VerifyRoom(caller.RoomName, true)
	if err != nil {
		return err
	}
	if err := c.Chat.ChangeTopic(user, room, rest(parts, 1)); err != nil {
		return err
	}
	if err := c.commit(ctx); err != nil {
		return err
	}
	c.Notify.ChangeTopic(user, room)
	return nil
}

type inviteCodeCommand struct{ Env }

// Execute shows the current room's invite code, generating one on first use.
func (c *inviteCodeCommand) Execute(ctx context.Context, parts []string, caller Caller) error {
	return showInviteCode(ctx, c.Env, caller, false)
}

type resetInviteCodeCommand struct{ Env }

func (c *resetInviteCodeCommand) Execute(ctx context.Context, parts []string, caller Caller) error {
	return showInviteCode(ctx, c.Env, caller, true)
}

func showInviteCode(ctx context.Context, env Env, caller Caller, reset bool) error {
	user, err := env.Repo.VerifyUserID(caller.UserID)
	if err != nil {
		return err
	}
	room, err := env.Repo.VerifyRoom(caller.RoomName, true)
	if err != nil {
		return err
	}
	code := room.InviteCode
	if reset || code == "" {
		if code, err = env.Chat.NewInviteCode(); err != nil {
			return err
		}
	}
	if err := env.Chat.SetInviteCode(user, room, code); err != nil {
		return err
	}
	if err := env.commit(ctx); err != nil {
		return err
	}
	env.Notify.PostNotification(room, user, fmt.Sprintf("Invite Code for this room: %s", room.InviteCode))
	return nil
}
