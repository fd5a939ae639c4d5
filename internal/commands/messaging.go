package commands

import (
	"context"

	"roomchat/backend/internal/apperror"
	"roomchat/backend/internal/models"
)

type meCommand struct{ Env }

func (c *meCommand) Execute(ctx context.Context, parts []string, caller Caller) error {
	if len(parts) < 2 {
		return apperror.Validation("You what?")
	}
	user, err := c.Repo.VerifyUserID(caller.UserID)
	if err != nil {
		return err
	}
	room, err := c.Repo.VerifyUserRoom(user, caller.RoomName)
	if err != nil {
		return err
	}
	c.Notify.OnSelfMessage(room, user, rest(parts, 1))
	return nil
}

type msgCommand struct{ Env }

// Execute sends an ephemeral private message. Nothing is stored.
func (c *msgCommand) Execute(ctx context.Context, parts []string, caller Caller) error {
	user, err := c.Repo.VerifyUserID(caller.UserID)
	if err != nil {
		return err
	}
	if c.Repo.UserCount() == 1 {
		return apperror.State("You're the only person in here...")
	}
	if len(parts) < 2 || stripAt(parts[1]) == "" {
		return apperror.Validation("Who are you trying send a private message to?")
	}
	to, err := c.Repo.VerifyUser(stripAt(parts[1]))
	if err != nil {
		return err
	}
	if to == user {
		return apperror.Validation("You can't private message yourself!")
	}
	text := rest(parts, 2)
	if text == "" {
		return apperror.Validation("What did you want to say to '%s'.", to.Name)
	}
	c.Notify.SendPrivateMessage(user, to, text)
	return nil
}

type nudgeCommand struct{ Env }

// Execute nudges one user with an argument, otherwise the current room.
func (c *nudgeCommand) Execute(ctx context.Context, parts []string, caller Caller) error {
	user, err := c.Repo.VerifyUserID(caller.UserID)
	if err != nil {
		return err
	}
	if len(parts) == 2 {
		return c.nudgeUser(ctx, user, stripAt(parts[1]))
	}
	room, err := c.Repo.VerifyUserRoom(user, caller.RoomName)
	if err != nil {
		return err
	}
	if err := c.Chat.NudgeRoom(user, room); err != nil {
		return err
	}
	if err := c.commit(ctx); err != nil {
		return err
	}
	c.Notify.NudgeRoom(room, user)
	return nil
}

func (c *nudgeCommand) nudgeUser(ctx context.Context, user *models.ChatUser, name string) error {
	if c.Repo.UserCount() == 1 {
		return apperror.State("You're the only person in here...")
	}
	target, err := c.Repo.VerifyUser(name)
	if err != nil {
		return err
	}
	if err := c.Chat.NudgeUser(user, target); err != nil {
		return err
	}
	if err := c.commit(ctx); err != nil {
		return err
	}
	c.Notify.NudgeUser(user, target)
	return nil
}
