package commands

import (
	"context"

	"roomchat/backend/internal/apperror"
	"roomchat/backend/internal/models"
)

type kickCommand struct{ Env }

func (c *kickCommand) Execute(ctx context.Context, parts []string, caller Caller) error {
	user, err := c.Repo.VerifyUserID(caller.UserID)
	if err != nil {
		return err
	}
	room, err := c.Repo.VerifyRoom(caller.RoomName, true)
	if err != nil {
		return err
	}
	if len(parts) == 1 {
		return apperror.Validation("Who are you trying to kick?")
	}
	if room.MemberCount() == 1 {
		return apperror.State("You're the only person in here...")
	}
	target, err := c.Repo.VerifyUser(stripAt(parts[1]))
	if err != nil {
		return err
	}
	if err := c.Chat.KickUser(user, target, room); err != nil {
		return err
	}
	if err := c.commit(ctx); err != nil {
		return err
	}
	c.Notify.KickUser(target, room)
	return nil
}

// userAndRoom resolves "/cmd user room" arguments with the given messages
// for a missing user and a missing room.
func userAndRoom(env Env, parts []string, caller Caller, noUser string) (user, target *models.ChatUser, room *models.ChatRoom, err error) {
	if user, err = env.Repo.VerifyUserID(caller.UserID); err != nil {
		return
	}
	if len(parts) == 1 {
		err = apperror.Validation("%s", noUser)
		return
	}
	if target, err = env.Repo.VerifyUser(stripAt(parts[1])); err != nil {
		return
	}
	if len(parts) == 2 {
		err = apperror.Validation("Which room?")
		return
	}
	room, err = env.Repo.VerifyRoom(parts[2], true)
	return
}

type addOwnerCommand struct{ Env }

func (c *addOwnerCommand) Execute(ctx context.Context, parts []string, caller Caller) error {
	user, target, room, err := userAndRoom(c.Env, parts, caller, "Who do you want to make an owner?")
	if err != nil {
		return err
	}
	if err := c.Chat.AddOwner(user, target, room); err != nil {
		return err
	}
	if err := c.commit(ctx); err != nil {
		return err
	}
	c.Notify.AddOwner(target, room)
	return nil
}

type removeOwnerCommand struct{ Env }

func (c *removeOwnerCommand) Execute(ctx context.Context, parts []string, caller Caller) error {
	user, target, room, err := userAndRoom(c.Env, parts, caller, "Which owner do you want to remove?")
	if err != nil {
		return err
	}
	if err := c.Chat.RemoveOwner(user, target, room); err != nil {
		return err
	}
	if err := c.commit(ctx); err != nil {
		return err
	}
	c.Notify.RemoveOwner(target, room)
	return nil
}

type allowCommand struct{ Env }

func (c *allowCommand) Execute(ctx context.Context, parts []string, caller Caller) error {
	user, target, room, err := userAndRoom(c.Env, parts, caller, "Who do you want to allow?")
	if err != nil {
		return err
	}
	if err := c.Chat.AllowUser(user, target, room); err != nil {
		return err
	}
	if err := c.commit(ctx); err != nil {
		return err
	}
	c.Notify.AllowUser(target, room)
	return nil
}

type unallowCommand struct{ Env }

// Execute revokes access to a private room and kicks the target if joined.
func (c *unallowCommand) Execute(ctx context.Context, parts []string, caller Caller) error {
	user, target, room, err := userAndRoom(c.Env, parts, caller, "Who do you want to unallow?")
	if err != nil {
		return err
	}
	wasMember, err := c.Chat.UnallowUser(user, target, room)
	if err != nil {
		return err
	}
	if err := c.commit(ctx); err != nil {
		return err
	}
	c.Notify.UnallowUser(target, room, wasMember)
	return nil
}
