package commands

import (
	"context"

	"roomchat/backend/internal/apperror"
)

type noteCommand struct{ Env }

// Execute sets the caller's note; no text clears it.
func (c *noteCommand) Execute(ctx context.Context, parts []string, caller Caller) error {
	user, err := c.Repo.VerifyUserID(caller.UserID)
	if err != nil {
		return err
	}
	if err := c.Chat.ChangeNote(user, rest(parts, 1)); err != nil {
		return err
	}
	if err := c.commit(ctx); err != nil {
		return err
	}
	c.Notify.ChangeNote(user)
	return nil
}

type afkCommand struct{ Env }

func (c *afkCommand) Execute(ctx context.Context, parts []string, caller Caller) error {
	user, err := c.Repo.VerifyUserID(caller.UserID)
	if err != nil {
		return err
	}
	if err := c.Chat.SetAfk(user, rest(parts, 1)); err != nil {
		return err
	}
	if err := c.commit(ctx); err != nil {
		return err
	}
	c.Notify.ChangeNote(user)
	return nil
}

type flagCommand struct{ Env }

// Execute sets the caller's country flag; no code clears it.
func (c *flagCommand) Execute(ctx context.Context, parts []string, caller Caller) error {
	user, err := c.Repo.VerifyUserID(caller.UserID)
	if err != nil {
		return err
	}
	if err := c.Chat.ChangeFlag(user, arg(parts, 1)); err != nil {
		return err
	}
	if err := c.commit(ctx); err != nil {
		return err
	}
	c.Notify.ChangeFlag(user)
	return nil
}

type gravatarCommand struct{ Env }

func (c *gravatarCommand) Execute(ctx context.Context, parts []string, caller Caller) error {
	user, err := c.Repo.VerifyUserID(caller.UserID)
	if err != nil {
		return err
	}
	email := rest(parts, 1)
	if email == "" {
		return apperror.Validation("Email was not specified!")
	}
	if err := c.Chat.ChangeGravatar(user, email); err != nil {
		return err
	}
	if err := c.commit(ctx); err != nil {
		return err
	}
	c.Notify.ChangeGravatar(user)
	return nil
}
