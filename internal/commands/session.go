package commands

import (
	"context"
	"strings"

	"roomchat/backend/internal/apperror"
	"roomchat/backend/internal/chat"
	"roomchat/backend/internal/models"
)

type nickCommand struct{ Env }

// Execute creates a user, logs on an existing one, renames, or manages
// the caller's password depending on the arguments and session.
func (c *nickCommand) Execute(ctx context.Context, parts []string, caller Caller) error {
	if len(parts) == 1 || parts[1] == "" {
		return apperror.Validation("No nick specified!")
	}
	userName := parts[1]
	password := arg(parts, 2)
	newPassword := arg(parts, 3)

	user := c.Repo.GetUserByID(caller.UserID)
	if user == nil && newPassword == "" {
		if existing := c.Repo.GetUserByName(userName); existing != nil {
			return c.logOn(ctx, existing, password, caller)
		}
		created, err := c.Chat.AddUser(userName, caller.ClientID, caller.UserAgent, password)
		if err != nil {
			return err
		}
		if err := c.commit(ctx); err != nil {
			return err
		}
		c.Notify.OnUserCreated(created)
		return nil
	}
	if user == nil {
		_, err := c.Repo.VerifyUserID(caller.UserID)
		return err
	}

	if password == "" {
		oldName := user.Name
		if err := c.Chat.ChangeUserName(user, userName); err != nil {
			return err
		}
		if err := c.commit(ctx); err != nil {
			return err
		}
		c.Notify.OnUserNameChanged(user, oldName, userName)
		return nil
	}

	target, err := c.Repo.VerifyUser(userName)
	if err != nil {
		return err
	}
	if target != user {
		return apperror.Authorization("You can't set/change the password for a nickname you down own.")
	}
	if newPassword == "" {
		if err := c.Chat.SetUserPassword(user, password); err != nil {
			return err
		}
		if err := c.commit(ctx); err != nil {
			return err
		}
		c.Notify.SetPassword()
		return nil
	}
	if err := c.Chat.ChangeUserPassword(user, password, newPassword); err != nil {
		return err
	}
	if err := c.commit(ctx); err != nil {
		return err
	}
	c.Notify.ChangePassword()
	return nil
}

func (c *nickCommand) logOn(ctx context.Context, user *models.ChatUser, password string, caller Caller) error {
	if password == "" {
		return chat.PasswordRequired()
	}
	if _, err := c.Chat.AuthenticateUser(user.Name, password); err != nil {
		return err
	}
	firstAttach := c.Chat.AddClient(user, caller.ClientID, caller.UserAgent)
	if err := c.commit(ctx); err != nil {
		return err
	}
	c.Notify.LogOn(user, caller.ClientID, firstAttach)
	return nil
}

type logoutCommand struct{ Env }

// Execute detaches every connection of the caller.
func (c *logoutCommand) Execute(ctx context.Context, parts []string, caller Caller) error {
	user, err := c.Repo.VerifyUserID(caller.UserID)
	if err != nil {
		return err
	}
	var clientIDs []string
	for _, client := range user.Clients() {
		clientIDs = append(clientIDs, client.ID)
		c.Chat.DisconnectClient(client.ID)
	}
	if err := c.commit(ctx); err != nil {
		return err
	}
	c.Notify.LogOut(user, clientIDs)
	return nil
}

func arg(parts []string, i int) string {
	if len(parts) > i {
		return parts[i]
	}
	return ""
}

// rest joins the arguments after the command name.
func rest(parts []string, from int) string {
	if len(parts) <= from {
		return ""
	}
	return strings.TrimSpace(strings.Join(parts[from:], " "))
}

func stripAt(name string) string {
	return strings.TrimPrefix(name, "@")
}
