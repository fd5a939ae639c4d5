package commands

import (
	"context"

	"roomchat/backend/internal/apperror"
	"roomchat/backend/internal/models"

	"github.com/samber/lo"
)

type helpCommand struct{ Env }

func (c *helpCommand) Execute(ctx context.Context, parts []string, caller Caller) error {
	c.Notify.ShowHelp(c.Registry.List())
	return nil
}

type roomsCommand struct{ Env }

// Execute lists the open rooms the caller can see.
func (c *roomsCommand) Execute(ctx context.Context, parts []string, caller Caller) error {
	rooms := c.Repo.AllowedRooms(c.Repo.GetUserByID(caller.UserID))
	c.Notify.ShowRooms(lo.Map(rooms, func(r *models.ChatRoom, _ int) models.RoomView {
		return models.NewRoomView(r)
	}))
	return nil
}

type whereCommand struct{ Env }

func (c *whereCommand) Execute(ctx context.Context, parts []string, caller Caller) error {
	if len(parts) == 1 {
		return apperror.Validation("Who are you trying to locate?")
	}
	user, err := c.Repo.VerifyUser(stripAt(parts[1]))
	if err != nil {
		return err
	}
	viewer := c.Repo.GetUserByID(caller.UserID)
	c.Notify.ListRooms(user, visibleRoomNames(user.Rooms(), viewer))
	return nil
}

type whoCommand struct{ Env }

// Execute lists online users, or describes one user.
func (c *whoCommand) Execute(ctx context.Context, parts []string, caller Caller) error {
	if len(parts) == 1 {
		c.Notify.ListUsers(userNames(c.Repo.OnlineUsers()))
		return nil
	}
	name := stripAt(parts[1])
	user := c.Repo.GetUserByName(name)
	if user == nil {
		return apperror.NotFound("We didn't find anyone with the username %s", name)
	}
	c.Notify.ShowUserInfo(UserInfo(user, c.Repo.GetUserByID(caller.UserID)))
	return nil
}

type listCommand struct{ Env }

func (c *listCommand) Execute(ctx context.Context, parts []string, caller Caller) error {
	if len(parts) < 2 {
		return apperror.Validation("List users in which room?")
	}
	room, err := c.Repo.VerifyRoom(parts[1], true)
	if err != nil {
		return err
	}
	c.Notify.ListUsersInRoom(room, userNames(room.OnlineMembers()))
	return nil
}

// UserInfo describes user as seen by viewer: rooms the viewer can't access
// are hidden. viewer may be nil.
func UserInfo(user, viewer *models.ChatUser) models.UserInfoView {
	return models.UserInfoView{
		Name:         user.Name,
		Status:       user.Status.String(),
		LastActivity: user.LastActivity,
		IsAfk:        user.IsAfk,
		AfkNote:      user.AfkNote,
		Note:         user.Note,
		Rooms:        visibleRoomNames(user.Rooms(), viewer),
		OwnedRooms: visibleRoomNames(lo.Filter(user.OwnedRooms(), func(r *models.ChatRoom, _ int) bool {
			return !r.Closed
		}), viewer),
	}
}

func visibleRoomNames(rooms []*models.ChatRoom, viewer *models.ChatUser) []string {
	visible := lo.Filter(rooms, func(r *models.ChatRoom, _ int) bool { return r.CanAccess(viewer) })
	return lo.Map(visible, func(r *models.ChatRoom, _ int) string { return r.Name })
}

func userNames(users []*models.ChatUser) []string {
	return lo.Map(users, func(u *models.ChatUser, _ int) string { return u.Name })
}
