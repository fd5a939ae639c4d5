package chathub

import (
	"roomchat/backend/internal/commands"
	"roomchat/backend/internal/models"

	"github.com/samber/lo"
)

// notifier fans command events out to live connections. It is bound to
// the connection that issued the command and only used on the hub
// goroutine.
type notifier struct {
	m      *ManagerService
	caller Client
}

func (m *ManagerService) notifierFor(c Client) *notifier {
	return &notifier{m: m, caller: c}
}

var _ commands.NotificationService = (*notifier)(nil)

func (n *notifier) toCaller(eventType string, data any) {
	n.m.sendTo(n.caller.GetClientID(), models.Envelope{Type: eventType, Data: data})
}

func (n *notifier) OnUserCreated(user *models.ChatUser) {
	n.caller.SetUserID(user.ID)
	n.toCaller(models.EventUserCreated, models.NewUserView(user))
	n.m.sendSession(n.caller, user)
}

func (n *notifier) LogOn(user *models.ChatUser, clientID string, firstAttach bool) {
	n.caller.SetUserID(user.ID)
	n.m.attach(clientID, user, firstAttach)
	n.m.sendSession(n.caller, user)
}

// LogOut unbinds the given connections. They stay open as anonymous
// connections.
func (n *notifier) LogOut(user *models.ChatUser, clientIDs []string) {
	names := lo.Map(user.Rooms(), func(r *models.ChatRoom, _ int) string { return r.Name })
	for _, id := range clientIDs {
		n.m.sendTo(id, models.Envelope{Type: models.EventLogOut, Data: models.NamesPayload{Names: names}})
		n.m.groups.RemoveClient(id)
		if c, ok := n.m.Clients[id]; ok {
			c.SetUserID("")
			c.SetRoomID("")
		}
	}
	if user.Status == models.UserStatusOffline {
		n.m.announceDeparture(user)
	}
}

func (n *notifier) OnUserNameChanged(user *models.ChatUser, oldName, newName string) {
	view := models.NewUserView(user)
	n.m.sendToUser(user, models.Envelope{Type: models.EventUserNameChanged, Data: view})
	for _, room := range openRooms(user) {
		n.m.broadcastRoom(room, models.Envelope{
			Type: models.EventChangeUserName,
			Room: room.Name,
			Data: models.UserNamePayload{OldName: oldName, User: view},
		})
	}
}

func (n *notifier) SetPassword()    { n.toCaller(models.EventSetPassword, nil) }
func (n *notifier) ChangePassword() { n.toCaller(models.EventChangePassword, nil) }

// JoinRoom confirms the join to every connection of the user. The room
// hears about it only if some connection was not subscribed yet.
func (n *notifier) JoinRoom(user *models.ChatUser, room *models.ChatRoom) {
	n.m.sendToUser(user, models.Envelope{Type: models.EventJoinRoom, Room: room.Name, Data: models.NewRoomView(room)})
	if n.caller.GetUserID() == user.ID {
		n.caller.SetRoomID(room.Name)
	}

	pending := lo.Filter(user.Clients(), func(c *models.ChatClient, _ int) bool {
		return !n.m.groups.Has(room.Name, c.ID)
	})
	if len(pending) == 0 {
		return
	}
	n.m.broadcastRoom(room, models.Envelope{
		Type: models.EventAddUser,
		Room: room.Name,
		Data: models.AddUserPayload{User: models.NewUserView(user), IsOwner: room.IsOwner(user)},
	})
	n.m.roomChanged(room)
	for _, c := range pending {
		n.m.groups.Add(room.Name, c.ID)
	}
}

func (n *notifier) LeaveRoom(user *models.ChatUser, room *models.ChatRoom) {
	n.m.broadcastRoom(room, models.Envelope{Type: models.EventLeave, Room: room.Name, Data: models.NewUserView(user)})
	for _, c := range user.Clients() {
		n.m.groups.Remove(room.Name, c.ID)
		n.clearActiveRoom(c.ID, room)
	}
	n.m.roomChanged(room)
}

// KickUser tells the target's connections first, unsubscribes them, then
// announces the departure so the kicked connections never see it.
func (n *notifier) KickUser(target *models.ChatUser, room *models.ChatRoom) {
	for _, c := range target.Clients() {
		n.m.sendTo(c.ID, models.Envelope{Type: models.EventKick, Room: room.Name})
		n.m.groups.Remove(room.Name, c.ID)
		n.clearActiveRoom(c.ID, room)
	}
	n.LeaveRoom(target, room)
}

func (n *notifier) AllowUser(target *models.ChatUser, room *models.ChatRoom) {
	n.m.sendToUser(target, models.Envelope{Type: models.EventAllowUser, Room: room.Name})
	n.toCaller(models.EventUserAllowed, models.TargetPayload{User: target.Name, Room: room.Name})
}

func (n *notifier) UnallowUser(target *models.ChatUser, room *models.ChatRoom, wasMember bool) {
	if wasMember {
		n.KickUser(target, room)
	}
	n.m.sendToUser(target, models.Envelope{Type: models.EventUnallowUser, Room: room.Name})
	n.toCaller(models.EventUserUnallowed, models.TargetPayload{User: target.Name, Room: room.Name})
}

func (n *notifier) AddOwner(target *models.ChatUser, room *models.ChatRoom) {
	n.m.sendToUser(target, models.Envelope{Type: models.EventMakeOwner, Room: room.Name})
	if room.IsMember(target) {
		n.m.broadcastRoom(room, models.Envelope{Type: models.EventAddOwner, Room: room.Name, Data: models.NewUserView(target)})
	}
	n.toCaller(models.EventOwnerMade, models.TargetPayload{User: target.Name, Room: room.Name})
}

func (n *notifier) RemoveOwner(target *models.ChatUser, room *models.ChatRoom) {
	n.m.sendToUser(target, models.Envelope{Type: models.EventDemoteOwner, Room: room.Name})
	if room.IsMember(target) {
		n.m.broadcastRoom(room, models.Envelope{Type: models.EventRemoveOwner, Room: room.Name, Data: models.NewUserView(target)})
	}
	n.toCaller(models.EventOwnerRemoved, models.TargetPayload{User: target.Name, Room: room.Name})
}

func (n *notifier) LockRoom(user *models.ChatUser, room *models.ChatRoom) {
	n.m.broadcastAll(models.Envelope{
		Type: models.EventLockRoom,
		Room: room.Name,
		Data: models.TargetPayload{User: user.Name, Room: room.Name},
	})
	n.toCaller(models.EventRoomLocked, models.TargetPayload{User: user.Name, Room: room.Name})
	n.m.roomChanged(room)
}

// CloseRoom kicks every connection out of the room's group. Memberships
// are kept so the room can be reopened.
func (n *notifier) CloseRoom(members []*models.ChatUser, room *models.ChatRoom) {
	for _, user := range members {
		for _, c := range user.Clients() {
			n.m.sendTo(c.ID, models.Envelope{Type: models.EventKick, Room: room.Name})
			n.clearActiveRoom(c.ID, room)
		}
	}
	n.m.groups.DropRoom(room.Name)
	n.toCaller(models.EventRoomClosed, models.TargetPayload{Room: room.Name})
	n.m.roomChanged(room)
}

// OpenRoom resubscribes every member connection detached by CloseRoom.
// Each member is announced to the ones already back in the group.
func (n *notifier) OpenRoom(user *models.ChatUser, room *models.ChatRoom) {
	view := models.NewRoomView(room)
	for _, member := range room.Members() {
		clients := member.Clients()
		if len(clients) == 0 {
			continue
		}
		n.m.broadcastRoom(room, models.Envelope{
			Type: models.EventAddUser,
			Room: room.Name,
			Data: models.AddUserPayload{User: models.NewUserView(member), IsOwner: room.IsOwner(member)},
		})
		for _, c := range clients {
			n.m.groups.Add(room.Name, c.ID)
			n.m.sendTo(c.ID, models.Envelope{Type: models.EventJoinRoom, Room: room.Name, Data: view})
		}
	}
	if n.caller.GetUserID() == user.ID {
		n.caller.SetRoomID(room.Name)
	}
	n.toCaller(models.EventRoomOpened, models.TargetPayload{Room: room.Name})
	n.m.roomChanged(room)
}

func (n *notifier) ChangeTopic(user *models.ChatUser, room *models.ChatRoom) {
	n.m.sendToUser(user, models.Envelope{
		Type: models.EventTopicChanged,
		Room: room.Name,
		Data: models.TopicChangedPayload{Cleared: room.Topic == "", Topic: room.Topic},
	})
	n.m.broadcastRoom(room, models.Envelope{Type: models.EventChangeTopic, Room: room.Name, Data: models.NewRoomView(room)})
}

func (n *notifier) ChangeNote(user *models.ChatUser) {
	n.m.sendToUser(user, models.Envelope{
		Type: models.EventNoteChanged,
		Data: models.NoteChangedPayload{IsAfk: user.IsAfk, Cleared: user.Note == ""},
	})
	n.broadcastProfile(user, models.EventChangeNote)
}

func (n *notifier) ChangeFlag(user *models.ChatUser) {
	view := models.NewUserView(user)
	n.m.sendToUser(user, models.Envelope{
		Type: models.EventFlagChanged,
		Data: models.FlagChangedPayload{Cleared: user.Flag == "", Country: view.Country},
	})
	n.broadcastProfile(user, models.EventChangeFlag)
}

func (n *notifier) ChangeGravatar(user *models.ChatUser) {
	n.m.sendToUser(user, models.Envelope{Type: models.EventGravatarChanged})
	n.broadcastProfile(user, models.EventChangeGravatar)
}

func (n *notifier) broadcastProfile(user *models.ChatUser, eventType string) {
	view := models.NewUserView(user)
	for _, room := range openRooms(user) {
		n.m.broadcastRoom(room, models.Envelope{Type: eventType, Room: room.Name, Data: view})
	}
}

func (n *notifier) SendPrivateMessage(from, to *models.ChatUser, text string) {
	env := models.Envelope{
		Type: models.EventPrivateMessage,
		Data: models.PrivateMessagePayload{From: from.Name, To: to.Name, Content: text},
	}
	n.m.sendToUser(from, env)
	n.m.sendToUser(to, env)
}

func (n *notifier) NudgeUser(user, target *models.ChatUser) {
	n.m.sendToUser(target, models.Envelope{
		Type: models.EventNudge,
		Data: models.NudgePayload{From: user.Name, To: target.Name},
	})
	n.m.sendToUser(user, models.Envelope{
		Type: models.EventPrivateMessage,
		Data: models.PrivateMessagePayload{From: user.Name, To: target.Name, Content: "nudged " + target.Name},
	})
}

func (n *notifier) NudgeRoom(room *models.ChatRoom, user *models.ChatUser) {
	n.m.broadcastRoom(room, models.Envelope{Type: models.EventNudge, Room: room.Name, Data: models.NudgePayload{From: user.Name}})
}

func (n *notifier) OnSelfMessage(room *models.ChatRoom, user *models.ChatUser, content string) {
	n.m.broadcastRoom(room, models.Envelope{
		Type: models.EventMeMessage,
		Room: room.Name,
		Data: models.MeMessagePayload{User: user.Name, Content: content},
	})
}

func (n *notifier) PostNotification(room *models.ChatRoom, user *models.ChatUser, message string) {
	n.m.sendToUser(user, models.Envelope{
		Type: models.EventPostNotification,
		Room: room.Name,
		Data: models.NotificationPayload{Message: message},
	})
}

func (n *notifier) ListUsers(names []string) {
	n.toCaller(models.EventListUsers, models.NamesPayload{Names: names})
}

func (n *notifier) ListUsersInRoom(room *models.ChatRoom, names []string) {
	n.m.sendTo(n.caller.GetClientID(), models.Envelope{
		Type: models.EventShowUsersInRoom,
		Room: room.Name,
		Data: models.NamesPayload{Names: names},
	})
}

func (n *notifier) ListRooms(user *models.ChatUser, rooms []string) {
	n.toCaller(models.EventShowUsersRoomList, models.UserRoomsPayload{User: models.NewUserView(user), Rooms: rooms})
}

func (n *notifier) ShowRooms(rooms []models.RoomView) {
	n.toCaller(models.EventShowRooms, rooms)
}

func (n *notifier) ShowUserInfo(info models.UserInfoView) {
	n.toCaller(models.EventShowUserInfo, info)
}

func (n *notifier) ShowHelp(list []commands.Metadata) {
	n.toCaller(models.EventShowCommands, lo.Map(list, func(c commands.Metadata, _ int) models.CommandView {
		return models.CommandView{Name: c.Name, Usage: c.Usage}
	}))
}

func (n *notifier) clearActiveRoom(clientID string, room *models.ChatRoom) {
	if c, ok := n.m.Clients[clientID]; ok && models.NormalizeName(c.GetRoomID()) == room.NameKey {
		c.SetRoomID("")
	}
}
