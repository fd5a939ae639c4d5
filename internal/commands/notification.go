package commands

import "roomchat/backend/internal/models"

// NotificationService receives domain events from handlers. Transport
// adapters implement it bound to the calling connection, so "caller"
// below means the connection that issued the command.
type NotificationService interface {
	// Session
	OnUserCreated(user *models.ChatUser)
	LogOn(user *models.ChatUser, clientID string, firstAttach bool)
	LogOut(user *models.ChatUser, clientIDs []string)
	OnUserNameChanged(user *models.ChatUser, oldName, newName string)
	SetPassword()
	ChangePassword()

	// Membership
	JoinRoom(user *models.ChatUser, room *models.ChatRoom)
	LeaveRoom(user *models.ChatUser, room *models.ChatRoom)
	KickUser(target *models.ChatUser, room *models.ChatRoom)
	AllowUser(target *models.ChatUser, room *models.ChatRoom)
	UnallowUser(target *models.ChatUser, room *models.ChatRoom, wasMember bool)
	AddOwner(target *models.ChatUser, room *models.ChatRoom)
	RemoveOwner(target *models.ChatUser, room *models.ChatRoom)
	LockRoom(user *models.ChatUser, room *models.ChatRoom)
	CloseRoom(members []*models.ChatUser, room *models.ChatRoom)
	OpenRoom(user *models.ChatUser, room *models.ChatRoom)

	// Profile and room metadata
	ChangeTopic(user *models.ChatUser, room *models.ChatRoom)
	ChangeNote(user *models.ChatUser)
	ChangeFlag(user *models.ChatUser)
	ChangeGravatar(user *models.ChatUser)

	// Messaging
	SendPrivateMessage(from, to *models.ChatUser, text string)
	NudgeUser(user, target *models.ChatUser)
	NudgeRoom(room *models.ChatRoom, user *models.ChatUser)
	OnSelfMessage(room *models.ChatRoom, user *models.ChatUser, content string)
	PostNotification(room *models.ChatRoom, user *models.ChatUser, message string)

	// Queries answered to the caller only
	ListUsers(names []string)
	ListUsersInRoom(room *models.ChatRoom, names []string)
	ListRooms(user *models.ChatUser, rooms []string)
	ShowRooms(rooms []models.RoomView)
	ShowUserInfo(info models.UserInfoView)
	ShowHelp(commands []Metadata)
}
