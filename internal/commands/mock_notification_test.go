package commands_test

import (
	"roomchat/backend/internal/commands"
	"roomchat/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) OnUserCreated(user *models.ChatUser) { m.Called(user) }
func (m *MockNotifier) LogOn(user *models.ChatUser, clientID string, firstAttach bool) {
	m.Called(user, clientID, firstAttach)
}
func (m *MockNotifier) LogOut(user *models.ChatUser, clientIDs []string) {
	m.Called(user, clientIDs)
}
func (m *MockNotifier) OnUserNameChanged(user *models.ChatUser, oldName, newName string) {
	m.Called(user, oldName, newName)
}
func (m *MockNotifier) SetPassword()    { m.Called() }
func (m *MockNotifier) ChangePassword() { m.Called() }

func (m *MockNotifier) JoinRoom(user *models.ChatUser, room *models.ChatRoom) {
	m.Called(user, room)
}
func (m *MockNotifier) LeaveRoom(user *models.ChatUser, room *models.ChatRoom) {
	m.Called(user, room)
}
func (m *MockNotifier) KickUser(target *models.ChatUser, room *models.ChatRoom) {
	m.Called(target, room)
}
func (m *MockNotifier) AllowUser(target *models.ChatUser, room *models.ChatRoom) {
	m.Called(target, room)
}
func (m *MockNotifier) UnallowUser(target *models.ChatUser, room *models.ChatRoom, wasMember bool) {
	m.Called(target, room, wasMember)
}
func (m *MockNotifier) AddOwner(target *models.ChatUser, room *models.ChatRoom) {
	m.Called(target, room)
}
func (m *MockNotifier) RemoveOwner(target *models.ChatUser, room *models.ChatRoom) {
	m.Called(target, room)
}
func (m *MockNotifier) LockRoom(user *models.ChatUser, room *models.ChatRoom) {
	m.Called(user, room)
}
func (m *MockNotifier) CloseRoom(members []*models.ChatUser, room *models.ChatRoom) {
	m.Called(members, room)
}
func (m *MockNotifier) OpenRoom(user *models.ChatUser, room *models.ChatRoom) {
	m.Called(user, room)
}

func (m *MockNotifier) ChangeTopic(user *models.ChatUser, room *models.ChatRoom) {
	m.Called(user, room)
}
func (m *MockNotifier) ChangeNote(user *models.ChatUser)     { m.Called(user) }
func (m *MockNotifier) ChangeFlag(user *models.ChatUser)     { m.Called(user) }
func (m *MockNotifier) ChangeGravatar(user *models.ChatUser) { m.Called(user) }

func (m *MockNotifier) SendPrivateMessage(from, to *models.ChatUser, text string) {
	m.Called(from, to, text)
}
func (m *MockNotifier) NudgeUser(user, target *models.ChatUser) { m.Called(user, target) }
func (m *MockNotifier) NudgeRoom(room *models.ChatRoom, user *models.ChatUser) {
	m.Called(room, user)
}
func (m *MockNotifier) OnSelfMessage(room *models.ChatRoom, user *models.ChatUser, content string) {
	m.Called(room, user, content)
}
func (m *MockNotifier) PostNotification(room *models.ChatRoom, user *models.ChatUser, message string) {
	m.Called(room, user, message)
}

func (m *MockNotifier) ListUsers(names []string) { m.Called(names) }
func (m *MockNotifier) ListUsersInRoom(room *models.ChatRoom, names []string) {
	m.Called(room, names)
}
func (m *MockNotifier) ListRooms(user *models.ChatUser, rooms []string) { m.Called(user, rooms) }
func (m *MockNotifier) ShowRooms(rooms []models.RoomView)               { m.Called(rooms) }
func (m *MockNotifier) ShowUserInfo(info models.UserInfoView)           { m.Called(info) }
func (m *MockNotifier) ShowHelp(list []commands.Metadata)               { m.Called(list) }

var _ commands.NotificationService = (*MockNotifier)(nil)
