package commands_test

import (
	"errors"
	"regexp"
	"testing"
	"testing/iotest"
	"time"

	"roomchat/backend/internal/apperror"
	"roomchat/backend/internal/commands"
	"roomchat/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMissingArguments(t *testing.T) {
	h := newHarness()
	alice, caller := h.user(t, "alice")
	h.user(t, "bob")
	h.room(t, alice, "lobby")
	caller.RoomName = "lobby"

	tests := []struct {
		input string
		want  string
	}{
		{"/nick", "No nick specified!"},
		{"/join", "Join which room?"},
		{"/create", "No room specified."},
		{"/create two words", "Room name cannot contain spaces."},
		{"/me", "You what?"},
		{"/msg", "Who are you trying send a private message to?"},
		{"/msg bob", "What did you want to say to 'bob'."},
		{"/msg alice hi", "You can't private message yourself!"},
		{"/kick", "Who are you trying to kick?"},
		{"/addowner", "Who do you want to make an owner?"},
		{"/addowner bob", "Which room?"},
		{"/removeowner", "Which owner do you want to remove?"},
		{"/removeowner bob", "Which room?"},
		{"/allow", "Who do you want to allow?"},
		{"/allow bob", "Which room?"},
		{"/unallow", "Who do you want to unallow?"},
		{"/unallow bob", "Which room?"},
		{"/lock", "Which room do you want to lock?"},
		{"/open", "Which room do you want to open?"},
		{"/close", "Which room do you want to close?"},
		{"/where", "Who are you trying to locate?"},
		{"/list", "List users in which room?"},
		{"/gravatar", "Email was not specified!"},
		{"/who zed", "We didn't find anyone with the username zed"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := h.run(t, tt.input, caller)
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
		})
	}
	h.notify.AssertExpectations(t)
}

func TestAnonymousCallerMustPickANick(t *testing.T) {
	h := newHarness()
	anon := commands.Caller{ClientID: "c1"}

	for _, input := range []string{"/join lobby", "/create lobby", "/note hi", "/logout", "/nudge"} {
		err := h.run(t, input, anon)
		assert.ErrorIs(t, err, apperror.ErrAuthentication, input)
		assert.EqualError(t, err, "You're not logged in. Type /nick [name] to pick a name.", input)
	}
}

func TestScenario_NickCreateTopicWho(t *testing.T) {
	h := newHarness()
	caller := commands.Caller{ClientID: "c1", UserAgent: "test"}

	h.notify.On("OnUserCreated", mock.AnythingOfType("*models.ChatUser")).Return().Once()
	require.NoError(t, h.run(t, "/nick alice", caller))
	alice := h.repo.GetUserByName("alice")
	require.NotNil(t, alice)
	assert.Same(t, alice, h.repo.GetUserByClientID("c1"))
	caller.UserID = alice.ID

	h.notify.On("JoinRoom", alice, mock.AnythingOfType("*models.ChatRoom")).Return().Once()
	require.NoError(t, h.run(t, "/create lobby", caller))
	lobby := h.repo.GetRoomByName("lobby")
	require.NotNil(t, lobby)
	assert.True(t, lobby.IsMember(alice))
	assert.True(t, lobby.IsOwner(alice))
	caller.RoomName = "lobby"

	h.notify.On("ChangeTopic", alice, lobby).Return().Once()
	require.NoError(t, h.run(t, "/topic welcome", caller))
	assert.Equal(t, "welcome", lobby.Topic)

	h.notify.On("ShowUserInfo", mock.MatchedBy(func(info models.UserInfoView) bool {
		return info.Name == "alice" && assert.ObjectsAreEqual([]string{"lobby"}, info.Rooms)
	})).Return().Once()
	require.NoError(t, h.run(t, "/who alice", caller))

	h.notify.AssertExpectations(t)
}

func TestScenario_AllowUnallow(t *testing.T) {
	h := newHarness()
	owner, ownerCaller := h.user(t, "owner")
	bob, bobCaller := h.user(t, "bob")
	secret := h.room(t, owner, "secret")

	h.notify.On("LockRoom", owner, secret).Return().Once()
	require.NoError(t, h.run(t, "/lock secret", ownerCaller))

	assert.ErrorIs(t, h.run(t, "/join secret", bobCaller), apperror.ErrAuthorization)

	h.notify.On("AllowUser", bob, secret).Return().Once()
	require.NoError(t, h.run(t, "/allow bob secret", ownerCaller))

	h.notify.On("JoinRoom", bob, secret).Return().Once()
	require.NoError(t, h.run(t, "/join secret", bobCaller))
	assert.True(t, secret.IsMember(bob))

	h.notify.On("UnallowUser", bob, secret, true).Return().Once()
	require.NoError(t, h.run(t, "/unallow bob secret", ownerCaller))
	assert.False(t, secret.IsMember(bob))
	assert.False(t, secret.IsAllowed(bob))

	assert.ErrorIs(t, h.run(t, "/join secret", bobCaller), apperror.ErrAuthorization)
	h.notify.AssertExpectations(t)
}

func TestScenario_OnlyPersonInHere(t *testing.T) {
	h := newHarness()
	alice, caller := h.user(t, "alice")
	h.room(t, alice, "lobby")
	caller.RoomName = "lobby"

	err := h.run(t, "/msg anyone hi", caller)
	assert.EqualError(t, err, "You're the only person in here...")

	err = h.run(t, "/kick anyone", caller)
	assert.EqualError(t, err, "You're the only person in here...")

	h.user(t, "bob")
	err = h.run(t, "/kick bob", caller)
	assert.EqualError(t, err, "You're the only person in here...", "bob exists but is not in the room")
}

func TestJoin_Idempotent(t *testing.T) {
	h := newHarness()
	alice, _ := h.user(t, "alice")
	bob, bobCaller := h.user(t, "bob")
	lobby := h.room(t, alice, "lobby")

	h.notify.On("JoinRoom", bob, lobby).Return().Twice()
	require.NoError(t, h.run(t, "/join lobby", bobCaller))
	assert.False(t, lobby.IsDirty(), "committed")

	require.NoError(t, h.run(t, "/join LOBBY", bobCaller))
	assert.False(t, lobby.IsDirty(), "second join must not mutate the room")
	assert.Equal(t, 2, lobby.MemberCount())
	h.notify.AssertExpectations(t)
}

func TestCreate_Duplicate(t *testing.T) {
	h := newHarness()
	alice, caller := h.user(t, "alice")
	lobby := h.room(t, alice, "lobby")

	err := h.run(t, "/create LOBBY", caller)
	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.EqualError(t, err, "The room 'LOBBY' already exists")

	require.NoError(t, h.chat.CloseRoom(alice, lobby))
	err = h.run(t, "/create Lobby", caller)
	assert.EqualError(t, err, "The room 'Lobby' already exists but it's closed")
}

func TestKick(t *testing.T) {
	h := newHarness()
	alice, caller := h.user(t, "alice")
	bob, bobCaller := h.user(t, "bob")
	lobby := h.room(t, alice, "lobby")
	require.NoError(t, h.chat.JoinRoom(bob, lobby, ""))
	caller.RoomName = "lobby"
	bobCaller.RoomName = "lobby"

	assert.ErrorIs(t, h.run(t, "/kick alice", bobCaller), apperror.ErrAuthorization)

	h.notify.On("KickUser", bob, lobby).Return().Once()
	require.NoError(t, h.run(t, "/kick @bob", caller))
	assert.False(t, lobby.IsMember(bob))
	h.notify.AssertExpectations(t)
}

func TestNudge_Cooldown(t *testing.T) {
	h := newHarness()
	alice, caller := h.user(t, "alice")
	bob, _ := h.user(t, "bob")
	h.notify.On("NudgeUser", alice, bob).Return().Twice()

	require.NoError(t, h.run(t, "/nudge bob", caller))
	first := bob.LastNudged

	h.now = h.now.Add(30 * time.Second)
	err := h.run(t, "/nudge bob", caller)
	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.EqualError(t, err, "User can only be nudged once every 60 seconds")
	assert.Equal(t, first, bob.LastNudged)

	h.now = h.now.Add(30 * time.Second)
	require.NoError(t, h.run(t, "/nudge @bob", caller))
	assert.True(t, bob.LastNudged.After(first))
	h.notify.AssertExpectations(t)
}

func TestNudge_Room(t *testing.T) {
	h := newHarness()
	alice, caller := h.user(t, "alice")
	lobby := h.room(t, alice, "lobby")

	assert.ErrorIs(t, h.run(t, "/nudge", caller), apperror.ErrValidation, "no current room")

	caller.RoomName = "lobby"
	h.notify.On("NudgeRoom", lobby, alice).Return().Once()
	require.NoError(t, h.run(t, "/nudge", caller))
	assert.EqualError(t, h.run(t, "/nudge", caller), "Room can only be nudged once every 60 seconds")
	h.notify.AssertExpectations(t)
}

func TestNick(t *testing.T) {
	h := newHarness()
	_, err := h.chat.AddUser("carol", "c-carol", "", "secret1")
	require.NoError(t, err)
	carol := h.repo.GetUserByName("carol")
	alice, aliceCaller := h.user(t, "alice")
	anon := commands.Caller{ClientID: "c2", UserAgent: "phone"}

	assert.EqualError(t, h.run(t, "/nick carol", anon), "A password is required.")
	assert.EqualError(t, h.run(t, "/nick carol wrong", anon), "Incorrect password.")

	h.notify.On("LogOn", carol, "c2", false).Return().Once()
	require.NoError(t, h.run(t, "/nick Carol secret1", anon))
	assert.Len(t, carol.Clients(), 2)

	_, err = h.chat.AddUser("dave", "c-dave", "", "secret1")
	require.NoError(t, err)
	dave := h.repo.GetUserByName("dave")
	h.chat.DisconnectClient("c-dave")
	require.Equal(t, models.UserStatusOffline, dave.Status)
	h.notify.On("LogOn", dave, "c3", true).Return().Once()
	require.NoError(t, h.run(t, "/nick dave secret1", commands.Caller{ClientID: "c3"}))

	h.notify.On("OnUserNameChanged", alice, "alice", "alicia").Return().Once()
	require.NoError(t, h.run(t, "/nick alicia", aliceCaller))
	assert.Equal(t, "alicia", alice.Name)

	err = h.run(t, "/nick carol pw1234", aliceCaller)
	assert.EqualError(t, err, "You can't set/change the password for a nickname you down own.")

	h.notify.On("SetPassword").Return().Once()
	require.NoError(t, h.run(t, "/nick alicia secret1", aliceCaller))
	assert.True(t, alice.HasPassword())

	h.notify.On("ChangePassword").Return().Once()
	require.NoError(t, h.run(t, "/nick alicia secret1 secret2", aliceCaller))

	assert.ErrorIs(t, h.run(t, "/nick CAROL", aliceCaller), apperror.ErrConflict)
	h.notify.AssertExpectations(t)
}

func TestLogout(t *testing.T) {
	h := newHarness()
	alice, caller := h.user(t, "alice")
	h.chat.AddClient(alice, "second", "phone")

	h.notify.On("LogOut", alice, []string{"client-alice", "second"}).Return().Once()
	require.NoError(t, h.run(t, "/logout", caller))
	assert.Empty(t, alice.Clients())
	assert.Equal(t, models.UserStatusOffline, alice.Status)
	h.notify.AssertExpectations(t)
}

func TestCloseAndOpen(t *testing.T) {
	h := newHarness()
	alice, caller := h.user(t, "alice")
	bob, _ := h.user(t, "bob")
	lobby := h.room(t, alice, "lobby")
	require.NoError(t, h.chat.JoinRoom(bob, lobby, ""))

	h.notify.On("CloseRoom", []*models.ChatUser{alice, bob}, lobby).Return().Once()
	require.NoError(t, h.run(t, "/close lobby", caller))
	assert.True(t, lobby.Closed)

	h.notify.On("OpenRoom", alice, lobby).Return().Once()
	require.NoError(t, h.run(t, "/open lobby", caller))
	assert.False(t, lobby.Closed)
	assert.True(t, lobby.IsMember(bob), "closing keeps memberships")
	h.notify.AssertExpectations(t)
}

func TestInviteCode(t *testing.T) {
	h := newHarness()
	alice, caller := h.user(t, "alice")
	secret := h.room(t, alice, "secret")
	caller.RoomName = "secret"

	assert.ErrorIs(t, h.run(t, "/invitecode", caller), apperror.ErrState, "public rooms have no code")
	require.NoError(t, h.chat.LockRoom(alice, secret))

	codeMessage := regexp.MustCompile(`^Invite Code for this room: \d{6}$`)
	h.notify.On("PostNotification", secret, alice, mock.MatchedBy(codeMessage.MatchString)).Return().Times(3)

	require.NoError(t, h.run(t, "/invitecode", caller))
	code := secret.InviteCode
	require.NoError(t, h.run(t, "/invitecode", caller))
	assert.Equal(t, code, secret.InviteCode, "the code is stable until reset")

	require.NoError(t, h.run(t, "/resetinvitecode", caller))
	assert.Len(t, secret.InviteCode, 6)
	h.notify.AssertExpectations(t)
}

func TestInviteCode_RandomFailure(t *testing.T) {
	h := newHarness()
	alice, caller := h.user(t, "alice")
	secret := h.room(t, alice, "secret")
	caller.RoomName = "secret"
	require.NoError(t, h.chat.LockRoom(alice, secret))
	h.chat.SetRandom(iotest.ErrReader(errors.New("entropy exhausted")))

	err := h.run(t, "/invitecode", caller)
	require.Error(t, err)
	assert.Equal(t, apperror.KindUnknown, apperror.KindOf(err))
	assert.Empty(t, secret.InviteCode)
	h.notify.AssertNotCalled(t, "PostNotification", mock.Anything, mock.Anything, mock.Anything)
}

func TestProfileCommands(t *testing.T) {
	h := newHarness()
	alice, caller := h.user(t, "alice")

	h.notify.On("ChangeNote", alice).Return().Times(3)
	require.NoError(t, h.run(t, "/note  building things ", caller))
	assert.Equal(t, "building things", alice.Note)
	require.NoError(t, h.run(t, "/note", caller))
	assert.Empty(t, alice.Note)
	require.NoError(t, h.run(t, "/afk lunch", caller))
	assert.True(t, alice.IsAfk)
	assert.Equal(t, "lunch", alice.AfkNote)

	h.notify.On("ChangeFlag", alice).Return().Twice()
	require.NoError(t, h.run(t, "/flag US", caller))
	assert.Equal(t, "us", alice.Flag)
	require.NoError(t, h.run(t, "/flag", caller))
	assert.Empty(t, alice.Flag)
	assert.ErrorIs(t, h.run(t, "/flag xx", caller), apperror.ErrValidation)

	h.notify.On("ChangeGravatar", alice).Return().Once()
	require.NoError(t, h.run(t, "/gravatar alice@example.com", caller))
	assert.NotEmpty(t, alice.Hash)
	h.notify.AssertExpectations(t)
}

func TestQueries(t *testing.T) {
	h := newHarness()
	alice, caller := h.user(t, "alice")
	bob, _ := h.user(t, "bob")
	lobby := h.room(t, alice, "lobby")
	secret := h.room(t, alice, "secret")
	require.NoError(t, h.chat.LockRoom(alice, secret))
	require.NoError(t, h.chat.JoinRoom(bob, lobby, ""))

	h.notify.On("ListUsers", []string{"alice", "bob"}).Return().Once()
	require.NoError(t, h.run(t, "/who", caller))

	h.notify.On("ListUsersInRoom", lobby, []string{"alice", "bob"}).Return().Once()
	require.NoError(t, h.run(t, "/list lobby", caller))

	h.notify.On("ListRooms", alice, []string{"lobby"}).Return().Once()
	require.NoError(t, h.run(t, "/where alice", commands.Caller{UserID: bob.ID}))

	h.notify.On("ShowRooms", mock.MatchedBy(func(rooms []models.RoomView) bool {
		return len(rooms) == 1 && rooms[0].Name == "lobby" && rooms[0].Count == 2
	})).Return().Once()
	require.NoError(t, h.run(t, "/rooms", commands.Caller{}))

	h.notify.On("OnSelfMessage", lobby, alice, "waves").Return().Once()
	caller.RoomName = "lobby"
	require.NoError(t, h.run(t, "/me waves", caller))
	h.notify.AssertExpectations(t)
}
