package chat_test

import (
	"errors"
	"testing"
	"testing/iotest"
	"time"

	"roomchat/backend/internal/apperror"
	"roomchat/backend/internal/chat"
	"roomchat/backend/internal/models"
	"roomchat/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repo *storage.Service
	svc  *chat.Service
	now  time.Time
}

func newFixture() *fixture {
	repo := storage.NewStorageService(nil, 10)
	f := &fixture{repo: repo, svc: chat.NewService(repo, time.Minute), now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	f.svc.SetClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) user(t *testing.T, name string) *models.ChatUser {
	t.Helper()
	u, err := f.svc.AddUser(name, "client-"+name, "test", "")
	require.NoError(t, err)
	return u
}

func (f *fixture) room(t *testing.T, owner *models.ChatUser, name string) *models.ChatRoom {
	t.Helper()
	r, err := f.svc.AddRoom(owner, name)
	require.NoError(t, err)
	require.NoError(t, f.svc.JoinRoom(owner, r, ""))
	return r
}

func TestAddUser(t *testing.T) {
	f := newFixture()

	alice, err := f.svc.AddUser("alice", "c1", "firefox", "secret1")
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusActive, alice.Status)
	assert.True(t, alice.HasPassword())
	assert.Same(t, alice, f.repo.GetUserByClientID("c1"))

	_, err = f.svc.AddUser("ALICE", "c2", "", "")
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = f.svc.AddUser("no spaces", "c3", "", "")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.svc.AddUser("bob", "c4", "", "123")
	assert.EqualError(t, err, "Passwords must be at least 6 characters long.")
}

func TestAuthenticateUser(t *testing.T) {
	f := newFixture()
	_, err := f.svc.AddUser("alice", "c1", "", "secret1")
	require.NoError(t, err)
	f.user(t, "bob")

	user, err := f.svc.AuthenticateUser("Alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Name)

	_, err = f.svc.AuthenticateUser("alice", "wrong")
	assert.EqualError(t, err, "Incorrect password.")

	_, err = f.svc.AuthenticateUser("bob", "anything")
	assert.ErrorIs(t, err, apperror.ErrAuthentication)

	_, err = f.svc.AuthenticateUser("carol", "anything")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestPasswords(t *testing.T) {
	f := newFixture()
	alice := f.user(t, "alice")

	err := f.svc.ChangeUserPassword(alice, "x", "secret2")
	assert.ErrorIs(t, err, apperror.ErrState)

	require.NoError(t, f.svc.SetUserPassword(alice, "secret1"))
	err = f.svc.SetUserPassword(alice, "secret2")
	assert.EqualError(t, err, "Use /nick [nickname] [oldpassword] [newpassword] to change and existing password.")

	assert.EqualError(t, f.svc.ChangeUserPassword(alice, "nope", "secret2"), "Passwords don't match.")
	require.NoError(t, f.svc.ChangeUserPassword(alice, "secret1", "secret2"))

	_, err = f.svc.AuthenticateUser("alice", "secret2")
	assert.NoError(t, err)
}

func TestJoinRoom_PrivateAccess(t *testing.T) {
	f := newFixture()
	owner := f.user(t, "owner")
	bob := f.user(t, "bob")
	carol := f.user(t, "carol")
	room := f.room(t, owner, "secret")
	require.NoError(t, f.svc.LockRoom(owner, room))

	err := f.svc.JoinRoom(bob, room, "")
	assert.ErrorIs(t, err, apperror.ErrAuthorization)

	require.NoError(t, f.svc.AllowUser(owner, bob, room))
	require.NoError(t, f.svc.JoinRoom(bob, room, ""))
	assert.True(t, room.IsMember(bob))

	require.NoError(t, f.svc.SetInviteCode(owner, room, "123456"))
	assert.ErrorIs(t, f.svc.JoinRoom(carol, room, "000000"), apperror.ErrAuthorization)
	require.NoError(t, f.svc.JoinRoom(carol, room, "123456"))
}

func TestJoinRoom_Closed(t *testing.T) {
	f := newFixture()
	owner := f.user(t, "owner")
	room := f.room(t, owner, "lobby")
	require.NoError(t, f.svc.CloseRoom(owner, room))

	err := f.svc.JoinRoom(f.user(t, "bob"), room, "")
	assert.ErrorIs(t, err, apperror.ErrState)
}

func TestCreatorRegainsOwnershipOnRejoin(t *testing.T) {
	f := newFixture()
	owner := f.user(t, "owner")
	room := f.room(t, owner, "lobby")
	assert.True(t, room.IsOwner(owner))

	require.NoError(t, f.svc.LeaveRoom(owner, room))
	assert.False(t, room.IsOwner(owner), "owners must be members")

	require.NoError(t, f.svc.JoinRoom(owner, room, ""))
	assert.True(t, room.IsOwner(owner))
}

func TestKickUser(t *testing.T) {
	f := newFixture()
	creator := f.user(t, "creator")
	owner := f.user(t, "owner")
	bob := f.user(t, "bob")
	room := f.room(t, creator, "lobby")
	require.NoError(t, f.svc.JoinRoom(owner, room, ""))
	require.NoError(t, f.svc.JoinRoom(bob, room, ""))
	require.NoError(t, f.svc.AddOwner(creator, owner, room))

	tests := []struct {
		name   string
		caller *models.ChatUser
		target *models.ChatUser
		want   error
	}{
		{"not an owner", bob, owner, apperror.ErrAuthorization},
		{"self", owner, owner, apperror.ErrValidation},
		{"creator", owner, creator, apperror.ErrAuthorization},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, f.svc.KickUser(tt.caller, tt.target, room), tt.want)
		})
	}

	err := f.svc.KickUser(owner, creator, room)
	assert.EqualError(t, err, "You can't kick the creator of lobby.")

	require.NoError(t, f.svc.KickUser(owner, bob, room))
	assert.False(t, room.IsMember(bob))
	assert.ErrorIs(t, f.svc.KickUser(owner, bob, room), apperror.ErrState)

	require.NoError(t, f.svc.JoinRoom(bob, room, ""))
	require.NoError(t, f.svc.AddOwner(creator, bob, room))
	err = f.svc.KickUser(owner, bob, room)
	assert.EqualError(t, err, "Owners cannot kick other owners. Only the room creator can kick an owner.")
	require.NoError(t, f.svc.KickUser(creator, bob, room))
	assert.False(t, room.IsOwner(bob))
}

func TestOwners(t *testing.T) {
	f := newFixture()
	creator := f.user(t, "creator")
	bob := f.user(t, "bob")
	room := f.room(t, creator, "lobby")

	assert.ErrorIs(t, f.svc.AddOwner(creator, bob, room), apperror.ErrState, "non-members can't be owners")

	require.NoError(t, f.svc.JoinRoom(bob, room, ""))
	require.NoError(t, f.svc.AddOwner(creator, bob, room))
	assert.ErrorIs(t, f.svc.AddOwner(creator, bob, room), apperror.ErrConflict)

	assert.ErrorIs(t, f.svc.RemoveOwner(bob, creator, room), apperror.ErrAuthorization)
	require.NoError(t, f.svc.RemoveOwner(creator, bob, room))
	assert.ErrorIs(t, f.svc.RemoveOwner(creator, bob, room), apperror.ErrState)
}

func TestUnallowUser(t *testing.T) {
	f := newFixture()
	owner := f.user(t, "owner")
	bob := f.user(t, "bob")
	room := f.room(t, owner, "secret")

	_, err := f.svc.UnallowUser(owner, bob, room)
	assert.EqualError(t, err, "secret is not a private room.")

	require.NoError(t, f.svc.LockRoom(owner, room))
	require.NoError(t, f.svc.AllowUser(owner, bob, room))
	require.NoError(t, f.svc.JoinRoom(bob, room, ""))

	wasMember, err := f.svc.UnallowUser(owner, bob, room)
	require.NoError(t, err)
	assert.True(t, wasMember)
	assert.False(t, room.IsMember(bob))
	assert.ErrorIs(t, f.svc.JoinRoom(bob, room, ""), apperror.ErrAuthorization)

	_, err = f.svc.UnallowUser(owner, bob, room)
	assert.ErrorIs(t, err, apperror.ErrState)
}

func TestLockOpenClose(t *testing.T) {
	f := newFixture()
	owner := f.user(t, "owner")
	bob := f.user(t, "bob")
	room := f.room(t, owner, "lobby")
	require.NoError(t, f.svc.JoinRoom(bob, room, ""))

	assert.ErrorIs(t, f.svc.LockRoom(bob, room), apperror.ErrAuthorization)
	require.NoError(t, f.svc.LockRoom(owner, room))
	assert.True(t, room.IsAllowed(bob), "members keep access after lock")
	assert.ErrorIs(t, f.svc.LockRoom(owner, room), apperror.ErrState)

	assert.EqualError(t, f.svc.OpenRoom(owner, room), "lobby is already open.")
	require.NoError(t, f.svc.CloseRoom(owner, room))
	assert.True(t, room.IsMember(bob), "closing keeps memberships")
	require.NoError(t, f.svc.OpenRoom(owner, room))
	assert.False(t, room.Closed)
}

func TestChangeTopic(t *testing.T) {
	f := newFixture()
	owner := f.user(t, "owner")
	bob := f.user(t, "bob")
	room := f.room(t, owner, "lobby")

	assert.ErrorIs(t, f.svc.ChangeTopic(bob, room, "hi"), apperror.ErrState)
	assert.ErrorIs(t, f.svc.ChangeTopic(owner, room, string(make([]byte, 81))), apperror.ErrValidation)
	require.NoError(t, f.svc.ChangeTopic(owner, room, "welcome"))
	assert.Equal(t, "welcome", room.Topic)
}

func TestNudge_Cooldown(t *testing.T) {
	f := newFixture()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	room := f.room(t, alice, "lobby")

	assert.EqualError(t, f.svc.NudgeUser(alice, alice), "You can't nudge yourself!")

	require.NoError(t, f.svc.NudgeUser(alice, bob))
	first := bob.LastNudged

	f.now = f.now.Add(59 * time.Second)
	err := f.svc.NudgeUser(alice, bob)
	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.EqualError(t, err, "User can only be nudged once every 60 seconds")
	assert.Equal(t, first, bob.LastNudged)

	require.NoError(t, f.svc.NudgeRoom(alice, room), "room cooldown is independent of user cooldown")

	f.now = f.now.Add(time.Second)
	require.NoError(t, f.svc.NudgeUser(alice, bob))
	assert.Equal(t, f.now, bob.LastNudged)

	assert.EqualError(t, f.svc.NudgeRoom(alice, room), "Room can only be nudged once every 60 seconds")
}

func TestPresenceTransitions(t *testing.T) {
	f := newFixture()
	alice := f.user(t, "alice")
	assert.Equal(t, models.UserStatusActive, alice.Status)

	assert.False(t, f.svc.AddClient(alice, "second", "phone"), "already online")

	f.now = f.now.Add(10 * time.Minute)
	idle := f.svc.SweepIdle(5 * time.Minute)
	assert.Equal(t, []*models.ChatUser{alice}, idle)
	assert.Equal(t, models.UserStatusInactive, alice.Status)
	assert.Empty(t, f.svc.SweepIdle(5*time.Minute), "inactive users stay inactive")

	assert.Same(t, alice, f.svc.DisconnectClient("client-alice"))
	assert.Equal(t, models.UserStatusInactive, alice.Status, "one connection remains")
	assert.Same(t, alice, f.svc.DisconnectClient("second"))
	assert.Equal(t, models.UserStatusOffline, alice.Status)
	assert.Nil(t, f.svc.DisconnectClient("second"))

	assert.True(t, f.svc.AddClient(alice, "third", "web"))
	assert.Equal(t, models.UserStatusInactive, alice.Status)

	f.svc.UpdateActivity(alice, "third", "web")
	assert.Equal(t, models.UserStatusActive, alice.Status)
	assert.Equal(t, f.now, alice.LastActivity)
}

func TestUserMetadata(t *testing.T) {
	f := newFixture()
	alice := f.user(t, "alice")

	require.NoError(t, f.svc.ChangeFlag(alice, "UA"))
	assert.Equal(t, "ua", alice.Flag)
	assert.ErrorIs(t, f.svc.ChangeFlag(alice, "zz"), apperror.ErrValidation)
	require.NoError(t, f.svc.ChangeFlag(alice, ""))
	assert.Empty(t, alice.Flag)

	require.NoError(t, f.svc.SetAfk(alice, "lunch"))
	assert.True(t, alice.IsAfk)

	require.NoError(t, f.svc.ChangeGravatar(alice, "Alice@Example.com"))
	assert.Equal(t, chat.GravatarHash("alice@example.com"), alice.Hash)
	assert.ErrorIs(t, f.svc.ChangeGravatar(alice, "not-an-email"), apperror.ErrValidation)
}

func TestNewInviteCode(t *testing.T) {
	f := newFixture()
	code, err := f.svc.NewInviteCode()
	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.Regexp(t, `^\d{6}$`, code)
}

func TestNewInviteCode_RandomFailure(t *testing.T) {
	f := newFixture()
	f.svc.SetRandom(iotest.ErrReader(errors.New("entropy exhausted")))

	code, err := f.svc.NewInviteCode()
	require.Error(t, err)
	assert.Empty(t, code)
	assert.Equal(t, apperror.KindUnknown, apperror.KindOf(err))
	assert.Equal(t, apperror.GenericMessage, apperror.UserMessage(err))
}
