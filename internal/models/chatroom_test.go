package models_test

import (
	"testing"

	"roomchat/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomMembership_BothSides(t *testing.T) {
	room := models.NewChatRoom("Lobby", "")
	alice := models.NewChatUser("alice")

	room.AddMember(alice)
	room.AddOwner(alice)

	assert.True(t, room.IsMember(alice))
	assert.True(t, alice.InRoom(room))
	assert.True(t, alice.Owns(room))
	assert.Equal(t, []*models.ChatRoom{room}, alice.Rooms())

	room.RemoveMember(alice)

	assert.False(t, room.IsMember(alice))
	assert.False(t, room.IsOwner(alice), "leaving drops ownership")
	assert.False(t, alice.InRoom(room))
	assert.Empty(t, alice.OwnedRooms())
}

func TestRoom_CanAccess(t *testing.T) {
	creator := models.NewChatUser("owner")
	guest := models.NewChatUser("guest")
	room := models.NewChatRoom("secret", creator.ID)

	assert.True(t, room.CanAccess(guest), "public rooms are open to everyone")

	room.Private = true
	assert.False(t, room.CanAccess(guest))
	assert.True(t, room.CanAccess(creator))

	room.Allow(guest)
	assert.True(t, room.CanAccess(guest))
	room.Unallow(guest)
	assert.False(t, room.CanAccess(guest))
}

func TestRoom_OnlineCount(t *testing.T) {
	room := models.NewChatRoom("lobby", "")
	online := models.NewChatUser("online")
	online.Status = models.UserStatusInactive
	offline := models.NewChatUser("offline")

	room.AddMember(online)
	room.AddMember(offline)

	assert.Equal(t, 2, room.MemberCount())
	assert.Equal(t, 1, room.OnlineCount())
	assert.Equal(t, []*models.ChatUser{online}, room.OnlineMembers())
}

func TestRoom_MembershipsRoundTrip(t *testing.T) {
	room := models.NewChatRoom("lobby", "")
	alice := models.NewChatUser("alice")
	bob := models.NewChatUser("bob")
	room.AddMember(alice)
	room.AddOwner(alice)
	room.Allow(bob)

	rows := room.Memberships()
	require.Len(t, rows, 3)

	restored := &models.ChatRoom{ID: room.ID, Name: room.Name}
	users := map[string]*models.ChatUser{alice.ID: models.NewChatUser("alice"), bob.ID: models.NewChatUser("bob")}
	for _, row := range rows {
		row.Link(restored, users[row.UserID])
	}

	assert.True(t, restored.IsMember(users[alice.ID]))
	assert.True(t, restored.IsOwner(users[alice.ID]))
	assert.True(t, restored.IsAllowed(users[bob.ID]))
	assert.False(t, restored.IsMember(users[bob.ID]))
}

func TestUserView_UppercasesCountry(t *testing.T) {
	user := models.NewChatUser("eve")
	user.Flag = "ua"

	view := models.NewUserView(user)
	assert.Equal(t, "UA", view.Country)
	assert.Equal(t, "eve", view.Name)
}
