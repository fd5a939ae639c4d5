package chathub_test

import (
	"testing"

	"roomchat/backend/internal/chathub"

	"github.com/stretchr/testify/assert"
)

func TestGroups_AddRemove(t *testing.T) {
	g := chathub.NewGroups()

	assert.True(t, g.Add("Lobby", "c1"))
	assert.False(t, g.Add("lobby", "c1"), "room keys are case-insensitive")
	assert.True(t, g.Add("lobby", "c2"))
	assert.True(t, g.Add("dev", "c1"))

	assert.Equal(t, []string{"c1", "c2"}, g.Members("LOBBY"))
	assert.Equal(t, []string{"dev", "lobby"}, g.Rooms("c1"))
	assert.True(t, g.Has("lobby", "c2"))

	assert.True(t, g.Remove("lobby", "c2"))
	assert.False(t, g.Remove("lobby", "c2"))
	assert.Equal(t, []string{"c1"}, g.Members("lobby"))
	assert.Empty(t, g.Rooms("c2"))
}

func TestGroups_RemoveClient(t *testing.T) {
	g := chathub.NewGroups()
	g.Add("lobby", "c1")
	g.Add("dev", "c1")
	g.Add("dev", "c2")

	g.RemoveClient("c1")

	assert.Empty(t, g.Members("lobby"))
	assert.Equal(t, []string{"c2"}, g.Members("dev"))
	assert.Empty(t, g.Rooms("c1"))
}

func TestGroups_DropRoom(t *testing.T) {
	g := chathub.NewGroups()
	g.Add("lobby", "c1")
	g.Add("lobby", "c2")
	g.Add("dev", "c2")

	g.DropRoom("Lobby")

	assert.Empty(t, g.Members("lobby"))
	assert.Empty(t, g.Rooms("c1"))
	assert.Equal(t, []string{"dev"}, g.Rooms("c2"))
}
