package models_test

import (
	"reflect"
	"testing"

	"roomchat/backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestUserBeforeCreate_GeneratesUUID verifies that the BeforeCreate hook generates a valid UUID.
func TestUserBeforeCreate_GeneratesUUID(t *testing.T) {
	user := &models.ChatUser{Name: "alice"}
	assert.Empty(t, user.ID)

	err := user.BeforeCreate(nil) // nil *gorm.DB is acceptable for this hook

	require.NoError(t, err)
	parsed, parseErr := uuid.Parse(user.ID)
	assert.NoError(t, parseErr, "User ID must be a valid UUID string")
	assert.NotEqual(t, uuid.Nil, parsed)
}

// TestUserBeforeCreate_PreservesExistingID verifies that the hook doesn't overwrite an existing ID.
func TestUserBeforeCreate_PreservesExistingID(t *testing.T) {
	existingID := uuid.New().String()
	user := &models.ChatUser{ID: existingID, Name: "bob"}

	require.NoError(t, user.BeforeCreate(nil))
	assert.Equal(t, existingID, user.ID)
}

func TestUserBeforeSave_NormalizesNameKey(t *testing.T) {
	user := &models.ChatUser{Name: "  Alice "}

	require.NoError(t, user.BeforeSave(nil))
	assert.Equal(t, "alice", user.NameKey)
}

func TestNewChatUser_StartsOffline(t *testing.T) {
	user := models.NewChatUser("Carol")

	assert.Equal(t, models.UserStatusOffline, user.Status)
	assert.False(t, user.IsOnline())
	assert.Equal(t, "carol", user.NameKey)
	assert.True(t, user.IsDirty())
	assert.Equal(t, "Offline", user.Status.String())
}

// TestUserStructTags verifies that struct tags are correctly defined for GORM and JSON.
func TestUserStructTags(t *testing.T) {
	userType := reflect.TypeOf(models.ChatUser{})

	idField, found := userType.FieldByName("ID")
	require.True(t, found)
	assert.Contains(t, idField.Tag.Get("gorm"), "primaryKey")
	assert.Contains(t, idField.Tag.Get("json"), "id")

	keyField, found := userType.FieldByName("NameKey")
	require.True(t, found)
	assert.Contains(t, keyField.Tag.Get("gorm"), "uniqueIndex")

	pwField, found := userType.FieldByName("HashedPassword")
	require.True(t, found)
	assert.Equal(t, "-", pwField.Tag.Get("json"), "password hash must never be serialized")
}

func TestUserClients_AttachDetach(t *testing.T) {
	user := models.NewChatUser("dave")

	user.AttachClient(models.NewChatClient("c1", "firefox"))
	user.AttachClient(models.NewChatClient("c2", "curl"))
	user.AttachClient(models.NewChatClient("c1", "chrome"))

	clients := user.Clients()
	require.Len(t, clients, 2)
	assert.Equal(t, "c1", clients[0].ID)
	assert.Equal(t, "chrome", clients[0].UserAgent)
	assert.Same(t, user, clients[1].User)

	removed := user.DetachClient("c1")
	require.NotNil(t, removed)
	assert.Nil(t, user.DetachClient("c1"))
	assert.Len(t, user.Clients(), 1)
}
