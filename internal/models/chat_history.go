package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ChatMessage is a stored room message.
type ChatMessage struct {
	ID      string         `gorm:"primaryKey" json:"id"`
	RoomID  string         `gorm:"not null;index:idx_room_when" json:"-"`
	UserID  string         `gorm:"not null" json:"-"`
	Content string         `gorm:"type:text;not null" json:"content"`
	Links   pq.StringArray `gorm:"type:text[]" json:"links,omitempty"`
	When    time.Time      `gorm:"column:sent_at;not null;index:idx_room_when" json:"when"`

	Room  *ChatRoom `gorm:"-" json:"-"`
	User  *ChatUser `gorm:"-" json:"-"`
	dirty bool
}

// NewChatMessage creates a message authored by user in room.
func NewChatMessage(user *ChatUser, room *ChatRoom, content string, links []string) *ChatMessage {
	return &ChatMessage{
		ID:      uuid.New().String(),
		RoomID:  room.ID,
		UserID:  user.ID,
		Content: content,
		Links:   pq.StringArray(links),
		When:    time.Now(),
		Room:    room,
		User:    user,
		dirty:   true,
	}
}

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}

// AppendContent merges enrichment output into the message.
func (m *ChatMessage) AppendContent(extra string) {
	m.Content += extra
	m.dirty = true
}

func (m *ChatMessage) IsDirty() bool { return m.dirty }
func (m *ChatMessage) ClearDirty()   { m.dirty = false }
