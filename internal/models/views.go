package models

import (
	"strings"
	"time"
)

// UserView is the public projection of a user.
type UserView struct {
	Name         string    `json:"name"`
	Hash         string    `json:"hash,omitempty"`
	Status       string    `json:"status"`
	Note         string    `json:"note,omitempty"`
	AfkNote      string    `json:"afkNote,omitempty"`
	IsAfk        bool      `json:"isAfk"`
	Country      string    `json:"country,omitempty"`
	LastActivity time.Time `json:"lastActivity"`
}

func NewUserView(u *ChatUser) UserView {
	return UserView{
		Name:         u.Name,
		Hash:         u.Hash,
		Status:       u.Status.String(),
		Note:         u.Note,
		AfkNote:      u.AfkNote,
		IsAfk:        u.IsAfk,
		Country:      strings.ToUpper(u.Flag),
		LastActivity: u.LastActivity,
	}
}

// RoomView is the summary projection of a room.
type RoomView struct {
	Name    string `json:"name"`
	Private bool   `json:"private"`
	Closed  bool   `json:"closed,omitempty"`
	Topic   string `json:"topic,omitempty"`
	Count   int    `json:"count"`
}

func NewRoomView(r *ChatRoom) RoomView {
	return RoomView{
		Name:    r.Name,
		Private: r.Private,
		Closed:  r.Closed,
		Topic:   r.Topic,
		Count:   r.OnlineCount(),
	}
}

// RoomInfoView is the detailed projection served when a client opens a room.
type RoomInfoView struct {
	Name           string        `json:"name"`
	Topic          string        `json:"topic,omitempty"`
	Private        bool          `json:"private"`
	Users          []UserView    `json:"users"`
	Owners         []string      `json:"owners"`
	RecentMessages []MessageView `json:"recentMessages"`
}

// MessageView is the public projection of a stored message.
type MessageView struct {
	ID      string    `json:"id"`
	Content string    `json:"content"`
	User    UserView  `json:"user"`
	When    time.Time `json:"when"`
}

func NewMessageView(m *ChatMessage) MessageView {
	v := MessageView{ID: m.ID, Content: m.Content, When: m.When}
	if m.User != nil {
		v.User = NewUserView(m.User)
	}
	return v
}

// UserInfoView answers "who is this user".
type UserInfoView struct {
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	LastActivity time.Time `json:"lastActivity"`
	IsAfk        bool      `json:"isAfk"`
	AfkNote      string    `json:"afkNote,omitempty"`
	Note         string    `json:"note,omitempty"`
	Rooms        []string  `json:"rooms"`
	OwnedRooms   []string  `json:"ownedRooms"`
}
