package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserStatus is the aggregate presence of a user across all of their connections.
type UserStatus int

const (
	UserStatusActive UserStatus = iota
	UserStatusInactive
	UserStatusOffline
)

func (s UserStatus) String() string {
	switch s {
	case UserStatusActive:
		return "Active"
	case UserStatusInactive:
		return "Inactive"
	default:
		return "Offline"
	}
}

// NormalizeName returns the case-insensitive lookup key for a user or room name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ChatUser is a named chat participant.
// Connections and room relations are kept in memory only; membership rows
// are persisted through RoomMembership.
type ChatUser struct {
	ID             string     `gorm:"primaryKey" json:"id"`
	Name           string     `gorm:"not null" json:"name"`
	NameKey        string     `gorm:"uniqueIndex;not null" json:"-"`
	HashedPassword string     `json:"-"`
	Status         UserStatus `gorm:"not null;default:2" json:"status"`
	LastActivity   time.Time  `json:"lastActivity"`
	IsAfk          bool       `json:"isAfk"`
	AfkNote        string     `json:"afkNote,omitempty"`
	Note           string     `json:"note,omitempty"`
	Flag           string     `gorm:"size:2" json:"flag,omitempty"`
	Hash           string     `json:"hash,omitempty"` // gravatar
	LastNudged     time.Time  `json:"-"`
	CreatedAt      time.Time  `json:"-"`
	UpdatedAt      time.Time  `json:"-"`

	clients []*ChatClient
	rooms   map[string]*ChatRoom
	owned   map[string]*ChatRoom
	dirty   bool
}

// NewChatUser creates an offline user with a fresh id.
func NewChatUser(name string) *ChatUser {
	u := &ChatUser{
		ID:     uuid.New().String(),
		Status: UserStatusOffline,
	}
	u.SetName(name)
	return u
}

// BeforeCreate fills in the id for users created outside NewChatUser.
func (u *ChatUser) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

// BeforeSave keeps the lookup key in sync with the display name.
func (u *ChatUser) BeforeSave(tx *gorm.DB) (err error) {
	u.NameKey = NormalizeName(u.Name)
	return
}

func (u *ChatUser) SetName(name string) {
	u.Name = name
	u.NameKey = NormalizeName(name)
	u.dirty = true
}

func (u *ChatUser) HasPassword() bool { return u.HashedPassword != "" }

func (u *ChatUser) IsOnline() bool { return u.Status != UserStatusOffline }

// Clients returns the user's connections in attach order.
func (u *ChatUser) Clients() []*ChatClient {
	out := make([]*ChatClient, len(u.clients))
	copy(out, u.clients)
	return out
}

// Client returns the connection with the given id, or nil.
func (u *ChatUser) Client(id string) *ChatClient {
	for _, c := range u.clients {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// AttachClient adds a connection to the user. Attaching a known id only
// refreshes its user agent.
func (u *ChatUser) AttachClient(c *ChatClient) {
	if existing := u.Client(c.ID); existing != nil {
		existing.UserAgent = c.UserAgent
		return
	}
	c.User = u
	u.clients = append(u.clients, c)
}

// DetachClient removes the connection with the given id and returns it.
func (u *ChatUser) DetachClient(id string) *ChatClient {
	for i, c := range u.clients {
		if c.ID == id {
			u.clients = append(u.clients[:i], u.clients[i+1:]...)
			return c
		}
	}
	return nil
}

// Rooms returns the joined rooms ordered by name.
func (u *ChatUser) Rooms() []*ChatRoom { return sortedRooms(u.rooms) }

// OwnedRooms returns the owned rooms ordered by name.
func (u *ChatUser) OwnedRooms() []*ChatRoom { return sortedRooms(u.owned) }

func (u *ChatUser) InRoom(r *ChatRoom) bool {
	_, ok := u.rooms[r.ID]
	return ok
}

func (u *ChatUser) Owns(r *ChatRoom) bool {
	_, ok := u.owned[r.ID]
	return ok
}

func (u *ChatUser) MarkDirty()     { u.dirty = true }
func (u *ChatUser) IsDirty() bool  { return u.dirty }
func (u *ChatUser) ClearDirty()    { u.dirty = false }
func (u *ChatUser) String() string { return u.Name }

func (u *ChatUser) linkRoom(r *ChatRoom) {
	if u.rooms == nil {
		u.rooms = make(map[string]*ChatRoom)
	}
	u.rooms[r.ID] = r
}

func (u *ChatUser) linkOwned(r *ChatRoom) {
	if u.owned == nil {
		u.owned = make(map[string]*ChatRoom)
	}
	u.owned[r.ID] = r
}

func sortedRooms(m map[string]*ChatRoom) []*ChatRoom {
	out := make([]*ChatRoom, 0, len(m))
	for _, r := range m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NameKey < out[j].NameKey })
	return out
}
