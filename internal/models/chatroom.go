package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatRoom is a named, multi-user chat room.
// A closed room keeps its members and owners; it only stops accepting joins.
type ChatRoom struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"not null" json:"name"`
	NameKey    string    `gorm:"uniqueIndex;not null" json:"-"`
	Topic      string    `json:"topic,omitempty"`
	Private    bool      `json:"private"`
	InviteCode string    `json:"-"`
	Closed     bool      `json:"closed"`
	CreatorID  string    `gorm:"index" json:"creatorId"`
	LastNudged time.Time `json:"-"`
	CreatedAt  time.Time `json:"-"`
	UpdatedAt  time.Time `json:"-"`

	members map[string]*ChatUser
	owners  map[string]*ChatUser
	allowed map[string]*ChatUser
	dirty   bool
}

// NewChatRoom creates an open, public room created by creatorID.
func NewChatRoom(name, creatorID string) *ChatRoom {
	return &ChatRoom{
		ID:        uuid.New().String(),
		Name:      name,
		NameKey:   NormalizeName(name),
		CreatorID: creatorID,
		dirty:     true,
	}
}

func (r *ChatRoom) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return
}

func (r *ChatRoom) BeforeSave(tx *gorm.DB) (err error) {
	r.NameKey = NormalizeName(r.Name)
	return
}

func (r *ChatRoom) IsMember(u *ChatUser) bool  { return has(r.members, u) }
func (r *ChatRoom) IsOwner(u *ChatUser) bool   { return has(r.owners, u) }
func (r *ChatRoom) IsAllowed(u *ChatUser) bool { return has(r.allowed, u) }
func (r *ChatRoom) IsCreator(u *ChatUser) bool { return u != nil && r.CreatorID == u.ID }

// CanAccess reports whether u may see or join the room without an invite code.
func (r *ChatRoom) CanAccess(u *ChatUser) bool {
	if !r.Private {
		return true
	}
	return r.IsMember(u) || r.IsOwner(u) || r.IsAllowed(u) || r.IsCreator(u)
}

// AddMember links the user and the room on both sides.
func (r *ChatRoom) AddMember(u *ChatUser) {
	if r.members == nil {
		r.members = make(map[string]*ChatUser)
	}
	r.members[u.ID] = u
	u.linkRoom(r)
	r.dirty = true
}

// RemoveMember drops the membership and any ownership the user held.
func (r *ChatRoom) RemoveMember(u *ChatUser) {
	delete(r.members, u.ID)
	delete(u.rooms, r.ID)
	r.RemoveOwner(u)
	r.dirty = true
}

func (r *ChatRoom) AddOwner(u *ChatUser) {
	if r.owners == nil {
		r.owners = make(map[string]*ChatUser)
	}
	r.owners[u.ID] = u
	u.linkOwned(r)
	r.dirty = true
}

func (r *ChatRoom) RemoveOwner(u *ChatUser) {
	delete(r.owners, u.ID)
	delete(u.owned, r.ID)
	r.dirty = true
}

func (r *ChatRoom) Allow(u *ChatUser) {
	if r.allowed == nil {
		r.allowed = make(map[string]*ChatUser)
	}
	r.allowed[u.ID] = u
	r.dirty = true
}

func (r *ChatRoom) Unallow(u *ChatUser) {
	delete(r.allowed, u.ID)
	r.dirty = true
}

// Members returns the members ordered by name.
func (r *ChatRoom) Members() []*ChatUser { return sortedUsers(r.members) }

// Owners returns the owners ordered by name.
func (r *ChatRoom) Owners() []*ChatUser { return sortedUsers(r.owners) }

// AllowedUsers returns the allow-list ordered by name.
func (r *ChatRoom) AllowedUsers() []*ChatUser { return sortedUsers(r.allowed) }

// OnlineMembers returns the members that hold at least one connection.
func (r *ChatRoom) OnlineMembers() []*ChatUser {
	var out []*ChatUser
	for _, u := range r.Members() {
		if u.IsOnline() {
			out = append(out, u)
		}
	}
	return out
}

func (r *ChatRoom) MemberCount() int { return len(r.members) }

func (r *ChatRoom) OnlineCount() int {
	n := 0
	for _, u := range r.members {
		if u.IsOnline() {
			n++
		}
	}
	return n
}

// Memberships flattens the room relations into persistable rows.
func (r *ChatRoom) Memberships() []RoomMembership {
	var rows []RoomMembership
	add := func(m map[string]*ChatUser, role MembershipRole) {
		for id := range m {
			rows = append(rows, RoomMembership{RoomID: r.ID, UserID: id, Role: role})
		}
	}
	add(r.members, RoleMember)
	add(r.owners, RoleOwner)
	add(r.allowed, RoleAllowed)
	return rows
}

func (r *ChatRoom) MarkDirty()     { r.dirty = true }
func (r *ChatRoom) IsDirty() bool  { return r.dirty }
func (r *ChatRoom) ClearDirty()    { r.dirty = false }
func (r *ChatRoom) String() string { return r.Name }

func has(m map[string]*ChatUser, u *ChatUser) bool {
	if u == nil {
		return false
	}
	_, ok := m[u.ID]
	return ok
}

func sortedUsers(m map[string]*ChatUser) []*ChatUser {
	out := make([]*ChatUser, 0, len(m))
	for _, u := range m {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NameKey < out[j].NameKey })
	return out
}
