package models

// MembershipRole tells which room relation a RoomMembership row stores.
type MembershipRole string

const (
	RoleMember  MembershipRole = "member"
	RoleOwner   MembershipRole = "owner"
	RoleAllowed MembershipRole = "allowed"
)

// RoomMembership is one persisted user-to-room relation.
type RoomMembership struct {
	RoomID string         `gorm:"primaryKey;index"`
	UserID string         `gorm:"primaryKey;index"`
	Role   MembershipRole `gorm:"primaryKey;size:16"`
}

// Link applies the row to the loaded room and user.
func (m RoomMembership) Link(room *ChatRoom, user *ChatUser) {
	switch m.Role {
	case RoleMember:
		room.AddMember(user)
	case RoleOwner:
		room.AddOwner(user)
	case RoleAllowed:
		room.Allow(user)
	}
}
