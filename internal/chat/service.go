// Package chat enforces the chat domain rules: who may join, own, kick,
// lock or rename what. It mutates the working set but never commits;
// committing is the caller's decision.
package chat

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"roomchat/backend/internal/apperror"
	"roomchat/backend/internal/auth"
	"roomchat/backend/internal/config"
	"roomchat/backend/internal/models"
	"roomchat/backend/internal/storage"
)

// Service is the domain policy executor.
type Service struct {
	repo          storage.Repository
	nudgeInterval time.Duration
	now           func() time.Time
	random        io.Reader
}

func NewService(repo storage.Repository, nudgeInterval time.Duration) *Service {
	if nudgeInterval <= 0 {
		nudgeInterval = config.DefaultNudgeInterval
	}
	return &Service{repo: repo, nudgeInterval: nudgeInterval, now: time.Now, random: rand.Reader}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// SetRandom replaces the source of invite codes.
func (s *Service) SetRandom(r io.Reader) { s.random = r }

// Now returns the service clock's current time.
func (s *Service) Now() time.Time { return s.now() }

// AddUser creates a user bound to the calling connection.
func (s *Service) AddUser(name, clientID, userAgent, password string) (*models.ChatUser, error) {
	if err := ValidateUserName(name); err != nil {
		return nil, err
	}
	user := models.NewChatUser(name)
	if password != "" {
		if err := s.setPassword(user, password); err != nil {
			return nil, err
		}
	}
	if err := s.repo.AddUser(user); err != nil {
		return nil, err
	}
	s.AddClient(user, clientID, userAgent)
	s.touch(user)
	return user, nil
}

// AuthenticateUser checks the password of an existing user.
func (s *Service) AuthenticateUser(name, password string) (*models.ChatUser, error) {
	user, err := s.repo.VerifyUser(name)
	if err != nil {
		return nil, err
	}
	if !user.HasPassword() {
		return nil, apperror.Authentication("The nick %s is unclaimed and has no password.", user.Name)
	}
	if err := auth.ComparePassword(user.HashedPassword, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.Authentication("Incorrect password.")
		}
		return nil, err
	}
	return user, nil
}

// PasswordRequired is the failure for claiming a taken nick without a password.
func PasswordRequired() error {
	return apperror.Authentication("A password is required.")
}

func (s *Service) ChangeUserName(user *models.ChatUser, newName string) error {
	if err := ValidateUserName(newName); err != nil {
		return err
	}
	if user.Name == newName {
		return apperror.Validation("That's already your username...")
	}
	return s.repo.RenameUser(user, newName)
}

func (s *Service) SetUserPassword(user *models.ChatUser, password string) error {
	if user.HasPassword() {
		return apperror.State("Use /nick [nickname] [oldpassword] [newpassword] to change and existing password.")
	}
	return s.setPassword(user, password)
}

func (s *Service) ChangeUserPassword(user *models.ChatUser, oldPassword, newPassword string) error {
	if !user.HasPassword() {
		return apperror.State("You don't have a password set yet. Use /nick [nickname] [password] to set one.")
	}
	if err := auth.ComparePassword(user.HashedPassword, oldPassword); err != nil {
		return apperror.Authentication("Passwords don't match.")
	}
	return s.setPassword(user, newPassword)
}

func (s *Service) setPassword(user *models.ChatUser, password string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	user.HashedPassword = hash
	user.MarkDirty()
	return nil
}

// AddRoom creates a room owned by user. The creator is not joined yet.
func (s *Service) AddRoom(user *models.ChatUser, name string) (*models.ChatRoom, error) {
	if err := ValidateRoomName(name); err != nil {
		return nil, err
	}
	room := models.NewChatRoom(name, user.ID)
	if err := s.repo.AddRoom(room); err != nil {
		return nil, err
	}
	return room, nil
}

// JoinRoom makes user a member. Private rooms need an allow-list entry or
// the room's invite code. The creator regains ownership on rejoin.
func (s *Service) JoinRoom(user *models.ChatUser, room *models.ChatRoom, inviteCode string) error {
	if room.Closed {
		return apperror.State("The room '%s' is closed.", room.Name)
	}
	if room.Private && !room.CanAccess(user) {
		if inviteCode == "" || room.InviteCode == "" || inviteCode != room.InviteCode {
			return apperror.Authorization("Unable to join %s. This room is locked and you don't have permission to enter. If you have an invite code, make sure to enter it in the /join command.", room.Name)
		}
	}
	room.AddMember(user)
	if room.IsCreator(user) {
		room.AddOwner(user)
	}
	return nil
}

func (s *Service) LeaveRoom(user *models.ChatUser, room *models.ChatRoom) error {
	if !room.IsMember(user) {
		return apperror.State("You're not in '%s'.", room.Name)
	}
	room.RemoveMember(user)
	return nil
}

// KickUser removes target from room on behalf of an owner.
func (s *Service) KickUser(user, target *models.ChatUser, room *models.ChatRoom) error {
	if err := s.ensureOwner(user, room); err != nil {
		return err
	}
	if user == target {
		return apperror.Validation("Why would you want to kick yourself?")
	}
	if !room.IsMember(target) {
		return apperror.State("%s isn't in %s.", target.Name, room.Name)
	}
	if room.IsCreator(target) {
		return apperror.Authorization("You can't kick the creator of %s.", room.Name)
	}
	if room.IsOwner(target) && !room.IsCreator(user) {
		return apperror.Authorization("Owners cannot kick other owners. Only the room creator can kick an owner.")
	}
	room.RemoveMember(target)
	return nil
}

// AddOwner grants ownership. Owners must be members.
func (s *Service) AddOwner(user, target *models.ChatUser, room *models.ChatRoom) error {
	if err := s.ensureOwner(user, room); err != nil {
		return err
	}
	if room.IsOwner(target) {
		return apperror.Conflict("%s is already an owner of %s.", target.Name, room.Name)
	}
	if !room.IsMember(target) {
		return apperror.State("%s needs to join %s before becoming an owner.", target.Name, room.Name)
	}
	room.AddOwner(target)
	return nil
}

func (s *Service) RemoveOwner(user, target *models.ChatUser, room *models.ChatRoom) error {
	if err := s.ensureOwner(user, room); err != nil {
		return err
	}
	if !room.IsOwner(target) {
		return apperror.State("%s is not an owner of %s.", target.Name, room.Name)
	}
	if room.IsCreator(target) {
		return apperror.Authorization("The creator of %s can't be removed as an owner.", room.Name)
	}
	room.RemoveOwner(target)
	return nil
}

func (s *Service) AllowUser(user, target *models.ChatUser, room *models.ChatRoom) error {
	if err := s.ensureOwner(user, room); err != nil {
		return err
	}
	if !room.Private {
		return apperror.State("%s is not a private room.", room.Name)
	}
	if room.IsAllowed(target) {
		return apperror.Conflict("%s is already allowed for %s.", target.Name, room.Name)
	}
	room.Allow(target)
	return nil
}

// UnallowUser revokes access and removes target from the room if joined.
// It reports whether target was a member.
func (s *Service) UnallowUser(user, target *models.ChatUser, room *models.ChatRoom) (bool, error) {
	if err := s.ensureOwner(user, room); err != nil {
		return false, err
	}
	if !room.Private {
		return false, apperror.State("%s is not a private room.", room.Name)
	}
	if room.IsCreator(target) {
		return false, apperror.Authorization("You can't unallow the creator of %s.", room.Name)
	}
	if !room.IsAllowed(target) {
		return false, apperror.State("%s isn't allowed to access %s.", target.Name, room.Name)
	}
	room.Unallow(target)
	wasMember := room.IsMember(target)
	if wasMember {
		room.RemoveMember(target)
	}
	return wasMember, nil
}

// LockRoom makes the room private. Current members keep access.
func (s *Service) LockRoom(user *models.ChatUser, room *models.ChatRoom) error {
	if err := s.ensureOwner(user, room); err != nil {
		return err
	}
	if room.Private {
		return apperror.State("%s is already locked.", room.Name)
	}
	room.Private = true
	for _, member := range room.Members() {
		room.Allow(member)
	}
	room.MarkDirty()
	return nil
}

func (s *Service) OpenRoom(user *models.ChatUser, room *models.ChatRoom) error {
	if err := s.ensureOwner(user, room); err != nil {
		return err
	}
	if !room.Closed {
		return apperror.State("%s is already open.", room.Name)
	}
	room.Closed = false
	room.MarkDirty()
	return nil
}

func (s *Service) CloseRoom(user *models.ChatUser, room *models.ChatRoom) error {
	if err := s.ensureOwner(user, room); err != nil {
		return err
	}
	if room.Closed {
		return apperror.State("%s is already closed.", room.Name)
	}
	room.Closed = true
	room.MarkDirty()
	return nil
}

// ChangeTopic sets the topic; an empty topic clears it.
func (s *Service) ChangeTopic(user *models.ChatUser, room *models.ChatRoom, topic string) error {
	if !room.IsMember(user) {
		return apperror.State("You're not in '%s'.", room.Name)
	}
	if err := ValidateTopic(topic); err != nil {
		return err
	}
	room.Topic = topic
	room.MarkDirty()
	return nil
}

func (s *Service) SetInviteCode(user *models.ChatUser, room *models.ChatRoom, code string) error {
	if err := s.ensureOwner(user, room); err != nil {
		return err
	}
	if !room.Private {
		return apperror.State("Only private rooms can have invite codes.")
	}
	room.InviteCode = code
	room.MarkDirty()
	return nil
}

// ChangeNote sets or clears the user's note.
func (s *Service) ChangeNote(user *models.ChatUser, note string) error {
	if err := ValidateNote(note); err != nil {
		return err
	}
	user.Note = note
	user.MarkDirty()
	return nil
}

// SetAfk marks the user away with an optional note.
func (s *Service) SetAfk(user *models.ChatUser, note string) error {
	if err := ValidateNote(note); err != nil {
		return err
	}
	user.AfkNote = note
	user.IsAfk = true
	user.MarkDirty()
	return nil
}

// ChangeFlag sets the user's country flag; an empty code clears it.
func (s *Service) ChangeFlag(user *models.ChatUser, code string) error {
	code = strings.ToLower(code)
	if code != "" {
		if err := ValidateIsoCode(code); err != nil {
			return err
		}
	}
	user.Flag = code
	user.MarkDirty()
	return nil
}

func (s *Service) ChangeGravatar(user *models.ChatUser, email string) error {
	if err := ValidateEmail(strings.TrimSpace(email)); err != nil {
		return err
	}
	user.Hash = GravatarHash(email)
	user.MarkDirty()
	return nil
}

// NudgeUser stamps target's last-nudged time. The check and the stamp are
// not atomic across concurrent callers.
func (s *Service) NudgeUser(user, target *models.ChatUser) error {
	if user == target {
		return apperror.Validation("You can't nudge yourself!")
	}
	now := s.now()
	if !target.LastNudged.IsZero() && now.Sub(target.LastNudged) < s.nudgeInterval {
		return apperror.Conflict("User can only be nudged once every %d seconds", int(s.nudgeInterval.Seconds()))
	}
	target.LastNudged = now
	target.MarkDirty()
	return nil
}

func (s *Service) NudgeRoom(user *models.ChatUser, room *models.ChatRoom) error {
	now := s.now()
	if !room.LastNudged.IsZero() && now.Sub(room.LastNudged) < s.nudgeInterval {
		return apperror.Conflict("Room can only be nudged once every %d seconds", int(s.nudgeInterval.Seconds()))
	}
	room.LastNudged = now
	room.MarkDirty()
	return nil
}

// AddClient tracks a connection for user. The first connection moves an
// offline user to Inactive; the result reports that transition.
func (s *Service) AddClient(user *models.ChatUser, clientID, userAgent string) bool {
	s.repo.AddClient(user, models.NewChatClient(clientID, userAgent))
	if user.Status == models.UserStatusOffline {
		user.Status = models.UserStatusInactive
		user.MarkDirty()
		return true
	}
	return false
}

// UpdateActivity marks the user Active from the given connection.
func (s *Service) UpdateActivity(user *models.ChatUser, clientID, userAgent string) {
	s.AddClient(user, clientID, userAgent)
	s.touch(user)
}

func (s *Service) touch(user *models.ChatUser) {
	user.Status = models.UserStatusActive
	user.IsAfk = false
	user.LastActivity = s.now()
	user.MarkDirty()
}

// DisconnectClient forgets a connection. The user goes Offline when it was
// their last one. It returns nil for unknown connections.
func (s *Service) DisconnectClient(clientID string) *models.ChatUser {
	user := s.repo.RemoveClient(clientID)
	if user == nil {
		return nil
	}
	if len(user.Clients()) == 0 {
		user.Status = models.UserStatusOffline
		user.MarkDirty()
	}
	return user
}

// SweepIdle moves Active users without activity for timeout to Inactive.
func (s *Service) SweepIdle(timeout time.Duration) []*models.ChatUser {
	var idle []*models.ChatUser
	now := s.now()
	for _, u := range s.repo.OnlineUsers() {
		if u.Status == models.UserStatusActive && now.Sub(u.LastActivity) >= timeout {
			u.Status = models.UserStatusInactive
			u.MarkDirty()
			idle = append(idle, u)
		}
	}
	return idle
}

// AddMessage stores a new room message.
func (s *Service) AddMessage(user *models.ChatUser, room *models.ChatRoom, content string, links []string) *models.ChatMessage {
	msg := models.NewChatMessage(user, room, content, links)
	msg.When = s.now()
	s.repo.AddMessage(msg)
	return msg
}

func (s *Service) ensureOwner(user *models.ChatUser, room *models.ChatRoom) error {
	if room.IsOwner(user) || room.IsCreator(user) {
		return nil
	}
	return apperror.Authorization("You are not an owner of %s.", room.Name)
}

// NewInviteCode returns a random numeric invite code.
func (s *Service) NewInviteCode() (string, error) {
	const digits = "0123456789"
	buf := make([]byte, config.InviteCodeLength)
	for i := range buf {
		n, err := rand.Int(s.random, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", fmt.Errorf("generate invite code: %w", err)
		}
		buf[i] = digits[n.Int64()]
	}
	return string(buf), nil
}
