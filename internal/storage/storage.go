// Package storage holds the chat working set and flushes it to the database.
//
// The Service keeps users, rooms, connections and recent messages in memory.
// Handlers mutate entities in place; CommitChanges writes every entity marked
// dirty in one transaction through the configured Persister.
package storage

import (
	"context"
	"sort"
	"sync"

	"roomchat/backend/internal/apperror"
	"roomchat/backend/internal/models"

	"github.com/samber/lo"
)

// Repository is the transactional view of chat state used by commands and the hub.
type Repository interface {
	VerifyUserID(id string) (*models.ChatUser, error)
	VerifyUser(name string) (*models.ChatUser, error)
	VerifyRoom(name string, mustBeOpen bool) (*models.ChatRoom, error)
	VerifyUserRoom(user *models.ChatUser, roomName string) (*models.ChatRoom, error)

	GetUserByID(id string) *models.ChatUser
	GetUserByName(name string) *models.ChatUser
	GetUserByClientID(clientID string) *models.ChatUser
	GetRoomByName(name string) *models.ChatRoom

	Users() []*models.ChatUser
	OnlineUsers() []*models.ChatUser
	UserCount() int
	Rooms() []*models.ChatRoom
	AllowedRooms(user *models.ChatUser) []*models.ChatRoom

	AddUser(user *models.ChatUser) error
	RenameUser(user *models.ChatUser, newName string) error
	AddRoom(room *models.ChatRoom) error
	AddClient(user *models.ChatUser, client *models.ChatClient)
	RemoveClient(clientID string) *models.ChatUser

	AddMessage(msg *models.ChatMessage)
	SaveMessage(msg *models.ChatMessage)
	RecentMessages(room *models.ChatRoom, limit int) []*models.ChatMessage

	CommitChanges(ctx context.Context) error
}

// Persister is the durable backend behind the working set.
type Persister interface {
	Load(ctx context.Context, historyLimit int) (*Snapshot, error)
	Flush(ctx context.Context, batch Batch) error
}

// Snapshot is everything loaded at startup.
type Snapshot struct {
	Users       []*models.ChatUser
	Rooms       []*models.ChatRoom
	Memberships []models.RoomMembership
	Messages    []*models.ChatMessage
}

// Batch is one commit's worth of changed entities.
type Batch struct {
	Users    []*models.ChatUser
	Rooms    []*models.ChatRoom
	Messages []*models.ChatMessage
}

func (b Batch) Empty() bool {
	return len(b.Users) == 0 && len(b.Rooms) == 0 && len(b.Messages) == 0
}

// Service is the in-memory Repository implementation.
type Service struct {
	mu sync.RWMutex

	persister    Persister
	historyLimit int

	usersByID   map[string]*models.ChatUser
	usersByName map[string]*models.ChatUser
	rooms       map[string]*models.ChatRoom
	clients     map[string]*models.ChatClient
	history     map[string][]*models.ChatMessage
	pending     map[string]*models.ChatMessage
}

// NewStorageService creates an empty working set. A nil persister keeps
// everything in memory.
func NewStorageService(p Persister, historyLimit int) *Service {
	if historyLimit <= 0 {
		historyLimit = 100
	}
	return &Service{
		persister:    p,
		historyLimit: historyLimit,
		usersByID:    make(map[string]*models.ChatUser),
		usersByName:  make(map[string]*models.ChatUser),
		rooms:        make(map[string]*models.ChatRoom),
		clients:      make(map[string]*models.ChatClient),
		history:      make(map[string][]*models.ChatMessage),
		pending:      make(map[string]*models.ChatMessage),
	}
}

// Load fills the working set from the persister. Connections do not survive
// a restart, so every loaded user starts Offline.
func (s *Service) Load(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	snap, err := s.persister.Load(ctx, s.historyLimit)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	roomsByID := make(map[string]*models.ChatRoom, len(snap.Rooms))
	for _, u := range snap.Users {
		u.ClearDirty()
		if u.Status != models.UserStatusOffline {
			u.Status = models.UserStatusOffline
			u.MarkDirty()
		}
		s.usersByID[u.ID] = u
		s.usersByName[models.NormalizeName(u.Name)] = u
	}
	for _, r := range snap.Rooms {
		roomsByID[r.ID] = r
		s.rooms[models.NormalizeName(r.Name)] = r
	}
	for _, m := range snap.Memberships {
		room, user := roomsByID[m.RoomID], s.usersByID[m.UserID]
		if room == nil || user == nil {
			continue
		}
		m.Link(room, user)
	}
	for _, r := range snap.Rooms {
		r.ClearDirty()
	}
	for _, m := range snap.Messages {
		m.Room, m.User = roomsByID[m.RoomID], s.usersByID[m.UserID]
		m.ClearDirty()
		s.history[m.RoomID] = append(s.history[m.RoomID], m)
	}
	for id, msgs := range s.history {
		sort.Slice(msgs, func(i, j int) bool { return msgs[i].When.Before(msgs[j].When) })
		s.history[id] = msgs
	}
	return nil
}

func (s *Service) VerifyUserID(id string) (*models.ChatUser, error) {
	user := s.GetUserByID(id)
	if user == nil {
		return nil, apperror.Authentication("You're not logged in. Type /nick [name] to pick a name.")
	}
	return user, nil
}

func (s *Service) VerifyUser(name string) (*models.ChatUser, error) {
	user := s.GetUserByName(name)
	if user == nil {
		return nil, apperror.NotFound("Unable to find user '%s'.", name)
	}
	return user, nil
}

func (s *Service) VerifyRoom(name string, mustBeOpen bool) (*models.ChatRoom, error) {
	if models.NormalizeName(name) == "" {
		return nil, apperror.Validation("Use '/join room' to join a room.")
	}
	room := s.GetRoomByName(name)
	if room == nil {
		return nil, apperror.NotFound("Unable to find room '%s'.", name)
	}
	if mustBeOpen && room.Closed {
		return nil, apperror.State("The room '%s' is closed.", room.Name)
	}
	return room, nil
}

func (s *Service) VerifyUserRoom(user *models.ChatUser, roomName string) (*models.ChatRoom, error) {
	room, err := s.VerifyRoom(roomName, true)
	if err != nil {
		return nil, err
	}
	if !room.IsMember(user) {
		return nil, apperror.State("You're not in '%s'. Use '/join %s' to join it.", room.Name, room.Name)
	}
	return room, nil
}

func (s *Service) GetUserByID(id string) *models.ChatUser {
	if id == "" {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usersByID[id]
}

func (s *Service) GetUserByName(name string) *models.ChatUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usersByName[models.NormalizeName(name)]
}

func (s *Service) GetUserByClientID(clientID string) *models.ChatUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.clients[clientID]; ok {
		return c.User
	}
	return nil
}

func (s *Service) GetRoomByName(name string) *models.ChatRoom {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[models.NormalizeName(name)]
}

// Users returns every user ordered by name.
func (s *Service) Users() []*models.ChatUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := lo.Values(s.usersByName)
	sort.Slice(users, func(i, j int) bool { return users[i].NameKey < users[j].NameKey })
	return users
}

func (s *Service) OnlineUsers() []*models.ChatUser {
	return lo.Filter(s.Users(), func(u *models.ChatUser, _ int) bool { return u.IsOnline() })
}

func (s *Service) UserCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.usersByID)
}

// Rooms returns every room, closed ones included, ordered by name.
func (s *Service) Rooms() []*models.ChatRoom {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rooms := lo.Values(s.rooms)
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].NameKey < rooms[j].NameKey })
	return rooms
}

// AllowedRooms returns the open rooms user is allowed to see.
func (s *Service) AllowedRooms(user *models.ChatUser) []*models.ChatRoom {
	return lo.Filter(s.Rooms(), func(r *models.ChatRoom, _ int) bool {
		return !r.Closed && r.CanAccess(user)
	})
}

func (s *Service) AddUser(user *models.ChatUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := models.NormalizeName(user.Name)
	if _, taken := s.usersByName[key]; taken {
		return apperror.Conflict("Username %s already taken, please use a different username.", user.Name)
	}
	user.MarkDirty()
	s.usersByID[user.ID] = user
	s.usersByName[key] = user
	return nil
}

func (s *Service) RenameUser(user *models.ChatUser, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	oldKey, newKey := models.NormalizeName(user.Name), models.NormalizeName(newName)
	if existing, taken := s.usersByName[newKey]; taken && existing != user {
		return apperror.Conflict("Username %s already taken, please use a different username.", newName)
	}
	delete(s.usersByName, oldKey)
	user.SetName(newName)
	s.usersByName[newKey] = user
	return nil
}

func (s *Service) AddRoom(room *models.ChatRoom) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := models.NormalizeName(room.Name)
	if existing, taken := s.rooms[key]; taken {
		suffix := ""
		if existing.Closed {
			suffix = " but it's closed"
		}
		return apperror.Conflict("The room '%s' already exists%s", room.Name, suffix)
	}
	room.MarkDirty()
	s.rooms[key] = room
	return nil
}

func (s *Service) AddClient(user *models.ChatUser, client *models.ChatClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.AttachClient(client)
	s.clients[client.ID] = user.Client(client.ID)
}

// RemoveClient forgets a connection and returns the user that owned it.
func (s *Service) RemoveClient(clientID string) *models.ChatUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[clientID]
	if !ok {
		return nil
	}
	delete(s.clients, clientID)
	c.User.DetachClient(clientID)
	return c.User
}

// AddMessage appends msg to its room history and queues it for the next commit.
func (s *Service) AddMessage(msg *models.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := append(s.history[msg.RoomID], msg)
	if len(msgs) > s.historyLimit {
		msgs = msgs[len(msgs)-s.historyLimit:]
	}
	s.history[msg.RoomID] = msgs
	s.pending[msg.ID] = msg
}

// SaveMessage queues an already stored message whose content changed.
func (s *Service) SaveMessage(msg *models.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[msg.ID] = msg
}

// RecentMessages returns up to limit messages of room, oldest first.
func (s *Service) RecentMessages(room *models.ChatRoom, limit int) []*models.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.history[room.ID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]*models.ChatMessage, len(msgs))
	copy(out, msgs)
	return out
}

// CommitChanges flushes every dirty entity atomically. On failure the dirty
// marks stay in place so the next commit retries them.
func (s *Service) CommitChanges(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := Batch{
		Users: lo.Filter(lo.Values(s.usersByID), func(u *models.ChatUser, _ int) bool { return u.IsDirty() }),
		Rooms: lo.Filter(lo.Values(s.rooms), func(r *models.ChatRoom, _ int) bool { return r.IsDirty() }),
		Messages: lo.Filter(lo.Values(s.pending), func(m *models.ChatMessage, _ int) bool {
			return m.IsDirty()
		}),
	}
	if batch.Empty() {
		return nil
	}

	if s.persister != nil {
		if err := s.persister.Flush(ctx, batch); err != nil {
			return apperror.Persistence(err)
		}
	}

	for _, u := range batch.Users {
		u.ClearDirty()
	}
	for _, r := range batch.Rooms {
		r.ClearDirty()
	}
	for _, m := range batch.Messages {
		m.ClearDirty()
	}
	clear(s.pending)
	return nil
}
