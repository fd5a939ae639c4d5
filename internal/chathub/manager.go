// Package chathub is the transport side of the chat: it owns live
// connections and room broadcast groups, runs commands for them, and fans
// out the resulting events.
package chathub

import (
	"context"
	"errors"
	"time"

	"roomchat/backend/internal/apperror"
	"roomchat/backend/internal/auth"
	"roomchat/backend/internal/chat"
	"roomchat/backend/internal/commands"
	"roomchat/backend/internal/config"
	"roomchat/backend/internal/models"
	"roomchat/backend/internal/preview"
	"roomchat/backend/internal/storage"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// ErrHubStopped is returned by Do once the hub loop has exited.
var ErrHubStopped = errors.New("chathub: hub stopped")

// Previewer resolves a link into preview content.
type Previewer interface {
	Extract(ctx context.Context, url string) (*preview.Result, error)
}

type enrichment struct {
	msg     *models.ChatMessage
	room    *models.ChatRoom
	content string
}

// ManagerService is the hub. Every state change runs on its Run goroutine.
type ManagerService struct {
	Clients map[string]Client

	// Channels
	IncomingCh   chan models.InboundMessage
	RegisterCh   chan Client
	UnregisterCh chan Client

	enrichCh  chan enrichment
	requestCh chan func()
	stopped   chan struct{}

	repo       storage.Repository
	chat       *chat.Service
	dispatcher *commands.Dispatcher
	groups     *Groups

	tokens       *auth.TokenService
	previews     Previewer
	events       EventPublisher
	idleTimeout  time.Duration
	sweepEvery   time.Duration
	clientBuffer int

	log *zap.Logger
}

type Option func(*ManagerService)

// WithTokens issues a session token after a user is created or logs on.
func WithTokens(tokens *auth.TokenService) Option {
	return func(m *ManagerService) { m.tokens = tokens }
}

func WithPreviews(p Previewer) Option {
	return func(m *ManagerService) { m.previews = p }
}

func WithEvents(p EventPublisher) Option {
	return func(m *ManagerService) { m.events = p }
}

// WithIdleTimeout marks Active users Inactive after timeout without
// activity, checking every interval. A zero timeout disables the sweep.
func WithIdleTimeout(timeout, every time.Duration) Option {
	return func(m *ManagerService) {
		m.idleTimeout = timeout
		m.sweepEvery = every
	}
}

// WithClientBuffer sets the outbound queue size of new connections.
func WithClientBuffer(n int) Option {
	return func(m *ManagerService) { m.clientBuffer = n }
}

func NewManagerService(repo storage.Repository, chatService *chat.Service, dispatcher *commands.Dispatcher, log *zap.Logger, opts ...Option) *ManagerService {
	m := &ManagerService{
		Clients:      make(map[string]Client),
		IncomingCh:   make(chan models.InboundMessage, 64),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		enrichCh:     make(chan enrichment, 16),
		requestCh:    make(chan func()),
		stopped:      make(chan struct{}),
		repo:         repo,
		chat:         chatService,
		dispatcher:   dispatcher,
		groups:       NewGroups(),
		sweepEvery:   config.IdleSweepInterval,
		clientBuffer: defaultClientBuffer,
		log:          log.Named("hub"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run processes hub traffic until ctx is cancelled, then closes every client.
func (m *ManagerService) Run(ctx context.Context) {
	defer close(m.stopped)

	var sweep <-chan time.Time
	if m.idleTimeout > 0 && m.sweepEvery > 0 {
		ticker := time.NewTicker(m.sweepEvery)
		defer ticker.Stop()
		sweep = ticker.C
	}

	m.log.Info("hub started")
	for {
		select {
		case <-ctx.Done():
			for id, c := range m.Clients {
				c.Close()
				delete(m.Clients, id)
			}
			m.log.Info("hub stopped")
			return

		case c := <-m.RegisterCh:
			m.register(ctx, c)

		case c := <-m.UnregisterCh:
			m.unregister(ctx, c)

		case msg := <-m.IncomingCh:
			m.handleInbound(ctx, msg)

		case e := <-m.enrichCh:
			m.applyEnrichment(ctx, e)

		case fn := <-m.requestCh:
			fn()

		case <-sweep:
			m.sweepIdle(ctx)
		}
	}
}

// ClientBuffer is the outbound queue size transports give new connections.
func (m *ManagerService) ClientBuffer() int { return m.clientBuffer }

// Done is closed once Run has returned.
func (m *ManagerService) Done() <-chan struct{} { return m.stopped }

// Do runs fn on the hub goroutine and waits for it to finish.
func (m *ManagerService) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}
	select {
	case m.requestCh <- wrapped:
	case <-m.stopped:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *ManagerService) register(ctx context.Context, c Client) {
	m.Clients[c.GetClientID()] = c
	m.log.Info("client attached",
		zap.String("client_id", c.GetClientID()),
		zap.String("user_id", c.GetUserID()))

	if c.GetUserID() == "" {
		return
	}
	user := m.repo.GetUserByID(c.GetUserID())
	if user == nil {
		c.SetUserID("")
		m.sendError(c, apperror.Authentication("Your session has expired. Type /nick [name] [password] to log in again."))
		return
	}
	m.resume(ctx, c, user)
}

// resume attaches a connection that presented a valid session token.
func (m *ManagerService) resume(ctx context.Context, c Client, user *models.ChatUser) {
	firstAttach := m.chat.AddClient(user, c.GetClientID(), c.GetUserAgent())
	m.attach(c.GetClientID(), user, firstAttach)
	m.commit(ctx)
}

// attach subscribes a connection to the user's open rooms and sends it
// logOn. Rooms hear about the user only on its first connection.
func (m *ManagerService) attach(clientID string, user *models.ChatUser, firstAttach bool) {
	rooms := openRooms(user)
	views := make([]models.RoomView, 0, len(rooms))
	for _, room := range rooms {
		if firstAttach {
			m.broadcastRoom(room, models.Envelope{
				Type: models.EventAddUser,
				Room: room.Name,
				Data: models.AddUserPayload{User: models.NewUserView(user), IsOwner: room.IsOwner(user)},
			})
			m.roomChanged(room)
		}
		m.groups.Add(room.Name, clientID)
		views = append(views, models.NewRoomView(room))
	}
	m.sendTo(clientID, models.Envelope{Type: models.EventLogOn, Data: views})
}

func (m *ManagerService) unregister(ctx context.Context, c Client) {
	id := c.GetClientID()
	if _, ok := m.Clients[id]; !ok {
		return
	}
	delete(m.Clients, id)
	m.groups.RemoveClient(id)
	c.Close()
	m.log.Info("client detached", zap.String("client_id", id))

	user := m.chat.DisconnectClient(id)
	if user == nil {
		return
	}
	if user.Status == models.UserStatusOffline {
		m.announceDeparture(user)
	}
	m.commit(ctx)
}

// announceDeparture tells every open room of an offline user that they left.
func (m *ManagerService) announceDeparture(user *models.ChatUser) {
	view := models.NewUserView(user)
	for _, room := range openRooms(user) {
		m.broadcastRoom(room, models.Envelope{Type: models.EventLeave, Room: room.Name, Data: view})
		m.roomChanged(room)
	}
}

func (m *ManagerService) handleInbound(ctx context.Context, msg models.InboundMessage) {
	c, ok := m.Clients[msg.ClientID]
	if !ok {
		m.log.Debug("frame from unknown client", zap.String("client_id", msg.ClientID))
		return
	}
	m.log.Debug("frame received",
		zap.String("client_id", msg.ClientID),
		zap.String("type", msg.Type))

	var err error
	switch msg.Type {
	case models.FrameSend:
		err = m.handleSend(ctx, c, msg.Room, msg.Content)
	case models.FrameTyping:
		err = m.handleTyping(ctx, c, msg.Room)
	case models.FramePing:
		err = m.handlePing(ctx, c)
	default:
		err = apperror.Validation("Unknown frame type '%s'.", msg.Type)
	}
	if err != nil {
		m.sendError(c, err)
	}
}

func (m *ManagerService) handleSend(ctx context.Context, c Client, roomName, content string) error {
	if roomName == "" {
		roomName = c.GetRoomID()
	}
	caller := commands.Caller{
		UserID:    c.GetUserID(),
		RoomName:  roomName,
		ClientID:  c.GetClientID(),
		UserAgent: c.GetUserAgent(),
	}
	handled, err := m.dispatcher.TryHandleCommand(ctx, content, caller, m.notifierFor(c))
	if handled {
		return err
	}

	user, err := m.repo.VerifyUserID(c.GetUserID())
	if err != nil {
		return err
	}
	room, err := m.repo.VerifyUserRoom(user, roomName)
	if err != nil {
		return err
	}
	c.SetRoomID(room.Name)

	m.chat.UpdateActivity(user, c.GetClientID(), c.GetUserAgent())
	m.broadcastRoom(room, models.Envelope{
		Type: models.EventUpdateActivity,
		Room: room.Name,
		Data: models.NewUserView(user),
	})

	links := preview.ExtractURLs(content)
	msg := m.chat.AddMessage(user, room, html.EscapeString(content), links)
	m.broadcastRoom(room, models.Envelope{
		Type: models.EventAddMessage,
		Room: room.Name,
		Data: models.NewMessageView(msg),
	})
	m.commit(ctx)

	m.enrich(ctx, msg, room, links)
	return nil
}

func (m *ManagerService) handleTyping(ctx context.Context, c Client, roomName string) error {
	if roomName == "" {
		roomName = c.GetRoomID()
	}
	user, err := m.repo.VerifyUserID(c.GetUserID())
	if err != nil {
		return err
	}
	room, err := m.repo.VerifyUserRoom(user, roomName)
	if err != nil {
		return err
	}
	m.touch(ctx, c, user)
	m.broadcastRoom(room, models.Envelope{
		Type: models.EventSetTyping,
		Room: room.Name,
		Data: models.NewUserView(user),
	})
	return nil
}

func (m *ManagerService) handlePing(ctx context.Context, c Client) error {
	user := m.repo.GetUserByID(c.GetUserID())
	if user == nil {
		return nil
	}
	m.touch(ctx, c, user)
	return nil
}

// touch records activity and tells the user's rooms when it made them Active.
func (m *ManagerService) touch(ctx context.Context, c Client, user *models.ChatUser) {
	wasActive := user.Status == models.UserStatusActive
	m.chat.UpdateActivity(user, c.GetClientID(), c.GetUserAgent())
	if !wasActive {
		m.broadcastActivity(user)
	}
	m.commit(ctx)
}

func (m *ManagerService) broadcastActivity(user *models.ChatUser) {
	view := models.NewUserView(user)
	for _, room := range openRooms(user) {
		m.broadcastRoom(room, models.Envelope{Type: models.EventUpdateActivity, Room: room.Name, Data: view})
	}
}

func (m *ManagerService) sweepIdle(ctx context.Context) {
	idle := m.chat.SweepIdle(m.idleTimeout)
	if len(idle) == 0 {
		return
	}
	for _, user := range idle {
		m.broadcastActivity(user)
	}
	m.log.Debug("idle sweep", zap.Int("users", len(idle)))
	m.commit(ctx)
}

// enrich resolves each link on its own goroutine. Results come back to the
// hub loop; failures are logged and dropped.
func (m *ManagerService) enrich(ctx context.Context, msg *models.ChatMessage, room *models.ChatRoom, links []string) {
	if m.previews == nil {
		return
	}
	for _, url := range links {
		go func(url string) {
			r, err := m.previews.Extract(ctx, url)
			if err != nil {
				m.log.Warn("link preview failed", zap.String("url", url), zap.Error(err))
				return
			}
			if r == nil {
				return
			}
			content := r.Content()
			if content == "" {
				return
			}
			select {
			case m.enrichCh <- enrichment{msg: msg, room: room, content: content}:
			case <-ctx.Done():
			}
		}(url)
	}
}

func (m *ManagerService) applyEnrichment(ctx context.Context, e enrichment) {
	extracted := "<p>" + e.content + "</p>"
	e.msg.AppendContent(extracted)
	m.repo.SaveMessage(e.msg)
	m.broadcastRoom(e.room, models.Envelope{
		Type: models.EventAddMessageContent,
		Room: e.room.Name,
		Data: models.MessageContentPayload{ID: e.msg.ID, Content: extracted},
	})
	m.commit(ctx)
}

// commit flushes the working set. Failures keep the dirty state for the
// next commit.
func (m *ManagerService) commit(ctx context.Context) {
	if err := m.repo.CommitChanges(ctx); err != nil {
		m.log.Error("commit failed", zap.Error(err))
	}
}

// sendTo delivers env to one connection without blocking.
func (m *ManagerService) sendTo(clientID string, env models.Envelope) {
	c, ok := m.Clients[clientID]
	if !ok {
		return
	}
	select {
	case c.GetSendChannel() <- env:
	default:
		m.log.Warn("client send buffer full, dropping event",
			zap.String("client_id", clientID),
			zap.String("type", env.Type))
	}
}

func (m *ManagerService) sendToUser(user *models.ChatUser, env models.Envelope) {
	for _, client := range user.Clients() {
		m.sendTo(client.ID, env)
	}
}

// broadcastRoom delivers env to the room's group and mirrors it to the
// event stream.
func (m *ManagerService) broadcastRoom(room *models.ChatRoom, env models.Envelope) {
	for _, id := range m.groups.Members(room.Name) {
		m.sendTo(id, env)
	}
	if m.events != nil {
		m.events.Publish(room.Name, env)
	}
}

func (m *ManagerService) broadcastAll(env models.Envelope) {
	for id := range m.Clients {
		m.sendTo(id, env)
	}
}

// roomChanged refreshes the room's online count for every connection.
func (m *ManagerService) roomChanged(room *models.ChatRoom) {
	m.broadcastAll(models.Envelope{
		Type: models.EventUpdateRoomCount,
		Room: room.Name,
		Data: models.RoomCountPayload{Room: models.NewRoomView(room), Count: room.OnlineCount()},
	})
}

func (m *ManagerService) sendError(c Client, err error) {
	kind := apperror.KindOf(err)
	if kind == apperror.KindPersistence || kind == apperror.KindUnknown {
		m.log.Error("command failed",
			zap.String("client_id", c.GetClientID()),
			zap.Error(err))
	}
	m.sendTo(c.GetClientID(), models.Envelope{
		Type: models.EventError,
		Data: models.ErrorPayload{Kind: kind.String(), Message: apperror.UserMessage(err)},
	})
}

func (m *ManagerService) sendSession(c Client, user *models.ChatUser) {
	if m.tokens == nil {
		return
	}
	token, err := m.tokens.Issue(user.ID)
	if err != nil {
		m.log.Error("failed to issue session token", zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	m.sendTo(c.GetClientID(), models.Envelope{
		Type: models.EventSession,
		Data: models.SessionPayload{Token: token, UserID: user.ID, Name: user.Name},
	})
}

// openRooms returns the user's joined rooms that are not closed.
func openRooms(user *models.ChatUser) []*models.ChatRoom {
	var out []*models.ChatRoom
	for _, r := range user.Rooms() {
		if !r.Closed {
			out = append(out, r)
		}
	}
	return out
}
