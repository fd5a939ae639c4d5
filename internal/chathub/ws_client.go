package chathub

import (
	"encoding/json"
	"time"

	"roomchat/backend/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	defaultClientBuffer = 256
)

// WebSocketClient implements Client over a gorilla websocket connection.
type WebSocketClient struct {
	ID        string
	UserID    string
	RoomID    string
	UserAgent string
	Conn      *websocket.Conn
	Hub       *ManagerService
	Send      chan models.Envelope

	log *zap.Logger
}

func NewWebSocketClient(id, userID, userAgent string, conn *websocket.Conn, hub *ManagerService) *WebSocketClient {
	return &WebSocketClient{
		ID:        id,
		UserID:    userID,
		UserAgent: userAgent,
		Conn:      conn,
		Hub:       hub,
		Send:      make(chan models.Envelope, hub.ClientBuffer()),
		log:       hub.log.With(zap.String("client_id", id)),
	}
}

func (c *WebSocketClient) GetClientID() string                    { return c.ID }
func (c *WebSocketClient) GetUserID() string                      { return c.UserID }
func (c *WebSocketClient) SetUserID(id string)                    { c.UserID = id }
func (c *WebSocketClient) GetRoomID() string                      { return c.RoomID }
func (c *WebSocketClient) SetRoomID(id string)                    { c.RoomID = id }
func (c *WebSocketClient) GetUserAgent() string                   { return c.UserAgent }
func (c *WebSocketClient) GetSendChannel() chan<- models.Envelope { return c.Send }

// Run starts the read and write pumps.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close closes Send, which stops writePump and closes the connection.
func (c *WebSocketClient) Close() {
	close(c.Send)
}

func (c *WebSocketClient) readPump() {
	defer func() {
		select {
		case c.Hub.UnregisterCh <- c:
		case <-c.Hub.Done():
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		var msg models.InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Debug("dropping malformed frame", zap.Error(err))
			continue
		}
		msg.ClientID = c.ID

		select {
		case c.Hub.IncomingCh <- msg:
		case <-c.Hub.Done():
			return
		}
	}
}

// writePump writes one JSON frame per envelope and pings the peer to keep
// the read deadline alive.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.writeEnvelope(env); err != nil {
				c.log.Debug("websocket write failed", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WebSocketClient) writeEnvelope(env models.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		c.log.Error("failed to encode envelope", zap.String("type", env.Type), zap.Error(err))
		return nil
	}
	return c.Conn.WriteMessage(websocket.TextMessage, data)
}
