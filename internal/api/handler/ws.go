package handler

import (
	"net/http"

	"roomchat/backend/internal/chathub"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the request and attaches the connection to the
// hub. A valid session token resumes that user; no token gives an
// anonymous connection.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	userID, ok := h.sessionUser(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := chathub.NewWebSocketClient(uuid.NewString(), userID, c.Request.UserAgent(), conn, h.Hub)
	select {
	case h.Hub.RegisterCh <- client:
	case <-h.Hub.Done():
		conn.Close()
		return
	}
	client.Run()
}
