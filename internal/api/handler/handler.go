// Package handler exposes the chat over HTTP: the websocket endpoint and a
// small read-only JSON API.
package handler

import (
	"net/http"
	"time"

	"roomchat/backend/internal/apperror"
	"roomchat/backend/internal/auth"
	"roomchat/backend/internal/chathub"
	"roomchat/backend/internal/commands"
	"roomchat/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler holds what the HTTP layer needs to reach the hub.
type Handler struct {
	Hub          *chathub.ManagerService
	Repo         storage.Repository
	Registry     *commands.Registry
	Tokens       *auth.TokenService
	HistoryLimit int

	log *zap.Logger
}

func NewHandler(hub *chathub.ManagerService, repo storage.Repository, registry *commands.Registry, tokens *auth.TokenService, historyLimit int, log *zap.Logger) *Handler {
	return &Handler{
		Hub:          hub,
		Repo:         repo,
		Registry:     registry,
		Tokens:       tokens,
		HistoryLimit: historyLimit,
		log:          log.Named("http"),
	}
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.log))

	r.GET("/ws", h.ServeWebSocket)
	r.GET("/healthz", h.Health)

	api := r.Group("/api")
	api.GET("/commands", h.ListCommands)
	api.GET("/rooms", h.ListRooms)
	api.GET("/rooms/:name", h.GetRoom)
	api.GET("/rooms/:name/messages", h.GetMessages)
	api.GET("/users/:name", h.GetUser)
	return r
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// query runs fn on the hub goroutine. It writes a 503 and returns false
// when the hub is gone.
func (h *Handler) query(c *gin.Context, fn func()) bool {
	if err := h.Hub.Do(c.Request.Context(), fn); err != nil {
		h.log.Warn("hub query failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "The chat is unavailable, please try again."})
		return false
	}
	return true
}

func (h *Handler) writeError(c *gin.Context, err error) {
	kind := apperror.KindOf(err)
	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": apperror.UserMessage(err), "kind": kind.String()})
}

func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindAuthentication:
		return http.StatusUnauthorized
	case apperror.KindAuthorization:
		return http.StatusForbidden
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindConflict, apperror.KindState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
