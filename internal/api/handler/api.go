package handler

import (
	"net/http"
	"strconv"

	"roomchat/backend/internal/apperror"
	"roomchat/backend/internal/commands"
	"roomchat/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) ListCommands(c *gin.Context) {
	c.JSON(http.StatusOK, h.Registry.List())
}

// ListRooms returns the open rooms the session can see.
func (h *Handler) ListRooms(c *gin.Context) {
	userID, ok := h.sessionUser(c)
	if !ok {
		return
	}
	var views []models.RoomView
	if !h.query(c, func() {
		rooms := h.Repo.AllowedRooms(h.Repo.GetUserByID(userID))
		views = lo.Map(rooms, func(r *models.ChatRoom, _ int) models.RoomView { return models.NewRoomView(r) })
	}) {
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) GetRoom(c *gin.Context) {
	userID, ok := h.sessionUser(c)
	if !ok {
		return
	}
	var (
		info models.RoomInfoView
		err  error
	)
	if !h.query(c, func() {
		var room *models.ChatRoom
		room, err = h.visibleRoom(c.Param("name"), userID)
		if err != nil {
			return
		}
		info = models.RoomInfoView{
			Name:    room.Name,
			Topic:   room.Topic,
			Private: room.Private,
			Users: lo.Map(room.OnlineMembers(), func(u *models.ChatUser, _ int) models.UserView {
				return models.NewUserView(u)
			}),
			Owners: lo.Map(room.Owners(), func(u *models.ChatUser, _ int) string { return u.Name }),
			RecentMessages: lo.Map(h.Repo.RecentMessages(room, h.HistoryLimit), func(m *models.ChatMessage, _ int) models.MessageView {
				return models.NewMessageView(m)
			}),
		}
	}) {
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// GetMessages returns up to ?limit= recent messages, oldest first.
func (h *Handler) GetMessages(c *gin.Context) {
	userID, ok := h.sessionUser(c)
	if !ok {
		return
	}
	limit := h.HistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeError(c, apperror.Validation("limit must be a positive number."))
			return
		}
		limit = min(n, h.HistoryLimit)
	}

	var (
		messages []models.MessageView
		err      error
	)
	if !h.query(c, func() {
		var room *models.ChatRoom
		room, err = h.visibleRoom(c.Param("name"), userID)
		if err != nil {
			return
		}
		messages = lo.Map(h.Repo.RecentMessages(room, limit), func(m *models.ChatMessage, _ int) models.MessageView {
			return models.NewMessageView(m)
		})
	}) {
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (h *Handler) GetUser(c *gin.Context) {
	userID, ok := h.sessionUser(c)
	if !ok {
		return
	}
	var (
		info models.UserInfoView
		err  error
	)
	if !h.query(c, func() {
		var user *models.ChatUser
		user, err = h.Repo.VerifyUser(c.Param("name"))
		if err != nil {
			return
		}
		info = commands.UserInfo(user, h.Repo.GetUserByID(userID))
	}) {
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// visibleRoom hides private rooms from users who cannot access them.
func (h *Handler) visibleRoom(name, userID string) (*models.ChatRoom, error) {
	room, err := h.Repo.VerifyRoom(name, false)
	if err != nil {
		return nil, err
	}
	if !room.CanAccess(h.Repo.GetUserByID(userID)) {
		return nil, apperror.NotFound("Unable to find room '%s'.", name)
	}
	return room, nil
}
