package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// tokenFromRequest reads the session token from ?token= or a Bearer
// Authorization header.
func tokenFromRequest(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}

// sessionUser returns the user id of the request's session, or "" without
// one. An invalid token aborts the request with 401.
func (h *Handler) sessionUser(c *gin.Context) (string, bool) {
	token := tokenFromRequest(c)
	if token == "" {
		return "", true
	}
	userID, err := h.Tokens.Validate(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
		return "", false
	}
	return userID, true
}
