package models

import "time"

// ChatClient is one live connection of a user. It is never persisted.
type ChatClient struct {
	ID         string
	UserAgent  string
	User       *ChatUser
	AttachedAt time.Time
}

func NewChatClient(id, userAgent string) *ChatClient {
	return &ChatClient{ID: id, UserAgent: userAgent, AttachedAt: time.Now()}
}
