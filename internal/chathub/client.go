package chathub

import "roomchat/backend/internal/models"

// Client is one connection to the hub (websocket, Telegram chat). The hub
// addresses clients by connection id and binds them to a user once the
// user is known.
type Client interface {
	// GetClientID returns the connection id.
	GetClientID() string
	// GetUserID returns the bound user, or "" for an anonymous connection.
	GetUserID() string
	SetUserID(string)
	// GetRoomID returns the active room name used when a frame names none.
	GetRoomID() string
	SetRoomID(string)
	GetUserAgent() string

	// GetSendChannel returns the channel the hub writes outbound events to.
	GetSendChannel() chan<- models.Envelope

	// Run starts the connection's pumps.
	Run()
	// Close releases the connection. The hub calls it once, after which it
	// never writes to the send channel again.
	Close()
}
