package chathub

import "roomchat/backend/internal/models"

// EventPublisher mirrors room broadcasts to an external stream. Publish
// must not block the hub.
type EventPublisher interface {
	Publish(room string, env models.Envelope)
}
