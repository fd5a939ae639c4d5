package chathub_test

import (
	"sync"

	"roomchat/backend/internal/models"
)

// MockClient is a connection whose outbound events pile up in a buffered
// channel for the test to drain.
type MockClient struct {
	mu        sync.Mutex
	id        string
	userID    string
	roomID    string
	closed    bool
	Outbound  chan models.Envelope
	userAgent string
}

func newMockClient(id string) *MockClient {
	return &MockClient{
		id:        id,
		userAgent: "test",
		Outbound:  make(chan models.Envelope, 128),
	}
}

func (c *MockClient) GetClientID() string { return c.id }

func (c *MockClient) GetUserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

func (c *MockClient) SetUserID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = id
}

func (c *MockClient) GetRoomID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

func (c *MockClient) SetRoomID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = id
}

func (c *MockClient) GetUserAgent() string                   { return c.userAgent }
func (c *MockClient) GetSendChannel() chan<- models.Envelope { return c.Outbound }

func (c *MockClient) Run() {
	// Not needed for testing
}

func (c *MockClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *MockClient) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Drain returns every event queued so far.
func (c *MockClient) Drain() []models.Envelope {
	var out []models.Envelope
	for {
		select {
		case env := <-c.Outbound:
			out = append(out, env)
		default:
			return out
		}
	}
}

func types(envs []models.Envelope) []string {
	out := make([]string, 0, len(envs))
	for _, env := range envs {
		out = append(out, env.Type)
	}
	return out
}

func find(envs []models.Envelope, eventType string) (models.Envelope, bool) {
	for _, env := range envs {
		if env.Type == eventType {
			return env, true
		}
	}
	return models.Envelope{}, false
}
