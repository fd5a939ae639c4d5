package telegram

import (
	"strconv"

	"roomchat/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sender is the part of the bot API a client writes through.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client implements chathub.Client for one Telegram chat. Identity and room
// fields are only touched by the hub goroutine.
type Client struct {
	ChatID int64
	Lang   string

	userID string
	roomID string
	send   chan models.Envelope

	sender   Sender
	renderer *Renderer
	log      *zap.Logger
}

func NewClient(chatID int64, lang string, buffer int, sender Sender, renderer *Renderer, log *zap.Logger) *Client {
	return &Client{
		ChatID:   chatID,
		Lang:     lang,
		send:     make(chan models.Envelope, buffer),
		sender:   sender,
		renderer: renderer,
		log:      log.With(zap.Int64("chat_id", chatID)),
	}
}

// ClientID returns the hub connection id of a Telegram chat.
func ClientID(chatID int64) string {
	return "tg:" + strconv.FormatInt(chatID, 10)
}

func (c *Client) GetClientID() string                    { return ClientID(c.ChatID) }
func (c *Client) GetUserID() string                      { return c.userID }
func (c *Client) SetUserID(id string)                    { c.userID = id }
func (c *Client) GetRoomID() string                      { return c.roomID }
func (c *Client) SetRoomID(id string)                    { c.roomID = id }
func (c *Client) GetUserAgent() string                   { return "telegram" }
func (c *Client) GetSendChannel() chan<- models.Envelope { return c.send }

// Run starts the write pump. Updates are read centrally by BotService.
func (c *Client) Run() {
	go c.writePump()
}

func (c *Client) Close() {
	close(c.send)
}

// writePump renders every envelope and sends the non-empty ones to the chat.
func (c *Client) writePump() {
	defer c.log.Debug("telegram write pump stopped")

	for env := range c.send {
		text := c.renderer.Render(c.Lang, env)
		if text == "" {
			continue
		}
		if _, err := c.sender.Send(tgbotapi.NewMessage(c.ChatID, text)); err != nil {
			c.log.Error("failed to send telegram message", zap.String("type", env.Type), zap.Error(err))
		}
	}
}
