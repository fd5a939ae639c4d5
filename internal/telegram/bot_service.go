// Package telegram is a second transport for the chat hub: every Telegram
// chat talking to the bot is one hub connection.
package telegram

import (
	"context"
	"fmt"
	"strings"

	"roomchat/backend/internal/chathub"
	"roomchat/backend/internal/localization"
	"roomchat/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// BotService receives Telegram updates and routes them to the hub.
type BotService struct {
	BotAPI    *tgbotapi.BotAPI
	Hub       *chathub.ManagerService
	Localizer *localization.Localizer

	prefix   string
	renderer *Renderer
	clients  map[int64]*Client
	log      *zap.Logger
}

func NewBotService(token string, hub *chathub.ManagerService, prefix string, loc *localization.Localizer, log *zap.Logger) (*BotService, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize telegram bot: %w", err)
	}
	bot.Debug = false

	log = log.Named("telegram")
	log.Info("telegram bot authorized", zap.String("account", bot.Self.UserName))

	return &BotService{
		BotAPI:    bot,
		Hub:       hub,
		Localizer: loc,
		prefix:    prefix,
		renderer:  NewRenderer(loc),
		clients:   make(map[int64]*Client),
		log:       log,
	}, nil
}

// Run polls for updates until ctx is cancelled.
func (s *BotService) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.BotAPI.GetUpdatesChan(u)
	defer s.BotAPI.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message != nil {
				s.handleMessage(ctx, update.Message)
			}
		}
	}
}

func (s *BotService) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	text := extractMessageContent(msg)
	if text == "" {
		reply := tgbotapi.NewMessage(msg.Chat.ID, s.Localizer.GetString(languageOf(msg), "unsupported_message_type"))
		if _, err := s.BotAPI.Send(reply); err != nil {
			s.log.Warn("failed to send reply", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
		}
		return
	}

	c, ok := s.clientFor(ctx, msg)
	if !ok {
		return
	}
	frame := models.InboundMessage{
		ClientID: c.GetClientID(),
		Type:     models.FrameSend,
		Content:  normalizeCommand(text, s.prefix, s.BotAPI.Self.UserName),
	}
	select {
	case s.Hub.IncomingCh <- frame:
	case <-s.Hub.Done():
	case <-ctx.Done():
	}
}

// clientFor returns the chat's connection, registering it on first contact.
func (s *BotService) clientFor(ctx context.Context, msg *tgbotapi.Message) (*Client, bool) {
	if c, ok := s.clients[msg.Chat.ID]; ok {
		return c, true
	}
	c := NewClient(msg.Chat.ID, languageOf(msg), s.Hub.ClientBuffer(), s.BotAPI, s.renderer, s.log)
	select {
	case s.Hub.RegisterCh <- c:
	case <-s.Hub.Done():
		return nil, false
	case <-ctx.Done():
		return nil, false
	}
	c.Run()
	s.clients[msg.Chat.ID] = c
	return c, true
}

// extractMessageContent uniformly extracts text or a caption from a message.
func extractMessageContent(msg *tgbotapi.Message) string {
	if msg == nil {
		return ""
	}
	if msg.Text != "" {
		return msg.Text
	}
	return msg.Caption
}

func languageOf(msg *tgbotapi.Message) string {
	if msg.From != nil && msg.From.LanguageCode != "" {
		return msg.From.LanguageCode
	}
	return localization.DefaultLanguage
}

// normalizeCommand strips the "@botname" suffix Telegram adds to commands
// in group chats and maps /start to /help.
func normalizeCommand(text, prefix, botName string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, prefix) {
		return text
	}
	head, tail := text, ""
	if i := strings.IndexAny(text, " \t\n"); i >= 0 {
		head, tail = text[:i], text[i:]
	}
	if at := strings.LastIndex(head, "@"); at > 0 && botName != "" && strings.EqualFold(head[at+1:], botName) {
		head = head[:at]
	}
	if head == prefix+"start" {
		head = prefix + "help"
	}
	return head + tail
}
