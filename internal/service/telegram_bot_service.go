package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/profile-support/internal/domain"
)

const historyLimit = 10

// BotMessage is an incoming message addressed to the support bot.
type BotMessage struct {
	ChatID string
	Text   string
}

// TelegramBotService turns messages from the administrator's Telegram chat
// into support replies.
type TelegramBotService struct {
	support  *SupportService
	sender   MessageSender
	chatID   string
	location *time.Location
	logger   *zap.Logger
}

// NewTelegramBotService constructs the bot. Only chatID may talk to it.
func NewTelegramBotService(support *SupportService, sender MessageSender, chatID string, location *time.Location, logger *zap.Logger) *TelegramBotService {
	if location == nil {
		location = time.Local
	}
	return &TelegramBotService{
		support:  support,
		sender:   sender,
		chatID:   chatID,
		location: location,
		logger:   logger,
	}
}

// Handle processes one message. Messages from foreign chats and blank
// messages are ignored.
func (b *TelegramBotService) Handle(ctx context.Context, msg BotMessage) error {
	if b.chatID == "" || msg.ChatID != b.chatID {
		b.logger.Warn("ignoring telegram message from unknown chat", zap.String("chat_id", msg.ChatID))
		return nil
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil
	}

	if strings.HasPrefix(text, "/") {
		return b.handleCommand(ctx, text)
	}

	stored, err := b.support.PostAs(ctx, domain.SenderAdmin, text)
	if err != nil {
		return err
	}
	return b.reply(ctx, fmt.Sprintf("✅ Message delivered to the support chat:\n\n\"%s\"", html.EscapeString(stored.Text)))
}

func (b *TelegramBotService) handleCommand(ctx context.Context, command string) error {
	switch strings.Fields(command)[0] {
	case "/start":
		return b.reply(ctx, "👋 Support bot is active!\n\nSend messages here and they will appear in the support chat as administrator replies.")
	case "/history":
		return b.sendHistory(ctx)
	default:
		return nil
	}
}

func (b *TelegramBotService) sendHistory(ctx context.Context) error {
	messages, err := b.support.Recent(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		return b.reply(ctx, "No messages in history")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 <b>Last %d messages:</b>\n\n", historyLimit))
	for _, msg := range messages {
		icon := "🛠"
		if msg.Sender == domain.SenderUser {
			icon = "👤"
		}
		fmt.Fprintf(&sb, "%s <b>%s</b>: %s\n", icon, msg.Timestamp.In(b.location).Format("15:04"), html.EscapeString(msg.Text))
	}
	if err := b.reply(ctx, sb.String()); err != nil {
		return err
	}

	if _, err := b.support.MarkUserMessagesRead(ctx); err != nil {
		b.logger.Warn("mark read failed", zap.Error(err))
	}
	return nil
}

func (b *TelegramBotService) reply(ctx context.Context, text string) error {
	if b.sender == nil {
		return nil
	}
	if err := b.sender.SendMessage(ctx, b.chatID, text); err != nil {
		b.logger.Warn("telegram reply failed", zap.Error(err))
		return err
	}
	return nil
}
