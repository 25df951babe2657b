package service

import (
	"context"
	"html"

	"go.uber.org/zap"

	"github.com/spec-kit/profile-support/internal/domain"
	"github.com/spec-kit/profile-support/internal/events"
)

// MessageSender delivers a text message to a chat.
type MessageSender interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// NotificationService forwards support activity to the administrator chat.
type NotificationService struct {
	dispatcher events.Dispatcher
	sender     MessageSender
	chatID     string
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, sender MessageSender, chatID string, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		sender:     sender,
		chatID:     chatID,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventSupportMessageAdded, n.handleSupportMessageAdded)
	n.dispatcher.Subscribe(events.EventSupportMessagesRead, n.handleSupportMessagesRead)
}

func (n *NotificationService) handleSupportMessageAdded(ctx context.Context, event events.Event) error {
	payload, err := events.DecodePayload[events.SupportMessageAddedPayload](event)
	if err != nil {
		return err
	}
	n.logger.Info("SupportMessageAdded", zap.String("message_id", payload.MessageID), zap.String("sender", string(payload.Sender)))

	// Admin replies come from the bot itself and are confirmed there.
	if payload.Sender != domain.SenderUser || n.sender == nil || n.chatID == "" {
		return nil
	}
	text := "📩 <b>New support message</b>\n\n" + html.EscapeString(payload.Text)
	if err := n.sender.SendMessage(ctx, n.chatID, text); err != nil {
		n.logger.Warn("forward to telegram failed", zap.String("message_id", payload.MessageID), zap.Error(err))
		return err
	}
	return nil
}

func (n *NotificationService) handleSupportMessagesRead(_ context.Context, event events.Event) error {
	n.logger.Debug("SupportMessagesRead", zap.String("event_id", event.ID), zap.Any("payload", event.Payload))
	return nil
}
