package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/profile-support/internal/auth"
	"github.com/spec-kit/profile-support/internal/domain"
	"github.com/spec-kit/profile-support/internal/events"
	"github.com/spec-kit/profile-support/internal/observability"
	"github.com/spec-kit/profile-support/internal/repository"
	apperrors "github.com/spec-kit/profile-support/pkg/util/errorutil"
)

// SupportService coordinates the support log.
type SupportService struct {
	messages   repository.SupportMessageRepository
	adminKeys  *auth.AdminKeyVerifier
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// SupportDependencies bundles collaborators of the support service.
type SupportDependencies struct {
	MessageRepo repository.SupportMessageRepository
	AdminKeys   *auth.AdminKeyVerifier
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// NewSupportService constructs the service.
func NewSupportService(deps SupportDependencies) *SupportService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &SupportService{
		messages:   deps.MessageRepo,
		adminKeys:  deps.AdminKeys,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
}

// List returns the whole log, oldest first.
func (s *SupportService) List(ctx context.Context) ([]domain.SupportMessage, error) {
	return s.messages.List(ctx)
}

// Recent returns the last limit messages, oldest first.
func (s *SupportService) Recent(ctx context.Context, limit int) ([]domain.SupportMessage, error) {
	return s.messages.ListRecent(ctx, limit)
}

// Post stores a message from the public endpoint. Callers presenting the
// admin key post as admin; everyone else posts as user.
func (s *SupportService) Post(ctx context.Context, text, adminKey string) (*domain.SupportMessage, error) {
	sender := domain.SenderUser
	if s.adminKeys.Verify(adminKey) {
		sender = domain.SenderAdmin
	}
	return s.PostAs(ctx, sender, text)
}

// PostAs stores a message with an explicit sender.
func (s *SupportService) PostAs(ctx context.Context, sender domain.Sender, text string) (*domain.SupportMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("Text is required", nil)
	}
	if !sender.Valid() {
		return nil, apperrors.NewValidationError("unknown sender", map[string]any{"sender": sender})
	}

	msg := &domain.SupportMessage{Text: text, Sender: sender}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.metrics.RecordSupportMessage(string(sender))
	s.logger.Info("support message stored", zap.String("message_id", msg.ID), zap.String("sender", string(sender)))

	s.publishEvent(ctx, events.Event{
		Type: events.EventSupportMessageAdded,
		Payload: events.SupportMessageAddedPayload{
			MessageID: msg.ID,
			Sender:    sender,
			Text:      msg.Text,
		},
	})
	return msg, nil
}

// MarkUserMessagesRead flags every unread user message as read.
func (s *SupportService) MarkUserMessagesRead(ctx context.Context) (int64, error) {
	updated, err := s.messages.MarkRead(ctx, domain.SenderUser)
	if err != nil {
		return 0, err
	}
	if updated > 0 {
		s.publishEvent(ctx, events.Event{
			Type:    events.EventSupportMessagesRead,
			Payload: events.SupportMessagesReadPayload{Sender: domain.SenderUser, Updated: updated},
		})
	}
	return updated, nil
}

func (s *SupportService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
