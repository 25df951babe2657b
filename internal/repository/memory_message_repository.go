package repository

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/spec-kit/profile-support/internal/domain"
)

type memoryMessageRepository struct {
	mu       sync.RWMutex
	nextID   int64
	messages []domain.SupportMessage
	now      func() time.Time
}

// NewMemoryMessageRepository keeps the support log in process memory.
// It is used when no Postgres DSN is configured.
func NewMemoryMessageRepository() SupportMessageRepository {
	return &memoryMessageRepository{now: time.Now}
}

func (r *memoryMessageRepository) Create(_ context.Context, msg *domain.SupportMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	isRead := false
	msg.ID = strconv.FormatInt(r.nextID, 10)
	msg.Timestamp = r.now()
	msg.IsRead = &isRead
	r.messages = append(r.messages, cloneMessage(*msg))
	return nil
}

func (r *memoryMessageRepository) List(_ context.Context) ([]domain.SupportMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneMessages(r.messages), nil
}

func (r *memoryMessageRepository) ListRecent(_ context.Context, limit int) ([]domain.SupportMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	start := 0
	if limit > 0 && len(r.messages) > limit {
		start = len(r.messages) - limit
	}
	return cloneMessages(r.messages[start:]), nil
}

func (r *memoryMessageRepository) MarkRead(_ context.Context, sender domain.Sender) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var updated int64
	for i := range r.messages {
		msg := &r.messages[i]
		if msg.Sender != sender || (msg.IsRead != nil && *msg.IsRead) {
			continue
		}
		read := true
		msg.IsRead = &read
		updated++
	}
	return updated, nil
}

func cloneMessages(src []domain.SupportMessage) []domain.SupportMessage {
	out := make([]domain.SupportMessage, 0, len(src))
	for _, msg := range src {
		out = append(out, cloneMessage(msg))
	}
	return out
}

func cloneMessage(msg domain.SupportMessage) domain.SupportMessage {
	if msg.IsRead != nil {
		read := *msg.IsRead
		msg.IsRead = &read
	}
	return msg
}
