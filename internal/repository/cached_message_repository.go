package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/profile-support/internal/domain"
)

const messagesCacheKey = "support:messages"

type cachedMessageRepository struct {
	next   SupportMessageRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

type cachedMessage struct {
	ID        string        `json:"id"`
	Text      string        `json:"text"`
	Sender    domain.Sender `json:"sender"`
	Timestamp time.Time     `json:"timestamp"`
	IsRead    *bool         `json:"is_read,omitempty"`
}

// NewCachedMessageRepository caches the full support log in Redis.
// Every poll of every mounted chat reads the full list, so List is served from
// the cache and any write drops it. Redis failures fall through to next.
func NewCachedMessageRepository(next SupportMessageRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) SupportMessageRepository {
	if client == nil || ttl <= 0 {
		return next
	}
	return &cachedMessageRepository{next: next, client: client, ttl: ttl, logger: logger}
}

func (r *cachedMessageRepository) Create(ctx context.Context, msg *domain.SupportMessage) error {
	if err := r.next.Create(ctx, msg); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *cachedMessageRepository) List(ctx context.Context) ([]domain.SupportMessage, error) {
	raw, err := r.client.Get(ctx, messagesCacheKey).Bytes()
	switch {
	case err == nil:
		var cached []cachedMessage
		if err := json.Unmarshal(raw, &cached); err == nil {
			return fromCache(cached), nil
		}
		r.logger.Warn("discarding corrupt message cache")
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("message cache read failed", zap.Error(err))
	}

	messages, err := r.next.List(ctx)
	if err != nil {
		return nil, err
	}
	r.store(ctx, messages)
	return messages, nil
}

func (r *cachedMessageRepository) ListRecent(ctx context.Context, limit int) ([]domain.SupportMessage, error) {
	return r.next.ListRecent(ctx, limit)
}

func (r *cachedMessageRepository) MarkRead(ctx context.Context, sender domain.Sender) (int64, error) {
	updated, err := r.next.MarkRead(ctx, sender)
	if err != nil {
		return 0, err
	}
	if updated > 0 {
		r.invalidate(ctx)
	}
	return updated, nil
}

func (r *cachedMessageRepository) store(ctx context.Context, messages []domain.SupportMessage) {
	payload, err := json.Marshal(toCache(messages))
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, messagesCacheKey, payload, r.ttl).Err(); err != nil {
		r.logger.Warn("message cache write failed", zap.Error(err))
	}
}

func (r *cachedMessageRepository) invalidate(ctx context.Context) {
	if err := r.client.Del(ctx, messagesCacheKey).Err(); err != nil {
		r.logger.Warn("message cache invalidation failed", zap.Error(err))
	}
}

func toCache(messages []domain.SupportMessage) []cachedMessage {
	out := make([]cachedMessage, 0, len(messages))
	for _, msg := range messages {
		out = append(out, cachedMessage{
			ID:        msg.ID,
			Text:      msg.Text,
			Sender:    msg.Sender,
			Timestamp: msg.Timestamp,
			IsRead:    msg.IsRead,
		})
	}
	return out
}

func fromCache(cached []cachedMessage) []domain.SupportMessage {
	out := make([]domain.SupportMessage, 0, len(cached))
	for _, msg := range cached {
		out = append(out, domain.SupportMessage{
			ID:        msg.ID,
			Text:      msg.Text,
			Sender:    msg.Sender,
			Timestamp: msg.Timestamp,
			IsRead:    msg.IsRead,
		})
	}
	return out
}
