package dto

import (
	"time"

	"github.com/spec-kit/profile-support/internal/domain"
)

// CreateSupportMessageRequest payload.
type CreateSupportMessageRequest struct {
	Text string `json:"text"`
}

// SupportMessageResponse is one entry of the support log on the wire.
type SupportMessageResponse struct {
	ID        string        `json:"id"`
	Text      string        `json:"text"`
	Sender    domain.Sender `json:"sender"`
	Timestamp time.Time     `json:"timestamp"`
	IsRead    *bool         `json:"isRead,omitempty"`
}

// SupportLogResponse is the body of GET /api/support/messages.
type SupportLogResponse struct {
	Messages []SupportMessageResponse `json:"messages"`
}

// SupportMessageFromDomain converts a stored message.
func SupportMessageFromDomain(msg domain.SupportMessage) SupportMessageResponse {
	return SupportMessageResponse{
		ID:        msg.ID,
		Text:      msg.Text,
		Sender:    msg.Sender,
		Timestamp: msg.Timestamp,
		IsRead:    msg.IsRead,
	}
}

// SupportLogFromDomain converts an ordered log, keeping its order.
func SupportLogFromDomain(messages []domain.SupportMessage) SupportLogResponse {
	items := make([]SupportMessageResponse, 0, len(messages))
	for _, msg := range messages {
		items = append(items, SupportMessageFromDomain(msg))
	}
	return SupportLogResponse{Messages: items}
}
