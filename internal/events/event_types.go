package events

import (
	"encoding/json"
	"time"

	"github.com/spec-kit/profile-support/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSupportMessageAdded EventType = "support_message_added"
	EventSupportMessagesRead EventType = "support_messages_read"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// SupportMessageAddedPayload payload.
type SupportMessageAddedPayload struct {
	MessageID string        `json:"message_id"`
	Sender    domain.Sender `json:"sender"`
	Text      string        `json:"text"`
}

// SupportMessagesReadPayload payload.
type SupportMessagesReadPayload struct {
	Sender  domain.Sender `json:"sender"`
	Updated int64         `json:"updated"`
}

// DecodePayload returns the payload as T. Events that crossed a broker carry
// a generic JSON value, which is re-decoded.
func DecodePayload[T any](event Event) (T, error) {
	var out T
	if typed, ok := event.Payload.(T); ok {
		return typed, nil
	}
	if typed, ok := event.Payload.(*T); ok && typed != nil {
		return *typed, nil
	}
	raw, err := json.Marshal(event.Payload)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(raw, &out)
	return out, err
}
