package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spec-kit/profile-support/internal/domain"
)

func TestInMemoryDispatcherDeliversToAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher(nil)

	var calls []string
	d.Subscribe(EventSupportMessageAdded, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("first handler fails")
	})
	d.Subscribe(EventSupportMessageAdded, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventSupportMessagesRead, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventSupportMessageAdded}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Fatalf("unexpected handler calls: %v", calls)
	}
}

func TestDecodePayload(t *testing.T) {
	typed := Event{Payload: SupportMessageAddedPayload{MessageID: "7", Sender: domain.SenderUser, Text: "hi"}}
	got, err := DecodePayload[SupportMessageAddedPayload](typed)
	if err != nil || got.MessageID != "7" {
		t.Fatalf("typed payload: got %+v, %v", got, err)
	}

	// Shape of a payload after a JSON round trip through the broker.
	generic := Event{Timestamp: time.Now(), Payload: map[string]interface{}{
		"message_id": "8",
		"sender":     "admin",
		"text":       "hello",
	}}
	got, err = DecodePayload[SupportMessageAddedPayload](generic)
	if err != nil {
		t.Fatalf("generic payload: %v", err)
	}
	if got.MessageID != "8" || got.Sender != domain.SenderAdmin || got.Text != "hello" {
		t.Errorf("unexpected decode: %+v", got)
	}
}
