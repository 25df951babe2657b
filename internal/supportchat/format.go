package supportchat

import (
	"time"

	"github.com/spec-kit/profile-support/internal/domain"
)

// FormatTimestamp renders t as 24-hour hour:minute in loc.
func FormatTimestamp(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("15:04")
}

// BubbleClass maps a sender to its bubble style.
func BubbleClass(sender domain.Sender) string {
	switch sender {
	case domain.SenderUser:
		return "bubble-user"
	case domain.SenderAdmin:
		return "bubble-admin"
	default:
		return "bubble-support"
	}
}

// IsOwn reports whether the message is drawn on the user's side.
func IsOwn(sender domain.Sender) bool {
	return sender == domain.SenderUser
}
