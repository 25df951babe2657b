package domain

import "time"

// Sender identifies who authored a support message.
type Sender string

const (
	SenderUser    Sender = "user"
	SenderSupport Sender = "support"
	SenderAdmin   Sender = "admin"
)

// Valid reports whether s is a known sender.
func (s Sender) Valid() bool {
	switch s {
	case SenderUser, SenderSupport, SenderAdmin:
		return true
	}
	return false
}

// SupportMessage is a single entry of the support log.
type SupportMessage struct {
	ID        string
	Text      string
	Sender    Sender
	Timestamp time.Time
	IsRead    *bool
}
