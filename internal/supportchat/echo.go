package supportchat

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/spec-kit/profile-support/internal/domain"
)

const (
	echoGreeting = "Hello! How can I help you?"
	echoReply    = "Thanks for your message! An administrator will reply shortly."
	// DefaultReplyDelay is how long the local chat waits before its scripted reply.
	DefaultReplyDelay = time.Second
)

// Echo is a local-only chat for offline development. It echoes user messages
// into its own log and answers each one with a scripted support reply.
type Echo struct {
	replyDelay time.Duration
	now        func() time.Time
	onChange   func(State)

	mu       sync.Mutex
	messages []domain.SupportMessage
	input    string
	revision uint64
	lastID   int64
	timers   []*time.Timer
}

// NewEcho builds a local chat seeded with the support greeting.
func NewEcho(replyDelay time.Duration, onChange func(State)) *Echo {
	if replyDelay <= 0 {
		replyDelay = DefaultReplyDelay
	}
	e := &Echo{replyDelay: replyDelay, now: time.Now, onChange: onChange}
	e.reset()
	return e
}

// Mount starts a fresh conversation.
func (e *Echo) Mount(context.Context) {
	e.mu.Lock()
	e.reset()
	e.mu.Unlock()
}

// Unmount cancels replies that have not fired yet.
func (e *Echo) Unmount() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, t := range e.timers {
		t.Stop()
	}
	e.timers = nil
}

// SetInput replaces the pending input.
func (e *Echo) SetInput(text string) {
	if utf8.RuneCountInString(text) > MaxInputLength {
		text = string([]rune(text)[:MaxInputLength])
	}
	e.mu.Lock()
	e.input = text
	e.mu.Unlock()
}

// Send appends the pending input as a user message and schedules the reply.
func (e *Echo) Send(context.Context) error {
	e.mu.Lock()
	if strings.TrimSpace(e.input) == "" {
		e.mu.Unlock()
		return nil
	}
	e.appendLocked(e.input, domain.SenderUser)
	e.input = ""
	state := e.stateLocked()

	var timer *time.Timer
	timer = time.AfterFunc(e.replyDelay, func() {
		e.mu.Lock()
		if !e.forgetTimerLocked(timer) {
			e.mu.Unlock()
			return
		}
		e.appendLocked(echoReply, domain.SenderSupport)
		reply := e.stateLocked()
		e.mu.Unlock()
		e.notify(reply)
	})
	e.timers = append(e.timers, timer)
	e.mu.Unlock()

	e.notify(state)
	return nil
}

// State returns a snapshot.
func (e *Echo) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

func (e *Echo) reset() {
	e.messages = nil
	e.input = ""
	e.appendLocked(echoGreeting, domain.SenderSupport)
}

// appendLocked adds a message with a time-derived ID that never repeats.
func (e *Echo) appendLocked(text string, sender domain.Sender) {
	now := e.now()
	id := now.UnixMilli()
	if id <= e.lastID {
		id = e.lastID + 1
	}
	e.lastID = id
	e.messages = append(e.messages, domain.SupportMessage{
		ID:        strconv.FormatInt(id, 10),
		Text:      text,
		Sender:    sender,
		Timestamp: now,
	})
	e.revision++
}

// forgetTimerLocked removes t and reports whether it was still pending.
func (e *Echo) forgetTimerLocked(t *time.Timer) bool {
	for i, pending := range e.timers {
		if pending == t {
			e.timers = append(e.timers[:i], e.timers[i+1:]...)
			return true
		}
	}
	return false
}

func (e *Echo) stateLocked() State {
	messages := make([]domain.SupportMessage, len(e.messages))
	copy(messages, e.messages)
	return State{Messages: messages, Input: e.input, Revision: e.revision}
}

func (e *Echo) notify(state State) {
	if e.onChange != nil {
		e.onChange(state)
	}
}
