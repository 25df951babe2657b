// Package supportchat implements the support chat component: an ordered
// message log kept in sync with a remote support-messages resource.
package supportchat

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/profile-support/internal/domain"
	"github.com/spec-kit/profile-support/internal/observability"
	"github.com/spec-kit/profile-support/internal/toast"
)

// MaxInputLength caps the pending input, in runes.
const MaxInputLength = 1000

// DefaultPollInterval is the period between two fetches of a mounted chat.
const DefaultPollInterval = 5 * time.Second

// Remote is the authoritative store of the support log.
type Remote interface {
	Fetch(ctx context.Context) ([]domain.SupportMessage, error)
	Send(ctx context.Context, text string) error
}

// Component is what the shell needs from a chat implementation.
type Component interface {
	Mount(ctx context.Context)
	Unmount()
	SetInput(text string)
	Send(ctx context.Context) error
	State() State
}

// State is a snapshot of a chat component.
type State struct {
	Messages []domain.SupportMessage
	Input    string
	Sending  bool
	// Revision grows every time the log changes.
	Revision uint64
}

// Options configures a Chat.
type Options struct {
	Remote   Remote
	Notifier toast.Notifier
	Logger   *zap.Logger
	Metrics  *observability.Metrics
	Interval time.Duration
	// OnChange runs after every log replacement, outside the chat's lock.
	OnChange func(State)
}

// Chat is the networked support chat. The remote list always wins: a fetch
// replaces the whole log, so a message only exists locally until the next
// fetch returns.
type Chat struct {
	remote   Remote
	notifier toast.Notifier
	logger   *zap.Logger
	metrics  *observability.Metrics
	interval time.Duration
	onChange func(State)

	mu        sync.Mutex
	messages  []domain.SupportMessage
	input     string
	sending   bool
	revision  uint64
	fetchSeq  uint64
	appliedAt uint64

	cancel context.CancelFunc
	done   chan struct{}
}

// NewChat builds an unmounted chat.
func NewChat(opts Options) *Chat {
	if opts.Notifier == nil {
		opts.Notifier = toast.Discard
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	return &Chat{
		remote:   opts.Remote,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		interval: opts.Interval,
		onChange: opts.OnChange,
		messages: []domain.SupportMessage{},
	}
}

// Mount fetches the log and keeps polling until Unmount or ctx ends.
// Mounting a mounted chat does nothing.
func (c *Chat) Mount(ctx context.Context) {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go c.poll(loopCtx, done)
}

// Unmount stops the poll timer and waits for the poll loop to return.
// A fetch already on the wire is allowed to finish.
func (c *Chat) Unmount() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Mounted reports whether the poll loop is running.
func (c *Chat) Mounted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

func (c *Chat) poll(ctx context.Context, done chan struct{}) {
	defer close(done)

	// Requests outlive the loop's cancellation.
	reqCtx := context.WithoutCancel(ctx)

	_ = c.Fetch(reqCtx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.Fetch(reqCtx)
		}
	}
}

// SetInput replaces the pending input, keeping at most MaxInputLength runes.
func (c *Chat) SetInput(text string) {
	if utf8.RuneCountInString(text) > MaxInputLength {
		text = string([]rune(text)[:MaxInputLength])
	}
	c.mu.Lock()
	c.input = text
	c.mu.Unlock()
}

// Send posts the pending input. It does nothing when the input is blank or
// another send is in flight. The input is cleared before the request and
// restored if it fails; on success the log is re-fetched before the chat
// accepts the next send.
func (c *Chat) Send(ctx context.Context) error {
	c.mu.Lock()
	text := c.input
	if strings.TrimSpace(text) == "" || c.sending {
		c.mu.Unlock()
		return nil
	}
	c.input = ""
	c.sending = true
	c.mu.Unlock()

	err := c.remote.Send(ctx, text)
	c.metrics.RecordChatSend(err)
	if err != nil {
		c.mu.Lock()
		c.input = text
		c.sending = false
		c.mu.Unlock()

		c.logger.Warn("support message send failed", zap.Error(err))
		c.notifier.Notify(toast.Error("Failed to send message"))
		return err
	}

	_ = c.Fetch(ctx)

	c.mu.Lock()
	c.sending = false
	c.mu.Unlock()
	return nil
}

// Fetch replaces the log with the remote list. Failures are logged only.
func (c *Chat) Fetch(ctx context.Context) error {
	c.mu.Lock()
	c.fetchSeq++
	seq := c.fetchSeq
	c.mu.Unlock()

	messages, err := c.remote.Fetch(ctx)
	c.metrics.RecordChatFetch(err)
	if err != nil {
		c.logger.Warn("support log fetch failed", zap.Error(err))
		return err
	}
	if messages == nil {
		messages = []domain.SupportMessage{}
	}

	c.mu.Lock()
	// A slower, older fetch must not overwrite a newer result.
	if seq < c.appliedAt {
		c.mu.Unlock()
		return nil
	}
	c.appliedAt = seq
	c.messages = messages
	c.revision++
	state := c.stateLocked()
	c.mu.Unlock()

	if c.onChange != nil {
		c.onChange(state)
	}
	return nil
}

// State returns a snapshot.
func (c *Chat) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Chat) stateLocked() State {
	messages := make([]domain.SupportMessage, len(c.messages))
	copy(messages, c.messages)
	return State{
		Messages: messages,
		Input:    c.input,
		Sending:  c.sending,
		Revision: c.revision,
	}
}
