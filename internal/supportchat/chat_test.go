package supportchat

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/profile-support/internal/domain"
	"github.com/spec-kit/profile-support/internal/toast"
)

// fakeRemote is an in-memory support endpoint.
type fakeRemote struct {
	mu         sync.Mutex
	messages   []domain.SupportMessage
	fetchCalls int
	sendCalls  int
	fetchErr   error
	sendErr    error
	sendGate   chan struct{}
	onFetch    func()
}

func (f *fakeRemote) Fetch(context.Context) ([]domain.SupportMessage, error) {
	f.mu.Lock()
	f.fetchCalls++
	hook := f.onFetch
	err := f.fetchErr
	out := append([]domain.SupportMessage(nil), f.messages...)
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (f *fakeRemote) Send(_ context.Context, text string) error {
	f.mu.Lock()
	f.sendCalls++
	gate := f.sendGate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.messages = append(f.messages, domain.SupportMessage{
		ID:     strconv.Itoa(len(f.messages) + 1),
		Text:   strings.TrimSpace(text),
		Sender: domain.SenderUser,
	})
	return nil
}

func (f *fakeRemote) calls() (fetches, sends int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls, f.sendCalls
}

type recordingNotifier struct {
	mu     sync.Mutex
	toasts []toast.Toast
}

func (r *recordingNotifier) Notify(t toast.Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, t)
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.toasts)
}

func greeting() []domain.SupportMessage {
	return []domain.SupportMessage{{ID: "1", Text: "Hello", Sender: domain.SenderSupport}}
}

func TestSendBlankInputIsNoop(t *testing.T) {
	remote := &fakeRemote{messages: greeting()}
	chat := NewChat(Options{Remote: remote})
	if err := chat.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	before := chat.State()

	for _, input := range []string{"", "   ", "\n\t"} {
		chat.SetInput(input)
		if err := chat.Send(context.Background()); err != nil {
			t.Fatalf("Send(%q): %v", input, err)
		}
	}

	fetches, sends := remote.calls()
	if sends != 0 {
		t.Errorf("expected no network send, got %d", sends)
	}
	if fetches != 1 {
		t.Errorf("expected only the initial fetch, got %d", fetches)
	}
	after := chat.State()
	if after.Revision != before.Revision || len(after.Messages) != 1 {
		t.Errorf("log changed: before=%+v after=%+v", before, after)
	}
}

func TestSendThenFetchMirrorsServer(t *testing.T) {
	remote := &fakeRemote{messages: greeting()}
	chat := NewChat(Options{Remote: remote})
	_ = chat.Fetch(context.Background())

	chat.SetInput("Hi")
	if err := chat.Send(context.Background()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	state := chat.State()
	want := []domain.SupportMessage{
		{ID: "1", Text: "Hello", Sender: domain.SenderSupport},
		{ID: "2", Text: "Hi", Sender: domain.SenderUser},
	}
	if len(state.Messages) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(state.Messages))
	}
	seen := map[string]bool{}
	for i := range want {
		got := state.Messages[i]
		if got.ID != want[i].ID || got.Text != want[i].Text || got.Sender != want[i].Sender {
			t.Errorf("index %d: got %+v want %+v", i, got, want[i])
		}
		if seen[got.ID] {
			t.Errorf("duplicate id %q", got.ID)
		}
		seen[got.ID] = true
	}
	if state.Input != "" || state.Sending {
		t.Errorf("expected cleared input and idle chat, got %+v", state)
	}
}

func TestSendFetchesBeforeClearingInFlight(t *testing.T) {
	remote := &fakeRemote{messages: greeting()}
	chat := NewChat(Options{Remote: remote})

	var sendingDuringFetch []bool
	remote.onFetch = func() { sendingDuringFetch = append(sendingDuringFetch, chat.State().Sending) }

	chat.SetInput("Hi")
	if err := chat.Send(context.Background()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(sendingDuringFetch) != 1 || !sendingDuringFetch[0] {
		t.Fatalf("expected the reconciling fetch to run while sending, got %v", sendingDuringFetch)
	}
}

func TestFailedSendRestoresInput(t *testing.T) {
	remote := &fakeRemote{messages: greeting()}
	notifier := &recordingNotifier{}
	chat := NewChat(Options{Remote: remote, Notifier: notifier})
	_ = chat.Fetch(context.Background())
	before := chat.State()

	remote.sendErr = errors.New("502 bad gateway")
	chat.SetInput("Hi there")
	if err := chat.Send(context.Background()); err == nil {
		t.Fatal("expected send error")
	}

	state := chat.State()
	if state.Input != "Hi there" {
		t.Errorf("expected input restored, got %q", state.Input)
	}
	if state.Sending {
		t.Error("expected in-flight flag cleared")
	}
	if state.Revision != before.Revision || len(state.Messages) != len(before.Messages) {
		t.Errorf("log changed after failed send: %+v", state.Messages)
	}
	if notifier.count() != 1 || notifier.toasts[0].Variant != toast.VariantDestructive {
		t.Errorf("expected one destructive toast, got %+v", notifier.toasts)
	}
	if fetches, _ := remote.calls(); fetches != 1 {
		t.Errorf("failed send must not re-fetch, got %d fetches", fetches)
	}
}

func TestSendWhileInFlightIsNoop(t *testing.T) {
	gate := make(chan struct{})
	remote := &fakeRemote{sendGate: gate}
	chat := NewChat(Options{Remote: remote})

	chat.SetInput("first")
	errCh := make(chan error, 1)
	go func() { errCh <- chat.Send(context.Background()) }()

	deadline := time.Now().Add(time.Second)
	for !chat.State().Sending {
		if time.Now().After(deadline) {
			t.Fatal("first send never started")
		}
		time.Sleep(time.Millisecond)
	}
	if chat.State().Input != "" {
		t.Error("expected input cleared optimistically")
	}

	chat.SetInput("second")
	if err := chat.Send(context.Background()); err != nil {
		t.Fatalf("second Send: %v", err)
	}
	if _, sends := remote.calls(); sends != 1 {
		t.Errorf("expected a single network send, got %d", sends)
	}
	if chat.State().Input != "second" {
		t.Error("guarded send must keep the new input")
	}

	close(gate)
	if err := <-errCh; err != nil {
		t.Fatalf("first Send: %v", err)
	}
}

func TestFetchErrorKeepsLog(t *testing.T) {
	remote := &fakeRemote{messages: greeting()}
	notifier := &recordingNotifier{}
	chat := NewChat(Options{Remote: remote, Notifier: notifier})
	_ = chat.Fetch(context.Background())

	remote.fetchErr = errors.New("connection refused")
	if err := chat.Fetch(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}
	if got := chat.State().Messages; len(got) != 1 || got[0].ID != "1" {
		t.Errorf("log changed after failed fetch: %+v", got)
	}
	if notifier.count() != 0 {
		t.Error("fetch failures must not surface toasts")
	}
}

func TestFetchReplacesWholesale(t *testing.T) {
	remote := &fakeRemote{messages: greeting()}
	var changes []State
	chat := NewChat(Options{Remote: remote, OnChange: func(s State) { changes = append(changes, s) }})
	_ = chat.Fetch(context.Background())

	remote.mu.Lock()
	remote.messages = []domain.SupportMessage{{ID: "9", Text: "reset", Sender: domain.SenderAdmin}}
	remote.mu.Unlock()
	_ = chat.Fetch(context.Background())

	got := chat.State().Messages
	if len(got) != 1 || got[0].ID != "9" {
		t.Fatalf("expected log replaced by server list, got %+v", got)
	}
	if len(changes) != 2 || changes[1].Revision != 2 {
		t.Errorf("expected two change notifications, got %d", len(changes))
	}
}

func TestMountPollsUntilUnmount(t *testing.T) {
	remote := &fakeRemote{messages: greeting()}
	chat := NewChat(Options{Remote: remote, Interval: 10 * time.Millisecond})

	chat.Mount(context.Background())
	chat.Mount(context.Background())
	if !chat.Mounted() {
		t.Fatal("expected chat mounted")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if fetches, _ := remote.calls(); fetches >= 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("poll loop did not fetch repeatedly")
		}
		time.Sleep(5 * time.Millisecond)
	}

	chat.Unmount()
	if chat.Mounted() {
		t.Fatal("expected chat unmounted")
	}
	stopped, _ := remote.calls()
	time.Sleep(50 * time.Millisecond)
	if after, _ := remote.calls(); after != stopped {
		t.Errorf("fetches continued after unmount: %d -> %d", stopped, after)
	}
	if len(chat.State().Messages) != 1 {
		t.Error("expected the polled log to be kept")
	}

	chat.Unmount()
}

func TestSetInputTruncates(t *testing.T) {
	chat := NewChat(Options{Remote: &fakeRemote{}})
	chat.SetInput(strings.Repeat("ж", MaxInputLength+5))
	if n := len([]rune(chat.State().Input)); n != MaxInputLength {
		t.Errorf("expected %d runes, got %d", MaxInputLength, n)
	}
}

func TestSlowFetchDoesNotOverwriteNewerLog(t *testing.T) {
	remote := &fakeRemote{messages: greeting()}
	chat := NewChat(Options{Remote: remote})

	gate := make(chan struct{})
	started := make(chan struct{})
	var mu sync.Mutex
	calls := 0
	remote.onFetch = func() {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			close(started)
			<-gate
		}
	}

	slow := make(chan error, 1)
	go func() { slow <- chat.Fetch(context.Background()) }()
	<-started

	chat.SetInput("Hi")
	if err := chat.Send(context.Background()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if n := len(chat.State().Messages); n != 2 {
		t.Fatalf("expected the send's fetch to apply 2 messages, got %d", n)
	}
	revision := chat.State().Revision

	close(gate)
	if err := <-slow; err != nil {
		t.Fatalf("slow Fetch: %v", err)
	}

	state := chat.State()
	if len(state.Messages) != 2 || state.Messages[1].Text != "Hi" {
		t.Fatalf("older fetch overwrote the log: %+v", state.Messages)
	}
	if state.Revision != revision {
		t.Errorf("discarded fetch must not bump the revision: %d -> %d", revision, state.Revision)
	}
}
