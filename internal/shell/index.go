// Package shell owns the per-session application state: which view is shown,
// the profile record, and the components mounted for the current view.
package shell

import (
	"context"
	"sync"

	"github.com/spec-kit/profile-support/internal/domain"
	"github.com/spec-kit/profile-support/internal/profile"
	"github.com/spec-kit/profile-support/internal/supportchat"
	"github.com/spec-kit/profile-support/internal/toast"
	apperrors "github.com/spec-kit/profile-support/pkg/util/errorutil"
)

// Options configures an Index.
type Options struct {
	// Context bounds the lifetime of mounted components.
	Context context.Context
	Initial domain.Profile
	ShopURL string
	Chat    supportchat.Component
	Toasts  *toast.Queue
}

// Index is the application shell of one session.
type Index struct {
	ctx     context.Context
	shopURL string
	chat    supportchat.Component
	toasts  *toast.Queue

	// lifecycle serializes view switches, including chat mount and unmount.
	lifecycle sync.Mutex

	mu      sync.Mutex
	view    domain.View
	profile domain.Profile
	editor  *profile.Editor
	saves   int
}

// NewIndex starts a shell on the profile view.
func NewIndex(opts Options) *Index {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Toasts == nil {
		opts.Toasts = toast.NewQueue()
	}
	return &Index{
		ctx:     opts.Context,
		shopURL: opts.ShopURL,
		chat:    opts.Chat,
		toasts:  opts.Toasts,
		view:    domain.ViewProfile,
		profile: opts.Initial,
	}
}

// View returns the active view.
func (i *Index) View() domain.View {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.view
}

// Profile returns the committed profile record.
func (i *Index) Profile() domain.Profile {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.profile
}

// Saves counts committed profile edits.
func (i *Index) Saves() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.saves
}

// Card renders the committed profile.
func (i *Index) Card() profile.Card {
	return profile.NewCard(i.Profile(), i.shopURL)
}

// Editor returns the form of the edit view.
func (i *Index) Editor() (*profile.Editor, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.view != domain.ViewEdit || i.editor == nil {
		return nil, false
	}
	return i.editor, true
}

// Chat returns the support chat component.
func (i *Index) Chat() supportchat.Component {
	return i.chat
}

// Toasts returns the session's notification queue.
func (i *Index) Toasts() *toast.Queue {
	return i.toasts
}

// NavigateTo switches to the view called name.
func (i *Index) NavigateTo(name string) error {
	view, ok := domain.ParseView(name)
	if !ok {
		return apperrors.NewValidationError("unknown view", map[string]any{"view": name})
	}
	i.Navigate(view)
	return nil
}

// Navigate switches views. Entering edit opens a fresh form on the current
// profile; entering support mounts the chat and leaving it unmounts it.
func (i *Index) Navigate(view domain.View) {
	i.lifecycle.Lock()
	defer i.lifecycle.Unlock()
	i.switchTo(view)
}

// switchTo requires lifecycle. The chat is mounted and unmounted outside mu:
// Unmount waits for an in-flight fetch, and readers of the session state
// must not wait with it.
func (i *Index) switchTo(view domain.View) {
	i.mu.Lock()
	prev := i.view
	if prev == view {
		i.mu.Unlock()
		return
	}
	i.view = view
	i.editor = nil
	if view == domain.ViewEdit {
		i.editor = profile.NewEditor(i.profile, i.commit, i.toasts)
	}
	i.mu.Unlock()

	if i.chat == nil {
		return
	}
	if prev == domain.ViewSupport {
		i.chat.Unmount()
	}
	if view == domain.ViewSupport {
		i.chat.Mount(i.ctx)
	}
}

// commit is the editor's save callback.
func (i *Index) commit(p domain.Profile) {
	i.lifecycle.Lock()
	defer i.lifecycle.Unlock()

	i.mu.Lock()
	i.profile = p
	i.saves++
	i.mu.Unlock()

	i.switchTo(domain.ViewProfile)
}

// Close unmounts whatever is mounted.
func (i *Index) Close() {
	i.lifecycle.Lock()
	defer i.lifecycle.Unlock()

	if i.View() == domain.ViewSupport && i.chat != nil {
		i.chat.Unmount()
	}
}
