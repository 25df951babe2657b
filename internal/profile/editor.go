package profile

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/spec-kit/profile-support/internal/domain"
	"github.com/spec-kit/profile-support/internal/toast"
)

var (
	ErrNicknameRequired = errors.New("nickname required")
	ErrAvatarTooLarge   = errors.New("avatar exceeds size limit")
	ErrAvatarNotImage   = errors.New("avatar is not an image")
)

// Editor holds the form state of a profile being edited.
type Editor struct {
	mu          sync.Mutex
	avatar      string
	nickname    string
	description string

	onSave   func(domain.Profile)
	notifier toast.Notifier
}

// NewEditor seeds the form with initial. onSave receives the edited record.
func NewEditor(initial domain.Profile, onSave func(domain.Profile), notifier toast.Notifier) *Editor {
	if notifier == nil {
		notifier = toast.Discard
	}
	return &Editor{
		avatar:      initial.Avatar,
		nickname:    truncate(initial.Nickname, domain.MaxNicknameLength),
		description: truncate(initial.Description, domain.MaxDescriptionLength),
		onSave:      onSave,
		notifier:    notifier,
	}
}

// SetNickname updates the nickname field, keeping at most 50 runes.
func (e *Editor) SetNickname(nickname string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nickname = truncate(nickname, domain.MaxNicknameLength)
}

// SetDescription updates the description field, keeping at most 500 runes.
func (e *Editor) SetDescription(description string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.description = truncate(description, domain.MaxDescriptionLength)
}

// Values returns the current form state.
func (e *Editor) Values() domain.Profile {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.Profile{Avatar: e.avatar, Nickname: e.nickname, Description: e.description}
}

// DescriptionCounter renders the "used/max" hint under the description.
func (e *Editor) DescriptionCounter() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fmt.Sprintf("%d/%d", utf8.RuneCountInString(e.description), domain.MaxDescriptionLength)
}

// UploadAvatar starts decoding body into a data URL. size is the size the
// client declared for the file. Oversized files are rejected immediately;
// otherwise the decode runs in the background and the returned channel
// yields its outcome once the avatar has been updated (or left alone).
// The editor takes ownership of body.
func (e *Editor) UploadAvatar(size int64, body io.ReadCloser) (<-chan error, error) {
	if size > domain.MaxAvatarBytes {
		_ = body.Close()
		e.notifier.Notify(toast.Error("File is too large. Maximum 5 MB"))
		return nil, ErrAvatarTooLarge
	}

	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- e.decodeAvatar(body)
	}()
	return done, nil
}

func (e *Editor) decodeAvatar(body io.ReadCloser) error {
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, domain.MaxAvatarBytes+1))
	if err != nil {
		e.notifier.Notify(toast.Error("Could not read the file"))
		return fmt.Errorf("read avatar: %w", err)
	}
	if len(data) > domain.MaxAvatarBytes {
		e.notifier.Notify(toast.Error("File is too large. Maximum 5 MB"))
		return ErrAvatarTooLarge
	}

	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		e.notifier.Notify(toast.Error("Only image files can be used as an avatar"))
		return ErrAvatarNotImage
	}

	dataURL := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)

	e.mu.Lock()
	e.avatar = dataURL
	e.mu.Unlock()
	return nil
}

// Save validates the form and hands the record to the save callback.
func (e *Editor) Save() error {
	values := e.Values()
	if strings.TrimSpace(values.Nickname) == "" {
		e.notifier.Notify(toast.Error("Enter a nickname"))
		return ErrNicknameRequired
	}

	if e.onSave != nil {
		e.onSave(values)
	}
	e.notifier.Notify(toast.Success("Saved!", "Profile updated successfully"))
	return nil
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
