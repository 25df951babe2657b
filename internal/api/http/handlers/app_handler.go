package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/profile-support/internal/auth"
	"github.com/spec-kit/profile-support/internal/domain"
	"github.com/spec-kit/profile-support/internal/profile"
	"github.com/spec-kit/profile-support/internal/shell"
	"github.com/spec-kit/profile-support/internal/supportchat"
	"github.com/spec-kit/profile-support/internal/toast"
	apperrors "github.com/spec-kit/profile-support/pkg/util/errorutil"
)

const (
	layout         = "layouts/main"
	revisionHeader = "X-Chat-Revision"
)

type navEntry struct {
	Name   domain.View
	Label  string
	Active bool
}

type messageView struct {
	ID    string
	Text  string
	Class string
	Own   bool
	Time  string
}

type chatView struct {
	Messages []messageView
	Input    string
	Sending  bool
	Revision uint64
}

type limits struct {
	Nickname    int
	Description int
	Message     int
}

// AppHandler renders the session's shell and applies form posts to it.
type AppHandler struct {
	location     *time.Location
	pollInterval time.Duration
	logger       *zap.Logger
}

// NewAppHandler constructs handler. loc is used for message times.
func NewAppHandler(loc *time.Location, pollInterval time.Duration, logger *zap.Logger) *AppHandler {
	if loc == nil {
		loc = time.Local
	}
	if pollInterval <= 0 {
		pollInterval = supportchat.DefaultPollInterval
	}
	return &AppHandler{location: loc, pollInterval: pollInterval, logger: logger}
}

// Home renders the active view.
func (h *AppHandler) Home(c *fiber.Ctx) error {
	index, err := sessionIndex(c)
	if err != nil {
		return err
	}

	view := index.View()
	data := fiber.Map{
		"Title":  "Profile",
		"View":   view,
		"Nav":    navigation(view),
		"Toasts": index.Toasts().Drain(),
		"Limits": limits{
			Nickname:    domain.MaxNicknameLength,
			Description: domain.MaxDescriptionLength,
			Message:     supportchat.MaxInputLength,
		},
	}

	switch view {
	case domain.ViewEdit:
		editor, ok := index.Editor()
		if !ok {
			return apperrors.NewInternalError(errors.New("edit view without editor"))
		}
		values := editor.Values()
		data["Title"] = "Edit profile"
		data["Form"] = values
		data["Avatar"] = profile.NewCard(values, "").AvatarSrc
		data["Counter"] = editor.DescriptionCounter()
	case domain.ViewSupport:
		data["Title"] = "Support"
		data["Chat"] = h.chatView(index.Chat())
		data["PollMillis"] = h.pollInterval.Milliseconds()
	default:
		data["Card"] = index.Card()
	}

	return c.Render(string(view), data, layout)
}

// Navigate switches the active view.
func (h *AppHandler) Navigate(c *fiber.Ctx) error {
	index, err := sessionIndex(c)
	if err != nil {
		return err
	}
	if err := index.NavigateTo(c.Params("name")); err != nil {
		return err
	}
	return redirectHome(c)
}

// SaveProfile commits the edit form.
func (h *AppHandler) SaveProfile(c *fiber.Ctx) error {
	index, err := sessionIndex(c)
	if err != nil {
		return err
	}
	editor, ok := index.Editor()
	if !ok {
		return redirectHome(c)
	}
	applyForm(c, editor)
	// Save reports its outcome as a toast.
	_ = editor.Save()
	return redirectHome(c)
}

// UploadAvatar replaces the form's avatar, keeping the typed fields.
func (h *AppHandler) UploadAvatar(c *fiber.Ctx) error {
	index, err := sessionIndex(c)
	if err != nil {
		return err
	}
	editor, ok := index.Editor()
	if !ok {
		return redirectHome(c)
	}
	applyForm(c, editor)

	header, err := c.FormFile("avatar")
	if err != nil || header.Size == 0 {
		return redirectHome(c)
	}
	file, err := header.Open()
	if err != nil {
		index.Toasts().Notify(toast.Error("Could not read the file"))
		return redirectHome(c)
	}

	done, err := editor.UploadAvatar(header.Size, file)
	if err != nil {
		return redirectHome(c)
	}
	select {
	case err := <-done:
		if err != nil {
			h.logger.Debug("avatar rejected", zap.Error(err))
		}
	case <-c.UserContext().Done():
		return c.UserContext().Err()
	}
	return redirectHome(c)
}

// SendMessage posts the chat input.
func (h *AppHandler) SendMessage(c *fiber.Ctx) error {
	index, err := sessionIndex(c)
	if err != nil {
		return err
	}
	if index.View() != domain.ViewSupport {
		return redirectHome(c)
	}
	chat := index.Chat()
	chat.SetInput(c.FormValue("text"))
	if err := chat.Send(c.UserContext()); err != nil {
		h.logger.Debug("support message not sent", zap.Error(err))
	}
	return redirectHome(c)
}

// SupportLog renders only the message list; the page refreshes it when the
// revision header changes.
func (h *AppHandler) SupportLog(c *fiber.Ctx) error {
	index, err := sessionIndex(c)
	if err != nil {
		return err
	}
	chat := h.chatView(index.Chat())
	c.Set(revisionHeader, strconv.FormatUint(chat.Revision, 10))
	return c.Render("partials/messages", fiber.Map{"Chat": chat})
}

func (h *AppHandler) chatView(chat supportchat.Component) chatView {
	state := chat.State()
	view := chatView{
		Messages: make([]messageView, 0, len(state.Messages)),
		Input:    state.Input,
		Sending:  state.Sending,
		Revision: state.Revision,
	}
	for _, msg := range state.Messages {
		view.Messages = append(view.Messages, messageView{
			ID:    msg.ID,
			Text:  msg.Text,
			Class: supportchat.BubbleClass(msg.Sender),
			Own:   supportchat.IsOwn(msg.Sender),
			Time:  supportchat.FormatTimestamp(msg.Timestamp, h.location),
		})
	}
	return view
}

func applyForm(c *fiber.Ctx, editor *profile.Editor) {
	editor.SetNickname(c.FormValue("nickname"))
	editor.SetDescription(c.FormValue("description"))
}

func navigation(active domain.View) []navEntry {
	return []navEntry{
		{Name: domain.ViewProfile, Label: "Profile", Active: active == domain.ViewProfile},
		{Name: domain.ViewEdit, Label: "Edit", Active: active == domain.ViewEdit},
		{Name: domain.ViewSupport, Label: "Support", Active: active == domain.ViewSupport},
	}
}

func sessionIndex(c *fiber.Ctx) (*shell.Index, error) {
	index, ok := auth.IndexFromContext(c)
	if !ok {
		return nil, apperrors.NewInternalError(errors.New("no session attached"))
	}
	return index, nil
}

func redirectHome(c *fiber.Ctx) error {
	return c.Redirect("/", fiber.StatusSeeOther)
}
