package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/profile-support/internal/api/dto"
	"github.com/spec-kit/profile-support/internal/api/http/handlers"
	"github.com/spec-kit/profile-support/internal/auth"
	"github.com/spec-kit/profile-support/internal/domain"
	"github.com/spec-kit/profile-support/internal/events"
	"github.com/spec-kit/profile-support/internal/repository"
	"github.com/spec-kit/profile-support/internal/service"
	"github.com/spec-kit/profile-support/internal/shell"
	"github.com/spec-kit/profile-support/internal/supportchat"
	"github.com/spec-kit/profile-support/internal/toast"
	"github.com/spec-kit/profile-support/web"
)

const testAdminKey = "s3cret"

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	logger := zap.NewNop()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	support := service.NewSupportService(service.SupportDependencies{
		MessageRepo: repository.NewMemoryMessageRepository(),
		AdminKeys:   auth.NewAdminKeyVerifier(testAdminKey),
		Dispatcher:  events.NewInMemoryDispatcher(logger),
		Logger:      logger,
	})

	registry := shell.NewRegistry(ctx, func(ctx context.Context) *shell.Index {
		return shell.NewIndex(shell.Options{
			Context: ctx,
			Initial: domain.Profile{Nickname: "User", Description: "Welcome to my profile"},
			ShopURL: "http://shop.example",
			Chat:    supportchat.NewEcho(time.Hour, nil),
			Toasts:  toast.NewQueue(),
		})
	}, time.Hour, logger, nil)
	t.Cleanup(registry.Close)

	tokens := auth.NewTokenManager("test-secret", time.Hour)

	app := fiber.New(fiber.Config{Views: web.NewViewEngine(), BodyLimit: 16 * 1024 * 1024})
	RegisterMiddlewares(app, logger, nil, 0)
	RegisterRoutes(app, RouteConfig{
		Health:   handlers.NewHealthHandler("test", "dev", nil),
		Support:  handlers.NewSupportHandler(support),
		App:      handlers.NewAppHandler(time.UTC, time.Second, logger),
		Sessions: auth.NewSessionMiddleware(tokens, registry, "sid", false),
	})
	return app
}

// browser keeps the session cookie between requests.
type browser struct {
	t      *testing.T
	app    *fiber.App
	cookie string
}

func (b *browser) do(method, target, contentType string, body io.Reader) (int, string, map[string]string) {
	b.t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if b.cookie != "" {
		req.Header.Set("Cookie", "sid="+b.cookie)
	}
	resp, err := b.app.Test(req, -1)
	if err != nil {
		b.t.Fatalf("%s %s: %v", method, target, err)
	}
	defer resp.Body.Close()
	for _, c := range resp.Cookies() {
		if c.Name == "sid" {
			b.cookie = c.Value
		}
	}
	raw, _ := io.ReadAll(resp.Body)
	headers := map[string]string{
		"Location":        resp.Header.Get("Location"),
		"X-Chat-Revision": resp.Header.Get("X-Chat-Revision"),
	}
	return resp.StatusCode, string(raw), headers
}

func (b *browser) get(target string) string {
	b.t.Helper()
	status, body, _ := b.do(fiber.MethodGet, target, "", nil)
	if status != fiber.StatusOK {
		b.t.Fatalf("GET %s: status %d body %s", target, status, body)
	}
	return body
}

func (b *browser) postForm(target string, values url.Values) int {
	b.t.Helper()
	status, _, _ := b.do(fiber.MethodPost, target, fiber.MIMEApplicationForm, strings.NewReader(values.Encode()))
	return status
}

func TestSupportAPI(t *testing.T) {
	app := newTestApp(t)

	post := func(body, adminKey string) (int, dto.SupportMessageResponse) {
		req := httptest.NewRequest(fiber.MethodPost, "/api/support/messages", strings.NewReader(body))
		req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
		if adminKey != "" {
			req.Header.Set("X-Admin-Key", adminKey)
		}
		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		defer resp.Body.Close()
		var out dto.SupportMessageResponse
		_ = json.NewDecoder(resp.Body).Decode(&out)
		return resp.StatusCode, out
	}

	status, msg := post(`{"text":"  need help  "}`, "")
	if status != fiber.StatusCreated || msg.Sender != domain.SenderUser || msg.Text != "need help" {
		t.Fatalf("unexpected user post: %d %+v", status, msg)
	}

	status, msg = post(`{"text":"on it"}`, testAdminKey)
	if status != fiber.StatusCreated || msg.Sender != domain.SenderAdmin {
		t.Fatalf("unexpected admin post: %d %+v", status, msg)
	}

	status, msg = post(`{"text":"sneaky"}`, "wrong")
	if status != fiber.StatusCreated || msg.Sender != domain.SenderUser {
		t.Fatalf("wrong key must post as user: %d %+v", status, msg)
	}

	if status, _ := post(`{"text":"   "}`, ""); status != fiber.StatusBadRequest {
		t.Fatalf("blank text: expected 400, got %d", status)
	}
	if status, _ := post(`{not json`, ""); status != fiber.StatusBadRequest {
		t.Fatalf("bad json: expected 400, got %d", status)
	}

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/support/messages", nil), -1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var log dto.SupportLogResponse
	if err := json.NewDecoder(resp.Body).Decode(&log); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(log.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(log.Messages))
	}
	if log.Messages[0].Text != "need help" || log.Messages[2].Text != "sneaky" {
		t.Errorf("log out of order: %+v", log.Messages)
	}
}

func TestSupportAPIPreflight(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(fiber.MethodOptions, "/api/support/messages", nil)
	req.Header.Set("Origin", "http://elsewhere.example")
	req.Header.Set("Access-Control-Request-Method", fiber.MethodPost)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if resp.StatusCode != fiber.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected wildcard origin, got %q", got)
	}
}

func TestProfileEditFlow(t *testing.T) {
	b := &browser{t: t, app: newTestApp(t)}

	home := b.get("/")
	if b.cookie == "" {
		t.Fatal("expected a session cookie")
	}
	if !strings.Contains(home, "User") || !strings.Contains(home, "http://shop.example") {
		t.Fatalf("profile card not rendered: %s", home)
	}

	if status := b.postForm("/view/edit", nil); status != fiber.StatusSeeOther {
		t.Fatalf("navigate: expected 303, got %d", status)
	}
	if page := b.get("/"); !strings.Contains(page, `name="nickname"`) || !strings.Contains(page, "21/500") {
		t.Fatalf("edit form not rendered: %s", page)
	}

	b.postForm("/profile", url.Values{"nickname": {"  "}, "description": {"draft"}})
	page := b.get("/")
	if !strings.Contains(page, "Enter a nickname") {
		t.Errorf("expected nickname toast: %s", page)
	}
	if !strings.Contains(page, "draft") {
		t.Errorf("expected draft to survive a failed save: %s", page)
	}

	b.postForm("/profile", url.Values{"nickname": {"Neo"}, "description": {"Follow the white rabbit"}})
	page = b.get("/")
	if !strings.Contains(page, "Neo") || !strings.Contains(page, "Profile updated successfully") {
		t.Errorf("expected saved profile card: %s", page)
	}
	if strings.Contains(page, `name="nickname"`) {
		t.Error("expected to be back on the profile view")
	}
}

func TestUnknownViewIsRejected(t *testing.T) {
	b := &browser{t: t, app: newTestApp(t)}
	b.get("/")
	if status := b.postForm("/view/settings", nil); status != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
}

func uploadAvatar(t *testing.T, b *browser, data []byte) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	_ = w.WriteField("nickname", "Trinity")
	_ = w.WriteField("description", "")
	part, err := w.CreateFormFile("avatar", "avatar.png")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	_, _ = part.Write(data)
	_ = w.Close()

	status, _, _ := b.do(fiber.MethodPost, "/profile/avatar", w.FormDataContentType(), &body)
	if status != fiber.StatusSeeOther {
		t.Fatalf("upload: expected 303, got %d", status)
	}
}

func TestAvatarUpload(t *testing.T) {
	b := &browser{t: t, app: newTestApp(t)}
	b.get("/")
	b.postForm("/view/edit", nil)

	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
	uploadAvatar(t, b, png)

	page := b.get("/")
	if !strings.Contains(page, "data:image/png;base64,") {
		t.Errorf("expected avatar preview: %s", page)
	}
	if !strings.Contains(page, `value="Trinity"`) {
		t.Errorf("expected typed nickname to be kept: %s", page)
	}
}

func TestAvatarUploadTooLarge(t *testing.T) {
	b := &browser{t: t, app: newTestApp(t)}
	b.get("/")
	b.postForm("/view/edit", nil)

	uploadAvatar(t, b, make([]byte, domain.MaxAvatarBytes+1))

	page := b.get("/")
	if !strings.Contains(page, "File is too large. Maximum 5 MB") {
		t.Errorf("expected size toast: %s", page)
	}
	if strings.Contains(page, "data:image/") {
		t.Error("oversized avatar must not be applied")
	}
}

func TestSupportChatPage(t *testing.T) {
	b := &browser{t: t, app: newTestApp(t)}
	b.get("/")
	b.postForm("/view/support", nil)

	page := b.get("/")
	if !strings.Contains(page, "Hello! How can I help you?") {
		t.Fatalf("expected greeting: %s", page)
	}

	_, _, before := b.do(fiber.MethodGet, "/support/log", "", nil)

	if status := b.postForm("/support/messages", url.Values{"text": {"where is my order?"}}); status != fiber.StatusSeeOther {
		t.Fatalf("send: expected 303, got %d", status)
	}

	status, fragment, after := b.do(fiber.MethodGet, "/support/log", "", nil)
	if status != fiber.StatusOK {
		t.Fatalf("log: status %d", status)
	}
	if strings.Contains(fragment, "<html") {
		t.Error("log fragment must not include the layout")
	}
	if !strings.Contains(fragment, "where is my order?") || !strings.Contains(fragment, "bubble-user") {
		t.Errorf("expected sent message in fragment: %s", fragment)
	}
	if after["X-Chat-Revision"] == "" || after["X-Chat-Revision"] == before["X-Chat-Revision"] {
		t.Errorf("expected revision to change: %q -> %q", before["X-Chat-Revision"], after["X-Chat-Revision"])
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	app := newTestApp(t)
	alice := &browser{t: t, app: app}
	bob := &browser{t: t, app: app}

	alice.get("/")
	alice.postForm("/view/edit", nil)
	bob.get("/")

	if !strings.Contains(alice.get("/"), `name="nickname"`) {
		t.Error("alice should be on the edit view")
	}
	if strings.Contains(bob.get("/"), `name="nickname"`) {
		t.Error("bob should still be on the profile view")
	}
}

func TestHealthLive(t *testing.T) {
	app := newTestApp(t)
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/health/live", nil), -1)
	if err != nil {
		t.Fatalf("live: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
