package handlers

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/profile-support/internal/auth"
	"github.com/spec-kit/profile-support/internal/repository"
	"github.com/spec-kit/profile-support/internal/service"
	apperrors "github.com/spec-kit/profile-support/pkg/util/errorutil"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []string
}

func (r *recordingSender) SendMessage(_ context.Context, _, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, text)
	return nil
}

func newWebhookApp(t *testing.T, secret string) (*fiber.App, *service.SupportService, *recordingSender) {
	t.Helper()
	support := service.NewSupportService(service.SupportDependencies{
		MessageRepo: repository.NewMemoryMessageRepository(),
		AdminKeys:   auth.NewAdminKeyVerifier(""),
	})
	sender := &recordingSender{}
	bot := service.NewTelegramBotService(support, sender, "42", time.UTC, zap.NewNop())

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	app.Post("/webhook", NewTelegramHandler(bot, secret, zap.NewNop()).Webhook)
	return app, support, sender
}

func postUpdate(t *testing.T, app *fiber.App, body, secret string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	if secret != "" {
		req.Header.Set(telegramSecretHeader, secret)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("webhook: %v", err)
	}
	return resp.StatusCode
}

func TestWebhookStoresAdminReply(t *testing.T) {
	app, support, sender := newWebhookApp(t, "")

	status := postUpdate(t, app, `{"update_id":1,"message":{"message_id":7,"chat":{"id":42},"text":"Your order shipped"}}`, "")
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}

	messages, err := support.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(messages) != 1 || messages[0].Text != "Your order shipped" || messages[0].Sender != "admin" {
		t.Fatalf("unexpected log: %+v", messages)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected a confirmation, got %v", sender.sent)
	}
}

func TestWebhookAlwaysAcknowledges(t *testing.T) {
	app, support, _ := newWebhookApp(t, "")

	for _, body := range []string{
		`{not json`,
		`{"update_id":2}`,
		`{"update_id":3,"message":{"chat":{"id":99},"text":"spam"}}`,
	} {
		if status := postUpdate(t, app, body, ""); status != fiber.StatusOK {
			t.Errorf("body %s: expected 200, got %d", body, status)
		}
	}

	messages, _ := support.List(context.Background())
	if len(messages) != 0 {
		t.Errorf("nothing should be stored, got %+v", messages)
	}
}

func TestWebhookSecret(t *testing.T) {
	app, _, _ := newWebhookApp(t, "hook-secret")
	body := `{"update_id":1,"message":{"chat":{"id":42},"text":"/start"}}`

	if status := postUpdate(t, app, body, "wrong"); status != fiber.StatusUnauthorized {
		t.Errorf("expected 401 for a wrong secret, got %d", status)
	}
	if status := postUpdate(t, app, body, "hook-secret"); status != fiber.StatusOK {
		t.Errorf("expected 200, got %d", status)
	}
}
