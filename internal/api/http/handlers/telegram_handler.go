package handlers

import (
	"crypto/subtle"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/profile-support/internal/api/dto"
	"github.com/spec-kit/profile-support/internal/service"
	apperrors "github.com/spec-kit/profile-support/pkg/util/errorutil"
)

const telegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// TelegramHandler receives Bot API webhook updates.
type TelegramHandler struct {
	bot    *service.TelegramBotService
	secret string
	logger *zap.Logger
}

// NewTelegramHandler constructs handler. An empty secret disables the header check.
func NewTelegramHandler(bot *service.TelegramBotService, secret string, logger *zap.Logger) *TelegramHandler {
	return &TelegramHandler{bot: bot, secret: secret, logger: logger}
}

// Webhook acknowledges every update it accepts, even when handling it fails,
// so Telegram does not redeliver it.
func (h *TelegramHandler) Webhook(c *fiber.Ctx) error {
	if h.secret != "" && subtle.ConstantTimeCompare([]byte(c.Get(telegramSecretHeader)), []byte(h.secret)) != 1 {
		return apperrors.NewUnauthorized("invalid webhook secret")
	}

	var update dto.TelegramUpdate
	if err := c.BodyParser(&update); err != nil {
		h.logger.Warn("ignoring malformed telegram update", zap.Error(err))
		return c.JSON(fiber.Map{"status": "ok"})
	}
	if update.Message == nil {
		return c.JSON(fiber.Map{"status": "ok"})
	}

	msg := service.BotMessage{
		ChatID: strconv.FormatInt(update.Message.Chat.ID, 10),
		Text:   update.Message.Text,
	}
	if err := h.bot.Handle(c.UserContext(), msg); err != nil {
		h.logger.Error("telegram update failed", zap.Int64("update_id", update.UpdateID), zap.Error(err))
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
