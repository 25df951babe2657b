package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/profile-support/internal/api/dto"
	"github.com/spec-kit/profile-support/internal/service"
	apperrors "github.com/spec-kit/profile-support/pkg/util/errorutil"
)

const adminKeyHeader = "X-Admin-Key"

// SupportHandler serves the support-messages resource.
type SupportHandler struct {
	support *service.SupportService
}

// NewSupportHandler constructs handler.
func NewSupportHandler(support *service.SupportService) *SupportHandler {
	return &SupportHandler{support: support}
}

// List returns the whole log in chronological order.
func (h *SupportHandler) List(c *fiber.Ctx) error {
	messages, err := h.support.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.SupportLogFromDomain(messages))
}

// Create appends a message. The sender is user unless a valid admin key is presented.
func (h *SupportHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateSupportMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	msg, err := h.support.Post(c.UserContext(), req.Text, c.Get(adminKeyHeader))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SupportMessageFromDomain(*msg))
}
