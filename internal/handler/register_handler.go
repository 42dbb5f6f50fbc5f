package handler

import (
	"verifymc/internal/domain"
	"verifymc/internal/dto"
	"verifymc/internal/service"

	"github.com/gofiber/fiber/v2"
)

// RegisterHandler serves whitelist applications.
type RegisterHandler struct {
	registration *service.RegistrationService
	verification *service.VerificationService
}

// NewRegisterHandler creates a new RegisterHandler instance
func NewRegisterHandler(registration *service.RegistrationService, verification *service.VerificationService) *RegisterHandler {
	return &RegisterHandler{registration: registration, verification: verification}
}

// SendCode handles POST /api/send-code
func (h *RegisterHandler) SendCode(c *fiber.Ctx) error {
	var req dto.SendCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("invalid request body")
	}
	if err := h.verification.IssueCode(c.Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "sent"})
}

// Register handles POST /api/register
func (h *RegisterHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("invalid request body")
	}
	resp, err := h.registration.Register(c.Context(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// CheckWhitelist handles GET /api/check-whitelist, used by game-server
// proxies before letting a player join.
func (h *RegisterHandler) CheckWhitelist(c *fiber.Ctx) error {
	name := c.Query("name")
	if name == "" {
		return domain.NewInvalidInputError("name is required")
	}
	resp, err := h.registration.CheckWhitelist(name)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}
