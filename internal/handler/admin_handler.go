package handler

import (
	"verifymc/internal/domain"
	"verifymc/internal/dto"
	"verifymc/internal/service"

	"github.com/gofiber/fiber/v2"
)

// AdminHandler serves the administrator review surface.
type AdminHandler struct {
	registration *service.RegistrationService
}

// NewAdminHandler creates a new AdminHandler instance
func NewAdminHandler(registration *service.RegistrationService) *AdminHandler {
	return &AdminHandler{registration: registration}
}

// ListUsers handles GET /api/admin/users?status=pending
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	status := c.Query("status", domain.UserStatusPending)
	users, err := h.registration.ListByStatus(status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"users": users})
}

// Review handles POST /api/admin/review
func (h *AdminHandler) Review(c *fiber.Ctx) error {
	var req dto.ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("invalid request body")
	}
	if req.UserID == "" {
		return domain.NewInvalidInputError("user_id is required")
	}
	if err := h.registration.Review(req.UserID, req.Approve); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
