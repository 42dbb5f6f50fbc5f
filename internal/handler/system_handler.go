package handler

import (
	"verifymc/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SystemHandler serves liveness and public configuration.
type SystemHandler struct {
	questionnaire *service.QuestionnaireService
}

// NewSystemHandler creates a new SystemHandler instance
func NewSystemHandler(questionnaire *service.QuestionnaireService) *SystemHandler {
	return &SystemHandler{questionnaire: questionnaire}
}

// Ping handles GET /api/ping
func (h *SystemHandler) Ping(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// PublicConfig handles GET /api/config: the subset of configuration the
// frontend needs. Secrets and scoring internals never appear here.
func (h *SystemHandler) PublicConfig(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"questionnaire": fiber.Map{
			"enabled":              h.questionnaire.Enabled(),
			"pass_score":           h.questionnaire.PassScore(),
			"auto_approve_on_pass": h.questionnaire.AutoApproveOnPass(),
		},
	})
}
