package handler

import (
	"verifymc/internal/domain"
	"verifymc/internal/dto"
	"verifymc/internal/logger"
	"verifymc/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// QuestionnaireHandler serves the questionnaire definition and standalone
// submissions.
type QuestionnaireHandler struct {
	service *service.QuestionnaireService
}

// NewQuestionnaireHandler creates a new QuestionnaireHandler instance
func NewQuestionnaireHandler(service *service.QuestionnaireService) *QuestionnaireHandler {
	return &QuestionnaireHandler{service: service}
}

// GetQuestionnaire handles GET /api/questionnaire. Option scores and scoring
// rules are stripped before the definition leaves the server.
func (h *QuestionnaireHandler) GetQuestionnaire(c *fiber.Ctx) error {
	language := c.Query("lang", "en")
	return c.JSON(dto.FromDefinition(
		h.service.Definition(),
		h.service.Enabled(),
		h.service.PassScore(),
		language,
	))
}

// SubmitQuestionnaire handles POST /api/questionnaire/submit: evaluates the
// answers without registering, so an applicant can check their standing.
func (h *QuestionnaireHandler) SubmitQuestionnaire(c *fiber.Ctx) error {
	var req dto.SubmitQuestionnaireRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("invalid request body")
	}

	result := h.service.Evaluate(c.Context(), dto.ToDomainAnswers(req.Answers))

	logger.Get().Info("Standalone questionnaire submission evaluated",
		zap.Int("score", result.Score),
		zap.Bool("passed", result.Passed),
		zap.String("ip", c.IP()))

	return c.JSON(dto.FromQuestionnaireResult(result))
}
