package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/codegrade/codegrade-api/internal/dto"
	"github.com/codegrade/codegrade-api/internal/service"
	"github.com/codegrade/codegrade-api/internal/utils"
)

// GradingHandler manages the teacher-invoked grading endpoints.
type GradingHandler struct {
	service service.GradingService
	logger  zerolog.Logger
}

// NewGradingHandler builds a grading handler instance.
func NewGradingHandler(service service.GradingService, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		service: service,
		logger:  logger.With().Str("component", "grading_handler").Logger(),
	}
}

// Register attaches the grading routes to the submissions group.
func (h *GradingHandler) Register(router fiber.Router) {
	router.Post("/:id/grade", h.gradeManually)
	router.Post("/:id/ai-grade", h.gradeWithAI)
}

func (h *GradingHandler) gradeManually(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	teacherID := userIDFromContext(c)
	if teacherID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload dto.ManualGradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.service.GradeManually(c.UserContext(), id, teacherID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission graded", submission)
}

func (h *GradingHandler) gradeWithAI(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	teacherID := userIDFromContext(c)
	if teacherID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	result, err := h.service.GradeWithAI(c.UserContext(), id, teacherID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission graded", result)
}

func (h *GradingHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrUnauthorizedGrader):
		return utils.SendError(c, fiber.StatusForbidden, "unauthorized access")
	case errors.Is(err, service.ErrInvalidSubmissionType):
		return utils.SendError(c, fiber.StatusBadRequest, "invalid submission type")
	case errors.Is(err, service.ErrAIGradingFailed):
		return utils.SendError(c, fiber.StatusInternalServerError, "ai grading failed")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
