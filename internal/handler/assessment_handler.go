package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/codegrade/codegrade-api/internal/dto"
	"github.com/codegrade/codegrade-api/internal/models"
	"github.com/codegrade/codegrade-api/internal/service"
	"github.com/codegrade/codegrade-api/internal/utils"
)

// AssessmentHandler manages assessment and quiz authoring endpoints.
type AssessmentHandler struct {
	service service.AssessmentService
	logger  zerolog.Logger
}

// NewAssessmentHandler builds an assessment handler instance.
func NewAssessmentHandler(service service.AssessmentService, logger zerolog.Logger) *AssessmentHandler {
	return &AssessmentHandler{
		service: service,
		logger:  logger.With().Str("component", "assessment_handler").Logger(),
	}
}

// RegisterAssessments attaches the assessment routes. Creation is guarded by
// teacherGuard; listings are open to any authenticated caller.
func (h *AssessmentHandler) RegisterAssessments(router fiber.Router, teacherGuard fiber.Handler) {
	router.Post("", teacherGuard, h.createAssessment)
	router.Get("/course/:courseID", h.listAssessments)
}

// RegisterQuizzes attaches the quiz routes.
func (h *AssessmentHandler) RegisterQuizzes(router fiber.Router, teacherGuard fiber.Handler) {
	router.Post("", teacherGuard, h.createQuiz)
	router.Get("/course/:courseID", h.listQuizzes)
}

func (h *AssessmentHandler) createAssessment(c *fiber.Ctx) error {
	teacherID := userIDFromContext(c)
	if teacherID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload dto.AssessmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	assessment, err := h.service.CreateAssessment(c.UserContext(), teacherID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assessment created", assessment)
}

func (h *AssessmentHandler) listAssessments(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	includeSolution := userRoleFromContext(c) != models.RoleStudent
	assessments, err := h.service.ListAssessments(c.UserContext(), courseID, includeSolution)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "assessments retrieved", assessments)
}

func (h *AssessmentHandler) createQuiz(c *fiber.Ctx) error {
	teacherID := userIDFromContext(c)
	if teacherID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload dto.QuizCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	quiz, err := h.service.CreateQuiz(c.UserContext(), teacherID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "quiz created", quiz)
}

func (h *AssessmentHandler) listQuizzes(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	includeSolution := userRoleFromContext(c) != models.RoleStudent
	quizzes, err := h.service.ListQuizzes(c.UserContext(), courseID, includeSolution)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "quizzes retrieved", quizzes)
}

func (h *AssessmentHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "course not found")
	case errors.Is(err, service.ErrNotCourseOwner):
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	case errors.Is(err, service.ErrInvalidRubric):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
