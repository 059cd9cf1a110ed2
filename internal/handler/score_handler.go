package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/codegrade/codegrade-api/internal/service"
	"github.com/codegrade/codegrade-api/internal/utils"
)

// ScoreHandler serves the score listing endpoints.
type ScoreHandler struct {
	service service.ScoreService
	logger  zerolog.Logger
}

// NewScoreHandler builds a score handler instance.
func NewScoreHandler(service service.ScoreService, logger zerolog.Logger) *ScoreHandler {
	return &ScoreHandler{
		service: service,
		logger:  logger.With().Str("component", "score_handler").Logger(),
	}
}

// RegisterStudent attaches the student-facing score routes.
func (h *ScoreHandler) RegisterStudent(router fiber.Router) {
	router.Get("", h.studentScores)
}

// RegisterTeacher attaches the teacher-facing grading queue route.
func (h *ScoreHandler) RegisterTeacher(router fiber.Router) {
	router.Get("/:courseID/pending", h.pendingForCourse)
}

func (h *ScoreHandler) studentScores(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	scores, err := h.service.StudentScores(c.UserContext(), studentID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "scores retrieved", scores)
}

func (h *ScoreHandler) pendingForCourse(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	teacherID := userIDFromContext(c)
	if teacherID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	submissions, err := h.service.PendingForCourse(c.UserContext(), courseID, teacherID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "pending submissions retrieved", submissions)
}

func (h *ScoreHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "course not found")
	case errors.Is(err, service.ErrNotCourseOwner):
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
