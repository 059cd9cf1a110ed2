package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/codegrade/codegrade-api/internal/dto"
	"github.com/codegrade/codegrade-api/internal/models"
	"github.com/codegrade/codegrade-api/internal/observability"
	"github.com/codegrade/codegrade-api/internal/queue"
	"github.com/codegrade/codegrade-api/internal/repository"
)

// ErrInvalidSubmissionTarget indicates the intake payload does not reference
// exactly one of assessment or quiz.
var ErrInvalidSubmissionTarget = errors.New("exactly one of assessment_id or quiz_id is required")

// ErrAssessmentNotFound indicates the referenced assessment does not exist.
var ErrAssessmentNotFound = errors.New("assessment not found")

// ErrQuizNotFound indicates the referenced quiz does not exist.
var ErrQuizNotFound = errors.New("quiz not found")

// ErrSubmissionForbidden indicates the viewer may not access the submission.
var ErrSubmissionForbidden = errors.New("forbidden")

// SubmissionService owns submission intake and retrieval.
type SubmissionService interface {
	Submit(ctx context.Context, studentID uint, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error)
	Get(ctx context.Context, id uint, viewerID uint, role string) (dto.SubmissionResponse, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	assessments repository.AssessmentRepository
	gradeQueue  queue.Enqueuer
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs the intake service.
func NewSubmissionService(submissions repository.SubmissionRepository, assessments repository.AssessmentRepository, gradeQueue queue.Enqueuer, validate *validator.Validate, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		submissions: submissions,
		assessments: assessments,
		gradeQueue:  gradeQueue,
		validator:   validate,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

// Submit validates the parent reference, creates the submission in PENDING
// state and schedules background grading. It returns as soon as the row is
// written; grading completes out of band.
func (s *submissionService) Submit(ctx context.Context, studentID uint, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	if (payload.AssessmentID == nil) == (payload.QuizID == nil) {
		return dto.SubmissionResponse{}, ErrInvalidSubmissionTarget
	}

	submission := models.Submission{
		StudentID:     studentID,
		SubmittedCode: payload.SubmittedCode,
		SubmittedAt:   s.now(),
		GradingStatus: models.GradingStatusPending,
		Version:       1,
	}

	if payload.AssessmentID != nil {
		if _, err := s.assessments.GetAssessment(ctx, *payload.AssessmentID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.SubmissionResponse{}, ErrAssessmentNotFound
			}
			return dto.SubmissionResponse{}, err
		}
		submission.SubmissionType = models.SubmissionTypeAssessment
		submission.AssessmentID = payload.AssessmentID
	} else {
		if _, err := s.assessments.GetQuiz(ctx, *payload.QuizID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.SubmissionResponse{}, ErrQuizNotFound
			}
			return dto.SubmissionResponse{}, err
		}
		submission.SubmissionType = models.SubmissionTypeQuiz
		submission.QuizID = payload.QuizID
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	observability.SubmissionsCreated().WithLabelValues(submission.SubmissionType).Inc()

	// Fire-and-forget: a failed enqueue is not a failed submission. The
	// record stays PENDING and any later dispatch (or a teacher re-grade)
	// picks it up.
	if err := s.gradeQueue.Enqueue(ctx, submission.ID); err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to enqueue grading")
	}

	return dto.NewSubmissionResponse(submission, true), nil
}

func (s *submissionService) Get(ctx context.Context, id uint, viewerID uint, role string) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if !canViewSubmission(submission, viewerID, role) {
		return dto.SubmissionResponse{}, ErrSubmissionForbidden
	}

	return dto.NewSubmissionResponse(submission, true), nil
}

func canViewSubmission(submission models.Submission, viewerID uint, role string) bool {
	if role == models.RoleAdmin {
		return true
	}
	if role == models.RoleTeacher {
		return teacherOwnsSubmission(submission, viewerID)
	}
	return viewerID != 0 && viewerID == submission.StudentID
}
