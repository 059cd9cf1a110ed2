package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/codegrade/codegrade-api/internal/dto"
	"github.com/codegrade/codegrade-api/internal/models"
	"github.com/codegrade/codegrade-api/internal/repository"
	"github.com/codegrade/codegrade-api/pkg/ai"
)

// ErrSubmissionNotFound indicates the submission cannot be located.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrUnauthorizedGrader indicates the teacher does not own the course that
// owns the submission's assessment or quiz.
var ErrUnauthorizedGrader = errors.New("unauthorized access")

// ErrInvalidSubmissionType indicates the submission references neither a
// populated assessment nor a populated quiz.
var ErrInvalidSubmissionType = errors.New("invalid submission type")

// ErrAIGradingFailed indicates the synchronous grading call did not produce a
// usable score.
var ErrAIGradingFailed = errors.New("ai grading failed")

// GradingService exposes the teacher-invoked grading paths: the manual
// override and the synchronous AI re-grade.
type GradingService interface {
	GradeManually(ctx context.Context, submissionID, teacherID uint, payload dto.ManualGradeRequest) (dto.SubmissionResponse, error)
	GradeWithAI(ctx context.Context, submissionID, teacherID uint) (dto.AIGradeResponse, error)
}

type gradingService struct {
	submissions repository.SubmissionRepository
	grader      ai.Grader
	validator   *validator.Validate
	notifier    GradedNotifier
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewGradingService constructs the teacher-facing grading service.
func NewGradingService(submissions repository.SubmissionRepository, grader ai.Grader, validate *validator.Validate, notifier GradedNotifier, logger zerolog.Logger) GradingService {
	return &gradingService{
		submissions: submissions,
		grader:      grader,
		validator:   validate,
		notifier:    notifier,
		logger:      logger.With().Str("component", "grading_service").Logger(),
		tracer:      otel.Tracer("github.com/codegrade/codegrade-api/internal/service/grading"),
	}
}

// GradeManually applies a teacher's score and/or feedback as partial updates
// and finalizes the submission as GRADED. A deliberate teacher action always
// wins the write race with the background dispatcher.
func (s *gradingService) GradeManually(ctx context.Context, submissionID, teacherID uint, payload dto.ManualGradeRequest) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.manual", trace.WithAttributes(
		attribute.Int64("submission_id", int64(submissionID)),
		attribute.Int64("teacher_id", int64(teacherID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.loadOwned(ctx, submissionID, teacherID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return dto.SubmissionResponse{}, err
	}

	apply := func(target *models.Submission) {
		if payload.Score != nil {
			target.Score = payload.Score
		}
		if payload.Feedback != nil {
			target.InstructorFeedback = *payload.Feedback
		}
		gradedBy := teacherID
		target.GradedByID = &gradedBy
		target.GradingStatus = models.GradingStatusGraded
	}

	apply(&submission)
	if err := s.applyWithRetry(ctx, &submission, apply); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	if s.notifier != nil {
		s.notifier.NotifySubmissionGraded(ctx, submission)
	}

	return dto.NewSubmissionResponse(submission, true), nil
}

// GradeWithAI performs the dispatcher's resolve/call/write sequence in the
// request, surfacing the outcome to the caller. It is an explicit re-grade,
// so it replaces even a manual grade.
func (s *gradingService) GradeWithAI(ctx context.Context, submissionID, teacherID uint) (dto.AIGradeResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.sync_ai", trace.WithAttributes(
		attribute.Int64("submission_id", int64(submissionID)),
		attribute.Int64("teacher_id", int64(teacherID)),
	))
	defer span.End()

	submission, err := s.loadOwned(ctx, submissionID, teacherID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return dto.AIGradeResponse{}, err
	}

	material, ok := resolveReferenceMaterial(submission)
	if !ok {
		return dto.AIGradeResponse{}, ErrInvalidSubmissionType
	}

	result := s.grader.Grade(ctx, ai.GradeInput{
		SubmittedCode:      submission.SubmittedCode,
		InstructorSolution: material.solution,
		GradingParameters:  material.parameters,
	})
	if result.Failed() {
		span.SetStatus(codes.Error, "grading call failed")
		return dto.AIGradeResponse{}, ErrAIGradingFailed
	}

	apply := func(target *models.Submission) {
		target.Score = result.Score
		target.AIFeedback = result.Feedback
		target.GradingStatus = models.GradingStatusGraded
		target.GradedByID = nil
	}

	apply(&submission)
	if err := s.applyWithRetry(ctx, &submission, apply); err != nil {
		span.RecordError(err)
		return dto.AIGradeResponse{}, err
	}

	if s.notifier != nil {
		s.notifier.NotifySubmissionGraded(ctx, submission)
	}

	span.SetAttributes(attribute.Float64("grading.score", *result.Score))
	return dto.AIGradeResponse{Score: result.Score, Feedback: result.Feedback}, nil
}

func (s *gradingService) loadOwned(ctx context.Context, submissionID, teacherID uint) (models.Submission, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, ErrSubmissionNotFound
		}
		return models.Submission{}, err
	}

	if !teacherOwnsSubmission(submission, teacherID) {
		return models.Submission{}, ErrUnauthorizedGrader
	}

	return submission, nil
}

// applyWithRetry persists a grading write, re-reading and re-applying once if
// a concurrent writer bumped the version in between. Request-path grading is
// a deliberate action and must not silently lose to the background path.
func (s *gradingService) applyWithRetry(ctx context.Context, submission *models.Submission, apply func(*models.Submission)) error {
	err := s.submissions.ApplyGrading(ctx, submission, submission.Version)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrVersionConflict) {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubmissionNotFound
		}
		return err
	}

	s.logger.Debug().Uint("submission_id", submission.ID).Msg("grading write conflicted, retrying once")

	fresh, err := s.submissions.GetByID(ctx, submission.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubmissionNotFound
		}
		return err
	}

	apply(&fresh)
	if err := s.submissions.ApplyGrading(ctx, &fresh, fresh.Version); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubmissionNotFound
		}
		return err
	}

	*submission = fresh
	return nil
}

func teacherOwnsSubmission(submission models.Submission, teacherID uint) bool {
	if submission.Assessment != nil && submission.Assessment.Course.TeacherID == teacherID {
		return true
	}
	if submission.Quiz != nil && submission.Quiz.Course.TeacherID == teacherID {
		return true
	}
	return false
}
