package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/codegrade/codegrade-api/internal/models"
	"github.com/codegrade/codegrade-api/internal/observability"
	"github.com/codegrade/codegrade-api/internal/repository"
	"github.com/codegrade/codegrade-api/pkg/ai"
)

// DispatchOutcome is the terminal result of one background grading attempt.
type DispatchOutcome string

// Dispatch outcomes. NotFound and InvalidSubmission are data conditions that
// a blind retry cannot fix; Failed means the grading call itself failed and
// the record was reset to PENDING for a later attempt.
const (
	DispatchCompleted         DispatchOutcome = "completed"
	DispatchNotFound          DispatchOutcome = "not_found"
	DispatchInvalidSubmission DispatchOutcome = "invalid_submission"
	DispatchFailed            DispatchOutcome = "failed"
	DispatchSuperseded        DispatchOutcome = "superseded"
	DispatchConflict          DispatchOutcome = "conflict"
	DispatchDuplicate         DispatchOutcome = "duplicate"
	DispatchError             DispatchOutcome = "error"
)

const dispatchLockTTL = 2 * time.Minute

// GradingDispatcher runs one asynchronous grading attempt per invocation.
// Safe to invoke more than once for the same id (at-least-once delivery).
type GradingDispatcher interface {
	Dispatch(ctx context.Context, submissionID uint) DispatchOutcome
}

type gradingDispatcher struct {
	submissions repository.SubmissionRepository
	grader      ai.Grader
	locks       *redis.Client
	notifier    GradedNotifier
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// GradedNotifier receives submissions that have just transitioned to GRADED.
type GradedNotifier interface {
	NotifySubmissionGraded(ctx context.Context, submission models.Submission)
}

// NewGradingDispatcher constructs the background grading dispatcher. The
// redis client is optional and only used for best-effort dedupe of
// concurrent duplicate deliveries; the notifier is optional too.
func NewGradingDispatcher(submissions repository.SubmissionRepository, grader ai.Grader, locks *redis.Client, notifier GradedNotifier, logger zerolog.Logger) GradingDispatcher {
	return &gradingDispatcher{
		submissions: submissions,
		grader:      grader,
		locks:       locks,
		notifier:    notifier,
		logger:      logger.With().Str("component", "grading_dispatcher").Logger(),
		tracer:      otel.Tracer("github.com/codegrade/codegrade-api/internal/service/grading_dispatcher"),
	}
}

func (d *gradingDispatcher) Dispatch(ctx context.Context, submissionID uint) DispatchOutcome {
	ctx, span := d.tracer.Start(ctx, "grading.dispatch", trace.WithAttributes(
		attribute.Int64("submission_id", int64(submissionID)),
	))
	defer span.End()

	observability.GradingInflight().Inc()
	defer observability.GradingInflight().Dec()

	outcome := d.dispatch(ctx, submissionID)

	span.SetAttributes(attribute.String("grading.outcome", string(outcome)))
	observability.GradingDispatches().WithLabelValues(string(outcome)).Inc()

	logEvent := d.logger.Info()
	if outcome == DispatchError || outcome == DispatchFailed {
		logEvent = d.logger.Warn()
	}
	logEvent.Uint("submission_id", submissionID).Str("outcome", string(outcome)).Msg("grading dispatch finished")

	return outcome
}

func (d *gradingDispatcher) dispatch(ctx context.Context, submissionID uint) DispatchOutcome {
	release, acquired := d.acquireLock(ctx, submissionID)
	if !acquired {
		return DispatchDuplicate
	}
	defer release()

	submission, err := d.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DispatchNotFound
		}
		d.logger.Error().Err(err).Uint("submission_id", submissionID).Msg("failed to load submission")
		return DispatchError
	}

	// A teacher's manual grade is final for the background path; only an
	// explicit re-grade request may replace it.
	if submission.ManuallyGraded() {
		return DispatchSuperseded
	}

	material, ok := resolveReferenceMaterial(submission)
	if !ok {
		submission.GradingStatus = models.GradingStatusPending
		if err := d.submissions.ApplyGrading(ctx, &submission, submission.Version); err != nil {
			return d.writeOutcome(err, submissionID)
		}
		return DispatchInvalidSubmission
	}

	result := d.grader.Grade(ctx, ai.GradeInput{
		SubmittedCode:      submission.SubmittedCode,
		InstructorSolution: material.solution,
		GradingParameters:  material.parameters,
	})

	if result.Failed() {
		submission.Score = nil
		submission.AIFeedback = result.Feedback
		submission.GradingStatus = models.GradingStatusPending
		if err := d.submissions.ApplyGrading(ctx, &submission, submission.Version); err != nil {
			return d.writeOutcome(err, submissionID)
		}
		return DispatchFailed
	}

	submission.Score = result.Score
	submission.AIFeedback = result.Feedback
	submission.GradingStatus = models.GradingStatusGraded
	submission.GradedByID = nil
	if err := d.submissions.ApplyGrading(ctx, &submission, submission.Version); err != nil {
		return d.writeOutcome(err, submissionID)
	}

	if d.notifier != nil {
		d.notifier.NotifySubmissionGraded(ctx, submission)
	}

	return DispatchCompleted
}

func (d *gradingDispatcher) writeOutcome(err error, submissionID uint) DispatchOutcome {
	switch {
	case errors.Is(err, repository.ErrVersionConflict):
		return DispatchConflict
	case errors.Is(err, gorm.ErrRecordNotFound):
		return DispatchNotFound
	default:
		d.logger.Error().Err(err).Uint("submission_id", submissionID).Msg("failed to persist grading outcome")
		return DispatchError
	}
}

// acquireLock suppresses concurrent duplicate dispatches for the same id.
// Best effort: when redis is absent or errors, dispatch proceeds and the
// version stamp remains the correctness backstop.
func (d *gradingDispatcher) acquireLock(ctx context.Context, submissionID uint) (func(), bool) {
	if d.locks == nil {
		return func() {}, true
	}

	key := fmt.Sprintf("grading:dispatch:%d", submissionID)
	acquired, err := d.locks.SetNX(ctx, key, 1, dispatchLockTTL).Result()
	if err != nil {
		d.logger.Warn().Err(err).Uint("submission_id", submissionID).Msg("dispatch lock unavailable")
		return func() {}, true
	}
	if !acquired {
		return func() {}, false
	}

	return func() {
		if err := d.locks.Del(context.WithoutCancel(ctx), key).Err(); err != nil {
			d.logger.Warn().Err(err).Uint("submission_id", submissionID).Msg("failed to release dispatch lock")
		}
	}, true
}

type referenceMaterial struct {
	solution   string
	parameters string
}

// resolveReferenceMaterial reads the instructor solution and grading rubric
// from the parent matching the submission type. A submission whose type and
// parent wiring disagree yields ok=false.
func resolveReferenceMaterial(submission models.Submission) (referenceMaterial, bool) {
	switch submission.SubmissionType {
	case models.SubmissionTypeAssessment:
		if submission.Assessment == nil {
			return referenceMaterial{}, false
		}
		return referenceMaterial{
			solution:   submission.Assessment.InstructorSolution,
			parameters: string(submission.Assessment.AIGradingParams),
		}, true
	case models.SubmissionTypeQuiz:
		if submission.Quiz == nil {
			return referenceMaterial{}, false
		}
		return referenceMaterial{
			solution:   submission.Quiz.InstructorSolution,
			parameters: string(submission.Quiz.AIGradingParams),
		}, true
	default:
		return referenceMaterial{}, false
	}
}
