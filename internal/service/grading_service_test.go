package service_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/codegrade/codegrade-api/internal/dto"
	"github.com/codegrade/codegrade-api/internal/models"
	"github.com/codegrade/codegrade-api/internal/repository"
	"github.com/codegrade/codegrade-api/internal/service"
	"github.com/codegrade/codegrade-api/pkg/ai"
)

func feedbackOf(s string) *string {
	return &s
}

func TestGradeManuallyAppliesPartialUpdate(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewSubmissionRepository(db)
	fixture := seedGradingFixture(t, db)
	validate := validator.New(validator.WithRequiredStructEnabled())

	svc := service.NewGradingService(repo, &stubGrader{}, validate, nil, zerolog.Nop())

	result, err := svc.GradeManually(context.Background(), fixture.submission.ID, fixture.teacher.ID, dto.ManualGradeRequest{
		Score: scoreOf(72),
	})
	require.NoError(t, err)
	require.Equal(t, 72.0, *result.Score)
	require.Equal(t, models.GradingStatusGraded, result.GradingStatus)
	require.Empty(t, result.InstructorFeedback)

	stored, err := repo.GetByID(context.Background(), fixture.submission.ID)
	require.NoError(t, err)
	require.Equal(t, fixture.teacher.ID, *stored.GradedByID)
	require.Equal(t, 72.0, *stored.Score)
}

func TestGradeManuallyFeedbackOnly(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewSubmissionRepository(db)
	fixture := seedGradingFixture(t, db)
	validate := validator.New(validator.WithRequiredStructEnabled())

	svc := service.NewGradingService(repo, &stubGrader{}, validate, nil, zerolog.Nop())

	result, err := svc.GradeManually(context.Background(), fixture.submission.ID, fixture.teacher.ID, dto.ManualGradeRequest{
		Feedback: feedbackOf("Needs better variable names."),
	})
	require.NoError(t, err)
	require.Nil(t, result.Score)
	require.Equal(t, models.GradingStatusGraded, result.GradingStatus)
	require.Equal(t, "Needs better variable names.", result.InstructorFeedback)
}

func TestGradeManuallyRejectsForeignTeacher(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewSubmissionRepository(db)
	fixture := seedGradingFixture(t, db)
	validate := validator.New(validator.WithRequiredStructEnabled())

	other := models.Teacher{Name: "Mallory", Email: "mallory@example.com"}
	require.NoError(t, db.Create(&other).Error)

	svc := service.NewGradingService(repo, &stubGrader{}, validate, nil, zerolog.Nop())

	_, err := svc.GradeManually(context.Background(), fixture.submission.ID, other.ID, dto.ManualGradeRequest{
		Score: scoreOf(100),
	})
	require.ErrorIs(t, err, service.ErrUnauthorizedGrader)

	stored, err := repo.GetByID(context.Background(), fixture.submission.ID)
	require.NoError(t, err)
	require.Equal(t, models.GradingStatusPending, stored.GradingStatus)
	require.Nil(t, stored.Score)
}

func TestGradeManuallyOverridesBackgroundResult(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewSubmissionRepository(db)
	fixture := seedGradingFixture(t, db)
	validate := validator.New(validator.WithRequiredStructEnabled())

	grader := &stubGrader{result: ai.GradeResult{Score: scoreOf(95), Feedback: "Looks right."}}
	dispatcher := service.NewGradingDispatcher(repo, grader, nil, nil, zerolog.Nop())
	require.Equal(t, service.DispatchCompleted, dispatcher.Dispatch(context.Background(), fixture.submission.ID))

	svc := service.NewGradingService(repo, grader, validate, nil, zerolog.Nop())
	result, err := svc.GradeManually(context.Background(), fixture.submission.ID, fixture.teacher.ID, dto.ManualGradeRequest{
		Score:    scoreOf(55),
		Feedback: feedbackOf("Fails on empty input."),
	})
	require.NoError(t, err)
	require.Equal(t, 55.0, *result.Score)

	stored, err := repo.GetByID(context.Background(), fixture.submission.ID)
	require.NoError(t, err)
	require.Equal(t, 55.0, *stored.Score)
	require.Equal(t, fixture.teacher.ID, *stored.GradedByID)
	// Prior AI feedback remains visible alongside the override.
	require.Equal(t, "Looks right.", stored.AIFeedback)
}

func TestGradeWithAISuccess(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewSubmissionRepository(db)
	fixture := seedGradingFixture(t, db)
	validate := validator.New(validator.WithRequiredStructEnabled())

	grader := &stubGrader{result: ai.GradeResult{Score: scoreOf(88), Feedback: "Solid work."}}
	notifier := &recordingNotifier{}
	svc := service.NewGradingService(repo, grader, validate, notifier, zerolog.Nop())

	result, err := svc.GradeWithAI(context.Background(), fixture.submission.ID, fixture.teacher.ID)
	require.NoError(t, err)
	require.Equal(t, 88.0, *result.Score)
	require.Equal(t, "Solid work.", result.Feedback)

	stored, err := repo.GetByID(context.Background(), fixture.submission.ID)
	require.NoError(t, err)
	require.Equal(t, models.GradingStatusGraded, stored.GradingStatus)
	require.Nil(t, stored.GradedByID)
	require.Equal(t, []uint{fixture.submission.ID}, notifier.notified())
}

func TestGradeWithAISurfacesFailure(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewSubmissionRepository(db)
	fixture := seedGradingFixture(t, db)
	validate := validator.New(validator.WithRequiredStructEnabled())

	grader := &stubGrader{result: ai.GradeResult{Feedback: "AI grading failed due to an internal error."}}
	svc := service.NewGradingService(repo, grader, validate, nil, zerolog.Nop())

	_, err := svc.GradeWithAI(context.Background(), fixture.submission.ID, fixture.teacher.ID)
	require.ErrorIs(t, err, service.ErrAIGradingFailed)

	stored, err := repo.GetByID(context.Background(), fixture.submission.ID)
	require.NoError(t, err)
	require.Equal(t, models.GradingStatusPending, stored.GradingStatus)
	require.Nil(t, stored.Score)
}

func TestGradeWithAIReplacesManualGrade(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewSubmissionRepository(db)
	fixture := seedGradingFixture(t, db)
	validate := validator.New(validator.WithRequiredStructEnabled())

	grader := &stubGrader{result: ai.GradeResult{Score: scoreOf(91), Feedback: "Correct."}}
	svc := service.NewGradingService(repo, grader, validate, nil, zerolog.Nop())

	_, err := svc.GradeManually(context.Background(), fixture.submission.ID, fixture.teacher.ID, dto.ManualGradeRequest{Score: scoreOf(40)})
	require.NoError(t, err)

	result, err := svc.GradeWithAI(context.Background(), fixture.submission.ID, fixture.teacher.ID)
	require.NoError(t, err)
	require.Equal(t, 91.0, *result.Score)

	stored, err := repo.GetByID(context.Background(), fixture.submission.ID)
	require.NoError(t, err)
	require.Equal(t, 91.0, *stored.Score)
	require.Nil(t, stored.GradedByID)
}
