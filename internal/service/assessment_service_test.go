package service_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/codegrade/codegrade-api/internal/dto"
	"github.com/codegrade/codegrade-api/internal/repository"
	"github.com/codegrade/codegrade-api/internal/service"
)

func newAssessmentService(t *testing.T) (service.AssessmentService, gradingFixture) {
	t.Helper()

	db := newTestDB(t)
	fixture := seedGradingFixture(t, db)
	validate := validator.New(validator.WithRequiredStructEnabled())

	svc := service.NewAssessmentService(
		repository.NewAssessmentRepository(db),
		repository.NewCourseRepository(db),
		validate,
		zerolog.Nop(),
	)
	return svc, fixture
}

func TestCreateAssessmentAcceptsStringRubric(t *testing.T) {
	svc, fixture := newAssessmentService(t)

	created, err := svc.CreateAssessment(context.Background(), fixture.teacher.ID, dto.AssessmentCreateRequest{
		CourseID:           fixture.course.ID,
		Title:              "Recursion",
		InstructorSolution: "def fib(n): ...",
		UseAIGrading:       true,
		AIGradingParams:    json.RawMessage(`"Weight correctness at 80%."`),
	})
	require.NoError(t, err)
	require.Equal(t, 100, created.MaxScore)
	require.Equal(t, "def fib(n): ...", created.InstructorSolution)
}

func TestCreateAssessmentAcceptsStructuredRubric(t *testing.T) {
	svc, fixture := newAssessmentService(t)

	rubric := `{"instructions":"Grade strictly.","criteria":[{"name":"correctness","weight":0.8},{"name":"style","weight":0.2}]}`
	created, err := svc.CreateAssessment(context.Background(), fixture.teacher.ID, dto.AssessmentCreateRequest{
		CourseID:        fixture.course.ID,
		Title:           "Graphs",
		AIGradingParams: json.RawMessage(rubric),
		MaxScore:        50,
	})
	require.NoError(t, err)
	require.Equal(t, 50, created.MaxScore)
}

func TestCreateAssessmentRejectsMalformedRubric(t *testing.T) {
	svc, fixture := newAssessmentService(t)

	// Criterion objects must carry a name.
	rubric := `{"criteria":[{"weight":1}]}`
	_, err := svc.CreateAssessment(context.Background(), fixture.teacher.ID, dto.AssessmentCreateRequest{
		CourseID:        fixture.course.ID,
		Title:           "Trees",
		AIGradingParams: json.RawMessage(rubric),
	})
	require.ErrorIs(t, err, service.ErrInvalidRubric)

	_, err = svc.CreateAssessment(context.Background(), fixture.teacher.ID, dto.AssessmentCreateRequest{
		CourseID:        fixture.course.ID,
		Title:           "Trees",
		AIGradingParams: json.RawMessage(`42`),
	})
	require.ErrorIs(t, err, service.ErrInvalidRubric)
}

func TestCreateAssessmentRequiresCourseOwnership(t *testing.T) {
	svc, fixture := newAssessmentService(t)

	_, err := svc.CreateAssessment(context.Background(), fixture.teacher.ID+100, dto.AssessmentCreateRequest{
		CourseID: fixture.course.ID,
		Title:    "Heaps",
	})
	require.ErrorIs(t, err, service.ErrNotCourseOwner)
}

func TestListAssessmentsHidesSolutionFromStudents(t *testing.T) {
	svc, fixture := newAssessmentService(t)

	listed, err := svc.ListAssessments(context.Background(), fixture.course.ID, false)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Empty(t, listed[0].InstructorSolution)

	listed, err = svc.ListAssessments(context.Background(), fixture.course.ID, true)
	require.NoError(t, err)
	require.Equal(t, fixture.assessment.InstructorSolution, listed[0].InstructorSolution)
}

func TestCreateQuizValidatesRubricToo(t *testing.T) {
	svc, fixture := newAssessmentService(t)

	_, err := svc.CreateQuiz(context.Background(), fixture.teacher.ID, dto.QuizCreateRequest{
		CourseID:        fixture.course.ID,
		Title:           "Quick Check",
		AIGradingParams: json.RawMessage(`[1,2,3]`),
	})
	require.ErrorIs(t, err, service.ErrInvalidRubric)

	created, err := svc.CreateQuiz(context.Background(), fixture.teacher.ID, dto.QuizCreateRequest{
		CourseID: fixture.course.ID,
		Title:    "Quick Check",
	})
	require.NoError(t, err)
	require.Equal(t, 100, created.MaxScore)
}
