package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/codegrade/codegrade-api/internal/config"
	"github.com/codegrade/codegrade-api/internal/dto"
	"github.com/codegrade/codegrade-api/internal/handler"
	"github.com/codegrade/codegrade-api/internal/models"
	"github.com/codegrade/codegrade-api/internal/repository"
	"github.com/codegrade/codegrade-api/internal/router"
	"github.com/codegrade/codegrade-api/internal/service"
	"github.com/codegrade/codegrade-api/pkg/ai"
)

type fixedGrader struct {
	result ai.GradeResult
}

func (g *fixedGrader) Grade(_ context.Context, _ ai.GradeInput) ai.GradeResult {
	return g.result
}

type noopQueue struct{}

func (noopQueue) Enqueue(_ context.Context, _ uint) error { return nil }

// testAuth reads identity from headers so each request can impersonate a
// different caller without minting tokens.
func testAuth(c *fiber.Ctx) error {
	if id := c.Get("X-Test-User"); id != "" {
		parsed, err := strconv.ParseUint(id, 10, 64)
		if err == nil {
			c.Locals("user_id", uint(parsed))
		}
	}
	if role := c.Get("X-Test-Role"); role != "" {
		c.Locals("user_role", role)
	}
	return c.Next()
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func setupApp(t *testing.T, graderResult ai.GradeResult) (*fiber.App, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Institution{},
		&models.Teacher{},
		&models.Student{},
		&models.Course{},
		&models.CourseEnrollment{},
		&models.Assessment{},
		&models.Quiz{},
		&models.Submission{},
		&models.Notification{},
	))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	submissionRepo := repository.NewSubmissionRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)
	courseRepo := repository.NewCourseRepository(db)

	grader := &fixedGrader{result: graderResult}
	submissionService := service.NewSubmissionService(submissionRepo, assessmentRepo, noopQueue{}, validate, logger)
	gradingService := service.NewGradingService(submissionRepo, grader, validate, nil, logger)
	scoreService := service.NewScoreService(submissionRepo, courseRepo, nil, time.Minute, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test"}, router.Dependencies{
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, logger),
		GradingHandler:    handler.NewGradingHandler(gradingService, logger),
		ScoreHandler:      handler.NewScoreHandler(scoreService, logger),
		JWTMiddleware:     testAuth,
	})

	return app, db
}

func seedCourse(t *testing.T, db *gorm.DB) (models.Teacher, models.Student, models.Assessment) {
	t.Helper()

	teacher := models.Teacher{Name: "Grace", Email: "grace@example.com"}
	require.NoError(t, db.Create(&teacher).Error)

	student := models.Student{Name: "Ken", Email: "ken@example.com"}
	require.NoError(t, db.Create(&student).Error)

	course := models.Course{InstitutionID: 1, TeacherID: teacher.ID, Title: "Compilers", JoinCode: "CRCOMP0001"}
	require.NoError(t, db.Create(&course).Error)

	assessment := models.Assessment{CourseID: course.ID, Title: "Lexing", InstructorSolution: "token stream", UseAIGrading: true}
	require.NoError(t, db.Create(&assessment).Error)

	return teacher, student, assessment
}

func doJSON(t *testing.T, app *fiber.App, method, target string, payload interface{}, userID uint, role string) (*apiEnvelope, int) {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(encoded)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set("X-Test-User", strconv.FormatUint(uint64(userID), 10))
	}
	if role != "" {
		req.Header.Set("X-Test-Role", role)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var envelope apiEnvelope
	require.NoError(t, json.Unmarshal(raw, &envelope))
	return &envelope, resp.StatusCode
}

func TestSubmissionIntakeAndManualGrade(t *testing.T) {
	app, db := setupApp(t, ai.GradeResult{})
	teacher, student, assessment := seedCourse(t, db)

	envelope, status := doJSON(t, app, "POST", "/api/v1/submissions", map[string]interface{}{
		"assessment_id":  assessment.ID,
		"submitted_code": "func lex() {}",
	}, student.ID, models.RoleStudent)
	require.Equal(t, fiber.StatusCreated, status)
	require.True(t, envelope.Success)

	var created dto.SubmissionResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &created))
	require.Equal(t, models.GradingStatusPending, created.GradingStatus)
	require.Nil(t, created.Score)

	target := "/api/v1/submissions/" + strconv.FormatUint(uint64(created.ID), 10) + "/grade"

	// Students cannot reach the grading route at all.
	_, status = doJSON(t, app, "POST", target, map[string]interface{}{"score": 100}, student.ID, models.RoleStudent)
	require.Equal(t, fiber.StatusForbidden, status)

	// A teacher that does not own the course is rejected by the service.
	other := models.Teacher{Name: "Mallory", Email: "mallory@example.com"}
	require.NoError(t, db.Create(&other).Error)
	_, status = doJSON(t, app, "POST", target, map[string]interface{}{"score": 100}, other.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusForbidden, status)

	envelope, status = doJSON(t, app, "POST", target, map[string]interface{}{
		"score":    87.5,
		"feedback": "Handle EOF.",
	}, teacher.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusOK, status)

	var graded dto.SubmissionResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &graded))
	require.Equal(t, models.GradingStatusGraded, graded.GradingStatus)
	require.Equal(t, 87.5, *graded.Score)
	require.Equal(t, "Handle EOF.", graded.InstructorFeedback)
}

func TestSubmissionIntakeValidation(t *testing.T) {
	app, db := setupApp(t, ai.GradeResult{})
	_, student, _ := seedCourse(t, db)

	_, status := doJSON(t, app, "POST", "/api/v1/submissions", map[string]interface{}{
		"submitted_code": "x",
	}, student.ID, models.RoleStudent)
	require.Equal(t, fiber.StatusBadRequest, status)

	_, status = doJSON(t, app, "POST", "/api/v1/submissions", map[string]interface{}{
		"assessment_id":  9999,
		"submitted_code": "x",
	}, student.ID, models.RoleStudent)
	require.Equal(t, fiber.StatusNotFound, status)
}

func TestSynchronousAIGradeEndpoint(t *testing.T) {
	score := 93.0
	app, db := setupApp(t, ai.GradeResult{Score: &score, Feedback: "Correct and efficient."})
	teacher, student, assessment := seedCourse(t, db)

	envelope, status := doJSON(t, app, "POST", "/api/v1/submissions", map[string]interface{}{
		"assessment_id":  assessment.ID,
		"submitted_code": "func lex() {}",
	}, student.ID, models.RoleStudent)
	require.Equal(t, fiber.StatusCreated, status)

	var created dto.SubmissionResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &created))

	target := "/api/v1/submissions/" + strconv.FormatUint(uint64(created.ID), 10) + "/ai-grade"
	envelope, status = doJSON(t, app, "POST", target, nil, teacher.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusOK, status)

	var result dto.AIGradeResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &result))
	require.Equal(t, 93.0, *result.Score)
	require.Equal(t, "Correct and efficient.", result.Feedback)
}

func TestStudentScoresEndpoint(t *testing.T) {
	app, db := setupApp(t, ai.GradeResult{})
	_, student, assessment := seedCourse(t, db)

	submission := models.Submission{
		SubmissionType: models.SubmissionTypeAssessment,
		AssessmentID:   &assessment.ID,
		StudentID:      student.ID,
		SubmittedCode:  "code",
		SubmittedAt:    time.Now(),
		GradingStatus:  models.GradingStatusGraded,
		Score:          func() *float64 { v := 77.0; return &v }(),
		Version:        1,
	}
	require.NoError(t, db.Create(&submission).Error)

	envelope, status := doJSON(t, app, "GET", "/api/v1/scores", nil, student.ID, models.RoleStudent)
	require.Equal(t, fiber.StatusOK, status)

	var scores []dto.SubmissionResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &scores))
	require.Len(t, scores, 1)
	require.Equal(t, 77.0, *scores[0].Score)
	require.Empty(t, scores[0].SubmittedCode)
}
