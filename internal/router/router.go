package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/codegrade/codegrade-api/internal/config"
	"github.com/codegrade/codegrade-api/internal/handler"
	"github.com/codegrade/codegrade-api/internal/middleware"
	"github.com/codegrade/codegrade-api/internal/models"
	"github.com/codegrade/codegrade-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SubmissionHandler   *handler.SubmissionHandler
	GradingHandler      *handler.GradingHandler
	ScoreHandler        *handler.ScoreHandler
	CourseHandler       *handler.CourseHandler
	AssessmentHandler   *handler.AssessmentHandler
	NotificationHandler *handler.NotificationHandler
	JWTMiddleware       fiber.Handler
	SubmissionLimiter   fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	teacherGuard := middleware.RequireRole(models.RoleTeacher, models.RoleAdmin)
	studentGuard := middleware.RequireRole(models.RoleStudent)

	// Submissions: intake is student-only and rate limited; grading is
	// teacher-only; retrieval is gated inside the service by role.
	if deps.SubmissionHandler != nil {
		submissions := api.Group("/submissions", jwtMiddleware)

		intake := []fiber.Handler{studentGuard}
		if deps.SubmissionLimiter != nil {
			intake = append(intake, deps.SubmissionLimiter)
		}
		deps.SubmissionHandler.Register(submissions, intake...)

		if deps.GradingHandler != nil {
			grading := submissions.Group("", teacherGuard)
			deps.GradingHandler.Register(grading)
		}
	}

	if deps.ScoreHandler != nil {
		scores := api.Group("/scores", jwtMiddleware, studentGuard)
		deps.ScoreHandler.RegisterStudent(scores)

		gradingQueue := api.Group("/grading/courses", jwtMiddleware, teacherGuard)
		deps.ScoreHandler.RegisterTeacher(gradingQueue)
	}

	if deps.CourseHandler != nil {
		courses := api.Group("/courses", jwtMiddleware)
		deps.CourseHandler.Register(courses, teacherGuard, studentGuard)
	}

	if deps.AssessmentHandler != nil {
		assessments := api.Group("/assessments", jwtMiddleware)
		deps.AssessmentHandler.RegisterAssessments(assessments, teacherGuard)

		quizzes := api.Group("/quizzes", jwtMiddleware)
		deps.AssessmentHandler.RegisterQuizzes(quizzes, teacherGuard)
	}

	if deps.NotificationHandler != nil {
		notifications := api.Group("/notifications", jwtMiddleware)
		deps.NotificationHandler.Register(notifications)
	}
}
