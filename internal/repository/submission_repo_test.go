package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/codegrade/codegrade-api/internal/models"
	"github.com/codegrade/codegrade-api/internal/repository"
)

func setupDB(t *testing.T) *gorm.DB {
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
	))

	return db
}

func seedSubmission(t *testing.T, db *gorm.DB) models.Submission {
	t.Helper()

	teacher := models.Teacher{Name: "Ada", Email: "ada@example.com"}
	require.NoError(t, db.Create(&teacher).Error)

	student := models.Student{Name: "Linus", Email: "linus@example.com"}
	require.NoError(t, db.Create(&student).Error)

	course := models.Course{InstitutionID: 1, TeacherID: teacher.ID, Title: "Algorithms", JoinCode: "CRALGO1234"}
	require.NoError(t, db.Create(&course).Error)

	assessment := models.Assessment{CourseID: course.ID, Title: "Sorting", InstructorSolution: "sorted(xs)"}
	require.NoError(t, db.Create(&assessment).Error)

	submission := models.Submission{
		SubmissionType: models.SubmissionTypeAssessment,
		AssessmentID:   &assessment.ID,
		StudentID:      student.ID,
		SubmittedCode:  "xs.sort()",
		SubmittedAt:    time.Now(),
		GradingStatus:  models.GradingStatusPending,
		Version:        1,
	}
	require.NoError(t, db.Create(&submission).Error)

	return submission
}

func TestApplyGradingBumpsVersion(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewSubmissionRepository(db)
	submission := seedSubmission(t, db)

	score := 88.0
	submission.Score = &score
	submission.GradingStatus = models.GradingStatusGraded
	submission.AIFeedback = "Clean solution."

	require.NoError(t, repo.ApplyGrading(context.Background(), &submission, 1))
	require.Equal(t, 2, submission.Version)

	stored, err := repo.GetByID(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Equal(t, models.GradingStatusGraded, stored.GradingStatus)
	require.Equal(t, 88.0, *stored.Score)
	require.Equal(t, 2, stored.Version)
}

func TestApplyGradingDetectsStaleVersion(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewSubmissionRepository(db)
	submission := seedSubmission(t, db)

	first := submission
	score := 75.0
	first.Score = &score
	first.GradingStatus = models.GradingStatusGraded
	require.NoError(t, repo.ApplyGrading(context.Background(), &first, 1))

	stale := submission
	other := 50.0
	stale.Score = &other
	stale.GradingStatus = models.GradingStatusGraded
	err := repo.ApplyGrading(context.Background(), &stale, 1)
	require.ErrorIs(t, err, repository.ErrVersionConflict)

	stored, err := repo.GetByID(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Equal(t, 75.0, *stored.Score)
}

func TestApplyGradingMissingRow(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewSubmissionRepository(db)

	missing := models.Submission{ID: 4242, GradingStatus: models.GradingStatusGraded}
	err := repo.ApplyGrading(context.Background(), &missing, 1)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListPendingByCourseOrdersOldestFirst(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewSubmissionRepository(db)
	first := seedSubmission(t, db)

	later := models.Submission{
		SubmissionType: models.SubmissionTypeAssessment,
		AssessmentID:   first.AssessmentID,
		StudentID:      first.StudentID,
		SubmittedCode:  "return sorted(xs)",
		SubmittedAt:    first.SubmittedAt.Add(time.Minute),
		GradingStatus:  models.GradingStatusPending,
		Version:        1,
	}
	require.NoError(t, db.Create(&later).Error)

	graded := models.Submission{
		SubmissionType: models.SubmissionTypeAssessment,
		AssessmentID:   first.AssessmentID,
		StudentID:      first.StudentID,
		SubmittedCode:  "pass",
		SubmittedAt:    first.SubmittedAt.Add(2 * time.Minute),
		GradingStatus:  models.GradingStatusGraded,
		Version:        1,
	}
	require.NoError(t, db.Create(&graded).Error)

	var course models.Course
	require.NoError(t, db.First(&course).Error)

	pending, err := repo.ListPendingByCourse(context.Background(), course.ID)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, first.ID, pending[0].ID)
	require.Equal(t, later.ID, pending[1].ID)
}
