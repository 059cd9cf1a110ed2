package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/codegrade/codegrade-api/internal/models"
)

// ErrVersionConflict indicates a grading write lost the optimistic race: the
// row's version moved since it was read. Callers decide whether to re-read or
// abandon the write.
var ErrVersionConflict = errors.New("submission version conflict")

// SubmissionRepository exposes persistence helpers for submissions. All
// grading mutations go through ApplyGrading so every writer competes on the
// same version stamp.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	ApplyGrading(ctx context.Context, submission *models.Submission, expectedVersion int) error
	MarkViewed(ctx context.Context, id uint, studentID uint) error
	ListByStudent(ctx context.Context, studentID uint, status string) ([]models.Submission, error)
	ListPendingByCourse(ctx context.Context, courseID uint) ([]models.Submission, error)
}

// NewSubmissionRepository constructs a submission repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

type submissionRepository struct {
	db *gorm.DB
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).
		Preload("Assessment").
		Preload("Assessment.Course").
		Preload("Quiz").
		Preload("Quiz.Course").
		Preload("Student").
		First(&submission, id).Error
	if err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

// ApplyGrading writes the grading fields of submission with a compare-and-swap
// on the version column. Zero affected rows means either the row vanished or
// another writer won; the two are told apart with a follow-up existence check.
func (r *submissionRepository) ApplyGrading(ctx context.Context, submission *models.Submission, expectedVersion int) error {
	updates := map[string]interface{}{
		"score":               submission.Score,
		"grading_status":      submission.GradingStatus,
		"ai_feedback":         submission.AIFeedback,
		"instructor_feedback": submission.InstructorFeedback,
		"graded_by_id":        submission.GradedByID,
		"version":             expectedVersion + 1,
	}

	result := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ? AND version = ?", submission.ID, expectedVersion).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&models.Submission{}).
			Where("id = ?", submission.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return ErrVersionConflict
	}

	submission.Version = expectedVersion + 1
	return nil
}

func (r *submissionRepository) MarkViewed(ctx context.Context, id uint, studentID uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ? AND student_id = ?", id, studentID).
		Update("is_viewed", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *submissionRepository) ListByStudent(ctx context.Context, studentID uint, status string) ([]models.Submission, error) {
	query := r.db.WithContext(ctx).
		Preload("Assessment").
		Preload("Quiz").
		Where("student_id = ?", studentID)
	if status != "" {
		query = query.Where("grading_status = ?", status)
	}

	var submissions []models.Submission
	if err := query.Order("submitted_at DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *submissionRepository) ListPendingByCourse(ctx context.Context, courseID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	err := r.db.WithContext(ctx).
		Preload("Assessment").
		Preload("Quiz").
		Preload("Student").
		Joins("LEFT JOIN assessments ON assessments.id = submissions.assessment_id").
		Joins("LEFT JOIN quizzes ON quizzes.id = submissions.quiz_id").
		Where("submissions.grading_status = ?", models.GradingStatusPending).
		Where("assessments.course_id = ? OR quizzes.course_id = ?", courseID, courseID).
		Order("submissions.submitted_at ASC").
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}
	return submissions, nil
}
