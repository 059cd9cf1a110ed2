package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/codegrade/codegrade-api/internal/models"
)

// AssessmentRepository exposes persistence helpers for assessments and quizzes.
// The two live in one repository because every consumer resolves them through
// the same submission-type switch.
type AssessmentRepository interface {
	CreateAssessment(ctx context.Context, assessment *models.Assessment) error
	GetAssessment(ctx context.Context, id uint) (models.Assessment, error)
	ListAssessmentsByCourse(ctx context.Context, courseID uint) ([]models.Assessment, error)
	CreateQuiz(ctx context.Context, quiz *models.Quiz) error
	GetQuiz(ctx context.Context, id uint) (models.Quiz, error)
	ListQuizzesByCourse(ctx context.Context, courseID uint) ([]models.Quiz, error)
}

// NewAssessmentRepository constructs an assessment repository.
func NewAssessmentRepository(db *gorm.DB) AssessmentRepository {
	return &assessmentRepository{db: db}
}

type assessmentRepository struct {
	db *gorm.DB
}

func (r *assessmentRepository) CreateAssessment(ctx context.Context, assessment *models.Assessment) error {
	return r.db.WithContext(ctx).Create(assessment).Error
}

func (r *assessmentRepository) GetAssessment(ctx context.Context, id uint) (models.Assessment, error) {
	var assessment models.Assessment
	err := r.db.WithContext(ctx).Preload("Course").First(&assessment, id).Error
	if err != nil {
		return models.Assessment{}, err
	}
	return assessment, nil
}

func (r *assessmentRepository) ListAssessmentsByCourse(ctx context.Context, courseID uint) ([]models.Assessment, error) {
	var assessments []models.Assessment
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at DESC").
		Find(&assessments).Error
	if err != nil {
		return nil, err
	}
	return assessments, nil
}

func (r *assessmentRepository) CreateQuiz(ctx context.Context, quiz *models.Quiz) error {
	return r.db.WithContext(ctx).Create(quiz).Error
}

func (r *assessmentRepository) GetQuiz(ctx context.Context, id uint) (models.Quiz, error) {
	var quiz models.Quiz
	err := r.db.WithContext(ctx).Preload("Course").First(&quiz, id).Error
	if err != nil {
		return models.Quiz{}, err
	}
	return quiz, nil
}

func (r *assessmentRepository) ListQuizzesByCourse(ctx context.Context, courseID uint) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at DESC").
		Find(&quizzes).Error
	if err != nil {
		return nil, err
	}
	return quizzes, nil
}
