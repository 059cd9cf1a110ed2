package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/codegrade/codegrade-api/internal/models"
)

// CourseRepository exposes persistence helpers for courses and enrollments.
type CourseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	GetByID(ctx context.Context, id uint) (models.Course, error)
	GetByJoinCode(ctx context.Context, code string) (models.Course, error)
	ListByTeacher(ctx context.Context, teacherID uint) ([]models.Course, error)
	Enroll(ctx context.Context, enrollment *models.CourseEnrollment) error
	IsEnrolled(ctx context.Context, courseID, studentID uint) (bool, error)
	ListEnrollments(ctx context.Context, courseID uint) ([]models.CourseEnrollment, error)
}

// NewCourseRepository constructs a course repository.
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

type courseRepository struct {
	db *gorm.DB
}

func (r *courseRepository) Create(ctx context.Context, course *models.Course) error {
	return r.db.WithContext(ctx).Create(course).Error
}

func (r *courseRepository) Update(ctx context.Context, course *models.Course) error {
	return r.db.WithContext(ctx).Save(course).Error
}

func (r *courseRepository) GetByID(ctx context.Context, id uint) (models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).Preload("Teacher").First(&course, id).Error; err != nil {
		return models.Course{}, err
	}
	return course, nil
}

func (r *courseRepository) GetByJoinCode(ctx context.Context, code string) (models.Course, error) {
	var course models.Course
	err := r.db.WithContext(ctx).Where("join_code = ?", code).First(&course).Error
	if err != nil {
		return models.Course{}, err
	}
	return course, nil
}

func (r *courseRepository) ListByTeacher(ctx context.Context, teacherID uint) ([]models.Course, error) {
	var courses []models.Course
	err := r.db.WithContext(ctx).
		Where("teacher_id = ?", teacherID).
		Order("created_at DESC").
		Find(&courses).Error
	if err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *courseRepository) Enroll(ctx context.Context, enrollment *models.CourseEnrollment) error {
	return r.db.WithContext(ctx).Create(enrollment).Error
}

func (r *courseRepository) IsEnrolled(ctx context.Context, courseID, studentID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CourseEnrollment{}).
		Where("course_id = ? AND student_id = ?", courseID, studentID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *courseRepository) ListEnrollments(ctx context.Context, courseID uint) ([]models.CourseEnrollment, error) {
	var enrollments []models.CourseEnrollment
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("course_id = ?", courseID).
		Order("enrolled_at ASC").
		Find(&enrollments).Error
	if err != nil {
		return nil, err
	}
	return enrollments, nil
}
