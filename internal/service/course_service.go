package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/codegrade/codegrade-api/internal/dto"
	"github.com/codegrade/codegrade-api/internal/models"
	"github.com/codegrade/codegrade-api/internal/repository"
)

// ErrInvalidJoinCode indicates no course matches the supplied join code.
var ErrInvalidJoinCode = errors.New("invalid join code")

// ErrAlreadyEnrolled indicates the student already holds an enrollment.
var ErrAlreadyEnrolled = errors.New("already enrolled in this course")

// ErrUnsupportedImage indicates the uploaded course image is not an image type.
var ErrUnsupportedImage = errors.New("unsupported image type")

// Uploader stores a file and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// CourseService owns course authoring, enrollment and course imagery.
type CourseService interface {
	Create(ctx context.Context, teacherID uint, payload dto.CourseCreateRequest) (dto.CourseResponse, error)
	ListByTeacher(ctx context.Context, teacherID uint) ([]dto.CourseResponse, error)
	Enroll(ctx context.Context, studentID uint, payload dto.EnrollRequest) (dto.EnrollmentResponse, error)
	ListEnrollments(ctx context.Context, courseID, teacherID uint) ([]dto.EnrollmentResponse, error)
	UploadImage(ctx context.Context, courseID, teacherID uint, filename string, reader io.Reader) (dto.CourseResponse, error)
}

type courseService struct {
	courses   repository.CourseRepository
	uploader  Uploader
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewCourseService constructs the course service. The uploader is optional;
// without it image uploads are rejected.
func NewCourseService(courses repository.CourseRepository, uploader Uploader, validate *validator.Validate, logger zerolog.Logger) CourseService {
	return &courseService{
		courses:   courses,
		uploader:  uploader,
		validator: validate,
		logger:    logger.With().Str("component", "course_service").Logger(),
	}
}

func (s *courseService) Create(ctx context.Context, teacherID uint, payload dto.CourseCreateRequest) (dto.CourseResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseResponse{}, err
	}

	course := models.Course{
		InstitutionID: payload.InstitutionID,
		TeacherID:     teacherID,
		Title:         payload.Title,
		Description:   payload.Description,
		JoinCode:      newJoinCode(),
	}

	if err := s.courses.Create(ctx, &course); err != nil {
		return dto.CourseResponse{}, err
	}

	return dto.NewCourseResponse(course, true), nil
}

func (s *courseService) ListByTeacher(ctx context.Context, teacherID uint) ([]dto.CourseResponse, error) {
	courses, err := s.courses.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.CourseResponse, 0, len(courses))
	for _, course := range courses {
		responses = append(responses, dto.NewCourseResponse(course, true))
	}
	return responses, nil
}

// Enroll joins the student to the course matching the join code. Duplicate
// enrollment is rejected before the insert so the unique index stays a
// backstop rather than the error path.
func (s *courseService) Enroll(ctx context.Context, studentID uint, payload dto.EnrollRequest) (dto.EnrollmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.EnrollmentResponse{}, err
	}

	course, err := s.courses.GetByJoinCode(ctx, strings.ToUpper(strings.TrimSpace(payload.JoinCode)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EnrollmentResponse{}, ErrInvalidJoinCode
		}
		return dto.EnrollmentResponse{}, err
	}

	enrolled, err := s.courses.IsEnrolled(ctx, course.ID, studentID)
	if err != nil {
		return dto.EnrollmentResponse{}, err
	}
	if enrolled {
		return dto.EnrollmentResponse{}, ErrAlreadyEnrolled
	}

	enrollment := models.CourseEnrollment{
		CourseID:  course.ID,
		StudentID: studentID,
	}
	if err := s.courses.Enroll(ctx, &enrollment); err != nil {
		return dto.EnrollmentResponse{}, err
	}

	return dto.NewEnrollmentResponse(enrollment), nil
}

func (s *courseService) ListEnrollments(ctx context.Context, courseID, teacherID uint) ([]dto.EnrollmentResponse, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}
	if course.TeacherID != teacherID {
		return nil, ErrNotCourseOwner
	}

	enrollments, err := s.courses.ListEnrollments(ctx, courseID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.EnrollmentResponse, 0, len(enrollments))
	for _, enrollment := range enrollments {
		responses = append(responses, dto.NewEnrollmentResponse(enrollment))
	}
	return responses, nil
}

func (s *courseService) UploadImage(ctx context.Context, courseID, teacherID uint, filename string, reader io.Reader) (dto.CourseResponse, error) {
	if s.uploader == nil {
		return dto.CourseResponse{}, ErrUnsupportedImage
	}

	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CourseResponse{}, ErrCourseNotFound
		}
		return dto.CourseResponse{}, err
	}
	if course.TeacherID != teacherID {
		return dto.CourseResponse{}, ErrNotCourseOwner
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return dto.CourseResponse{}, err
	}

	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return dto.CourseResponse{}, ErrUnsupportedImage
	}

	name := fmt.Sprintf("course-%d-%s", course.ID, filename)
	url, err := s.uploader.Upload(ctx, name, bytes.NewReader(data))
	if err != nil {
		return dto.CourseResponse{}, err
	}

	course.ImageURL = url
	if err := s.courses.Update(ctx, &course); err != nil {
		return dto.CourseResponse{}, err
	}

	return dto.NewCourseResponse(course, true), nil
}

// newJoinCode derives a short uppercase enrollment code. Uniqueness is
// enforced by the column index; the collision space is large enough that a
// retry loop is not worth carrying.
func newJoinCode() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "CR" + raw[:8]
}
