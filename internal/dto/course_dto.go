package dto

import (
	"time"

	"github.com/codegrade/codegrade-api/internal/models"
)

// CourseCreateRequest carries a teacher's new course definition.
type CourseCreateRequest struct {
	InstitutionID uint   `json:"institution_id" validate:"required,gt=0"`
	Title         string `json:"title" validate:"required,max=300"`
	Description   string `json:"description" validate:"omitempty"`
}

// EnrollRequest enrolls the authenticated student using a course join code.
type EnrollRequest struct {
	JoinCode string `json:"join_code" validate:"required,min=4,max=12"`
}

// CourseResponse represents a course to API consumers.
type CourseResponse struct {
	ID            uint      `json:"id"`
	InstitutionID uint      `json:"institution_id"`
	TeacherID     uint      `json:"teacher_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	ImageURL      string    `json:"image_url,omitempty"`
	JoinCode      string    `json:"join_code,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// EnrollmentResponse represents one enrollment row.
type EnrollmentResponse struct {
	ID          uint      `json:"id"`
	CourseID    uint      `json:"course_id"`
	StudentID   uint      `json:"student_id"`
	StudentName string    `json:"student_name,omitempty"`
	EnrolledAt  time.Time `json:"enrolled_at"`
}

// NewCourseResponse builds a response DTO from a model. The join code is
// included only for the owning teacher.
func NewCourseResponse(course models.Course, includeJoinCode bool) CourseResponse {
	response := CourseResponse{
		ID:            course.ID,
		InstitutionID: course.InstitutionID,
		TeacherID:     course.TeacherID,
		Title:         course.Title,
		Description:   course.Description,
		ImageURL:      course.ImageURL,
		CreatedAt:     course.CreatedAt,
	}

	if includeJoinCode {
		response.JoinCode = course.JoinCode
	}

	return response
}

// NewEnrollmentResponse builds a response DTO from a model.
func NewEnrollmentResponse(enrollment models.CourseEnrollment) EnrollmentResponse {
	return EnrollmentResponse{
		ID:          enrollment.ID,
		CourseID:    enrollment.CourseID,
		StudentID:   enrollment.StudentID,
		StudentName: enrollment.Student.Name,
		EnrolledAt:  enrollment.EnrolledAt,
	}
}
