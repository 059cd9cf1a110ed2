package dto

import (
	"time"

	"github.com/codegrade/codegrade-api/internal/models"
)

// SubmissionCreateRequest is the intake payload. Exactly one of AssessmentID
// and QuizID must be set; the service enforces the exclusivity.
type SubmissionCreateRequest struct {
	AssessmentID  *uint  `json:"assessment_id" validate:"omitempty,gt=0"`
	QuizID        *uint  `json:"quiz_id" validate:"omitempty,gt=0"`
	SubmittedCode string `json:"submitted_code" validate:"required,min=1"`
}

// ManualGradeRequest carries a teacher's grade. Absent fields leave the
// corresponding submission fields untouched.
type ManualGradeRequest struct {
	Score    *float64 `json:"score" validate:"omitempty,gte=0"`
	Feedback *string  `json:"feedback" validate:"omitempty,max=5000"`
}

// SubmissionResponse represents a submission to API consumers.
type SubmissionResponse struct {
	ID                 uint      `json:"id"`
	SubmissionType     string    `json:"submission_type"`
	AssessmentID       *uint     `json:"assessment_id,omitempty"`
	QuizID             *uint     `json:"quiz_id,omitempty"`
	StudentID          uint      `json:"student_id"`
	SubmittedCode      string    `json:"submitted_code,omitempty"`
	SubmittedAt        time.Time `json:"submitted_at"`
	Score              *float64  `json:"score"`
	GradingStatus      string    `json:"grading_status"`
	AIFeedback         string    `json:"ai_feedback,omitempty"`
	InstructorFeedback string    `json:"instructor_feedback,omitempty"`
	IsViewed           bool      `json:"is_viewed"`
}

// AIGradeResponse is returned by the synchronous AI grading endpoint.
type AIGradeResponse struct {
	Score    *float64 `json:"ai_score"`
	Feedback string   `json:"ai_feedback"`
}

// NewSubmissionResponse builds a response DTO from a model. Source code is
// included only when the viewer is entitled to it.
func NewSubmissionResponse(submission models.Submission, includeCode bool) SubmissionResponse {
	response := SubmissionResponse{
		ID:                 submission.ID,
		SubmissionType:     submission.SubmissionType,
		AssessmentID:       submission.AssessmentID,
		QuizID:             submission.QuizID,
		StudentID:          submission.StudentID,
		SubmittedAt:        submission.SubmittedAt,
		Score:              submission.Score,
		GradingStatus:      submission.GradingStatus,
		AIFeedback:         submission.AIFeedback,
		InstructorFeedback: submission.InstructorFeedback,
		IsViewed:           submission.IsViewed,
	}

	if includeCode {
		response.SubmittedCode = submission.SubmittedCode
	}

	return response
}

// NewSubmissionResponseSlice maps a slice of models to DTOs.
func NewSubmissionResponseSlice(submissions []models.Submission, includeCode bool) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission, includeCode))
	}
	return responses
}
