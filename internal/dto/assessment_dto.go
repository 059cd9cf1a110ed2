package dto

import (
	"encoding/json"
	"time"

	"github.com/codegrade/codegrade-api/internal/models"
)

// AssessmentCreateRequest carries a teacher's new assessment definition.
type AssessmentCreateRequest struct {
	CourseID           uint            `json:"course_id" validate:"required,gt=0"`
	Title              string          `json:"title" validate:"required,max=200"`
	Description        string          `json:"description" validate:"omitempty"`
	QuestionArea       string          `json:"question_area" validate:"omitempty"`
	InstructorSolution string          `json:"instructor_solution" validate:"omitempty"`
	UseAIGrading       bool            `json:"use_ai_grading"`
	AIGradingParams    json.RawMessage `json:"ai_grading_parameters" validate:"omitempty"`
	MaxScore           int             `json:"max_score" validate:"omitempty,gt=0"`
	DueDate            *time.Time      `json:"due_date" validate:"omitempty"`
}

// QuizCreateRequest carries a teacher's new quiz definition.
type QuizCreateRequest struct {
	CourseID           uint            `json:"course_id" validate:"required,gt=0"`
	Title              string          `json:"title" validate:"required,max=200"`
	Description        string          `json:"description" validate:"omitempty"`
	QuestionArea       string          `json:"question_area" validate:"omitempty"`
	InstructorSolution string          `json:"instructor_solution" validate:"omitempty"`
	UseAIGrading       bool            `json:"use_ai_grading"`
	AIGradingParams    json.RawMessage `json:"ai_grading_parameters" validate:"omitempty"`
	MaxScore           int             `json:"max_score" validate:"omitempty,gt=0"`
	TimeLimitMinutes   *int            `json:"time_limit_minutes" validate:"omitempty,gt=0"`
}

// AssessmentResponse represents an assessment to API consumers. The
// instructor solution is never exposed to students.
type AssessmentResponse struct {
	ID                 uint            `json:"id"`
	CourseID           uint            `json:"course_id"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	QuestionArea       string          `json:"question_area"`
	InstructorSolution string          `json:"instructor_solution,omitempty"`
	UseAIGrading       bool            `json:"use_ai_grading"`
	AIGradingParams    json.RawMessage `json:"ai_grading_parameters,omitempty"`
	MaxScore           int             `json:"max_score"`
	DueDate            *time.Time      `json:"due_date"`
	CreatedAt          time.Time       `json:"created_at"`
}

// QuizResponse represents a quiz to API consumers.
type QuizResponse struct {
	ID                 uint            `json:"id"`
	CourseID           uint            `json:"course_id"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	QuestionArea       string          `json:"question_area"`
	InstructorSolution string          `json:"instructor_solution,omitempty"`
	UseAIGrading       bool            `json:"use_ai_grading"`
	AIGradingParams    json.RawMessage `json:"ai_grading_parameters,omitempty"`
	MaxScore           int             `json:"max_score"`
	ShowScores         bool            `json:"show_scores"`
	TimeLimitMinutes   *int            `json:"time_limit_minutes"`
	CreatedAt          time.Time       `json:"created_at"`
}

// NewAssessmentResponse builds a response DTO from a model.
func NewAssessmentResponse(assessment models.Assessment, includeSolution bool) AssessmentResponse {
	response := AssessmentResponse{
		ID:           assessment.ID,
		CourseID:     assessment.CourseID,
		Title:        assessment.Title,
		Description:  assessment.Description,
		QuestionArea: assessment.QuestionArea,
		UseAIGrading: assessment.UseAIGrading,
		MaxScore:     assessment.MaxScore,
		DueDate:      assessment.DueDate,
		CreatedAt:    assessment.CreatedAt,
	}

	if includeSolution {
		response.InstructorSolution = assessment.InstructorSolution
		response.AIGradingParams = json.RawMessage(assessment.AIGradingParams)
	}

	return response
}

// NewQuizResponse builds a response DTO from a model.
func NewQuizResponse(quiz models.Quiz, includeSolution bool) QuizResponse {
	response := QuizResponse{
		ID:               quiz.ID,
		CourseID:         quiz.CourseID,
		Title:            quiz.Title,
		Description:      quiz.Description,
		QuestionArea:     quiz.QuestionArea,
		UseAIGrading:     quiz.UseAIGrading,
		MaxScore:         quiz.MaxScore,
		ShowScores:       quiz.ShowScores,
		TimeLimitMinutes: quiz.TimeLimitMinutes,
		CreatedAt:        quiz.CreatedAt,
	}

	if includeSolution {
		response.InstructorSolution = quiz.InstructorSolution
		response.AIGradingParams = json.RawMessage(quiz.AIGradingParams)
	}

	return response
}
