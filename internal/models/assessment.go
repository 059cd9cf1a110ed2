package models

import (
	"time"

	"gorm.io/datatypes"
)

// Assessment is a graded coding exercise with a deadline. The instructor
// solution and grading rubric live here; submissions reference them rather
// than duplicating them.
type Assessment struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	CourseID           uint           `gorm:"not null;index" json:"course_id"`
	Title              string         `gorm:"size:200;not null" json:"title"`
	Description        string         `gorm:"type:text" json:"description"`
	QuestionArea       string         `gorm:"type:text" json:"question_area"`
	InstructorSolution string         `gorm:"type:text" json:"instructor_solution"`
	UseAIGrading       bool           `gorm:"default:false" json:"use_ai_grading"`
	AIGradingParams    datatypes.JSON `json:"ai_grading_parameters"`
	MaxScore           int            `gorm:"default:100" json:"max_score"`
	DueDate            *time.Time     `json:"due_date"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	Course             Course         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// IsPastDue reports whether the deadline has passed at the reference time.
func (a Assessment) IsPastDue(reference time.Time) bool {
	return a.DueDate != nil && reference.After(*a.DueDate)
}

// Quiz is a timed coding exercise. Structurally close to Assessment but kept
// as a separate table, matching the submission type split.
type Quiz struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	CourseID           uint           `gorm:"not null;index" json:"course_id"`
	Title              string         `gorm:"size:200;not null" json:"title"`
	Description        string         `gorm:"type:text" json:"description"`
	QuestionArea       string         `gorm:"type:text" json:"question_area"`
	InstructorSolution string         `gorm:"type:text" json:"instructor_solution"`
	UseAIGrading       bool           `gorm:"default:false" json:"use_ai_grading"`
	AIGradingParams    datatypes.JSON `json:"ai_grading_parameters"`
	MaxScore           int            `gorm:"default:100" json:"max_score"`
	ShowScores         bool           `gorm:"default:false" json:"show_scores"`
	TimeLimitMinutes   *int           `json:"time_limit_minutes"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	Course             Course         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
