package models

import "time"

// Submission types. Exactly one of AssessmentID/QuizID is set, matching the type.
const (
	SubmissionTypeAssessment = "ASSESSMENT"
	SubmissionTypeQuiz       = "QUIZ"
)

// Grading statuses. GradingStatus is the only field that encodes whether
// grading has completed; score and feedback are meaningful only when GRADED.
const (
	GradingStatusPending      = "PENDING"
	GradingStatusGraded       = "GRADED"
	GradingStatusRevalidation = "REVALIDATION_REQUESTED"
)

// Submission is one student attempt at an assessment or quiz. Created in
// PENDING state by intake; mutated by the grading dispatcher, the manual
// grading path, or the synchronous AI path. Version is an optimistic
// concurrency stamp: every grading write is a compare-and-swap against it.
type Submission struct {
	ID                 uint        `gorm:"primaryKey" json:"id"`
	SubmissionType     string      `gorm:"size:10;not null" json:"submission_type"`
	AssessmentID       *uint       `gorm:"index" json:"assessment_id"`
	QuizID             *uint       `gorm:"index" json:"quiz_id"`
	StudentID          uint        `gorm:"not null;index" json:"student_id"`
	GradedByID         *uint       `gorm:"index" json:"graded_by_id"`
	SubmittedCode      string      `gorm:"type:text;not null" json:"submitted_code"`
	SubmittedAt        time.Time   `gorm:"not null" json:"submitted_at"`
	Score              *float64    `json:"score"`
	GradingStatus      string      `gorm:"size:25;not null;default:PENDING" json:"grading_status"`
	AIFeedback         string      `gorm:"type:text" json:"ai_feedback"`
	InstructorFeedback string      `gorm:"type:text" json:"instructor_feedback"`
	IsViewed           bool        `gorm:"default:false" json:"is_viewed"`
	Version            int         `gorm:"not null;default:1" json:"-"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
	Assessment         *Assessment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Quiz               *Quiz       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Student            Student     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// IsGraded reports whether the submission holds a finalized grade.
func (s Submission) IsGraded() bool {
	return s.GradingStatus == GradingStatusGraded
}

// ManuallyGraded reports whether the current grade was applied by a teacher.
func (s Submission) ManuallyGraded() bool {
	return s.IsGraded() && s.GradedByID != nil
}
