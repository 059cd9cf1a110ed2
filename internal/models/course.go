package models

import "time"

// Course groups assessments and quizzes under one teacher.
type Course struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	InstitutionID uint        `gorm:"not null;index" json:"institution_id"`
	TeacherID     uint        `gorm:"not null;index" json:"teacher_id"`
	Title         string      `gorm:"size:300;not null" json:"title"`
	Description   string      `gorm:"type:text" json:"description"`
	ImageURL      string      `gorm:"size:512" json:"image_url"`
	JoinCode      string      `gorm:"size:12;uniqueIndex;not null" json:"join_code"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	Institution   Institution `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Teacher       Teacher     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// CourseEnrollment links a student to a course. One row per pair.
type CourseEnrollment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CourseID   uint      `gorm:"not null;uniqueIndex:idx_course_student" json:"course_id"`
	StudentID  uint      `gorm:"not null;uniqueIndex:idx_course_student" json:"student_id"`
	EnrolledAt time.Time `json:"enrolled_at"`
	Course     Course    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Student    Student   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
