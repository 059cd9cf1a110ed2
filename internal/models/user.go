package models

import "time"

// Roles carried in JWT claims. Token issuance lives in a separate service;
// this API only consumes the role.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// Teacher represents an instructor who owns courses and grades submissions.
type Teacher struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	InstitutionID *uint     `gorm:"index" json:"institution_id"`
	Name          string    `gorm:"size:255;not null" json:"name"`
	Email         string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Student represents a learner that can enroll in courses and submit code.
type Student struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	InstitutionID *uint     `gorm:"index" json:"institution_id"`
	Name          string    `gorm:"size:255;not null" json:"name"`
	Email         string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
