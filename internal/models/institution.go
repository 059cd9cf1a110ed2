package models

import "time"

// Institution is the tenancy anchor; every course belongs to exactly one.
type Institution struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Code      string    `gorm:"size:10;uniqueIndex;not null" json:"code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
