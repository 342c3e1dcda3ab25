package model

import (
	"time"
)

// Request status enum constants
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// Request represents a single patient registration tracked through the queue.
// It is created pending (by staff or a kiosk guest) and moves to completed
// when a verifier or admin processes it.
type Request struct {
	ID            int        `gorm:"primaryKey;autoIncrement" json:"id"`
	FullName      string     `gorm:"type:varchar(100);not null" json:"full_name"`
	NationalID    int64      `gorm:"not null" json:"national_id"`
	MedicalNumber *int64     `json:"medical_number"`
	Notes         *string    `gorm:"type:varchar(255)" json:"notes"`
	Status        string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CreatedBy     int        `gorm:"index" json:"-"`
	Creator       *User      `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	AssignedTo    *int       `gorm:"index" json:"-"`
	Assignee      *Assignee  `gorm:"foreignKey:AssignedTo" json:"assignee"`
	CreatedAt     time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     *time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
}

// IsValidStatus reports whether s is one of the known request states
func IsValidStatus(s string) bool {
	return s == StatusPending || s == StatusCompleted
}
