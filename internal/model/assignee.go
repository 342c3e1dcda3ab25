package model

// Assignee is a staff member a completed request can be delegated to.
// Requests hold a weak reference by id plus the denormalized display name.
type Assignee struct {
	ID       int    `gorm:"primaryKey;autoIncrement" json:"id"`
	FullName string `gorm:"type:varchar(100);not null" json:"full_name"`
}
