package model

// Role enum constants
const (
	RoleAdmin    = "admin"
	RoleVerifier = "verifier"
	RoleInserter = "inserter"
)

// User represents a staff account. The reserved guest account (IsGuest=true)
// owns every request submitted from the public kiosk.
type User struct {
	ID       int    `gorm:"primaryKey;autoIncrement" json:"id"`
	Username string `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	Password string `gorm:"type:varchar(255);not null" json:"-"` // Omit password from JSON requests/responses
	Role     string `gorm:"type:varchar(20);not null;default:'inserter'" json:"role"`
	IsGuest  bool   `gorm:"not null;default:false" json:"is_guest"`
}

// IsValidRole reports whether r is one of the known roles
func IsValidRole(r string) bool {
	return r == RoleAdmin || r == RoleVerifier || r == RoleInserter
}
