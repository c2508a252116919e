package domain

import "time"

// User roles
const (
	RoleUser   = "user"   // Regular customer
	RoleEditor = "editor" // Content editor, moderates community posts
	RoleAdmin  = "admin"  // Full back-office access
)

// ValidRole reports whether role is one of the known roles
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleEditor || role == RoleAdmin
}

// User Model
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`                        // Primary key
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"email"`  // Unique, lower-cased email
	Password  string    `gorm:"not null" json:"-"`                           // Hashed password
	FullName  string    `gorm:"size:255" json:"full_name"`                   // Display name
	Phone     string    `gorm:"size:32" json:"phone"`                        // Contact phone
	Address   string    `gorm:"size:512" json:"address"`                     // Default shipping address
	Role      string    `gorm:"size:16;default:user;index" json:"role"`      // Role: user, editor or admin
	CreatedAt time.Time `json:"created_at"`                                  // Registration time
	UpdatedAt time.Time `json:"updated_at"`                                  // Last profile change
}
