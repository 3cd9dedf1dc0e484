package model

import "time"

// Role is the dashboard a signed-in account may use.
type Role string

const (
	RoleStudent Role = "student"
	RoleWarden  Role = "warden"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleWarden || r == RoleAdmin
}

// Account is a sign-in identity. Role and BlockID are resolved once when the
// account is created; an empty Role marks an account imported without one.
type Account struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Email        string    `gorm:"uniqueIndex;size:256;not null" json:"email"`
	PasswordHash string    `gorm:"size:128;not null" json:"-"`
	Role         Role      `gorm:"size:16" json:"role"`
	BlockID      *int      `json:"block_id,omitempty"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}
