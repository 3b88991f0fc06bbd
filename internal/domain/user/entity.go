// internal/domain/user/entity.go
package user

import "time"

// Identity is a user account with a role. Password hash lives in the
// credentials row and never leaves the repository layer.
type Identity struct {
	ID        int        `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      Role       `json:"role"`
	IsActive  bool       `json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	LastLogin *time.Time `json:"lastLogin"`
}

// Credentials pairs an identity with its stored bcrypt hash.
type Credentials struct {
	Identity     Identity
	PasswordHash string
}
