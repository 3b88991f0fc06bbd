// internal/domain/user/dto.go
package user

// LoginRequest for user login
type LoginRequest struct {
	Username  string `json:"username" binding:"required"`
	Password  string `json:"password" binding:"required"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse successful login response
type LoginResponse struct {
	Token string   `json:"token"`
	Type  string   `json:"type"`
	User  Identity `json:"user"`
}

// CreateUserRequest for admin user provisioning
type CreateUserRequest struct {
	Username string `json:"username" binding:"required,min=3"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     Role   `json:"role" binding:"required"`
	IsActive *bool  `json:"isActive"`
}

// UpdateUserRequest for admin user updates; nil fields are left unchanged.
type UpdateUserRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Role     *Role   `json:"role"`
	IsActive *bool   `json:"isActive"`
}
