package dto

import (
	"time"

	"github.com/spec-kit/car-service/internal/domain"
)

// UserResponse is the account shape returned by the API.
type UserResponse struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Phone     string      `json:"phone,omitempty"`
	Address   string      `json:"address,omitempty"`
	Active    bool        `json:"active"`
	LastLogin *time.Time  `json:"last_login,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// CreateUserRequest is the admin account creation payload.
type CreateUserRequest struct {
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	Password  string      `json:"password"`
	Role      domain.Role `json:"role"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Phone     string      `json:"phone"`
	Address   string      `json:"address"`
}

// UpdateUserRequest carries admin edits; omitted fields stay unchanged.
type UpdateUserRequest struct {
	Email     *string      `json:"email"`
	Role      *domain.Role `json:"role"`
	FirstName *string      `json:"first_name"`
	LastName  *string      `json:"last_name"`
	Phone     *string      `json:"phone"`
	Address   *string      `json:"address"`
	Active    *bool        `json:"active"`
}

// ResetPasswordRequest is the admin password reset payload.
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password"`
}

// UpdateProfileRequest carries self-service profile edits.
type UpdateProfileRequest struct {
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
}
