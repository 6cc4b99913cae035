package users

import (
	"time"

	"github.com/angelmondragon/cablequotes-backend/pkg/db/models"
	"github.com/google/uuid"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	Username    string     `json:"username"`
	Email       *string    `json:"email,omitempty"`
	Market      *string    `json:"market,omitempty"`
	IsAdmin     bool       `json:"is_admin"`
	CanDelete   bool       `json:"can_delete"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateUserInput is the admin form for a new account. An empty password makes the
// service generate a temporary one.
type CreateUserInput struct {
	Username  string  `json:"username" validate:"required,min=2,max=80"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Market    *string `json:"market" validate:"omitempty,max=80"`
	Password  string  `json:"password" validate:"omitempty,min=6"`
	IsAdmin   bool    `json:"is_admin"`
	CanDelete bool    `json:"can_delete"`
}

// UpdateUserInput carries the fields an admin may change; nil leaves a field untouched.
type UpdateUserInput struct {
	Username  *string `json:"username" validate:"omitempty,min=2,max=80"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Market    *string `json:"market" validate:"omitempty,max=80"`
	Password  *string `json:"password" validate:"omitempty,min=6"`
	IsAdmin   *bool   `json:"is_admin"`
	CanDelete *bool   `json:"can_delete"`
}

// CreateResult returns the new user and, when one was generated, its temporary password.
type CreateResult struct {
	User              *UserDTO `json:"user"`
	TemporaryPassword string   `json:"temporary_password,omitempty"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Market:      u.Market,
		IsAdmin:     u.IsAdmin,
		CanDelete:   u.CanDelete,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
