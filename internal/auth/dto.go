package auth

import (
	"github.com/angelmondragon/cablequotes-backend/internal/users"
)

// LoginRequest captures the credentials sent to the login endpoint. Login accepts either
// the username or the e-mail address.
type LoginRequest struct {
	Login    string `json:"login" validate:"required,max=120"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries the refresh token paired with the (possibly expired) access token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenResponse contains the tokens and user produced by a login or refresh.
type TokenResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
}
