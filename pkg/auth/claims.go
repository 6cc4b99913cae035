package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID    uuid.UUID
	Username  string
	IsAdmin   bool
	CanDelete bool
	JTI       string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	IsAdmin   bool      `json:"is_admin"`
	CanDelete bool      `json:"can_delete"`
	jwt.RegisteredClaims
}

// Actor is the authenticated user a service call runs on behalf of.
type Actor struct {
	UserID    uuid.UUID
	Username  string
	IsAdmin   bool
	CanDelete bool
}

// Actor converts verified claims into an Actor.
func (c AccessTokenClaims) Actor() Actor {
	return Actor{
		UserID:    c.UserID,
		Username:  c.Username,
		IsAdmin:   c.IsAdmin,
		CanDelete: c.CanDelete,
	}
}

// Owns reports whether the actor is the owner recorded on a query.
func (a Actor) Owns(ownerID *uuid.UUID) bool {
	return ownerID != nil && *ownerID == a.UserID
}
