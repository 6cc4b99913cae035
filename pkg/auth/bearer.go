package auth

import (
	"errors"
	"net/http"
	"strings"
)

// ErrNoCredentials is returned when a request carries no access token.
var ErrNoCredentials = errors.New("missing credentials")

// BearerToken reads the access token from the Authorization header. The "Bearer"
// scheme is optional; older clients send the bare token.
func BearerToken(r *http.Request) (string, error) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if scheme, rest, ok := strings.Cut(raw, " "); ok && strings.EqualFold(scheme, "bearer") {
		raw = strings.TrimSpace(rest)
	}
	if raw == "" || strings.EqualFold(raw, "bearer") || strings.ContainsAny(raw, " \t") {
		return "", ErrNoCredentials
	}
	return raw, nil
}
