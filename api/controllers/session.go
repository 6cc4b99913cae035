package controllers

import (
	"net/http"

	"github.com/angelmondragon/cablequotes-backend/api/responses"
	"github.com/angelmondragon/cablequotes-backend/api/validators"
	"github.com/angelmondragon/cablequotes-backend/internal/auth"
	pkgAuth "github.com/angelmondragon/cablequotes-backend/pkg/auth"
	"github.com/angelmondragon/cablequotes-backend/pkg/config"
	"github.com/angelmondragon/cablequotes-backend/pkg/errors"
	"github.com/angelmondragon/cablequotes-backend/pkg/logger"
)

// sessionID reads the jti of the presented access token; expiry is tolerated so a
// stale token can still be refreshed or logged out.
func sessionID(r *http.Request, cfg config.JWTConfig) (string, error) {
	token, err := parseBearerToken(r)
	if err != nil {
		return "", err
	}
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(cfg, token)
	if err != nil {
		return "", errors.Wrap(errors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return "", errors.New(errors.CodeUnauthorized, "missing session id")
	}
	return claims.ID, nil
}

// AuthLogout revokes the refresh mapping tied to the presented access token.
func AuthLogout(svc auth.Service, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accessID, err := sessionID(r, cfg)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Logout(r.Context(), accessID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

// AuthRefresh rotates the refresh token and issues a new access token.
func AuthRefresh(svc auth.Service, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body auth.RefreshRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		accessID, err := sessionID(r, cfg)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Refresh(r.Context(), accessID, body.RefreshToken)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		writeTokens(w, result.AccessToken)
		responses.WriteSuccess(w, result)
	}
}
