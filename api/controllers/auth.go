package controllers

import (
	"net/http"

	"github.com/angelmondragon/cablequotes-backend/api/responses"
	"github.com/angelmondragon/cablequotes-backend/api/validators"
	"github.com/angelmondragon/cablequotes-backend/internal/auth"
	"github.com/angelmondragon/cablequotes-backend/pkg/logger"
)

// AuthLogin exchanges a username or email and password for a token pair. The access
// token is also returned in the X-CQ-Token header.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		writeTokens(w, result.AccessToken)
		responses.WriteSuccess(w, result)
	}
}

// AuthMe returns the profile of the authenticated user.
func AuthMe(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.Me(r.Context(), actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

func writeTokens(w http.ResponseWriter, accessToken string) {
	w.Header().Set(tokenHeader, accessToken)
	w.Header().Set("Cache-Control", "no-store")
}
