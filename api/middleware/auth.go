package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/cablequotes-backend/api/responses"
	pkgAuth "github.com/angelmondragon/cablequotes-backend/pkg/auth"
	"github.com/angelmondragon/cablequotes-backend/pkg/auth/session"
	"github.com/angelmondragon/cablequotes-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/cablequotes-backend/pkg/errors"
	"github.com/angelmondragon/cablequotes-backend/pkg/logger"
)

// Auth admits requests whose access token verifies and whose session has not been
// revoked. The actor and jti are stored on the request context.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := verify(r.Context(), r, cfg, sessions)
			if err != nil {
				if pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
					w.Header().Set("WWW-Authenticate", `Bearer realm="cablequotes"`)
				}
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			actor := claims.Actor()
			ctx := withAccessID(WithActor(r.Context(), actor), claims.ID)
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":  actor.UserID.String(),
					"username": actor.Username,
				})
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func verify(ctx context.Context, r *http.Request, cfg config.JWTConfig, sessions session.AccessSessionChecker) (*pkgAuth.AccessTokenClaims, error) {
	token, err := pkgAuth.BearerToken(r)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	if sessions == nil {
		return claims, nil
	}
	live, err := sessions.HasSession(ctx, claims.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
	}
	if !live {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session revoked")
	}
	return claims, nil
}
