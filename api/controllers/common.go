package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/cablequotes-backend/api/middleware"
	pkgAuth "github.com/angelmondragon/cablequotes-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/cablequotes-backend/pkg/errors"
)

const tokenHeader = "X-CQ-Token"

func requireActor(r *http.Request) (pkgAuth.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return pkgAuth.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return actor, nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name).
			WithDetails(map[string]string{name: "must be a valid uuid"})
	}
	return id, nil
}

func parseBearerToken(r *http.Request) (string, error) {
	token, err := pkgAuth.BearerToken(r)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, err.Error())
	}
	return token, nil
}
