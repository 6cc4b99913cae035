package controllers

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/cablequotes-backend/api/responses"
	"github.com/angelmondragon/cablequotes-backend/internal/directory"
	pkgerrors "github.com/angelmondragon/cablequotes-backend/pkg/errors"
	"github.com/angelmondragon/cablequotes-backend/pkg/logger"
)

// Directory is the cached market and salesperson lookup.
type Directory interface {
	Get() directory.Snapshot
	Refresh(ctx context.Context) (directory.Snapshot, error)
}

func DirectoryMarkets(dir Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, dir.Get().Markets)
	}
}

// DirectorySalespersons lists the salespersons of the market in the path; an unknown
// market yields an empty list.
func DirectorySalespersons(dir Directory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		market, err := url.PathUnescape(chi.URLParam(r, "market"))
		if err != nil || strings.TrimSpace(market) == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "market is required").
				WithDetails(map[string]string{"market": "is required"}))
			return
		}
		responses.WriteSuccess(w, dir.Get().SalespersonsFor(strings.TrimSpace(market)))
	}
}

// DirectoryRefresh reloads the directory. A failed reload keeps serving the previous
// snapshot and reports a dependency error.
func DirectoryRefresh(dir Directory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := dir.Refresh(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh directory"))
			return
		}
		responses.WriteSuccess(w, snap)
	}
}
