package controllers

import (
	"net/http"

	"github.com/angelmondragon/cablequotes-backend/api/responses"
	"github.com/angelmondragon/cablequotes-backend/api/validators"
	cableresponses "github.com/angelmondragon/cablequotes-backend/internal/responses"
	"github.com/angelmondragon/cablequotes-backend/pkg/logger"
)

// ResponsePending lists the cables of a query still waiting for an offer.
func ResponsePending(svc cableresponses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := uuidParam(r, queryIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cables, err := svc.Pending(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cables)
	}
}

// ResponseRecord stores offers for every pending cable of a query in one batch.
func ResponseRecord(svc cableresponses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := uuidParam(r, queryIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithQueryID(ctx, id.String())
		}

		var body cableresponses.RecordInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		item, err := svc.Record(ctx, actor, id, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}
