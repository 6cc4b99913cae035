package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/angelmondragon/cablequotes-backend/api/responses"
	"github.com/angelmondragon/cablequotes-backend/api/validators"
	"github.com/angelmondragon/cablequotes-backend/internal/queries"
	"github.com/angelmondragon/cablequotes-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cablequotes-backend/pkg/errors"
	"github.com/angelmondragon/cablequotes-backend/pkg/logger"
)

const (
	queryIDParam   = "queryID"
	searchMaxRunes = 100
)

type queryRequest struct {
	Name          string         `json:"name"`
	Market        string         `json:"market"`
	Client        string         `json:"client"`
	Investment    *string        `json:"investment"`
	Packaging     *string        `json:"packaging"`
	PreferredDate string         `json:"preferred_date"`
	Comments      *string        `json:"comments"`
	Cables        []cableRequest `json:"cables"`
}

type cableRequest struct {
	CableType       string  `json:"cable_type"`
	Voltage         *string `json:"voltage"`
	Length          int     `json:"length"`
	Packaging       string  `json:"packaging"`
	SpecificLengths []int   `json:"specific_lengths"`
	Comments        *string `json:"comments"`
}

func (q queryRequest) toInput() queries.QueryInput {
	cables := make([]queries.CableInput, 0, len(q.Cables))
	for _, c := range q.Cables {
		cables = append(cables, queries.CableInput{
			CableType:       c.CableType,
			Voltage:         c.Voltage,
			Length:          c.Length,
			Packaging:       c.Packaging,
			SpecificLengths: c.SpecificLengths,
			Comments:        c.Comments,
		})
	}
	return queries.QueryInput{
		Name:          q.Name,
		Market:        q.Market,
		Client:        q.Client,
		Investment:    q.Investment,
		Packaging:     q.Packaging,
		PreferredDate: q.PreferredDate,
		Comments:      q.Comments,
		Cables:        cables,
	}
}

// saleStatusRequest accepts is_won as true, false or null, or one of won/lost/pending.
type saleStatusRequest struct {
	IsWon json.RawMessage `json:"is_won"`
}

type deleteResponse struct {
	Deleted   bool  `json:"deleted"`
	Cables    int64 `json:"cables"`
	Responses int64 `json:"responses"`
	Comments  int64 `json:"comments"`
}

// QueryFeed lists the dashboard feed filtered by ?status=pending|answered|all.
func QueryFeed(svc queries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := enums.ParseFeedStatus(r.URL.Query().Get("status"))
		items, err := svc.Feed(r.Context(), status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// QueryArchive lists queries older than a week with the archive filters applied.
func QueryArchive(svc queries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := r.URL.Query()
		filter := queries.ArchiveFilter{
			Timeframe: enums.ParseArchiveTimeframe(params.Get("timeframe")),
			Name:      validators.SanitizeString(params.Get("name"), searchMaxRunes),
			Market:    validators.SanitizeString(params.Get("market"), searchMaxRunes),
			Client:    validators.SanitizeString(params.Get("client"), searchMaxRunes),
			CableType: validators.SanitizeString(params.Get("cable_type"), searchMaxRunes),
		}
		if raw := strings.TrimSpace(params.Get("is_won")); raw != "" {
			status, err := enums.ParseSaleStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid is_won filter").
					WithDetails(map[string]string{"is_won": "must be true, false or null"}))
				return
			}
			filter.Sale = &status
		}

		items, err := svc.Archive(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func QueryArchiveFilters(svc queries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		options, err := svc.FilterOptions(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, options)
	}
}

func QueryGet(svc queries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, queryIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func QueryCreate(svc queries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body queryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		created, err := svc.Create(r.Context(), actor, body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func QueryUpdate(svc queries.Service, logg *logger.Logger) http.HandlerFunc {
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
		var body queryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := svc.Update(r.Context(), actor, id, body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func QuerySaleStatus(svc queries.Service, logg *logger.Logger) http.HandlerFunc {
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
		var body saleStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseSaleStatus(strings.Trim(string(body.IsWon), `"`))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sale status").
				WithDetails(map[string]string{"is_won": "must be true, false or null"}))
			return
		}
		if err := svc.SetSaleStatus(r.Context(), actor, id, status); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "sale_status": status, "is_won": status.Flag()})
	}
}

func QueryDuplicate(svc queries.Service, logg *logger.Logger) http.HandlerFunc {
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
		copied, err := svc.Duplicate(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, copied)
	}
}

func QueryDelete(svc queries.Service, logg *logger.Logger) http.HandlerFunc {
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
		result, err := svc.Delete(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, deleteResponse{
			Deleted:   true,
			Cables:    result.Cables,
			Responses: result.Responses,
			Comments:  result.Comments,
		})
	}
}
