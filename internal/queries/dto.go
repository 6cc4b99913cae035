package queries

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/cablequotes-backend/pkg/db/models"
	"github.com/angelmondragon/cablequotes-backend/pkg/enums"
	"github.com/angelmondragon/cablequotes-backend/pkg/timeutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// QueryDTO is the API shape of a query header with its cables.
type QueryDTO struct {
	ID            uuid.UUID        `json:"id"`
	OwnerID       *uuid.UUID       `json:"owner_id,omitempty"`
	Name          string           `json:"name"`
	Market        string           `json:"market"`
	Client        string           `json:"client"`
	Investment    *string          `json:"investment,omitempty"`
	Packaging     *string          `json:"packaging,omitempty"`
	PreferredDate string           `json:"preferred_date"`
	Comments      *string          `json:"comments,omitempty"`
	SubmittedAt   time.Time        `json:"submitted_at"`
	SaleStatus    enums.SaleStatus `json:"sale_status"`
	IsWon         *bool            `json:"is_won"`
	Cables        []CableDTO       `json:"cables"`
}

type CableDTO struct {
	ID              uuid.UUID    `json:"id"`
	CableType       string       `json:"cable_type"`
	Voltage         *string      `json:"voltage,omitempty"`
	Length          int          `json:"length"`
	Packaging       string       `json:"packaging"`
	SpecificLengths []int        `json:"specific_lengths,omitempty"`
	Comments        *string      `json:"comments,omitempty"`
	Response        *ResponseDTO `json:"response"`
}

type ResponseDTO struct {
	ID                  uuid.UUID       `json:"id"`
	PricePerMeterClient decimal.Decimal `json:"price_per_meter_client"`
	PricePerMeterBuy    decimal.Decimal `json:"price_per_meter_purchase"`
	Manufacturer        *string         `json:"manufacturer,omitempty"`
	DeliveryStart       string          `json:"delivery_date_start"`
	DeliveryEnd         string          `json:"delivery_date_end"`
	ValidityDate        string          `json:"validity_date"`
	Comments            *string         `json:"comments,omitempty"`
	RespondedAt         time.Time       `json:"responded_at"`
}

// FeedItem is one row of the dashboard or archive listing.
type FeedItem struct {
	Query            QueryDTO `json:"query"`
	Elapsed          Duration `json:"elapsed"`
	IsOverdue        bool     `json:"is_overdue"`
	IsFullyResponded bool     `json:"is_fully_responded"`
	UnreadComments   int      `json:"unread_comments_count"`
}

// FilterOptions lists the values offered by archive filters.
type FilterOptions struct {
	Names   []string `json:"names"`
	Markets []string `json:"markets"`
}

// ToDTO maps a loaded query into its API form.
func ToDTO(q *models.Query) (QueryDTO, error) {
	if q == nil {
		return QueryDTO{}, fmt.Errorf("query is nil")
	}
	if q.SubmittedAt.IsZero() {
		return QueryDTO{}, fmt.Errorf("query %s has no submission time", q.ID)
	}
	dto := QueryDTO{
		ID:            q.ID,
		OwnerID:       q.OwnerID,
		Name:          q.Name,
		Market:        q.Market,
		Client:        q.Client,
		Investment:    q.Investment,
		Packaging:     q.Packaging,
		PreferredDate: models.FormatDate(q.PreferredDate),
		Comments:      q.Notes,
		SubmittedAt:   timeutil.ToLocal(q.SubmittedAt),
		SaleStatus:    enums.SaleStatusFromFlag(q.IsWon),
		IsWon:         q.IsWon,
		Cables:        make([]CableDTO, 0, len(q.Cables)),
	}
	for i := range q.Cables {
		c, err := cableToDTO(&q.Cables[i])
		if err != nil {
			return QueryDTO{}, fmt.Errorf("query %s: %w", q.ID, err)
		}
		dto.Cables = append(dto.Cables, c)
	}
	return dto, nil
}

func cableToDTO(c *models.Cable) (CableDTO, error) {
	lengths, err := DecodeSpecificLengths(c.SpecificLengths)
	if err != nil {
		return CableDTO{}, fmt.Errorf("cable %s: %w", c.ID, err)
	}
	dto := CableDTO{
		ID:              c.ID,
		CableType:       c.CableType,
		Voltage:         c.Voltage,
		Length:          c.Length,
		Packaging:       c.Packaging,
		SpecificLengths: lengths,
		Comments:        c.Comments,
	}
	if r := c.Response; r != nil {
		dto.Response = &ResponseDTO{
			ID:                  r.ID,
			PricePerMeterClient: r.PricePerMeterClient,
			PricePerMeterBuy:    r.PricePerMeterBuy,
			Manufacturer:        r.Manufacturer,
			DeliveryStart:       models.FormatDate(r.DeliveryStart),
			DeliveryEnd:         models.FormatDate(r.DeliveryEnd),
			ValidityDate:        models.FormatDate(r.ValidityDate),
			Comments:            r.Comments,
			RespondedAt:         timeutil.ToLocal(r.RespondedAt),
		}
	}
	return dto, nil
}

// DecodeSpecificLengths reads the stored exact-cut breakdown.
func DecodeSpecificLengths(raw datatypes.JSON) ([]int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var out []int
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode specific lengths: %w", err)
	}
	return out, nil
}

// EncodeSpecificLengths stores an exact-cut breakdown; empty input stores nothing.
func EncodeSpecificLengths(lengths []int) datatypes.JSON {
	if len(lengths) == 0 {
		return nil
	}
	raw, _ := json.Marshal(lengths)
	return datatypes.JSON(raw)
}

// BuildItem derives the listing fields for one loaded query.
func BuildItem(q *models.Query, now time.Time) (FeedItem, error) {
	dto, err := ToDTO(q)
	if err != nil {
		return FeedItem{}, err
	}
	return FeedItem{
		Query:            dto,
		Elapsed:          Elapsed(q, now),
		IsOverdue:        IsOverdue(q, now),
		IsFullyResponded: IsFullyResponded(q),
		UnreadComments:   UnreadCommentCount(q),
	}, nil
}
