package responses

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/angelmondragon/cablequotes-backend/internal/schedule"
	"github.com/angelmondragon/cablequotes-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/cablequotes-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	manufacturerMaxLen = 100
	commentsMaxLen     = 500
)

// RecordInput answers the unanswered cables of one query.
type RecordInput struct {
	Answers []CableAnswer `json:"responses" validate:"required,min=1,dive"`
}

// CableAnswer is the admin's offer for a single cable. Prices accept a decimal comma.
type CableAnswer struct {
	CableID        uuid.UUID `json:"cable_id" validate:"required"`
	PriceClient    string    `json:"price_per_meter_client"`
	PricePurchase  string    `json:"price_per_meter_purchase"`
	Manufacturer   *string   `json:"manufacturer"`
	DeliveryOption string    `json:"delivery_option"`
	DeliveryDate   string    `json:"delivery_date"`
	ValidityOption string    `json:"validity_option"`
	Comments       *string   `json:"comments"`
}

// build validates every answer against the pending cables and returns the rows to insert.
// All problems are collected before returning.
func build(pending []models.Cable, answers []CableAnswer, calc schedule.Calculator) ([]models.CableResponse, error) {
	errs := pkgerrors.FieldErrors{}

	byCable := make(map[uuid.UUID]CableAnswer, len(answers))
	for i, a := range answers {
		if _, dup := byCable[a.CableID]; dup {
			errs.Add(fmt.Sprintf("responses[%d].cable_id", i), "duplicate answer for cable")
			continue
		}
		byCable[a.CableID] = a
	}
	pendingIDs := make(map[uuid.UUID]struct{}, len(pending))
	for _, c := range pending {
		pendingIDs[c.ID] = struct{}{}
	}
	for i, a := range answers {
		if _, ok := pendingIDs[a.CableID]; !ok {
			errs.Add(fmt.Sprintf("responses[%d].cable_id", i), "cable is not awaiting a response")
		}
	}

	out := make([]models.CableResponse, 0, len(pending))
	for i, cable := range pending {
		prefix := fmt.Sprintf("cables[%d]", i)
		a, ok := byCable[cable.ID]
		if !ok {
			errs.Add(prefix, "response is required")
			continue
		}

		client, clientOK := parsePrice(errs, prefix+".price_per_meter_client", a.PriceClient)
		purchase, purchaseOK := parsePrice(errs, prefix+".price_per_meter_purchase", a.PricePurchase)

		option := strings.TrimSpace(a.DeliveryOption)
		var windowOK bool
		resp := models.CableResponse{CableID: cable.ID}
		if option == "" {
			errs.Add(prefix+".delivery_option", "is required")
		} else if option == schedule.OptionCustom && strings.TrimSpace(a.DeliveryDate) == "" {
			errs.Add(prefix+".delivery_date", "is required for a custom delivery")
		} else if start, end, err := calc.DeliveryWindow(option, strings.TrimSpace(a.DeliveryDate)); err != nil {
			errs.Add(prefix+".delivery_option", fieldMessage(err))
		} else {
			resp.DeliveryStart = models.NewDate(start)
			resp.DeliveryEnd = models.NewDate(end)
			windowOK = true
		}

		var validityOK bool
		if strings.TrimSpace(a.ValidityOption) == "" {
			errs.Add(prefix+".validity_option", "is required")
		} else if validity, err := calc.ValidityDate(a.ValidityOption); err != nil {
			errs.Add(prefix+".validity_option", fieldMessage(err))
		} else {
			resp.ValidityDate = models.NewDate(validity)
			validityOK = true
		}

		if a.Manufacturer != nil && utf8.RuneCountInString(strings.TrimSpace(*a.Manufacturer)) > manufacturerMaxLen {
			errs.Add(prefix+".manufacturer", fmt.Sprintf("must be at most %d characters", manufacturerMaxLen))
		}
		if a.Comments != nil && utf8.RuneCountInString(strings.TrimSpace(*a.Comments)) > commentsMaxLen {
			errs.Add(prefix+".comments", fmt.Sprintf("must be at most %d characters", commentsMaxLen))
		}

		if !(clientOK && purchaseOK && windowOK && validityOK) {
			continue
		}
		resp.PricePerMeterClient = client
		resp.PricePerMeterBuy = purchase
		resp.Manufacturer = trimmedOrNil(a.Manufacturer)
		resp.Comments = withWarehouseNote(option, a.Comments)
		out = append(out, resp)
	}

	if err := errs.Err("invalid responses"); err != nil {
		return nil, err
	}
	return out, nil
}

func parsePrice(errs pkgerrors.FieldErrors, field, raw string) (decimal.Decimal, bool) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if raw == "" {
		errs.Add(field, "is required")
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		errs.Add(field, "must be a number")
		return decimal.Zero, false
	}
	d = d.Round(2)
	if !d.IsPositive() {
		errs.Add(field, "must be at least 0.01")
		return decimal.Zero, false
	}
	return d, true
}

func withWarehouseNote(option string, comments *string) *string {
	note := schedule.WarehouseNote(option)
	body := ""
	if comments != nil {
		body = *comments
	}
	text := strings.TrimSpace(note + body)
	if text == "" {
		return nil
	}
	return &text
}

func fieldMessage(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Message()
	}
	return err.Error()
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
