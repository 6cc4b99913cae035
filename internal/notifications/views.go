package notifications

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/cablequotes-backend/internal/queries"
	"github.com/angelmondragon/cablequotes-backend/pkg/db/models"
	"github.com/angelmondragon/cablequotes-backend/pkg/timeutil"
	"github.com/shopspring/decimal"
)

// ResponsePair is a cable together with the response recorded for it.
type ResponsePair struct {
	Cable    models.Cable
	Response models.CableResponse
}

type queryView struct {
	Name          string
	Market        string
	Client        string
	Investment    string
	Packaging     string
	PreferredDate string
	SubmittedAt   string
	Notes         string
	Cables        []cableView
}

type cableView struct {
	CableType       string
	Voltage         string
	Length          int
	Packaging       string
	SpecificLengths string
	Comments        string
}

type responseView struct {
	CableType     string
	Length        int
	PriceClient   string
	PricePurchase string
	Manufacturer  string
	DeliveryStart string
	DeliveryEnd   string
	ValidityDate  string
	Comments      string
}

func newQueryView(q *models.Query) queryView {
	v := queryView{
		Name:          q.Name,
		Market:        q.Market,
		Client:        q.Client,
		Investment:    deref(q.Investment),
		Packaging:     deref(q.Packaging),
		PreferredDate: displayDate(models.FormatDate(q.PreferredDate)),
		SubmittedAt:   timeutil.ToLocal(q.SubmittedAt).Format("02.01.2006 15:04"),
		Notes:         deref(q.Notes),
		Cables:        make([]cableView, 0, len(q.Cables)),
	}
	for i := range q.Cables {
		c := &q.Cables[i]
		v.Cables = append(v.Cables, cableView{
			CableType:       c.CableType,
			Voltage:         deref(c.Voltage),
			Length:          c.Length,
			Packaging:       c.Packaging,
			SpecificLengths: lengthsLabel(c),
			Comments:        deref(c.Comments),
		})
	}
	return v
}

func newResponseViews(pairs []ResponsePair) []responseView {
	out := make([]responseView, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, responseView{
			CableType:     p.Cable.CableType,
			Length:        p.Cable.Length,
			PriceClient:   price(p.Response.PricePerMeterClient),
			PricePurchase: price(p.Response.PricePerMeterBuy),
			Manufacturer:  deref(p.Response.Manufacturer),
			DeliveryStart: displayDate(models.FormatDate(p.Response.DeliveryStart)),
			DeliveryEnd:   displayDate(models.FormatDate(p.Response.DeliveryEnd)),
			ValidityDate:  displayDate(models.FormatDate(p.Response.ValidityDate)),
			Comments:      deref(p.Response.Comments),
		})
	}
	return out
}

func lengthsLabel(c *models.Cable) string {
	lengths, err := queries.DecodeSpecificLengths(c.SpecificLengths)
	if err != nil || len(lengths) == 0 {
		return ""
	}
	parts := make([]string, 0, len(lengths))
	for _, l := range lengths {
		parts = append(parts, fmt.Sprintf("%d m", l))
	}
	return strings.Join(parts, ", ")
}

func price(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// displayDate turns YYYY-MM-DD into DD.MM.YYYY.
func displayDate(value string) string {
	t, err := timeutil.ParseDate(value)
	if err != nil {
		return value
	}
	return t.Format("02.01.2006")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
