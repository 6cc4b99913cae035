package reports

import (
	"math"
	"time"

	"github.com/angelmondragon/cablequotes-backend/internal/queries"
	"github.com/angelmondragon/cablequotes-backend/pkg/db/models"
	"github.com/angelmondragon/cablequotes-backend/pkg/timeutil"
	"github.com/google/uuid"
)

// Stats aggregates queries submitted within [StartDate, EndDate].
type Stats struct {
	StartDate         time.Time         `json:"start_date"`
	EndDate           time.Time         `json:"end_date"`
	TotalQueries      int               `json:"total_queries"`
	SoldQueries       int               `json:"sold_queries"`
	LostQueries       int               `json:"lost_queries"`
	PendingQueries    int               `json:"pending_queries"`
	UnansweredQueries []UnansweredQuery `json:"unanswered_queries"`
	AvgResponseTime   float64           `json:"avg_response_time"`
}

// UnansweredQuery is the drill-down row for a query still waiting for prices.
type UnansweredQuery struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Market       string    `json:"market"`
	Client       string    `json:"client"`
	SubmittedAt  time.Time `json:"submitted_at"`
	Cables       int       `json:"cables"`
	HoursWaiting int       `json:"hours_waiting"`
}

// Aggregate computes Stats over qs. Queries without a submission time are reported
// through skip and left out of every figure.
func Aggregate(qs []models.Query, start, end, now time.Time, skip func(q *models.Query)) Stats {
	stats := Stats{
		StartDate:         start,
		EndDate:           end,
		UnansweredQueries: []UnansweredQuery{},
	}

	var totalHours float64
	answered := 0
	for i := range qs {
		q := &qs[i]
		if q.SubmittedAt.IsZero() {
			if skip != nil {
				skip(q)
			}
			continue
		}

		stats.TotalQueries++
		switch {
		case q.IsWon == nil:
			stats.PendingQueries++
		case *q.IsWon:
			stats.SoldQueries++
		default:
			stats.LostQueries++
		}

		if d, ok := queries.ResponseTime(q); ok {
			totalHours += d.Hours()
			answered++
			continue
		}
		stats.UnansweredQueries = append(stats.UnansweredQueries, unanswered(q, now))
	}

	if answered > 0 {
		stats.AvgResponseTime = round2(totalHours / float64(answered))
	}
	return stats
}

func unanswered(q *models.Query, now time.Time) UnansweredQuery {
	submitted := timeutil.ToLocal(q.SubmittedAt)
	return UnansweredQuery{
		ID:           q.ID,
		Name:         q.Name,
		Market:       q.Market,
		Client:       q.Client,
		SubmittedAt:  submitted,
		Cables:       len(q.Cables),
		HoursWaiting: hoursBetween(submitted, now),
	}
}

func hoursBetween(from, to time.Time) int {
	d := to.Sub(from)
	if d < 0 {
		return 0
	}
	return int(d / time.Hour)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Row flattens a reminder into the drill-down shape used by reports.
func (r Reminder) Row() UnansweredQuery {
	return UnansweredQuery{
		ID:           r.Query.ID,
		Name:         r.Query.Name,
		Market:       r.Query.Market,
		Client:       r.Query.Client,
		SubmittedAt:  timeutil.ToLocal(r.Query.SubmittedAt),
		Cables:       len(r.Query.Cables),
		HoursWaiting: r.HoursWaiting,
	}
}
