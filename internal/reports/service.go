package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/cablequotes-backend/internal/queries"
	"github.com/angelmondragon/cablequotes-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/cablequotes-backend/pkg/errors"
	"github.com/angelmondragon/cablequotes-backend/pkg/logger"
	"github.com/angelmondragon/cablequotes-backend/pkg/timeutil"
)

// DefaultWindow is the trailing span covered when no bounds are given.
const DefaultWindow = 7 * 24 * time.Hour

type queryLister interface {
	List(ctx context.Context, filter queries.ListFilter) ([]models.Query, error)
}

// Reminder is an unanswered query that has waited past the reminder threshold.
type Reminder struct {
	Query        models.Query
	HoursWaiting int
}

// Service computes read-only reports. It holds no mutable state and is safe for
// concurrent use.
type Service interface {
	WeeklyStats(ctx context.Context, start, end *time.Time) (*Stats, error)
	DailySummary(ctx context.Context) (*Stats, error)
	Reminders(ctx context.Context, threshold time.Duration) ([]Reminder, error)
}

type service struct {
	repo queryLister
	logg *logger.Logger
	now  func() time.Time
}

// NewService wires the report service.
func NewService(repo queryLister, logg *logger.Logger, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("query repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if now == nil {
		now = timeutil.Now
	}
	return &service{repo: repo, logg: logg, now: now}, nil
}

// WeeklyStats covers [start, end] inclusive; missing bounds default to the trailing
// seven days ending now.
func (s *service) WeeklyStats(ctx context.Context, start, end *time.Time) (*Stats, error) {
	now := s.now()
	to := now
	if end != nil {
		to = *end
	}
	from := to.Add(-DefaultWindow)
	if start != nil {
		from = *start
	}
	if from.After(to) {
		return nil, pkgerrors.FieldErrors{"start": "must not be after end"}.Err("invalid report range")
	}
	return s.aggregate(ctx, from, to, now)
}

// DailySummary covers Monday 00:00 of the current week up to now.
func (s *service) DailySummary(ctx context.Context) (*Stats, error) {
	now := s.now()
	return s.aggregate(ctx, timeutil.StartOfWeek(now), now, now)
}

func (s *service) Reminders(ctx context.Context, threshold time.Duration) ([]Reminder, error) {
	now := s.now()
	deadline := now.Add(-threshold)
	qs, err := s.repo.List(ctx, queries.ListFilter{SubmittedUntil: &deadline})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending queries")
	}
	out := make([]Reminder, 0)
	for _, q := range qs {
		if queries.IsFullyResponded(&q) {
			continue
		}
		out = append(out, Reminder{
			Query:        q,
			HoursWaiting: hoursBetween(timeutil.ToLocal(q.SubmittedAt), now),
		})
	}
	return out, nil
}

func (s *service) aggregate(ctx context.Context, from, to, now time.Time) (*Stats, error) {
	qs, err := s.repo.List(ctx, queries.ListFilter{SubmittedFrom: &from, SubmittedUntil: &to})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list queries for report")
	}
	stats := Aggregate(qs, from, to, now, func(q *models.Query) {
		s.logg.Warn(s.logg.WithQueryID(ctx, q.ID.String()), "query without submission time left out of report")
	})
	return &stats, nil
}
