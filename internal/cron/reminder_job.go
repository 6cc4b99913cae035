package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/cablequotes-backend/internal/reports"
	"github.com/angelmondragon/cablequotes-backend/pkg/db/models"
	"github.com/angelmondragon/cablequotes-backend/pkg/logger"
	"github.com/angelmondragon/cablequotes-backend/pkg/timeutil"
	"go.uber.org/multierr"
)

const (
	reminderJobName     = "query-reminders"
	defaultReminderWait = 24 * time.Hour
	markerTTL           = 48 * time.Hour
)

// marker records that a once-per-period action already happened.
type marker interface {
	MarkOnce(ctx context.Context, name, period string, ttl time.Duration) (bool, error)
}

type reminderSource interface {
	Reminders(ctx context.Context, threshold time.Duration) ([]reports.Reminder, error)
}

type reminderNotifier interface {
	QueryOverdue(ctx context.Context, q *models.Query, hoursWaiting int) error
}

type ReminderJobParams struct {
	Logger    *logger.Logger
	Reports   reminderSource
	Notifier  reminderNotifier
	Marker    marker
	Threshold time.Duration
}

// NewReminderJob builds the job that nags about queries left without a full response.
// Each query is reminded at most once per local day.
func NewReminderJob(params ReminderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reports == nil {
		return nil, fmt.Errorf("reports service required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Marker == nil {
		return nil, fmt.Errorf("marker required")
	}
	threshold := params.Threshold
	if threshold <= 0 {
		threshold = defaultReminderWait
	}
	return &reminderJob{
		logg:      params.Logger,
		reports:   params.Reports,
		notifier:  params.Notifier,
		marker:    params.Marker,
		threshold: threshold,
	}, nil
}

type reminderJob struct {
	logg      *logger.Logger
	reports   reminderSource
	notifier  reminderNotifier
	marker    marker
	threshold time.Duration
}

func (j *reminderJob) Name() string { return reminderJobName }

func (j *reminderJob) Run(ctx context.Context, now time.Time) error {
	due, err := j.reports.Reminders(ctx, j.threshold)
	if err != nil {
		return fmt.Errorf("load reminders: %w", err)
	}
	day := now.In(timeutil.Location()).Format(timeutil.DateLayout)

	var (
		sent    int
		skipped int
		errs    error
	)
	for i := range due {
		r := due[i]
		first, err := j.marker.MarkOnce(ctx, reminderJobName, r.Query.ID.String()+":"+day, markerTTL)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("mark reminder %s: %w", r.Query.ID, err))
			continue
		}
		if !first {
			skipped++
			continue
		}
		qctx := j.logg.WithQueryID(ctx, r.Query.ID.String())
		if err := j.notifier.QueryOverdue(qctx, &r.Query, r.HoursWaiting); err != nil {
			j.logg.Error(qctx, "reminder notification failed", err)
			continue
		}
		sent++
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"due":     len(due),
		"sent":    sent,
		"skipped": skipped,
	}), "query reminders processed")
	return errs
}
