package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/cablequotes-backend/internal/reports"
	"github.com/angelmondragon/cablequotes-backend/pkg/logger"
	"github.com/angelmondragon/cablequotes-backend/pkg/mailer"
	"github.com/angelmondragon/cablequotes-backend/pkg/timeutil"
)

const (
	dailyReportJobName  = "daily-report"
	weeklyReportJobName = "weekly-report"
)

type statsSource interface {
	WeeklyStats(ctx context.Context, start, end *time.Time) (*reports.Stats, error)
	DailySummary(ctx context.Context) (*reports.Stats, error)
}

type reportNotifier interface {
	DailyReportReady(ctx context.Context, stats *reports.Stats) error
	WeeklyReportReady(ctx context.Context, stats *reports.Stats, attachment *mailer.Attachment) error
}

type ReportJobParams struct {
	Logger   *logger.Logger
	Reports  statsSource
	Notifier reportNotifier
	Marker   marker
	// Hour is the local hour from which the report becomes due.
	Hour int
}

// NewDailyReportJob sends the week-to-date summary once per working day.
func NewDailyReportJob(params ReportJobParams) (Job, error) {
	base, err := newReportJob(dailyReportJobName, params)
	if err != nil {
		return nil, err
	}
	base.due = func(now time.Time) bool {
		wd := now.Weekday()
		return wd != time.Saturday && wd != time.Sunday && now.Hour() >= base.hour
	}
	base.send = func(ctx context.Context) error {
		stats, err := base.reports.DailySummary(ctx)
		if err != nil {
			return fmt.Errorf("daily summary: %w", err)
		}
		return base.notifier.DailyReportReady(ctx, stats)
	}
	return base, nil
}

// NewWeeklyReportJob sends the previous seven days with a workbook attachment on Mondays.
func NewWeeklyReportJob(params ReportJobParams) (Job, error) {
	base, err := newReportJob(weeklyReportJobName, params)
	if err != nil {
		return nil, err
	}
	base.due = func(now time.Time) bool {
		return now.Weekday() == time.Monday && now.Hour() >= base.hour
	}
	base.send = func(ctx context.Context) error {
		return SendWeeklyReport(ctx, base.reports, base.notifier)
	}
	return base, nil
}

// SendWeeklyReport builds the default weekly stats and mails them with the workbook.
func SendWeeklyReport(ctx context.Context, source statsSource, notifier reportNotifier) error {
	stats, err := source.WeeklyStats(ctx, nil, nil)
	if err != nil {
		return fmt.Errorf("weekly stats: %w", err)
	}
	data, err := reports.Workbook(stats)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}
	return notifier.WeeklyReportReady(ctx, stats, &mailer.Attachment{
		Filename:    reports.WorkbookName(stats),
		ContentType: reports.WorkbookContentType,
		Data:        data,
	})
}

type reportJob struct {
	name     string
	logg     *logger.Logger
	reports  statsSource
	notifier reportNotifier
	marker   marker
	hour     int
	due      func(now time.Time) bool
	send     func(ctx context.Context) error
}

func newReportJob(name string, params ReportJobParams) (*reportJob, error) {
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
	if params.Hour < 0 || params.Hour > 23 {
		return nil, fmt.Errorf("report hour must be between 0 and 23")
	}
	return &reportJob{
		name:     name,
		logg:     params.Logger,
		reports:  params.Reports,
		notifier: params.Notifier,
		marker:   params.Marker,
		hour:     params.Hour,
	}, nil
}

func (j *reportJob) Name() string { return j.name }

func (j *reportJob) Run(ctx context.Context, now time.Time) error {
	now = now.In(timeutil.Location())
	if !j.due(now) {
		return nil
	}
	day := now.Format(timeutil.DateLayout)
	first, err := j.marker.MarkOnce(ctx, j.name, day, markerTTL)
	if err != nil {
		return fmt.Errorf("mark %s: %w", j.name, err)
	}
	if !first {
		return nil
	}
	if err := j.send(ctx); err != nil {
		return err
	}
	j.logg.Info(j.logg.WithField(ctx, "period", day), "report sent")
	return nil
}
