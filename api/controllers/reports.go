package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/cablequotes-backend/api/responses"
	"github.com/angelmondragon/cablequotes-backend/api/validators"
	"github.com/angelmondragon/cablequotes-backend/internal/cron"
	"github.com/angelmondragon/cablequotes-backend/internal/reports"
	"github.com/angelmondragon/cablequotes-backend/pkg/errors"
	"github.com/angelmondragon/cablequotes-backend/pkg/logger"
	"github.com/angelmondragon/cablequotes-backend/pkg/mailer"
	"github.com/angelmondragon/cablequotes-backend/pkg/timeutil"
)

// ReportNotifier mails finished reports.
type ReportNotifier interface {
	DailyReportReady(ctx context.Context, stats *reports.Stats) error
	WeeklyReportReady(ctx context.Context, stats *reports.Stats, attachment *mailer.Attachment) error
}

// reportRange reads optional start/end dates; end covers its whole day.
func reportRange(r *http.Request) (*time.Time, *time.Time, error) {
	fields := errors.FieldErrors{}
	var start, end *time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("start")); raw != "" {
		d, err := timeutil.ParseDate(raw)
		if err != nil {
			fields.Add("start", "must be YYYY-MM-DD")
		} else {
			start = &d
		}
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("end")); raw != "" {
		d, err := timeutil.ParseDate(raw)
		if err != nil {
			fields.Add("end", "must be YYYY-MM-DD")
		} else {
			eod := d.AddDate(0, 0, 1).Add(-time.Nanosecond)
			end = &eod
		}
	}
	if err := fields.Err("invalid report range"); err != nil {
		return nil, nil, err
	}
	return start, end, nil
}

// ReportWeekly returns statistics for ?start=&end= (defaults to the trailing seven days).
func ReportWeekly(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start, end, err := reportRange(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stats, err := svc.WeeklyStats(r.Context(), start, end)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// ReportWeeklyWorkbook streams the same statistics as an xlsx download.
func ReportWeeklyWorkbook(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start, end, err := reportRange(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stats, err := svc.WeeklyStats(r.Context(), start, end)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		data, err := reports.Workbook(stats)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, errors.Wrap(errors.CodeInternal, err, "build workbook"))
			return
		}
		if err := responses.WriteAttachment(w, reports.WorkbookName(stats), reports.WorkbookContentType, data); err != nil && logg != nil {
			logg.Error(r.Context(), "write workbook", err)
		}
	}
}

// ReportDaily returns the week-to-date summary mailed every afternoon.
func ReportDaily(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.DailySummary(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// ReportWeeklySend mails the weekly report right away.
func ReportWeeklySend(svc reports.Service, notifier ReportNotifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cron.SendWeeklyReport(r.Context(), svc, notifier); err != nil {
			// on demand sends report mail failures as dependency errors
			if typed := errors.As(err); typed == nil || typed.Code() == errors.CodeNotification {
				err = errors.Wrap(errors.CodeDependency, err, "send weekly report")
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "sent"})
	}
}

// ReportReminders lists unanswered queries older than ?hours= (defaults to the cron
// reminder threshold).
func ReportReminders(svc reports.Service, defaultThreshold time.Duration, logg *logger.Logger) http.HandlerFunc {
	fallback := int(defaultThreshold / time.Hour)
	if fallback < 1 {
		fallback = 24
	}
	return func(w http.ResponseWriter, r *http.Request) {
		hours, err := validators.ParseQueryInt(r, "hours", fallback, 1, 24*90)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		due, err := svc.Reminders(r.Context(), time.Duration(hours)*time.Hour)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows := make([]reports.UnansweredQuery, 0, len(due))
		for _, rem := range due {
			rows = append(rows, rem.Row())
		}
		responses.WriteSuccess(w, rows)
	}
}
