// Package notifications renders and sends the e-mails emitted after query events.
package notifications

import (
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/angelmondragon/cablequotes-backend/internal/reports"
	"github.com/angelmondragon/cablequotes-backend/pkg/config"
	"github.com/angelmondragon/cablequotes-backend/pkg/db/models"
	"github.com/angelmondragon/cablequotes-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cablequotes-backend/pkg/errors"
	"github.com/angelmondragon/cablequotes-backend/pkg/logger"
	"github.com/angelmondragon/cablequotes-backend/pkg/mailer"
	"github.com/angelmondragon/cablequotes-backend/pkg/metrics"
	"github.com/angelmondragon/cablequotes-backend/pkg/timeutil"
	"go.uber.org/multierr"
)

// EmailResolver finds the address of a salesperson by display name.
type EmailResolver interface {
	EmailFor(ctx context.Context, name string) (string, bool)
}

// Dispatcher turns domain events into e-mails. Every method returns a NOTIFICATION_ERROR
// on failure; callers log it and carry on since the triggering write has committed.
type Dispatcher struct {
	mail       mailer.Mailer
	recipients config.NotificationsConfig
	appURL     string
	emails     EmailResolver
	metrics    *metrics.NotificationMetrics
	logg       *logger.Logger
	tmpl       *template.Template
}

// DispatcherParams wires a Dispatcher.
type DispatcherParams struct {
	Mailer     mailer.Mailer
	Recipients config.NotificationsConfig
	AppURL     string
	Emails     EmailResolver
	Metrics    *metrics.NotificationMetrics
	Logger     *logger.Logger
}

func NewDispatcher(p DispatcherParams) (*Dispatcher, error) {
	if p.Mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	return &Dispatcher{
		mail:       p.Mailer,
		recipients: p.Recipients,
		appURL:     p.AppURL,
		emails:     p.Emails,
		metrics:    p.Metrics,
		logg:       p.Logger,
		tmpl:       tmpl,
	}, nil
}

type queryEmail struct {
	Query queryView
	Link  string
}

// QuerySubmitted tells logistics about a new query.
func (d *Dispatcher) QuerySubmitted(ctx context.Context, q *models.Query) error {
	if q == nil {
		return nil
	}
	html, err := render(d.tmpl, tmplNewQuery, queryEmail{Query: newQueryView(q), Link: d.queryLink(q)})
	if err != nil {
		return d.fail(enums.NotificationEventQuerySubmitted, err)
	}
	return d.send(ctx, enums.NotificationEventQuerySubmitted, mailer.Message{
		To:      d.recipients.LogisticsRecipients,
		Subject: fmt.Sprintf("Nowe zapytanie od %s - %s", q.Name, q.Client),
		HTML:    html,
	})
}

type responseEmail struct {
	Query     queryView
	Responses []responseView
	Logistics bool
	Link      string
}

// ResponsesRecorded mails the salesperson their prices and sends logistics a copy that
// also carries purchase prices. A missing salesperson address only skips the first mail.
func (d *Dispatcher) ResponsesRecorded(ctx context.Context, q *models.Query, pairs []ResponsePair) error {
	if q == nil || len(pairs) == 0 {
		return nil
	}
	event := enums.NotificationEventResponsesRecorded
	view := newQueryView(q)
	rows := newResponseViews(pairs)

	var errs error
	if addr, ok := d.salespersonEmail(ctx, q.Name); ok {
		html, err := render(d.tmpl, tmplResponse, responseEmail{Query: view, Responses: rows, Link: d.queryLink(q)})
		if err == nil {
			err = d.send(ctx, event, mailer.Message{
				To:      []string{addr},
				Subject: fmt.Sprintf("Odpowiedź na zapytanie - %s", q.Client),
				HTML:    html,
			})
		} else {
			err = d.fail(event, err)
		}
		errs = multierr.Append(errs, err)
	} else {
		d.logg.Warn(d.logg.WithFields(ctx, map[string]any{
			"salesperson": q.Name,
			"query_id":    q.ID.String(),
		}), "no e-mail address for salesperson, response notification skipped")
	}

	html, err := render(d.tmpl, tmplResponse, responseEmail{Query: view, Responses: rows, Logistics: true, Link: d.queryLink(q)})
	if err != nil {
		return multierr.Append(errs, d.fail(event, err))
	}
	return multierr.Append(errs, d.send(ctx, event, mailer.Message{
		To:      d.recipients.LogisticsCopyRecipients,
		Subject: fmt.Sprintf("Kopia: Odpowiedź na zapytanie - %s", q.Client),
		HTML:    html,
	}))
}

type reminderEmail struct {
	Query        queryView
	HoursWaiting int
	Pending      int
	Link         string
}

// QueryOverdue reminds the configured recipients about a query still waiting for prices.
func (d *Dispatcher) QueryOverdue(ctx context.Context, q *models.Query, hoursWaiting int) error {
	if q == nil {
		return nil
	}
	pending := 0
	for i := range q.Cables {
		if q.Cables[i].Response == nil {
			pending++
		}
	}
	html, err := render(d.tmpl, tmplReminder, reminderEmail{
		Query:        newQueryView(q),
		HoursWaiting: hoursWaiting,
		Pending:      pending,
		Link:         d.queryLink(q),
	})
	if err != nil {
		return d.fail(enums.NotificationEventQueryReminder, err)
	}
	return d.send(ctx, enums.NotificationEventQueryReminder, mailer.Message{
		To:      d.recipients.ReminderRecipients,
		Subject: fmt.Sprintf("Przypomnienie o zapytaniu - %s", q.Client),
		HTML:    html,
	})
}

type reportEmail struct {
	Title string
	Start string
	End   string
	Stats *reports.Stats
	Link  string
}

// DailyReportReady sends the week-to-date summary.
func (d *Dispatcher) DailyReportReady(ctx context.Context, stats *reports.Stats) error {
	return d.report(ctx, enums.NotificationEventDailyReport, "Raport dzienny", stats, nil)
}

// WeeklyReportReady sends the weekly summary, optionally with a spreadsheet attached.
func (d *Dispatcher) WeeklyReportReady(ctx context.Context, stats *reports.Stats, attachment *mailer.Attachment) error {
	return d.report(ctx, enums.NotificationEventWeeklyReport, "Raport tygodniowy", stats, attachment)
}

func (d *Dispatcher) report(ctx context.Context, event enums.NotificationEvent, title string, stats *reports.Stats, attachment *mailer.Attachment) error {
	if stats == nil {
		return nil
	}
	start := shortDate(stats.StartDate)
	end := shortDate(stats.EndDate)
	html, err := render(d.tmpl, tmplReport, reportEmail{
		Title: title,
		Start: start,
		End:   end,
		Stats: stats,
		Link:  d.appURL,
	})
	if err != nil {
		return d.fail(event, err)
	}
	msg := mailer.Message{
		To:      d.recipients.ReportRecipients,
		Subject: fmt.Sprintf("Raport Tygodniowy Kable: %s - %s", start, end),
		HTML:    html,
	}
	if attachment != nil {
		msg.Attachments = []mailer.Attachment{*attachment}
	}
	return d.send(ctx, event, msg)
}

func (d *Dispatcher) send(ctx context.Context, event enums.NotificationEvent, msg mailer.Message) error {
	ctx = d.logg.WithField(ctx, "event", string(event))
	if len(msg.Recipients()) == 0 {
		d.logg.Warn(ctx, "no recipients configured, notification skipped")
		return nil
	}
	if err := d.mail.Send(ctx, msg); err != nil {
		return d.fail(event, err)
	}
	d.metrics.IncSent(string(event))
	d.logg.Info(ctx, "notification sent")
	return nil
}

func (d *Dispatcher) fail(event enums.NotificationEvent, err error) error {
	d.metrics.IncFailed(string(event))
	return pkgerrors.Wrap(pkgerrors.CodeNotification, err, fmt.Sprintf("send %s notification", event))
}

func (d *Dispatcher) salespersonEmail(ctx context.Context, name string) (string, bool) {
	if d.emails == nil {
		return "", false
	}
	return d.emails.EmailFor(ctx, name)
}

func (d *Dispatcher) queryLink(q *models.Query) string {
	if d.appURL == "" {
		return ""
	}
	return d.appURL + "/queries/" + q.ID.String()
}

func shortDate(t time.Time) string {
	return timeutil.ToLocal(t).Format("02.01")
}
