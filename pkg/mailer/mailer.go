// Package mailer delivers rendered e-mail messages over SMTP or into the log.
package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/cablequotes-backend/pkg/config"
	"github.com/angelmondragon/cablequotes-backend/pkg/logger"
)

// Attachment is a file carried by a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is a single HTML e-mail.
type Message struct {
	To          []string
	Cc          []string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Recipients returns To and Cc with blanks and duplicates removed.
func (m Message) Recipients() []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(m.To)+len(m.Cc))
	for _, addr := range append(append([]string{}, m.To...), m.Cc...) {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		key := strings.ToLower(addr)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, addr)
	}
	return out
}

// Mailer sends messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New picks the driver named in cfg.
func New(cfg config.MailConfig, logg *logger.Logger) (Mailer, error) {
	if cfg.UsesSMTP() {
		return NewSMTP(cfg)
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required for log mailer")
	}
	return NewLog(logg), nil
}

// LogMailer writes message metadata to the log instead of sending it.
type LogMailer struct {
	logg *logger.Logger
}

func NewLog(logg *logger.Logger) *LogMailer {
	return &LogMailer{logg: logg}
}

func (l *LogMailer) Send(ctx context.Context, msg Message) error {
	recipients := msg.Recipients()
	if len(recipients) == 0 {
		return ErrNoRecipients
	}
	names := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		names = append(names, a.Filename)
	}
	l.logg.Info(l.logg.WithFields(ctx, map[string]any{
		"to":          strings.Join(recipients, ","),
		"subject":     msg.Subject,
		"attachments": names,
		"html_bytes":  len(msg.HTML),
	}), "mail not sent, log driver active")
	return nil
}
