package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/cablequotes-backend/pkg/config"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// ErrNoRecipients is returned when a message has nobody to go to.
var ErrNoRecipients = errors.New("mail has no recipients")

// SMTPMailer delivers over implicit TLS (port 465) or STARTTLS.
type SMTPMailer struct {
	cfg  config.MailConfig
	now  func() time.Time
	dial func(ctx context.Context, addr string) (net.Conn, error)
}

func NewSMTP(cfg config.MailConfig) (*SMTPMailer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("smtp host required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("smtp sender required")
	}
	m := &SMTPMailer{cfg: cfg, now: time.Now}
	m.dial = m.defaultDial
	return m, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	recipients := msg.Recipients()
	if len(recipients) == 0 {
		return ErrNoRecipients
	}
	body, err := m.build(msg)
	if err != nil {
		return err
	}

	conn, err := m.dial(ctx, net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port)))
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else if m.cfg.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(m.cfg.Timeout))
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if !m.cfg.UseSSL {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}
	if m.cfg.Username != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}

	var rcptErr error
	accepted := 0
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			rcptErr = multierr.Append(rcptErr, fmt.Errorf("rcpt %s: %w", rcpt, err))
			continue
		}
		accepted++
	}
	if accepted == 0 {
		return multierr.Append(ErrNoRecipients, rcptErr)
	}

	w, err := client.Data()
	if err != nil {
		return multierr.Append(rcptErr, fmt.Errorf("smtp data: %w", err))
	}
	if _, err := w.Write(body); err != nil {
		_ = w.Close()
		return multierr.Append(rcptErr, fmt.Errorf("smtp write: %w", err))
	}
	if err := w.Close(); err != nil {
		return multierr.Append(rcptErr, fmt.Errorf("smtp close data: %w", err))
	}
	return multierr.Append(rcptErr, client.Quit())
}

func (m *SMTPMailer) defaultDial(ctx context.Context, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: m.cfg.Timeout}
	if m.cfg.UseSSL {
		td := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}}
		return td.DialContext(ctx, "tcp", addr)
	}
	return dialer.DialContext(ctx, "tcp", addr)
}

// build renders the RFC 5322 message with an HTML part and any attachments.
func (m *SMTPMailer) build(msg Message) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	headers := []string{
		"From: " + m.cfg.From,
		"To: " + strings.Join(msg.To, ", "),
	}
	if len(msg.Cc) > 0 {
		headers = append(headers, "Cc: "+strings.Join(msg.Cc, ", "))
	}
	headers = append(headers,
		"Subject: "+mime.QEncoding.Encode("utf-8", msg.Subject),
		"Date: "+m.now().Format(time.RFC1123Z),
		"Message-ID: <"+uuid.NewString()+"@"+m.cfg.Host+">",
		"MIME-Version: 1.0",
		"Content-Type: multipart/mixed; boundary="+mw.Boundary(),
	)
	var out bytes.Buffer
	out.WriteString(strings.Join(headers, "\r\n"))
	out.WriteString("\r\n\r\n")

	htmlPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/html; charset=utf-8"},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return nil, err
	}
	if err := writeBase64(htmlPart, []byte(msg.HTML)); err != nil {
		return nil, err
	}

	for _, a := range msg.Attachments {
		ct := a.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {ct},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename})},
		})
		if err != nil {
			return nil, err
		}
		if err := writeBase64(part, a.Data); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	out.Write(buf.Bytes())
	return out.Bytes(), nil
}

// writeBase64 wraps encoded output at 76 columns.
func writeBase64(w interface{ Write([]byte) (int, error) }, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 76 {
		if _, err := w.Write([]byte(encoded[:76] + "\r\n")); err != nil {
			return err
		}
		encoded = encoded[76:]
	}
	_, err := w.Write([]byte(encoded + "\r\n"))
	return err
}
