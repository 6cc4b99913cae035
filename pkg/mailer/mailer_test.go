package mailer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/cablequotes-backend/pkg/config"
	"github.com/angelmondragon/cablequotes-backend/pkg/logger"
)

func TestRecipientsDeduplicates(t *testing.T) {
	msg := Message{To: []string{"a@example.com", " ", "B@example.com"}, Cc: []string{"b@example.com", "c@example.com"}}
	got := msg.Recipients()
	if strings.Join(got, ",") != "a@example.com,B@example.com,c@example.com" {
		t.Fatalf("unexpected recipients %v", got)
	}
}

func TestNewPicksDriver(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	m, err := New(config.MailConfig{Driver: "log"}, logg)
	if err != nil {
		t.Fatalf("log driver: %v", err)
	}
	if _, ok := m.(*LogMailer); !ok {
		t.Fatalf("expected log mailer, got %T", m)
	}
	if _, err := New(config.MailConfig{Driver: "smtp"}, logg); err == nil {
		t.Fatal("smtp without host should fail")
	}
}

func TestLogMailerWritesMetadata(t *testing.T) {
	buf := &bytes.Buffer{}
	m := NewLog(logger.New(logger.Options{ServiceName: "test", Output: buf}))
	if err := m.Send(context.Background(), Message{To: []string{"kable@example.com"}, Subject: "Nowe zapytanie"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.Contains(buf.String(), "kable@example.com") || !strings.Contains(buf.String(), "Nowe zapytanie") {
		t.Fatalf("missing metadata: %s", buf.String())
	}
	if err := m.Send(context.Background(), Message{}); !errors.Is(err, ErrNoRecipients) {
		t.Fatalf("expected ErrNoRecipients, got %v", err)
	}
}

func TestBuildEncodesSubjectAndAttachment(t *testing.T) {
	m, err := NewSMTP(config.MailConfig{Host: "smtp.example.com", From: "kable@example.com", Driver: "smtp"})
	if err != nil {
		t.Fatalf("new smtp: %v", err)
	}
	m.now = func() time.Time { return time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC) }
	raw, err := m.build(Message{
		To:          []string{"a@example.com"},
		Cc:          []string{"b@example.com"},
		Subject:     "Odpowiedź na zapytanie",
		HTML:        "<p>Cześć</p>",
		Attachments: []Attachment{{Filename: "raport.xlsx", Data: []byte("xlsx")}},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	text := string(raw)
	for _, want := range []string{
		"Subject: =?utf-8?q?",
		"Cc: b@example.com",
		"Content-Type: multipart/mixed",
		`filename=raport.xlsx`,
		"Mon, 05 Jan 2026 08:00:00 +0000",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in message:\n%s", want, text)
		}
	}
}

func TestSMTPSendSkipsRejectedRecipients(t *testing.T) {
	m, err := NewSMTP(config.MailConfig{Host: "localhost", Port: 25, From: "kable@example.com", Driver: "smtp", Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("new smtp: %v", err)
	}

	server, client := net.Pipe()
	defer server.Close()
	m.dial = func(context.Context, string) (net.Conn, error) { return client, nil }

	received := make(chan string, 1)
	go serveSMTP(server, received)

	err = m.Send(context.Background(), Message{To: []string{"ok@example.com", "bad@example.com"}, Subject: "x", HTML: "<p>x</p>"})
	if err == nil || !strings.Contains(err.Error(), "bad@example.com") {
		t.Fatalf("expected rejected recipient in error, got %v", err)
	}
	select {
	case body := <-received:
		if !strings.Contains(body, "To: ok@example.com, bad@example.com") {
			t.Fatalf("unexpected body %q", body)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server never received data")
	}
}

// serveSMTP plays just enough of the protocol for one delivery.
func serveSMTP(conn net.Conn, received chan<- string) {
	r := bufio.NewReader(conn)
	write := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }
	write("220 localhost ESMTP")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			write("250 localhost")
		case strings.HasPrefix(cmd, "MAIL"):
			write("250 OK")
		case strings.HasPrefix(cmd, "RCPT"):
			if strings.Contains(cmd, "BAD@") {
				write("550 no such user")
			} else {
				write("250 OK")
			}
		case cmd == "DATA":
			write("354 go ahead")
			var body strings.Builder
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				body.WriteString(l)
			}
			received <- body.String()
			write("250 queued")
		case cmd == "QUIT":
			write("221 bye")
			return
		default:
			write("502 unknown")
		}
	}
}
