// Package mail composes report mails and delivers them over SMTP.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	gomail "github.com/wneessen/go-mail"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
)

// Attachment is an inline image referenced from the body as cid:<ContentID>.
type Attachment struct {
	Filename    string
	ContentType string
	ContentID   string
	Data        []byte
}

// Message is a mail with a markdown body.
type Message struct {
	From        string
	To          string
	Subject     string
	Markdown    string
	Attachments []Attachment
}

// Sender delivers composed messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

//nolint:gochecknoglobals // the converter is safe for concurrent use.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Table, extension.Linkify),
	goldmark.WithRendererOptions(goldmarkhtml.WithHardWraps()),
)

// RenderMarkdown converts a markdown body to HTML. Raw HTML in the input is escaped.
func RenderMarkdown(md string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return buf.String(), nil
}

// Compose encodes msg as a multipart/related MIME message with an HTML body and the inline attachments.
func Compose(msg Message, now time.Time) ([]byte, error) {
	m, err := newMsg(msg, now)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err = m.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write message: %w", err)
	}
	return buf.Bytes(), nil
}

func newMsg(msg Message, now time.Time) (*gomail.Msg, error) {
	body, err := RenderMarkdown(msg.Markdown)
	if err != nil {
		return nil, err
	}
	m := gomail.NewMsg()
	if err = m.From(msg.From); err != nil {
		return nil, fmt.Errorf("set sender %s: %w", msg.From, err)
	}
	if err = m.To(msg.To); err != nil {
		return nil, fmt.Errorf("set recipient %s: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetDateWithValue(now)
	m.SetBodyString(gomail.TypeTextHTML, "<!doctype html><html><body>"+body+"</body></html>")
	for _, a := range msg.Attachments {
		if err = m.EmbedReader(a.Filename, bytes.NewReader(a.Data),
			gomail.WithFileContentID(a.ContentID),
			gomail.WithFileContentType(gomail.ContentType(a.ContentType)),
		); err != nil {
			return nil, fmt.Errorf("embed %s: %w", a.Filename, err)
		}
	}
	return m, nil
}

// SMTPSender delivers mails through an SMTP relay.
type SMTPSender struct {
	// Addr is the host:port of the relay.
	Addr string
	// Username and Password enable PLAIN authentication. Most local relays accept unauthenticated mail.
	Username string
	Password string
	Now      func() time.Time
}

// Send composes msg and submits it over a fresh connection to the relay.
func (s SMTPSender) Send(ctx context.Context, msg Message) error {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	m, err := newMsg(msg, now())
	if err != nil {
		return err
	}
	client, err := s.client()
	if err != nil {
		return err
	}
	if err = client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}

func (s SMTPSender) client() (*gomail.Client, error) {
	host, portStr, err := net.SplitHostPort(s.Addr)
	if err != nil {
		return nil, fmt.Errorf("parse relay address %q: %w", s.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("parse relay port %q: %w", portStr, err)
	}
	opts := []gomail.Option{
		gomail.WithPort(port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
	}
	if s.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.Username),
			gomail.WithPassword(s.Password),
		)
	}
	client, err := gomail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("new smtp client: %w", err)
	}
	return client, nil
}

// LogSender logs mails instead of delivering them. It is used when no SMTP relay is configured.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(ctx context.Context, msg Message) error {
	html, err := RenderMarkdown(msg.Markdown)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		names = append(names, a.Filename)
	}
	s.Logger.LogAttrs(ctx, slog.LevelInfo, "mail not sent, no SMTP relay configured",
		slog.String("to", msg.To), slog.String("subject", msg.Subject),
		slog.Int("htmlBytes", len(html)), slog.Any("attachments", names))
	return nil
}
