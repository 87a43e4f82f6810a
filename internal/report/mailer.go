package report

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/myrjola/coachreports/internal/errors"
)

var (
	ErrMissingDateRange = errors.NewSentinel("missing date range")
	ErrNoChartSelected  = errors.NewSentinel("no chart selected")
	ErrMissingRecipient = errors.NewSentinel("missing recipient")
)

// SendRequest asks the backend to mail a report to one address.
type SendRequest struct {
	Email          string    `json:"email"`
	SelectedCharts []string  `json:"selectedCharts"`
	Date           DateRange `json:"date"`
}

// BroadcastRequest asks the backend to mail a report to every client opted in to reports.
type BroadcastRequest struct {
	SelectedCharts []string  `json:"selectedChart"`
	Date           DateRange `json:"date"`
}

// MailTransport delivers report requests to the backend.
type MailTransport interface {
	SendReport(ctx context.Context, req SendRequest) error
	BroadcastReports(ctx context.Context, req BroadcastRequest) error
}

// MailOutcome is reported to the metrics hook after every mailing attempt.
type MailOutcome struct {
	Kind    string // "single" or "broadcast"
	Success bool
}

// MailerConfig wires a [Mailer].
type MailerConfig struct {
	Transport MailTransport
	Notifier  Notifier
	Logger    *slog.Logger
	Observe   func(MailOutcome)
}

// Mailer validates report mail requests and hands them to the transport.
type Mailer struct {
	transport MailTransport
	notifier  Notifier
	logger    *slog.Logger
	observe   func(MailOutcome)
}

// NewMailer returns a Mailer.
func NewMailer(cfg MailerConfig) *Mailer {
	m := &Mailer{
		transport: cfg.Transport,
		notifier:  cfg.Notifier,
		logger:    cfg.Logger,
		observe:   cfg.Observe,
	}
	if m.logger == nil {
		m.logger = slog.New(slog.DiscardHandler)
	}
	if m.notifier == nil {
		m.notifier = LogNotifier{Logger: m.logger}
	}
	if m.observe == nil {
		m.observe = func(MailOutcome) {}
	}
	return m
}

// ValidateMail checks the preconditions shared by both mailing operations. An empty selection is reported whatever
// the date range, then the range must have both bounds.
func ValidateMail(sel Selection, dates DateRange) error {
	if sel.NoneChecked() {
		return ErrNoChartSelected
	}
	if !dates.Complete() {
		return ErrMissingDateRange
	}
	return nil
}

// SendToOne mails the selected charts for the date range to email. Nothing is sent when validation fails.
func (m *Mailer) SendToOne(ctx context.Context, email string, sel Selection, dates DateRange) error {
	err := ValidateMail(sel, dates)
	email = strings.TrimSpace(email)
	if err == nil && email == "" {
		err = ErrMissingRecipient
	}
	if err == nil {
		if _, parseErr := mail.ParseAddress(email); parseErr != nil {
			err = errors.Wrap(ErrMissingRecipient, "parse recipient", slog.String("email", email))
		}
	}
	if err != nil {
		m.notifier.Notify(ctx, errorNotification(ValidationMessage(err)))
		return err
	}

	req := SendRequest{Email: email, SelectedCharts: sel.Keys(), Date: dates}
	if err = m.transport.SendReport(ctx, req); err != nil {
		err = errors.Wrap(err, "send report", slog.String("email", email))
		m.failed(ctx, "single", err, "Could not send the report.")
		return err
	}
	m.observe(MailOutcome{Kind: "single", Success: true})
	m.logger.LogAttrs(ctx, slog.LevelInfo, "report sent", slog.String("email", email),
		slog.Any("charts", req.SelectedCharts))
	m.notifier.Notify(ctx, successNotification("Report sent to "+email+"."))
	return nil
}

// SendToAll mails the selected charts for the date range to every opted-in client.
func (m *Mailer) SendToAll(ctx context.Context, sel Selection, dates DateRange) error {
	if err := ValidateMail(sel, dates); err != nil {
		m.notifier.Notify(ctx, errorNotification(ValidationMessage(err)))
		return err
	}
	req := BroadcastRequest{SelectedCharts: sel.Keys(), Date: dates}
	if err := m.transport.BroadcastReports(ctx, req); err != nil {
		err = errors.Wrap(err, "broadcast reports")
		m.failed(ctx, "broadcast", err, "Could not send the reports.")
		return err
	}
	m.observe(MailOutcome{Kind: "broadcast", Success: true})
	m.logger.LogAttrs(ctx, slog.LevelInfo, "reports broadcast", slog.Any("charts", req.SelectedCharts))
	m.notifier.Notify(ctx, successNotification("Reports sent to all clients."))
	return nil
}

func (m *Mailer) failed(ctx context.Context, kind string, err error, msg string) {
	m.observe(MailOutcome{Kind: kind, Success: false})
	m.logger.LogAttrs(ctx, slog.LevelError, "report mailing failed", slog.String("kind", kind),
		errors.SlogError(err))
	m.notifier.Notify(ctx, errorNotification(msg))
}

// ValidationMessage is the user facing text for a mail validation error.
func ValidationMessage(err error) string {
	switch {
	case errors.Is(err, ErrMissingDateRange):
		return "Please pick a start and an end date."
	case errors.Is(err, ErrNoChartSelected):
		return "Please select at least one chart."
	case errors.Is(err, ErrMissingRecipient):
		return "Please enter a valid email address."
	}
	return "Invalid report request."
}
