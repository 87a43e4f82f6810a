package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"text/template"

	"github.com/myrjola/coachreports/internal/errors"
	"github.com/myrjola/coachreports/internal/report"
	"github.com/myrjola/coachreports/internal/training"
	"golang.org/x/sync/errgroup"
)

// broadcastConcurrency bounds the mails rendered and sent at once.
const broadcastConcurrency = 4

// ErrNoDelivery is returned when a broadcast reached nobody.
var ErrNoDelivery = errors.NewSentinel("no report delivered")

const bodyTemplate = `# Training report for {{.Name}}

Period: **{{.From}}** to **{{.To}}**

{{range .Charts}}
## {{.Title}}
{{if .ContentID}}
![{{.Title}}](cid:{{.ContentID}})
{{else}}
Nothing logged for {{.Title}} in this period.
{{end}}
{{end}}
[Open the report online]({{.Link}})
`

//nolint:gochecknoglobals // parsed once.
var body = template.Must(template.New("body").Parse(bodyTemplate))

type bodyChart struct {
	Title     string
	ContentID string
}

type bodyData struct {
	Name   string
	From   string
	To     string
	Charts []bodyChart
	Link   string
}

// ReporterConfig wires a [Reporter].
type ReporterConfig struct {
	Training *training.Service
	Renderer report.Renderer
	Sender   Sender
	// From is the sender address.
	From string
	// BaseURL prefixes the public report link, for example https://reports.example.com.
	BaseURL string
	Logger  *slog.Logger
	Observe func(report.MailOutcome)
}

// Reporter renders client reports and mails them.
type Reporter struct {
	training *training.Service
	renderer report.Renderer
	sender   Sender
	from     string
	baseURL  string
	logger   *slog.Logger
	observe  func(report.MailOutcome)
}

// NewReporter returns a Reporter.
func NewReporter(cfg ReporterConfig) *Reporter {
	r := &Reporter{
		training: cfg.Training,
		renderer: cfg.Renderer,
		sender:   cfg.Sender,
		from:     cfg.From,
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		logger:   cfg.Logger,
		observe:  cfg.Observe,
	}
	if r.observe == nil {
		r.observe = func(report.MailOutcome) {}
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	return r
}

// BroadcastResult counts the deliveries of a broadcast.
type BroadcastResult struct {
	SelectionID string
	Sent        int
	Failed      int
}

func parseRequest(keys []string, dates report.DateRange) (report.Selection, error) {
	sel, err := report.SelectionFromKeys(keys)
	if err != nil {
		return report.Selection{}, fmt.Errorf("parse selected charts: %w", err)
	}
	if err = report.ValidateMail(sel, dates); err != nil {
		return report.Selection{}, err //nolint:wrapcheck // validation sentinels are matched by callers.
	}
	return sel, nil
}

// SendReport mails the report of the client owning req.Email and returns the id of the stored selection.
func (r *Reporter) SendReport(ctx context.Context, sender training.User, req report.SendRequest) (string, error) {
	sel, err := parseRequest(req.SelectedCharts, req.Date)
	if err != nil {
		return "", err
	}
	recipient, err := r.training.ReportRecipient(ctx, req.Email)
	if err != nil {
		return "", fmt.Errorf("resolve recipient: %w", err)
	}
	if !sender.CanView(recipient.ID) {
		return "", errors.Wrap(training.ErrForbidden, "send report", slog.Int("recipient", recipient.ID))
	}
	selectionID, err := r.training.SaveSelection(ctx, sender, sel)
	if err != nil {
		return "", fmt.Errorf("save selection: %w", err)
	}
	err = r.deliver(ctx, recipient, selectionID, sel, req.Date)
	r.observe(report.MailOutcome{Kind: "single", Success: err == nil})
	if err != nil {
		return "", err
	}
	return selectionID, nil
}

// Broadcast mails every opted-in client their own report. Failures for single recipients are logged and counted;
// an error is returned only when nobody could be reached.
func (r *Reporter) Broadcast(
	ctx context.Context, sender training.User, req report.BroadcastRequest,
) (BroadcastResult, error) {
	sel, err := parseRequest(req.SelectedCharts, req.Date)
	if err != nil {
		return BroadcastResult{}, err
	}
	if !sender.IsStaff() {
		return BroadcastResult{}, errors.Wrap(training.ErrForbidden, "broadcast reports",
			slog.Int("sender", sender.ID))
	}
	recipients, err := r.training.ReportRecipients(ctx)
	if err != nil {
		return BroadcastResult{}, fmt.Errorf("list recipients: %w", err)
	}
	selectionID, err := r.training.SaveSelection(ctx, sender, sel)
	if err != nil {
		return BroadcastResult{}, fmt.Errorf("save selection: %w", err)
	}
	result := BroadcastResult{SelectionID: selectionID}

	var (
		mu       sync.Mutex
		failures []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(broadcastConcurrency)
	for _, recipient := range recipients {
		g.Go(func() error {
			deliverErr := r.deliver(gctx, recipient, selectionID, sel, req.Date)
			mu.Lock()
			defer mu.Unlock()
			if deliverErr != nil {
				result.Failed++
				failures = append(failures, deliverErr)
				return nil
			}
			result.Sent++
			return nil
		})
	}
	_ = g.Wait()

	if len(recipients) > 0 && result.Sent == 0 {
		err = errors.Join(append([]error{ErrNoDelivery}, failures...)...)
	}
	r.observe(report.MailOutcome{Kind: "broadcast", Success: err == nil})
	r.logger.LogAttrs(ctx, slog.LevelInfo, "broadcast reports", slog.String("selection", selectionID),
		slog.Int("sent", result.Sent), slog.Int("failed", result.Failed))
	if err != nil {
		return result, err
	}
	return result, nil
}

// deliver renders and sends one report and records the attempt.
func (r *Reporter) deliver(
	ctx context.Context, recipient training.User, selectionID string, sel report.Selection, dates report.DateRange,
) error {
	msg, err := r.compose(ctx, recipient, selectionID, sel, dates)
	if err == nil {
		err = r.sender.Send(ctx, msg)
	}
	status := training.SentOK
	if err != nil {
		status = training.SentFailed
		err = errors.Wrap(err, "deliver report", slog.String("email", recipient.Email))
		r.logger.LogAttrs(ctx, slog.LevelError, "report delivery failed", errors.SlogError(err))
	}
	recordErr := r.training.RecordSentReport(ctx, training.SentReport{
		SelectionID:    selectionID,
		RecipientEmail: recipient.Email,
		Dates:          dates,
		Status:         status,
	})
	if recordErr != nil {
		r.logger.LogAttrs(ctx, slog.LevelError, "failed to record sent report", errors.SlogError(recordErr))
	}
	return err
}

// compose renders the enabled charts of the recipient's own data and the markdown body around them.
func (r *Reporter) compose(
	ctx context.Context, recipient training.User, selectionID string, sel report.Selection, dates report.DateRange,
) (Message, error) {
	records, err := r.training.FetchRecords(ctx, recipient.ID, dates)
	if err != nil {
		return Message{}, fmt.Errorf("fetch records: %w", err)
	}
	datasets := report.Classify(records)
	from, to := dates.Bounds()
	data := bodyData{Name: recipient.DisplayName, From: from, To: to, Link: r.publicLink(selectionID, dates)}
	var attachments []Attachment
	for _, c := range sel.Charts() {
		live := datasets.Get(c)
		decision := report.Resolve(report.VisibilityInput{
			Viewer:   report.ViewerSelfClient,
			Presence: live.Presence(),
			Enabled:  true,
		})
		for _, id := range report.RegionIDsOf(c) {
			region, _ := report.BuildRegion(id, live, decision)
			chart := bodyChart{Title: region.Title()}
			if region.HasData() {
				png, renderErr := r.renderer.RenderPNG(ctx, region)
				if renderErr != nil {
					return Message{}, fmt.Errorf("render %s: %w", id, renderErr)
				}
				chart.ContentID = id
				attachments = append(attachments, Attachment{
					Filename:    id + ".png",
					ContentType: "image/png",
					ContentID:   chart.ContentID,
					Data:        png,
				})
			}
			data.Charts = append(data.Charts, chart)
		}
	}
	var md strings.Builder
	if err = body.Execute(&md, data); err != nil {
		return Message{}, fmt.Errorf("execute body template: %w", err)
	}
	return Message{
		From:        r.from,
		To:          recipient.Email,
		Subject:     fmt.Sprintf("Your training report %s to %s", from, to),
		Markdown:    md.String(),
		Attachments: attachments,
	}, nil
}

func (r *Reporter) publicLink(selectionID string, dates report.DateRange) string {
	from, to := dates.Bounds()
	q := url.Values{"from": {from}, "to": {to}}
	return fmt.Sprintf("%s/public-report/%s?%s", r.baseURL, url.PathEscape(selectionID), q.Encode())
}

// Transport adapts the reporter to [report.MailTransport] on behalf of sender.
func (r *Reporter) Transport(sender training.User) report.MailTransport {
	return transport{reporter: r, sender: sender}
}

type transport struct {
	reporter *Reporter
	sender   training.User
}

func (t transport) SendReport(ctx context.Context, req report.SendRequest) error {
	_, err := t.reporter.SendReport(ctx, t.sender, req)
	return err
}

func (t transport) BroadcastReports(ctx context.Context, req report.BroadcastRequest) error {
	_, err := t.reporter.Broadcast(ctx, t.sender, req)
	return err
}
