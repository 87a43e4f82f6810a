package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/myrjola/coachreports/internal/chartrender"
	"github.com/myrjola/coachreports/internal/errors"
	"github.com/myrjola/coachreports/internal/report"
	"github.com/myrjola/coachreports/internal/training"
)

// reportQuery is the client and period shown on the report page.
type reportQuery struct {
	userID  int
	hasUser bool
	dates   report.DateRange
}

// values encodes the query for links and hidden form fields.
func (q reportQuery) values() url.Values {
	v := url.Values{}
	if q.hasUser {
		v.Set("user", strconv.Itoa(q.userID))
	}
	from, to := q.dates.Bounds()
	if from != "" {
		v.Set("from", from)
	}
	if to != "" {
		v.Set("to", to)
	}
	return v
}

// parseReportQuery reads user, from and to. Clients always look at themselves whatever the user parameter says.
func parseReportQuery(values url.Values, viewer training.User) (reportQuery, error) {
	q := reportQuery{userID: viewer.ID, hasUser: true}
	if viewer.IsStaff() {
		q.userID = parseUserParam(values.Get("user"))
		q.hasUser = q.userID > 0
	}
	dates, err := report.ParseDateRange(values.Get("from"), values.Get("to"))
	if err != nil {
		return q, fmt.Errorf("parse report dates: %w", err)
	}
	q.dates = dates
	return q, nil
}

// shouldFetch mirrors the report controller: trainers need a client and a complete range, clients also see their
// whole history when no bound is set.
func shouldFetch(trainer bool, q reportQuery) bool {
	if !q.hasUser {
		return false
	}
	return q.dates.Complete() || (!trainer && q.dates.Open())
}

// reportState fetches and classifies the data behind the report page. A failed fetch leaves the datasets empty
// and is returned so the caller can tell the user.
func (app *application) reportState(ctx context.Context, viewer training.User, q reportQuery) (report.State, error) {
	state := report.State{
		Trainer:   viewer.IsStaff(),
		UserID:    q.userID,
		HasUser:   q.hasUser,
		Dates:     q.dates,
		Selection: app.sessionSelection(ctx),
	}
	if !shouldFetch(state.Trainer, q) {
		return state, nil
	}
	records, err := app.trainingService.ClientReportData(ctx, viewer, q.userID, q.dates)
	app.metrics.ObserveFetch(err == nil)
	if err != nil {
		return state, err
	}
	state.Datasets = report.Classify(records)
	return state, nil
}

type clientOption struct {
	ID       int
	Name     string
	Email    string
	Selected bool
}

type chartCard struct {
	ID       string
	Title    string
	Decision string
	HasData  bool
	ImageURL string
	PageURL  string
}

type chartToggle struct {
	Key     string
	Label   string
	Checked bool
}

type reportsTemplateData struct {
	BaseTemplateData
	Flash         *report.Notification
	Trainer       bool
	Clients       []clientOption
	SelectedEmail string
	From          string
	To            string
	Query         string
	Charts        []chartCard
	Toggles       []chartToggle
	AllChecked    bool
	Indeterminate bool
}

func (app *application) reportsGET(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := currentUser(r)
	notifier := flashNotifier{sessionManager: app.sessionManager}

	q, err := parseReportQuery(r.URL.Query(), viewer)
	if err != nil {
		notifier.Notify(ctx, report.Notification{Type: report.NotificationError, Message: "Please pick valid dates."})
	}
	state, err := app.reportState(ctx, viewer, q)
	switch {
	case errors.Is(err, training.ErrForbidden):
		app.writeServiceError(w, r, err)
		return
	case err != nil:
		app.logger.LogAttrs(ctx, slog.LevelError, "failed to load report data", errors.SlogError(err))
		notifier.Notify(ctx, report.Notification{Type: report.NotificationError,
			Message: "Could not load the report data."})
	}

	clients, err := app.trainingService.Clients(ctx, viewer)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	query := q.values().Encode()
	data := reportsTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Flash:            app.popFlash(ctx),
		Trainer:          state.Trainer,
		Query:            query,
		AllChecked:       state.Selection.AllChecked(),
		Indeterminate:    state.Selection.Indeterminate(),
	}
	data.From, data.To = q.dates.Bounds()
	for _, c := range clients {
		selected := q.hasUser && c.ID == q.userID
		data.Clients = append(data.Clients, clientOption{ID: c.ID, Name: c.DisplayName, Email: c.Email,
			Selected: selected})
		if selected {
			data.SelectedEmail = c.Email
		}
	}
	for _, id := range report.RegionIDs() {
		region, _ := state.Region(id)
		data.Charts = append(data.Charts, chartCard{
			ID:       id,
			Title:    region.Title(),
			Decision: region.Decision.String(),
			HasData:  region.HasData(),
			ImageURL: "/reports/charts/" + id + ".png?" + query,
			PageURL:  "/reports/charts/" + id + ".html?" + query,
		})
	}
	for _, c := range report.AllCharts {
		data.Toggles = append(data.Toggles, chartToggle{Key: c.Key(), Label: c.Label(),
			Checked: state.Selection.Enabled(c)})
	}

	app.render(w, r, http.StatusOK, "reports", data)
}

// reportChartGET serves one chart area of the report page as a PNG or as an interactive echarts page.
func (app *application) reportChartGET(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	file := r.PathValue("file")
	ext := path.Ext(file)
	regionID := strings.TrimSuffix(file, ext)

	viewer := currentUser(r)
	q, err := parseReportQuery(r.URL.Query(), viewer)
	if err != nil {
		app.writeServiceError(w, r, err)
		return
	}
	state, err := app.reportState(ctx, viewer, q)
	if err != nil {
		app.writeServiceError(w, r, err)
		return
	}
	region, ok := state.Region(regionID)
	if !ok || !region.HasData() {
		app.notFound(w, r)
		return
	}

	switch ext {
	case ".png":
		exporter := report.NewExporter(report.ExporterConfig{
			Regions:  state,
			Renderer: app.renderer,
			Sink:     downloadResponse{w: w, download: r.URL.Query().Has("download")},
			Logger:   app.logger,
			Observe:  app.metrics.ObserveExport,
		})
		if _, exported := exporter.ExportRegion(ctx, regionID, exportHint(viewer, q)); !exported {
			app.writeError(w, r, http.StatusInternalServerError, "Could not export the chart.")
		}
	case ".html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err = chartrender.HTML(w, region); err != nil {
			app.serverError(w, r, err)
		}
	default:
		app.notFound(w, r)
	}
}

// exportHint names exported files after the client they show.
func exportHint(viewer training.User, q reportQuery) string {
	if !viewer.IsStaff() || !q.hasUser {
		return "report"
	}
	return "client-" + strconv.Itoa(q.userID)
}

// downloadResponse is a [report.DownloadSink] writing the exported image into the response.
type downloadResponse struct {
	w        http.ResponseWriter
	download bool
}

func (d downloadResponse) Save(_ context.Context, filename string, png []byte) error {
	disposition := "inline"
	if d.download {
		disposition = "attachment"
	}
	d.w.Header().Set("Content-Type", "image/png")
	d.w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, filename))
	if _, err := d.w.Write(png); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// backToReports redirects to the report page keeping the client and period from the submitted form.
func (app *application) backToReports(w http.ResponseWriter, r *http.Request) {
	q, err := parseReportQuery(r.PostForm, currentUser(r))
	target := "/reports"
	if err == nil {
		if encoded := q.values().Encode(); encoded != "" {
			target += "?" + encoded
		}
	}
	redirect(w, r, target)
}

func (app *application) selectionTogglePOST(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.writeError(w, r, http.StatusBadRequest, "Invalid form.")
		return
	}
	chart, ok := report.ChartForKey(r.PathValue("key"))
	if !ok {
		app.notFound(w, r)
		return
	}
	ctx := r.Context()
	app.storeSelection(ctx, app.sessionSelection(ctx).Toggle(chart))
	app.backToReports(w, r)
}

func (app *application) selectionAllPOST(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.writeError(w, r, http.StatusBadRequest, "Invalid form.")
		return
	}
	app.storeSelection(r.Context(), report.SelectAllCharts())
	app.backToReports(w, r)
}

func (app *application) selectionNonePOST(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.writeError(w, r, http.StatusBadRequest, "Invalid form.")
		return
	}
	app.storeSelection(r.Context(), report.Selection{})
	app.backToReports(w, r)
}

// mailer validates the page's mail forms and reports the outcome as a flash message. Metrics are recorded by the
// reporter behind the transport.
func (app *application) mailer(r *http.Request) *report.Mailer {
	return report.NewMailer(report.MailerConfig{
		Transport: app.reporter.Transport(currentUser(r)),
		Notifier:  flashNotifier{sessionManager: app.sessionManager},
		Logger:    app.logger,
	})
}

func (app *application) reportSendPOST(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.writeError(w, r, http.StatusBadRequest, "Invalid form.")
		return
	}
	ctx := r.Context()
	q, err := parseReportQuery(r.PostForm, currentUser(r))
	if err != nil {
		q.dates = report.DateRange{}
	}
	// The outcome reaches the user as a flash message.
	_ = app.mailer(r).SendToOne(ctx, r.PostForm.Get("email"), app.sessionSelection(ctx), q.dates)
	app.backToReports(w, r)
}

func (app *application) reportSendAllPOST(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.writeError(w, r, http.StatusBadRequest, "Invalid form.")
		return
	}
	ctx := r.Context()
	q, err := parseReportQuery(r.PostForm, currentUser(r))
	if err != nil {
		q.dates = report.DateRange{}
	}
	_ = app.mailer(r).SendToAll(ctx, app.sessionSelection(ctx), q.dates)
	app.backToReports(w, r)
}
