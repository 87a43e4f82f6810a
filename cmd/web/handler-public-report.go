package main

import (
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/myrjola/coachreports/internal/errors"
	"github.com/myrjola/coachreports/internal/report"
	"github.com/myrjola/coachreports/internal/training"
)

// publicReport is a mailed report opened from its link.
type publicReport struct {
	selection training.ChartSelection
	query     reportQuery
	state     report.State
}

// loadPublicReport reads the stored selection and the data of the client looking at it. Staff may look at a
// client's report with the user parameter.
func (app *application) loadPublicReport(r *http.Request) (publicReport, error) {
	ctx := r.Context()
	sel, err := app.trainingService.Selection(ctx, r.PathValue("chartsId"))
	if err != nil {
		return publicReport{}, err
	}
	viewer := currentUser(r)
	q, err := parseReportQuery(r.URL.Query(), viewer)
	if err != nil {
		return publicReport{}, err
	}
	if !q.hasUser {
		q = reportQuery{userID: viewer.ID, hasUser: true, dates: q.dates}
	}
	records, err := app.trainingService.ClientReportData(ctx, viewer, q.userID, q.dates)
	app.metrics.ObserveFetch(err == nil)
	if err != nil {
		return publicReport{}, err
	}
	// The report is shown the way its client sees it.
	state := report.State{
		UserID:    q.userID,
		HasUser:   true,
		Dates:     q.dates,
		Datasets:  report.Classify(records),
		Selection: sel.Selection,
	}
	return publicReport{selection: sel, query: q, state: state}, nil
}

type publicReportTemplateData struct {
	BaseTemplateData
	From   string
	To     string
	Charts []chartCard
}

func (app *application) publicReportGET(w http.ResponseWriter, r *http.Request) {
	pr, err := app.loadPublicReport(r)
	if errors.Is(err, training.ErrNotFound) {
		app.notFound(w, r)
		return
	}
	if err != nil {
		app.writeServiceError(w, r, err)
		return
	}
	query := pr.query.values().Encode()
	data := publicReportTemplateData{BaseTemplateData: newBaseTemplateData(r)}
	data.From, data.To = pr.query.dates.Bounds()
	base := "/public-report/" + url.PathEscape(pr.selection.ID) + "/charts/"
	for _, c := range pr.selection.Selection.Charts() {
		for _, id := range report.RegionIDsOf(c) {
			region, _ := pr.state.Region(id)
			data.Charts = append(data.Charts, chartCard{
				ID:       id,
				Title:    region.Title(),
				Decision: region.Decision.String(),
				HasData:  region.HasData(),
				ImageURL: base + id + ".png?" + query,
			})
		}
	}
	app.render(w, r, http.StatusOK, "public-report", data)
}

// publicReportChartGET serves the PNG of one enabled chart area of a mailed report.
func (app *application) publicReportChartGET(w http.ResponseWriter, r *http.Request) {
	file := r.PathValue("file")
	if path.Ext(file) != ".png" {
		app.notFound(w, r)
		return
	}
	pr, err := app.loadPublicReport(r)
	if errors.Is(err, training.ErrNotFound) {
		app.notFound(w, r)
		return
	}
	if err != nil {
		app.writeServiceError(w, r, err)
		return
	}
	region, ok := pr.state.Region(strings.TrimSuffix(file, ".png"))
	if !ok || !pr.selection.Selection.Enabled(region.Chart) || !region.HasData() {
		app.notFound(w, r)
		return
	}
	png, err := app.renderer.RenderPNG(r.Context(), region)
	app.metrics.ObserveExport(exportOutcome(err))
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}
