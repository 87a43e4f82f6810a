package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/myrjola/coachreports/internal/errors"
	"github.com/myrjola/coachreports/internal/report"
	"github.com/myrjola/coachreports/internal/training"
)

type clientReportDataRequest struct {
	UserID int              `json:"userId"`
	Date   report.DateRange `json:"date"`
}

// clientReportDataPOST returns the raw report records of a user. Clients may only ask for themselves.
func (app *application) clientReportDataPOST(w http.ResponseWriter, r *http.Request) {
	var req clientReportDataRequest
	if !app.decodeJSON(w, r, &req) {
		return
	}
	viewer := currentUser(r)
	if req.UserID == 0 {
		req.UserID = viewer.ID
	}
	records, err := app.trainingService.ClientReportData(r.Context(), viewer, req.UserID, req.Date)
	app.metrics.ObserveFetch(err == nil)
	if err != nil {
		app.writeServiceError(w, r, err)
		return
	}
	if records == nil {
		records = []report.RawRecord{}
	}
	app.writeJSON(w, r, http.StatusOK, records)
}

// userReportPOST stores the chart selection and mails the report to one client.
func (app *application) userReportPOST(w http.ResponseWriter, r *http.Request) {
	var req report.SendRequest
	if !app.decodeJSON(w, r, &req) {
		return
	}
	selectionID, err := app.reporter.SendReport(r.Context(), currentUser(r), req)
	if errors.Is(err, training.ErrNotFound) {
		app.writeError(w, r, http.StatusNotFound, "No client with this email address.")
		return
	}
	if err != nil {
		app.writeServiceError(w, r, err)
		return
	}
	app.logger.LogAttrs(r.Context(), slog.LevelInfo, "report mailed", slog.String("selection", selectionID))
	app.writeSuccess(w, r, fmt.Sprintf("Report sent to %s.", req.Email))
}

// sendReportsPOST mails every opted-in client their report.
func (app *application) sendReportsPOST(w http.ResponseWriter, r *http.Request) {
	var req report.BroadcastRequest
	if !app.decodeJSON(w, r, &req) {
		return
	}
	result, err := app.reporter.Broadcast(r.Context(), currentUser(r), req)
	if err != nil {
		app.writeServiceError(w, r, err)
		return
	}
	msg := fmt.Sprintf("Reports sent to %d clients.", result.Sent)
	if result.Failed > 0 {
		msg = fmt.Sprintf("Reports sent to %d clients, %d failed.", result.Sent, result.Failed)
	}
	app.writeSuccess(w, r, msg)
}

// chartSelectionGET returns the flags of a stored chart selection.
func (app *application) chartSelectionGET(w http.ResponseWriter, r *http.Request) {
	sel, err := app.trainingService.Selection(r.Context(), r.PathValue("chartsId"))
	if err != nil {
		app.writeServiceError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, sel.Selection)
}

type saveChartImageRequest struct {
	ImageDataURL string `json:"imageDataUrl"`
}

type saveChartImageResponse struct {
	URL string `json:"url"`
}

// saveChartImagePOST stores an exported chart and returns the public URL it is served from.
func (app *application) saveChartImagePOST(w http.ResponseWriter, r *http.Request) {
	var req saveChartImageRequest
	if !app.decodeJSON(w, r, &req) {
		return
	}
	id, err := app.trainingService.SaveChartImage(r.Context(), req.ImageDataURL)
	app.metrics.ObserveExport(exportOutcome(err))
	if err != nil {
		app.writeServiceError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, saveChartImageResponse{URL: app.baseURL + "/images/" + url.PathEscape(id)})
}

// chartImageGET serves a stored chart image. Image ids are unguessable, so the images are public.
func (app *application) chartImageGET(w http.ResponseWriter, r *http.Request) {
	img, err := app.trainingService.ChartImage(r.Context(), r.PathValue("id"))
	if err != nil {
		app.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", img.ContentType)
	_, _ = w.Write(img.Data)
}

func exportOutcome(err error) report.ExportOutcome {
	if err != nil {
		return report.ExportFailed
	}
	return report.ExportSucceeded
}
