package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/myrjola/coachreports/internal/contexthelpers"
	"github.com/myrjola/coachreports/internal/errors"
	"github.com/myrjola/coachreports/internal/report"
	"github.com/myrjola/coachreports/internal/training"
)

// maxJSONBody bounds request bodies. Chart image uploads are the largest.
const maxJSONBody = 8 << 20

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error", errors.SlogError(err))
	if wantsJSON(r) {
		app.writeJSON(w, r, http.StatusInternalServerError,
			report.Notification{Type: report.NotificationError, Message: "Something went wrong."})
		return
	}
	app.render(w, r, http.StatusInternalServerError, "error", newBaseTemplateData(r))
}

func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusNotFound, "not-found", newBaseTemplateData(r))
}

// wantsJSON tells API calls apart from page navigation.
func wantsJSON(r *http.Request) bool {
	return r.Header.Get("Content-Type") == "application/json" || r.Header.Get("Authorization") != "" ||
		r.Header.Get("Accept") == "application/json"
}

func (app *application) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelError, "failed to marshal response", errors.SlogError(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeError responds with an error notification body.
func (app *application) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	app.writeJSON(w, r, status, report.Notification{Type: report.NotificationError, Message: message})
}

func (app *application) writeSuccess(w http.ResponseWriter, r *http.Request, message string) {
	app.writeJSON(w, r, http.StatusOK, report.Notification{Type: report.NotificationSuccess, Message: message})
}

// decodeJSON reads the request body into v. It responds with 400 and returns false on failure.
func (app *application) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err == nil {
		err = json.Unmarshal(body, v)
	}
	if err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelWarn, "invalid request body", errors.SlogError(err))
		app.writeError(w, r, http.StatusBadRequest, "Invalid request body.")
		return false
	}
	return true
}

// writeServiceError maps the errors of the training and mail services to responses.
func (app *application) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, report.ErrMissingDateRange), errors.Is(err, report.ErrNoChartSelected),
		errors.Is(err, report.ErrMissingRecipient):
		app.writeError(w, r, http.StatusBadRequest, report.ValidationMessage(err))
	case errors.Is(err, report.ErrUnknownChart):
		app.writeError(w, r, http.StatusBadRequest, "Unknown chart.")
	case errors.Is(err, report.ErrInvalidDataURL), errors.Is(err, report.ErrInvalidDateRange):
		app.writeError(w, r, http.StatusBadRequest, "Invalid request body.")
	case errors.Is(err, training.ErrImageTooLarge):
		app.writeError(w, r, http.StatusRequestEntityTooLarge, "The image is too large.")
	case errors.Is(err, training.ErrForbidden):
		app.writeError(w, r, http.StatusForbidden, "You may not access this client.")
	case errors.Is(err, training.ErrNotFound):
		app.writeError(w, r, http.StatusNotFound, "Not found.")
	default:
		app.serverError(w, r, err)
	}
}

// redirect detects if the request is originating from a fetch API call or a top-level navigation and points the user
// to the correct URL.
func redirect(w http.ResponseWriter, r *http.Request, path string) {
	if r.Header.Get("Sec-Fetch-Dest") == "empty" {
		w.Header().Set("Content-Location", path)
		w.WriteHeader(http.StatusOK)
		return
	}

	http.Redirect(w, r, path, http.StatusSeeOther)
}

// currentUser returns the authenticated user. The routes guarantee there is one.
func currentUser(r *http.Request) training.User {
	user, _ := contexthelpers.AuthenticatedUser(r.Context())
	return user
}

// parseUserParam parses the optional "user" query or form value. Zero means no user was picked.
func parseUserParam(value string) int {
	id, err := strconv.Atoi(value)
	if err != nil || id < 0 {
		return 0
	}
	return id
}
