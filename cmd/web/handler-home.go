package main

import (
	"log/slog"
	"net/http"

	"github.com/myrjola/coachreports/internal/contexthelpers"
	"github.com/myrjola/coachreports/internal/errors"
	"github.com/myrjola/coachreports/internal/training"
)

type homeTemplateData struct {
	BaseTemplateData
	LoginError string
}

func (app *application) home(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusOK, "home", homeTemplateData{BaseTemplateData: newBaseTemplateData(r)})
}

// loginPOST signs the user in with their API token.
func (app *application) loginPOST(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.writeError(w, r, http.StatusBadRequest, "Invalid form.")
		return
	}
	ctx := r.Context()
	user, err := app.trainingService.Authenticate(ctx, r.PostForm.Get("token"))
	if errors.Is(err, training.ErrUnauthorized) {
		app.logger.LogAttrs(ctx, slog.LevelWarn, "rejected login")
		app.render(w, r, http.StatusUnauthorized, "home", homeTemplateData{
			BaseTemplateData: newBaseTemplateData(r),
			LoginError:       "Unknown token.",
		})
		return
	}
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	// Renew the session token on privilege change.
	if err = app.sessionManager.RenewToken(ctx); err != nil {
		app.serverError(w, r, err)
		return
	}
	app.sessionManager.Put(ctx, sessionUserIDKey, user.ID)
	app.logger.LogAttrs(ctx, slog.LevelInfo, "signed in", slog.Int("user_id", user.ID))
	redirect(w, r, "/reports")
}

func (app *application) logoutPOST(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := app.sessionManager.RenewToken(ctx); err != nil {
		app.serverError(w, r, err)
		return
	}
	app.sessionManager.Remove(ctx, sessionUserIDKey)
	app.sessionManager.Remove(ctx, sessionSelectionKey)
	if contexthelpers.IsAuthenticated(ctx) {
		app.logger.LogAttrs(ctx, slog.LevelInfo, "signed out")
	}
	redirect(w, r, "/")
}
