package main

import (
	"context"
	"strings"

	"github.com/alexedwards/scs/v2"
	"github.com/myrjola/coachreports/internal/report"
)

const (
	sessionSelectionKey    = "chartSelection"
	sessionFlashTypeKey    = "flashType"
	sessionFlashMessageKey = "flashMessage"
)

// sessionSelection returns the charts picked for mailing in this session. Every chart is picked initially.
func (app *application) sessionSelection(ctx context.Context) report.Selection {
	if !app.sessionManager.Exists(ctx, sessionSelectionKey) {
		return report.SelectAllCharts()
	}
	var keys []string
	if stored := app.sessionManager.GetString(ctx, sessionSelectionKey); stored != "" {
		keys = strings.Split(stored, ",")
	}
	sel, err := report.SelectionFromKeys(keys)
	if err != nil {
		return report.SelectAllCharts()
	}
	return sel
}

func (app *application) storeSelection(ctx context.Context, sel report.Selection) {
	app.sessionManager.Put(ctx, sessionSelectionKey, strings.Join(sel.Keys(), ","))
}

// flashNotifier keeps the latest notification in the session until the next page render.
type flashNotifier struct {
	sessionManager *scs.SessionManager
}

func (f flashNotifier) Notify(ctx context.Context, n report.Notification) {
	f.sessionManager.Put(ctx, sessionFlashTypeKey, string(n.Type))
	f.sessionManager.Put(ctx, sessionFlashMessageKey, n.Message)
}

// popFlash returns and clears the pending notification.
func (app *application) popFlash(ctx context.Context) *report.Notification {
	msg := app.sessionManager.PopString(ctx, sessionFlashMessageKey)
	typ := app.sessionManager.PopString(ctx, sessionFlashTypeKey)
	if msg == "" {
		return nil
	}
	return &report.Notification{Type: report.NotificationType(typ), Message: msg}
}
