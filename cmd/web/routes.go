package main

import (
	"fmt"
	"net/http"
)

func (app *application) routes() (*http.ServeMux, error) {
	mux := http.NewServeMux()

	var (
		withTimeout = func(limit func(http.Handler) http.Handler) func(http.Handler) http.Handler {
			return func(next http.Handler) http.Handler {
				return app.logAndTraceRequest(secureHeaders(app.crossOriginProtection(
					commonContext(limit(next)))))
			}
		}
		shared = withTimeout(app.timeout)
		noAuth = func(next http.Handler) http.Handler {
			return app.recoverPanic(shared(next))
		}
		session = func(next http.Handler) http.Handler {
			return app.recoverPanic(noCache(app.sessionManager.LoadAndSave(shared(app.authenticate(next)))))
		}
		mailSession = func(next http.Handler) http.Handler {
			return app.recoverPanic(noCache(app.sessionManager.LoadAndSave(
				withTimeout(app.mailDeadline)(app.authenticate(next)))))
		}
		mustSession = func(next http.Handler) http.Handler {
			return session(app.mustAuthenticate(next))
		}
		mustAPI = func(next http.Handler) http.Handler {
			return session(app.mustAuthenticateAPI(next))
		}
		mustMailAPI = func(next http.Handler) http.Handler {
			return mailSession(app.mustAuthenticateAPI(next))
		}
		mustMailPage = func(next http.Handler) http.Handler {
			return mailSession(app.mustAuthenticate(next))
		}
	)

	// REST endpoints used by report clients.
	mux.Handle("POST /training/getClientReportData", mustAPI(http.HandlerFunc(app.clientReportDataPOST)))
	mux.Handle("POST /user-report", mustMailAPI(http.HandlerFunc(app.userReportPOST)))
	mux.Handle("POST /users/send-reports", mustMailAPI(app.mustStaff(http.HandlerFunc(app.sendReportsPOST))))
	mux.Handle("GET /user-report/charts/{chartsId}", mustAPI(http.HandlerFunc(app.chartSelectionGET)))
	mux.Handle("POST /imageUploader/saveChartImage", mustAPI(http.HandlerFunc(app.saveChartImagePOST)))
	mux.Handle("GET /images/{id}", noAuth(cacheForever(http.HandlerFunc(app.chartImageGET))))

	// Report pages.
	mux.Handle("GET /reports", mustSession(http.HandlerFunc(app.reportsGET)))
	mux.Handle("GET /reports/charts/{file}", mustSession(chartPageHeaders(http.HandlerFunc(app.reportChartGET))))
	mux.Handle("POST /reports/selection/all", mustSession(http.HandlerFunc(app.selectionAllPOST)))
	mux.Handle("POST /reports/selection/none", mustSession(http.HandlerFunc(app.selectionNonePOST)))
	mux.Handle("POST /reports/selection/{key}/toggle", mustSession(http.HandlerFunc(app.selectionTogglePOST)))
	mux.Handle("POST /reports/send", mustMailPage(http.HandlerFunc(app.reportSendPOST)))
	mux.Handle("POST /reports/send-all", mustMailPage(app.mustStaff(http.HandlerFunc(app.reportSendAllPOST))))
	mux.Handle("GET /public-report/{chartsId}", mustSession(http.HandlerFunc(app.publicReportGET)))
	mux.Handle("GET /public-report/{chartsId}/charts/{file}",
		mustSession(http.HandlerFunc(app.publicReportChartGET)))

	mux.Handle("POST /login", session(http.HandlerFunc(app.loginPOST)))
	mux.Handle("POST /logout", session(http.HandlerFunc(app.logoutPOST)))
	mux.Handle("GET /api/healthy", noAuth(http.HandlerFunc(app.healthy)))
	mux.Handle("GET /metrics", noAuth(app.metrics.Handler()))

	// Home route (most specific)
	mux.Handle("GET /{$}", session(http.HandlerFunc(app.home)))

	// File server with custom 404 handling
	fileServerHandler, err := app.fileServerHandler(session(http.HandlerFunc(app.notFound)))
	if err != nil {
		return nil, fmt.Errorf("fileServerHandler: %w", err)
	}
	mux.Handle("/", fileServerHandler)

	return mux, nil
}
