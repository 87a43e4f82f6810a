package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/myrjola/coachreports/internal/metrics"
	"github.com/myrjola/coachreports/internal/report"
)

func scrape(t *testing.T, m *metrics.Manager) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestManager_Exposition(t *testing.T) {
	m := metrics.NewTestManager()
	m.ObserveFetch(true)
	m.ObserveFetch(false)
	m.ObserveFetch(false)
	m.ObserveMail(report.MailOutcome{Kind: "broadcast", Success: true})
	m.ObserveExport(report.ExportFailed)
	m.ObserveRequest(http.MethodPost, http.StatusBadRequest)
	m.ObserveAggregation(30 * time.Millisecond)

	body := scrape(t, m)
	for _, want := range []string{
		`coachreports_report_fetches_total{outcome="failure"} 2`,
		`coachreports_report_fetches_total{outcome="success"} 1`,
		`coachreports_report_mails_total{kind="broadcast",outcome="success"} 1`,
		`coachreports_chart_exports_total{outcome="failure"} 1`,
		`coachreports_http_requests_total{method="POST",status="400"} 1`,
		`coachreports_report_aggregation_seconds_count 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition lacks %q", want)
		}
	}
}

func TestNewManager_RegistersRuntimeCollectors(t *testing.T) {
	body := scrape(t, metrics.NewManager())
	if !strings.Contains(body, "go_goroutines") {
		t.Error("expected Go runtime metrics")
	}
}
