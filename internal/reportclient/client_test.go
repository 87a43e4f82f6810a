package reportclient_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/coachreports/internal/report"
	"github.com/myrjola/coachreports/internal/reportclient"
	"github.com/myrjola/coachreports/internal/testhelpers"
)

type captured struct {
	method string
	path   string
	auth   string
	body   map[string]any
}

func newServer(t *testing.T, status int, response string) (*reportclient.Client, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.auth = r.Header.Get("Authorization")
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			_ = json.Unmarshal(b, &got.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	c, err := reportclient.New(srv.URL+"/", "secret", testhelpers.NewLogger(testhelpers.NewWriter(t)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, got
}

func january() report.DateRange {
	return report.NewDateRange(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
}

func TestClient_FetchRecords(t *testing.T) {
	c, got := newServer(t, http.StatusOK, `[
		{"title": "Training types", "data": [{"_id": "Cardio", "count": 2}]},
		{"title": "Unknown", "data": []}
	]`)
	records, err := c.FetchRecords(t.Context(), 3, january())
	if err != nil {
		t.Fatalf("FetchRecords: %v", err)
	}
	want := []report.RawRecord{{Title: report.TitleTrainingTypes, Counts: []report.Count{{ID: "Cardio", Count: 2}}}}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	wantBody := map[string]any{"userId": float64(3), "date": []any{"2024-01-01", "2024-01-31"}}
	if diff := cmp.Diff(wantBody, got.body); diff != "" {
		t.Errorf("request body mismatch (-want +got):\n%s", diff)
	}
	if got.path != "/training/getClientReportData" || got.auth != "Bearer secret" {
		t.Errorf("request = %s %s auth %q", got.method, got.path, got.auth)
	}
}

func TestClient_FetchRecordsMalformed(t *testing.T) {
	c, _ := newServer(t, http.StatusOK, `{"title": "not a list"}`)
	if _, err := c.FetchRecords(t.Context(), 3, january()); !errors.Is(err, report.ErrMalformedRecords) {
		t.Errorf("err = %v, want ErrMalformedRecords", err)
	}
}

func TestClient_StatusError(t *testing.T) {
	c, _ := newServer(t, http.StatusForbidden, `{"type": "error", "message": "You may only view your own report."}`)
	_, err := c.FetchRecords(t.Context(), 4, january())
	var statusErr *reportclient.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("err = %v, want a StatusError", err)
	}
	if statusErr.Status != http.StatusForbidden || statusErr.Message != "You may only view your own report." {
		t.Errorf("status error = %+v", statusErr)
	}
}

func TestClient_Mail(t *testing.T) {
	c, got := newServer(t, http.StatusOK, `{"type": "success", "message": "sent"}`)
	err := c.SendReport(t.Context(), report.SendRequest{
		Email: "anna@example.com", SelectedCharts: []string{"typeChart"}, Date: january(),
	})
	if err != nil {
		t.Fatalf("SendReport: %v", err)
	}
	want := map[string]any{
		"email":          "anna@example.com",
		"selectedCharts": []any{"typeChart"},
		"date":           []any{"2024-01-01", "2024-01-31"},
	}
	if diff := cmp.Diff(want, got.body); diff != "" {
		t.Errorf("send body mismatch (-want +got):\n%s", diff)
	}

	got.body = nil
	if err = c.BroadcastReports(t.Context(), report.BroadcastRequest{
		SelectedCharts: []string{"cardioChart"}, Date: january(),
	}); err != nil {
		t.Fatalf("BroadcastReports: %v", err)
	}
	if got.path != "/users/send-reports" {
		t.Errorf("path = %s", got.path)
	}
	if _, ok := got.body["selectedChart"]; !ok {
		t.Errorf("broadcast body = %v, want the selectedChart field", got.body)
	}
}

func TestClient_UploadChartImage(t *testing.T) {
	c, got := newServer(t, http.StatusCreated, `{"url": "http://localhost/images/abc"}`)
	u, err := c.UploadChartImage(t.Context(), "data:image/png;base64,AAAA")
	if err != nil {
		t.Fatalf("UploadChartImage: %v", err)
	}
	if u != "http://localhost/images/abc" || got.body["imageDataUrl"] != "data:image/png;base64,AAAA" {
		t.Errorf("url = %s body = %v", u, got.body)
	}
}

func TestClient_ChartSelection(t *testing.T) {
	c, got := newServer(t, http.StatusOK, `{"typeChart": false, "exerciseChart": true, "strengthChart": false,
		"cardioChart": false, "crossfitChart": true}`)
	sel, err := c.ChartSelection(t.Context(), "1b4e28ba-2fa1-11d2-883f-0016d3cca427")
	if err != nil {
		t.Fatalf("ChartSelection: %v", err)
	}
	if diff := cmp.Diff([]string{"exerciseChart", "crossfitChart"}, sel.Keys()); diff != "" {
		t.Errorf("selection mismatch (-want +got):\n%s", diff)
	}
	if got.method != http.MethodGet || got.path != "/user-report/charts/1b4e28ba-2fa1-11d2-883f-0016d3cca427" {
		t.Errorf("request = %s %s", got.method, got.path)
	}
}

func TestNew_RejectsBadURL(t *testing.T) {
	if _, err := reportclient.New("ftp://example.com", "", nil); err == nil {
		t.Error("expected an error for a non-http url")
	}
}
