package main

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/coachreports/internal/report"
)

func january() []*string {
	from, to := "2024-01-01", "2024-01-31"
	return []*string{&from, &to}
}

func Test_clientReportDataPOST(t *testing.T) {
	server := startServer(t)
	ctx := t.Context()
	client := server.Client()

	t.Run("client reads own records", func(t *testing.T) {
		resp, err := client.PostJSON(ctx, "/training/getClientReportData", benToken,
			map[string]any{"userId": 4, "date": january()})
		if err != nil {
			t.Fatalf("PostJSON: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		got, err := report.DecodeRecords(readBody(t, resp))
		if err != nil {
			t.Fatalf("DecodeRecords: %v", err)
		}
		want := []report.RawRecord{
			{Title: report.TitleTrainingTypes, Counts: []report.Count{{ID: "Cardio", Count: 1}}},
			{Title: report.TitleExercises, Counts: []report.Count{{ID: "Running", Count: 1}}},
			{Title: report.TitleCardio, Points: []report.Point{{Date: "2024-01-03",
				Values: map[string]float64{"Running": 1, "totalEnergy": 250, "totalDistance": 4}}}},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("records mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("zero user id means self", func(t *testing.T) {
		resp, err := client.PostJSON(ctx, "/training/getClientReportData", benToken,
			map[string]any{"date": []*string{nil, nil}})
		if err != nil {
			t.Fatalf("PostJSON: %v", err)
		}
		got, err := report.DecodeRecords(readBody(t, resp))
		if err != nil {
			t.Fatalf("DecodeRecords: %v", err)
		}
		if len(got) != 3 {
			t.Errorf("got %d records, want Ben's 3", len(got))
		}
	})

	t.Run("empty window is an empty array", func(t *testing.T) {
		from, to := "2024-02-01", "2024-02-29"
		resp, err := client.PostJSON(ctx, "/training/getClientReportData", benToken,
			map[string]any{"userId": 4, "date": []*string{&from, &to}})
		if err != nil {
			t.Fatalf("PostJSON: %v", err)
		}
		if body := strings.TrimSpace(string(readBody(t, resp))); body != "[]" {
			t.Errorf("body = %q, want []", body)
		}
	})

	t.Run("trainer reads a client", func(t *testing.T) {
		resp, err := client.PostJSON(ctx, "/training/getClientReportData", trainerToken,
			map[string]any{"userId": 3, "date": january()})
		if err != nil {
			t.Fatalf("PostJSON: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		got, err := report.DecodeRecords(readBody(t, resp))
		if err != nil {
			t.Fatalf("DecodeRecords: %v", err)
		}
		if len(got) != 5 {
			t.Errorf("got %d records, want all 5 of Anna's", len(got))
		}
	})

	tests := []struct {
		name   string
		token  string
		body   any
		status int
	}{
		{"client reads another client", benToken, map[string]any{"userId": 3}, http.StatusForbidden},
		{"no credentials", "", map[string]any{"userId": 3}, http.StatusUnauthorized},
		{"unknown token", "nope", map[string]any{"userId": 3}, http.StatusUnauthorized},
		{"malformed date", benToken, map[string]any{"date": []string{"yesterday"}}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := client.PostJSON(ctx, "/training/getClientReportData", tt.token, tt.body)
			if err != nil {
				t.Fatalf("PostJSON: %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if n := readNotification(t, resp); n.Type != report.NotificationError || n.Message == "" {
				t.Errorf("notification = %+v, want an error message", n)
			}
		})
	}
}

func Test_userReportPOST(t *testing.T) {
	server := startServer(t)
	ctx := t.Context()
	client := server.Client()

	resp, err := client.PostJSON(ctx, "/user-report", trainerToken, report.SendRequest{
		Email:          "anna@example.com",
		SelectedCharts: []string{"typeChart", "strengthChart"},
		Date:           report.NewDateRange(day(t, "2024-01-01"), day(t, "2024-01-31")),
	})
	if err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	want := report.Notification{Type: report.NotificationSuccess, Message: "Report sent to anna@example.com."}
	if diff := cmp.Diff(want, readNotification(t, resp)); diff != "" {
		t.Errorf("notification mismatch (-want +got):\n%s", diff)
	}

	var selectionID, status string
	if err = server.DB().QueryRowContext(ctx, `SELECT selection_id, status FROM sent_reports
		WHERE recipient_email = 'anna@example.com'`).Scan(&selectionID, &status); err != nil {
		t.Fatalf("Query sent report: %v", err)
	}
	if status != "sent" {
		t.Errorf("delivery status = %q, want sent", status)
	}

	var flags map[string]bool
	code, err := client.GetJSON(ctx, "/user-report/charts/"+selectionID, annaToken, &flags)
	if err != nil || code != http.StatusOK {
		t.Fatalf("GetJSON selection: status %d, err %v", code, err)
	}
	wantFlags := map[string]bool{
		"typeChart": true, "exerciseChart": false, "strengthChart": true, "cardioChart": false,
		"crossfitChart": false,
	}
	if diff := cmp.Diff(wantFlags, flags); diff != "" {
		t.Errorf("selection mismatch (-want +got):\n%s", diff)
	}

	if code, _ = client.GetJSON(ctx, "/user-report/charts/00000000-0000-0000-0000-000000000000", annaToken,
		&flags); code != http.StatusNotFound {
		t.Errorf("unknown selection status = %d, want 404", code)
	}
}

func Test_userReportPOST_Rejections(t *testing.T) {
	server := startServer(t)
	ctx := t.Context()
	dates := report.NewDateRange(day(t, "2024-01-01"), day(t, "2024-01-31"))

	tests := []struct {
		name    string
		token   string
		req     report.SendRequest
		status  int
		message string
	}{
		{
			name:    "missing dates",
			token:   trainerToken,
			req:     report.SendRequest{Email: "anna@example.com", SelectedCharts: []string{"typeChart"}},
			status:  http.StatusBadRequest,
			message: "Please pick a start and an end date.",
		},
		{
			name:    "no charts",
			token:   trainerToken,
			req:     report.SendRequest{Email: "anna@example.com", SelectedCharts: []string{}, Date: dates},
			status:  http.StatusBadRequest,
			message: "Please select at least one chart.",
		},
		{
			name:    "unknown recipient",
			token:   trainerToken,
			req:     report.SendRequest{Email: "nobody@example.com", SelectedCharts: []string{"typeChart"}, Date: dates},
			status:  http.StatusNotFound,
			message: "No client with this email address.",
		},
		{
			name:    "client mails another client",
			token:   benToken,
			req:     report.SendRequest{Email: "anna@example.com", SelectedCharts: []string{"typeChart"}, Date: dates},
			status:  http.StatusForbidden,
			message: "You may not access this client.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := server.Client().PostJSON(ctx, "/user-report", tt.token, tt.req)
			if err != nil {
				t.Fatalf("PostJSON: %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			want := report.Notification{Type: report.NotificationError, Message: tt.message}
			if diff := cmp.Diff(want, readNotification(t, resp)); diff != "" {
				t.Errorf("notification mismatch (-want +got):\n%s", diff)
			}
		})
	}

	var sent int
	if err := server.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM sent_reports").Scan(&sent); err != nil {
		t.Fatalf("Count sent reports: %v", err)
	}
	if sent != 0 {
		t.Errorf("%d reports recorded, want none", sent)
	}
}

func Test_sendReportsPOST(t *testing.T) {
	server := startServer(t)
	ctx := t.Context()
	req := report.BroadcastRequest{
		SelectedCharts: []string{"typeChart", "cardioChart"},
		Date:           report.NewDateRange(day(t, "2024-01-01"), day(t, "2024-01-31")),
	}

	resp, err := server.Client().PostJSON(ctx, "/users/send-reports", benToken, req)
	if err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("client broadcast status = %d, want 403", resp.StatusCode)
	}
	_ = resp.Body.Close()

	for _, token := range []string{trainerToken, adminToken} {
		resp, err = server.Client().PostJSON(ctx, "/users/send-reports", token, req)
		if err != nil {
			t.Fatalf("PostJSON: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("broadcast status = %d, want 200", resp.StatusCode)
		}
		want := report.Notification{Type: report.NotificationSuccess, Message: "Reports sent to 2 clients."}
		if diff := cmp.Diff(want, readNotification(t, resp)); diff != "" {
			t.Errorf("notification mismatch (-want +got):\n%s", diff)
		}
	}

	var recipients int
	if err = server.DB().QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT recipient_email) FROM sent_reports WHERE status = 'sent'").Scan(&recipients); err != nil {
		t.Fatalf("Count recipients: %v", err)
	}
	if recipients != 2 {
		t.Errorf("%d recipients recorded, want 2", recipients)
	}
}

func Test_saveChartImagePOST(t *testing.T) {
	server := startServer(t)
	ctx := t.Context()
	client := server.Client()
	png := []byte("\x89PNG\r\n\x1a\nnot really a picture")

	resp, err := client.PostJSON(ctx, "/imageUploader/saveChartImage", annaToken, map[string]string{
		"imageDataUrl": "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	})
	if err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var saved saveChartImageResponse
	if err = json.Unmarshal(readBody(t, resp), &saved); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	_, imagePath, found := strings.Cut(saved.URL, "/images/")
	if !found {
		t.Fatalf("url %q does not point to /images/", saved.URL)
	}

	// Shared images are opened from mail clients without a session.
	anonymous, err := server.NewClient()
	if err != nil {
		t.Fatalf("New client: %v", err)
	}
	if resp, err = anonymous.Get(ctx, "/images/"+imagePath); err != nil {
		t.Fatalf("Get image: %v", err)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
	if diff := cmp.Diff(png, readBody(t, resp)); diff != "" {
		t.Errorf("image mismatch (-want +got):\n%s", diff)
	}

	resp, err = client.PostJSON(ctx, "/imageUploader/saveChartImage", annaToken, map[string]string{
		"imageDataUrl": "data:text/plain;base64,aGVsbG8=",
	})
	if err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("text upload status = %d, want 400", resp.StatusCode)
	}
	_ = resp.Body.Close()
}

func Test_healthyAndMetrics(t *testing.T) {
	server := startServer(t)
	ctx := t.Context()
	client := server.Client()

	var health map[string]string
	if code, err := client.GetJSON(ctx, "/api/healthy", "", &health); err != nil || code != http.StatusOK {
		t.Fatalf("healthy: status %d, err %v", code, err)
	}
	if health["status"] != "ok" {
		t.Errorf("health = %v, want ok", health)
	}

	resp, err := client.PostJSON(ctx, "/training/getClientReportData", benToken, map[string]any{})
	if err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	_ = resp.Body.Close()

	if resp, err = client.Get(ctx, "/metrics"); err != nil {
		t.Fatalf("Get metrics: %v", err)
	}
	body := string(readBody(t, resp))
	for _, metric := range []string{
		`coachreports_report_fetches_total{outcome="success"} 1`,
		"coachreports_http_requests_total",
	} {
		if !strings.Contains(body, metric) {
			t.Errorf("metrics do not contain %q", metric)
		}
	}
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(report.DateLayout, s)
	if err != nil {
		t.Fatalf("Parse day: %v", err)
	}
	return d
}
