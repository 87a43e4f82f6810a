package main

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/coachreports/internal/e2etest"
	"github.com/myrjola/coachreports/internal/report"
)

const annaJanuary = "/reports?user=3&from=2024-01-01&to=2024-01-31"

// chartDecisions maps each chart area on the page to its visibility decision.
func chartDecisions(doc *goquery.Document) map[string]string {
	decisions := map[string]string{}
	doc.Find("article.chart").Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("id")
		for _, d := range []string{"live", "empty", "placeholder"} {
			if s.HasClass(d) {
				decisions[id] = d
			}
		}
	})
	return decisions
}

func flashMessage(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("p.notification").Text())
}

func Test_reportsGET_Trainer(t *testing.T) {
	server := startServer(t)
	ctx := t.Context()
	client := newLoggedInClient(t, server, trainerToken)

	doc, err := client.GetDoc(ctx, "/reports")
	if err != nil {
		t.Fatalf("Get reports: %v", err)
	}
	form, err := e2etest.FindForm(doc, "/reports")
	if err != nil {
		t.Fatalf("Find report target form: %v", err)
	}
	picker, err := e2etest.FindSelectForLabel(form, "Client")
	if err != nil {
		t.Fatalf("Find client picker: %v", err)
	}
	var clients []string
	picker.Find("option").Each(func(_ int, s *goquery.Selection) {
		clients = append(clients, strings.TrimSpace(s.Text()))
	})
	if diff := cmp.Diff([]string{"Pick a client", "Anna", "Ben"}, clients); diff != "" {
		t.Errorf("client options mismatch (-want +got):\n%s", diff)
	}
	for id, decision := range chartDecisions(doc) {
		if decision != "placeholder" {
			t.Errorf("%s = %s before a client is picked, want placeholder", id, decision)
		}
	}
	if n := doc.Find("article.chart").Length(); n != len(report.RegionIDs()) {
		t.Errorf("%d chart areas, want %d", n, len(report.RegionIDs()))
	}

	t.Run("client with every kind of training", func(t *testing.T) {
		doc, err = client.GetDoc(ctx, annaJanuary)
		if err != nil {
			t.Fatalf("Get reports: %v", err)
		}
		for id, decision := range chartDecisions(doc) {
			if decision != "live" {
				t.Errorf("%s = %s, want live", id, decision)
			}
		}
		if selected := doc.Find("select#user option[selected]").Text(); selected != "Anna" {
			t.Errorf("selected client = %q, want Anna", selected)
		}
		if email, _ := doc.Find("input#email").Attr("value"); email != "anna@example.com" {
			t.Errorf("recipient = %q, want anna@example.com", email)
		}
	})

	t.Run("client with only cardio", func(t *testing.T) {
		doc, err = client.GetDoc(ctx, "/reports?user=4&from=2024-01-01&to=2024-01-31")
		if err != nil {
			t.Fatalf("Get reports: %v", err)
		}
		want := map[string]string{
			"type-chart":             "live",
			"exercise-chart":         "live",
			"strength-chart":         "empty",
			"cardio-energy-chart":    "live",
			"cardio-distance-chart":  "live",
			"crossfit-repeats-chart": "empty",
			"crossfit-weight-chart":  "empty",
		}
		if diff := cmp.Diff(want, chartDecisions(doc)); diff != "" {
			t.Errorf("decisions mismatch (-want +got):\n%s", diff)
		}
		if text := doc.Find("article#strength-chart p.empty").Text(); text != "No data for this period." {
			t.Errorf("empty strength chart text = %q", text)
		}
	})

	t.Run("half picked range shows placeholders", func(t *testing.T) {
		doc, err = client.GetDoc(ctx, "/reports?user=3&from=2024-01-01")
		if err != nil {
			t.Fatalf("Get reports: %v", err)
		}
		if d := chartDecisions(doc)["type-chart"]; d != "placeholder" {
			t.Errorf("type-chart = %s, want placeholder", d)
		}
	})
}

func Test_reportsGET_Client(t *testing.T) {
	server := startServer(t)
	ctx := t.Context()
	client := newLoggedInClient(t, server, benToken)

	// Clients see their whole history without picking dates and can't pick anyone else.
	doc, err := client.GetDoc(ctx, "/reports?user=3")
	if err != nil {
		t.Fatalf("Get reports: %v", err)
	}
	if doc.Find("select#user").Length() != 0 {
		t.Error("clients must not get the client picker")
	}
	if doc.Find("form[action='/reports/send-all']").Length() != 0 {
		t.Error("clients must not get the broadcast form")
	}
	decisions := chartDecisions(doc)
	if decisions["cardio-energy-chart"] != "live" || decisions["strength-chart"] != "empty" {
		t.Errorf("decisions = %v, want Ben's own cardio live and strength empty", decisions)
	}
}

func Test_reportChartGET(t *testing.T) {
	server := startServer(t)
	ctx := t.Context()
	client := newLoggedInClient(t, server, trainerToken)

	doc, err := client.GetDoc(ctx, annaJanuary)
	if err != nil {
		t.Fatalf("Get reports: %v", err)
	}
	src, ok := doc.Find("article#type-chart img").Attr("src")
	if !ok {
		t.Fatal("type chart has no image")
	}

	resp, err := client.Get(ctx, src)
	if err != nil {
		t.Fatalf("Get png: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("png status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
	if body := readBody(t, resp); !bytes.HasPrefix(body, []byte("\x89PNG")) {
		t.Errorf("body is not a PNG: % x", body[:min(len(body), 8)])
	}

	if resp, err = client.Get(ctx, src+"&download=1"); err != nil {
		t.Fatalf("Get download: %v", err)
	}
	_ = resp.Body.Close()
	if cd := resp.Header.Get("Content-Disposition"); !strings.HasPrefix(cd, `attachment; filename="client-3-chart-`) {
		t.Errorf("Content-Disposition = %q, want a client-3 attachment", cd)
	}

	if resp, err = client.Get(ctx, "/reports/charts/cardio-energy-chart.html?user=3&from=2024-01-01&to=2024-01-31"); err != nil {
		t.Fatalf("Get interactive chart: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("interactive chart status = %d, want 200", resp.StatusCode)
	}
	if csp := resp.Header.Get("Content-Security-Policy"); !strings.Contains(csp, "go-echarts.github.io") {
		t.Errorf("Content-Security-Policy = %q, want the echarts assets allowed", csp)
	}
	if body := string(readBody(t, resp)); !strings.Contains(body, "echarts") {
		t.Error("interactive chart page does not load echarts")
	}

	for _, path := range []string{
		"/reports/charts/unknown-chart.png?user=3&from=2024-01-01&to=2024-01-31",
		"/reports/charts/strength-chart.png?user=4&from=2024-01-01&to=2024-01-31",
		"/reports/charts/type-chart.svg?user=3&from=2024-01-01&to=2024-01-31",
	} {
		if resp, err = client.Get(ctx, path); err != nil {
			t.Fatalf("Get %s: %v", path, err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s status = %d, want 404", path, resp.StatusCode)
		}
	}
}

func Test_reportSelectionAndMail(t *testing.T) {
	server := startServer(t)
	ctx := t.Context()
	client := newLoggedInClient(t, server, trainerToken)

	doc, err := client.GetDoc(ctx, annaJanuary)
	if err != nil {
		t.Fatalf("Get reports: %v", err)
	}
	if _, disabled := doc.Find("form[action='/reports/selection/all'] button").Attr("disabled"); !disabled {
		t.Error("select all must be disabled while every chart is selected")
	}

	if doc, err = client.SubmitForm(ctx, doc, "/reports/selection/typeChart/toggle", nil); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if doc.Url.Query().Get("user") != "3" || doc.Url.Query().Get("from") != "2024-01-01" {
		t.Errorf("redirected to %s, want the client and period kept", doc.Url)
	}
	if checked, _ := doc.Find("form[action='/reports/selection/typeChart/toggle'] button").
		Attr("aria-checked"); checked != "false" {
		t.Errorf("type chart aria-checked = %q, want false", checked)
	}

	if doc, err = client.SubmitForm(ctx, doc, "/reports/selection/none", nil); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if doc, err = client.SubmitForm(ctx, doc, "/reports/send", map[string]string{
		"Recipient email": "anna@example.com",
	}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if msg := flashMessage(doc); msg != "Please select at least one chart." {
		t.Errorf("flash = %q, want the selection reminder", msg)
	}
	// The flash message is shown once.
	if doc, err = client.GetDoc(ctx, annaJanuary); err != nil {
		t.Fatalf("Get reports: %v", err)
	}
	if msg := flashMessage(doc); msg != "" {
		t.Errorf("flash = %q after a reload, want none", msg)
	}

	if doc, err = client.SubmitForm(ctx, doc, "/reports/selection/all", nil); err != nil {
		t.Fatalf("Select all: %v", err)
	}
	if doc, err = client.SubmitForm(ctx, doc, "/reports/send", map[string]string{
		"Recipient email": "anna@example.com",
	}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if msg := flashMessage(doc); msg != "Report sent to anna@example.com." {
		t.Errorf("flash = %q, want the sent confirmation", msg)
	}

	if doc, err = client.SubmitForm(ctx, doc, "/reports/send-all", nil); err != nil {
		t.Fatalf("Send all: %v", err)
	}
	if msg := flashMessage(doc); msg != "Reports sent to all clients." {
		t.Errorf("flash = %q, want the broadcast confirmation", msg)
	}

	var sent int
	if err = server.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sent_reports WHERE status = 'sent'").Scan(&sent); err != nil {
		t.Fatalf("Count sent reports: %v", err)
	}
	if sent != 3 {
		t.Errorf("%d deliveries recorded, want one single and two broadcast", sent)
	}
}

func Test_reportSendPOST_RequiresDates(t *testing.T) {
	server := startServer(t)
	ctx := t.Context()
	client := newLoggedInClient(t, server, trainerToken)

	doc, err := client.GetDoc(ctx, "/reports?user=3")
	if err != nil {
		t.Fatalf("Get reports: %v", err)
	}
	if doc, err = client.SubmitForm(ctx, doc, "/reports/send", map[string]string{
		"Recipient email": "anna@example.com",
	}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if msg := flashMessage(doc); msg != "Please pick a start and an end date." {
		t.Errorf("flash = %q, want the date reminder", msg)
	}
}
