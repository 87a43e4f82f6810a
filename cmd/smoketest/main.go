package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/myrjola/coachreports/internal/e2etest"
	"github.com/myrjola/coachreports/internal/logging"
	"github.com/myrjola/coachreports/internal/report"
	"github.com/myrjola/coachreports/internal/testhelpers"
)

// TestReports signs in with token, opens the report page and fetches the caller's report data over the API.
func TestReports(client *e2etest.Client, token string) error {
	ctx := context.Background()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second) //nolint:mnd // 10 seconds
	defer cancel()

	if _, err := client.Login(ctx, token); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	doc, err := client.GetDoc(ctx, "/reports")
	if err != nil {
		return fmt.Errorf("get reports page: %w", err)
	}
	if doc.Find("article.chart").Length() == 0 {
		return errors.New("reports page has no chart regions")
	}

	resp, err := client.PostJSON(ctx, "/training/getClientReportData", token, map[string]any{
		"userId": 0,
		"date":   report.DateRange{},
	})
	if err != nil {
		return fmt.Errorf("fetch report data: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch report data: unexpected status code %d", resp.StatusCode)
	}
	var records []report.RawRecord
	if err = json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return fmt.Errorf("decode report data: %w", err)
	}

	if _, err = client.Logout(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: COACHREPORTS_SMOKE_TOKEN=<token> smoketest <hostname>")
		os.Exit(1)
	}
	token := os.Getenv("COACHREPORTS_SMOKE_TOKEN")
	if token == "" {
		logger.LogAttrs(ctx, slog.LevelError, "COACHREPORTS_SMOKE_TOKEN is not set")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		client   *e2etest.Client
		err      error
		start    = time.Now()
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))
	url := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		url = "http://" + hostname
	}

	if client, err = e2etest.NewClient(url); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", slog.Any("error", err))
		os.Exit(1)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", slog.Any("error", err))
		os.Exit(1)
	}
	if err = TestReports(client, token); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing reports", slog.Any("error", err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌", slog.Duration("duration", time.Since(start)))
	os.Exit(0)
}
