package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/myrjola/coachreports/internal/e2etest"
	"github.com/myrjola/coachreports/internal/logging"
	"github.com/myrjola/coachreports/internal/report"
	"github.com/myrjola/coachreports/internal/testhelpers"
	"golang.org/x/sync/errgroup"
)

const (
	setupTimeout            = 30 * time.Second
	scenarioTimeout         = 30 * time.Second
	maxConcurrentOperations = 20
	scenariosPerUser        = 5
	successRateThreshold    = 95.0
	expectedArgsCount       = 2
	percentageMultiplier    = 100
	reportWindowDays        = 90
)

// AuthenticatedUser holds a client with a valid session.
type AuthenticatedUser struct {
	Client *e2etest.Client
	Token  string
}

// SetupUsers signs in one client per token.
func SetupUsers(ctx context.Context, url string, tokens []string) ([]*AuthenticatedUser, error) {
	ctx, cancel := context.WithTimeout(ctx, setupTimeout)
	defer cancel()
	users := make([]*AuthenticatedUser, 0, len(tokens))
	for i, token := range tokens {
		client, err := e2etest.NewClient(url)
		if err != nil {
			return nil, fmt.Errorf("create client %d: %w", i, err)
		}
		if _, err = client.Login(ctx, token); err != nil {
			return nil, fmt.Errorf("login client %d: %w", i, err)
		}
		users = append(users, &AuthenticatedUser{Client: client, Token: token})
	}
	return users, nil
}

// ReportScenario mimics a user opening their report: the page, the raw data and one rendered chart.
func ReportScenario(ctx context.Context, user *AuthenticatedUser, logger *slog.Logger) error {
	client := user.Client
	to := time.Now()
	from := to.AddDate(0, 0, -reportWindowDays)

	doc, err := client.GetDoc(ctx, fmt.Sprintf("/reports?from=%s&to=%s",
		from.Format(time.DateOnly), to.Format(time.DateOnly)))
	if err != nil {
		return fmt.Errorf("get reports page: %w", err)
	}
	// The first chart with data is rendered, or nothing if the window is empty.
	chartURL, _ := doc.Find("article.chart img").First().Attr("src")

	resp, err := client.PostJSON(ctx, "/training/getClientReportData", user.Token, map[string]any{
		"userId": 0,
		"date":   report.NewDateRange(from, to),
	})
	if err != nil {
		return fmt.Errorf("fetch report data: %w", err)
	}
	if err = drain(resp); err != nil {
		return fmt.Errorf("fetch report data: %w", err)
	}

	if chartURL != "" {
		if resp, err = client.Get(ctx, chartURL); err != nil {
			return fmt.Errorf("get chart: %w", err)
		}
		if err = drain(resp); err != nil {
			return fmt.Errorf("get chart: %w", err)
		}
	}

	logger.LogAttrs(ctx, slog.LevelDebug, "Report scenario completed", slog.String("chart", chartURL))
	return nil
}

func drain(resp *http.Response) error {
	defer func() {
		_ = resp.Body.Close()
	}()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}

// RunLoadTest runs the report scenario concurrently for every user.
func RunLoadTest(ctx context.Context, users []*AuthenticatedUser, logger *slog.Logger) error {
	total := len(users) * scenariosPerUser
	if total == 0 {
		return errors.New("no users to test with")
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "Starting load test", slog.Int("num_users", len(users)),
		slog.Int("scenarios", total))

	var successCount, failureCount atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentOperations)
	for range scenariosPerUser {
		for _, user := range users {
			g.Go(func() error {
				scenarioCtx, cancel := context.WithTimeout(ctx, scenarioTimeout)
				defer cancel()
				if err := ReportScenario(scenarioCtx, user, logger); err != nil {
					failureCount.Add(1)
					// Individual failures count against the success rate but do not stop the other scenarios.
					logger.LogAttrs(scenarioCtx, slog.LevelWarn, "Scenario failed", slog.Any("error", err))
					return nil
				}
				successCount.Add(1)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load test failed: %w", err)
	}

	successRate := float64(successCount.Load()) / float64(total) * percentageMultiplier
	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed",
		slog.Int64("successful", successCount.Load()),
		slog.Int64("failed", failureCount.Load()),
		slog.Float64("success_rate", successRate))
	if successRate < successRateThreshold {
		return fmt.Errorf("load test failed: success rate %.1f%% below threshold", successRate)
	}
	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) != expectedArgsCount {
		logger.LogAttrs(ctx, slog.LevelError, "usage: COACHREPORTS_STRESS_TOKENS=<token,...> stresstest <hostname>")
		os.Exit(1)
	}
	var tokens []string
	for token := range strings.SplitSeq(os.Getenv("COACHREPORTS_STRESS_TOKENS"), ",") {
		if token = strings.TrimSpace(token); token != "" {
			tokens = append(tokens, token)
		}
	}
	if len(tokens) == 0 {
		logger.LogAttrs(ctx, slog.LevelError, "COACHREPORTS_STRESS_TOKENS is not set")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		start    = time.Now()
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))
	url := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		url = "http://" + hostname
	}

	probe, err := e2etest.NewClient(url)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", slog.Any("error", err))
		os.Exit(1)
	}
	if err = probe.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", slog.Any("error", err))
		os.Exit(1)
	}

	users, err := SetupUsers(ctx, url, tokens)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failed to setup users", slog.Any("error", err))
		os.Exit(1)
	}

	loadTestStart := time.Now()
	if err = RunLoadTest(ctx, users, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "load test failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed successfully 🙌",
		slog.Duration("total_duration", time.Since(start)),
		slog.Duration("load_test_duration", time.Since(loadTestStart)),
		slog.Int("users_tested", len(users)))
}
