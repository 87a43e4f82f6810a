// Package reportclient talks to the report REST endpoints of a coachreports server.
package reportclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/myrjola/coachreports/internal/errors"
	"github.com/myrjola/coachreports/internal/report"
)

// maxResponseBytes bounds the response bodies read from the server.
const maxResponseBytes = 10 << 20

// StatusError is returned for responses outside the 2xx range.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server responded %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("server responded %d: %s", e.Status, e.Message)
}

// Client implements [report.Fetcher], [report.MailTransport] and [report.ImageUploader] over HTTP.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
	logger  *slog.Logger
}

// New returns a client for the server at baseURL authenticating with the bearer token.
func New(baseURL, token string, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.New("base url must be http or https", slog.String("url", baseURL))
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		baseURL: u,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second}, //nolint:mnd // generous for mail broadcasts.
		logger:  logger,
	}, nil
}

type fetchRequest struct {
	UserID int              `json:"userId"`
	Date   report.DateRange `json:"date"`
}

// FetchRecords posts to /training/getClientReportData and validates the response.
func (c *Client) FetchRecords(ctx context.Context, userID int, dates report.DateRange) ([]report.RawRecord, error) {
	body, err := c.do(ctx, http.MethodPost, "/training/getClientReportData", fetchRequest{UserID: userID, Date: dates})
	if err != nil {
		return nil, err
	}
	records, err := report.DecodeRecords(body)
	if err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return records, nil
}

// SendReport posts to /user-report.
func (c *Client) SendReport(ctx context.Context, req report.SendRequest) error {
	_, err := c.do(ctx, http.MethodPost, "/user-report", req)
	return err
}

// BroadcastReports posts to /users/send-reports.
func (c *Client) BroadcastReports(ctx context.Context, req report.BroadcastRequest) error {
	_, err := c.do(ctx, http.MethodPost, "/users/send-reports", req)
	return err
}

// UploadChartImage posts to /imageUploader/saveChartImage and returns the image URL.
func (c *Client) UploadChartImage(ctx context.Context, dataURL string) (string, error) {
	body, err := c.do(ctx, http.MethodPost, "/imageUploader/saveChartImage",
		map[string]string{"imageDataUrl": dataURL})
	if err != nil {
		return "", err
	}
	var resp struct {
		URL string `json:"url"`
	}
	if err = json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if resp.URL == "" {
		return "", errors.New("upload response without url")
	}
	return resp.URL, nil
}

// ChartSelection fetches a stored chart selection.
func (c *Client) ChartSelection(ctx context.Context, id string) (report.Selection, error) {
	body, err := c.do(ctx, http.MethodGet, "/user-report/charts/"+url.PathEscape(id), nil)
	if err != nil {
		return report.Selection{}, err
	}
	var sel report.Selection
	if err = json.Unmarshal(body, &sel); err != nil {
		return report.Selection{}, fmt.Errorf("decode selection: %w", err)
	}
	return sel, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}
	endpoint := c.baseURL.JoinPath(path).String()
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request", slog.String("method", method), slog.String("path", path))
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	c.logger.LogAttrs(ctx, slog.LevelDebug, "api call", slog.String("method", method), slog.String("path", path),
		slog.Int("status", resp.StatusCode), slog.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{Status: resp.StatusCode}
		var n report.Notification
		if json.Unmarshal(body, &n) == nil {
			statusErr.Message = n.Message
		}
		return nil, statusErr
	}
	return body, nil
}
