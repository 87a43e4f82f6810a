package main

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/myrjola/coachreports/internal/e2etest"
	"github.com/myrjola/coachreports/internal/report"
	"github.com/myrjola/coachreports/internal/testhelpers"
)

const (
	adminToken   = "admin-demo-token"
	trainerToken = "trainer-demo-token"
	annaToken    = "anna-demo-token"
	benToken     = "ben-demo-token"
)

// startServer runs the web server against a fresh in-memory database seeded with the demo accounts.
func startServer(t *testing.T) *e2etest.Server {
	t.Helper()
	server, err := e2etest.StartServer(t, testhelpers.NewWriter(t), e2etest.DemoEnv("COACHREPORTS_", nil), run)
	if err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	return server
}

// newLoggedInClient returns a client with its own cookie jar signed in with token.
func newLoggedInClient(t *testing.T, server *e2etest.Server, token string) *e2etest.Client {
	t.Helper()
	client, err := server.NewClient()
	if err != nil {
		t.Fatalf("New client: %v", err)
	}
	if _, err = client.Login(t.Context(), token); err != nil {
		t.Fatalf("Login: %v", err)
	}
	return client
}

// readNotification decodes a JSON {type, message} body and closes it.
func readNotification(t *testing.T, resp *http.Response) report.Notification {
	t.Helper()
	defer func() {
		_ = resp.Body.Close()
	}()
	var n report.Notification
	if err := json.NewDecoder(resp.Body).Decode(&n); err != nil {
		t.Fatalf("Decode notification: %v", err)
	}
	return n
}

func readBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Read body: %v", err)
	}
	return body
}
