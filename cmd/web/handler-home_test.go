package main

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
)

func Test_loginAndLogout(t *testing.T) {
	server := startServer(t)
	ctx := t.Context()
	client := server.Client()

	doc, err := client.GetDoc(ctx, "/")
	if err != nil {
		t.Fatalf("Get home: %v", err)
	}
	if doc.Find("form[action='/login']").Length() != 1 {
		t.Fatal("anonymous visitors must get the sign in form")
	}

	if doc, err = client.Login(ctx, trainerToken); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if doc.Url.Path != "/reports" {
		t.Errorf("signed in to %s, want /reports", doc.Url.Path)
	}
	if user := doc.Find("nav .user").Text(); user != "Coach Carter" {
		t.Errorf("nav user = %q, want Coach Carter", user)
	}

	if doc, err = client.GetDoc(ctx, "/"); err != nil {
		t.Fatalf("Get home: %v", err)
	}
	if h1 := doc.Find("h1").Text(); h1 != "Welcome, Coach Carter" {
		t.Errorf("heading = %q, want a welcome", h1)
	}

	if doc, err = client.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if doc.Find("form[action='/login']").Length() != 1 {
		t.Error("expected the sign in form after signing out")
	}

	// Signed out users are sent back to the start page.
	if doc, err = client.GetDoc(ctx, "/reports"); err != nil {
		t.Fatalf("Get reports: %v", err)
	}
	if doc.Url.Path != "/" {
		t.Errorf("reports without a session ended at %s, want /", doc.Url.Path)
	}
}

func Test_loginPOST_UnknownToken(t *testing.T) {
	server := startServer(t)
	ctx := t.Context()
	client := server.Client()

	if _, err := client.Login(ctx, "not-a-token"); err == nil {
		t.Fatal("expected the login to fail")
	}

	form := url.Values{"token": {"not-a-token"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server.URL()+"/login",
		strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("New request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Post login: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	if body := string(readBody(t, resp)); !strings.Contains(body, "Unknown token.") {
		t.Error("expected the login error on the page")
	}
}

func Test_notFound(t *testing.T) {
	server := startServer(t)
	ctx := t.Context()

	resp, err := server.Client().Get(ctx, "/does-not-exist")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if body := string(readBody(t, resp)); !strings.Contains(body, "Page not found") {
		t.Error("expected the not found page")
	}

	if resp, err = server.Client().Get(ctx, "/main.css"); err != nil {
		t.Fatalf("Get stylesheet: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("stylesheet status = %d, want 200", resp.StatusCode)
	}
}
