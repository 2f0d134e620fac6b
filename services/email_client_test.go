package services_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"khatam-tracker/services"
)

func TestSendManageLinkNoops(t *testing.T) {
	// no API key: local dev must not attempt delivery
	c := services.NewEmailClient("", "khatam <from@example.com>")
	if err := c.SendManageLink("to@example.com", "http://x/p/t", "Title"); err != nil {
		t.Fatalf("no-key send: %v", err)
	}

	// no recipient: pledger chose not to leave an email
	c = services.NewEmailClient("key", "khatam <from@example.com>")
	c.BaseURL = "http://127.0.0.1:1" // would fail if dialed
	if err := c.SendManageLink("", "http://x/p/t", "Title"); err != nil {
		t.Fatalf("no-recipient send: %v", err)
	}
}

func TestSendManageLinkRequest(t *testing.T) {
	var auth, path string
	var payload map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
	}))
	defer srv.Close()

	c := services.NewEmailClient("rk_test", "khatam tracker <from@example.com>")
	c.BaseURL = srv.URL
	if err := c.SendManageLink("pledger@example.com", "http://localhost:3000/p/abc.def", "My Khatam"); err != nil {
		t.Fatalf("send: %v", err)
	}

	if auth != "Bearer rk_test" {
		t.Fatalf("unexpected auth header %q", auth)
	}
	if path != "/emails" {
		t.Fatalf("unexpected path %q", path)
	}
	to := payload["to"].([]interface{})
	if len(to) != 1 || to[0] != "pledger@example.com" {
		t.Fatalf("unexpected recipients %v", to)
	}
	if subject := payload["subject"].(string); !strings.Contains(subject, "My Khatam") {
		t.Fatalf("unexpected subject %q", subject)
	}
	if html := payload["html"].(string); !strings.Contains(html, "http://localhost:3000/p/abc.def") {
		t.Fatal("manage URL missing from email body")
	}
}

func TestSendManageLinkErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := services.NewEmailClient("rk_test", "khatam <from@example.com>")
	c.BaseURL = srv.URL
	if err := c.SendManageLink("pledger@example.com", "http://x/p/t", "Title"); err == nil {
		t.Fatal("expected error for non-2xx resend response")
	}
}
