package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"scorepub/internal/config"
	"scorepub/internal/notifications"
)

type capture struct {
	title    string
	body     string
	tags     string
	priority string
	click    string
	calls    int
}

func newServer(t *testing.T, status int) (*httptest.Server, *capture) {
	t.Helper()
	got := &capture{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got.calls++
		got.body = string(body)
		got.title = r.Header.Get("Title")
		got.tags = r.Header.Get("Tags")
		got.priority = r.Header.Get("Priority")
		got.click = r.Header.Get("Click")
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.AnnounceRegatta(context.Background(), notifications.Announcement{Regatta: "r1"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestAnnounceRegattaFormatsPayload(t *testing.T) {
	srv, got := newServer(t, http.StatusOK)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL

	svc := notifications.NewService(&cfg)
	err := svc.AnnounceRegatta(context.Background(), notifications.Announcement{
		Regatta: "r1",
		Name:    "Spring Champs",
		URL:     "https://scores.example.org/s26/spring-champs/",
		Winner:  "MIT",
	})
	if err != nil {
		t.Fatalf("AnnounceRegatta: %v", err)
	}
	want := "🏁 Final results: Spring Champs\nWinner: MIT\nhttps://scores.example.org/s26/spring-champs/"
	if got.body != want {
		t.Fatalf("body = %q, want %q", got.body, want)
	}
	if got.title != "Regatta Finalized" || got.tags != "scorepub,regatta,finalized" {
		t.Fatalf("unexpected headers: %#v", got)
	}
	if got.click != "https://scores.example.org/s26/spring-champs/" {
		t.Fatalf("click = %q", got.click)
	}
}

func TestEventFamiliesCanBeDisabled(t *testing.T) {
	srv, got := newServer(t, http.StatusOK)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	cfg.Notifications.Announcements = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(&cfg)
	ctx := context.Background()
	_ = svc.AnnounceRegatta(ctx, notifications.Announcement{Regatta: "r1"})
	_ = svc.NotifyError(ctx, errors.New("boom"), "regatta daemon")
	_ = svc.NotifyRedeploy(ctx, "regatta")
	if got.calls != 0 {
		t.Fatalf("expected no requests, got %d", got.calls)
	}
	if err := svc.TestNotification(ctx); err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if got.calls != 1 || got.priority != "low" {
		t.Fatalf("expected test notification to bypass toggles, got %#v", got)
	}
}

func TestNotifyErrorSurfacesHTTPFailure(t *testing.T) {
	srv, got := newServer(t, http.StatusInternalServerError)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL

	svc := notifications.NewService(&cfg)
	err := svc.NotifyError(context.Background(), errors.New("hook failed"), "school daemon")
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if got.body != "❌ Error in school daemon: hook failed" || got.priority != "high" {
		t.Fatalf("unexpected request: %#v", got)
	}
}
