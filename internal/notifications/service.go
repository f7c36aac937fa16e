package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"scorepub/internal/config"
)

const userAgent = "scorepub/1.0"

// Announcement describes a finalized regatta worth broadcasting.
type Announcement struct {
	Regatta string
	Name    string
	Season  string
	URL     string
	Winner  string
}

// Service defines the notification surface exposed to the publisher.
type Service interface {
	AnnounceRegatta(ctx context.Context, a Announcement) error
	NotifyError(ctx context.Context, err error, context string) error
	NotifyRedeploy(ctx context.Context, axis string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:      topic,
		client:        &http.Client{Timeout: timeout},
		announcements: cfg.Notifications.Announcements,
		errors:        cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
	click    string
}

type ntfyService struct {
	endpoint      string
	client        *http.Client
	announcements bool
	errors        bool
}

func (n *ntfyService) AnnounceRegatta(ctx context.Context, a Announcement) error {
	if !n.announcements {
		return nil
	}
	name := strings.TrimSpace(a.Name)
	if name == "" {
		name = a.Regatta
	}
	message := fmt.Sprintf("🏁 Final results: %s", name)
	if winner := strings.TrimSpace(a.Winner); winner != "" {
		message = fmt.Sprintf("%s\nWinner: %s", message, winner)
	}
	if a.URL != "" {
		message = fmt.Sprintf("%s\n%s", message, a.URL)
	}
	data := payload{
		title:   "Regatta Finalized",
		message: message,
		tags:    []string{"scorepub", "regatta", "finalized"},
		click:   a.URL,
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" in ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "scorepub - Error",
		message:  builder.String(),
		tags:     []string{"scorepub", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRedeploy(ctx context.Context, axis string) error {
	if !n.errors {
		return nil
	}
	data := payload{
		title:   "scorepub - Redeployed",
		message: fmt.Sprintf("%s daemon exited after a code change; restart it", strings.TrimSpace(axis)),
		tags:    []string{"scorepub", "deploy"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "scorepub - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"scorepub", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}
	if data.click != "" {
		req.Header.Set("Click", data.click)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) AnnounceRegatta(context.Context, Announcement) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error    { return nil }
func (noopService) NotifyRedeploy(context.Context, string) error        { return nil }
func (noopService) TestNotification(context.Context) error              { return nil }
