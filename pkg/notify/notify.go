// Package notify delivers best-effort completion notifications: email with
// attachments, ntfy topics, Discord webhooks, and Pushover. Failures are
// logged and never fail the job.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/voxpipe/voxpipe/pkg/profile"
)

const (
	requestTimeout     = 10 * time.Second
	defaultNtfyURL     = "https://ntfy.sh"
	defaultPushoverURL = "https://api.pushover.net/1/messages.json"
)

// Completion describes a successfully finished job.
type Completion struct {
	JobName   string
	ProfileID string
	Documents []string // rendered document paths to attach/name
	TotalCost float64
}

// Notifier fans a completion out to every channel the profile configures.
type Notifier struct {
	email      *EmailSender
	httpClient *http.Client

	// pushoverURL is overridable for tests.
	pushoverURL string
}

func NewNotifier(email *EmailSender) *Notifier {
	return &Notifier{
		email:       email,
		httpClient:  &http.Client{Timeout: requestTimeout},
		pushoverURL: defaultPushoverURL,
	}
}

// Dispatch sends to every configured channel. Each channel is independent;
// one failing does not stop the others, and errors are only logged.
func (n *Notifier) Dispatch(ctx context.Context, c Completion, cfg *profile.NotificationConfig) {
	if cfg == nil {
		return
	}

	names := make([]string, 0, len(c.Documents))
	for _, doc := range c.Documents {
		names = append(names, filepath.Base(doc))
	}
	summary := fmt.Sprintf("Pipeline complete: %s (%d files, $%.4f)", c.JobName, len(names), c.TotalCost)

	if cfg.EmailTo != "" && n.email != nil && n.email.IsConfigured() {
		if err := n.email.SendCompleted(cfg.EmailTo, cfg.EmailCC, c.JobName, c.Documents); err != nil {
			slog.Warn("Email notification failed", "job", c.JobName, "error", err)
		}
	}

	if topic := cfg.NtfyTopic; topic != "" {
		base := cfg.NtfyURL
		if base == "" {
			base = getEnvDefault("NTFY_URL", defaultNtfyURL)
		}
		if err := n.sendNtfy(ctx, base, topic, c.JobName, summary); err != nil {
			slog.Warn("Ntfy notification failed", "topic", topic, "error", err)
		} else {
			slog.Info("Ntfy notification sent", "topic", topic)
		}
	}

	if webhook := firstNonEmpty(cfg.DiscordWebhook, os.Getenv("DISCORD_WEBHOOK_URL")); webhook != "" {
		if err := n.sendDiscord(ctx, webhook, c, names, summary); err != nil {
			slog.Warn("Discord notification failed", "error", err)
		} else {
			slog.Info("Discord notification sent")
		}
	}

	user := firstNonEmpty(cfg.PushoverUser, os.Getenv("PUSHOVER_USER_KEY"))
	token := firstNonEmpty(cfg.PushoverToken, os.Getenv("PUSHOVER_APP_TOKEN"))
	if user != "" && token != "" {
		if err := n.sendPushover(ctx, user, token, c.JobName, summary); err != nil {
			slog.Warn("Pushover notification failed", "error", err)
		} else {
			slog.Info("Pushover notification sent")
		}
	}
}

func (n *Notifier) sendNtfy(ctx context.Context, base, topic, jobName, summary string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(base, "/")+"/"+topic, strings.NewReader(summary))
	if err != nil {
		return err
	}
	req.Header.Set("Title", "Transcription: "+jobName)
	req.Header.Set("Priority", "default")
	req.Header.Set("Tags", "white_check_mark")
	return n.post(req)
}

func (n *Notifier) sendDiscord(ctx context.Context, webhook string, c Completion, names []string, summary string) error {
	payload := map[string]any{
		"content": summary,
		"embeds": []map[string]any{{
			"title": "Transcription Complete",
			"description": fmt.Sprintf("**%s**\nProfile: %s\nCost: $%.4f\nFiles: %s",
				c.JobName, c.ProfileID, c.TotalCost, strings.Join(names, ", ")),
			"color": 3066993,
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return n.post(req)
}

func (n *Notifier) sendPushover(ctx context.Context, user, token, jobName, summary string) error {
	form := url.Values{
		"token":   {token},
		"user":    {user},
		"title":   {"Transcription: " + jobName},
		"message": {summary},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.pushoverURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return n.post(req)
}

func (n *Notifier) post(req *http.Request) error {
	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
