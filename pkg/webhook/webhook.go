// Package webhook posts parse summaries to HTTP endpoints.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ccollicutt/logreader/pkg/config"
	"github.com/ccollicutt/logreader/pkg/output"
)

// Event names carried in a Notification.
const (
	EventCompleted  = "parse.completed"
	EventLineErrors = "parse.line_errors"
)

// maxResponseBody caps how much of a response body is kept.
const maxResponseBody = 1 << 20

// Notification is the JSON body posted to a webhook.
type Notification struct {
	Event    string          `json:"event"`
	SentAt   time.Time       `json:"sent_at"`
	Summary  output.Summary  `json:"summary"`
	Metadata output.Metadata `json:"metadata"`
}

// NewNotification builds the notification for a finished report.
func NewNotification(report *output.Report) Notification {
	event := EventCompleted
	if report.HasErrors() {
		event = EventLineErrors
	}
	return Notification{
		Event:    event,
		SentAt:   time.Now().UTC(),
		Summary:  report.Summary,
		Metadata: report.Metadata,
	}
}

// Client sends notifications to webhook endpoints.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new webhook client.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{},
	}
}

// SendOptions configures a single webhook request.
type SendOptions struct {
	URL     string
	Token   string        // Bearer token (optional)
	Timeout time.Duration // Uses config.DefaultWebhookTimeout if zero
}

// Response is the outcome of a webhook request.
type Response struct {
	StatusCode int
	Body       string
	Duration   time.Duration
	Error      error
}

// Success reports whether the endpoint answered with a 2xx status.
func (r *Response) Success() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Send posts n to opts.URL.
func (c *Client) Send(ctx context.Context, n Notification, opts SendOptions) *Response {
	start := time.Now()
	resp := &Response{}
	fail := func(err error) *Response {
		resp.Error = err
		resp.Duration = time.Since(start)
		return resp
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return fail(fmt.Errorf("encoding notification: %w", err))
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = config.DefaultWebhookTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.URL, bytes.NewReader(payload))
	if err != nil {
		return fail(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "logreader-webhook")
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(fmt.Errorf("request failed: %w", err))
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return fail(fmt.Errorf("reading response: %w", err))
	}

	resp.StatusCode = httpResp.StatusCode
	resp.Body = string(body)
	resp.Duration = time.Since(start)
	if resp.StatusCode >= 400 {
		resp.Error = fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return resp
}

// ShouldFire reports whether a hook with trigger fires for report.
func ShouldFire(trigger config.WebhookTrigger, report *output.Report) bool {
	switch trigger {
	case config.WebhookTriggerAlways:
		return true
	case config.WebhookTriggerNever:
		return false
	default:
		return report.HasErrors()
	}
}

// Deliver sends report to every hook whose trigger fires. Failures are
// logged and counted; they never abort the caller.
func (c *Client) Deliver(ctx context.Context, hooks []config.WebhookConfig, report *output.Report) (sent, failed int) {
	if len(hooks) == 0 {
		return 0, 0
	}
	n := NewNotification(report)

	for _, wh := range hooks {
		if !ShouldFire(wh.Trigger, report) {
			continue
		}
		resp := c.Send(ctx, n, SendOptions{URL: wh.URL, Token: wh.Token, Timeout: wh.Timeout})

		entry := log.WithFields(log.Fields{
			"webhook":  wh.DisplayName(),
			"event":    n.Event,
			"duration": resp.Duration,
		})
		if resp.Success() {
			entry.WithField("status", resp.StatusCode).Info("webhook sent")
			sent++
			continue
		}
		entry.WithError(resp.Error).Warn("webhook failed")
		failed++
	}
	return sent, failed
}
