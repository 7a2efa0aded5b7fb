// Package slack posts job failure alerts to a Slack incoming webhook.
package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/jjstretton/pasta/internal/observability/notify"
)

// Config captures the subset of Slack webhook behaviour we need.
type Config struct {
	WebhookURL string
	Channel    string
	Username   string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
	// ResultURLPrefix, when set, turns the target line into a link to the
	// user's results page: <prefix>/<username>/<assessment id>.
	ResultURLPrefix string
}

// Client delivers job failure notifications to a Slack webhook.
type Client struct {
	webhookURL      string
	channel         string
	username        string
	resultURLPrefix string
	poster          notify.Poster
}

// NewClient builds a Slack webhook client.
func NewClient(cfg Config) (*Client, error) {
	webhookURL := strings.TrimSpace(cfg.WebhookURL)
	if webhookURL == "" {
		return nil, errors.New("slack webhook url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	username := strings.TrimSpace(cfg.Username)
	if username == "" {
		username = "pasta"
	}

	return &Client{
		webhookURL:      webhookURL,
		channel:         strings.TrimSpace(cfg.Channel),
		username:        username,
		resultURLPrefix: strings.TrimSpace(cfg.ResultURLPrefix),
		poster:          notify.Poster{Name: "slack webhook", Client: hc, RetryLimit: cfg.RetryLimit},
	}, nil
}

// SendJobFailure posts a formatted message to Slack.
func (c *Client) SendJobFailure(ctx context.Context, payload notify.JobFailurePayload) error {
	body, err := json.Marshal(c.formatMessage(payload))
	if err != nil {
		return fmt.Errorf("encode slack payload: %w", err)
	}
	return c.poster.Post(ctx, c.webhookURL, body)
}

func (c *Client) formatMessage(payload notify.JobFailurePayload) map[string]any {
	var text strings.Builder
	text.WriteString("*Assessment job failed*")
	if payload.JobID != "" {
		fmt.Fprintf(&text, " `%s`", payload.JobID)
	}
	text.WriteByte('\n')

	severity := payload.Severity
	if severity == "" {
		severity = notify.SeverityCritical
	}
	writeField(&text, "Severity", severity)
	writeField(&text, "Target", c.targetValue(payload))
	if !payload.RunAt.IsZero() {
		writeField(&text, "Submitted", payload.RunAt.UTC().Format(time.RFC3339))
	}
	if payload.Attempts > 0 {
		writeField(&text, "Attempts", fmt.Sprint(payload.Attempts))
	}
	writeField(&text, "Error class", payload.ErrorClass)
	writeField(&text, "Error", escape(payload.Error))
	writeMetadata(&text, payload.Metadata)

	occurred := payload.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	text.WriteString("• Timestamp: ")
	text.WriteString(occurred.UTC().Format(time.RFC3339))

	msg := map[string]any{
		"text":     text.String(),
		"username": c.username,
	}
	if c.channel != "" {
		msg["channel"] = c.channel
	}
	return msg
}

func (c *Client) targetValue(payload notify.JobFailurePayload) string {
	label := escape(payload.Target())
	if c.resultURLPrefix == "" || payload.Username == "" || payload.AssessmentID == 0 {
		return label
	}

	u, err := url.Parse(c.resultURLPrefix)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return label
	}
	link, err := url.JoinPath(u.String(), payload.Username, fmt.Sprint(payload.AssessmentID))
	if err != nil {
		return label
	}
	return fmt.Sprintf("<%s|%s>", link, label)
}

func escape(value string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(value)
}

func writeField(text *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(text, "• %s: %s\n", label, value)
}

func writeMetadata(text *strings.Builder, metadata map[string]string) {
	if len(metadata) == 0 {
		return
	}
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	text.WriteString("• Metadata:\n")
	for _, k := range keys {
		fmt.Fprintf(text, "    • %s: %s\n", k, escape(metadata[k]))
	}
}
