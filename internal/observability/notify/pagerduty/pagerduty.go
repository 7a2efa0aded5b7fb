// Package pagerduty raises PagerDuty incidents for failed assessment jobs.
package pagerduty

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jjstretton/pasta/internal/observability/notify"
)

// APIEndpoint is the PagerDuty Events API v2 ingest URL.
const APIEndpoint = "https://events.pagerduty.com/v2/enqueue"

// Config captures runtime configuration for the PagerDuty sink.
type Config struct {
	RoutingKey string
	Source     string
	Component  string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
	// Endpoint overrides APIEndpoint.
	Endpoint string
}

// Client publishes events via PagerDuty's Events API v2.
type Client struct {
	routingKey string
	source     string
	component  string
	endpoint   string
	poster     notify.Poster
}

// NewClient constructs a PagerDuty events client. A routing key is required.
func NewClient(cfg Config) (*Client, error) {
	key := strings.TrimSpace(cfg.RoutingKey)
	if key == "" {
		return nil, errors.New("pagerduty routing key is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		routingKey: key,
		source:     orDefault(cfg.Source, "pasta"),
		component:  orDefault(cfg.Component, "assessment-runner"),
		endpoint:   orDefault(cfg.Endpoint, APIEndpoint),
		poster:     notify.Poster{Name: "pagerduty api", Client: hc, RetryLimit: cfg.RetryLimit},
	}, nil
}

// SendJobFailure submits a trigger event to PagerDuty.
func (c *Client) SendJobFailure(ctx context.Context, payload notify.JobFailurePayload) error {
	body, err := json.Marshal(c.buildEvent(payload))
	if err != nil {
		return fmt.Errorf("encode pagerduty payload: %w", err)
	}
	return c.poster.Post(ctx, c.endpoint, body)
}

func (c *Client) buildEvent(payload notify.JobFailurePayload) map[string]any {
	occurredAt := payload.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	custom := map[string]any{
		"job_id":        payload.JobID,
		"user_id":       payload.UserID,
		"username":      payload.Username,
		"assessment_id": payload.AssessmentID,
		"attempts":      payload.Attempts,
		"error":         payload.Error,
		"error_class":   payload.ErrorClass,
	}
	if !payload.RunAt.IsZero() {
		custom["run_at"] = payload.RunAt.UTC().Format(time.RFC3339)
	}
	for k, v := range payload.Metadata {
		if _, exists := custom[k]; !exists {
			custom[k] = v
		}
	}

	// One incident per job; repeated failures of the same job collapse into it.
	dedupKey := "pasta-job"
	if payload.JobID != "" {
		dedupKey += ":" + payload.JobID
	}

	return map[string]any{
		"routing_key":  c.routingKey,
		"event_action": "trigger",
		"dedup_key":    dedupKey,
		"payload": map[string]any{
			"summary":        fmt.Sprintf("Assessment job failed for %s", payload.Target()),
			"severity":       orDefault(strings.ToLower(payload.Severity), notify.SeverityCritical),
			"source":         c.source,
			"component":      c.component,
			"timestamp":      occurredAt.UTC().Format(time.RFC3339),
			"custom_details": custom,
		},
	}
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
