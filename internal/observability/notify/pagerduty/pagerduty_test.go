package pagerduty

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jjstretton/pasta/internal/observability/notify"
)

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error when routing key missing")
	}
}

func TestBuildEventDefaults(t *testing.T) {
	client, err := NewClient(Config{RoutingKey: "key", Timeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	event := client.buildEvent(notify.JobFailurePayload{
		JobID:        "0192f1c4-job",
		Username:     "alice",
		AssessmentID: 12,
		Error:        "execution timed out",
		ErrorClass:   "execution_executiontimeouterror",
	})

	section, ok := event["payload"].(map[string]any)
	if !ok {
		t.Fatalf("expected payload section")
	}
	if section["severity"] != notify.SeverityCritical {
		t.Fatalf("expected default severity, got %v", section["severity"])
	}
	if section["source"] != "pasta" {
		t.Fatalf("expected default source, got %v", section["source"])
	}
	if summary, _ := section["summary"].(string); !strings.Contains(summary, "alice on assessment 12") {
		t.Fatalf("summary does not name the target: %q", summary)
	}

	custom, ok := section["custom_details"].(map[string]any)
	if !ok {
		t.Fatalf("expected custom details")
	}
	for _, key := range []string{"job_id", "username", "assessment_id", "error", "error_class"} {
		if _, exists := custom[key]; !exists {
			t.Fatalf("expected key %s in custom details", key)
		}
	}

	if event["dedup_key"] != "pasta-job:0192f1c4-job" {
		t.Fatalf("unexpected dedup key %v", event["dedup_key"])
	}
}

func TestSendJobFailureRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["routing_key"] != "key" {
			t.Errorf("unexpected routing key %v", body["routing_key"])
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client, err := NewClient(Config{RoutingKey: "key", Endpoint: srv.URL, RetryLimit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := client.SendJobFailure(context.Background(), notify.JobFailurePayload{JobID: "j1"}); err != nil {
		t.Fatalf("expected delivery after retry, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestSendJobFailureDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "invalid routing key", http.StatusBadRequest)
	}))
	defer srv.Close()

	client, err := NewClient(Config{RoutingKey: "key", Endpoint: srv.URL, RetryLimit: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = client.SendJobFailure(context.Background(), notify.JobFailurePayload{JobID: "j1"})
	if err == nil || !strings.Contains(err.Error(), "invalid routing key") {
		t.Fatalf("expected client error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single call, got %d", calls.Load())
	}
}
