// Package notify defines the operator-facing failure notification payload and its sinks.
package notify

import (
	"context"
	"fmt"
	"time"
)

// Severity constants recognised by downstream sinks.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// JobFailurePayload describes an assessment job that was marked failed.
type JobFailurePayload struct {
	JobID        string
	UserID       int64
	Username     string
	AssessmentID int64
	RunAt        time.Time
	Attempts     int
	Error        string
	ErrorClass   string
	Severity     string
	OccurredAt   time.Time
	Metadata     map[string]string
}

// Target renders the (user, assessment) pair for humans.
func (p JobFailurePayload) Target() string {
	user := p.Username
	if user == "" {
		user = fmt.Sprintf("user %d", p.UserID)
	}
	return fmt.Sprintf("%s on assessment %d", user, p.AssessmentID)
}

// Sink describes a destination capable of consuming job failure notifications.
type Sink interface {
	SendJobFailure(ctx context.Context, payload JobFailurePayload) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, payload JobFailurePayload) error

// SendJobFailure implements Sink.
func (f SinkFunc) SendJobFailure(ctx context.Context, payload JobFailurePayload) error {
	if f == nil {
		return nil
	}
	return f(ctx, payload)
}
