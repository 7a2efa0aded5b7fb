// Package failurenotifier fans failed-job notifications out to operator sinks.
package failurenotifier

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jjstretton/pasta/internal/observability/notify"
)

// SinkRegistration pairs a sink with the name used in logs.
type SinkRegistration struct {
	Name string
	Sink notify.Sink
}

// Options configures the failure notifier.
type Options struct {
	Logger *slog.Logger
	Sinks  []SinkRegistration
	// Timeout bounds one fan-out. Zero means ten seconds.
	Timeout time.Duration
	// LogFallback registers a LogSink when no other sink is configured.
	LogFallback bool
}

// Service delivers failure payloads to every registered sink concurrently.
type Service struct {
	logger  *slog.Logger
	sinks   []SinkRegistration
	timeout time.Duration
}

// NewService constructs a failure notifier. Nil sinks are ignored.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "failure_notifier")

	var sinks []SinkRegistration
	for _, entry := range opts.Sinks {
		if entry.Sink == nil {
			continue
		}
		if entry.Name == "" {
			entry.Name = "sink"
		}
		sinks = append(sinks, entry)
	}
	if len(sinks) == 0 && opts.LogFallback {
		sinks = append(sinks, SinkRegistration{Name: "log", Sink: &LogSink{Logger: logger}})
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Service{logger: logger, sinks: sinks, timeout: timeout}
}

// NotifyJobFailure delivers payload to all sinks and waits for them. Delivery errors are
// logged; they never propagate to the job transition that triggered them.
func (s *Service) NotifyJobFailure(ctx context.Context, payload notify.JobFailurePayload) {
	if s == nil || len(s.sinks) == 0 {
		return
	}
	if payload.Severity == "" {
		payload.Severity = notify.SeverityCritical
	}
	if payload.OccurredAt.IsZero() {
		payload.OccurredAt = time.Now()
	}

	// Detached from the caller so a cancelled job context does not swallow the alert.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	var g errgroup.Group
	for _, entry := range s.sinks {
		g.Go(func() error {
			if err := entry.Sink.SendJobFailure(sendCtx, payload); err != nil {
				s.logger.ErrorContext(ctx, "failure notifier delivery error",
					"sink", entry.Name,
					"job_id", payload.JobID,
					"error", err,
				)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Enabled reports whether any sink is registered.
func (s *Service) Enabled() bool {
	return s != nil && len(s.sinks) > 0
}

// LogSink writes failure payloads to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

// SendJobFailure implements notify.Sink.
func (l *LogSink) SendJobFailure(ctx context.Context, payload notify.JobFailurePayload) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.ErrorContext(ctx, "assessment job failed",
		"job_id", payload.JobID,
		"user_id", payload.UserID,
		"username", payload.Username,
		"assessment_id", payload.AssessmentID,
		"attempts", payload.Attempts,
		"error", payload.Error,
		"error_class", payload.ErrorClass,
		"severity", payload.Severity,
	)
	return nil
}
