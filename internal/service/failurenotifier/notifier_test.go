package failurenotifier

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jjstretton/pasta/internal/observability/notify"
)

func TestServiceNotifyJobFailure(t *testing.T) {
	var (
		mu       sync.Mutex
		received []notify.JobFailurePayload
	)
	capture := notify.SinkFunc(func(_ context.Context, payload notify.JobFailurePayload) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, payload)
		return nil
	})

	svc := NewService(Options{Sinks: []SinkRegistration{{Name: "a", Sink: capture}, {Name: "b", Sink: capture}}})
	svc.NotifyJobFailure(context.Background(), notify.JobFailurePayload{JobID: "123", Username: "dave", AssessmentID: 3})

	require.Len(t, received, 2)
	assert.Equal(t, notify.SeverityCritical, received[0].Severity)
	assert.False(t, received[0].OccurredAt.IsZero())
}

func TestServiceDisabled(t *testing.T) {
	svc := NewService(Options{})
	assert.False(t, svc.Enabled())

	var nilSvc *Service
	assert.False(t, nilSvc.Enabled())
	nilSvc.NotifyJobFailure(context.Background(), notify.JobFailurePayload{})
}

func TestServiceSinkErrorsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	delivered := false
	svc := NewService(Options{
		Logger: logger,
		Sinks: []SinkRegistration{
			{Name: "broken", Sink: notify.SinkFunc(func(context.Context, notify.JobFailurePayload) error {
				return errors.New("boom")
			})},
			{Name: "ok", Sink: notify.SinkFunc(func(context.Context, notify.JobFailurePayload) error {
				delivered = true
				return nil
			})},
		},
	})

	svc.NotifyJobFailure(context.Background(), notify.JobFailurePayload{JobID: "123"})

	assert.True(t, delivered, "one broken sink must not block the others")
	assert.Contains(t, buf.String(), "sink=broken")
}

func TestServiceDeliversAfterCallerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var sawErr error
	svc := NewService(Options{Sinks: []SinkRegistration{{Name: "capture", Sink: notify.SinkFunc(
		func(ctx context.Context, _ notify.JobFailurePayload) error {
			sawErr = ctx.Err()
			return nil
		},
	)}}})

	svc.NotifyJobFailure(ctx, notify.JobFailurePayload{JobID: "late"})
	assert.NoError(t, sawErr)
}

func TestLogFallback(t *testing.T) {
	var buf bytes.Buffer
	svc := NewService(Options{Logger: slog.New(slog.NewJSONHandler(&buf, nil)), LogFallback: true})
	require.True(t, svc.Enabled())

	svc.NotifyJobFailure(context.Background(), notify.JobFailurePayload{JobID: "j7", Username: "erin", Error: "timed out"})
	assert.Contains(t, buf.String(), `"job_id":"j7"`)
	assert.Contains(t, buf.String(), `"username":"erin"`)
}
