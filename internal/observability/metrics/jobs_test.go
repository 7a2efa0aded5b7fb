package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jjstretton/pasta/internal/domain/model"
	"github.com/jjstretton/pasta/internal/execution"
)

func TestEmitJobLifecycle(t *testing.T) {
	rec := &Recorder{}

	EmitJobLifecycle(rec, JobMetric{Transition: TransitionComplete, Result: ResultSuccess, Duration: 2 * time.Second})
	EmitJobLifecycle(rec, JobMetric{
		Transition: TransitionFail,
		Result:     ResultError,
		Err:        &execution.ExecutionTimeoutError{JobID: "j", Timeout: time.Minute},
	})

	completes := rec.Find("job.transition", map[string]string{"transition": TransitionComplete})
	require.Len(t, completes, 1)
	assert.NotContains(t, completes[0].Tags, "error_class")

	durations := rec.Find("job.duration", nil)
	require.Len(t, durations, 1)
	assert.InDelta(t, 2000, durations[0].Value, 0.001)

	fails := rec.Find("job.transition", map[string]string{"transition": TransitionFail})
	require.Len(t, fails, 1)
	assert.Equal(t, "execution_timeout", fails[0].Tags["error_class"])

	EmitJobLifecycle(nil, JobMetric{Transition: TransitionAdmit})
}

func TestEmitQueueDepth(t *testing.T) {
	rec := &Recorder{}
	EmitQueueDepth(rec, &model.JobStats{Queued: 3, Running: 1})

	queued := rec.Find("job.queue_depth", map[string]string{"status": "queued"})
	require.Len(t, queued, 1)
	assert.InDelta(t, 3, queued[0].Value, 0.001)
	assert.Len(t, rec.Find("job.queue_depth", nil), 4)
}

func TestEmitReconciliation(t *testing.T) {
	rec := &Recorder{}
	EmitReconciliation(rec, 0, 0)
	assert.Empty(t, rec.Samples())

	EmitReconciliation(rec, 2, 1)
	created := rec.Find("result.reconcile.created", nil)
	require.Len(t, created, 1)
	assert.InDelta(t, 2, created[0].Value, 0.001)
}
