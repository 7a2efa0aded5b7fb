// Package metrics names and tags the metrics emitted by the scheduler, runner and reaper.
package metrics

import (
	"time"

	"github.com/jjstretton/pasta/internal/domain/model"
	obserrors "github.com/jjstretton/pasta/internal/observability/errors"
	"github.com/jjstretton/pasta/internal/observability/statsd"
)

// Result tag values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Transition tag values.
const (
	TransitionEnqueue  = "enqueue"
	TransitionAdmit    = "admit"
	TransitionExecute  = "execute"
	TransitionComplete = "complete"
	TransitionRelease  = "release"
	TransitionFail     = "fail"
	TransitionWithdraw = "withdraw"
	TransitionRequeue  = "requeue"
)

// JobMetric describes one job state transition.
type JobMetric struct {
	Transition string
	Result     string
	Duration   time.Duration
	Err        error
}

// EmitJobLifecycle emits job.transition and, when a duration is known, job.duration.
func EmitJobLifecycle(sink statsd.Sink, in JobMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"transition": in.Transition,
		"result":     in.Result,
	}
	if in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("job.transition", 1, tags)
	if in.Duration > 0 {
		sink.Timing("job.duration", in.Duration, CloneTags(tags))
	}
}

// EmitQueueDepth reports the queue counts as gauges tagged by status.
func EmitQueueDepth(sink statsd.Sink, stats *model.JobStats) {
	if sink == nil || stats == nil {
		return
	}
	for status, n := range map[model.JobStatus]int64{
		model.JobStatusQueued:    stats.Queued,
		model.JobStatusRunning:   stats.Running,
		model.JobStatusCompleted: stats.Completed,
		model.JobStatusFailed:    stats.Failed,
	} {
		sink.Gauge("job.queue_depth", float64(n), map[string]string{"status": string(status)})
	}
}

// EmitReconciliation counts hand-marking entries created and dropped on read.
func EmitReconciliation(sink statsd.Sink, created, dropped int) {
	if sink == nil || (created == 0 && dropped == 0) {
		return
	}
	sink.Count("result.reconcile.created", int64(created), nil)
	sink.Count("result.reconcile.dropped", int64(dropped), nil)
}

// CloneTags returns a shallow copy of src.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
