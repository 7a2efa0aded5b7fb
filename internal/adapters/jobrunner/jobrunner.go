// Package jobrunner runs the bounded worker pool that admits assessment jobs, executes them
// and reports their outcome back to the scheduler.
package jobrunner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/errgroup"

	"github.com/jjstretton/pasta/internal/core"
	"github.com/jjstretton/pasta/internal/domain/model"
	"github.com/jjstretton/pasta/internal/execution"
	obserrors "github.com/jjstretton/pasta/internal/observability/errors"
	"github.com/jjstretton/pasta/internal/observability/metrics"
	"github.com/jjstretton/pasta/internal/observability/notify"
	"github.com/jjstretton/pasta/internal/observability/statsd"
	"github.com/jjstretton/pasta/internal/service"
)

const componentLabel = "assessment_runner"

// Scheduler is the part of service.SchedulerService the runner drives.
type Scheduler interface {
	AdmitNext(ctx context.Context, lease time.Duration) (*model.AssessmentJob, error)
	Heartbeat(ctx context.Context, id string, lease time.Duration) (bool, error)
	Complete(ctx context.Context, job *model.AssessmentJob, outcome *execution.RawOutcome, execErr error) (*model.Result, error)
	Fail(ctx context.Context, id, reason string, details service.JobFailureDetails) (bool, error)
	Release(ctx context.Context, id, reason string) (bool, error)
	Subscribe() (func(), <-chan struct{})
}

var _ Scheduler = (*service.SchedulerService)(nil)

// RunnerOptions configures the job runner adapter.
type RunnerOptions struct {
	Scheduler   Scheduler                 // Required
	Executor    execution.Executor        // Required; wrapped in a TimeoutExecutor
	Assessments core.AssessmentRepository // Optional: per-assessment execution timeouts
	Logger      *slog.Logger
	Metrics     statsd.Sink

	Lease       time.Duration // running lease; defaults to 2m
	Concurrency int           // number of workers; defaults to 1
	// PollInterval wakes idle workers even without a signal, defaults to 30s.
	PollInterval time.Duration
	// ExecutionTimeout is the wall-clock limit when the assessment sets none, defaults to 5m.
	ExecutionTimeout time.Duration
	// ShutdownGrace is how long in-flight executions may keep running after Run's context
	// ends. Jobs still running after it are released back to the queue. Defaults to 30s.
	ShutdownGrace time.Duration
}

// Runner pulls assessment jobs and executes them with a bounded pool of workers.
type Runner struct {
	scheduler   Scheduler
	executor    *execution.TimeoutExecutor
	assessments core.AssessmentRepository
	logger      *slog.Logger
	metrics     statsd.Sink

	lease        time.Duration
	workers      int
	pollInterval time.Duration
	grace        time.Duration

	inFlight *xsync.MapOf[string, *inFlightJob]
}

type inFlightJob struct {
	job       *model.AssessmentJob
	startedAt time.Time
}

// NewRunner constructs a Runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Scheduler == nil {
		return nil, errors.New("scheduler is required")
	}
	if opts.Executor == nil {
		return nil, errors.New("executor is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Runner{
		scheduler:    opts.Scheduler,
		executor:     execution.NewTimeoutExecutor(opts.Executor, opts.ExecutionTimeout),
		assessments:  opts.Assessments,
		logger:       logger.With("component", componentLabel),
		metrics:      opts.Metrics,
		lease:        opts.Lease,
		workers:      opts.Concurrency,
		pollInterval: opts.PollInterval,
		grace:        opts.ShutdownGrace,
		inFlight:     xsync.NewMapOf[string, *inFlightJob](),
	}
	if r.lease <= 0 {
		r.lease = 2 * time.Minute
	}
	if r.workers <= 0 {
		r.workers = 1
	}
	if r.pollInterval <= 0 {
		r.pollInterval = 30 * time.Second
	}
	if r.grace <= 0 {
		r.grace = 30 * time.Second
	}
	return r, nil
}

// Run starts the workers and processes jobs until ctx is cancelled. In-flight executions get
// the shutdown grace period to finish. A fatal admission error stops every worker and is
// returned.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting job runner", "workers", r.workers, "lease", r.lease)

	// Executions outlive ctx by the grace period.
	workCtx, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWork()
	stopGrace := context.AfterFunc(ctx, func() {
		timer := time.NewTimer(r.grace)
		defer timer.Stop()
		select {
		case <-timer.C:
			cancelWork()
		case <-workCtx.Done():
		}
	})
	defer stopGrace()

	g, gctx := errgroup.WithContext(ctx)
	for range r.workers {
		g.Go(func() error {
			return r.workerLoop(gctx, workCtx)
		})
	}
	err := g.Wait()

	if n := r.inFlight.Size(); n > 0 {
		r.logger.WarnContext(ctx, "runner stopped with jobs in flight", "count", n)
	}
	if err != nil {
		return err
	}
	return ctx.Err()
}

// InFlight returns the ids of jobs currently executing.
func (r *Runner) InFlight() []string {
	ids := make([]string, 0, r.inFlight.Size())
	r.inFlight.Range(func(id string, _ *inFlightJob) bool {
		ids = append(ids, id)
		return true
	})
	sort.Strings(ids)
	return ids
}

func (r *Runner) workerLoop(ctx, workCtx context.Context) error {
	unsub, wake := r.scheduler.Subscribe()
	defer unsub()

	for ctx.Err() == nil {
		job, err := r.scheduler.AdmitNext(ctx, r.lease)
		switch {
		case err == nil:
			r.processJob(workCtx, job)
		case errors.Is(err, model.ErrNoJobsAvailable):
			if !r.waitForWork(ctx, wake) {
				return nil
			}
		case errors.Is(err, context.Canceled) && ctx.Err() != nil:
			return nil
		default:
			return fmt.Errorf("admit next: %w", err)
		}
	}
	return nil
}

func (r *Runner) waitForWork(ctx context.Context, wake <-chan struct{}) bool {
	timer := time.NewTimer(r.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case _, ok := <-wake:
		return ok
	case <-timer.C:
		return true
	}
}

func (r *Runner) processJob(ctx context.Context, job *model.AssessmentJob) {
	start := time.Now()
	r.inFlight.Store(job.ID, &inFlightJob{job: job, startedAt: start})
	defer r.inFlight.Delete(job.ID)

	logger := r.logger.With("job_id", job.ID, "target", job.Target().String())

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	lost := make(chan struct{})
	hbDone := make(chan struct{})
	go func() {
		defer close(hbDone)
		r.heartbeat(jobCtx, job.ID, cancel, lost)
	}()

	outcome, execErr := r.executor.Execute(jobCtx, execution.Request{
		JobID:          job.ID,
		UserID:         job.UserID,
		Username:       job.Username,
		AssessmentID:   job.AssessmentID,
		SubmissionRoot: job.SubmissionRef,
		RunAt:          job.RunAt,
		Timeout:        r.executionTimeout(jobCtx, job.AssessmentID),
	})
	cancel()
	<-hbDone

	r.emitExecution(time.Since(start), execErr)

	select {
	case <-lost:
		// The reaper or an operator took the job away; its outcome must not be recorded.
		logger.WarnContext(ctx, "job lost its lease during execution; discarding outcome")
		return
	default:
	}

	// Reporting is detached from shutdown.
	reportCtx := context.WithoutCancel(ctx)

	switch {
	case execution.IsTimeout(execErr):
		r.fail(reportCtx, job, "execution timed out: "+execErr.Error(), execErr, notify.SeverityWarning)
	case execErr == nil:
		r.complete(reportCtx, logger, job, outcome, nil)
	default:
		if _, ok := execution.AsFailure(execErr); ok {
			r.complete(reportCtx, logger, job, nil, execErr)
			return
		}
		if ctx.Err() != nil {
			r.release(reportCtx, logger, job, "runner shut down before the execution finished")
			return
		}
		r.fail(reportCtx, job, "executor error: "+execErr.Error(), execErr, notify.SeverityCritical)
	}
}

func (r *Runner) complete(
	ctx context.Context,
	logger *slog.Logger,
	job *model.AssessmentJob,
	outcome *execution.RawOutcome,
	execErr error,
) {
	_, err := r.scheduler.Complete(ctx, job, outcome, execErr)
	switch {
	case err == nil:
	case model.IsReconciliationPersistence(err):
		logger.WarnContext(ctx, "result not persisted; job will run again", "error", err)
	default:
		logger.ErrorContext(ctx, "complete job error", "error", err)
	}
}

func (r *Runner) fail(ctx context.Context, job *model.AssessmentJob, reason string, cause error, severity string) {
	if _, err := r.scheduler.Fail(ctx, job.ID, reason, service.JobFailureDetails{
		Cause:      cause,
		ErrorClass: obserrors.Classify(cause),
		Severity:   severity,
		Metadata:   map[string]string{"component": componentLabel},
	}); err != nil {
		r.logger.ErrorContext(ctx, "fail job error", "job_id", job.ID, "error", err, "original_error", cause)
	}
}

func (r *Runner) release(ctx context.Context, logger *slog.Logger, job *model.AssessmentJob, reason string) {
	if _, err := r.scheduler.Release(ctx, job.ID, reason); err != nil {
		logger.ErrorContext(ctx, "release job error; the reaper will requeue it when the lease expires", "error", err)
	}
}

// heartbeat extends the lease every lease/2 until ctx ends. If the scheduler reports the job
// is no longer running, it closes lost and cancels the execution.
func (r *Runner) heartbeat(ctx context.Context, id string, cancel context.CancelFunc, lost chan<- struct{}) {
	ticker := time.NewTicker(r.lease / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := r.scheduler.Heartbeat(ctx, id, r.lease)
			if err != nil {
				if ctx.Err() == nil {
					r.logger.WarnContext(ctx, "heartbeat failed", "job_id", id, "error", err)
				}
				continue
			}
			if !ok {
				close(lost)
				cancel()
				return
			}
		}
	}
}

func (r *Runner) executionTimeout(ctx context.Context, assessmentID int64) time.Duration {
	if r.assessments == nil {
		return 0
	}
	def, err := r.assessments.GetDefinition(ctx, assessmentID)
	if err != nil {
		r.logger.WarnContext(ctx, "could not load assessment timeout; using default",
			"assessment_id", assessmentID, "error", err)
		return 0
	}
	if def.ExecutionTimeout == nil {
		return 0
	}
	return *def.ExecutionTimeout
}

func (r *Runner) emitExecution(d time.Duration, err error) {
	result := metrics.ResultSuccess
	if err != nil {
		if _, routine := execution.AsFailure(err); !routine {
			result = metrics.ResultError
		}
	}
	metrics.EmitJobLifecycle(r.metrics, metrics.JobMetric{
		Transition: metrics.TransitionExecute,
		Result:     result,
		Duration:   d,
		Err:        err,
	})
}
