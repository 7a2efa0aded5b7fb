package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/jjstretton/pasta/internal/core"
	domainjob "github.com/jjstretton/pasta/internal/domain/job"
	"github.com/jjstretton/pasta/internal/domain/model"
	"github.com/jjstretton/pasta/internal/domain/reconcile"
	"github.com/jjstretton/pasta/internal/execution"
	obserrors "github.com/jjstretton/pasta/internal/observability/errors"
	"github.com/jjstretton/pasta/internal/observability/metrics"
	"github.com/jjstretton/pasta/internal/observability/notify"
	"github.com/jjstretton/pasta/internal/observability/statsd"
	"github.com/jjstretton/pasta/internal/service/failurenotifier"
)

// ErrRerunInProgress is returned when a bulk rerun of the same assessment was started recently.
var ErrRerunInProgress = errors.New("a rerun of this assessment is already in progress")

// SchedulerServiceOptions groups dependencies for SchedulerService.
type SchedulerServiceOptions struct {
	Jobs        core.AssessmentJobRepository // Required: job queue
	Results     core.ResultRepository        // Required: result store, used by bulk rerun
	Assessments core.AssessmentRepository    // Required: assessment definitions
	Users       core.UserRepository          // Required: user lookups for group flag and submission paths

	DefaultLease    time.Duration             // Required unless LeasePolicy is set
	LeasePolicy     *domainjob.LeasePolicy    // Optional: overrides DefaultLease
	Notifier        domainjob.Notifier        // Optional: custom job-available notifier
	NotifierOptions domainjob.NotifierOptions // Optional: default notifier behaviour
	Signal          core.JobSignalPublisher   // Optional: extra job-available publisher (Redis)
	Cache           core.CacheRepository      // Optional: bulk rerun guard
	FailureNotifier *failurenotifier.Service  // Optional: operator alerts on failed jobs
	Metrics         statsd.Sink               // Optional: metrics sink
	Logger          *slog.Logger              // Optional: structured logger

	// SubmissionsDir is the base of the submission layout, used when a request carries no
	// submission reference.
	SubmissionsDir string
	// RerunGuardTTL is how long a bulk rerun blocks another rerun of the same assessment.
	RerunGuardTTL time.Duration
	// ReleaseRetry configures the retry of the release after a completion failure.
	// Zero values select 100ms initial interval and 5 attempts.
	ReleaseRetry RetryOptions
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// RetryOptions tunes an exponential backoff.
type RetryOptions struct {
	InitialInterval time.Duration
	MaxTries        uint
}

// SchedulerService owns the assessment job lifecycle: enqueue, admission, completion with
// result persistence, failure, withdrawal and bulk rerun.
type SchedulerService struct {
	jobs        core.AssessmentJobRepository
	results     core.ResultRepository
	assessments core.AssessmentRepository
	users       core.UserRepository

	leasePolicy     *domainjob.LeasePolicy
	notifier        domainjob.Notifier
	signal          core.JobSignalPublisher
	cache           core.CacheRepository
	failureNotifier *failurenotifier.Service
	metrics         statsd.Sink
	logger          *slog.Logger

	submissionsDir string
	rerunGuardTTL  time.Duration
	releaseRetry   RetryOptions
	now            func() time.Time
}

// NewSchedulerService constructs a SchedulerService.
func NewSchedulerService(opts SchedulerServiceOptions) (*SchedulerService, error) {
	switch {
	case opts.Jobs == nil:
		return nil, errors.New("AssessmentJobRepository is required")
	case opts.Results == nil:
		return nil, errors.New("ResultRepository is required")
	case opts.Assessments == nil:
		return nil, errors.New("AssessmentRepository is required")
	case opts.Users == nil:
		return nil, errors.New("UserRepository is required")
	}

	leasePolicy := opts.LeasePolicy
	if leasePolicy == nil {
		var err error
		leasePolicy, err = domainjob.NewLeasePolicy(opts.DefaultLease)
		if err != nil {
			return nil, fmt.Errorf("create lease policy: %w", err)
		}
	}

	notifier := opts.Notifier
	if notifier == nil {
		options := opts.NotifierOptions
		if options.Waiter == nil {
			options.Waiter = opts.Jobs
		}
		var err error
		notifier, err = domainjob.NewNotifier(options)
		if err != nil {
			return nil, fmt.Errorf("create job notifier: %w", err)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scheduler_service")

	retry := opts.ReleaseRetry
	if retry.InitialInterval <= 0 {
		retry.InitialInterval = 100 * time.Millisecond
	}
	if retry.MaxTries == 0 {
		retry.MaxTries = 5
	}

	ttl := opts.RerunGuardTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	logger.Debug("SchedulerService initialized", "default_lease", leasePolicy.Default())

	return &SchedulerService{
		jobs:            opts.Jobs,
		results:         opts.Results,
		assessments:     opts.Assessments,
		users:           opts.Users,
		leasePolicy:     leasePolicy,
		notifier:        notifier,
		signal:          opts.Signal,
		cache:           opts.Cache,
		failureNotifier: opts.FailureNotifier,
		metrics:         opts.Metrics,
		logger:          logger,
		submissionsDir:  opts.SubmissionsDir,
		rerunGuardTTL:   ttl,
		releaseRetry:    retry,
		now:             now,
	}, nil
}

// MustNewSchedulerService constructs a SchedulerService and panics on error.
func MustNewSchedulerService(opts SchedulerServiceOptions) *SchedulerService {
	svc, err := NewSchedulerService(opts)
	if err != nil {
		//nolint:forbidigo // startup wiring fails fast on invalid dependencies
		panic(fmt.Sprintf("failed to create SchedulerService: %v", err))
	}
	return svc
}

// Enqueue queues one execution. When the request has no submission reference it is derived
// from the submission layout. A job with the same (user, assessment, run time) key yields
// *model.DuplicateJobError.
func (s *SchedulerService) Enqueue(ctx context.Context, req *model.EnqueueRequest) (*model.AssessmentJob, error) {
	if req == nil {
		return nil, errors.New("enqueue request is required")
	}
	if req.SubmissionRef == "" && s.submissionsDir != "" && req.UserID > 0 {
		user, err := s.users.GetByID(ctx, req.UserID)
		if err != nil {
			return nil, fmt.Errorf("resolve submission for user %d: %w", req.UserID, err)
		}
		req.SubmissionRef = execution.SubmissionRoot(s.submissionsDir, user.Username, req.AssessmentID, req.RunAt)
	}

	job, err := s.jobs.Enqueue(ctx, req)
	if err != nil {
		s.emit(metrics.TransitionEnqueue, 0, err)
		if model.IsDuplicateJob(err) {
			s.logger.WarnContext(ctx, "rejected duplicate assessment job",
				"user_id", req.UserID, "assessment_id", req.AssessmentID, "run_at", req.RunAt)
			return nil, err
		}
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	s.emit(metrics.TransitionEnqueue, 0, nil)

	s.publish(ctx, job.ID)
	s.logger.DebugContext(ctx, "job enqueued",
		"id", job.ID, "target", job.Target().String(), "run_at", job.RunAt)
	return job, nil
}

func (s *SchedulerService) publish(ctx context.Context, jobID string) {
	if s.signal == nil {
		return
	}
	if err := s.signal.PublishJobAvailable(ctx, jobID); err != nil {
		// Idle runners still wake on their poll interval.
		s.logger.WarnContext(ctx, "failed to publish job availability", "id", jobID, "error", err)
	}
}

// AdmitNext admits the earliest eligible job with the requested lease. A zero lease selects
// the default. It returns model.ErrNoJobsAvailable when nothing is eligible.
func (s *SchedulerService) AdmitNext(ctx context.Context, lease time.Duration) (*model.AssessmentJob, error) {
	decision := s.leasePolicy.Resolve(lease)
	if decision.Clamped() {
		s.logger.DebugContext(ctx, "clamped admission lease",
			"requested", decision.Requested, "applied", decision.Duration)
	}

	job, err := s.jobs.AdmitNext(ctx, decision.Seconds())
	if err != nil {
		if errors.Is(err, model.ErrNoJobsAvailable) {
			return nil, err
		}
		s.emit(metrics.TransitionAdmit, 0, err)
		return nil, fmt.Errorf("admit next job: %w", err)
	}
	s.emit(metrics.TransitionAdmit, 0, nil)

	s.logger.DebugContext(ctx, "job admitted",
		"id", job.ID, "target", job.Target().String(), "lease_seconds", decision.Seconds())
	return job, nil
}

// Heartbeat extends the lease of a running job. It reports false when the job no longer
// holds its running lock.
func (s *SchedulerService) Heartbeat(ctx context.Context, id string, lease time.Duration) (bool, error) {
	decision := s.leasePolicy.Resolve(lease)
	ok, err := s.jobs.Heartbeat(ctx, id, decision.Seconds())
	if err != nil {
		return false, fmt.Errorf("heartbeat job %s: %w", id, err)
	}
	return ok, nil
}

// Complete turns the execution outcome into a result, reconciles its hand-marking entries
// against the assessment and persists it while marking the job completed.
//
// execErr is the error returned by the executor, if any. An *execution.ExecutionFailure
// produces an error result; any other non-nil execErr is rejected and the caller should
// Fail the job instead.
//
// When persistence fails the job is released back to the queue and the returned error is a
// *model.ReconciliationPersistenceError.
func (s *SchedulerService) Complete(
	ctx context.Context,
	job *model.AssessmentJob,
	outcome *execution.RawOutcome,
	execErr error,
) (*model.Result, error) {
	if job == nil {
		return nil, errors.New("job is required")
	}
	start := s.now()

	var failure *execution.ExecutionFailure
	if execErr != nil {
		f, ok := execution.AsFailure(execErr)
		if !ok {
			return nil, fmt.Errorf("complete job %s: not an execution failure: %w", job.ID, execErr)
		}
		failure = f
	} else if outcome == nil {
		return nil, fmt.Errorf("complete job %s: outcome is required", job.ID)
	} else if !outcome.Compiled {
		failure = &execution.ExecutionFailure{Reason: "compilation failed", CompileError: true, Output: outcome.CompileErrors}
	}

	result, percentage, err := s.prepareResult(ctx, job, outcome, failure)
	if err == nil {
		result, err = s.jobs.Complete(ctx, core.CompleteJobParams{
			JobID:      job.ID,
			Result:     result,
			Percentage: percentage,
		})
	}
	if err != nil {
		if errors.Is(err, model.ErrJobNotRunning) || errors.Is(err, model.ErrJobNotFound) {
			s.emit(metrics.TransitionComplete, 0, err)
			s.logger.WarnContext(ctx, "job lost its running lock before completion", "id", job.ID, "error", err)
			return nil, fmt.Errorf("complete job %s: %w", job.ID, err)
		}
		return nil, s.releaseAfterFailure(ctx, job, err)
	}

	s.emit(metrics.TransitionComplete, s.now().Sub(start), nil)
	s.logger.InfoContext(ctx, "job completed",
		"id", job.ID,
		"target", job.Target().String(),
		"result_id", result.ID,
		"error_result", result.Error,
	)
	return result, nil
}

func (s *SchedulerService) prepareResult(
	ctx context.Context,
	job *model.AssessmentJob,
	outcome *execution.RawOutcome,
	failure *execution.ExecutionFailure,
) (*model.Result, float64, error) {
	def, err := s.assessments.GetDefinition(ctx, job.AssessmentID)
	if err != nil {
		return nil, 0, fmt.Errorf("load assessment %d: %w", job.AssessmentID, err)
	}
	user, err := s.users.GetByID(ctx, job.UserID)
	if err != nil {
		return nil, 0, fmt.Errorf("load user %d: %w", job.UserID, err)
	}

	in := resultInput{Job: job, Def: def, Group: user.GroupAccount, Now: s.now()}
	var result *model.Result
	if failure != nil {
		result = buildErrorResult(in, failure)
	} else {
		result = buildResult(in, outcome)
	}

	change := reconcile.Reconcile(result, def.HandMarking)
	s.logger.DebugContext(ctx, "reconciled new result",
		"id", job.ID, "hand_marking_created", len(change.Created))
	return result, result.ScoreFraction(def), nil
}

// releaseAfterFailure returns the job to the queue with exponential backoff so the target
// is not left locked, then reports the original failure.
func (s *SchedulerService) releaseAfterFailure(ctx context.Context, job *model.AssessmentJob, cause error) error {
	s.emit(metrics.TransitionComplete, 0, cause)

	reason := fmt.Sprintf("result persistence failed: %v", cause)
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = s.releaseRetry.InitialInterval

	// The release must run even if the job context was cancelled mid-completion.
	releaseCtx := context.WithoutCancel(ctx)
	released, err := backoff.Retry(releaseCtx, func() (bool, error) {
		ok, err := s.jobs.Release(releaseCtx, model.ReleaseJobRequest{ID: job.ID, Reason: reason})
		if err != nil {
			return false, err
		}
		return ok, nil
	},
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(s.releaseRetry.MaxTries),
	)

	perr := &model.ReconciliationPersistenceError{JobID: job.ID, Released: err == nil && released, Cause: cause}
	if err != nil {
		s.emit(metrics.TransitionRelease, 0, err)
		s.logger.ErrorContext(ctx, "failed to release job after persistence failure",
			"id", job.ID, "error", err, "cause", cause)
		perr.Cause = errors.Join(cause, fmt.Errorf("release: %w", err))
		return perr
	}

	s.emit(metrics.TransitionRelease, 0, nil)
	s.logger.WarnContext(ctx, "released job after persistence failure",
		"id", job.ID, "target", job.Target().String(), "released", released, "cause", cause)
	if released {
		s.publish(ctx, job.ID)
	}
	return perr
}

// Release returns a running job to the queue without a result, clearing its running lock.
// Runners use it when they stop before an execution finished.
func (s *SchedulerService) Release(ctx context.Context, id, reason string) (bool, error) {
	ok, err := s.jobs.Release(ctx, model.ReleaseJobRequest{ID: id, Reason: reason})
	if err != nil {
		s.emit(metrics.TransitionRelease, 0, err)
		return false, fmt.Errorf("release job %s: %w", id, err)
	}
	if ok {
		s.emit(metrics.TransitionRelease, 0, nil)
		s.logger.InfoContext(ctx, "job released", "id", id, "reason", reason)
		s.publish(ctx, id)
	}
	return ok, nil
}

// JobFailureDetails adds context to operator notifications.
type JobFailureDetails struct {
	Cause      error
	ErrorClass string
	Severity   string
	Metadata   map[string]string
}

// Fail marks a running job failed, releasing its target, and notifies operators. There is
// no automatic retry.
func (s *SchedulerService) Fail(ctx context.Context, id, reason string, details JobFailureDetails) (bool, error) {
	if reason == "" {
		return false, errors.New("failure reason required")
	}

	var job *model.AssessmentJob
	if s.failureNotifier.Enabled() {
		var err error
		if job, err = s.jobs.GetByID(ctx, id); err != nil {
			s.logger.WarnContext(ctx, "failed to load job for failure notification", "id", id, "error", err)
		}
	}

	failed, err := s.jobs.Fail(ctx, model.FailJobRequest{ID: id, Reason: reason})
	if err != nil {
		s.emit(metrics.TransitionFail, 0, err)
		return false, fmt.Errorf("fail job %s: %w", id, err)
	}
	if !failed {
		s.logger.DebugContext(ctx, "job was not running; fail ignored", "id", id)
		return false, nil
	}

	s.emitFailure(details.Cause)
	s.logger.InfoContext(ctx, "job failed", "id", id, "reason", reason)

	if s.failureNotifier.Enabled() {
		s.failureNotifier.NotifyJobFailure(ctx, s.failurePayload(id, job, reason, details))
	}
	return true, nil
}

func (s *SchedulerService) emitFailure(cause error) {
	// A failed transition is a successful write; the cause is what operators chart.
	if s.metrics == nil {
		return
	}
	tags := map[string]string{"transition": metrics.TransitionFail, "result": metrics.ResultSuccess}
	if class := obserrors.Classify(cause); class != "" {
		tags["error_class"] = class
	}
	s.metrics.Count("job.transition", 1, tags)
}

func (s *SchedulerService) failurePayload(
	id string,
	job *model.AssessmentJob,
	reason string,
	details JobFailureDetails,
) notify.JobFailurePayload {
	payload := notify.JobFailurePayload{
		JobID:      id,
		Error:      reason,
		ErrorClass: details.ErrorClass,
		Severity:   details.Severity,
		OccurredAt: s.now(),
		Metadata:   map[string]string{},
	}
	if payload.ErrorClass == "" {
		payload.ErrorClass = obserrors.Classify(details.Cause)
	}
	for k, v := range details.Metadata {
		if k != "" && v != "" {
			payload.Metadata[k] = v
		}
	}
	if job != nil {
		payload.UserID = job.UserID
		payload.Username = job.Username
		payload.AssessmentID = job.AssessmentID
		payload.RunAt = job.RunAt
		payload.Attempts = job.Attempts
		payload.Metadata["submission"] = job.SubmissionRef
		if job.ResultID != nil {
			payload.Metadata["waiting_result_id"] = strconv.FormatInt(*job.ResultID, 10)
		}
	}
	if len(payload.Metadata) == 0 {
		payload.Metadata = nil
	}
	return payload
}

// Withdraw deletes a queued job by its key. Running jobs cannot be withdrawn and yield false.
func (s *SchedulerService) Withdraw(ctx context.Context, key model.JobKey) (bool, error) {
	ok, err := s.jobs.Withdraw(ctx, key)
	if err != nil {
		return false, fmt.Errorf("withdraw job: %w", err)
	}
	if ok {
		s.emit(metrics.TransitionWithdraw, 0, nil)
		s.logger.InfoContext(ctx, "job withdrawn",
			"user_id", key.UserID, "assessment_id", key.AssessmentID, "run_at", key.RunAt)
	}
	return ok, nil
}

// GetByID returns a job by id.
func (s *SchedulerService) GetByID(ctx context.Context, id string) (*model.AssessmentJob, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get job by id %s: %w", id, err)
	}
	return job, nil
}

// Stats summarises the queue and reports it as gauges.
func (s *SchedulerService) Stats(ctx context.Context) (*model.JobStats, error) {
	stats, err := s.jobs.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("get job stats: %w", err)
	}
	metrics.EmitQueueDepth(s.metrics, stats)
	return stats, nil
}

// ListFailed returns failed jobs, most recent first.
func (s *SchedulerService) ListFailed(ctx context.Context, limit, offset int) ([]*model.AssessmentJob, error) {
	p := normalizePagination(limit, offset)
	jobs, err := s.jobs.List(ctx, core.ListJobsParams{Status: model.JobStatusFailed, Limit: p.Limit, Offset: p.Offset})
	if err != nil {
		return nil, fmt.Errorf("list failed jobs: %w", err)
	}
	return jobs, nil
}

// List returns jobs matching params with normalised pagination.
func (s *SchedulerService) List(ctx context.Context, params core.ListJobsParams) ([]*model.AssessmentJob, error) {
	p := normalizePagination(params.Limit, params.Offset)
	params.Limit, params.Offset = p.Limit, p.Offset
	jobs, err := s.jobs.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// Subscribe registers for job-available notifications. The returned function unsubscribes.
func (s *SchedulerService) Subscribe() (func(), <-chan struct{}) {
	if s.notifier == nil {
		ch := make(chan struct{})
		close(ch)
		return func() {}, ch
	}
	return s.notifier.Subscribe()
}

// StopAllListeners stops the notification listener. Call during shutdown.
func (s *SchedulerService) StopAllListeners() {
	if s.notifier != nil {
		s.notifier.StopAll()
	}
}

// RerunSummary reports the outcome of RerunAssessment.
type RerunSummary struct {
	AssessmentID int64
	RunAt        time.Time
	Enqueued     int
	Duplicates   int
	Skipped      int
}

// RerunAssessment enqueues one job per user with a result on the assessment, re-executing
// their latest submission. Duplicate keys are tolerated so a retried rerun is harmless.
func (s *SchedulerService) RerunAssessment(ctx context.Context, assessmentID int64, runAt time.Time) (*RerunSummary, error) {
	exists, err := s.assessments.Exists(ctx, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("check assessment %d: %w", assessmentID, err)
	}
	if !exists {
		return nil, fmt.Errorf("rerun assessment %d: %w", assessmentID, model.ErrAssessmentNotFound)
	}
	if runAt.IsZero() {
		runAt = s.now()
	}

	if s.cache != nil {
		key := "rerun:" + strconv.FormatInt(assessmentID, 10)
		set, err := s.cache.SetIfNotExists(ctx, key, []byte(runAt.UTC().Format(time.RFC3339)), s.rerunGuardTTL)
		if err != nil {
			s.logger.WarnContext(ctx, "rerun guard unavailable; continuing without it", "error", err)
		} else if !set {
			return nil, ErrRerunInProgress
		}
	}

	owners, err := s.results.SubmitterIDs(ctx, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("list submitters of assessment %d: %w", assessmentID, err)
	}

	summary := &RerunSummary{AssessmentID: assessmentID, RunAt: runAt}
	for _, ownerID := range owners {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := s.rerunOne(ctx, ownerID, assessmentID, runAt, summary); err != nil {
			return summary, err
		}
	}

	s.logger.InfoContext(ctx, "assessment rerun enqueued",
		"assessment_id", assessmentID,
		"enqueued", summary.Enqueued,
		"duplicates", summary.Duplicates,
		"skipped", summary.Skipped,
	)
	return summary, nil
}

func (s *SchedulerService) rerunOne(ctx context.Context, ownerID, assessmentID int64, runAt time.Time, summary *RerunSummary) error {
	latest, err := s.results.Latest(ctx, model.ResultQuery{UserID: ownerID, AssessmentID: assessmentID})
	if err != nil {
		return fmt.Errorf("latest result of user %d: %w", ownerID, err)
	}
	user, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("load user %d: %w", ownerID, err)
	}
	if user.Username == model.CompetitionRunnerUsername {
		summary.Skipped++
		return nil
	}

	_, err = s.Enqueue(ctx, &model.EnqueueRequest{
		UserID:        ownerID,
		AssessmentID:  assessmentID,
		SubmissionRef: execution.SubmissionRoot(s.submissionsDir, user.Username, assessmentID, latest.SubmissionDate),
		RunAt:         runAt,
	})
	switch {
	case err == nil:
		summary.Enqueued++
	case model.IsDuplicateJob(err):
		summary.Duplicates++
	default:
		return err
	}
	return nil
}

func (s *SchedulerService) emit(transition string, d time.Duration, err error) {
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		Transition: transition,
		Result:     result,
		Duration:   d,
		Err:        err,
	})
}

type paginationParams struct {
	Limit  int
	Offset int
}

// normalizePagination clamps pagination: default limit 50, max 1000, min offset 0.
func normalizePagination(limit, offset int) paginationParams {
	if limit <= 0 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}
	return paginationParams{Limit: limit, Offset: offset}
}
