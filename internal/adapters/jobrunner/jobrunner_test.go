package jobrunner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jjstretton/pasta/internal/domain/model"
	"github.com/jjstretton/pasta/internal/execution"
	"github.com/jjstretton/pasta/internal/observability/metrics"
	"github.com/jjstretton/pasta/internal/observability/notify"
	"github.com/jjstretton/pasta/internal/service"
)

type failCall struct {
	id      string
	reason  string
	details service.JobFailureDetails
}

type completeCall struct {
	job     *model.AssessmentJob
	outcome *execution.RawOutcome
	execErr error
}

// fakeScheduler hands out queued jobs once and records what the runner reports.
type fakeScheduler struct {
	mu sync.Mutex

	queue      []*model.AssessmentJob
	admitErr   error
	heartbeat  func(id string) (bool, error)
	completeFn func(*model.AssessmentJob) error

	completed  []completeCall
	failed     []failCall
	released   []string
	heartbeats int
	reported   chan struct{}
}

func newFakeScheduler(jobs ...*model.AssessmentJob) *fakeScheduler {
	return &fakeScheduler{queue: jobs, reported: make(chan struct{}, 16)}
}

func (f *fakeScheduler) AdmitNext(_ context.Context, _ time.Duration) (*model.AssessmentJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.admitErr != nil {
		return nil, f.admitErr
	}
	if len(f.queue) == 0 {
		return nil, model.ErrNoJobsAvailable
	}
	job := f.queue[0]
	f.queue = f.queue[1:]
	return job, nil
}

func (f *fakeScheduler) Heartbeat(_ context.Context, id string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	f.heartbeats++
	hb := f.heartbeat
	f.mu.Unlock()
	if hb == nil {
		return true, nil
	}
	return hb(id)
}

func (f *fakeScheduler) Complete(
	_ context.Context,
	job *model.AssessmentJob,
	outcome *execution.RawOutcome,
	execErr error,
) (*model.Result, error) {
	f.mu.Lock()
	f.completed = append(f.completed, completeCall{job: job, outcome: outcome, execErr: execErr})
	fn := f.completeFn
	f.mu.Unlock()
	defer f.signal()
	if fn != nil {
		if err := fn(job); err != nil {
			return nil, err
		}
	}
	return &model.Result{ID: 1}, nil
}

func (f *fakeScheduler) Fail(_ context.Context, id, reason string, details service.JobFailureDetails) (bool, error) {
	f.mu.Lock()
	f.failed = append(f.failed, failCall{id: id, reason: reason, details: details})
	f.mu.Unlock()
	f.signal()
	return true, nil
}

func (f *fakeScheduler) Release(_ context.Context, id, _ string) (bool, error) {
	f.mu.Lock()
	f.released = append(f.released, id)
	f.mu.Unlock()
	f.signal()
	return true, nil
}

func (f *fakeScheduler) Subscribe() (func(), <-chan struct{}) {
	return func() {}, make(chan struct{})
}

func (f *fakeScheduler) signal() {
	select {
	case f.reported <- struct{}{}:
	default:
	}
}

func (f *fakeScheduler) snapshot() ([]completeCall, []failCall, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]completeCall(nil), f.completed...),
		append([]failCall(nil), f.failed...),
		append([]string(nil), f.released...)
}

func testJob(id string) *model.AssessmentJob {
	return &model.AssessmentJob{
		ID:            id,
		UserID:        7,
		Username:      "jstu0001",
		AssessmentID:  3,
		RunAt:         time.Date(2024, 3, 11, 9, 30, 0, 0, time.UTC),
		Status:        model.JobStatusRunning,
		SubmissionRef: "/srv/pasta/submissions/jstu0001/assessments/3/2024-03-11T09-30-00",
	}
}

// runUntilReported runs the runner until the scheduler has seen n reports, then stops it.
func runUntilReported(t *testing.T, r *Runner, sched *fakeScheduler, n int) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	for range n {
		select {
		case <-sched.reported:
		case <-time.After(2 * time.Second):
			cancel()
			t.Fatal("runner did not report in time")
		}
	}
	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestNewRunner_Validation(t *testing.T) {
	exec := execution.ExecutorFunc(func(context.Context, execution.Request) (*execution.RawOutcome, error) {
		return &execution.RawOutcome{Compiled: true}, nil
	})

	_, err := NewRunner(RunnerOptions{Executor: exec})
	require.Error(t, err)

	_, err = NewRunner(RunnerOptions{Scheduler: newFakeScheduler()})
	require.Error(t, err)

	r, err := NewRunner(RunnerOptions{Scheduler: newFakeScheduler(), Executor: exec})
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, r.lease)
	assert.Equal(t, 1, r.workers)
	assert.Equal(t, 30*time.Second, r.pollInterval)
	assert.Equal(t, execution.DefaultTimeout, r.executor.Default)
}

func TestRunner_CompletesSuccessfulExecution(t *testing.T) {
	sched := newFakeScheduler(testJob("job-1"))
	rec := &metrics.Recorder{}
	var gotReq execution.Request
	outcome := &execution.RawOutcome{Compiled: true}

	r, err := NewRunner(RunnerOptions{
		Scheduler:    sched,
		Metrics:      rec,
		PollInterval: 10 * time.Millisecond,
		Executor: execution.ExecutorFunc(func(_ context.Context, req execution.Request) (*execution.RawOutcome, error) {
			gotReq = req
			return outcome, nil
		}),
	})
	require.NoError(t, err)

	runUntilReported(t, r, sched, 1)

	completed, failed, released := sched.snapshot()
	require.Len(t, completed, 1)
	assert.Same(t, outcome, completed[0].outcome)
	require.NoError(t, completed[0].execErr)
	assert.Empty(t, failed)
	assert.Empty(t, released)

	assert.Equal(t, "job-1", gotReq.JobID)
	assert.Equal(t, "jstu0001", gotReq.Username)
	assert.Equal(t, int64(3), gotReq.AssessmentID)
	assert.Equal(t, testJob("job-1").SubmissionRef, gotReq.SubmissionRoot)

	assert.NotEmpty(t, rec.Find("job.transition", map[string]string{
		"transition": metrics.TransitionExecute,
		"result":     metrics.ResultSuccess,
	}))
	assert.Empty(t, r.InFlight())
}

func TestRunner_ExecutionFailureStillCompletes(t *testing.T) {
	sched := newFakeScheduler(testJob("job-1"))
	failure := &execution.ExecutionFailure{Reason: "compile error", CompileError: true, Output: "main.py:1: SyntaxError"}

	r, err := NewRunner(RunnerOptions{
		Scheduler:    sched,
		PollInterval: 10 * time.Millisecond,
		Executor: execution.ExecutorFunc(func(context.Context, execution.Request) (*execution.RawOutcome, error) {
			return nil, failure
		}),
	})
	require.NoError(t, err)

	runUntilReported(t, r, sched, 1)

	completed, failed, _ := sched.snapshot()
	require.Len(t, completed, 1)
	assert.Nil(t, completed[0].outcome)
	assert.ErrorIs(t, completed[0].execErr, failure)
	assert.Empty(t, failed)
}

func TestRunner_TimeoutFailsJob(t *testing.T) {
	sched := newFakeScheduler(testJob("job-1"))

	r, err := NewRunner(RunnerOptions{
		Scheduler:        sched,
		PollInterval:     10 * time.Millisecond,
		ExecutionTimeout: 20 * time.Millisecond,
		Executor: execution.ExecutorFunc(func(ctx context.Context, _ execution.Request) (*execution.RawOutcome, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}),
	})
	require.NoError(t, err)

	runUntilReported(t, r, sched, 1)

	completed, failed, _ := sched.snapshot()
	assert.Empty(t, completed)
	require.Len(t, failed, 1)
	assert.Equal(t, "job-1", failed[0].id)
	assert.Contains(t, failed[0].reason, "timed out")
	assert.Equal(t, notify.SeverityWarning, failed[0].details.Severity)
	assert.True(t, execution.IsTimeout(failed[0].details.Cause))
}

func TestRunner_ExecutorErrorFailsJob(t *testing.T) {
	sched := newFakeScheduler(testJob("job-1"))

	r, err := NewRunner(RunnerOptions{
		Scheduler:    sched,
		PollInterval: 10 * time.Millisecond,
		Executor: execution.ExecutorFunc(func(context.Context, execution.Request) (*execution.RawOutcome, error) {
			return nil, errors.New("runner binary missing")
		}),
	})
	require.NoError(t, err)

	runUntilReported(t, r, sched, 1)

	_, failed, _ := sched.snapshot()
	require.Len(t, failed, 1)
	assert.Equal(t, notify.SeverityCritical, failed[0].details.Severity)
	assert.Contains(t, failed[0].reason, "runner binary missing")
}

func TestRunner_LostLeaseDiscardsOutcome(t *testing.T) {
	sched := newFakeScheduler(testJob("job-1"))
	sched.heartbeat = func(string) (bool, error) { return false, nil }
	executed := make(chan struct{})

	r, err := NewRunner(RunnerOptions{
		Scheduler:    sched,
		Lease:        20 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
		Executor: execution.ExecutorFunc(func(ctx context.Context, _ execution.Request) (*execution.RawOutcome, error) {
			defer close(executed)
			<-ctx.Done()
			return nil, ctx.Err()
		}),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	select {
	case <-executed:
	case <-time.After(2 * time.Second):
		t.Fatal("execution was not cancelled after the lease was lost")
	}
	require.Eventually(t, func() bool { return len(r.InFlight()) == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	completed, failed, released := sched.snapshot()
	assert.Empty(t, completed)
	assert.Empty(t, failed)
	assert.Empty(t, released)
}

func TestRunner_ShutdownReleasesUnfinishedJob(t *testing.T) {
	sched := newFakeScheduler(testJob("job-1"))
	started := make(chan struct{})

	r, err := NewRunner(RunnerOptions{
		Scheduler:     sched,
		PollInterval:  10 * time.Millisecond,
		ShutdownGrace: 20 * time.Millisecond,
		Executor: execution.ExecutorFunc(func(ctx context.Context, _ execution.Request) (*execution.RawOutcome, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	<-started
	assert.Equal(t, []string{"job-1"}, r.InFlight())
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop after the grace period")
	}

	completed, failed, released := sched.snapshot()
	assert.Empty(t, completed)
	assert.Empty(t, failed)
	assert.Equal(t, []string{"job-1"}, released)
}

func TestRunner_FinishesWithinGrace(t *testing.T) {
	sched := newFakeScheduler(testJob("job-1"))
	started := make(chan struct{})
	finish := make(chan struct{})

	r, err := NewRunner(RunnerOptions{
		Scheduler:     sched,
		PollInterval:  10 * time.Millisecond,
		ShutdownGrace: time.Second,
		Executor: execution.ExecutorFunc(func(context.Context, execution.Request) (*execution.RawOutcome, error) {
			close(started)
			<-finish
			return &execution.RawOutcome{Compiled: true}, nil
		}),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	<-started
	cancel()
	close(finish)
	<-done

	completed, _, released := sched.snapshot()
	assert.Len(t, completed, 1)
	assert.Empty(t, released)
}

func TestRunner_PersistenceFailureIsNotFatal(t *testing.T) {
	sched := newFakeScheduler(testJob("job-1"), testJob("job-2"))
	sched.completeFn = func(job *model.AssessmentJob) error {
		if job.ID == "job-1" {
			return &model.ReconciliationPersistenceError{Cause: errors.New("disk full"), Released: true}
		}
		return nil
	}

	r, err := NewRunner(RunnerOptions{
		Scheduler:    sched,
		PollInterval: 10 * time.Millisecond,
		Executor: execution.ExecutorFunc(func(context.Context, execution.Request) (*execution.RawOutcome, error) {
			return &execution.RawOutcome{Compiled: true}, nil
		}),
	})
	require.NoError(t, err)

	runUntilReported(t, r, sched, 2)

	completed, _, _ := sched.snapshot()
	require.Len(t, completed, 2)
	assert.Equal(t, "job-2", completed[1].job.ID)
}

func TestRunner_AdmissionErrorStopsRunner(t *testing.T) {
	sched := newFakeScheduler()
	sched.admitErr = errors.New("connection refused")

	r, err := NewRunner(RunnerOptions{
		Scheduler:   sched,
		Concurrency: 3,
		Executor: execution.ExecutorFunc(func(context.Context, execution.Request) (*execution.RawOutcome, error) {
			return nil, nil
		}),
	})
	require.NoError(t, err)

	err = r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
