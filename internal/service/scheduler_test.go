package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/jjstretton/pasta/internal/core"
	"github.com/jjstretton/pasta/internal/domain/model"
	"github.com/jjstretton/pasta/internal/execution"
	"github.com/jjstretton/pasta/internal/mocks"
	"github.com/jjstretton/pasta/internal/observability/metrics"
	"github.com/jjstretton/pasta/internal/observability/notify"
	"github.com/jjstretton/pasta/internal/service/failurenotifier"
)

var schedulerTestNow = time.Date(2024, 3, 11, 9, 30, 0, 0, time.UTC)

type stubNotifier struct{ stopped bool }

func (s *stubNotifier) Subscribe() (func(), <-chan struct{}) {
	return func() {}, make(chan struct{})
}

func (s *stubNotifier) StopAll() { s.stopped = true }

type schedulerHarness struct {
	jobs        *mocks.MockAssessmentJobRepository
	results     *mocks.MockResultRepository
	assessments *mocks.MockAssessmentRepository
	users       *mocks.MockUserRepository
	cache       *mocks.MockCacheRepository
	signal      *mocks.MockJobSignalPublisher
	metrics     *metrics.Recorder
	notifier    *stubNotifier
}

func newSchedulerHarness(t *testing.T) (*SchedulerService, *schedulerHarness) {
	t.Helper()
	ctrl := gomock.NewController(t)
	h := &schedulerHarness{
		jobs:        mocks.NewMockAssessmentJobRepository(ctrl),
		results:     mocks.NewMockResultRepository(ctrl),
		assessments: mocks.NewMockAssessmentRepository(ctrl),
		users:       mocks.NewMockUserRepository(ctrl),
		cache:       mocks.NewMockCacheRepository(ctrl),
		signal:      mocks.NewMockJobSignalPublisher(ctrl),
		metrics:     &metrics.Recorder{},
		notifier:    &stubNotifier{},
	}
	svc, err := NewSchedulerService(SchedulerServiceOptions{
		Jobs:           h.jobs,
		Results:        h.results,
		Assessments:    h.assessments,
		Users:          h.users,
		DefaultLease:   2 * time.Minute,
		Notifier:       h.notifier,
		Signal:         h.signal,
		Cache:          h.cache,
		Metrics:        h.metrics,
		SubmissionsDir: "/srv/pasta/submissions",
		ReleaseRetry:   RetryOptions{InitialInterval: time.Millisecond, MaxTries: 3},
		Now:            func() time.Time { return schedulerTestNow },
	})
	require.NoError(t, err)
	return svc, h
}

func runningJob() *model.AssessmentJob {
	return &model.AssessmentJob{
		ID:           "job-1",
		UserID:       7,
		Username:     "jstu0001",
		AssessmentID: 3,
		RunAt:        schedulerTestNow.Add(-time.Minute),
		Status:       model.JobStatusRunning,
		Attempts:     1,
	}
}

func definition() *model.AssessmentDefinition {
	return &model.AssessmentDefinition{
		ID:    3,
		Name:  "Linked lists",
		Marks: 10,
		UnitTests: []model.WeightedUnitTest{
			{ID: 31, AssessmentID: 3, UnitTestID: 1, Weight: 0.6},
			{ID: 32, AssessmentID: 3, UnitTestID: 2, Weight: 0.2},
		},
		HandMarking: []model.WeightedHandMarking{
			{ID: 41, AssessmentID: 3, HandMarkingID: 1, Weight: 0.2},
			{ID: 42, AssessmentID: 3, HandMarkingID: 2, Weight: 0.1, GroupWork: true},
		},
	}
}

func TestNewSchedulerService_RequiresDependencies(t *testing.T) {
	ctrl := gomock.NewController(t)
	full := SchedulerServiceOptions{
		Jobs:         mocks.NewMockAssessmentJobRepository(ctrl),
		Results:      mocks.NewMockResultRepository(ctrl),
		Assessments:  mocks.NewMockAssessmentRepository(ctrl),
		Users:        mocks.NewMockUserRepository(ctrl),
		DefaultLease: time.Minute,
	}

	tests := []struct {
		name   string
		mutate func(*SchedulerServiceOptions)
		want   string
	}{
		{name: "jobs", mutate: func(o *SchedulerServiceOptions) { o.Jobs = nil }, want: "AssessmentJobRepository"},
		{name: "results", mutate: func(o *SchedulerServiceOptions) { o.Results = nil }, want: "ResultRepository"},
		{name: "assessments", mutate: func(o *SchedulerServiceOptions) { o.Assessments = nil }, want: "AssessmentRepository"},
		{name: "users", mutate: func(o *SchedulerServiceOptions) { o.Users = nil }, want: "UserRepository"},
		{name: "lease", mutate: func(o *SchedulerServiceOptions) { o.DefaultLease = 0 }, want: "lease policy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := full
			tt.mutate(&opts)
			_, err := NewSchedulerService(opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := NewSchedulerService(full)
	require.NoError(t, err)
}

func TestSchedulerService_Enqueue(t *testing.T) {
	ctx := context.Background()

	t.Run("derives the submission root and announces the job", func(t *testing.T) {
		svc, h := newSchedulerHarness(t)
		runAt := time.Date(2024, 3, 11, 9, 0, 5, 0, time.UTC)
		req := &model.EnqueueRequest{UserID: 7, AssessmentID: 3, RunAt: runAt}

		h.users.EXPECT().GetByID(ctx, int64(7)).Return(&model.User{ID: 7, Username: "jstu0001"}, nil)
		h.jobs.EXPECT().Enqueue(ctx, req).DoAndReturn(
			func(_ context.Context, r *model.EnqueueRequest) (*model.AssessmentJob, error) {
				assert.Equal(t,
					"/srv/pasta/submissions/jstu0001/assessments/3/2024-03-11T09-00-05/submission",
					r.SubmissionRef)
				return &model.AssessmentJob{ID: "job-9", UserID: 7, AssessmentID: 3, RunAt: runAt}, nil
			})
		h.signal.EXPECT().PublishJobAvailable(ctx, "job-9").Return(nil)

		job, err := svc.Enqueue(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "job-9", job.ID)
		assert.NotEmpty(t, h.metrics.Find("job.transition", map[string]string{
			"transition": metrics.TransitionEnqueue,
			"result":     metrics.ResultSuccess,
		}))
	})

	t.Run("keeps an explicit submission reference", func(t *testing.T) {
		svc, h := newSchedulerHarness(t)
		req := &model.EnqueueRequest{UserID: 7, AssessmentID: 3, RunAt: schedulerTestNow, SubmissionRef: "/tmp/sub"}

		h.jobs.EXPECT().Enqueue(ctx, req).Return(&model.AssessmentJob{ID: "job-2"}, nil)
		h.signal.EXPECT().PublishJobAvailable(ctx, "job-2").Return(errors.New("redis down"))

		_, err := svc.Enqueue(ctx, req)
		require.NoError(t, err, "a failed signal does not fail the enqueue")
		assert.Equal(t, "/tmp/sub", req.SubmissionRef)
	})

	t.Run("returns duplicate job errors unwrapped", func(t *testing.T) {
		svc, h := newSchedulerHarness(t)
		req := &model.EnqueueRequest{UserID: 7, AssessmentID: 3, RunAt: schedulerTestNow, SubmissionRef: "/tmp/sub"}
		dup := &model.DuplicateJobError{Key: model.JobKey{UserID: 7, AssessmentID: 3, RunAt: schedulerTestNow}}

		h.jobs.EXPECT().Enqueue(ctx, req).Return(nil, dup)

		_, err := svc.Enqueue(ctx, req)
		var got *model.DuplicateJobError
		require.ErrorAs(t, err, &got)
		assert.Equal(t, dup.Key, got.Key)
	})
}

func TestSchedulerService_AdmitNext(t *testing.T) {
	ctx := context.Background()

	t.Run("applies the default lease", func(t *testing.T) {
		svc, h := newSchedulerHarness(t)
		h.jobs.EXPECT().AdmitNext(ctx, 120).Return(runningJob(), nil)

		job, err := svc.AdmitNext(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, "job-1", job.ID)
	})

	t.Run("clamps short leases", func(t *testing.T) {
		svc, h := newSchedulerHarness(t)
		h.jobs.EXPECT().AdmitNext(ctx, 5).Return(runningJob(), nil)

		_, err := svc.AdmitNext(ctx, time.Second)
		require.NoError(t, err)
	})

	t.Run("passes through no jobs available", func(t *testing.T) {
		svc, h := newSchedulerHarness(t)
		h.jobs.EXPECT().AdmitNext(ctx, 120).Return(nil, model.ErrNoJobsAvailable)

		_, err := svc.AdmitNext(ctx, 0)
		require.ErrorIs(t, err, model.ErrNoJobsAvailable)
		assert.Empty(t, h.metrics.Samples(), "an empty queue is not an admission error")
	})
}

func TestSchedulerService_Complete(t *testing.T) {
	ctx := context.Background()

	expectLookups := func(h *schedulerHarness, group bool) {
		h.assessments.EXPECT().GetDefinition(gomock.Any(), int64(3)).Return(definition(), nil)
		h.users.EXPECT().GetByID(gomock.Any(), int64(7)).
			Return(&model.User{ID: 7, Username: "jstu0001", GroupAccount: group}, nil)
	}

	t.Run("persists a reconciled result", func(t *testing.T) {
		svc, h := newSchedulerHarness(t)
		expectLookups(h, false)

		outcome := &execution.RawOutcome{
			Compiled: true,
			UnitTests: []execution.UnitTestOutcome{
				{WeightedUnitTestID: 31, Compiled: true, Cases: []execution.CaseOutcome{
					{Name: "testInsert", Outcome: model.CaseOutcomePass, Seconds: 0.1},
					{Name: "testRemove", Outcome: "weird", Message: "unknown"},
				}},
				{WeightedUnitTestID: 99, Compiled: true},
			},
		}

		h.jobs.EXPECT().Complete(ctx, gomock.Any()).DoAndReturn(
			func(_ context.Context, p core.CompleteJobParams) (*model.Result, error) {
				assert.Equal(t, "job-1", p.JobID)
				r := p.Result
				assert.False(t, r.Error)
				assert.Equal(t, int64(7), r.UserID)
				assert.Equal(t, int64(7), r.SubmittedBy)
				assert.True(t, r.SubmissionDate.Equal(runningJob().RunAt))

				require.Len(t, r.UnitTests, 2)
				assert.Equal(t, int64(31), r.UnitTests[0].WeightedUnitTestID)
				require.Len(t, r.UnitTests[0].Cases, 2)
				assert.Equal(t, model.CaseOutcomeError, r.UnitTests[0].Cases[1].Outcome)
				assert.Equal(t, int64(32), r.UnitTests[1].WeightedUnitTestID)
				assert.Equal(t, missingOutcomeMessage, r.UnitTests[1].RuntimeErrors)

				// Only the individual hand marking applies to an individual result.
				require.Len(t, r.HandMarking, 1)
				assert.Equal(t, int64(41), r.HandMarking[0].WeightedHandMarkingID)
				assert.Nil(t, r.HandMarking[0].Score)

				// Half of unit test 31 passed; nothing else scores yet.
				assert.InDelta(t, 0.3, p.Percentage, 1e-9)

				r.ID = 500
				return r, nil
			})

		result, err := svc.Complete(ctx, runningJob(), outcome, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(500), result.ID)
	})

	t.Run("group accounts get group hand marking", func(t *testing.T) {
		svc, h := newSchedulerHarness(t)
		expectLookups(h, true)

		h.jobs.EXPECT().Complete(ctx, gomock.Any()).DoAndReturn(
			func(_ context.Context, p core.CompleteJobParams) (*model.Result, error) {
				assert.True(t, p.Result.GroupResult)
				require.Len(t, p.Result.HandMarking, 1)
				assert.Equal(t, int64(42), p.Result.HandMarking[0].WeightedHandMarkingID)
				return p.Result, nil
			})

		_, err := svc.Complete(ctx, runningJob(), &execution.RawOutcome{Compiled: true}, nil)
		require.NoError(t, err)
	})

	t.Run("execution failures produce an error result", func(t *testing.T) {
		svc, h := newSchedulerHarness(t)
		expectLookups(h, false)

		failure := &execution.ExecutionFailure{Reason: "compile", CompileError: true, Output: "Main.java:3: error"}
		h.jobs.EXPECT().Complete(ctx, gomock.Any()).DoAndReturn(
			func(_ context.Context, p core.CompleteJobParams) (*model.Result, error) {
				r := p.Result
				assert.True(t, r.Error)
				assert.Zero(t, p.Percentage)
				require.Len(t, r.UnitTests, 2)
				for _, ut := range r.UnitTests {
					assert.False(t, ut.Compiled)
					assert.Equal(t, "Main.java:3: error", ut.CompileErrors)
					assert.Empty(t, ut.Cases)
				}
				return r, nil
			})

		result, err := svc.Complete(ctx, runningJob(), nil, failure)
		require.NoError(t, err)
		assert.True(t, result.Error)
	})

	t.Run("rejects timeouts without touching the job", func(t *testing.T) {
		svc, _ := newSchedulerHarness(t)
		timeout := &execution.ExecutionTimeoutError{JobID: "job-1", Timeout: time.Minute}

		_, err := svc.Complete(ctx, runningJob(), nil, timeout)
		require.Error(t, err)
		assert.True(t, execution.IsTimeout(err))
	})

	t.Run("releases the job when persistence fails", func(t *testing.T) {
		svc, h := newSchedulerHarness(t)
		expectLookups(h, false)
		cause := errors.New("disk full")

		h.jobs.EXPECT().Complete(ctx, gomock.Any()).Return(nil, cause)
		gomock.InOrder(
			h.jobs.EXPECT().Release(gomock.Any(), gomock.Any()).Return(false, errors.New("connection reset")),
			h.jobs.EXPECT().Release(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, req model.ReleaseJobRequest) (bool, error) {
					assert.Equal(t, "job-1", req.ID)
					assert.Contains(t, req.Reason, "disk full")
					return true, nil
				}),
		)
		h.signal.EXPECT().PublishJobAvailable(gomock.Any(), "job-1").Return(nil)

		_, err := svc.Complete(ctx, runningJob(), &execution.RawOutcome{Compiled: true}, nil)
		var perr *model.ReconciliationPersistenceError
		require.ErrorAs(t, err, &perr)
		assert.True(t, perr.Released)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("leaves the job for the reaper when release keeps failing", func(t *testing.T) {
		svc, h := newSchedulerHarness(t)
		expectLookups(h, false)

		h.jobs.EXPECT().Complete(ctx, gomock.Any()).Return(nil, errors.New("disk full"))
		h.jobs.EXPECT().Release(gomock.Any(), gomock.Any()).Return(false, errors.New("connection reset")).Times(3)

		_, err := svc.Complete(ctx, runningJob(), &execution.RawOutcome{Compiled: true}, nil)
		var perr *model.ReconciliationPersistenceError
		require.ErrorAs(t, err, &perr)
		assert.False(t, perr.Released)
	})

	t.Run("releases the job when the definition cannot be loaded", func(t *testing.T) {
		svc, h := newSchedulerHarness(t)
		h.assessments.EXPECT().GetDefinition(gomock.Any(), int64(3)).Return(nil, errors.New("timeout"))
		h.jobs.EXPECT().Release(gomock.Any(), gomock.Any()).Return(true, nil)
		h.signal.EXPECT().PublishJobAvailable(gomock.Any(), "job-1").Return(nil)

		_, err := svc.Complete(ctx, runningJob(), &execution.RawOutcome{Compiled: true}, nil)
		assert.True(t, model.IsReconciliationPersistence(err))
	})

	t.Run("does not release a job that lost its lock", func(t *testing.T) {
		svc, h := newSchedulerHarness(t)
		expectLookups(h, false)
		h.jobs.EXPECT().Complete(ctx, gomock.Any()).Return(nil, model.ErrJobNotRunning)

		_, err := svc.Complete(ctx, runningJob(), &execution.RawOutcome{Compiled: true}, nil)
		require.ErrorIs(t, err, model.ErrJobNotRunning)
		assert.False(t, model.IsReconciliationPersistence(err))
	})
}

func TestSchedulerService_Fail(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	jobs := mocks.NewMockAssessmentJobRepository(ctrl)

	var (
		mu       sync.Mutex
		received []notify.JobFailurePayload
	)
	fn := failurenotifier.NewService(failurenotifier.Options{
		Sinks: []failurenotifier.SinkRegistration{{
			Name: "capture",
			Sink: notify.SinkFunc(func(_ context.Context, p notify.JobFailurePayload) error {
				mu.Lock()
				defer mu.Unlock()
				received = append(received, p)
				return nil
			}),
		}},
	})

	svc, err := NewSchedulerService(SchedulerServiceOptions{
		Jobs:            jobs,
		Results:         mocks.NewMockResultRepository(ctrl),
		Assessments:     mocks.NewMockAssessmentRepository(ctrl),
		Users:           mocks.NewMockUserRepository(ctrl),
		DefaultLease:    time.Minute,
		Notifier:        &stubNotifier{},
		FailureNotifier: fn,
		Now:             func() time.Time { return schedulerTestNow },
	})
	require.NoError(t, err)

	job := runningJob()
	job.SubmissionRef = "/srv/sub"
	jobs.EXPECT().GetByID(ctx, "job-1").Return(job, nil)
	jobs.EXPECT().Fail(ctx, model.FailJobRequest{ID: "job-1", Reason: "execution timed out"}).Return(true, nil)

	ok, err := svc.Fail(ctx, "job-1", "execution timed out", JobFailureDetails{
		Cause:    &execution.ExecutionTimeoutError{JobID: "job-1", Timeout: time.Minute},
		Severity: notify.SeverityWarning,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, received, 1)
	p := received[0]
	assert.Equal(t, "job-1", p.JobID)
	assert.Equal(t, "jstu0001", p.Username)
	assert.Equal(t, int64(3), p.AssessmentID)
	assert.Equal(t, "execution_timeout", p.ErrorClass)
	assert.Equal(t, "/srv/sub", p.Metadata["submission"])

	t.Run("requires a reason", func(t *testing.T) {
		_, err := svc.Fail(ctx, "job-1", "", JobFailureDetails{})
		require.Error(t, err)
	})

	t.Run("ignores jobs that are not running", func(t *testing.T) {
		jobs.EXPECT().GetByID(ctx, "job-2").Return(nil, model.ErrJobNotFound)
		jobs.EXPECT().Fail(ctx, gomock.Any()).Return(false, nil)

		ok, err := svc.Fail(ctx, "job-2", "boom", JobFailureDetails{})
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Len(t, received, 1)
	})
}

func TestSchedulerService_Withdraw(t *testing.T) {
	ctx := context.Background()
	svc, h := newSchedulerHarness(t)
	key := model.JobKey{UserID: 7, AssessmentID: 3, RunAt: schedulerTestNow}

	h.jobs.EXPECT().Withdraw(ctx, key).Return(true, nil)
	ok, err := svc.Withdraw(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	h.jobs.EXPECT().Withdraw(ctx, key).Return(false, nil)
	ok, err = svc.Withdraw(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "running jobs cannot be withdrawn")
}

func TestSchedulerService_Release(t *testing.T) {
	ctx := context.Background()
	svc, h := newSchedulerHarness(t)

	h.jobs.EXPECT().Release(ctx, model.ReleaseJobRequest{ID: "job-1", Reason: "shutdown"}).Return(true, nil)
	h.signal.EXPECT().PublishJobAvailable(ctx, "job-1").Return(nil)
	ok, err := svc.Release(ctx, "job-1", "shutdown")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, h.metrics.Find("job.transition", map[string]string{"transition": metrics.TransitionRelease}))

	h.jobs.EXPECT().Release(ctx, gomock.Any()).Return(false, nil)
	ok, err = svc.Release(ctx, "job-1", "shutdown")
	require.NoError(t, err)
	assert.False(t, ok)

	h.jobs.EXPECT().Release(ctx, gomock.Any()).Return(false, errors.New("connection reset"))
	_, err = svc.Release(ctx, "job-1", "shutdown")
	require.Error(t, err)
}

func TestSchedulerService_ListFailed_NormalizesPagination(t *testing.T) {
	ctx := context.Background()
	svc, h := newSchedulerHarness(t)

	h.jobs.EXPECT().List(ctx, core.ListJobsParams{Status: model.JobStatusFailed, Limit: 50, Offset: 0}).Return(nil, nil)
	_, err := svc.ListFailed(ctx, 0, -5)
	require.NoError(t, err)

	h.jobs.EXPECT().List(ctx, core.ListJobsParams{Status: model.JobStatusFailed, Limit: 1000, Offset: 20}).Return(nil, nil)
	_, err = svc.ListFailed(ctx, 5000, 20)
	require.NoError(t, err)
}

func TestSchedulerService_Stats_EmitsQueueDepth(t *testing.T) {
	ctx := context.Background()
	svc, h := newSchedulerHarness(t)
	h.jobs.EXPECT().Stats(ctx).Return(&model.JobStats{Queued: 4, Running: 2}, nil)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Queued)

	queued := h.metrics.Find("job.queue_depth", map[string]string{"status": "queued"})
	require.Len(t, queued, 1)
	assert.InDelta(t, 4.0, queued[0].Value, 0)
}

func TestSchedulerService_StopAllListeners(t *testing.T) {
	svc, h := newSchedulerHarness(t)
	svc.StopAllListeners()
	assert.True(t, h.notifier.stopped)
}

func TestSchedulerService_RerunAssessment(t *testing.T) {
	ctx := context.Background()
	runAt := time.Date(2024, 3, 12, 8, 0, 0, 0, time.UTC)

	t.Run("enqueues the latest submission of every submitter", func(t *testing.T) {
		svc, h := newSchedulerHarness(t)
		submitted := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

		h.assessments.EXPECT().Exists(ctx, int64(3)).Return(true, nil)
		h.cache.EXPECT().SetIfNotExists(ctx, "rerun:3", gomock.Any(), 10*time.Minute).Return(true, nil)
		h.results.EXPECT().SubmitterIDs(ctx, int64(3)).Return([]int64{7, 8, 9}, nil)

		for _, id := range []int64{7, 8, 9} {
			h.results.EXPECT().Latest(ctx, model.ResultQuery{UserID: id, AssessmentID: 3}).
				Return(&model.Result{UserID: id, AssessmentID: 3, SubmissionDate: submitted}, nil)
		}
		h.users.EXPECT().GetByID(ctx, int64(7)).Return(&model.User{ID: 7, Username: "a"}, nil)
		h.users.EXPECT().GetByID(ctx, int64(8)).Return(&model.User{ID: 8, Username: "b"}, nil)
		h.users.EXPECT().GetByID(ctx, int64(9)).
			Return(&model.User{ID: 9, Username: model.CompetitionRunnerUsername}, nil)

		h.jobs.EXPECT().Enqueue(ctx, gomock.Any()).DoAndReturn(
			func(_ context.Context, r *model.EnqueueRequest) (*model.AssessmentJob, error) {
				assert.Equal(t, runAt, r.RunAt)
				assert.Equal(t, "/srv/pasta/submissions/a/assessments/3/2024-03-01T12-00-00/submission", r.SubmissionRef)
				return &model.AssessmentJob{ID: "job-a"}, nil
			})
		h.jobs.EXPECT().Enqueue(ctx, gomock.Any()).
			Return(nil, &model.DuplicateJobError{Key: model.JobKey{UserID: 8, AssessmentID: 3, RunAt: runAt}})
		h.signal.EXPECT().PublishJobAvailable(ctx, "job-a").Return(nil)

		summary, err := svc.RerunAssessment(ctx, 3, runAt)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Enqueued)
		assert.Equal(t, 1, summary.Duplicates)
		assert.Equal(t, 1, summary.Skipped)
	})

	t.Run("refuses while another rerun holds the guard", func(t *testing.T) {
		svc, h := newSchedulerHarness(t)
		h.assessments.EXPECT().Exists(ctx, int64(3)).Return(true, nil)
		h.cache.EXPECT().SetIfNotExists(ctx, "rerun:3", gomock.Any(), gomock.Any()).Return(false, nil)

		_, err := svc.RerunAssessment(ctx, 3, runAt)
		require.ErrorIs(t, err, ErrRerunInProgress)
	})

	t.Run("unknown assessment", func(t *testing.T) {
		svc, h := newSchedulerHarness(t)
		h.assessments.EXPECT().Exists(ctx, int64(404)).Return(false, nil)

		_, err := svc.RerunAssessment(ctx, 404, runAt)
		require.ErrorIs(t, err, model.ErrAssessmentNotFound)
	})
}
