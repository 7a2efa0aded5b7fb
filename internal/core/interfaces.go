// Package core declares the ports between the PASTA services and their persistence adapters.
package core

import (
	"context"
	"time"

	"github.com/jjstretton/pasta/internal/domain/model"
	"github.com/jjstretton/pasta/internal/domain/reconcile"
)

// Service implementations depend on these interfaces; the data package provides
// the Postgres and Redis implementations.

// AssessmentJobRepository persists the assessment job queue.
type AssessmentJobRepository interface {
	Enqueue(ctx context.Context, req *model.EnqueueRequest) (*model.AssessmentJob, error)
	// AdmitNext marks the earliest eligible queued job running and returns it, or
	// model.ErrNoJobsAvailable.
	AdmitNext(ctx context.Context, leaseSeconds int) (*model.AssessmentJob, error)
	WaitForJob(ctx context.Context) error
	Heartbeat(ctx context.Context, jobID string, leaseSeconds int) (bool, error)
	// Complete stores the result and marks the job completed in one transaction.
	Complete(ctx context.Context, params CompleteJobParams) (*model.Result, error)
	// Release returns a running job to the queue, clearing its running lock.
	Release(ctx context.Context, req model.ReleaseJobRequest) (bool, error)
	Fail(ctx context.Context, req model.FailJobRequest) (bool, error)
	// Withdraw deletes a queued job by its key. Running jobs are left alone.
	Withdraw(ctx context.Context, key model.JobKey) (bool, error)
	GetByID(ctx context.Context, id string) (*model.AssessmentJob, error)
	Stats(ctx context.Context) (*model.JobStats, error)
	List(ctx context.Context, params ListJobsParams) ([]*model.AssessmentJob, error)
}

// CompleteJobParams groups the inputs of AssessmentJobRepository.Complete.
type CompleteJobParams struct {
	JobID  string
	Result *model.Result
	// Percentage is the realised score of Result, stored in the owner's summary.
	Percentage float64
}

// ListJobsParams filters job listings.
type ListJobsParams struct {
	Status       model.JobStatus
	AssessmentID int64
	Limit        int
	Offset       int
}

// ResultRepository is the result store.
type ResultRepository interface {
	// Create persists a result with its unit test and hand-marking rows, assigning ids.
	Create(ctx context.Context, result *model.Result) error
	// Save rewrites an already persisted result and its child rows.
	Save(ctx context.Context, result *model.Result) error
	// CreateHandMarking persists one hand-marking entry, assigning its id.
	CreateHandMarking(ctx context.Context, entry *model.HandMarkingResult) error
	UpdateHandMarking(ctx context.Context, entry *model.HandMarkingResult) error
	// ApplyReconciliation persists created entries, deletes dropped ones and touches the
	// result in one transaction.
	ApplyReconciliation(ctx context.Context, result *model.Result, change reconcile.Change) error

	GetByID(ctx context.Context, id int64) (*model.Result, error)
	Latest(ctx context.Context, q model.ResultQuery) (*model.Result, error)
	// AtDate returns the result matching q submitted at exactly submissionDate.
	AtDate(ctx context.Context, q model.ResultQuery, submissionDate time.Time) (*model.Result, error)
	List(ctx context.Context, q model.ResultQuery) ([]*model.Result, error)
	SubmissionDates(ctx context.Context, q model.ResultQuery) ([]time.Time, error)
	SubmissionCount(ctx context.Context, params SubmissionCountParams) (int, error)
	ListForUsers(ctx context.Context, params ListForUsersParams) ([]*model.Result, error)
	LatestForUsers(ctx context.Context, userIDs []int64) ([]*model.Result, error)
	ListForAssessment(ctx context.Context, assessmentID int64) ([]*model.Result, error)
	ListForUser(ctx context.Context, userID int64) ([]*model.Result, error)
	ListWaiting(ctx context.Context) ([]*model.Result, error)
	// SubmitterIDs returns the owners with at least one result on the assessment.
	SubmitterIDs(ctx context.Context, assessmentID int64) ([]int64, error)

	Summary(ctx context.Context, userID, assessmentID int64) (*model.ResultSummary, error)
	SummariesForUsers(ctx context.Context, userIDs []int64) ([]*model.ResultSummary, error)
	SummariesForUser(ctx context.Context, userID int64) ([]*model.ResultSummary, error)
	SummariesForAssessment(ctx context.Context, assessmentID int64) ([]*model.ResultSummary, error)
}

// SubmissionCountParams groups the inputs of ResultRepository.SubmissionCount.
type SubmissionCountParams struct {
	Query                model.ResultQuery
	IncludeCompileErrors bool
}

// ListForUsersParams groups the inputs of ResultRepository.ListForUsers.
type ListForUsersParams struct {
	UserIDs      []int64
	AssessmentID int64
	Order        model.ResultOrder
}

// AssessmentRepository provides read access to assessment definitions. Reads are never cached.
type AssessmentRepository interface {
	GetDefinition(ctx context.Context, assessmentID int64) (*model.AssessmentDefinition, error)
	GetWeightedHandMarking(ctx context.Context, assessmentID int64) ([]model.WeightedHandMarking, error)
	Exists(ctx context.Context, assessmentID int64) (bool, error)
	GroupsForMember(ctx context.Context, userID, assessmentID int64) ([]int64, error)
}

// UserRepository resolves user identities.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	Ensure(ctx context.Context, username string, group bool) (*model.User, error)
}

// DeleteFinishedJobsParams groups parameters for DeleteFinishedJobs.
type DeleteFinishedJobsParams struct {
	Status    model.JobStatus
	MaxAge    time.Duration
	BatchSize int
}

// ReaperRepository defines queue maintenance operations.
type ReaperRepository interface {
	// RequeueExpired returns running jobs with an expired lease to the queue so their
	// target is no longer locked by a dead worker.
	RequeueExpired(ctx context.Context, batchSize int) (int64, error)
	// DeleteFinishedJobs deletes completed or failed jobs older than MaxAge, up to BatchSize rows.
	DeleteFinishedJobs(ctx context.Context, params DeleteFinishedJobsParams) (int64, error)
}

// CacheRepository is the subset of a key/value store used for short-lived guards.
type CacheRepository interface {
	// SetIfNotExists atomically sets key only if absent and reports whether it was set.
	SetIfNotExists(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) (bool, error)
	Health(ctx context.Context) error
}

// JobSignalPublisher announces that a job became available.
type JobSignalPublisher interface {
	PublishJobAvailable(ctx context.Context, jobID string) error
}
