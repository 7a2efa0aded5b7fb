// Package model defines the core data types shared by the PASTA scheduler, the result store and the reconciler.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobStatus represents the current status of an assessment job.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobStatus string

const (
	// JobStatusQueued indicates a job is waiting to be admitted.
	JobStatusQueued JobStatus = "queued"
	// JobStatusRunning indicates a job holds the running lock for its target.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates a job produced a persisted result.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates a job was resolved without a result.
	JobStatusFailed JobStatus = "failed"
)

// CompetitionRunnerUsername is the reserved user that owns competition jobs.
// Competition runs for an assessment are serialised like any other target.
const CompetitionRunnerUsername = "PASTACompetitionRunner"

// ErrNoJobsAvailable is returned when no queued job is eligible for admission.
var ErrNoJobsAvailable = errors.New("no jobs available")

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	return s == JobStatusQueued || s == JobStatusRunning || s == JobStatusCompleted ||
		s == JobStatusFailed
}

// Terminal reports whether the status is a final state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// UnmarshalText implements encoding.TextUnmarshaler so statuses can be parsed from flags and env.
func (s *JobStatus) UnmarshalText(text []byte) error {
	v := JobStatus(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid JobStatus: %q", v)
	}
	*s = v
	return nil
}

// Target identifies the (user, assessment) pair whose executions are serialised.
type Target struct {
	UserID       int64 `json:"user_id"`
	AssessmentID int64 `json:"assessment_id"`
}

func (t Target) String() string {
	return fmt.Sprintf("%d/%d", t.UserID, t.AssessmentID)
}

// JobKey is the natural key of a job. No two jobs share a key.
type JobKey struct {
	UserID       int64     `json:"user_id"`
	AssessmentID int64     `json:"assessment_id"`
	RunAt        time.Time `json:"run_at"`
}

// AssessmentJob is a durable request to execute one submission for one user against one assessment.
type AssessmentJob struct {
	ID             string     `json:"id"                         db:"id"`
	UserID         int64      `json:"user_id"                    db:"user_id"`
	Username       string     `json:"username"                   db:"username"`
	AssessmentID   int64      `json:"assessment_id"              db:"assessment_id"`
	RunAt          time.Time  `json:"run_at"                     db:"run_at"`
	Status         JobStatus  `json:"status"                     db:"status"`
	SubmissionRef  string     `json:"submission_ref"             db:"submission_ref"`
	ResultID       *int64     `json:"result_id,omitempty"        db:"result_id"`
	Attempts       int        `json:"attempts"                   db:"attempts"`
	LastError      *string    `json:"last_error,omitempty"       db:"last_error"`
	LeaseExpiresAt *time.Time `json:"lease_expires_at,omitempty" db:"lease_expires_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"       db:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"     db:"completed_at"`
	CreatedAt      time.Time  `json:"created_at"                 db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"                 db:"updated_at"`
}

// Target returns the serialisation target for the job.
func (j *AssessmentJob) Target() Target {
	return Target{UserID: j.UserID, AssessmentID: j.AssessmentID}
}

// Key returns the natural key of the job.
func (j *AssessmentJob) Key() JobKey {
	return JobKey{UserID: j.UserID, AssessmentID: j.AssessmentID, RunAt: j.RunAt}
}

// EnqueueRequest represents a request to queue an assessment execution.
type EnqueueRequest struct {
	UserID        int64     `json:"user_id"`
	AssessmentID  int64     `json:"assessment_id"`
	SubmissionRef string    `json:"submission_ref"`
	RunAt         time.Time `json:"run_at"`
	// CreateWaitingResult creates a placeholder result flagged as waiting to run
	// and links it to the job, so the submission is visible before it executes.
	CreateWaitingResult bool `json:"create_waiting_result,omitempty"`
}

// Validate checks the request for required fields.
func (r *EnqueueRequest) Validate() error {
	if r.UserID <= 0 {
		return errors.New("user_id is required")
	}
	if r.AssessmentID <= 0 {
		return errors.New("assessment_id is required")
	}
	if r.RunAt.IsZero() {
		return errors.New("run_at is required")
	}
	return nil
}

// JobStats summarises the queue by status.
type JobStats struct {
	Queued    int64 `json:"queued"`
	Running   int64 `json:"running"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// FailJobRequest carries the operator-facing failure reason for a running job.
type FailJobRequest struct {
	ID     string
	Reason string
}

// ReleaseJobRequest returns a running job to the queue after a completion failure.
type ReleaseJobRequest struct {
	ID     string
	Reason string
}
