package model

import (
	"errors"
	"fmt"
)

// ErrJobNotFound is returned when no job matches the given id or key.
var ErrJobNotFound = errors.New("assessment job not found")

// ErrAssessmentNotFound is returned when an assessment does not exist.
var ErrAssessmentNotFound = errors.New("assessment not found")

// ErrResultNotFound is returned when a result does not exist.
var ErrResultNotFound = errors.New("result not found")

// ErrSummaryNotFound is returned when an owner has no completed result on an assessment.
var ErrSummaryNotFound = errors.New("result summary not found")

// ErrUserNotFound is returned when a user does not exist.
var ErrUserNotFound = errors.New("user not found")

// ErrJobNotRunning is returned when a transition requires the job to hold its running lock.
var ErrJobNotRunning = errors.New("assessment job is not running")

// DuplicateJobError reports an enqueue that collides with an existing (user, assessment, run time) key.
type DuplicateJobError struct {
	Key   JobKey
	Cause error
}

func (e *DuplicateJobError) Error() string {
	return fmt.Sprintf("duplicate assessment job for user %d assessment %d at %s",
		e.Key.UserID, e.Key.AssessmentID, e.Key.RunAt.UTC().Format("2006-01-02T15:04:05Z"))
}

func (e *DuplicateJobError) Unwrap() error { return e.Cause }

// IsDuplicateJob reports whether err is or wraps a DuplicateJobError.
func IsDuplicateJob(err error) bool {
	var dup *DuplicateJobError
	return errors.As(err, &dup)
}

// ReconciliationPersistenceError reports that a result could not be stored after a
// successful execution. The job's running lock has already been released and the job
// is queued again when Released is true.
type ReconciliationPersistenceError struct {
	JobID    string
	Released bool
	Cause    error
}

func (e *ReconciliationPersistenceError) Error() string {
	state := "lock released, job requeued"
	if !e.Released {
		state = "lock release pending reaper"
	}
	return fmt.Sprintf("persist result for job %s (%s): %v", e.JobID, state, e.Cause)
}

func (e *ReconciliationPersistenceError) Unwrap() error { return e.Cause }

// IsReconciliationPersistence reports whether err is or wraps a ReconciliationPersistenceError.
func IsReconciliationPersistence(err error) bool {
	var rp *ReconciliationPersistenceError
	return errors.As(err, &rp)
}
