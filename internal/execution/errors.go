package execution

import (
	"errors"
	"fmt"
	"time"
)

// ExecutionTimeoutError reports that the runner did not finish within its wall-clock limit.
// The job fails without a result.
type ExecutionTimeoutError struct {
	JobID   string
	Timeout time.Duration
}

func (e *ExecutionTimeoutError) Error() string {
	return fmt.Sprintf("execution of job %s exceeded %s", e.JobID, e.Timeout)
}

// ExecutionFailure reports a routine execution failure such as a compile error or a runner
// crash. The job still completes, with a result flagged as an error.
type ExecutionFailure struct {
	Reason string
	// CompileError is set when the submission did not compile, as opposed to a runner crash.
	CompileError bool
	// Output is the diagnostic text shown to the student, usually compiler output.
	Output string
	Cause  error
}

func (e *ExecutionFailure) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("execution failed: %s: %v", e.Reason, e.Cause)
	}
	return "execution failed: " + e.Reason
}

func (e *ExecutionFailure) Unwrap() error { return e.Cause }

// IsTimeout reports whether err is or wraps an ExecutionTimeoutError.
func IsTimeout(err error) bool {
	var te *ExecutionTimeoutError
	return errors.As(err, &te)
}

// AsFailure returns the ExecutionFailure in err's chain, if any.
func AsFailure(err error) (*ExecutionFailure, bool) {
	var f *ExecutionFailure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
