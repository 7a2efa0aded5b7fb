// Package execution runs a submission against an assessment's unit tests and reports the raw
// case outcomes. Compilation and sandboxing belong to the external runner; this package only
// defines the contract, enforces the wall-clock timeout and adapts a runner command.
package execution

import (
	"context"
	"time"

	"github.com/jjstretton/pasta/internal/domain/model"
)

// Request identifies one submission to execute.
type Request struct {
	JobID          string    `json:"job_id"`
	UserID         int64     `json:"user_id"`
	Username       string    `json:"username"`
	AssessmentID   int64     `json:"assessment_id"`
	SubmissionRoot string    `json:"submission_root"`
	RunAt          time.Time `json:"run_at"`
	// Timeout overrides the executor's default wall-clock limit when positive.
	Timeout time.Duration `json:"-"`
}

// RawOutcome is what the runner reports for one execution.
type RawOutcome struct {
	Compiled      bool              `json:"compiled"`
	CompileErrors string            `json:"compile_errors,omitempty"`
	UnitTests     []UnitTestOutcome `json:"unit_tests"`
}

// UnitTestOutcome holds the cases run for one weighted unit test.
type UnitTestOutcome struct {
	WeightedUnitTestID int64         `json:"weighted_unit_test_id"`
	Compiled           bool          `json:"compiled"`
	CompileErrors      string        `json:"compile_errors,omitempty"`
	RuntimeErrors      string        `json:"runtime_errors,omitempty"`
	Cases              []CaseOutcome `json:"cases"`
}

// CaseOutcome is a single executed test case.
type CaseOutcome struct {
	Name            string            `json:"name"`
	Outcome         model.CaseOutcome `json:"outcome"`
	Message         string            `json:"message,omitempty"`
	Type            string            `json:"type,omitempty"`
	ExtendedMessage string            `json:"extended_message,omitempty"`
	Seconds         float64           `json:"seconds"`
}

// Executor runs one submission. Implementations return *ExecutionFailure when the submission
// could not be run to completion (compile error, runner crash) and *ExecutionTimeoutError
// when the wall-clock limit was exceeded.
type Executor interface {
	Execute(ctx context.Context, req Request) (*RawOutcome, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, req Request) (*RawOutcome, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, req Request) (*RawOutcome, error) {
	return f(ctx, req)
}
