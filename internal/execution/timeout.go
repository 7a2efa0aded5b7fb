package execution

import (
	"context"
	"errors"
	"time"
)

// DefaultTimeout applies when neither the request nor the executor configures a limit.
const DefaultTimeout = 5 * time.Minute

// TimeoutExecutor enforces a wall-clock limit around another Executor. The limit is
// req.Timeout when positive, otherwise Default.
//
// The wrapped executor receives a context that is cancelled at the deadline. Execute returns
// at the deadline even if the wrapped executor ignores cancellation.
type TimeoutExecutor struct {
	Inner   Executor
	Default time.Duration
}

// NewTimeoutExecutor wraps inner with a default limit.
func NewTimeoutExecutor(inner Executor, def time.Duration) *TimeoutExecutor {
	if def <= 0 {
		def = DefaultTimeout
	}
	return &TimeoutExecutor{Inner: inner, Default: def}
}

type executeResult struct {
	outcome *RawOutcome
	err     error
}

// Execute runs the wrapped executor under the resolved limit.
func (t *TimeoutExecutor) Execute(ctx context.Context, req Request) (*RawOutcome, error) {
	limit := t.limit(req)
	runCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	done := make(chan executeResult, 1)
	go func() {
		out, err := t.Inner.Execute(runCtx, req)
		done <- executeResult{outcome: out, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &ExecutionTimeoutError{JobID: req.JobID, Timeout: limit}
		}
		return res.outcome, res.err
	case <-runCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ExecutionTimeoutError{JobID: req.JobID, Timeout: limit}
	}
}

func (t *TimeoutExecutor) limit(req Request) time.Duration {
	if req.Timeout > 0 {
		return req.Timeout
	}
	if t.Default > 0 {
		return t.Default
	}
	return DefaultTimeout
}
