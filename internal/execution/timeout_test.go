package execution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeoutExecutor_Execute(t *testing.T) {
	outcome := &RawOutcome{Compiled: true}

	tests := []struct {
		name      string
		def       time.Duration
		req       Request
		inner     ExecutorFunc
		wantOut   *RawOutcome
		wantTO    bool
		wantLimit time.Duration
		wantErr   error
	}{
		{
			name:    "returns outcome within limit",
			def:     time.Second,
			inner:   func(context.Context, Request) (*RawOutcome, error) { return outcome, nil },
			wantOut: outcome,
		},
		{
			name: "reports timeout when runner honours cancellation",
			def:  20 * time.Millisecond,
			req:  Request{JobID: "job-1"},
			inner: func(ctx context.Context, _ Request) (*RawOutcome, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
			wantTO:    true,
			wantLimit: 20 * time.Millisecond,
		},
		{
			name: "request timeout overrides default",
			def:  time.Hour,
			req:  Request{JobID: "job-2", Timeout: 20 * time.Millisecond},
			inner: func(ctx context.Context, _ Request) (*RawOutcome, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
			wantTO:    true,
			wantLimit: 20 * time.Millisecond,
		},
		{
			name: "returns at the deadline even if the runner ignores it",
			def:  20 * time.Millisecond,
			inner: func(context.Context, Request) (*RawOutcome, error) {
				time.Sleep(500 * time.Millisecond)
				return outcome, nil
			},
			wantTO:    true,
			wantLimit: 20 * time.Millisecond,
		},
		{
			name: "passes through execution failures",
			def:  time.Second,
			inner: func(context.Context, Request) (*RawOutcome, error) {
				return nil, &ExecutionFailure{Reason: "crash"}
			},
			wantErr: &ExecutionFailure{Reason: "crash"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := NewTimeoutExecutor(tt.inner, tt.def)
			start := time.Now()
			got, err := exec.Execute(context.Background(), tt.req)

			switch {
			case tt.wantTO:
				require.Error(t, err)
				assert.True(t, IsTimeout(err))
				var te *ExecutionTimeoutError
				require.ErrorAs(t, err, &te)
				assert.Equal(t, tt.wantLimit, te.Timeout)
				assert.Less(t, time.Since(start), 400*time.Millisecond)
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
				_, ok := AsFailure(err)
				assert.True(t, ok)
			default:
				require.NoError(t, err)
				assert.Same(t, tt.wantOut, got)
			}
		})
	}
}

func TestTimeoutExecutor_ParentCancellationIsNotATimeout(t *testing.T) {
	exec := NewTimeoutExecutor(ExecutorFunc(func(ctx context.Context, _ Request) (*RawOutcome, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	_, err := exec.Execute(ctx, Request{})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsTimeout(err))
}

func TestNewTimeoutExecutor_DefaultsLimit(t *testing.T) {
	exec := NewTimeoutExecutor(ExecutorFunc(nil), 0)
	assert.Equal(t, DefaultTimeout, exec.Default)
	assert.Equal(t, DefaultTimeout, exec.limit(Request{}))
	assert.Equal(t, time.Minute, exec.limit(Request{Timeout: time.Minute}))
}

func TestAsFailure_Wrapped(t *testing.T) {
	failure := &ExecutionFailure{Reason: "compile error", CompileError: true}
	wrapped := errors.Join(errors.New("context"), failure)

	got, ok := AsFailure(wrapped)
	require.True(t, ok)
	assert.Same(t, failure, got)

	_, ok = AsFailure(errors.New("plain"))
	assert.False(t, ok)
}
