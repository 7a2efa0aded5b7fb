package errors

import (
	"context"
	goerrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jjstretton/pasta/internal/domain/model"
	apperrors "github.com/jjstretton/pasta/internal/errors"
	"github.com/jjstretton/pasta/internal/execution"
)

type customErr struct{}

func (customErr) Error() string { return "custom" }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"timeout", fmt.Errorf("run: %w", &execution.ExecutionTimeoutError{JobID: "j", Timeout: time.Second}), ClassTimeout},
		{"compile error", &execution.ExecutionFailure{Reason: "compile", CompileError: true}, ClassCompileError},
		{"runner crash", &execution.ExecutionFailure{Reason: "exit status 2"}, ClassRunnerCrash},
		{"duplicate", &model.DuplicateJobError{}, ClassDuplicateJob},
		{"persistence", &model.ReconciliationPersistenceError{JobID: "j", Cause: goerrors.New("conn reset")}, ClassPersistence},
		{"not running", fmt.Errorf("complete: %w", model.ErrJobNotRunning), ClassJobNotRunning},
		{"canceled", context.Canceled, ClassContextCanceled},
		{"app error", apperrors.NotFoundf("result 3"), "app_not_found"},
		{"fallback type name", fmt.Errorf("wrap: %w", customErr{}), "errors_customerr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
