// Package errors maps errors to short class names for metric tags and operator notifications.
package errors

import (
	"context"
	goerrors "errors"
	"reflect"
	"strings"

	"github.com/jjstretton/pasta/internal/domain/model"
	apperrors "github.com/jjstretton/pasta/internal/errors"
	"github.com/jjstretton/pasta/internal/execution"
)

// Class names for the errors the scheduler reasons about.
const (
	ClassTimeout          = "execution_timeout"
	ClassCompileError     = "compile_error"
	ClassRunnerCrash      = "runner_crash"
	ClassDuplicateJob     = "duplicate_job"
	ClassPersistence      = "result_persistence"
	ClassJobNotRunning    = "job_not_running"
	ClassContextCanceled  = "canceled"
	ClassDeadlineExceeded = "deadline_exceeded"
)

// Classify returns a stable class name for err. Known scheduler errors map to fixed
// names; anything else falls back to the innermost concrete type in snake_case.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if class := known(err); class != "" {
		return class
	}
	return typeName(err)
}

func known(err error) string {
	var (
		timeout *execution.ExecutionTimeoutError
		failure *execution.ExecutionFailure
		dup     *model.DuplicateJobError
		persist *model.ReconciliationPersistenceError
	)
	switch {
	case goerrors.As(err, &timeout):
		return ClassTimeout
	case goerrors.As(err, &failure):
		if failure.CompileError {
			return ClassCompileError
		}
		return ClassRunnerCrash
	case goerrors.As(err, &dup):
		return ClassDuplicateJob
	case goerrors.As(err, &persist):
		return ClassPersistence
	case goerrors.Is(err, model.ErrJobNotRunning):
		return ClassJobNotRunning
	case goerrors.Is(err, context.Canceled):
		return ClassContextCanceled
	case goerrors.Is(err, context.DeadlineExceeded):
		return ClassDeadlineExceeded
	}

	var appErr *apperrors.AppError
	if goerrors.As(err, &appErr) {
		return "app_" + string(appErr.Code)
	}
	return ""
}

func typeName(err error) string {
	for {
		inner := goerrors.Unwrap(err)
		if inner == nil {
			break
		}
		err = inner
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}
	name := strings.ReplaceAll(strings.ToLower(t.String()), ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
