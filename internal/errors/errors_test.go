package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{name: "message only", err: &AppError{Code: ErrCodeNotFound, Message: "job not found"}, want: "job not found"},
		{name: "with cause", err: &AppError{Code: ErrCodeInternal, Message: "persist", Cause: errors.New("boom")}, want: "persist: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		wantCode ErrorCode
		wantMsg  string
	}{
		{name: "not found", err: NotFoundf("job %s", "abc"), wantCode: ErrCodeNotFound, wantMsg: "job abc"},
		{name: "conflict", err: Conflictf("target %d busy", 7), wantCode: ErrCodeConflict, wantMsg: "target 7 busy"},
		{name: "validation", err: Validationf("bad %s", "input"), wantCode: ErrCodeValidation, wantMsg: "bad input"},
		{name: "validation field", err: ValidationField("user_id", "required"), wantCode: ErrCodeValidation, wantMsg: "required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.wantCode)
			}
			if tt.err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", tt.err.Message, tt.wantMsg)
			}
		})
	}
	if got := GetField(ValidationField("user_id", "required")); got != "user_id" {
		t.Errorf("GetField() = %q", got)
	}
}

func TestWrapf(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrapf(cause, ErrCodeInternal, "persist result %d", 12)
	if !errors.Is(err, cause) {
		t.Errorf("Wrapf should preserve the cause")
	}
	if err.Message != "persist result 12" {
		t.Errorf("Message = %q", err.Message)
	}
	if Wrapf(nil, ErrCodeInternal, "x") != nil {
		t.Errorf("Wrapf(nil) should be nil")
	}
}

func TestIsHelpersThroughWrapping(t *testing.T) {
	base := &AppError{Code: ErrCodeTimeout, Message: "slow"}
	wrapped := fmt.Errorf("outer: %w", base)

	checks := map[string]bool{
		"timeout":    IsTimeout(wrapped),
		"!canceled":  !IsCanceled(wrapped),
		"!notfound":  !IsNotFound(wrapped),
		"!conflict":  !IsConflict(wrapped),
		"!internal":  !IsInternal(wrapped),
		"!fk":        !IsForeignKey(wrapped),
		"!validate":  !IsValidation(wrapped),
		"plain nil":  GetCode(errors.New("x")) == "",
		"constraint": GetConstraint(errors.New("x")) == "",
	}
	for name, ok := range checks {
		if !ok {
			t.Errorf("check %s failed", name)
		}
	}
}
