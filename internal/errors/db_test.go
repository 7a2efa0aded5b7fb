package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapDBError_NilError(t *testing.T) {
	if err := MapDBError(nil); err != nil {
		t.Errorf("MapDBError(nil) = %v, want nil", err)
	}
}

func TestMapDBError_Codes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode ErrorCode
	}{
		{name: "deadline exceeded", err: context.DeadlineExceeded, wantCode: ErrCodeTimeout},
		{name: "wrapped deadline", err: fmt.Errorf("query: %w", context.DeadlineExceeded), wantCode: ErrCodeTimeout},
		{name: "canceled", err: context.Canceled, wantCode: ErrCodeCanceled},
		{name: "no rows", err: pgx.ErrNoRows, wantCode: ErrCodeNotFound},
		{name: "unique", err: &pgconn.PgError{Code: pgerrcode.UniqueViolation}, wantCode: ErrCodeConflict},
		{name: "foreign key", err: &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}, wantCode: ErrCodeForeignKey},
		{name: "check", err: &pgconn.PgError{Code: pgerrcode.CheckViolation}, wantCode: ErrCodeValidation},
		{name: "not null", err: &pgconn.PgError{Code: pgerrcode.NotNullViolation}, wantCode: ErrCodeValidation},
		{name: "serialization", err: &pgconn.PgError{Code: pgerrcode.SerializationFailure}, wantCode: ErrCodeConflict},
		{name: "unknown pg code", err: &pgconn.PgError{Code: pgerrcode.DiskFull}, wantCode: ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(MapDBError(tt.err)); got != tt.wantCode {
				t.Errorf("MapDBError() code = %v, want %v", got, tt.wantCode)
			}
		})
	}
}

func TestMapDBError_StandardErrorPassesThrough(t *testing.T) {
	plain := errors.New("boom")
	if got := MapDBError(plain); got != plain {
		t.Errorf("MapDBError() = %v, want original error", got)
	}
}

func TestMapDBError_UniqueViolationDetails(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           pgerrcode.UniqueViolation,
		TableName:      "assessment_jobs",
		ConstraintName: "assessment_jobs_key",
		Detail:         "Key (user_id, assessment_id, run_at)=(42, 7, 2024-01-01 00:00:00+00) already exists.",
	}

	err := MapDBError(pgErr)

	if !IsConflict(err) {
		t.Fatalf("expected conflict, got %v", GetCode(err))
	}
	if got := GetConstraint(err); got != "assessment_jobs_key" {
		t.Errorf("GetConstraint() = %q", got)
	}
	if got := GetField(err); got != "user_id, assessment_id, run_at" {
		t.Errorf("GetField() = %q", got)
	}
	var target *pgconn.PgError
	if !errors.As(err, &target) {
		t.Errorf("mapped error should unwrap to the PgError")
	}
}

func TestMapDBError_ForeignKeyMessages(t *testing.T) {
	tests := []struct {
		name  string
		pgErr *pgconn.PgError
		want  string
	}{
		{
			name:  "parent still referenced",
			pgErr: &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, Detail: `Key (id)=(1) is still referenced from table "assessment_results".`},
			want:  "cannot delete: still referenced by assessment result",
		},
		{
			name:  "missing parent",
			pgErr: &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, Detail: `Key (assessment_id)=(9) is not present in table "assessments".`},
			want:  "referenced assessment does not exist",
		},
		{
			name:  "table fallback",
			pgErr: &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, TableName: "hand_marking_results"},
			want:  "referenced record missing for hand marking result",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var appErr *AppError
			if !errors.As(MapDBError(tt.pgErr), &appErr) {
				t.Fatal("expected AppError")
			}
			if appErr.Message != tt.want {
				t.Errorf("Message = %q, want %q", appErr.Message, tt.want)
			}
		})
	}
}

func TestMapTableToDomain(t *testing.T) {
	tests := map[string]string{
		"assessment_jobs":    "assessment job",
		" ASSESSMENTS ":      "assessment",
		"something_else_tbl": "something else tbl",
	}
	for in, want := range tests {
		if got := mapTableToDomain(in); got != want {
			t.Errorf("mapTableToDomain(%q) = %q, want %q", in, got, want)
		}
	}
}
