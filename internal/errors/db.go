package errors

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// reKeyField extracts the column list from "Key (a, b)=(x, y) already exists.".
	reKeyField = regexp.MustCompile(`Key \(([^)]+)\)=`)
	// reReferencedFrom detects parent deletion: "... is still referenced from table ...".
	reReferencedFrom = regexp.MustCompile(`is still referenced from table "?([^"]+)"?`)
	// reNotPresent detects missing parent: "... is not present in table ...".
	reNotPresent = regexp.MustCompile(`is not present in table "?([^"]+)"?`)
)

// MapDBError maps driver and context errors onto AppError codes:
// context deadline/cancel → timeout/canceled, pgx.ErrNoRows → not_found, and
// unique, foreign key, check and not-null violations → conflict, foreign_key and validation.
// Unrecognised errors are returned unchanged.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &AppError{Code: ErrCodeTimeout, Message: "database operation timed out", Cause: err}
	case errors.Is(err, context.Canceled):
		return &AppError{Code: ErrCodeCanceled, Message: "database operation canceled", Cause: err}
	case errors.Is(err, pgx.ErrNoRows):
		return &AppError{Code: ErrCodeNotFound, Message: "record not found", Cause: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgError(pgErr)
	}
	return err
}

func mapPgError(pgErr *pgconn.PgError) error {
	appErr := &AppError{Cause: pgErr, Constraint: pgErr.ConstraintName}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		appErr.Code = ErrCodeConflict
		appErr.Field = uniqueField(pgErr)
		appErr.Message = "record already exists"
		if table := pgErr.TableName; table != "" {
			appErr.Message = mapTableToDomain(table) + " already exists"
		}
	case pgerrcode.ForeignKeyViolation:
		appErr.Code = ErrCodeForeignKey
		appErr.Message = foreignKeyMessage(pgErr)
	case pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
		appErr.Code = ErrCodeValidation
		appErr.Field = pgErr.ColumnName
		appErr.Message = "invalid value"
		if pgErr.ColumnName != "" {
			appErr.Message = "invalid value for " + pgErr.ColumnName
		}
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected, pgerrcode.LockNotAvailable:
		appErr.Code = ErrCodeConflict
		appErr.Message = "concurrent update, retry"
	default:
		appErr.Code = ErrCodeInternal
		appErr.Message = "database error"
	}
	return appErr
}

// uniqueField prefers the column metadata, then the Detail key list.
func uniqueField(pgErr *pgconn.PgError) string {
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	if m := reKeyField.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
		return m[1]
	}
	return ""
}

func foreignKeyMessage(pgErr *pgconn.PgError) string {
	if m := reReferencedFrom.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
		return "cannot delete: still referenced by " + mapTableToDomain(m[1])
	}
	if m := reNotPresent.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
		return "referenced " + mapTableToDomain(m[1]) + " does not exist"
	}
	if pgErr.TableName != "" {
		return "referenced record missing for " + mapTableToDomain(pgErr.TableName)
	}
	return "referenced record missing"
}

var tableDomains = map[string]string{
	"users":                       "user",
	"assessments":                 "assessment",
	"weighted_unit_tests":         "weighted unit test",
	"weighted_hand_markings":      "weighted hand marking",
	"weighted_competitions":       "weighted competition",
	"assessment_jobs":             "assessment job",
	"assessment_results":          "assessment result",
	"unit_test_results":           "unit test result",
	"unit_test_case_results":      "unit test case result",
	"hand_marking_results":        "hand marking result",
	"assessment_result_summaries": "assessment result summary",
}

// mapTableToDomain maps table names to the names used in messages.
func mapTableToDomain(tableName string) string {
	tableName = strings.ToLower(strings.TrimSpace(tableName))
	if name, ok := tableDomains[tableName]; ok {
		return name
	}
	return strings.ReplaceAll(tableName, "_", " ")
}
