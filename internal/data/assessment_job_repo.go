package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/jjstretton/pasta/internal/core"
	"github.com/jjstretton/pasta/internal/data/pgxutil"
	"github.com/jjstretton/pasta/internal/domain/model"
	apperrors "github.com/jjstretton/pasta/internal/errors"
)

// JobAvailableChannel is the Postgres NOTIFY channel signalled whenever a job may have
// become admissible: on enqueue, and when a target's running lock is released.
const JobAvailableChannel = "assessment_job_available"

const (
	constraintJobKey     = "assessment_jobs_key"
	constraintOneRunning = "assessment_jobs_one_running"
)

// RepoConfig holds configuration options for the repositories.
type RepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// AssessmentJobRepo stores the assessment job queue in Postgres.
type AssessmentJobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewAssessmentJobRepo creates a new AssessmentJobRepo.
func NewAssessmentJobRepo(db *sql.DB, cfg RepoConfig) *AssessmentJobRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AssessmentJobRepo{
		DB:           db,
		timeProvider: tp,
		logger:       logger.With("component", "assessment_job_repo"),
	}
}

// jobColumns is the projection used by every job query. The table must be aliased j.
const jobColumns = `
  j.id::text,
  j.user_id,
  COALESCE((SELECT u.username FROM users u WHERE u.id = j.user_id), ''),
  j.assessment_id,
  j.run_at,
  j.status,
  j.submission_ref,
  j.result_id,
  j.attempts,
  j.last_error,
  j.lease_expires_at,
  j.started_at,
  j.completed_at,
  j.created_at,
  j.updated_at
`

// Enqueue persists a queued job. A job with the same (user, assessment, run time) key
// yields *model.DuplicateJobError.
func (r *AssessmentJobRepo) Enqueue(ctx context.Context, req *model.EnqueueRequest) (*model.AssessmentJob, error) {
	if req == nil {
		return nil, errors.New("enqueue request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validationf("invalid enqueue request: %v", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate job id: %w", err)
	}
	runAt := req.RunAt.UTC().Truncate(time.Microsecond)
	now := r.timeProvider.Now().UTC()

	var job *model.AssessmentJob
	txErr := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			var resultID *int64
			if req.CreateWaitingResult {
				var rid int64
				if err := tx.QueryRow(ctx, `
					INSERT INTO assessment_results (user_id, assessment_id, submission_date, submitted_by, waiting_to_run, created_at, updated_at)
					VALUES ($1, $2, $3, $1, TRUE, $4, $4)
					RETURNING id`,
					req.UserID, req.AssessmentID, runAt, now,
				).Scan(&rid); err != nil {
					return fmt.Errorf("create waiting result: %w", err)
				}
				resultID = &rid
			}

			rows, err := tx.Query(ctx, `
				INSERT INTO assessment_jobs AS j (id, user_id, assessment_id, run_at, status, submission_ref, result_id, created_at, updated_at)
				VALUES ($1, $2, $3, $4, 'queued', $5, $6, $7, $7)
				RETURNING `+jobColumns,
				id.String(), req.UserID, req.AssessmentID, runAt, req.SubmissionRef, resultID, now,
			)
			if err != nil {
				return err
			}
			job, err = collectJobFromRows(rows)
			if err != nil {
				return err
			}

			if _, err := tx.Exec(ctx, `SELECT pg_notify($1::text, $2::text)`, JobAvailableChannel, job.ID); err != nil {
				return fmt.Errorf("send job notification: %w", err)
			}
			return nil
		},
	})
	if txErr != nil {
		mapped := apperrors.MapDBError(txErr)
		if apperrors.IsConflict(mapped) && apperrors.GetConstraint(mapped) == constraintJobKey {
			return nil, &model.DuplicateJobError{
				Key:   model.JobKey{UserID: req.UserID, AssessmentID: req.AssessmentID, RunAt: runAt},
				Cause: mapped,
			}
		}
		if apperrors.GetCode(mapped) != "" {
			return nil, mapped
		}
		return nil, fmt.Errorf("enqueue job: %w", txErr)
	}
	return job, nil
}

// Withdraw deletes the queued job with the given key and reports whether one was removed.
// Running and finished jobs are not affected. The job's waiting placeholder result is
// deleted in the same transaction.
func (r *AssessmentJobRepo) Withdraw(ctx context.Context, key model.JobKey) (bool, error) {
	removed := false
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			var resultID *int64
			err := tx.QueryRow(ctx, `
				DELETE FROM assessment_jobs
				WHERE user_id = $1 AND assessment_id = $2 AND run_at = $3 AND status = 'queued'
				RETURNING result_id`,
				key.UserID, key.AssessmentID, key.RunAt.UTC().Truncate(time.Microsecond),
			).Scan(&resultID)
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			if err != nil {
				return err
			}
			removed = true

			if resultID == nil {
				return nil
			}
			if _, err := tx.Exec(ctx,
				`DELETE FROM assessment_results WHERE id = $1 AND waiting_to_run`, *resultID,
			); err != nil {
				return fmt.Errorf("delete waiting result %d: %w", *resultID, err)
			}
			return nil
		},
	})
	if err != nil {
		return false, fmt.Errorf("withdraw job: %w", err)
	}
	return removed, nil
}

// GetByID retrieves a job by its id.
func (r *AssessmentJobRepo) GetByID(ctx context.Context, id string) (*model.AssessmentJob, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.ErrJobNotFound
	}

	var job *model.AssessmentJob
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT `+jobColumns+` FROM assessment_jobs j WHERE j.id = $1`, id)
		if err != nil {
			return err
		}
		job, err = collectJobFromRows(rows)
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

// List returns jobs ordered by run time, newest first.
func (r *AssessmentJobRepo) List(ctx context.Context, params core.ListJobsParams) ([]*model.AssessmentJob, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)
	offset := max(params.Offset, 0)

	var status any
	if params.Status != "" {
		if !params.Status.Valid() {
			return nil, apperrors.ValidationField("status", "invalid job status")
		}
		status = string(params.Status)
	}
	var assessmentID any
	if params.AssessmentID > 0 {
		assessmentID = params.AssessmentID
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM assessment_jobs j
		WHERE ($1::text IS NULL OR j.status = $1)
		  AND ($2::bigint IS NULL OR j.assessment_id = $2)
		ORDER BY j.run_at DESC, j.created_at DESC
		LIMIT $3 OFFSET $4`,
		status, assessmentID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*model.AssessmentJob
	for rows.Next() {
		job, err := scanJobFromRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// Stats counts jobs by status.
func (r *AssessmentJobRepo) Stats(ctx context.Context) (*model.JobStats, error) {
	var s model.JobStats
	err := r.DB.QueryRowContext(ctx, `
		SELECT
		  count(*) FILTER (WHERE status = 'queued'),
		  count(*) FILTER (WHERE status = 'running'),
		  count(*) FILTER (WHERE status = 'completed'),
		  count(*) FILTER (WHERE status = 'failed')
		FROM assessment_jobs`,
	).Scan(&s.Queued, &s.Running, &s.Completed, &s.Failed)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	return &s, nil
}

// WaitForJob blocks until a job-available notification arrives on a dedicated connection.
func (r *AssessmentJobRepo) WaitForJob(ctx context.Context) error {
	conn, err := r.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get conn from pool: %w", err)
	}
	defer conn.Close()

	quoted := pgx.Identifier{JobAvailableChannel}.Sanitize()
	if _, err := conn.ExecContext(ctx, "LISTEN "+quoted); err != nil {
		return fmt.Errorf("listen %s: %w", JobAvailableChannel, err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), "UNLISTEN "+quoted)
	}()

	return conn.Raw(func(dc any) error {
		sc, ok := dc.(*stdlib.Conn)
		if !ok {
			return errors.New("unexpected driver connection type; expected *stdlib.Conn")
		}
		_, err := sc.Conn().WaitForNotification(ctx)
		return err
	})
}

func collectJobFromRows(rows pgx.Rows) (*model.AssessmentJob, error) {
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}
	job, err := scanJobFromRow(rows)
	if err != nil {
		return nil, err
	}
	rows.Close()
	return job, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJobFromRow(scanner rowScanner) (*model.AssessmentJob, error) {
	var (
		job                                    model.AssessmentJob
		status                                 string
		resultID                               sql.NullInt64
		lastError                              sql.NullString
		leaseExpiresAt, startedAt, completedAt sql.NullTime
	)
	if err := scanner.Scan(
		&job.ID,
		&job.UserID,
		&job.Username,
		&job.AssessmentID,
		&job.RunAt,
		&status,
		&job.SubmissionRef,
		&resultID,
		&job.Attempts,
		&lastError,
		&leaseExpiresAt,
		&startedAt,
		&completedAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}

	job.Status = model.JobStatus(status)
	job.RunAt = job.RunAt.UTC()
	job.ResultID = nullableInt64(resultID)
	job.LastError = nullableString(lastError)
	job.LeaseExpiresAt = nullableTime(leaseExpiresAt)
	job.StartedAt = nullableTime(startedAt)
	job.CompletedAt = nullableTime(completedAt)
	return &job, nil
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullableTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func nullableInt64(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

var _ core.AssessmentJobRepository = (*AssessmentJobRepo)(nil)
