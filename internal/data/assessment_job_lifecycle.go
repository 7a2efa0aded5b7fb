package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jjstretton/pasta/internal/core"
	"github.com/jjstretton/pasta/internal/data/pgxutil"
	"github.com/jjstretton/pasta/internal/domain/model"
	apperrors "github.com/jjstretton/pasta/internal/errors"
)

// admitNextSQL picks the earliest due queued job whose target has neither a running job
// nor an earlier queued job, and marks it running. SKIP LOCKED keeps concurrent admitters
// off each other's candidates; the assessment_jobs_one_running index is the final guard.
const admitNextSQL = `
  WITH candidate AS (
    SELECT q.id FROM assessment_jobs q
    WHERE q.status = 'queued'
      AND q.run_at <= $1
      AND NOT EXISTS (
        SELECT 1 FROM assessment_jobs r
        WHERE r.user_id = q.user_id AND r.assessment_id = q.assessment_id AND r.status = 'running'
      )
      AND NOT EXISTS (
        SELECT 1 FROM assessment_jobs e
        WHERE e.user_id = q.user_id AND e.assessment_id = q.assessment_id AND e.status = 'queued'
          AND (e.run_at, e.created_at, e.id) < (q.run_at, q.created_at, q.id)
      )
    ORDER BY q.run_at ASC, q.created_at ASC, q.id ASC
    LIMIT 1
    FOR UPDATE SKIP LOCKED
  )
  UPDATE assessment_jobs j
  SET status = 'running',
      attempts = j.attempts + 1,
      started_at = $1,
      lease_expires_at = $2,
      updated_at = $1
  FROM candidate
  WHERE j.id = candidate.id AND j.status = 'queued'
  RETURNING ` + jobColumns

// admitAttempts bounds retries after losing a running-lock race to another admitter.
const admitAttempts = 3

// AdmitNext marks the next eligible queued job running with the given lease.
func (r *AssessmentJobRepo) AdmitNext(ctx context.Context, leaseSeconds int) (*model.AssessmentJob, error) {
	if leaseSeconds <= 0 {
		return nil, errors.New("leaseSeconds must be positive")
	}

	if n, err := r.requeueExpired(ctx, 0); err != nil {
		return nil, fmt.Errorf("requeue expired jobs: %w", err)
	} else if n > 0 {
		r.logger.WarnContext(ctx, "requeued jobs with expired lease", "count", n)
	}

	for range admitAttempts {
		job, err := r.admitOnce(ctx, leaseSeconds)
		if err == nil {
			return job, nil
		}
		if errors.Is(err, model.ErrNoJobsAvailable) {
			return nil, err
		}
		mapped := apperrors.MapDBError(err)
		if apperrors.IsConflict(mapped) && apperrors.GetConstraint(mapped) == constraintOneRunning {
			r.logger.DebugContext(ctx, "admission lost running-lock race, retrying")
			continue
		}
		return nil, fmt.Errorf("admit job: %w", err)
	}
	return nil, model.ErrNoJobsAvailable
}

func (r *AssessmentJobRepo) admitOnce(ctx context.Context, leaseSeconds int) (*model.AssessmentJob, error) {
	var job *model.AssessmentJob
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Opts: &sql.TxOptions{Isolation: sql.LevelReadCommitted},
		Fn: func(tx pgx.Tx) error {
			now := r.timeProvider.Now().UTC()
			leaseExpiresAt := now.Add(time.Duration(leaseSeconds) * time.Second)

			rows, err := tx.Query(ctx, admitNextSQL, now, leaseExpiresAt)
			if err != nil {
				return err
			}
			j, err := collectJobFromRows(rows)
			if errors.Is(err, pgx.ErrNoRows) {
				return model.ErrNoJobsAvailable
			}
			if err != nil {
				return err
			}
			job = j
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// Heartbeat extends the lease of a running job.
func (r *AssessmentJobRepo) Heartbeat(ctx context.Context, jobID string, leaseSeconds int) (bool, error) {
	if leaseSeconds <= 0 {
		return false, errors.New("leaseSeconds must be positive")
	}
	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE assessment_jobs
		SET lease_expires_at = $2, updated_at = $3
		WHERE id = $1 AND status = 'running'`,
		jobID, now.Add(time.Duration(leaseSeconds)*time.Second), now,
	)
	if err != nil {
		return false, fmt.Errorf("heartbeat job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("heartbeat rows affected: %w", err)
	}
	return n > 0, nil
}

// Complete stores params.Result and marks the job completed, releasing its target, in a
// single transaction. Result ids (and ids of new child rows) are filled in on success.
// If the job already links a result, that row is updated and its execution rows replaced;
// hand-marking entries absent from params.Result are deleted.
func (r *AssessmentJobRepo) Complete(ctx context.Context, params core.CompleteJobParams) (*model.Result, error) {
	if params.Result == nil {
		return nil, errors.New("result is required")
	}
	result := params.Result

	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			var status string
			var linked sql.NullInt64
			err := tx.QueryRow(ctx,
				`SELECT status, result_id FROM assessment_jobs WHERE id = $1 FOR UPDATE`, params.JobID,
			).Scan(&status, &linked)
			if errors.Is(err, pgx.ErrNoRows) {
				return model.ErrJobNotFound
			}
			if err != nil {
				return fmt.Errorf("lock job: %w", err)
			}
			if model.JobStatus(status) != model.JobStatusRunning {
				return model.ErrJobNotRunning
			}
			if linked.Valid && result.ID == 0 {
				result.ID = linked.Int64
			}

			now := r.timeProvider.Now().UTC()
			if err := writeResultInTx(ctx, tx, result, now); err != nil {
				return err
			}
			if err := upsertSummaryInTx(ctx, tx, result, params.Percentage, now); err != nil {
				return err
			}

			if _, err := tx.Exec(ctx, `
				UPDATE assessment_jobs
				SET status = 'completed',
				    result_id = $2,
				    completed_at = $3,
				    lease_expires_at = NULL,
				    last_error = NULL,
				    updated_at = $3
				WHERE id = $1`,
				params.JobID, result.ID, now,
			); err != nil {
				return fmt.Errorf("mark job completed: %w", err)
			}
			return notifyInTx(ctx, tx, params.JobID)
		},
	})
	if err != nil {
		if errors.Is(err, model.ErrJobNotFound) || errors.Is(err, model.ErrJobNotRunning) {
			return nil, err
		}
		return nil, fmt.Errorf("complete job %s: %w", params.JobID, err)
	}
	return result, nil
}

// Release returns a running job to the queue without a result. The target becomes
// admissible again and the job keeps its place by run time.
func (r *AssessmentJobRepo) Release(ctx context.Context, req model.ReleaseJobRequest) (bool, error) {
	now := r.timeProvider.Now().UTC()
	return r.transitionRunning(ctx, transitionParams{
		query: `
			UPDATE assessment_jobs
			SET status = 'queued',
			    last_error = $2,
			    lease_expires_at = NULL,
			    updated_at = $3
			WHERE id = $1 AND status = 'running'`,
		args: []any{req.ID, req.Reason, now},
		id:   req.ID,
	})
}

// Fail marks a running job failed. Failed jobs are never retried automatically.
func (r *AssessmentJobRepo) Fail(ctx context.Context, req model.FailJobRequest) (bool, error) {
	now := r.timeProvider.Now().UTC()
	return r.transitionRunning(ctx, transitionParams{
		query: `
			UPDATE assessment_jobs
			SET status = 'failed',
			    last_error = $2,
			    completed_at = $3,
			    lease_expires_at = NULL,
			    updated_at = $3
			WHERE id = $1 AND status = 'running'`,
		args: []any{req.ID, req.Reason, now},
		id:   req.ID,
	})
}

type transitionParams struct {
	query string
	args  []any
	id    string
}

// transitionRunning applies a single-statement transition out of running and signals
// waiting admitters, since the target's next job may now be eligible.
func (r *AssessmentJobRepo) transitionRunning(ctx context.Context, p transitionParams) (bool, error) {
	var applied bool
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			tag, err := tx.Exec(ctx, p.query, p.args...)
			if err != nil {
				return err
			}
			applied = tag.RowsAffected() > 0
			if !applied {
				return nil
			}
			return notifyInTx(ctx, tx, p.id)
		},
	})
	if err != nil {
		return false, fmt.Errorf("transition job %s: %w", p.id, err)
	}
	return applied, nil
}

func notifyInTx(ctx context.Context, tx pgx.Tx, jobID string) error {
	if _, err := tx.Exec(ctx, `SELECT pg_notify($1::text, $2::text)`, JobAvailableChannel, jobID); err != nil {
		return fmt.Errorf("send job notification: %w", err)
	}
	return nil
}
