package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jjstretton/pasta/internal/core"
	"github.com/jjstretton/pasta/internal/data/pgxutil"
)

// Advisory lock namespace for queue maintenance. Two-arg pg_try_advisory_xact_lock keeps
// these keys apart from the migration lock.
const (
	advisoryLockQueueMajor          = 7300
	advisoryLockQueueRequeue        = 1
	advisoryLockQueueDeleteFinished = 2
)

// expiredLeaseError is recorded on jobs whose worker stopped heartbeating.
const expiredLeaseError = "lease expired before the job finished"

// RequeueExpired returns running jobs with an expired lease to the queue.
// Processes up to batchSize jobs per call; concurrent callers skip while another holds the lock.
func (r *AssessmentJobRepo) RequeueExpired(ctx context.Context, batchSize int) (int64, error) {
	if batchSize <= 0 {
		return 0, errors.New("batch size must be greater than zero")
	}
	return r.requeueExpired(ctx, batchSize)
}

// requeueExpired is shared with admission; a batchSize of zero means no limit.
func (r *AssessmentJobRepo) requeueExpired(ctx context.Context, batchSize int) (int64, error) {
	var limit any
	if batchSize > 0 {
		limit = batchSize
	}

	var requeued int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)",
				advisoryLockQueueMajor, advisoryLockQueueRequeue).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				return nil
			}

			now := r.timeProvider.Now().UTC()
			res, err := tx.ExecContext(ctx, `
				UPDATE assessment_jobs
				SET status = 'queued',
				    lease_expires_at = NULL,
				    last_error = $2,
				    updated_at = $1
				WHERE id IN (
					SELECT id FROM assessment_jobs
					WHERE status = 'running'
					  AND lease_expires_at IS NOT NULL
					  AND lease_expires_at < $1
					ORDER BY lease_expires_at
					LIMIT $3
					FOR UPDATE SKIP LOCKED
				)`,
				now, expiredLeaseError, limit,
			)
			if err != nil {
				return fmt.Errorf("requeue expired jobs: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			requeued = n
			if n > 0 {
				if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1::text, '')`, JobAvailableChannel); err != nil {
					return fmt.Errorf("send job notification: %w", err)
				}
			}
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return requeued, nil
}

// DeleteFinishedJobs deletes completed or failed jobs older than params.MaxAge.
// Results linked to deleted jobs are kept.
func (r *AssessmentJobRepo) DeleteFinishedJobs(ctx context.Context, params core.DeleteFinishedJobsParams) (int64, error) {
	if !params.Status.Terminal() {
		return 0, fmt.Errorf("invalid finished job status: %s", params.Status)
	}
	if params.BatchSize <= 0 {
		return 0, errors.New("batch size must be greater than zero")
	}
	if params.MaxAge <= 0 {
		return 0, errors.New("max age must be greater than zero")
	}

	var deleted int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)",
				advisoryLockQueueMajor, advisoryLockQueueDeleteFinished).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				return nil
			}

			cutoff := r.timeProvider.Now().Add(-params.MaxAge).UTC()
			res, err := tx.ExecContext(ctx, `
				DELETE FROM assessment_jobs
				WHERE id IN (
					SELECT id FROM assessment_jobs
					WHERE status = $1
					  AND COALESCE(completed_at, updated_at) < $2
					ORDER BY COALESCE(completed_at, updated_at)
					LIMIT $3
				)`,
				string(params.Status), cutoff, params.BatchSize,
			)
			if err != nil {
				return fmt.Errorf("delete finished jobs: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			deleted = n
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

var _ core.ReaperRepository = (*AssessmentJobRepo)(nil)
