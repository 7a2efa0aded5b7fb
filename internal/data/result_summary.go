package data

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jjstretton/pasta/internal/data/pgxutil"
	"github.com/jjstretton/pasta/internal/domain/model"
)

// ErrSummaryNotFound is returned when an owner has no summary for an assessment.
var ErrSummaryNotFound = model.ErrSummaryNotFound

const summaryColumns = `user_id, assessment_id, result_id, submission_date, percentage, error, submissions, updated_at`

// upsertSummaryInTx refreshes the owner's summary for result's assessment. The submission count
// is recomputed from the stored results. The latest fields only move forward: an older
// submission completing late leaves them alone.
func upsertSummaryInTx(ctx context.Context, tx pgx.Tx, result *model.Result, percentage float64, now time.Time) error {
	if percentage < 0 {
		percentage = 0
	}
	if percentage > 1 {
		percentage = 1
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO assessment_result_summaries
		  (user_id, assessment_id, result_id, submission_date, percentage, error, submissions, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6,
		  (SELECT count(*) FROM assessment_results WHERE user_id = $1 AND assessment_id = $2), $7)
		ON CONFLICT (user_id, assessment_id) DO UPDATE SET
		  result_id = CASE WHEN assessment_result_summaries.submission_date <= EXCLUDED.submission_date
		    THEN EXCLUDED.result_id ELSE assessment_result_summaries.result_id END,
		  percentage = CASE WHEN assessment_result_summaries.submission_date <= EXCLUDED.submission_date
		    THEN EXCLUDED.percentage ELSE assessment_result_summaries.percentage END,
		  error = CASE WHEN assessment_result_summaries.submission_date <= EXCLUDED.submission_date
		    THEN EXCLUDED.error ELSE assessment_result_summaries.error END,
		  submission_date = GREATEST(assessment_result_summaries.submission_date, EXCLUDED.submission_date),
		  submissions = EXCLUDED.submissions,
		  updated_at = EXCLUDED.updated_at`,
		result.UserID, result.AssessmentID, result.ID, result.SubmissionDate.UTC(),
		percentage, result.Error, now,
	)
	if err != nil {
		return fmt.Errorf("upsert result summary: %w", err)
	}
	return nil
}

// Summary returns the owner's summary for one assessment, or ErrSummaryNotFound.
func (r *ResultRepo) Summary(ctx context.Context, userID, assessmentID int64) (*model.ResultSummary, error) {
	summaries, err := r.querySummaries(ctx,
		`WHERE user_id = $1 AND assessment_id = $2`, userID, assessmentID)
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, ErrSummaryNotFound
	}
	return summaries[0], nil
}

// SummariesForUsers returns every summary owned by any of userIDs.
func (r *ResultRepo) SummariesForUsers(ctx context.Context, userIDs []int64) ([]*model.ResultSummary, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	return r.querySummaries(ctx,
		`WHERE user_id = ANY($1::bigint[]) ORDER BY user_id, assessment_id`, userIDs)
}

// SummariesForUser returns the owner's summaries across assessments.
func (r *ResultRepo) SummariesForUser(ctx context.Context, userID int64) ([]*model.ResultSummary, error) {
	return r.querySummaries(ctx, `WHERE user_id = $1 ORDER BY assessment_id`, userID)
}

// SummariesForAssessment returns one summary per owner that completed a run of the assessment.
func (r *ResultRepo) SummariesForAssessment(ctx context.Context, assessmentID int64) ([]*model.ResultSummary, error) {
	return r.querySummaries(ctx, `WHERE assessment_id = $1 ORDER BY user_id`, assessmentID)
}

func (r *ResultRepo) querySummaries(ctx context.Context, tail string, args ...any) ([]*model.ResultSummary, error) {
	var summaries []*model.ResultSummary
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT `+summaryColumns+` FROM assessment_result_summaries `+tail, args...)
		if err != nil {
			return err
		}
		summaries, err = pgx.CollectRows(rows, scanSummary)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("query result summaries: %w", err)
	}
	return summaries, nil
}

func scanSummary(row pgx.CollectableRow) (*model.ResultSummary, error) {
	var s model.ResultSummary
	if err := row.Scan(
		&s.UserID,
		&s.AssessmentID,
		&s.ResultID,
		&s.SubmissionDate,
		&s.Percentage,
		&s.Error,
		&s.Submissions,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	s.SubmissionDate = s.SubmissionDate.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return &s, nil
}
