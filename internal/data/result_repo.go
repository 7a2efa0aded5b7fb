package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jjstretton/pasta/internal/core"
	"github.com/jjstretton/pasta/internal/data/pgxutil"
	"github.com/jjstretton/pasta/internal/domain/model"
	"github.com/jjstretton/pasta/internal/domain/reconcile"
	apperrors "github.com/jjstretton/pasta/internal/errors"
)

// ErrResultNotFound is returned when a result does not exist.
var ErrResultNotFound = model.ErrResultNotFound

// ResultRepo is the Postgres result store.
type ResultRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewResultRepo creates a new ResultRepo.
func NewResultRepo(db *sql.DB, cfg RepoConfig) *ResultRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultRepo{DB: db, timeProvider: tp, logger: logger.With("component", "result_repo")}
}

const resultColumns = `
  r.id,
  r.user_id,
  r.assessment_id,
  r.submission_date,
  r.submitted_by,
  r.group_result,
  r.error,
  r.waiting_to_run,
  r.created_at,
  r.updated_at
`

// Create persists result with its unit test and hand-marking rows in one transaction.
func (r *ResultRepo) Create(ctx context.Context, result *model.Result) error {
	if result == nil {
		return errors.New("result is required")
	}
	if result.ID != 0 {
		return apperrors.ValidationField("id", "result already persisted")
	}
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			return writeResultInTx(ctx, tx, result, r.timeProvider.Now().UTC())
		},
	})
	if err != nil {
		return mapResultError("create result", err)
	}
	return nil
}

// Save rewrites an existing result with its unit test rows and hand-marking entries.
func (r *ResultRepo) Save(ctx context.Context, result *model.Result) error {
	if result == nil {
		return errors.New("result is required")
	}
	if result.ID == 0 {
		return apperrors.ValidationField("id", "result has not been persisted")
	}
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			return writeResultInTx(ctx, tx, result, r.timeProvider.Now().UTC())
		},
	})
	if err != nil {
		return mapResultError("save result", err)
	}
	return nil
}

// writeResultInTx inserts result, or updates it when it already has an id. Unit test rows
// are always rewritten. Hand-marking entries with an id are kept, others are inserted,
// and stored entries missing from result.HandMarking are deleted.
func writeResultInTx(ctx context.Context, tx pgx.Tx, result *model.Result, now time.Time) error {
	submitted := result.SubmissionDate.UTC().Truncate(time.Microsecond)
	if result.SubmittedBy == 0 {
		result.SubmittedBy = result.UserID
	}

	if result.ID == 0 {
		if err := tx.QueryRow(ctx, `
			INSERT INTO assessment_results
			  (user_id, assessment_id, submission_date, submitted_by, group_result, error, waiting_to_run, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
			RETURNING id, created_at`,
			result.UserID, result.AssessmentID, submitted, result.SubmittedBy,
			result.GroupResult, result.Error, result.WaitingToRun, now,
		).Scan(&result.ID, &result.CreatedAt); err != nil {
			return fmt.Errorf("insert result: %w", err)
		}
	} else {
		tag, err := tx.Exec(ctx, `
			UPDATE assessment_results
			SET submission_date = $2,
			    submitted_by = $3,
			    group_result = $4,
			    error = $5,
			    waiting_to_run = $6,
			    updated_at = $7
			WHERE id = $1`,
			result.ID, submitted, result.SubmittedBy, result.GroupResult, result.Error, result.WaitingToRun, now,
		)
		if err != nil {
			return fmt.Errorf("update result: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrResultNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM unit_test_results WHERE result_id = $1`, result.ID); err != nil {
			return fmt.Errorf("clear unit test results: %w", err)
		}
	}
	result.SubmissionDate = submitted
	result.UpdatedAt = now

	if err := insertUnitTestsInTx(ctx, tx, result); err != nil {
		return err
	}
	return syncHandMarkingInTx(ctx, tx, result, now)
}

func insertUnitTestsInTx(ctx context.Context, tx pgx.Tx, result *model.Result) error {
	if len(result.UnitTests) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range result.UnitTests {
		ut := &result.UnitTests[i]
		ut.ResultID = result.ID
		batch.Queue(`
			INSERT INTO unit_test_results (result_id, weighted_unit_test_id, compiled, compile_errors, runtime_errors)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			result.ID, ut.WeightedUnitTestID, ut.Compiled, ut.CompileErrors, ut.RuntimeErrors,
		).QueryRow(func(row pgx.Row) error {
			return row.Scan(&ut.ID)
		})
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert unit test results: %w", err)
	}

	cases := &pgx.Batch{}
	for i := range result.UnitTests {
		ut := &result.UnitTests[i]
		for pos := range ut.Cases {
			c := &ut.Cases[pos]
			c.UnitTestResultID = ut.ID
			cases.Queue(`
				INSERT INTO unit_test_case_results
				  (unit_test_result_id, position, name, outcome, message, type, extended_message, seconds)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				RETURNING id`,
				ut.ID, pos, c.Name, string(c.Outcome), c.Message, c.Type, c.ExtendedMessage, c.Seconds,
			).QueryRow(func(row pgx.Row) error {
				return row.Scan(&c.ID)
			})
		}
	}
	if cases.Len() == 0 {
		return nil
	}
	if err := tx.SendBatch(ctx, cases).Close(); err != nil {
		return fmt.Errorf("insert unit test cases: %w", err)
	}
	return nil
}

func syncHandMarkingInTx(ctx context.Context, tx pgx.Tx, result *model.Result, now time.Time) error {
	kept := make([]int64, 0, len(result.HandMarking))
	for _, hm := range result.HandMarking {
		if hm.ID != 0 {
			kept = append(kept, hm.ID)
		}
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM hand_marking_results WHERE result_id = $1 AND id <> ALL($2::bigint[])`,
		result.ID, kept,
	); err != nil {
		return fmt.Errorf("delete stale hand marking: %w", err)
	}

	for i := range result.HandMarking {
		hm := &result.HandMarking[i]
		hm.ResultID = result.ID
		if hm.ID != 0 {
			continue
		}
		if err := insertHandMarking(ctx, tx, hm, now); err != nil {
			return err
		}
	}
	return nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertHandMarking(ctx context.Context, q queryRower, hm *model.HandMarkingResult, now time.Time) error {
	if err := q.QueryRow(ctx, `
		INSERT INTO hand_marking_results (result_id, weighted_hand_marking_id, score, comments, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING id`,
		hm.ResultID, hm.WeightedHandMarkingID, hm.Score, hm.Comments, now,
	).Scan(&hm.ID); err != nil {
		return fmt.Errorf("insert hand marking: %w", err)
	}
	return nil
}

// CreateHandMarking persists one hand-marking entry and assigns its id.
func (r *ResultRepo) CreateHandMarking(ctx context.Context, entry *model.HandMarkingResult) error {
	if entry == nil || entry.ResultID == 0 {
		return apperrors.ValidationField("result_id", "hand marking entry needs a result")
	}
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return insertHandMarking(ctx, conn, entry, r.timeProvider.Now().UTC())
	})
	if err != nil {
		return mapResultError("create hand marking", err)
	}
	return nil
}

// UpdateHandMarking stores the score and comments of an existing entry.
func (r *ResultRepo) UpdateHandMarking(ctx context.Context, entry *model.HandMarkingResult) error {
	if entry == nil || entry.ID == 0 {
		return apperrors.ValidationField("id", "hand marking entry has no id")
	}
	res, err := r.DB.ExecContext(ctx, `
		UPDATE hand_marking_results
		SET score = $2, comments = $3, updated_at = $4
		WHERE id = $1`,
		entry.ID, entry.Score, entry.Comments, r.timeProvider.Now().UTC(),
	)
	if err != nil {
		return mapResultError("update hand marking", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update hand marking rows affected: %w", err)
	}
	if n == 0 {
		return apperrors.NotFoundf("hand marking result %d not found", entry.ID)
	}
	return nil
}

// ApplyReconciliation inserts the entries change created, deletes the ones it dropped and
// touches the result row, all in one transaction. New entries get their ids assigned in place.
//
// The result row is locked first. A created entry whose rubric already has a stored row adopts
// that row instead of inserting a second one.
func (r *ResultRepo) ApplyReconciliation(ctx context.Context, result *model.Result, change reconcile.Change) error {
	if result == nil || result.ID == 0 {
		return errors.New("persisted result is required")
	}
	if change.Empty() {
		return nil
	}

	now := r.timeProvider.Now().UTC()
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			var locked int64
			err := tx.QueryRow(ctx,
				`SELECT id FROM assessment_results WHERE id = $1 FOR UPDATE`, result.ID,
			).Scan(&locked)
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrResultNotFound
			}
			if err != nil {
				return fmt.Errorf("lock result: %w", err)
			}

			stored, err := storedHandMarking(ctx, tx, result.ID)
			if err != nil {
				return err
			}

			for _, idx := range change.Created {
				if idx < 0 || idx >= len(result.HandMarking) {
					return fmt.Errorf("created entry index %d out of range", idx)
				}
				hm := &result.HandMarking[idx]
				hm.ResultID = result.ID
				if existing, ok := stored[hm.WeightedHandMarkingID]; ok {
					*hm = existing
					continue
				}
				if err := insertHandMarkingOnce(ctx, tx, hm, now); err != nil {
					return err
				}
			}

			if len(change.Dropped) > 0 {
				dropped := make([]int64, 0, len(change.Dropped))
				for _, hm := range change.Dropped {
					if hm.ID != 0 {
						dropped = append(dropped, hm.ID)
					}
				}
				if _, err := tx.Exec(ctx,
					`DELETE FROM hand_marking_results WHERE result_id = $1 AND id = ANY($2::bigint[])`,
					result.ID, dropped,
				); err != nil {
					return fmt.Errorf("delete dropped hand marking: %w", err)
				}
			}

			if change.ResultChanged {
				if _, err := tx.Exec(ctx,
					`UPDATE assessment_results SET updated_at = $2 WHERE id = $1`, result.ID, now,
				); err != nil {
					return fmt.Errorf("touch result: %w", err)
				}
				result.UpdatedAt = now
			}
			return nil
		},
	})
	if err != nil {
		return mapResultError("apply reconciliation", err)
	}
	return nil
}

// storedHandMarking returns the stored entries of a result keyed by weighted hand marking.
func storedHandMarking(ctx context.Context, tx pgx.Tx, resultID int64) (map[int64]model.HandMarkingResult, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, result_id, weighted_hand_marking_id, score, comments
		FROM hand_marking_results
		WHERE result_id = $1
		ORDER BY id`,
		resultID,
	)
	if err != nil {
		return nil, fmt.Errorf("load stored hand marking: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]model.HandMarkingResult)
	for rows.Next() {
		var hm model.HandMarkingResult
		if err := rows.Scan(&hm.ID, &hm.ResultID, &hm.WeightedHandMarkingID, &hm.Score, &hm.Comments); err != nil {
			return nil, fmt.Errorf("scan stored hand marking: %w", err)
		}
		if _, seen := out[hm.WeightedHandMarkingID]; !seen {
			out[hm.WeightedHandMarkingID] = hm
		}
	}
	return out, rows.Err()
}

// insertHandMarkingOnce inserts hm unless its rubric already has a row, in which case hm
// takes the stored row's id and marks.
func insertHandMarkingOnce(ctx context.Context, tx pgx.Tx, hm *model.HandMarkingResult, now time.Time) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO hand_marking_results (result_id, weighted_hand_marking_id, score, comments, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (result_id, weighted_hand_marking_id) DO NOTHING
		RETURNING id`,
		hm.ResultID, hm.WeightedHandMarkingID, hm.Score, hm.Comments, now,
	).Scan(&hm.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("insert hand marking: %w", err)
	}
	if err := tx.QueryRow(ctx, `
		SELECT id, score, comments FROM hand_marking_results
		WHERE result_id = $1 AND weighted_hand_marking_id = $2`,
		hm.ResultID, hm.WeightedHandMarkingID,
	).Scan(&hm.ID, &hm.Score, &hm.Comments); err != nil {
		return fmt.Errorf("reload hand marking: %w", err)
	}
	return nil
}

// GetByID loads a result with all of its rows.
func (r *ResultRepo) GetByID(ctx context.Context, id int64) (*model.Result, error) {
	results, err := r.queryResults(ctx, `WHERE r.id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrResultNotFound
	}
	return results[0], nil
}

// Latest returns the most recent result matching q, or ErrResultNotFound.
func (r *ResultRepo) Latest(ctx context.Context, q model.ResultQuery) (*model.Result, error) {
	results, err := r.queryResults(ctx, `
		WHERE r.user_id = ANY($1::bigint[]) AND r.assessment_id = $2
		ORDER BY r.submission_date DESC, r.id DESC
		LIMIT 1`,
		q.OwnerIDs(), q.AssessmentID,
	)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrResultNotFound
	}
	return results[0], nil
}

// AtDate returns the result matching q with the given submission date, or ErrResultNotFound.
// When q includes groups and several owners submitted at that instant, the individual
// result wins.
func (r *ResultRepo) AtDate(ctx context.Context, q model.ResultQuery, submissionDate time.Time) (*model.Result, error) {
	results, err := r.queryResults(ctx, `
		WHERE r.user_id = ANY($1::bigint[]) AND r.assessment_id = $2 AND r.submission_date = $3
		ORDER BY (r.user_id = $4) DESC, r.id DESC
		LIMIT 1`,
		q.OwnerIDs(), q.AssessmentID, submissionDate.UTC().Truncate(time.Microsecond), q.UserID,
	)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrResultNotFound
	}
	return results[0], nil
}

// List returns every result matching q in the requested order.
func (r *ResultRepo) List(ctx context.Context, q model.ResultQuery) ([]*model.Result, error) {
	return r.queryResults(ctx, `
		WHERE r.user_id = ANY($1::bigint[]) AND r.assessment_id = $2
		ORDER BY `+orderClause(q.Order),
		q.OwnerIDs(), q.AssessmentID,
	)
}

// SubmissionDates returns the submission timestamps of the results matching q.
func (r *ResultRepo) SubmissionDates(ctx context.Context, q model.ResultQuery) ([]time.Time, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT r.submission_date FROM assessment_results r
		WHERE r.user_id = ANY($1::bigint[]) AND r.assessment_id = $2
		ORDER BY `+orderClause(q.Order),
		q.OwnerIDs(), q.AssessmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list submission dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan submission date: %w", err)
		}
		dates = append(dates, t.UTC())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list submission dates: %w", err)
	}
	return dates, nil
}

// SubmissionCount counts the submissions matching params.Query. Results still waiting to run
// are counted. Unless IncludeCompileErrors is set, error results are left out, whether the
// submission failed to compile or the runner crashed.
func (r *ResultRepo) SubmissionCount(ctx context.Context, params core.SubmissionCountParams) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `
		SELECT count(*) FROM assessment_results r
		WHERE r.user_id = ANY($1::bigint[]) AND r.assessment_id = $2
		  AND ($3 OR NOT r.error)`,
		params.Query.OwnerIDs(), params.Query.AssessmentID, params.IncludeCompileErrors,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return n, nil
}

// ListForUsers returns the results of every user in params.UserIDs on one assessment.
func (r *ResultRepo) ListForUsers(ctx context.Context, params core.ListForUsersParams) ([]*model.Result, error) {
	if len(params.UserIDs) == 0 {
		return nil, nil
	}
	return r.queryResults(ctx, `
		WHERE r.user_id = ANY($1::bigint[]) AND r.assessment_id = $2
		ORDER BY r.user_id, `+orderClause(params.Order),
		params.UserIDs, params.AssessmentID,
	)
}

// LatestForUsers returns, for each user, the latest result on every assessment they submitted to.
func (r *ResultRepo) LatestForUsers(ctx context.Context, userIDs []int64) ([]*model.Result, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	return r.queryResults(ctx, `
		WHERE r.id IN (
		  SELECT DISTINCT ON (user_id, assessment_id) id
		  FROM assessment_results
		  WHERE user_id = ANY($1::bigint[])
		  ORDER BY user_id, assessment_id, submission_date DESC, id DESC
		)
		ORDER BY r.user_id, r.assessment_id`,
		userIDs,
	)
}

// ListForAssessment returns every result on an assessment, oldest first.
func (r *ResultRepo) ListForAssessment(ctx context.Context, assessmentID int64) ([]*model.Result, error) {
	return r.queryResults(ctx, `WHERE r.assessment_id = $1 ORDER BY r.submission_date, r.id`, assessmentID)
}

// ListForUser returns every result owned by a user, oldest first.
func (r *ResultRepo) ListForUser(ctx context.Context, userID int64) ([]*model.Result, error) {
	return r.queryResults(ctx, `WHERE r.user_id = $1 ORDER BY r.submission_date, r.id`, userID)
}

// ListWaiting returns placeholder results whose job has not completed yet.
func (r *ResultRepo) ListWaiting(ctx context.Context) ([]*model.Result, error) {
	return r.queryResults(ctx, `WHERE r.waiting_to_run ORDER BY r.submission_date, r.id`)
}

// SubmitterIDs returns the owners with at least one result on the assessment.
func (r *ResultRepo) SubmitterIDs(ctx context.Context, assessmentID int64) ([]int64, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM assessment_results WHERE assessment_id = $1 ORDER BY user_id`, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("list submitters: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan submitter: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list submitters: %w", err)
	}
	return ids, nil
}

func orderClause(o model.ResultOrder) string {
	if o == model.LatestFirst {
		return "r.submission_date DESC, r.id DESC"
	}
	return "r.submission_date ASC, r.id ASC"
}

// queryResults selects result rows with the given tail (WHERE/ORDER/LIMIT) and loads their
// unit test and hand-marking rows on the same connection.
func (r *ResultRepo) queryResults(ctx context.Context, tail string, args ...any) ([]*model.Result, error) {
	var results []*model.Result
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT `+resultColumns+` FROM assessment_results r `+tail, args...)
		if err != nil {
			return err
		}
		results, err = pgx.CollectRows(rows, scanResult)
		if err != nil {
			return err
		}
		return loadResultChildren(ctx, conn, results)
	})
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	return results, nil
}

func scanResult(row pgx.CollectableRow) (*model.Result, error) {
	var res model.Result
	if err := row.Scan(
		&res.ID,
		&res.UserID,
		&res.AssessmentID,
		&res.SubmissionDate,
		&res.SubmittedBy,
		&res.GroupResult,
		&res.Error,
		&res.WaitingToRun,
		&res.CreatedAt,
		&res.UpdatedAt,
	); err != nil {
		return nil, err
	}
	res.SubmissionDate = res.SubmissionDate.UTC()
	return &res, nil
}

func loadResultChildren(ctx context.Context, conn *pgx.Conn, results []*model.Result) error {
	if len(results) == 0 {
		return nil
	}
	byID := make(map[int64]*model.Result, len(results))
	ids := make([]int64, 0, len(results))
	for _, res := range results {
		byID[res.ID] = res
		ids = append(ids, res.ID)
	}

	if err := loadUnitTests(ctx, conn, ids, byID); err != nil {
		return err
	}
	return loadHandMarking(ctx, conn, ids, byID)
}

func loadUnitTests(ctx context.Context, conn *pgx.Conn, ids []int64, byID map[int64]*model.Result) error {
	rows, err := conn.Query(ctx, `
		SELECT u.id, u.result_id, u.weighted_unit_test_id, u.compiled, u.compile_errors, u.runtime_errors,
		       c.id, c.name, c.outcome, c.message, c.type, c.extended_message, c.seconds
		FROM unit_test_results u
		LEFT JOIN unit_test_case_results c ON c.unit_test_result_id = u.id
		WHERE u.result_id = ANY($1::bigint[])
		ORDER BY u.result_id, u.id, c.position`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("load unit test results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ut                                    model.UnitTestResult
			caseID                                *int64
			name, outcome, msg, typ, extendedText *string
			seconds                               *float64
		)
		if err := rows.Scan(
			&ut.ID, &ut.ResultID, &ut.WeightedUnitTestID, &ut.Compiled, &ut.CompileErrors, &ut.RuntimeErrors,
			&caseID, &name, &outcome, &msg, &typ, &extendedText, &seconds,
		); err != nil {
			return fmt.Errorf("scan unit test result: %w", err)
		}

		res := byID[ut.ResultID]
		n := len(res.UnitTests)
		if n == 0 || res.UnitTests[n-1].ID != ut.ID {
			res.UnitTests = append(res.UnitTests, ut)
			n++
		}
		if caseID == nil {
			continue
		}
		res.UnitTests[n-1].Cases = append(res.UnitTests[n-1].Cases, model.UnitTestCaseResult{
			ID:               *caseID,
			UnitTestResultID: ut.ID,
			Name:             deref(name),
			Outcome:          model.CaseOutcome(deref(outcome)),
			Message:          deref(msg),
			Type:             deref(typ),
			ExtendedMessage:  deref(extendedText),
			Seconds:          deref(seconds),
		})
	}
	return rows.Err()
}

func loadHandMarking(ctx context.Context, conn *pgx.Conn, ids []int64, byID map[int64]*model.Result) error {
	rows, err := conn.Query(ctx, `
		SELECT id, result_id, weighted_hand_marking_id, score, comments
		FROM hand_marking_results
		WHERE result_id = ANY($1::bigint[])
		ORDER BY result_id, id`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("load hand marking results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var hm model.HandMarkingResult
		if err := rows.Scan(&hm.ID, &hm.ResultID, &hm.WeightedHandMarkingID, &hm.Score, &hm.Comments); err != nil {
			return fmt.Errorf("scan hand marking result: %w", err)
		}
		res := byID[hm.ResultID]
		res.HandMarking = append(res.HandMarking, hm)
	}
	return rows.Err()
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func mapResultError(op string, err error) error {
	if errors.Is(err, ErrResultNotFound) {
		return err
	}
	mapped := apperrors.MapDBError(err)
	if apperrors.GetCode(mapped) != "" && !apperrors.IsInternal(mapped) {
		return mapped
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ core.ResultRepository = (*ResultRepo)(nil)
