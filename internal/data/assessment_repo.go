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
	apperrors "github.com/jjstretton/pasta/internal/errors"
)

// ErrAssessmentNotFound is returned when an assessment does not exist.
var ErrAssessmentNotFound = model.ErrAssessmentNotFound

// AssessmentRepo reads assessment definitions straight from Postgres. Nothing is cached, so
// every read reflects the latest edits.
type AssessmentRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewAssessmentRepo creates a new AssessmentRepo.
func NewAssessmentRepo(db *sql.DB, cfg RepoConfig) *AssessmentRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AssessmentRepo{DB: db, timeProvider: tp, logger: logger.With("component", "assessment_repo")}
}

// GetDefinition loads an assessment with its weighted unit tests, hand markings and competitions.
func (r *AssessmentRepo) GetDefinition(ctx context.Context, assessmentID int64) (*model.AssessmentDefinition, error) {
	var def *model.AssessmentDefinition
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var (
			d         model.AssessmentDefinition
			dueDate   *time.Time
			timeoutMS *int64
		)
		err := conn.QueryRow(ctx, `
			SELECT id, name, due_date, marks, submissions_allowed, count_uncompilable, execution_timeout_ms
			FROM assessments WHERE id = $1`, assessmentID,
		).Scan(&d.ID, &d.Name, &dueDate, &d.Marks, &d.SubmissionsAllowed, &d.CountUncompilable, &timeoutMS)
		if err != nil {
			return err
		}
		if dueDate != nil {
			t := dueDate.UTC()
			d.DueDate = &t
		}
		if timeoutMS != nil {
			timeout := time.Duration(*timeoutMS) * time.Millisecond
			d.ExecutionTimeout = &timeout
		}

		if d.UnitTests, err = queryWeightedUnitTests(ctx, conn, assessmentID); err != nil {
			return err
		}
		if d.HandMarking, err = queryWeightedHandMarking(ctx, conn, assessmentID); err != nil {
			return err
		}
		if d.Competitions, err = queryWeightedCompetitions(ctx, conn, assessmentID); err != nil {
			return err
		}
		def = &d
		return nil
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAssessmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get assessment %d: %w", assessmentID, err)
	}
	return def, nil
}

// GetWeightedHandMarking returns the hand-marking templates currently attached to the assessment.
func (r *AssessmentRepo) GetWeightedHandMarking(ctx context.Context, assessmentID int64) ([]model.WeightedHandMarking, error) {
	var out []model.WeightedHandMarking
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var err error
		out, err = queryWeightedHandMarking(ctx, conn, assessmentID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get weighted hand marking for assessment %d: %w", assessmentID, err)
	}
	return out, nil
}

// Exists reports whether the assessment exists.
func (r *AssessmentRepo) Exists(ctx context.Context, assessmentID int64) (bool, error) {
	var exists bool
	if err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM assessments WHERE id = $1)`, assessmentID,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check assessment %d: %w", assessmentID, err)
	}
	return exists, nil
}

// GroupsForMember returns the group accounts userID belongs to for the assessment.
func (r *AssessmentRepo) GroupsForMember(ctx context.Context, userID, assessmentID int64) ([]int64, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT group_user_id FROM group_members
		WHERE member_user_id = $1 AND assessment_id = $2
		ORDER BY group_user_id`,
		userID, assessmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return ids, nil
}

func queryWeightedUnitTests(ctx context.Context, conn *pgx.Conn, assessmentID int64) ([]model.WeightedUnitTest, error) {
	rows, err := conn.Query(ctx, `
		SELECT id, assessment_id, unit_test_id, weight, secret
		FROM weighted_unit_tests WHERE assessment_id = $1 ORDER BY id`, assessmentID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.WeightedUnitTest, error) {
		var w model.WeightedUnitTest
		err := row.Scan(&w.ID, &w.AssessmentID, &w.UnitTestID, &w.Weight, &w.Secret)
		return w, err
	})
}

func queryWeightedHandMarking(ctx context.Context, conn *pgx.Conn, assessmentID int64) ([]model.WeightedHandMarking, error) {
	rows, err := conn.Query(ctx, `
		SELECT id, assessment_id, hand_marking_id, weight, group_work
		FROM weighted_hand_markings WHERE assessment_id = $1 ORDER BY id`, assessmentID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.WeightedHandMarking, error) {
		var w model.WeightedHandMarking
		err := row.Scan(&w.ID, &w.AssessmentID, &w.HandMarkingID, &w.Weight, &w.GroupWork)
		return w, err
	})
}

func queryWeightedCompetitions(ctx context.Context, conn *pgx.Conn, assessmentID int64) ([]model.WeightedCompetition, error) {
	rows, err := conn.Query(ctx, `
		SELECT id, assessment_id, competition_id, weight
		FROM weighted_competitions WHERE assessment_id = $1 ORDER BY id`, assessmentID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.WeightedCompetition, error) {
		var w model.WeightedCompetition
		err := row.Scan(&w.ID, &w.AssessmentID, &w.CompetitionID, &w.Weight)
		return w, err
	})
}

// UpsertDefinition writes the assessment row and replaces its weighted unit tests and
// competitions. Hand-marking attachments are managed separately through AttachHandMarking
// and DetachHandMarking so their ids stay stable across edits. A zero def.ID inserts;
// otherwise the existing row is updated.
func (r *AssessmentRepo) UpsertDefinition(ctx context.Context, def *model.AssessmentDefinition) error {
	if def == nil {
		return errors.New("assessment definition is required")
	}
	if def.Name == "" {
		return apperrors.ValidationField("name", "assessment name is required")
	}
	var timeoutMS *int64
	if def.ExecutionTimeout != nil {
		ms := def.ExecutionTimeout.Milliseconds()
		timeoutMS = &ms
	}
	now := r.timeProvider.Now().UTC()

	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			if def.ID == 0 {
				if err := tx.QueryRow(ctx, `
					INSERT INTO assessments (name, due_date, marks, submissions_allowed, count_uncompilable, execution_timeout_ms, created_at, updated_at)
					VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
					RETURNING id`,
					def.Name, def.DueDate, def.Marks, def.SubmissionsAllowed, def.CountUncompilable, timeoutMS, now,
				).Scan(&def.ID); err != nil {
					return fmt.Errorf("insert assessment: %w", err)
				}
			} else {
				tag, err := tx.Exec(ctx, `
					UPDATE assessments
					SET name = $2,
					    due_date = $3,
					    marks = $4,
					    submissions_allowed = $5,
					    count_uncompilable = $6,
					    execution_timeout_ms = $7,
					    updated_at = $8
					WHERE id = $1`,
					def.ID, def.Name, def.DueDate, def.Marks, def.SubmissionsAllowed, def.CountUncompilable, timeoutMS, now,
				)
				if err != nil {
					return fmt.Errorf("update assessment: %w", err)
				}
				if tag.RowsAffected() == 0 {
					return ErrAssessmentNotFound
				}
			}

			if _, err := tx.Exec(ctx, `DELETE FROM weighted_unit_tests WHERE assessment_id = $1`, def.ID); err != nil {
				return fmt.Errorf("clear weighted unit tests: %w", err)
			}
			for i := range def.UnitTests {
				w := &def.UnitTests[i]
				w.AssessmentID = def.ID
				if err := tx.QueryRow(ctx, `
					INSERT INTO weighted_unit_tests (assessment_id, unit_test_id, weight, secret)
					VALUES ($1, $2, $3, $4) RETURNING id`,
					def.ID, w.UnitTestID, w.Weight, w.Secret,
				).Scan(&w.ID); err != nil {
					return fmt.Errorf("insert weighted unit test: %w", err)
				}
			}

			if _, err := tx.Exec(ctx, `DELETE FROM weighted_competitions WHERE assessment_id = $1`, def.ID); err != nil {
				return fmt.Errorf("clear weighted competitions: %w", err)
			}
			for i := range def.Competitions {
				w := &def.Competitions[i]
				w.AssessmentID = def.ID
				if err := tx.QueryRow(ctx, `
					INSERT INTO weighted_competitions (assessment_id, competition_id, weight)
					VALUES ($1, $2, $3) RETURNING id`,
					def.ID, w.CompetitionID, w.Weight,
				).Scan(&w.ID); err != nil {
					return fmt.Errorf("insert weighted competition: %w", err)
				}
			}
			return nil
		},
	})
	if err != nil {
		if errors.Is(err, ErrAssessmentNotFound) {
			return err
		}
		if mapped := apperrors.MapDBError(err); apperrors.IsValidation(mapped) || apperrors.IsForeignKey(mapped) {
			return mapped
		}
		return fmt.Errorf("upsert assessment definition: %w", err)
	}
	return nil
}

// AttachHandMarking attaches a hand-marking template to an assessment and assigns w.ID.
func (r *AssessmentRepo) AttachHandMarking(ctx context.Context, w *model.WeightedHandMarking) error {
	if w == nil || w.AssessmentID == 0 {
		return apperrors.ValidationField("assessment_id", "assessment is required")
	}
	if w.Weight < 0 {
		return apperrors.ValidationField("weight", "weight must not be negative")
	}
	if err := r.DB.QueryRowContext(ctx, `
		INSERT INTO weighted_hand_markings (assessment_id, hand_marking_id, weight, group_work)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		w.AssessmentID, w.HandMarkingID, w.Weight, w.GroupWork,
	).Scan(&w.ID); err != nil {
		mapped := apperrors.MapDBError(err)
		if apperrors.IsForeignKey(mapped) {
			return mapped
		}
		return fmt.Errorf("attach hand marking: %w", err)
	}
	return nil
}

// DetachHandMarking removes a weighted hand marking. Stored entries that reference it are
// left alone and disappear from results when they are next read.
func (r *AssessmentRepo) DetachHandMarking(ctx context.Context, weightedID int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM weighted_hand_markings WHERE id = $1`, weightedID)
	if err != nil {
		return false, fmt.Errorf("detach hand marking: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("detach hand marking rows affected: %w", err)
	}
	return n > 0, nil
}

// SetHandMarkingGroupWork flips the group-work flag of a weighted hand marking.
func (r *AssessmentRepo) SetHandMarkingGroupWork(ctx context.Context, weightedID int64, groupWork bool) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE weighted_hand_markings SET group_work = $2 WHERE id = $1`, weightedID, groupWork)
	if err != nil {
		return fmt.Errorf("update hand marking: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFoundf("weighted hand marking %d not found", weightedID)
	}
	return nil
}

// AddGroupMember records userID as a member of the group account for an assessment.
func (r *AssessmentRepo) AddGroupMember(ctx context.Context, groupID, assessmentID, userID int64) error {
	if _, err := r.DB.ExecContext(ctx, `
		INSERT INTO group_members (group_user_id, assessment_id, member_user_id)
		VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		groupID, assessmentID, userID,
	); err != nil {
		return fmt.Errorf("add group member: %w", apperrors.MapDBError(err))
	}
	return nil
}

var _ core.AssessmentRepository = (*AssessmentRepo)(nil)
