// Package testutil provides database, Redis and fixture helpers for PASTA tests.
package testutil

import (
	"context"
	"database/sql"
	"time"

	"github.com/jjstretton/pasta/internal/domain/model"
)

// EnqueueRequestBuilder builds model.EnqueueRequest values with sensible defaults.
type EnqueueRequestBuilder struct {
	req *model.EnqueueRequest
}

// NewEnqueueRequest starts a builder for the given target, scheduled at TestTime.
func NewEnqueueRequest(userID, assessmentID int64) *EnqueueRequestBuilder {
	return &EnqueueRequestBuilder{
		req: &model.EnqueueRequest{
			UserID:        userID,
			AssessmentID:  assessmentID,
			SubmissionRef: "/tmp/pasta/submissions",
			RunAt:         TestTime(),
		},
	}
}

// WithRunAt sets the scheduled run time.
func (b *EnqueueRequestBuilder) WithRunAt(t time.Time) *EnqueueRequestBuilder {
	b.req.RunAt = t
	return b
}

// WithSubmissionRef sets the submission root.
func (b *EnqueueRequestBuilder) WithSubmissionRef(ref string) *EnqueueRequestBuilder {
	b.req.SubmissionRef = ref
	return b
}

// WithWaitingResult requests a placeholder result at enqueue time.
func (b *EnqueueRequestBuilder) WithWaitingResult() *EnqueueRequestBuilder {
	b.req.CreateWaitingResult = true
	return b
}

// Build returns the request.
func (b *EnqueueRequestBuilder) Build() *model.EnqueueRequest {
	r := *b.req
	return &r
}

// Fixtures inserts rows directly with SQL so repository tests do not depend on each other.
type Fixtures struct {
	t  TestingTB
	db *sql.DB
}

// NewFixtures creates a Fixtures bound to db.
func NewFixtures(t TestingTB, db *sql.DB) *Fixtures {
	return &Fixtures{t: t, db: db}
}

func (f *Fixtures) insertID(query string, args ...any) int64 {
	f.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var id int64
	if err := f.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		f.t.Fatalf("fixture insert failed: %v", err)
	}
	return id
}

// User inserts an individual account.
func (f *Fixtures) User(username string) int64 {
	f.t.Helper()
	return f.insertID(`INSERT INTO users (username) VALUES ($1) RETURNING id`, username)
}

// Group inserts a group account and records members for the assessment.
func (f *Fixtures) Group(name string, assessmentID int64, members ...int64) int64 {
	f.t.Helper()
	id := f.insertID(`INSERT INTO users (username, group_account) VALUES ($1, TRUE) RETURNING id`, name)
	for _, m := range members {
		if _, err := f.db.ExecContext(context.Background(),
			`INSERT INTO group_members (group_user_id, assessment_id, member_user_id) VALUES ($1, $2, $3)`,
			id, assessmentID, m,
		); err != nil {
			f.t.Fatalf("fixture group member failed: %v", err)
		}
	}
	return id
}

// CompetitionRunner returns the id of the reserved competition runner account.
func (f *Fixtures) CompetitionRunner() int64 {
	f.t.Helper()
	return f.insertID(`SELECT id FROM users WHERE username = $1`, model.CompetitionRunnerUsername)
}

// Assessment inserts an assessment with no weighted modules.
func (f *Fixtures) Assessment(name string) int64 {
	f.t.Helper()
	return f.insertID(`INSERT INTO assessments (name, marks) VALUES ($1, 100) RETURNING id`, name)
}

// HandMarking attaches a hand-marking template and returns the weighted id.
func (f *Fixtures) HandMarking(assessmentID, templateID int64, weight float64, groupWork bool) int64 {
	f.t.Helper()
	return f.insertID(`
		INSERT INTO weighted_hand_markings (assessment_id, hand_marking_id, weight, group_work)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		assessmentID, templateID, weight, groupWork,
	)
}

// UnitTest attaches a unit test and returns the weighted id.
func (f *Fixtures) UnitTest(assessmentID, unitTestID int64, weight float64) int64 {
	f.t.Helper()
	return f.insertID(`
		INSERT INTO weighted_unit_tests (assessment_id, unit_test_id, weight)
		VALUES ($1, $2, $3) RETURNING id`,
		assessmentID, unitTestID, weight,
	)
}
