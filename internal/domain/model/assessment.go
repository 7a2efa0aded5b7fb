package model

import "time"

// AssessmentDefinition is the read-only view of an assessment consumed by the scheduler.
// The surrounding CRUD layer owns it; the core never mutates it.
type AssessmentDefinition struct {
	ID                 int64                 `json:"id"                          db:"id"`
	Name               string                `json:"name"                        db:"name"`
	DueDate            *time.Time            `json:"due_date,omitempty"          db:"due_date"`
	Marks              float64               `json:"marks"                       db:"marks"`
	SubmissionsAllowed int                   `json:"submissions_allowed"         db:"submissions_allowed"`
	CountUncompilable  bool                  `json:"count_uncompilable"          db:"count_uncompilable"`
	ExecutionTimeout   *time.Duration        `json:"execution_timeout,omitempty" db:"execution_timeout_ms"`
	UnitTests          []WeightedUnitTest    `json:"unit_tests"`
	HandMarking        []WeightedHandMarking `json:"hand_marking"`
	Competitions       []WeightedCompetition `json:"competitions"`
}

// SubmissionLimitReached reports whether count submissions exhaust the allowance.
// A zero allowance means unlimited.
func (a *AssessmentDefinition) SubmissionLimitReached(count int) bool {
	return a.SubmissionsAllowed > 0 && count >= a.SubmissionsAllowed
}

// WeightedUnitTest attaches a unit test to an assessment with a relative weight.
type WeightedUnitTest struct {
	ID           int64   `json:"id"            db:"id"`
	AssessmentID int64   `json:"assessment_id" db:"assessment_id"`
	UnitTestID   int64   `json:"unit_test_id"  db:"unit_test_id"`
	Weight       float64 `json:"weight"        db:"weight"`
	Secret       bool    `json:"secret"        db:"secret"`
}

// WeightedHandMarking attaches a hand-marking rubric to an assessment with a relative weight.
type WeightedHandMarking struct {
	ID            int64   `json:"id"              db:"id"`
	AssessmentID  int64   `json:"assessment_id"   db:"assessment_id"`
	HandMarkingID int64   `json:"hand_marking_id" db:"hand_marking_id"`
	Weight        float64 `json:"weight"          db:"weight"`
	GroupWork     bool    `json:"group_work"      db:"group_work"`
}

// WeightedCompetition attaches a competition to an assessment with a relative weight.
type WeightedCompetition struct {
	ID            int64   `json:"id"             db:"id"`
	AssessmentID  int64   `json:"assessment_id"  db:"assessment_id"`
	CompetitionID int64   `json:"competition_id" db:"competition_id"`
	Weight        float64 `json:"weight"         db:"weight"`
}

// User is a PASTA account. Group accounts own group results.
type User struct {
	ID           int64     `json:"id"            db:"id"`
	Username     string    `json:"username"      db:"username"`
	GroupAccount bool      `json:"group_account" db:"group_account"`
	CreatedAt    time.Time `json:"created_at"    db:"created_at"`
}
