package model

import "time"

// CaseOutcome is the outcome of a single unit test case.
type CaseOutcome string

const (
	CaseOutcomePass    CaseOutcome = "pass"
	CaseOutcomeFailure CaseOutcome = "failure"
	CaseOutcomeError   CaseOutcome = "error"
)

// Valid returns true if the CaseOutcome is known.
func (o CaseOutcome) Valid() bool {
	return o == CaseOutcomePass || o == CaseOutcomeFailure || o == CaseOutcomeError
}

// Result is the stored outcome of one submission against one assessment.
type Result struct {
	ID             int64               `json:"id"              db:"id"`
	UserID         int64               `json:"user_id"         db:"user_id"`
	AssessmentID   int64               `json:"assessment_id"   db:"assessment_id"`
	SubmissionDate time.Time           `json:"submission_date" db:"submission_date"`
	SubmittedBy    int64               `json:"submitted_by"    db:"submitted_by"`
	GroupResult    bool                `json:"group_result"    db:"group_result"`
	Error          bool                `json:"error"           db:"error"`
	WaitingToRun   bool                `json:"waiting_to_run"  db:"waiting_to_run"`
	UnitTests      []UnitTestResult    `json:"unit_tests"`
	HandMarking    []HandMarkingResult `json:"hand_marking"`
	CreatedAt      time.Time           `json:"created_at"      db:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"      db:"updated_at"`
}

// UnitTestResult groups the case outcomes for one weighted unit test.
type UnitTestResult struct {
	ID                 int64                `json:"id"                    db:"id"`
	ResultID           int64                `json:"result_id"             db:"result_id"`
	WeightedUnitTestID int64                `json:"weighted_unit_test_id" db:"weighted_unit_test_id"`
	Compiled           bool                 `json:"compiled"              db:"compiled"`
	CompileErrors      string               `json:"compile_errors"        db:"compile_errors"`
	RuntimeErrors      string               `json:"runtime_errors"        db:"runtime_errors"`
	Cases              []UnitTestCaseResult `json:"cases"`
}

// PassFraction returns the share of passing cases, or zero when nothing ran.
func (u *UnitTestResult) PassFraction() float64 {
	if len(u.Cases) == 0 {
		return 0
	}
	passed := 0
	for _, c := range u.Cases {
		if c.Outcome == CaseOutcomePass {
			passed++
		}
	}
	return float64(passed) / float64(len(u.Cases))
}

// UnitTestCaseResult is one executed test case.
type UnitTestCaseResult struct {
	ID               int64       `json:"id"                  db:"id"`
	UnitTestResultID int64       `json:"unit_test_result_id" db:"unit_test_result_id"`
	Name             string      `json:"name"                db:"name"`
	Outcome          CaseOutcome `json:"outcome"             db:"outcome"`
	Message          string      `json:"message"             db:"message"`
	Type             string      `json:"type"                db:"type"`
	ExtendedMessage  string      `json:"extended_message"    db:"extended_message"`
	Seconds          float64     `json:"seconds"             db:"seconds"`
}

// HandMarkingResult is the rubric line item for one weighted hand marking.
// Score is nil until a marker has filled it in.
type HandMarkingResult struct {
	ID                    int64    `json:"id"                       db:"id"`
	ResultID              int64    `json:"result_id"                db:"result_id"`
	WeightedHandMarkingID int64    `json:"weighted_hand_marking_id" db:"weighted_hand_marking_id"`
	Score                 *float64 `json:"score,omitempty"          db:"score"`
	Comments              string   `json:"comments"                 db:"comments"`
}

// ScoreFraction computes the realised score for the result against def.
// Weights may add up to more than one; the total is capped at 1.
func (r *Result) ScoreFraction(def *AssessmentDefinition) float64 {
	if r == nil || def == nil || r.Error {
		return 0
	}

	unitWeights := make(map[int64]float64, len(def.UnitTests))
	for _, wut := range def.UnitTests {
		unitWeights[wut.ID] = wut.Weight
	}
	handWeights := make(map[int64]float64, len(def.HandMarking))
	for _, whm := range def.HandMarking {
		handWeights[whm.ID] = whm.Weight
	}

	var total float64
	for i := range r.UnitTests {
		total += unitWeights[r.UnitTests[i].WeightedUnitTestID] * r.UnitTests[i].PassFraction()
	}
	for _, hm := range r.HandMarking {
		if hm.Score == nil {
			continue
		}
		total += handWeights[hm.WeightedHandMarkingID] * *hm.Score
	}

	if total > 1 {
		return 1
	}
	return total
}

// ResultSummary is the stored digest of an owner's latest result on an assessment.
// It is refreshed in the transaction that completes a job.
type ResultSummary struct {
	UserID         int64     `json:"user_id"         db:"user_id"`
	AssessmentID   int64     `json:"assessment_id"   db:"assessment_id"`
	ResultID       *int64    `json:"result_id"       db:"result_id"`
	SubmissionDate time.Time `json:"submission_date" db:"submission_date"`
	// Percentage is the realised score fraction of the latest result, in [0, 1].
	Percentage  float64   `json:"percentage"  db:"percentage"`
	Error       bool      `json:"error"       db:"error"`
	Submissions int       `json:"submissions" db:"submissions"`
	UpdatedAt   time.Time `json:"updated_at"  db:"updated_at"`
}

// ResultOrder selects the submission-date ordering of result listings.
type ResultOrder int

const (
	OldestFirst ResultOrder = iota
	LatestFirst
)

// ResultQuery selects results for one user on one assessment.
type ResultQuery struct {
	UserID       int64
	AssessmentID int64
	// IncludeGroup also matches results owned by the groups listed in GroupIDs.
	IncludeGroup bool
	GroupIDs     []int64
	Order        ResultOrder
}

// OwnerIDs returns the user ids whose results match the query.
func (q ResultQuery) OwnerIDs() []int64 {
	ids := []int64{q.UserID}
	if q.IncludeGroup {
		ids = append(ids, q.GroupIDs...)
	}
	return ids
}
