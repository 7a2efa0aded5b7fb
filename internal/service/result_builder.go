package service

import (
	"time"

	"github.com/jjstretton/pasta/internal/domain/model"
	"github.com/jjstretton/pasta/internal/execution"
)

// missingOutcomeMessage marks a weighted unit test the runner did not report on.
const missingOutcomeMessage = "the runner reported no outcome for this unit test"

// resultInput carries what buildResult needs besides the outcome.
type resultInput struct {
	Job   *model.AssessmentJob
	Def   *model.AssessmentDefinition
	Group bool
	Now   time.Time
}

// buildResult turns a raw runner outcome into a result with one unit test row per weighted
// unit test of the assessment. Outcomes for unit tests that are no longer attached are dropped.
func buildResult(in resultInput, outcome *execution.RawOutcome) *model.Result {
	res := newResult(in)

	reported := make(map[int64]execution.UnitTestOutcome, len(outcome.UnitTests))
	for _, ut := range outcome.UnitTests {
		if _, dup := reported[ut.WeightedUnitTestID]; !dup {
			reported[ut.WeightedUnitTestID] = ut
		}
	}

	for _, wut := range in.Def.UnitTests {
		ut, ok := reported[wut.ID]
		if !ok {
			res.UnitTests = append(res.UnitTests, model.UnitTestResult{
				WeightedUnitTestID: wut.ID,
				Compiled:           outcome.Compiled,
				RuntimeErrors:      missingOutcomeMessage,
			})
			continue
		}
		row := model.UnitTestResult{
			WeightedUnitTestID: wut.ID,
			Compiled:           ut.Compiled,
			CompileErrors:      ut.CompileErrors,
			RuntimeErrors:      ut.RuntimeErrors,
			Cases:              make([]model.UnitTestCaseResult, 0, len(ut.Cases)),
		}
		for _, c := range ut.Cases {
			o := c.Outcome
			if !o.Valid() {
				o = model.CaseOutcomeError
			}
			row.Cases = append(row.Cases, model.UnitTestCaseResult{
				Name:            c.Name,
				Outcome:         o,
				Message:         c.Message,
				Type:            c.Type,
				ExtendedMessage: c.ExtendedMessage,
				Seconds:         c.Seconds,
			})
		}
		res.UnitTests = append(res.UnitTests, row)
	}
	return res
}

// buildErrorResult records an execution that could not run to completion. Every weighted
// unit test gets a row with no cases so the diagnostic is visible per test, and compile
// failures are recognisable when counting submissions.
func buildErrorResult(in resultInput, failure *execution.ExecutionFailure) *model.Result {
	res := newResult(in)
	res.Error = true

	output := failure.Output
	if output == "" {
		output = failure.Reason
	}
	for _, wut := range in.Def.UnitTests {
		row := model.UnitTestResult{WeightedUnitTestID: wut.ID, Compiled: !failure.CompileError}
		if failure.CompileError {
			row.CompileErrors = output
		} else {
			row.RuntimeErrors = output
		}
		res.UnitTests = append(res.UnitTests, row)
	}
	return res
}

func newResult(in resultInput) *model.Result {
	return &model.Result{
		UserID:         in.Job.UserID,
		AssessmentID:   in.Job.AssessmentID,
		SubmissionDate: in.Job.RunAt,
		SubmittedBy:    in.Job.UserID,
		GroupResult:    in.Group,
		CreatedAt:      in.Now,
		UpdatedAt:      in.Now,
	}
}
