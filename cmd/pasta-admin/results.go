package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/urfave/cli/v3"

	"github.com/jjstretton/pasta/internal/domain/model"
	"github.com/jjstretton/pasta/internal/service"
)

func (a *app) resultCommand() *cli.Command {
	return &cli.Command{
		Name:  "result",
		Usage: "show results for users on an assessment",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "assessment", Required: true},
			&cli.Int64SliceFlag{Name: "user", Required: true, Usage: "user id; repeat for several users"},
			&cli.BoolFlag{Name: "group", Usage: "include results owned by the users' groups"},
			&cli.BoolFlag{Name: "all", Usage: "every submission instead of only the latest"},
			&cli.BoolFlag{Name: "json", Usage: "print JSON"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			users := uniqueIDs(cmd.Int64Slice("user"))
			if len(users) == 0 {
				return errors.New("at least one --user is required")
			}
			svc, err := a.serviceContainer()
			if err != nil {
				return err
			}
			results, err := fetchResults(ctx, svc.Results, users, cmd.Int64("assessment"), cmd.Bool("group"), cmd.Bool("all"))
			if err != nil {
				return err
			}
			if cmd.Bool("json") {
				return writeJSON(a.out, results)
			}
			return printResults(a.out, results)
		},
	}
}

func (a *app) summaryCommand() *cli.Command {
	return &cli.Command{
		Name:  "summary",
		Usage: "show stored latest-result summaries",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "assessment", Usage: "limit to one assessment"},
			&cli.Int64SliceFlag{Name: "user", Usage: "owner id; repeat for several owners"},
			&cli.BoolFlag{Name: "json", Usage: "print JSON"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			users := uniqueIDs(cmd.Int64Slice("user"))
			assessmentID := cmd.Int64("assessment")
			if len(users) == 0 && assessmentID <= 0 {
				return errors.New("--user or --assessment is required")
			}
			svc, err := a.serviceContainer()
			if err != nil {
				return err
			}
			summaries, err := fetchSummaries(ctx, svc.Results, users, assessmentID)
			if err != nil {
				return err
			}
			if cmd.Bool("json") {
				return writeJSON(a.out, summaries)
			}
			return printSummaries(a.out, summaries)
		},
	}
}

func fetchSummaries(
	ctx context.Context,
	svc *service.ResultService,
	users []int64,
	assessmentID int64,
) ([]*model.ResultSummary, error) {
	if len(users) == 0 {
		return svc.FetchSummariesForAssessment(ctx, assessmentID)
	}
	summaries, err := svc.FetchSummariesForUsers(ctx, users)
	if err != nil {
		return nil, err
	}
	if assessmentID <= 0 {
		return summaries, nil
	}
	return slices.DeleteFunc(summaries, func(s *model.ResultSummary) bool {
		return s.AssessmentID != assessmentID
	}), nil
}

func printSummaries(w io.Writer, summaries []*model.ResultSummary) error {
	if len(summaries) == 0 {
		return writef(w, "no summaries\n")
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "USER\tASSESSMENT\tRESULT\tSUBMITTED\tSCORE\tERROR\tSUBMISSIONS"); err != nil {
		return err
	}
	for _, s := range summaries {
		result := "-"
		if s.ResultID != nil {
			result = fmt.Sprint(*s.ResultID)
		}
		if _, err := fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%.1f%%\t%t\t%d\n",
			s.UserID, s.AssessmentID, result, s.SubmissionDate.Format(time.RFC3339),
			s.Percentage*100, s.Error, s.Submissions); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func fetchResults(
	ctx context.Context,
	svc *service.ResultService,
	users []int64,
	assessmentID int64,
	includeGroup, all bool,
) ([]*model.Result, error) {
	if !all {
		latest, err := svc.FetchLatestForUsers(ctx, users, assessmentID, includeGroup)
		if err != nil {
			return nil, fmt.Errorf("fetch latest results: %w", err)
		}
		out := make([]*model.Result, 0, len(latest))
		for _, id := range users {
			if r, ok := latest[id]; ok {
				out = append(out, r)
			}
		}
		return out, nil
	}

	var out []*model.Result
	for _, id := range users {
		rs, err := svc.FetchAll(ctx, service.FetchParams{
			UserID:       id,
			AssessmentID: assessmentID,
			IncludeGroup: includeGroup,
			Order:        model.LatestFirst,
		})
		if err != nil {
			return nil, fmt.Errorf("fetch results of user %d: %w", id, err)
		}
		out = append(out, rs...)
	}
	return out, nil
}

// uniqueIDs drops duplicate and non-positive ids and sorts the rest.
func uniqueIDs(ids []int64) []int64 {
	set := mapset.NewThreadUnsafeSet[int64]()
	for _, id := range ids {
		if id > 0 {
			set.Add(id)
		}
	}
	out := set.ToSlice()
	slices.Sort(out)
	return out
}

func resultState(r *model.Result) string {
	switch {
	case r.WaitingToRun:
		return "waiting"
	case r.Error:
		return "error"
	default:
		return "done"
	}
}

func casesPassed(r *model.Result) (passed, total int) {
	for i := range r.UnitTests {
		for _, c := range r.UnitTests[i].Cases {
			total++
			if c.Outcome == model.CaseOutcomePass {
				passed++
			}
		}
	}
	return passed, total
}

func printResults(w io.Writer, results []*model.Result) error {
	if len(results) == 0 {
		return writef(w, "no results\n")
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "ID\tUSER\tSUBMITTED\tGROUP\tSTATE\tCASES"); err != nil {
		return err
	}
	for _, r := range results {
		passed, total := casesPassed(r)
		if _, err := fmt.Fprintf(tw, "%d\t%d\t%s\t%t\t%s\t%d/%d\n",
			r.ID, r.UserID, r.SubmissionDate.Format(time.RFC3339), r.GroupResult, resultState(r), passed, total); err != nil {
			return err
		}
	}
	return tw.Flush()
}
