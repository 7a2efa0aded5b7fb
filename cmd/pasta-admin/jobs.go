package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/jjstretton/pasta/internal/domain/model"
)

func (a *app) enqueueCommand() *cli.Command {
	return &cli.Command{
		Name:  "enqueue",
		Usage: "queue a submission for execution",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "user", Required: true, Usage: "submitting user id"},
			&cli.Int64Flag{Name: "assessment", Required: true, Usage: "assessment id"},
			&cli.StringFlag{Name: "run-at", Usage: "submission time (RFC 3339); defaults to now"},
			&cli.StringFlag{Name: "submission", Usage: "submission directory; defaults to the derived path"},
			&cli.BoolFlag{Name: "waiting", Usage: "create a waiting-to-run placeholder result"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			runAt, err := parseRunAt(cmd.String("run-at"), time.Now())
			if err != nil {
				return err
			}
			svc, err := a.serviceContainer()
			if err != nil {
				return err
			}
			job, err := svc.Scheduler.Enqueue(ctx, &model.EnqueueRequest{
				UserID:              cmd.Int64("user"),
				AssessmentID:        cmd.Int64("assessment"),
				SubmissionRef:       cmd.String("submission"),
				RunAt:               runAt,
				CreateWaitingResult: cmd.Bool("waiting"),
			})
			if err != nil {
				return fmt.Errorf("enqueue: %w", err)
			}
			return writef(a.out, "enqueued job %s for user %d on assessment %d at %s\n",
				job.ID, job.UserID, job.AssessmentID, job.RunAt.Format(time.RFC3339))
		},
	}
}

func (a *app) withdrawCommand() *cli.Command {
	return &cli.Command{
		Name:  "withdraw",
		Usage: "remove a queued job before it runs",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "user", Required: true},
			&cli.Int64Flag{Name: "assessment", Required: true},
			&cli.StringFlag{Name: "run-at", Required: true, Usage: "submission time (RFC 3339)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			raw := cmd.String("run-at")
			if raw == "" {
				return errRunAtRequired
			}
			runAt, err := parseRunAt(raw, time.Time{})
			if err != nil {
				return err
			}
			svc, err := a.serviceContainer()
			if err != nil {
				return err
			}
			ok, err := svc.Scheduler.Withdraw(ctx, model.JobKey{
				UserID:       cmd.Int64("user"),
				AssessmentID: cmd.Int64("assessment"),
				RunAt:        runAt,
			})
			if err != nil {
				return fmt.Errorf("withdraw: %w", err)
			}
			if !ok {
				return writef(a.out, "no queued job matched; it may already be running or finished\n")
			}
			return writef(a.out, "withdrawn\n")
		},
	}
}

func (a *app) rerunCommand() *cli.Command {
	return &cli.Command{
		Name:  "rerun",
		Usage: "re-execute the latest submission of every user on an assessment",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "assessment", Required: true},
			&cli.StringFlag{Name: "run-at", Usage: "rerun time (RFC 3339); defaults to now"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			runAt, err := parseRunAt(cmd.String("run-at"), time.Now())
			if err != nil {
				return err
			}
			svc, err := a.serviceContainer()
			if err != nil {
				return err
			}
			summary, err := svc.Scheduler.RerunAssessment(ctx, cmd.Int64("assessment"), runAt)
			if err != nil {
				return fmt.Errorf("rerun: %w", err)
			}
			return writef(a.out, "assessment %d rerun at %s: %d enqueued, %d duplicate, %d skipped\n",
				summary.AssessmentID, summary.RunAt.Format(time.RFC3339),
				summary.Enqueued, summary.Duplicates, summary.Skipped)
		},
	}
}

func (a *app) statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "show job counts by status",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print JSON"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			svc, err := a.serviceContainer()
			if err != nil {
				return err
			}
			stats, err := svc.Scheduler.Stats(ctx)
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}
			if cmd.Bool("json") {
				return writeJSON(a.out, stats)
			}
			return printStats(a.out, stats)
		},
	}
}

func (a *app) failedCommand() *cli.Command {
	return &cli.Command{
		Name:  "failed",
		Usage: "list failed jobs, most recent first",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "limit", Value: 20},
			&cli.Int64Flag{Name: "offset", Value: 0},
			&cli.BoolFlag{Name: "json", Usage: "print JSON"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			limit, offset := int(cmd.Int64("limit")), int(cmd.Int64("offset"))
			if limit <= 0 || offset < 0 {
				return errors.New("--limit must be positive and --offset non-negative")
			}
			svc, err := a.serviceContainer()
			if err != nil {
				return err
			}
			jobs, err := svc.Scheduler.ListFailed(ctx, limit, offset)
			if err != nil {
				return fmt.Errorf("list failed: %w", err)
			}
			if cmd.Bool("json") {
				return writeJSON(a.out, jobs)
			}
			return printJobs(a.out, jobs)
		},
	}
}

func printStats(w io.Writer, stats *model.JobStats) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	rows := []struct {
		label string
		n     int64
	}{
		{"queued", stats.Queued},
		{"running", stats.Running},
		{"completed", stats.Completed},
		{"failed", stats.Failed},
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(tw, "%s\t%d\n", row.label, row.n); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func printJobs(w io.Writer, jobs []*model.AssessmentJob) error {
	if len(jobs) == 0 {
		return writef(w, "no jobs\n")
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "ID\tUSER\tASSESSMENT\tRUN AT\tATTEMPTS\tLAST ERROR"); err != nil {
		return err
	}
	for _, j := range jobs {
		lastErr := "-"
		if j.LastError != nil && *j.LastError != "" {
			lastErr = truncate(*j.LastError, 60)
		}
		if _, err := fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%d\t%s\n",
			j.ID, j.UserID, j.AssessmentID, j.RunAt.Format(time.RFC3339), j.Attempts, lastErr); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
