package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// maxDiagnosticBytes caps the runner stderr kept in an ExecutionFailure.
const maxDiagnosticBytes = 8 << 10

// CommandExecutor runs an external runner binary per submission. The runner is invoked as
//
//	<Path> <Args...> --submission <root> --user <username> --assessment <id>
//
// and must print a RawOutcome as JSON on stdout. A non-zero exit is an ExecutionFailure
// carrying the tail of stderr.
type CommandExecutor struct {
	Path   string
	Args   []string
	Dir    string
	Logger *slog.Logger
}

// NewCommandExecutor creates a CommandExecutor for the runner at path.
func NewCommandExecutor(path string, args []string, logger *slog.Logger) *CommandExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandExecutor{Path: path, Args: args, Logger: logger.With("component", "command_executor")}
}

// Execute runs the runner for req. Cancelling ctx kills the process.
func (c *CommandExecutor) Execute(ctx context.Context, req Request) (*RawOutcome, error) {
	if c.Path == "" {
		return nil, errors.New("runner command not configured")
	}

	args := append([]string{}, c.Args...)
	args = append(args,
		"--submission", req.SubmissionRoot,
		"--user", req.Username,
		"--assessment", strconv.FormatInt(req.AssessmentID, 10),
	)
	cmd := exec.CommandContext(ctx, c.Path, args...)
	cmd.Dir = c.Dir
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	c.Logger.DebugContext(ctx, "runner finished",
		"job_id", req.JobID,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err,
	)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil, &ExecutionFailure{
			Reason: fmt.Sprintf("runner exited with status %d", exitErr.ExitCode()),
			Output: tail(stderr.String(), maxDiagnosticBytes),
			Cause:  err,
		}
	}
	if err != nil {
		return nil, fmt.Errorf("start runner: %w", err)
	}

	var outcome RawOutcome
	if err := json.Unmarshal(stdout.Bytes(), &outcome); err != nil {
		return nil, &ExecutionFailure{
			Reason: "runner produced malformed output",
			Output: tail(stdout.String(), maxDiagnosticBytes),
			Cause:  err,
		}
	}
	if !outcome.Compiled {
		return nil, &ExecutionFailure{Reason: "submission did not compile", CompileError: true, Output: outcome.CompileErrors}
	}
	return &outcome, nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
