package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jjstretton/pasta/config"
	"github.com/jjstretton/pasta/internal/adapters/jobrunner"
	"github.com/jjstretton/pasta/internal/adapters/reaper"
	"github.com/jjstretton/pasta/internal/core"
	"github.com/jjstretton/pasta/internal/execution"
	"github.com/jjstretton/pasta/internal/observability/statsd"
)

// AssessmentRunnerConfig contains configuration for the assessment runner.
type AssessmentRunnerConfig struct {
	Scheduler   jobrunner.Scheduler
	Assessments core.AssessmentRepository
	// Executor overrides the command executor built from Execution.
	Executor  execution.Executor
	Runner    config.RunnerConfig
	Execution config.ExecutionConfig
	Logger    *slog.Logger
	Metrics   statsd.Sink
}

// RunAssessmentRunner starts the assessment worker pool and blocks until ctx ends.
func RunAssessmentRunner(ctx context.Context, cfg AssessmentRunnerConfig) error {
	if cfg.Scheduler == nil {
		return errors.New("scheduler is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	executor := cfg.Executor
	if executor == nil {
		executor = execution.NewCommandExecutor(cfg.Execution.Command, cfg.Execution.Args, logger)
	}

	runner, err := jobrunner.NewRunner(jobrunner.RunnerOptions{
		Scheduler:        cfg.Scheduler,
		Executor:         executor,
		Assessments:      cfg.Assessments,
		Logger:           logger,
		Metrics:          cfg.Metrics,
		Lease:            cfg.Runner.JobLease,
		Concurrency:      cfg.Runner.Concurrency,
		PollInterval:     cfg.Runner.PollInterval,
		ExecutionTimeout: cfg.Execution.Timeout,
		ShutdownGrace:    cfg.Runner.ShutdownGrace,
	})
	if err != nil {
		return fmt.Errorf("create assessment runner: %w", err)
	}

	if runErr := runner.Run(ctx); runErr != nil {
		return fmt.Errorf("run assessment runner: %w", runErr)
	}
	return nil
}

// ReaperConfig contains configuration for the reaper service.
type ReaperConfig struct {
	DB      *sql.DB
	Repo    core.ReaperRepository
	Signal  core.JobSignalPublisher
	Logger  *slog.Logger
	Config  config.ReaperConfig
	Metrics statsd.Sink
}

// RunReaper starts the reaper service.
func RunReaper(ctx context.Context, cfg ReaperConfig) error {
	runner, err := reaper.NewRunner(reaper.RunnerOptions{
		DB:      cfg.DB,
		Repo:    cfg.Repo,
		Signal:  cfg.Signal,
		Config:  cfg.Config,
		Logger:  cfg.Logger,
		Metrics: cfg.Metrics,
	})
	if err != nil {
		return fmt.Errorf("create reaper: %w", err)
	}
	return runner.Run(ctx)
}
