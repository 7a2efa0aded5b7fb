package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode names a long-running service a PASTA process can host.
type ServiceMode string

const (
	// ServiceModeRunner admits and executes assessment jobs.
	ServiceModeRunner ServiceMode = "runner"
	// ServiceModeReaper requeues jobs with expired leases and deletes old finished jobs.
	ServiceModeReaper ServiceMode = "reaper"
)

// ValidServiceModes returns every service mode.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{ServiceModeRunner, ServiceModeReaper}
}

// ParseServices parses a comma-delimited service list.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	if strings.TrimSpace(servicesStr) == "" {
		return nil, errors.New("at least one service must be specified")
	}

	services := make(map[ServiceMode]bool)
	for part := range strings.SplitSeq(servicesStr, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		switch mode := ServiceMode(name); mode {
		case ServiceModeRunner, ServiceModeReaper:
			services[mode] = true
		default:
			return nil, fmt.Errorf("invalid service name: %q (valid options: runner, reaper)", name)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}
	return services, nil
}

// RunnerConfig sizes the assessment worker pool.
type RunnerConfig struct {
	// Concurrency is the number of jobs executed at once by this process.
	Concurrency int `env:"RUNNER_CONCURRENCY" envDefault:"2"`

	// JobLease is how long an admitted job stays locked to this process without a heartbeat.
	// Workers heartbeat at half the lease.
	JobLease time.Duration `env:"RUNNER_JOB_LEASE" envDefault:"2m"`

	// PollInterval wakes idle workers even without a notification so future-dated jobs
	// become eligible on time.
	PollInterval time.Duration `env:"RUNNER_POLL_INTERVAL" envDefault:"30s"`

	// ShutdownGrace bounds how long in-flight jobs may finish after shutdown starts.
	ShutdownGrace time.Duration `env:"RUNNER_SHUTDOWN_GRACE" envDefault:"30s"`
}

// Sanitize applies guardrails to runner configuration values.
func (r *RunnerConfig) Sanitize() {
	if r.Concurrency < 1 {
		r.Concurrency = 1
	}
	if r.JobLease < 5*time.Second {
		r.JobLease = 5 * time.Second
	}
	if r.PollInterval < time.Second {
		r.PollInterval = time.Second
	}
	if r.ShutdownGrace < 0 {
		r.ShutdownGrace = 0
	}
}

// ExecutionConfig configures how submissions are executed.
type ExecutionConfig struct {
	// Timeout is the wall-clock limit for one execution unless the assessment overrides it.
	Timeout time.Duration `env:"EXECUTION_TIMEOUT" envDefault:"5m"`

	// Command is the external runner invoked for each job. It must print the outcome
	// as JSON on stdout.
	Command string `env:"EXECUTION_COMMAND" envDefault:"pasta-runner"`

	// Args are passed to Command before the per-job arguments.
	Args []string `env:"EXECUTION_ARGS" envSeparator:" "`

	// SubmissionsDir is the root under which submissions are laid out per user and assessment.
	SubmissionsDir string `env:"EXECUTION_SUBMISSIONS_DIR" envDefault:"/var/lib/pasta/submissions"`

	// RerunGuardTTL stops a second bulk rerun of the same assessment from being accepted
	// while one is in progress.
	RerunGuardTTL time.Duration `env:"EXECUTION_RERUN_GUARD_TTL" envDefault:"10m"`
}

// Sanitize applies guardrails to execution configuration values.
func (e *ExecutionConfig) Sanitize() {
	if e.Timeout <= 0 {
		e.Timeout = 5 * time.Minute
	}
	e.Command = strings.TrimSpace(e.Command)
	e.SubmissionsDir = strings.TrimRight(strings.TrimSpace(e.SubmissionsDir), "/")
	if e.RerunGuardTTL < time.Second {
		e.RerunGuardTTL = time.Second
	}
}

// ReaperConfig contains queue maintenance configuration.
type ReaperConfig struct {
	// Interval is the reaper tick interval.
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"1m"`

	// CompletedMaxAge is how long completed jobs are kept. Results are never deleted.
	CompletedMaxAge time.Duration `env:"REAPER_COMPLETED_MAX_AGE" envDefault:"720h"` // 30 days

	// FailedMaxAge is how long failed jobs are kept for operators to inspect.
	FailedMaxAge time.Duration `env:"REAPER_FAILED_MAX_AGE" envDefault:"2160h"` // 90 days

	// BatchSize is the maximum number of rows touched per statement.
	BatchSize int `env:"REAPER_BATCH_SIZE" envDefault:"500"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *ReaperConfig) Sanitize() {
	if r.Interval < 10*time.Second {
		r.Interval = 10 * time.Second
	}
	if r.CompletedMaxAge < time.Hour {
		r.CompletedMaxAge = time.Hour
	}
	if r.FailedMaxAge < time.Hour {
		r.FailedMaxAge = time.Hour
	}
	if r.BatchSize < 1 {
		r.BatchSize = 1
	}
	if r.BatchSize > 10000 {
		r.BatchSize = 10000
	}
}
