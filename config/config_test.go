package config

import (
	"log/slog"
	"reflect"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{name: "runner", input: "runner", expected: map[ServiceMode]bool{ServiceModeRunner: true}},
		{name: "reaper", input: "reaper", expected: map[ServiceMode]bool{ServiceModeReaper: true}},
		{
			name:     "both with spaces and case",
			input:    " Runner , reaper ",
			expected: map[ServiceMode]bool{ServiceModeRunner: true, ServiceModeReaper: true},
		},
		{name: "duplicates", input: "runner,runner", expected: map[ServiceMode]bool{ServiceModeRunner: true}},
		{name: "empty string", input: "", expectError: true},
		{name: "only commas", input: " , , ", expectError: true},
		{name: "invalid service", input: "runner,http", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseServices(tt.input)
			if tt.expectError {
				if err == nil {
					t.Fatalf("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(result, tt.expected) {
				t.Fatalf("ParseServices(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func parseEnv(t *testing.T, vars map[string]string) AppConfig {
	t.Helper()
	var cfg AppConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	cfg.Sanitize()
	return cfg
}

func TestAppConfigDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	cfg := parseEnv(t, map[string]string{})

	if !cfg.IsRunnerEnabled() || !cfg.IsReaperEnabled() {
		t.Fatalf("expected runner and reaper by default, got %q", cfg.Services)
	}
	if cfg.Runner.Concurrency != 2 {
		t.Fatalf("Runner.Concurrency = %d, want 2", cfg.Runner.Concurrency)
	}
	if cfg.Runner.JobLease != 2*time.Minute {
		t.Fatalf("Runner.JobLease = %s, want 2m", cfg.Runner.JobLease)
	}
	if cfg.Execution.Timeout != 5*time.Minute {
		t.Fatalf("Execution.Timeout = %s, want 5m", cfg.Execution.Timeout)
	}
	if cfg.Notify != NotifyBackendPostgres {
		t.Fatalf("Notify = %q, want postgres", cfg.Notify)
	}
	if cfg.Postgres.Name != "pasta" || cfg.Postgres.Port != 5432 {
		t.Fatalf("unexpected postgres defaults %+v", cfg.Postgres)
	}
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Fatalf("SlogLevel = %s, want info", cfg.SlogLevel())
	}
}

func TestAppConfigFromEnvironment(t *testing.T) {
	cfg := parseEnv(t, map[string]string{
		"SERVICES":                  "runner",
		"RUNNER_CONCURRENCY":        "8",
		"RUNNER_JOB_LEASE":          "90s",
		"EXECUTION_TIMEOUT":         "45s",
		"EXECUTION_COMMAND":         " /usr/local/bin/pasta-runner ",
		"EXECUTION_ARGS":            "--sandbox --quiet",
		"EXECUTION_SUBMISSIONS_DIR": "/srv/pasta/",
		"NOTIFY_BACKEND":            "redis",
		"REDIS_ENABLED":             "true",
		"DB_HOST":                   "db.internal",
		"LOG_LEVEL":                 "warn",
	})

	if cfg.IsReaperEnabled() {
		t.Fatal("reaper should be disabled")
	}
	if cfg.Runner.Concurrency != 8 || cfg.Runner.JobLease != 90*time.Second {
		t.Fatalf("unexpected runner config %+v", cfg.Runner)
	}
	if cfg.Execution.Command != "/usr/local/bin/pasta-runner" {
		t.Fatalf("Execution.Command = %q", cfg.Execution.Command)
	}
	if !reflect.DeepEqual(cfg.Execution.Args, []string{"--sandbox", "--quiet"}) {
		t.Fatalf("Execution.Args = %q", cfg.Execution.Args)
	}
	if cfg.Execution.SubmissionsDir != "/srv/pasta" {
		t.Fatalf("Execution.SubmissionsDir = %q", cfg.Execution.SubmissionsDir)
	}
	if cfg.Notify != NotifyBackendRedis || !cfg.Redis.Enabled {
		t.Fatalf("expected redis notify backend, got %q", cfg.Notify)
	}
	if cfg.Postgres.Host != "db.internal" {
		t.Fatalf("Postgres.Host = %q", cfg.Postgres.Host)
	}
	if cfg.SlogLevel() != slog.LevelWarn {
		t.Fatalf("SlogLevel = %s, want warn", cfg.SlogLevel())
	}
}

func TestSanitizeGuardrails(t *testing.T) {
	cfg := AppConfig{
		Runner:    RunnerConfig{Concurrency: 0, JobLease: time.Second, PollInterval: 0},
		Execution: ExecutionConfig{Timeout: -1},
		Reaper:    ReaperConfig{Interval: time.Second, BatchSize: 50000},
		Notify:    "kafka",
	}
	cfg.Sanitize()

	if cfg.Runner.Concurrency != 1 {
		t.Fatalf("Runner.Concurrency = %d, want 1", cfg.Runner.Concurrency)
	}
	if cfg.Runner.JobLease != 5*time.Second {
		t.Fatalf("Runner.JobLease = %s, want 5s", cfg.Runner.JobLease)
	}
	if cfg.Runner.PollInterval != time.Second {
		t.Fatalf("Runner.PollInterval = %s, want 1s", cfg.Runner.PollInterval)
	}
	if cfg.Execution.Timeout != 5*time.Minute {
		t.Fatalf("Execution.Timeout = %s, want 5m", cfg.Execution.Timeout)
	}
	if cfg.Reaper.Interval != 10*time.Second || cfg.Reaper.BatchSize != 10000 {
		t.Fatalf("unexpected reaper config %+v", cfg.Reaper)
	}
	if cfg.Notify != NotifyBackendPostgres {
		t.Fatalf("Notify = %q, want postgres", cfg.Notify)
	}
	if cfg.Postgres.MaxOpenConns != 2 {
		t.Fatalf("Postgres.MaxOpenConns = %d, want 2", cfg.Postgres.MaxOpenConns)
	}
}

func TestDetectDevMode(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	cfg := AppConfig{}
	cfg.Sanitize()
	if !cfg.IsDev {
		t.Fatal("APP_ENV=development should enable dev mode")
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Fatalf("dev mode should log at debug, got %s", cfg.SlogLevel())
	}
}

func TestNotificationsSanitize(t *testing.T) {
	tests := []struct {
		name      string
		in        ObservabilityNotificationsConfig
		wantSlack bool
		wantPD    bool
	}{
		{
			name: "disabled globally",
			in: ObservabilityNotificationsConfig{
				Slack:     SlackNotificationConfig{Enabled: true, WebhookURL: "https://hooks.example"},
				PagerDuty: PagerDutyNotificationConfig{Enabled: true, RoutingKey: "rk"},
			},
		},
		{
			name: "missing credentials",
			in: ObservabilityNotificationsConfig{
				Enabled:   true,
				Slack:     SlackNotificationConfig{Enabled: true, WebhookURL: "  "},
				PagerDuty: PagerDutyNotificationConfig{Enabled: true},
			},
		},
		{
			name: "both configured",
			in: ObservabilityNotificationsConfig{
				Enabled:   true,
				Slack:     SlackNotificationConfig{Enabled: true, WebhookURL: "https://hooks.example"},
				PagerDuty: PagerDutyNotificationConfig{Enabled: true, RoutingKey: "rk"},
			},
			wantSlack: true,
			wantPD:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.in
			cfg.Sanitize()
			if cfg.Slack.Enabled != tt.wantSlack || cfg.PagerDuty.Enabled != tt.wantPD {
				t.Fatalf("slack=%v pagerduty=%v, want %v %v", cfg.Slack.Enabled, cfg.PagerDuty.Enabled, tt.wantSlack, tt.wantPD)
			}
			if cfg.Slack.Username != "pasta" || cfg.PagerDuty.Source != "pasta" {
				t.Fatalf("defaults not applied: %+v %+v", cfg.Slack, cfg.PagerDuty)
			}
		})
	}
}
