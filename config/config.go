// Package config holds the PASTA runtime configuration, loaded from environment variables.
package config

import (
	"log/slog"
	"os"
	"strings"
)

// AppConfig composes the configuration of every PASTA process.
//
// Values come from environment variables via github.com/caarlos0/env. See the
// domain files for the variables each section reads:
//   - database.go: Postgres and Redis
//   - services.go: service modes, the runner, execution and the reaper
//   - observability.go: metrics and failure notifications
type AppConfig struct {
	// IsDev switches on colour logging at debug level.
	// Set DEV=true or APP_ENV=development.
	IsDev bool `env:"DEV" envDefault:"false"`

	// LogLevel is one of debug, info, warn, error. Dev mode forces debug.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	// Services is a comma-delimited list of service modes to run in this process.
	Services string `env:"SERVICES" envDefault:"runner,reaper"`

	Runner    RunnerConfig
	Execution ExecutionConfig
	Reaper    ReaperConfig

	// Notify selects the job-available signal backend: postgres or redis.
	Notify NotifyBackend `env:"NOTIFY_BACKEND" envDefault:"postgres"`

	Observability ObservabilityConfig
}

// Sanitize applies guardrails to values loaded from the environment.
func (c *AppConfig) Sanitize() {
	c.Postgres.Sanitize()
	c.Runner.Sanitize()
	c.Execution.Sanitize()
	c.Reaper.Sanitize()
	c.Observability.Sanitize()
	if !c.Notify.Valid() {
		c.Notify = NotifyBackendPostgres
	}
	c.detectDevMode()
}

func (c *AppConfig) detectDevMode() {
	if c.IsDev {
		return
	}
	appEnv := strings.ToLower(strings.TrimSpace(os.Getenv("APP_ENV")))
	c.IsDev = appEnv == "development" || appEnv == "dev"
}

// SlogLevel resolves LogLevel, defaulting to info.
func (c *AppConfig) SlogLevel() slog.Level {
	if c.IsDev {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// GetEnabledServices parses Services.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// IsRunnerEnabled reports whether this process runs assessment jobs.
func (c *AppConfig) IsRunnerEnabled() bool {
	services, err := c.GetEnabledServices()
	return err == nil && services[ServiceModeRunner]
}

// IsReaperEnabled reports whether this process runs queue maintenance.
func (c *AppConfig) IsReaperEnabled() bool {
	services, err := c.GetEnabledServices()
	return err == nil && services[ServiceModeReaper]
}

// NotifyBackend selects how idle runners learn that a job was queued.
type NotifyBackend string

const (
	NotifyBackendPostgres NotifyBackend = "postgres"
	NotifyBackendRedis    NotifyBackend = "redis"
)

// Valid reports whether b is a known backend.
func (b NotifyBackend) Valid() bool {
	return b == NotifyBackendPostgres || b == NotifyBackendRedis
}
