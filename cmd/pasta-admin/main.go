// Command pasta-admin is the operator CLI for the assessment queue and results.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"

	"github.com/jjstretton/pasta/config"
	"github.com/jjstretton/pasta/internal/bootstrap"
)

const defaultMigrationTimeout = 5 * time.Minute

// app holds state shared by every command. Infrastructure is connected lazily so commands
// like --help never touch the database.
type app struct {
	logger *slog.Logger
	cfg    config.AppConfig
	out    io.Writer

	db       *sql.DB
	redis    redis.UniversalClient
	services *bootstrap.ServiceContainer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{logger: bootstrap.InitLogger(nil), out: os.Stdout}
	if err := a.command().Run(ctx, os.Args); err != nil {
		a.logger.ErrorContext(ctx, "command failed", "error", err)
		stop()
		os.Exit(1) //nolint:forbidigo // CLI must propagate command failure to callers
	}
}

func (a *app) command() *cli.Command {
	return &cli.Command{
		Name:   "pasta-admin",
		Usage:  "inspect and operate the PASTA assessment queue",
		Writer: a.out,
		Before: a.loadConfig,
		After:  a.close,
		Commands: []*cli.Command{
			a.migrateCommand(),
			a.enqueueCommand(),
			a.withdrawCommand(),
			a.rerunCommand(),
			a.statsCommand(),
			a.failedCommand(),
			a.resultCommand(),
			a.summaryCommand(),
		},
	}
}

func (a *app) loadConfig(ctx context.Context, _ *cli.Command) (context.Context, error) {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return ctx, fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg
	a.logger = bootstrap.InitLogger(&cfg)
	return ctx, nil
}

func (a *app) close(context.Context, *cli.Command) error {
	if a.services != nil && a.services.Scheduler != nil {
		a.services.Scheduler.StopAllListeners()
	}
	return closeInfra(a.db, a.redis)
}

func (a *app) connect() error {
	if a.db != nil {
		return nil
	}
	db, redisClient, err := connectInfra(a.logger, &a.cfg)
	if err != nil {
		return err
	}
	a.db, a.redis = db, redisClient
	return nil
}

func (a *app) serviceContainer() (*bootstrap.ServiceContainer, error) {
	if a.services != nil {
		return a.services, nil
	}
	if err := a.connect(); err != nil {
		return nil, err
	}
	services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:      &a.cfg,
		DB:          a.db,
		RedisClient: a.redis,
		Logger:      a.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("wire services: %w", err)
	}
	a.services = &services
	return a.services, nil
}

func (a *app) migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply pending database migrations",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "timeout", Value: defaultMigrationTimeout, Usage: "migration deadline"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := a.connect(); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
			defer cancel()
			if err := bootstrap.RunMigrations(ctx, a.db, a.logger); err != nil {
				return err
			}
			return writef(a.out, "migrations applied\n")
		},
	}
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

// parseRunAt parses an RFC 3339 run time. An empty value means now, truncated to the second
// so the job key matches the submission directory name.
func parseRunAt(value string, now time.Time) (time.Time, error) {
	if value == "" {
		return now.UTC().Truncate(time.Second), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --run-at %q: want RFC 3339, e.g. 2024-03-11T09:30:00Z", value)
	}
	return t.UTC(), nil
}

var errRunAtRequired = errors.New("--run-at is required")
