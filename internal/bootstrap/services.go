package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jjstretton/pasta/config"
	"github.com/jjstretton/pasta/internal/core"
	"github.com/jjstretton/pasta/internal/data"
	domainjob "github.com/jjstretton/pasta/internal/domain/job"
	"github.com/jjstretton/pasta/internal/observability/notify/pagerduty"
	"github.com/jjstretton/pasta/internal/observability/notify/slack"
	"github.com/jjstretton/pasta/internal/observability/statsd"
	"github.com/jjstretton/pasta/internal/service"
	"github.com/jjstretton/pasta/internal/service/failurenotifier"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Scheduler     *service.SchedulerService
	Results       *service.ResultService
	Repos         *Repositories
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink     *statsd.Client
	MetricsConfig   config.ObservabilityMetricsConfig
	FailureNotifier *failurenotifier.Service
	NotifierConfig  config.ObservabilityNotificationsConfig
}

// Sink returns the metrics sink, or nil when metrics are disabled.
//
//nolint:ireturn // a nil *statsd.Client must become a nil interface.
func (o ObservabilityContainer) Sink() statsd.Sink {
	if o.MetricsSink == nil {
		return nil
	}
	return o.MetricsSink
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// Repositories groups the data adapters backing service ports.
type Repositories struct {
	Jobs        *data.AssessmentJobRepo
	Results     *data.ResultRepo
	Assessments *data.AssessmentRepo
	Users       *data.UserRepo

	// Cache and Signal are nil without Redis.
	Cache  core.CacheRepository
	Signal core.JobSignalPublisher
	// Waiter delivers job-available signals to the notifier: Postgres LISTEN or Redis
	// pub/sub depending on NOTIFY_BACKEND.
	Waiter domainjob.Waiter
}

// buildObservability configures metrics and notification adapters.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  cfg.Metrics.Prefix,
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	return ObservabilityContainer{
		MetricsSink:     metricsSink,
		MetricsConfig:   cfg.Metrics,
		FailureNotifier: buildFailureNotifier(obsLogger, cfg.Notifications),
		NotifierConfig:  cfg.Notifications,
	}
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(db *sql.DB, rdb redis.UniversalClient, cfg *config.AppConfig, logger *slog.Logger) *Repositories {
	repoCfg := data.RepoConfig{Logger: logger}
	repos := &Repositories{
		Jobs:        data.NewAssessmentJobRepo(db, repoCfg),
		Results:     data.NewResultRepo(db, repoCfg),
		Assessments: data.NewAssessmentRepo(db, repoCfg),
		Users:       data.NewUserRepo(db),
	}
	repos.Waiter = repos.Jobs

	if rdb == nil {
		return repos
	}

	prefix, channel := "", ""
	backend := config.NotifyBackendPostgres
	if cfg != nil {
		prefix = cfg.Redis.KeyPrefix
		channel = cfg.Redis.Channel
		backend = cfg.Notify
	}
	repos.Cache = data.NewRedisCacheRepo(rdb, prefix)
	if backend == config.NotifyBackendRedis {
		sig := data.NewRedisJobSignal(rdb, channel)
		repos.Signal = sig
		repos.Waiter = sig
	}
	return repos
}

// NewServices wires the domain services.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.DB == nil {
		return ServiceContainer{}, errors.New("database connection is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config
	if cfg == nil {
		cfg = &config.AppConfig{}
	}

	observability := buildObservability(logger, cfg.Observability)
	repos := buildRepositories(deps.DB, deps.RedisClient, cfg, logger)
	if deps.RedisClient == nil && cfg.Notify == config.NotifyBackendRedis {
		logger.Warn("NOTIFY_BACKEND=redis without Redis; falling back to postgres LISTEN/NOTIFY")
	}

	scheduler, err := service.NewSchedulerService(service.SchedulerServiceOptions{
		Jobs:         repos.Jobs,
		Results:      repos.Results,
		Assessments:  repos.Assessments,
		Users:        repos.Users,
		DefaultLease: cfg.Runner.JobLease,
		NotifierOptions: domainjob.NotifierOptions{
			Waiter:     repos.Waiter,
			WaitWindow: cfg.Runner.PollInterval,
		},
		Signal:          repos.Signal,
		Cache:           repos.Cache,
		FailureNotifier: observability.FailureNotifier,
		Metrics:         observability.Sink(),
		Logger:          logger,
		SubmissionsDir:  cfg.Execution.SubmissionsDir,
		RerunGuardTTL:   cfg.Execution.RerunGuardTTL,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("scheduler service: %w", err)
	}

	results, err := service.NewResultService(service.ResultServiceOptions{
		Results:     repos.Results,
		Assessments: repos.Assessments,
		Metrics:     observability.Sink(),
		Logger:      logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("result service: %w", err)
	}

	return ServiceContainer{
		Scheduler:     scheduler,
		Results:       results,
		Repos:         repos,
		Observability: observability,
	}, nil
}

func buildFailureNotifier(logger *slog.Logger, cfg config.ObservabilityNotificationsConfig) *failurenotifier.Service {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = slog.Default()
	}

	if !cfg.Enabled {
		return failurenotifier.NewService(failurenotifier.Options{Logger: baseLogger})
	}

	sinks := make([]failurenotifier.SinkRegistration, 0, 2)

	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL:      cfg.Slack.WebhookURL,
			Channel:         cfg.Slack.Channel,
			Username:        cfg.Slack.Username,
			Timeout:         cfg.Timeout,
			RetryLimit:      cfg.RetryLimit,
			ResultURLPrefix: cfg.Slack.ResultURLPrefix,
		})
		if err != nil {
			baseLogger.Error("failed to initialise slack notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{Name: "slack", Sink: client})
		}
	}

	if cfg.PagerDuty.Enabled {
		client, err := pagerduty.NewClient(pagerduty.Config{
			RoutingKey: cfg.PagerDuty.RoutingKey,
			Source:     cfg.PagerDuty.Source,
			Component:  cfg.PagerDuty.Component,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			baseLogger.Error("failed to initialise pagerduty notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{Name: "pagerduty", Sink: client})
		}
	}

	return failurenotifier.NewService(failurenotifier.Options{
		Logger:      baseLogger,
		Sinks:       sinks,
		Timeout:     cfg.Timeout * time.Duration(cfg.RetryLimit+1),
		LogFallback: true,
	})
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

const (
	// shutdownWaitTimeout is added to the runner's shutdown grace when waiting for services.
	shutdownWaitTimeout = 15 * time.Second
)

// serviceStartupDeps groups dependencies for service startup.
type serviceStartupDeps struct {
	ctx             context.Context
	cfg             *ServiceOrchestrationConfig
	logger          *slog.Logger
	enabledServices map[config.ServiceMode]bool
	errCh           chan error
}

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	mode config.ServiceMode
	name string
	done <-chan struct{}
}

func launchBackground(ctx context.Context, deps *serviceStartupDeps, descriptor backgroundService) <-chan struct{} {
	if deps == nil || !deps.enabledServices[descriptor.mode] {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		err := descriptor.start(ctx)
		if err == nil || (errors.Is(err, context.Canceled) && ctx.Err() != nil) {
			return
		}
		errMsg := fmt.Errorf("%s failed: %w", descriptor.name, err)
		select {
		case deps.errCh <- errMsg:
		case <-ctx.Done():
		default:
			deps.logger.WarnContext(ctx, "dropping background service error",
				"service", descriptor.name,
				"error", errMsg,
			)
		}
	}()

	deps.logger.InfoContext(ctx, "background service started", "service", descriptor.name, "mode", descriptor.mode)
	return done
}

func startBackgroundServices(deps *serviceStartupDeps, services []backgroundService) []backgroundServiceHandle {
	if deps == nil {
		return nil
	}
	handles := make([]backgroundServiceHandle, 0, len(services))
	for _, svc := range services {
		done := launchBackground(deps.ctx, deps, svc)
		if done == nil {
			continue
		}
		handles = append(handles, backgroundServiceHandle{mode: svc.mode, name: svc.name, done: done})
	}
	return handles
}

func newRunnerBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeRunner,
		name: "assessment runner",
		start: func(ctx context.Context) error {
			appCfg := deps.cfg.Config
			services := deps.cfg.Services
			return RunAssessmentRunner(ctx, AssessmentRunnerConfig{
				Scheduler:   services.Scheduler,
				Assessments: services.Repos.Assessments,
				Runner:      appCfg.Runner,
				Execution:   appCfg.Execution,
				Logger:      deps.logger,
				Metrics:     services.Observability.Sink(),
			})
		},
	}
}

func newReaperBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeReaper,
		name: "reaper",
		start: func(ctx context.Context) error {
			return RunReaper(ctx, ReaperConfig{
				DB:      deps.cfg.DB,
				Repo:    deps.cfg.Services.Repos.Jobs,
				Signal:  deps.cfg.Services.Repos.Signal,
				Logger:  deps.logger,
				Config:  deps.cfg.Config.Reaper,
				Metrics: deps.cfg.Services.Observability.Sink(),
			})
		},
	}
}

func buildBackgroundServices(deps *serviceStartupDeps) []backgroundService {
	if deps == nil {
		return nil
	}
	return []backgroundService{
		newRunnerBackgroundService(deps),
		newReaperBackgroundService(deps),
	}
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// This function blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}
	if cfg.Services.Scheduler == nil || cfg.Services.Repos == nil {
		return errors.New("service orchestration config missing services")
	}

	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}
	errCh := make(chan error, errorChannelBufferSize(enabledServices))

	deps := &serviceStartupDeps{
		ctx:             serviceCtx,
		cfg:             cfg,
		logger:          logger,
		enabledServices: enabledServices,
		errCh:           errCh,
	}
	backgrounds := startBackgroundServices(deps, buildBackgroundServices(deps))

	return waitForShutdown(shutdownConfig{
		cancel:      cancel,
		errCh:       errCh,
		scheduler:   cfg.Services.Scheduler,
		logger:      logger,
		backgrounds: backgrounds,
		wait:        cfg.Config.Runner.ShutdownGrace + shutdownWaitTimeout,
	})
}

func errorChannelCapacity(enabled map[config.ServiceMode]bool) int {
	count := 0
	for _, mode := range config.ValidServiceModes() {
		if enabled[mode] {
			count++
		}
	}
	return count
}

func errorChannelBufferSize(enabled map[config.ServiceMode]bool) int {
	return errorChannelCapacity(enabled) + 1
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	cancel      context.CancelFunc
	errCh       <-chan error
	scheduler   *service.SchedulerService
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
	wait        time.Duration
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel()
		gracefulStop(cfg)
		return nil
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel()
		gracefulStop(cfg)
		return err
	}
}

// gracefulStop stops the job-available listeners and waits for background services.
func gracefulStop(cfg shutdownConfig) {
	if cfg.scheduler != nil {
		cfg.scheduler.StopAllListeners()
	}
	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.wait, cfg.logger)
	}
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, timeout time.Duration, logger *slog.Logger) {
	if done == nil {
		return
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-timer.C:
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
