package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jjstretton/pasta/config"
	"github.com/jjstretton/pasta/internal/core"
	"github.com/jjstretton/pasta/internal/domain/model"
	obserrors "github.com/jjstretton/pasta/internal/observability/errors"
	"github.com/jjstretton/pasta/internal/observability/metrics"
	"github.com/jjstretton/pasta/internal/observability/statsd"
)

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Repo    core.ReaperRepository   // Required: reaper repository
	Config  config.ReaperConfig     // Required: reaper configuration
	Signal  core.JobSignalPublisher // Optional: wakes runners after a requeue
	Logger  *slog.Logger            // Optional: structured logger
	Metrics statsd.Sink             // Optional: metrics sink (StatsD-compatible)
}

// ReaperService keeps the job queue healthy.
//
// Each pass:
// - Requeues running jobs whose lease expired, so a crashed worker never keeps a target locked.
// - Deletes old completed jobs. Their results stay.
// - Deletes old failed jobs once operators have had time to inspect them.
type ReaperService struct {
	repo    core.ReaperRepository
	config  config.ReaperConfig
	signal  core.JobSignalPublisher
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Repo == nil {
		return nil, errors.New("ReaperRepository is required")
	}
	if opts.Config.Interval <= 0 {
		return nil, errors.New("reaper interval must be positive")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "reaper_service")
	logger.Debug("ReaperService initialized",
		"interval", opts.Config.Interval,
		"completed_max_age", opts.Config.CompletedMaxAge,
		"failed_max_age", opts.Config.FailedMaxAge,
	)

	return &ReaperService{
		repo:    opts.Repo,
		config:  opts.Config,
		signal:  opts.Signal,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// Run starts the reaper loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *ReaperService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting reaper service", "interval", s.config.Interval)

	// Spread passes when several instances start together.
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if err := s.RunOnce(ctx); err != nil {
		s.logCleanupError(err, "initial cleanup")
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "reaper service stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logCleanupError(err, "cleanup")
			}
		}
	}
}

// waitWithJitter sleeps up to 10% of the interval.
func (s *ReaperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		return
	}
	jitter := time.Duration(int64(binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter))) // #nosec G115 - bounded by maxJitter

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}

// RunOnce performs one maintenance pass. Steps run independently; their errors are joined.
func (s *ReaperService) RunOnce(ctx context.Context) error {
	start := time.Now()
	steps := []struct {
		operation string
		fn        func(context.Context) (int64, error)
	}{
		{operation: "requeue_expired", fn: s.requeueExpired},
		{operation: "delete_completed", fn: s.deleteFinished(model.JobStatusCompleted, s.config.CompletedMaxAge)},
		{operation: "delete_failed", fn: s.deleteFinished(model.JobStatusFailed, s.config.FailedMaxAge)},
	}

	var (
		errs        []error
		allCanceled = true
		total       int64
	)
	for _, step := range steps {
		count, err := step.fn(ctx)
		total += count
		s.emitOperationMetric(step.operation, count, suppressContextCancellation(err))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", step.operation, err))
			allCanceled = allCanceled && isContextCancellation(err)
		}
	}

	var joined error
	if len(errs) > 0 {
		joined = errors.Join(errs...)
	}
	s.emitPassMetric(total, suppressContextCancellation(joined), time.Since(start))

	switch {
	case joined == nil:
		return nil
	case allCanceled:
		return context.Canceled
	default:
		return fmt.Errorf("cleanup failed: %w", joined)
	}
}

func (s *ReaperService) requeueExpired(ctx context.Context) (int64, error) {
	var total int64
	for {
		count, err := s.repo.RequeueExpired(ctx, s.config.BatchSize)
		if err != nil {
			return total, err
		}
		total += count
		if count < int64(s.config.BatchSize) || count == 0 {
			break
		}
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
	}

	if total > 0 {
		s.logger.WarnContext(ctx, "requeued jobs with expired leases", "count", total)
		metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
			Transition: metrics.TransitionRequeue,
			Result:     metrics.ResultSuccess,
		})
		if s.signal != nil {
			if err := s.signal.PublishJobAvailable(ctx, ""); err != nil {
				s.logger.WarnContext(ctx, "failed to publish job availability after requeue", "error", err)
			}
		}
	}
	return total, nil
}

func (s *ReaperService) deleteFinished(status model.JobStatus, maxAge time.Duration) func(context.Context) (int64, error) {
	return func(ctx context.Context) (int64, error) {
		var total int64
		for {
			count, err := s.repo.DeleteFinishedJobs(ctx, core.DeleteFinishedJobsParams{
				Status:    status,
				MaxAge:    maxAge,
				BatchSize: s.config.BatchSize,
			})
			if err != nil {
				return total, err
			}
			total += count
			if count == 0 {
				break
			}
			if ctx.Err() != nil {
				return total, ctx.Err()
			}
		}

		if total > 0 {
			s.logger.InfoContext(ctx, "deleted finished jobs",
				"status", status,
				"count", total,
				"max_age", maxAge,
			)
		}
		return total, nil
	}
}

func (s *ReaperService) emitPassMetric(total int64, err error, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	tags := map[string]string{"result": resultTag(total, err)}
	if err != nil {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}

	s.metrics.Count("reaper.cleanup", 1, tags)
	if elapsed > 0 {
		s.metrics.Timing("reaper.cleanup_duration", elapsed, metrics.CloneTags(tags))
	}
	if err == nil {
		s.metrics.Gauge("reaper.last_success_epoch", float64(time.Now().Unix()), nil)
	}
}

func (s *ReaperService) emitOperationMetric(operation string, count int64, err error) {
	if s.metrics == nil {
		return
	}
	tags := map[string]string{
		"operation": operation,
		"result":    resultTag(count, err),
	}
	if err != nil {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}

	s.metrics.Count("reaper.cleanup_operation", 1, tags)
	if err == nil && count > 0 {
		s.metrics.Count("reaper.jobs_processed", count, metrics.CloneTags(tags))
	}
}

func resultTag(count int64, err error) string {
	switch {
	case err != nil:
		return metrics.ResultError
	case count == 0:
		return metrics.ResultNoop
	default:
		return metrics.ResultSuccess
	}
}

func (s *ReaperService) logCleanupError(err error, label string) {
	if err == nil {
		return
	}
	if isContextCancellation(err) {
		s.logger.Debug(label+" cancelled by context", "error", err)
		return
	}
	s.logger.Error(label+" failed", "error", err)
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func suppressContextCancellation(err error) error {
	if isContextCancellation(err) {
		return nil
	}
	return err
}
