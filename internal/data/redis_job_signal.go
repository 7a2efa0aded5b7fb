package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jjstretton/pasta/internal/core"
)

// RedisJobSignal carries job-available signals over Redis pub/sub. It is the alternative to
// Postgres LISTEN/NOTIFY for deployments where runners should not hold a database connection
// while idle.
type RedisJobSignal struct {
	client  redis.UniversalClient
	channel string
}

// NewRedisJobSignal creates a signal on the given channel; an empty channel uses JobAvailableChannel.
func NewRedisJobSignal(client redis.UniversalClient, channel string) *RedisJobSignal {
	if channel == "" {
		channel = JobAvailableChannel
	}
	return &RedisJobSignal{client: client, channel: channel}
}

// PublishJobAvailable announces jobID to every waiting runner.
func (s *RedisJobSignal) PublishJobAvailable(ctx context.Context, jobID string) error {
	if err := s.client.Publish(ctx, s.channel, jobID).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", s.channel, err)
	}
	return nil
}

// WaitForJob blocks until one signal arrives or ctx ends.
func (s *RedisJobSignal) WaitForJob(ctx context.Context) error {
	sub := s.client.Subscribe(ctx, s.channel)
	defer func() { _ = sub.Close() }()

	// Receive the subscription confirmation first so a publish right after this point is not missed.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe %s: %w", s.channel, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case _, ok := <-sub.Channel():
		if !ok {
			return errors.New("redis subscription closed")
		}
		return nil
	}
}

var _ core.JobSignalPublisher = (*RedisJobSignal)(nil)
