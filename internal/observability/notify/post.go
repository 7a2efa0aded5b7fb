package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// maxErrorBody bounds how much of an error response is kept in the returned error.
const maxErrorBody = 2 << 10

// Poster sends JSON bodies to an HTTP endpoint, retrying transient failures.
type Poster struct {
	Name       string
	Client     *http.Client
	RetryLimit int
	// InitialInterval is the first retry delay; it doubles on every attempt.
	InitialInterval time.Duration
}

// Post delivers body to url. 4xx responses other than 429 are not retried.
func (p Poster) Post(ctx context.Context, url string, body []byte) error {
	interval := p.InitialInterval
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = interval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, p.once(ctx, url, body)
	},
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(uint(max(p.RetryLimit, 0)+1)),
	)
	return err
}

func (p Poster) once(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("create %s request: %w", p.Name, err))
	}
	req.Header.Set("Content-Type", "application/json")

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", p.Name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if _, err := io.Copy(io.Discard, resp.Body); err != nil {
			return backoff.Permanent(fmt.Errorf("drain %s response body: %w", p.Name, err))
		}
		return nil
	}

	msg, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	statusErr := fmt.Errorf("%s %s: %s", p.Name, resp.Status, strings.TrimSpace(string(msg)))
	if readErr != nil {
		statusErr = errors.Join(statusErr, fmt.Errorf("read %s error response: %w", p.Name, readErr))
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return backoff.Permanent(statusErr)
	}
	return statusErr
}
