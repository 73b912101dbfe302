package llm

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"factbench/internal/logging"
)

// RetryConfig configures request retries with exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Factor       float64
	Jitter       bool
}

// DefaultRetryConfig returns three attempts starting at one second.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Factor:       2.0,
		Jitter:       true,
	}
}

// permanentError marks a failure that retrying cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so retry loops stop immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err, or anything it wraps, was marked Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

type retryClient struct {
	next Client
	cfg  RetryConfig
	log  *slog.Logger
}

// WithRetry wraps c so failed requests are retried with backoff.
func WithRetry(c Client, cfg RetryConfig, logger *slog.Logger) Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * time.Second
	}
	if cfg.Factor <= 0 {
		cfg.Factor = 2.0
	}
	return &retryClient{next: c, cfg: cfg, log: logging.OrDiscard(logger)}
}

func (r *retryClient) Invoke(ctx context.Context, msgs []Message) (*Response, error) {
	delay := r.cfg.InitialDelay
	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, err := r.next.Invoke(ctx, msgs)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if IsPermanent(err) || attempt == r.cfg.MaxAttempts {
			break
		}

		sleep := delay
		if r.cfg.Jitter {
			sleep = time.Duration(float64(delay) * (0.5 + rand.Float64())) // #nosec G404 -- jitter only
		}
		r.log.Warn("model request failed, retrying", "attempt", attempt, "max", r.cfg.MaxAttempts, "wait", sleep, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
		delay = time.Duration(float64(delay) * r.cfg.Factor)
		if delay > r.cfg.MaxDelay {
			delay = r.cfg.MaxDelay
		}
	}
	return nil, lastErr
}
