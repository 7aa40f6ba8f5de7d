package provider

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/pikestaff/cartridge/internal/metrics"
)

// GateConfig controls request pacing toward a provider.
type GateConfig struct {
	RequestsPerSecond float64
	MaxConcurrent     int64
	MaxRetries        uint64
	BaseDelay         time.Duration
}

// DefaultGateConfig returns the pacing used for IGDB's free tier.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		RequestsPerSecond: 3,
		MaxConcurrent:     4,
		MaxRetries:        3,
		BaseDelay:         2 * time.Second,
	}
}

// Gate serializes access to a provider: a token bucket caps request rate,
// a weighted semaphore caps in-flight requests, and rate-limit rejections
// are retried with exponential backoff. The semaphore slot is held across
// retries so a backing-off request cannot be overtaken by new arrivals.
type Gate struct {
	limiter    *rate.Limiter
	sem        *semaphore.Weighted
	maxRetries uint64
	baseDelay  time.Duration
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewGate creates a Gate. Non-positive rate, concurrency, and delay values
// fall back to DefaultGateConfig; MaxRetries of zero means no retries.
func NewGate(cfg GateConfig, m *metrics.Metrics, logger *slog.Logger) *Gate {
	def := DefaultGateConfig()
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = def.RequestsPerSecond
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	return &Gate{
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		sem:        semaphore.NewWeighted(cfg.MaxConcurrent),
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.BaseDelay,
		metrics:    m,
		logger:     logger,
	}
}

// Do runs fn under the gate's rate and concurrency limits. Rate-limit errors
// from fn are retried up to MaxRetries times with exponential backoff; all
// other errors return immediately. The op string is used for logging only.
func (g *Gate) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	start := time.Now()
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer g.sem.Release(1)

	attempt := 0
	backoff := retry.WithMaxRetries(g.maxRetries, retry.NewExponential(g.baseDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
		if attempt == 0 {
			g.metrics.ObserveGateWait(time.Since(start))
		}
		attempt++

		err := fn(ctx)
		var rl *ErrRateLimited
		if errors.As(err, &rl) {
			g.logger.Debug("provider rate limited, backing off",
				"op", op,
				"attempt", attempt,
				"retry_after", rl.RetryAfter)
			return retry.RetryableError(err)
		}
		return err
	})
}
