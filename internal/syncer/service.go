// Package syncer refreshes stale catalog rows from the metadata provider on
// a schedule, keeping locally discovered games from drifting out of date.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/pikestaff/cartridge/internal/event"
	"github.com/pikestaff/cartridge/internal/game"
	"github.com/pikestaff/cartridge/internal/metrics"
	"github.com/pikestaff/cartridge/internal/provider"
)

// fetchChunkSize caps how many IDs a single provider request asks for.
const fetchChunkSize = 100

// ErrSyncRunning is returned when a sync is requested while one is already
// in flight.
var ErrSyncRunning = errors.New("sync already running")

// Store is the catalog surface the syncer needs.
type Store interface {
	StaleIDs(ctx context.Context, olderThan time.Time, limit int) ([]int64, error)
	Upsert(ctx context.Context, games []game.Candidate) (int, error)
}

// Fetcher retrieves fresh records from the provider by external ID.
type Fetcher interface {
	GetByIDs(ctx context.Context, ids []int64) ([]game.Candidate, error)
}

// Config bounds one sync run.
type Config struct {
	// BatchSize is the maximum number of stale rows picked up per run.
	BatchSize int

	// StaleAfter is how old a row's last sync may be before it is refreshed.
	StaleAfter time.Duration
}

// DefaultConfig returns the standard sync bounds.
func DefaultConfig() Config {
	return Config{
		BatchSize:  250,
		StaleAfter: 30 * 24 * time.Hour,
	}
}

// Deps carries everything a Service needs. All fields are required.
type Deps struct {
	Store   Store
	Fetcher Fetcher
	Gate    *provider.Gate
	Bus     *event.Bus
	Config  Config
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Service refreshes stale catalog entries. Runs never overlap: a RunOnce
// while another is active returns ErrSyncRunning.
type Service struct {
	store   Store
	fetcher Fetcher
	gate    *provider.Gate
	bus     *event.Bus
	cfg     Config
	metrics *metrics.Metrics
	logger  *slog.Logger

	running atomic.Bool
}

// NewService wires a Service. Zero config fields fall back to DefaultConfig
// values.
func NewService(deps Deps) *Service {
	cfg := deps.Config
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = def.StaleAfter
	}
	return &Service{
		store:   deps.Store,
		fetcher: deps.Fetcher,
		gate:    deps.Gate,
		bus:     deps.Bus,
		cfg:     cfg,
		metrics: deps.Metrics,
		logger:  deps.Logger.With(slog.String("component", "syncer")),
	}
}

// RunOnce refreshes one batch of stale rows: list stale IDs, fetch them from
// the provider in chunks through the gate, and upsert what came back. A
// failed chunk is logged and skipped; the run carries on with the rest.
// Returns the number of games refreshed.
func (s *Service) RunOnce(ctx context.Context) (int, error) {
	if !s.running.CompareAndSwap(false, true) {
		return 0, ErrSyncRunning
	}
	defer s.running.Store(false)

	cutoff := time.Now().UTC().Add(-s.cfg.StaleAfter)
	ids, err := s.store.StaleIDs(ctx, cutoff, s.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("listing stale games: %w", err)
	}
	if len(ids) == 0 {
		s.logger.Debug("catalog is fresh, nothing to sync")
		return 0, nil
	}

	s.logger.Info("starting catalog sync",
		slog.Int("stale", len(ids)),
		slog.Time("cutoff", cutoff))

	refreshed := 0
	failedChunks := 0
	for start := 0; start < len(ids); start += fetchChunkSize {
		if err := ctx.Err(); err != nil {
			return refreshed, err
		}
		end := min(start+fetchChunkSize, len(ids))
		chunk := ids[start:end]

		var fetched []game.Candidate
		err := s.gate.Do(ctx, "sync", func(ctx context.Context) error {
			r, err := s.fetcher.GetByIDs(ctx, chunk)
			if err != nil {
				return err
			}
			fetched = r
			return nil
		})
		if err != nil {
			failedChunks++
			s.logger.Warn("sync chunk fetch failed",
				slog.Int("ids", len(chunk)),
				slog.Any("error", err))
			continue
		}

		n, err := s.store.Upsert(ctx, fetched)
		if err != nil {
			failedChunks++
			s.logger.Warn("sync chunk upsert failed",
				slog.Int("ids", len(chunk)),
				slog.Any("error", err))
			continue
		}
		refreshed += n
		s.metrics.RecordUpserts(n)
	}

	s.logger.Info("catalog sync complete",
		slog.Int("stale", len(ids)),
		slog.Int("refreshed", refreshed),
		slog.Int("failed_chunks", failedChunks))

	s.bus.Publish(event.Event{
		Type: event.SyncCompleted,
		Data: map[string]any{
			"stale":         len(ids),
			"refreshed":     refreshed,
			"failed_chunks": failedChunks,
		},
	})
	return refreshed, nil
}

// StartScheduler runs syncs on a fixed interval until the context is canceled.
func (s *Service) StartScheduler(ctx context.Context, interval time.Duration) {
	s.logger.Info("sync scheduler started",
		slog.String("interval", interval.String()),
		slog.Int("batch_size", s.cfg.BatchSize))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sync scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("scheduled sync failed", slog.Any("error", err))
			}
		}
	}
}
