// Package maintenance keeps the SQLite catalog healthy: scheduled PRAGMA
// optimize passes with WAL checkpoints, periodic VACUUM, and pruning of
// expired provider cache entries.
package maintenance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// vacuumEvery is the number of scheduled passes between VACUUMs. With the
// default 24h interval the file is rebuilt weekly.
const vacuumEvery = 7

// CacheCleaner prunes expired entries and reports how many were removed.
// Satisfied by provider.ResultCache.
type CacheCleaner interface {
	CleanupExpired() int
}

// Status holds a snapshot of database health.
type Status struct {
	DBFileSize     int64  `json:"db_file_size"`
	WALFileSize    int64  `json:"wal_file_size"`
	PageCount      int64  `json:"page_count"`
	PageSize       int64  `json:"page_size"`
	LastOptimizeAt string `json:"last_optimize_at,omitempty"`
}

// Service provides database maintenance operations.
type Service struct {
	db     *sql.DB
	dbPath string
	cache  CacheCleaner
	logger *slog.Logger

	mu           sync.Mutex
	lastOptimize time.Time
}

// NewService creates a maintenance service.
func NewService(db *sql.DB, dbPath string, cache CacheCleaner, logger *slog.Logger) *Service {
	return &Service{
		db:     db,
		dbPath: dbPath,
		cache:  cache,
		logger: logger.With(slog.String("component", "maintenance")),
	}
}

// Status returns current database maintenance status.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	st := &Status{
		DBFileSize:  fileSize(s.dbPath),
		WALFileSize: fileSize(s.dbPath + "-wal"),
	}

	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&st.PageCount); err != nil {
		s.logger.Warn("reading page_count", "error", err)
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&st.PageSize); err != nil {
		s.logger.Warn("reading page_size", "error", err)
	}

	s.mu.Lock()
	if !s.lastOptimize.IsZero() {
		st.LastOptimizeAt = s.lastOptimize.UTC().Format(time.RFC3339)
	}
	s.mu.Unlock()

	return st, nil
}

// Optimize runs PRAGMA optimize followed by a WAL checkpoint.
func (s *Service) Optimize(ctx context.Context) error {
	s.logger.Info("running PRAGMA optimize")
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return fmt.Errorf("PRAGMA optimize: %w", err)
	}

	s.logger.Info("running WAL checkpoint")
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("WAL checkpoint: %w", err)
	}

	s.mu.Lock()
	s.lastOptimize = time.Now()
	s.mu.Unlock()

	s.logger.Info("optimize complete")
	return nil
}

// Vacuum runs VACUUM to rebuild the database file.
func (s *Service) Vacuum(ctx context.Context) error {
	before := fileSize(s.dbPath)

	s.logger.Info("running VACUUM")
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("VACUUM: %w", err)
	}

	s.logger.Info("vacuum complete",
		slog.Int64("bytes_before", before),
		slog.Int64("bytes_after", fileSize(s.dbPath)))
	return nil
}

// StartScheduler runs a maintenance pass on a fixed interval until the
// context is canceled. Each pass prunes the provider cache and optimizes;
// every vacuumEvery-th pass also rebuilds the file with VACUUM.
func (s *Service) StartScheduler(ctx context.Context, interval time.Duration) {
	s.logger.Info("maintenance scheduler started",
		slog.String("interval", interval.String()))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	passes := 0
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("maintenance scheduler stopped")
			return
		case <-ticker.C:
			passes++
			if removed := s.cache.CleanupExpired(); removed > 0 {
				s.logger.Info("pruned expired provider cache entries",
					slog.Int("removed", removed))
			}
			if err := s.Optimize(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("scheduled optimize failed", slog.Any("error", err))
			}
			if passes%vacuumEvery == 0 {
				if err := s.Vacuum(ctx); err != nil && !errors.Is(err, context.Canceled) {
					s.logger.Error("scheduled vacuum failed", slog.Any("error", err))
				}
			}
		}
	}
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
