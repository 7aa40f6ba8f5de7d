// Package backup snapshots the SQLite catalog with VACUUM INTO and prunes
// old snapshots by count and age.
package backup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// filenamePattern matches snapshot filenames: cartridge-YYYYMMDD-HHMMSS.db
var filenamePattern = regexp.MustCompile(`^cartridge-\d{8}-\d{6}\.db$`)

// Info describes one snapshot file.
type Info struct {
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Service creates and prunes catalog snapshots. Retention settings are fixed
// at construction.
type Service struct {
	db         *sql.DB
	dir        string
	retention  int
	maxAgeDays int
	logger     *slog.Logger
}

// NewService creates a backup service. retention caps how many snapshots
// survive a prune; maxAgeDays of zero disables age-based pruning.
func NewService(db *sql.DB, dir string, retention, maxAgeDays int, logger *slog.Logger) *Service {
	return &Service{
		db:         db,
		dir:        dir,
		retention:  retention,
		maxAgeDays: maxAgeDays,
		logger:     logger.With(slog.String("component", "backup")),
	}
}

// Backup snapshots the database into a timestamped file using VACUUM INTO.
func (s *Service) Backup(ctx context.Context) (*Info, error) {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}

	now := time.Now().UTC()
	filename := fmt.Sprintf("cartridge-%s.db", now.Format("20060102-150405"))
	dest := filepath.Join(s.dir, filename)

	s.logger.Info("starting backup", slog.String("dest", dest))

	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return nil, fmt.Errorf("VACUUM INTO: %w", err)
	}

	info, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("stat backup file: %w", err)
	}

	s.logger.Info("backup complete",
		slog.String("filename", filename),
		slog.Int64("size", info.Size()))

	return &Info{
		Filename:  filename,
		Size:      info.Size(),
		CreatedAt: now,
	}, nil
}

// List returns all snapshots, newest first. A missing directory is an empty
// list, not an error.
func (s *Service) List() ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	var backups []Info
	for _, entry := range entries {
		if entry.IsDir() || !filenamePattern.MatchString(entry.Name()) {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}

		name := strings.TrimSuffix(strings.TrimPrefix(entry.Name(), "cartridge-"), ".db")
		ts, err := time.Parse("20060102-150405", name)
		if err != nil {
			ts = fi.ModTime()
		}

		backups = append(backups, Info{
			Filename:  entry.Name(),
			Size:      fi.Size(),
			CreatedAt: ts,
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})

	return backups, nil
}

// Prune removes snapshots beyond the retention count, then any survivors
// older than the age limit.
func (s *Service) Prune() error {
	backups, err := s.List()
	if err != nil {
		return err
	}

	var excess []Info
	if len(backups) > s.retention {
		excess = backups[s.retention:]
		backups = backups[:s.retention]
	}
	if s.maxAgeDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -s.maxAgeDays)
		for _, b := range backups {
			if b.CreatedAt.Before(cutoff) {
				excess = append(excess, b)
			}
		}
	}

	for _, b := range excess {
		if err := os.Remove(filepath.Join(s.dir, b.Filename)); err != nil {
			s.logger.Warn("failed to remove old backup",
				slog.String("filename", b.Filename),
				slog.Any("error", err))
			continue
		}
		s.logger.Info("pruned backup", slog.String("filename", b.Filename))
	}

	return nil
}

// StartScheduler snapshots on a fixed interval until the context is canceled.
func (s *Service) StartScheduler(ctx context.Context, interval time.Duration) {
	s.logger.Info("backup scheduler started",
		slog.String("interval", interval.String()),
		slog.Int("retention", s.retention))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("backup scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.Backup(ctx); err != nil {
				if !errors.Is(err, context.Canceled) {
					s.logger.Error("scheduled backup failed", slog.Any("error", err))
				}
				continue
			}
			if err := s.Prune(); err != nil {
				s.logger.Error("backup prune failed", slog.Any("error", err))
			}
		}
	}
}
