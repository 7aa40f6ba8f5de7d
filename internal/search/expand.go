package search

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pikestaff/cartridge/internal/game"
)

// expandSisters widens a thin result pool with known siblings of a detected
// franchise. For each sibling pattern not already represented in the pool it
// runs one catalog lookup, asking the provider only when the catalog comes
// back empty. Lookups run sequentially and stop at the configured cap. The
// whole step is best effort: every failure keeps the pool as it stands and
// says so at debug level only.
//
// The returned key set names the candidates the expansion added, so the
// scorer can grant them franchise residual credit.
func (s *Service) expandSisters(ctx context.Context, token string, patterns []string, pool []game.Candidate) ([]game.Candidate, map[string]struct{}) {
	expanded := make(map[string]struct{})
	if len(patterns) == 0 {
		return pool, expanded
	}

	seen := make(map[string]struct{}, len(pool))
	for i := range pool {
		seen[game.DedupeKey(&pool[i])] = struct{}{}
	}

	lookups := 0
	for _, pattern := range patterns {
		if lookups >= s.cfg.MaxSisterLookups {
			break
		}
		if ctx.Err() != nil {
			break
		}
		if coveredBy(pool, pattern) {
			continue
		}
		lookups++

		found, err := s.catalog.Search(ctx, pattern, s.cfg.MinCatalogResults)
		if err != nil {
			s.logger.Debug("sister lookup failed in catalog",
				slog.String("token", token),
				slog.String("pattern", pattern),
				slog.Any("error", err))
			continue
		}
		if len(found) == 0 && s.provider != nil {
			found, err = s.provider.Search(ctx, pattern, s.cfg.MinCatalogResults)
			if err != nil {
				s.logger.Debug("sister lookup failed in provider",
					slog.String("token", token),
					slog.String("pattern", pattern),
					slog.Any("error", err))
				continue
			}
		}

		for i := range found {
			key := game.DedupeKey(&found[i])
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			expanded[key] = struct{}{}
			pool = append(pool, found[i])
		}
	}

	if len(expanded) > 0 {
		s.logger.Debug("sister expansion widened pool",
			slog.String("token", token),
			slog.Int("lookups", lookups),
			slog.Int("added", len(expanded)))
	}
	return pool, expanded
}

// coveredBy reports whether any pooled candidate's normalized name already
// contains the sibling pattern, making a lookup for it redundant.
func coveredBy(pool []game.Candidate, pattern string) bool {
	for i := range pool {
		if strings.Contains(game.NormalizeName(pool[i].Name), pattern) {
			return true
		}
	}
	return false
}
