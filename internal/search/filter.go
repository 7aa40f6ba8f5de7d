package search

import (
	"log/slog"

	"github.com/pikestaff/cartridge/internal/game"
)

// contentFilter removes low-value entries before scoring: curated redlights,
// filtered categories, and low-effort repackagings. Curated greenlights skip
// every rule. The filter only removes; platform-status problems are handled
// as a score penalty, never as removal.
type contentFilter struct {
	removal  map[game.Category]struct{}
	patterns []string
	logger   *slog.Logger
}

func newContentFilter(cal Calibration, logger *slog.Logger) *contentFilter {
	patterns := make([]string, 0, len(cal.SuspectNamePatterns))
	for _, p := range cal.SuspectNamePatterns {
		if np := game.NormalizeName(p); np != "" {
			patterns = append(patterns, np)
		}
	}
	return &contentFilter{
		removal:  cal.removalSet(),
		patterns: patterns,
		logger:   logger,
	}
}

// apply returns the candidates that survive. Quality tiers are computed once
// per candidate: strong signals keep filtered categories, good signals keep
// suspect names.
func (f *contentFilter) apply(candidates []game.Candidate) []game.Candidate {
	kept := make([]game.Candidate, 0, len(candidates))
	for i := range candidates {
		c := candidates[i]

		if c.Redlight {
			f.drop(&c, "redlight")
			continue
		}
		if c.Greenlight {
			kept = append(kept, c)
			continue
		}

		strong := c.StrongQuality()
		good := c.GoodQuality()

		if _, filtered := f.removal[c.Category]; filtered && !strong {
			f.drop(&c, "category")
			continue
		}
		if f.suspectName(c.Name) && !good {
			f.drop(&c, "name_pattern")
			continue
		}

		kept = append(kept, c)
	}
	return kept
}

// suspectName reports whether the name carries a low-effort repackaging word.
func (f *contentFilter) suspectName(name string) bool {
	normalized := game.NormalizeName(name)
	for _, p := range f.patterns {
		if game.ContainsWord(normalized, p) {
			return true
		}
	}
	return false
}

func (f *contentFilter) drop(c *game.Candidate, reason string) {
	f.logger.Debug("content filter dropped candidate",
		slog.String("name", c.Name),
		slog.String("reason", reason))
}
