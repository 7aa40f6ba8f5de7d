package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pikestaff/cartridge/internal/game"
)

// summaryThreshold is the name-match count below which a summary search
// supplements the results.
const summaryThreshold = 20

// QueryAdapter layers the catalog search strategy on top of the store:
// match names first, and only when that yields a thin result set widen to
// summary text. Duplicates between the two passes collapse on local id.
type QueryAdapter struct {
	store  *Store
	logger *slog.Logger
}

// NewQueryAdapter creates a QueryAdapter.
func NewQueryAdapter(store *Store, logger *slog.Logger) *QueryAdapter {
	return &QueryAdapter{store: store, logger: logger}
}

// Search returns catalog candidates for the query, most reviewed first
// within each pass. Name matches always precede summary-only matches.
func (a *QueryAdapter) Search(ctx context.Context, query string, limit int) ([]game.Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	results, err := a.store.Search(ctx, query, FieldName, limit)
	if err != nil {
		return nil, fmt.Errorf("searching catalog by name: %w", err)
	}

	if len(results) < summaryThreshold {
		supplement, err := a.store.Search(ctx, query, FieldSummary, limit)
		if err != nil {
			return nil, fmt.Errorf("searching catalog by summary: %w", err)
		}
		results = appendNewByLocalID(results, supplement)
	}

	a.logger.Debug("catalog search completed",
		slog.String("query", query),
		slog.Int("results", len(results)))

	return results, nil
}

// GetByID retrieves a single game by local id. Returns nil, nil when absent.
func (a *QueryAdapter) GetByID(ctx context.Context, id int64) (*game.Candidate, error) {
	return a.store.GetByID(ctx, id)
}

// appendNewByLocalID appends extra candidates whose local id is not already
// present in primary.
func appendNewByLocalID(primary, extra []game.Candidate) []game.Candidate {
	seen := make(map[int64]struct{}, len(primary))
	for _, c := range primary {
		seen[c.LocalID] = struct{}{}
	}
	for _, c := range extra {
		if _, ok := seen[c.LocalID]; ok {
			continue
		}
		seen[c.LocalID] = struct{}{}
		primary = append(primary, c)
	}
	return primary
}
