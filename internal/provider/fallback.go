package provider

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pikestaff/cartridge/internal/event"
	"github.com/pikestaff/cartridge/internal/game"
	"github.com/pikestaff/cartridge/internal/metrics"
)

// CatalogSearcher is the local search used when the provider cannot serve.
type CatalogSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]game.Candidate, error)
}

// FallbackSearcher fronts a provider with a result cache, the rate gate,
// and a catalog fallback. A provider failure never surfaces to the caller:
// the catalog answers instead. Fresh provider results are announced on the
// event bus so the catalog can absorb them.
type FallbackSearcher struct {
	upstream Searcher
	catalog  CatalogSearcher
	cache    *ResultCache
	gate     *Gate
	bus      *event.Bus
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewFallbackSearcher wires a provider behind the cache, gate, and catalog fallback.
func NewFallbackSearcher(upstream Searcher, catalog CatalogSearcher, cache *ResultCache, gate *Gate, bus *event.Bus, m *metrics.Metrics, logger *slog.Logger) *FallbackSearcher {
	return &FallbackSearcher{
		upstream: upstream,
		catalog:  catalog,
		cache:    cache,
		gate:     gate,
		bus:      bus,
		metrics:  m,
		logger:   logger,
	}
}

// Search returns provider results for the query, serving from cache when
// possible. On any provider failure it degrades to catalog results and
// returns a nil error; only a catalog failure is reported.
func (f *FallbackSearcher) Search(ctx context.Context, query string, limit int) ([]game.Candidate, error) {
	key := game.NormalizeName(query)
	if cached, ok := f.cache.Get(key); ok {
		f.metrics.RecordCacheHit()
		return cached, nil
	}
	f.metrics.RecordCacheMiss()

	var results []game.Candidate
	err := f.gate.Do(ctx, "search", func(ctx context.Context) error {
		r, err := f.upstream.Search(ctx, query, limit)
		if err != nil {
			return err
		}
		results = r
		return nil
	})
	if err != nil {
		category := CategoryOf(err)
		f.metrics.RecordProviderRequest(f.upstream.Name(), "error")
		f.metrics.RecordFallback(string(category))
		f.logger.Warn("provider search failed, serving catalog results",
			"provider", f.upstream.Name(),
			"category", string(category),
			"error", err)
		return f.catalog.Search(ctx, query, limit)
	}
	f.metrics.RecordProviderRequest(f.upstream.Name(), "ok")

	f.cache.Add(key, results)
	if len(results) > 0 {
		f.bus.Publish(event.Event{
			Type: event.GamesDiscovered,
			Data: map[string]any{
				"batch_id": uuid.New().String(),
				"query":    query,
				"games":    results,
			},
		})
	}
	return results, nil
}
