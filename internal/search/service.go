// Package search implements the game search pipeline: catalog-first lookup
// with provider supplementation, sister-game expansion, content filtering,
// multi-factor scoring, and result assembly.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pikestaff/cartridge/internal/game"
	"github.com/pikestaff/cartridge/internal/metrics"
)

// Query length bounds in runes. Anything outside returns an empty result,
// never an error.
const (
	minQueryRunes = 2
	maxQueryRunes = 100
)

// Catalog is the local game store the pipeline always consults first. A
// catalog failure is the one error Search cannot absorb.
type Catalog interface {
	Search(ctx context.Context, query string, limit int) ([]game.Candidate, error)
}

// Provider supplements thin catalog results. Implementations are expected to
// degrade internally; an error returned here is logged and treated as no
// results.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]game.Candidate, error)
}

// FranchiseMap detects franchise tokens in queries and names the sibling
// patterns worth expanding toward.
type FranchiseMap interface {
	Lookup(query string) (token string, patterns []string, ok bool)
}

// Config bounds the pipeline's fetching behavior.
type Config struct {
	// DefaultLimit is used when the caller does not set one; MaxLimit is the
	// hard response ceiling.
	DefaultLimit int
	MaxLimit     int

	// MinCatalogResults is the catalog hit count under which the provider is
	// consulted.
	MinCatalogResults int

	// PoolLimit caps how many candidates each source contributes to the
	// scoring pool.
	PoolLimit int

	// MaxSisterLookups caps expansion lookups per search.
	MaxSisterLookups int
}

// DefaultConfig returns the standard pipeline bounds.
func DefaultConfig() Config {
	return Config{
		DefaultLimit:      20,
		MaxLimit:          100,
		MinCatalogResults: 5,
		PoolLimit:         50,
		MaxSisterLookups:  4,
	}
}

// Deps carries everything a Service needs. Catalog is required; Provider and
// Franchise may be nil, which disables provider supplementation and sister
// expansion respectively.
type Deps struct {
	Catalog     Catalog
	Provider    Provider
	Franchise   FranchiseMap
	Calibration Calibration
	Config      Config
	Metrics     *metrics.Metrics
	Logger      *slog.Logger

	// Now overrides the clock for deterministic recency scoring in tests.
	Now func() time.Time
}

// Service runs the search pipeline.
type Service struct {
	catalog   Catalog
	provider  Provider
	franchise FranchiseMap
	cal       Calibration
	cfg       Config
	filter    *contentFilter
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires a Service. Zero config fields fall back to DefaultConfig
// values and a zero calibration falls back to DefaultCalibration.
func NewService(deps Deps) *Service {
	cfg := deps.Config
	def := DefaultConfig()
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = def.DefaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = def.MaxLimit
	}
	if cfg.MinCatalogResults <= 0 {
		cfg.MinCatalogResults = def.MinCatalogResults
	}
	if cfg.PoolLimit <= 0 {
		cfg.PoolLimit = def.PoolLimit
	}
	if cfg.MaxSisterLookups <= 0 {
		cfg.MaxSisterLookups = def.MaxSisterLookups
	}

	cal := deps.Calibration
	if cal.RelevanceThreshold == 0 && cal.Default == (Weights{}) {
		cal = DefaultCalibration()
	}

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	logger := deps.Logger.With(slog.String("component", "search"))

	return &Service{
		catalog:   deps.Catalog,
		provider:  deps.Provider,
		franchise: deps.Franchise,
		cal:       cal,
		cfg:       cfg,
		filter:    newContentFilter(cal, logger),
		metrics:   deps.Metrics,
		logger:    logger,
		now:       now,
	}
}

// Search runs the full pipeline for one query. Empty, too-short, too-long
// queries and invalid options return an empty result with a nil error. Only
// a catalog failure surfaces as an error; the provider and the franchise
// expansion degrade silently.
func (s *Service) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	started := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if n := utf8.RuneCountInString(query); n < minQueryRunes || n > maxQueryRunes {
		s.logger.Debug("query length out of bounds", slog.Int("runes", n))
		return nil, nil
	}
	if err := opts.validate(); err != nil {
		s.logger.Warn("invalid search options", slog.Any("error", err))
		return nil, nil
	}
	opts = opts.normalized()

	var (
		token        string
		patterns     []string
		franchiseHit bool
	)
	if s.franchise != nil {
		token, patterns, franchiseHit = s.franchise.Lookup(query)
	}

	catalogResults, err := s.catalog.Search(ctx, query, s.cfg.PoolLimit)
	if err != nil {
		return nil, fmt.Errorf("searching catalog: %w", err)
	}

	intent := detectIntent(query, catalogResults, franchiseHit)

	var providerResults []game.Candidate
	if s.provider != nil && len(catalogResults) < s.cfg.MinCatalogResults {
		providerResults, err = s.provider.Search(ctx, query, s.cfg.PoolLimit)
		if err != nil {
			s.logger.Warn("provider search failed, continuing with catalog results",
				slog.Any("error", err))
			providerResults = nil
		}
	}

	pool := mergeDedupe(catalogResults, providerResults)

	expandedKeys := map[string]struct{}{}
	if franchiseHit {
		pool, expandedKeys = s.expandSisters(ctx, token, patterns, pool)
	}

	filtered := s.filter.apply(pool)

	weights := s.cal.WeightsFor(intent)
	sc := &scorer{cal: s.cal, now: s.now, expandedKeys: expandedKeys}
	results := sc.score(filtered, query, weights)

	sortResults(results, opts.Sort)
	results = applyHardFilters(results, opts)
	final := assemble(results, s.resolveLimit(opts.Limit), opts.Debug, intent, weights)

	s.metrics.RecordSearch(string(intent), time.Since(started), len(final))
	s.logger.Debug("search completed",
		slog.String("query", query),
		slog.String("intent", string(intent)),
		slog.Int("pool", len(pool)),
		slog.Int("results", len(final)))

	return final, nil
}

// resolveLimit applies the default and the hard ceiling.
func (s *Service) resolveLimit(limit int) int {
	if limit <= 0 {
		return s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		return s.cfg.MaxLimit
	}
	return limit
}
