package search

import (
	"fmt"
	"strings"

	"github.com/pikestaff/cartridge/internal/game"
)

// SortMode selects the ordering of search results.
type SortMode string

// Recognized sort modes. Everything except SortRelevance bypasses the
// weighted composite and orders by the named field alone; filtering and
// score diagnostics still apply.
const (
	SortRelevance    SortMode = "relevance"
	SortRating       SortMode = "rating"
	SortReleaseDate  SortMode = "releaseDate"
	SortName         SortMode = "name"
	SortMostReviewed SortMode = "mostReviewed"
)

// Options narrows and shapes a search beyond the query string itself. The
// zero value means: default limit, composite relevance order, no filters.
type Options struct {
	// Limit caps the number of returned results. Zero means the configured
	// default; values above the hard ceiling are clamped.
	Limit int

	// MinRating excludes results rated below the given value (0-100 scale).
	// Results without rating data fail the filter when it is active.
	MinRating float64

	// Platforms keeps only results available on at least one of the named
	// platforms. Matching is word-based on normalized names, so "playstation"
	// matches "PlayStation 5".
	Platforms []string

	// Genres keeps only results carrying at least one of the named genres.
	Genres []string

	// ReleaseYearFrom and ReleaseYearTo bound the release year, inclusive.
	// Zero disables the respective bound.
	ReleaseYearFrom int
	ReleaseYearTo   int

	// Sort selects the result ordering. Empty means SortRelevance.
	Sort SortMode

	// Debug attaches per-result diagnostics to the response.
	Debug bool
}

// normalized returns a copy with the sort mode defaulted and the platform and
// genre filter terms folded the same way candidate names are.
func (o Options) normalized() Options {
	out := o
	if out.Sort == "" {
		out.Sort = SortRelevance
	}
	out.Platforms = normalizeTerms(o.Platforms)
	out.Genres = normalizeTerms(o.Genres)
	return out
}

// validate rejects option values the pipeline cannot honor. Callers treat a
// validation failure as an empty result, not an error response.
func (o Options) validate() error {
	if o.Limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", o.Limit)
	}
	if o.MinRating < 0 || o.MinRating > 100 {
		return fmt.Errorf("min rating must be within 0-100, got %g", o.MinRating)
	}
	if o.ReleaseYearFrom < 0 || o.ReleaseYearTo < 0 {
		return fmt.Errorf("release years must not be negative")
	}
	if o.ReleaseYearFrom > 0 && o.ReleaseYearTo > 0 && o.ReleaseYearFrom > o.ReleaseYearTo {
		return fmt.Errorf("release year range is inverted: %d-%d", o.ReleaseYearFrom, o.ReleaseYearTo)
	}
	switch o.Sort {
	case "", SortRelevance, SortRating, SortReleaseDate, SortName, SortMostReviewed:
	default:
		return fmt.Errorf("unknown sort mode %q", o.Sort)
	}
	return nil
}

// hasHardFilters reports whether any post-scoring filter is active.
func (o Options) hasHardFilters() bool {
	return o.MinRating > 0 || len(o.Platforms) > 0 || len(o.Genres) > 0 ||
		o.ReleaseYearFrom > 0 || o.ReleaseYearTo > 0
}

func normalizeTerms(terms []string) []string {
	if len(terms) == 0 {
		return nil
	}
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		n := game.NormalizeName(strings.TrimSpace(t))
		if n == "" {
			continue
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
