package search

import "github.com/pikestaff/cartridge/internal/game"

// Result is a candidate that survived the pipeline, with its score breakdown
// and final rank.
type Result struct {
	game.Candidate

	Relevance       float64   `json:"relevance"`
	Quality         float64   `json:"quality"`
	Popularity      float64   `json:"popularity"`
	RecencyBonus    float64   `json:"recency_bonus"`
	PlatformPenalty float64   `json:"platform_penalty"`
	TotalScore      float64   `json:"total_score"`
	MatchType       MatchType `json:"match_type"`
	Rank            int       `json:"rank"`

	// Diagnostics is populated only for debug searches.
	Diagnostics *Diagnostics `json:"diagnostics,omitempty"`

	// platScore keeps the integer platform score so diagnostics do not have
	// to reconstruct it from the penalty.
	platScore int
}

// Diagnostics explains how a result was scored. Informational only; nothing
// here affects ordering.
type Diagnostics struct {
	Intent        Intent  `json:"intent"`
	Weights       Weights `json:"weights"`
	PlatformScore int     `json:"platform_score"`
}

// assemble truncates ordered results to the limit, assigns ranks from 1, and
// attaches diagnostics when asked. Order is taken as given.
func assemble(results []Result, limit int, debug bool, intent Intent, weights Weights) []Result {
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	for i := range results {
		results[i].Rank = i + 1
		if debug {
			results[i].Diagnostics = &Diagnostics{
				Intent:        intent,
				Weights:       weights,
				PlatformScore: results[i].platScore,
			}
		}
	}
	return results
}

// applyHardFilters excludes results failing any active option filter. A
// result missing the data an active filter needs fails it; a high score does
// not rescue anything here.
func applyHardFilters(results []Result, opts Options) []Result {
	if !opts.hasHardFilters() {
		return results
	}
	kept := results[:0]
	for i := range results {
		if passesHardFilters(&results[i], opts) {
			kept = append(kept, results[i])
		}
	}
	return kept
}

func passesHardFilters(r *Result, opts Options) bool {
	if opts.MinRating > 0 {
		if !r.HasRatingData() || r.Rating < opts.MinRating {
			return false
		}
	}
	if len(opts.Platforms) > 0 && !matchesPlatform(r.Platforms, opts.Platforms) {
		return false
	}
	if len(opts.Genres) > 0 && !matchesGenre(r.Genres, opts.Genres) {
		return false
	}
	if opts.ReleaseYearFrom > 0 || opts.ReleaseYearTo > 0 {
		if r.ReleaseDate.IsZero() {
			return false
		}
		year := r.ReleaseDate.Year()
		if opts.ReleaseYearFrom > 0 && year < opts.ReleaseYearFrom {
			return false
		}
		if opts.ReleaseYearTo > 0 && year > opts.ReleaseYearTo {
			return false
		}
	}
	return true
}

// matchesPlatform accepts a result available on any requested platform. The
// requested term must appear as a whole word in a platform name, so
// "playstation" covers every PlayStation generation while "vita" stays
// narrow.
func matchesPlatform(platforms []game.Platform, wanted []string) bool {
	for _, p := range platforms {
		name := game.NormalizeName(p.Name)
		for _, w := range wanted {
			if name == w || game.ContainsWord(name, w) {
				return true
			}
		}
	}
	return false
}

func matchesGenre(genres []string, wanted []string) bool {
	for _, g := range genres {
		name := game.NormalizeName(g)
		for _, w := range wanted {
			if name == w || game.ContainsWord(name, w) {
				return true
			}
		}
	}
	return false
}
