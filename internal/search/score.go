package search

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pikestaff/cartridge/internal/game"
)

// MatchType records how a candidate's name related to the query.
type MatchType string

// Match classifications, strongest first.
const (
	MatchExact      MatchType = "exact"
	MatchStartsWith MatchType = "startsWith"
	MatchContains   MatchType = "contains"
	MatchWordMatch  MatchType = "wordMatch"
	MatchNone       MatchType = "none"
)

// Relevance contributions for candidates with no name match at all. Summed
// and capped, they can still clear the relevance threshold when a candidate
// relates to the query through its summary, genres, or franchise.
const (
	residualSummaryCredit   = 0.10
	residualGenreCredit     = 0.08
	residualFranchiseCredit = 0.05
	residualCap             = 0.15
)

// ratingConfidencePivot is the rating count at which a candidate's rating is
// trusted halfway; the quality score shrinks toward neutral below it.
const ratingConfidencePivot = 25

// classifyMatch relates a normalized query to a normalized name. The contains
// score rises when the match sits early in the name and when the query covers
// more of it, staying inside 0.35-0.45.
func classifyMatch(normQuery, normName string) (MatchType, float64) {
	if normQuery == "" || normName == "" {
		return MatchNone, 0
	}
	if normName == normQuery {
		return MatchExact, 1.0
	}
	if strings.HasPrefix(normName, normQuery) {
		return MatchStartsWith, 0.6
	}
	if idx := strings.Index(normName, normQuery); idx >= 0 {
		position := 1 - float64(idx)/float64(len(normName))
		coverage := float64(len(normQuery)) / float64(len(normName))
		return MatchContains, math.Min(0.35+0.05*position+0.05*coverage, 0.45)
	}
	words := strings.Fields(normQuery)
	if len(words) > 0 && allWordsIn(normName, words) {
		return MatchWordMatch, 0.3
	}
	return MatchNone, 0
}

func allWordsIn(normName string, words []string) bool {
	for _, w := range words {
		if !game.ContainsWord(normName, w) {
			return false
		}
	}
	return true
}

// qualityScore maps rating and rating count into 0-1. The rating is pulled
// toward the neutral 0.5 when few people rated it, so a 95 with three votes
// cannot outrank a 85 with thousands. Missing data scores neutral, never
// zero.
func qualityScore(c *game.Candidate) float64 {
	if !c.HasRatingData() {
		return 0.5
	}
	confidence := float64(c.RatingCount) / float64(c.RatingCount+ratingConfidencePivot)
	return 0.5 + (c.Rating/100-0.5)*confidence
}

// popularityScore log-scales follower and hype counts into 0-1 so viral
// outliers cannot dominate.
func popularityScore(c *game.Candidate) float64 {
	return math.Min(math.Log10(1+float64(c.Engagement()))/6, 1)
}

// platformScore rates a candidate's platform line-up on 15-100. Platforms
// without status data are clean; a platform is dirty only when every status
// it has is cancelled or rumored. No dirty platforms scores 100. Every
// platform dirty is vaporware and scores the floor.
func platformScore(c *game.Candidate) int {
	dirty := 0
	for _, p := range c.Platforms {
		if p.Dirty() {
			dirty++
		}
	}
	if dirty == 0 {
		return 100
	}
	if dirty == len(c.Platforms) {
		return 15
	}
	score := 100 - 28*dirty
	if score < 15 {
		score = 15
	}
	return score
}

type scorer struct {
	cal          Calibration
	now          func() time.Time
	expandedKeys map[string]struct{}
}

// score turns filtered candidates into scored results and drops those whose
// relevance lands under the threshold. This is the one place the ranking
// stage removes anything.
func (s *scorer) score(candidates []game.Candidate, query string, weights Weights) []Result {
	normQuery := game.NormalizeName(query)
	queryWords := strings.Fields(normQuery)

	results := make([]Result, 0, len(candidates))
	for i := range candidates {
		c := candidates[i]

		matchType, relevance := classifyMatch(normQuery, game.NormalizeName(c.Name))
		if matchType == MatchNone {
			relevance = s.residual(&c, normQuery, queryWords)
		}
		if relevance < s.cal.RelevanceThreshold {
			continue
		}

		quality := qualityScore(&c)
		popularity := popularityScore(&c)
		recency := s.recencyBonus(&c)
		platScore := platformScore(&c)
		penalty := float64(platScore-100) / 100

		total := weights.Relevance*relevance +
			weights.Quality*quality +
			weights.Popularity*popularity +
			recency + penalty
		if total < 0 {
			total = 0
		}

		results = append(results, Result{
			Candidate:       c,
			Relevance:       relevance,
			Quality:         quality,
			Popularity:      popularity,
			RecencyBonus:    recency,
			PlatformPenalty: penalty,
			TotalScore:      total,
			MatchType:       matchType,
			platScore:       platScore,
		})
	}
	return results
}

// residual grants partial relevance to candidates whose name says nothing:
// the query in the summary, a genre term overlap, or arrival via sister-game
// expansion.
func (s *scorer) residual(c *game.Candidate, normQuery string, queryWords []string) float64 {
	var credit float64
	if summary := game.NormalizeName(c.Summary); summary != "" && strings.Contains(summary, normQuery) {
		credit += residualSummaryCredit
	}
	if genreOverlap(c.Genres, normQuery, queryWords) {
		credit += residualGenreCredit
	}
	if _, ok := s.expandedKeys[game.DedupeKey(c)]; ok {
		credit += residualFranchiseCredit
	}
	return math.Min(credit, residualCap)
}

func genreOverlap(genres []string, normQuery string, queryWords []string) bool {
	for _, g := range genres {
		ng := game.NormalizeName(g)
		if ng == "" {
			continue
		}
		if game.ContainsWord(normQuery, ng) {
			return true
		}
		for _, w := range queryWords {
			if game.ContainsWord(ng, w) {
				return true
			}
		}
	}
	return false
}

// recencyBonus rewards releases inside the configured window, decaying
// linearly from the maximum at release day to zero at the window's edge.
// Future dates count as brand new and old games are never penalized.
func (s *scorer) recencyBonus(c *game.Candidate) float64 {
	if c.ReleaseDate.IsZero() || s.cal.RecencyWindowDays <= 0 {
		return 0
	}
	window := time.Duration(s.cal.RecencyWindowDays) * 24 * time.Hour
	age := s.now().Sub(c.ReleaseDate)
	if age < 0 {
		age = 0
	}
	if age >= window {
		return 0
	}
	return s.cal.RecencyMaxBonus * (1 - float64(age)/float64(window))
}

// sortResults orders results in place. The relevance mode uses the weighted
// composite with relevance, rating count, and name as tie-breaks; the field
// modes order by the named field alone with name as the final tie-break.
func sortResults(results []Result, mode SortMode) {
	switch mode {
	case SortRating:
		sort.SliceStable(results, func(i, j int) bool {
			a, b := &results[i], &results[j]
			if a.Rating != b.Rating {
				return a.Rating > b.Rating
			}
			if a.RatingCount != b.RatingCount {
				return a.RatingCount > b.RatingCount
			}
			return a.Name < b.Name
		})
	case SortReleaseDate:
		sort.SliceStable(results, func(i, j int) bool {
			a, b := &results[i], &results[j]
			// Undated entries sink to the bottom.
			if a.ReleaseDate.IsZero() != b.ReleaseDate.IsZero() {
				return !a.ReleaseDate.IsZero()
			}
			if !a.ReleaseDate.Equal(b.ReleaseDate) {
				return a.ReleaseDate.After(b.ReleaseDate)
			}
			return a.Name < b.Name
		})
	case SortName:
		sort.SliceStable(results, func(i, j int) bool {
			a, b := &results[i], &results[j]
			an, bn := game.NormalizeName(a.Name), game.NormalizeName(b.Name)
			if an != bn {
				return an < bn
			}
			return a.Name < b.Name
		})
	case SortMostReviewed:
		sort.SliceStable(results, func(i, j int) bool {
			a, b := &results[i], &results[j]
			if a.RatingCount != b.RatingCount {
				return a.RatingCount > b.RatingCount
			}
			if a.Rating != b.Rating {
				return a.Rating > b.Rating
			}
			return a.Name < b.Name
		})
	default:
		sort.SliceStable(results, func(i, j int) bool {
			a, b := &results[i], &results[j]
			if a.TotalScore != b.TotalScore {
				return a.TotalScore > b.TotalScore
			}
			if a.Relevance != b.Relevance {
				return a.Relevance > b.Relevance
			}
			if a.RatingCount != b.RatingCount {
				return a.RatingCount > b.RatingCount
			}
			return a.Name < b.Name
		})
	}
}
