// Package game defines the domain model shared by the catalog, the IGDB
// adapter, and the search pipeline: candidates, platforms, the IGDB category
// and release-status enums, and name normalization.
package game

import "time"

// Source records where a candidate came from during a single search.
type Source string

// Candidate provenance values.
const (
	SourceCatalog  Source = "catalog"
	SourceProvider Source = "provider"
)

// Category is the IGDB game category enum.
type Category int

// IGDB category values.
const (
	CategoryMainGame Category = iota
	CategoryDLC
	CategoryExpansion
	CategoryBundle
	CategoryStandaloneExpansion
	CategoryMod
	CategoryEpisode
	CategorySeason
	CategoryRemake
	CategoryRemaster
	CategoryExpandedGame
	CategoryPort
	CategoryFork
	CategoryPack
	CategoryUpdate
)

var categoryNames = map[Category]string{
	CategoryMainGame:            "main_game",
	CategoryDLC:                 "dlc",
	CategoryExpansion:           "expansion",
	CategoryBundle:              "bundle",
	CategoryStandaloneExpansion: "standalone_expansion",
	CategoryMod:                 "mod",
	CategoryEpisode:             "episode",
	CategorySeason:              "season",
	CategoryRemake:              "remake",
	CategoryRemaster:            "remaster",
	CategoryExpandedGame:        "expanded_game",
	CategoryPort:                "port",
	CategoryFork:                "fork",
	CategoryPack:                "pack",
	CategoryUpdate:              "update",
}

// String returns the lowercase IGDB name for the category.
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "unknown"
}

// CategoryByName resolves a lowercase category name to its enum value.
func CategoryByName(name string) (Category, bool) {
	for c, n := range categoryNames {
		if n == name {
			return c, true
		}
	}
	return CategoryMainGame, false
}

// ReleaseStatus is the IGDB per-platform release status enum.
type ReleaseStatus int

// IGDB release status values.
const (
	StatusReleased ReleaseStatus = iota
	StatusAlpha
	StatusBeta
	StatusEarlyAccess
	StatusOffline
	StatusCancelled
	StatusRumored
	StatusDelisted
)

// Negative reports whether the status is a trust-damaging signal. Only
// cancelled and rumored count; early access, alpha, beta, offline, and
// delisted releases shipped something real.
func (s ReleaseStatus) Negative() bool {
	return s == StatusCancelled || s == StatusRumored
}

// Platform is a platform a game targets, with any per-platform release
// statuses that are known. An empty Statuses slice means no status data,
// which is never held against the game.
type Platform struct {
	ID       int64           `json:"id,omitempty"`
	Name     string          `json:"name"`
	Statuses []ReleaseStatus `json:"statuses,omitempty"`
}

// Dirty reports whether every known status on the platform is negative.
// Platforms with no status data are clean.
func (p Platform) Dirty() bool {
	if len(p.Statuses) == 0 {
		return false
	}
	for _, s := range p.Statuses {
		if !s.Negative() {
			return false
		}
	}
	return true
}

// Candidate is a game under consideration during a search. Candidates are
// built fresh per query from catalog rows and provider payloads; the
// pipeline wraps them in scored results and never mutates them in place.
type Candidate struct {
	IGDBID      int64      `json:"igdb_id,omitempty"`
	LocalID     int64      `json:"local_id,omitempty"`
	Name        string     `json:"name"`
	Summary     string     `json:"summary,omitempty"`
	Description string     `json:"description,omitempty"`
	Category    Category   `json:"category"`
	ReleaseDate time.Time  `json:"release_date,omitzero"`
	Platforms   []Platform `json:"platforms,omitempty"`
	Genres      []string   `json:"genres,omitempty"`
	Rating      float64    `json:"rating,omitempty"`
	RatingCount int        `json:"rating_count,omitempty"`
	Follows     int        `json:"follows,omitempty"`
	Hypes       int        `json:"hypes,omitempty"`
	Greenlight  bool       `json:"greenlight,omitempty"`
	Redlight    bool       `json:"redlight,omitempty"`
	Source      Source     `json:"source,omitempty"`
}

// StrongQuality reports whether the candidate's community signals are strong
// enough to override category-based removal: a well-established rating, or
// a large follower base.
func (c *Candidate) StrongQuality() bool {
	if c.Rating > 70 && c.RatingCount > 50 {
		return true
	}
	return c.Follows > 1000
}

// GoodQuality reports whether the candidate's signals are good enough to
// override name-pattern removal. Looser than StrongQuality.
func (c *Candidate) GoodQuality() bool {
	return c.Rating > 75 || c.Follows > 500
}

// HasRatingData reports whether the candidate carries a usable rating.
// Zero values mean the provider had nothing, not a zero score.
func (c *Candidate) HasRatingData() bool {
	return c.Rating > 0 && c.RatingCount > 0
}

// Engagement is the combined follower and pre-release interest count.
func (c *Candidate) Engagement() int {
	return c.Follows + c.Hypes
}
