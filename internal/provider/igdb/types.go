package igdb

import (
	"time"

	"github.com/pikestaff/cartridge/internal/game"
)

// gameFields is the APIcalypse field list requested for every game query.
// Expanded references (genres.name, platforms.name) come back as nested
// objects with their ids included.
const gameFields = "id, name, summary, storyline, category, first_release_date, " +
	"total_rating, total_rating_count, follows, hypes, " +
	"genres.name, platforms.name, release_dates.platform, release_dates.status"

type rawNamed struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// rawReleaseDate carries the per-platform release status. Status is a
// pointer because IGDB omits the field entirely for plain releases, and
// absent must not read as an explicit status.
type rawReleaseDate struct {
	Platform int64 `json:"platform"`
	Status   *int  `json:"status"`
}

type rawGame struct {
	ID               int64            `json:"id"`
	Name             string           `json:"name"`
	Summary          string           `json:"summary"`
	Storyline        string           `json:"storyline"`
	Category         int              `json:"category"`
	FirstReleaseDate int64            `json:"first_release_date"`
	TotalRating      float64          `json:"total_rating"`
	TotalRatingCount int              `json:"total_rating_count"`
	Follows          int              `json:"follows"`
	Hypes            int              `json:"hypes"`
	Genres           []rawNamed       `json:"genres"`
	Platforms        []rawNamed       `json:"platforms"`
	ReleaseDates     []rawReleaseDate `json:"release_dates"`
}

func (r rawGame) toCandidate() game.Candidate {
	c := game.Candidate{
		IGDBID:      r.ID,
		Name:        r.Name,
		Summary:     r.Summary,
		Description: r.Storyline,
		Category:    game.Category(r.Category),
		Rating:      r.TotalRating,
		RatingCount: r.TotalRatingCount,
		Follows:     r.Follows,
		Hypes:       r.Hypes,
		Source:      game.SourceProvider,
	}
	if r.FirstReleaseDate > 0 {
		c.ReleaseDate = time.Unix(r.FirstReleaseDate, 0).UTC()
	}
	for _, g := range r.Genres {
		if g.Name != "" {
			c.Genres = append(c.Genres, g.Name)
		}
	}
	for _, p := range r.Platforms {
		if p.Name == "" {
			continue
		}
		platform := game.Platform{ID: p.ID, Name: p.Name}
		for _, rd := range r.ReleaseDates {
			if rd.Platform == p.ID && rd.Status != nil {
				platform.Statuses = append(platform.Statuses, game.ReleaseStatus(*rd.Status))
			}
		}
		c.Platforms = append(c.Platforms, platform)
	}
	return c
}
