package search

import (
	"strconv"

	"github.com/pikestaff/cartridge/internal/game"
)

// mergeDedupe unions catalog and provider results. Catalog entries are
// authoritative: a provider entry matching a seen key is folded into the
// existing entry instead of appended, filling only fields the catalog had
// empty. Both the external id and the normalized name register as keys, so a
// catalog row that never synced an id still swallows its provider twin.
func mergeDedupe(catalog, provider []game.Candidate) []game.Candidate {
	out := make([]game.Candidate, 0, len(catalog)+len(provider))
	index := make(map[string]int, 2*len(catalog))

	for _, c := range catalog {
		out = append(out, c)
		registerKeys(index, &c, len(out)-1)
	}

	for _, p := range provider {
		if i, seen := lookupKeys(index, &p); seen {
			fillFrom(&out[i], &p)
			// The fill may have attached an external id the catalog row
			// lacked; index it so later twins also collapse.
			registerKeys(index, &out[i], i)
			continue
		}
		out = append(out, p)
		registerKeys(index, &p, len(out)-1)
	}

	return out
}

func registerKeys(index map[string]int, c *game.Candidate, i int) {
	if c.IGDBID > 0 {
		key := "igdb:" + strconv.FormatInt(c.IGDBID, 10)
		if _, taken := index[key]; !taken {
			index[key] = i
		}
	}
	if n := game.NormalizeName(c.Name); n != "" {
		key := "name:" + n
		if _, taken := index[key]; !taken {
			index[key] = i
		}
	}
}

func lookupKeys(index map[string]int, c *game.Candidate) (int, bool) {
	if c.IGDBID > 0 {
		if i, ok := index["igdb:"+strconv.FormatInt(c.IGDBID, 10)]; ok {
			return i, true
		}
	}
	if n := game.NormalizeName(c.Name); n != "" {
		if i, ok := index["name:"+n]; ok {
			return i, true
		}
	}
	return 0, false
}

// fillFrom copies provider data into fields the catalog entry left empty.
// The catalog keeps its category and curation flags unconditionally; rating
// and rating count move together so a count never arrives without its
// rating.
func fillFrom(dst, src *game.Candidate) {
	if dst.IGDBID == 0 {
		dst.IGDBID = src.IGDBID
	}
	if dst.Summary == "" {
		dst.Summary = src.Summary
	}
	if dst.Description == "" {
		dst.Description = src.Description
	}
	if dst.ReleaseDate.IsZero() {
		dst.ReleaseDate = src.ReleaseDate
	}
	if len(dst.Platforms) == 0 {
		dst.Platforms = src.Platforms
	}
	if len(dst.Genres) == 0 {
		dst.Genres = src.Genres
	}
	if !dst.HasRatingData() && src.HasRatingData() {
		dst.Rating = src.Rating
		dst.RatingCount = src.RatingCount
	}
	if dst.Follows == 0 {
		dst.Follows = src.Follows
	}
	if dst.Hypes == 0 {
		dst.Hypes = src.Hypes
	}
}
