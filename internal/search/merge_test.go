package search

import (
	"testing"
	"time"

	"github.com/pikestaff/cartridge/internal/game"
)

func TestMergeDedupeByExternalID(t *testing.T) {
	catalog := []game.Candidate{
		{IGDBID: 1022, Name: "The Legend of Zelda: Breath of the Wild", Source: game.SourceCatalog},
	}
	provider := []game.Candidate{
		{IGDBID: 1022, Name: "The Legend of Zelda: Breath of the Wild", Source: game.SourceProvider},
		{IGDBID: 119388, Name: "Tears of the Kingdom", Source: game.SourceProvider},
	}

	merged := mergeDedupe(catalog, provider)
	if len(merged) != 2 {
		t.Fatalf("merged %d candidates, want 2", len(merged))
	}
	if merged[0].Source != game.SourceCatalog {
		t.Error("catalog entry lost precedence on id conflict")
	}
	seen := map[int64]int{}
	for _, c := range merged {
		seen[c.IGDBID]++
	}
	if seen[1022] != 1 {
		t.Errorf("igdb id 1022 appears %d times, want exactly 1", seen[1022])
	}
}

func TestMergeDedupeByNormalizedName(t *testing.T) {
	catalog := []game.Candidate{
		{Name: "Pokémon Red", Source: game.SourceCatalog},
	}
	provider := []game.Candidate{
		{IGDBID: 501, Name: "Pokemon Red", Source: game.SourceProvider},
	}

	merged := mergeDedupe(catalog, provider)
	if len(merged) != 1 {
		t.Fatalf("merged %d candidates, want 1 (diacritics fold in the key)", len(merged))
	}
	if merged[0].Source != game.SourceCatalog {
		t.Error("catalog entry lost precedence on name conflict")
	}
	if merged[0].IGDBID != 501 {
		t.Errorf("external id not filled onto the catalog entry, got %d", merged[0].IGDBID)
	}
}

func TestMergeFillsEmptyFieldsOnly(t *testing.T) {
	release := time.Date(2017, 3, 3, 0, 0, 0, 0, time.UTC)
	catalog := []game.Candidate{{
		IGDBID:   1022,
		Name:     "Breath of the Wild",
		Summary:  "Curated local summary.",
		Category: game.CategoryMainGame,
		Rating:   90,
		// RatingCount is zero, so no usable rating data locally.
		RatingCount: 0,
		Greenlight:  true,
		Source:      game.SourceCatalog,
	}}
	provider := []game.Candidate{{
		IGDBID:      1022,
		Name:        "The Legend of Zelda: Breath of the Wild",
		Summary:     "Provider summary.",
		Description: "Provider storyline.",
		Category:    game.CategoryRemaster,
		ReleaseDate: release,
		Genres:      []string{"Adventure"},
		Rating:      92.5,
		RatingCount: 1200,
		Follows:     800,
		Source:      game.SourceProvider,
	}}

	merged := mergeDedupe(catalog, provider)
	if len(merged) != 1 {
		t.Fatalf("merged %d candidates, want 1", len(merged))
	}
	got := merged[0]

	if got.Summary != "Curated local summary." {
		t.Error("non-empty catalog summary overwritten")
	}
	if got.Category != game.CategoryMainGame {
		t.Error("catalog category overwritten")
	}
	if !got.Greenlight {
		t.Error("curation flag lost on merge")
	}
	if got.Description != "Provider storyline." {
		t.Error("empty description not filled from provider")
	}
	if !got.ReleaseDate.Equal(release) {
		t.Error("empty release date not filled from provider")
	}
	if len(got.Genres) != 1 {
		t.Error("empty genres not filled from provider")
	}
	if got.Rating != 92.5 || got.RatingCount != 1200 {
		t.Errorf("rating pair = %v/%d, want provider's 92.5/1200 since catalog had no usable data",
			got.Rating, got.RatingCount)
	}
	if got.Follows != 800 {
		t.Errorf("follows = %d, want filled 800", got.Follows)
	}
}

func TestMergeKeepsCatalogRatingWhenUsable(t *testing.T) {
	catalog := []game.Candidate{{IGDBID: 7, Name: "A", Rating: 75, RatingCount: 40}}
	provider := []game.Candidate{{IGDBID: 7, Name: "A", Rating: 92, RatingCount: 9000}}

	merged := mergeDedupe(catalog, provider)
	if merged[0].Rating != 75 || merged[0].RatingCount != 40 {
		t.Errorf("catalog rating pair replaced: got %v/%d", merged[0].Rating, merged[0].RatingCount)
	}
}

func TestMergeProviderOnly(t *testing.T) {
	provider := []game.Candidate{
		{IGDBID: 1, Name: "One"},
		{IGDBID: 2, Name: "Two"},
		{IGDBID: 1, Name: "One Again"},
	}
	merged := mergeDedupe(nil, provider)
	if len(merged) != 2 {
		t.Fatalf("merged %d candidates, want 2 (provider self-dedupes)", len(merged))
	}
}

func TestMergeLateTwinCollapsesAfterIDFill(t *testing.T) {
	// The catalog row has no external id. The first provider entry fills it;
	// a second provider entry with the same id but different name must then
	// collapse into it too.
	catalog := []game.Candidate{{Name: "Okami", Source: game.SourceCatalog}}
	provider := []game.Candidate{
		{IGDBID: 339, Name: "Ōkami", Source: game.SourceProvider},
		{IGDBID: 339, Name: "Okami HD", Source: game.SourceProvider},
	}

	merged := mergeDedupe(catalog, provider)
	if len(merged) != 1 {
		t.Fatalf("merged %d candidates, want 1", len(merged))
	}
	if merged[0].IGDBID != 339 {
		t.Errorf("id = %d, want 339", merged[0].IGDBID)
	}
}

func TestMergeEmptyInputs(t *testing.T) {
	if got := mergeDedupe(nil, nil); len(got) != 0 {
		t.Errorf("merge of nothing produced %d candidates", len(got))
	}
}
