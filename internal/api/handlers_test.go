package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/pikestaff/cartridge/internal/catalog"
	"github.com/pikestaff/cartridge/internal/database"
	"github.com/pikestaff/cartridge/internal/game"
	"github.com/pikestaff/cartridge/internal/metrics"
	"github.com/pikestaff/cartridge/internal/search"
)

func testRouter(t *testing.T, games ...game.Candidate) (*Router, *catalog.Store) {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	store := catalog.NewStore(db)
	if len(games) > 0 {
		if _, err := store.Upsert(context.Background(), games); err != nil {
			t.Fatalf("seeding catalog: %v", err)
		}
	}

	adapter := catalog.NewQueryAdapter(store, logger)
	m := metrics.New()
	svc := search.NewService(search.Deps{
		Catalog: adapter,
		Metrics: m,
		Logger:  logger,
	})

	r := NewRouter(RouterDeps{
		SearchService: svc,
		Catalog:       adapter,
		Metrics:       m,
		Logger:        logger,
	})
	return r, store
}

func seedGame(igdbID int64, name string, rating float64, count int) game.Candidate {
	return game.Candidate{
		IGDBID:      igdbID,
		Name:        name,
		Summary:     "A game about " + name + ".",
		Category:    game.CategoryMainGame,
		ReleaseDate: time.Date(2019, 5, 10, 0, 0, 0, 0, time.UTC),
		Platforms:   []game.Platform{{ID: 130, Name: "Nintendo Switch"}},
		Genres:      []string{"Adventure"},
		Rating:      rating,
		RatingCount: count,
		Source:      game.SourceProvider,
	}
}

func get(t *testing.T, handler http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestHandleHealth(t *testing.T) {
	r, _ := testRouter(t)

	w := get(t, r.Handler(), "/api/v1/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
	if body["time"] == "" {
		t.Error("expected a timestamp")
	}
}

func TestHandleSearch(t *testing.T) {
	r, _ := testRouter(t,
		seedGame(1, "Hollow Knight", 92, 1800),
		seedGame(2, "Hollow Knight: Silksong", 89, 700),
		seedGame(3, "Celeste", 94, 1200),
	)

	w := get(t, r.Handler(), "/api/v1/search?q=hollow+knight")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp searchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Query != "hollow knight" {
		t.Errorf("query = %q", resp.Query)
	}
	if resp.Count != 2 {
		t.Fatalf("count = %d, want 2; body: %s", resp.Count, w.Body.String())
	}
	if resp.Results[0].Name != "Hollow Knight" {
		t.Errorf("top result = %q, want exact match first", resp.Results[0].Name)
	}
	if resp.Results[0].Rank != 1 || resp.Results[1].Rank != 2 {
		t.Errorf("ranks = %d, %d", resp.Results[0].Rank, resp.Results[1].Rank)
	}
}

func TestHandleSearchEmptyQuery(t *testing.T) {
	r, _ := testRouter(t, seedGame(1, "Hollow Knight", 92, 1800))

	for _, target := range []string{"/api/v1/search", "/api/v1/search?q=", "/api/v1/search?q=%20%20"} {
		w := get(t, r.Handler(), target)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, want %d", target, w.Code, http.StatusOK)
		}
		var resp searchResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if resp.Count != 0 {
			t.Errorf("%s: count = %d, want 0", target, resp.Count)
		}
		if resp.Results == nil {
			t.Errorf("%s: results is null, want []", target)
		}
	}
}

func TestHandleSearchMalformedNumbers(t *testing.T) {
	r, _ := testRouter(t)
	h := r.Handler()

	for _, target := range []string{
		"/api/v1/search?q=zelda&limit=abc",
		"/api/v1/search?q=zelda&min_rating=high",
		"/api/v1/search?q=zelda&year_from=199x",
		"/api/v1/search?q=zelda&year_to=20.5",
	} {
		w := get(t, h, target)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want %d", target, w.Code, http.StatusBadRequest)
		}
		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if body["error"] == "" {
			t.Errorf("%s: missing error message", target)
		}
	}
}

func TestHandleSearchInvalidOptionValuesDegrade(t *testing.T) {
	r, _ := testRouter(t, seedGame(1, "Hollow Knight", 92, 1800))

	// Well-formed numbers with out-of-range values are absorbed by the
	// pipeline as an empty result, not rejected.
	w := get(t, r.Handler(), "/api/v1/search?q=hollow&limit=-5")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp searchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Count != 0 {
		t.Errorf("count = %d, want 0", resp.Count)
	}
}

func TestHandleSearchFilters(t *testing.T) {
	soulsSwitch := seedGame(10, "Dark Souls Remastered", 85, 900)
	soulsPS := seedGame(11, "Dark Souls III", 89, 2100)
	soulsPS.Platforms = []game.Platform{{ID: 48, Name: "PlayStation 4"}}
	soulsPS.ReleaseDate = time.Date(2016, 4, 12, 0, 0, 0, 0, time.UTC)

	r, _ := testRouter(t, soulsSwitch, soulsPS)
	h := r.Handler()

	w := get(t, h, "/api/v1/search?q=dark+souls&platforms=playstation")
	var resp searchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Count != 1 || resp.Results[0].Name != "Dark Souls III" {
		t.Errorf("platform filter returned %d results; body: %s", resp.Count, w.Body.String())
	}

	w = get(t, h, "/api/v1/search?q=dark+souls&year_from=2018")
	resp = searchResponse{}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Count != 1 || resp.Results[0].Name != "Dark Souls Remastered" {
		t.Errorf("year filter returned %d results; body: %s", resp.Count, w.Body.String())
	}
}

func TestHandleSearchDebugDiagnostics(t *testing.T) {
	r, _ := testRouter(t, seedGame(1, "Hollow Knight", 92, 1800))
	h := r.Handler()

	w := get(t, h, "/api/v1/search?q=hollow&debug=true")
	var resp searchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Count != 1 {
		t.Fatalf("count = %d, want 1", resp.Count)
	}
	if resp.Results[0].Diagnostics == nil {
		t.Error("debug search carries no diagnostics")
	}

	w = get(t, h, "/api/v1/search?q=hollow")
	resp = searchResponse{}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Count != 1 {
		t.Fatalf("count = %d, want 1", resp.Count)
	}
	if resp.Results[0].Diagnostics != nil {
		t.Error("plain search carries diagnostics")
	}
}

func TestHandleGetGame(t *testing.T) {
	r, store := testRouter(t, seedGame(1022, "The Legend of Zelda: Breath of the Wild", 96, 3200))
	h := r.Handler()

	stored, err := store.GetByIGDBID(context.Background(), 1022)
	if err != nil || stored == nil {
		t.Fatalf("looking up seeded game: %v", err)
	}

	w := get(t, h, "/api/v1/games/"+strconv.FormatInt(stored.LocalID, 10))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	var got game.Candidate
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if got.Name != "The Legend of Zelda: Breath of the Wild" {
		t.Errorf("name = %q", got.Name)
	}
	if got.IGDBID != 1022 {
		t.Errorf("igdb id = %d", got.IGDBID)
	}
}

func TestHandleGetGameNotFound(t *testing.T) {
	r, _ := testRouter(t)

	w := get(t, r.Handler(), "/api/v1/games/9999")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestHandleGetGameBadID(t *testing.T) {
	r, _ := testRouter(t)
	h := r.Handler()

	for _, target := range []string{"/api/v1/games/abc", "/api/v1/games/0", "/api/v1/games/-4"} {
		w := get(t, h, target)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want %d", target, w.Code, http.StatusBadRequest)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := testRouter(t, seedGame(1, "Hollow Knight", 92, 1800))
	h := r.Handler()

	// Generate one search so the counters exist.
	get(t, h, "/api/v1/search?q=hollow")

	w := get(t, h, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if body := w.Body.String(); !strings.Contains(body, "cartridge_searches_total") {
		t.Errorf("metrics output missing search counter:\n%s", body)
	}
}

func TestBasePathPrefix(t *testing.T) {
	r, _ := testRouter(t)
	r.basePath = "/cartridge"
	h := r.Handler()

	if w := get(t, h, "/cartridge/api/v1/health"); w.Code != http.StatusOK {
		t.Errorf("prefixed health status = %d, want %d", w.Code, http.StatusOK)
	}
	if w := get(t, h, "/api/v1/health"); w.Code == http.StatusOK {
		t.Error("unprefixed path should not resolve when a base path is set")
	}
}

