package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pikestaff/cartridge/internal/search"
	"github.com/pikestaff/cartridge/internal/version"
)

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
		"commit":  version.Commit,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// searchResponse is the envelope for search results. Results is never null.
type searchResponse struct {
	Query   string          `json:"query"`
	Count   int             `json:"count"`
	Results []search.Result `json:"results"`
}

func (r *Router) handleSearch(w http.ResponseWriter, req *http.Request) {
	params := req.URL.Query()

	opts, err := searchOptions(params)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	query := strings.TrimSpace(params.Get("q"))
	results, err := r.search.Search(req.Context(), query, opts)
	if err != nil {
		r.logger.Error("search failed",
			slog.String("query", query),
			slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if results == nil {
		results = []search.Result{}
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Query:   query,
		Count:   len(results),
		Results: results,
	})
}

// searchOptions maps query parameters onto pipeline options. Malformed
// numeric values are the only rejection here; everything else the pipeline
// validates itself and answers with an empty result.
func searchOptions(params url.Values) (search.Options, error) {
	var opts search.Options
	var err error

	if v := params.Get("limit"); v != "" {
		if opts.Limit, err = strconv.Atoi(v); err != nil {
			return opts, fmt.Errorf("limit must be an integer")
		}
	}
	if v := params.Get("min_rating"); v != "" {
		if opts.MinRating, err = strconv.ParseFloat(v, 64); err != nil {
			return opts, fmt.Errorf("min_rating must be a number")
		}
	}
	if v := params.Get("year_from"); v != "" {
		if opts.ReleaseYearFrom, err = strconv.Atoi(v); err != nil {
			return opts, fmt.Errorf("year_from must be an integer")
		}
	}
	if v := params.Get("year_to"); v != "" {
		if opts.ReleaseYearTo, err = strconv.Atoi(v); err != nil {
			return opts, fmt.Errorf("year_to must be an integer")
		}
	}

	opts.Platforms = splitTerms(params.Get("platforms"))
	opts.Genres = splitTerms(params.Get("genres"))
	opts.Sort = search.SortMode(params.Get("sort"))
	opts.Debug = params.Get("debug") == "true" || params.Get("debug") == "1"
	return opts, nil
}

// splitTerms parses a comma-separated filter parameter.
func splitTerms(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (r *Router) handleGetGame(w http.ResponseWriter, req *http.Request) {
	id, err := strconv.ParseInt(req.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}

	g, err := r.catalog.GetByID(req.Context(), id)
	if err != nil {
		r.logger.Error("getting game failed",
			slog.Int64("id", id),
			slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if g == nil {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}

	writeJSON(w, http.StatusOK, g)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encode error", http.StatusInternalServerError)
	}
}
