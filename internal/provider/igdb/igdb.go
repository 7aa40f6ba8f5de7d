// Package igdb implements provider.Searcher for the IGDB v4 API.
// Authentication uses Twitch OAuth2 client credentials; tokens are cached
// and refreshed by the token source.
package igdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/pikestaff/cartridge/internal/game"
	"github.com/pikestaff/cartridge/internal/provider"
)

const (
	providerName    = "igdb"
	defaultBaseURL  = "https://api.igdb.com/v4"
	defaultTokenURL = "https://id.twitch.tv/oauth2/token"

	// IGDB rejects larger result windows.
	maxPageSize = 500
)

// Config holds IGDB credentials and endpoints. BaseURL and TokenURL are
// overridable for testing and default to the public endpoints.
type Config struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	TokenURL     string
}

// Adapter implements provider.Searcher for IGDB.
type Adapter struct {
	client   *http.Client
	tokens   oauth2.TokenSource
	clientID string
	logger   *slog.Logger
	baseURL  string
}

// New creates an IGDB adapter. Twitch requires client credentials in the
// POST body rather than a basic auth header.
func New(cfg Config, logger *slog.Logger) *Adapter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}

	httpClient := &http.Client{Timeout: 10 * time.Second}
	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)

	return &Adapter{
		client:   httpClient,
		tokens:   creds.TokenSource(tokenCtx),
		clientID: cfg.ClientID,
		logger:   logger.With(slog.String("provider", providerName)),
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the provider identifier.
func (a *Adapter) Name() string { return providerName }

// Search queries IGDB games by free text. Alternate versions are excluded;
// IGDB lists them under their parent game.
func (a *Adapter) Search(ctx context.Context, query string, limit int) ([]game.Candidate, error) {
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	body := fmt.Sprintf("search \"%s\"; fields %s; where version_parent = null; limit %d;",
		escapeQuery(query), gameFields, limit)

	raw, err := a.doRequest(ctx, "/games", body)
	if err != nil {
		return nil, err
	}

	results, err := a.decodeGames(raw)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("game search completed",
		slog.String("query", query),
		slog.Int("results", len(results)))

	return results, nil
}

// GetByIDs fetches games by IGDB ID. IDs unknown to IGDB are omitted from
// the result.
func (a *Adapter) GetByIDs(ctx context.Context, ids []int64) ([]game.Candidate, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > maxPageSize {
		ids = ids[:maxPageSize]
	}

	idList := make([]string, len(ids))
	for i, id := range ids {
		idList[i] = strconv.FormatInt(id, 10)
	}
	body := fmt.Sprintf("fields %s; where id = (%s); limit %d;",
		gameFields, strings.Join(idList, ","), len(ids))

	raw, err := a.doRequest(ctx, "/games", body)
	if err != nil {
		return nil, err
	}

	return a.decodeGames(raw)
}

func (a *Adapter) decodeGames(raw []byte) ([]game.Candidate, error) {
	var games []rawGame
	if err := json.Unmarshal(raw, &games); err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: providerName,
			Category: provider.CategoryDecode,
			Cause:    fmt.Errorf("parsing games response: %w", err),
		}
	}

	results := make([]game.Candidate, 0, len(games))
	for _, g := range games {
		if g.Name == "" {
			continue
		}
		results = append(results, g.toCandidate())
	}
	return results, nil
}

// doRequest executes an APIcalypse POST and returns the response body.
func (a *Adapter) doRequest(ctx context.Context, path, body string) ([]byte, error) {
	tok, err := a.tokens.Token()
	if err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: providerName,
			Category: provider.CategoryNetwork,
			Cause:    fmt.Errorf("fetching access token: %w", err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Client-ID", a.clientID)
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: providerName,
			Category: provider.CategoryNetwork,
			Cause:    err,
		}
	}
	defer resp.Body.Close() //nolint:errcheck

	switch resp.StatusCode {
	case http.StatusOK:
		// continue
	case http.StatusTooManyRequests:
		return nil, &provider.ErrRateLimited{
			Provider:   providerName,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, &provider.ErrProviderUnavailable{
			Provider: providerName,
			Category: provider.CategoryServer,
			Cause:    fmt.Errorf("credentials rejected with status %d", resp.StatusCode),
		}
	default:
		return nil, &provider.ErrProviderUnavailable{
			Provider: providerName,
			Category: provider.CategoryServer,
			Cause:    fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	return io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
}

// escapeQuery neutralizes quotes so user text cannot break out of the
// APIcalypse search string.
func escapeQuery(q string) string {
	q = strings.ReplaceAll(q, `\`, `\\`)
	return strings.ReplaceAll(q, `"`, `\"`)
}

// parseRetryAfter reads a Retry-After header given in seconds.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
