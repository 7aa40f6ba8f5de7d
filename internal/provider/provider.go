// Package provider defines the external metadata source contract and the
// shared machinery in front of it: rate limiting and retry (Gate), result
// caching (ResultCache), and catalog fallback (FallbackSearcher).
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pikestaff/cartridge/internal/game"
)

// FailureCategory classifies why a provider call failed.
type FailureCategory string

// Known failure categories.
const (
	CategoryNetwork FailureCategory = "network"
	CategoryServer  FailureCategory = "server"
	CategoryQuota   FailureCategory = "quota"
	CategoryDecode  FailureCategory = "decode"
)

// Searcher is the interface all metadata source adapters must implement.
type Searcher interface {
	// Name returns the unique provider identifier.
	Name() string

	// Search queries the provider by free text. Returns zero or more candidates.
	Search(ctx context.Context, query string, limit int) ([]game.Candidate, error)

	// GetByIDs fetches candidates by the provider's own IDs. Missing IDs are
	// omitted from the result rather than reported as errors.
	GetByIDs(ctx context.Context, ids []int64) ([]game.Candidate, error)
}

// ErrProviderUnavailable indicates a failed provider call (timeout, server
// error, malformed response).
type ErrProviderUnavailable struct {
	Provider string
	Category FailureCategory
	Cause    error
}

func (e *ErrProviderUnavailable) Error() string {
	return fmt.Sprintf("provider %s unavailable (%s): %v", e.Provider, e.Category, e.Cause)
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Cause }

// ErrRateLimited indicates the provider rejected a request with HTTP 429.
// The Gate retries these with exponential backoff.
type ErrRateLimited struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *ErrRateLimited) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider %s rate limited, retry after %s", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("provider %s rate limited", e.Provider)
}

// CategoryOf extracts the failure category from a provider error chain.
func CategoryOf(err error) FailureCategory {
	var rl *ErrRateLimited
	if errors.As(err, &rl) {
		return CategoryQuota
	}
	var unavail *ErrProviderUnavailable
	if errors.As(err, &unavail) {
		return unavail.Category
	}
	return CategoryNetwork
}
