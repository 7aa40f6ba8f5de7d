// Package api exposes the HTTP surface: search, game lookup, health, and
// Prometheus metrics.
package api

import (
	"log/slog"
	"net/http"

	"github.com/pikestaff/cartridge/internal/api/middleware"
	"github.com/pikestaff/cartridge/internal/catalog"
	"github.com/pikestaff/cartridge/internal/metrics"
	"github.com/pikestaff/cartridge/internal/search"
)

// RouterDeps bundles all dependencies needed by the HTTP router.
type RouterDeps struct {
	SearchService *search.Service
	Catalog       *catalog.QueryAdapter
	Metrics       *metrics.Metrics

	// SearchLimiter throttles the search endpoint per client IP. Nil disables
	// throttling.
	SearchLimiter *middleware.SearchRateLimiter

	Logger   *slog.Logger
	BasePath string
}

// Router sets up all HTTP routes for the application.
type Router struct {
	search        *search.Service
	catalog       *catalog.QueryAdapter
	metrics       *metrics.Metrics
	searchLimiter *middleware.SearchRateLimiter
	logger        *slog.Logger
	basePath      string
}

// NewRouter creates a new Router with all routes configured.
func NewRouter(deps RouterDeps) *Router {
	return &Router{
		search:        deps.SearchService,
		catalog:       deps.Catalog,
		metrics:       deps.Metrics,
		searchLimiter: deps.SearchLimiter,
		logger:        deps.Logger,
		basePath:      deps.BasePath,
	}
}

// Handler returns the fully configured HTTP handler with middleware applied.
func (r *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	bp := r.basePath

	mux.HandleFunc("GET "+bp+"/api/v1/health", r.handleHealth)
	mux.Handle("GET "+bp+"/api/v1/search", r.limited(http.HandlerFunc(r.handleSearch)))
	mux.HandleFunc("GET "+bp+"/api/v1/games/{id}", r.handleGetGame)
	mux.Handle("GET "+bp+"/metrics", r.metrics.Handler())

	// Apply logging to all requests
	return middleware.Logging(r.logger)(mux)
}

func (r *Router) limited(next http.Handler) http.Handler {
	if r.searchLimiter == nil {
		return next
	}
	return r.searchLimiter.Middleware(next)
}
