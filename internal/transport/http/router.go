package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	apierrors "gridcli/internal/errors"
	"gridcli/internal/middleware"
	"gridcli/internal/services"
)

// RouterOptions wires the proxy server routes
type RouterOptions struct {
	Feeds  FeedServiceInterface
	Health *services.HealthService
	// Metrics serves GET /metrics when set
	Metrics http.Handler
	// RateLimit is requests per second on the API; 0 disables limiting
	RateLimit      float64
	RateLimitBurst int
	// RequestTimeout bounds every API request
	RequestTimeout time.Duration
	IncludeStack   bool
}

// NewRouter builds the proxy server handler
func NewRouter(opts RouterOptions, logger *slog.Logger) chi.Router {
	if logger == nil {
		logger = slog.Default()
	}
	errorHandler := apierrors.NewErrorHandler(logger, opts.IncludeStack)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(errorHandler.Middleware)
	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	r.Get("/healthz", healthz(opts.Health))
	r.Get("/version", version(opts.Health))
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if opts.RateLimit > 0 {
			burst := opts.RateLimitBurst
			if burst < 1 {
				burst = 1
			}
			r.Use(middleware.NewRateLimiter(opts.RateLimit, burst, logger).Handler)
		}
		if opts.RequestTimeout > 0 {
			r.Use(middleware.Timeout(opts.RequestTimeout))
		}
		r.Mount("/feeds", NewFeedHandler(opts.Feeds, logger, errorHandler).Routes())
	})

	return r
}
