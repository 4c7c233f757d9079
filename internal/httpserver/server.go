package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/x402gateway/gateway/internal/config"
	"github.com/x402gateway/gateway/internal/logger"
	"github.com/x402gateway/gateway/internal/metrics"
	"github.com/x402gateway/gateway/internal/proxy"
	"github.com/x402gateway/gateway/internal/ratelimit"
)

var serverStartTime = time.Now()

// Server wires the proxy pipeline, middleware, and the chi router into a
// runnable http.Server.
type Server struct {
	handlers
	httpServer *http.Server
}

type handlers struct {
	cfg      *config.Config
	pipeline *proxy.Pipeline
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// New builds the HTTP server with its configured router.
func New(cfg *config.Config, pipeline *proxy.Pipeline, metricsCollector *metrics.Metrics, appLogger zerolog.Logger) *Server {
	router := chi.NewRouter()

	s := &Server{
		handlers: handlers{
			cfg:      cfg,
			pipeline: pipeline,
			metrics:  metricsCollector,
			logger:   appLogger,
		},
		httpServer: &http.Server{
			Addr:         cfg.Server.Address,
			ReadTimeout:  cfg.Server.ReadTimeout.Duration,
			WriteTimeout: cfg.Server.WriteTimeout.Duration,
			IdleTimeout:  cfg.Server.IdleTimeout.Duration,
			Handler:      router,
		},
	}

	ConfigureRouter(router, cfg, pipeline, metricsCollector, appLogger)

	return s
}

// ConfigureRouter attaches gateway routes to an existing router.
func ConfigureRouter(router chi.Router, cfg *config.Config, pipeline *proxy.Pipeline, metricsCollector *metrics.Metrics, appLogger zerolog.Logger) {
	if router == nil {
		return
	}

	handler := handlers{
		cfg:      cfg,
		pipeline: pipeline,
		metrics:  metricsCollector,
		logger:   appLogger,
	}

	if len(cfg.Server.CORSAllowedOrigins) > 0 {
		router.Use(cors.New(cors.Options{
			AllowedOrigins:   cfg.Server.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			ExposedHeaders:   []string{"X-Payment-Response", "Payment-Response", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
			AllowCredentials: false,
			MaxAge:           300,
		}).Handler)
	}

	// Security headers applied first for every response.
	router.Use(securityHeadersMiddleware)

	// Structured logging runs before chi's RequestID: it takes the request ID
	// from X-Request-ID (or generates one) for the request-scoped logger
	// itself, independently of the ID RequestID attaches afterwards.
	router.Use(logger.Middleware(appLogger))
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	// Coarse abuse throttle ahead of endpoint resolution (global + per-IP).
	// Per-endpoint limits are enforced later, inside the pipeline, once a
	// tenant/endpoint pair is known.
	outerRateLimit := ratelimit.Config{
		GlobalEnabled: cfg.RateLimit.GlobalEnabled,
		GlobalLimit:   cfg.RateLimit.GlobalLimit,
		GlobalWindow:  cfg.RateLimit.GlobalWindow.Duration,
		PerIPEnabled:  cfg.RateLimit.PerIPEnabled,
		PerIPLimit:    cfg.RateLimit.PerIPLimit,
		PerIPWindow:   cfg.RateLimit.PerIPWindow.Duration,
		Metrics:       metricsCollector,
	}
	router.Use(ratelimit.Middleware(outerRateLimit))

	prefix := cfg.Server.RoutePrefix

	// Lightweight endpoints: health checks and metrics, short timeout.
	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(5 * time.Second))
		r.Get(prefix+"/healthz", handler.health)
		r.Get(prefix+"/readyz", handler.ready)
		r.With(adminMetricsAuth(cfg.Server.AdminMetricsAPIKey)).Handle(prefix+"/metrics", promhttp.Handler())
	})

	// Proxied requests: the monetized surface. Generous timeout since the
	// pipeline blocks on facilitator verify/settle and the tenant's
	// upstream, both external calls.
	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.HandleFunc("/{tenantSlug}/{endpointSlug}", handler.proxyRequest)
		r.HandleFunc("/{tenantSlug}/{endpointSlug}/*", handler.proxyRequest)
	})
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
