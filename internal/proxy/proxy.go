// Package proxy implements the per-request state machine (C7) that turns a
// resolved tenant/endpoint route into a monetized upstream fetch: resolve,
// rate-limit, parse and verify payment, record it, assemble the upstream
// request, forward, settle, and respond (spec §4.7). Every other component
// (C1-C6, C8) is a dependency this package wires together; it holds no
// business logic of its own beyond the ordering and error-kind mapping.
package proxy

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/x402gateway/gateway/internal/circuitbreaker"
	"github.com/x402gateway/gateway/internal/facilitator"
	"github.com/x402gateway/gateway/internal/metrics"
	"github.com/x402gateway/gateway/internal/ratelimit"
	"github.com/x402gateway/gateway/internal/secretstore"
	"github.com/x402gateway/gateway/internal/storage"
	"github.com/x402gateway/gateway/internal/tenant"
)

// Config carries the process-level settings the pipeline consults on every
// request: protocol defaults, upstream-URL validation relaxations, and the
// asset addresses quoted to payers (spec §6.5).
type Config struct {
	Assets                    facilitator.AssetAddresses
	ForceTestnet              bool
	MaxTimeoutSeconds         int
	WalletConnectProjectID    string
	AllowLocalhostUpstream    bool
	AllowOtherSchemesUpstream bool
	BaseURL                   string
}

// Pipeline holds every dependency a proxied request touches, built once at
// process start and read-only thereafter (spec §5: "facilitator client:
// initialized once, then read-only; all method calls are concurrency-safe").
type Pipeline struct {
	resolver    *tenant.Resolver
	store       storage.Store
	secrets     *secretstore.Store
	facilitator *facilitator.Client
	limiter     *ratelimit.Limiter
	metrics     *metrics.Metrics
	breakers    *circuitbreaker.Manager
	upstream    *http.Client
	cfg         Config
	logger      zerolog.Logger
}

// Deps bundles the constructor arguments so New's signature stays stable as
// dependencies are added.
type Deps struct {
	Resolver     *tenant.Resolver
	Store        storage.Store
	Secrets      *secretstore.Store
	Facilitator  *facilitator.Client
	Limiter      *ratelimit.Limiter
	Metrics      *metrics.Metrics
	Breakers     *circuitbreaker.Manager
	UpstreamHTTP *http.Client
	Config       Config
	Logger       zerolog.Logger
}

// New builds a Pipeline from deps, defaulting the upstream HTTP client and
// rate limiter if the caller left them nil.
func New(deps Deps) *Pipeline {
	upstreamClient := deps.UpstreamHTTP
	if upstreamClient == nil {
		upstreamClient = &http.Client{Timeout: 60 * time.Second}
	}
	limiter := deps.Limiter
	if limiter == nil {
		limiter = ratelimit.New()
	}

	return &Pipeline{
		resolver:    deps.Resolver,
		store:       deps.Store,
		secrets:     deps.Secrets,
		facilitator: deps.Facilitator,
		limiter:     limiter,
		metrics:     deps.Metrics,
		breakers:    deps.Breakers,
		upstream:    upstreamClient,
		cfg:         deps.Config,
		logger:      deps.Logger,
	}
}
