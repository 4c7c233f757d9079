// Package tenant resolves a proxied request's (tenantSlug, endpointSlug)
// path prefix into a ResolvedRoute the proxy pipeline can forward against
// (spec §4.6). Route lookups are read-through cached since every request on
// a hot endpoint hits the same tenant/endpoint pair.
package tenant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/x402gateway/gateway/internal/cacheutil"
	"github.com/x402gateway/gateway/internal/storage"
)

// ErrRouteNotFound covers unknown tenant, unknown endpoint, and inactive
// endpoint uniformly — the caller renders all three as a generic 404 so a
// prober cannot distinguish "never existed" from "turned off" (spec §4.6).
var ErrRouteNotFound = errors.New("tenant: route not found")

// ErrMisconfigured means the endpoint resolved but has no usable recipient
// address (no override and no tenant default).
var ErrMisconfigured = errors.New("tenant: endpoint misconfigured")

// reservedSlugs short-circuits lookups against paths the gateway itself
// owns (health checks, metrics, future admin routes) before they ever reach
// storage — these can never be tenant slugs.
var reservedSlugs = map[string]struct{}{
	"health":  {},
	"healthz": {},
	"ready":   {},
	"metrics": {},
	"admin":   {},
	"api":     {},
	"static":  {},
	"favicon.ico": {},
}

// IsReservedSlug reports whether slug is reserved for gateway-internal use
// and can never name a tenant.
func IsReservedSlug(slug string) bool {
	_, reserved := reservedSlugs[strings.ToLower(slug)]
	return reserved
}

// ResolvedRoute is the immutable result of resolving a proxied request's
// path prefix (spec §4.6). PayTo is pre-computed so downstream stages never
// need to re-apply the override/default fallback.
type ResolvedRoute struct {
	Tenant   storage.Tenant
	Endpoint storage.Endpoint
	PayTo    string
}

// Resolver resolves (tenantSlug, endpointSlug) pairs against a Store, caching
// successful resolutions for ttl.
type Resolver struct {
	store storage.Store
	ttl   time.Duration

	mu    sync.RWMutex
	cache map[string]cacheutil.CachedValue[ResolvedRoute]
}

// NewResolver constructs a Resolver. A ttl of zero disables caching (every
// call hits the store).
func NewResolver(store storage.Store, ttl time.Duration) *Resolver {
	return &Resolver{
		store: store,
		ttl:   ttl,
		cache: make(map[string]cacheutil.CachedValue[ResolvedRoute]),
	}
}

// Resolve looks up the route for a proxied request's tenant/endpoint slugs.
// Reserved slugs and unknown/inactive endpoints both yield ErrRouteNotFound;
// an endpoint with no resolvable recipient yields ErrMisconfigured.
func (r *Resolver) Resolve(ctx context.Context, tenantSlug, endpointSlug string) (ResolvedRoute, error) {
	tenantSlug = normalizeSlug(tenantSlug)
	endpointSlug = normalizeSlug(endpointSlug)

	if IsReservedSlug(tenantSlug) {
		return ResolvedRoute{}, ErrRouteNotFound
	}

	key := tenantSlug + "/" + endpointSlug

	if r.ttl <= 0 {
		return r.fetch(ctx, tenantSlug, endpointSlug)
	}

	return cacheutil.ReadThrough(
		&r.mu,
		func(now time.Time) (ResolvedRoute, bool) {
			entry, ok := r.cache[key]
			if !ok || now.Sub(entry.FetchedAt) >= r.ttl {
				return ResolvedRoute{}, false
			}
			return entry.Value, true
		},
		func(now time.Time) (ResolvedRoute, error) {
			route, err := r.fetchLocked(ctx, tenantSlug, endpointSlug)
			if err != nil {
				return ResolvedRoute{}, err
			}
			r.cache[key] = cacheutil.CachedValue[ResolvedRoute]{Value: route, FetchedAt: now}
			return route, nil
		},
	)
}

// fetch performs an uncached lookup (used when caching is disabled).
func (r *Resolver) fetch(ctx context.Context, tenantSlug, endpointSlug string) (ResolvedRoute, error) {
	return r.fetchLocked(ctx, tenantSlug, endpointSlug)
}

// fetchLocked is the shared lookup path for both cached and uncached modes.
// Despite the name it performs no locking itself — ReadThrough's caller
// already holds the appropriate lock when caching is enabled.
func (r *Resolver) fetchLocked(ctx context.Context, tenantSlug, endpointSlug string) (ResolvedRoute, error) {
	t, err := r.store.GetTenantBySlug(ctx, tenantSlug)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ResolvedRoute{}, ErrRouteNotFound
		}
		return ResolvedRoute{}, err
	}

	e, err := r.store.GetEndpoint(ctx, t.ID, endpointSlug)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ResolvedRoute{}, ErrRouteNotFound
		}
		return ResolvedRoute{}, err
	}
	if !e.Active {
		return ResolvedRoute{}, ErrRouteNotFound
	}

	payTo := e.RecipientAddress(t)
	if payTo == "" {
		return ResolvedRoute{}, ErrMisconfigured
	}

	return ResolvedRoute{Tenant: t, Endpoint: e, PayTo: payTo}, nil
}

// Invalidate drops a cached route, e.g. after an admin updates the endpoint.
func (r *Resolver) Invalidate(tenantSlug, endpointSlug string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, normalizeSlug(tenantSlug)+"/"+normalizeSlug(endpointSlug))
}

// normalizeSlug lowercases and trims a path-segment slug before lookup,
// following the lowercase-normalize idiom applied to tenant identifiers
// throughout the gateway.
func normalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}
