package tenant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/x402gateway/gateway/internal/storage"
)

func seededStore() *storage.MemoryStore {
	store := storage.NewMemoryStore()
	store.SeedTenant(storage.Tenant{ID: "t1", Slug: "acme", DefaultRecipient: "0xdefault"})
	store.SeedEndpoint(storage.Endpoint{ID: "e1", TenantID: "t1", Slug: "weather", Active: true})
	store.SeedEndpoint(storage.Endpoint{ID: "e2", TenantID: "t1", Slug: "inactive", Active: false})
	store.SeedEndpoint(storage.Endpoint{ID: "e3", TenantID: "t1", Slug: "override", Active: true, RecipientOverride: "0xoverride"})
	store.SeedEndpoint(storage.Endpoint{ID: "e4", TenantID: "t1", Slug: "unconfigured", Active: true})
	return store
}

func TestResolveReturnsRouteWithTenantDefaultRecipient(t *testing.T) {
	r := NewResolver(seededStore(), time.Minute)
	route, err := r.Resolve(context.Background(), "acme", "weather")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if route.PayTo != "0xdefault" {
		t.Errorf("PayTo = %q, want tenant default", route.PayTo)
	}
}

func TestResolveUsesEndpointRecipientOverride(t *testing.T) {
	r := NewResolver(seededStore(), time.Minute)
	route, err := r.Resolve(context.Background(), "acme", "override")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if route.PayTo != "0xoverride" {
		t.Errorf("PayTo = %q, want endpoint override", route.PayTo)
	}
}

func TestResolveUnknownTenantIsNotFound(t *testing.T) {
	r := NewResolver(seededStore(), time.Minute)
	_, err := r.Resolve(context.Background(), "ghost", "weather")
	if !errors.Is(err, ErrRouteNotFound) {
		t.Fatalf("err = %v, want ErrRouteNotFound", err)
	}
}

func TestResolveUnknownEndpointIsNotFound(t *testing.T) {
	r := NewResolver(seededStore(), time.Minute)
	_, err := r.Resolve(context.Background(), "acme", "ghost")
	if !errors.Is(err, ErrRouteNotFound) {
		t.Fatalf("err = %v, want ErrRouteNotFound", err)
	}
}

func TestResolveInactiveEndpointIsNotFoundNotDistinguishable(t *testing.T) {
	r := NewResolver(seededStore(), time.Minute)
	_, errInactive := r.Resolve(context.Background(), "acme", "inactive")
	_, errUnknown := r.Resolve(context.Background(), "acme", "ghost")
	if !errors.Is(errInactive, ErrRouteNotFound) || !errors.Is(errUnknown, ErrRouteNotFound) {
		t.Fatalf("expected both inactive and unknown endpoints to yield ErrRouteNotFound, got %v / %v", errInactive, errUnknown)
	}
}

func TestResolveMissingRecipientIsMisconfigured(t *testing.T) {
	store := storage.NewMemoryStore()
	store.SeedTenant(storage.Tenant{ID: "t1", Slug: "acme"})
	store.SeedEndpoint(storage.Endpoint{ID: "e1", TenantID: "t1", Slug: "unconfigured", Active: true})

	r := NewResolver(store, time.Minute)
	_, err := r.Resolve(context.Background(), "acme", "unconfigured")
	if !errors.Is(err, ErrMisconfigured) {
		t.Fatalf("err = %v, want ErrMisconfigured", err)
	}
}

func TestResolveReservedSlugIsNotFound(t *testing.T) {
	r := NewResolver(seededStore(), time.Minute)
	_, err := r.Resolve(context.Background(), "metrics", "weather")
	if !errors.Is(err, ErrRouteNotFound) {
		t.Fatalf("err = %v, want ErrRouteNotFound", err)
	}
}

func TestResolveCachesSuccessfulLookups(t *testing.T) {
	store := seededStore()
	r := NewResolver(store, time.Minute)

	if _, err := r.Resolve(context.Background(), "acme", "weather"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Mutate the underlying store directly; a cached resolution should not
	// observe the change until invalidated.
	store.SeedEndpoint(storage.Endpoint{ID: "e1", TenantID: "t1", Slug: "weather", Active: false})

	route, err := r.Resolve(context.Background(), "acme", "weather")
	if err != nil {
		t.Fatalf("expected cached route to still resolve, got error: %v", err)
	}
	if !route.Endpoint.Active {
		t.Fatal("expected cached (stale) route to report endpoint active")
	}

	r.Invalidate("acme", "weather")
	if _, err := r.Resolve(context.Background(), "acme", "weather"); !errors.Is(err, ErrRouteNotFound) {
		t.Fatalf("err after invalidate = %v, want ErrRouteNotFound", err)
	}
}

func TestResolveZeroTTLNeverCaches(t *testing.T) {
	store := seededStore()
	r := NewResolver(store, 0)

	if _, err := r.Resolve(context.Background(), "acme", "weather"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	store.SeedEndpoint(storage.Endpoint{ID: "e1", TenantID: "t1", Slug: "weather", Active: false})

	if _, err := r.Resolve(context.Background(), "acme", "weather"); !errors.Is(err, ErrRouteNotFound) {
		t.Fatalf("err = %v, want ErrRouteNotFound (no caching)", err)
	}
}
