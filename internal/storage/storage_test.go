package storage

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreGetTenantBySlugNotFound(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.GetTenantBySlug(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreSeedAndGetTenant(t *testing.T) {
	store := NewMemoryStore()
	store.SeedTenant(Tenant{ID: "t1", Slug: "acme", DefaultRecipient: "0xacme"})

	tenant, err := store.GetTenantBySlug(context.Background(), "acme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tenant.ID != "t1" {
		t.Errorf("ID = %q, want t1", tenant.ID)
	}
}

func TestMemoryStoreGetEndpointNotFoundForUnknownTenant(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.GetEndpoint(context.Background(), "no-such-tenant", "slug"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreSeedAndGetEndpoint(t *testing.T) {
	store := NewMemoryStore()
	store.SeedEndpoint(Endpoint{ID: "e1", TenantID: "t1", Slug: "weather", Active: true})

	endpoint, err := store.GetEndpoint(context.Background(), "t1", "weather")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if endpoint.ID != "e1" {
		t.Errorf("ID = %q, want e1", endpoint.ID)
	}
}

func TestMemoryStoreCreateAndUpdatePayment(t *testing.T) {
	store := NewMemoryStore()
	created, err := store.CreatePayment(context.Background(), Payment{PayerAddress: "0xpayer", AmountUSD: "1.00", Status: PaymentVerified})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected auto-generated ID")
	}

	if err := store.UpdatePaymentStatus(context.Background(), created.ID, PaymentSettled, "0xtxhash", []byte(`{"ok":true}`), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, ok := store.Payment(created.ID)
	if !ok {
		t.Fatal("payment disappeared after update")
	}
	if updated.Status != PaymentSettled {
		t.Errorf("Status = %q, want settled", updated.Status)
	}
	if updated.TransactionHash != "0xtxhash" {
		t.Errorf("TransactionHash = %q, want 0xtxhash", updated.TransactionHash)
	}
	if updated.SettledAt == nil {
		t.Error("expected SettledAt to be set on settlement")
	}
}

func TestMemoryStoreUpdatePaymentStatusNotFound(t *testing.T) {
	store := NewMemoryStore()
	if err := store.UpdatePaymentStatus(context.Background(), "missing", PaymentSettled, "", nil, ""); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreAppendRequestLog(t *testing.T) {
	store := NewMemoryStore()
	if err := store.AppendRequestLog(context.Background(), RequestLog{Path: "/acme/weather", Method: "GET", StatusCode: 200}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logs := store.RequestLogs()
	if len(logs) != 1 {
		t.Fatalf("len(logs) = %d, want 1", len(logs))
	}
	if logs[0].Path != "/acme/weather" {
		t.Errorf("Path = %q, want /acme/weather", logs[0].Path)
	}
}

func TestMemoryStoreArchiveOldRecords(t *testing.T) {
	store := NewMemoryStore()
	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now()

	if _, err := store.CreatePayment(context.Background(), Payment{ID: "old-payment", CreatedAt: old}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.CreatePayment(context.Background(), Payment{ID: "recent-payment", CreatedAt: recent}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.AppendRequestLog(context.Background(), RequestLog{ID: "old-log", CreatedAt: old}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cutoff := time.Now().Add(-24 * time.Hour)
	count, err := store.ArchiveOldRecords(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}

	if _, ok := store.Payment("old-payment"); ok {
		t.Error("expected old payment to be archived")
	}
	if _, ok := store.Payment("recent-payment"); !ok {
		t.Error("expected recent payment to survive archival")
	}
	if len(store.RequestLogs()) != 0 {
		t.Error("expected old request log to be archived")
	}
}
