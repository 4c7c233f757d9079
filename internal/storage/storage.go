// Package storage implements the persistence layer for tenants, endpoints,
// secrets, payments, and request logs (C8's durable half — the Store
// interface the audit writer and endpoint resolver both depend on).
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/x402gateway/gateway/internal/config"
)

// ErrNotFound is returned when a requested entity is missing from the store.
var ErrNotFound = errors.New("storage: not found")

// Store captures every persistence operation the gateway performs: tenant
// and endpoint resolution reads (C6), secret lookups (C2), and payment/
// request-log writes (C7, C8).
type Store interface {
	GetTenantBySlug(ctx context.Context, slug string) (Tenant, error)
	GetEndpoint(ctx context.Context, tenantID, endpointSlug string) (Endpoint, error)
	GetSecret(ctx context.Context, tenantID, name string) (Secret, error)

	CreatePayment(ctx context.Context, payment Payment) (Payment, error)
	UpdatePaymentStatus(ctx context.Context, paymentID string, status PaymentStatus, transactionHash string, settlementResponse []byte, errorMessage string) error

	AppendRequestLog(ctx context.Context, entry RequestLog) error

	// ArchiveOldRecords deletes Payment/RequestLog rows older than
	// olderThan, returning the count removed (spec §9 supplement, bounded
	// retention).
	ArchiveOldRecords(ctx context.Context, olderThan time.Time) (int64, error)

	Close() error
}

// NewStore builds a Store from process config. If sharedDB is non-nil and
// the backend is postgres, it is reused instead of opening a new pool
// (internal/dbpool's shared-connection pattern).
func NewStore(cfg config.StorageConfig, sharedDB *sql.DB) (Store, error) {
	mapping := cfg.SchemaMapping

	switch cfg.Backend {
	case "memory", "":
		return NewMemoryStore(), nil

	case "postgres":
		if cfg.PostgresURL == "" {
			return nil, fmt.Errorf("postgres backend requires storage.postgres_url")
		}
		var store *PostgresStore
		var err error
		if sharedDB != nil {
			store, err = NewPostgresStoreWithDB(sharedDB, mapping)
		} else {
			store, err = NewPostgresStore(cfg.PostgresURL, cfg.PostgresPool, mapping)
		}
		return store, err

	case "mongodb":
		if cfg.MongoDBURL == "" {
			return nil, fmt.Errorf("mongodb backend requires storage.mongodb_url")
		}
		if cfg.MongoDBDatabase == "" {
			return nil, fmt.Errorf("mongodb backend requires storage.mongodb_database")
		}
		return NewMongoDBStore(cfg.MongoDBURL, cfg.MongoDBDatabase, mapping)

	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
