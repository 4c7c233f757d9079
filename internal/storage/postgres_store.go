package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/x402gateway/gateway/internal/config"
)

// PostgresStore implements Store using PostgreSQL. Table names are
// configurable (config.SchemaMappingConfig) so one database can host
// multiple gateway deployments side by side.
type PostgresStore struct {
	db     *sql.DB
	ownsDB bool

	tenantsTable     string
	endpointsTable   string
	secretsTable     string
	paymentsTable    string
	requestLogsTable string
}

func tableNameOr(mapping config.TableMappingConfig, fallback string) string {
	if mapping.TableName != "" {
		return mapping.TableName
	}
	return fallback
}

// NewPostgresStore opens a new connection pool and creates tables if absent.
func NewPostgresStore(connectionString string, poolConfig config.PostgresPoolConfig, mapping config.SchemaMappingConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("storage: open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: ping postgres: %w", err)
	}
	config.ApplyPostgresPoolSettings(db, poolConfig)

	store := newPostgresStore(db, true, mapping)
	if err := store.createTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresStoreWithDB builds a PostgresStore over an existing pool
// (internal/dbpool's shared-connection pattern) rather than opening a new one.
func NewPostgresStoreWithDB(db *sql.DB, mapping config.SchemaMappingConfig) (*PostgresStore, error) {
	store := newPostgresStore(db, false, mapping)
	if err := store.createTables(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

func newPostgresStore(db *sql.DB, ownsDB bool, mapping config.SchemaMappingConfig) *PostgresStore {
	return &PostgresStore{
		db:               db,
		ownsDB:           ownsDB,
		tenantsTable:     tableNameOr(mapping.Tenants, "tenants"),
		endpointsTable:   tableNameOr(mapping.Endpoints, "endpoints"),
		secretsTable:     tableNameOr(mapping.Secrets, "secrets"),
		paymentsTable:    tableNameOr(mapping.Payments, "payments"),
		requestLogsTable: tableNameOr(mapping.RequestLogs, "request_logs"),
	}
}

func (s *PostgresStore) createTables(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			slug TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			default_recipient TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.tenantsTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
			slug TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			upstream_url TEXT NOT NULL,
			auth_kind TEXT NOT NULL DEFAULT 'none',
			auth_config JSONB NOT NULL DEFAULT '{}',
			price_usd TEXT NOT NULL,
			recipient_override TEXT NOT NULL DEFAULT '',
			testnet BOOLEAN NOT NULL DEFAULT false,
			branding_theme TEXT NOT NULL DEFAULT '',
			walletconnect_project_id TEXT NOT NULL DEFAULT '',
			custom_html_template TEXT NOT NULL DEFAULT '',
			cname TEXT UNIQUE,
			active BOOLEAN NOT NULL DEFAULT true,
			rate_limit_per_second INTEGER NOT NULL DEFAULT 5,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (tenant_id, slug)
		)`, s.endpointsTable, s.tenantsTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			ciphertext BYTEA NOT NULL,
			nonce BYTEA NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (tenant_id, name)
		)`, s.secretsTable, s.tenantsTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			endpoint_id TEXT REFERENCES %s(id) ON DELETE SET NULL,
			tenant_id TEXT REFERENCES %s(id) ON DELETE SET NULL,
			payer_address TEXT NOT NULL,
			amount_usd TEXT NOT NULL,
			chain_id TEXT NOT NULL DEFAULT '',
			network TEXT NOT NULL DEFAULT '',
			transaction_hash TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			payment_payload JSONB,
			settlement_response JSONB,
			request_path TEXT NOT NULL DEFAULT '',
			request_method TEXT NOT NULL DEFAULT '',
			error_message TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			settled_at TIMESTAMPTZ
		)`, s.paymentsTable, s.endpointsTable, s.tenantsTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			endpoint_id TEXT REFERENCES %s(id) ON DELETE SET NULL,
			tenant_id TEXT REFERENCES %s(id) ON DELETE SET NULL,
			payment_id TEXT REFERENCES %s(id) ON DELETE SET NULL,
			path TEXT NOT NULL,
			method TEXT NOT NULL,
			status_code INTEGER NOT NULL,
			elapsed_ms BIGINT NOT NULL,
			client_ip TEXT NOT NULL DEFAULT '',
			user_agent TEXT NOT NULL DEFAULT '',
			is_browser BOOLEAN NOT NULL DEFAULT false,
			paid BOOLEAN NOT NULL DEFAULT false,
			rate_limited BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.requestLogsTable, s.endpointsTable, s.tenantsTable, s.paymentsTable),
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("storage: create table: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) GetTenantBySlug(ctx context.Context, slug string) (Tenant, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	var t Tenant
	query := fmt.Sprintf(`SELECT id, slug, name, default_recipient, created_at, updated_at FROM %s WHERE slug = $1`, s.tenantsTable)
	err := s.db.QueryRowContext(ctx, query, slug).Scan(&t.ID, &t.Slug, &t.Name, &t.DefaultRecipient, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return Tenant{}, ErrNotFound
	}
	if err != nil {
		return Tenant{}, fmt.Errorf("storage: get tenant: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) GetEndpoint(ctx context.Context, tenantID, endpointSlug string) (Endpoint, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	var e Endpoint
	var authConfig []byte
	query := fmt.Sprintf(`SELECT id, tenant_id, slug, name, description, upstream_url, auth_kind, auth_config,
		price_usd, recipient_override, testnet, branding_theme, walletconnect_project_id, custom_html_template,
		cname, active, rate_limit_per_second, created_at, updated_at
		FROM %s WHERE tenant_id = $1 AND slug = $2`, s.endpointsTable)
	row := s.db.QueryRowContext(ctx, query, tenantID, endpointSlug)
	var cname sql.NullString
	err := row.Scan(&e.ID, &e.TenantID, &e.Slug, &e.Name, &e.Description, &e.UpstreamURL, &e.AuthKind, &authConfig,
		&e.PriceUSD, &e.RecipientOverride, &e.Testnet, &e.BrandingTheme, &e.WalletConnectProjectID, &e.CustomHTMLTemplate,
		&cname, &e.Active, &e.RateLimitPerSecond, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return Endpoint{}, ErrNotFound
	}
	if err != nil {
		return Endpoint{}, fmt.Errorf("storage: get endpoint: %w", err)
	}
	e.CNAME = cname.String
	if err := jsonUnmarshalMap(authConfig, &e.AuthConfig); err != nil {
		return Endpoint{}, fmt.Errorf("storage: decode endpoint auth_config: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) GetSecret(ctx context.Context, tenantID, name string) (Secret, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	var sec Secret
	query := fmt.Sprintf(`SELECT id, tenant_id, name, ciphertext, nonce, created_at, updated_at FROM %s WHERE tenant_id = $1 AND name = $2`, s.secretsTable)
	err := s.db.QueryRowContext(ctx, query, tenantID, name).Scan(&sec.ID, &sec.TenantID, &sec.Name, &sec.Ciphertext, &sec.Nonce, &sec.CreatedAt, &sec.UpdatedAt)
	if err == sql.ErrNoRows {
		return Secret{}, ErrNotFound
	}
	if err != nil {
		return Secret{}, fmt.Errorf("storage: get secret: %w", err)
	}
	return sec, nil
}

func (s *PostgresStore) CreatePayment(ctx context.Context, payment Payment) (Payment, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	if payment.ID == "" {
		payment.ID = newID()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now()
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, endpoint_id, tenant_id, payer_address, amount_usd, chain_id, network,
		transaction_hash, status, payment_payload, request_path, request_method, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`, s.paymentsTable)
	_, err := s.db.ExecContext(ctx, query, payment.ID, payment.EndpointID, payment.TenantID, payment.PayerAddress,
		payment.AmountUSD, payment.ChainID, payment.Network, payment.TransactionHash, payment.Status,
		jsonBytesOrNil(payment.PaymentPayload), payment.RequestPath, payment.RequestMethod, payment.CreatedAt)
	if err != nil {
		return Payment{}, fmt.Errorf("storage: create payment: %w", err)
	}
	return payment, nil
}

func (s *PostgresStore) UpdatePaymentStatus(ctx context.Context, paymentID string, status PaymentStatus, transactionHash string, settlementResponse []byte, errorMessage string) error {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	var settledAt any
	if status == PaymentSettled || status == PaymentFailed {
		settledAt = time.Now()
	}

	query := fmt.Sprintf(`UPDATE %s SET status=$2, transaction_hash=COALESCE(NULLIF($3,''), transaction_hash),
		settlement_response=COALESCE($4, settlement_response), error_message=COALESCE(NULLIF($5,''), error_message),
		settled_at=COALESCE($6, settled_at) WHERE id=$1`, s.paymentsTable)
	result, err := s.db.ExecContext(ctx, query, paymentID, status, transactionHash, jsonBytesOrNil(settlementResponse), errorMessage, settledAt)
	if err != nil {
		return fmt.Errorf("storage: update payment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: update payment rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AppendRequestLog(ctx context.Context, entry RequestLog) error {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	if entry.ID == "" {
		entry.ID = newID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, endpoint_id, tenant_id, payment_id, path, method, status_code,
		elapsed_ms, client_ip, user_agent, is_browser, paid, rate_limited, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`, s.requestLogsTable)
	_, err := s.db.ExecContext(ctx, query, entry.ID, entry.EndpointID, entry.TenantID, entry.PaymentID, entry.Path,
		entry.Method, entry.StatusCode, entry.ElapsedMs, entry.ClientIP, entry.UserAgent, entry.IsBrowser, entry.Paid,
		entry.RateLimited, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("storage: append request log: %w", err)
	}
	return nil
}

func (s *PostgresStore) ArchiveOldRecords(ctx context.Context, olderThan time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	var total int64
	for _, table := range []string{s.requestLogsTable, s.paymentsTable} {
		query := fmt.Sprintf(`DELETE FROM %s WHERE created_at < $1`, table)
		result, err := s.db.ExecContext(ctx, query, olderThan)
		if err != nil {
			return total, fmt.Errorf("storage: archive %s: %w", table, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("storage: archive %s rows affected: %w", table, err)
		}
		total += rows
	}
	return total, nil
}

func (s *PostgresStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}
