package storage

import "time"

// Tenant owns Endpoints and Secrets (spec §3). DefaultRecipient is the
// fallback payTo address used when an Endpoint has no override.
type Tenant struct {
	ID               string
	Slug             string
	Name             string
	DefaultRecipient string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AuthKind mirrors authheader.Kind without importing it — the storage
// package describes persisted shape, not behavior.
type AuthKind string

const (
	AuthKindNone          AuthKind = "none"
	AuthKindBearer        AuthKind = "bearer"
	AuthKindHeaderKey     AuthKind = "header-key"
	AuthKindQueryKey      AuthKind = "query-key"
	AuthKindBasic         AuthKind = "basic"
	AuthKindCustomHeaders AuthKind = "custom-headers"
)

// Endpoint is a monetized upstream route owned by a Tenant (spec §3).
type Endpoint struct {
	ID          string
	TenantID    string
	Slug        string
	Name        string
	Description string

	UpstreamURL string

	AuthKind   AuthKind
	AuthConfig map[string]string

	PriceUSD          string // decimal string, precision 18 scale 6
	RecipientOverride string
	Testnet           bool

	BrandingTheme           string
	WalletConnectProjectID  string
	CustomHTMLTemplate      string

	CNAME  string
	Active bool

	RateLimitPerSecond int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecipientAddress resolves the effective payTo for this endpoint given its
// owning tenant's default, per spec §4.6's fallback rule. Returns "" if
// neither is configured — the caller must treat that as Misconfigured.
func (e Endpoint) RecipientAddress(tenant Tenant) string {
	if e.RecipientOverride != "" {
		return e.RecipientOverride
	}
	return tenant.DefaultRecipient
}

// Secret is an encrypted tenant-owned credential referenced by
// {{SECRET:NAME}} in an Endpoint's AuthConfig (spec §3, §4.2).
type Secret struct {
	ID         string
	TenantID   string
	Name       string
	Ciphertext []byte
	Nonce      []byte
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PaymentStatus is the lifecycle state of a Payment (spec §3).
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentVerified PaymentStatus = "verified"
	PaymentSettled  PaymentStatus = "settled"
	PaymentFailed   PaymentStatus = "failed"
)

// Payment records one request's payment lifecycle, from verification
// through settlement (spec §3). EndpointID/TenantID are nullable on
// cascade delete of their referent (weak reference, set-null) so audit
// history survives endpoint/tenant removal.
type Payment struct {
	ID       string
	EndpointID *string
	TenantID   *string

	PayerAddress string
	AmountUSD    string
	ChainID      string
	Network      string

	TransactionHash string
	Status          PaymentStatus

	PaymentPayload     []byte // verbatim JSON
	SettlementResponse []byte // verbatim JSON

	RequestPath   string
	RequestMethod string

	ErrorMessage string

	CreatedAt time.Time
	SettledAt *time.Time
}

// RequestLog is an append-only record of one proxied request (spec §3).
type RequestLog struct {
	ID         string
	EndpointID *string
	TenantID   *string
	PaymentID  *string

	Path         string
	Method       string
	StatusCode   int
	ElapsedMs    int64
	ClientIP     string
	UserAgent    string
	IsBrowser    bool
	Paid         bool
	RateLimited  bool

	CreatedAt time.Time
}
