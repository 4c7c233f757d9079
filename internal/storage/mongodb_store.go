package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/x402gateway/gateway/internal/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDBStore implements Store using MongoDB. Collection names are
// configurable (config.SchemaMappingConfig) so one database can host
// multiple gateway deployments side by side.
type MongoDBStore struct {
	client *mongo.Client

	tenants     *mongo.Collection
	endpoints   *mongo.Collection
	secrets     *mongo.Collection
	payments    *mongo.Collection
	requestLogs *mongo.Collection
}

func collectionNameOr(mapping config.TableMappingConfig, fallback string) string {
	if mapping.TableName != "" {
		return mapping.TableName
	}
	return fallback
}

// NewMongoDBStore connects to MongoDB and ensures indexes exist.
func NewMongoDBStore(connectionString, database string, mapping config.SchemaMappingConfig) (*MongoDBStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(connectionString))
	if err != nil {
		return nil, fmt.Errorf("storage: connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("storage: ping mongodb: %w", err)
	}

	db := client.Database(database)
	store := &MongoDBStore{
		client:      client,
		tenants:     db.Collection(collectionNameOr(mapping.Tenants, "tenants")),
		endpoints:   db.Collection(collectionNameOr(mapping.Endpoints, "endpoints")),
		secrets:     db.Collection(collectionNameOr(mapping.Secrets, "secrets")),
		payments:    db.Collection(collectionNameOr(mapping.Payments, "payments")),
		requestLogs: db.Collection(collectionNameOr(mapping.RequestLogs, "request_logs")),
	}

	if err := store.createIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return store, nil
}

func (s *MongoDBStore) createIndexes(ctx context.Context) error {
	if _, err := s.tenants.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("storage: create tenants index: %w", err)
	}

	if _, err := s.endpoints.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("storage: create endpoints index: %w", err)
	}

	if _, err := s.secrets.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "name", Value: 1}}, Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("storage: create secrets index: %w", err)
	}

	if _, err := s.payments.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: 1}},
	}); err != nil {
		return fmt.Errorf("storage: create payments index: %w", err)
	}

	if _, err := s.requestLogs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: 1}},
	}); err != nil {
		return fmt.Errorf("storage: create request_logs index: %w", err)
	}
	return nil
}

type tenantDoc struct {
	ID               string    `bson:"_id"`
	Slug             string    `bson:"slug"`
	Name             string    `bson:"name"`
	DefaultRecipient string    `bson:"default_recipient"`
	CreatedAt        time.Time `bson:"created_at"`
	UpdatedAt        time.Time `bson:"updated_at"`
}

func (d tenantDoc) toTenant() Tenant {
	return Tenant{ID: d.ID, Slug: d.Slug, Name: d.Name, DefaultRecipient: d.DefaultRecipient, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt}
}

type endpointDoc struct {
	ID                     string            `bson:"_id"`
	TenantID               string            `bson:"tenant_id"`
	Slug                   string            `bson:"slug"`
	Name                   string            `bson:"name"`
	Description            string            `bson:"description"`
	UpstreamURL            string            `bson:"upstream_url"`
	AuthKind               string            `bson:"auth_kind"`
	AuthConfig             map[string]string `bson:"auth_config"`
	PriceUSD               string            `bson:"price_usd"`
	RecipientOverride      string            `bson:"recipient_override"`
	Testnet                bool              `bson:"testnet"`
	BrandingTheme          string            `bson:"branding_theme"`
	WalletConnectProjectID string            `bson:"walletconnect_project_id"`
	CustomHTMLTemplate     string            `bson:"custom_html_template"`
	CNAME                  string            `bson:"cname"`
	Active                 bool              `bson:"active"`
	RateLimitPerSecond     int               `bson:"rate_limit_per_second"`
	CreatedAt              time.Time         `bson:"created_at"`
	UpdatedAt              time.Time         `bson:"updated_at"`
}

func (d endpointDoc) toEndpoint() Endpoint {
	authConfig := d.AuthConfig
	if authConfig == nil {
		authConfig = map[string]string{}
	}
	return Endpoint{
		ID: d.ID, TenantID: d.TenantID, Slug: d.Slug, Name: d.Name, Description: d.Description,
		UpstreamURL: d.UpstreamURL, AuthKind: AuthKind(d.AuthKind), AuthConfig: authConfig,
		PriceUSD: d.PriceUSD, RecipientOverride: d.RecipientOverride, Testnet: d.Testnet,
		BrandingTheme: d.BrandingTheme, WalletConnectProjectID: d.WalletConnectProjectID,
		CustomHTMLTemplate: d.CustomHTMLTemplate, CNAME: d.CNAME, Active: d.Active,
		RateLimitPerSecond: d.RateLimitPerSecond, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}

type secretDoc struct {
	ID         string    `bson:"_id"`
	TenantID   string    `bson:"tenant_id"`
	Name       string    `bson:"name"`
	Ciphertext []byte    `bson:"ciphertext"`
	Nonce      []byte    `bson:"nonce"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

func (d secretDoc) toSecret() Secret {
	return Secret{ID: d.ID, TenantID: d.TenantID, Name: d.Name, Ciphertext: d.Ciphertext, Nonce: d.Nonce, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt}
}

type paymentDoc struct {
	ID                 string     `bson:"_id"`
	EndpointID         *string    `bson:"endpoint_id,omitempty"`
	TenantID           *string    `bson:"tenant_id,omitempty"`
	PayerAddress       string     `bson:"payer_address"`
	AmountUSD          string     `bson:"amount_usd"`
	ChainID            string     `bson:"chain_id"`
	Network            string     `bson:"network"`
	TransactionHash    string     `bson:"transaction_hash"`
	Status             string     `bson:"status"`
	PaymentPayload     []byte     `bson:"payment_payload,omitempty"`
	SettlementResponse []byte     `bson:"settlement_response,omitempty"`
	RequestPath        string     `bson:"request_path"`
	RequestMethod      string     `bson:"request_method"`
	ErrorMessage       string     `bson:"error_message"`
	CreatedAt          time.Time  `bson:"created_at"`
	SettledAt          *time.Time `bson:"settled_at,omitempty"`
}

func paymentToDoc(p Payment) paymentDoc {
	return paymentDoc{
		ID: p.ID, EndpointID: p.EndpointID, TenantID: p.TenantID, PayerAddress: p.PayerAddress,
		AmountUSD: p.AmountUSD, ChainID: p.ChainID, Network: p.Network, TransactionHash: p.TransactionHash,
		Status: string(p.Status), PaymentPayload: p.PaymentPayload, SettlementResponse: p.SettlementResponse,
		RequestPath: p.RequestPath, RequestMethod: p.RequestMethod, ErrorMessage: p.ErrorMessage,
		CreatedAt: p.CreatedAt, SettledAt: p.SettledAt,
	}
}

type requestLogDoc struct {
	ID          string    `bson:"_id"`
	EndpointID  *string   `bson:"endpoint_id,omitempty"`
	TenantID    *string   `bson:"tenant_id,omitempty"`
	PaymentID   *string   `bson:"payment_id,omitempty"`
	Path        string    `bson:"path"`
	Method      string    `bson:"method"`
	StatusCode  int       `bson:"status_code"`
	ElapsedMs   int64     `bson:"elapsed_ms"`
	ClientIP    string    `bson:"client_ip"`
	UserAgent   string    `bson:"user_agent"`
	IsBrowser   bool      `bson:"is_browser"`
	Paid        bool      `bson:"paid"`
	RateLimited bool      `bson:"rate_limited"`
	CreatedAt   time.Time `bson:"created_at"`
}

func (s *MongoDBStore) GetTenantBySlug(ctx context.Context, slug string) (Tenant, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	var doc tenantDoc
	err := s.tenants.FindOne(ctx, bson.M{"slug": slug}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return Tenant{}, ErrNotFound
	}
	if err != nil {
		return Tenant{}, fmt.Errorf("storage: get tenant: %w", err)
	}
	return doc.toTenant(), nil
}

func (s *MongoDBStore) GetEndpoint(ctx context.Context, tenantID, endpointSlug string) (Endpoint, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	var doc endpointDoc
	err := s.endpoints.FindOne(ctx, bson.M{"tenant_id": tenantID, "slug": endpointSlug}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return Endpoint{}, ErrNotFound
	}
	if err != nil {
		return Endpoint{}, fmt.Errorf("storage: get endpoint: %w", err)
	}
	return doc.toEndpoint(), nil
}

func (s *MongoDBStore) GetSecret(ctx context.Context, tenantID, name string) (Secret, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	var doc secretDoc
	err := s.secrets.FindOne(ctx, bson.M{"tenant_id": tenantID, "name": name}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return Secret{}, ErrNotFound
	}
	if err != nil {
		return Secret{}, fmt.Errorf("storage: get secret: %w", err)
	}
	return doc.toSecret(), nil
}

func (s *MongoDBStore) CreatePayment(ctx context.Context, payment Payment) (Payment, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	if payment.ID == "" {
		payment.ID = newID()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now()
	}

	if _, err := s.payments.InsertOne(ctx, paymentToDoc(payment)); err != nil {
		return Payment{}, fmt.Errorf("storage: create payment: %w", err)
	}
	return payment, nil
}

func (s *MongoDBStore) UpdatePaymentStatus(ctx context.Context, paymentID string, status PaymentStatus, transactionHash string, settlementResponse []byte, errorMessage string) error {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	set := bson.M{"status": string(status)}
	if transactionHash != "" {
		set["transaction_hash"] = transactionHash
	}
	if settlementResponse != nil {
		set["settlement_response"] = settlementResponse
	}
	if errorMessage != "" {
		set["error_message"] = errorMessage
	}
	if status == PaymentSettled || status == PaymentFailed {
		set["settled_at"] = time.Now()
	}

	result, err := s.payments.UpdateOne(ctx, bson.M{"_id": paymentID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("storage: update payment: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoDBStore) AppendRequestLog(ctx context.Context, entry RequestLog) error {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	if entry.ID == "" {
		entry.ID = newID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	doc := requestLogDoc{
		ID: entry.ID, EndpointID: entry.EndpointID, TenantID: entry.TenantID, PaymentID: entry.PaymentID,
		Path: entry.Path, Method: entry.Method, StatusCode: entry.StatusCode, ElapsedMs: entry.ElapsedMs,
		ClientIP: entry.ClientIP, UserAgent: entry.UserAgent, IsBrowser: entry.IsBrowser, Paid: entry.Paid,
		RateLimited: entry.RateLimited, CreatedAt: entry.CreatedAt,
	}
	if _, err := s.requestLogs.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("storage: append request log: %w", err)
	}
	return nil
}

func (s *MongoDBStore) ArchiveOldRecords(ctx context.Context, olderThan time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	var total int64
	filter := bson.M{"created_at": bson.M{"$lt": olderThan}}

	paymentsResult, err := s.payments.DeleteMany(ctx, filter)
	if err != nil {
		return total, fmt.Errorf("storage: archive payments: %w", err)
	}
	total += paymentsResult.DeletedCount

	logsResult, err := s.requestLogs.DeleteMany(ctx, filter)
	if err != nil {
		return total, fmt.Errorf("storage: archive request logs: %w", err)
	}
	total += logsResult.DeletedCount

	return total, nil
}

func (s *MongoDBStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
