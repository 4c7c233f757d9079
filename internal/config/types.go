package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support string based YAML decoding.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses duration values expressed as Go-style strings or numbers interpreted as seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		raw := strings.TrimSpace(value.Value)
		if raw == "" {
			d.Duration = 0
			return nil
		}
		parsed, err := time.ParseDuration(raw)
		if err == nil {
			d.Duration = parsed
			return nil
		}
		secs, convErr := time.ParseDuration(fmt.Sprintf("%ss", raw))
		if convErr == nil {
			d.Duration = secs
			return nil
		}
		return fmt.Errorf("invalid duration value %q: %w", raw, err)
	default:
		return fmt.Errorf("unsupported duration node kind: %v", value.Kind)
	}
}

// MarshalYAML renders the duration as a string to keep config edits human-friendly.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds application level configuration aggregated from file and environment variables.
type Config struct {
	Server         ServerConfig         `yaml:"server"`
	Logging        LoggingConfig        `yaml:"logging"`
	Facilitator    FacilitatorConfig    `yaml:"facilitator"`
	X402           X402Config           `yaml:"x402"`
	Storage        StorageConfig        `yaml:"storage"`
	SecretStore    SecretStoreConfig    `yaml:"secret_store"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address            string   `yaml:"address"`
	ReadTimeout         Duration `yaml:"read_timeout"`
	WriteTimeout        Duration `yaml:"write_timeout"`
	IdleTimeout         Duration `yaml:"idle_timeout"`
	CORSAllowedOrigins  []string `yaml:"cors_allowed_origins"`
	RoutePrefix         string   `yaml:"route_prefix"`          // optional prefix for non-proxy routes (health, metrics)
	AdminMetricsAPIKey  string   `yaml:"admin_metrics_api_key"` // optional API key to protect /metrics (empty disables protection)
	BaseURL             string   `yaml:"base_url"`              // app base URL, used in log fields and paywall-embedded resource URLs
	AllowLocalhostUpstream bool  `yaml:"allow_localhost_upstream"` // relax upstream-URL validation for local dev tenants
	AllowOtherSchemesUpstream bool `yaml:"allow_other_schemes_upstream"` // relax upstream-URL validation beyond http/https
}

// FacilitatorConfig holds the x402 facilitator client configuration.
type FacilitatorConfig struct {
	BaseURL        string   `yaml:"base_url"`
	Timeout        Duration `yaml:"timeout"`
	WalletConnectProjectID string `yaml:"walletconnect_project_id"` // optional, surfaced to browser paywall only
}

// X402Config holds protocol-level defaults for the exact/EVM scheme.
type X402Config struct {
	ForceTestnet       bool   `yaml:"force_testnet"`        // force eip155:84532 regardless of per-endpoint setting
	MainnetAssetAddress string `yaml:"mainnet_asset_address"` // USDC contract on Base mainnet
	TestnetAssetAddress string `yaml:"testnet_asset_address"` // USDC contract on Base Sepolia
	MaxTimeoutSeconds  int    `yaml:"max_timeout_seconds"`
}

// PostgresPoolConfig holds PostgreSQL connection pool settings.
type PostgresPoolConfig struct {
	MaxOpenConns    int      `yaml:"max_open_conns"`    // default: 25
	MaxIdleConns    int      `yaml:"max_idle_conns"`    // default: 5
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"` // default: 5m
}

// StorageConfig holds storage backend configuration for tenants, endpoints,
// secrets, payments and request logs.
type StorageConfig struct {
	Backend         string              `yaml:"backend"` // "memory", "postgres", or "mongodb"
	PostgresURL     string              `yaml:"postgres_url"`
	MongoDBURL      string              `yaml:"mongodb_url"`
	MongoDBDatabase string              `yaml:"mongodb_database"`
	PostgresPool    PostgresPoolConfig  `yaml:"postgres_pool"`
	Archival        ArchivalConfig      `yaml:"archival"`
	SchemaMapping   SchemaMappingConfig `yaml:"schema_mapping"`
}

// SchemaMappingConfig holds table/collection name overrides per entity.
type SchemaMappingConfig struct {
	Tenants      TableMappingConfig `yaml:"tenants"`
	Endpoints    TableMappingConfig `yaml:"endpoints"`
	Secrets      TableMappingConfig `yaml:"secrets"`
	Payments     TableMappingConfig `yaml:"payments"`
	RequestLogs  TableMappingConfig `yaml:"request_logs"`
}

// TableMappingConfig defines a single table/collection mapping.
type TableMappingConfig struct {
	TableName string `yaml:"table_name"`
}

// ArchivalConfig holds the optional RequestLog/Payment retention job
// configuration (§9 supplement: bounded retention, off by default).
type ArchivalConfig struct {
	Enabled         bool     `yaml:"enabled"`
	RetentionPeriod Duration `yaml:"retention_period"` // default: 90 days
	RunInterval     Duration `yaml:"run_interval"`     // default: 24h
}

// SecretStoreConfig holds the AEAD encryption key used to seal/unseal tenant
// secrets. The key itself always comes from the environment, never a file.
type SecretStoreConfig struct {
	EncryptionKeyHex string `yaml:"-"` // 32-byte hex key, loaded from X402GATEWAY_ENCRYPTION_KEY only
}

// LoggingConfig holds structured logging configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`       // debug, info, warn, error (default: info)
	Format      string `yaml:"format"`      // json, console (default: json)
	Environment string `yaml:"environment"` // production, staging, development
}

// RateLimitConfig holds the coarse global/per-IP abuse throttle that sits
// ahead of per-endpoint resolution. Per-endpoint limits themselves live on
// the Endpoint record, not here.
type RateLimitConfig struct {
	GlobalEnabled bool     `yaml:"global_enabled"`
	GlobalLimit   int      `yaml:"global_limit"`
	GlobalWindow  Duration `yaml:"global_window"`

	PerIPEnabled bool     `yaml:"per_ip_enabled"`
	PerIPLimit   int      `yaml:"per_ip_limit"`
	PerIPWindow  Duration `yaml:"per_ip_window"`
}

// CircuitBreakerConfig holds circuit breaker configuration for the two
// external services the pipeline depends on synchronously.
type CircuitBreakerConfig struct {
	Enabled           bool                 `yaml:"enabled"`
	FacilitatorVerify BreakerServiceConfig `yaml:"facilitator_verify"`
	FacilitatorSettle BreakerServiceConfig `yaml:"facilitator_settle"`
	Upstream          BreakerServiceConfig `yaml:"upstream"`
}

// BreakerServiceConfig configures a circuit breaker for a specific external service.
type BreakerServiceConfig struct {
	MaxRequests         uint32   `yaml:"max_requests"`
	Interval            Duration `yaml:"interval"`
	Timeout             Duration `yaml:"timeout"`
	ConsecutiveFailures uint32   `yaml:"consecutive_failures"`
	FailureRatio        float64  `yaml:"failure_ratio"`
	MinRequests         uint32   `yaml:"min_requests"`
}
