package config

import (
	"os"
	"strings"
	"time"
)

// applyEnvOverrides applies environment variable overrides to the config.
// Environment variables take precedence over YAML configuration.
// All env vars use the X402GATEWAY_ prefix for namespace isolation.
func (c *Config) applyEnvOverrides() {
	// Server config
	setIfEnv(&c.Server.Address, "X402GATEWAY_SERVER_ADDRESS")
	setIfEnv(&c.Server.RoutePrefix, "X402GATEWAY_ROUTE_PREFIX")
	setIfEnv(&c.Server.AdminMetricsAPIKey, "X402GATEWAY_ADMIN_METRICS_API_KEY")
	setIfEnv(&c.Server.BaseURL, "X402GATEWAY_APP_BASE_URL")
	setBoolIfEnv(&c.Server.AllowLocalhostUpstream, "X402GATEWAY_ALLOW_LOCALHOST_UPSTREAM")
	setBoolIfEnv(&c.Server.AllowOtherSchemesUpstream, "X402GATEWAY_ALLOW_OTHER_SCHEMES_UPSTREAM")

	if c.Server.RoutePrefix != "" {
		c.Server.RoutePrefix = normalizeRoutePrefix(c.Server.RoutePrefix)
	}

	// Facilitator config
	setIfEnv(&c.Facilitator.BaseURL, "X402GATEWAY_FACILITATOR_BASE_URL")
	setDurationIfEnv(&c.Facilitator.Timeout, "X402GATEWAY_FACILITATOR_TIMEOUT")
	setIfEnv(&c.Facilitator.WalletConnectProjectID, "X402GATEWAY_WALLETCONNECT_PROJECT_ID")

	// x402 config
	setBoolIfEnv(&c.X402.ForceTestnet, "X402GATEWAY_FORCE_TESTNET")
	setIfEnv(&c.X402.MainnetAssetAddress, "X402GATEWAY_MAINNET_ASSET_ADDRESS")
	setIfEnv(&c.X402.TestnetAssetAddress, "X402GATEWAY_TESTNET_ASSET_ADDRESS")

	// Secret store config — the encryption key only ever comes from the
	// environment, never a YAML file, so a checked-in config can't leak it.
	setIfEnv(&c.SecretStore.EncryptionKeyHex, "X402GATEWAY_ENCRYPTION_KEY")

	// Storage config
	setIfEnv(&c.Storage.Backend, "X402GATEWAY_STORAGE_BACKEND")
	setIfEnv(&c.Storage.PostgresURL, "X402GATEWAY_DATABASE_URL")
	setIfEnv(&c.Storage.MongoDBURL, "X402GATEWAY_MONGODB_URL")
	setIfEnv(&c.Storage.MongoDBDatabase, "X402GATEWAY_MONGODB_DATABASE")
	setBoolIfEnv(&c.Storage.Archival.Enabled, "X402GATEWAY_ARCHIVAL_ENABLED")
	setDurationIfEnv(&c.Storage.Archival.RetentionPeriod, "X402GATEWAY_ARCHIVAL_RETENTION_PERIOD")

	// Logging config
	setIfEnv(&c.Logging.Level, "X402GATEWAY_LOG_LEVEL")
	setIfEnv(&c.Logging.Format, "X402GATEWAY_LOG_FORMAT")
	setIfEnv(&c.Logging.Environment, "X402GATEWAY_ENVIRONMENT")
}

// setIfEnv sets a string pointer to the environment variable value if it exists.
func setIfEnv(target *string, key string) {
	if val := os.Getenv(key); val != "" {
		*target = val
	}
}

// setBoolIfEnv sets a boolean pointer from an environment variable.
// Accepts "1", "true", "TRUE", "True" as true values.
func setBoolIfEnv(target *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v == "1" || strings.EqualFold(v, "true")
	}
}

// setDurationIfEnv sets a Duration pointer from an environment variable.
// Uses time.ParseDuration to parse values like "5m", "120s", "1h30m".
func setDurationIfEnv(target *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			*target = Duration{Duration: dur}
		}
	}
}

// normalizeRoutePrefix ensures the prefix starts with / and doesn't end with /.
// Examples: "api" -> "/api", "/api/" -> "/api", "x402" -> "/x402"
func normalizeRoutePrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return ""
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	prefix = strings.TrimSuffix(prefix, "/")
	return prefix
}
