package config

import (
	"os"
	"testing"
	"time"
)

func TestEnvOverrides_ServerConfig(t *testing.T) {
	defer os.Clearenv()

	tests := []struct {
		name      string
		envVars   map[string]string
		checkFunc func(*testing.T, *Config)
	}{
		{
			name: "X402GATEWAY_SERVER_ADDRESS overrides default",
			envVars: map[string]string{
				"X402GATEWAY_SERVER_ADDRESS": ":3000",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.Server.Address != ":3000" {
					t.Errorf("Expected :3000, got %s", cfg.Server.Address)
				}
			},
		},
		{
			name: "X402GATEWAY_ROUTE_PREFIX override",
			envVars: map[string]string{
				"X402GATEWAY_ROUTE_PREFIX": "/api",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.Server.RoutePrefix != "/api" {
					t.Errorf("Expected /api, got %s", cfg.Server.RoutePrefix)
				}
			},
		},
		{
			name: "X402GATEWAY_APP_BASE_URL override",
			envVars: map[string]string{
				"X402GATEWAY_APP_BASE_URL": "https://gateway.example.com",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.Server.BaseURL != "https://gateway.example.com" {
					t.Errorf("Expected base URL override, got %s", cfg.Server.BaseURL)
				}
			},
		},
		{
			name: "X402GATEWAY_ALLOW_LOCALHOST_UPSTREAM boolean",
			envVars: map[string]string{
				"X402GATEWAY_ALLOW_LOCALHOST_UPSTREAM": "true",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if !cfg.Server.AllowLocalhostUpstream {
					t.Error("Expected AllowLocalhostUpstream to be true")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg := defaultConfig()
			cfg.applyEnvOverrides()
			tt.checkFunc(t, cfg)
		})
	}
}

func TestEnvOverrides_FacilitatorConfig(t *testing.T) {
	defer os.Clearenv()

	tests := []struct {
		name      string
		envVars   map[string]string
		checkFunc func(*testing.T, *Config)
	}{
		{
			name: "X402GATEWAY_FACILITATOR_BASE_URL override",
			envVars: map[string]string{
				"X402GATEWAY_FACILITATOR_BASE_URL": "https://facilitator.example.com",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.Facilitator.BaseURL != "https://facilitator.example.com" {
					t.Errorf("Expected facilitator base URL, got %s", cfg.Facilitator.BaseURL)
				}
			},
		},
		{
			name: "X402GATEWAY_FACILITATOR_TIMEOUT duration override",
			envVars: map[string]string{
				"X402GATEWAY_FACILITATOR_TIMEOUT": "20s",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.Facilitator.Timeout.Duration != 20*time.Second {
					t.Errorf("Expected 20s, got %v", cfg.Facilitator.Timeout.Duration)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg := defaultConfig()
			cfg.applyEnvOverrides()
			tt.checkFunc(t, cfg)
		})
	}
}

func TestEnvOverrides_X402Config(t *testing.T) {
	defer os.Clearenv()

	tests := []struct {
		name      string
		envVars   map[string]string
		checkFunc func(*testing.T, *Config)
	}{
		{
			name: "X402GATEWAY_FORCE_TESTNET boolean (true)",
			envVars: map[string]string{
				"X402GATEWAY_FORCE_TESTNET": "true",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if !cfg.X402.ForceTestnet {
					t.Error("Expected ForceTestnet to be true")
				}
			},
		},
		{
			name: "X402GATEWAY_FORCE_TESTNET boolean (1)",
			envVars: map[string]string{
				"X402GATEWAY_FORCE_TESTNET": "1",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if !cfg.X402.ForceTestnet {
					t.Error("Expected ForceTestnet to be true with '1'")
				}
			},
		},
		{
			name: "X402GATEWAY_MAINNET_ASSET_ADDRESS override",
			envVars: map[string]string{
				"X402GATEWAY_MAINNET_ASSET_ADDRESS": "0xdeadbeef",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.X402.MainnetAssetAddress != "0xdeadbeef" {
					t.Errorf("Expected override, got %s", cfg.X402.MainnetAssetAddress)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg := defaultConfig()
			cfg.applyEnvOverrides()
			tt.checkFunc(t, cfg)
		})
	}
}

func TestEnvOverrides_SecretStoreConfig(t *testing.T) {
	defer os.Clearenv()
	os.Clearenv()
	os.Setenv("X402GATEWAY_ENCRYPTION_KEY", "deadbeef")

	cfg := defaultConfig()
	cfg.applyEnvOverrides()

	if cfg.SecretStore.EncryptionKeyHex != "deadbeef" {
		t.Errorf("Expected encryption key override, got %s", cfg.SecretStore.EncryptionKeyHex)
	}
}

func TestEnvOverrides_StorageConfig(t *testing.T) {
	defer os.Clearenv()

	tests := []struct {
		name      string
		envVars   map[string]string
		checkFunc func(*testing.T, *Config)
	}{
		{
			name: "X402GATEWAY_STORAGE_BACKEND override",
			envVars: map[string]string{
				"X402GATEWAY_STORAGE_BACKEND": "postgres",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.Storage.Backend != "postgres" {
					t.Errorf("Expected postgres, got %s", cfg.Storage.Backend)
				}
			},
		},
		{
			name: "X402GATEWAY_DATABASE_URL override",
			envVars: map[string]string{
				"X402GATEWAY_DATABASE_URL": "postgresql://user:pass@db:5432/gateway",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				expected := "postgresql://user:pass@db:5432/gateway"
				if cfg.Storage.PostgresURL != expected {
					t.Errorf("Expected %s, got %s", expected, cfg.Storage.PostgresURL)
				}
			},
		},
		{
			name: "X402GATEWAY_ARCHIVAL_ENABLED boolean",
			envVars: map[string]string{
				"X402GATEWAY_ARCHIVAL_ENABLED": "true",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if !cfg.Storage.Archival.Enabled {
					t.Error("Expected Archival.Enabled to be true")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg := defaultConfig()
			cfg.applyEnvOverrides()
			tt.checkFunc(t, cfg)
		})
	}
}

func TestEnvOverrides_LoggingConfig(t *testing.T) {
	defer os.Clearenv()
	os.Clearenv()
	os.Setenv("X402GATEWAY_LOG_LEVEL", "debug")
	os.Setenv("X402GATEWAY_LOG_FORMAT", "console")
	os.Setenv("X402GATEWAY_ENVIRONMENT", "staging")

	cfg := defaultConfig()
	cfg.applyEnvOverrides()

	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected debug, got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Expected console, got %s", cfg.Logging.Format)
	}
	if cfg.Logging.Environment != "staging" {
		t.Errorf("Expected staging, got %s", cfg.Logging.Environment)
	}
}

// TestNormalizeRoutePrefix already exists in config_test.go
