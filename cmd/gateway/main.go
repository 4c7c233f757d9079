package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/x402gateway/gateway/internal/circuitbreaker"
	"github.com/x402gateway/gateway/internal/config"
	"github.com/x402gateway/gateway/internal/dbpool"
	"github.com/x402gateway/gateway/internal/facilitator"
	"github.com/x402gateway/gateway/internal/httpserver"
	"github.com/x402gateway/gateway/internal/lifecycle"
	"github.com/x402gateway/gateway/internal/logger"
	"github.com/x402gateway/gateway/internal/metrics"
	"github.com/x402gateway/gateway/internal/proxy"
	"github.com/x402gateway/gateway/internal/ratelimit"
	"github.com/x402gateway/gateway/internal/secretstore"
	"github.com/x402gateway/gateway/internal/storage"
	"github.com/x402gateway/gateway/internal/tenant"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Service:     "x402gateway",
		Environment: cfg.Logging.Environment,
	})

	lc := lifecycle.NewManager()
	defer func() {
		if err := lc.Close(); err != nil {
			appLogger.Error().Err(err).Msg("main.shutdown_cleanup_failed")
		}
	}()

	metricsCollector := metrics.New(nil)

	var sharedDB *dbpool.SharedPool
	if cfg.Storage.Backend == "postgres" && cfg.Storage.PostgresURL != "" {
		pool, err := dbpool.NewSharedPool(cfg.Storage.PostgresURL, cfg.Storage.PostgresPool)
		if err != nil {
			appLogger.Fatal().Err(err).Msg("main.postgres_pool_init_failed")
		}
		sharedDB = pool
		lc.Register("postgres_pool", pool)
	}

	var sqlDB *sql.DB
	if sharedDB != nil {
		sqlDB = sharedDB.DB()
	}

	store, err := storage.NewStore(cfg.Storage, sqlDB)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("main.store_init_failed")
	}
	lc.Register("store", store)

	secrets, err := secretstore.New(cfg.SecretStore.EncryptionKeyHex)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("main.secretstore_init_failed")
	}

	breakers := circuitbreaker.NewManagerFromConfig(cfg.CircuitBreaker)

	// Constructed eagerly (not lazily on first proxied request) so a
	// misconfigured facilitator base URL surfaces at boot, not mid-traffic.
	if u, err := url.Parse(cfg.Facilitator.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		appLogger.Fatal().Str("base_url", cfg.Facilitator.BaseURL).Msg("main.facilitator_base_url_invalid")
	}
	facilitatorClient := facilitator.New(cfg.Facilitator.BaseURL, cfg.Facilitator.Timeout.Duration, breakers)

	resolver := tenant.NewResolver(store, 0)

	pipeline := proxy.New(proxy.Deps{
		Resolver:    resolver,
		Store:       store,
		Secrets:     secrets,
		Facilitator: facilitatorClient,
		Limiter:     ratelimit.New(),
		Metrics:     metricsCollector,
		Breakers:    breakers,
		Config: proxy.Config{
			Assets: facilitator.AssetAddresses{
				Mainnet: cfg.X402.MainnetAssetAddress,
				Testnet: cfg.X402.TestnetAssetAddress,
			},
			ForceTestnet:              cfg.X402.ForceTestnet,
			MaxTimeoutSeconds:         cfg.X402.MaxTimeoutSeconds,
			WalletConnectProjectID:    cfg.Facilitator.WalletConnectProjectID,
			AllowLocalhostUpstream:    cfg.Server.AllowLocalhostUpstream,
			AllowOtherSchemesUpstream: cfg.Server.AllowOtherSchemesUpstream,
			BaseURL:                   cfg.Server.BaseURL,
		},
		Logger: appLogger,
	})

	archival := storage.NewArchivalService(store, cfg.Storage.Archival, metricsCollector, appLogger)
	archival.Start()
	lc.RegisterFunc("archival", func() error {
		archival.Stop()
		return nil
	})

	server := httpserver.New(cfg, pipeline, metricsCollector, appLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		appLogger.Info().Str("address", cfg.Server.Address).Msg("main.listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal().Err(err).Msg("main.server_failed")
		}
	}()

	<-ctx.Done()
	appLogger.Info().Msg("main.shutdown_initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error().Err(err).Msg("main.server_shutdown_failed")
	}
}
