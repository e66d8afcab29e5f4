package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/catalogimport/internal/catalog"
	"github.com/JonMunkholm/catalogimport/internal/config"
	"github.com/JonMunkholm/catalogimport/internal/history"
	"github.com/JonMunkholm/catalogimport/internal/importer"
	"github.com/JonMunkholm/catalogimport/internal/lock"
	"github.com/JonMunkholm/catalogimport/internal/logging"
	"github.com/JonMunkholm/catalogimport/internal/mapping"
	"github.com/JonMunkholm/catalogimport/internal/resolve"
	"github.com/JonMunkholm/catalogimport/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"store", cfg.Catalog.StoreHash,
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"import_workers", cfg.Import.Workers,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()

	store, closeStore := openHistory(ctx, cfg)
	defer closeStore()

	locker, closeLocker := openLocker(ctx, cfg)
	defer closeLocker()

	client := catalog.New(catalog.Options{
		BaseURL:           cfg.Catalog.BaseURL(),
		AccessToken:       cfg.Catalog.AccessToken,
		Timeout:           cfg.Catalog.Timeout,
		RequestsPerSecond: cfg.Catalog.RequestsPerSecond,
		Burst:             cfg.Catalog.Burst,
		PageSize:          cfg.Catalog.PageSize,
	})

	service := newService(cfg, client, store, locker)
	server := web.NewServer(service, store, cfg)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for running imports to finish (with timeout)
		if status := service.Limiter.Status(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
			if err := service.Limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}

func newService(cfg *config.Config, client *catalog.Client, store history.Store, locker lock.Locker) *importer.Service {
	workers := cfg.Import.Workers
	return &importer.Service{
		Categories: &importer.CategoryImporter{
			Gateway: client,
			Trees: resolve.TreeSelector{
				Prefix:        cfg.Taxonomy.HomeAndLivingPrefix,
				PrefixTreeID:  cfg.Taxonomy.HomeAndLivingTreeID,
				DefaultTreeID: cfg.Taxonomy.DefaultTreeID,
			},
			Workers: workers,
		},
		Channels: &importer.ChannelImporter{
			Gateway:       client,
			ApplicationID: cfg.Catalog.ApplicationID,
			Workers:       workers,
		},
		Products: &importer.ProductImporter{
			Gateway: client,
			Options: mapping.ProductOptions{ProductType: cfg.Catalog.ProductType},
			Channels: importer.ChannelRouting{
				BusinessUnit:          cfg.Taxonomy.HomeAndLivingBusinessUnit,
				BusinessUnitChannelID: cfg.Taxonomy.HomeAndLivingChannelID,
				DefaultChannelID:      cfg.Taxonomy.DefaultChannelID,
			},
			Workers: workers,
		},
		PriceLists: &importer.PriceListImporter{
			Gateway:  client,
			Currency: cfg.Catalog.CurrencyCode,
			Workers:  workers,
		},
		Limiter: importer.NewLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime),
		Locker:  locker,
		History: store,
		LockKey: cfg.Catalog.StoreHash,
		Timeout: cfg.Import.Timeout,
	}
}

// openHistory connects to PostgreSQL when DATABASE_URL is set and keeps
// history in memory otherwise.
func openHistory(ctx context.Context, cfg *config.Config) (history.Store, func()) {
	if cfg.Database.URL == "" {
		slog.Info("import history kept in memory")
		return history.NewMemoryStore(0), func() {}
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	store := history.NewPostgresStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		slog.Error("failed to prepare history schema", "error", err)
		os.Exit(1)
	}
	slog.Info("import history stored in postgres", "database", poolConfig.ConnConfig.Database)
	return store, pool.Close
}

// openLocker uses Redis when REDIS_URL is set so runs on the same store are
// exclusive across replicas; otherwise locks are process-local.
func openLocker(ctx context.Context, cfg *config.Config) (lock.Locker, func()) {
	if cfg.Redis.URL == "" {
		slog.Info("import locks are process-local")
		return lock.NewMemoryLocker(cfg.Redis.LockTTL), func() {}
	}

	client, err := lock.Connect(ctx, cfg.Redis.URL)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	slog.Info("import locks stored in redis")
	return lock.NewRedisLocker(client, "catalogimport:lock:", cfg.Redis.LockTTL), func() {
		if err := client.Close(); err != nil {
			slog.Warn("redis close error", "error", err)
		}
	}
}
