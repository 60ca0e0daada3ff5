package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/repairdesk-backend/api/controllers"
	"github.com/angelmondragon/repairdesk-backend/api/routes"
	"github.com/angelmondragon/repairdesk-backend/internal/catalog"
	"github.com/angelmondragon/repairdesk-backend/internal/customers"
	"github.com/angelmondragon/repairdesk-backend/internal/history"
	"github.com/angelmondragon/repairdesk-backend/internal/numbering"
	"github.com/angelmondragon/repairdesk-backend/internal/orders"
	"github.com/angelmondragon/repairdesk-backend/internal/payments"
	"github.com/angelmondragon/repairdesk-backend/internal/tenancy"
	"github.com/angelmondragon/repairdesk-backend/pkg/config"
	"github.com/angelmondragon/repairdesk-backend/pkg/db"
	"github.com/angelmondragon/repairdesk-backend/pkg/instance"
	"github.com/angelmondragon/repairdesk-backend/pkg/logger"
	"github.com/angelmondragon/repairdesk-backend/pkg/metrics"
	"github.com/angelmondragon/repairdesk-backend/pkg/migrate"
	"github.com/angelmondragon/repairdesk-backend/pkg/outbox"
	"github.com/angelmondragon/repairdesk-backend/pkg/redis"
	"github.com/angelmondragon/repairdesk-backend/pkg/storage/gcs"
	"github.com/angelmondragon/repairdesk-backend/pkg/storage/memory"
)

const shutdownTimeout = 15 * time.Second

// blobStore is what both the GCS client and the in-memory store offer.
type blobStore interface {
	orders.BlobStore
	Ping(ctx context.Context) error
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	blobs, err := newBlobStore(context.Background(), cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap blob storage", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	engineMetrics := metrics.NewEngineMetrics(registry)

	tenancyService, err := tenancy.NewService(tenancy.NewRepository(dbClient.DB()), dbClient, redisClient, cfg.Orders.ScopeCacheTTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create tenancy service", err)
		os.Exit(1)
	}
	customerService, err := customers.NewService(customers.NewRepository(dbClient.DB()), dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create customer service", err)
		os.Exit(1)
	}
	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}
	historyService, err := history.NewService(history.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create history service", err)
		os.Exit(1)
	}
	numbers, err := numbering.NewGenerator(cfg.Orders.NumberPrefix)
	if err != nil {
		logg.Error(context.Background(), "failed to create order number generator", err)
		os.Exit(1)
	}
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	orderRepo := orders.NewRepository(dbClient.DB())
	orderService, err := orders.NewService(orders.Params{
		Repo:      orderRepo,
		Tx:        dbClient,
		Customers: customerService,
		Catalog:   catalogService,
		Numbers:   numbers,
		History:   historyService,
		Outbox:    outboxService,
		Blobs:     blobs,
		Metrics:   engineMetrics,
		Logger:    logg,
		Config:    cfg.Orders,
		Strict:    cfg.FeatureFlags.StrictStatusTransitions,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}
	paymentService, err := payments.NewService(payments.Params{
		Repo:    payments.NewRepository(dbClient.DB()),
		Orders:  orderRepo,
		Tx:      dbClient,
		History: historyService,
		Outbox:  outboxService,
		Metrics: engineMetrics,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
		"strict":   cfg.FeatureFlags.StrictStatusTransitions,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
				"storage":  blobs,
			},
			registry,
			redisClient,
			tenancyService,
			customerService,
			catalogService,
			orderService,
			paymentService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}

// newBlobStore uses the configured bucket. Without one, non-production
// environments fall back to process memory.
func newBlobStore(ctx context.Context, cfg *config.Config, logg *logger.Logger) (blobStore, error) {
	if cfg.GCS.Enabled() {
		client, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	if cfg.App.IsProd() {
		return nil, errors.New("REPAIRDESK_GCS_BUCKET_NAME is required in production")
	}
	logg.Warn(ctx, "no gcs bucket configured, storing images in memory")
	return memory.NewStore("/blobs"), nil
}
