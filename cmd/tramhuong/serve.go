package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/tramhuong/internal"
	"github.com/dukerupert/tramhuong/internal/cache"
	"github.com/dukerupert/tramhuong/internal/catalog"
	"github.com/dukerupert/tramhuong/internal/checkout"
	"github.com/dukerupert/tramhuong/internal/domain"
	"github.com/dukerupert/tramhuong/internal/events"
	"github.com/dukerupert/tramhuong/internal/handler/api"
	"github.com/dukerupert/tramhuong/internal/jobs"
	"github.com/dukerupert/tramhuong/internal/middleware"
	"github.com/dukerupert/tramhuong/internal/postgres"
	"github.com/dukerupert/tramhuong/internal/routes"
	"github.com/dukerupert/tramhuong/internal/service"
	"github.com/dukerupert/tramhuong/internal/telemetry"
	"github.com/dukerupert/tramhuong/internal/worker"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Connects to Postgres, applies migrations, seeds the sample catalog when
enabled, and serves the storefront API until interrupted.

Redis (REDIS_URL) and NATS (NATS_URL) are optional; without them carts are
not cached and order events are not published.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	flushSentry, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:              cfg.Sentry.DSN,
		Enabled:          cfg.Sentry.Enabled,
		Environment:      cfg.Sentry.Environment,
		Release:          cfg.Sentry.Release,
		SampleRate:       cfg.Sentry.SampleRate,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
		Debug:            cfg.Sentry.Debug,
	}, logger)
	if err != nil {
		return err
	}
	defer flushSentry()

	logger.Info().Msg("Connecting to database...")
	pool, err := postgres.Connect(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	logger.Info().Msg("Running database migrations...")
	sqlDB := stdlib.OpenDBFromPool(pool)
	if err := internal.RunMigrations(sqlDB); err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("migration failed: %w", err)
	}
	_ = sqlDB.Close()

	products := catalog.NewService(postgres.NewProductRepository(pool))
	if cfg.SeedSampleProducts {
		n, err := products.SeedSamples(ctx)
		if err != nil {
			return fmt.Errorf("seed products: %w", err)
		}
		if n > 0 {
			logger.Info().Int("count", n).Msg("Seeded sample products")
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	businessMetrics := telemetry.NewBusinessMetrics(reg, "tramhuong")
	httpMetrics := middleware.NewMetrics(reg, "tramhuong")

	var cartCache cache.CartCache = cache.Nop{}
	if cfg.Redis.URL != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		defer rdb.Close()
		cartCache = cache.NewRedisCache(rdb, cfg.Redis.CartTTL)
		logger.Info().Dur("ttl", cfg.Redis.CartTTL).Msg("Cart cache enabled")
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.NATS.URL != "" {
		nc, err := events.Connect(cfg.NATS.URL, "tramhuong-api")
		if err != nil {
			return fmt.Errorf("nats connection failed: %w", err)
		}
		defer nc.Drain()
		publisher = events.NewNATSPublisher(nc, cfg.NATS.SubjectPrefix)
		logger.Info().Msg("Order events enabled")
	}

	carts := postgres.NewCartRepository(pool)
	builder := checkout.NewBuilder(checkout.Fees{
		domain.PaymentCOD:          cfg.Shipping.CODFee,
		domain.PaymentBankTransfer: cfg.Shipping.BankTransferFee,
	})
	cartService := service.NewCartService(carts, products, cartCache, businessMetrics, publisher)
	orderService := service.NewOrderService(
		postgres.NewOrderRepository(pool),
		cartService,
		products,
		builder,
		businessMetrics,
		publisher,
		cfg.Orders.NumberPrefix,
	)

	orderLimiter := middleware.NewRateLimiter(middleware.OrderRateLimiterConfig(cfg.HTTP.TrustedProxies))
	defer orderLimiter.Stop()

	handler := routes.NewHandler(routes.ServerDeps{
		Logger:         logger,
		HTTPMetrics:    httpMetrics,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		API: routes.APIDeps{
			ProductHandler: api.NewProductHandler(products),
			CartHandler:    api.NewCartHandler(cartService),
			OrderHandler:   api.NewOrderHandler(orderService),
			OrderLimiter:   orderLimiter,
		},
		Ops: routes.OpsDeps{
			HealthHandler: api.NewHealthHandler(pool),
			Gatherer:      reg,
		},
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("address", srv.Addr).Msg("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	if cfg.Carts.SweepInterval > 0 {
		w := worker.NewWorker(worker.Config{
			WorkerID:     "cart-sweeper",
			PollInterval: cfg.Carts.SweepInterval,
			RunOnStart:   true,
		}, logger, jobs.NewCartCleanup(carts, cfg.Carts.Retention))

		g.Go(func() error {
			if err := w.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
