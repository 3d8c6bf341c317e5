package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/ordering-backend/api/routes"
	"github.com/angelmondragon/ordering-backend/internal/cart"
	"github.com/angelmondragon/ordering-backend/internal/cart/anoncart"
	"github.com/angelmondragon/ordering-backend/internal/checkout"
	"github.com/angelmondragon/ordering-backend/internal/orders"
	product "github.com/angelmondragon/ordering-backend/internal/products"
	"github.com/angelmondragon/ordering-backend/internal/settings"
	stripewebhook "github.com/angelmondragon/ordering-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/ordering-backend/pkg/config"
	"github.com/angelmondragon/ordering-backend/pkg/db"
	"github.com/angelmondragon/ordering-backend/pkg/logger"
	"github.com/angelmondragon/ordering-backend/pkg/metrics"
	"github.com/angelmondragon/ordering-backend/pkg/migrate"
	"github.com/angelmondragon/ordering-backend/pkg/outbox"
	"github.com/angelmondragon/ordering-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/ordering-backend/pkg/redis"
	pkgstripe "github.com/angelmondragon/ordering-backend/pkg/stripe"
)

const shutdownTimeout = 20 * time.Second

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
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	orderingMetrics := metrics.NewOrderingMetrics(reg)

	settingsProvider, err := settings.NewProvider(settings.NewRepository(dbClient.DB()), redisClient, cfg.Settings.CacheTTL, logg)
	if err != nil {
		return err
	}

	catalog, err := product.NewService(product.NewRepository(dbClient.DB()))
	if err != nil {
		return err
	}

	cartService, err := cart.NewService(cart.NewRepository(dbClient.DB()), dbClient, catalog, logg)
	if err != nil {
		return err
	}

	guestCart, err := anoncart.NewStore(cfg.CartSession, catalog)
	if err != nil {
		return err
	}

	emitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	orderRepo := orders.NewRepository(dbClient.DB())

	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:          orderRepo,
		Tx:            dbClient,
		Outbox:        emitter,
		Cart:          cartService,
		Metrics:       orderingMetrics,
		Logger:        logg,
		Transactional: cfg.FeatureFlags.TransactionalOrders,
	})
	if err != nil {
		return err
	}

	stripeClient, err := pkgstripe.NewClient(ctx, cfg.Stripe, cfg.Checkout.Timeout(), logg)
	if err != nil {
		return err
	}

	publicURL := strings.TrimRight(cfg.App.PublicURL, "/")
	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Gateway: stripeClient,
		Cart:    cartService,
		Orders:  orderService,
		URLs: checkout.URLs{
			Success: publicURL + cfg.Checkout.SuccessPath,
			Cancel:  publicURL + cfg.Checkout.CancelPath,
		},
		Metrics: orderingMetrics,
		Logger:  logg,
	})
	if err != nil {
		return err
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Orders:  orderRepo,
		Tx:      dbClient,
		Outbox:  emitter,
		Metrics: orderingMetrics,
		Logger:  logg,
	})
	if err != nil {
		return err
	}

	idem, err := idempotency.NewManager(redisClient, cfg.Eventing.WebhookIdempotencyTTL)
	if err != nil {
		return err
	}

	handler := routes.NewRouter(cfg, logg,
		routes.Infra{
			DB:      dbClient,
			Redis:   redisClient,
			Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		},
		routes.Services{
			Products:     catalog,
			Cart:         cartService,
			GuestCart:    guestCart,
			Checkout:     checkoutService,
			Orders:       orderService,
			Settings:     settingsProvider,
			Webhook:      webhookService,
			WebhookKeys:  stripeClient,
			WebhookGuard: idem.Scoped("stripe_webhook"),
		},
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(logCtx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
