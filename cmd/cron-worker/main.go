package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/nilgirisfresh-backend/internal/cart"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/catalog"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/checkout"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/cron"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/orders"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/payments"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/settings"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/config"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/db"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/instance"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/logger"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/metrics"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/migrate"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/pubsub"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/redis"
	stripeclient "github.com/angelmondragon/nilgirisfresh-backend/pkg/stripe"
)

const gatewayPollInterval = 2 * time.Second

func main() {
	once := flag.Bool("once", false, "run a single sweep cycle and exit (for external schedulers)")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
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

	var publisher orders.TopicPublisher
	if cfg.FeatureFlags.PublishEvents {
		pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		publisher = pubsubClient
	}

	checkoutService, err := buildCheckout(cfg, logg, dbClient, redisClient, orders.NewEvents(publisher, logg))
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	jobMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	jobParams := cron.PaymentJobParams{
		Logger:         logg,
		Checkout:       checkoutService,
		Metrics:        jobMetrics,
		BatchSize:      cfg.Cron.BatchSize,
		ReconcileGrace: cfg.Cron.ReconcileGrace,
		AttemptTTL:     cfg.Checkout.AttemptTTL,
	}
	reconcileJob, err := cron.NewPaymentReconcileJob(jobParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile job", err)
		os.Exit(1)
	}
	expireJob, err := cron.NewPaymentExpireJob(jobParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create expire job", err)
		os.Exit(1)
	}

	registry, err := cron.NewRegistry(reconcileJob, expireJob)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	lockKey := redisClient.LockKey("cron-worker:" + envOrLocal(cfg.App.Env))
	lock, err := cron.NewRedisLock(redisClient, lockKey, instance.ID(), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    jobMetrics,
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.ID(),
	})

	if *once {
		logg.Info(ctx, "running a single cron cycle")
		if !service.RunOnce(ctx) {
			logg.Warn(ctx, "cron lock held elsewhere; nothing ran")
		}
		return
	}

	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

// buildCheckout wires the checkout service the sweep jobs drive. The
// sweeps never clear carts.
func buildCheckout(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, events *orders.Events) (checkout.Service, error) {
	ctx := context.Background()

	stripeClient, err := stripeclient.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		return nil, err
	}
	provider, err := payments.NewStripeProvider(stripeClient)
	if err != nil {
		return nil, err
	}
	gateway, err := payments.NewGateway(provider, payments.NewHub(), payments.GatewayConfig{
		PollInterval: gatewayPollInterval,
		AwaitTimeout: cfg.Checkout.AwaitTimeout,
	}, logg)
	if err != nil {
		return nil, err
	}

	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		return nil, err
	}
	guestStore, err := cart.NewGuestStore(redisClient, cfg.Cart.GuestTTL)
	if err != nil {
		return nil, err
	}
	cartEngine, err := cart.NewEngine(cart.EngineDeps{
		Resolver: catalogService,
		Guests:   guestStore,
		Bound:    cart.NewBoundStore(dbClient.DB()),
		Tx:       dbClient,
		Markers:  redisClient,
		Logger:   logg,
	})
	if err != nil {
		return nil, err
	}
	settingsService, err := settings.NewService(settings.NewRepository(dbClient.DB()))
	if err != nil {
		return nil, err
	}

	return checkout.NewService(checkout.ServiceParams{
		Tx:       dbClient,
		Attempts: checkout.NewAttemptRepository(dbClient.DB()),
		Orders:   orders.NewRepository(dbClient.DB()),
		Cart:     cartEngine,
		Catalog:  catalogService,
		Settings: settingsService,
		Gateway:  gateway,
		Locks:    redisClient,
		Events:   events,
		Metrics:  metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer),
		Logger:   logg,
		Currency: cfg.Checkout.Currency,
		LockTTL:  cfg.Checkout.LockTTL,
	})
}

func envOrLocal(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
