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
	"go.uber.org/multierr"

	"github.com/angelmondragon/nilgirisfresh-backend/api/controllers"
	"github.com/angelmondragon/nilgirisfresh-backend/api/routes"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/auth"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/cart"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/catalog"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/checkout"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/media"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/orders"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/payments"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/settings"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/users"
	stripewebhook "github.com/angelmondragon/nilgirisfresh-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/auth/session"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/config"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/db"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/instance"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/logger"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/metrics"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/migrate"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/pubsub"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/redis"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/storage/gcs"
	stripeclient "github.com/angelmondragon/nilgirisfresh-backend/pkg/stripe"
)

const (
	gatewayPollInterval = 2 * time.Second
	cartMergeMarkerTTL  = 24 * time.Hour
	webhookEventTTL     = 72 * time.Hour
	uploadURLTTL        = 15 * time.Minute
	shutdownTimeout     = 15 * time.Second
)

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
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx := context.Background()
	var closers []func() error
	defer func() {
		var closeErr error
		for i := len(closers) - 1; i >= 0; i-- {
			closeErr = multierr.Append(closeErr, closers[i]())
		}
		if closeErr != nil {
			logg.Error(ctx, "error releasing resources", closeErr)
		}
	}()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		return err
	}
	closers = append(closers, dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		return err
	}
	closers = append(closers, redisClient.Close)

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap gcs", err)
		return err
	}
	closers = append(closers, gcsClient.Close)

	health := map[string]controllers.Pinger{
		"postgres": dbClient,
		"redis":    redisClient,
		"gcs":      gcsClient,
	}

	var publisher orders.TopicPublisher
	if cfg.FeatureFlags.PublishEvents {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap pubsub", err)
			return err
		}
		closers = append(closers, pubsubClient.Close)
		publisher = pubsubClient
		health["pubsub"] = pubsubClient
	}
	events := orders.NewEvents(publisher, logg)

	stripeClient, err := stripeclient.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap stripe", err)
		return err
	}

	hub := payments.NewHub()
	provider, err := payments.NewStripeProvider(stripeClient)
	if err != nil {
		logg.Error(ctx, "failed to create payment provider", err)
		return err
	}
	gateway, err := payments.NewGateway(provider, hub, payments.GatewayConfig{
		PollInterval: gatewayPollInterval,
		AwaitTimeout: cfg.Checkout.AwaitTimeout,
	}, logg)
	if err != nil {
		logg.Error(ctx, "failed to create payment gateway", err)
		return err
	}

	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(ctx, "failed to create catalog service", err)
		return err
	}

	guestStore, err := cart.NewGuestStore(redisClient, cfg.Cart.GuestTTL)
	if err != nil {
		logg.Error(ctx, "failed to create guest cart store", err)
		return err
	}
	cartEngine, err := cart.NewEngine(cart.EngineDeps{
		Resolver:  catalogService,
		Guests:    guestStore,
		Bound:     cart.NewBoundStore(dbClient.DB()),
		Tx:        dbClient,
		Markers:   redisClient,
		MarkerTTL: cartMergeMarkerTTL,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create cart engine", err)
		return err
	}

	settingsService, err := settings.NewService(settings.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(ctx, "failed to create settings service", err)
		return err
	}

	evidenceBucket := cfg.GCS.EvidenceBucket
	if evidenceBucket == "" {
		evidenceBucket = gcsClient.DefaultBucket()
	}

	orderRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:           orderRepo,
		Signer:         gcsClient,
		EvidenceBucket: evidenceBucket,
		EvidenceTTL:    cfg.GCS.DownloadURLExpiry,
		Events:         events,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		return err
	}

	registerer := prometheus.DefaultRegisterer
	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Tx:       dbClient,
		Attempts: checkout.NewAttemptRepository(dbClient.DB()),
		Orders:   orderRepo,
		Cart:     cartEngine,
		Catalog:  catalogService,
		Settings: settingsService,
		Gateway:  gateway,
		Locks:    redisClient,
		Events:   events,
		Metrics:  metrics.NewCheckoutMetrics(registerer),
		Logger:   logg,
		Currency: cfg.Checkout.Currency,
		LockTTL:  cfg.Checkout.LockTTL,
	})
	if err != nil {
		logg.Error(ctx, "failed to create checkout service", err)
		return err
	}

	mediaService, err := media.NewService(gcsClient, media.Config{
		ImageBucket:    gcsClient.DefaultBucket(),
		EvidenceBucket: evidenceBucket,
		MaxBytes:       cfg.Media.MaxUploadBytes(),
		UploadTTL:      uploadURLTTL,
	})
	if err != nil {
		logg.Error(ctx, "failed to create media service", err)
		return err
	}

	userRepo := users.NewRepository(dbClient.DB())
	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		return err
	}
	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: &cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		return err
	}
	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		Users:          userRepo,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(ctx, "failed to create register service", err)
		return err
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Hub:      hub,
		Recorder: checkoutService,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create stripe webhook service", err)
		return err
	}
	webhookLedger, err := stripewebhook.NewLedger(redisClient, "stripe", webhookEventTTL)
	if err != nil {
		logg.Error(ctx, "failed to create stripe webhook ledger", err)
		return err
	}

	router := routes.NewRouter(routes.Deps{
		Config:          cfg,
		Logger:          logg,
		Health:          health,
		Gatherer:        prometheus.DefaultGatherer,
		HTTPMetrics:     metrics.NewHTTPMetrics(registerer),
		RateLimits:      redisClient,
		IdempotencyKeys: redisClient,
		Sessions:        sessionManager,
		Auth:            authService,
		Register:        registerService,
		Catalog:         catalogService,
		Cart:            cartEngine,
		Settings:        settingsService,
		Checkout:        checkoutService,
		Orders:          ordersService,
		Media:           mediaService,
		Customers:       userRepo,
		StripeWebhooks:  webhookService,
		StripeClient:    stripeClient,
		WebhookLedger:   webhookLedger,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.ID(),
	})
	logg.Info(logCtx, "starting api server")

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(logCtx, "server failed", err)
			return err
		}
		return nil
	case <-sigCtx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error(logCtx, "graceful shutdown failed", err)
		return err
	}
	return nil
}
