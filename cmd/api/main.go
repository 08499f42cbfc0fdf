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

	"github.com/angelmondragon/storepay-backend/api/routes"
	"github.com/angelmondragon/storepay-backend/internal/banks"
	"github.com/angelmondragon/storepay-backend/internal/ledger"
	"github.com/angelmondragon/storepay-backend/internal/notifications"
	"github.com/angelmondragon/storepay-backend/internal/payments"
	"github.com/angelmondragon/storepay-backend/internal/stores"
	"github.com/angelmondragon/storepay-backend/internal/subscriptions"
	"github.com/angelmondragon/storepay-backend/internal/users"
	"github.com/angelmondragon/storepay-backend/pkg/config"
	"github.com/angelmondragon/storepay-backend/pkg/db"
	"github.com/angelmondragon/storepay-backend/pkg/logger"
	"github.com/angelmondragon/storepay-backend/pkg/metrics"
	"github.com/angelmondragon/storepay-backend/pkg/migrate"
	"github.com/angelmondragon/storepay-backend/pkg/outbox"
	"github.com/angelmondragon/storepay-backend/pkg/paystack"
	"github.com/angelmondragon/storepay-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "api server shut down gracefully")
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	bootCtx := context.Background()

	dbClient, err := db.New(bootCtx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(bootCtx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(bootCtx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	verifier, err := paystack.NewFromConfig(cfg.Paystack)
	if err != nil {
		return err
	}

	conn := dbClient.DB()
	directory, err := users.NewDirectory(users.NewRepository(conn))
	if err != nil {
		return err
	}
	ledgerService, err := ledger.NewService(ledger.NewRepository(conn))
	if err != nil {
		return err
	}
	coordinator, err := subscriptions.NewCoordinator(subscriptions.NewRepository(conn))
	if err != nil {
		return err
	}
	gate, err := stores.NewGate(stores.NewRepository(conn))
	if err != nil {
		return err
	}
	bankService, err := banks.NewService(banks.NewRepository(conn))
	if err != nil {
		return err
	}
	notificationService, err := notifications.NewService(notifications.NewRepository(conn))
	if err != nil {
		return err
	}

	var lock payments.Locker
	if cfg.FeatureFlags.SubscriptionLock {
		keyed, err := redis.NewKeyedLock(redisClient, "subscription", cfg.Redis.SubscriptionLockTTL)
		if err != nil {
			return err
		}
		lock = keyed
	}

	paymentService, err := payments.NewService(payments.ServiceParams{
		DB:            dbClient,
		Ledger:        ledgerService,
		Subscriptions: coordinator,
		Stores:        gate,
		Banks:         bankService,
		Users:         directory,
		Verifier:      verifier,
		Outbox:        outbox.NewService(outbox.NewRepository(conn), logg),
		Lock:          lock,
		Metrics:       metrics.NewPaymentMetrics(prometheus.DefaultRegisterer),
		Logger:        logg,
	})
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	server := &http.Server{
		Addr: ":" + port,
		Handler: routes.NewRouter(routes.Params{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Idempotency:   redisClient,
			Admins:        directory,
			Payments:      paymentService,
			Banks:         bankService,
			Notifications: notificationService,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":              cfg.App.Env,
		"addr":             server.Addr,
		"subscriptionLock": cfg.FeatureFlags.SubscriptionLock,
	})
	logg.Info(ctx, "starting api server")

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.ListenAndServe() }()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
