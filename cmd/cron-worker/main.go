package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storepay-backend/internal/cron"
	"github.com/angelmondragon/storepay-backend/internal/notifications"
	"github.com/angelmondragon/storepay-backend/pkg/config"
	"github.com/angelmondragon/storepay-backend/pkg/db"
	"github.com/angelmondragon/storepay-backend/pkg/logger"
	"github.com/angelmondragon/storepay-backend/pkg/metrics"
	"github.com/angelmondragon/storepay-backend/pkg/migrate"
	"github.com/angelmondragon/storepay-backend/pkg/outbox"
	"github.com/angelmondragon/storepay-backend/pkg/redis"
)

func main() {
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
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(context.Background(), "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "cron worker shutting down gracefully")
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

	lock, err := redis.NewKeyedLock(redisClient, "cron:"+envOrLocal(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		return err
	}
	lock.WithWait(time.Millisecond, time.Millisecond)

	outboxJob, err := cron.NewOutboxRetentionJob(logg, dbClient, outbox.NewRepository(dbClient.DB()), cfg.Cron.OutboxRetentionDays)
	if err != nil {
		return err
	}
	notificationJob, err := cron.NewNotificationCleanupJob(logg, notifications.NewRepository(dbClient.DB()), cfg.Cron.NotificationRetentionDays)
	if err != nil {
		return err
	}
	registry := cron.NewRegistry()
	for _, job := range []cron.Job{outboxJob, notificationJob} {
		if err := registry.Register(job); err != nil {
			return err
		}
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"interval":    cfg.Cron.Interval.String(),
	})
	logg.Info(ctx, "starting cron worker")

	return service.Run(ctx)
}

func envOrLocal(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
