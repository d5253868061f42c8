package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ziggy12122/STK-Bot-sub000/pkg/config"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/db"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/idempotency"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/instance"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/logger"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/metrics"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/migrate"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/outbox"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/outbox/registry"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/redis"
)

const (
	serviceName = "outbox-publisher"
	// relayedTTL outlives any realistic publisher outage so a replayed row
	// is still recognised.
	relayedTTL = 24 * time.Hour
)

func main() {
	bootLog := logger.New(logger.Options{ServiceName: serviceName})
	if err := godotenv.Load(); err != nil {
		bootLog.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		bootLog.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceName

	logg := logger.New(logger.Options{
		ServiceName: serviceName,
		Env:         cfg.App.Env,
		Instance:    instance.GetID(),
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "outbox publisher stopped unexpectedly", err)
		stop()
		os.Exit(1)
	}
	logg.Info(ctx, "outbox publisher shutting down gracefully")
}

// run owns every connection it opens; they are closed in reverse order
// when it returns.
func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer closeWithLog(ctx, logg, "database", dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer closeWithLog(ctx, logg, "redis", redisClient.Close)

	out, err := newSink(cfg, redisClient)
	if err != nil {
		return fmt.Errorf("bootstrap outbox sink: %w", err)
	}
	defer closeWithLog(ctx, logg, out.Name()+" sink", out.Close)

	guard, err := idempotency.NewGuard(redisClient, relayedTTL)
	if err != nil {
		return fmt.Errorf("relay guard: %w", err)
	}
	eventRegistry, err := registry.NewEventRegistry(topicFor(cfg))
	if err != nil {
		return fmt.Errorf("event registry: %w", err)
	}

	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Sink:          out,
		Repository:    outbox.NewRepository(dbClient.DB()),
		Registry:      eventRegistry,
		DLQRepository: outbox.NewDLQRepository(dbClient.DB()),
		Guard:         guard,
		Metrics:       metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return fmt.Errorf("create outbox publisher: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"serviceKind": serviceName,
		"sink":        out.Name(),
		"topic":       topicFor(cfg),
	})
	logg.Info(ctx, "starting outbox publisher")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func closeWithLog(ctx context.Context, logg *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(ctx, "error closing "+name, err)
	}
}

func newSink(cfg *config.Config, redisClient *redis.Client) (sink, error) {
	if strings.EqualFold(strings.TrimSpace(cfg.Outbox.Sink), config.OutboxSinkKafka) {
		return newKafkaSink(cfg.Kafka)
	}
	return newRedisSink(redisClient)
}
