package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	internalorders "github.com/nandazuhri/lokapasar-backend/internal/orders"
	"github.com/nandazuhri/lokapasar-backend/internal/products"
	"github.com/nandazuhri/lokapasar-backend/pkg/config"
	"github.com/nandazuhri/lokapasar-backend/pkg/db"
	"github.com/nandazuhri/lokapasar-backend/pkg/logger"
	"github.com/nandazuhri/lokapasar-backend/pkg/redis"
)

const (
	sweepInterval = 5 * time.Minute
	lockKey       = "lokapasar:sweeper:lock"
)

// The sweeper cancels pending_unpaid orders whose payment window lapsed,
// returning their reserved stock. A short redis lock keeps overlapping
// instances from sweeping the same window twice; losing the lock is not an
// error, another instance is already on it.
func main() {
	logg := logger.New(logger.Options{ServiceName: "sweeper"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "sweeper",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
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

	conn := dbClient.DB()
	ordersService, err := internalorders.NewService(
		internalorders.NewRepository(conn), dbClient, products.NewRepository(conn), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx = logg.WithFields(ctx, map[string]any{
		"env":        cfg.App.Env,
		"interval":   sweepInterval.String(),
		"unpaid_ttl": cfg.Checkout.UnpaidTTL.String(),
	})
	logg.Info(ctx, "starting unpaid-order sweeper")

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		sweep(ctx, logg, redisClient, ordersService, cfg.Checkout.UnpaidTTL)

		select {
		case <-ctx.Done():
			logg.Info(ctx, "sweeper shutting down")
			return
		case <-ticker.C:
		}
	}
}

func sweep(ctx context.Context, logg *logger.Logger, lock *redis.Client, svc internalorders.Service, maxAge time.Duration) {
	acquired, err := lock.SetNX(ctx, lockKey, 1, sweepInterval/2)
	if err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "sweeper lock unavailable, sweeping anyway")
	} else if !acquired {
		return
	}

	cancelled, err := svc.CancelExpired(ctx, maxAge)
	if err != nil {
		logg.Error(ctx, "expiry sweep finished with failures", err)
	}
	if cancelled > 0 {
		logg.Info(logg.WithField(ctx, "cancelled", cancelled), "expired unpaid orders cancelled")
	}
}
