package main

import (
	"context"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nandazuhri/lokapasar-backend/api/routes"
	"github.com/nandazuhri/lokapasar-backend/internal/cart"
	checkoutsvc "github.com/nandazuhri/lokapasar-backend/internal/checkout"
	internalorders "github.com/nandazuhri/lokapasar-backend/internal/orders"
	"github.com/nandazuhri/lokapasar-backend/internal/payments"
	"github.com/nandazuhri/lokapasar-backend/internal/products"
	"github.com/nandazuhri/lokapasar-backend/internal/shipping"
	"github.com/nandazuhri/lokapasar-backend/internal/voucher"
	"github.com/nandazuhri/lokapasar-backend/pkg/config"
	"github.com/nandazuhri/lokapasar-backend/pkg/db"
	"github.com/nandazuhri/lokapasar-backend/pkg/logger"
	"github.com/nandazuhri/lokapasar-backend/pkg/metrics"
	"github.com/nandazuhri/lokapasar-backend/pkg/midtrans"
	"github.com/nandazuhri/lokapasar-backend/pkg/redis"
	"github.com/joho/godotenv"
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

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	gateway, err := midtrans.NewClient(context.Background(), cfg.Midtrans, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway client", err)
		os.Exit(1)
	}

	rateClient, err := shipping.NewClient(cfg.Shipping)
	if err != nil {
		logg.Error(context.Background(), "failed to create shipping rate client", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	cartRepo := cart.NewRepository(conn)
	productRepo := products.NewRepository(conn)
	voucherRepo := voucher.NewRepository(conn)
	orderRepo := internalorders.NewRepository(conn)
	paymentRepo := payments.NewRepository(conn)
	voucherValidator := voucher.NewValidator(voucherRepo)

	cartService, err := cart.NewService(cartRepo, dbClient, productRepo, voucherRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	ordersService, err := internalorders.NewService(orderRepo, dbClient, productRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	pipeline := metrics.NewPipelineMetrics(prometheus.DefaultRegisterer)

	checkoutService, err := checkoutsvc.NewService(
		cartRepo, productRepo, voucherRepo, voucherValidator, orderRepo,
		dbClient, logg, pipeline,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(
		paymentRepo, orderRepo, ordersService, gateway,
		payments.NewRedisGuard(redisClient), dbClient, logg, pipeline,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	httpMetrics := metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:          cfg,
			Logger:          logg,
			DB:              dbClient,
			Redis:           redisClient,
			HTTPMetrics:     httpMetrics,
			CartService:     cartService,
			CheckoutService: checkoutService,
			OrdersService:   ordersService,
			PaymentsService: paymentsService,
			ShippingService: rateClient,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
