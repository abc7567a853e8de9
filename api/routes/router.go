package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nandazuhri/lokapasar-backend/api/controllers"
	"github.com/nandazuhri/lokapasar-backend/api/middleware"
	"github.com/nandazuhri/lokapasar-backend/internal/cart"
	checkoutsvc "github.com/nandazuhri/lokapasar-backend/internal/checkout"
	"github.com/nandazuhri/lokapasar-backend/internal/orders"
	"github.com/nandazuhri/lokapasar-backend/internal/payments"
	"github.com/nandazuhri/lokapasar-backend/internal/shipping"
	"github.com/nandazuhri/lokapasar-backend/pkg/config"
	"github.com/nandazuhri/lokapasar-backend/pkg/db"
	"github.com/nandazuhri/lokapasar-backend/pkg/logger"
	"github.com/nandazuhri/lokapasar-backend/pkg/metrics"
	"github.com/nandazuhri/lokapasar-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          db.Pinger
	Redis       redis.Pinger
	HTTPMetrics *metrics.HTTPMetrics

	CartService     cart.Service
	CheckoutService checkoutsvc.Service
	OrdersService   orders.Service
	PaymentsService payments.Service
	ShippingService shipping.RateService
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)
	if deps.HTTPMetrics != nil {
		r.Use(deps.HTTPMetrics.Middleware)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	// The gateway signs its notifications; signature verification replaces
	// bearer auth on this route.
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/midtrans", controllers.PaymentNotification(deps.PaymentsService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(deps.CartService, logg))
			r.Post("/items", controllers.CartAddItem(deps.CartService, logg))
			r.Patch("/items/{itemId}", controllers.CartUpdateItem(deps.CartService, logg))
			r.Patch("/items/{itemId}/select", controllers.CartSelectItem(deps.CartService, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(deps.CartService, logg))
			r.Put("/shipping/{storeId}", controllers.CartSetShipping(deps.CartService, logg))
			r.Post("/voucher", controllers.CartAttachVoucher(deps.CartService, logg))
			r.Post("/voucher/validate", controllers.CheckoutPreviewVoucher(deps.CheckoutService, logg))
			r.Delete("/voucher", controllers.CartDetachVoucher(deps.CartService, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/summary", controllers.CheckoutSummary(deps.CheckoutService, logg))
			r.Post("/", controllers.CheckoutCreate(deps.CheckoutService, cfg.Checkout, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(deps.OrdersService, logg))
			r.Get("/{orderCode}", controllers.OrderDetail(deps.OrdersService, logg))
			r.Post("/{orderCode}/cancel", controllers.OrderCancel(deps.OrdersService, logg))
			r.Post("/{orderCode}/transition", controllers.OrderTransition(deps.OrdersService, logg))
			r.Post("/{orderCode}/payment", controllers.PaymentInit(deps.PaymentsService, logg))
		})

		r.Post("/shipping/rates", controllers.ShippingRates(deps.ShippingService, logg))
	})

	return r
}
