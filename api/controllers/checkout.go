package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/nandazuhri/lokapasar-backend/api/responses"
	"github.com/nandazuhri/lokapasar-backend/api/validators"
	checkoutsvc "github.com/nandazuhri/lokapasar-backend/internal/checkout"
	"github.com/nandazuhri/lokapasar-backend/pkg/config"
	"github.com/nandazuhri/lokapasar-backend/pkg/db/models"
	pkgerrors "github.com/nandazuhri/lokapasar-backend/pkg/errors"
	"github.com/nandazuhri/lokapasar-backend/pkg/logger"
)

// CheckoutSummary prices the current cart selection. It never reserves stock
// or consumes quota, so the client can poll it freely.
func CheckoutSummary(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Summarize(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// CheckoutCreate commits the cart into per-store orders. A checkout that
// loses a stock or quota race to a concurrent buyer is retried once before
// the conflict surfaces to the client.
func CheckoutCreate(svc checkoutsvc.Service, cfg config.CheckoutConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var created []models.Order
		attempt := func(ctx context.Context) error {
			orders, err := svc.CreateOrders(ctx, userID)
			if err != nil {
				if cfg.RetryOnConflict && pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
					return retry.RetryableError(err)
				}
				return err
			}
			created = orders
			return nil
		}

		// NewConstant panics on a non-positive interval, so an unset
		// config must not reach it.
		interval := cfg.RetryBackoff
		if interval <= 0 {
			interval = 50 * time.Millisecond
		}
		backoff := retry.WithMaxRetries(1, retry.NewConstant(interval))
		if err := retry.Do(r.Context(), backoff, attempt); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCheckoutResponse(created))
	}
}

// CheckoutPreviewVoucher reports what a code would be worth against the
// caller's current selection, without attaching it to the cart.
func CheckoutPreviewVoucher(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req previewVoucherRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		preview, err := svc.PreviewVoucher(r.Context(), userID, req.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, preview)
	}
}

type previewVoucherRequest struct {
	Code string `json:"code" validate:"required,min=3,max=32"`
}

type checkoutResponse struct {
	Orders []orderResponse `json:"orders"`
}

func newCheckoutResponse(orders []models.Order) checkoutResponse {
	resp := checkoutResponse{Orders: make([]orderResponse, 0, len(orders))}
	for i := range orders {
		resp.Orders = append(resp.Orders, newOrderResponse(&orders[i]))
	}
	return resp
}

type orderResponse struct {
	OrderID       uuid.UUID           `json:"order_id"`
	Code          string              `json:"code"`
	StoreID       uuid.UUID           `json:"store_id"`
	Status        string              `json:"status"`
	PaymentStatus string              `json:"payment_status"`
	SubtotalMinor int64               `json:"subtotal_minor"`
	ShippingMinor int64               `json:"shipping_minor"`
	DiscountMinor int64               `json:"discount_minor"`
	TotalMinor    int64               `json:"total_minor"`
	CourierCode   string              `json:"courier_code"`
	ServiceCode   string              `json:"service_code"`
	Items         []orderItemResponse `json:"items"`
}

type orderItemResponse struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	UnitPriceMinor int64     `json:"unit_price_minor"`
	Quantity       int       `json:"quantity"`
	SubtotalMinor  int64     `json:"subtotal_minor"`
}

func newOrderResponse(order *models.Order) orderResponse {
	if order == nil {
		return orderResponse{}
	}
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ProductID:      item.ProductID,
			Name:           item.Name,
			UnitPriceMinor: item.UnitPriceMinor,
			Quantity:       item.Quantity,
			SubtotalMinor:  item.SubtotalMinor,
		})
	}
	return orderResponse{
		OrderID:       order.ID,
		Code:          order.Code,
		StoreID:       order.StoreID,
		Status:        string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		SubtotalMinor: order.SubtotalMinor,
		ShippingMinor: order.ShippingMinor,
		DiscountMinor: order.DiscountMinor,
		TotalMinor:    order.TotalMinor,
		CourierCode:   order.CourierCode,
		ServiceCode:   order.ServiceCode,
		Items:         items,
	}
}
