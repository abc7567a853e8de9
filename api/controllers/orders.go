package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nandazuhri/lokapasar-backend/api/responses"
	"github.com/nandazuhri/lokapasar-backend/api/validators"
	internalorders "github.com/nandazuhri/lokapasar-backend/internal/orders"
	"github.com/nandazuhri/lokapasar-backend/pkg/db/models"
	"github.com/nandazuhri/lokapasar-backend/pkg/enums"
	pkgerrors "github.com/nandazuhri/lokapasar-backend/pkg/errors"
	"github.com/nandazuhri/lokapasar-backend/pkg/logger"
)

// OrderList returns the user's orders, newest first, optionally filtered by
// status.
func OrderList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var status *enums.OrderStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			status = &parsed
		}

		orders, err := svc.ListMine(r.Context(), userID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list := make([]orderResponse, 0, len(orders))
		for i := range orders {
			list = append(list, newOrderResponse(&orders[i]))
		}
		responses.WriteSuccess(w, map[string]any{"orders": list})
	}
}

// OrderDetail returns one order with its items, payment, and status audit
// trail. The lookup is scoped to the authenticated user.
func OrderDetail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetMine(r.Context(), userID, chi.URLParam(r, "orderCode"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderDetailResponse(order))
	}
}

// OrderCancel lets the buyer abandon an order that has not shipped. Stock
// returns to the shelf when the cancelled order had it reserved.
func OrderCancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetMine(r.Context(), userID, chi.URLParam(r, "orderCode"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Transition(r.Context(), order.ID, internalorders.TransitionInput{
			To:    enums.OrderStatusCancelled,
			Actor: "buyer",
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderDetailResponse(updated))
	}
}

// OrderTransition applies one lifecycle move to the user's order. The state
// machine rejects anything the current status does not allow.
func OrderTransition(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload transitionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target status"))
			return
		}

		order, err := svc.GetMine(r.Context(), userID, chi.URLParam(r, "orderCode"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Transition(r.Context(), order.ID, internalorders.TransitionInput{
			To:    to,
			Actor: "user",
			Note:  payload.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderDetailResponse(updated))
	}
}

type transitionRequest struct {
	Status string  `json:"status" validate:"required"`
	Note   *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

type orderDetailResponse struct {
	orderResponse
	EtdMinDays  int                 `json:"etd_min_days"`
	EtdMaxDays  int                 `json:"etd_max_days"`
	PaidAt      *time.Time          `json:"paid_at,omitempty"`
	ShippedAt   *time.Time          `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time          `json:"delivered_at,omitempty"`
	Payment     *paymentResponse    `json:"payment,omitempty"`
	StatusLogs  []statusLogResponse `json:"status_logs"`
	CreatedAt   time.Time           `json:"created_at"`
}

type paymentResponse struct {
	PaymentID     uuid.UUID `json:"payment_id"`
	Status        string    `json:"status"`
	GatewayStatus string    `json:"gateway_status,omitempty"`
	SnapToken     string    `json:"snap_token,omitempty"`
	RedirectURL   string    `json:"redirect_url,omitempty"`
	AmountMinor   int64     `json:"amount_minor"`
}

type statusLogResponse struct {
	OldStatus *string   `json:"old_status,omitempty"`
	NewStatus string    `json:"new_status"`
	Actor     string    `json:"actor"`
	Note      *string   `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func newOrderDetailResponse(order *models.Order) orderDetailResponse {
	if order == nil {
		return orderDetailResponse{}
	}
	resp := orderDetailResponse{
		orderResponse: newOrderResponse(order),
		EtdMinDays:    order.EtdMinDays,
		EtdMaxDays:    order.EtdMaxDays,
		PaidAt:        order.PaidAt,
		ShippedAt:     order.ShippedAt,
		DeliveredAt:   order.DeliveredAt,
		StatusLogs:    make([]statusLogResponse, 0, len(order.StatusLogs)),
		CreatedAt:     order.CreatedAt,
	}
	if order.Payment != nil {
		resp.Payment = &paymentResponse{
			PaymentID:     order.Payment.ID,
			Status:        string(order.Payment.Status),
			GatewayStatus: order.Payment.RawGatewayStatus,
			SnapToken:     order.Payment.SnapToken,
			RedirectURL:   order.Payment.RedirectURL,
			AmountMinor:   order.Payment.AmountMinor,
		}
	}
	for _, log := range order.StatusLogs {
		var old *string
		if log.OldStatus != nil {
			s := string(*log.OldStatus)
			old = &s
		}
		resp.StatusLogs = append(resp.StatusLogs, statusLogResponse{
			OldStatus: old,
			NewStatus: string(log.NewStatus),
			Actor:     log.Actor,
			Note:      log.Note,
			CreatedAt: log.CreatedAt,
		})
	}
	return resp
}
