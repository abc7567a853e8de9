package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nandazuhri/lokapasar-backend/api/responses"
	"github.com/nandazuhri/lokapasar-backend/internal/payments"
	pkgerrors "github.com/nandazuhri/lokapasar-backend/pkg/errors"
	"github.com/nandazuhri/lokapasar-backend/pkg/logger"
)

// PaymentInit opens (or returns the existing) gateway payment session for an
// unpaid order.
func PaymentInit(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Init(r.Context(), userID, chi.URLParam(r, "orderCode"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// PaymentNotification receives gateway webhooks. Any accepted notification,
// including replays and deliberately ignored statuses, gets a 2xx so the
// gateway stops retrying.
func PaymentNotification(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		// The gateway payload carries dozens of fields beyond the ones we
		// read, so this skips the strict decoder.
		var notif payments.Notification
		if err := json.NewDecoder(r.Body).Decode(&notif); err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification body"))
			return
		}

		if err := svc.HandleNotification(r.Context(), &notif); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}
