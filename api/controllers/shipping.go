package controllers

import (
	"net/http"

	"github.com/nandazuhri/lokapasar-backend/api/responses"
	"github.com/nandazuhri/lokapasar-backend/api/validators"
	"github.com/nandazuhri/lokapasar-backend/internal/shipping"
	pkgerrors "github.com/nandazuhri/lokapasar-backend/pkg/errors"
	"github.com/nandazuhri/lokapasar-backend/pkg/logger"
)

// ShippingRates quotes courier services for one store group so the client
// can offer the buyer a choice before checkout.
func ShippingRates(svc shipping.RateService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping service unavailable"))
			return
		}
		if _, err := authedUserID(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload ratesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quotes, err := svc.Rates(r.Context(), shipping.RateRequest{
			OriginCityID:      payload.OriginCityID,
			DestinationCityID: payload.DestinationCityID,
			WeightGrams:       payload.WeightGrams,
			CourierCode:       payload.CourierCode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"quotes": quotes})
	}
}

type ratesRequest struct {
	OriginCityID      string `json:"origin_city_id" validate:"required"`
	DestinationCityID string `json:"destination_city_id" validate:"required"`
	WeightGrams       int    `json:"weight_grams" validate:"required,min=1"`
	CourierCode       string `json:"courier_code" validate:"required"`
}
