package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nandazuhri/lokapasar-backend/api/responses"
	"github.com/nandazuhri/lokapasar-backend/api/validators"
	"github.com/nandazuhri/lokapasar-backend/internal/cart"
	"github.com/nandazuhri/lokapasar-backend/pkg/db/models"
	pkgerrors "github.com/nandazuhri/lokapasar-backend/pkg/errors"
	"github.com/nandazuhri/lokapasar-backend/pkg/logger"
)

// CartFetch returns the user's cart grouped by store.
func CartFetch(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cartRow, groups, err := svc.GetCart(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(cartRow, groups))
	}
}

// CartAddItem puts a product into the cart, merging quantity with any
// existing line for the same product.
func CartAddItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cartRow, err := svc.AddItem(r.Context(), userID, cart.AddItemInput{
			ProductID: payload.ProductID,
			Quantity:  payload.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"cart_id": cartRow.ID})
	}
}

// CartUpdateItem changes the quantity of one cart line.
func CartUpdateItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := parseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.UpdateItemQuantity(r.Context(), userID, itemID, payload.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "updated"})
	}
}

// CartSelectItem toggles whether a line participates in checkout.
func CartSelectItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := parseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload selectItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetItemSelected(r.Context(), userID, itemID, *payload.Selected); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "updated"})
	}
}

// CartRemoveItem deletes a line from the cart.
func CartRemoveItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := parseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RemoveItem(r.Context(), userID, itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

// CartSetShipping records the chosen courier service for one store group.
func CartSetShipping(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		storeID, err := parseUUIDParam(r, "storeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setShippingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		selection, err := svc.SetShipping(r.Context(), userID, storeID, cart.ShippingInput{
			CourierCode: payload.CourierCode,
			ServiceCode: payload.ServiceCode,
			FeeMinor:    payload.FeeMinor,
			EtdMinDays:  payload.EtdMinDays,
			EtdMaxDays:  payload.EtdMaxDays,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newShippingResponse(selection))
	}
}

// CartAttachVoucher pins a voucher code to the cart after a first-pass
// validation against the current selection.
func CartAttachVoucher(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload attachVoucherRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		voucher, err := svc.AttachVoucher(r.Context(), userID, payload.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newVoucherResponse(voucher))
	}
}

// CartDetachVoucher removes the applied voucher from the cart.
func CartDetachVoucher(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DetachVoucher(r.Context(), userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}

type addItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

type selectItemRequest struct {
	Selected *bool `json:"selected" validate:"required"`
}

type setShippingRequest struct {
	CourierCode string `json:"courier_code" validate:"required"`
	ServiceCode string `json:"service_code" validate:"required"`
	FeeMinor    int64  `json:"fee_minor" validate:"required,min=0"`
	EtdMinDays  int    `json:"etd_min_days" validate:"min=0"`
	EtdMaxDays  int    `json:"etd_max_days" validate:"min=0"`
}

type attachVoucherRequest struct {
	Code string `json:"code" validate:"required,min=3,max=32"`
}

type cartResponse struct {
	CartID  uuid.UUID           `json:"cart_id"`
	Voucher *voucherResponse    `json:"voucher,omitempty"`
	Items   []cartItemResponse  `json:"items"`
	Groups  []cartGroupResponse `json:"groups"`
}

type cartGroupResponse struct {
	StoreID       uuid.UUID          `json:"store_id"`
	Items         []cartItemResponse `json:"items"`
	SubtotalMinor int64              `json:"subtotal_minor"`
	WeightGrams   int                `json:"weight_grams"`
	ItemCount     int                `json:"item_count"`
}

type cartItemResponse struct {
	ItemID         uuid.UUID `json:"item_id"`
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	Quantity       int       `json:"quantity"`
	UnitPriceMinor int64     `json:"unit_price_minor"`
	SubtotalMinor  int64     `json:"subtotal_minor"`
	Selected       bool      `json:"selected"`
}

type voucherResponse struct {
	Code  string `json:"code"`
	Type  string `json:"type"`
	Scope string `json:"scope"`
}

type shippingResponse struct {
	StoreID     uuid.UUID `json:"store_id"`
	CourierCode string    `json:"courier_code"`
	ServiceCode string    `json:"service_code"`
	FeeMinor    int64     `json:"fee_minor"`
	EtdMinDays  int       `json:"etd_min_days"`
	EtdMaxDays  int       `json:"etd_max_days"`
}

func newCartResponse(cartRow *models.Cart, groups []cart.StoreGroup) cartResponse {
	resp := cartResponse{Groups: make([]cartGroupResponse, 0, len(groups))}
	if cartRow == nil {
		return resp
	}
	resp.CartID = cartRow.ID
	resp.Voucher = newVoucherResponse(cartRow.AppliedVoucher)

	resp.Items = make([]cartItemResponse, 0, len(cartRow.Items))
	for _, item := range cartRow.Items {
		resp.Items = append(resp.Items, newCartItemResponse(item))
	}

	// Groups cover the selected lines only; deselected lines still show up
	// in the flat list above.
	for _, group := range groups {
		items := make([]cartItemResponse, 0, len(group.Items))
		for _, item := range group.Items {
			items = append(items, newCartItemResponse(item))
		}
		resp.Groups = append(resp.Groups, cartGroupResponse{
			StoreID:       group.StoreID,
			Items:         items,
			SubtotalMinor: group.SubtotalMinor,
			WeightGrams:   group.WeightGrams,
			ItemCount:     group.ItemCount,
		})
	}
	return resp
}

func newCartItemResponse(item models.CartItem) cartItemResponse {
	name := ""
	if item.Product != nil {
		name = item.Product.Name
	}
	return cartItemResponse{
		ItemID:         item.ID,
		ProductID:      item.ProductID,
		Name:           name,
		Quantity:       item.Quantity,
		UnitPriceMinor: item.UnitPriceMinor,
		SubtotalMinor:  item.UnitPriceMinor * int64(item.Quantity),
		Selected:       item.IsSelected,
	}
}

func newVoucherResponse(v *models.Voucher) *voucherResponse {
	if v == nil {
		return nil
	}
	return &voucherResponse{
		Code:  v.Code,
		Type:  string(v.Type),
		Scope: string(v.Scope),
	}
}

func newShippingResponse(sel *models.ShippingSelection) *shippingResponse {
	if sel == nil {
		return nil
	}
	return &shippingResponse{
		StoreID:     sel.StoreID,
		CourierCode: sel.CourierCode,
		ServiceCode: sel.ServiceCode,
		FeeMinor:    sel.FeeMinor,
		EtdMinDays:  sel.EtdMinDays,
		EtdMaxDays:  sel.EtdMaxDays,
	}
}
