package checkout

import (
	"context"

	"github.com/google/uuid"

	"github.com/nandazuhri/lokapasar-backend/internal/cart"
	"github.com/nandazuhri/lokapasar-backend/internal/products"
	"github.com/nandazuhri/lokapasar-backend/internal/voucher"
	"github.com/nandazuhri/lokapasar-backend/pkg/db/models"
	pkgerrors "github.com/nandazuhri/lokapasar-backend/pkg/errors"
)

// StockIssue reports one line item the live catalog can no longer honor.
// Quantities are never clamped silently; the buyer decides what to drop.
type StockIssue struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// VoucherIssue explains why the attached voucher no longer applies.
type VoucherIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

// GroupSummary is the priced view of one store's slice of the checkout.
type GroupSummary struct {
	StoreID       uuid.UUID                 `json:"store_id"`
	Items         []models.CartItem         `json:"items"`
	Shipping      *models.ShippingSelection `json:"shipping,omitempty"`
	SubtotalMinor int64                     `json:"subtotal_minor"`
	ShippingMinor int64                     `json:"shipping_minor"`
	DiscountMinor int64                     `json:"discount_minor"`
	TotalMinor    int64                     `json:"total_minor"`
	WeightGrams   int                       `json:"weight_grams"`
}

// Summary is the full checkout preview. CheckoutAble is false whenever any
// issue list is non-empty; the create-order call re-derives the same checks
// inside its transaction, so the flag is advisory, not a lock.
type Summary struct {
	Groups          []GroupSummary  `json:"groups"`
	SubtotalMinor   int64           `json:"subtotal_minor"`
	ShippingMinor   int64           `json:"shipping_minor"`
	DiscountMinor   int64           `json:"discount_minor"`
	TotalMinor      int64           `json:"total_minor"`
	Voucher         *models.Voucher `json:"voucher,omitempty"`
	VoucherIssue    *VoucherIssue   `json:"voucher_issue,omitempty"`
	StockIssues     []StockIssue    `json:"stock_issues,omitempty"`
	MissingShipping []uuid.UUID     `json:"missing_shipping,omitempty"`
	CheckoutAble    bool            `json:"checkout_able"`
}

// buildSummary prices the selected items against live catalog state. It
// reads through the supplied repositories so the engine can run the
// identical computation inside its transaction.
func (s *service) buildSummary(ctx context.Context, cartRow *models.Cart, productRepo products.Repository, voucherRepo voucher.Repository) (*Summary, error) {
	groups := cart.GroupSelected(cartRow.Items)
	if len(groups) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no items selected for checkout")
	}

	summary := &Summary{}

	// Live stock re-check against current catalog rows. The cart preloads
	// products, but checkout must not trust a stale snapshot.
	productIDs := make([]uuid.UUID, 0)
	for _, group := range groups {
		for _, item := range group.Items {
			productIDs = append(productIDs, item.ProductID)
		}
	}
	current, err := productRepo.FindByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	for _, group := range groups {
		for _, item := range group.Items {
			product, ok := current[item.ProductID]
			if !ok || !product.IsActive {
				summary.StockIssues = append(summary.StockIssues, StockIssue{
					ProductID: item.ProductID,
					Name:      itemName(item),
					Requested: item.Quantity,
					Available: 0,
				})
				continue
			}
			if product.Stock < item.Quantity {
				summary.StockIssues = append(summary.StockIssues, StockIssue{
					ProductID: item.ProductID,
					Name:      product.Name,
					Requested: item.Quantity,
					Available: product.Stock,
				})
			}
		}
	}

	// Shipping must be chosen for every store in the checkout.
	selections := map[uuid.UUID]*models.ShippingSelection{}
	for i := range cartRow.ShippingSelections {
		sel := &cartRow.ShippingSelections[i]
		selections[sel.StoreID] = sel
	}
	shippingByStore := map[uuid.UUID]int64{}
	for _, group := range groups {
		sel, ok := selections[group.StoreID]
		if !ok {
			summary.MissingShipping = append(summary.MissingShipping, group.StoreID)
			continue
		}
		shippingByStore[group.StoreID] = sel.FeeMinor
	}

	// Re-validate the attached voucher against what is being bought now.
	var eval *voucher.Evaluation
	if cartRow.AppliedVoucherID != nil {
		snap := voucher.CheckoutSnapshot{
			Groups:          groups,
			ShippingByStore: shippingByStore,
		}
		v := cartRow.AppliedVoucher
		if v == nil {
			v, err = voucherRepo.FindByID(ctx, *cartRow.AppliedVoucherID)
			if err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				return nil, err
			}
		}
		eval, err = s.validator.Validate(ctx, v, snap)
		if err != nil {
			typed := pkgerrors.As(err)
			if typed == nil ||
				(typed.Code() != pkgerrors.CodeVoucherIneligible && typed.Code() != pkgerrors.CodeNotFound) {
				return nil, err
			}
			issue := &VoucherIssue{Message: typed.Message()}
			if v != nil {
				issue.Code = v.Code
			}
			if details, ok := typed.Details().(map[string]any); ok {
				if reason, ok := details["reason"].(string); ok {
					issue.Reason = reason
				}
			}
			summary.VoucherIssue = issue
			eval = nil
		} else {
			summary.Voucher = eval.Voucher
		}
	}

	discounts := splitDiscount(groups, eval)

	for _, group := range groups {
		gs := GroupSummary{
			StoreID:       group.StoreID,
			Items:         group.Items,
			SubtotalMinor: group.SubtotalMinor,
			WeightGrams:   group.WeightGrams,
			DiscountMinor: discounts[group.StoreID],
		}
		if sel, ok := selections[group.StoreID]; ok {
			gs.Shipping = sel
			gs.ShippingMinor = sel.FeeMinor
		}
		gs.TotalMinor = gs.SubtotalMinor + gs.ShippingMinor - gs.DiscountMinor

		summary.Groups = append(summary.Groups, gs)
		summary.SubtotalMinor += gs.SubtotalMinor
		summary.ShippingMinor += gs.ShippingMinor
		summary.DiscountMinor += gs.DiscountMinor
		summary.TotalMinor += gs.TotalMinor
	}

	summary.CheckoutAble = len(summary.StockIssues) == 0 &&
		len(summary.MissingShipping) == 0 &&
		summary.VoucherIssue == nil

	return summary, nil
}

// splitDiscount distributes a voucher evaluation across store groups. Item
// discounts are split proportionally to each store's eligible subtotal with
// integer floors; the rounding remainder lands on the first eligible group
// in store-id order so the split always sums exactly. Shipping discounts are
// already per-store.
func splitDiscount(groups []cart.StoreGroup, eval *voucher.Evaluation) map[uuid.UUID]int64 {
	out := map[uuid.UUID]int64{}
	if eval == nil {
		return out
	}

	for storeID, fee := range eval.ShippingDiscountByStore {
		out[storeID] += fee
	}

	if eval.DiscountMinor == 0 || eval.EligibleSubtotalMinor == 0 {
		return out
	}

	var distributed int64
	var first uuid.UUID
	haveFirst := false
	for _, group := range groups {
		eligible, ok := eval.EligibleByStore[group.StoreID]
		if !ok {
			continue
		}
		if !haveFirst {
			first = group.StoreID
			haveFirst = true
		}
		share := eval.DiscountMinor * eligible / eval.EligibleSubtotalMinor
		out[group.StoreID] += share
		distributed += share
	}
	if haveFirst {
		out[first] += eval.DiscountMinor - distributed
	}
	return out
}

func itemName(item models.CartItem) string {
	if item.Product != nil {
		return item.Product.Name
	}
	return item.ProductID.String()
}
