package voucher

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nandazuhri/lokapasar-backend/internal/cart"
	"github.com/nandazuhri/lokapasar-backend/pkg/db/models"
	"github.com/nandazuhri/lokapasar-backend/pkg/enums"
	pkgerrors "github.com/nandazuhri/lokapasar-backend/pkg/errors"
)

// Ineligibility reasons carried in error details so clients can render a
// specific message without parsing prose.
const (
	ReasonExpired        = "expired"
	ReasonNotStarted     = "not_started"
	ReasonQuota          = "quota_exhausted"
	ReasonMinTransaction = "min_transaction"
	ReasonScope          = "no_eligible_items"
)

// CheckoutSnapshot is the view of a cart the validator evaluates a voucher
// against: the selected items grouped by store plus the chosen shipping fee
// per store.
type CheckoutSnapshot struct {
	Now             time.Time
	Groups          []cart.StoreGroup
	ShippingByStore map[uuid.UUID]int64
}

// Evaluation is the outcome of a successful validation. Discounts are split
// up front so the summary builder and the order engine apply identical
// numbers.
type Evaluation struct {
	Voucher *models.Voucher
	// DiscountMinor is the item-level discount for percentage and fixed
	// vouchers. Zero for free_shipping.
	DiscountMinor int64
	// ShippingDiscountByStore maps each covered store to its waived fee.
	// Populated only for free_shipping vouchers.
	ShippingDiscountByStore map[uuid.UUID]int64
	// EligibleSubtotalMinor is the subtotal the discount was computed from,
	// after scope and store filtering.
	EligibleSubtotalMinor int64
	// EligibleByStore is each store's share of the eligible subtotal, used
	// to split the discount proportionally across per-store orders.
	EligibleByStore map[uuid.UUID]int64
}

// TotalDiscountMinor sums item and shipping discounts.
func (e *Evaluation) TotalDiscountMinor() int64 {
	total := e.DiscountMinor
	for _, fee := range e.ShippingDiscountByStore {
		total += fee
	}
	return total
}

// Validator re-checks a voucher against the current cart state. It never
// mutates quota; consumption happens at order creation.
type Validator interface {
	ValidateCode(ctx context.Context, code string, snap CheckoutSnapshot) (*Evaluation, error)
	Validate(ctx context.Context, v *models.Voucher, snap CheckoutSnapshot) (*Evaluation, error)
}

type validator struct {
	repo Repository
}

// NewValidator wires the validator to voucher storage.
func NewValidator(repo Repository) Validator {
	if repo == nil {
		panic("voucher: validator requires a repository")
	}
	return &validator{repo: repo}
}

func (s *validator) ValidateCode(ctx context.Context, code string, snap CheckoutSnapshot) (*Evaluation, error) {
	v, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.Validate(ctx, v, snap)
}

func (s *validator) Validate(_ context.Context, v *models.Voucher, snap CheckoutSnapshot) (*Evaluation, error) {
	if v == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "voucher not found")
	}
	now := snap.Now
	if now.IsZero() {
		now = time.Now()
	}

	// Validity window is inclusive start, exclusive end.
	if now.Before(v.StartsAt) {
		return nil, ineligible("voucher is not active yet", ReasonNotStarted)
	}
	if !now.Before(v.EndsAt) {
		return nil, ineligible("voucher has expired", ReasonExpired)
	}
	if v.RemainingQuota <= 0 {
		return nil, ineligible("voucher quota exhausted", ReasonQuota)
	}

	eligibleByStore := eligibleSubtotals(v, snap.Groups)
	var eligibleTotal int64
	for _, subtotal := range eligibleByStore {
		eligibleTotal += subtotal
	}

	if eligibleTotal < v.MinTransactionMinor {
		return nil, ineligible("cart does not reach the voucher minimum", ReasonMinTransaction).
			WithDetails(map[string]any{
				"reason":                ReasonMinTransaction,
				"min_transaction_minor": v.MinTransactionMinor,
				"eligible_minor":        eligibleTotal,
			})
	}
	if len(eligibleByStore) == 0 {
		return nil, ineligible("no selected items are covered by this voucher", ReasonScope)
	}

	eval := &Evaluation{
		Voucher:               v,
		EligibleSubtotalMinor: eligibleTotal,
		EligibleByStore:       eligibleByStore,
	}

	switch v.Type {
	case enums.VoucherTypePercentage:
		eval.DiscountMinor = percentageDiscount(eligibleTotal, v.Percent, v.MaxDiscountMinor)
	case enums.VoucherTypeFixed:
		eval.DiscountMinor = v.FixedAmountMinor
		if eval.DiscountMinor > eligibleTotal {
			eval.DiscountMinor = eligibleTotal
		}
	case enums.VoucherTypeFreeShipping:
		eval.ShippingDiscountByStore = map[uuid.UUID]int64{}
		for storeID := range eligibleByStore {
			if fee, ok := snap.ShippingByStore[storeID]; ok && fee > 0 {
				eval.ShippingDiscountByStore[storeID] = fee
			}
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "unknown voucher type").
			WithDetails(map[string]any{"type": string(v.Type)})
	}

	return eval, nil
}

// eligibleSubtotals filters the groups down to what the voucher covers: a
// store voucher only touches that store's group, and a specific-products
// voucher only counts its pinned products. Stores whose eligible subtotal is
// zero are omitted.
func eligibleSubtotals(v *models.Voucher, groups []cart.StoreGroup) map[uuid.UUID]int64 {
	pinned := map[uuid.UUID]bool{}
	if v.Scope == enums.VoucherScopeSpecificProducts {
		for _, vp := range v.Products {
			pinned[vp.ProductID] = true
		}
	}

	out := map[uuid.UUID]int64{}
	for _, group := range groups {
		if v.StoreID != nil && *v.StoreID != group.StoreID {
			continue
		}
		var subtotal int64
		for _, item := range group.Items {
			if v.Scope == enums.VoucherScopeSpecificProducts && !pinned[item.ProductID] {
				continue
			}
			subtotal += item.UnitPriceMinor * int64(item.Quantity)
		}
		if subtotal > 0 {
			out[group.StoreID] = subtotal
		}
	}
	return out
}

// percentageDiscount computes floor(subtotal * percent / 100), capped when a
// cap is set. Decimal math keeps the rounding exact for any subtotal.
func percentageDiscount(subtotalMinor int64, percent int, capMinor int64) int64 {
	discount := decimal.NewFromInt(subtotalMinor).
		Mul(decimal.NewFromInt(int64(percent))).
		Div(decimal.NewFromInt(100)).
		Floor().
		IntPart()
	if capMinor > 0 && discount > capMinor {
		discount = capMinor
	}
	if discount > subtotalMinor {
		discount = subtotalMinor
	}
	return discount
}

func ineligible(msg, reason string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeVoucherIneligible, msg).
		WithDetails(map[string]any{"reason": reason})
}
