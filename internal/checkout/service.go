package checkout

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nandazuhri/lokapasar-backend/internal/cart"
	"github.com/nandazuhri/lokapasar-backend/internal/orders"
	"github.com/nandazuhri/lokapasar-backend/internal/products"
	"github.com/nandazuhri/lokapasar-backend/internal/voucher"
	"github.com/nandazuhri/lokapasar-backend/pkg/db/models"
	"github.com/nandazuhri/lokapasar-backend/pkg/enums"
	pkgerrors "github.com/nandazuhri/lokapasar-backend/pkg/errors"
	"github.com/nandazuhri/lokapasar-backend/pkg/logger"
	"github.com/nandazuhri/lokapasar-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service turns a priced cart into per-store orders.
type Service interface {
	// Summarize prices the current selection without touching stock or
	// quota. Safe to call repeatedly.
	Summarize(ctx context.Context, userID uuid.UUID) (*Summary, error)
	// PreviewVoucher evaluates a code against the current selection
	// without attaching it to the cart or consuming quota.
	PreviewVoucher(ctx context.Context, userID uuid.UUID, code string) (*VoucherPreview, error)
	// CreateOrders commits the checkout: reserves stock, consumes voucher
	// quota, writes one order per store, and clears the purchased items
	// from the cart. Everything happens in one transaction; any failure
	// rolls the whole checkout back.
	CreateOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
}

type service struct {
	carts     cart.Repository
	products  products.Repository
	vouchers  voucher.Repository
	validator voucher.Validator
	orders    orders.Repository
	tx        txRunner
	logg      *logger.Logger
	pipeline  *metrics.PipelineMetrics
}

// NewService wires the checkout pipeline.
func NewService(
	carts cart.Repository,
	productRepo products.Repository,
	voucherRepo voucher.Repository,
	validator voucher.Validator,
	orderRepo orders.Repository,
	tx txRunner,
	logg *logger.Logger,
	pipeline *metrics.PipelineMetrics,
) (Service, error) {
	if carts == nil || productRepo == nil || voucherRepo == nil || validator == nil || orderRepo == nil {
		return nil, fmt.Errorf("checkout service requires all repositories")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		carts:     carts,
		products:  productRepo,
		vouchers:  voucherRepo,
		validator: validator,
		orders:    orderRepo,
		tx:        tx,
		logg:      logg,
		pipeline:  pipeline,
	}, nil
}

func (s *service) Summarize(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	cartRow, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.buildSummary(ctx, cartRow, s.products, s.vouchers)
}

// VoucherPreview is what a code would be worth against the current
// selection. Nothing is attached or consumed.
type VoucherPreview struct {
	Voucher               *models.Voucher `json:"voucher"`
	DiscountMinor         int64           `json:"discount_minor"`
	ShippingDiscountMinor int64           `json:"shipping_discount_minor"`
	EligibleSubtotalMinor int64           `json:"eligible_subtotal_minor"`
}

func (s *service) PreviewVoucher(ctx context.Context, userID uuid.UUID, code string) (*VoucherPreview, error) {
	cartRow, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	groups := cart.GroupSelected(cartRow.Items)
	if len(groups) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no items selected for checkout")
	}

	shippingByStore := map[uuid.UUID]int64{}
	for i := range cartRow.ShippingSelections {
		sel := &cartRow.ShippingSelections[i]
		shippingByStore[sel.StoreID] = sel.FeeMinor
	}

	eval, err := s.validator.ValidateCode(ctx, code, voucher.CheckoutSnapshot{
		Groups:          groups,
		ShippingByStore: shippingByStore,
	})
	if err != nil {
		return nil, err
	}

	var shippingDiscount int64
	for _, fee := range eval.ShippingDiscountByStore {
		shippingDiscount += fee
	}
	return &VoucherPreview{
		Voucher:               eval.Voucher,
		DiscountMinor:         eval.DiscountMinor,
		ShippingDiscountMinor: shippingDiscount,
		EligibleSubtotalMinor: eval.EligibleSubtotalMinor,
	}, nil
}

func (s *service) CreateOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var created []models.Order

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created = nil

		cartRepo := s.carts.WithTx(tx)
		productRepo := s.products.WithTx(tx)
		voucherRepo := s.vouchers.WithTx(tx)
		orderRepo := s.orders.WithTx(tx)

		cartRow, err := cartRepo.FindByUser(ctx, userID)
		if err != nil {
			return err
		}

		// The summary is rebuilt inside the transaction so the prices and
		// checks reflect exactly what this checkout will commit.
		summary, err := s.buildSummary(ctx, cartRow, productRepo, voucherRepo)
		if err != nil {
			return err
		}
		if err := checkoutBlocker(summary); err != nil {
			return err
		}

		// Stock is taken in deterministic store-then-product order so two
		// overlapping checkouts walk rows the same way instead of
		// deadlocking.
		for _, group := range summary.Groups {
			items := append([]models.CartItem(nil), group.Items...)
			sort.Slice(items, func(i, j int) bool {
				return items[i].ProductID.String() < items[j].ProductID.String()
			})
			for _, item := range items {
				if err := productRepo.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}

		// One quota unit per checkout, not per store order.
		if summary.Voucher != nil {
			if err := voucherRepo.ConsumeQuota(ctx, summary.Voucher.ID, 1); err != nil {
				return err
			}
		}

		now := time.Now()
		for _, group := range summary.Groups {
			code, err := orders.GenerateCode(now)
			if err != nil {
				return err
			}

			order := models.Order{
				ID:            uuid.New(),
				Code:          code,
				UserID:        userID,
				StoreID:       group.StoreID,
				Status:        enums.OrderStatusPendingUnpaid,
				PaymentStatus: enums.PaymentStatusPending,
				SubtotalMinor: group.SubtotalMinor,
				ShippingMinor: group.ShippingMinor,
				DiscountMinor: group.DiscountMinor,
				TotalMinor:    group.TotalMinor,
				CourierCode:   group.Shipping.CourierCode,
				ServiceCode:   group.Shipping.ServiceCode,
				EtdMinDays:    group.Shipping.EtdMinDays,
				EtdMaxDays:    group.Shipping.EtdMaxDays,
			}
			for _, item := range group.Items {
				order.Items = append(order.Items, models.OrderItem{
					ProductID:      item.ProductID,
					Name:           itemName(item),
					UnitPriceMinor: item.UnitPriceMinor,
					Quantity:       item.Quantity,
					SubtotalMinor:  item.UnitPriceMinor * int64(item.Quantity),
				})
			}
			order.StatusLogs = append(order.StatusLogs, models.OrderStatusLog{
				NewStatus: enums.OrderStatusPendingUnpaid,
				Actor:     orders.ActorSystem,
			})

			if err := orderRepo.Create(ctx, &order); err != nil {
				return err
			}

			if summary.Voucher != nil && order.DiscountMinor > 0 {
				if err := voucherRepo.CreateApplication(ctx, &models.VoucherApplication{
					VoucherID:     summary.Voucher.ID,
					OrderID:       order.ID,
					DiscountMinor: order.DiscountMinor,
				}); err != nil {
					return err
				}
			}

			created = append(created, order)
		}

		// Purchased items leave the cart; unselected items stay put.
		itemIDs := make([]uuid.UUID, 0)
		storeIDs := make([]uuid.UUID, 0, len(summary.Groups))
		for _, group := range summary.Groups {
			storeIDs = append(storeIDs, group.StoreID)
			for _, item := range group.Items {
				itemIDs = append(itemIDs, item.ID)
			}
		}
		if err := cartRepo.DeleteItems(ctx, cartRow.ID, itemIDs); err != nil {
			return err
		}
		if err := cartRepo.DeleteShippingSelections(ctx, cartRow.ID, storeIDs); err != nil {
			return err
		}
		if cartRow.AppliedVoucherID != nil {
			if err := cartRepo.SetVoucher(ctx, cartRow.ID, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if s.pipeline != nil {
			s.pipeline.IncCheckout(outcomeFor(err))
		}
		return nil, err
	}

	if s.pipeline != nil {
		s.pipeline.IncCheckout("success")
	}
	codes := make([]string, len(created))
	for i, order := range created {
		codes[i] = order.Code
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"user_id":     userID.String(),
		"order_codes": codes,
	}), "checkout committed")
	return created, nil
}

// checkoutBlocker converts summary issues into the typed error the API
// surfaces, worst problem first.
func checkoutBlocker(summary *Summary) error {
	if len(summary.StockIssues) > 0 {
		return pkgerrors.New(pkgerrors.CodeStockInsufficient, "some items are no longer available in the requested quantity").
			WithDetails(map[string]any{"stock_issues": summary.StockIssues})
	}
	if len(summary.MissingShipping) > 0 {
		stores := make([]string, len(summary.MissingShipping))
		for i, id := range summary.MissingShipping {
			stores[i] = id.String()
		}
		return pkgerrors.New(pkgerrors.CodeShippingNotSet, "shipping has not been selected for every store").
			WithDetails(map[string]any{"store_ids": stores})
	}
	if summary.VoucherIssue != nil {
		return pkgerrors.New(pkgerrors.CodeVoucherIneligible, summary.VoucherIssue.Message).
			WithDetails(map[string]any{
				"code":   summary.VoucherIssue.Code,
				"reason": summary.VoucherIssue.Reason,
			})
	}
	return nil
}

func outcomeFor(err error) string {
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeStockInsufficient):
		return "stock_insufficient"
	case pkgerrors.IsCode(err, pkgerrors.CodeShippingNotSet):
		return "shipping_not_set"
	case pkgerrors.IsCode(err, pkgerrors.CodeVoucherIneligible):
		return "voucher_ineligible"
	case pkgerrors.IsCode(err, pkgerrors.CodeConflict):
		return "conflict"
	default:
		return "error"
	}
}
