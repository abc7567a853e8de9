package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nandazuhri/lokapasar-backend/internal/products"
	"github.com/nandazuhri/lokapasar-backend/pkg/db/models"
	pkgerrors "github.com/nandazuhri/lokapasar-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type voucherFinder interface {
	FindByCode(ctx context.Context, code string) (*models.Voucher, error)
}

// AddItemInput captures the payload for adding a product to the cart.
type AddItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// ShippingInput is the chosen courier service for one store group.
type ShippingInput struct {
	CourierCode string
	ServiceCode string
	FeeMinor    int64
	EtdMinDays  int
	EtdMaxDays  int
}

// Service exposes cart operations. Every call receives the authenticated
// user id explicitly; nothing is read from ambient state.
type Service interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, []StoreGroup, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*models.Cart, error)
	UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) error
	SetItemSelected(ctx context.Context, userID, itemID uuid.UUID, selected bool) error
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error
	SetShipping(ctx context.Context, userID, storeID uuid.UUID, input ShippingInput) (*models.ShippingSelection, error)
	AttachVoucher(ctx context.Context, userID uuid.UUID, code string) (*models.Voucher, error)
	DetachVoucher(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	repo     Repository
	tx       txRunner
	products products.Repository
	vouchers voucherFinder
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo Repository, tx txRunner, productRepo products.Repository, vouchers voucherFinder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if vouchers == nil {
		return nil, fmt.Errorf("voucher finder required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		products: productRepo,
		vouchers: vouchers,
	}, nil
}

func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, []StoreGroup, error) {
	if userID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	cart, err := s.repo.FindOrCreateByUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return cart, GroupSelected(cart.Items), nil
}

func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	product, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := repo.FindOrCreateByUser(ctx, userID)
		if err != nil {
			return err
		}

		existing, err := repo.FindItemByProduct(ctx, cart.ID, product.ID)
		if err != nil {
			return err
		}

		quantity := input.Quantity
		if existing != nil {
			quantity += existing.Quantity
		}
		if quantity > product.Stock {
			return pkgerrors.New(pkgerrors.CodeStockInsufficient, "requested quantity exceeds stock").
				WithDetails(map[string]any{
					"product_id": product.ID,
					"requested":  quantity,
					"available":  product.Stock,
				})
		}

		if existing != nil {
			existing.Quantity = quantity
			existing.UnitPriceMinor = product.PriceMinor
			return repo.UpdateItem(ctx, existing)
		}

		return repo.CreateItem(ctx, &models.CartItem{
			CartID:         cart.ID,
			ProductID:      product.ID,
			StoreID:        product.StoreID,
			Quantity:       quantity,
			UnitPriceMinor: product.PriceMinor,
			IsSelected:     true,
		})
	}); err != nil {
		return nil, err
	}

	return s.repo.FindByUser(ctx, userID)
}

func (s *service) UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) error {
	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return err
	}
	item, err := s.repo.FindItem(ctx, cart.ID, itemID)
	if err != nil {
		return err
	}

	product, err := s.products.FindByID(ctx, item.ProductID)
	if err != nil {
		return err
	}
	if quantity > product.Stock {
		return pkgerrors.New(pkgerrors.CodeStockInsufficient, "requested quantity exceeds stock").
			WithDetails(map[string]any{
				"product_id": product.ID,
				"requested":  quantity,
				"available":  product.Stock,
			})
	}

	item.Quantity = quantity
	return s.repo.UpdateItem(ctx, item)
}

func (s *service) SetItemSelected(ctx context.Context, userID, itemID uuid.UUID, selected bool) error {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return err
	}
	item, err := s.repo.FindItem(ctx, cart.ID, itemID)
	if err != nil {
		return err
	}
	if item.IsSelected == selected {
		return nil
	}
	item.IsSelected = selected
	return s.repo.UpdateItem(ctx, item)
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return err
	}
	return s.repo.DeleteItem(ctx, cart.ID, itemID)
}

func (s *service) SetShipping(ctx context.Context, userID, storeID uuid.UUID, input ShippingInput) (*models.ShippingSelection, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	if input.CourierCode == "" || input.ServiceCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "courier and service are required")
	}
	if input.FeeMinor < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping fee cannot be negative")
	}

	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	storeHasSelection := false
	for _, group := range GroupSelected(cart.Items) {
		if group.StoreID == storeID {
			storeHasSelection = true
			break
		}
	}
	if !storeHasSelection {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no selected items for this store")
	}

	return s.repo.UpsertShippingSelection(ctx, &models.ShippingSelection{
		CartID:      cart.ID,
		StoreID:     storeID,
		CourierCode: input.CourierCode,
		ServiceCode: input.ServiceCode,
		FeeMinor:    input.FeeMinor,
		EtdMinDays:  input.EtdMinDays,
		EtdMaxDays:  input.EtdMaxDays,
	})
}

func (s *service) AttachVoucher(ctx context.Context, userID uuid.UUID, code string) (*models.Voucher, error) {
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "voucher code is required")
	}
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	voucher, err := s.vouchers.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	id := voucher.ID
	if err := s.repo.SetVoucher(ctx, cart.ID, &id); err != nil {
		return nil, err
	}
	return voucher, nil
}

func (s *service) DetachVoucher(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return err
	}
	return s.repo.SetVoucher(ctx, cart.ID, nil)
}
