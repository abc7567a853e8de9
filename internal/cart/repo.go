package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nandazuhri/lokapasar-backend/pkg/db/models"
	pkgerrors "github.com/nandazuhri/lokapasar-backend/pkg/errors"
)

// Repository persists carts, their items, and per-store shipping selections.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	// FindOrCreateByUser returns the user's cart, creating it lazily on
	// first use. Insert-or-return-existing in one statement so concurrent
	// first adds cannot race into duplicates.
	FindOrCreateByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)

	FindItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error)
	FindItemByProduct(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error)
	CreateItem(ctx context.Context, item *models.CartItem) error
	UpdateItem(ctx context.Context, item *models.CartItem) error
	DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) error
	DeleteItems(ctx context.Context, cartID uuid.UUID, itemIDs []uuid.UUID) error

	// UpsertShippingSelection inserts or replaces the (cart, store) row in a
	// single statement, returning the canonical row.
	UpsertShippingSelection(ctx context.Context, sel *models.ShippingSelection) (*models.ShippingSelection, error)
	DeleteShippingSelections(ctx context.Context, cartID uuid.UUID, storeIDs []uuid.UUID) error

	SetVoucher(ctx context.Context, cartID uuid.UUID, voucherID *uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository on the given connection.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrCreateByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart := models.Cart{ID: uuid.New(), UserID: userID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&cart).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return r.FindByUser(ctx, userID)
}

func (r *repository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("cart_items.created_at ASC")
		}).
		Preload("Items.Product").
		Preload("ShippingSelections").
		Preload("AppliedVoucher").
		First(&cart, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return &cart, nil
}

func (r *repository) FindItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).First(&item, "id = ? AND cart_id = ?", itemID, cartID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}
	return &item, nil
}

func (r *repository) FindItemByProduct(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).First(&item, "cart_id = ? AND product_id = ?", cartID, productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}
	return &item, nil
}

func (r *repository) CreateItem(ctx context.Context, item *models.CartItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart item")
	}
	return nil
}

func (r *repository) UpdateItem(ctx context.Context, item *models.CartItem) error {
	if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
	}
	return nil
}

func (r *repository) DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.CartItem{}, "id = ? AND cart_id = ?", itemID, cartID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "delete cart item")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return nil
}

func (r *repository) DeleteItems(ctx context.Context, cartID uuid.UUID, itemIDs []uuid.UUID) error {
	if len(itemIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Delete(&models.CartItem{}, "cart_id = ? AND id IN ?", cartID, itemIDs).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart items")
	}
	return nil
}

func (r *repository) UpsertShippingSelection(ctx context.Context, sel *models.ShippingSelection) (*models.ShippingSelection, error) {
	if sel.ID == uuid.Nil {
		sel.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "cart_id"}, {Name: "store_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"courier_code", "service_code", "fee_minor", "etd_min_days", "etd_max_days", "updated_at",
			}),
		}).
		Create(sel).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert shipping selection")
	}

	var saved models.ShippingSelection
	err = r.db.WithContext(ctx).
		First(&saved, "cart_id = ? AND store_id = ?", sel.CartID, sel.StoreID).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload shipping selection")
	}
	return &saved, nil
}

func (r *repository) DeleteShippingSelections(ctx context.Context, cartID uuid.UUID, storeIDs []uuid.UUID) error {
	if len(storeIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Delete(&models.ShippingSelection{}, "cart_id = ? AND store_id IN ?", cartID, storeIDs).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete shipping selections")
	}
	return nil
}

func (r *repository) SetVoucher(ctx context.Context, cartID uuid.UUID, voucherID *uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		Update("applied_voucher_id", voucherID).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set cart voucher")
	}
	return nil
}
