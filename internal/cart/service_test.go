package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nandazuhri/lokapasar-backend/internal/products"
	"github.com/nandazuhri/lokapasar-backend/internal/testdb"
	dbpkg "github.com/nandazuhri/lokapasar-backend/pkg/db"
	"github.com/nandazuhri/lokapasar-backend/pkg/db/models"
	pkgerrors "github.com/nandazuhri/lokapasar-backend/pkg/errors"
)

type cartFixture struct {
	svc  Service
	conn *gorm.DB
}

// testVoucherFinder reads vouchers straight from the fixture database. The
// real repository's package depends on this one, so the test brings its own
// finder.
type testVoucherFinder struct {
	conn *gorm.DB
}

func (f *testVoucherFinder) FindByCode(ctx context.Context, code string) (*models.Voucher, error) {
	var v models.Voucher
	err := f.conn.WithContext(ctx).First(&v, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "voucher not found")
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func newCartFixture(t *testing.T) *cartFixture {
	t.Helper()

	conn := testdb.Open(t)
	svc, err := NewService(NewRepository(conn), dbpkg.FromConn(conn), products.NewRepository(conn), &testVoucherFinder{conn: conn})
	require.NoError(t, err)
	return &cartFixture{svc: svc, conn: conn}
}

func (f *cartFixture) seedProduct(t *testing.T, storeID uuid.UUID, price int64, stock int) *models.Product {
	t.Helper()
	product := models.Product{
		ID:         uuid.New(),
		StoreID:    storeID,
		Name:       "Product " + uuid.NewString()[:8],
		SKU:        uuid.NewString()[:8],
		PriceMinor: price,
		Stock:      stock,
		IsActive:   true,
	}
	require.NoError(t, f.conn.Create(&product).Error)
	return &product
}

func TestAddItemCreatesCartLazily(t *testing.T) {
	f := newCartFixture(t)
	userID := uuid.New()
	product := f.seedProduct(t, uuid.New(), 25_000, 10)

	cartRow, err := f.svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)

	require.Len(t, cartRow.Items, 1)
	assert.Equal(t, userID, cartRow.UserID)
	assert.Equal(t, 2, cartRow.Items[0].Quantity)
	assert.Equal(t, int64(25_000), cartRow.Items[0].UnitPriceMinor)
	assert.True(t, cartRow.Items[0].IsSelected)
}

func TestAddItemMergesExistingLine(t *testing.T) {
	f := newCartFixture(t)
	userID := uuid.New()
	product := f.seedProduct(t, uuid.New(), 25_000, 10)

	_, err := f.svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)
	cartRow, err := f.svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID, Quantity: 3})
	require.NoError(t, err)

	require.Len(t, cartRow.Items, 1)
	assert.Equal(t, 5, cartRow.Items[0].Quantity)
}

func TestAddItemRefusesBeyondStock(t *testing.T) {
	f := newCartFixture(t)
	userID := uuid.New()
	product := f.seedProduct(t, uuid.New(), 25_000, 3)

	_, err := f.svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)

	// 2 already in the cart; 2 more would exceed the 3 in stock.
	_, err = f.svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID, Quantity: 2})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStockInsufficient))
}

func TestAddItemRejectsInactiveProduct(t *testing.T) {
	f := newCartFixture(t)
	product := f.seedProduct(t, uuid.New(), 25_000, 10)
	require.NoError(t, f.conn.Model(&models.Product{}).Where("id = ?", product.ID).Update("is_active", false).Error)

	_, err := f.svc.AddItem(context.Background(), uuid.New(), AddItemInput{ProductID: product.ID, Quantity: 1})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdateItemQuantityChecksStock(t *testing.T) {
	f := newCartFixture(t)
	userID := uuid.New()
	product := f.seedProduct(t, uuid.New(), 25_000, 4)

	cartRow, err := f.svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)
	itemID := cartRow.Items[0].ID

	require.NoError(t, f.svc.UpdateItemQuantity(context.Background(), userID, itemID, 4))

	err = f.svc.UpdateItemQuantity(context.Background(), userID, itemID, 5)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStockInsufficient))
}

func TestRemoveItemUnknownIDIsNotFound(t *testing.T) {
	f := newCartFixture(t)
	userID := uuid.New()
	product := f.seedProduct(t, uuid.New(), 25_000, 4)

	_, err := f.svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)

	err = f.svc.RemoveItem(context.Background(), userID, uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestSetShippingRequiresSelectedItemsForStore(t *testing.T) {
	f := newCartFixture(t)
	userID := uuid.New()
	storeID := uuid.New()
	product := f.seedProduct(t, storeID, 25_000, 4)

	cartRow, err := f.svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)

	input := ShippingInput{CourierCode: "jne", ServiceCode: "REG", FeeMinor: 18_000, EtdMinDays: 2, EtdMaxDays: 3}

	sel, err := f.svc.SetShipping(context.Background(), userID, storeID, input)
	require.NoError(t, err)
	assert.Equal(t, int64(18_000), sel.FeeMinor)

	// Deselecting the only line makes the store ineligible for shipping.
	require.NoError(t, f.svc.SetItemSelected(context.Background(), userID, cartRow.Items[0].ID, false))
	_, err = f.svc.SetShipping(context.Background(), userID, storeID, input)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSetShippingReplacesPreviousChoice(t *testing.T) {
	f := newCartFixture(t)
	userID := uuid.New()
	storeID := uuid.New()
	product := f.seedProduct(t, storeID, 25_000, 4)

	_, err := f.svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = f.svc.SetShipping(context.Background(), userID, storeID,
		ShippingInput{CourierCode: "jne", ServiceCode: "REG", FeeMinor: 18_000})
	require.NoError(t, err)

	sel, err := f.svc.SetShipping(context.Background(), userID, storeID,
		ShippingInput{CourierCode: "jne", ServiceCode: "YES", FeeMinor: 34_000, EtdMinDays: 1, EtdMaxDays: 1})
	require.NoError(t, err)
	assert.Equal(t, "YES", sel.ServiceCode)

	var count int64
	require.NoError(t, f.conn.Model(&models.ShippingSelection{}).
		Where("store_id = ?", storeID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAttachAndDetachVoucher(t *testing.T) {
	f := newCartFixture(t)
	userID := uuid.New()
	product := f.seedProduct(t, uuid.New(), 25_000, 4)

	_, err := f.svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)

	now := time.Now()
	v := models.Voucher{
		ID:             uuid.New(),
		Code:           "HEMAT10",
		Type:           "percentage",
		Scope:          "all_products",
		Percent:        10,
		Quota:          5,
		RemainingQuota: 5,
		StartsAt:       now.Add(-time.Hour),
		EndsAt:         now.Add(time.Hour),
	}
	require.NoError(t, f.conn.Create(&v).Error)

	attached, err := f.svc.AttachVoucher(context.Background(), userID, "HEMAT10")
	require.NoError(t, err)
	assert.Equal(t, v.ID, attached.ID)

	cartRow, _, err := f.svc.GetCart(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, cartRow.AppliedVoucherID)
	assert.Equal(t, v.ID, *cartRow.AppliedVoucherID)

	require.NoError(t, f.svc.DetachVoucher(context.Background(), userID))
	cartRow, _, err = f.svc.GetCart(context.Background(), userID)
	require.NoError(t, err)
	assert.Nil(t, cartRow.AppliedVoucherID)
}

func TestAttachVoucherUnknownCode(t *testing.T) {
	f := newCartFixture(t)
	userID := uuid.New()
	product := f.seedProduct(t, uuid.New(), 25_000, 4)

	_, err := f.svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = f.svc.AttachVoucher(context.Background(), userID, "NOPE")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCartItemInsertKeepsDeselectedFlag(t *testing.T) {
	f := newCartFixture(t)

	cartRow := models.Cart{ID: uuid.New(), UserID: uuid.New()}
	require.NoError(t, f.conn.Create(&cartRow).Error)
	item := models.CartItem{
		ID:             uuid.New(),
		CartID:         cartRow.ID,
		ProductID:      uuid.New(),
		StoreID:        uuid.New(),
		Quantity:       1,
		UnitPriceMinor: 10_000,
		IsSelected:     false,
	}
	require.NoError(t, f.conn.Create(&item).Error)

	// A zero-valued flag must survive the insert; a column default may
	// not override what the row said.
	var got models.CartItem
	require.NoError(t, f.conn.First(&got, "id = ?", item.ID).Error)
	assert.False(t, got.IsSelected)
}
