package checkout

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	cartpkg "github.com/nandazuhri/lokapasar-backend/internal/cart"
	"github.com/nandazuhri/lokapasar-backend/internal/orders"
	"github.com/nandazuhri/lokapasar-backend/internal/products"
	"github.com/nandazuhri/lokapasar-backend/internal/testdb"
	"github.com/nandazuhri/lokapasar-backend/internal/voucher"
	dbpkg "github.com/nandazuhri/lokapasar-backend/pkg/db"
	"github.com/nandazuhri/lokapasar-backend/pkg/db/models"
	"github.com/nandazuhri/lokapasar-backend/pkg/enums"
	pkgerrors "github.com/nandazuhri/lokapasar-backend/pkg/errors"
	"github.com/nandazuhri/lokapasar-backend/pkg/logger"
)

// storeA sorts before storeB, so storeA is always the "first group" that
// absorbs the discount rounding remainder.
var (
	storeA = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	storeB = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

type fixture struct {
	svc  Service
	conn *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn := testdb.Open(t)
	client := dbpkg.FromConn(conn)
	logg := logger.New(logger.Options{ServiceName: "checkout-test", Output: io.Discard})

	voucherRepo := voucher.NewRepository(conn)
	svc, err := NewService(
		cartpkg.NewRepository(conn),
		products.NewRepository(conn),
		voucherRepo,
		voucher.NewValidator(voucherRepo),
		orders.NewRepository(conn),
		client,
		logg,
		nil,
	)
	require.NoError(t, err)
	return &fixture{svc: svc, conn: conn}
}

func (f *fixture) seedProduct(t *testing.T, storeID uuid.UUID, price int64, stock int) *models.Product {
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

func (f *fixture) seedCart(t *testing.T, userID uuid.UUID) *models.Cart {
	t.Helper()
	cart := models.Cart{ID: uuid.New(), UserID: userID}
	require.NoError(t, f.conn.Create(&cart).Error)
	return &cart
}

func (f *fixture) addItem(t *testing.T, cart *models.Cart, product *models.Product, qty int) {
	t.Helper()
	require.NoError(t, f.conn.Create(&models.CartItem{
		ID:             uuid.New(),
		CartID:         cart.ID,
		ProductID:      product.ID,
		StoreID:        product.StoreID,
		Quantity:       qty,
		UnitPriceMinor: product.PriceMinor,
		IsSelected:     true,
	}).Error)
}

func (f *fixture) setShipping(t *testing.T, cart *models.Cart, storeID uuid.UUID, fee int64) {
	t.Helper()
	require.NoError(t, f.conn.Create(&models.ShippingSelection{
		ID:          uuid.New(),
		CartID:      cart.ID,
		StoreID:     storeID,
		CourierCode: "jne",
		ServiceCode: "REG",
		FeeMinor:    fee,
		EtdMinDays:  2,
		EtdMaxDays:  4,
	}).Error)
}

func (f *fixture) seedVoucher(t *testing.T, v *models.Voucher) *models.Voucher {
	t.Helper()
	now := time.Now()
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.StartsAt.IsZero() {
		v.StartsAt = now.Add(-time.Hour)
	}
	if v.EndsAt.IsZero() {
		v.EndsAt = now.Add(time.Hour)
	}
	require.NoError(t, f.conn.Create(v).Error)
	return v
}

func (f *fixture) attachVoucher(t *testing.T, cart *models.Cart, voucherID uuid.UUID) {
	t.Helper()
	require.NoError(t, f.conn.Model(&models.Cart{}).
		Where("id = ?", cart.ID).
		Update("applied_voucher_id", voucherID).Error)
}

func TestSummarizeMultiStoreWithPercentageVoucher(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()

	productA := f.seedProduct(t, storeA, 50_000, 10) // 2 => 100_000
	productB := f.seedProduct(t, storeB, 30_500, 10) // 1 => 30_500

	cart := f.seedCart(t, userID)
	f.addItem(t, cart, productA, 2)
	f.addItem(t, cart, productB, 1)
	f.setShipping(t, cart, storeA, 15_000)
	f.setShipping(t, cart, storeB, 9_000)

	v := f.seedVoucher(t, &models.Voucher{
		Code:           "DISC10",
		Type:           enums.VoucherTypePercentage,
		Scope:          enums.VoucherScopeAllProducts,
		Percent:        10,
		Quota:          5,
		RemainingQuota: 5,
	})
	f.attachVoucher(t, cart, v.ID)

	summary, err := f.svc.Summarize(context.Background(), userID)
	require.NoError(t, err)
	require.True(t, summary.CheckoutAble)
	require.Len(t, summary.Groups, 2)

	// Eligible subtotal 130_500 => 10% = 13_050. Proportional floors:
	// storeA 100_000 -> 10_000, storeB 30_500 -> 3_050, remainder 0.
	assert.Equal(t, int64(130_500), summary.SubtotalMinor)
	assert.Equal(t, int64(24_000), summary.ShippingMinor)
	assert.Equal(t, int64(13_050), summary.DiscountMinor)
	assert.Equal(t, int64(141_450), summary.TotalMinor)

	first, second := summary.Groups[0], summary.Groups[1]
	assert.Equal(t, storeA, first.StoreID)
	assert.Equal(t, int64(10_000), first.DiscountMinor)
	assert.Equal(t, int64(105_000), first.TotalMinor)
	assert.Equal(t, storeB, second.StoreID)
	assert.Equal(t, int64(3_050), second.DiscountMinor)
	assert.Equal(t, int64(36_450), second.TotalMinor)
}

func TestSummarizeDiscountRemainderGoesToFirstGroup(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()

	// 10% of 101 = 10 (floored). Shares: 33*10/101=3 and 68*10/101=6,
	// leaving 1 for the first group.
	productA := f.seedProduct(t, storeA, 33, 10)
	productB := f.seedProduct(t, storeB, 68, 10)

	cart := f.seedCart(t, userID)
	f.addItem(t, cart, productA, 1)
	f.addItem(t, cart, productB, 1)
	f.setShipping(t, cart, storeA, 0)
	f.setShipping(t, cart, storeB, 0)

	v := f.seedVoucher(t, &models.Voucher{
		Code:           "ODD10",
		Type:           enums.VoucherTypePercentage,
		Scope:          enums.VoucherScopeAllProducts,
		Percent:        10,
		Quota:          1,
		RemainingQuota: 1,
	})
	f.attachVoucher(t, cart, v.ID)

	summary, err := f.svc.Summarize(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, summary.Groups, 2)
	assert.Equal(t, int64(4), summary.Groups[0].DiscountMinor) // 3 + remainder 1
	assert.Equal(t, int64(6), summary.Groups[1].DiscountMinor)
	assert.Equal(t, int64(10), summary.DiscountMinor)
}

func TestSummarizeReportsIssuesWithoutClamping(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()

	product := f.seedProduct(t, storeA, 20_000, 1)
	other := f.seedProduct(t, storeB, 10_000, 5)

	cart := f.seedCart(t, userID)
	f.addItem(t, cart, product, 3) // only 1 in stock
	f.addItem(t, cart, other, 1)   // storeB shipping never chosen
	f.setShipping(t, cart, storeA, 10_000)

	summary, err := f.svc.Summarize(context.Background(), userID)
	require.NoError(t, err)
	assert.False(t, summary.CheckoutAble)

	require.Len(t, summary.StockIssues, 1)
	issue := summary.StockIssues[0]
	assert.Equal(t, product.ID, issue.ProductID)
	assert.Equal(t, 3, issue.Requested)
	assert.Equal(t, 1, issue.Available)

	require.Len(t, summary.MissingShipping, 1)
	assert.Equal(t, storeB, summary.MissingShipping[0])

	// The requested quantity is reported as-is, never rewritten.
	require.Len(t, summary.Groups, 2)
	assert.Equal(t, int64(60_000), summary.Groups[0].SubtotalMinor)
}

func TestSummarizeSurfacesVoucherIssue(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()

	product := f.seedProduct(t, storeA, 50_000, 5)
	cart := f.seedCart(t, userID)
	f.addItem(t, cart, product, 1)
	f.setShipping(t, cart, storeA, 10_000)

	v := f.seedVoucher(t, &models.Voucher{
		Code:           "USEDUP",
		Type:           enums.VoucherTypePercentage,
		Percent:        10,
		Scope:          enums.VoucherScopeAllProducts,
		Quota:          5,
		RemainingQuota: 0,
	})
	f.attachVoucher(t, cart, v.ID)

	summary, err := f.svc.Summarize(context.Background(), userID)
	require.NoError(t, err)
	assert.False(t, summary.CheckoutAble)
	require.NotNil(t, summary.VoucherIssue)
	assert.Equal(t, "USEDUP", summary.VoucherIssue.Code)
	assert.Equal(t, voucher.ReasonQuota, summary.VoucherIssue.Reason)
	// Totals fall back to undiscounted prices.
	assert.Zero(t, summary.DiscountMinor)
	assert.Equal(t, int64(60_000), summary.TotalMinor)
}

func TestSummarizeEmptySelection(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	f.seedCart(t, userID)

	_, err := f.svc.Summarize(context.Background(), userID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCreateOrdersCommitsEverything(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()

	productA := f.seedProduct(t, storeA, 50_000, 5)
	productB := f.seedProduct(t, storeB, 30_000, 5)

	cart := f.seedCart(t, userID)
	f.addItem(t, cart, productA, 2)
	f.addItem(t, cart, productB, 1)
	f.setShipping(t, cart, storeA, 15_000)
	f.setShipping(t, cart, storeB, 9_000)

	v := f.seedVoucher(t, &models.Voucher{
		Code:           "DISC10",
		Type:           enums.VoucherTypePercentage,
		Scope:          enums.VoucherScopeAllProducts,
		Percent:        10,
		Quota:          5,
		RemainingQuota: 5,
	})
	f.attachVoucher(t, cart, v.ID)

	created, err := f.svc.CreateOrders(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, created, 2)

	for _, order := range created {
		assert.Equal(t, enums.OrderStatusPendingUnpaid, order.Status)
		assert.Equal(t, order.SubtotalMinor+order.ShippingMinor-order.DiscountMinor, order.TotalMinor)
		assert.NotEmpty(t, order.Code)
	}

	var pa, pb models.Product
	require.NoError(t, f.conn.First(&pa, "id = ?", productA.ID).Error)
	require.NoError(t, f.conn.First(&pb, "id = ?", productB.ID).Error)
	assert.Equal(t, 3, pa.Stock)
	assert.Equal(t, 4, pb.Stock)

	var vRow models.Voucher
	require.NoError(t, f.conn.First(&vRow, "id = ?", v.ID).Error)
	assert.Equal(t, 4, vRow.RemainingQuota)

	var applications int64
	require.NoError(t, f.conn.Model(&models.VoucherApplication{}).Count(&applications).Error)
	assert.Equal(t, int64(2), applications)

	var items, selections int64
	require.NoError(t, f.conn.Model(&models.CartItem{}).Where("cart_id = ?", cart.ID).Count(&items).Error)
	require.NoError(t, f.conn.Model(&models.ShippingSelection{}).Where("cart_id = ?", cart.ID).Count(&selections).Error)
	assert.Zero(t, items)
	assert.Zero(t, selections)

	var cartRow models.Cart
	require.NoError(t, f.conn.First(&cartRow, "id = ?", cart.ID).Error)
	assert.Nil(t, cartRow.AppliedVoucherID)

	var logs int64
	require.NoError(t, f.conn.Model(&models.OrderStatusLog{}).Count(&logs).Error)
	assert.Equal(t, int64(2), logs)
}

func TestCreateOrdersLeavesUnselectedItems(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()

	bought := f.seedProduct(t, storeA, 40_000, 5)
	kept := f.seedProduct(t, storeA, 25_000, 5)

	cart := f.seedCart(t, userID)
	f.addItem(t, cart, bought, 1)
	require.NoError(t, f.conn.Create(&models.CartItem{
		ID:             uuid.New(),
		CartID:         cart.ID,
		ProductID:      kept.ID,
		StoreID:        kept.StoreID,
		Quantity:       2,
		UnitPriceMinor: kept.PriceMinor,
		IsSelected:     false,
	}).Error)
	f.setShipping(t, cart, storeA, 12_000)

	created, err := f.svc.CreateOrders(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, int64(40_000), created[0].SubtotalMinor)

	var remaining []models.CartItem
	require.NoError(t, f.conn.Find(&remaining, "cart_id = ?", cart.ID).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, kept.ID, remaining[0].ProductID)
}

func TestCreateOrdersLastUnitGoesToOneBuyer(t *testing.T) {
	f := newFixture(t)

	product := f.seedProduct(t, storeA, 99_000, 1)

	firstUser := uuid.New()
	secondUser := uuid.New()
	for _, userID := range []uuid.UUID{firstUser, secondUser} {
		cart := f.seedCart(t, userID)
		f.addItem(t, cart, product, 1)
		f.setShipping(t, cart, storeA, 10_000)
	}

	_, err := f.svc.CreateOrders(context.Background(), firstUser)
	require.NoError(t, err)

	_, err = f.svc.CreateOrders(context.Background(), secondUser)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStockInsufficient))

	// The loser's cart is untouched.
	var cartRow models.Cart
	require.NoError(t, f.conn.First(&cartRow, "user_id = ?", secondUser).Error)
	var items int64
	require.NoError(t, f.conn.Model(&models.CartItem{}).Where("cart_id = ?", cartRow.ID).Count(&items).Error)
	assert.Equal(t, int64(1), items)

	var orderCount int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Equal(t, int64(1), orderCount)
}

func TestCreateOrdersRollsBackOnMissingShipping(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()

	product := f.seedProduct(t, storeA, 45_000, 5)
	cart := f.seedCart(t, userID)
	f.addItem(t, cart, product, 2)

	_, err := f.svc.CreateOrders(context.Background(), userID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeShippingNotSet))

	var p models.Product
	require.NoError(t, f.conn.First(&p, "id = ?", product.ID).Error)
	assert.Equal(t, 5, p.Stock)

	var orderCount int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)
}

func TestCreateOrdersFreeShippingVoucher(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()

	product := f.seedProduct(t, storeA, 80_000, 5)
	cart := f.seedCart(t, userID)
	f.addItem(t, cart, product, 1)
	f.setShipping(t, cart, storeA, 22_000)

	v := f.seedVoucher(t, &models.Voucher{
		Code:           "FREEONGKIR",
		Type:           enums.VoucherTypeFreeShipping,
		Scope:          enums.VoucherScopeAllProducts,
		Quota:          3,
		RemainingQuota: 3,
	})
	f.attachVoucher(t, cart, v.ID)

	created, err := f.svc.CreateOrders(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, created, 1)

	order := created[0]
	assert.Equal(t, int64(80_000), order.SubtotalMinor)
	assert.Equal(t, int64(22_000), order.ShippingMinor)
	assert.Equal(t, int64(22_000), order.DiscountMinor)
	assert.Equal(t, int64(80_000), order.TotalMinor)
}

func TestPreviewVoucherDoesNotAttach(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()

	product := f.seedProduct(t, storeA, 50_000, 10)
	cart := f.seedCart(t, userID)
	f.addItem(t, cart, product, 2)
	f.setShipping(t, cart, storeA, 12_000)

	f.seedVoucher(t, &models.Voucher{
		Code:           "COBA10",
		Type:           enums.VoucherTypePercentage,
		Scope:          enums.VoucherScopeAllProducts,
		Percent:        10,
		Quota:          3,
		RemainingQuota: 3,
	})

	preview, err := f.svc.PreviewVoucher(context.Background(), userID, "COBA10")
	require.NoError(t, err)
	assert.Equal(t, int64(10_000), preview.DiscountMinor)
	assert.Equal(t, int64(100_000), preview.EligibleSubtotalMinor)
	assert.Equal(t, int64(0), preview.ShippingDiscountMinor)

	var row models.Cart
	require.NoError(t, f.conn.First(&row, "id = ?", cart.ID).Error)
	assert.Nil(t, row.AppliedVoucherID)

	var v models.Voucher
	require.NoError(t, f.conn.First(&v, "code = ?", "COBA10").Error)
	assert.Equal(t, 3, v.RemainingQuota)
}

func TestPreviewVoucherIneligibleCode(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()

	product := f.seedProduct(t, storeA, 10_000, 5)
	cart := f.seedCart(t, userID)
	f.addItem(t, cart, product, 1)

	f.seedVoucher(t, &models.Voucher{
		Code:                "MIN500K",
		Type:                enums.VoucherTypePercentage,
		Scope:               enums.VoucherScopeAllProducts,
		Percent:             10,
		MinTransactionMinor: 500_000,
		Quota:               1,
		RemainingQuota:      1,
	})

	_, err := f.svc.PreviewVoucher(context.Background(), userID, "MIN500K")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeVoucherIneligible))
}
