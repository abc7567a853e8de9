package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nandazuhri/lokapasar-backend/pkg/db/models"
	"github.com/nandazuhri/lokapasar-backend/pkg/enums"
	pkgerrors "github.com/nandazuhri/lokapasar-backend/pkg/errors"
)

// Repository persists orders, their items, and the status audit trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByCode(ctx context.Context, code string) (*models.Order, error)
	FindForUser(ctx context.Context, userID uuid.UUID, code string) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, status *enums.OrderStatus) ([]models.Order, error)
	// UpdateStatus moves an order from one exact status to another. The
	// WHERE guard on the old status makes concurrent transitions settle to
	// exactly one winner without row locks.
	UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, stamps map[string]any) error
	UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus) error
	CreateStatusLog(ctx context.Context, log *models.OrderStatusLog) error
	ListExpiredUnpaid(ctx context.Context, before time.Time) ([]models.Order, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an order repository on the given connection.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	for i := range order.Items {
		if order.Items[i].ID == uuid.Nil {
			order.Items[i].ID = uuid.New()
		}
	}
	for i := range order.StatusLogs {
		if order.StatusLogs[i].ID == uuid.Nil {
			order.StatusLogs[i].ID = uuid.New()
		}
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Order, error) {
	return r.findOne(ctx, "code = ?", code)
}

func (r *repository) FindForUser(ctx context.Context, userID uuid.UUID, code string) (*models.Order, error) {
	return r.findOne(ctx, "code = ? AND user_id = ?", code, userID)
}

func (r *repository) findOne(ctx context.Context, query string, args ...any) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("StatusLogs", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Payment").
		First(&order, append([]any{query}, args...)...).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return &order, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, status *enums.OrderStatus) ([]models.Order, error) {
	q := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payment").
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var rows []models.Order
	if err := q.Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return rows, nil
}

func (r *repository) UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, stamps map[string]any) error {
	updates := map[string]any{
		"status":     to,
		"updated_at": time.Now(),
	}
	for column, value := range stamps {
		updates[column] = value
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(updates)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update order status")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "order status changed concurrently").
			WithDetails(map[string]any{
				"order_id": orderID.String(),
				"expected": from.String(),
			})
	}
	return nil
}

func (r *repository) UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus) error {
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"payment_status": status,
			"updated_at":     time.Now(),
		}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order payment status")
	}
	return nil
}

func (r *repository) CreateStatusLog(ctx context.Context, log *models.OrderStatusLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status log")
	}
	return nil
}

func (r *repository) ListExpiredUnpaid(ctx context.Context, before time.Time) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("status = ? AND created_at < ?", enums.OrderStatusPendingUnpaid, before).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired orders")
	}
	return rows, nil
}
