package voucher

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nandazuhri/lokapasar-backend/pkg/db/models"
	pkgerrors "github.com/nandazuhri/lokapasar-backend/pkg/errors"
)

// Repository persists vouchers and their quota ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByCode(ctx context.Context, code string) (*models.Voucher, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Voucher, error)
	// ConsumeQuota decrements remaining_quota by n, failing when fewer than
	// n uses remain. The conditional update serializes concurrent
	// applications of the same voucher.
	ConsumeQuota(ctx context.Context, voucherID uuid.UUID, n int) error
	CreateApplication(ctx context.Context, app *models.VoucherApplication) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a voucher repository on the given connection.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Voucher, error) {
	var voucher models.Voucher
	err := r.db.WithContext(ctx).
		Preload("Products").
		First(&voucher, "code = ?", code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "voucher not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load voucher")
	}
	return &voucher, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Voucher, error) {
	var voucher models.Voucher
	err := r.db.WithContext(ctx).
		Preload("Products").
		First(&voucher, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "voucher not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load voucher")
	}
	return &voucher, nil
}

func (r *repository) ConsumeQuota(ctx context.Context, voucherID uuid.UUID, n int) error {
	if n <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quota consumption must be positive")
	}
	res := r.db.WithContext(ctx).Exec(`
		UPDATE vouchers
		SET remaining_quota = remaining_quota - ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND remaining_quota >= ? AND deleted_at IS NULL
	`, n, voucherID, n)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "consume voucher quota")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeVoucherIneligible, "voucher quota exhausted").
			WithDetails(map[string]any{"reason": ReasonQuota})
	}
	return nil
}

func (r *repository) CreateApplication(ctx context.Context, app *models.VoucherApplication) error {
	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(app).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record voucher application")
	}
	return nil
}
