package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nandazuhri/lokapasar-backend/pkg/enums"
)

// Voucher is issued by a store or by the platform (nil StoreID).
type Voucher struct {
	ID                  uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code                string             `gorm:"column:code;not null;uniqueIndex"`
	StoreID             *uuid.UUID         `gorm:"column:store_id;type:uuid;index"`
	Type                enums.VoucherType  `gorm:"column:type;not null"`
	Scope               enums.VoucherScope `gorm:"column:scope;not null;default:'all_products'"`
	Percent             int                `gorm:"column:percent;not null;default:0"`
	MaxDiscountMinor    int64              `gorm:"column:max_discount_minor;not null;default:0"`
	FixedAmountMinor    int64              `gorm:"column:fixed_amount_minor;not null;default:0"`
	MinTransactionMinor int64              `gorm:"column:min_transaction_minor;not null;default:0"`
	Quota               int                `gorm:"column:quota;not null"`
	RemainingQuota      int                `gorm:"column:remaining_quota;not null"`
	StartsAt            time.Time          `gorm:"column:starts_at;not null"`
	EndsAt              time.Time          `gorm:"column:ends_at;not null"`
	Products            []VoucherProduct   `gorm:"foreignKey:VoucherID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time          `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt           gorm.DeletedAt     `gorm:"column:deleted_at;index"`
}

// VoucherProduct pins a specific-products voucher to one eligible product.
type VoucherProduct struct {
	VoucherID uuid.UUID `gorm:"column:voucher_id;type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
}

// VoucherApplication records a quota consumption against one created order.
type VoucherApplication struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VoucherID     uuid.UUID `gorm:"column:voucher_id;type:uuid;not null;index"`
	OrderID       uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	DiscountMinor int64     `gorm:"column:discount_minor;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}
