package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart is the single per-user cart, created lazily on first add.
type Cart struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID             uuid.UUID           `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	AppliedVoucherID   *uuid.UUID          `gorm:"column:applied_voucher_id;type:uuid"`
	AppliedVoucher     *Voucher            `gorm:"foreignKey:AppliedVoucherID"`
	Items              []CartItem          `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	ShippingSelections []ShippingSelection `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
