package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nandazuhri/lokapasar-backend/pkg/enums"
)

// Order is one per-store order produced from a checkout.
// TotalMinor = SubtotalMinor + ShippingFeeMinor - DiscountMinor holds for the
// lifetime of the row.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code            string              `gorm:"column:code;not null;uniqueIndex"`
	UserID          uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	StoreID         uuid.UUID           `gorm:"column:store_id;type:uuid;not null;index"`
	Status          enums.OrderStatus   `gorm:"column:status;not null;default:'pending_unpaid'"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;not null;default:'pending'"`
	SubtotalMinor   int64               `gorm:"column:subtotal_minor;not null"`
	ShippingMinor   int64               `gorm:"column:shipping_minor;not null"`
	DiscountMinor   int64               `gorm:"column:discount_minor;not null;default:0"`
	TotalMinor      int64               `gorm:"column:total_minor;not null"`
	CourierCode     string              `gorm:"column:courier_code;not null"`
	ServiceCode     string              `gorm:"column:service_code;not null"`
	EtdMinDays      int                 `gorm:"column:etd_min_days;not null;default:0"`
	EtdMaxDays      int                 `gorm:"column:etd_max_days;not null;default:0"`
	PaidAt          *time.Time          `gorm:"column:paid_at"`
	ShippedAt       *time.Time          `gorm:"column:shipped_at"`
	DeliveredAt     *time.Time          `gorm:"column:delivered_at"`
	Items           []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusLogs      []OrderStatusLog    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payment         *Payment            `gorm:"foreignKey:OrderID"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is an immutable snapshot of a cart item at order-creation time.
type OrderItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Name           string    `gorm:"column:name;not null"`
	UnitPriceMinor int64     `gorm:"column:unit_price_minor;not null"`
	Quantity       int       `gorm:"column:quantity;not null"`
	SubtotalMinor  int64     `gorm:"column:subtotal_minor;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

// OrderStatusLog is the append-only audit trail of status transitions.
type OrderStatusLog struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	OldStatus *enums.OrderStatus `gorm:"column:old_status"`
	NewStatus enums.OrderStatus  `gorm:"column:new_status;not null"`
	Actor     string             `gorm:"column:actor;not null"`
	Note      *string            `gorm:"column:note"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
}
