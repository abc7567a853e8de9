package models

import (
	"time"

	"github.com/google/uuid"
)

// ShippingSelection is the chosen courier service for one store group of a cart.
// One row per (cart, store).
type ShippingSelection struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID      uuid.UUID `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:idx_shipping_cart_store"`
	StoreID     uuid.UUID `gorm:"column:store_id;type:uuid;not null;uniqueIndex:idx_shipping_cart_store"`
	CourierCode string    `gorm:"column:courier_code;not null"`
	ServiceCode string    `gorm:"column:service_code;not null"`
	FeeMinor    int64     `gorm:"column:fee_minor;not null"`
	EtdMinDays  int       `gorm:"column:etd_min_days;not null;default:0"`
	EtdMaxDays  int       `gorm:"column:etd_max_days;not null;default:0"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
