package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem references a product with a unit-price snapshot taken at add time.
// Rows are deleted when an order is created from them.
type CartItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID         uuid.UUID `gorm:"column:cart_id;type:uuid;not null;index"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	StoreID        uuid.UUID `gorm:"column:store_id;type:uuid;not null;index"`
	Product        *Product  `gorm:"foreignKey:ProductID"`
	Quantity       int       `gorm:"column:quantity;not null"`
	UnitPriceMinor int64     `gorm:"column:unit_price_minor;not null"`
	IsSelected     bool      `gorm:"column:is_selected;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
