package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is catalog data owned by an external collaborator; this core reads
// price/weight snapshots and owns nothing but the stock counter semantics.
type Product struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID     uuid.UUID      `gorm:"column:store_id;type:uuid;not null;index"`
	Name        string         `gorm:"column:name;not null"`
	SKU         string         `gorm:"column:sku;not null"`
	PriceMinor  int64          `gorm:"column:price_minor;not null"`
	WeightGrams int            `gorm:"column:weight_grams;not null;default:0"`
	Stock       int            `gorm:"column:stock;not null;default:0"`
	IsActive    bool           `gorm:"column:is_active;not null"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt   gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

// Store is seller profile data owned by an external collaborator.
type Store struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	City      string    `gorm:"column:city;not null;default:''"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
