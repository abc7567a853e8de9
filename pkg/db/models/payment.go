package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nandazuhri/lokapasar-backend/pkg/enums"
)

// Payment is the single active payment attempt for an order.
// LastNotificationID keeps the most recently applied gateway transaction id
// for webhook idempotency.
type Payment struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID            uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	SnapToken          string              `gorm:"column:snap_token;not null"`
	RedirectURL        string              `gorm:"column:redirect_url;not null"`
	AmountMinor        int64               `gorm:"column:amount_minor;not null"`
	Status             enums.PaymentStatus `gorm:"column:status;not null;default:'pending'"`
	RawGatewayStatus   string              `gorm:"column:raw_gateway_status;not null;default:''"`
	LastNotificationID *string             `gorm:"column:last_notification_id"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
