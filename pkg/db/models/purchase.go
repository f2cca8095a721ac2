package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avelardo/cryptomart-backend/pkg/enums"
)

// Purchase records a completed checkout. Amount is immutable;
// LastValidatedAt only ever advances forward.
type Purchase struct {
	ID              uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	ProductID       uuid.UUID            `gorm:"column:product_id;type:uuid;not null"`
	Amount          decimal.Decimal      `gorm:"column:amount;type:decimal(20,8);not null"`
	Status          enums.PurchaseStatus `gorm:"column:status;type:purchase_status_enum;not null"`
	LastValidatedAt *time.Time           `gorm:"column:last_validated_at"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
}
