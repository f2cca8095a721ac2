package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Earning is one day's accrual derived from a purchase. The unique index on
// (purchase_id, accrual_date) is what makes accrual idempotent: inserts for
// a day that already accrued are rejected by the database, not by an
// application-level existence check.
type Earning struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index"`
	PurchaseID  uuid.UUID       `gorm:"column:purchase_id;type:uuid;not null;uniqueIndex:idx_earnings_purchase_day"`
	Amount      decimal.Decimal `gorm:"column:amount;type:decimal(20,8);not null"`
	DayNumber   int             `gorm:"column:day_number;not null"`
	AccrualDate time.Time       `gorm:"column:accrual_date;type:date;not null;uniqueIndex:idx_earnings_purchase_day"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}
