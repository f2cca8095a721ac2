package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Commission is an affiliate payout created when a referred user's purchase
// cascades up the referral chain. The unique index on
// (purchase_id, level, beneficiary_user_id) enforces exactly-once per level.
type Commission struct {
	ID                uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	BeneficiaryUserID uuid.UUID       `gorm:"column:beneficiary_user_id;type:uuid;not null;index;uniqueIndex:idx_commissions_purchase_level_beneficiary"`
	PurchaseID        uuid.UUID       `gorm:"column:purchase_id;type:uuid;not null;uniqueIndex:idx_commissions_purchase_level_beneficiary"`
	Amount            decimal.Decimal `gorm:"column:amount;type:decimal(20,8);not null"`
	Level             int             `gorm:"column:level;not null;uniqueIndex:idx_commissions_purchase_level_beneficiary"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
}
