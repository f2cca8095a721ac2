package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avelardo/cryptomart-backend/pkg/enums"
)

// Deposit tracks an inbound funding event reported by the payment gateway.
// Only confirmed deposits contribute a ledger credit.
type Deposit struct {
	ID          uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Amount      decimal.Decimal     `gorm:"column:amount;type:decimal(20,8);not null"`
	Status      enums.DepositStatus `gorm:"column:status;type:deposit_status_enum;not null"`
	TxReference *string             `gorm:"column:tx_reference;type:text"`
	ConfirmedAt *time.Time          `gorm:"column:confirmed_at"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
}
