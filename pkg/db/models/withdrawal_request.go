package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avelardo/cryptomart-backend/pkg/enums"
)

// WithdrawalRequest is created in pending status and transitions exactly once
// to completed or rejected. The ledger debit is appended at approval time.
type WithdrawalRequest struct {
	ID            uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	Amount        decimal.Decimal        `gorm:"column:amount;type:decimal(20,8);not null"`
	Fee           decimal.Decimal        `gorm:"column:fee;type:decimal(20,8);not null"`
	NetAmount     decimal.Decimal        `gorm:"column:net_amount;type:decimal(20,8);not null"`
	WalletAddress string                 `gorm:"column:wallet_address;type:text;not null"`
	Status        enums.WithdrawalStatus `gorm:"column:status;type:withdrawal_status_enum;not null"`
	DecidedAt     *time.Time             `gorm:"column:decided_at"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime"`
}
