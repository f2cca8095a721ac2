package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avelardo/cryptomart-backend/pkg/enums"
)

// LedgerTransaction records an immutable balance-affecting event. Amount is
// always a non-negative magnitude; the kind decides the sign of its
// contribution when the ledger is folded into a balance.
type LedgerTransaction struct {
	ID          uuid.UUID                   `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID                   `gorm:"column:user_id;type:uuid;not null;index"`
	Amount      decimal.Decimal             `gorm:"column:amount;type:decimal(20,8);not null"`
	Kind        enums.LedgerTransactionKind `gorm:"column:kind;type:ledger_transaction_kind_enum;not null"`
	Description string                      `gorm:"column:description;type:text;not null"`
	CreatedAt   time.Time                   `gorm:"column:created_at;autoCreateTime"`
}
