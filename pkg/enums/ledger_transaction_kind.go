package enums

import "fmt"

// LedgerTransactionKind maps to the ledger_transaction_kind_enum enum in Postgres.
type LedgerTransactionKind string

const (
	LedgerTransactionKindDeposit    LedgerTransactionKind = "deposit"
	LedgerTransactionKindCredit     LedgerTransactionKind = "credit"
	LedgerTransactionKindPurchase   LedgerTransactionKind = "purchase"
	LedgerTransactionKindWithdrawal LedgerTransactionKind = "withdrawal"
	LedgerTransactionKindDebit      LedgerTransactionKind = "debit"
)

var validLedgerTransactionKinds = []LedgerTransactionKind{
	LedgerTransactionKindDeposit,
	LedgerTransactionKindCredit,
	LedgerTransactionKindPurchase,
	LedgerTransactionKindWithdrawal,
	LedgerTransactionKindDebit,
}

// IsValid reports whether the value matches the canonical transaction kind enum.
func (k LedgerTransactionKind) IsValid() bool {
	for _, candidate := range validLedgerTransactionKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// Sign returns the signed contribution direction of the kind: +1 for kinds
// that increase the balance, -1 for kinds that decrease it.
func (k LedgerTransactionKind) Sign() int {
	switch k {
	case LedgerTransactionKindDeposit, LedgerTransactionKindCredit:
		return 1
	case LedgerTransactionKindPurchase, LedgerTransactionKindWithdrawal, LedgerTransactionKindDebit:
		return -1
	}
	return 0
}

// ParseLedgerTransactionKind converts raw input into LedgerTransactionKind.
func ParseLedgerTransactionKind(value string) (LedgerTransactionKind, error) {
	for _, candidate := range validLedgerTransactionKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger transaction kind %q", value)
}
