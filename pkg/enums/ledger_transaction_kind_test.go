package enums

import "testing"

func TestLedgerTransactionKindSign(t *testing.T) {
	positive := []LedgerTransactionKind{LedgerTransactionKindDeposit, LedgerTransactionKindCredit}
	negative := []LedgerTransactionKind{LedgerTransactionKindPurchase, LedgerTransactionKindWithdrawal, LedgerTransactionKindDebit}

	for _, kind := range positive {
		if kind.Sign() != 1 {
			t.Fatalf("kind %s expected sign +1, got %d", kind, kind.Sign())
		}
	}
	for _, kind := range negative {
		if kind.Sign() != -1 {
			t.Fatalf("kind %s expected sign -1, got %d", kind, kind.Sign())
		}
	}
	if LedgerTransactionKind("bogus").Sign() != 0 {
		t.Fatalf("unknown kind should have zero sign")
	}
}

func TestParseLedgerTransactionKind(t *testing.T) {
	kind, err := ParseLedgerTransactionKind("withdrawal")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if kind != LedgerTransactionKindWithdrawal {
		t.Fatalf("unexpected kind %s", kind)
	}
	if _, err := ParseLedgerTransactionKind("transfer"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}
