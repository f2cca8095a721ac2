package ledger

import (
	"context"
	"fmt"

	"github.com/avelardo/cryptomart-backend/pkg/db/models"
	"github.com/avelardo/cryptomart-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service defines operations that record and fold ledger transactions.
type Service interface {
	Append(ctx context.Context, input AppendTransactionInput) (*models.LedgerTransaction, error)
	AppendWithTx(ctx context.Context, tx *gorm.DB, input AppendTransactionInput) (*models.LedgerTransaction, error)
	Project(ctx context.Context, userID uuid.UUID) (Balance, error)
	HasWithDescription(ctx context.Context, userID uuid.UUID, description string) (bool, error)
	ListPage(ctx context.Context, userID uuid.UUID, limit int, before *models.LedgerTransaction) ([]models.LedgerTransaction, error)
}

// Balance is the fold of a user's ledger entries.
type Balance struct {
	Available decimal.Decimal `json:"available"`
	Deposits  decimal.Decimal `json:"deposits"`
	Purchases decimal.Decimal `json:"purchases"`
}

// AppendTransactionInput captures the immutable data a ledger transaction requires.
type AppendTransactionInput struct {
	UserID      uuid.UUID                   `json:"user_id"`
	Amount      decimal.Decimal             `json:"amount"`
	Kind        enums.LedgerTransactionKind `json:"kind"`
	Description string                      `json:"description"`
}

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Append(ctx context.Context, input AppendTransactionInput) (*models.LedgerTransaction, error) {
	return s.AppendWithTx(ctx, nil, input)
}

func (s *service) AppendWithTx(ctx context.Context, tx *gorm.DB, input AppendTransactionInput) (*models.LedgerTransaction, error) {
	if input.UserID == uuid.Nil {
		return nil, fmt.Errorf("user id is required")
	}
	if !input.Kind.IsValid() {
		return nil, fmt.Errorf("invalid ledger transaction kind %q", input.Kind)
	}
	if input.Amount.IsNegative() {
		return nil, fmt.Errorf("ledger amount must be a non-negative magnitude")
	}
	if input.Description == "" {
		return nil, fmt.Errorf("description is required")
	}

	txn := &models.LedgerTransaction{
		UserID:      input.UserID,
		Amount:      input.Amount,
		Kind:        input.Kind,
		Description: input.Description,
	}

	if err := s.repo.WithTx(tx).Create(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// Project folds every ledger transaction for the user into a balance.
// It is a pure function of the entry set; a read failure propagates to the
// caller rather than yielding a partial result.
func (s *service) Project(ctx context.Context, userID uuid.UUID) (Balance, error) {
	if userID == uuid.Nil {
		return Balance{}, fmt.Errorf("user id is required")
	}

	txns, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return Balance{}, err
	}

	balance := Balance{
		Available: decimal.Zero,
		Deposits:  decimal.Zero,
		Purchases: decimal.Zero,
	}
	for _, txn := range txns {
		switch txn.Kind.Sign() {
		case 1:
			balance.Available = balance.Available.Add(txn.Amount)
		case -1:
			balance.Available = balance.Available.Sub(txn.Amount)
		}
		switch txn.Kind {
		case enums.LedgerTransactionKindDeposit, enums.LedgerTransactionKindCredit:
			balance.Deposits = balance.Deposits.Add(txn.Amount)
		case enums.LedgerTransactionKindPurchase:
			balance.Purchases = balance.Purchases.Add(txn.Amount)
		}
	}
	return balance, nil
}

func (s *service) HasWithDescription(ctx context.Context, userID uuid.UUID, description string) (bool, error) {
	if userID == uuid.Nil {
		return false, fmt.Errorf("user id is required")
	}
	if description == "" {
		return false, fmt.Errorf("description is required")
	}
	return s.repo.ExistsByUserAndDescription(ctx, userID, description)
}

func (s *service) ListPage(ctx context.Context, userID uuid.UUID, limit int, before *models.LedgerTransaction) ([]models.LedgerTransaction, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id is required")
	}
	return s.repo.ListPageByUserID(ctx, userID, limit, before)
}
