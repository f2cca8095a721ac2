package reconciliation

import (
	"context"
	"fmt"

	"github.com/avelardo/cryptomart-backend/internal/affiliate"
	"github.com/avelardo/cryptomart-backend/internal/ledger"
	"github.com/avelardo/cryptomart-backend/pkg/db/models"
	"github.com/avelardo/cryptomart-backend/pkg/enums"
	"github.com/avelardo/cryptomart-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

// Summary reports what one reconciliation pass did.
type Summary struct {
	Created             int `json:"created"`
	Skipped             int `json:"skipped"`
	CommissionsRestored int `json:"commissions_restored"`
}

// DepositSource is the slice of deposit storage the reconciler reads.
type DepositSource interface {
	ListConfirmedByUserID(ctx context.Context, userID uuid.UUID) ([]models.Deposit, error)
}

// PurchaseSource is the slice of purchase storage the reconciler reads.
type PurchaseSource interface {
	ListCompletedByUserID(ctx context.Context, userID uuid.UUID) ([]models.Purchase, error)
}

// WithdrawalSource is the slice of withdrawal storage the reconciler reads.
type WithdrawalSource interface {
	ListByUserIDAndStatus(ctx context.Context, userID uuid.UUID, status enums.WithdrawalStatus) ([]models.WithdrawalRequest, error)
}

// CommissionCascade replays the referral payout for a completed purchase.
// The cascade is idempotent, so replaying it fills only the levels a partial
// failure left unpaid.
type CommissionCascade interface {
	CascadeForPurchase(ctx context.Context, purchase models.Purchase) (affiliate.CascadeSummary, error)
}

// Service rebuilds missing ledger entries from the settled source records and
// replays the commission cascade for every completed purchase. Descriptions
// are deterministic per source row and the cascade is keyed per level, so
// running it any number of times converges on the same ledger.
type Service interface {
	Reconcile(ctx context.Context, userID uuid.UUID) (Summary, error)
}

type service struct {
	ledger      ledger.Service
	deposits    DepositSource
	purchases   PurchaseSource
	withdrawals WithdrawalSource
	cascade     CommissionCascade
	logg        *logger.Logger
}

// NewService wires the reconciliation service.
func NewService(
	ledgerSvc ledger.Service,
	deposits DepositSource,
	purchases PurchaseSource,
	withdrawals WithdrawalSource,
	cascade CommissionCascade,
	logg *logger.Logger,
) (Service, error) {
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if deposits == nil {
		return nil, fmt.Errorf("deposit source required")
	}
	if purchases == nil {
		return nil, fmt.Errorf("purchase source required")
	}
	if withdrawals == nil {
		return nil, fmt.Errorf("withdrawal source required")
	}
	if cascade == nil {
		return nil, fmt.Errorf("commission cascade required")
	}
	return &service{
		ledger:      ledgerSvc,
		deposits:    deposits,
		purchases:   purchases,
		withdrawals: withdrawals,
		cascade:     cascade,
		logg:        logg,
	}, nil
}

type expectedEntry struct {
	amount      decimal.Decimal
	kind        enums.LedgerTransactionKind
	description string
}

func (s *service) Reconcile(ctx context.Context, userID uuid.UUID) (Summary, error) {
	if userID == uuid.Nil {
		return Summary{}, fmt.Errorf("user id is required")
	}

	entries, completed, err := s.expectedEntries(ctx, userID)
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	var reconcileErr error
	for _, entry := range entries {
		exists, err := s.ledger.HasWithDescription(ctx, userID, entry.description)
		if err != nil {
			reconcileErr = multierr.Append(reconcileErr, fmt.Errorf("checking %q: %w", entry.description, err))
			continue
		}
		if exists {
			summary.Skipped++
			continue
		}
		if _, err := s.ledger.Append(ctx, ledger.AppendTransactionInput{
			UserID:      userID,
			Amount:      entry.amount,
			Kind:        entry.kind,
			Description: entry.description,
		}); err != nil {
			reconcileErr = multierr.Append(reconcileErr, fmt.Errorf("restoring %q: %w", entry.description, err))
			continue
		}
		summary.Created++
		if s.logg != nil {
			s.logg.Warn(s.logg.WithUserID(ctx, userID.String()), "restored a missing ledger entry")
		}
	}

	for i := range completed {
		cascadeSummary, err := s.cascade.CascadeForPurchase(ctx, completed[i])
		if err != nil {
			reconcileErr = multierr.Append(reconcileErr, fmt.Errorf("cascade for purchase %s: %w", completed[i].ID, err))
			continue
		}
		if cascadeSummary.Created > 0 {
			summary.CommissionsRestored += cascadeSummary.Created
			if s.logg != nil {
				s.logg.Warn(s.logg.WithPurchaseID(ctx, completed[i].ID.String()), "restored missing referral commissions")
			}
		}
	}
	return summary, reconcileErr
}

// expectedEntries derives, from the settled source records, every ledger
// entry the user must have, along with the completed purchases whose cascade
// gets replayed. The descriptions mirror the ones the write paths produce,
// which is what makes the existence check line up.
func (s *service) expectedEntries(ctx context.Context, userID uuid.UUID) ([]expectedEntry, []models.Purchase, error) {
	deposits, err := s.deposits.ListConfirmedByUserID(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("listing confirmed deposits: %w", err)
	}
	purchases, err := s.purchases.ListCompletedByUserID(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("listing completed purchases: %w", err)
	}
	withdrawals, err := s.withdrawals.ListByUserIDAndStatus(ctx, userID, enums.WithdrawalStatusCompleted)
	if err != nil {
		return nil, nil, fmt.Errorf("listing completed withdrawals: %w", err)
	}

	entries := make([]expectedEntry, 0, len(deposits)+len(purchases)+len(withdrawals))
	for _, deposit := range deposits {
		entries = append(entries, expectedEntry{
			amount:      deposit.Amount,
			kind:        enums.LedgerTransactionKindDeposit,
			description: fmt.Sprintf("deposit %s", deposit.ID),
		})
	}
	for _, purchase := range purchases {
		entries = append(entries, expectedEntry{
			amount:      purchase.Amount,
			kind:        enums.LedgerTransactionKindPurchase,
			description: fmt.Sprintf("purchase %s of product %s", purchase.ID, purchase.ProductID),
		})
	}
	for _, withdrawal := range withdrawals {
		entries = append(entries, expectedEntry{
			amount:      withdrawal.Amount,
			kind:        enums.LedgerTransactionKindWithdrawal,
			description: fmt.Sprintf("withdrawal %s", withdrawal.ID),
		})
	}
	return entries, purchases, nil
}
