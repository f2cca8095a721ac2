package withdrawals

import (
	"context"
	"fmt"
	"time"

	"github.com/avelardo/cryptomart-backend/internal/ledger"
	"github.com/avelardo/cryptomart-backend/pkg/db/models"
	"github.com/avelardo/cryptomart-backend/pkg/enums"
	apperrors "github.com/avelardo/cryptomart-backend/pkg/errors"
	"github.com/avelardo/cryptomart-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RequestInput is what a user submits to ask for a withdrawal.
type RequestInput struct {
	UserID        uuid.UUID       `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	WalletAddress string          `json:"wallet_address"`
}

// Service admits, approves and rejects withdrawal requests.
type Service interface {
	PolicyForToday(ctx context.Context) Policy
	Request(ctx context.Context, input RequestInput) (*models.WithdrawalRequest, error)
	Approve(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error)
	Reject(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.WithdrawalRequest, error)
}

type service struct {
	repo    Repository
	ledger  ledger.Service
	runner  txRunner
	logg    *logger.Logger
	feeRate decimal.Decimal
	now     func() time.Time
}

// NewService wires the withdrawal engine. feeRatePercent is the whole-number
// percentage charged on every withdrawal.
func NewService(
	repo Repository,
	ledgerSvc ledger.Service,
	runner txRunner,
	logg *logger.Logger,
	feeRatePercent int,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("withdrawals repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if runner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if feeRatePercent < 0 || feeRatePercent > 100 {
		return nil, fmt.Errorf("fee rate percent out of range: %d", feeRatePercent)
	}
	return &service{
		repo:    repo,
		ledger:  ledgerSvc,
		runner:  runner,
		logg:    logg,
		feeRate: decimal.NewFromInt(int64(feeRatePercent)).Div(decimal.NewFromInt(100)),
		now:     time.Now,
	}, nil
}

// Fee computes the fee portion of a withdrawal amount.
func (s *service) fee(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(s.feeRate).Truncate(8)
}

func (s *service) PolicyForToday(ctx context.Context) Policy {
	return PolicyFor(s.now())
}

// Request admits a withdrawal against today's policy and the user's current
// balance. Admission does not reserve funds: the pending request holds no
// ledger entry and sufficiency is checked again at approval time.
func (s *service) Request(ctx context.Context, input RequestInput) (*models.WithdrawalRequest, error) {
	if input.UserID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "user id is required")
	}
	if input.WalletAddress == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "wallet address is required")
	}
	if !input.Amount.IsPositive() {
		return nil, apperrors.New(apperrors.CodeValidation, "withdrawal amount must be positive")
	}

	policy := PolicyFor(s.now())
	if !policy.Allowed {
		return nil, apperrors.New(apperrors.CodePolicyViolation,
			fmt.Sprintf("withdrawals are not processed on %s", policy.Weekday))
	}
	if !policy.AdmitsAmount(input.Amount) {
		return nil, apperrors.New(apperrors.CodePolicyViolation,
			fmt.Sprintf("amount must be between %s and %s on %s", policy.Min, policy.Max, policy.Weekday))
	}

	balance, err := s.ledger.Project(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if balance.Available.LessThan(input.Amount) {
		return nil, apperrors.New(apperrors.CodeInsufficientBalance, "available balance does not cover the withdrawal")
	}

	fee := s.fee(input.Amount)
	request := &models.WithdrawalRequest{
		UserID:        input.UserID,
		Amount:        input.Amount,
		Fee:           fee,
		NetAmount:     input.Amount.Sub(fee),
		WalletAddress: input.WalletAddress,
		Status:        enums.WithdrawalStatusPending,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, input.UserID.String()), "withdrawal requested")
	}
	return request, nil
}

// Approve settles a pending request: the balance is re-projected, the full
// amount is debited from the ledger, and the request transitions to completed.
// The conditional transition makes double approval impossible.
func (s *service) Approve(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	request, err := s.pendingByID(ctx, id)
	if err != nil {
		return nil, err
	}

	balance, err := s.ledger.Project(ctx, request.UserID)
	if err != nil {
		return nil, err
	}
	if balance.Available.LessThan(request.Amount) {
		return nil, apperrors.New(apperrors.CodeInsufficientBalance, "balance no longer covers the withdrawal")
	}

	decidedAt := s.now()
	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		changed, err := s.repo.WithTx(tx).Transition(ctx, request.ID,
			enums.WithdrawalStatusPending, enums.WithdrawalStatusCompleted, decidedAt)
		if err != nil {
			return err
		}
		if !changed {
			return apperrors.New(apperrors.CodeStateConflict, "withdrawal request was already decided")
		}
		_, err = s.ledger.AppendWithTx(ctx, tx, ledger.AppendTransactionInput{
			UserID:      request.UserID,
			Amount:      request.Amount,
			Kind:        enums.LedgerTransactionKindWithdrawal,
			Description: fmt.Sprintf("withdrawal %s", request.ID),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	request.Status = enums.WithdrawalStatusCompleted
	request.DecidedAt = &decidedAt
	return request, nil
}

// Reject closes a pending request without touching the ledger.
func (s *service) Reject(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	request, err := s.pendingByID(ctx, id)
	if err != nil {
		return nil, err
	}

	decidedAt := s.now()
	changed, err := s.repo.Transition(ctx, request.ID,
		enums.WithdrawalStatusPending, enums.WithdrawalStatusRejected, decidedAt)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, apperrors.New(apperrors.CodeStateConflict, "withdrawal request was already decided")
	}

	request.Status = enums.WithdrawalStatusRejected
	request.DecidedAt = &decidedAt
	return request, nil
}

func (s *service) ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.WithdrawalRequest, error) {
	if userID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "user id is required")
	}
	return s.repo.ListByUserID(ctx, userID)
}

func (s *service) pendingByID(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	if id == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "withdrawal request id is required")
	}
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeNotFound, err, "withdrawal request not found")
	}
	if request.Status.IsTerminal() {
		return nil, apperrors.New(apperrors.CodeStateConflict, "withdrawal request was already decided")
	}
	return request, nil
}
