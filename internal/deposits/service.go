package deposits

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

// ReportInput records an inbound transfer the payment gateway observed.
type ReportInput struct {
	UserID      uuid.UUID       `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	TxReference string          `json:"tx_reference"`
}

// Service tracks deposits from first sighting to their ledger credit.
type Service interface {
	Report(ctx context.Context, input ReportInput) (*models.Deposit, error)
	Confirm(ctx context.Context, id uuid.UUID) (*models.Deposit, error)
	Fail(ctx context.Context, id uuid.UUID) (*models.Deposit, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.Deposit, error)
}

type service struct {
	repo   Repository
	ledger ledger.Service
	runner txRunner
	logg   *logger.Logger
	now    func() time.Time
}

// NewService wires the deposits service.
func NewService(repo Repository, ledgerSvc ledger.Service, runner txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("deposits repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if runner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:   repo,
		ledger: ledgerSvc,
		runner: runner,
		logg:   logg,
		now:    time.Now,
	}, nil
}

func (s *service) Report(ctx context.Context, input ReportInput) (*models.Deposit, error) {
	if input.UserID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "user id is required")
	}
	if !input.Amount.IsPositive() {
		return nil, apperrors.New(apperrors.CodeValidation, "deposit amount must be positive")
	}

	deposit := &models.Deposit{
		UserID: input.UserID,
		Amount: input.Amount,
		Status: enums.DepositStatusPending,
	}
	if input.TxReference != "" {
		deposit.TxReference = &input.TxReference
	}
	if err := s.repo.Create(ctx, deposit); err != nil {
		return nil, err
	}
	return deposit, nil
}

// Confirm settles a pending deposit: the status flips to confirmed and the
// ledger credit lands in the same transaction. The conditional transition
// means a deposit can only ever be credited once, no matter how often the
// gateway re-sends the confirmation.
func (s *service) Confirm(ctx context.Context, id uuid.UUID) (*models.Deposit, error) {
	deposit, err := s.pendingByID(ctx, id)
	if err != nil {
		return nil, err
	}

	confirmedAt := s.now()
	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		changed, err := s.repo.WithTx(tx).Transition(ctx, deposit.ID,
			enums.DepositStatusPending, enums.DepositStatusConfirmed, &confirmedAt)
		if err != nil {
			return err
		}
		if !changed {
			return apperrors.New(apperrors.CodeStateConflict, "deposit was already settled")
		}
		_, err = s.ledger.AppendWithTx(ctx, tx, ledger.AppendTransactionInput{
			UserID:      deposit.UserID,
			Amount:      deposit.Amount,
			Kind:        enums.LedgerTransactionKindDeposit,
			Description: fmt.Sprintf("deposit %s", deposit.ID),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	deposit.Status = enums.DepositStatusConfirmed
	deposit.ConfirmedAt = &confirmedAt
	if s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, deposit.UserID.String()), "deposit confirmed")
	}
	return deposit, nil
}

// Fail closes a pending deposit without crediting anything.
func (s *service) Fail(ctx context.Context, id uuid.UUID) (*models.Deposit, error) {
	deposit, err := s.pendingByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changed, err := s.repo.Transition(ctx, deposit.ID,
		enums.DepositStatusPending, enums.DepositStatusFailed, nil)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, apperrors.New(apperrors.CodeStateConflict, "deposit was already settled")
	}

	deposit.Status = enums.DepositStatusFailed
	return deposit, nil
}

func (s *service) ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.Deposit, error) {
	if userID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "user id is required")
	}
	return s.repo.ListByUserID(ctx, userID)
}

func (s *service) pendingByID(ctx context.Context, id uuid.UUID) (*models.Deposit, error) {
	if id == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "deposit id is required")
	}
	deposit, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeNotFound, err, "deposit not found")
	}
	if deposit.Status != enums.DepositStatusPending {
		return nil, apperrors.New(apperrors.CodeStateConflict, "deposit was already settled")
	}
	return deposit, nil
}
