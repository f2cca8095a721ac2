package purchases

import (
	"context"
	"fmt"
	"time"

	"github.com/avelardo/cryptomart-backend/internal/earnings"
	"github.com/avelardo/cryptomart-backend/internal/ledger"
	"github.com/avelardo/cryptomart-backend/pkg/db/models"
	"github.com/avelardo/cryptomart-backend/pkg/enums"
	apperrors "github.com/avelardo/cryptomart-backend/pkg/errors"
	"github.com/avelardo/cryptomart-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductSource is the slice of product storage checkout needs.
type ProductSource interface {
	FindActiveByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ValidateResult reports what a user-triggered validation did.
type ValidateResult struct {
	Outcome     earnings.Outcome `json:"outcome"`
	ValidatedAt time.Time        `json:"validated_at"`
}

// Service covers checkout, purchase reads, and user-triggered validation.
type Service interface {
	Checkout(ctx context.Context, userID, productID uuid.UUID) (*models.Purchase, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.Purchase, error)
	Validate(ctx context.Context, userID, purchaseID uuid.UUID, asOf time.Time) (ValidateResult, error)
}

type service struct {
	repo     Repository
	products ProductSource
	ledger   ledger.Service
	accrual  earnings.Service
	runner   txRunner
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the purchases service.
func NewService(
	repo Repository,
	products ProductSource,
	ledgerSvc ledger.Service,
	accrual earnings.Service,
	runner txRunner,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("purchases repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product source required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if accrual == nil {
		return nil, fmt.Errorf("accrual service required")
	}
	if runner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:     repo,
		products: products,
		ledger:   ledgerSvc,
		accrual:  accrual,
		runner:   runner,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// Checkout buys the product from the user's available balance. The purchase
// row and its ledger debit land in one transaction so a crash can never leave
// a purchase without the matching balance movement.
func (s *service) Checkout(ctx context.Context, userID, productID uuid.UUID) (*models.Purchase, error) {
	if userID == uuid.Nil || productID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "user id and product id are required")
	}

	product, err := s.products.FindActiveByID(ctx, productID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeNotFound, err, "product not found")
	}

	balance, err := s.ledger.Project(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance.Available.LessThan(product.Price) {
		return nil, apperrors.New(apperrors.CodeInsufficientBalance, "available balance does not cover the product price")
	}

	purchase := &models.Purchase{
		UserID:    userID,
		ProductID: product.ID,
		Amount:    product.Price,
		Status:    enums.PurchaseStatusCompleted,
	}

	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, purchase); err != nil {
			return err
		}
		_, err := s.ledger.AppendWithTx(ctx, tx, ledger.AppendTransactionInput{
			UserID:      userID,
			Amount:      product.Price,
			Kind:        enums.LedgerTransactionKindPurchase,
			Description: fmt.Sprintf("purchase %s of product %s", purchase.ID, product.ID),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	// Day one accrues right away; later days belong to the sweep. The
	// purchase is already durable at this point, so an accrual failure is
	// logged rather than failing the checkout; the admin backfill repairs
	// a missed first day.
	if _, accrErr := s.accrual.AccrueForPurchase(ctx, *purchase, s.now()); accrErr != nil {
		if s.logg != nil {
			s.logg.Error(s.logg.WithPurchaseID(ctx, purchase.ID.String()), "first-day accrual failed", accrErr)
		}
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithPurchaseID(ctx, purchase.ID.String()), "purchase completed")
	}
	return purchase, nil
}

func (s *service) FindByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	if id == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "purchase id is required")
	}
	return s.repo.FindByID(ctx, id)
}

func (s *service) ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.Purchase, error) {
	if userID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "user id is required")
	}
	return s.repo.ListByUserID(ctx, userID)
}

// Validate runs today's accrual for one of the caller's purchases and, when
// it actually accrued, advances last_validated_at. The column only ever moves
// forward regardless of how the validation was triggered.
func (s *service) Validate(ctx context.Context, userID, purchaseID uuid.UUID, asOf time.Time) (ValidateResult, error) {
	if userID == uuid.Nil || purchaseID == uuid.Nil {
		return ValidateResult{}, apperrors.New(apperrors.CodeValidation, "user id and purchase id are required")
	}
	if asOf.IsZero() {
		asOf = s.now()
	}

	purchase, err := s.repo.FindByID(ctx, purchaseID)
	if err != nil {
		return ValidateResult{}, apperrors.Wrap(apperrors.CodeNotFound, err, "purchase not found")
	}
	if purchase.UserID != userID {
		return ValidateResult{}, apperrors.New(apperrors.CodeForbidden, "purchase belongs to another user")
	}
	if purchase.Status != enums.PurchaseStatusCompleted {
		return ValidateResult{}, apperrors.New(apperrors.CodePolicyViolation, "only completed purchases accrue earnings")
	}

	outcome, err := s.accrual.AccrueForPurchase(ctx, *purchase, asOf)
	if err != nil {
		return ValidateResult{}, err
	}

	if outcome == earnings.OutcomeAccrued {
		if err := s.repo.AdvanceLastValidatedAt(ctx, purchase.ID, asOf); err != nil {
			return ValidateResult{}, err
		}
	}
	return ValidateResult{Outcome: outcome, ValidatedAt: asOf}, nil
}
