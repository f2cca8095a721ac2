package affiliate

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/avelardo/cryptomart-backend/internal/ledger"
	"github.com/avelardo/cryptomart-backend/pkg/db/models"
	"github.com/avelardo/cryptomart-backend/pkg/enums"
	"github.com/avelardo/cryptomart-backend/pkg/logger"
	"github.com/avelardo/cryptomart-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// levelRates are the commission rates up the referral chain. The slice length
// bounds the cascade: no matter how deep the chain is, only this many
// ancestors are paid.
var levelRates = []decimal.Decimal{
	decimal.RequireFromString("0.01"),
	decimal.RequireFromString("0.005"),
	decimal.RequireFromString("0.0025"),
}

// CascadeSummary reports what one cascade run did per level.
type CascadeSummary struct {
	Created          int `json:"created"`
	AlreadyProcessed int `json:"already_processed"`
	ChainEnded       int `json:"chain_ended"`
	Failed           int `json:"failed"`
}

// ReferralStats is the read model behind the referral dashboard.
type ReferralStats struct {
	DirectReferrals int64           `json:"direct_referrals"`
	Levels          []LevelTotal    `json:"levels"`
	TotalEarned     decimal.Decimal `json:"total_earned"`
}

// UserSource is the slice of user storage the cascade walks.
type UserSource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByReferralCode(ctx context.Context, code string) (*models.User, error)
	CountByReferredBy(ctx context.Context, code string) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service pays referral commissions when a referred user's purchase completes.
type Service interface {
	CascadeForPurchase(ctx context.Context, purchase models.Purchase) (CascadeSummary, error)
	StatsForUser(ctx context.Context, userID uuid.UUID) (ReferralStats, error)
}

type service struct {
	repo    Repository
	users   UserSource
	ledger  ledger.Service
	runner  txRunner
	logg    *logger.Logger
	metrics *metrics.LedgerMetrics
}

// NewService wires the commission cascade engine. metrics may be nil.
func NewService(
	repo Repository,
	users UserSource,
	ledgerSvc ledger.Service,
	runner txRunner,
	logg *logger.Logger,
	ledgerMetrics *metrics.LedgerMetrics,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("commissions repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("user source required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if runner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:    repo,
		users:   users,
		ledger:  ledgerSvc,
		runner:  runner,
		logg:    logg,
		metrics: ledgerMetrics,
	}, nil
}

// CommissionAmount computes the payout for one level of the cascade.
func CommissionAmount(purchaseAmount decimal.Decimal, level int) decimal.Decimal {
	if level < 1 || level > len(levelRates) {
		return decimal.Zero
	}
	return purchaseAmount.Mul(levelRates[level-1]).Truncate(8)
}

// CascadeForPurchase walks the buyer's referral chain upward and pays each
// ancestor its level's commission. A missing link ends the walk; a failure at
// one level is isolated so the remaining levels still run, and re-running the
// cascade later completes only the levels that have not paid yet.
func (s *service) CascadeForPurchase(ctx context.Context, purchase models.Purchase) (CascadeSummary, error) {
	if purchase.ID == uuid.Nil {
		return CascadeSummary{}, fmt.Errorf("purchase id is required")
	}
	if purchase.Status != enums.PurchaseStatusCompleted {
		return CascadeSummary{}, fmt.Errorf("purchase %s is not completed", purchase.ID)
	}

	buyer, err := s.users.FindByID(ctx, purchase.UserID)
	if err != nil {
		return CascadeSummary{}, fmt.Errorf("loading buyer %s: %w", purchase.UserID, err)
	}

	var summary CascadeSummary
	var cascadeErr error
	current := buyer
	for level := 1; level <= len(levelRates); level++ {
		if current.ReferredBy == nil || *current.ReferredBy == "" {
			summary.ChainEnded = len(levelRates) - level + 1
			break
		}

		beneficiary, err := s.users.FindByReferralCode(ctx, *current.ReferredBy)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// dangling referral code: treat like an ended chain rather
			// than an error, nothing above it can be resolved either
			summary.ChainEnded = len(levelRates) - level + 1
			if s.logg != nil {
				s.logg.Warn(s.logg.WithPurchaseID(ctx, purchase.ID.String()), "referral chain has a dangling code, stopping cascade")
			}
			break
		}
		if err != nil {
			// a storage failure says nothing about the chain; surface it
			// so the caller retries the remaining levels
			summary.Failed += len(levelRates) - level + 1
			cascadeErr = multierr.Append(cascadeErr, fmt.Errorf("resolving level %d beneficiary: %w", level, err))
			break
		}

		if err := s.payLevel(ctx, purchase, beneficiary.ID, level, &summary); err != nil {
			summary.Failed++
			cascadeErr = multierr.Append(cascadeErr, fmt.Errorf("level %d: %w", level, err))
		}
		current = beneficiary
	}
	return summary, cascadeErr
}

func (s *service) payLevel(ctx context.Context, purchase models.Purchase, beneficiaryID uuid.UUID, level int, summary *CascadeSummary) error {
	amount := CommissionAmount(purchase.Amount, level)
	commission := &models.Commission{
		BeneficiaryUserID: beneficiaryID,
		PurchaseID:        purchase.ID,
		Amount:            amount,
		Level:             level,
	}

	return s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		inserted, err := s.repo.WithTx(tx).Insert(ctx, commission)
		if err != nil {
			return err
		}
		if !inserted {
			summary.AlreadyProcessed++
			return nil
		}
		_, err = s.ledger.AppendWithTx(ctx, tx, ledger.AppendTransactionInput{
			UserID:      beneficiaryID,
			Amount:      amount,
			Kind:        enums.LedgerTransactionKindCredit,
			Description: fmt.Sprintf("affiliate commission level %d for purchase %s", level, purchase.ID),
		})
		if err != nil {
			return err
		}
		summary.Created++
		s.metrics.IncCommission(strconv.Itoa(level))
		return nil
	})
}

func (s *service) StatsForUser(ctx context.Context, userID uuid.UUID) (ReferralStats, error) {
	if userID == uuid.Nil {
		return ReferralStats{}, fmt.Errorf("user id is required")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return ReferralStats{}, err
	}

	direct, err := s.users.CountByReferredBy(ctx, user.ReferralCode)
	if err != nil {
		return ReferralStats{}, err
	}

	totals, err := s.repo.TotalsByBeneficiary(ctx, userID)
	if err != nil {
		return ReferralStats{}, err
	}

	earned := decimal.Zero
	for _, level := range totals {
		earned = earned.Add(level.Total)
	}
	return ReferralStats{
		DirectReferrals: direct,
		Levels:          totals,
		TotalEarned:     earned,
	}, nil
}
