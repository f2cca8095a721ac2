package earnings

import (
	"context"
	"fmt"
	"time"

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

// Outcome classifies one accrual attempt. AlreadyAccrued is a success
// variant, not an error: callers retrying a day that already accrued get the
// same end state they asked for.
type Outcome string

const (
	OutcomeAccrued         Outcome = "accrued"
	OutcomeAlreadyAccrued  Outcome = "already_accrued"
	OutcomeHorizonExceeded Outcome = "horizon_exceeded"
)

// SweepSummary aggregates per-purchase outcomes of a sweep or backfill.
type SweepSummary struct {
	Accrued         int `json:"accrued"`
	AlreadyAccrued  int `json:"already_accrued"`
	HorizonExceeded int `json:"horizon_exceeded"`
	Failed          int `json:"failed"`
}

// PurchaseSource is the slice of purchase storage the accrual engine reads.
type PurchaseSource interface {
	ListCompleted(ctx context.Context) ([]models.Purchase, error)
	ListCompletedByUserID(ctx context.Context, userID uuid.UUID) ([]models.Purchase, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service accrues daily earnings against completed purchases.
type Service interface {
	AccrueForPurchase(ctx context.Context, purchase models.Purchase, asOf time.Time) (Outcome, error)
	AccrueForAllActivePurchases(ctx context.Context, asOf time.Time) (SweepSummary, error)
	BackfillRange(ctx context.Context, userID uuid.UUID, start, end time.Time) (SweepSummary, error)
}

type service struct {
	repo        Repository
	purchases   PurchaseSource
	ledger      ledger.Service
	runner      txRunner
	logg        *logger.Logger
	metrics     *metrics.LedgerMetrics
	horizonDays int
}

// NewService wires the accrual engine. metrics may be nil.
func NewService(
	repo Repository,
	purchases PurchaseSource,
	ledgerSvc ledger.Service,
	runner txRunner,
	logg *logger.Logger,
	ledgerMetrics *metrics.LedgerMetrics,
	horizonDays int,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("earnings repository required")
	}
	if purchases == nil {
		return nil, fmt.Errorf("purchase source required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if runner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if horizonDays <= 0 {
		horizonDays = 45
	}
	return &service{
		repo:        repo,
		purchases:   purchases,
		ledger:      ledgerSvc,
		runner:      runner,
		logg:        logg,
		metrics:     ledgerMetrics,
		horizonDays: horizonDays,
	}, nil
}

// DailyAmount is the per-day slice of a purchase: a truncating division to
// 8 decimal places. The truncation shortfall is repaid on the final day, see
// FinalDayAmount.
func DailyAmount(amount decimal.Decimal, horizonDays int) decimal.Decimal {
	return amount.Div(decimal.NewFromInt(int64(horizonDays))).Truncate(8)
}

// FinalDayAmount tops up the last day so the horizon sums back to the
// purchase amount exactly.
func FinalDayAmount(amount decimal.Decimal, horizonDays int) decimal.Decimal {
	daily := DailyAmount(amount, horizonDays)
	return amount.Sub(daily.Mul(decimal.NewFromInt(int64(horizonDays - 1))))
}

// utcDate drops the clock portion so accrual days are calendar days in UTC.
func utcDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *service) dayNumber(purchase models.Purchase, asOf time.Time) int {
	start := utcDate(purchase.CreatedAt)
	target := utcDate(asOf)
	return int(target.Sub(start).Hours()/24) + 1
}

func (s *service) AccrueForPurchase(ctx context.Context, purchase models.Purchase, asOf time.Time) (Outcome, error) {
	if purchase.ID == uuid.Nil {
		return "", fmt.Errorf("purchase id is required")
	}
	if purchase.Status != enums.PurchaseStatusCompleted {
		return "", fmt.Errorf("purchase %s is not completed", purchase.ID)
	}
	if asOf.IsZero() {
		asOf = time.Now()
	}

	day := s.dayNumber(purchase, asOf)
	if day < 1 || day > s.horizonDays {
		return OutcomeHorizonExceeded, nil
	}

	amount := DailyAmount(purchase.Amount, s.horizonDays)
	if day == s.horizonDays {
		amount = FinalDayAmount(purchase.Amount, s.horizonDays)
	}

	earning := &models.Earning{
		UserID:      purchase.UserID,
		PurchaseID:  purchase.ID,
		Amount:      amount,
		DayNumber:   day,
		AccrualDate: utcDate(asOf),
	}

	outcome := OutcomeAlreadyAccrued
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		inserted, err := s.repo.WithTx(tx).Insert(ctx, earning)
		if err != nil {
			return err
		}
		if !inserted {
			// the day already accrued; the matching ledger credit was
			// written in the same transaction that inserted it
			return nil
		}
		outcome = OutcomeAccrued
		_, err = s.ledger.AppendWithTx(ctx, tx, ledger.AppendTransactionInput{
			UserID:      purchase.UserID,
			Amount:      amount,
			Kind:        enums.LedgerTransactionKindCredit,
			Description: fmt.Sprintf("daily earning day %d for purchase %s", day, purchase.ID),
		})
		return err
	})
	if err != nil {
		return "", err
	}
	return outcome, nil
}

func (s *service) AccrueForAllActivePurchases(ctx context.Context, asOf time.Time) (SweepSummary, error) {
	purchases, err := s.purchases.ListCompleted(ctx)
	if err != nil {
		return SweepSummary{}, err
	}

	var summary SweepSummary
	var sweepErr error
	for _, purchase := range purchases {
		outcome, err := s.AccrueForPurchase(ctx, purchase, asOf)
		if err != nil {
			summary.Failed++
			s.metrics.IncSweepFailure()
			if s.logg != nil {
				s.logg.Error(s.logg.WithPurchaseID(ctx, purchase.ID.String()), "accrual failed during sweep", err)
			}
			sweepErr = multierr.Append(sweepErr, fmt.Errorf("purchase %s: %w", purchase.ID, err))
			continue
		}
		summary.count(outcome)
		s.metrics.IncAccrual(string(outcome))
	}
	return summary, sweepErr
}

func (s *service) BackfillRange(ctx context.Context, userID uuid.UUID, start, end time.Time) (SweepSummary, error) {
	if userID == uuid.Nil {
		return SweepSummary{}, fmt.Errorf("user id is required")
	}
	first := utcDate(start)
	last := utcDate(end)
	if last.Before(first) {
		return SweepSummary{}, fmt.Errorf("backfill range end precedes start")
	}

	purchases, err := s.purchases.ListCompletedByUserID(ctx, userID)
	if err != nil {
		return SweepSummary{}, err
	}

	var summary SweepSummary
	var backfillErr error
	for _, purchase := range purchases {
		for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
			outcome, err := s.AccrueForPurchase(ctx, purchase, day)
			if err != nil {
				summary.Failed++
				backfillErr = multierr.Append(backfillErr, fmt.Errorf("purchase %s day %s: %w", purchase.ID, day.Format("2006-01-02"), err))
				continue
			}
			summary.count(outcome)
		}
	}
	return summary, backfillErr
}

func (s *SweepSummary) count(outcome Outcome) {
	switch outcome {
	case OutcomeAccrued:
		s.Accrued++
	case OutcomeAlreadyAccrued:
		s.AlreadyAccrued++
	case OutcomeHorizonExceeded:
		s.HorizonExceeded++
	}
}
