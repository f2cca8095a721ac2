package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/avelardo/cryptomart-backend/internal/earnings"
	"github.com/avelardo/cryptomart-backend/pkg/logger"
)

// accrualEngine is the slice of the earnings service the sweep job drives.
type accrualEngine interface {
	AccrueForAllActivePurchases(ctx context.Context, asOf time.Time) (earnings.SweepSummary, error)
}

// AccrualSweepJobParams configure the daily earnings sweep.
type AccrualSweepJobParams struct {
	Logger *logger.Logger
	Engine accrualEngine
}

// NewAccrualSweepJob constructs the job that accrues the current day's
// earning for every completed purchase still inside its payout horizon.
func NewAccrualSweepJob(params AccrualSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("accrual engine required")
	}
	return &accrualSweepJob{
		logg:   params.Logger,
		engine: params.Engine,
		now:    time.Now,
	}, nil
}

type accrualSweepJob struct {
	logg   *logger.Logger
	engine accrualEngine
	now    func() time.Time
}

func (j *accrualSweepJob) Name() string { return "earnings-accrual-sweep" }

// Run accrues one day for every eligible purchase. Per-purchase failures are
// already isolated inside the sweep; the summary is logged either way so a
// partially failed run still reports what it managed to accrue.
func (j *accrualSweepJob) Run(ctx context.Context) error {
	summary, err := j.engine.AccrueForAllActivePurchases(ctx, j.now().UTC())
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"accrued":          summary.Accrued,
		"already_accrued":  summary.AlreadyAccrued,
		"horizon_exceeded": summary.HorizonExceeded,
		"failed":           summary.Failed,
	})
	if err != nil {
		j.logg.Error(logCtx, "accrual sweep finished with failures", err)
		return fmt.Errorf("accrual sweep: %w", err)
	}
	j.logg.Info(logCtx, "accrual sweep complete")
	return nil
}
