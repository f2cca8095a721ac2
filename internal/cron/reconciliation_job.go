package cron

import (
	"context"
	"fmt"

	"github.com/avelardo/cryptomart-backend/internal/reconciliation"
	"github.com/avelardo/cryptomart-backend/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// reconciler is the slice of the reconciliation service the job drives.
type reconciler interface {
	Reconcile(ctx context.Context, userID uuid.UUID) (reconciliation.Summary, error)
}

// accountSource lists the accounts whose ledgers get reconciled.
type accountSource interface {
	ListActiveIDs(ctx context.Context) ([]uuid.UUID, error)
}

// ReconciliationJobParams configure the ledger reconciliation sweep.
type ReconciliationJobParams struct {
	Logger   *logger.Logger
	Service  reconciler
	Accounts accountSource
}

// NewReconciliationJob constructs the job that restores any ledger entries
// missing against the settled deposit, purchase, and withdrawal records.
func NewReconciliationJob(params ReconciliationJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Service == nil {
		return nil, fmt.Errorf("reconciliation service required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("account source required")
	}
	return &reconciliationJob{
		logg:     params.Logger,
		service:  params.Service,
		accounts: params.Accounts,
	}, nil
}

type reconciliationJob struct {
	logg     *logger.Logger
	service  reconciler
	accounts accountSource
}

func (j *reconciliationJob) Name() string { return "ledger-reconciliation" }

// Run reconciles every active account. A failure on one account does not stop
// the sweep; the errors are combined and returned after the full pass.
func (j *reconciliationJob) Run(ctx context.Context) error {
	ids, err := j.accounts.ListActiveIDs(ctx)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}

	var created, skipped, failed int
	var errs []error
	for _, id := range ids {
		summary, err := j.service.Reconcile(ctx, id)
		created += summary.Created
		skipped += summary.Skipped
		if err != nil {
			failed++
			errs = append(errs, fmt.Errorf("reconcile user %s: %w", id, err))
			j.logg.Error(j.logg.WithUserID(ctx, id.String()), "account reconciliation failed", err)
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"accounts": len(ids),
		"created":  created,
		"skipped":  skipped,
		"failed":   failed,
	})
	if combined := multierr.Combine(errs...); combined != nil {
		j.logg.Error(logCtx, "reconciliation sweep finished with failures", combined)
		return combined
	}
	j.logg.Info(logCtx, "reconciliation sweep complete")
	return nil
}
