package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/avelardo/cryptomart-backend/internal/reconciliation"
	"github.com/avelardo/cryptomart-backend/pkg/logger"
	"github.com/google/uuid"
)

type fakeReconciler struct {
	summaries map[uuid.UUID]reconciliation.Summary
	failFor   map[uuid.UUID]error
	calls     []uuid.UUID
}

func (f *fakeReconciler) Reconcile(ctx context.Context, userID uuid.UUID) (reconciliation.Summary, error) {
	f.calls = append(f.calls, userID)
	if err, ok := f.failFor[userID]; ok {
		return reconciliation.Summary{}, err
	}
	return f.summaries[userID], nil
}

type fakeAccountSource struct {
	ids []uuid.UUID
	err error
}

func (f *fakeAccountSource) ListActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	return f.ids, f.err
}

func newReconciliationJob(t *testing.T, svc *fakeReconciler, accounts *fakeAccountSource) Job {
	t.Helper()
	job, err := NewReconciliationJob(ReconciliationJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Service:  svc,
		Accounts: accounts,
	})
	if err != nil {
		t.Fatalf("NewReconciliationJob: %v", err)
	}
	return job
}

func TestReconciliationJobSweepsAllAccounts(t *testing.T) {
	userA := uuid.New()
	userB := uuid.New()
	svc := &fakeReconciler{
		summaries: map[uuid.UUID]reconciliation.Summary{
			userA: {Created: 1, Skipped: 2},
			userB: {Skipped: 3},
		},
	}
	job := newReconciliationJob(t, svc, &fakeAccountSource{ids: []uuid.UUID{userA, userB}})

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(svc.calls) != 2 {
		t.Fatalf("expected 2 accounts reconciled, got %d", len(svc.calls))
	}
}

func TestReconciliationJobIsolatesAccountFailures(t *testing.T) {
	userA := uuid.New()
	userB := uuid.New()
	userC := uuid.New()
	svc := &fakeReconciler{
		summaries: map[uuid.UUID]reconciliation.Summary{
			userA: {Created: 1},
			userC: {Created: 1},
		},
		failFor: map[uuid.UUID]error{userB: errors.New("boom")},
	}
	job := newReconciliationJob(t, svc, &fakeAccountSource{ids: []uuid.UUID{userA, userB, userC}})

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(svc.calls) != 3 {
		t.Fatalf("expected sweep to continue past failure, reconciled %d", len(svc.calls))
	}
}

func TestReconciliationJobPropagatesListFailure(t *testing.T) {
	svc := &fakeReconciler{}
	job := newReconciliationJob(t, svc, &fakeAccountSource{err: errors.New("db down")})

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(svc.calls) != 0 {
		t.Fatalf("expected no reconciliation calls, got %d", len(svc.calls))
	}
}
