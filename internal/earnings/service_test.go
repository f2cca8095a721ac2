package earnings

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/avelardo/cryptomart-backend/internal/ledger"
	"github.com/avelardo/cryptomart-backend/pkg/db/models"
	"github.com/avelardo/cryptomart-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type fakeEarningsRepo struct {
	inserted  []models.Earning
	seen      map[string]bool
	insertErr error
}

func newFakeEarningsRepo() *fakeEarningsRepo {
	return &fakeEarningsRepo{seen: map[string]bool{}}
}

func (f *fakeEarningsRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeEarningsRepo) Insert(ctx context.Context, earning *models.Earning) (bool, error) {
	if f.insertErr != nil {
		return false, f.insertErr
	}
	key := fmt.Sprintf("%s|%s", earning.PurchaseID, earning.AccrualDate.Format("2006-01-02"))
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	f.inserted = append(f.inserted, *earning)
	return true, nil
}

func (f *fakeEarningsRepo) CountByPurchaseID(ctx context.Context, purchaseID uuid.UUID) (int64, error) {
	var count int64
	for _, e := range f.inserted {
		if e.PurchaseID == purchaseID {
			count++
		}
	}
	return count, nil
}

func (f *fakeEarningsRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.Earning, error) {
	return nil, nil
}

type fakePurchaseSource struct {
	completed []models.Purchase
	listErr   error
}

func (f *fakePurchaseSource) ListCompleted(ctx context.Context) ([]models.Purchase, error) {
	return f.completed, f.listErr
}

func (f *fakePurchaseSource) ListCompletedByUserID(ctx context.Context, userID uuid.UUID) ([]models.Purchase, error) {
	var out []models.Purchase
	for _, p := range f.completed {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, f.listErr
}

type fakeTxRunner struct{}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeLedger struct {
	appended []ledger.AppendTransactionInput
}

func (f *fakeLedger) Append(ctx context.Context, input ledger.AppendTransactionInput) (*models.LedgerTransaction, error) {
	return f.AppendWithTx(ctx, nil, input)
}

func (f *fakeLedger) AppendWithTx(ctx context.Context, tx *gorm.DB, input ledger.AppendTransactionInput) (*models.LedgerTransaction, error) {
	f.appended = append(f.appended, input)
	return &models.LedgerTransaction{
		UserID:      input.UserID,
		Amount:      input.Amount,
		Kind:        input.Kind,
		Description: input.Description,
	}, nil
}

func (f *fakeLedger) Project(ctx context.Context, userID uuid.UUID) (ledger.Balance, error) {
	return ledger.Balance{}, nil
}

func (f *fakeLedger) HasWithDescription(ctx context.Context, userID uuid.UUID, description string) (bool, error) {
	return false, nil
}

func (f *fakeLedger) ListPage(ctx context.Context, userID uuid.UUID, limit int, before *models.LedgerTransaction) ([]models.LedgerTransaction, error) {
	return nil, nil
}

func completedPurchase(amount string, createdAt time.Time) models.Purchase {
	return models.Purchase{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		ProductID: uuid.New(),
		Amount:    decimal.RequireFromString(amount),
		Status:    enums.PurchaseStatusCompleted,
		CreatedAt: createdAt,
	}
}

func newTestService(t *testing.T, repo Repository, src PurchaseSource, ldg ledger.Service) Service {
	t.Helper()
	svc, err := NewService(repo, src, ldg, &fakeTxRunner{}, nil, nil, 45)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestDailyAmount_Conservation(t *testing.T) {
	amounts := []string{"100", "999.99999999", "0.00000045", "123.456", "1"}
	for _, raw := range amounts {
		amount := decimal.RequireFromString(raw)
		daily := DailyAmount(amount, 45)
		final := FinalDayAmount(amount, 45)

		total := daily.Mul(decimal.NewFromInt(44)).Add(final)
		if !total.Equal(amount) {
			t.Fatalf("amount %s: 44 daily slices plus the final day must equal the purchase amount, got %s", raw, total)
		}
		if daily.Exponent() < -8 {
			t.Fatalf("amount %s: daily slice has more than 8 decimal places: %s", raw, daily)
		}
	}
}

func TestService_AccrueForPurchase_FirstDay(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC)
	purchase := completedPurchase("100", createdAt)

	repo := newFakeEarningsRepo()
	ldg := &fakeLedger{}
	svc := newTestService(t, repo, &fakePurchaseSource{}, ldg)

	outcome, err := svc.AccrueForPurchase(context.Background(), purchase, createdAt.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("AccrueForPurchase error: %v", err)
	}
	if outcome != OutcomeAccrued {
		t.Fatalf("expected accrued, got %s", outcome)
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("expected one earning, got %d", len(repo.inserted))
	}

	earning := repo.inserted[0]
	if earning.DayNumber != 1 {
		t.Fatalf("expected day 1, got %d", earning.DayNumber)
	}
	wantDaily := decimal.RequireFromString("2.22222222")
	if !earning.Amount.Equal(wantDaily) {
		t.Fatalf("expected daily amount %s, got %s", wantDaily, earning.Amount)
	}

	if len(ldg.appended) != 1 {
		t.Fatalf("expected one ledger credit, got %d", len(ldg.appended))
	}
	credit := ldg.appended[0]
	if credit.Kind != enums.LedgerTransactionKindCredit {
		t.Fatalf("expected credit kind, got %s", credit.Kind)
	}
	if !credit.Amount.Equal(wantDaily) {
		t.Fatalf("ledger credit must match the earning amount, got %s", credit.Amount)
	}
}

func TestService_AccrueForPurchase_FinalDayTopUp(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	purchase := completedPurchase("100", createdAt)

	repo := newFakeEarningsRepo()
	ldg := &fakeLedger{}
	svc := newTestService(t, repo, &fakePurchaseSource{}, ldg)

	day45 := createdAt.AddDate(0, 0, 44)
	outcome, err := svc.AccrueForPurchase(context.Background(), purchase, day45)
	if err != nil {
		t.Fatalf("AccrueForPurchase error: %v", err)
	}
	if outcome != OutcomeAccrued {
		t.Fatalf("expected accrued, got %s", outcome)
	}

	earning := repo.inserted[0]
	if earning.DayNumber != 45 {
		t.Fatalf("expected day 45, got %d", earning.DayNumber)
	}
	wantFinal := decimal.RequireFromString("100").Sub(
		decimal.RequireFromString("2.22222222").Mul(decimal.NewFromInt(44)),
	)
	if !earning.Amount.Equal(wantFinal) {
		t.Fatalf("expected final-day amount %s, got %s", wantFinal, earning.Amount)
	}
}

func TestService_AccrueForPurchase_HorizonExceeded(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	purchase := completedPurchase("100", createdAt)

	repo := newFakeEarningsRepo()
	ldg := &fakeLedger{}
	svc := newTestService(t, repo, &fakePurchaseSource{}, ldg)

	day46 := createdAt.AddDate(0, 0, 45)
	outcome, err := svc.AccrueForPurchase(context.Background(), purchase, day46)
	if err != nil {
		t.Fatalf("AccrueForPurchase error: %v", err)
	}
	if outcome != OutcomeHorizonExceeded {
		t.Fatalf("expected horizon exceeded, got %s", outcome)
	}
	if len(repo.inserted) != 0 {
		t.Fatalf("no earning should be written past the horizon")
	}
	if len(ldg.appended) != 0 {
		t.Fatalf("no ledger credit should be written past the horizon")
	}
}

func TestService_AccrueForPurchase_AlreadyAccrued(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	purchase := completedPurchase("100", createdAt)

	repo := newFakeEarningsRepo()
	ldg := &fakeLedger{}
	svc := newTestService(t, repo, &fakePurchaseSource{}, ldg)

	asOf := createdAt.AddDate(0, 0, 3)
	if _, err := svc.AccrueForPurchase(context.Background(), purchase, asOf); err != nil {
		t.Fatalf("first accrual error: %v", err)
	}

	outcome, err := svc.AccrueForPurchase(context.Background(), purchase, asOf)
	if err != nil {
		t.Fatalf("repeat accrual error: %v", err)
	}
	if outcome != OutcomeAlreadyAccrued {
		t.Fatalf("expected already accrued, got %s", outcome)
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("repeat accrual must not add a second earning, got %d", len(repo.inserted))
	}
	if len(ldg.appended) != 1 {
		t.Fatalf("repeat accrual must not add a second ledger credit, got %d", len(ldg.appended))
	}
}

func TestService_AccrueForPurchase_RejectsNonCompleted(t *testing.T) {
	purchase := completedPurchase("100", time.Now())
	purchase.Status = enums.PurchaseStatusPending

	svc := newTestService(t, newFakeEarningsRepo(), &fakePurchaseSource{}, &fakeLedger{})

	if _, err := svc.AccrueForPurchase(context.Background(), purchase, time.Now()); err == nil {
		t.Fatal("expected error for non-completed purchase")
	}
}

func TestService_Sweep_IsolatesFailures(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	healthy1 := completedPurchase("45", createdAt)
	broken := completedPurchase("45", createdAt)
	broken.Status = enums.PurchaseStatusCancelled
	healthy2 := completedPurchase("90", createdAt)

	repo := newFakeEarningsRepo()
	src := &fakePurchaseSource{completed: []models.Purchase{healthy1, broken, healthy2}}
	svc := newTestService(t, repo, src, &fakeLedger{})

	summary, err := svc.AccrueForAllActivePurchases(context.Background(), createdAt.AddDate(0, 0, 1))
	if err == nil {
		t.Fatal("expected aggregate error from the broken purchase")
	}
	if summary.Accrued != 2 {
		t.Fatalf("healthy purchases must still accrue, got %d", summary.Accrued)
	}
	if summary.Failed != 1 {
		t.Fatalf("expected one isolated failure, got %d", summary.Failed)
	}
	if len(repo.inserted) != 2 {
		t.Fatalf("expected two earnings, got %d", len(repo.inserted))
	}
}

func TestService_BackfillRange_ConservesPurchaseAmount(t *testing.T) {
	createdAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	purchase := completedPurchase("100", createdAt)

	repo := newFakeEarningsRepo()
	src := &fakePurchaseSource{completed: []models.Purchase{purchase}}
	ldg := &fakeLedger{}
	svc := newTestService(t, repo, src, ldg)

	// cover the whole horizon plus a few days past it
	summary, err := svc.BackfillRange(context.Background(), purchase.UserID, createdAt, createdAt.AddDate(0, 0, 47))
	if err != nil {
		t.Fatalf("BackfillRange error: %v", err)
	}
	if summary.Accrued != 45 {
		t.Fatalf("expected 45 accruals, got %d", summary.Accrued)
	}
	if summary.HorizonExceeded != 3 {
		t.Fatalf("expected 3 days past the horizon, got %d", summary.HorizonExceeded)
	}

	total := decimal.Zero
	for _, earning := range repo.inserted {
		total = total.Add(earning.Amount)
	}
	if !total.Equal(purchase.Amount) {
		t.Fatalf("45 accruals must reconstruct the purchase amount, got %s", total)
	}
}

func TestService_Sweep_PropagatesListFailure(t *testing.T) {
	expectedErr := errors.New("storage down")
	src := &fakePurchaseSource{listErr: expectedErr}
	svc := newTestService(t, newFakeEarningsRepo(), src, &fakeLedger{})

	if _, err := svc.AccrueForAllActivePurchases(context.Background(), time.Now()); !errors.Is(err, expectedErr) {
		t.Fatalf("expected list failure to bubble up, got %v", err)
	}
}
