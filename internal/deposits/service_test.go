package deposits

import (
	"context"
	"testing"
	"time"

	"github.com/avelardo/cryptomart-backend/internal/ledger"
	"github.com/avelardo/cryptomart-backend/pkg/db/models"
	"github.com/avelardo/cryptomart-backend/pkg/enums"
	apperrors "github.com/avelardo/cryptomart-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type fakeRepo struct {
	deposits map[uuid.UUID]*models.Deposit
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{deposits: map[uuid.UUID]*models.Deposit{}}
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(ctx context.Context, deposit *models.Deposit) error {
	if deposit.ID == uuid.Nil {
		deposit.ID = uuid.New()
	}
	clone := *deposit
	f.deposits[deposit.ID] = &clone
	return nil
}

func (f *fakeRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Deposit, error) {
	deposit, ok := f.deposits[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *deposit
	return &clone, nil
}

func (f *fakeRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.Deposit, error) {
	var out []models.Deposit
	for _, deposit := range f.deposits {
		if deposit.UserID == userID {
			out = append(out, *deposit)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListConfirmedByUserID(ctx context.Context, userID uuid.UUID) ([]models.Deposit, error) {
	var out []models.Deposit
	for _, deposit := range f.deposits {
		if deposit.UserID == userID && deposit.Status == enums.DepositStatusConfirmed {
			out = append(out, *deposit)
		}
	}
	return out, nil
}

func (f *fakeRepo) Transition(ctx context.Context, id uuid.UUID, from, to enums.DepositStatus, confirmedAt *time.Time) (bool, error) {
	deposit, ok := f.deposits[id]
	if !ok || deposit.Status != from {
		return false, nil
	}
	deposit.Status = to
	deposit.ConfirmedAt = confirmedAt
	return true, nil
}

type fakeLedger struct {
	appended []ledger.AppendTransactionInput
}

func (f *fakeLedger) Append(ctx context.Context, input ledger.AppendTransactionInput) (*models.LedgerTransaction, error) {
	return f.AppendWithTx(ctx, nil, input)
}

func (f *fakeLedger) AppendWithTx(ctx context.Context, tx *gorm.DB, input ledger.AppendTransactionInput) (*models.LedgerTransaction, error) {
	f.appended = append(f.appended, input)
	return &models.LedgerTransaction{}, nil
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

type fakeTxRunner struct{}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newTestService(t *testing.T, repo Repository, ldg ledger.Service) Service {
	t.Helper()
	svc, err := NewService(repo, ldg, &fakeTxRunner{}, nil)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestService_ReportThenConfirm(t *testing.T) {
	repo := newFakeRepo()
	ldg := &fakeLedger{}
	svc := newTestService(t, repo, ldg)

	deposit, err := svc.Report(context.Background(), ReportInput{
		UserID:      uuid.New(),
		Amount:      decimal.NewFromInt(250),
		TxReference: "0xdeadbeef",
	})
	if err != nil {
		t.Fatalf("Report error: %v", err)
	}
	if deposit.Status != enums.DepositStatusPending {
		t.Fatalf("expected pending, got %s", deposit.Status)
	}
	if len(ldg.appended) != 0 {
		t.Fatal("a pending deposit must not credit the ledger")
	}

	confirmed, err := svc.Confirm(context.Background(), deposit.ID)
	if err != nil {
		t.Fatalf("Confirm error: %v", err)
	}
	if confirmed.Status != enums.DepositStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", confirmed.Status)
	}
	if confirmed.ConfirmedAt == nil {
		t.Fatal("expected confirmed_at to be set")
	}
	if len(ldg.appended) != 1 {
		t.Fatalf("expected one ledger credit, got %d", len(ldg.appended))
	}
	credit := ldg.appended[0]
	if credit.Kind != enums.LedgerTransactionKindDeposit {
		t.Fatalf("expected deposit kind, got %s", credit.Kind)
	}
	if !credit.Amount.Equal(deposit.Amount) {
		t.Fatalf("credit must match the deposit amount, got %s", credit.Amount)
	}
}

func TestService_Confirm_Twice(t *testing.T) {
	repo := newFakeRepo()
	ldg := &fakeLedger{}
	svc := newTestService(t, repo, ldg)

	deposit, err := svc.Report(context.Background(), ReportInput{
		UserID: uuid.New(),
		Amount: decimal.NewFromInt(250),
	})
	if err != nil {
		t.Fatalf("Report error: %v", err)
	}
	if _, err := svc.Confirm(context.Background(), deposit.ID); err != nil {
		t.Fatalf("first confirm error: %v", err)
	}

	_, err = svc.Confirm(context.Background(), deposit.ID)
	appErr := apperrors.As(err)
	if appErr == nil || appErr.Code() != apperrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
	if len(ldg.appended) != 1 {
		t.Fatalf("a re-sent confirmation must not credit twice, got %d", len(ldg.appended))
	}
}

func TestService_Fail(t *testing.T) {
	repo := newFakeRepo()
	ldg := &fakeLedger{}
	svc := newTestService(t, repo, ldg)

	deposit, err := svc.Report(context.Background(), ReportInput{
		UserID: uuid.New(),
		Amount: decimal.NewFromInt(250),
	})
	if err != nil {
		t.Fatalf("Report error: %v", err)
	}

	failed, err := svc.Fail(context.Background(), deposit.ID)
	if err != nil {
		t.Fatalf("Fail error: %v", err)
	}
	if failed.Status != enums.DepositStatusFailed {
		t.Fatalf("expected failed, got %s", failed.Status)
	}
	if len(ldg.appended) != 0 {
		t.Fatal("a failed deposit must never credit the ledger")
	}

	// a failed deposit cannot be confirmed afterwards
	_, err = svc.Confirm(context.Background(), deposit.ID)
	appErr := apperrors.As(err)
	if appErr == nil || appErr.Code() != apperrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
}

func TestService_Report_Validation(t *testing.T) {
	svc := newTestService(t, newFakeRepo(), &fakeLedger{})

	if _, err := svc.Report(context.Background(), ReportInput{Amount: decimal.NewFromInt(1)}); err == nil {
		t.Fatal("expected error for missing user id")
	}
	if _, err := svc.Report(context.Background(), ReportInput{UserID: uuid.New()}); err == nil {
		t.Fatal("expected error for non-positive amount")
	}
}
