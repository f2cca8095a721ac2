package withdrawals

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

// fixed days with known weekdays
var (
	monday    = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	tuesday   = time.Date(2026, 5, 5, 9, 0, 0, 0, time.UTC)
	wednesday = time.Date(2026, 5, 6, 9, 0, 0, 0, time.UTC)
	friday    = time.Date(2026, 5, 8, 9, 0, 0, 0, time.UTC)
	saturday  = time.Date(2026, 5, 9, 9, 0, 0, 0, time.UTC)
)

type fakeRepo struct {
	requests map[uuid.UUID]*models.WithdrawalRequest
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{requests: map[uuid.UUID]*models.WithdrawalRequest{}}
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(ctx context.Context, request *models.WithdrawalRequest) error {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	clone := *request
	f.requests[request.ID] = &clone
	return nil
}

func (f *fakeRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	request, ok := f.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *request
	return &clone, nil
}

func (f *fakeRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.WithdrawalRequest, error) {
	var out []models.WithdrawalRequest
	for _, request := range f.requests {
		if request.UserID == userID {
			out = append(out, *request)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListByUserIDAndStatus(ctx context.Context, userID uuid.UUID, status enums.WithdrawalStatus) ([]models.WithdrawalRequest, error) {
	var out []models.WithdrawalRequest
	for _, request := range f.requests {
		if request.UserID == userID && request.Status == status {
			out = append(out, *request)
		}
	}
	return out, nil
}

func (f *fakeRepo) Transition(ctx context.Context, id uuid.UUID, from, to enums.WithdrawalStatus, decidedAt time.Time) (bool, error) {
	request, ok := f.requests[id]
	if !ok || request.Status != from {
		return false, nil
	}
	request.Status = to
	request.DecidedAt = &decidedAt
	return true, nil
}

type fakeLedger struct {
	available decimal.Decimal
	appended  []ledger.AppendTransactionInput
}

func (f *fakeLedger) Append(ctx context.Context, input ledger.AppendTransactionInput) (*models.LedgerTransaction, error) {
	return f.AppendWithTx(ctx, nil, input)
}

func (f *fakeLedger) AppendWithTx(ctx context.Context, tx *gorm.DB, input ledger.AppendTransactionInput) (*models.LedgerTransaction, error) {
	f.appended = append(f.appended, input)
	return &models.LedgerTransaction{}, nil
}

func (f *fakeLedger) Project(ctx context.Context, userID uuid.UUID) (ledger.Balance, error) {
	return ledger.Balance{Available: f.available}, nil
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

func newTestService(t *testing.T, repo Repository, ldg ledger.Service, now time.Time) Service {
	t.Helper()
	svc, err := NewService(repo, ldg, &fakeTxRunner{}, nil, 10)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	svc.(*service).now = func() time.Time { return now }
	return svc
}

func requestInput(amount string) RequestInput {
	return RequestInput{
		UserID:        uuid.New(),
		Amount:        decimal.RequireFromString(amount),
		WalletAddress: "0xabc123",
	}
}

func TestPolicyFor_WeekdayBands(t *testing.T) {
	cases := []struct {
		day     time.Time
		allowed bool
		min     string
		max     string
	}{
		{monday, true, "5", "10"},
		{tuesday, true, "50", "500"},
		{wednesday, true, "1000", "10000"},
		{time.Date(2026, 5, 7, 9, 0, 0, 0, time.UTC), true, "50000", "500000"},
		{friday, true, "0", "100000"},
		{saturday, false, "0", "0"},
		{time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC), false, "0", "0"},
	}
	for _, tc := range cases {
		policy := PolicyFor(tc.day)
		if policy.Allowed != tc.allowed {
			t.Fatalf("%s: allowed mismatch", tc.day.Weekday())
		}
		if !tc.allowed {
			continue
		}
		if !policy.Min.Equal(decimal.RequireFromString(tc.min)) || !policy.Max.Equal(decimal.RequireFromString(tc.max)) {
			t.Fatalf("%s: expected band [%s, %s], got [%s, %s]",
				tc.day.Weekday(), tc.min, tc.max, policy.Min, policy.Max)
		}
	}
}

func TestService_Request_WithinTuesdayBand(t *testing.T) {
	repo := newFakeRepo()
	ldg := &fakeLedger{available: decimal.NewFromInt(1000)}
	svc := newTestService(t, repo, ldg, tuesday)

	request, err := svc.Request(context.Background(), requestInput("500"))
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if request.Status != enums.WithdrawalStatusPending {
		t.Fatalf("expected pending, got %s", request.Status)
	}
	if !request.Fee.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected fee 50, got %s", request.Fee)
	}
	if !request.NetAmount.Equal(decimal.NewFromInt(450)) {
		t.Fatalf("expected net 450, got %s", request.NetAmount)
	}
	if len(ldg.appended) != 0 {
		t.Fatal("a pending request must not touch the ledger")
	}
}

func TestService_Request_AboveTuesdayBand(t *testing.T) {
	svc := newTestService(t, newFakeRepo(), &fakeLedger{available: decimal.NewFromInt(10000)}, tuesday)

	_, err := svc.Request(context.Background(), requestInput("501"))
	appErr := apperrors.As(err)
	if appErr == nil || appErr.Code() != apperrors.CodePolicyViolation {
		t.Fatalf("expected POLICY_VIOLATION, got %v", err)
	}
}

func TestService_Request_BelowWednesdayBand(t *testing.T) {
	svc := newTestService(t, newFakeRepo(), &fakeLedger{available: decimal.NewFromInt(10000)}, wednesday)

	_, err := svc.Request(context.Background(), requestInput("1"))
	appErr := apperrors.As(err)
	if appErr == nil || appErr.Code() != apperrors.CodePolicyViolation {
		t.Fatalf("expected POLICY_VIOLATION, got %v", err)
	}
}

func TestService_Request_WeekendRefused(t *testing.T) {
	svc := newTestService(t, newFakeRepo(), &fakeLedger{available: decimal.NewFromInt(10000)}, saturday)

	_, err := svc.Request(context.Background(), requestInput("100"))
	appErr := apperrors.As(err)
	if appErr == nil || appErr.Code() != apperrors.CodePolicyViolation {
		t.Fatalf("expected POLICY_VIOLATION, got %v", err)
	}
}

func TestService_Request_InsufficientBalance(t *testing.T) {
	svc := newTestService(t, newFakeRepo(), &fakeLedger{available: decimal.NewFromInt(499)}, tuesday)

	_, err := svc.Request(context.Background(), requestInput("500"))
	appErr := apperrors.As(err)
	if appErr == nil || appErr.Code() != apperrors.CodeInsufficientBalance {
		t.Fatalf("expected INSUFFICIENT_BALANCE, got %v", err)
	}
}

func TestService_Request_FeeMath(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, &fakeLedger{available: decimal.NewFromInt(1000)}, friday)

	request, err := svc.Request(context.Background(), requestInput("100"))
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if !request.Fee.Equal(decimal.NewFromInt(10)) || !request.NetAmount.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("expected fee 10 and net 90, got %s and %s", request.Fee, request.NetAmount)
	}
}

func TestService_Approve(t *testing.T) {
	repo := newFakeRepo()
	ldg := &fakeLedger{available: decimal.NewFromInt(1000)}
	svc := newTestService(t, repo, ldg, tuesday)

	request, err := svc.Request(context.Background(), requestInput("500"))
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}

	approved, err := svc.Approve(context.Background(), request.ID)
	if err != nil {
		t.Fatalf("Approve error: %v", err)
	}
	if approved.Status != enums.WithdrawalStatusCompleted {
		t.Fatalf("expected completed, got %s", approved.Status)
	}
	if approved.DecidedAt == nil {
		t.Fatal("expected decided_at to be set")
	}
	if len(ldg.appended) != 1 {
		t.Fatalf("expected one ledger debit, got %d", len(ldg.appended))
	}
	debit := ldg.appended[0]
	if debit.Kind != enums.LedgerTransactionKindWithdrawal {
		t.Fatalf("expected withdrawal kind, got %s", debit.Kind)
	}
	if !debit.Amount.Equal(request.Amount) {
		t.Fatalf("the full amount is debited, got %s", debit.Amount)
	}
}

func TestService_Approve_Twice(t *testing.T) {
	repo := newFakeRepo()
	ldg := &fakeLedger{available: decimal.NewFromInt(1000)}
	svc := newTestService(t, repo, ldg, tuesday)

	request, err := svc.Request(context.Background(), requestInput("500"))
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if _, err := svc.Approve(context.Background(), request.ID); err != nil {
		t.Fatalf("first approve error: %v", err)
	}

	_, err = svc.Approve(context.Background(), request.ID)
	appErr := apperrors.As(err)
	if appErr == nil || appErr.Code() != apperrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
	if len(ldg.appended) != 1 {
		t.Fatalf("double approval must not debit twice, got %d", len(ldg.appended))
	}
}

func TestService_Approve_BalanceDrained(t *testing.T) {
	repo := newFakeRepo()
	ldg := &fakeLedger{available: decimal.NewFromInt(1000)}
	svc := newTestService(t, repo, ldg, tuesday)

	request, err := svc.Request(context.Background(), requestInput("500"))
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}

	// balance dropped between admission and approval
	ldg.available = decimal.NewFromInt(100)
	_, err = svc.Approve(context.Background(), request.ID)
	appErr := apperrors.As(err)
	if appErr == nil || appErr.Code() != apperrors.CodeInsufficientBalance {
		t.Fatalf("expected INSUFFICIENT_BALANCE, got %v", err)
	}
	if len(ldg.appended) != 0 {
		t.Fatal("a refused approval must not debit the ledger")
	}

	stored, _ := repo.FindByID(context.Background(), request.ID)
	if stored.Status != enums.WithdrawalStatusPending {
		t.Fatalf("request should stay pending, got %s", stored.Status)
	}
}

func TestService_Reject(t *testing.T) {
	repo := newFakeRepo()
	ldg := &fakeLedger{available: decimal.NewFromInt(1000)}
	svc := newTestService(t, repo, ldg, tuesday)

	request, err := svc.Request(context.Background(), requestInput("500"))
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}

	rejected, err := svc.Reject(context.Background(), request.ID)
	if err != nil {
		t.Fatalf("Reject error: %v", err)
	}
	if rejected.Status != enums.WithdrawalStatusRejected {
		t.Fatalf("expected rejected, got %s", rejected.Status)
	}
	if len(ldg.appended) != 0 {
		t.Fatal("rejection must not touch the ledger")
	}

	// a rejected request cannot be approved afterwards
	_, err = svc.Approve(context.Background(), request.ID)
	appErr := apperrors.As(err)
	if appErr == nil || appErr.Code() != apperrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
}

func TestService_Approve_Unknown(t *testing.T) {
	svc := newTestService(t, newFakeRepo(), &fakeLedger{}, tuesday)

	_, err := svc.Approve(context.Background(), uuid.New())
	appErr := apperrors.As(err)
	if appErr == nil || appErr.Code() != apperrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}
