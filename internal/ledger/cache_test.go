package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/avelardo/cryptomart-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type fakeCacheStore struct {
	entries map[string]string
	getErr  error
	setErr  error
	sets    int
	dels    int
}

func newFakeCacheStore() *fakeCacheStore {
	return &fakeCacheStore{entries: map[string]string{}}
}

func (f *fakeCacheStore) Get(ctx context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	val, ok := f.entries[key]
	if !ok {
		return "", redis.Nil
	}
	return val, nil
}

func (f *fakeCacheStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	f.sets++
	if f.setErr != nil {
		return f.setErr
	}
	f.entries[key] = value.(string)
	return nil
}

func (f *fakeCacheStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.entries, key)
		f.dels++
	}
	return nil
}

func (f *fakeCacheStore) BalanceKey(userID string) string {
	return "cm:balance:" + userID
}

// countingService stubs the ledger service so cache tests can count
// how many times a fresh projection was computed.
type countingService struct {
	balance Balance
	err     error
	calls   int
}

func (s *countingService) Append(ctx context.Context, input AppendTransactionInput) (*models.LedgerTransaction, error) {
	return nil, errors.New("not implemented")
}

func (s *countingService) AppendWithTx(ctx context.Context, tx *gorm.DB, input AppendTransactionInput) (*models.LedgerTransaction, error) {
	return nil, errors.New("not implemented")
}

func (s *countingService) Project(ctx context.Context, userID uuid.UUID) (Balance, error) {
	s.calls++
	if s.err != nil {
		return Balance{}, s.err
	}
	return s.balance, nil
}

func (s *countingService) HasWithDescription(ctx context.Context, userID uuid.UUID, description string) (bool, error) {
	return false, nil
}

func (s *countingService) ListPage(ctx context.Context, userID uuid.UUID, limit int, before *models.LedgerTransaction) ([]models.LedgerTransaction, error) {
	return nil, nil
}

func TestCachedProjector_MissThenHit(t *testing.T) {
	userID := uuid.New()
	svc := &countingService{balance: Balance{
		Available: decimal.NewFromInt(75),
		Deposits:  decimal.NewFromInt(105),
		Purchases: decimal.NewFromInt(30),
	}}
	store := newFakeCacheStore()

	projector, err := NewCachedProjector(svc, store, nil, time.Minute)
	if err != nil {
		t.Fatalf("unexpected projector error: %v", err)
	}

	first, err := projector.Project(context.Background(), userID)
	if err != nil {
		t.Fatalf("Project error: %v", err)
	}
	if !first.Available.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("expected available 75, got %s", first.Available)
	}
	if svc.calls != 1 {
		t.Fatalf("expected one projection, got %d", svc.calls)
	}

	second, err := projector.Project(context.Background(), userID)
	if err != nil {
		t.Fatalf("Project error: %v", err)
	}
	if svc.calls != 1 {
		t.Fatalf("cache hit should not re-project, got %d calls", svc.calls)
	}
	if !second.Available.Equal(first.Available) {
		t.Fatalf("cached balance mismatch: %s vs %s", second.Available, first.Available)
	}
}

func TestCachedProjector_CacheErrorFallsThrough(t *testing.T) {
	svc := &countingService{balance: Balance{Available: decimal.NewFromInt(10)}}
	store := newFakeCacheStore()
	store.getErr = errors.New("connection refused")

	projector, err := NewCachedProjector(svc, store, nil, time.Minute)
	if err != nil {
		t.Fatalf("unexpected projector error: %v", err)
	}

	balance, err := projector.Project(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Project error: %v", err)
	}
	if !balance.Available.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected fresh projection, got %s", balance.Available)
	}
	if svc.calls != 1 {
		t.Fatalf("expected fallthrough projection, got %d calls", svc.calls)
	}
}

func TestCachedProjector_CorruptEntryDropsAndReprojects(t *testing.T) {
	userID := uuid.New()
	svc := &countingService{balance: Balance{Available: decimal.NewFromInt(42)}}
	store := newFakeCacheStore()
	store.entries[store.BalanceKey(userID.String())] = "{not json"

	projector, err := NewCachedProjector(svc, store, nil, time.Minute)
	if err != nil {
		t.Fatalf("unexpected projector error: %v", err)
	}

	balance, err := projector.Project(context.Background(), userID)
	if err != nil {
		t.Fatalf("Project error: %v", err)
	}
	if !balance.Available.Equal(decimal.NewFromInt(42)) {
		t.Fatalf("expected fresh projection, got %s", balance.Available)
	}
	var cached Balance
	if unmarshalErr := json.Unmarshal([]byte(store.entries[store.BalanceKey(userID.String())]), &cached); unmarshalErr != nil {
		t.Fatalf("corrupt entry should be replaced with a valid one: %v", unmarshalErr)
	}
}

func TestCachedProjector_ProjectionFailurePropagates(t *testing.T) {
	expectedErr := errors.New("storage down")
	svc := &countingService{err: expectedErr}
	store := newFakeCacheStore()

	projector, err := NewCachedProjector(svc, store, nil, time.Minute)
	if err != nil {
		t.Fatalf("unexpected projector error: %v", err)
	}

	if _, err := projector.Project(context.Background(), uuid.New()); !errors.Is(err, expectedErr) {
		t.Fatalf("expected projection error, got %v", err)
	}
	if store.sets != 0 {
		t.Fatalf("failed projection must not be cached")
	}
}

func TestCachedProjector_Invalidate(t *testing.T) {
	userID := uuid.New()
	svc := &countingService{balance: Balance{Available: decimal.NewFromInt(5)}}
	store := newFakeCacheStore()

	projector, err := NewCachedProjector(svc, store, nil, time.Minute)
	if err != nil {
		t.Fatalf("unexpected projector error: %v", err)
	}

	if _, err := projector.Project(context.Background(), userID); err != nil {
		t.Fatalf("Project error: %v", err)
	}
	if err := projector.Invalidate(context.Background(), userID); err != nil {
		t.Fatalf("Invalidate error: %v", err)
	}
	if _, ok := store.entries[store.BalanceKey(userID.String())]; ok {
		t.Fatal("expected cache entry to be removed")
	}
}
