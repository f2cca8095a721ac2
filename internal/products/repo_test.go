package products

import (
	"context"
	"testing"
	"time"

	"github.com/avelardo/cryptomart-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupProductsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  price TEXT NOT NULL,
  is_active BOOLEAN NOT NULL DEFAULT TRUE,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(products).Error)
	t.Cleanup(func() {
		db.Exec("DELETE FROM products")
	})
	return db
}

func newProduct(name string, price string, active bool, createdAt time.Time) *models.Product {
	return &models.Product{
		ID:        uuid.New(),
		Name:      name,
		Price:     decimal.RequireFromString(price),
		IsActive:  active,
		CreatedAt: createdAt,
	}
}

func TestRepositoryListActive_skipsInactive(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	older := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	require.NoError(t, repo.Create(ctx, newProduct("starter", "100", true, older)))
	require.NoError(t, repo.Create(ctx, newProduct("growth", "500", true, newer)))
	require.NoError(t, repo.Create(ctx, newProduct("retired", "50", false, newer)))

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)

	// newest first
	assert.Equal(t, "growth", active[0].Name)
	assert.Equal(t, "starter", active[1].Name)
}

func TestRepositoryFindActiveByID(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	product := newProduct("starter", "123.45678901", true, now)
	require.NoError(t, repo.Create(ctx, product))

	found, err := repo.FindActiveByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, product.ID, found.ID)
	assert.True(t, found.Price.Equal(decimal.RequireFromString("123.45678901")))
}

func TestRepositoryFindActiveByID_inactiveIsNotFound(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	retired := newProduct("retired", "50", false, time.Now().UTC())
	require.NoError(t, repo.Create(ctx, retired))

	_, err := repo.FindActiveByID(ctx, retired.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = repo.FindActiveByID(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
