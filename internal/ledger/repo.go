package ledger

import (
	"context"

	"github.com/avelardo/cryptomart-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages persistence for ledger transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, txn *models.LedgerTransaction) error
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.LedgerTransaction, error)
	ExistsByUserAndDescription(ctx context.Context, userID uuid.UUID, description string) (bool, error)
	ListPageByUserID(ctx context.Context, userID uuid.UUID, limit int, before *models.LedgerTransaction) ([]models.LedgerTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, txn *models.LedgerTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.LedgerTransaction, error) {
	var txns []models.LedgerTransaction
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repository) ExistsByUserAndDescription(ctx context.Context, userID uuid.UUID, description string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.LedgerTransaction{}).
		Where("user_id = ? AND description = ?", userID, description).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ListPageByUserID(ctx context.Context, userID uuid.UUID, limit int, before *models.LedgerTransaction) ([]models.LedgerTransaction, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit)
	if before != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			before.CreatedAt, before.CreatedAt, before.ID,
		)
	}
	var txns []models.LedgerTransaction
	if err := query.Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}
