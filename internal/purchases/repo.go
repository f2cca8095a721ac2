package purchases

import (
	"context"
	"time"

	"github.com/avelardo/cryptomart-backend/pkg/db/models"
	"github.com/avelardo/cryptomart-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages persistence for purchases.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, purchase *models.Purchase) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error)
	ListCompleted(ctx context.Context) ([]models.Purchase, error)
	ListCompletedByUserID(ctx context.Context, userID uuid.UUID) ([]models.Purchase, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.Purchase, error)
	// AdvanceLastValidatedAt moves last_validated_at forward. Updates that
	// would move it backwards are filtered out in the WHERE clause, so
	// concurrent validators can race without regressing the column.
	AdvanceLastValidatedAt(ctx context.Context, id uuid.UUID, validatedAt time.Time) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.PurchaseStatus) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a purchases repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, purchase *models.Purchase) error {
	return r.db.WithContext(ctx).Create(purchase).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	if err := r.db.WithContext(ctx).First(&purchase, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *repository) ListCompleted(ctx context.Context) ([]models.Purchase, error) {
	var purchases []models.Purchase
	if err := r.db.WithContext(ctx).
		Where("status = ?", enums.PurchaseStatusCompleted).
		Order("created_at ASC").
		Find(&purchases).Error; err != nil {
		return nil, err
	}
	return purchases, nil
}

func (r *repository) ListCompletedByUserID(ctx context.Context, userID uuid.UUID) ([]models.Purchase, error) {
	var purchases []models.Purchase
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, enums.PurchaseStatusCompleted).
		Order("created_at ASC").
		Find(&purchases).Error; err != nil {
		return nil, err
	}
	return purchases, nil
}

func (r *repository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.Purchase, error) {
	var purchases []models.Purchase
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&purchases).Error; err != nil {
		return nil, err
	}
	return purchases, nil
}

func (r *repository) AdvanceLastValidatedAt(ctx context.Context, id uuid.UUID, validatedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("id = ? AND (last_validated_at IS NULL OR last_validated_at < ?)", id, validatedAt).
		Update("last_validated_at", validatedAt).Error
}

// UpdateStatus transitions the purchase only when it is still in the expected
// state. The returned bool reports whether a row changed.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.PurchaseStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
