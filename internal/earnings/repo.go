package earnings

import (
	"context"

	"github.com/avelardo/cryptomart-backend/pkg/db"
	"github.com/avelardo/cryptomart-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository manages persistence for daily earning accruals.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// Insert writes the earning unless one already exists for the same
	// purchase and accrual date. It reports whether a row was inserted;
	// a false return with nil error means the day had already accrued.
	Insert(ctx context.Context, earning *models.Earning) (bool, error)
	CountByPurchaseID(ctx context.Context, purchaseID uuid.UUID) (int64, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.Earning, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an earnings repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, earning *models.Earning) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(earning)
	if result.Error != nil {
		if db.IsUniqueViolation(result.Error) {
			return false, nil
		}
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) CountByPurchaseID(ctx context.Context, purchaseID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Earning{}).
		Where("purchase_id = ?", purchaseID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.Earning, error) {
	var earnings []models.Earning
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("accrual_date ASC").
		Find(&earnings).Error; err != nil {
		return nil, err
	}
	return earnings, nil
}
