package affiliate

import (
	"context"

	"github.com/avelardo/cryptomart-backend/pkg/db"
	"github.com/avelardo/cryptomart-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LevelTotal is one row of a beneficiary's per-level commission aggregate.
type LevelTotal struct {
	Level int             `json:"level"`
	Count int64           `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// Repository manages persistence for affiliate commissions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// Insert writes the commission unless one already exists for the same
	// purchase, level and beneficiary. A false return with nil error means
	// this level already paid out.
	Insert(ctx context.Context, commission *models.Commission) (bool, error)
	ListByBeneficiary(ctx context.Context, userID uuid.UUID) ([]models.Commission, error)
	TotalsByBeneficiary(ctx context.Context, userID uuid.UUID) ([]LevelTotal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a commissions repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, commission *models.Commission) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(commission)
	if result.Error != nil {
		if db.IsUniqueViolation(result.Error) {
			return false, nil
		}
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) ListByBeneficiary(ctx context.Context, userID uuid.UUID) ([]models.Commission, error) {
	var commissions []models.Commission
	if err := r.db.WithContext(ctx).
		Where("beneficiary_user_id = ?", userID).
		Order("created_at DESC").
		Find(&commissions).Error; err != nil {
		return nil, err
	}
	return commissions, nil
}

func (r *repository) TotalsByBeneficiary(ctx context.Context, userID uuid.UUID) ([]LevelTotal, error) {
	var totals []LevelTotal
	if err := r.db.WithContext(ctx).
		Model(&models.Commission{}).
		Select("level, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total").
		Where("beneficiary_user_id = ?", userID).
		Group("level").
		Order("level ASC").
		Scan(&totals).Error; err != nil {
		return nil, err
	}
	return totals, nil
}
