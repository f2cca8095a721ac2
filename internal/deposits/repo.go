package deposits

import (
	"context"
	"time"

	"github.com/avelardo/cryptomart-backend/pkg/db/models"
	"github.com/avelardo/cryptomart-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages persistence for deposits.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, deposit *models.Deposit) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Deposit, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.Deposit, error)
	ListConfirmedByUserID(ctx context.Context, userID uuid.UUID) ([]models.Deposit, error)
	// Transition moves the deposit between statuses only when it is still in
	// the expected one. The bool reports whether the row actually changed.
	Transition(ctx context.Context, id uuid.UUID, from, to enums.DepositStatus, confirmedAt *time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a deposits repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, deposit *models.Deposit) error {
	return r.db.WithContext(ctx).Create(deposit).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Deposit, error) {
	var deposit models.Deposit
	if err := r.db.WithContext(ctx).First(&deposit, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &deposit, nil
}

func (r *repository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.Deposit, error) {
	var deposits []models.Deposit
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&deposits).Error; err != nil {
		return nil, err
	}
	return deposits, nil
}

func (r *repository) ListConfirmedByUserID(ctx context.Context, userID uuid.UUID) ([]models.Deposit, error) {
	var deposits []models.Deposit
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, enums.DepositStatusConfirmed).
		Order("created_at ASC").
		Find(&deposits).Error; err != nil {
		return nil, err
	}
	return deposits, nil
}

func (r *repository) Transition(ctx context.Context, id uuid.UUID, from, to enums.DepositStatus, confirmedAt *time.Time) (bool, error) {
	updates := map[string]any{"status": to}
	if confirmedAt != nil {
		updates["confirmed_at"] = *confirmedAt
	}
	result := r.db.WithContext(ctx).
		Model(&models.Deposit{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
