package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/avelardo/cryptomart-backend/pkg/enums"
)

// User represents the canonical identity entity. ReferredBy holds the
// referral code of the user who invited this one and never changes after
// registration, which keeps the referral chain acyclic.
type User struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email         string         `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash  string         `gorm:"column:password_hash;not null"`
	Role          enums.UserRole `gorm:"column:role;type:user_role_enum;not null;default:member"`
	ReferralCode  string         `gorm:"column:referral_code;type:text;not null;uniqueIndex"`
	ReferredBy    *string        `gorm:"column:referred_by;type:text"`
	WalletAddress *string        `gorm:"column:wallet_address;type:text"`
	IsActive      bool           `gorm:"column:is_active;not null;default:true"`
	LastLoginAt   *time.Time     `gorm:"column:last_login_at"`
	CreatedAt     time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
