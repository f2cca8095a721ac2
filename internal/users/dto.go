package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/avelardo/cryptomart-backend/pkg/db/models"
	"github.com/avelardo/cryptomart-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID            uuid.UUID      `json:"id"`
	Email         string         `json:"email"`
	Role          enums.UserRole `json:"role"`
	ReferralCode  string         `json:"referral_code"`
	ReferredBy    *string        `json:"referred_by,omitempty"`
	WalletAddress *string        `json:"wallet_address,omitempty"`
	IsActive      bool           `json:"is_active"`
	LastLoginAt   *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email         string
	PasswordHash  string
	Role          enums.UserRole
	ReferralCode  string
	ReferredBy    *string
	WalletAddress *string
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:            u.ID,
		Email:         u.Email,
		Role:          u.Role,
		ReferralCode:  u.ReferralCode,
		ReferredBy:    u.ReferredBy,
		WalletAddress: u.WalletAddress,
		IsActive:      u.IsActive,
		LastLoginAt:   u.LastLoginAt,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if role == "" {
		role = enums.UserRoleMember
	}
	return &models.User{
		Email:         c.Email,
		PasswordHash:  c.PasswordHash,
		Role:          role,
		ReferralCode:  c.ReferralCode,
		ReferredBy:    c.ReferredBy,
		WalletAddress: c.WalletAddress,
		IsActive:      true,
	}
}
