package users

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avelardo/cryptomart-backend/pkg/auth"
	"github.com/avelardo/cryptomart-backend/pkg/config"
	"github.com/avelardo/cryptomart-backend/pkg/db"
	"github.com/avelardo/cryptomart-backend/pkg/db/models"
	"github.com/avelardo/cryptomart-backend/pkg/enums"
	apperrors "github.com/avelardo/cryptomart-backend/pkg/errors"
	"github.com/avelardo/cryptomart-backend/pkg/logger"
	"github.com/avelardo/cryptomart-backend/pkg/security"
	"github.com/google/uuid"
)

const (
	referralCodeLength   = 8
	referralCodeAttempts = 5
	minPasswordLength    = 8
)

// store is the persistence surface the service needs; *Repository satisfies it.
type store interface {
	Create(ctx context.Context, dto CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByReferralCode(ctx context.Context, code string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdateWalletAddress(ctx context.Context, id uuid.UUID, address string) error
}

// RegisterInput is what a new member submits.
type RegisterInput struct {
	Email          string  `json:"email"`
	Password       string  `json:"password"`
	ReferredByCode *string `json:"referred_by_code,omitempty"`
	WalletAddress  *string `json:"wallet_address,omitempty"`
}

// LoginResult pairs the minted token with the authenticated user.
type LoginResult struct {
	Token string   `json:"token"`
	User  *UserDTO `json:"user"`
}

// Service covers registration, login and profile reads.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*UserDTO, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Get(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	SetWalletAddress(ctx context.Context, id uuid.UUID, address string) error
}

type service struct {
	repo     store
	password config.PasswordConfig
	jwt      config.JWTConfig
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the users service.
func NewService(repo store, password config.PasswordConfig, jwt config.JWTConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{
		repo:     repo,
		password: password,
		jwt:      jwt,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// Register creates a member with a fresh referral code. The referrer link is
// resolved at registration time and never changes afterwards.
func (s *service) Register(ctx context.Context, input RegisterInput) (*UserDTO, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "email is required")
	}
	if len(input.Password) < minPasswordLength {
		return nil, apperrors.New(apperrors.CodeValidation,
			fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	var referredBy *string
	if input.ReferredByCode != nil && *input.ReferredByCode != "" {
		referrer, err := s.repo.FindByReferralCode(ctx, *input.ReferredByCode)
		if err != nil {
			return nil, apperrors.New(apperrors.CodeValidation, "unknown referral code")
		}
		referredBy = &referrer.ReferralCode
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, apperrors.New(apperrors.CodeConflict, "email is already registered")
	}

	hash, err := security.HashPassword(input.Password, s.password)
	if err != nil {
		return nil, err
	}

	// retried because two registrations can draw the same code; the unique
	// index arbitrates and the loser just draws again
	var user *models.User
	for attempt := 0; attempt < referralCodeAttempts; attempt++ {
		code, err := security.GenerateReferralCode(referralCodeLength)
		if err != nil {
			return nil, err
		}
		user, err = s.repo.Create(ctx, CreateUserDTO{
			Email:         email,
			PasswordHash:  hash,
			Role:          enums.UserRoleMember,
			ReferralCode:  code,
			ReferredBy:    referredBy,
			WalletAddress: input.WalletAddress,
		})
		if err == nil {
			break
		}
		if !db.IsUniqueViolation(err) {
			return nil, err
		}
		user = nil
	}
	if user == nil {
		return nil, apperrors.New(apperrors.CodeConflict, "could not allocate a referral code")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "user registered")
	}
	return FromModel(user), nil
}

func (s *service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "email and password are required")
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "invalid credentials")
	}
	if !user.IsActive {
		return nil, apperrors.New(apperrors.CodeForbidden, "account is disabled")
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "invalid credentials")
	}

	now := s.now()
	token, err := auth.MintAccessToken(s.jwt, now, auth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithUserID(ctx, user.ID.String()), "failed to record last login")
	}
	user.LastLoginAt = &now

	return &LoginResult{Token: token, User: FromModel(user)}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	if id == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "user id is required")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeNotFound, err, "user not found")
	}
	return FromModel(user), nil
}

func (s *service) SetWalletAddress(ctx context.Context, id uuid.UUID, address string) error {
	if id == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "user id is required")
	}
	if address == "" {
		return apperrors.New(apperrors.CodeValidation, "wallet address is required")
	}
	return s.repo.UpdateWalletAddress(ctx, id, address)
}
