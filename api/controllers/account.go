package controllers

import (
	"net/http"

	"github.com/avelardo/cryptomart-backend/api/responses"
	"github.com/avelardo/cryptomart-backend/api/validators"
	"github.com/avelardo/cryptomart-backend/internal/affiliate"
	"github.com/avelardo/cryptomart-backend/internal/users"
	pkgerrors "github.com/avelardo/cryptomart-backend/pkg/errors"
	"github.com/avelardo/cryptomart-backend/pkg/logger"
)

type walletRequest struct {
	WalletAddress string `json:"wallet_address" validate:"required,min=16,max=128"`
}

// AccountProfile returns the authenticated user's profile.
func AccountProfile(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]*users.UserDTO{"user": user})
	}
}

// AccountSetWallet updates the payout wallet address.
func AccountSetWallet(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body walletRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetWalletAddress(r.Context(), userID, body.WalletAddress); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "updated"})
	}
}

// ReferralStats surfaces the authenticated user's referral network earnings.
func ReferralStats(svc affiliate.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "affiliate service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stats, err := svc.StatsForUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load referral stats"))
			return
		}
		responses.WriteSuccess(w, stats)
	}
}
