package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avelardo/cryptomart-backend/api/responses"
	"github.com/avelardo/cryptomart-backend/api/validators"
	"github.com/avelardo/cryptomart-backend/internal/withdrawals"
	"github.com/avelardo/cryptomart-backend/pkg/db/models"
	"github.com/avelardo/cryptomart-backend/pkg/enums"
	pkgerrors "github.com/avelardo/cryptomart-backend/pkg/errors"
	"github.com/avelardo/cryptomart-backend/pkg/logger"
)

type withdrawalRequestBody struct {
	Amount        string `json:"amount" validate:"required"`
	WalletAddress string `json:"wallet_address" validate:"required,min=16,max=128"`
}

type withdrawalDTO struct {
	ID            uuid.UUID              `json:"id"`
	Amount        decimal.Decimal        `json:"amount"`
	Fee           decimal.Decimal        `json:"fee"`
	NetAmount     decimal.Decimal        `json:"net_amount"`
	WalletAddress string                 `json:"wallet_address"`
	Status        enums.WithdrawalStatus `json:"status"`
	DecidedAt     *time.Time             `json:"decided_at,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

func toWithdrawalDTO(wr *models.WithdrawalRequest) withdrawalDTO {
	return withdrawalDTO{
		ID:            wr.ID,
		Amount:        wr.Amount,
		Fee:           wr.Fee,
		NetAmount:     wr.NetAmount,
		WalletAddress: wr.WalletAddress,
		Status:        wr.Status,
		DecidedAt:     wr.DecidedAt,
		CreatedAt:     wr.CreatedAt,
	}
}

// WithdrawalPolicyToday exposes the current day's withdrawal band.
func WithdrawalPolicyToday(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawals service unavailable"))
			return
		}
		responses.WriteSuccess(w, svc.PolicyForToday(r.Context()))
	}
}

// WithdrawalRequest creates a pending withdrawal inside today's policy band.
func WithdrawalRequest(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawals service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body withdrawalRequestBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := decimal.NewFromString(body.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount"))
			return
		}

		request, err := svc.Request(r.Context(), withdrawals.RequestInput{
			UserID:        userID,
			Amount:        amount,
			WalletAddress: body.WalletAddress,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toWithdrawalDTO(request))
	}
}

// WithdrawalList returns the authenticated user's withdrawal requests.
func WithdrawalList(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawals service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListByUserID(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list withdrawals"))
			return
		}
		items := make([]withdrawalDTO, 0, len(list))
		for i := range list {
			items = append(items, toWithdrawalDTO(&list[i]))
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

// AdminWithdrawalApprove settles a pending withdrawal, debiting the ledger
// only if the balance still covers the amount at decision time.
func AdminWithdrawalApprove(svc withdrawals.Service, cache balanceInvalidator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawals service unavailable"))
			return
		}

		withdrawalID, err := parseUUIDParam(r, "withdrawalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.Approve(r.Context(), withdrawalID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dropBalance(r.Context(), cache, request.UserID)
		responses.WriteSuccess(w, toWithdrawalDTO(request))
	}
}

// AdminWithdrawalReject declines a pending withdrawal without touching the ledger.
func AdminWithdrawalReject(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawals service unavailable"))
			return
		}

		withdrawalID, err := parseUUIDParam(r, "withdrawalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.Reject(r.Context(), withdrawalID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toWithdrawalDTO(request))
	}
}
