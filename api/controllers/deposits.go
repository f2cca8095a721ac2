package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avelardo/cryptomart-backend/api/responses"
	"github.com/avelardo/cryptomart-backend/api/validators"
	"github.com/avelardo/cryptomart-backend/internal/deposits"
	"github.com/avelardo/cryptomart-backend/pkg/db/models"
	"github.com/avelardo/cryptomart-backend/pkg/enums"
	pkgerrors "github.com/avelardo/cryptomart-backend/pkg/errors"
	"github.com/avelardo/cryptomart-backend/pkg/logger"
)

type reportDepositRequest struct {
	Amount      string `json:"amount" validate:"required"`
	TxReference string `json:"tx_reference" validate:"omitempty,max=128"`
}

type depositDTO struct {
	ID          uuid.UUID           `json:"id"`
	Amount      decimal.Decimal     `json:"amount"`
	Status      enums.DepositStatus `json:"status"`
	TxReference *string             `json:"tx_reference,omitempty"`
	ConfirmedAt *time.Time          `json:"confirmed_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

func toDepositDTO(d *models.Deposit) depositDTO {
	return depositDTO{
		ID:          d.ID,
		Amount:      d.Amount,
		Status:      d.Status,
		TxReference: d.TxReference,
		ConfirmedAt: d.ConfirmedAt,
		CreatedAt:   d.CreatedAt,
	}
}

// DepositReport records an incoming on-chain transfer as pending.
func DepositReport(svc deposits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deposits service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body reportDepositRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := decimal.NewFromString(body.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount"))
			return
		}

		input := deposits.ReportInput{
			UserID:      userID,
			Amount:      amount,
			TxReference: body.TxReference,
		}

		deposit, err := svc.Report(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toDepositDTO(deposit))
	}
}

// DepositList returns the authenticated user's deposits.
func DepositList(svc deposits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deposits service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListByUserID(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list deposits"))
			return
		}
		items := make([]depositDTO, 0, len(list))
		for i := range list {
			items = append(items, toDepositDTO(&list[i]))
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

// AdminDepositConfirm settles a pending deposit and credits the ledger.
func AdminDepositConfirm(svc deposits.Service, cache balanceInvalidator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deposits service unavailable"))
			return
		}

		depositID, err := parseUUIDParam(r, "depositId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		deposit, err := svc.Confirm(r.Context(), depositID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dropBalance(r.Context(), cache, deposit.UserID)
		responses.WriteSuccess(w, toDepositDTO(deposit))
	}
}

// AdminDepositFail marks a pending deposit as failed without crediting.
func AdminDepositFail(svc deposits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deposits service unavailable"))
			return
		}

		depositID, err := parseUUIDParam(r, "depositId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		deposit, err := svc.Fail(r.Context(), depositID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toDepositDTO(deposit))
	}
}
