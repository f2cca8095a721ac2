package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avelardo/cryptomart-backend/api/responses"
	"github.com/avelardo/cryptomart-backend/api/validators"
	"github.com/avelardo/cryptomart-backend/internal/earnings"
	pkgerrors "github.com/avelardo/cryptomart-backend/pkg/errors"
	"github.com/avelardo/cryptomart-backend/pkg/logger"
)

type earningDTO struct {
	ID          uuid.UUID       `json:"id"`
	PurchaseID  uuid.UUID       `json:"purchase_id"`
	Amount      decimal.Decimal `json:"amount"`
	DayNumber   int             `json:"day_number"`
	AccrualDate time.Time       `json:"accrual_date"`
}

type backfillRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
	Start  string    `json:"start" validate:"required"`
	End    string    `json:"end" validate:"required"`
}

// EarningsList returns the authenticated user's accrued daily earnings.
func EarningsList(repo earnings.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "earnings repository unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := repo.ListByUserID(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list earnings"))
			return
		}
		items := make([]earningDTO, 0, len(list))
		for _, e := range list {
			items = append(items, earningDTO{
				ID:          e.ID,
				PurchaseID:  e.PurchaseID,
				Amount:      e.Amount,
				DayNumber:   e.DayNumber,
				AccrualDate: e.AccrualDate,
			})
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

// AdminEarningsBackfill replays accrual for a user over a calendar range.
// Already-accrued days are skipped, so overlapping ranges are safe.
func AdminEarningsBackfill(svc earnings.Service, cache balanceInvalidator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "earnings service unavailable"))
			return
		}

		var body backfillRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		start, err := time.Parse("2006-01-02", body.Start)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid start date"))
			return
		}
		end, err := time.Parse("2006-01-02", body.End)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid end date"))
			return
		}
		if end.Before(start) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "end date precedes start date"))
			return
		}

		summary, err := svc.BackfillRange(r.Context(), body.UserID, start, end)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dropBalance(r.Context(), cache, body.UserID)
		responses.WriteSuccess(w, summary)
	}
}
