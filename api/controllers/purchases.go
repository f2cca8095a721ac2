package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avelardo/cryptomart-backend/api/responses"
	"github.com/avelardo/cryptomart-backend/api/validators"
	"github.com/avelardo/cryptomart-backend/internal/affiliate"
	"github.com/avelardo/cryptomart-backend/internal/earnings"
	"github.com/avelardo/cryptomart-backend/internal/purchases"
	"github.com/avelardo/cryptomart-backend/pkg/db/models"
	"github.com/avelardo/cryptomart-backend/pkg/enums"
	pkgerrors "github.com/avelardo/cryptomart-backend/pkg/errors"
	"github.com/avelardo/cryptomart-backend/pkg/logger"
)

type checkoutRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
}

type purchaseDTO struct {
	ID              uuid.UUID            `json:"id"`
	ProductID       uuid.UUID            `json:"product_id"`
	Amount          decimal.Decimal      `json:"amount"`
	Status          enums.PurchaseStatus `json:"status"`
	LastValidatedAt *time.Time           `json:"last_validated_at,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
}

func toPurchaseDTO(p *models.Purchase) purchaseDTO {
	return purchaseDTO{
		ID:              p.ID,
		ProductID:       p.ProductID,
		Amount:          p.Amount,
		Status:          p.Status,
		LastValidatedAt: p.LastValidatedAt,
		CreatedAt:       p.CreatedAt,
	}
}

// PurchaseCheckout debits the buyer and fans commissions up the referral chain.
// The cascade is idempotent, so a partial failure after the purchase settles is
// retried by the next reconciliation pass rather than failing the checkout.
func PurchaseCheckout(svc purchases.Service, cascade affiliate.Service, cache balanceInvalidator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchases service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body checkoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		purchase, err := svc.Checkout(r.Context(), userID, body.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dropBalance(r.Context(), cache, userID)

		if cascade != nil {
			if _, err := cascade.CascadeForPurchase(r.Context(), *purchase); err != nil && logg != nil {
				logg.Error(logg.WithPurchaseID(r.Context(), purchase.ID.String()), "commission cascade incomplete", err)
			}
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toPurchaseDTO(purchase))
	}
}

// PurchaseList returns the authenticated user's purchases.
func PurchaseList(svc purchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchases service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListByUserID(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchases"))
			return
		}

		items := make([]purchaseDTO, 0, len(list))
		for i := range list {
			items = append(items, toPurchaseDTO(&list[i]))
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

// PurchaseDetail returns one purchase after checking ownership.
func PurchaseDetail(svc purchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchases service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		purchaseID, err := parseUUIDParam(r, "purchaseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		purchase, err := svc.FindByID(r.Context(), purchaseID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if purchase.UserID != userID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found"))
			return
		}
		responses.WriteSuccess(w, toPurchaseDTO(purchase))
	}
}

// PurchaseValidate triggers the day's accrual for one purchase on demand.
func PurchaseValidate(svc purchases.Service, cache balanceInvalidator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchases service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		purchaseID, err := parseUUIDParam(r, "purchaseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Validate(r.Context(), userID, purchaseID, time.Now().UTC())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if result.Outcome == earnings.OutcomeAccrued {
			dropBalance(r.Context(), cache, userID)
		}
		responses.WriteSuccess(w, result)
	}
}
