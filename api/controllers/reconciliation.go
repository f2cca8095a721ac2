package controllers

import (
	"net/http"

	"github.com/avelardo/cryptomart-backend/api/responses"
	"github.com/avelardo/cryptomart-backend/internal/reconciliation"
	pkgerrors "github.com/avelardo/cryptomart-backend/pkg/errors"
	"github.com/avelardo/cryptomart-backend/pkg/logger"
)

// AdminReconcile restores any ledger entries missing for one user's settled
// operations. Re-running it is a no-op when the ledger is already complete.
func AdminReconcile(svc reconciliation.Service, cache balanceInvalidator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciliation service unavailable"))
			return
		}

		userID, err := parseUUIDParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Reconcile(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reconcile ledger"))
			return
		}
		if summary.Created > 0 {
			dropBalance(r.Context(), cache, userID)
		}
		responses.WriteSuccess(w, summary)
	}
}
