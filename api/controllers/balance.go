package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avelardo/cryptomart-backend/api/responses"
	"github.com/avelardo/cryptomart-backend/api/validators"
	"github.com/avelardo/cryptomart-backend/internal/ledger"
	"github.com/avelardo/cryptomart-backend/pkg/db/models"
	"github.com/avelardo/cryptomart-backend/pkg/enums"
	pkgerrors "github.com/avelardo/cryptomart-backend/pkg/errors"
	"github.com/avelardo/cryptomart-backend/pkg/logger"
	"github.com/avelardo/cryptomart-backend/pkg/pagination"
	"github.com/shopspring/decimal"
)

// balanceProjector folds the ledger into a balance, possibly through a cache.
type balanceProjector interface {
	Project(ctx context.Context, userID uuid.UUID) (ledger.Balance, error)
}

type ledgerEntryDTO struct {
	ID          uuid.UUID                   `json:"id"`
	Amount      decimal.Decimal             `json:"amount"`
	Kind        enums.LedgerTransactionKind `json:"kind"`
	Description string                      `json:"description"`
	CreatedAt   time.Time                   `json:"created_at"`
}

type ledgerHistoryDTO struct {
	Items      []ledgerEntryDTO `json:"items"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// Balance returns the authenticated user's projected balance.
func Balance(projector balanceProjector, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if projector == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "balance projector unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := projector.Project(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "project balance"))
			return
		}
		responses.WriteSuccess(w, balance)
	}
}

// LedgerHistory pages through the user's ledger newest first.
func LedgerHistory(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cursor, err := pagination.ParseCursor(strings.TrimSpace(r.URL.Query().Get("cursor")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor"))
			return
		}
		var before *models.LedgerTransaction
		if cursor != nil {
			before = &models.LedgerTransaction{ID: cursor.ID, CreatedAt: cursor.CreatedAt}
		}

		entries, err := svc.ListPage(r.Context(), userID, pagination.LimitWithBuffer(limit), before)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger"))
			return
		}

		page := ledgerHistoryDTO{Items: make([]ledgerEntryDTO, 0, len(entries))}
		normalized := pagination.NormalizeLimit(limit)
		hasMore := len(entries) > normalized
		if hasMore {
			entries = entries[:normalized]
		}
		for _, entry := range entries {
			page.Items = append(page.Items, ledgerEntryDTO{
				ID:          entry.ID,
				Amount:      entry.Amount,
				Kind:        entry.Kind,
				Description: entry.Description,
				CreatedAt:   entry.CreatedAt,
			})
		}
		if hasMore && len(entries) > 0 {
			last := entries[len(entries)-1]
			page.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		}

		responses.WriteSuccess(w, page)
	}
}
