package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/avelardo/cryptomart-backend/api/middleware"
	pkgerrors "github.com/avelardo/cryptomart-backend/pkg/errors"
)

// balanceInvalidator drops a user's cached balance after a ledger write.
type balanceInvalidator interface {
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

func currentUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}

// dropBalance is best effort; a failed cache invalidation never fails the request.
func dropBalance(ctx context.Context, cache balanceInvalidator, userID uuid.UUID) {
	if cache == nil {
		return
	}
	_ = cache.Invalidate(ctx, userID)
}
