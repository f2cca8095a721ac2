package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avelardo/cryptomart-backend/api/middleware"
	"github.com/avelardo/cryptomart-backend/internal/deposits"
	"github.com/avelardo/cryptomart-backend/pkg/db/models"
	"github.com/avelardo/cryptomart-backend/pkg/enums"
)

type stubDepositsService struct {
	reported deposits.ReportInput
	deposit  *models.Deposit
	err      error
}

func (s *stubDepositsService) Report(_ context.Context, input deposits.ReportInput) (*models.Deposit, error) {
	s.reported = input
	if s.err != nil {
		return nil, s.err
	}
	return s.deposit, nil
}

func (s *stubDepositsService) Confirm(context.Context, uuid.UUID) (*models.Deposit, error) {
	return s.deposit, s.err
}

func (s *stubDepositsService) Fail(context.Context, uuid.UUID) (*models.Deposit, error) {
	return s.deposit, s.err
}

func (s *stubDepositsService) ListByUserID(context.Context, uuid.UUID) ([]models.Deposit, error) {
	return nil, s.err
}

func TestDepositReport(t *testing.T) {
	userID := uuid.New()
	ref := "0xabc123"
	svc := &stubDepositsService{
		deposit: &models.Deposit{
			ID:          uuid.New(),
			UserID:      userID,
			Amount:      decimal.NewFromInt(50),
			Status:      enums.DepositStatusPending,
			TxReference: &ref,
			CreatedAt:   time.Now().UTC(),
		},
	}

	body := `{"amount":"50","tx_reference":"0xabc123"}`
	req := httptest.NewRequest(http.MethodPost, "/deposits", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	rec := httptest.NewRecorder()

	DepositReport(svc, nil)(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.reported.UserID != userID {
		t.Fatalf("expected user %s, got %s", userID, svc.reported.UserID)
	}
	if !svc.reported.Amount.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected amount 50, got %s", svc.reported.Amount)
	}
	if svc.reported.TxReference != "0xabc123" {
		t.Fatalf("expected tx reference to reach the service, got %q", svc.reported.TxReference)
	}

	var envelope struct {
		Data struct {
			ID          uuid.UUID `json:"id"`
			TxReference *string   `json:"tx_reference"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.TxReference == nil || *envelope.Data.TxReference != ref {
		t.Fatal("expected tx reference in the response body")
	}
}

func TestDepositReport_InvalidAmount(t *testing.T) {
	svc := &stubDepositsService{}

	req := httptest.NewRequest(http.MethodPost, "/deposits", strings.NewReader(`{"amount":"not-a-number"}`))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()

	DepositReport(svc, nil)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestDepositReport_MissingUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/deposits", strings.NewReader(`{"amount":"10"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	DepositReport(&stubDepositsService{}, nil)(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
