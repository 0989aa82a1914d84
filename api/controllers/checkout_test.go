package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/peakrent/peakrent-backend/api/middleware"
	checkoutsvc "github.com/peakrent/peakrent-backend/internal/checkout"
	"github.com/peakrent/peakrent-backend/internal/orders"
	"github.com/peakrent/peakrent-backend/pkg/enums"
	pkgerrors "github.com/peakrent/peakrent-backend/pkg/errors"
)

type stubCheckoutService struct {
	result *checkoutsvc.Result
	err    error

	gotUser uuid.UUID
	gotReq  checkoutsvc.Request
}

func (s *stubCheckoutService) Checkout(ctx context.Context, userID uuid.UUID, req checkoutsvc.Request) (*checkoutsvc.Result, error) {
	s.gotUser = userID
	s.gotReq = req
	return s.result, s.err
}

func withUser(req *http.Request, userID uuid.UUID) *http.Request {
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithRole(ctx, string(enums.UserRoleCustomer))
	return req.WithContext(ctx)
}

func TestCheckoutCreatesOrder(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	svc := &stubCheckoutService{result: &checkoutsvc.Result{
		Order: orders.OrderDTO{
			ID:            uuid.New(),
			Reference:     "PR-20260214-AB12CD",
			Status:        enums.OrderStatusPending,
			ChargedAmount: 14400,
		},
		RequiresPayment: true,
		ClientSecret:    "pi_123_secret",
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{"reference":"MY-REF-1"}`))
	req = withUser(req, userID)
	rec := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.gotUser != userID {
		t.Fatalf("expected user %s got %s", userID, svc.gotUser)
	}
	if svc.gotReq.Reference != "MY-REF-1" {
		t.Fatalf("expected reference forwarded, got %q", svc.gotReq.Reference)
	}

	var body struct {
		Data struct {
			Order struct {
				Status        string `json:"status"`
				ChargedAmount int64  `json:"charged_amount"`
			} `json:"order"`
			ClientSecret string `json:"client_secret"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Data.Order.Status != "pending" || body.Data.Order.ChargedAmount != 14400 {
		t.Fatalf("unexpected order payload %+v", body.Data.Order)
	}
	if body.Data.ClientSecret != "pi_123_secret" {
		t.Fatalf("expected client secret, got %q", body.Data.ClientSecret)
	}
}

func TestCheckoutAcceptsEmptyBody(t *testing.T) {
	t.Parallel()

	svc := &stubCheckoutService{result: &checkoutsvc.Result{}}
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil), uuid.New())
	rec := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.gotReq.Reference != "" {
		t.Fatalf("expected no reference, got %q", svc.gotReq.Reference)
	}
}

func TestCheckoutRequiresUser(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	rec := httptest.NewRecorder()
	Checkout(&stubCheckoutService{}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestCheckoutSurfacesStateConflict(t *testing.T) {
	t.Parallel()

	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")}
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil), uuid.New())
	rec := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "cart is empty") {
		t.Fatalf("expected message in body, got %s", rec.Body.String())
	}
}

func TestCheckoutRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	svc := &stubCheckoutService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{"total":0}`))
	req = withUser(req, uuid.New())
	rec := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if svc.gotUser != uuid.Nil {
		t.Fatalf("service should not be called")
	}
}
