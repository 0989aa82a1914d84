package cart

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/peakrent/peakrent-backend/api/middleware"
	cartsvc "github.com/peakrent/peakrent-backend/internal/cart"
	"github.com/peakrent/peakrent-backend/internal/pricing"
	pkgerrors "github.com/peakrent/peakrent-backend/pkg/errors"
	"github.com/peakrent/peakrent-backend/pkg/types"
)

type stubCartService struct {
	addReq   cartsvc.AddItemRequest
	itemID   uuid.UUID
	code     string
	address  types.Address
	applyErr error
}

func (s *stubCartService) Get(ctx context.Context, userID uuid.UUID) (*cartsvc.CartDTO, error) {
	return &cartsvc.CartDTO{}, nil
}

func (s *stubCartService) AddItem(ctx context.Context, userID uuid.UUID, req cartsvc.AddItemRequest) (*cartsvc.CartDTO, error) {
	s.addReq = req
	return &cartsvc.CartDTO{}, nil
}

func (s *stubCartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, req cartsvc.UpdateItemRequest) (*cartsvc.CartDTO, error) {
	s.itemID = itemID
	return &cartsvc.CartDTO{}, nil
}

func (s *stubCartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*cartsvc.CartDTO, error) {
	s.itemID = itemID
	return &cartsvc.CartDTO{}, nil
}

func (s *stubCartService) ApplyVoucher(ctx context.Context, userID uuid.UUID, code string) (*cartsvc.CartDTO, error) {
	s.code = code
	if s.applyErr != nil {
		return nil, s.applyErr
	}
	return &cartsvc.CartDTO{}, nil
}

func (s *stubCartService) RemoveVoucher(ctx context.Context, userID uuid.UUID) (*cartsvc.CartDTO, error) {
	return &cartsvc.CartDTO{}, nil
}

func (s *stubCartService) SetAddress(ctx context.Context, userID uuid.UUID, address types.Address) (*cartsvc.CartDTO, error) {
	s.address = address
	return &cartsvc.CartDTO{}, nil
}

func (s *stubCartService) Quote(ctx context.Context, userID uuid.UUID) (*pricing.Totals, error) {
	return &pricing.Totals{}, nil
}

func customerRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestAddItemDecodesWindow(t *testing.T) {
	svc := &stubCartService{}
	variantID := uuid.New()
	body := `{"variant_id":"` + variantID.String() + `","quantity":2,"starts_at":"2026-02-14T09:00:00Z","ends_at":"2026-02-16T09:00:00Z"}`

	rec := httptest.NewRecorder()
	AddItem(svc, nil).ServeHTTP(rec, customerRequest(http.MethodPost, "/api/v1/cart/items", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.addReq.VariantID != variantID || svc.addReq.Quantity != 2 {
		t.Fatalf("unexpected request %+v", svc.addReq)
	}
	if svc.addReq.StartsAt.Day() != 14 || svc.addReq.EndsAt.Day() != 16 {
		t.Fatalf("unexpected window %v - %v", svc.addReq.StartsAt, svc.addReq.EndsAt)
	}
}

func TestAddItemRejectsZeroQuantity(t *testing.T) {
	svc := &stubCartService{}
	body := `{"variant_id":"` + uuid.NewString() + `","quantity":0,"starts_at":"2026-02-14T09:00:00Z","ends_at":"2026-02-16T09:00:00Z"}`

	rec := httptest.NewRecorder()
	AddItem(svc, nil).ServeHTTP(rec, customerRequest(http.MethodPost, "/api/v1/cart/items", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestRemoveItemParsesPathID(t *testing.T) {
	svc := &stubCartService{}
	itemID := uuid.New()

	req := withURLParam(customerRequest(http.MethodDelete, "/api/v1/cart/items/"+itemID.String(), ""), "itemId", itemID.String())
	rec := httptest.NewRecorder()
	RemoveItem(svc, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.itemID != itemID {
		t.Fatalf("expected item %s got %s", itemID, svc.itemID)
	}

	req = withURLParam(customerRequest(http.MethodDelete, "/api/v1/cart/items/nope", ""), "itemId", "nope")
	rec = httptest.NewRecorder()
	RemoveItem(svc, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestApplyVoucherSurfacesNotApplicable(t *testing.T) {
	svc := &stubCartService{applyErr: pkgerrors.New(pkgerrors.CodeVoucherNotApplicable, "voucher has expired")}

	rec := httptest.NewRecorder()
	ApplyVoucher(svc, nil).ServeHTTP(rec, customerRequest(http.MethodPut, "/api/v1/cart/voucher", `{"code":"WINTER10"}`))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
	if svc.code != "WINTER10" {
		t.Fatalf("expected code forwarded, got %q", svc.code)
	}
}

func TestCartRequiresUser(t *testing.T) {
	rec := httptest.NewRecorder()
	Fetch(&stubCartService{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}
