package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/oscshop/storefront-backend/api/middleware"
	cartsvc "github.com/oscshop/storefront-backend/internal/cart"
	pkgerrors "github.com/oscshop/storefront-backend/pkg/errors"
)

type stubCartService struct {
	snapshot cartsvc.Snapshot
	err      error

	addedToken string
	addedInput cartsvc.ItemInput
	cleared    []string
}

func (s *stubCartService) AddItem(ctx context.Context, token string, input cartsvc.ItemInput) (cartsvc.Snapshot, error) {
	s.addedToken = token
	s.addedInput = input
	return s.snapshot, s.err
}

func (s *stubCartService) RemoveItem(ctx context.Context, token, variantKey string) (cartsvc.Snapshot, error) {
	return s.snapshot, s.err
}

func (s *stubCartService) UpdateQuantity(ctx context.Context, token, variantKey string, quantity int) (cartsvc.Snapshot, error) {
	return s.snapshot, s.err
}

func (s *stubCartService) Clear(ctx context.Context, token string) error {
	s.cleared = append(s.cleared, token)
	return s.err
}

func (s *stubCartService) Snapshot(ctx context.Context, token string) (cartsvc.Snapshot, error) {
	return s.snapshot, s.err
}

func cartRequest(method, target, body, token string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	return req.WithContext(middleware.WithCartToken(req.Context(), token))
}

func TestCartAddItemSuccess(t *testing.T) {
	svc := &stubCartService{
		snapshot: cartsvc.Snapshot{
			Token: "tok-1",
			Items: []cartsvc.Item{
				{Name: "Canvas Tote", UnitPriceCents: 2999, Quantity: 2},
			},
			Totals: cartsvc.Totals{SubtotalCents: 5998, ShippingCents: 0, TotalCents: 5998},
		},
	}
	handler := CartAddItem(svc, nil)

	body := `{"name":"Canvas Tote","unit_price_cents":2999,"quantity":2}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, cartRequest(http.MethodPost, "/api/v1/cart/items", body, "tok-1"))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.addedToken != "tok-1" {
		t.Fatalf("expected cart token to reach the service, got %q", svc.addedToken)
	}
	if svc.addedInput.Quantity != 2 || svc.addedInput.UnitPriceCents != 2999 {
		t.Fatalf("unexpected input forwarded: %+v", svc.addedInput)
	}

	var envelope struct {
		Data cartResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Token != "tok-1" {
		t.Fatalf("unexpected token: %q", envelope.Data.Token)
	}
	if envelope.Data.TotalCents != 5998 {
		t.Fatalf("unexpected total: %d", envelope.Data.TotalCents)
	}
	if len(envelope.Data.Items) != 1 || envelope.Data.Items[0].LineTotalCents != 5998 {
		t.Fatalf("unexpected items: %+v", envelope.Data.Items)
	}
}

func TestCartAddItemRejectsMissingName(t *testing.T) {
	svc := &stubCartService{}
	handler := CartAddItem(svc, nil)

	body := `{"unit_price_cents":2999,"quantity":1}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, cartRequest(http.MethodPost, "/api/v1/cart/items", body, "tok-1"))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.addedToken != "" {
		t.Fatal("service should not be called on validation failure")
	}
}

func TestCartUpdateItemRejectsMissingVariantKey(t *testing.T) {
	handler := CartUpdateItem(&stubCartService{}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, cartRequest(http.MethodPatch, "/api/v1/cart/items", `{"quantity":3}`, "tok-1"))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartGetMapsServiceError(t *testing.T) {
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeDependency, "redis unavailable")}
	handler := CartGet(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, cartRequest(http.MethodGet, "/api/v1/cart", "", "tok-1"))

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestCartClearUsesContextToken(t *testing.T) {
	svc := &stubCartService{}
	handler := CartClear(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, cartRequest(http.MethodDelete, "/api/v1/cart", "", "tok-9"))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if len(svc.cleared) != 1 || svc.cleared[0] != "tok-9" {
		t.Fatalf("expected clear for tok-9, got %v", svc.cleared)
	}
}
