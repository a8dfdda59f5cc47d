package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	cartsvc "github.com/oscshop/storefront-backend/internal/cart"
	checkoutsvc "github.com/oscshop/storefront-backend/internal/checkout"
	"github.com/oscshop/storefront-backend/pkg/config"
	"github.com/oscshop/storefront-backend/pkg/db/models"
	"github.com/oscshop/storefront-backend/pkg/enums"
	"github.com/oscshop/storefront-backend/pkg/logger"
	"github.com/oscshop/storefront-backend/pkg/pagination"
	"github.com/oscshop/storefront-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubCartService struct{}

func (stubCartService) AddItem(ctx context.Context, token string, input cartsvc.ItemInput) (cartsvc.Snapshot, error) {
	return cartsvc.Snapshot{Token: token}, nil
}

func (stubCartService) RemoveItem(ctx context.Context, token, variantKey string) (cartsvc.Snapshot, error) {
	return cartsvc.Snapshot{Token: token}, nil
}

func (stubCartService) UpdateQuantity(ctx context.Context, token, variantKey string, quantity int) (cartsvc.Snapshot, error) {
	return cartsvc.Snapshot{Token: token}, nil
}

func (stubCartService) Clear(ctx context.Context, token string) error {
	return nil
}

func (stubCartService) Snapshot(ctx context.Context, token string) (cartsvc.Snapshot, error) {
	return cartsvc.Snapshot{Token: token}, nil
}

type stubCheckoutService struct{}

func (stubCheckoutService) CreateSession(ctx context.Context, input checkoutsvc.CreateSessionInput) (*checkoutsvc.CreateSessionResult, error) {
	return &checkoutsvc.CreateSessionResult{URL: "https://checkout.stripe.test/pay"}, nil
}

type stubOrdersService struct{}

func (stubOrdersService) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return &models.Order{ID: id, OrderNumber: "OSC-2026-0001", Status: enums.OrderStatusPending, Currency: enums.CurrencyUSD}, nil
}

func (stubOrdersService) GetByNumber(ctx context.Context, number string) (*models.Order, error) {
	return &models.Order{ID: uuid.New(), OrderNumber: number, Status: enums.OrderStatusPending, Currency: enums.CurrencyUSD}, nil
}

func (stubOrdersService) List(ctx context.Context, status *enums.OrderStatus, params pagination.Params) ([]models.Order, string, error) {
	return nil, "", nil
}

func (stubOrdersService) Transition(ctx context.Context, id uuid.UUID, to enums.OrderStatus) (*models.Order, error) {
	return &models.Order{ID: id, OrderNumber: "OSC-2026-0001", Status: to, Currency: enums.CurrencyUSD}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		(*redis.Client)(nil),
		stubCartService{},
		stubCheckoutService{},
		stubOrdersService{},
		nil, // stripe client; webhook handler rejects before use
		nil,
		nil,
	)
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp.Header().Get("X-OscShop-Env") != "test" {
		t.Fatalf("expected env header, got %q", resp.Header().Get("X-OscShop-Env"))
	}
}

func TestCartRouteMintsToken(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
	token := resp.Header().Get("X-Cart-Token")
	if token == "" {
		t.Fatal("expected a minted cart token header")
	}
	if _, err := uuid.Parse(token); err != nil {
		t.Fatalf("expected uuid cart token, got %q", token)
	}
}

func TestCartRouteEchoesProvidedToken(t *testing.T) {
	router := newTestRouter(testConfig())
	token := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("X-Cart-Token", token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := resp.Header().Get("X-Cart-Token"); got != token {
		t.Fatalf("expected token %q echoed, got %q", token, got)
	}
	if !strings.Contains(resp.Body.String(), token) {
		t.Fatalf("expected snapshot bound to token, body %s", resp.Body.String())
	}
}

func TestCheckoutRouteWired(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/session", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "https://checkout.stripe.test/pay") {
		t.Fatalf("expected redirect url in body, got %s", resp.Body.String())
	}
}

func TestAdminStatusRouteWired(t *testing.T) {
	router := newTestRouter(testConfig())
	body := strings.NewReader(`{"status":"shipped"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/orders/"+uuid.NewString()+"/status", body)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), `"shipped"`) {
		t.Fatalf("expected updated status in body, got %s", resp.Body.String())
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
