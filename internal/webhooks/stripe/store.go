package stripewebhook

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oscshop/storefront-backend/internal/orders"
	"github.com/oscshop/storefront-backend/pkg/db/models"
	"github.com/oscshop/storefront-backend/pkg/enums"
)

// OrdersStore is the persistence surface reconciliation needs. The
// conditional status write is the only mutation primitive for existing
// rows, so idempotency under duplicate delivery is a storage property.
type OrdersStore interface {
	WithTx(tx *gorm.DB) OrdersStore
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Create(ctx context.Context, order *models.Order) error
	UpdateStatusIf(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, to enums.OrderStatus, updates map[string]any) (bool, error)
	CreateItemsIfAbsent(ctx context.Context, orderID uuid.UUID, items []models.OrderItem) (bool, error)
}

type ordersStore struct {
	repo *orders.Repository
}

// NewOrdersStore adapts the orders repository to the reconciliation surface.
func NewOrdersStore(repo *orders.Repository) OrdersStore {
	if repo == nil {
		return nil
	}
	return &ordersStore{repo: repo}
}

func (s *ordersStore) WithTx(tx *gorm.DB) OrdersStore {
	return &ordersStore{repo: s.repo.WithTx(tx)}
}

func (s *ordersStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *ordersStore) Create(ctx context.Context, order *models.Order) error {
	return s.repo.Create(ctx, order)
}

func (s *ordersStore) UpdateStatusIf(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, to enums.OrderStatus, updates map[string]any) (bool, error) {
	return s.repo.UpdateStatusIf(ctx, id, from, to, updates)
}

func (s *ordersStore) CreateItemsIfAbsent(ctx context.Context, orderID uuid.UUID, items []models.OrderItem) (bool, error) {
	return s.repo.CreateItemsIfAbsent(ctx, orderID, items)
}
