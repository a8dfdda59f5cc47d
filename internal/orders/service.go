package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oscshop/storefront-backend/pkg/db/models"
	"github.com/oscshop/storefront-backend/pkg/enums"
	pkgerrors "github.com/oscshop/storefront-backend/pkg/errors"
	"github.com/oscshop/storefront-backend/pkg/logger"
	"github.com/oscshop/storefront-backend/pkg/pagination"
)

// adminTargets are the transitions the back office may request. Payment
// outcomes (paid, and cancellation of a pending order) belong to the
// webhook alone.
var adminTargets = map[enums.OrderStatus]struct{}{
	enums.OrderStatusProcessing: {},
	enums.OrderStatusShipped:    {},
	enums.OrderStatusDelivered:  {},
	enums.OrderStatusCancelled:  {},
}

type orderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByOrderNumber(ctx context.Context, number string) (*models.Order, error)
	List(ctx context.Context, status *enums.OrderStatus, params pagination.Params) ([]models.Order, string, error)
	UpdateStatusIf(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, to enums.OrderStatus, updates map[string]any) (bool, error)
}

// Service exposes order reads and admin-issued transitions.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByNumber(ctx context.Context, number string) (*models.Order, error)
	List(ctx context.Context, status *enums.OrderStatus, params pagination.Params) ([]models.Order, string, error)
	Transition(ctx context.Context, id uuid.UUID, to enums.OrderStatus) (*models.Order, error)
}

// ServiceParams wires the order service dependencies.
type ServiceParams struct {
	Repo   orderRepository
	Logger *logger.Logger
}

type service struct {
	repo orderRepository
	logg *logger.Logger
}

// NewService builds the order service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repo required")
	}
	return &service{repo: params.Repo, logg: params.Logger}, nil
}

// Get fetches one order with its items.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// GetByNumber fetches one order by its human-readable number.
func (s *service) GetByNumber(ctx context.Context, number string) (*models.Order, error) {
	if number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number is required")
	}
	order, err := s.repo.FindByOrderNumber(ctx, number)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// List returns orders newest first, optionally filtered by status.
func (s *service) List(ctx context.Context, status *enums.OrderStatus, params pagination.Params) ([]models.Order, string, error) {
	if status != nil && !status.IsValid() {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	rows, next, err := s.repo.List(ctx, status, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return rows, next, nil
}

// Transition applies an admin-issued status change. Legality is checked
// only against the transition table; the conditional write makes the
// operation safe under races. Admin writes never touch paid_at or the
// payment references.
func (s *service) Transition(ctx context.Context, id uuid.UUID, to enums.OrderStatus) (*models.Order, error) {
	if _, ok := adminTargets[to]; !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("status %q is not an admin transition", to))
	}

	updates := map[string]any{}
	now := time.Now().UTC()
	switch to {
	case enums.OrderStatusShipped:
		updates["shipped_at"] = &now
	case enums.OrderStatusDelivered:
		updates["delivered_at"] = &now
	case enums.OrderStatusCancelled:
		updates["cancelled_at"] = &now
	}

	updated, err := s.repo.UpdateStatusIf(ctx, id, enums.AdmissibleFrom(to), to, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}

	order, findErr := s.repo.FindByID(ctx, id)
	if findErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	if !updated {
		if order.Status == to {
			// Replay of the same transition is a harmless no-op.
			return order, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move order from %q to %q", order.Status, to))
	}

	if s.logg != nil {
		ctx = s.logg.WithOrderID(ctx, id.String())
		ctx = s.logg.WithField(ctx, "status", to.String())
		s.logg.Info(ctx, "orders.status_changed")
	}
	return order, nil
}
