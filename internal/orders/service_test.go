package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oscshop/storefront-backend/pkg/db/models"
	"github.com/oscshop/storefront-backend/pkg/enums"
	pkgerrors "github.com/oscshop/storefront-backend/pkg/errors"
	"github.com/oscshop/storefront-backend/pkg/pagination"
)

type stubRepo struct {
	order       *models.Order
	casResult   bool
	lastFrom    []enums.OrderStatus
	lastTo      enums.OrderStatus
	lastUpdates map[string]any
}

func (s *stubRepo) FindByID(context.Context, uuid.UUID) (*models.Order, error) {
	return s.order, nil
}

func (s *stubRepo) FindByOrderNumber(context.Context, string) (*models.Order, error) {
	return s.order, nil
}

func (s *stubRepo) List(context.Context, *enums.OrderStatus, pagination.Params) ([]models.Order, string, error) {
	if s.order == nil {
		return nil, "", nil
	}
	return []models.Order{*s.order}, "", nil
}

func (s *stubRepo) UpdateStatusIf(_ context.Context, _ uuid.UUID, from []enums.OrderStatus, to enums.OrderStatus, updates map[string]any) (bool, error) {
	s.lastFrom = from
	s.lastTo = to
	s.lastUpdates = updates
	if s.casResult && s.order != nil {
		s.order.Status = to
	}
	return s.casResult, nil
}

func newServiceWithRepo(t *testing.T, repo *stubRepo) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Repo: repo})
	require.NoError(t, err)
	return svc
}

func TestTransitionRejectsPaymentStatuses(t *testing.T) {
	svc := newServiceWithRepo(t, &stubRepo{})

	for _, target := range []enums.OrderStatus{enums.OrderStatusPaid, enums.OrderStatusPending} {
		_, err := svc.Transition(context.Background(), uuid.New(), target)
		require.Error(t, err)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	}
}

func TestTransitionShippedStampsTimestampOnly(t *testing.T) {
	repo := &stubRepo{
		order:     &models.Order{ID: uuid.New(), Status: enums.OrderStatusProcessing},
		casResult: true,
	}
	svc := newServiceWithRepo(t, repo)

	order, err := svc.Transition(context.Background(), repo.order.ID, enums.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipped, order.Status)

	assert.Equal(t, enums.OrderStatusShipped, repo.lastTo)
	assert.ElementsMatch(t, []enums.OrderStatus{enums.OrderStatusPaid, enums.OrderStatusProcessing}, repo.lastFrom)
	assert.Contains(t, repo.lastUpdates, "shipped_at")
	assert.NotContains(t, repo.lastUpdates, "paid_at")
	assert.NotContains(t, repo.lastUpdates, "stripe_payment_intent_id")
}

func TestTransitionReplayIsNoop(t *testing.T) {
	repo := &stubRepo{
		order:     &models.Order{ID: uuid.New(), Status: enums.OrderStatusShipped},
		casResult: false,
	}
	svc := newServiceWithRepo(t, repo)

	order, err := svc.Transition(context.Background(), repo.order.ID, enums.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipped, order.Status)
}

func TestTransitionIllegalReturnsStateConflict(t *testing.T) {
	repo := &stubRepo{
		order:     &models.Order{ID: uuid.New(), Status: enums.OrderStatusDelivered},
		casResult: false,
	}
	svc := newServiceWithRepo(t, repo)

	_, err := svc.Transition(context.Background(), repo.order.ID, enums.OrderStatusCancelled)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestTransitionMissingOrder(t *testing.T) {
	svc := newServiceWithRepo(t, &stubRepo{casResult: false})

	_, err := svc.Transition(context.Background(), uuid.New(), enums.OrderStatusProcessing)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestListRejectsInvalidStatusFilter(t *testing.T) {
	svc := newServiceWithRepo(t, &stubRepo{})

	bad := enums.OrderStatus("sideways")
	_, _, err := svc.List(context.Background(), &bad, pagination.Params{})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
