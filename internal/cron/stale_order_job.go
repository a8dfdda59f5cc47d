package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/oscshop/storefront-backend/pkg/db/models"
	"github.com/oscshop/storefront-backend/pkg/enums"
	"github.com/oscshop/storefront-backend/pkg/logger"
)

const staleOrderBatchSize = 200

// StaleOrderJobParams configure the pending order sweeper.
type StaleOrderJobParams struct {
	Logger          *logger.Logger
	Orders          staleOrderStore
	PendingOrderTTL time.Duration
}

type staleOrderStore interface {
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	UpdateStatusIf(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, to enums.OrderStatus, updates map[string]any) (bool, error)
}

// NewStaleOrderJob builds the cron job that cancels pending orders whose
// checkout session can no longer complete. Stripe expires hosted sessions
// after 24 hours, so anything pending past the TTL is unpayable; the
// conditional write means a payment landing mid-sweep still wins.
func NewStaleOrderJob(params StaleOrderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders store required")
	}
	ttl := params.PendingOrderTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &staleOrderJob{
		logg:   params.Logger,
		orders: params.Orders,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

type staleOrderJob struct {
	logg   *logger.Logger
	orders staleOrderStore
	ttl    time.Duration
	now    func() time.Time
}

func (j *staleOrderJob) Name() string { return "stale-pending-orders" }

func (j *staleOrderJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	rows, err := j.orders.ListStalePending(ctx, cutoff, staleOrderBatchSize)
	if err != nil {
		return fmt.Errorf("query stale pending orders: %w", err)
	}

	var errs []error
	cancelled := 0
	for _, order := range rows {
		ok, err := j.cancelOrder(ctx, order.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("cancel order %s: %w", order.ID, err))
			continue
		}
		if ok {
			cancelled++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"examined":  len(rows),
		"cancelled": cancelled,
	})
	j.logg.Info(logCtx, "stale pending order sweep complete")
	return multierr.Combine(errs...)
}

func (j *staleOrderJob) cancelOrder(ctx context.Context, id uuid.UUID) (bool, error) {
	now := j.now().UTC()
	return j.orders.UpdateStatusIf(ctx, id,
		[]enums.OrderStatus{enums.OrderStatusPending},
		enums.OrderStatusCancelled,
		map[string]any{"cancelled_at": &now},
	)
}
