package stripewebhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oscshop/storefront-backend/internal/checkout"
	"github.com/oscshop/storefront-backend/internal/orders"
	"github.com/oscshop/storefront-backend/pkg/db/models"
	"github.com/oscshop/storefront-backend/pkg/enums"
	"github.com/oscshop/storefront-backend/pkg/logger"
)

type passthroughTxRunner struct{}

func (passthroughTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func setupWebhookTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL,
  user_id TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  currency TEXT NOT NULL DEFAULT 'USD',
  subtotal_cents INTEGER NOT NULL,
  shipping_cents INTEGER NOT NULL DEFAULT 0,
  tax_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL,
  stripe_session_id TEXT,
  stripe_payment_intent_id TEXT,
  shipping_address TEXT,
  paid_at DATETIME,
  shipped_at DATETIME,
  delivered_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`).Error)
	require.NoError(t, db.Exec(`
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT,
  variant_id TEXT,
  variant_key TEXT NOT NULL,
  name TEXT NOT NULL,
  size TEXT,
  color TEXT,
  image_url TEXT,
  unit_price_cents INTEGER NOT NULL,
  quantity INTEGER NOT NULL,
  line_total_cents INTEGER NOT NULL,
  created_at DATETIME
);`).Error)
	require.NoError(t, db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_order_number ON orders(order_number);`).Error)
	require.NoError(t, db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_order_items_order_variant ON order_items(order_id, variant_key);`).Error)
	return db
}

func setupService(t *testing.T) (*Service, *orders.Repository) {
	t.Helper()
	repo := orders.NewRepository(setupWebhookTestDB(t))
	svc, err := NewService(ServiceParams{
		Orders:            NewOrdersStore(repo),
		TransactionRunner: passthroughTxRunner{},
	})
	require.NoError(t, err)
	return svc, repo
}

func seedPendingOrder(t *testing.T, repo *orders.Repository, number string) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:            uuid.New(),
		OrderNumber:   number,
		Status:        enums.OrderStatusPending,
		Currency:      enums.CurrencyUSD,
		SubtotalCents: 8497,
		TotalCents:    8497,
	}
	require.NoError(t, repo.Create(context.Background(), order))
	return order
}

func buildSessionEvent(t *testing.T, eventType stripe.EventType, session stripe.CheckoutSession) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(session)
	require.NoError(t, err)
	return &stripe.Event{
		ID:   "evt_" + uuid.NewString(),
		Type: eventType,
		Data: &stripe.EventData{Raw: raw},
	}
}

func shopMetadata(t *testing.T, meta checkout.OrderMetadata) map[string]string {
	t.Helper()
	encoded, err := meta.Encode()
	require.NoError(t, err)
	return encoded
}

func scenarioItems() []checkout.MetadataItem {
	return []checkout.MetadataItem{
		{Name: "item a", Quantity: 2, PriceCents: 2999},
		{Name: "item b", Quantity: 1, PriceCents: 2499},
	}
}

func TestHandleEventIdempotentReconciliation(t *testing.T) {
	svc, repo := setupService(t)
	ctx := context.Background()
	order := seedPendingOrder(t, repo, "OSC-2026-0001")

	session := stripe.CheckoutSession{
		ID: "cs_test_1",
		Metadata: shopMetadata(t, checkout.OrderMetadata{
			OrderID:     order.ID.String(),
			OrderNumber: order.OrderNumber,
			Items:       scenarioItems(),
		}),
		PaymentIntent: &stripe.PaymentIntent{ID: "pi_test_1"},
	}
	event := buildSessionEvent(t, stripe.EventTypeCheckoutSessionCompleted, session)

	require.NoError(t, svc.HandleEvent(ctx, event))

	first, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, enums.OrderStatusPaid, first.Status)
	require.NotNil(t, first.PaidAt)
	require.NotNil(t, first.StripePaymentIntentID)
	assert.Equal(t, "pi_test_1", *first.StripePaymentIntentID)
	require.Len(t, first.Items, 2)
	paidAt := *first.PaidAt

	// Deliver the same logical event twice more.
	require.NoError(t, svc.HandleEvent(ctx, event))
	require.NoError(t, svc.HandleEvent(ctx, event))

	replayed, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, replayed.Status)
	assert.Len(t, replayed.Items, 2)
	require.NotNil(t, replayed.PaidAt)
	assert.WithinDuration(t, paidAt, *replayed.PaidAt, time.Millisecond)
}

func TestHandleEventNoRegressionAfterPaid(t *testing.T) {
	svc, repo := setupService(t)
	ctx := context.Background()
	order := seedPendingOrder(t, repo, "OSC-2026-0002")

	meta := checkout.OrderMetadata{
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		Items:       scenarioItems(),
	}
	completed := buildSessionEvent(t, stripe.EventTypeCheckoutSessionCompleted, stripe.CheckoutSession{
		ID:       "cs_test_2",
		Metadata: shopMetadata(t, meta),
	})
	expired := buildSessionEvent(t, stripe.EventTypeCheckoutSessionExpired, stripe.CheckoutSession{
		ID:       "cs_test_2",
		Metadata: shopMetadata(t, meta),
	})

	require.NoError(t, svc.HandleEvent(ctx, completed))
	require.NoError(t, svc.HandleEvent(ctx, expired))

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, stored.Status)
	assert.Nil(t, stored.CancelledAt)
}

func TestHandleEventFallbackCreation(t *testing.T) {
	svc, repo := setupService(t)
	ctx := context.Background()

	// The order id in metadata references a row that was never persisted.
	lostOrderID := uuid.New()
	session := stripe.CheckoutSession{
		ID: "cs_test_3",
		Metadata: shopMetadata(t, checkout.OrderMetadata{
			OrderID:     lostOrderID.String(),
			OrderNumber: "OSC-2026-0042",
			Items:       scenarioItems(),
		}),
		AmountSubtotal: 8497,
		AmountTotal:    8497,
	}
	event := buildSessionEvent(t, stripe.EventTypeCheckoutSessionCompleted, session)

	require.NoError(t, svc.HandleEvent(ctx, event))

	stored, err := repo.FindByID(ctx, lostOrderID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, enums.OrderStatusPaid, stored.Status)
	assert.Equal(t, "OSC-2026-0042", stored.OrderNumber)
	assert.Equal(t, int64(8497), stored.SubtotalCents)
	assert.Equal(t, int64(8497), stored.TotalCents)
	require.Len(t, stored.Items, 2)

	// Replay creates nothing new.
	require.NoError(t, svc.HandleEvent(ctx, event))
	count, err := repo.CountByOrderNumberPrefix(ctx, "OSC-2026-")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestHandleEventFallbackWithoutOrderRef(t *testing.T) {
	svc, repo := setupService(t)
	ctx := context.Background()

	// Degraded initiation: no order id or number in the bundle at all.
	session := stripe.CheckoutSession{
		ID: "cs_test_4_degraded",
		Metadata: shopMetadata(t, checkout.OrderMetadata{
			Items: scenarioItems(),
		}),
		AmountSubtotal: 8497,
		AmountTotal:    8497,
	}
	event := buildSessionEvent(t, stripe.EventTypeCheckoutSessionCompleted, session)

	require.NoError(t, svc.HandleEvent(ctx, event))
	require.NoError(t, svc.HandleEvent(ctx, event))

	stored, err := repo.FindByOrderNumber(ctx, "OSC-CS-t_4_degraded")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, enums.OrderStatusPaid, stored.Status)
	require.Len(t, stored.Items, 2)

	count, err := repo.CountByOrderNumberPrefix(ctx, "OSC-CS-")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestHandleEventFallbackSeparatesShippingFee(t *testing.T) {
	svc, repo := setupService(t)
	ctx := context.Background()

	// Below the free-shipping threshold the fee rides on the session as a
	// regular line item, so Stripe reports amount_subtotal == amount_total.
	// The recorded order must still split goods from shipping.
	lostOrderID := uuid.New()
	session := stripe.CheckoutSession{
		ID: "cs_test_9",
		Metadata: shopMetadata(t, checkout.OrderMetadata{
			OrderID:     lostOrderID.String(),
			OrderNumber: "OSC-2026-0050",
			Items: []checkout.MetadataItem{
				{Name: "item a", Quantity: 1, PriceCents: 4999},
			},
		}),
		AmountSubtotal: 5998,
		AmountTotal:    5998,
	}
	event := buildSessionEvent(t, stripe.EventTypeCheckoutSessionCompleted, session)

	require.NoError(t, svc.HandleEvent(ctx, event))

	stored, err := repo.FindByID(ctx, lostOrderID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, enums.OrderStatusPaid, stored.Status)
	assert.Equal(t, int64(4999), stored.SubtotalCents)
	assert.Equal(t, int64(999), stored.ShippingCents)
	assert.Equal(t, int64(5998), stored.TotalCents)
}

func TestHandleEventPaidAfterCancelIsFlagged(t *testing.T) {
	var logs bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &logs})

	repo := orders.NewRepository(setupWebhookTestDB(t))
	svc, err := NewService(ServiceParams{
		Orders:            NewOrdersStore(repo),
		TransactionRunner: passthroughTxRunner{},
		Logger:            logg,
	})
	require.NoError(t, err)

	ctx := context.Background()
	order := seedPendingOrder(t, repo, "OSC-2026-0060")

	meta := checkout.OrderMetadata{
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		Items:       scenarioItems(),
	}
	expired := buildSessionEvent(t, stripe.EventTypeCheckoutSessionExpired, stripe.CheckoutSession{
		ID:       "cs_test_10",
		Metadata: shopMetadata(t, meta),
	})
	completed := buildSessionEvent(t, stripe.EventTypeCheckoutSessionCompleted, stripe.CheckoutSession{
		ID:       "cs_test_10",
		Metadata: shopMetadata(t, meta),
	})

	// The sweep (here: the expiry event) cancels first, the charge lands after.
	require.NoError(t, svc.HandleEvent(ctx, expired))
	require.NoError(t, svc.HandleEvent(ctx, completed))

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, stored.Status)
	assert.Nil(t, stored.PaidAt)
	assert.Contains(t, logs.String(), "paid_after_cancel")
}

func TestHandleEventForeignDiscriminatorIsSkipped(t *testing.T) {
	svc, repo := setupService(t)
	ctx := context.Background()

	session := stripe.CheckoutSession{
		ID:       "cs_test_5",
		Metadata: map[string]string{"type": "subscription"},
	}
	event := buildSessionEvent(t, stripe.EventTypeCheckoutSessionCompleted, session)

	require.NoError(t, svc.HandleEvent(ctx, event))

	count, err := repo.CountByOrderNumberPrefix(ctx, "OSC")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestHandleEventMalformedMetadataIsAcked(t *testing.T) {
	svc, repo := setupService(t)
	ctx := context.Background()

	session := stripe.CheckoutSession{
		ID: "cs_test_6",
		Metadata: map[string]string{
			"type":  checkout.MetadataType,
			"items": "{definitely not json",
		},
	}
	event := buildSessionEvent(t, stripe.EventTypeCheckoutSessionCompleted, session)

	require.NoError(t, svc.HandleEvent(ctx, event))

	count, err := repo.CountByOrderNumberPrefix(ctx, "OSC")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestHandleEventUnrelatedTypeIsIgnored(t *testing.T) {
	svc, _ := setupService(t)

	event := &stripe.Event{
		ID:   "evt_unrelated",
		Type: stripe.EventTypeInvoicePaid,
		Data: &stripe.EventData{Raw: []byte(`{}`)},
	}
	require.NoError(t, svc.HandleEvent(context.Background(), event))
}

func TestHandleEventPaymentFailedCancelsPending(t *testing.T) {
	svc, repo := setupService(t)
	ctx := context.Background()
	order := seedPendingOrder(t, repo, "OSC-2026-0003")

	event := buildSessionEvent(t, stripe.EventTypeCheckoutSessionExpired, stripe.CheckoutSession{
		ID: "cs_test_7",
		Metadata: shopMetadata(t, checkout.OrderMetadata{
			OrderID:     order.ID.String(),
			OrderNumber: order.OrderNumber,
			Items:       scenarioItems(),
		}),
	})

	require.NoError(t, svc.HandleEvent(ctx, event))

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, stored.Status)
	require.NotNil(t, stored.CancelledAt)

	// Re-delivery of the failure is a no-op.
	require.NoError(t, svc.HandleEvent(ctx, event))
}

func TestHandleEventPaymentFailedWithoutRefIsAcked(t *testing.T) {
	svc, repo := setupService(t)

	event := buildSessionEvent(t, stripe.EventTypeCheckoutSessionAsyncPaymentFailed, stripe.CheckoutSession{
		ID:       "cs_test_8",
		Metadata: shopMetadata(t, checkout.OrderMetadata{Items: scenarioItems()}),
	})

	require.NoError(t, svc.HandleEvent(context.Background(), event))

	count, err := repo.CountByOrderNumberPrefix(context.Background(), "OSC")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestHandleEventEndToEndScenario(t *testing.T) {
	svc, repo := setupService(t)
	ctx := context.Background()

	// 2x $29.99 + 1x $24.99 = $84.97, free shipping.
	order := seedPendingOrder(t, repo, "OSC-2024-0001")

	session := stripe.CheckoutSession{
		ID: "cs_e2e",
		Metadata: shopMetadata(t, checkout.OrderMetadata{
			OrderID:     order.ID.String(),
			OrderNumber: order.OrderNumber,
			Items:       scenarioItems(),
		}),
		PaymentIntent:  &stripe.PaymentIntent{ID: "pi_e2e"},
		AmountSubtotal: 8497,
		AmountTotal:    8497,
		CustomerDetails: &stripe.CheckoutSessionCustomerDetails{
			Name: "Jordan Doe",
			Address: &stripe.Address{
				Line1:      "1 Main St",
				City:       "Austin",
				State:      "TX",
				PostalCode: "78701",
				Country:    "US",
			},
		},
	}
	event := buildSessionEvent(t, stripe.EventTypeCheckoutSessionCompleted, session)

	require.NoError(t, svc.HandleEvent(ctx, event))

	paid, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, paid.Status)
	assert.Equal(t, int64(8497), paid.SubtotalCents)
	assert.Equal(t, int64(0), paid.ShippingCents)
	require.NotNil(t, paid.ShippingAddress)
	assert.Equal(t, "Austin", paid.ShippingAddress.City)
	require.Len(t, paid.Items, 2)

	byKey := map[string]models.OrderItem{}
	for _, item := range paid.Items {
		byKey[item.Name] = item
	}
	assert.Equal(t, int64(2999), byKey["item a"].UnitPriceCents)
	assert.Equal(t, 2, byKey["item a"].Quantity)
	assert.Equal(t, int64(5998), byKey["item a"].LineTotalCents)
	assert.Equal(t, int64(2499), byKey["item b"].UnitPriceCents)

	// Replay changes nothing further.
	require.NoError(t, svc.HandleEvent(ctx, event))
	replayed, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, replayed.Items, 2)
	assert.Equal(t, enums.OrderStatusPaid, replayed.Status)
}
