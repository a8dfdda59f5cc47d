package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/oscshop/storefront-backend/internal/cart"
	"github.com/oscshop/storefront-backend/pkg/db"
	"github.com/oscshop/storefront-backend/pkg/db/models"
	"github.com/oscshop/storefront-backend/pkg/enums"
	pkgerrors "github.com/oscshop/storefront-backend/pkg/errors"
	"github.com/oscshop/storefront-backend/pkg/logger"
)

const orderNumberAttempts = 5

type orderWriter interface {
	Create(ctx context.Context, order *models.Order) error
	CountByOrderNumberPrefix(ctx context.Context, prefix string) (int64, error)
	UpdateStatusIf(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, to enums.OrderStatus, updates map[string]any) (bool, error)
	RecordStripeSession(ctx context.Context, id uuid.UUID, sessionID string) error
}

// Service initiates orders against Stripe hosted Checkout.
type Service interface {
	CreateSession(ctx context.Context, input CreateSessionInput) (*CreateSessionResult, error)
}

// ServiceParams groups dependencies for the checkout service.
type ServiceParams struct {
	Orders            orderWriter
	Stripe            StripeCheckoutClient
	Logger            *logger.Logger
	SuccessURL        string
	CancelURL         string
	OrderNumberPrefix string
}

type service struct {
	orders     orderWriter
	stripe     StripeCheckoutClient
	logg       *logger.Logger
	numbers    *OrderNumberGenerator
	successURL string
	cancelURL  string
}

// NewService builds a checkout service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repo required")
	}
	if params.Stripe == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	if params.SuccessURL == "" || params.CancelURL == "" {
		return nil, fmt.Errorf("checkout redirect urls required")
	}
	numbers, err := NewOrderNumberGenerator(params.OrderNumberPrefix, params.Orders)
	if err != nil {
		return nil, err
	}
	return &service{
		orders:     params.Orders,
		stripe:     params.Stripe,
		logg:       params.Logger,
		numbers:    numbers,
		successURL: params.SuccessURL,
		cancelURL:  params.CancelURL,
	}, nil
}

// CreateSessionInput carries the cart snapshot and the acting user, if any.
type CreateSessionInput struct {
	Snapshot cart.Snapshot
	UserID   *uuid.UUID
}

// CreateSessionResult is returned to the storefront for redirect.
type CreateSessionResult struct {
	URL         string `json:"url"`
	OrderID     string `json:"order_id,omitempty"`
	OrderNumber string `json:"order_number,omitempty"`
}

// CreateSession persists a pending order with totals copied verbatim from
// the snapshot, then opens a Stripe Checkout session carrying the metadata
// bundle. Order persistence failure is degraded, not fatal: the session is
// still created with empty order metadata and the webhook reconstructs the
// order from the bundle. Stripe failure after a successful persist cancels
// the pending order immediately so nothing is left payable against a
// session that never existed.
func (s *service) CreateSession(ctx context.Context, input CreateSessionInput) (*CreateSessionResult, error) {
	if input.Snapshot.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	order, persistErr := s.persistPendingOrder(ctx, input)
	if persistErr != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "checkout.order_persist_failed", persistErr)
		}
		order = nil
	}

	meta := OrderMetadata{Items: MetadataFromSnapshot(input.Snapshot)}
	if input.UserID != nil {
		meta.UserID = input.UserID.String()
	}
	if order != nil {
		meta.OrderID = order.ID.String()
		meta.OrderNumber = order.OrderNumber
	}

	params, err := s.buildSessionParams(input.Snapshot, meta)
	if err != nil {
		s.cancelAbandonedOrder(ctx, order)
		return nil, err
	}

	sess, err := s.stripe.CreateSession(ctx, params)
	if err != nil {
		s.cancelAbandonedOrder(ctx, order)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}

	result := &CreateSessionResult{URL: sess.URL}
	if order != nil {
		result.OrderID = order.ID.String()
		result.OrderNumber = order.OrderNumber

		if err := s.orders.RecordStripeSession(ctx, order.ID, sess.ID); err != nil && s.logg != nil {
			// Best effort: the webhook records the session id again at
			// reconciliation time.
			s.logg.Error(ctx, "checkout.record_session_failed", err)
		}
	}
	return result, nil
}

func (s *service) persistPendingOrder(ctx context.Context, input CreateSessionInput) (*models.Order, error) {
	order := &models.Order{
		ID:            uuid.New(),
		UserID:        input.UserID,
		Status:        enums.OrderStatusPending,
		Currency:      enums.CurrencyUSD,
		SubtotalCents: input.Snapshot.Totals.SubtotalCents,
		ShippingCents: input.Snapshot.Totals.ShippingCents,
		TotalCents:    input.Snapshot.Totals.TotalCents,
	}

	var lastErr error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		number, err := s.numbers.Next(ctx, attempt)
		if err != nil {
			return nil, err
		}
		order.OrderNumber = number

		lastErr = s.orders.Create(ctx, order)
		if lastErr == nil {
			return order, nil
		}
		if !db.IsUniqueViolation(lastErr, "idx_orders_order_number") {
			return nil, lastErr
		}
	}
	return nil, fmt.Errorf("order number collision after %d attempts: %w", orderNumberAttempts, lastErr)
}

func (s *service) cancelAbandonedOrder(ctx context.Context, order *models.Order) {
	if order == nil {
		return
	}
	now := time.Now().UTC()
	updated, err := s.orders.UpdateStatusIf(ctx, order.ID,
		[]enums.OrderStatus{enums.OrderStatusPending},
		enums.OrderStatusCancelled,
		map[string]any{"cancelled_at": &now},
	)
	if err != nil && s.logg != nil {
		// The stale-order sweep picks this up if the cancel itself fails.
		s.logg.Error(ctx, "checkout.cancel_abandoned_failed", err)
		return
	}
	if updated && s.logg != nil {
		s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "checkout.order_cancelled_after_session_failure")
	}
}

func (s *service) buildSessionParams(snapshot cart.Snapshot, meta OrderMetadata) (*stripe.CheckoutSessionParams, error) {
	metadata, err := meta.Encode()
	if err != nil {
		return nil, err
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(snapshot.Items)+1)
	for _, item := range snapshot.Items {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if desc := itemDescription(item); desc != "" {
			productData.Description = stripe.String(desc)
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(item.Quantity)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount:  stripe.Int64(item.UnitPriceCents),
				ProductData: productData,
			},
		})
	}
	if snapshot.Totals.ShippingCents > 0 {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount: stripe.Int64(snapshot.Totals.ShippingCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("Shipping"),
				},
			},
		})
	}

	return &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.successURL),
		CancelURL:  stripe.String(s.cancelURL),
		LineItems:  lineItems,
		Metadata:   metadata,
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice([]string{"US"}),
		},
	}, nil
}

func itemDescription(item cart.Item) string {
	switch {
	case item.Size != "" && item.Color != "":
		return fmt.Sprintf("%s / %s", item.Size, item.Color)
	case item.Size != "":
		return item.Size
	case item.Color != "":
		return item.Color
	}
	return ""
}
