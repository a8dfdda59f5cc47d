package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/oscshop/storefront-backend/internal/checkout"
	"github.com/oscshop/storefront-backend/pkg/db"
	"github.com/oscshop/storefront-backend/pkg/db/models"
	"github.com/oscshop/storefront-backend/pkg/enums"
	pkgerrors "github.com/oscshop/storefront-backend/pkg/errors"
	"github.com/oscshop/storefront-backend/pkg/logger"
	"github.com/oscshop/storefront-backend/pkg/types"
)

// fallbackNamespace derives a deterministic order id from a session id when
// the metadata carries no order reference, so concurrent fallback creation
// collides on the primary key instead of creating twins.
var fallbackNamespace = uuid.MustParse("2f1c5a76-9c16-4d0b-8f6e-0c3b3f9a51d4")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups the reconciliation dependencies.
type ServiceParams struct {
	Orders            OrdersStore
	TransactionRunner txRunner
	Logger            *logger.Logger
}

// Service converts asynchronous payment events into authoritative order
// state. It is the only component allowed to mark an order paid, or to
// cancel a pending one for payment reasons.
type Service struct {
	orders   OrdersStore
	txRunner txRunner
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders store required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &Service{
		orders:   params.Orders,
		txRunner: params.TransactionRunner,
		logg:     params.Logger,
	}, nil
}

// HandleEvent dispatches one verified Stripe event. Unrelated event types
// and events without the shop order discriminator are acknowledged without
// effect; persistence failures surface as errors so Stripe redelivers.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		session, err := decodeSession(event)
		if err != nil {
			return err
		}
		return s.handlePaymentSucceeded(ctx, session)
	case stripe.EventTypeCheckoutSessionExpired,
		stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		session, err := decodeSession(event)
		if err != nil {
			return err
		}
		return s.handlePaymentFailed(ctx, session)
	default:
		return nil
	}
}

func decodeSession(event *stripe.Event) (*stripe.CheckoutSession, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session event")
	}
	return &session, nil
}

func (s *Service) handlePaymentSucceeded(ctx context.Context, session *stripe.CheckoutSession) error {
	meta, ok := s.parseOrSkip(ctx, session)
	if !ok {
		return nil
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)

		order, err := s.resolveOrder(ctx, repo, meta)
		if err != nil {
			return err
		}

		if order != nil {
			updated, err := s.markPaid(ctx, repo, order, session)
			if err != nil {
				return err
			}
			if !updated && order.Status == enums.OrderStatusCancelled && s.logg != nil {
				// The customer was charged for an order the sweep (or a
				// failure event) already cancelled. The order stays
				// cancelled; flag it for manual follow-up.
				lctx := s.logg.WithOrderID(ctx, order.ID.String())
				lctx = s.logg.WithField(lctx, "stripe_session_id", session.ID)
				s.logg.Warn(lctx, "webhook.paid_after_cancel")
			}
		} else {
			order, err = s.createFallbackOrder(ctx, repo, meta, session)
			if err != nil {
				return err
			}
		}

		created, err := repo.CreateItemsIfAbsent(ctx, order.ID, itemsFromMetadata(meta.Items))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "materialize order items")
		}

		if s.logg != nil {
			lctx := s.logg.WithOrderID(ctx, order.ID.String())
			lctx = s.logg.WithField(lctx, "items_created", created)
			s.logg.Info(lctx, "webhook.order_paid")
		}
		return nil
	})
}

func (s *Service) handlePaymentFailed(ctx context.Context, session *stripe.CheckoutSession) error {
	meta, ok := s.parseOrSkip(ctx, session)
	if !ok {
		return nil
	}
	if meta.OrderID == "" {
		// Nothing was persisted at initiation; there is no pending order
		// to cancel and failure events never create one.
		s.skip(ctx, "webhook.failure_without_order_ref")
		return nil
	}

	orderID, err := uuid.Parse(meta.OrderID)
	if err != nil {
		s.skip(ctx, "webhook.malformed_order_ref")
		return nil
	}

	now := time.Now().UTC()
	updated, err := s.orders.UpdateStatusIf(ctx, orderID,
		[]enums.OrderStatus{enums.OrderStatusPending},
		enums.OrderStatusCancelled,
		map[string]any{"cancelled_at": &now},
	)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
	}

	if s.logg != nil {
		lctx := s.logg.WithOrderID(ctx, orderID.String())
		lctx = s.logg.WithField(lctx, "cancelled", updated)
		// A failure event landing after success leaves the order paid.
		s.logg.Info(lctx, "webhook.payment_failed")
	}
	return nil
}

// parseOrSkip validates the metadata bundle. Foreign and malformed events
// are acknowledged so Stripe stops redelivering what this system can never
// process.
func (s *Service) parseOrSkip(ctx context.Context, session *stripe.CheckoutSession) (*checkout.OrderMetadata, bool) {
	if session == nil {
		s.skip(ctx, "webhook.session_missing")
		return nil, false
	}
	meta, err := checkout.ParseMetadata(session.Metadata)
	if errors.Is(err, checkout.ErrForeignEvent) {
		s.skip(ctx, "webhook.foreign_event")
		return nil, false
	}
	if err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "webhook.malformed_metadata", err)
		}
		return nil, false
	}
	return meta, true
}

func (s *Service) skip(ctx context.Context, reason string) {
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "skip", reason), "webhook.event_skipped")
	}
}

func (s *Service) resolveOrder(ctx context.Context, repo OrdersStore, meta *checkout.OrderMetadata) (*models.Order, error) {
	if meta.OrderID == "" {
		return nil, nil
	}
	orderID, err := uuid.Parse(meta.OrderID)
	if err != nil {
		return nil, nil
	}
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// markPaid applies the conditional pending->paid write. A replay on an
// already-paid order changes nothing; paid_at is never overwritten. The
// returned flag reports whether this call performed the transition.
func (s *Service) markPaid(ctx context.Context, repo OrdersStore, order *models.Order, session *stripe.CheckoutSession) (bool, error) {
	now := time.Now().UTC()
	updates := map[string]any{
		"paid_at":           &now,
		"stripe_session_id": session.ID,
	}
	if session.PaymentIntent != nil {
		updates["stripe_payment_intent_id"] = session.PaymentIntent.ID
	}
	if addr := encodeShippingAddress(session); addr != nil {
		updates["shipping_address"] = *addr
	}

	updated, err := repo.UpdateStatusIf(ctx, order.ID,
		[]enums.OrderStatus{enums.OrderStatusPending},
		enums.OrderStatusPaid,
		updates,
	)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
	}
	return updated, nil
}

// createFallbackOrder reconstructs a paid order purely from the metadata
// bundle and session amounts. The id is deterministic so a concurrent
// duplicate delivery collides on insert instead of creating a second row.
func (s *Service) createFallbackOrder(ctx context.Context, repo OrdersStore, meta *checkout.OrderMetadata, session *stripe.CheckoutSession) (*models.Order, error) {
	now := time.Now().UTC()

	orderID := uuid.NewSHA1(fallbackNamespace, []byte(session.ID))
	if meta.OrderID != "" {
		if parsed, err := uuid.Parse(meta.OrderID); err == nil {
			orderID = parsed
		}
	}

	subtotal, shipping, total := fallbackAmounts(meta, session)

	order := &models.Order{
		ID:              orderID,
		OrderNumber:     fallbackOrderNumber(meta, session),
		Status:          enums.OrderStatusPaid,
		Currency:        enums.CurrencyUSD,
		SubtotalCents:   subtotal,
		ShippingCents:   shipping,
		TotalCents:      total,
		StripeSessionID: &session.ID,
		PaidAt:          &now,
		ShippingAddress: decodeShippingAddress(session),
	}
	if session.PaymentIntent != nil {
		order.StripePaymentIntentID = &session.PaymentIntent.ID
	}
	if meta.UserID != "" {
		if userID, err := uuid.Parse(meta.UserID); err == nil {
			order.UserID = &userID
		}
	}

	err := repo.Create(ctx, order)
	if db.IsUniqueViolation(err, "") {
		// Lost the race with another delivery of the same session.
		existing, findErr := repo.FindByID(ctx, orderID)
		if findErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load fallback order")
		}
		if existing != nil {
			return existing, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create fallback order")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create fallback order")
	}

	if s.logg != nil {
		lctx := s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Info(lctx, "webhook.fallback_order_created")
	}
	return order, nil
}

// fallbackAmounts derives the goods subtotal from the metadata items. The
// session's amount_subtotal cannot be used for it: shipping rides on the
// session as a regular line item, so Stripe reports it inside both amounts.
// The session total stays authoritative, and whatever it carries beyond the
// goods is the shipping fee.
func fallbackAmounts(meta *checkout.OrderMetadata, session *stripe.CheckoutSession) (subtotal, shipping, total int64) {
	for _, item := range meta.Items {
		subtotal += item.PriceCents * int64(item.Quantity)
	}

	total = session.AmountTotal
	if total <= 0 {
		total = subtotal
	}
	if total > subtotal {
		shipping = total - subtotal
	}
	return subtotal, shipping, total
}

func fallbackOrderNumber(meta *checkout.OrderMetadata, session *stripe.CheckoutSession) string {
	if meta.OrderNumber != "" {
		return meta.OrderNumber
	}
	// Deterministic per session so replays collide instead of diverging.
	suffix := session.ID
	if len(suffix) > 12 {
		suffix = suffix[len(suffix)-12:]
	}
	return "OSC-CS-" + suffix
}

func itemsFromMetadata(items []checkout.MetadataItem) []models.OrderItem {
	rows := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		row := models.OrderItem{
			Name:           item.Name,
			Size:           item.Size,
			Color:          item.Color,
			UnitPriceCents: item.PriceCents,
			Quantity:       item.Quantity,
			LineTotalCents: item.PriceCents * int64(item.Quantity),
		}
		if id, err := uuid.Parse(item.ProductID); err == nil {
			row.ProductID = &id
		}
		if id, err := uuid.Parse(item.VariantID); err == nil {
			row.VariantID = &id
		}
		row.VariantKey = models.BuildVariantKey(row.ProductID, row.VariantID, item.Name, item.Size, item.Color)
		rows = append(rows, row)
	}
	return rows
}

func decodeShippingAddress(session *stripe.CheckoutSession) *types.Address {
	if session == nil || session.CustomerDetails == nil || session.CustomerDetails.Address == nil {
		return nil
	}
	src := session.CustomerDetails.Address
	addr := &types.Address{
		Name:       session.CustomerDetails.Name,
		Line1:      src.Line1,
		Line2:      src.Line2,
		City:       src.City,
		State:      src.State,
		PostalCode: src.PostalCode,
		Country:    src.Country,
	}
	if addr.IsZero() {
		return nil
	}
	return addr
}

// encodeShippingAddress renders the snapshot as JSON for the conditional
// update statement, which writes columns directly.
func encodeShippingAddress(session *stripe.CheckoutSession) *string {
	addr := decodeShippingAddress(session)
	if addr == nil {
		return nil
	}
	payload, err := json.Marshal(addr)
	if err != nil {
		return nil
	}
	encoded := string(payload)
	return &encoded
}
