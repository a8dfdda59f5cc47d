package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/oscshop/storefront-backend/pkg/enums"
	"github.com/oscshop/storefront-backend/pkg/types"
)

// Order represents one purchase attempt. Monetary totals are fixed at
// creation and never recomputed from line items; the items are a record,
// not a source of truth.
type Order struct {
	ID                    uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber           string            `gorm:"column:order_number;uniqueIndex:idx_orders_order_number;not null"`
	UserID                *uuid.UUID        `gorm:"column:user_id;type:uuid"`
	Status                enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Currency              enums.Currency    `gorm:"column:currency;type:text;not null;default:'USD'"`
	SubtotalCents         int64             `gorm:"column:subtotal_cents;not null"`
	ShippingCents         int64             `gorm:"column:shipping_cents;not null;default:0"`
	TaxCents              int64             `gorm:"column:tax_cents;not null;default:0"`
	TotalCents            int64             `gorm:"column:total_cents;not null"`
	StripeSessionID       *string           `gorm:"column:stripe_session_id"`
	StripePaymentIntentID *string           `gorm:"column:stripe_payment_intent_id"`
	ShippingAddress       *types.Address    `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	PaidAt                *time.Time        `gorm:"column:paid_at"`
	ShippedAt             *time.Time        `gorm:"column:shipped_at"`
	DeliveredAt           *time.Time        `gorm:"column:delivered_at"`
	CancelledAt           *time.Time        `gorm:"column:cancelled_at"`
	Items                 []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt             time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
