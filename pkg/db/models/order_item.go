package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem is an immutable snapshot of one purchased variant. Catalog refs
// are nullable so the row survives product deletion; everything needed for
// display is denormalized. The (order_id, variant_key) uniqueness makes
// duplicate materialization on webhook replay structurally impossible.
type OrderItem struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID  `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_order_items_order_variant"`
	ProductID      *uuid.UUID `gorm:"column:product_id;type:uuid"`
	VariantID      *uuid.UUID `gorm:"column:variant_id;type:uuid"`
	VariantKey     string     `gorm:"column:variant_key;not null;uniqueIndex:idx_order_items_order_variant"`
	Name           string     `gorm:"column:name;not null"`
	Size           string     `gorm:"column:size"`
	Color          string     `gorm:"column:color"`
	ImageURL       string     `gorm:"column:image_url"`
	UnitPriceCents int64      `gorm:"column:unit_price_cents;not null"`
	Quantity       int        `gorm:"column:quantity;not null"`
	LineTotalCents int64      `gorm:"column:line_total_cents;not null"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
}
