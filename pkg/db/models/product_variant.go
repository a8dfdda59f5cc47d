package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductVariant is identified by (product, size, color) and may override the
// product's base price.
type ProductVariant struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_product_variants_identity"`
	Size       string    `gorm:"column:size;not null;uniqueIndex:idx_product_variants_identity"`
	Color      string    `gorm:"column:color;not null;uniqueIndex:idx_product_variants_identity"`
	PriceCents *int64    `gorm:"column:price_cents"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectivePriceCents resolves the variant override against the base price.
func (v ProductVariant) EffectivePriceCents(basePriceCents int64) int64 {
	if v.PriceCents != nil {
		return *v.PriceCents
	}
	return basePriceCents
}
