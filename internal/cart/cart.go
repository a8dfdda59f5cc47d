package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/oscshop/storefront-backend/pkg/db/models"
)

// Cart is the server-persisted state for one storefront visitor, keyed by
// an opaque client-held token.
type Cart struct {
	Token     string    `json:"token"`
	Items     []Item    `json:"items"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Item is one variant entry in a cart.
type Item struct {
	ProductID      *uuid.UUID `json:"product_id,omitempty"`
	VariantID      *uuid.UUID `json:"variant_id,omitempty"`
	Name           string     `json:"name"`
	Size           string     `json:"size,omitempty"`
	Color          string     `json:"color,omitempty"`
	ImageURL       string     `json:"image_url,omitempty"`
	UnitPriceCents int64      `json:"unit_price_cents"`
	Quantity       int        `json:"quantity"`
}

// VariantKey returns the identity used for merge and dedupe.
func (i Item) VariantKey() string {
	return models.BuildVariantKey(i.ProductID, i.VariantID, i.Name, i.Size, i.Color)
}

// LineTotalCents is the frozen unit price times quantity.
func (i Item) LineTotalCents() int64 {
	return i.UnitPriceCents * int64(i.Quantity)
}

// Totals carries the computed monetary summary of a cart.
type Totals struct {
	SubtotalCents int64 `json:"subtotal_cents"`
	ShippingCents int64 `json:"shipping_cents"`
	TotalCents    int64 `json:"total_cents"`
}

// Snapshot is an immutable copy of a cart's items and totals, suitable for
// handoff to checkout.
type Snapshot struct {
	Token  string `json:"token"`
	Items  []Item `json:"items"`
	Totals Totals `json:"totals"`
}

// IsEmpty reports whether the snapshot has no line items.
func (s Snapshot) IsEmpty() bool {
	return len(s.Items) == 0
}

func (c *Cart) snapshot() Snapshot {
	items := make([]Item, len(c.Items))
	copy(items, c.Items)
	return Snapshot{
		Token:  c.Token,
		Items:  items,
		Totals: ComputeTotals(items),
	}
}

func (c *Cart) indexOf(variantKey string) int {
	for i, item := range c.Items {
		if item.VariantKey() == variantKey {
			return i
		}
	}
	return -1
}
