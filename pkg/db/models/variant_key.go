package models

import (
	"strings"

	"github.com/google/uuid"
)

// BuildVariantKey derives the stable identity used to deduplicate line items.
// A known variant id wins; otherwise the key combines the product (or the
// display name when even that is gone) with the option pair, so two entries
// for the same size/color always collapse and distinct items never do.
func BuildVariantKey(productID, variantID *uuid.UUID, name, size, color string) string {
	if variantID != nil && *variantID != uuid.Nil {
		return variantID.String()
	}
	product := strings.ToLower(strings.TrimSpace(name))
	if productID != nil && *productID != uuid.Nil {
		product = productID.String()
	}
	return strings.Join([]string{
		product,
		strings.ToLower(strings.TrimSpace(size)),
		strings.ToLower(strings.TrimSpace(color)),
	}, "|")
}
