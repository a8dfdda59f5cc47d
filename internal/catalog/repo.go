package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oscshop/storefront-backend/pkg/db/models"
)

// Repository is the read-only catalog lookup used by cart validation and
// order display. Nothing in this package mutates catalog rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided GORM handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindProduct returns the product with its variants, or nil when absent.
func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants").
		Where("id = ?", id).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindVariant resolves a variant by its (product, size, color) identity,
// or nil when either the product or the variant no longer exists.
func (r *Repository) FindVariant(ctx context.Context, productID uuid.UUID, size, color string) (*models.Product, *models.ProductVariant, error) {
	product, err := r.FindProduct(ctx, productID)
	if err != nil || product == nil {
		return nil, nil, err
	}

	size = strings.ToLower(strings.TrimSpace(size))
	color = strings.ToLower(strings.TrimSpace(color))
	for i := range product.Variants {
		v := &product.Variants[i]
		if strings.ToLower(v.Size) == size && strings.ToLower(v.Color) == color {
			return product, v, nil
		}
	}
	return product, nil, nil
}
