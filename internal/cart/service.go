package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/oscshop/storefront-backend/pkg/db/models"
	pkgerrors "github.com/oscshop/storefront-backend/pkg/errors"
	"github.com/oscshop/storefront-backend/pkg/logger"
)

type catalogFinder interface {
	FindVariant(ctx context.Context, productID uuid.UUID, size, color string) (*models.Product, *models.ProductVariant, error)
}

// Service exposes cart mutation and snapshot operations.
type Service interface {
	AddItem(ctx context.Context, token string, input ItemInput) (Snapshot, error)
	RemoveItem(ctx context.Context, token, variantKey string) (Snapshot, error)
	UpdateQuantity(ctx context.Context, token, variantKey string, quantity int) (Snapshot, error)
	Clear(ctx context.Context, token string) error
	Snapshot(ctx context.Context, token string) (Snapshot, error)
}

type service struct {
	store   Store
	catalog catalogFinder
	logg    *logger.Logger
}

// ServiceParams wires the cart service dependencies.
type ServiceParams struct {
	Store   Store
	Catalog catalogFinder
	Logger  *logger.Logger
}

// NewService builds a cart service backed by the provided stack.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog finder required")
	}
	return &service{
		store:   params.Store,
		catalog: params.Catalog,
		logg:    params.Logger,
	}, nil
}

// ItemInput is the client payload for adding a variant to a cart.
type ItemInput struct {
	ProductID      *uuid.UUID
	VariantID      *uuid.UUID
	Name           string
	Size           string
	Color          string
	ImageURL       string
	UnitPriceCents int64
	Quantity       int
}

// AddItem merges the input into the cart: an entry with the same variant
// identity gets its quantity incremented, otherwise a new entry is
// appended. The client's price snapshot is re-verified against the catalog
// whenever the variant still exists there.
func (s *service) AddItem(ctx context.Context, token string, input ItemInput) (Snapshot, error) {
	if token == "" {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "cart token is required")
	}
	if input.Name == "" {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "item name is required")
	}
	if input.UnitPriceCents < 0 {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "unit price must be non-negative")
	}
	if input.Quantity <= 0 {
		input.Quantity = 1
	}

	item := Item{
		ProductID:      input.ProductID,
		VariantID:      input.VariantID,
		Name:           input.Name,
		Size:           input.Size,
		Color:          input.Color,
		ImageURL:       input.ImageURL,
		UnitPriceCents: input.UnitPriceCents,
		Quantity:       input.Quantity,
	}

	if input.ProductID != nil && *input.ProductID != uuid.Nil {
		product, variant, err := s.catalog.FindVariant(ctx, *input.ProductID, input.Size, input.Color)
		if err != nil {
			return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify catalog price")
		}
		if product != nil {
			item.Name = product.Name
			if product.ImageURL != "" {
				item.ImageURL = product.ImageURL
			}
			item.UnitPriceCents = product.PriceCents
			if variant != nil {
				item.VariantID = &variant.ID
				item.UnitPriceCents = variant.EffectivePriceCents(product.PriceCents)
			}
		}
	}

	cart, err := s.store.Load(ctx, token)
	if err != nil {
		return Snapshot{}, err
	}

	if idx := cart.indexOf(item.VariantKey()); idx >= 0 {
		cart.Items[idx].Quantity += item.Quantity
	} else {
		cart.Items = append(cart.Items, item)
	}

	if err := s.store.Save(ctx, cart); err != nil {
		return Snapshot{}, err
	}
	return cart.snapshot(), nil
}

// RemoveItem deletes the entry when present; absent entries are a no-op.
func (s *service) RemoveItem(ctx context.Context, token, variantKey string) (Snapshot, error) {
	cart, err := s.store.Load(ctx, token)
	if err != nil {
		return Snapshot{}, err
	}

	if idx := cart.indexOf(variantKey); idx >= 0 {
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
		if err := s.store.Save(ctx, cart); err != nil {
			return Snapshot{}, err
		}
	}
	return cart.snapshot(), nil
}

// UpdateQuantity sets the exact quantity for the entry; a non-positive
// quantity behaves as removal.
func (s *service) UpdateQuantity(ctx context.Context, token, variantKey string, quantity int) (Snapshot, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, token, variantKey)
	}

	cart, err := s.store.Load(ctx, token)
	if err != nil {
		return Snapshot{}, err
	}

	idx := cart.indexOf(variantKey)
	if idx < 0 {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	cart.Items[idx].Quantity = quantity

	if err := s.store.Save(ctx, cart); err != nil {
		return Snapshot{}, err
	}
	return cart.snapshot(), nil
}

// Clear drops the stored cart entirely.
func (s *service) Clear(ctx context.Context, token string) error {
	return s.store.Delete(ctx, token)
}

// Snapshot returns an immutable copy of the cart items and totals for
// handoff to checkout.
func (s *service) Snapshot(ctx context.Context, token string) (Snapshot, error) {
	cart, err := s.store.Load(ctx, token)
	if err != nil {
		return Snapshot{}, err
	}
	return cart.snapshot(), nil
}
