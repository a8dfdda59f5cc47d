package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/oscshop/storefront-backend/api/middleware"
	"github.com/oscshop/storefront-backend/api/responses"
	"github.com/oscshop/storefront-backend/api/validators"
	cartsvc "github.com/oscshop/storefront-backend/internal/cart"
	pkgerrors "github.com/oscshop/storefront-backend/pkg/errors"
	"github.com/oscshop/storefront-backend/pkg/logger"
)

// CartGet returns the current cart snapshot for the caller's cart token.
func CartGet(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		snapshot, err := svc.Snapshot(r.Context(), middleware.CartTokenFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(snapshot))
	}
}

// CartAddItem merges one item into the cart.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := svc.AddItem(r.Context(), middleware.CartTokenFromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(snapshot))
	}
}

// CartUpdateItem sets the exact quantity for one cart entry. Quantity zero
// removes the entry.
func CartUpdateItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := svc.UpdateQuantity(r.Context(), middleware.CartTokenFromContext(r.Context()), payload.VariantKey, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(snapshot))
	}
}

// CartRemoveItem removes one entry from the cart; removing an absent entry
// returns the unchanged snapshot.
func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload removeCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := svc.RemoveItem(r.Context(), middleware.CartTokenFromContext(r.Context()), payload.VariantKey)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(snapshot))
	}
}

// CartClear drops the cart entirely.
func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		if err := svc.Clear(r.Context(), middleware.CartTokenFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

type addCartItemRequest struct {
	ProductID      *uuid.UUID `json:"product_id"`
	VariantID      *uuid.UUID `json:"variant_id"`
	Name           string     `json:"name" validate:"required"`
	Size           string     `json:"size"`
	Color          string     `json:"color"`
	ImageURL       string     `json:"image_url"`
	UnitPriceCents int64      `json:"unit_price_cents" validate:"min=0"`
	Quantity       int        `json:"quantity" validate:"min=0,max=999"`
}

func (r addCartItemRequest) toInput() (cartsvc.ItemInput, error) {
	return cartsvc.ItemInput{
		ProductID:      r.ProductID,
		VariantID:      r.VariantID,
		Name:           r.Name,
		Size:           r.Size,
		Color:          r.Color,
		ImageURL:       r.ImageURL,
		UnitPriceCents: r.UnitPriceCents,
		Quantity:       r.Quantity,
	}, nil
}

type updateCartItemRequest struct {
	VariantKey string `json:"variant_key" validate:"required"`
	Quantity   int    `json:"quantity" validate:"min=0,max=999"`
}

type removeCartItemRequest struct {
	VariantKey string `json:"variant_key" validate:"required"`
}

type cartResponse struct {
	Token         string             `json:"token"`
	Items         []cartItemResponse `json:"items"`
	SubtotalCents int64              `json:"subtotal_cents"`
	ShippingCents int64              `json:"shipping_cents"`
	TotalCents    int64              `json:"total_cents"`
}

type cartItemResponse struct {
	VariantKey     string     `json:"variant_key"`
	ProductID      *uuid.UUID `json:"product_id,omitempty"`
	VariantID      *uuid.UUID `json:"variant_id,omitempty"`
	Name           string     `json:"name"`
	Size           string     `json:"size,omitempty"`
	Color          string     `json:"color,omitempty"`
	ImageURL       string     `json:"image_url,omitempty"`
	UnitPriceCents int64      `json:"unit_price_cents"`
	Quantity       int        `json:"quantity"`
	LineTotalCents int64      `json:"line_total_cents"`
}

func newCartResponse(snapshot cartsvc.Snapshot) cartResponse {
	items := make([]cartItemResponse, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		items = append(items, cartItemResponse{
			VariantKey:     item.VariantKey(),
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			Name:           item.Name,
			Size:           item.Size,
			Color:          item.Color,
			ImageURL:       item.ImageURL,
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Quantity,
			LineTotalCents: item.LineTotalCents(),
		})
	}

	return cartResponse{
		Token:         snapshot.Token,
		Items:         items,
		SubtotalCents: snapshot.Totals.SubtotalCents,
		ShippingCents: snapshot.Totals.ShippingCents,
		TotalCents:    snapshot.Totals.TotalCents,
	}
}
