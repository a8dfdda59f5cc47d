package controllers

import (
	"net/http"

	"github.com/oscshop/storefront-backend/api/middleware"
	"github.com/oscshop/storefront-backend/api/responses"
	cartsvc "github.com/oscshop/storefront-backend/internal/cart"
	checkoutsvc "github.com/oscshop/storefront-backend/internal/checkout"
	pkgerrors "github.com/oscshop/storefront-backend/pkg/errors"
	"github.com/oscshop/storefront-backend/pkg/logger"
)

// CheckoutSession snapshots the caller's cart and opens a Stripe hosted
// Checkout session for it. The cart is left intact; it is cleared by the
// storefront after a successful redirect, not here.
func CheckoutSession(carts cartsvc.Service, checkout checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if carts == nil || checkout == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}

		snapshot, err := carts.Snapshot(ctx, middleware.CartTokenFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := checkout.CreateSession(ctx, checkoutsvc.CreateSessionInput{
			Snapshot: snapshot,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
