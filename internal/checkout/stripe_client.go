package checkout

import (
	"context"

	pkgstripe "github.com/oscshop/storefront-backend/pkg/stripe"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
)

// StripeCheckoutClient exposes the subset of Stripe operations required by the checkout service.
type StripeCheckoutClient interface {
	CreateSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type stripeClientWrapper struct {
	sessions session.Client
}

// NewStripeClient wraps the provided Stripe client so the checkout service
// can be tested. The resource client is bound to the wrapped client's key,
// not the package globals.
func NewStripeClient(api *pkgstripe.Client) StripeCheckoutClient {
	if api == nil {
		return nil
	}
	return &stripeClientWrapper{
		sessions: session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: api.APIKey()},
	}
}

func (w *stripeClientWrapper) CreateSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if params != nil {
		params.Context = ctx
	}
	return w.sessions.New(params)
}
