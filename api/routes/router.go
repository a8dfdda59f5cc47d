package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/oscshop/storefront-backend/api/controllers"
	webhookcontrollers "github.com/oscshop/storefront-backend/api/controllers/webhooks"
	"github.com/oscshop/storefront-backend/api/middleware"
	cartsvc "github.com/oscshop/storefront-backend/internal/cart"
	checkoutsvc "github.com/oscshop/storefront-backend/internal/checkout"
	"github.com/oscshop/storefront-backend/internal/orders"
	stripewebhook "github.com/oscshop/storefront-backend/internal/webhooks/stripe"
	"github.com/oscshop/storefront-backend/pkg/config"
	"github.com/oscshop/storefront-backend/pkg/db"
	"github.com/oscshop/storefront-backend/pkg/logger"
	"github.com/oscshop/storefront-backend/pkg/redis"
	"github.com/oscshop/storefront-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	cartService cartsvc.Service,
	checkoutService checkoutsvc.Service,
	ordersService orders.Service,
	stripeClient *stripe.Client,
	stripeWebhookService *stripewebhook.Service,
	stripeWebhookGuard *stripewebhook.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	// The signature check inside the handler is the webhook's only
	// authentication; no cart token or idempotency middleware applies here.
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, stripeWebhookGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CartToken())
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(cartService, logg))
			r.Post("/items", controllers.CartAddItem(cartService, logg))
			r.Patch("/items", controllers.CartUpdateItem(cartService, logg))
			r.Delete("/items", controllers.CartRemoveItem(cartService, logg))
			r.Delete("/", controllers.CartClear(cartService, logg))
		})

		r.Post("/checkout/session", controllers.CheckoutSession(cartService, checkoutService, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersList(ordersService, logg))
			r.Get("/{orderRef}", controllers.OrderDetail(ordersService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersList(ordersService, logg))
			r.Get("/{orderRef}", controllers.OrderDetail(ordersService, logg))
			r.Post("/{orderId}/status", controllers.AdminOrderStatus(ordersService, logg))
		})
	})

	return r
}
