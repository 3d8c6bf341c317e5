package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/ordering-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/ordering-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/ordering-backend/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/ordering-backend/api/controllers/webhooks"
	"github.com/angelmondragon/ordering-backend/api/middleware"
	"github.com/angelmondragon/ordering-backend/internal/cart"
	"github.com/angelmondragon/ordering-backend/internal/cart/anoncart"
	checkoutsvc "github.com/angelmondragon/ordering-backend/internal/checkout"
	"github.com/angelmondragon/ordering-backend/internal/orders"
	product "github.com/angelmondragon/ordering-backend/internal/products"
	"github.com/angelmondragon/ordering-backend/pkg/config"
	"github.com/angelmondragon/ordering-backend/pkg/logger"
	"github.com/angelmondragon/ordering-backend/pkg/redis"
)

// RedisStore is the redis surface the HTTP layer needs: idempotent replays,
// rate limiting and the readiness probe.
type RedisStore interface {
	redis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

type productCatalog interface {
	ProductOptions(ctx context.Context, productID uuid.UUID) (*product.ProductOptionsDTO, error)
}

type webhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type signingSecretSource interface {
	SigningSecret() string
}

// Infra carries the shared clients. Nil members disable the features that
// depend on them.
type Infra struct {
	DB      controllers.Pinger
	Redis   RedisStore
	Metrics http.Handler
}

// Services are the domain handlers mounted on the router.
type Services struct {
	Products     productCatalog
	Cart         cart.Service
	GuestCart    *anoncart.Store
	Checkout     checkoutsvc.Service
	Orders       orders.Service
	Settings     controllers.SettingsSource
	Webhook      webhookcontrollers.PaymentEventService
	WebhookKeys  signingSecretSource
	WebhookGuard webhookGuard
}

func NewRouter(cfg *config.Config, logg *logger.Logger, infra Infra, svcs Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.PublicURL, cfg.App.CORSOrigins),
	)

	readiness := map[string]controllers.Pinger{}
	if infra.DB != nil {
		readiness["database"] = infra.DB
	}
	if infra.Redis != nil {
		readiness["redis"] = infra.Redis
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if infra.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", infra.Metrics)
	}

	paymentWebhook := webhookcontrollers.PaymentWebhook(svcs.Webhook, svcs.WebhookKeys, svcs.WebhookGuard, logg)
	r.Post("/webhooks/payment", paymentWebhook)
	r.Post("/webhooks/stripe", paymentWebhook)

	// Typed nils would satisfy the interfaces, so optional dependencies are
	// only wired when present.
	var (
		idemStore redis.IdempotencyStore
		limiter   interface {
			FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
		}
	)
	if infra.Redis != nil {
		idemStore = infra.Redis
		limiter = infra.Redis
	}
	checkoutPolicy := middleware.RateLimitPolicy{
		Name:   "checkout",
		Limit:  cfg.Checkout.RateLimit,
		Window: cfg.Checkout.RateWindow,
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products/{productId}/options", controllers.ProductOptions(svcs.Products, logg))
		r.Get("/settings", controllers.SettingsFetch(svcs.Settings, logg))

		if svcs.GuestCart != nil {
			r.Route("/guest/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.GuestCartFetch(svcs.GuestCart, logg))
				r.Post("/", cartcontrollers.GuestCartAdd(svcs.GuestCart, logg))
				r.Delete("/", cartcontrollers.GuestCartClear(svcs.GuestCart, logg))
				r.Patch("/{itemId}", cartcontrollers.GuestCartUpdate(svcs.GuestCart, logg))
				r.Delete("/{itemId}", cartcontrollers.GuestCartRemove(svcs.GuestCart, logg))
			})
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(idemStore, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.CartFetch(svcs.Cart, logg))
				r.Post("/", cartcontrollers.CartAdd(svcs.Cart, logg))
				r.Delete("/", cartcontrollers.CartClear(svcs.Cart, logg))
				r.Post("/merge", cartcontrollers.CartMerge(svcs.Cart, svcs.GuestCart, logg))
				r.Patch("/{itemId}", cartcontrollers.CartUpdate(svcs.Cart, logg))
				r.Delete("/{itemId}", cartcontrollers.CartRemove(svcs.Cart, logg))
			})

			r.Route("/checkout", func(r chi.Router) {
				r.With(middleware.RateLimit(checkoutPolicy, limiter, logg)).
					Post("/", controllers.CheckoutCreate(svcs.Checkout, svcs.Settings, logg))
				r.Post("/process", controllers.CheckoutProcess(svcs.Checkout, svcs.Settings, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.OrderList(svcs.Orders, logg))
				r.Post("/", ordercontrollers.OrderCreate(svcs.Orders, svcs.Cart, svcs.Settings, logg))
				r.Get("/{orderId}", ordercontrollers.OrderDetail(svcs.Orders, logg))
				r.Post("/{orderId}/cancel", ordercontrollers.OrderCancel(svcs.Orders, svcs.Settings, logg))
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin(logg))
				r.Patch("/orders/{orderId}/status", ordercontrollers.AdminOrderStatus(svcs.Orders, logg))
				r.Get("/users/{userId}/orders", ordercontrollers.AdminUserOrders(svcs.Orders, logg))
			})
		})
	})

	return r
}
