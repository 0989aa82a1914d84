package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/peakrent/peakrent-backend/api/controllers"
	cartcontrollers "github.com/peakrent/peakrent-backend/api/controllers/cart"
	ordercontrollers "github.com/peakrent/peakrent-backend/api/controllers/orders"
	webhookcontrollers "github.com/peakrent/peakrent-backend/api/controllers/webhooks"
	"github.com/peakrent/peakrent-backend/api/middleware"
	"github.com/peakrent/peakrent-backend/internal/auth"
	"github.com/peakrent/peakrent-backend/internal/cart"
	"github.com/peakrent/peakrent-backend/internal/catalog"
	checkoutsvc "github.com/peakrent/peakrent-backend/internal/checkout"
	"github.com/peakrent/peakrent-backend/internal/orders"
	"github.com/peakrent/peakrent-backend/internal/vouchers"
	"github.com/peakrent/peakrent-backend/pkg/auth/session"
	"github.com/peakrent/peakrent-backend/pkg/config"
	"github.com/peakrent/peakrent-backend/pkg/enums"
	"github.com/peakrent/peakrent-backend/pkg/logger"
	"github.com/peakrent/peakrent-backend/pkg/metrics"
	"github.com/peakrent/peakrent-backend/pkg/redis"
)

const (
	checkoutRateLimit  = 10
	checkoutRateWindow = time.Minute
)

// redisStore is the redis surface used by the HTTP middleware stack.
type redisStore interface {
	redis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

type dbPinger interface {
	Ping(ctx context.Context) error
}

// Deps bundles everything the API routes need.
type Deps struct {
	DB       dbPinger
	Redis    redisStore
	Sessions session.AccessSessionChecker
	Gatherer prometheus.Gatherer
	HTTP     *metrics.HTTPMetrics
	Events   *metrics.EventMetrics

	Auth          auth.Service
	Catalog       catalog.Service
	Cart          cart.Service
	Vouchers      vouchers.Service
	Orders        orders.Service
	Checkout      checkoutsvc.Service
	StripeWebhook webhookcontrollers.StripeWebhookService
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Logging(logg, deps.HTTP),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	readiness := map[string]controllers.Pinger{}
	if deps.Redis != nil {
		readiness["redis"] = deps.Redis
	}
	if deps.DB != nil {
		readiness["db"] = deps.DB
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness, logg))
	})
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(deps.StripeWebhook, deps.Events, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.With(
			middleware.AuthRateLimit(registerPolicy, deps.Redis, logg),
			middleware.Idempotency(deps.Redis, logg),
		).Post("/register", controllers.AuthRegister(deps.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(deps.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public catalog.
		r.Get("/stores", controllers.ListStores(deps.Catalog, logg))
		r.Get("/products", controllers.ListProducts(deps.Catalog, logg))
		r.Get("/products/{product}", controllers.GetProduct(deps.Catalog, logg))
		r.Get("/variants/{variantId}/availability", controllers.VariantAvailability(deps.Catalog, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
			r.Use(middleware.Idempotency(deps.Redis, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.Fetch(deps.Cart, logg))
				r.Get("/quote", cartcontrollers.Quote(deps.Cart, logg))
				r.Post("/items", cartcontrollers.AddItem(deps.Cart, logg))
				r.Patch("/items/{itemId}", cartcontrollers.UpdateItem(deps.Cart, logg))
				r.Delete("/items/{itemId}", cartcontrollers.RemoveItem(deps.Cart, logg))
				r.Put("/voucher", cartcontrollers.ApplyVoucher(deps.Cart, logg))
				r.Delete("/voucher", cartcontrollers.RemoveVoucher(deps.Cart, logg))
				r.Put("/address", cartcontrollers.SetAddress(deps.Cart, logg))
			})

			r.With(middleware.RateLimit("checkout", checkoutRateLimit, checkoutRateWindow, deps.Redis, logg)).
				Post("/checkout", controllers.Checkout(deps.Checkout, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.List(deps.Orders, logg))
				r.Get("/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
				r.Post("/{orderId}/cancel", ordercontrollers.Cancel(deps.Orders, logg))
			})

			r.Route("/admin", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(logg, enums.UserRoleStaff, enums.UserRoleAdmin))
					r.Get("/orders", ordercontrollers.AdminList(deps.Orders, logg))
					r.Get("/orders/{orderId}", ordercontrollers.AdminDetail(deps.Orders, logg))
					r.Patch("/orders/{orderId}/status", ordercontrollers.AdminUpdateStatus(deps.Orders, logg))
					r.Patch("/orders/{orderId}/items/{itemId}/status", ordercontrollers.AdminSetItemStatus(deps.Orders, logg))
				})

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))

					r.Post("/stores", controllers.AdminCreateStore(deps.Catalog, logg))
					r.Patch("/stores/{storeId}", controllers.AdminUpdateStore(deps.Catalog, logg))

					r.Post("/products", controllers.AdminCreateProduct(deps.Catalog, logg))
					r.Get("/products/{productId}", controllers.AdminGetProduct(deps.Catalog, logg))
					r.Patch("/products/{productId}", controllers.AdminUpdateProduct(deps.Catalog, logg))
					r.Post("/products/{productId}/variants", controllers.AdminCreateVariant(deps.Catalog, logg))
					r.Post("/products/{productId}/images", controllers.AdminUploadImage(deps.Catalog, cfg.Storage.MaxUploadMB, logg))
					r.Delete("/products/{productId}/images/{imageId}", controllers.AdminDeleteImage(deps.Catalog, logg))
					r.Patch("/variants/{variantId}", controllers.AdminUpdateVariant(deps.Catalog, logg))

					r.Route("/vouchers", func(r chi.Router) {
						r.Post("/", controllers.AdminCreateVoucher(deps.Vouchers, logg))
						r.Get("/", controllers.AdminListVouchers(deps.Vouchers, logg))
						r.Get("/{voucherId}", controllers.AdminGetVoucher(deps.Vouchers, logg))
						r.Patch("/{voucherId}", controllers.AdminUpdateVoucher(deps.Vouchers, logg))
						r.Delete("/{voucherId}", controllers.AdminDeleteVoucher(deps.Vouchers, logg))
					})
				})
			})
		})
	})

	return r
}
