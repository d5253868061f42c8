package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ziggy12122/STK-Bot-sub000/api/controllers"
	"github.com/ziggy12122/STK-Bot-sub000/api/middleware"
	"github.com/ziggy12122/STK-Bot-sub000/internal/cart"
	"github.com/ziggy12122/STK-Bot-sub000/internal/catalog"
	"github.com/ziggy12122/STK-Bot-sub000/internal/checkout"
	"github.com/ziggy12122/STK-Bot-sub000/internal/orders"
	"github.com/ziggy12122/STK-Bot-sub000/internal/stats"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/config"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/logger"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/metrics"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/redis"
)

// Dependencies is everything the HTTP surface calls into. Gatherer and
// HTTPMetrics are optional; without them /metrics is not mounted.
type Dependencies struct {
	DB          controllers.Pinger
	Redis       controllers.Pinger
	RateLimiter redis.RateLimiter
	Catalog     catalog.Service
	Cart        cart.Service
	Checkout    checkout.Service
	Orders      orders.Service
	Stats       stats.Service
	DeadLetters controllers.DeadLetterLister
	HTTPMetrics *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
	)

	cartPolicy := middleware.NewRateLimitPolicy("cart", cfg.RateLimit.CartWindow, cfg.RateLimit.CartLimit)
	checkoutPolicy := middleware.NewRateLimitPolicy("checkout", cfg.RateLimit.CheckoutWindow, cfg.RateLimit.CheckoutLimit)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    deps.DB,
			"redis": deps.Redis,
		}))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", controllers.ProductList(deps.Catalog, logg))
		r.Get("/products/{productID}", controllers.ProductDetail(deps.Catalog, logg))
		r.Get("/categories", controllers.CategoryList(deps.Catalog, logg))
		r.Get("/stats/leaderboard", controllers.Leaderboard(deps.Stats, logg))

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Use(middleware.UserContext("userID", logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(deps.Cart, logg))
				r.Group(func(r chi.Router) {
					r.Use(middleware.RateLimit(cartPolicy, deps.RateLimiter, logg))
					r.Delete("/", controllers.CartClear(deps.Cart, logg))
					r.Post("/items", controllers.CartAddItem(deps.Cart, logg))
					r.Put("/items/{productID}", controllers.CartSetItem(deps.Cart, logg))
					r.Delete("/items/{productID}", controllers.CartRemoveItem(deps.Cart, logg))
				})
			})
			r.With(middleware.RateLimit(checkoutPolicy, deps.RateLimiter, logg)).
				Post("/checkout", controllers.Checkout(deps.Checkout, logg))
			r.Get("/orders", controllers.UserOrderList(deps.Orders, logg))
			r.Get("/orders/{orderID}", controllers.UserOrderDetail(deps.Orders, logg))
			r.Get("/stats", controllers.UserStats(deps.Stats, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminToken(cfg.Admin.Token, logg))

			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.AdminProductList(deps.Catalog, logg))
				r.Post("/", controllers.AdminCreateProduct(deps.Catalog, logg))
				r.Patch("/{productID}", controllers.AdminUpdateProduct(deps.Catalog, logg))
				r.Put("/{productID}/stock", controllers.AdminSetStock(deps.Catalog, logg))
				r.Post("/{productID}/deactivate", controllers.AdminDeactivateProduct(deps.Catalog, logg))
			})
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AdminOrderList(deps.Orders, logg))
				r.Get("/{orderID}", controllers.AdminOrderDetail(deps.Orders, logg))
				r.Post("/{orderID}/complete", controllers.AdminCompleteOrder(deps.Orders, logg))
				r.Post("/{orderID}/cancel", controllers.AdminCancelOrder(deps.Orders, logg))
			})
			r.Get("/stats/summary", controllers.AdminSalesSummary(deps.Stats, logg))
			r.Get("/outbox/dead-letters", controllers.AdminDeadLetters(deps.DeadLetters, logg))
		})
	})

	return r
}
