// Package http is the storefront's chi-based HTTP surface.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vegasarees/storefront/internal/admin"
	"github.com/vegasarees/storefront/internal/catalog"
	"github.com/vegasarees/storefront/internal/store"
	"github.com/vegasarees/storefront/pkg/health"
	"github.com/vegasarees/storefront/pkg/middleware"
)

// RouterConfig holds the cross-cutting HTTP settings.
type RouterConfig struct {
	ServiceName    string
	CORSOrigins    []string
	RequestTimeout time.Duration

	// Per-client limit on /api/v1; RateLimitRPS <= 0 disables it.
	RateLimitRPS   float64
	RateLimitBurst int

	// Per-client limit on admin login attempts, on top of the per-session
	// lockout. A client without a session id gets a fresh session on every
	// request, so only this bounds its guessing.
	LoginRateLimitRPS   float64
	LoginRateLimitBurst int
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(
	cfg RouterConfig,
	registry *store.Registry,
	products catalog.Reader,
	gate *admin.Gate,
	productService *admin.ProductService,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins...)))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	shopHandler := NewShopHandler(products, logger)
	productHandler := NewProductHandler(products, logger)
	adminHandler := NewAdminHandler(gate, productService, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger))
		r.Use(ContentTypeJSON)
		r.Use(Session(registry, logger))

		r.Route("/shop", func(r chi.Router) {
			r.Get("/", shopHandler.GetState)

			r.Get("/cart/summary", shopHandler.GetCartSummary)
			r.Delete("/cart", shopHandler.ClearCart)
			r.Post("/cart/items", shopHandler.AddToCart)
			r.Put("/cart/items/{productId}", shopHandler.UpdateQuantity)
			r.Delete("/cart/items/{productId}", shopHandler.RemoveFromCart)

			r.Post("/wishlist/{productId}/toggle", shopHandler.ToggleWishlist)
			r.Delete("/wishlist", shopHandler.ClearWishlist)
			r.Post("/wishlist/move-to-cart", shopHandler.MoveWishlistToCart)

			r.Post("/recently-viewed", shopHandler.RecordView)
			r.Post("/searches", shopHandler.RecordSearch)

			r.Patch("/filters", shopHandler.UpdateFilters)
			r.Delete("/filters", shopHandler.ResetFilters)
		})

		r.Get("/products", productHandler.ListProducts)
		r.Get("/products/{id}", productHandler.GetProduct)

		r.Route("/admin", func(r chi.Router) {
			r.With(middleware.RateLimit(cfg.LoginRateLimitRPS, cfg.LoginRateLimitBurst, logger)).
				Post("/login", adminHandler.Login)
			r.Post("/logout", adminHandler.Logout)
			r.Get("/status", adminHandler.Status)

			r.Group(func(r chi.Router) {
				r.Use(adminHandler.RequireAdmin)

				r.Get("/products", adminHandler.ListProducts)
				r.Post("/products", adminHandler.CreateProduct)
				r.Post("/products/reset", adminHandler.ResetProducts)
				r.Get("/products/{id}", adminHandler.GetProduct)
				r.Put("/products/{id}", adminHandler.UpdateProduct)
				r.Delete("/products/{id}", adminHandler.DeleteProduct)
			})
		})
	})

	return r
}
