package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// RouterDeps collects everything the router wires. All state is
// injected; the package holds no globals.
type RouterDeps struct {
	Catalog  Catalog
	Carts    CartService
	Checkout CheckoutService
	Orders   OrderReader
	Webhooks EventHandler
	AdminCat AdminCatalog
	AdminInv AdminInventory
	AdminOrd AdminOrders

	WebhookSecret  string
	AdminToken     string
	SessionTTL     time.Duration
	RequestTimeout time.Duration
	Log            zerolog.Logger
}

func NewRouter(deps RouterDeps) http.Handler {
	catalogHandler := NewCatalogHandler(deps.Catalog, deps.Log)
	cartHandler := NewCartHandler(deps.Carts, deps.Log)
	checkoutHandler := NewCheckoutHandler(deps.Checkout, deps.Log)
	orderHandler := NewOrderHandler(deps.Orders, deps.Log)
	webhookHandler := NewWebhookHandler(deps.Webhooks, deps.WebhookSecret, deps.Log)
	adminHandler := NewAdminHandler(deps.AdminCat, deps.AdminInv, deps.AdminOrd, deps.Log)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(deps.Log))
	r.Use(middleware.Timeout(deps.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", catalogHandler.ListProducts)
		r.Get("/products/{slug}", catalogHandler.GetProduct)
		r.Get("/categories", catalogHandler.ListCategories)
		r.Get("/orders/{number}", orderHandler.Get)

		// Cart and checkout are session-scoped.
		r.Group(func(r chi.Router) {
			r.Use(SessionMiddleware(deps.SessionTTL))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.Get)
				r.Post("/items", cartHandler.AddItem)
				r.Patch("/items/{sku_id}", cartHandler.UpdateQuantity)
				r.Delete("/items/{sku_id}", cartHandler.RemoveItem)
				r.Post("/clear", cartHandler.Clear)
			})

			r.Post("/checkout", checkoutHandler.Submit)
		})

		r.Post("/webhooks/payments", webhookHandler.Receive)

		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminAuth(deps.AdminToken))

			r.Get("/categories", adminHandler.ListCategories)
			r.Post("/categories", adminHandler.CreateCategory)
			r.Put("/categories/{id}", adminHandler.UpdateCategory)
			r.Delete("/categories/{id}", adminHandler.DeleteCategory)
			r.Get("/products", adminHandler.ListProducts)
			r.Post("/products", adminHandler.CreateProduct)
			r.Put("/products/{id}", adminHandler.UpdateProduct)
			r.Delete("/products/{id}", adminHandler.DeleteProduct)
			r.Post("/products/{id}/skus", adminHandler.CreateSKU)
			r.Put("/skus/{sku_id}", adminHandler.UpdateSKU)
			r.Delete("/skus/{sku_id}", adminHandler.DeleteSKU)
			r.Post("/skus/{sku_id}/restock", adminHandler.Restock)
			r.Get("/inventory/low-stock", adminHandler.LowStock)

			r.Get("/orders", adminHandler.ListOrders)
			r.Get("/orders/{id}", adminHandler.GetOrder)
			r.Patch("/orders/{id}/status", adminHandler.UpdateOrderStatus)
			r.Delete("/orders/{id}", adminHandler.DeleteOrder)
		})
	})

	return r
}
