package api

import (
	"net/http"

	"github.com/korjavin/tienda/internal/middleware"
)

// RegisterRoutes registers all HTTP routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, apiKeys []string, h *Handler) {
	h.init()
	protected := middleware.APIKey(apiKeys)
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, protected(fn))
	}

	// Public
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /metrics", h.MetricsReport)

	// Catalog
	handle("GET /api/v1/catalog/search", h.Search)
	handle("GET /api/v1/catalog/prefix", h.Prefix)
	handle("GET /api/v1/catalog/initials", h.Groups)
	handle("GET /api/v1/catalog/suggest", h.Suggest)

	// Carts
	handle("POST /api/v1/carts", h.CreateCart)
	handle("GET /api/v1/carts/{id}", h.GetCart)
	handle("DELETE /api/v1/carts/{id}", h.DeleteCart)
	handle("POST /api/v1/carts/{id}/items", h.AddItem)
	handle("DELETE /api/v1/carts/{id}/items", h.ClearCart)
	handle("DELETE /api/v1/carts/{id}/items/{index}", h.RemoveItem)
	handle("POST /api/v1/carts/{id}/checkout", h.Checkout)
}
