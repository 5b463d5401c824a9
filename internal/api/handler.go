// Package api exposes the catalog and the cart engine over HTTP. It is thin
// presentation glue: request parsing, range clamping, and response shaping.
// All cart semantics live in the cart package.
package api

import (
	"net/http"

	"github.com/carzzy2/bewell-pos/internal/domain/cart"
	"github.com/carzzy2/bewell-pos/internal/domain/catalog"
	"github.com/carzzy2/bewell-pos/internal/money"
)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
}

// Handler serves the POS API: catalog search and the cart session.
type Handler struct {
	catalog      catalog.Repository
	cart         *cart.Store
	formatter    *money.Formatter
	imageBaseURL string
}

// NewHandler constructs a Handler with the required dependencies.
func NewHandler(
	cfg HandlerConfig,
	catalogRepo catalog.Repository,
	cartStore *cart.Store,
	formatter *money.Formatter,
) *Handler {
	return &Handler{
		catalog:      catalogRepo,
		cart:         cartStore,
		formatter:    formatter,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Routes registers all API endpoints on the mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/categories", h.listCategories)

	mux.HandleFunc("GET /api/cart", h.getCart)
	mux.HandleFunc("DELETE /api/cart", h.clearCart)
	mux.HandleFunc("POST /api/cart/items", h.addItem)
	mux.HandleFunc("DELETE /api/cart/items/{id}", h.removeItem)
	mux.HandleFunc("PUT /api/cart/items/{id}/quantity", h.updateQuantity)
	mux.HandleFunc("PUT /api/cart/items/{id}/discount", h.applyLineDiscount)
	mux.HandleFunc("PUT /api/cart/items/{id}/backorder", h.toggleBackorder)
	mux.HandleFunc("PUT /api/cart/discount", h.applyInvoiceDiscount)
	mux.HandleFunc("POST /api/cart/checkout", h.checkout)
}

// imageURL prefixes relative image paths with the configured base URL.
func (h *Handler) imageURL(path string) string {
	if path == "" {
		return ""
	}
	return h.imageBaseURL + path
}
