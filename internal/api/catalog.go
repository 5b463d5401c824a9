package api

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/carzzy2/bewell-pos/internal/domain/catalog"
)

const defaultPageSize = 6

// listProducts serves a paged catalog search:
// GET /api/products?search=&category=&page=&pageSize=
//
// Catalog failures never crash the terminal; they surface as 502 with an
// advisory body and the previous UI state stays on screen.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := catalog.Query{
		Text:     r.URL.Query().Get("search"),
		Category: r.URL.Query().Get("category"),
		Page:     intParam(r, "page", 1),
		PageSize: intParam(r, "pageSize", defaultPageSize),
	}

	page, err := h.catalog.Search(r.Context(), q)
	if err != nil {
		zctx.From(r.Context()).Error("Catalog search failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "catalog unavailable")
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("products", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, p := range page.Products {
						h.encodeProduct(e, p)
					}
				})
			})
			e.Field("totalProducts", func(e *jx.Encoder) { e.Int(page.TotalProducts) })
			e.Field("totalPages", func(e *jx.Encoder) { e.Int(page.TotalPages) })
		})
	})
}

// listCategories serves GET /api/categories.
func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		zctx.From(r.Context()).Error("Category listing failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "catalog unavailable")
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, c := range categories {
				e.Str(c)
			}
		})
	})
}

// encodeProduct writes the catalog product shape shared by search results
// and cart lines.
func (h *Handler) encodeProduct(e *jx.Encoder, p catalog.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("no", func(e *jx.Encoder) { e.Int(p.Ordinal) })
		e.Field("productId", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("productName", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
		e.Field("price", func(e *jx.Encoder) { encodeDecimal(e, p.Price) })
		e.Field("imageUrl", func(e *jx.Encoder) { e.Str(h.imageURL(p.ImageURL)) })
		e.Field("stock", func(e *jx.Encoder) { e.Int(p.Stock) })
	})
}

// intParam parses a positive integer query parameter with a fallback.
func intParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
