package api

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/carzzy2/bewell-pos/internal/domain/cart"
	"github.com/carzzy2/bewell-pos/internal/domain/catalog"
)

// getCart serves GET /api/cart.
func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	h.writeCart(w, http.StatusOK, nil)
}

// addItem serves POST /api/cart/items with body {"productId": "..."}.
// The product is resolved against the live catalog so stock is the freshest
// available figure at the time of the add.
func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	var productID string
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		switch key {
		case "productId":
			v, err := d.Str()
			productID = v
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil || productID == "" {
		writeError(w, http.StatusBadRequest, "productId required")
		return
	}

	p, err := h.catalog.GetByID(r.Context(), productID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		zctx.From(r.Context()).Error("Catalog lookup failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "catalog unavailable")
		return
	}

	notice := h.cart.Add(r.Context(), *p)
	h.writeCart(w, http.StatusOK, notice)
}

// removeItem serves DELETE /api/cart/items/{id}. Removing an absent line is
// a no-op, not an error.
func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	h.cart.Remove(r.Context(), r.PathValue("id"))
	h.writeCart(w, http.StatusOK, nil)
}

// updateQuantity serves PUT /api/cart/items/{id}/quantity with body
// {"quantity": n}. Quantities below 1 are ignored by the store.
func (h *Handler) updateQuantity(w http.ResponseWriter, r *http.Request) {
	quantity := 0
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		switch key {
		case "quantity":
			v, err := d.Int()
			quantity = v
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	notice := h.cart.UpdateQuantity(r.Context(), r.PathValue("id"), quantity)
	h.writeCart(w, http.StatusOK, notice)
}

// applyLineDiscount serves PUT /api/cart/items/{id}/discount with body
// {"type": "none|flat|percentage", "value": n}.
func (h *Handler) applyLineDiscount(w http.ResponseWriter, r *http.Request) {
	dt, value, ok := h.decodeDiscount(w, r)
	if !ok {
		return
	}
	h.cart.ApplyDiscount(r.Context(), r.PathValue("id"), dt, value)
	h.writeCart(w, http.StatusOK, nil)
}

// toggleBackorder serves PUT /api/cart/items/{id}/backorder with body
// {"backorder": true|false}.
func (h *Handler) toggleBackorder(w http.ResponseWriter, r *http.Request) {
	backorder := false
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		switch key {
		case "backorder":
			v, err := d.Bool()
			backorder = v
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	h.cart.ToggleBackorder(r.Context(), r.PathValue("id"), backorder)
	h.writeCart(w, http.StatusOK, nil)
}

// applyInvoiceDiscount serves PUT /api/cart/discount with the same body as
// the line discount endpoint.
func (h *Handler) applyInvoiceDiscount(w http.ResponseWriter, r *http.Request) {
	dt, value, ok := h.decodeDiscount(w, r)
	if !ok {
		return
	}
	h.cart.ApplyInvoiceDiscount(r.Context(), dt, value)
	h.writeCart(w, http.StatusOK, nil)
}

// clearCart serves DELETE /api/cart.
func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	h.cart.Clear(r.Context())
	h.writeCart(w, http.StatusOK, nil)
}

// checkout serves POST /api/cart/checkout. It returns the receipt snapshot;
// the cart is cleared as part of the same operation.
func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	receipt, notice := h.cart.CompleteOrder(r.Context())

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("receipt", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					e.Field("id", func(e *jx.Encoder) { e.Str(receipt.ID) })
					e.Field("totalItems", func(e *jx.Encoder) { e.Int(receipt.TotalItems) })
					e.Field("subtotal", func(e *jx.Encoder) { encodeDecimal(e, receipt.Subtotal) })
					e.Field("tax", func(e *jx.Encoder) { encodeDecimal(e, receipt.Tax) })
					e.Field("total", func(e *jx.Encoder) { encodeDecimal(e, receipt.Total) })
					e.Field("finalTotal", func(e *jx.Encoder) { encodeDecimal(e, receipt.FinalTotal) })
					e.Field("finalTotalFormatted", func(e *jx.Encoder) { e.Str(h.formatter.Format(receipt.FinalTotal)) })
					e.Field("completedAt", func(e *jx.Encoder) { e.Str(receipt.CompletedAt.Format("2006-01-02T15:04:05Z07:00")) })
				})
			})
			encodeNotice(e, notice)
		})
	})
}

// decodeDiscount parses and validates a {type, value} discount body.
// Percentage values are clamped to [0,100] here: the store deliberately does
// no range validation.
func (h *Handler) decodeDiscount(w http.ResponseWriter, r *http.Request) (cart.DiscountType, decimal.Decimal, bool) {
	var (
		rawType string
		value   = decimal.Zero
	)
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		switch key {
		case "type":
			v, err := d.Str()
			rawType = v
			return err
		case "value":
			v, err := decodeDecimal(d)
			value = v
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return "", decimal.Zero, false
	}

	dt := cart.DiscountType(rawType)
	switch dt {
	case cart.DiscountNone, cart.DiscountFlat, cart.DiscountPercentage:
	default:
		writeError(w, http.StatusBadRequest, "unknown discount type")
		return "", decimal.Zero, false
	}

	if dt == cart.DiscountPercentage {
		value = clampPercentage(value)
	}
	return dt, value, true
}

// clampPercentage bounds a percentage discount to [0,100].
func clampPercentage(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	if v.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.NewFromInt(100)
	}
	return v
}

// writeCart renders the full cart view: lines, derived totals, invoice
// discount, and the advisory notice from the operation (if any).
func (h *Handler) writeCart(w http.ResponseWriter, status int, notice *cart.Notice) {
	lines := h.cart.Lines()
	invType, invValue := h.cart.InvoiceDiscount()
	subtotal := h.cart.Subtotal()
	tax := h.cart.Tax()
	total := h.cart.Total()
	finalTotal := h.cart.FinalTotal()

	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("items", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, l := range lines {
						h.encodeLine(e, l)
					}
				})
			})
			e.Field("totalItems", func(e *jx.Encoder) { e.Int(h.cart.TotalItems()) })
			e.Field("invoiceDiscountType", func(e *jx.Encoder) { e.Str(string(invType)) })
			e.Field("invoiceDiscountValue", func(e *jx.Encoder) { encodeDecimal(e, invValue) })
			e.Field("summary", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					e.Field("subtotal", func(e *jx.Encoder) { encodeDecimal(e, subtotal) })
					e.Field("tax", func(e *jx.Encoder) { encodeDecimal(e, tax) })
					e.Field("total", func(e *jx.Encoder) { encodeDecimal(e, total) })
					e.Field("finalTotal", func(e *jx.Encoder) { encodeDecimal(e, finalTotal) })
					e.Field("subtotalFormatted", func(e *jx.Encoder) { e.Str(h.formatter.Format(subtotal)) })
					e.Field("taxFormatted", func(e *jx.Encoder) { e.Str(h.formatter.Format(tax)) })
					e.Field("totalFormatted", func(e *jx.Encoder) { e.Str(h.formatter.Format(total)) })
					e.Field("finalTotalFormatted", func(e *jx.Encoder) { e.Str(h.formatter.Format(finalTotal)) })
				})
			})
			encodeNotice(e, notice)
		})
	})
}

// encodeLine writes one cart line with its derived discounted price.
func (h *Handler) encodeLine(e *jx.Encoder, l cart.Line) {
	linePrice := l.Price()
	e.Obj(func(e *jx.Encoder) {
		e.Field("no", func(e *jx.Encoder) { e.Int(l.Product.Ordinal) })
		e.Field("productId", func(e *jx.Encoder) { e.Str(l.Product.ID) })
		e.Field("productName", func(e *jx.Encoder) { e.Str(l.Product.Name) })
		e.Field("category", func(e *jx.Encoder) { e.Str(l.Product.Category) })
		e.Field("price", func(e *jx.Encoder) { encodeDecimal(e, l.Product.Price) })
		e.Field("imageUrl", func(e *jx.Encoder) { e.Str(h.imageURL(l.Product.ImageURL)) })
		e.Field("stock", func(e *jx.Encoder) { e.Int(l.Product.Stock) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
		e.Field("discountType", func(e *jx.Encoder) { e.Str(string(l.DiscountType)) })
		e.Field("discountValue", func(e *jx.Encoder) { encodeDecimal(e, l.DiscountValue) })
		e.Field("discountLabel", func(e *jx.Encoder) {
			e.Str(h.formatter.FormatDiscount(string(l.DiscountType), l.DiscountValue))
		})
		e.Field("backorder", func(e *jx.Encoder) { e.Bool(l.Backorder) })
		e.Field("linePrice", func(e *jx.Encoder) { encodeDecimal(e, linePrice) })
		e.Field("linePriceFormatted", func(e *jx.Encoder) { e.Str(h.formatter.Format(linePrice)) })
	})
}

// encodeNotice writes the optional advisory notice field.
func encodeNotice(e *jx.Encoder, notice *cart.Notice) {
	if notice == nil {
		return
	}
	e.Field("notice", func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Str(string(notice.Code)) })
			e.Field("message", func(e *jx.Encoder) { e.Str(notice.Message) })
		})
	})
}
