// Package cart implements the POS cart and pricing engine: an ordered set of
// cart lines with per-line discounts and backorder flags, an invoice-level
// discount, and derived totals recomputed on every read.
package cart

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/carzzy2/bewell-pos/internal/domain/catalog"
)

// DiscountType enumerates the supported discount strategies, shared by line
// and invoice discounts.
type DiscountType string

const (
	// DiscountNone leaves the price untouched.
	DiscountNone DiscountType = "none"
	// DiscountFlat subtracts an absolute currency amount, floored at zero.
	DiscountFlat DiscountType = "flat"
	// DiscountPercentage reduces the price by a percentage of itself.
	DiscountPercentage DiscountType = "percentage"
)

// Line is a catalog product extended with cart-specific mutable state.
// Stock is the figure recorded when the product was added; it is not
// re-validated against a live catalog.
type Line struct {
	Product       catalog.Product
	Quantity      int
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	Backorder     bool
}

// Price returns the discounted line price, rounded to 2 decimal places.
func (l Line) Price() decimal.Decimal {
	return LinePrice(l.Product.Price, l.Quantity, l.DiscountType, l.DiscountValue)
}

// NoticeCode identifies the advisory condition a cart operation signalled.
type NoticeCode string

const (
	// NoticeBackordered: an out-of-stock product was added as a backordered line.
	NoticeBackordered NoticeCode = "backordered"
	// NoticeOutOfStock: incrementing a non-backordered line was rejected
	// because the product has no stock.
	NoticeOutOfStock NoticeCode = "out_of_stock"
	// NoticeInsufficientStock: the requested quantity exceeds available stock.
	NoticeInsufficientStock NoticeCode = "insufficient_stock"
	// NoticeOrderCompleted: checkout finished and the cart was cleared.
	NoticeOrderCompleted NoticeCode = "order_completed"
)

// Notice is a non-blocking advisory signal for the presentation layer.
// Validation rejections produce notices, never errors: the operation is a
// no-op and prior state is preserved.
type Notice struct {
	Code    NoticeCode
	Message string
}

func backorderedNotice() *Notice {
	return &Notice{
		Code:    NoticeBackordered,
		Message: "Product is out of stock. Adding as backordered item.",
	}
}

func outOfStockNotice() *Notice {
	return &Notice{
		Code:    NoticeOutOfStock,
		Message: "Product is out of stock. You can add it as backordered.",
	}
}

func insufficientStockNotice(stock int) *Notice {
	return &Notice{
		Code:    NoticeInsufficientStock,
		Message: fmt.Sprintf("Only %d items available in stock.", stock),
	}
}

func orderCompletedNotice(receiptID string) *Notice {
	return &Notice{
		Code:    NoticeOrderCompleted,
		Message: fmt.Sprintf("Order %s completed.", receiptID),
	}
}
