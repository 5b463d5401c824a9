package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/carzzy2/bewell-pos/internal/domain/catalog"
	"github.com/carzzy2/bewell-pos/internal/kv"
)

// --- Helpers ---

func newTestProduct(id, name string, price string, stock int) catalog.Product {
	return catalog.Product{
		ID:       id,
		Name:     name,
		Category: "test",
		Price:    d(price),
		ImageURL: "/images/" + id + ".jpg",
		Stock:    stock,
		Ordinal:  1,
	}
}

func newTestStore(t *testing.T) (*Store, *kv.Memory) {
	t.Helper()
	state := kv.NewMemory()
	s := NewStore(context.Background(), Config{TaxRate: d("0.07")}, state, zap.NewNop())
	return s, state
}

// --- Add ---

func TestAdd_NewLine(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	notice := s.Add(ctx, newTestProduct("p1", "Widget", "100", 5))
	assert.Nil(t, notice)

	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "p1", lines[0].Product.ID)
	assert.Equal(t, 1, lines[0].Quantity)
	assert.Equal(t, DiscountNone, lines[0].DiscountType)
	assert.False(t, lines[0].Backorder)
}

func TestAdd_OutOfStockBackorders(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	notice := s.Add(ctx, newTestProduct("p1", "Widget", "100", 0))
	require.NotNil(t, notice)
	assert.Equal(t, NoticeBackordered, notice.Code)

	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.True(t, lines[0].Backorder)
	assert.Equal(t, 1, lines[0].Quantity)
}

func TestAdd_IncrementWithinStock(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	p := newTestProduct("p1", "Widget", "100", 2)

	require.Nil(t, s.Add(ctx, p))
	require.Nil(t, s.Add(ctx, p))

	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestAdd_IncrementBeyondStockRejected(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	p := newTestProduct("p1", "Widget", "100", 1)

	require.Nil(t, s.Add(ctx, p))

	notice := s.Add(ctx, p)
	require.NotNil(t, notice)
	assert.Equal(t, NoticeInsufficientStock, notice.Code)
	assert.Contains(t, notice.Message, "Only 1 items")

	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Quantity)
}

func TestAdd_ExistingLineStockGone(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.Nil(t, s.Add(ctx, newTestProduct("p1", "Widget", "100", 3)))

	// The catalog now reports the product as sold out.
	notice := s.Add(ctx, newTestProduct("p1", "Widget", "100", 0))
	require.NotNil(t, notice)
	assert.Equal(t, NoticeOutOfStock, notice.Code)
	assert.Equal(t, 1, s.Lines()[0].Quantity)
}

func TestAdd_BackorderedLineBypassesStock(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	p := newTestProduct("p1", "Widget", "100", 0)

	require.NotNil(t, s.Add(ctx, p)) // backordered on add
	assert.Nil(t, s.Add(ctx, p))
	assert.Nil(t, s.Add(ctx, p))

	assert.Equal(t, 3, s.Lines()[0].Quantity)
}

// --- UpdateQuantity ---

func TestUpdateQuantity_BelowOneIgnored(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.Nil(t, s.Add(ctx, newTestProduct("p1", "Widget", "100", 5)))

	assert.Nil(t, s.UpdateQuantity(ctx, "p1", 0))
	assert.Nil(t, s.UpdateQuantity(ctx, "p1", -1))
	assert.Equal(t, 1, s.Lines()[0].Quantity)
}

func TestUpdateQuantity_InsufficientStock(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.Nil(t, s.Add(ctx, newTestProduct("p1", "Widget", "100", 3)))

	notice := s.UpdateQuantity(ctx, "p1", 4)
	require.NotNil(t, notice)
	assert.Equal(t, NoticeInsufficientStock, notice.Code)
	assert.Equal(t, 1, s.Lines()[0].Quantity)
}

func TestUpdateQuantity_WithinStock(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.Nil(t, s.Add(ctx, newTestProduct("p1", "Widget", "100", 3)))
	assert.Nil(t, s.UpdateQuantity(ctx, "p1", 3))
	assert.Equal(t, 3, s.Lines()[0].Quantity)
}

func TestUpdateQuantity_BackorderedBypassesStock(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NotNil(t, s.Add(ctx, newTestProduct("p1", "Widget", "100", 0)))
	assert.Nil(t, s.UpdateQuantity(ctx, "p1", 25))
	assert.Equal(t, 25, s.Lines()[0].Quantity)
}

func TestUpdateQuantity_AbsentLine(t *testing.T) {
	s, _ := newTestStore(t)
	assert.Nil(t, s.UpdateQuantity(context.Background(), "ghost", 2))
	assert.Empty(t, s.Lines())
}

// --- Discounts and flags ---

func TestApplyLineDiscount(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.Nil(t, s.Add(ctx, newTestProduct("p1", "Widget", "100", 5)))
	s.ApplyDiscount(ctx, "p1", DiscountPercentage, d("25"))

	line := s.Lines()[0]
	assert.Equal(t, DiscountPercentage, line.DiscountType)
	assert.True(t, d("25").Equal(line.DiscountValue))
	assert.True(t, d("75.00").Equal(line.Price()))
}

func TestApplyLineDiscount_AbsentLine(t *testing.T) {
	s, _ := newTestStore(t)
	s.ApplyDiscount(context.Background(), "ghost", DiscountFlat, d("5"))
	assert.Empty(t, s.Lines())
}

func TestToggleBackorder(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.Nil(t, s.Add(ctx, newTestProduct("p1", "Widget", "100", 5)))
	s.ToggleBackorder(ctx, "p1", true)
	assert.True(t, s.Lines()[0].Backorder)

	s.ToggleBackorder(ctx, "p1", false)
	assert.False(t, s.Lines()[0].Backorder)
}

// --- Remove ---

func TestRemove(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.Nil(t, s.Add(ctx, newTestProduct("p1", "Widget", "100", 5)))
	require.Nil(t, s.Add(ctx, newTestProduct("p2", "Gadget", "50", 5)))

	s.Remove(ctx, "p1")

	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "p2", lines[0].Product.ID)
}

func TestRemove_AbsentLeavesStateUnchanged(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.Nil(t, s.Add(ctx, newTestProduct("p1", "Widget", "100", 5)))
	before := s.Lines()

	s.Remove(ctx, "ghost")
	assert.Equal(t, before, s.Lines())
}

// --- Derived totals ---

func TestTotals_ReferenceFixture(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	// [{price:100, qty:1, none}, {price:50, qty:2, flat 20}]
	require.Nil(t, s.Add(ctx, newTestProduct("p1", "Widget", "100", 5)))
	require.Nil(t, s.Add(ctx, newTestProduct("p2", "Gadget", "50", 5)))
	require.Nil(t, s.UpdateQuantity(ctx, "p2", 2))
	s.ApplyDiscount(ctx, "p2", DiscountFlat, d("20"))

	assert.Equal(t, 3, s.TotalItems())
	assert.True(t, d("180.00").Equal(s.Subtotal()), s.Subtotal().String())
	assert.True(t, d("12.60").Equal(s.Tax()), s.Tax().String())
	assert.True(t, d("192.60").Equal(s.Total()), s.Total().String())

	s.ApplyInvoiceDiscount(ctx, DiscountPercentage, d("10"))
	assert.True(t, d("173.34").Equal(s.FinalTotal()), s.FinalTotal().String())
}

func TestTotals_InvoiceFlatFloorsAtZero(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.Nil(t, s.Add(ctx, newTestProduct("p1", "Widget", "10", 5)))
	s.ApplyInvoiceDiscount(ctx, DiscountFlat, d("999"))

	assert.True(t, decimal.Zero.Equal(s.FinalTotal()), s.FinalTotal().String())
}

func TestTotals_EmptyCart(t *testing.T) {
	s, _ := newTestStore(t)

	assert.Equal(t, 0, s.TotalItems())
	assert.True(t, decimal.Zero.Equal(s.Subtotal()))
	assert.True(t, decimal.Zero.Equal(s.FinalTotal()))
}

// --- Clear and checkout ---

func TestClear(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.Nil(t, s.Add(ctx, newTestProduct("p1", "Widget", "100", 5)))
	s.ApplyInvoiceDiscount(ctx, DiscountPercentage, d("10"))

	s.Clear(ctx)

	assert.Empty(t, s.Lines())
	assert.Equal(t, 0, s.TotalItems())
	assert.True(t, decimal.Zero.Equal(s.Subtotal()))
	assert.True(t, decimal.Zero.Equal(s.FinalTotal()))

	dt, dv := s.InvoiceDiscount()
	assert.Equal(t, DiscountNone, dt)
	assert.True(t, decimal.Zero.Equal(dv))
}

func TestCompleteOrder(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.Nil(t, s.Add(ctx, newTestProduct("p1", "Widget", "100", 5)))
	s.ApplyInvoiceDiscount(ctx, DiscountPercentage, d("10"))

	receipt, notice := s.CompleteOrder(ctx)
	require.NotNil(t, receipt)
	assert.NotEmpty(t, receipt.ID)
	assert.Equal(t, 1, receipt.TotalItems)
	assert.True(t, d("100.00").Equal(receipt.Subtotal), receipt.Subtotal.String())
	assert.True(t, d("7.00").Equal(receipt.Tax), receipt.Tax.String())
	assert.True(t, d("107.00").Equal(receipt.Total), receipt.Total.String())
	assert.True(t, d("96.30").Equal(receipt.FinalTotal), receipt.FinalTotal.String())

	require.NotNil(t, notice)
	assert.Equal(t, NoticeOrderCompleted, notice.Code)

	// Checkout clears the cart and resets the invoice discount.
	assert.Empty(t, s.Lines())
	dt, _ := s.InvoiceDiscount()
	assert.Equal(t, DiscountNone, dt)
}

// --- Persistence ---

func TestPersistence_RoundTrip(t *testing.T) {
	state := kv.NewMemory()
	ctx := context.Background()
	cfg := Config{TaxRate: d("0.07")}

	s := NewStore(ctx, cfg, state, zap.NewNop())
	require.Nil(t, s.Add(ctx, newTestProduct("p1", "Widget", "100", 5)))
	require.NotNil(t, s.Add(ctx, newTestProduct("p2", "Gadget", "50.25", 0)))
	s.ApplyDiscount(ctx, "p1", DiscountFlat, d("15.50"))
	s.ApplyInvoiceDiscount(ctx, DiscountPercentage, d("5"))

	restored := NewStore(ctx, cfg, state, zap.NewNop())

	want := s.Lines()
	got := restored.Lines()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Product.ID, got[i].Product.ID)
		assert.Equal(t, want[i].Quantity, got[i].Quantity)
		assert.Equal(t, want[i].DiscountType, got[i].DiscountType)
		assert.True(t, want[i].DiscountValue.Equal(got[i].DiscountValue))
		assert.Equal(t, want[i].Backorder, got[i].Backorder)
		assert.True(t, want[i].Product.Price.Equal(got[i].Product.Price))
		assert.Equal(t, want[i].Product.Stock, got[i].Product.Stock)
	}

	dt, dv := restored.InvoiceDiscount()
	assert.Equal(t, DiscountPercentage, dt)
	assert.True(t, d("5").Equal(dv))
	assert.True(t, s.FinalTotal().Equal(restored.FinalTotal()))
}

func TestPersistence_CorruptPayloadFallsBackToEmpty(t *testing.T) {
	state := kv.NewMemory()
	ctx := context.Background()

	require.NoError(t, state.Set(ctx, linesKey, []byte("{not json")))
	require.NoError(t, state.Set(ctx, invoiceKey, []byte("[]")))

	s := NewStore(ctx, Config{TaxRate: d("0.07")}, state, zap.NewNop())
	assert.Empty(t, s.Lines())

	dt, dv := s.InvoiceDiscount()
	assert.Equal(t, DiscountNone, dt)
	assert.True(t, decimal.Zero.Equal(dv))
}

func TestPersistence_MissingKeysStartEmpty(t *testing.T) {
	s, _ := newTestStore(t)
	assert.Empty(t, s.Lines())
	assert.Equal(t, 0, s.TotalItems())
}
