package cart

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/carzzy2/bewell-pos/internal/domain/catalog"
	"github.com/carzzy2/bewell-pos/internal/kv"
)

// Config holds the pricing parameters of a Store.
type Config struct {
	// TaxRate is the fraction of the subtotal charged as tax, e.g. 0.07.
	TaxRate decimal.Decimal
}

// Store owns the cart state for one POS session: an insertion-ordered list
// of lines plus the invoice discount. All mutations go through Store methods;
// derived totals are recomputed on every read.
//
// The cart models a single logical operator, so there is no concurrent
// multi-user semantics to resolve. The mutex only guards against the HTTP
// layer serving overlapping requests.
type Store struct {
	cfg   Config
	state kv.Store
	lg    *zap.Logger

	mu           sync.RWMutex
	lines        []Line
	invoiceType  DiscountType
	invoiceValue decimal.Decimal
}

// Receipt is the snapshot handed back by CompleteOrder.
type Receipt struct {
	ID          string
	TotalItems  int
	Subtotal    decimal.Decimal
	Tax         decimal.Decimal
	Total       decimal.Decimal
	FinalTotal  decimal.Decimal
	CompletedAt time.Time
}

// NewStore builds a Store and restores any previously persisted session
// state. Missing or corrupt payloads fall back to an empty cart; restore
// problems are logged, never returned.
func NewStore(ctx context.Context, cfg Config, state kv.Store, lg *zap.Logger) *Store {
	s := &Store{
		cfg:          cfg,
		state:        state,
		lg:           lg,
		invoiceType:  DiscountNone,
		invoiceValue: decimal.Zero,
	}
	s.restore(ctx)
	return s
}

// find returns the index of the line for productID, or -1.
// Caller must hold s.mu.
func (s *Store) find(productID string) int {
	for i := range s.lines {
		if s.lines[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

// Add puts a product into the cart or increments its quantity.
//
// New lines start at quantity 1 with no discount. A product with no stock is
// still added, flagged as backordered, with an advisory notice. Incrementing
// an existing non-backordered line is rejected (state unchanged) when the
// product is out of stock or the increment would exceed the recorded stock.
func (s *Store) Add(ctx context.Context, p catalog.Product) *Notice {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.find(p.ID); i >= 0 {
		line := &s.lines[i]
		if !line.Backorder {
			if p.Stock <= 0 {
				return outOfStockNotice()
			}
			if line.Quantity+1 > p.Stock {
				return insufficientStockNotice(p.Stock)
			}
		}
		line.Quantity++
		s.persist(ctx)
		return nil
	}

	line := Line{
		Product:       p,
		Quantity:      1,
		DiscountType:  DiscountNone,
		DiscountValue: decimal.Zero,
		Backorder:     p.Stock <= 0,
	}
	s.lines = append(s.lines, line)
	s.persist(ctx)

	if line.Backorder {
		return backorderedNotice()
	}
	return nil
}

// Remove deletes the line for productID. Removing an absent product is a
// silent no-op.
func (s *Store) Remove(ctx context.Context, productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.find(productID)
	if i < 0 {
		return
	}
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	s.persist(ctx)
}

// UpdateQuantity sets the quantity of an existing line. Quantities below 1
// are silently ignored. For non-backordered lines the new quantity must not
// exceed the stock recorded on the line.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int) *Notice {
	if quantity < 1 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.find(productID)
	if i < 0 {
		return nil
	}
	line := &s.lines[i]

	if !line.Backorder && quantity > line.Product.Stock {
		return insufficientStockNotice(line.Product.Stock)
	}

	line.Quantity = quantity
	s.persist(ctx)
	return nil
}

// ApplyDiscount overwrites the discount fields of an existing line.
// The store performs no range validation; that is the caller's concern.
func (s *Store) ApplyDiscount(ctx context.Context, productID string, dt DiscountType, value decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.find(productID)
	if i < 0 {
		return
	}
	s.lines[i].DiscountType = dt
	s.lines[i].DiscountValue = value
	s.persist(ctx)
}

// ToggleBackorder overwrites the backorder flag of an existing line.
func (s *Store) ToggleBackorder(ctx context.Context, productID string, backorder bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.find(productID)
	if i < 0 {
		return
	}
	s.lines[i].Backorder = backorder
	s.persist(ctx)
}

// ApplyInvoiceDiscount overwrites the invoice-level discount state.
func (s *Store) ApplyInvoiceDiscount(ctx context.Context, dt DiscountType, value decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.invoiceType = dt
	s.invoiceValue = value
	s.persist(ctx)
}

// Clear empties the cart and resets the invoice discount.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	s.persist(ctx)
}

// reset restores the empty-cart defaults. Caller must hold s.mu.
func (s *Store) reset() {
	s.lines = nil
	s.invoiceType = DiscountNone
	s.invoiceValue = decimal.Zero
}

// CompleteOrder finalizes the session: it snapshots the totals into a
// receipt, clears the cart, and resets the invoice discount. There is no
// order submission; checkout is a collaborator boundary.
func (s *Store) CompleteOrder(ctx context.Context) (*Receipt, *Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subtotal := s.subtotal()
	tax := s.tax(subtotal)
	total := s.total(subtotal, tax)

	r := &Receipt{
		ID:          uuid.New().String(),
		TotalItems:  s.totalItems(),
		Subtotal:    subtotal,
		Tax:         tax,
		Total:       total,
		FinalTotal:  s.finalTotal(total),
		CompletedAt: time.Now().UTC(),
	}

	s.reset()
	s.persist(ctx)

	return r, orderCompletedNotice(r.ID)
}

// Lines returns a copy of the cart lines in insertion order.
func (s *Store) Lines() []Line {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// InvoiceDiscount returns the current invoice discount state.
func (s *Store) InvoiceDiscount() (DiscountType, decimal.Decimal) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.invoiceType, s.invoiceValue
}

// TotalItems returns the sum of quantities across all lines.
func (s *Store) TotalItems() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalItems()
}

// Subtotal returns the sum of discounted line prices.
func (s *Store) Subtotal() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subtotal()
}

// Tax returns the tax charged on the subtotal.
func (s *Store) Tax() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tax(s.subtotal())
}

// Total returns subtotal plus tax.
func (s *Store) Total() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subtotal := s.subtotal()
	return s.total(subtotal, s.tax(subtotal))
}

// FinalTotal returns the total after the invoice discount.
func (s *Store) FinalTotal() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subtotal := s.subtotal()
	return s.finalTotal(s.total(subtotal, s.tax(subtotal)))
}

// The unexported derivations assume s.mu is held. Each step is rounded to
// 2 decimal places before feeding the next, so displayed amounts always sum
// exactly to the receipt amounts.

func (s *Store) totalItems() int {
	total := 0
	for i := range s.lines {
		total += s.lines[i].Quantity
	}
	return total
}

func (s *Store) subtotal() decimal.Decimal {
	sum := decimal.Zero
	for i := range s.lines {
		sum = sum.Add(s.lines[i].Price())
	}
	return sum.Round(2)
}

func (s *Store) tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(s.cfg.TaxRate).Round(2)
}

func (s *Store) total(subtotal, tax decimal.Decimal) decimal.Decimal {
	return subtotal.Add(tax).Round(2)
}

func (s *Store) finalTotal(total decimal.Decimal) decimal.Decimal {
	return applyDiscount(total, s.invoiceType, s.invoiceValue)
}
