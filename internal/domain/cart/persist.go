package cart

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/carzzy2/bewell-pos/internal/domain/catalog"
	"github.com/carzzy2/bewell-pos/internal/kv"
)

// The session state lives under two fixed keys: one for the line list, one
// for the invoice discount pair. The encoding is stable JSON; a payload
// written by one terminal build must restore on the next.
const (
	linesKey   = "pos:cart:lines"
	invoiceKey = "pos:cart:invoice-discount"
)

// lineRecord is the wire form of a Line.
type lineRecord struct {
	No            int             `json:"no"`
	ProductID     string          `json:"productId"`
	ProductName   string          `json:"productName"`
	Category      string          `json:"category"`
	Price         decimal.Decimal `json:"price"`
	ImageURL      string          `json:"imageUrl"`
	Stock         int             `json:"stock"`
	Quantity      int             `json:"quantity"`
	DiscountType  DiscountType    `json:"discountType"`
	DiscountValue decimal.Decimal `json:"discountValue"`
	Backorder     bool            `json:"backorder"`
}

// invoiceRecord is the wire form of the invoice discount pair.
type invoiceRecord struct {
	Type  DiscountType    `json:"type"`
	Value decimal.Decimal `json:"value"`
}

func toRecord(l Line) lineRecord {
	return lineRecord{
		No:            l.Product.Ordinal,
		ProductID:     l.Product.ID,
		ProductName:   l.Product.Name,
		Category:      l.Product.Category,
		Price:         l.Product.Price,
		ImageURL:      l.Product.ImageURL,
		Stock:         l.Product.Stock,
		Quantity:      l.Quantity,
		DiscountType:  l.DiscountType,
		DiscountValue: l.DiscountValue,
		Backorder:     l.Backorder,
	}
}

func fromRecord(r lineRecord) Line {
	return Line{
		Product: catalog.Product{
			ID:       r.ProductID,
			Name:     r.ProductName,
			Category: r.Category,
			Price:    r.Price,
			ImageURL: r.ImageURL,
			Stock:    r.Stock,
			Ordinal:  r.No,
		},
		Quantity:      r.Quantity,
		DiscountType:  r.DiscountType,
		DiscountValue: r.DiscountValue,
		Backorder:     r.Backorder,
	}
}

// persist writes the full session state to the key-value store. Persistence
// is best-effort: failures are logged and never surfaced to the operation
// that triggered them. Caller must hold s.mu.
func (s *Store) persist(ctx context.Context) {
	records := make([]lineRecord, len(s.lines))
	for i, l := range s.lines {
		records[i] = toRecord(l)
	}

	if data, err := json.Marshal(records); err != nil {
		s.lg.Warn("Encode cart lines", zap.Error(err))
	} else if err := s.state.Set(ctx, linesKey, data); err != nil {
		s.lg.Warn("Persist cart lines", zap.Error(err))
	}

	inv := invoiceRecord{Type: s.invoiceType, Value: s.invoiceValue}
	if data, err := json.Marshal(inv); err != nil {
		s.lg.Warn("Encode invoice discount", zap.Error(err))
	} else if err := s.state.Set(ctx, invoiceKey, data); err != nil {
		s.lg.Warn("Persist invoice discount", zap.Error(err))
	}
}

// restore loads the session state written by persist. A missing key means a
// fresh session; a malformed payload is logged and treated as absent.
func (s *Store) restore(ctx context.Context) {
	if data, err := s.state.Get(ctx, linesKey); err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.lg.Warn("Load cart lines", zap.Error(err))
		}
	} else {
		var records []lineRecord
		if err := json.Unmarshal(data, &records); err != nil {
			s.lg.Warn("Decode cart lines, starting empty", zap.Error(err))
		} else {
			s.lines = make([]Line, len(records))
			for i, r := range records {
				s.lines[i] = fromRecord(r)
			}
		}
	}

	if data, err := s.state.Get(ctx, invoiceKey); err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.lg.Warn("Load invoice discount", zap.Error(err))
		}
	} else {
		var inv invoiceRecord
		if err := json.Unmarshal(data, &inv); err != nil {
			s.lg.Warn("Decode invoice discount, resetting", zap.Error(err))
		} else {
			s.invoiceType = inv.Type
			s.invoiceValue = inv.Value
		}
	}
}
