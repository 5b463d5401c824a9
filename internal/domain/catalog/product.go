package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a catalog item available for sale. The cart never mutates a
// Product; stock is a point-in-time figure copied onto cart lines.
type Product struct {
	ID       string
	Name     string
	Category string
	Price    decimal.Decimal
	ImageURL string
	Stock    int
	Ordinal  int
}

// Query describes a paged catalog search. Page is 1-based.
type Query struct {
	Text     string
	Category string
	Page     int
	PageSize int
}

// Page is one page of search results.
type Page struct {
	Products      []Product
	TotalProducts int
	TotalPages    int
}

// Repository defines read operations for the product catalog.
type Repository interface {
	Search(ctx context.Context, q Query) (*Page, error)
	Categories(ctx context.Context) ([]string, error)
	GetByID(ctx context.Context, id string) (*Product, error)
}
