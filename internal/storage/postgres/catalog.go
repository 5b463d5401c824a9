package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/carzzy2/bewell-pos/internal/domain/catalog"
)

const (
	searchProductsSQL = `SELECT id, name, category, price, image_url, stock, ordinal
		FROM products
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR id ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR category = $2)
		ORDER BY ordinal
		LIMIT $3 OFFSET $4`

	countProductsSQL = `SELECT count(*)
		FROM products
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR id ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR category = $2)`

	listCategoriesSQL = `SELECT DISTINCT category FROM products ORDER BY category`

	getProductByIDSQL = `SELECT id, name, category, price, image_url, stock, ordinal
		FROM products WHERE id = $1`
)

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Repository backed by PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// Search returns one page of products matching the query text and category,
// along with the total match count and page count.
func (r *CatalogRepository) Search(ctx context.Context, q catalog.Query) (*catalog.Page, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	size := q.PageSize
	if size < 1 {
		size = 10
	}
	offset := (page - 1) * size

	var total int
	if err := r.pool.QueryRow(ctx, countProductsSQL, q.Text, q.Category).Scan(&total); err != nil {
		return nil, errors.Wrap(err, "count products")
	}

	rows, err := r.pool.Query(ctx, searchProductsSQL, q.Text, q.Category, size, offset)
	if err != nil {
		return nil, errors.Wrap(err, "search products")
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, errors.Wrap(err, "scan products")
	}

	totalPages := (total + size - 1) / size
	if totalPages < 1 {
		totalPages = 1
	}

	return &catalog.Page{
		Products:      products,
		TotalProducts: total,
		TotalPages:    totalPages,
	}, nil
}

// Categories returns the distinct product categories, sorted.
func (r *CatalogRepository) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var c string
		err := row.Scan(&c)
		return c, err
	})
}

// GetByID returns a single product by its identifier.
func (r *CatalogRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %q", id)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %q", id)
	}
	return &p, nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var (
		p     catalog.Product
		price decimal.Decimal
	)
	err := row.Scan(&p.ID, &p.Name, &p.Category, &price, &p.ImageURL, &p.Stock, &p.Ordinal)
	p.Price = price
	return p, err
}
