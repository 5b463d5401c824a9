// Command catalog-import bulk-loads product feeds into the catalog.
//
// Feeds are gzipped JSONL files, one product per line, typically exported by
// a supplier system. Files are decompressed and parsed concurrently; product
// IDs already seen in an earlier feed are skipped, so feed order defines
// precedence.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/carzzy2/bewell-pos/internal/storage/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.0001
	batchSize     = 500
	progressEvery = 100_000
)

const upsertProductSQL = `INSERT INTO products (id, name, category, price, image_url, stock, ordinal)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		category = EXCLUDED.category,
		price = EXCLUDED.price,
		image_url = EXCLUDED.image_url,
		stock = EXCLUDED.stock,
		ordinal = EXCLUDED.ordinal`

type feedProduct struct {
	No          int             `json:"no"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"imageUrl"`
	Stock       int             `json:"stock"`
}

func main() {
	var databaseURL string
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	feeds := flag.Args()
	if len(feeds) == 0 {
		slog.Error("at least one feed file is required")
		os.Exit(1)
	}

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, feeds); err != nil {
		slog.Error("catalog import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog import completed successfully")
}

func run(ctx context.Context, databaseURL string, feeds []string) error {
	for _, f := range feeds {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check feed %s", f)
		}
	}

	slog.Info("parsing feeds", slog.Int("files", len(feeds)))

	parsed, err := parseFeeds(ctx, feeds)
	if err != nil {
		return errors.Wrap(err, "parse feeds")
	}

	// Dedupe across feeds: the first feed that mentions a product wins.
	// The bloom filter keeps the seen-set memory-bounded for very large
	// feeds at the cost of a small false-positive skip rate.
	seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	products := make([]feedProduct, 0)
	skipped := 0
	for _, feed := range parsed {
		for _, p := range feed {
			if seen.TestOrAddString(p.ProductID) {
				skipped++
				continue
			}
			products = append(products, p)
		}
	}

	slog.Info("feeds merged",
		slog.Int("products", len(products)),
		slog.Int("skipped", skipped),
	)

	if len(products) == 0 {
		return nil
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	return writeProducts(ctx, pool, products)
}

// parseFeeds decompresses and parses every feed concurrently, preserving
// feed order in the result.
func parseFeeds(ctx context.Context, feeds []string) ([][]feedProduct, error) {
	parsed := make([][]feedProduct, len(feeds))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range feeds {
		g.Go(func() error {
			products, err := parseFeed(ctx, path)
			if err != nil {
				return errors.Wrapf(err, "parse %s", path)
			}
			parsed[i] = products
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return parsed, nil
}

func parseFeed(ctx context.Context, path string) ([]feedProduct, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer f.Close()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrap(err, "gzip reader")
	}
	defer gz.Close()

	var (
		products []feedProduct
		lines    int
	)
	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var p feedProduct
		if err := json.Unmarshal(line, &p); err != nil {
			return nil, errors.Wrapf(err, "line %d", lines+1)
		}
		if p.ProductID == "" {
			return nil, errors.Errorf("line %d: missing productId", lines+1)
		}
		products = append(products, p)

		if lines++; lines%progressEvery == 0 {
			slog.Info("parsing feed", slog.String("path", path), slog.Int("lines", lines))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan")
	}
	return products, nil
}

// writeProducts upserts products in batches over a single connection.
func writeProducts(ctx context.Context, pool *pgxpool.Pool, products []feedProduct) error {
	for start := 0; start < len(products); start += batchSize {
		end := min(start+batchSize, len(products))

		batch := &pgx.Batch{}
		for _, p := range products[start:end] {
			batch.Queue(upsertProductSQL,
				p.ProductID, p.ProductName, p.Category, p.Price, p.ImageURL, p.Stock, p.No,
			)
		}
		if err := pool.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrapf(err, "write batch at %d", start)
		}

		slog.Info("products written", slog.Int("count", end))
	}
	return nil
}
