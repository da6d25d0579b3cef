// Command catalog-ingest loads supplier price feeds into a store's catalog.
// Feeds are gzip-compressed CSV files with one row per SKU:
//
//	sku,name_en,name_ur,unit,price,inventory,category,image
//
// Feeds are parsed concurrently; when several feeds carry the same SKU the
// earliest feed on the command line wins. Rows are upserted, so re-running an
// ingest is safe.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/taziri/grocery-kart/internal/domain/product"
	"github.com/taziri/grocery-kart/internal/domain/unit"
	"github.com/taziri/grocery-kart/internal/repository"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
	feedColumns   = 8
	progressEvery = 10_000
)

func main() {
	var (
		databaseURL string
		storeID     string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&storeID, "store-id", "", "store whose catalog receives the feeds")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if storeID == "" {
		slog.Error("store ID is required: set --store-id")
		os.Exit(1)
	}
	feeds := flag.Args()
	if len(feeds) == 0 {
		slog.Error("at least one feed file is required")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, storeID, feeds); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, databaseURL, storeID string, feeds []string) error {
	for _, f := range feeds {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check feed %s", f)
		}
	}

	slog.Info("parsing feeds", slog.Int("feeds", len(feeds)))

	parsed, err := parseFeeds(ctx, storeID, feeds)
	if err != nil {
		return errors.Wrap(err, "parse feeds")
	}

	products := dedupe(parsed)
	slog.Info("feeds parsed",
		slog.Int("rows", countRows(parsed)),
		slog.Int("unique_skus", len(products)),
	)

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	repo := repository.NewProductRepository(pool)
	for i, p := range products {
		if err := repo.Upsert(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert sku %s", p.ID)
		}
		if (i+1)%progressEvery == 0 {
			slog.Info("upsert progress", slog.Int("done", i+1))
		}
	}

	slog.Info("catalog updated", slog.Int("products", len(products)))
	return nil
}

// parseFeeds reads every feed concurrently. Results keep the command line
// feed order so precedence is deterministic.
func parseFeeds(ctx context.Context, storeID string, feeds []string) ([][]product.Product, error) {
	parsed := make([][]product.Product, len(feeds))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range feeds {
		g.Go(parseFeedFile(ctx, storeID, i, f, parsed))
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return parsed, nil
}

func parseFeedFile(ctx context.Context, storeID string, idx int, path string, parsed [][]product.Product) func() error {
	return func() error {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "open %s", path)
		}
		defer func() { _ = f.Close() }()

		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()

		r := csv.NewReader(gz)
		r.FieldsPerRecord = feedColumns

		var (
			rows    []product.Product
			line    int
			skipped int
		)
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			record, err := r.Read()
			if errors.Is(err, io.EOF) {
				break
			}
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				slog.Warn("skipping malformed feed row",
					slog.String("feed", path),
					slog.Int("line", parseErr.Line),
					slog.String("error", parseErr.Error()),
				)
				skipped++
				continue
			}
			if err != nil {
				return errors.Wrapf(err, "read %s", path)
			}
			line++

			p, err := parseRow(storeID, record)
			if err != nil {
				// Supplier feeds are messy; skip bad rows, keep the rest.
				slog.Warn("skipping feed row",
					slog.String("feed", path),
					slog.Int("line", line),
					slog.String("error", err.Error()),
				)
				skipped++
				continue
			}
			rows = append(rows, p)

			if line%progressEvery == 0 {
				slog.Info("parse progress", slog.String("feed", path), slog.Int("rows", line))
			}
		}

		slog.Info("feed parsed",
			slog.String("feed", path),
			slog.Int("rows", len(rows)),
			slog.Int("skipped", skipped),
		)

		parsed[idx] = rows
		return nil
	}
}

func parseRow(storeID string, record []string) (product.Product, error) {
	sku := record[0]
	if sku == "" {
		return product.Product{}, errors.New("empty sku")
	}

	kind := unit.Kind(record[3])
	if !kind.Valid() {
		return product.Product{}, errors.Errorf("unknown unit %q", record[3])
	}

	price, err := decimal.NewFromString(record[4])
	if err != nil {
		return product.Product{}, errors.Wrap(err, "parse price")
	}
	if !price.IsPositive() {
		return product.Product{}, errors.Errorf("non-positive price %s", price)
	}

	inventory, err := decimal.NewFromString(record[5])
	if err != nil {
		return product.Product{}, errors.Wrap(err, "parse inventory")
	}
	if inventory.IsNegative() {
		return product.Product{}, errors.Errorf("negative inventory %s", inventory)
	}

	return product.Product{
		ID:        sku,
		StoreID:   storeID,
		Name:      product.Name{EN: record[1], UR: record[2]},
		Unit:      kind,
		BasePrice: price,
		Inventory: inventory,
		Category:  record[6],
		Image:     record[7],
	}, nil
}

// dedupe flattens parsed feeds in priority order. A bloom filter screens out
// already-seen SKUs cheaply; its false positives are resolved against an
// exact set so no SKU is ever dropped by mistake.
func dedupe(parsed [][]product.Product) []product.Product {
	filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	seen := make(map[string]struct{})

	var out []product.Product
	for _, rows := range parsed {
		for _, p := range rows {
			if filter.TestString(p.ID) {
				if _, dup := seen[p.ID]; dup {
					continue
				}
			}
			filter.AddString(p.ID)
			seen[p.ID] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

func countRows(parsed [][]product.Product) int {
	var n int
	for _, rows := range parsed {
		n += len(rows)
	}
	return n
}
