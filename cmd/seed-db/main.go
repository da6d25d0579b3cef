// Command seed-db provisions a demo store with a small grocery catalog, a
// delivery rate, and an admin API key. Safe to re-run: everything upserts.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/taziri/grocery-kart/internal/domain/auth"
	"github.com/taziri/grocery-kart/internal/domain/product"
	"github.com/taziri/grocery-kart/internal/domain/store"
	"github.com/taziri/grocery-kart/internal/domain/unit"
	"github.com/taziri/grocery-kart/internal/repository"
)

const (
	demoStoreID   = "demo"
	demoStoreSlug = "karachi-grocers"
)

func main() {
	var (
		databaseURL  string
		apiKey       string
		apiKeyPepper string
		deliveryRate int64
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or KART_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or KART_API_KEY_PEPPER env)")
	flag.Int64Var(&deliveryRate, "delivery-rate", 150, "flat delivery charge in PKR")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("KART_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or KART_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("KART_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, apiKey, apiKeyPepper, deliveryRate); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, apiKey, pepper string, deliveryRate int64) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	stores := repository.NewStoreRepository(pool)
	products := repository.NewProductRepository(pool)
	apikeys := repository.NewAPIKeyRepository(pool)

	if err := seedStore(ctx, stores, deliveryRate); err != nil {
		return errors.Wrap(err, "seed store")
	}
	if err := seedProducts(ctx, products); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedAPIKey(ctx, apikeys, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}
	return nil
}

func seedStore(ctx context.Context, stores *repository.StoreRepository, deliveryRate int64) error {
	slog.Info("upserting demo store", slog.String("slug", demoStoreSlug))

	if err := stores.Upsert(ctx, store.Store{
		ID:     demoStoreID,
		Slug:   demoStoreSlug,
		Name:   "Karachi Grocers",
		Phone:  "+92 300 0000000",
		Active: true,
	}); err != nil {
		return err
	}

	rate := decimal.NewFromInt(deliveryRate)
	if err := stores.SetDeliveryRate(ctx, demoStoreID, &rate); err != nil {
		return err
	}

	slog.Info("delivery rate configured", slog.Int64("rate", deliveryRate))
	return nil
}

func seedProducts(ctx context.Context, products *repository.ProductRepository) error {
	catalog := []product.Product{
		{
			ID:        "atta",
			Name:      product.Name{EN: "Wheat Flour", UR: "آٹا"},
			Unit:      unit.Weight,
			BasePrice: decimal.NewFromInt(200),
			Inventory: decimal.NewFromInt(500),
			Category:  "staples",
			Image:     "/images/atta.jpg",
		},
		{
			ID:        "basmati-rice",
			Name:      product.Name{EN: "Basmati Rice", UR: "باسمتی چاول"},
			Unit:      unit.Weight,
			BasePrice: decimal.NewFromInt(350),
			Inventory: decimal.NewFromInt(300),
			Category:  "staples",
			Image:     "/images/rice.jpg",
		},
		{
			ID:        "milk",
			Name:      product.Name{EN: "Fresh Milk", UR: "دودھ"},
			Unit:      unit.Volume,
			BasePrice: decimal.NewFromInt(220),
			Inventory: decimal.NewFromInt(100),
			Category:  "dairy",
			Image:     "/images/milk.jpg",
		},
		{
			ID:        "cooking-oil",
			Name:      product.Name{EN: "Cooking Oil", UR: "کھانے کا تیل"},
			Unit:      unit.Volume,
			BasePrice: decimal.NewFromInt(550),
			Inventory: decimal.NewFromInt(80),
			Category:  "staples",
			Image:     "/images/oil.jpg",
		},
		{
			ID:        "eggs",
			Name:      product.Name{EN: "Farm Eggs", UR: "انڈے"},
			Unit:      unit.Dozen,
			BasePrice: decimal.NewFromInt(330),
			Inventory: decimal.NewFromInt(60),
			Category:  "dairy",
			Image:     "/images/eggs.jpg",
		},
		{
			ID:        "bread",
			Name:      product.Name{EN: "Sandwich Bread", UR: "ڈبل روٹی"},
			Unit:      unit.Count,
			BasePrice: decimal.NewFromInt(180),
			Inventory: decimal.NewFromInt(40),
			Category:  "bakery",
			Image:     "/images/bread.jpg",
		},
	}

	slog.Info("upserting products", slog.Int("count", len(catalog)))

	for _, p := range catalog {
		p.StoreID = demoStoreID
		if err := products.Upsert(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name.EN))
	}
	return nil
}

func seedAPIKey(ctx context.Context, apikeys *repository.APIKeyRepository, apiKey, pepper string) error {
	slog.Info("seeding admin API key")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	if err := apikeys.Upsert(ctx, auth.APIKeyInfo{
		ID:      "default",
		StoreID: demoStoreID,
		KeyHash: keyHash,
		Name:    "Default admin key",
	}, true); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", "default"), slog.String("store", demoStoreID))
	return nil
}
