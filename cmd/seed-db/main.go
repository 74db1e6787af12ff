// Command seed-db loads a demo catalog (hotels, merchants, clients,
// products) into PostgreSQL so a fresh environment has something to order
// from.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/herevemarket/orders-api/internal/storage/postgres"
)

type catalogJSON struct {
	Hotels []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"hotels"`
	Merchants []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"merchants"`
	Clients []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Room string `json:"room"`
	} `json:"clients"`
	Products []struct {
		ID         string          `json:"id"`
		MerchantID string          `json:"merchant_id"`
		Name       string          `json:"name"`
		Price      decimal.Decimal `json:"price"`
		Active     bool            `json:"active"`
	} `json:"products"`
}

func main() {
	var (
		databaseURL string
		catalogFile string
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json", "path to catalog JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("reading catalog file", slog.String("path", catalogFile))

	data, err := os.ReadFile(catalogFile)
	if err != nil {
		return errors.Wrap(err, "read catalog file")
	}
	var catalog catalogJSON
	if err := json.Unmarshal(data, &catalog); err != nil {
		return errors.Wrap(err, "parse catalog JSON")
	}

	if err := seedCatalog(ctx, pool, catalog); err != nil {
		return err
	}
	return nil
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool, catalog catalogJSON) error {
	slog.Info("upserting hotels", slog.Int("count", len(catalog.Hotels)))
	for _, h := range catalog.Hotels {
		if _, err := pool.Exec(ctx, `
			INSERT INTO hotels (id, name) VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`,
			h.ID, h.Name,
		); err != nil {
			return errors.Wrapf(err, "upsert hotel %s", h.ID)
		}
	}

	slog.Info("upserting merchants", slog.Int("count", len(catalog.Merchants)))
	for _, m := range catalog.Merchants {
		if _, err := pool.Exec(ctx, `
			INSERT INTO merchants (id, name) VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`,
			m.ID, m.Name,
		); err != nil {
			return errors.Wrapf(err, "upsert merchant %s", m.ID)
		}
	}

	slog.Info("upserting clients", slog.Int("count", len(catalog.Clients)))
	for _, c := range catalog.Clients {
		if _, err := pool.Exec(ctx, `
			INSERT INTO clients (id, name, room) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, room = EXCLUDED.room`,
			c.ID, c.Name, c.Room,
		); err != nil {
			return errors.Wrapf(err, "upsert client %s", c.ID)
		}
	}

	slog.Info("upserting products", slog.Int("count", len(catalog.Products)))
	for _, p := range catalog.Products {
		if _, err := pool.Exec(ctx, `
			INSERT INTO products (id, merchant_id, name, price, active)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				merchant_id = EXCLUDED.merchant_id,
				name = EXCLUDED.name,
				price = EXCLUDED.price,
				active = EXCLUDED.active`,
			p.ID, p.MerchantID, p.Name, p.Price, p.Active,
		); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}
