// Command order-export writes per-hotel finance exports: one gzip CSV per
// hotel with every delivered order and its commission split. While
// exporting it also audits order numbers for duplicates across hotels,
// which would indicate a corrupted number sequence.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/herevemarket/orders-api/internal/domain/order"
	"github.com/herevemarket/orders-api/internal/storage/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.0001
)

// numberAudit tracks seen order numbers across all export workers. The
// bloom filter keeps memory flat; only probable duplicates are re-checked
// against the exact set.
type numberAudit struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
	seen   map[string]bool
	dupes  []string
}

func newNumberAudit() *numberAudit {
	return &numberAudit{
		filter: bloom.NewWithEstimates(bloomCapacity, bloomFPR),
		seen:   make(map[string]bool),
	}
}

func (a *numberAudit) record(number string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.filter.TestAndAddString(number) {
		// Probable duplicate; confirm against the exact set.
		if a.seen[number] {
			a.dupes = append(a.dupes, number)
		}
	}
	a.seen[number] = true
}

func main() {
	var (
		databaseURL string
		outDir      string
		fromStr     string
		toStr       string
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&outDir, "out-dir", "export", "directory for the export files")
	flag.StringVar(&fromStr, "from", "", "export orders created at or after this RFC 3339 instant")
	flag.StringVar(&toStr, "to", "", "export orders created before this RFC 3339 instant")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	from, to, err := parseRange(fromStr, toStr)
	if err != nil {
		slog.Error("invalid time range", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, outDir, from, to); err != nil {
		slog.Error("export failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("export completed successfully")
}

func parseRange(fromStr, toStr string) (from, to time.Time, err error) {
	if fromStr != "" {
		if from, err = time.Parse(time.RFC3339, fromStr); err != nil {
			return from, to, errors.Wrap(err, "parse --from")
		}
	}
	if toStr != "" {
		if to, err = time.Parse(time.RFC3339, toStr); err != nil {
			return from, to, errors.Wrap(err, "parse --to")
		}
	}
	return from, to, nil
}

func run(ctx context.Context, databaseURL, outDir string, from, to time.Time) error {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return errors.Wrap(err, "create output directory")
	}

	hotels, err := listHotels(ctx, pool)
	if err != nil {
		return errors.Wrap(err, "list hotels")
	}
	slog.Info("exporting hotels", slog.Int("count", len(hotels)))

	repo := postgres.NewOrderRepository(pool)
	audit := newNumberAudit()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, hotelID := range hotels {
		g.Go(func() error {
			n, err := exportHotel(ctx, repo, audit, outDir, hotelID, from, to)
			if err != nil {
				return errors.Wrapf(err, "export hotel %s", hotelID)
			}
			slog.Info("exported hotel", slog.String("hotel", hotelID), slog.Int("orders", n))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if len(audit.dupes) > 0 {
		for _, number := range audit.dupes {
			slog.Error("duplicate order number", slog.String("number", number))
		}
		return errors.Errorf("%d duplicate order numbers found", len(audit.dupes))
	}
	return nil
}

func listHotels(ctx context.Context, pool *pgxpool.Pool) ([]string, error) {
	rows, err := pool.Query(ctx, `SELECT DISTINCT hotel_id FROM orders ORDER BY hotel_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hotels []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		hotels = append(hotels, id)
	}
	return hotels, rows.Err()
}

func exportHotel(
	ctx context.Context,
	repo *postgres.OrderRepository,
	audit *numberAudit,
	outDir, hotelID string,
	from, to time.Time,
) (int, error) {
	orders, err := repo.List(ctx, order.Filter{
		HotelID:     hotelID,
		Statuses:    []order.Status{order.StatusDelivered},
		CreatedFrom: from,
		CreatedTo:   to,
	})
	if err != nil {
		return 0, errors.Wrap(err, "list orders")
	}

	path := filepath.Join(outDir, fmt.Sprintf("orders-%s.csv.gz", hotelID))
	f, err := os.Create(path)
	if err != nil {
		return 0, errors.Wrap(err, "create export file")
	}
	defer f.Close()

	gz := pgzip.NewWriter(f)
	w := csv.NewWriter(gz)

	header := []string{
		"number", "created_at", "delivered_at", "merchant_id", "client_id",
		"customer_name", "customer_room", "total_amount",
		"merchant_commission", "platform_commission", "hotel_commission",
	}
	if err := w.Write(header); err != nil {
		return 0, errors.Wrap(err, "write header")
	}

	for i := range orders {
		o := &orders[i]
		audit.record(o.Number)

		deliveredAt := ""
		if o.DeliveredAt != nil {
			deliveredAt = o.DeliveredAt.Format(time.RFC3339)
		}
		row := []string{
			o.Number,
			o.CreatedAt.Format(time.RFC3339),
			deliveredAt,
			o.MerchantID,
			o.ClientID,
			o.CustomerName,
			o.CustomerRoom,
			o.TotalAmount.StringFixed(2),
			nullFixed(o.MerchantCommission.Valid, o.MerchantCommission.Decimal.StringFixed(2)),
			nullFixed(o.PlatformCommission.Valid, o.PlatformCommission.Decimal.StringFixed(2)),
			nullFixed(o.HotelCommission.Valid, o.HotelCommission.Decimal.StringFixed(2)),
		}
		if err := w.Write(row); err != nil {
			return 0, errors.Wrapf(err, "write order %s", o.Number)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return 0, errors.Wrap(err, "flush csv")
	}
	if err := gz.Close(); err != nil {
		return 0, errors.Wrap(err, "close gzip stream")
	}
	if err := f.Close(); err != nil {
		return 0, errors.Wrap(err, "close export file")
	}
	return len(orders), nil
}

func nullFixed(valid bool, s string) string {
	if !valid {
		return ""
	}
	return s
}
