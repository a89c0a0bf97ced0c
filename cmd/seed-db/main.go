// Command seed-db loads outlet rate configuration and demo vouchers into
// the database, for local development and the integration test environment.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/warunghub/order-engine/internal/domain/voucher"
	"github.com/warunghub/order-engine/internal/repository"
)

const upsertRatesSQL = `INSERT INTO rate_config (outlet_id, tax_percent, service_percent)
	VALUES ($1, $2, $3)
	ON CONFLICT (outlet_id) DO UPDATE SET
		tax_percent = EXCLUDED.tax_percent,
		service_percent = EXCLUDED.service_percent`

var demoVouchers = []voucher.Rule{
	{Code: "HEMAT10", Discount: 10000},
	{Code: "HEMAT25", Discount: 25000, MinSubtotal: 150000},
	{Code: "GRANDOPEN", Discount: 50000, MinSubtotal: 200000, MaxUses: 500},
}

func main() {
	var (
		databaseURL    string
		outletID       string
		taxPercent     string
		servicePercent string
		skipVouchers   bool
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&outletID, "outlet", "main", "outlet to configure")
	flag.StringVar(&taxPercent, "tax-percent", "11", "tax rate percentage")
	flag.StringVar(&servicePercent, "service-percent", "5", "service fee percentage")
	flag.BoolVar(&skipVouchers, "skip-vouchers", false, "do not seed demo vouchers")
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

	if err := run(ctx, databaseURL, outletID, taxPercent, servicePercent, skipVouchers); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, outletID, taxPercent, servicePercent string, skipVouchers bool) error {
	tax, err := decimal.NewFromString(taxPercent)
	if err != nil {
		return errors.Wrap(err, "parse tax percent")
	}
	service, err := decimal.NewFromString(servicePercent)
	if err != nil {
		return errors.Wrap(err, "parse service percent")
	}

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if _, err := pool.Exec(ctx, upsertRatesSQL, outletID, tax, service); err != nil {
		return errors.Wrapf(err, "upsert rates for outlet %s", outletID)
	}
	slog.Info("rates configured",
		slog.String("outlet", outletID),
		slog.String("tax", tax.String()),
		slog.String("service", service.String()),
	)

	if skipVouchers {
		return nil
	}

	vouchers := repository.NewVoucherRepository(pool)
	until := time.Now().AddDate(1, 0, 0)
	for _, rule := range demoVouchers {
		rule.ValidUntil = &until
		if err := vouchers.Upsert(ctx, rule); err != nil {
			return errors.Wrapf(err, "seed voucher %s", rule.Code)
		}
		slog.Info("voucher seeded", slog.String("code", rule.Code))
	}

	return nil
}
