// Command voucher-ingest bulk-loads voucher codes from gzip-compressed dump
// files (voucherbaseN.gz, one code per line) into the vouchers table. Dumps
// may contain hundreds of millions of lines with heavy duplication across
// files, so a bloom filter screens out already-seen codes instead of an
// in-memory set.
package main

import (
	"bufio"
	"context"
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
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/warunghub/order-engine/internal/domain/voucher"
	"github.com/warunghub/order-engine/internal/money"
	"github.com/warunghub/order-engine/internal/repository"
)

const (
	bloomCapacity = 120_000_000
	bloomFPR      = 0.001
	progressEvery = 10_000_000
	minCodeLen    = 8
	maxCodeLen    = 10
	batchSize     = 500
)

// knownRules carries hand-curated discounts for promoted codes. Everything
// else in the dumps gets defaultRule.
var knownRules = map[string]voucher.Rule{
	"GRANDOPEN":  {Discount: money.Amount(25_000), MinSubtotal: money.Amount(100_000)},
	"HEMATMAX":   {Discount: money.Amount(20_000), MinSubtotal: money.Amount(75_000)},
	"MAKANSIANG": {Discount: money.Amount(8_000), MinSubtotal: money.Amount(30_000)},
	"NGOPIDULU":  {Discount: money.Amount(5_000), MinSubtotal: money.Amount(0)},
}

var defaultRule = voucher.Rule{
	Discount:    money.Amount(10_000),
	MinSubtotal: money.Amount(50_000),
	MaxUses:     1,
}

func main() {
	var (
		dataDir     string
		databaseURL string
		numFiles    int
		validDays   int
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing voucherbaseN.gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&numFiles, "files", 3, "number of voucherbaseN.gz files to ingest")
	flag.IntVar(&validDays, "valid-days", 90, "validity window in days from now for ingested codes")
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

	if err := run(ctx, dataDir, databaseURL, numFiles, validDays); err != nil {
		slog.Error("voucher ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("voucher ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string, numFiles, validDays int) error {
	files := make([]string, numFiles)
	for i := range numFiles {
		files[i] = filepath.Join(dataDir, fmt.Sprintf("voucherbase%d.gz", i+1))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	now := time.Now().UTC()
	until := now.AddDate(0, 0, validDays)

	ing := &ingester{
		vouchers:  repository.NewVoucherRepository(pool),
		seen:      bloom.NewWithEstimates(bloomCapacity, bloomFPR),
		validFrom: now,
		validTo:   until,
	}

	slog.Info("ingesting voucher dumps", slog.Int("files", numFiles))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(ing.ingestFile(ctx, i, f))
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("ingest summary", slog.Uint64("unique_codes", ing.written))
	return nil
}

// ingester streams dump files and upserts unseen codes. The bloom filter is
// shared across files; a false positive drops a code, which at 0.1% FPR is
// an accepted trade for not holding the full code set in memory.
type ingester struct {
	vouchers  *repository.VoucherRepository
	validFrom time.Time
	validTo   time.Time

	mu      sync.Mutex
	seen    *bloom.BloomFilter
	written uint64
}

func (g *ingester) ingestFile(ctx context.Context, idx int, path string) func() error {
	return func() error {
		batch := make([]string, 0, batchSize)
		var scanned uint64

		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			if err := g.upsertBatch(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]
			return nil
		}

		if err := streamGzFile(ctx, path, func(code string) error {
			if len(code) < minCodeLen || len(code) > maxCodeLen {
				return nil
			}

			scanned++
			if scanned%progressEvery == 0 {
				slog.Info("ingest progress",
					slog.Int("file", idx+1),
					slog.Uint64("scanned", scanned),
				)
			}

			g.mu.Lock()
			dup := g.seen.TestOrAddString(code)
			g.mu.Unlock()
			if dup {
				return nil
			}

			batch = append(batch, code)
			if len(batch) == batchSize {
				return flush()
			}
			return nil
		}); err != nil {
			return errors.Wrapf(err, "ingest file %d", idx+1)
		}

		if err := flush(); err != nil {
			return errors.Wrapf(err, "flush file %d", idx+1)
		}

		slog.Info("ingest complete",
			slog.Int("file", idx+1),
			slog.Uint64("scanned", scanned),
		)
		return nil
	}
}

func (g *ingester) upsertBatch(ctx context.Context, codes []string) error {
	for _, code := range codes {
		rule, ok := knownRules[code]
		if !ok {
			rule = defaultRule
		}
		rule.Code = code
		from, until := g.validFrom, g.validTo
		rule.ValidFrom = &from
		rule.ValidUntil = &until

		if err := g.vouchers.Upsert(ctx, rule); err != nil {
			return errors.Wrapf(err, "upsert voucher %s", code)
		}
	}

	g.mu.Lock()
	g.written += uint64(len(codes))
	written := g.written
	g.mu.Unlock()

	slog.Info("write progress", slog.Uint64("written", written))
	return nil
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(code string) error) error {
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

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(scanner.Text()); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}
