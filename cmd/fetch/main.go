package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/cache"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/config"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/idhash"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/marketdata"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/metrics"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/observability"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/pipeline"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/secdata"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage/memory"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage/migrations"
	pgstore "github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage/postgres"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/universe"
)

func main() {
	godotenv.Load()

	configPath := flag.String("config", "", "Config file path (default: search ./configs and .)")
	universePath := flag.String("universe", "", "Universe CSV path (overrides config)")
	workers := flag.Int("workers", 0, "Fetch worker pool size (overrides config)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	migrate := flag.Bool("migrate", false, "Apply embedded schema migrations before fetching")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	logger := config.NewLogger(cfg.Logging)

	if *postgresDSN == "" {
		*postgresDSN = cfg.Storage.PostgresDSN
	}
	if *universePath == "" {
		*universePath = cfg.Universe.Path
	}
	if *workers == 0 {
		*workers = cfg.Pipeline.Workers
	}

	ctx := context.Background()

	tickers, err := universe.Load(*universePath)
	if err != nil {
		logger.Fatalf("load universe: %v", err)
	}
	logger.WithFields(logrus.Fields{
		"path":    *universePath,
		"tickers": len(tickers),
	}).Info("Universe loaded")

	var companyStore storage.CompanyStore = memory.NewCompanyStore()
	var snapshotStore storage.SnapshotStore = memory.NewSnapshotStore()

	if !*useMemory {
		if *postgresDSN == "" {
			logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
		}
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("connect to postgres: %v", err)
		}
		defer pool.Close()

		if *migrate {
			if err := migrations.RunPostgres(ctx, pool); err != nil {
				logger.Fatalf("apply postgres migrations: %v", err)
			}
		}

		companyStore = pgstore.NewCompanyStore(pool)
		snapshotStore = pgstore.NewSnapshotStore(pool)
	}

	fetcher := buildFetcher(cfg, logger, *workers)

	start := time.Now()
	result, err := fetcher.Fetch(ctx, tickers)
	if err != nil {
		logger.Fatalf("fetch: %v", err)
	}

	now := time.Now().UTC()
	nowMilli := now.UnixMilli()
	asOf := now.Format("2006-01-02")

	for _, c := range result.Companies {
		row := *c
		row.AddedAt = nowMilli
		if err := companyStore.Upsert(ctx, &row); err != nil {
			logger.Fatalf("upsert company %s: %v", row.Ticker, err)
		}
	}

	// One observation per ticker per day; the first stored that day wins.
	var stored, alreadyStored int
	for _, profile := range result.Profiles {
		snap := &domain.FundamentalSnapshot{
			SnapshotID: idhash.SnapshotID(profile.Ticker, asOf),
			AsOf:       asOf,
			Metrics:    profile,
			CreatedAt:  nowMilli,
		}
		err := snapshotStore.Insert(ctx, snap)
		switch {
		case errors.Is(err, storage.ErrDuplicateKey):
			alreadyStored++
		case err != nil:
			logger.Fatalf("insert snapshot for %s: %v", profile.Ticker, err)
		default:
			stored++
		}
	}

	logger.WithFields(logrus.Fields{
		"duration_ms":    time.Since(start).Milliseconds(),
		"fetched":        len(result.Profiles),
		"skipped":        result.Skipped,
		"stored":         stored,
		"already_stored": alreadyStored,
	}).Info("Fetch pass complete")

	fmt.Printf("Fetched %d of %d tickers (%d skipped)\n", len(result.Profiles), len(tickers), result.Skipped)
	fmt.Printf("Stored %d snapshots for %s (%d already stored)\n", stored, asOf, alreadyStored)
}

// buildFetcher assembles the live connector pipeline: the market and SEC
// clients behind the shared lookup cache.
func buildFetcher(cfg *config.Config, logger *logrus.Logger, workers int) *pipeline.Fetcher {
	if cfg.MarketData.BaseURL == "" {
		logger.Fatal("market_data.base_url is required for live fetches")
	}

	var c cache.Cache = cache.NewMemory()
	if cfg.Cache.RedisAddr != "" {
		rc := cache.NewRedis(redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr}))
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rc.Ping(pingCtx); err != nil {
			logger.Fatalf("connect to redis at %s: %v", cfg.Cache.RedisAddr, err)
		}
		c = rc
	}

	m := observability.Default()
	market := marketdata.NewCachedSource(
		marketdata.NewClient(cfg.MarketData.BaseURL, marketdata.WithTimeout(cfg.MarketTimeout())),
		c, cfg.CacheTTL(),
	).WithLogger(logger).WithMetrics(m)

	sec := secdata.NewCachedSource(
		secdata.NewClient(
			secdata.WithUserAgent(cfg.SECData.UserAgent),
			secdata.WithRateLimit(cfg.SECData.RatePerSecond),
		),
		c, cfg.CacheTTL(),
	).WithLogger(logger).WithMetrics(m)

	return pipeline.NewFetcher(market, sec, metrics.NewCalculator()).
		WithWorkers(workers).
		WithLogger(logger)
}
