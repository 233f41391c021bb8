package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/cache"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/config"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/marketdata"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/metrics"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/observability"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/orchestrator"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/pipeline"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/reporting"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/screening"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/secdata"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage/memory"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage/migrations"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/universe"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage"
	chstore "github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage/clickhouse"
	pgstore "github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage/postgres"
)

func main() {
	godotenv.Load()

	configPath := flag.String("config", "", "Config file path (default: search ./configs and .)")
	universePath := flag.String("universe", "", "Universe CSV path (overrides config)")
	outputDir := flag.String("output-dir", "", "Report output directory (overrides config)")
	offline := flag.Bool("offline", false, "Screen from stored snapshots instead of live connectors")
	workers := flag.Int("workers", 0, "Fetch worker pool size (overrides config)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (overrides config)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	migrate := flag.Bool("migrate", false, "Apply embedded schema migrations before the run")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	logger := config.NewLogger(cfg.Logging)

	if *postgresDSN == "" {
		*postgresDSN = cfg.Storage.PostgresDSN
	}
	if *clickhouseDSN == "" {
		*clickhouseDSN = cfg.Storage.ClickHouseDSN
	}
	if *universePath == "" {
		*universePath = cfg.Universe.Path
	}
	if *outputDir == "" {
		*outputDir = cfg.Output.Dir
	}
	if *workers == 0 {
		*workers = cfg.Pipeline.Workers
	}

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
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

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory, *migrate)
	if err != nil {
		logger.Fatalf("create stores: %v", err)
	}
	defer cleanup()

	var source pipeline.ProfileSource
	if *offline {
		source = pipeline.NewSnapshotFetcher(stores.snapshots).WithLogger(logger)
	} else {
		source = buildFetcher(cfg, logger, *workers)
	}

	m := observability.Default()
	orch, err := orchestrator.New(orchestrator.Options{
		Source:      source,
		Screener:    screening.NewScreener(cfg.ScreeningCriteria(), logger).WithMetrics(m),
		Assumptions: cfg.ModelAssumptions(),
		Runs:        stores.runs,
		Companies:   stores.companies,
		Snapshots:   stores.snapshots,
		Results:     stores.results,
		ModelRuns:   stores.modelRuns,
		Cells:       stores.cells,
		Outcomes:    stores.outcomes,
		Logger:      logger,
		Metrics:     m,
	})
	if err != nil {
		logger.Fatalf("configure run: %v", err)
	}

	summary, err := orch.Run(ctx, tickers)
	if err != nil {
		logger.Fatalf("screening run: %v", err)
	}

	generator := reporting.NewGenerator(
		stores.runs, stores.snapshots, stores.results,
		stores.modelRuns, stores.cells, stores.outcomes,
	)
	report, err := generator.Generate(ctx, summary.RunID)
	if err != nil {
		logger.Fatalf("generate report: %v", err)
	}
	written, err := reporting.WriteFiles(*outputDir, report)
	if err != nil {
		logger.Fatalf("write report files: %v", err)
	}

	fmt.Printf("Run %s completed: %d tickers, %d fetched, %d passed, %d modeled\n",
		summary.RunID, summary.UniverseSize, summary.Fetched, summary.Passed, summary.Modeled)
	fmt.Println("Report files:")
	for _, path := range written {
		fmt.Printf("  - %s\n", path)
	}
}

// screenStores bundles every store one screening run touches.
type screenStores struct {
	runs      storage.RunStore
	companies storage.CompanyStore
	snapshots storage.SnapshotStore
	results   storage.ScreenResultStore
	modelRuns storage.ModelRunStore
	cells     storage.SensitivityCellStore
	outcomes  storage.CriterionOutcomeStore
}

// createStores creates the store set for one run: PostgreSQL for the
// relational rows, ClickHouse for the analytics rows, or all in-memory.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory, migrate bool) (*screenStores, func(), error) {
	if useMemory {
		stores := &screenStores{
			runs:      memory.NewRunStore(),
			companies: memory.NewCompanyStore(),
			snapshots: memory.NewSnapshotStore(),
			results:   memory.NewScreenResultStore(),
			modelRuns: memory.NewModelRunStore(),
			cells:     memory.NewSensitivityCellStore(),
			outcomes:  memory.NewCriterionOutcomeStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	conn, err := chstore.NewConn(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	if migrate {
		if err := migrations.RunPostgres(ctx, pool); err != nil {
			conn.Close()
			pool.Close()
			return nil, nil, fmt.Errorf("apply postgres migrations: %w", err)
		}
		if err := migrations.RunClickhouse(ctx, conn); err != nil {
			conn.Close()
			pool.Close()
			return nil, nil, fmt.Errorf("apply clickhouse migrations: %w", err)
		}
	}

	stores := &screenStores{
		runs:      pgstore.NewRunStore(pool),
		companies: pgstore.NewCompanyStore(pool),
		snapshots: pgstore.NewSnapshotStore(pool),
		results:   pgstore.NewScreenResultStore(pool),
		modelRuns: pgstore.NewModelRunStore(pool),
		cells:     chstore.NewSensitivityCellStore(conn),
		outcomes:  chstore.NewCriterionOutcomeStore(conn),
	}
	cleanup := func() {
		conn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}

// buildFetcher assembles the live connector pipeline: the market and SEC
// clients behind the shared lookup cache.
func buildFetcher(cfg *config.Config, logger *logrus.Logger, workers int) *pipeline.Fetcher {
	if cfg.MarketData.BaseURL == "" {
		logger.Fatal("market_data.base_url is required for live fetches (use --offline to screen stored snapshots)")
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
