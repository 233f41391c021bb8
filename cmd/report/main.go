package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/config"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/reporting"
	chstore "github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage/clickhouse"
	pgstore "github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage/postgres"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/verification"
)

func main() {
	godotenv.Load()

	configPath := flag.String("config", "", "Config file path (default: search ./configs and .)")
	runID := flag.String("run-id", "latest", "Screening run to report, or 'latest' for the newest completed run")
	outputDir := flag.String("output-dir", "", "Report output directory (overrides config)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (overrides config)")
	verify := flag.Bool("verify", false, "Recompute stored model runs and report divergences")
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
	if *outputDir == "" {
		*outputDir = cfg.Output.Dir
	}
	if *postgresDSN == "" || *clickhouseDSN == "" {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required: reports render from storage")
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	conn, err := chstore.NewConn(ctx, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("connect to clickhouse: %v", err)
	}
	defer conn.Close()

	runStore := pgstore.NewRunStore(pool)
	snapshotStore := pgstore.NewSnapshotStore(pool)
	resultStore := pgstore.NewScreenResultStore(pool)
	modelRunStore := pgstore.NewModelRunStore(pool)
	cellStore := chstore.NewSensitivityCellStore(conn)
	outcomeStore := chstore.NewCriterionOutcomeStore(conn)

	id, err := resolveRunID(ctx, runStore, *runID)
	if err != nil {
		logger.Fatalf("resolve run: %v", err)
	}

	generator := reporting.NewGenerator(
		runStore, snapshotStore, resultStore,
		modelRunStore, cellStore, outcomeStore,
	)
	report, err := generator.Generate(ctx, id)
	if err != nil {
		logger.Fatalf("generate report for %s: %v", id, err)
	}
	written, err := reporting.WriteFiles(*outputDir, report)
	if err != nil {
		logger.Fatalf("write report files: %v", err)
	}

	fmt.Printf("Report generated for run %s:\n", id)
	for _, path := range written {
		fmt.Printf("  - %s\n", path)
	}

	if !*verify {
		return
	}

	verifier := verification.NewModelVerifier(verification.ModelVerifierOptions{
		Runs:      runStore,
		Snapshots: snapshotStore,
		ModelRuns: modelRunStore,
	})
	vr, err := verifier.VerifyRun(ctx, id)
	if err != nil {
		logger.Fatalf("verify run %s: %v", id, err)
	}

	fmt.Printf("Verification: %d model runs, %d matched, %d divergent\n",
		vr.TotalRuns, vr.MatchedRuns, vr.DivergentRuns)
	for _, result := range vr.Results {
		if result.Match {
			continue
		}
		fmt.Printf("  %s (%s):\n", result.Ticker, result.ModelRunID)
		for _, d := range result.Divergences {
			fmt.Printf("    %s: stored %v, recomputed %v\n", d.Field, d.Expected, d.Actual)
		}
	}
	if vr.DivergentRuns > 0 {
		os.Exit(1)
	}
}

// resolveRunID maps "latest" to the newest completed run; explicit IDs
// pass through untouched.
func resolveRunID(ctx context.Context, runs *pgstore.RunStore, requested string) (string, error) {
	if requested != "" && requested != "latest" {
		return requested, nil
	}

	all, err := runs.GetAll(ctx)
	if err != nil {
		return "", fmt.Errorf("list runs: %w", err)
	}
	for _, r := range all {
		if r.Status == domain.RunStatusCompleted {
			return r.RunID, nil
		}
	}
	return "", fmt.Errorf("no completed runs in storage")
}
