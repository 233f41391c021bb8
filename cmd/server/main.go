// Package main runs the screener as a long-lived service:
// - HTTP API: trigger screening runs, query runs and model returns
// - Universe watcher: rescreens tickers added to the universe file
// - Quote stream: keeps the market snapshot cache warm
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
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
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage"
	chstore "github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage/clickhouse"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage/memory"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage/migrations"
	pgstore "github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage/postgres"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/universe"
)

// Server holds the components of the screening service.
type Server struct {
	baseCtx   context.Context
	logger    *logrus.Logger
	stores    *allStores
	orch      *orchestrator.Orchestrator
	generator *reporting.Generator
	market    *marketdata.CachedSource // nil in offline mode
	outputDir string
	startedAt time.Time

	mu            sync.Mutex
	universe      []string
	runInProgress bool
	lastRunID     string
	lastRunAt     time.Time
	runsCompleted int
	streamActive  bool
}

// allStores holds every storage implementation the service touches.
type allStores struct {
	runs      storage.RunStore
	companies storage.CompanyStore
	snapshots storage.SnapshotStore
	results   storage.ScreenResultStore
	modelRuns storage.ModelRunStore
	cells     storage.SensitivityCellStore
	outcomes  storage.CriterionOutcomeStore
}

func main() {
	godotenv.Load()

	configPath := flag.String("config", "", "Config file path (default: search ./configs and .)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	universePath := flag.String("universe", "", "Universe CSV path (overrides config)")
	outputDir := flag.String("output-dir", "", "Report output directory (overrides config)")
	offline := flag.Bool("offline", false, "Screen from stored snapshots instead of live connectors")
	workers := flag.Int("workers", 0, "Fetch worker pool size (overrides config)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (overrides config)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	migrate := flag.Bool("migrate", false, "Apply embedded schema migrations on startup")
	watch := flag.Bool("watch", true, "Watch the universe file and rescreen additions")
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
	if *addr == "" {
		*addr = cfg.Server.Addr
	}
	if *workers == 0 {
		*workers = cfg.Pipeline.Workers
	}

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory, *migrate)
	if err != nil {
		logger.Fatalf("create stores: %v", err)
	}
	defer cleanup()

	// The universe is optional for the service: without one, screen
	// requests must carry explicit tickers and the watcher stays off.
	tickers, err := universe.Load(*universePath)
	if err != nil {
		logger.WithError(err).WithField("path", *universePath).
			Warn("Universe unavailable, screen requests must supply tickers")
		tickers = nil
	}

	var source pipeline.ProfileSource
	var market *marketdata.CachedSource
	if *offline {
		source = pipeline.NewSnapshotFetcher(stores.snapshots).WithLogger(logger)
	} else {
		market, source = buildConnectors(cfg, logger, *workers)
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
		logger.Fatalf("configure orchestrator: %v", err)
	}

	server := &Server{
		baseCtx: ctx,
		logger:  logger,
		stores:  stores,
		orch:    orch,
		generator: reporting.NewGenerator(
			stores.runs, stores.snapshots, stores.results,
			stores.modelRuns, stores.cells, stores.outcomes,
		),
		market:    market,
		outputDir: *outputDir,
		startedAt: time.Now(),
		universe:  tickers,
	}

	if *watch && len(tickers) > 0 {
		watcher, err := universe.NewWatcher(*universePath, logger)
		if err != nil {
			logger.Fatalf("watch universe: %v", err)
		}
		defer watcher.Close()
		go server.consumeUniverseAdditions(ctx, watcher)
	}

	if cfg.MarketData.WSURL != "" && market != nil {
		stream, err := marketdata.NewStreamClient(ctx, cfg.MarketData.WSURL, nil)
		if err != nil {
			logger.WithError(err).Warn("Quote stream unavailable")
		} else {
			defer stream.Close()
			if err := stream.Subscribe(ctx, tickers...); err != nil {
				logger.WithError(err).Warn("Quote stream subscribe failed")
			} else {
				server.setStreamActive(true)
				go server.consumeQuotes(ctx, stream)
			}
		}
	}

	httpServer := &http.Server{
		Addr:    *addr,
		Handler: server.routes(),
	}

	// First signal drains gracefully; a second one, or a stall past 30s,
	// forces exit.
	done := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Infof("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("HTTP shutdown error")
		}

		select {
		case sig := <-sigCh:
			logger.Infof("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Info("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	logger.WithField("addr", *addr).Info("HTTP server listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("HTTP server: %v", err)
	}
	close(done)
	logger.Info("Shutdown complete")
}

// createStores creates the store set: PostgreSQL for relational rows,
// ClickHouse for analytics rows, or all in-memory.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory, migrate bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
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

	stores := &allStores{
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

// buildConnectors assembles the cached market source and the live fetch
// pipeline over it. The market source is returned separately so the quote
// stream can prime its cache.
func buildConnectors(cfg *config.Config, logger *logrus.Logger, workers int) (*marketdata.CachedSource, pipeline.ProfileSource) {
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

	fetcher := pipeline.NewFetcher(market, sec, metrics.NewCalculator()).
		WithWorkers(workers).
		WithLogger(logger)
	return market, fetcher
}

// routes builds the HTTP handler tree behind the request-ID middleware.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/runs", s.handleTriggerRun)
	mux.HandleFunc("GET /api/v1/runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /api/v1/companies/{ticker}/returns", s.handleCompanyReturns)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())
	mux.HandleFunc("GET /status", s.handleStatus)

	return s.requestLogger(mux)
}

// requestLogger tags every request with an ID and logs its outcome.
// Probe endpoints are passed through unlogged.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		s.logger.WithFields(logrus.Fields{
			"request_id":  requestID,
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("Request handled")
	})
}

// statusRecorder captures the response code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

type triggerRequest struct {
	Tickers []string `json:"tickers"`
}

// handleTriggerRun starts a screening run in the background. An empty
// body screens the full universe.
func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	tickers := req.Tickers
	if len(tickers) == 0 {
		tickers = s.universeTickers()
	}
	if len(tickers) == 0 {
		writeJSONError(w, http.StatusBadRequest, "no tickers: request body empty and no universe loaded")
		return
	}

	if !s.tryStartRun() {
		writeJSONError(w, http.StatusConflict, "a screening run is already in progress")
		return
	}
	go s.runScreen(s.baseCtx, tickers, "api")

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":        "accepted",
		"universe_size": len(tickers),
	})
}

type runPayload struct {
	RunID        string `json:"run_id"`
	Status       string `json:"status"`
	UniverseSize int    `json:"universe_size"`
	Fetched      int    `json:"fetched"`
	Passed       int    `json:"passed"`
	Modeled      int    `json:"modeled"`
	StartedAt    int64  `json:"started_at"`
	FinishedAt   int64  `json:"finished_at,omitempty"`
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	run, err := s.stores.runs.GetByID(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.logger.WithError(err).WithField("run_id", id).Error("Could not load run")
		writeJSONError(w, http.StatusInternalServerError, "could not load run")
		return
	}

	writeJSON(w, http.StatusOK, runPayload{
		RunID:        run.RunID,
		Status:       run.Status,
		UniverseSize: run.UniverseSize,
		Fetched:      run.Fetched,
		Passed:       run.Screened,
		Modeled:      run.Modeled,
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
	})
}

type returnsPayload struct {
	Ticker        string  `json:"ticker"`
	RunID         string  `json:"run_id"`
	ModelRunID    string  `json:"model_run_id"`
	EntryMultiple float64 `json:"entry_multiple"`
	ExitMultiple  float64 `json:"exit_multiple"`
	EntryEV       float64 `json:"entry_ev"`
	EntryDebt     float64 `json:"entry_debt"`
	EntryEquity   float64 `json:"entry_equity"`
	ExitEV        float64 `json:"exit_ev"`
	ExitEquity    float64 `json:"exit_equity"`
	MOIC          float64 `json:"moic"`
	IRR           float64 `json:"irr"`
	CreatedAt     int64   `json:"created_at"`
}

// handleCompanyReturns serves the newest stored model run for a ticker.
func (s *Server) handleCompanyReturns(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(strings.TrimSpace(r.PathValue("ticker")))

	runs, err := s.stores.modelRuns.GetByTicker(r.Context(), ticker)
	if err != nil {
		s.logger.WithError(err).WithField("ticker", ticker).Error("Could not load model runs")
		writeJSONError(w, http.StatusInternalServerError, "could not load model runs")
		return
	}
	if len(runs) == 0 {
		writeJSONError(w, http.StatusNotFound, "no model runs for ticker")
		return
	}

	latest := runs[0]
	writeJSON(w, http.StatusOK, returnsPayload{
		Ticker:        latest.Ticker,
		RunID:         latest.RunID,
		ModelRunID:    latest.ModelRunID,
		EntryMultiple: latest.Returns.EntryMultiple,
		ExitMultiple:  latest.Returns.ExitMultiple,
		EntryEV:       latest.Returns.EntryEV,
		EntryDebt:     latest.Returns.EntryDebt,
		EntryEquity:   latest.Returns.EntryEquity,
		ExitEV:        latest.Returns.ExitEV,
		ExitEquity:    latest.Returns.ExitEquity,
		MOIC:          latest.Returns.MOIC,
		IRR:           latest.Returns.IRR,
		CreatedAt:     latest.CreatedAt,
	})
}

// statusResponse is the JSON response for the /status endpoint.
type statusResponse struct {
	Status        string    `json:"status"`
	Uptime        string    `json:"uptime"`
	UniverseSize  int       `json:"universe_size"`
	RunInProgress bool      `json:"run_in_progress"`
	LastRunID     string    `json:"last_run_id,omitempty"`
	LastRunAt     time.Time `json:"last_run_at,omitempty"`
	RunsCompleted int       `json:"runs_completed"`
	StreamActive  bool      `json:"stream_active"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := statusResponse{
		Status:        "running",
		Uptime:        time.Since(s.startedAt).String(),
		UniverseSize:  len(s.universe),
		RunInProgress: s.runInProgress,
		LastRunID:     s.lastRunID,
		LastRunAt:     s.lastRunAt,
		RunsCompleted: s.runsCompleted,
		StreamActive:  s.streamActive,
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// runScreen executes one screening run and refreshes the report files.
// The caller must have claimed the run slot via tryStartRun.
func (s *Server) runScreen(ctx context.Context, tickers []string, trigger string) {
	defer s.finishRun()

	s.logger.WithFields(logrus.Fields{
		"trigger": trigger,
		"tickers": len(tickers),
	}).Info("Screening run started")

	summary, err := s.orch.Run(ctx, tickers)
	if err != nil {
		s.logger.WithError(err).Error("Screening run failed")
		return
	}

	s.mu.Lock()
	s.lastRunID = summary.RunID
	s.lastRunAt = time.Now()
	s.runsCompleted++
	s.mu.Unlock()

	if s.outputDir == "" {
		return
	}
	report, err := s.generator.Generate(ctx, summary.RunID)
	if err != nil {
		s.logger.WithError(err).WithField("run_id", summary.RunID).Warn("Could not generate report")
		return
	}
	if _, err := reporting.WriteFiles(s.outputDir, report); err != nil {
		s.logger.WithError(err).WithField("run_id", summary.RunID).Warn("Could not write report files")
	}
}

// consumeUniverseAdditions screens tickers as they appear in the
// universe file. Additions arriving during a run stay queued on the
// watcher channel and screen afterwards.
func (s *Server) consumeUniverseAdditions(ctx context.Context, w *universe.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case added, ok := <-w.Added():
			if !ok {
				return
			}

			s.mu.Lock()
			s.universe = append(s.universe, added...)
			s.mu.Unlock()
			s.logger.WithField("tickers", added).Info("Universe additions detected")

			if !s.tryStartRun() {
				s.logger.Info("Run already in progress, universe additions will screen next time")
				continue
			}
			s.runScreen(ctx, added, "universe-watch")
		}
	}
}

// consumeQuotes primes the market cache from the quote stream.
func (s *Server) consumeQuotes(ctx context.Context, stream *marketdata.StreamClient) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-stream.Updates():
			if !ok {
				s.setStreamActive(false)
				return
			}
			if err := s.market.Store(ctx, snap); err != nil {
				s.logger.WithError(err).WithField("ticker", snap.Ticker).Warn("Could not prime quote cache")
			}
		}
	}
}

func (s *Server) tryStartRun() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runInProgress {
		return false
	}
	s.runInProgress = true
	return true
}

func (s *Server) finishRun() {
	s.mu.Lock()
	s.runInProgress = false
	s.mu.Unlock()
}

func (s *Server) universeTickers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.universe))
	copy(out, s.universe)
	return out
}

func (s *Server) setStreamActive(active bool) {
	s.mu.Lock()
	s.streamActive = active
	s.mu.Unlock()
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
