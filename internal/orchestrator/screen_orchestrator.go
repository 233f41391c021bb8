// Package orchestrator drives one end-to-end screening run: resolve the
// universe, fetch and derive profiles, screen, model the survivors, and
// persist everything under a deterministic run handle.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/idhash"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/lbo"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/observability"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/pipeline"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/screening"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage"
)

// Options for creating an Orchestrator.
type Options struct {
	Source      pipeline.ProfileSource
	Screener    *screening.Screener
	Assumptions domain.Assumptions

	Runs      storage.RunStore
	Companies storage.CompanyStore
	Snapshots storage.SnapshotStore
	Results   storage.ScreenResultStore
	ModelRuns storage.ModelRunStore
	Cells     storage.SensitivityCellStore
	Outcomes  storage.CriterionOutcomeStore

	Logger  logrus.FieldLogger
	Metrics *observability.Metrics
	Clock   func() time.Time
}

// Orchestrator coordinates the phases of a screening run.
// Flow: resolve -> fetch+derive -> screen -> model -> persist.
type Orchestrator struct {
	source      pipeline.ProfileSource
	screener    *screening.Screener
	assumptions domain.Assumptions

	runs      storage.RunStore
	companies storage.CompanyStore
	snapshots storage.SnapshotStore
	results   storage.ScreenResultStore
	modelRuns storage.ModelRunStore
	cells     storage.SensitivityCellStore
	outcomes  storage.CriterionOutcomeStore

	logger  logrus.FieldLogger
	metrics *observability.Metrics
	clock   func() time.Time
}

// New creates an orchestrator. The shared criteria and assumptions are
// validated once here so per-candidate model construction cannot fail.
func New(opts Options) (*Orchestrator, error) {
	if err := opts.Screener.Criteria().Validate(); err != nil {
		return nil, fmt.Errorf("criteria: %w", err)
	}
	if err := opts.Assumptions.Validate(); err != nil {
		return nil, fmt.Errorf("assumptions: %w", err)
	}

	clock := opts.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}

	return &Orchestrator{
		source:      opts.Source,
		screener:    opts.Screener,
		assumptions: opts.Assumptions,
		runs:        opts.Runs,
		companies:   opts.Companies,
		snapshots:   opts.Snapshots,
		results:     opts.Results,
		modelRuns:   opts.ModelRuns,
		cells:       opts.Cells,
		outcomes:    opts.Outcomes,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		clock:       clock,
	}, nil
}

// Summary reports the counts of one completed run.
type Summary struct {
	RunID        string
	UniverseSize int
	Fetched      int
	Skipped      int
	Passed       int
	Modeled      int
	StartedAt    int64 // Unix timestamp in milliseconds
	FinishedAt   int64 // Unix timestamp in milliseconds
}

// Run executes one screening run over the given tickers. Tickers are
// normalized and deduplicated first; the run handle derives from the
// universe, the criteria, the assumptions, and the start time. Absence
// signals skip candidates; any other failure marks the run failed.
func (o *Orchestrator) Run(ctx context.Context, tickers []string) (*Summary, error) {
	tickers = normalizeTickers(tickers)
	startedAt := o.clock()
	runID := idhash.RunID(startedAt.UnixMilli(), idhash.UniverseHash(tickers), o.screener.Criteria(), o.assumptions)

	run := &domain.ScreenRun{
		RunID:        runID,
		Status:       domain.RunStatusRunning,
		UniverseSize: len(tickers),
		StartedAt:    startedAt.UnixMilli(),
	}
	if err := o.runs.Insert(ctx, run); err != nil {
		return nil, fmt.Errorf("register run: %w", err)
	}
	o.metrics.SetUniverseSize(len(tickers))
	o.info(logrus.Fields{"run_id": runID, "universe": len(tickers)}, "Screening run started")

	// Fetch + derive.
	fetchStart := time.Now()
	fetched, err := o.source.Fetch(ctx, tickers)
	if err != nil {
		return nil, o.fail(ctx, runID, 0, 0, 0, fmt.Errorf("fetch phase: %w", err))
	}
	o.phaseDone(runID, "fetch", fetchStart, logrus.Fields{
		"fetched": len(fetched.Profiles),
		"skipped": fetched.Skipped,
	})

	// Screen.
	screenStart := time.Now()
	results := o.screener.Screen(runID, fetched.Profiles)
	survivors := passedProfiles(results, fetched.Profiles)
	o.phaseDone(runID, "screen", screenStart, logrus.Fields{
		"evaluated": len(results),
		"passed":    len(survivors),
	})

	// Model + sensitivity, survivors only.
	modelStart := time.Now()
	modelRuns, cells, err := o.modelSurvivors(runID, survivors, startedAt.UnixMilli())
	if err != nil {
		return nil, o.fail(ctx, runID, len(fetched.Profiles), len(survivors), 0, fmt.Errorf("model phase: %w", err))
	}
	o.phaseDone(runID, "model", modelStart, logrus.Fields{
		"candidates": len(survivors),
		"modeled":    len(modelRuns),
	})

	// Persist.
	persistStart := time.Now()
	if err := o.persist(ctx, runID, startedAt, fetched, results, modelRuns, cells); err != nil {
		return nil, o.fail(ctx, runID, len(fetched.Profiles), len(survivors), len(modelRuns),
			fmt.Errorf("persist phase: %w", err))
	}
	o.phaseDone(runID, "persist", persistStart, logrus.Fields{
		"snapshots":  len(fetched.Profiles),
		"results":    len(results),
		"model_runs": len(modelRuns),
		"cells":      len(cells),
	})

	finishedAt := o.clock()
	err = o.runs.Finish(ctx, runID, domain.RunStatusCompleted,
		len(fetched.Profiles), len(survivors), len(modelRuns), finishedAt.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("finish run: %w", err)
	}
	o.metrics.SetLastRun(finishedAt.Unix())
	o.info(logrus.Fields{
		"run_id":  runID,
		"fetched": len(fetched.Profiles),
		"passed":  len(survivors),
		"modeled": len(modelRuns),
	}, "Screening run complete")

	return &Summary{
		RunID:        runID,
		UniverseSize: len(tickers),
		Fetched:      len(fetched.Profiles),
		Skipped:      fetched.Skipped,
		Passed:       len(survivors),
		Modeled:      len(modelRuns),
		StartedAt:    startedAt.UnixMilli(),
		FinishedAt:   finishedAt.UnixMilli(),
	}, nil
}

// modelSurvivors runs the LBO model per surviving candidate. A candidate
// whose base case comes back absent is skipped and counted, matching the
// screener's treatment of undefined metrics; its sensitivity grid is not
// computed either, since the grid centers on the same base multiple.
func (o *Orchestrator) modelSurvivors(runID string, survivors []domain.FundamentalMetrics, nowMilli int64) ([]*domain.ModelRun, []domain.SensitivityPoint, error) {
	modelRuns := make([]*domain.ModelRun, 0, len(survivors))
	var cells []domain.SensitivityPoint

	for _, profile := range survivors {
		model, err := lbo.New(profile, o.assumptions)
		if err != nil {
			return nil, nil, fmt.Errorf("model for %s: %w", profile.Ticker, err)
		}

		base, ok := model.Base()
		o.metrics.RecordModelRun(ok, "no_result")
		if !ok {
			o.info(logrus.Fields{"run_id": runID, "ticker": profile.Ticker}, "Model returned no result")
			continue
		}

		modelRuns = append(modelRuns, &domain.ModelRun{
			ModelRunID:  idhash.ResultID(runID, profile.Ticker),
			RunID:       runID,
			Ticker:      profile.Ticker,
			Returns:     base,
			Assumptions: o.assumptions,
			CreatedAt:   nowMilli,
		})

		matrix, ok := model.Sensitivity()
		if !ok {
			continue
		}
		points := matrix.Flatten(runID)
		defined := 0
		for _, p := range points {
			if p.Defined {
				defined++
			}
		}
		o.metrics.RecordSensitivityCells(defined, len(points)-defined)
		cells = append(cells, points...)
	}

	return modelRuns, cells, nil
}

// persist writes the run's artifacts. Snapshot inserts tolerate duplicate
// keys: the snapshot id is deterministic on (ticker, date), so re-fetching
// a ticker on the same observation date keeps the earlier row.
func (o *Orchestrator) persist(ctx context.Context, runID string, startedAt time.Time, fetched *pipeline.Result, results []*domain.ScreenResult, modelRuns []*domain.ModelRun, cells []domain.SensitivityPoint) error {
	nowMilli := startedAt.UnixMilli()
	asOf := startedAt.Format("2006-01-02")

	for _, company := range fetched.Companies {
		c := *company
		c.AddedAt = nowMilli
		if err := o.companies.Upsert(ctx, &c); err != nil {
			return fmt.Errorf("upsert company %s: %w", c.Ticker, err)
		}
	}

	for _, profile := range fetched.Profiles {
		snap := &domain.FundamentalSnapshot{
			SnapshotID: idhash.SnapshotID(profile.Ticker, asOf),
			RunID:      runID,
			AsOf:       asOf,
			Metrics:    profile,
			CreatedAt:  nowMilli,
		}
		err := o.snapshots.Insert(ctx, snap)
		if errors.Is(err, storage.ErrDuplicateKey) {
			continue
		}
		if err != nil {
			return fmt.Errorf("insert snapshot %s: %w", profile.Ticker, err)
		}
	}

	if err := o.results.InsertBulk(ctx, results); err != nil {
		return fmt.Errorf("insert screen results: %w", err)
	}

	criterionOutcomes := make([]*domain.CriterionOutcome, 0, len(results)*6)
	for _, r := range results {
		criterionOutcomes = append(criterionOutcomes, r.Outcomes()...)
	}
	if err := o.outcomes.InsertBulk(ctx, criterionOutcomes); err != nil {
		return fmt.Errorf("insert criterion outcomes: %w", err)
	}

	if err := o.modelRuns.InsertBulk(ctx, modelRuns); err != nil {
		return fmt.Errorf("insert model runs: %w", err)
	}

	if err := o.cells.InsertBulk(ctx, cells); err != nil {
		return fmt.Errorf("insert sensitivity cells: %w", err)
	}
	return nil
}

// fail marks the run failed, keeping the counts reached so far.
func (o *Orchestrator) fail(ctx context.Context, runID string, fetched, passed, modeled int, err error) error {
	finishErr := o.runs.Finish(ctx, runID, domain.RunStatusFailed, fetched, passed, modeled, o.clock().UnixMilli())
	if finishErr != nil && o.logger != nil {
		o.logger.WithField("run_id", runID).WithError(finishErr).Warn("Could not mark run failed")
	}
	return err
}

func (o *Orchestrator) phaseDone(runID, phase string, start time.Time, fields logrus.Fields) {
	elapsed := time.Since(start)
	o.metrics.ObservePhase(phase, elapsed.Seconds())
	if o.logger == nil {
		return
	}
	merged := logrus.Fields{
		"run_id":      runID,
		"phase":       phase,
		"duration_ms": elapsed.Milliseconds(),
	}
	for k, v := range fields {
		merged[k] = v
	}
	o.logger.WithFields(merged).Info("Phase complete")
}

func (o *Orchestrator) info(fields logrus.Fields, msg string) {
	if o.logger == nil {
		return
	}
	o.logger.WithFields(fields).Info(msg)
}

// passedProfiles selects the profiles whose screen result passed,
// preserving the evaluation order.
func passedProfiles(results []*domain.ScreenResult, profiles []domain.FundamentalMetrics) []domain.FundamentalMetrics {
	byTicker := make(map[string]domain.FundamentalMetrics, len(profiles))
	for _, p := range profiles {
		byTicker[p.Ticker] = p
	}

	survivors := make([]domain.FundamentalMetrics, 0, len(results))
	for _, r := range results {
		if !r.Passed {
			continue
		}
		if profile, ok := byTicker[r.Ticker]; ok {
			survivors = append(survivors, profile)
		}
	}
	return survivors
}

// normalizeTickers uppercases, trims, and deduplicates, preserving first
// occurrence order.
func normalizeTickers(tickers []string) []string {
	seen := make(map[string]bool, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
