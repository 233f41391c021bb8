// Package reporting assembles human-readable artifacts for completed
// screening runs: a Markdown memo and CSV extracts, built entirely from
// stored rows so a report can be regenerated long after the run.
package reporting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage"
)

// Generator produces reports from stored run data.
type Generator struct {
	runs      storage.RunStore
	snapshots storage.SnapshotStore
	results   storage.ScreenResultStore
	modelRuns storage.ModelRunStore
	cells     storage.SensitivityCellStore
	outcomes  storage.CriterionOutcomeStore
	now       func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a report generator over the run stores.
func NewGenerator(
	runs storage.RunStore,
	snapshots storage.SnapshotStore,
	results storage.ScreenResultStore,
	modelRuns storage.ModelRunStore,
	cells storage.SensitivityCellStore,
	outcomes storage.CriterionOutcomeStore,
) *Generator {
	return &Generator{
		runs:      runs,
		snapshots: snapshots,
		results:   results,
		modelRuns: modelRuns,
		cells:     cells,
		outcomes:  outcomes,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate assembles the complete report for one run. Returns
// storage.ErrNotFound when the run does not exist.
func (g *Generator) Generate(ctx context.Context, runID string) (*Report, error) {
	run, err := g.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}

	results, err := g.results.GetByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load screen results: %w", err)
	}

	modelRuns, err := g.modelRuns.GetByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load model runs: %w", err)
	}

	metricsByTicker, err := g.loadMetrics(ctx, runID, modelRuns)
	if err != nil {
		return nil, err
	}

	passRates, err := g.outcomes.PassRateByCriterion(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load pass rates: %w", err)
	}

	resultsByTicker := make(map[string]*domain.ScreenResult, len(results))
	for _, r := range results {
		resultsByTicker[r.Ticker] = r
	}

	tearSheets, err := g.buildTearSheets(ctx, runID, modelRuns, metricsByTicker, resultsByTicker)
	if err != nil {
		return nil, err
	}

	return &Report{
		GeneratedAt: g.now(),
		Run: RunSummary{
			RunID:        run.RunID,
			Status:       run.Status,
			UniverseSize: run.UniverseSize,
			Fetched:      run.Fetched,
			Passed:       run.Screened,
			Modeled:      run.Modeled,
			StartedAt:    run.StartedAt,
			FinishedAt:   run.FinishedAt,
		},
		Criteria:      criterionSummary(results, passRates),
		Shortlist:     buildShortlist(modelRuns, metricsByTicker),
		Rejections:    buildRejections(results),
		ScreenResults: buildScreenResultRows(results),
		TearSheets:    tearSheets,
	}, nil
}

// loadMetrics indexes the run's snapshots by ticker. A modeled ticker
// missing from the run's own snapshots falls back to its latest stored
// snapshot: a same-day rerun keeps the earlier observation, which then
// lives under the earlier run's id.
func (g *Generator) loadMetrics(ctx context.Context, runID string, modelRuns []*domain.ModelRun) (map[string]domain.FundamentalMetrics, error) {
	snapshots, err := g.snapshots.GetByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}

	byTicker := make(map[string]domain.FundamentalMetrics, len(snapshots))
	for _, s := range snapshots {
		byTicker[s.Metrics.Ticker] = s.Metrics
	}

	for _, m := range modelRuns {
		if _, ok := byTicker[m.Ticker]; ok {
			continue
		}
		latest, err := g.snapshots.GetLatestByTicker(ctx, m.Ticker)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load latest snapshot for %s: %w", m.Ticker, err)
		}
		byTicker[m.Ticker] = latest.Metrics
	}
	return byTicker, nil
}

func (g *Generator) buildTearSheets(ctx context.Context, runID string, modelRuns []*domain.ModelRun, metricsByTicker map[string]domain.FundamentalMetrics, resultsByTicker map[string]*domain.ScreenResult) ([]TearSheet, error) {
	sheets := make([]TearSheet, 0, len(modelRuns))
	for _, m := range modelRuns {
		sheet := TearSheet{
			Ticker:  m.Ticker,
			Metrics: metricsByTicker[m.Ticker],
			Returns: m.Returns,
		}
		if r, ok := resultsByTicker[m.Ticker]; ok {
			sheet.Criteria = r.Criteria
		}

		points, err := g.cells.GetByRunTicker(ctx, runID, m.Ticker)
		if err != nil {
			return nil, fmt.Errorf("load grid for %s: %w", m.Ticker, err)
		}
		sheet.Grid = rebuildGrid(points)

		sheets = append(sheets, sheet)
	}
	return sheets, nil
}

// criterionSummary pairs each criterion's threshold, taken from the first
// evaluated company, with its batch pass rate. Criteria are uniform within
// a run, so any result's rows carry the thresholds.
func criterionSummary(results []*domain.ScreenResult, passRates map[string]float64) []CriterionSummaryRow {
	if len(results) == 0 {
		return nil
	}
	rows := make([]CriterionSummaryRow, 0, len(results[0].Criteria))
	for _, c := range results[0].Criteria {
		rows = append(rows, CriterionSummaryRow{
			Name:      c.Name,
			Threshold: c.Threshold,
			PassRate:  passRates[c.Name],
		})
	}
	return rows
}

// buildShortlist joins model runs with the entry profiles. Model runs
// arrive IRR-descending from the store and the order is kept.
func buildShortlist(modelRuns []*domain.ModelRun, metricsByTicker map[string]domain.FundamentalMetrics) []ShortlistRow {
	rows := make([]ShortlistRow, 0, len(modelRuns))
	for _, m := range modelRuns {
		metrics := metricsByTicker[m.Ticker]
		rows = append(rows, ShortlistRow{
			Ticker:        m.Ticker,
			CompanyName:   metrics.CompanyName,
			Sector:        metrics.Sector,
			EVEBITDA:      metrics.EVEBITDA,
			NetDebtEBITDA: metrics.NetDebtEBITDA,
			RevenueCAGR:   metrics.RevenueCAGR,
			IRR:           m.Returns.IRR,
			MOIC:          m.Returns.MOIC,
		})
	}
	return rows
}

func buildScreenResultRows(results []*domain.ScreenResult) []ScreenResultRow {
	var rows []ScreenResultRow
	for _, r := range results {
		for _, c := range r.Criteria {
			rows = append(rows, ScreenResultRow{
				Ticker:    r.Ticker,
				Passed:    r.Passed,
				Criterion: c.Name,
				Threshold: c.Threshold,
				Actual:    c.Actual,
				Pass:      c.Pass,
			})
		}
	}
	return rows
}

func buildRejections(results []*domain.ScreenResult) []RejectionRow {
	var rows []RejectionRow
	for _, r := range results {
		if r.Passed {
			continue
		}
		row := RejectionRow{Ticker: r.Ticker, RejectedBy: r.RejectedBy}
		for _, c := range r.Criteria {
			if c.Name == r.RejectedBy {
				row.Threshold = c.Threshold
				row.Actual = c.Actual
				break
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// rebuildGrid reshapes flattened cells back into the entry x exit table.
// Returns nil when no cells were stored for the candidate.
func rebuildGrid(points []domain.SensitivityPoint) *SensitivityGrid {
	if len(points) == 0 {
		return nil
	}

	entrySet := make(map[float64]bool)
	exitSet := make(map[float64]bool)
	for _, p := range points {
		entrySet[p.EntryMultiple] = true
		exitSet[p.ExitMultiple] = true
	}

	entries := sortedKeys(entrySet)
	exits := sortedKeys(exitSet)

	entryIdx := make(map[float64]int, len(entries))
	for i, v := range entries {
		entryIdx[v] = i
	}
	exitIdx := make(map[float64]int, len(exits))
	for j, v := range exits {
		exitIdx[v] = j
	}

	cells := make([][]domain.SensitivityCell, len(entries))
	for i := range cells {
		cells[i] = make([]domain.SensitivityCell, len(exits))
	}
	for _, p := range points {
		cells[entryIdx[p.EntryMultiple]][exitIdx[p.ExitMultiple]] = domain.SensitivityCell{
			IRR:     p.IRR,
			MOIC:    p.MOIC,
			Defined: p.Defined,
		}
	}

	return &SensitivityGrid{
		EntryMultiples: entries,
		ExitMultiples:  exits,
		Cells:          cells,
	}
}

func sortedKeys(set map[float64]bool) []float64 {
	keys := make([]float64, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Float64s(keys)
	return keys
}
