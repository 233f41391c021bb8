package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/idhash"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/lbo"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage"
)

var (
	// ErrRunNotFound is returned when the screening run doesn't exist.
	ErrRunNotFound = errors.New("run not found")

	// ErrSnapshotNotFound is returned when a model run's input snapshot
	// cannot be located.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// ModelVerifier implements Verifier. It locates each model run's input
// snapshot through the deterministic (ticker, observation date) id, so no
// foreign key back from model runs to snapshots is needed.
type ModelVerifier struct {
	runs      storage.RunStore
	snapshots storage.SnapshotStore
	modelRuns storage.ModelRunStore
}

// ModelVerifierOptions contains configuration for creating a ModelVerifier.
type ModelVerifierOptions struct {
	Runs      storage.RunStore
	Snapshots storage.SnapshotStore
	ModelRuns storage.ModelRunStore
}

// NewModelVerifier creates a new ModelVerifier.
func NewModelVerifier(opts ModelVerifierOptions) *ModelVerifier {
	return &ModelVerifier{
		runs:      opts.Runs,
		snapshots: opts.Snapshots,
		modelRuns: opts.ModelRuns,
	}
}

// VerifyRun re-derives every model run stored for one screening run from
// its snapshot and the echoed assumptions, and compares field by field.
// Per-row failures are folded into the report as divergences; only loading
// the run itself or its model rows can fail the call.
func (v *ModelVerifier) VerifyRun(ctx context.Context, runID string) (*VerificationReport, error) {
	run, err := v.runs.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	asOf := time.UnixMilli(run.StartedAt).UTC().Format("2006-01-02")

	stored, err := v.modelRuns.GetByRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	report := &VerificationReport{
		RunID:     runID,
		TotalRuns: len(stored),
		Results:   make([]VerificationResult, 0, len(stored)),
	}

	for _, m := range stored {
		result := v.verifyOne(ctx, asOf, m)
		report.Results = append(report.Results, result)
		if result.Match {
			report.MatchedRuns++
		} else {
			report.DivergentRuns++
		}
	}

	return report, nil
}

// verifyOne recomputes one stored model run. Errors become divergences so
// a single unverifiable row does not abort the batch.
func (v *ModelVerifier) verifyOne(ctx context.Context, asOf string, stored *domain.ModelRun) VerificationResult {
	result := VerificationResult{
		ModelRunID: stored.ModelRunID,
		Ticker:     stored.Ticker,
		StoredIRR:  stored.Returns.IRR,
	}

	snapshotID := idhash.SnapshotID(stored.Ticker, asOf)
	snapshot, err := v.snapshots.GetByID(ctx, snapshotID)
	if errors.Is(err, storage.ErrNotFound) {
		result.Divergences = []FieldDivergence{
			{Field: "Snapshot", Expected: snapshotID, Actual: ErrSnapshotNotFound.Error()},
		}
		return result
	}
	if err != nil {
		result.Divergences = []FieldDivergence{
			{Field: "Error", Expected: nil, Actual: err.Error()},
		}
		return result
	}

	model, err := lbo.New(snapshot.Metrics, stored.Assumptions)
	if err != nil {
		result.Divergences = []FieldDivergence{
			{Field: "Error", Expected: nil, Actual: fmt.Sprintf("rebuild model: %v", err)},
		}
		return result
	}

	recomputed, ok := model.Base()
	if !ok {
		result.Divergences = []FieldDivergence{
			{Field: "BaseCase", Expected: "defined", Actual: "undefined"},
		}
		return result
	}

	result.RecomputedIRR = recomputed.IRR
	result.Divergences = CompareReturns(stored.Returns, recomputed)
	result.Match = len(result.Divergences) == 0
	return result
}
