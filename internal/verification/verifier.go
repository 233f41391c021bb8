// Package verification recomputes stored model runs from their persisted
// snapshots and compares the results field by field. A run whose rows
// cannot be reproduced from its own inputs indicates drift in the model
// or corrupted storage.
package verification

import (
	"context"
	"math"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons. The model is
// pure arithmetic over stored inputs, so recomputation matches to near
// machine precision.
const FloatTolerance = 1e-9

// FieldDivergence represents a mismatch between stored and recomputed values.
type FieldDivergence struct {
	Field    string      // field name
	Expected interface{} // stored value
	Actual   interface{} // recomputed value
}

// VerificationResult contains the result of verifying a single model run.
type VerificationResult struct {
	ModelRunID    string            // verified model run ID
	Ticker        string            // candidate ticker
	Match         bool              // true if all fields match
	Divergences   []FieldDivergence // list of divergent fields
	StoredIRR     float64           // IRR from the stored row
	RecomputedIRR float64           // IRR from the recomputed model
}

// VerificationReport contains results for one run's batch verification.
type VerificationReport struct {
	RunID         string               // verified screening run
	TotalRuns     int                  // model runs verified
	MatchedRuns   int                  // model runs that matched
	DivergentRuns int                  // model runs with divergences
	Results       []VerificationResult // individual results
}

// Verifier re-derives stored model outcomes and reports divergences.
type Verifier interface {
	// VerifyRun verifies every model run recorded for one screening run.
	VerifyRun(ctx context.Context, runID string) (*VerificationReport, error)
}

// CompareReturns compares a stored returns row against a recomputed one.
// Uses FloatTolerance for float64 comparisons.
func CompareReturns(stored, recomputed domain.ReturnsResult) []FieldDivergence {
	var divergences []FieldDivergence

	if stored.Ticker != recomputed.Ticker {
		divergences = append(divergences, FieldDivergence{
			Field:    "Ticker",
			Expected: stored.Ticker,
			Actual:   recomputed.Ticker,
		})
	}

	floats := []struct {
		field  string
		stored float64
		recomp float64
	}{
		{"EntryMultiple", stored.EntryMultiple, recomputed.EntryMultiple},
		{"ExitMultiple", stored.ExitMultiple, recomputed.ExitMultiple},
		{"EntryEV", stored.EntryEV, recomputed.EntryEV},
		{"EntryDebt", stored.EntryDebt, recomputed.EntryDebt},
		{"EntryEquity", stored.EntryEquity, recomputed.EntryEquity},
		{"ExitEV", stored.ExitEV, recomputed.ExitEV},
		{"ExitEquity", stored.ExitEquity, recomputed.ExitEquity},
		{"MOIC", stored.MOIC, recomputed.MOIC},
		{"IRR", stored.IRR, recomputed.IRR},
	}
	for _, f := range floats {
		if !floatEquals(f.stored, f.recomp) {
			divergences = append(divergences, FieldDivergence{
				Field:    f.field,
				Expected: f.stored,
				Actual:   f.recomp,
			})
		}
	}

	return divergences
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}
