// Package lbo implements the simplified leveraged-buyout model: cash-flow
// projection, cash-sweep debt amortization, entry/exit returns, and the
// entry x exit multiple sensitivity grid. The engine is pure computation:
// it performs no I/O, never logs, and signals "no result" with comma-ok
// returns instead of errors so batch callers skip candidates uniformly.
package lbo

import (
	"fmt"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
)

// Defaults applied when a candidate's profile lacks the derived growth or
// capital-intensity metric.
const (
	defaultGrowth     = 0.03
	defaultCapexRatio = 0.03
)

// Model runs the simplified LBO for a single candidate. The projection is
// computed once at construction and shared by every subsequent Run and
// Sensitivity call, including every sensitivity grid cell. A Model is
// immutable after construction and safe for concurrent use.
type Model struct {
	profile     domain.FundamentalMetrics
	assumptions domain.Assumptions
	projection  domain.Projection
}

// New builds a model for one candidate. Invalid assumptions are an error;
// missing profile fields are not, they surface later as absent results.
func New(profile domain.FundamentalMetrics, a domain.Assumptions) (*Model, error) {
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("assumptions: %w", err)
	}

	proj := Project(
		profile.LTMEBITDA.Or(0),
		profile.RevenueCAGR.Or(defaultGrowth),
		profile.CapexPctSales.Or(defaultCapexRatio),
		a.TaxRate,
		a.HorizonYears,
	)

	return &Model{
		profile:     profile,
		assumptions: a,
		projection:  proj,
	}, nil
}

// Run executes the model with optional entry/exit multiple overrides.
// Undefined overrides fall back to the profile's base multiple and the
// configured exit premium.
func (m *Model) Run(entryOverride, exitOverride domain.Figure) (domain.ReturnsResult, bool) {
	return ComputeReturns(m.profile, m.assumptions, m.projection, entryOverride, exitOverride)
}

// Base executes the model without overrides.
func (m *Model) Base() (domain.ReturnsResult, bool) {
	return m.Run(domain.Figure{}, domain.Figure{})
}

// Sensitivity builds the IRR/MOIC grids over entry x exit multiples.
// Absent when the profile's base multiple is undefined.
func (m *Model) Sensitivity() (domain.SensitivityMatrix, bool) {
	return ComputeSensitivity(m.profile, m.assumptions, m.projection)
}

// Projection exposes the forecast shared by all runs of this model.
func (m *Model) Projection() domain.Projection {
	return m.projection
}
