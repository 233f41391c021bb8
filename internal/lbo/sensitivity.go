package lbo

import "github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"

// Grid geometry: two half-turn steps either side of the base multiple,
// giving five points from base-1.0 to base+1.0 inclusive.
const (
	gridStep      = 0.5
	gridHalfSteps = 2
)

// gridMultiples derives the sensitivity axis from an integer step count so
// the endpoints and the exact base point are always present; repeated
// float accumulation would risk dropping the upper endpoint.
func gridMultiples(base float64) []float64 {
	multiples := make([]float64, 0, 2*gridHalfSteps+1)
	for k := -gridHalfSteps; k <= gridHalfSteps; k++ {
		multiples = append(multiples, base+gridStep*float64(k))
	}
	return multiples
}

// ComputeSensitivity re-runs the returns calculation across the entry x
// exit multiple grid, reusing the one projection for every cell: growth
// and capex assumptions do not vary across the grid, only multiples do.
// Pairs the calculator rejects leave their cell undefined rather than
// zero. Absent (ok false) only when the profile's base multiple is itself
// undefined; a missing LTM EBITDA instead yields matrices whose every
// cell is undefined.
func ComputeSensitivity(profile domain.FundamentalMetrics, a domain.Assumptions, proj domain.Projection) (domain.SensitivityMatrix, bool) {
	if !profile.EVEBITDA.Defined {
		return domain.SensitivityMatrix{}, false
	}

	base := profile.EVEBITDA.Value
	entries := gridMultiples(base)
	exits := gridMultiples(base)

	cells := make([][]domain.SensitivityCell, len(entries))
	for i, entry := range entries {
		cells[i] = make([]domain.SensitivityCell, len(exits))
		for j, exit := range exits {
			result, ok := ComputeReturns(profile, a, proj, domain.NewFigure(entry), domain.NewFigure(exit))
			if !ok {
				continue
			}
			cells[i][j] = domain.SensitivityCell{
				IRR:     result.IRR,
				MOIC:    result.MOIC,
				Defined: true,
			}
		}
	}

	return domain.SensitivityMatrix{
		Ticker:         profile.Ticker,
		BaseMultiple:   base,
		EntryMultiples: entries,
		ExitMultiples:  exits,
		Cells:          cells,
	}, true
}
