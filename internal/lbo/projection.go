package lbo

import (
	"math"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
)

// Fixed operating policy ratios of the simplified model. These are
// modeling conventions, not inputs: D&A runs at 15% of EBITDA and
// incremental net working capital absorbs 5% of each period's EBITDA
// growth.
const (
	dandaPctEBITDA    = 0.15
	nwcPctEBITDADelta = 0.05
)

// Project builds the per-period operating forecast for one candidate.
//
// Per period i (1-indexed from 1 to horizon):
//  1. EBITDA_i = base * (1+growth)^i
//  2. D&A_i = 15% of EBITDA_i
//  3. EBIT_i = EBITDA_i - D&A_i; taxes = EBIT_i * taxRate; NOPAT = EBIT - taxes
//  4. dNWC_i = 5% of the period-over-period EBITDA delta, zero in period 1
//     (no prior period exists)
//  5. CapEx_i = EBITDA_i * capexRatio
//  6. Unlevered FCF_i = NOPAT + D&A - CapEx - dNWC
//
// Growth may be negative: EBITDA decays toward zero without flooring, and
// downstream stages must tolerate that.
func Project(baseEBITDA, growth, capexRatio, taxRate float64, horizon int) domain.Projection {
	periods := make([]domain.ProjectionPeriod, 0, horizon)

	var prevEBITDA float64
	for i := 1; i <= horizon; i++ {
		ebitda := baseEBITDA * math.Pow(1+growth, float64(i))

		danda := ebitda * dandaPctEBITDA
		ebit := ebitda - danda
		taxes := ebit * taxRate
		nopat := ebit - taxes

		var nwcChange float64
		if i > 1 {
			nwcChange = (ebitda - prevEBITDA) * nwcPctEBITDADelta
		}

		capex := ebitda * capexRatio

		periods = append(periods, domain.ProjectionPeriod{
			Period:       i,
			EBITDA:       ebitda,
			DandA:        danda,
			EBIT:         ebit,
			Taxes:        taxes,
			NOPAT:        nopat,
			NWCChange:    nwcChange,
			Capex:        capex,
			UnleveredFCF: nopat + danda - capex - nwcChange,
		})

		prevEBITDA = ebitda
	}

	return domain.Projection{
		BaseEBITDA: baseEBITDA,
		Growth:     growth,
		CapexRatio: capexRatio,
		TaxRate:    taxRate,
		Periods:    periods,
	}
}
