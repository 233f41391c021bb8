// Package metrics derives the per-company screening profile from raw
// market data and annual filing history. Each metric is computed with
// fallbacks for incomplete history; a metric that cannot be derived stays
// undefined rather than defaulting, and only a company with no usable
// EBITDA at all is absent entirely.
package metrics

import (
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
)

// Concept tag fallbacks, ordered by preference. Filers report the same
// economic line under different us-gaap tags depending on taxonomy year.
var (
	revenueTags = []string{
		"Revenues",
		"RevenueFromContractWithCustomerExcludingAssessedTax",
		"TotalRevenues",
		"SalesRevenueNet",
	}
	operatingIncomeTags = []string{
		"OperatingIncomeLoss",
	}
	dandaTags = []string{
		"DepreciationAndAmortization",
		"DepreciationDepletionAndAmortization",
	}
	capexTags = []string{
		"CapitalExpenditures",
		"PurchaseOfPropertyAndEquipmentNet",
		"PaymentsToAcquirePropertyPlantAndEquipment",
	}
)

// Trailing windows tried in order until one has enough history. CAGR
// prefers the longest view; capex intensity smooths over three years.
var (
	cagrWindows  = []int{4, 2, 1}
	capexWindows = []int{3, 2, 1}
)

// Calculator derives FundamentalMetrics for one company at a time. It is
// stateless and safe for concurrent use by pipeline workers.
type Calculator struct{}

// NewCalculator creates a metrics calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Compute derives the screening profile from a market snapshot and the
// company's annual statements. statements may be nil when only market
// data is available.
//
// LTM EBITDA prefers the filing-derived series (operating income plus
// D&A, aligned by fiscal year) and falls back to the provider's trailing
// EBITDA only when either input series is missing. Absent (ok false) when
// the resulting LTM EBITDA is undefined or non-positive: such a company
// cannot be priced on an EBITDA multiple and is skipped, not failed.
func (c *Calculator) Compute(snapshot *domain.MarketSnapshot, statements *domain.CompanyStatements) (domain.FundamentalMetrics, bool) {
	var (
		ebitdaSeries   domain.FactSeries
		haveSeries     bool
		revenueSeries  domain.FactSeries
		haveRevenue    bool
		capexSeries    domain.FactSeries
		haveCapex      bool
	)
	if statements != nil {
		oi, okOI := firstSeries(statements.Income, operatingIncomeTags)
		da, okDA := firstSeries(statements.CashFlow, dandaTags)
		if okOI && okDA {
			ebitdaSeries = sumSeries(oi, da)
			haveSeries = ebitdaSeries.Len() > 0
		}
		revenueSeries, haveRevenue = firstSeries(statements.Income, revenueTags)
		capexSeries, haveCapex = firstSeries(statements.CashFlow, capexTags)
	}

	ltm := snapshot.EBITDA
	if haveSeries {
		v, _ := ebitdaSeries.Latest()
		ltm = domain.NewFigure(v)
	}
	if !ltm.Defined || ltm.Value <= 0 {
		return domain.FundamentalMetrics{}, false
	}

	m := domain.FundamentalMetrics{
		Ticker:      snapshot.Ticker,
		CompanyName: snapshot.CompanyName,
		Sector:      snapshot.Sector,
		LTMEBITDA:   domain.NewFigure(ltm.Value),
	}

	if haveRevenue && revenueSeries.Len() > 1 {
		m.RevenueCAGR = computeRevenueCAGR(revenueSeries)
	}

	if haveRevenue && haveSeries {
		m.EBITDAMarginStdDev = computeMarginStdDev(revenueSeries, ebitdaSeries)
	}

	if haveRevenue && haveCapex {
		m.CapexPctSales = computeCapexPctSales(capexSeries, revenueSeries)
	}

	netDebt := snapshot.TotalDebt.Or(0) - snapshot.TotalCash.Or(0)
	m.NetDebtEBITDA = domain.NewFigure(netDebt / ltm.Value)

	if snapshot.EnterpriseValue.Defined {
		m.EVEBITDA = domain.NewFigure(snapshot.EnterpriseValue.Value / ltm.Value)
	}

	return m, true
}

// computeRevenueCAGR tries each window longest-first. A window needs
// strictly more observations than its year count, plus a positive
// starting value; a window that fails either check falls through to the
// next shorter one.
func computeRevenueCAGR(revenue domain.FactSeries) domain.Figure {
	end, _ := revenue.Latest()
	for _, years := range cagrWindows {
		if revenue.Len() <= years {
			continue
		}
		start, _ := revenue.Back(years)
		if start > 0 {
			return domain.NewFigure(computeCAGR(end, start, years))
		}
	}
	return domain.Figure{}
}

// computeMarginStdDev measures EBITDA margin stability over the years
// both series cover. Zero-revenue years are excluded rather than allowed
// to produce infinite margins. Undefined with fewer than two usable
// margin points.
func computeMarginStdDev(revenue, ebitda domain.FactSeries) domain.Figure {
	revValues, ebitdaValues := alignInner(revenue, ebitda)

	margins := make([]float64, 0, len(revValues))
	for i := range revValues {
		if revValues[i] == 0 {
			continue
		}
		margins = append(margins, ebitdaValues[i]/revValues[i])
	}
	if len(margins) < 2 {
		return domain.Figure{}
	}
	return domain.NewFigure(computeStddev(margins, computeMean(margins)))
}

// computeCapexPctSales tries each window longest-first. Capex is summed
// in absolute terms since cash flow statements report it as an outflow;
// a window whose revenue sum is not positive falls through to the next.
func computeCapexPctSales(capex, revenue domain.FactSeries) domain.Figure {
	for _, years := range capexWindows {
		if capex.Len() < years || revenue.Len() < years {
			continue
		}
		capexSum, _ := capex.SumNewest(years)
		revenueSum, _ := revenue.SumNewest(years)
		if revenueSum > 0 {
			if capexSum < 0 {
				capexSum = -capexSum
			}
			return domain.NewFigure(capexSum / revenueSum)
		}
	}
	return domain.Figure{}
}
