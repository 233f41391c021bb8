package domain

import "fmt"

// ScreeningCriteria define what qualifies a company as an LBO candidate.
// A company must clear every criterion; an undefined metric fails its
// criterion outright.
type ScreeningCriteria struct {
	MinLTMEBITDA     float64 // USD floor on size and maturity
	MaxEVEBITDA      float64 // entry valuation ceiling
	MaxNetDebtEBITDA float64 // existing leverage ceiling
	MinRevenueCAGR   float64 // growth floor, fraction per year
	MaxMarginStdDev  float64 // EBITDA margin stability ceiling
	MaxCapexPctSales float64 // capital intensity ceiling
}

// DefaultCriteria is the standard screen.
var DefaultCriteria = ScreeningCriteria{
	MinLTMEBITDA:     50_000_000,
	MaxEVEBITDA:      12.0,
	MaxNetDebtEBITDA: 2.0,
	MinRevenueCAGR:   0.03,
	MaxMarginStdDev:  0.15,
	MaxCapexPctSales: 0.05,
}

// Validate checks the criteria bounds.
func (c ScreeningCriteria) Validate() error {
	if c.MinLTMEBITDA < 0 {
		return fmt.Errorf("min LTM EBITDA must be >= 0, got %g", c.MinLTMEBITDA)
	}
	if c.MaxEVEBITDA <= 0 {
		return fmt.Errorf("max EV/EBITDA must be > 0, got %g", c.MaxEVEBITDA)
	}
	if c.MaxNetDebtEBITDA < 0 {
		return fmt.Errorf("max net debt/EBITDA must be >= 0, got %g", c.MaxNetDebtEBITDA)
	}
	if c.MaxMarginStdDev < 0 {
		return fmt.Errorf("max margin stddev must be >= 0, got %g", c.MaxMarginStdDev)
	}
	if c.MaxCapexPctSales < 0 {
		return fmt.Errorf("max capex %% of sales must be >= 0, got %g", c.MaxCapexPctSales)
	}
	return nil
}

// Criterion names, stable across runs and used as storage/metric labels.
const (
	CriterionMinEBITDA       = "min_ltm_ebitda"
	CriterionMaxEVEBITDA     = "max_ev_ebitda"
	CriterionMaxNetDebt      = "max_net_debt_ebitda"
	CriterionMinCAGR         = "min_revenue_cagr"
	CriterionMaxMarginStdDev = "max_margin_stddev"
	CriterionMaxCapex        = "max_capex_pct_sales"
)
