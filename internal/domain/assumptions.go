package domain

import "fmt"

// Assumptions are the global model parameters shared read-only by every
// candidate in a screening run. The model is a single-tranche, single-rate
// simplified LBO: one debt facility, one blended rate, a flat tax rate.
type Assumptions struct {
	HorizonYears     int     // projection horizon in annual periods, >= 1
	LeverageMultiple float64 // entry debt as a multiple of LTM EBITDA, >= 0
	ExitPremium      float64 // added to the entry multiple at exit, may be 0
	InterestRate     float64 // annual rate on acquisition debt, >= 0
	TaxRate          float64 // flat corporate rate applied to EBIT, in [0, 1]
}

// DefaultAssumptions is the base underwriting case.
var DefaultAssumptions = Assumptions{
	HorizonYears:     5,
	LeverageMultiple: 6.0,
	ExitPremium:      0.0,
	InterestRate:     0.07,
	TaxRate:          0.25,
}

// Validate checks the assumption bounds.
func (a Assumptions) Validate() error {
	if a.HorizonYears < 1 {
		return fmt.Errorf("horizon years must be >= 1, got %d", a.HorizonYears)
	}
	if a.LeverageMultiple < 0 {
		return fmt.Errorf("leverage multiple must be >= 0, got %g", a.LeverageMultiple)
	}
	if a.InterestRate < 0 {
		return fmt.Errorf("interest rate must be >= 0, got %g", a.InterestRate)
	}
	if a.TaxRate < 0 || a.TaxRate > 1 {
		return fmt.Errorf("tax rate must be in [0, 1], got %g", a.TaxRate)
	}
	return nil
}
