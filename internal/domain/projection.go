package domain

// ProjectionPeriod is one annual period of projected operating cash flow.
type ProjectionPeriod struct {
	Period       int // 1-indexed year
	EBITDA       float64
	DandA        float64 // depreciation & amortization, fixed 15% of EBITDA
	EBIT         float64
	Taxes        float64
	NOPAT        float64
	NWCChange    float64 // change in net working capital
	Capex        float64
	UnleveredFCF float64
}

// Projection is the per-period cash flow forecast for one candidate.
// Length equals the assumption horizon. EBITDA follows base*(1+g)^i with
// no floor; strongly negative growth drives it toward zero but never clamps.
type Projection struct {
	BaseEBITDA float64
	Growth     float64
	CapexRatio float64
	TaxRate    float64
	Periods    []ProjectionPeriod
}

// Horizon returns the number of projected periods.
func (p Projection) Horizon() int {
	return len(p.Periods)
}

// ExitEBITDA returns the final period's EBITDA.
func (p Projection) ExitEBITDA() float64 {
	if len(p.Periods) == 0 {
		return 0
	}
	return p.Periods[len(p.Periods)-1].EBITDA
}

// FCF returns the unlevered free cash flow sequence.
func (p Projection) FCF() []float64 {
	out := make([]float64, len(p.Periods))
	for i, period := range p.Periods {
		out[i] = period.UnleveredFCF
	}
	return out
}

// DebtPeriod is one annual period of the acquisition debt schedule.
type DebtPeriod struct {
	Period        int // 1-indexed year
	Interest      float64
	Paydown       float64
	EndingBalance float64
}

// DebtSchedule tracks the cash-sweep amortization of acquisition debt.
// Ending balances never go negative and never grow: a cash shortfall
// leaves the balance unchanged that period rather than capitalizing
// unpaid interest.
type DebtSchedule struct {
	StartingDebt float64
	Periods      []DebtPeriod
}

// FinalBalance returns the balance after the last period, or the starting
// debt when the schedule is empty.
func (d DebtSchedule) FinalBalance() float64 {
	if len(d.Periods) == 0 {
		return d.StartingDebt
	}
	return d.Periods[len(d.Periods)-1].EndingBalance
}
