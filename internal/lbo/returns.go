package lbo

import (
	"math"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
)

// ComputeReturns prices the transaction at entry, sweeps the acquisition
// debt over the projection, and values the exit.
//
// Steps:
//  1. Entry multiple = override when defined, else the profile's EV/EBITDA.
//  2. Absent when LTM EBITDA or the entry multiple is undefined.
//  3. Entry EV = LTM EBITDA * entry multiple; entry debt = LTM EBITDA *
//     leverage multiple; entry equity = entry EV - entry debt.
//  4. Absent when entry equity <= 0: the transaction is infeasible at this
//     leverage and multiple.
//  5. Exit EBITDA = final projected EBITDA; exit multiple = override when
//     defined, else entry multiple + exit premium.
//  6. Exit EV = exit EBITDA * exit multiple; exit equity = exit EV - final
//     debt balance.
//  7. MOIC = exit equity / entry equity.
//  8. IRR = MOIC^(1/horizon) - 1 when MOIC > 0, else the -1.0 total-loss
//     sentinel. This is a closed-form annualization of MOIC, not a
//     root-finding IRR; an intentional simplification.
//
// Absence is the normal skip signal for batch callers, never an error.
func ComputeReturns(profile domain.FundamentalMetrics, a domain.Assumptions, proj domain.Projection, entryOverride, exitOverride domain.Figure) (domain.ReturnsResult, bool) {
	entryMultiple := profile.EVEBITDA
	if entryOverride.Defined {
		entryMultiple = entryOverride
	}
	if !profile.LTMEBITDA.Defined || !entryMultiple.Defined {
		return domain.ReturnsResult{}, false
	}

	ltm := profile.LTMEBITDA.Value
	entryEV := ltm * entryMultiple.Value
	entryDebt := ltm * a.LeverageMultiple
	entryEquity := entryEV - entryDebt
	if entryEquity <= 0 {
		return domain.ReturnsResult{}, false
	}

	schedule := Sweep(entryDebt, proj.FCF(), a.InterestRate)

	exitMultiple := entryMultiple.Value + a.ExitPremium
	if exitOverride.Defined {
		exitMultiple = exitOverride.Value
	}
	exitEV := proj.ExitEBITDA() * exitMultiple
	exitEquity := exitEV - schedule.FinalBalance()

	moic := exitEquity / entryEquity
	irr := -1.0
	if moic > 0 {
		irr = math.Pow(moic, 1/float64(a.HorizonYears)) - 1
	}

	return domain.ReturnsResult{
		Ticker:        profile.Ticker,
		EntryMultiple: entryMultiple.Value,
		ExitMultiple:  exitMultiple,
		EntryEV:       entryEV,
		EntryDebt:     entryDebt,
		EntryEquity:   entryEquity,
		ExitEV:        exitEV,
		ExitEquity:    exitEquity,
		MOIC:          moic,
		IRR:           irr,
	}, true
}
