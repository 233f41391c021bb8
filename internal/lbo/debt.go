package lbo

import "github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"

// Sweep amortizes startingDebt against the unlevered free cash flow
// sequence, carrying the balance period to period:
//
//	interest = balance * rate
//	paydown  = min(balance, max(0, fcf - interest))
//
// Paydown never goes negative and never exceeds the outstanding balance,
// so the balance never increases: a period whose cash flow cannot cover
// interest leaves the balance unchanged, with the shortfall absorbed
// rather than capitalized into principal. A balance that reaches zero
// stays at zero for the remaining periods.
func Sweep(startingDebt float64, fcf []float64, rate float64) domain.DebtSchedule {
	periods := make([]domain.DebtPeriod, 0, len(fcf))

	balance := startingDebt
	for i, cash := range fcf {
		interest := balance * rate
		available := cash - interest

		paydown := available
		if paydown < 0 {
			paydown = 0
		}
		if paydown > balance {
			paydown = balance
		}
		balance -= paydown

		periods = append(periods, domain.DebtPeriod{
			Period:        i + 1,
			Interest:      interest,
			Paydown:       paydown,
			EndingBalance: balance,
		})
	}

	return domain.DebtSchedule{
		StartingDebt: startingDebt,
		Periods:      periods,
	}
}
