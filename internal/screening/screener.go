// Package screening applies the LBO candidate criteria to company
// profiles. Evaluation order is fixed and every criterion is evaluated
// for every company, so a result always carries the full six-row
// breakdown even when an early criterion already failed it.
package screening

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/idhash"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/observability"
)

// Screener evaluates company profiles against screening criteria.
type Screener struct {
	criteria domain.ScreeningCriteria
	logger   logrus.FieldLogger
	metrics  *observability.Metrics
	clock    func() time.Time
}

// NewScreener creates a screener with the given criteria.
func NewScreener(criteria domain.ScreeningCriteria, logger logrus.FieldLogger) *Screener {
	return &Screener{
		criteria: criteria,
		logger:   logger,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// WithMetrics wires Prometheus recording.
func (s *Screener) WithMetrics(m *observability.Metrics) *Screener {
	s.metrics = m
	return s
}

// WithClock sets a custom clock function for deterministic output.
func (s *Screener) WithClock(clock func() time.Time) *Screener {
	s.clock = clock
	return s
}

// Evaluate applies the six criteria in fixed order and returns one row
// per criterion. An undefined metric fails its criterion: a company whose
// filings cannot support a metric is not given the benefit of the doubt.
func (s *Screener) Evaluate(profile domain.FundamentalMetrics) []domain.CriterionResult {
	c := s.criteria
	results := make([]domain.CriterionResult, 6)

	// 1. Minimum LTM EBITDA (size and maturity floor)
	results[0] = domain.CriterionResult{
		Name:      domain.CriterionMinEBITDA,
		Threshold: fmt.Sprintf(">= $%.1fM", c.MinLTMEBITDA/1e6),
		Actual:    formatMoney(profile.LTMEBITDA),
		Pass:      profile.LTMEBITDA.Defined && profile.LTMEBITDA.Value >= c.MinLTMEBITDA,
	}

	// 2. Maximum EV/EBITDA (entry valuation ceiling)
	results[1] = domain.CriterionResult{
		Name:      domain.CriterionMaxEVEBITDA,
		Threshold: fmt.Sprintf("<= %.2fx", c.MaxEVEBITDA),
		Actual:    formatMultiple(profile.EVEBITDA),
		Pass:      profile.EVEBITDA.Defined && profile.EVEBITDA.Value <= c.MaxEVEBITDA,
	}

	// 3. Maximum net debt/EBITDA (existing leverage ceiling)
	results[2] = domain.CriterionResult{
		Name:      domain.CriterionMaxNetDebt,
		Threshold: fmt.Sprintf("<= %.2fx", c.MaxNetDebtEBITDA),
		Actual:    formatMultiple(profile.NetDebtEBITDA),
		Pass:      profile.NetDebtEBITDA.Defined && profile.NetDebtEBITDA.Value <= c.MaxNetDebtEBITDA,
	}

	// 4. Minimum revenue CAGR (growth floor)
	results[3] = domain.CriterionResult{
		Name:      domain.CriterionMinCAGR,
		Threshold: fmt.Sprintf(">= %.1f%%", c.MinRevenueCAGR*100),
		Actual:    formatPercent(profile.RevenueCAGR),
		Pass:      profile.RevenueCAGR.Defined && profile.RevenueCAGR.Value >= c.MinRevenueCAGR,
	}

	// 5. Maximum EBITDA margin stddev (stability ceiling)
	results[4] = domain.CriterionResult{
		Name:      domain.CriterionMaxMarginStdDev,
		Threshold: fmt.Sprintf("<= %.4f", c.MaxMarginStdDev),
		Actual:    formatRatio(profile.EBITDAMarginStdDev),
		Pass:      profile.EBITDAMarginStdDev.Defined && profile.EBITDAMarginStdDev.Value <= c.MaxMarginStdDev,
	}

	// 6. Maximum capex as % of sales (capital intensity ceiling)
	results[5] = domain.CriterionResult{
		Name:      domain.CriterionMaxCapex,
		Threshold: fmt.Sprintf("<= %.1f%%", c.MaxCapexPctSales*100),
		Actual:    formatPercent(profile.CapexPctSales),
		Pass:      profile.CapexPctSales.Defined && profile.CapexPctSales.Value <= c.MaxCapexPctSales,
	}

	return results
}

// Screen evaluates every profile for one run, in input order. Each result
// carries the full criterion breakdown; RejectedBy names the first failing
// criterion for rejected companies. Logs the surviving count per criterion
// across the batch.
func (s *Screener) Screen(runID string, profiles []domain.FundamentalMetrics) []*domain.ScreenResult {
	now := s.clock().UnixMilli()
	results := make([]*domain.ScreenResult, 0, len(profiles))

	// Survivors per criterion index, counting companies that passed every
	// criterion up to and including that one.
	survivors := make([]int, 6)

	for _, profile := range profiles {
		criteria := s.Evaluate(profile)

		passed := true
		rejectedBy := ""
		for i, cr := range criteria {
			if !cr.Pass {
				if passed {
					rejectedBy = cr.Name
				}
				passed = false
			}
			if passed {
				survivors[i]++
			}
		}

		results = append(results, &domain.ScreenResult{
			ResultID:    idhash.ResultID(runID, profile.Ticker),
			RunID:       runID,
			Ticker:      profile.Ticker,
			Passed:      passed,
			RejectedBy:  rejectedBy,
			Criteria:    criteria,
			EvaluatedAt: now,
		})

		s.metrics.RecordScreened(passed, rejectedBy)
	}

	if s.logger != nil && len(profiles) > 0 {
		in := len(profiles)
		names := []string{
			domain.CriterionMinEBITDA,
			domain.CriterionMaxEVEBITDA,
			domain.CriterionMaxNetDebt,
			domain.CriterionMinCAGR,
			domain.CriterionMaxMarginStdDev,
			domain.CriterionMaxCapex,
		}
		for i, name := range names {
			s.logger.WithFields(logrus.Fields{
				"run_id":    runID,
				"criterion": name,
				"in":        in,
				"out":       survivors[i],
			}).Info("Screening criterion applied")
			in = survivors[i]
		}
		s.logger.WithFields(logrus.Fields{
			"run_id":    runID,
			"evaluated": len(profiles),
			"passed":    survivors[5],
		}).Info("Screen complete")
	}

	return results
}

// Criteria returns the criteria this screener applies.
func (s *Screener) Criteria() domain.ScreeningCriteria {
	return s.criteria
}

func formatMoney(f domain.Figure) string {
	if !f.Defined {
		return "n/a"
	}
	return fmt.Sprintf("$%.1fM", f.Value/1e6)
}

func formatMultiple(f domain.Figure) string {
	if !f.Defined {
		return "n/a"
	}
	return fmt.Sprintf("%.2fx", f.Value)
}

func formatPercent(f domain.Figure) string {
	if !f.Defined {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", f.Value*100)
}

func formatRatio(f domain.Figure) string {
	if !f.Defined {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", f.Value)
}
