package metrics

import (
	"testing"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
)

func snapshot() *domain.MarketSnapshot {
	return &domain.MarketSnapshot{
		Ticker:          "ACME",
		CompanyName:     "Acme Industrial Corp",
		Sector:          "Industrials",
		MarketCap:       domain.NewFigure(3000),
		EnterpriseValue: domain.NewFigure(3200),
		TotalDebt:       domain.NewFigure(400),
		TotalCash:       domain.NewFigure(100),
		EBITDA:          domain.NewFigure(240),
	}
}

func statements(income, cashflow map[string]domain.FactSeries) *domain.CompanyStatements {
	return &domain.CompanyStatements{
		Ticker:   "ACME",
		CIK:      "0000123456",
		Income:   domain.FinancialStatement{Kind: domain.StatementIncome, Series: income},
		Balance:  domain.FinancialStatement{Kind: domain.StatementBalance, Series: map[string]domain.FactSeries{}},
		CashFlow: domain.FinancialStatement{Kind: domain.StatementCashFlow, Series: cashflow},
	}
}

func fullStatements() *domain.CompanyStatements {
	return statements(
		map[string]domain.FactSeries{
			// Revenue grows exactly 10% per year.
			"Revenues": series("Revenues",
				pt("2025-12-31", 1464.1),
				pt("2024-12-31", 1331),
				pt("2023-12-31", 1210),
				pt("2022-12-31", 1100),
				pt("2021-12-31", 1000),
			),
			"OperatingIncomeLoss": series("OperatingIncomeLoss",
				pt("2025-12-31", 200),
				pt("2024-12-31", 190),
				pt("2023-12-31", 180),
				pt("2022-12-31", 170),
				pt("2021-12-31", 160),
			),
		},
		map[string]domain.FactSeries{
			"DepreciationAndAmortization": series("DepreciationAndAmortization",
				pt("2025-12-31", 50),
				pt("2024-12-31", 48),
				pt("2023-12-31", 46),
				pt("2022-12-31", 44),
				pt("2021-12-31", 42),
			),
			"CapitalExpenditures": series("CapitalExpenditures",
				pt("2025-12-31", -40),
				pt("2024-12-31", -38),
				pt("2023-12-31", -36),
			),
		},
	)
}

func TestCompute_FullHistory(t *testing.T) {
	calc := NewCalculator()

	m, ok := calc.Compute(snapshot(), fullStatements())
	if !ok {
		t.Fatal("expected a profile")
	}

	if m.Ticker != "ACME" || m.CompanyName != "Acme Industrial Corp" || m.Sector != "Industrials" {
		t.Errorf("identity fields not propagated: %+v", m)
	}

	// Filing-derived EBITDA (200+50) beats the provider's 240.
	if !m.LTMEBITDA.Defined || !almostEqual(m.LTMEBITDA.Value, 250) {
		t.Errorf("expected LTM EBITDA 250 from filings, got %+v", m.LTMEBITDA)
	}

	// Five revenue points allow the 4-year window: (1464.1/1000)^(1/4)-1.
	if !m.RevenueCAGR.Defined || !almostEqual(m.RevenueCAGR.Value, 0.1) {
		t.Errorf("expected revenue CAGR 0.10, got %+v", m.RevenueCAGR)
	}

	if !m.EBITDAMarginStdDev.Defined {
		t.Error("expected a defined margin stddev with five shared years")
	}

	// Three capex points allow the 3-year window: (40+38+36)/(1464.1+1331+1210).
	if !m.CapexPctSales.Defined || !almostEqual(m.CapexPctSales.Value, 114.0/4005.1) {
		t.Errorf("expected capex %% of sales %.9f, got %+v", 114.0/4005.1, m.CapexPctSales)
	}

	if !m.NetDebtEBITDA.Defined || !almostEqual(m.NetDebtEBITDA.Value, (400.0-100.0)/250) {
		t.Errorf("expected net debt/EBITDA 1.2, got %+v", m.NetDebtEBITDA)
	}
	if !m.EVEBITDA.Defined || !almostEqual(m.EVEBITDA.Value, 3200.0/250) {
		t.Errorf("expected EV/EBITDA 12.8, got %+v", m.EVEBITDA)
	}
}

func TestCompute_LTMFallsBackToProviderEBITDA(t *testing.T) {
	calc := NewCalculator()

	// No D&A series, so no filing EBITDA can be assembled.
	stmts := statements(
		map[string]domain.FactSeries{
			"OperatingIncomeLoss": series("OperatingIncomeLoss", pt("2025-12-31", 200)),
		},
		map[string]domain.FactSeries{},
	)

	m, ok := calc.Compute(snapshot(), stmts)
	if !ok {
		t.Fatal("expected a profile")
	}
	if !almostEqual(m.LTMEBITDA.Value, 240) {
		t.Errorf("expected provider EBITDA 240, got %+v", m.LTMEBITDA)
	}
}

func TestCompute_AbsentWithoutUsableEBITDA(t *testing.T) {
	calc := NewCalculator()

	t.Run("no series and no provider figure", func(t *testing.T) {
		snap := snapshot()
		snap.EBITDA = domain.Figure{}
		if _, ok := calc.Compute(snap, nil); ok {
			t.Error("expected absent profile")
		}
	})

	t.Run("provider EBITDA non-positive", func(t *testing.T) {
		snap := snapshot()
		snap.EBITDA = domain.NewFigure(-10)
		if _, ok := calc.Compute(snap, nil); ok {
			t.Error("expected absent profile")
		}
	})

	t.Run("filing EBITDA non-positive does not fall back", func(t *testing.T) {
		// The series exists, so its non-positive latest value wins over
		// the healthy provider figure and rejects the company.
		stmts := statements(
			map[string]domain.FactSeries{
				"OperatingIncomeLoss": series("OperatingIncomeLoss", pt("2025-12-31", -60)),
			},
			map[string]domain.FactSeries{
				"DepreciationAndAmortization": series("DepreciationAndAmortization", pt("2025-12-31", 50)),
			},
		)
		if _, ok := calc.Compute(snapshot(), stmts); ok {
			t.Error("expected absent profile when the filing series is non-positive")
		}
	})
}

func TestCompute_CAGRWindowFallthrough(t *testing.T) {
	calc := NewCalculator()

	revenue := func(points ...domain.FactPoint) map[string]domain.FactSeries {
		return map[string]domain.FactSeries{
			"Revenues":            series("Revenues", points...),
			"OperatingIncomeLoss": series("OperatingIncomeLoss", pt("2025-12-31", 200)),
		}
	}
	danda := map[string]domain.FactSeries{
		"DepreciationAndAmortization": series("DepreciationAndAmortization", pt("2025-12-31", 50)),
	}

	t.Run("four points use the 2-year window", func(t *testing.T) {
		m, ok := calc.Compute(snapshot(), statements(revenue(
			pt("2025-12-31", 121),
			pt("2024-12-31", 115),
			pt("2023-12-31", 100),
			pt("2022-12-31", 95),
		), danda))
		if !ok {
			t.Fatal("expected a profile")
		}
		// (121/100)^(1/2) - 1 = 0.10
		if !m.RevenueCAGR.Defined || !almostEqual(m.RevenueCAGR.Value, 0.1) {
			t.Errorf("expected 2-year CAGR 0.10, got %+v", m.RevenueCAGR)
		}
	})

	t.Run("non-positive start falls through to a shorter window", func(t *testing.T) {
		m, ok := calc.Compute(snapshot(), statements(revenue(
			pt("2025-12-31", 121),
			pt("2024-12-31", 115),
			pt("2023-12-31", 100),
			pt("2022-12-31", 95),
			pt("2021-12-31", 0), // 4 years back, unusable
		), danda))
		if !ok {
			t.Fatal("expected a profile")
		}
		if !m.RevenueCAGR.Defined || !almostEqual(m.RevenueCAGR.Value, 0.1) {
			t.Errorf("expected fallback to the 2-year window, got %+v", m.RevenueCAGR)
		}
	})

	t.Run("two points use the 1-year window", func(t *testing.T) {
		m, ok := calc.Compute(snapshot(), statements(revenue(
			pt("2025-12-31", 105),
			pt("2024-12-31", 100),
		), danda))
		if !ok {
			t.Fatal("expected a profile")
		}
		if !m.RevenueCAGR.Defined || !almostEqual(m.RevenueCAGR.Value, 0.05) {
			t.Errorf("expected 1-year CAGR 0.05, got %+v", m.RevenueCAGR)
		}
	})

	t.Run("single point stays undefined", func(t *testing.T) {
		m, ok := calc.Compute(snapshot(), statements(revenue(
			pt("2025-12-31", 105),
		), danda))
		if !ok {
			t.Fatal("expected a profile")
		}
		if m.RevenueCAGR.Defined {
			t.Errorf("expected undefined CAGR, got %+v", m.RevenueCAGR)
		}
	})

	t.Run("no usable window stays undefined", func(t *testing.T) {
		m, ok := calc.Compute(snapshot(), statements(revenue(
			pt("2025-12-31", 105),
			pt("2024-12-31", 0),
		), danda))
		if !ok {
			t.Fatal("expected a profile")
		}
		if m.RevenueCAGR.Defined {
			t.Errorf("expected undefined CAGR, got %+v", m.RevenueCAGR)
		}
	})
}

func TestCompute_MarginStdDev(t *testing.T) {
	calc := NewCalculator()

	t.Run("exact sample stddev", func(t *testing.T) {
		// Margins 0.25, 0.30, 0.35 on flat revenue: sample stddev 0.05.
		stmts := statements(
			map[string]domain.FactSeries{
				"Revenues": series("Revenues",
					pt("2025-12-31", 400),
					pt("2024-12-31", 400),
					pt("2023-12-31", 400),
				),
				"OperatingIncomeLoss": series("OperatingIncomeLoss",
					pt("2025-12-31", 130),
					pt("2024-12-31", 110),
					pt("2023-12-31", 90),
				),
			},
			map[string]domain.FactSeries{
				"DepreciationAndAmortization": series("DepreciationAndAmortization",
					pt("2025-12-31", 10),
					pt("2024-12-31", 10),
					pt("2023-12-31", 10),
				),
			},
		)

		m, ok := calc.Compute(snapshot(), stmts)
		if !ok {
			t.Fatal("expected a profile")
		}
		if !m.EBITDAMarginStdDev.Defined || !almostEqual(m.EBITDAMarginStdDev.Value, 0.05) {
			t.Errorf("expected margin stddev 0.05, got %+v", m.EBITDAMarginStdDev)
		}
	})

	t.Run("one shared year stays undefined", func(t *testing.T) {
		stmts := statements(
			map[string]domain.FactSeries{
				"Revenues": series("Revenues",
					pt("2025-12-31", 400),
					pt("2020-12-31", 300),
				),
				"OperatingIncomeLoss": series("OperatingIncomeLoss",
					pt("2025-12-31", 130),
					pt("2024-12-31", 110),
				),
			},
			map[string]domain.FactSeries{
				"DepreciationAndAmortization": series("DepreciationAndAmortization",
					pt("2025-12-31", 10),
					pt("2024-12-31", 10),
				),
			},
		)

		m, ok := calc.Compute(snapshot(), stmts)
		if !ok {
			t.Fatal("expected a profile")
		}
		if m.EBITDAMarginStdDev.Defined {
			t.Errorf("expected undefined margin stddev, got %+v", m.EBITDAMarginStdDev)
		}
	})

	t.Run("zero revenue years are excluded", func(t *testing.T) {
		stmts := statements(
			map[string]domain.FactSeries{
				"Revenues": series("Revenues",
					pt("2025-12-31", 400),
					pt("2024-12-31", 0), // would divide by zero
					pt("2023-12-31", 400),
					pt("2022-12-31", 400),
				),
				"OperatingIncomeLoss": series("OperatingIncomeLoss",
					pt("2025-12-31", 130),
					pt("2024-12-31", 120),
					pt("2023-12-31", 110),
					pt("2022-12-31", 90),
				),
			},
			map[string]domain.FactSeries{
				"DepreciationAndAmortization": series("DepreciationAndAmortization",
					pt("2025-12-31", 10),
					pt("2024-12-31", 10),
					pt("2023-12-31", 10),
					pt("2022-12-31", 10),
				),
			},
		)

		m, ok := calc.Compute(snapshot(), stmts)
		if !ok {
			t.Fatal("expected a profile")
		}
		// Margins 0.35, 0.30, 0.25 over the three usable years.
		if !m.EBITDAMarginStdDev.Defined || !almostEqual(m.EBITDAMarginStdDev.Value, 0.05) {
			t.Errorf("expected margin stddev 0.05 over usable years, got %+v", m.EBITDAMarginStdDev)
		}
	})
}

func TestCompute_CapexWindowFallthrough(t *testing.T) {
	calc := NewCalculator()

	t.Run("two points use the 2-year window", func(t *testing.T) {
		stmts := statements(
			map[string]domain.FactSeries{
				"Revenues": series("Revenues",
					pt("2025-12-31", 1000),
					pt("2024-12-31", 900),
					pt("2023-12-31", 800),
				),
				"OperatingIncomeLoss": series("OperatingIncomeLoss", pt("2025-12-31", 200)),
			},
			map[string]domain.FactSeries{
				"DepreciationAndAmortization": series("DepreciationAndAmortization", pt("2025-12-31", 50)),
				"CapitalExpenditures": series("CapitalExpenditures",
					pt("2025-12-31", -40),
					pt("2024-12-31", -36),
				),
			},
		)

		m, ok := calc.Compute(snapshot(), stmts)
		if !ok {
			t.Fatal("expected a profile")
		}
		if !m.CapexPctSales.Defined || !almostEqual(m.CapexPctSales.Value, 76.0/1900) {
			t.Errorf("expected capex ratio %.9f, got %+v", 76.0/1900, m.CapexPctSales)
		}
	})

	t.Run("non-positive revenue sum falls through", func(t *testing.T) {
		stmts := statements(
			map[string]domain.FactSeries{
				"Revenues": series("Revenues",
					pt("2025-12-31", 100),
					pt("2024-12-31", -150),
					pt("2023-12-31", 40),
				),
				"OperatingIncomeLoss": series("OperatingIncomeLoss", pt("2025-12-31", 200)),
			},
			map[string]domain.FactSeries{
				"DepreciationAndAmortization": series("DepreciationAndAmortization", pt("2025-12-31", 50)),
				"CapitalExpenditures": series("CapitalExpenditures",
					pt("2025-12-31", -30),
					pt("2024-12-31", -28),
					pt("2023-12-31", -26),
				),
			},
		)

		m, ok := calc.Compute(snapshot(), stmts)
		if !ok {
			t.Fatal("expected a profile")
		}
		// 3-year and 2-year sums are negative; the 1-year window wins.
		if !m.CapexPctSales.Defined || !almostEqual(m.CapexPctSales.Value, 0.3) {
			t.Errorf("expected capex ratio 0.30 from the 1-year window, got %+v", m.CapexPctSales)
		}
	})
}

func TestCompute_MarketOnlyDefaults(t *testing.T) {
	calc := NewCalculator()

	m, ok := calc.Compute(snapshot(), nil)
	if !ok {
		t.Fatal("expected a profile from market data alone")
	}
	if !almostEqual(m.LTMEBITDA.Value, 240) {
		t.Errorf("expected provider EBITDA, got %+v", m.LTMEBITDA)
	}
	if m.RevenueCAGR.Defined || m.EBITDAMarginStdDev.Defined || m.CapexPctSales.Defined {
		t.Errorf("expected all filing metrics undefined, got %+v", m)
	}
	if !m.NetDebtEBITDA.Defined || !almostEqual(m.NetDebtEBITDA.Value, 300.0/240) {
		t.Errorf("expected net debt/EBITDA from market fields, got %+v", m.NetDebtEBITDA)
	}
}

func TestCompute_UndefinedMarketFields(t *testing.T) {
	calc := NewCalculator()

	snap := snapshot()
	snap.EnterpriseValue = domain.Figure{}
	snap.TotalDebt = domain.Figure{}
	snap.TotalCash = domain.Figure{}

	m, ok := calc.Compute(snap, fullStatements())
	if !ok {
		t.Fatal("expected a profile")
	}
	if m.EVEBITDA.Defined {
		t.Errorf("expected undefined EV/EBITDA without enterprise value, got %+v", m.EVEBITDA)
	}
	// Missing debt and cash default to zero, not to undefined.
	if !m.NetDebtEBITDA.Defined || !almostEqual(m.NetDebtEBITDA.Value, 0) {
		t.Errorf("expected net debt/EBITDA 0, got %+v", m.NetDebtEBITDA)
	}
}
