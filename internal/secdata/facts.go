package secdata

import (
	"fmt"
	"sort"
	"time"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
)

// companyFactsDocument is the raw EDGAR company facts payload.
type companyFactsDocument struct {
	CIK        int                                `json:"cik"`
	EntityName string                             `json:"entityName"`
	Facts      map[string]map[string]conceptFacts `json:"facts"`
}

type conceptFacts struct {
	Label string                 `json:"label"`
	Units map[string][]factEntry `json:"units"`
}

type factEntry struct {
	Start string  `json:"start"`
	End   string  `json:"end"`
	Val   float64 `json:"val"`
	FY    int     `json:"fy"`
	FP    string  `json:"fp"`
	Form  string  `json:"form"`
	Filed string  `json:"filed"`
}

// Statement membership. Each statement keeps the concepts downstream
// metric derivation reads, plus the standard headline lines.
var (
	incomeConcepts = []string{
		"Revenues",
		"RevenueFromContractWithCustomerExcludingAssessedTax",
		"TotalRevenues",
		"SalesRevenueNet",
		"CostOfRevenue",
		"GrossProfit",
		"OperatingIncomeLoss",
		"NetIncomeLoss",
	}
	balanceConcepts = []string{
		"Assets",
		"Liabilities",
		"StockholdersEquity",
		"CashAndCashEquivalentsAtCarryingValue",
		"LongTermDebtNoncurrent",
		"DebtCurrent",
	}
	cashflowConcepts = []string{
		"NetCashProvidedByUsedInOperatingActivities",
		"DepreciationAndAmortization",
		"DepreciationDepletionAndAmortization",
		"CapitalExpenditures",
		"PurchaseOfPropertyAndEquipmentNet",
		"PaymentsToAcquirePropertyPlantAndEquipment",
	}
)

// assembleStatements filters us-gaap facts to annual 10-K observations
// and groups them into the three statements. A company missing any of
// the three is reported unavailable, matching the completeness rule the
// metric derivation depends on.
func assembleStatements(ticker, cik string, facts map[string]conceptFacts) (*domain.CompanyStatements, error) {
	if len(facts) == 0 {
		return nil, fmt.Errorf("no us-gaap facts for %s: %w", ticker, ErrUnavailable)
	}

	income := buildStatement(domain.StatementIncome, incomeConcepts, facts)
	balance := buildStatement(domain.StatementBalance, balanceConcepts, facts)
	cashflow := buildStatement(domain.StatementCashFlow, cashflowConcepts, facts)

	if len(income.Series) == 0 || len(balance.Series) == 0 || len(cashflow.Series) == 0 {
		return nil, fmt.Errorf("incomplete statement set for %s: %w", ticker, ErrUnavailable)
	}

	return &domain.CompanyStatements{
		Ticker:   ticker,
		CIK:      cik,
		Income:   income,
		Balance:  balance,
		CashFlow: cashflow,
	}, nil
}

func buildStatement(kind domain.StatementKind, concepts []string, facts map[string]conceptFacts) domain.FinancialStatement {
	series := make(map[string]domain.FactSeries)
	for _, tag := range concepts {
		if s, ok := annualSeries(tag, facts); ok {
			series[tag] = s
		}
	}
	return domain.FinancialStatement{Kind: kind, Series: series}
}

// annualSeries collapses a concept's USD facts into one observation per
// fiscal year end, latest filing winning, ordered newest first. A 10-K
// restates the two prior years, so each year end typically appears in
// several filings.
func annualSeries(tag string, facts map[string]conceptFacts) (domain.FactSeries, bool) {
	concept, ok := facts[tag]
	if !ok {
		return domain.FactSeries{}, false
	}
	entries := concept.Units["USD"]
	if len(entries) == 0 {
		return domain.FactSeries{}, false
	}

	type pick struct {
		value float64
		filed string
	}
	byEnd := make(map[string]pick)
	for _, e := range entries {
		if !isAnnualTenK(e) {
			continue
		}
		if prev, seen := byEnd[e.End]; !seen || e.Filed > prev.filed {
			byEnd[e.End] = pick{value: e.Val, filed: e.Filed}
		}
	}
	if len(byEnd) == 0 {
		return domain.FactSeries{}, false
	}

	ends := make([]string, 0, len(byEnd))
	for end := range byEnd {
		ends = append(ends, end)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ends)))

	points := make([]domain.FactPoint, 0, len(ends))
	for _, end := range ends {
		points = append(points, domain.FactPoint{FiscalYearEnd: end, Value: byEnd[end].value})
	}
	return domain.FactSeries{Concept: tag, Points: points}, true
}

// isAnnualTenK keeps full fiscal year observations from 10-K filings.
// Duration facts must span roughly a year; instant facts carry no start
// date and pass on form and period alone.
func isAnnualTenK(e factEntry) bool {
	if e.Form != "10-K" && e.Form != "10-K/A" {
		return false
	}
	if e.FP != "FY" {
		return false
	}
	if e.Start == "" {
		return true
	}
	start, err := time.Parse("2006-01-02", e.Start)
	if err != nil {
		return false
	}
	end, err := time.Parse("2006-01-02", e.End)
	if err != nil {
		return false
	}
	span := end.Sub(start)
	return span >= 300*24*time.Hour && span <= 400*24*time.Hour
}
