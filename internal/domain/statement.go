package domain

// StatementKind distinguishes the three financial statements assembled
// from a company's annual filings.
type StatementKind string

const (
	StatementIncome   StatementKind = "income"
	StatementBalance  StatementKind = "balance"
	StatementCashFlow StatementKind = "cashflow"
)

// FactPoint is one annual observation of a reporting concept.
type FactPoint struct {
	FiscalYearEnd string // period end date, YYYY-MM-DD
	Value         float64
}

// FactSeries is the annual history of one us-gaap concept, newest first.
type FactSeries struct {
	Concept string
	Points  []FactPoint
}

// Len returns the number of annual observations.
func (s FactSeries) Len() int {
	return len(s.Points)
}

// Latest returns the most recent observation.
func (s FactSeries) Latest() (float64, bool) {
	if len(s.Points) == 0 {
		return 0, false
	}
	return s.Points[0].Value, true
}

// Back returns the observation n periods before the latest.
func (s FactSeries) Back(n int) (float64, bool) {
	if n < 0 || n >= len(s.Points) {
		return 0, false
	}
	return s.Points[n].Value, true
}

// SumNewest sums the n most recent observations.
func (s FactSeries) SumNewest(n int) (float64, bool) {
	if n <= 0 || n > len(s.Points) {
		return 0, false
	}
	var sum float64
	for _, p := range s.Points[:n] {
		sum += p.Value
	}
	return sum, true
}

// FinancialStatement is a set of concept series belonging to one statement.
type FinancialStatement struct {
	Kind   StatementKind
	Series map[string]FactSeries // keyed by us-gaap concept tag
}

// Get returns the series for a concept tag when present and non-empty.
func (s FinancialStatement) Get(tag string) (FactSeries, bool) {
	series, ok := s.Series[tag]
	if !ok || series.Len() == 0 {
		return FactSeries{}, false
	}
	return series, true
}

// CompanyStatements groups the three statements parsed from a company's
// annual filings. The connector rejects a company when any of the three
// comes back empty, so all statements here carry data.
type CompanyStatements struct {
	Ticker   string
	CIK      string
	Income   FinancialStatement
	Balance  FinancialStatement
	CashFlow FinancialStatement
}
