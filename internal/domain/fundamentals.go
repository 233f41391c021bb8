package domain

// FundamentalMetrics is the per-company profile consumed by the screener
// and the LBO model. Metric fields may be undefined when the underlying
// filings lack the concepts needed to derive them; undefined values
// propagate as absent results downstream, never as faults. Immutable for
// the duration of a model run; owned by the caller, borrowed by the model.
type FundamentalMetrics struct {
	Ticker             string
	CompanyName        string
	Sector             string
	LTMEBITDA          Figure // USD, last twelve months
	EVEBITDA           Figure // enterprise value / LTM EBITDA
	NetDebtEBITDA      Figure // (total debt - total cash) / LTM EBITDA
	RevenueCAGR        Figure // fraction per year
	EBITDAMarginStdDev Figure // sample stddev of annual EBITDA margins
	CapexPctSales      Figure // |capex| / revenue over trailing window
}

// FundamentalSnapshot is a persisted FundamentalMetrics observation.
// Corresponds to fundamental_snapshots table in PostgreSQL.
type FundamentalSnapshot struct {
	SnapshotID string // PRIMARY KEY, deterministic hash of (ticker, as_of)
	RunID      string // screening run that captured it
	AsOf       string // observation date, YYYY-MM-DD
	Metrics    FundamentalMetrics
	CreatedAt  int64 // Unix timestamp in milliseconds
}
