package reporting

import (
	"time"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
)

// Report is the assembled output of one screening run.
type Report struct {
	GeneratedAt time.Time
	Run         RunSummary

	// Criteria summarizes each screening criterion across the run, in
	// evaluation order.
	Criteria []CriterionSummaryRow

	// Shortlist holds the surviving candidates joined with their
	// base-case returns, sorted by IRR descending.
	Shortlist []ShortlistRow

	// Rejections names the first criterion that eliminated each
	// rejected company, in ticker order.
	Rejections []RejectionRow

	// ScreenResults holds every criterion evaluation for every screened
	// company, pass and fail alike, in ticker then evaluation order.
	ScreenResults []ScreenResultRow

	// TearSheets carries the per-candidate memo blocks, in shortlist
	// order.
	TearSheets []TearSheet
}

// RunSummary carries run-level metadata and funnel counts.
type RunSummary struct {
	RunID        string
	Status       string
	UniverseSize int
	Fetched      int
	Passed       int
	Modeled      int
	StartedAt    int64 // Unix ms
	FinishedAt   int64 // Unix ms
}

// CriterionSummaryRow aggregates one criterion across every evaluated
// company in the run.
type CriterionSummaryRow struct {
	Name      string
	Threshold string
	PassRate  float64 // fraction of evaluated companies that cleared it
}

// ShortlistRow is one surviving candidate with its entry profile and
// base-case returns.
type ShortlistRow struct {
	Ticker        string
	CompanyName   string
	Sector        string
	EVEBITDA      domain.Figure
	NetDebtEBITDA domain.Figure
	RevenueCAGR   domain.Figure
	IRR           float64
	MOIC          float64
}

// RejectionRow names the criterion that eliminated a company, with the
// observed value that missed the bound.
type RejectionRow struct {
	Ticker     string
	RejectedBy string
	Threshold  string
	Actual     string
}

// ScreenResultRow is one criterion evaluation for one company.
type ScreenResultRow struct {
	Ticker    string
	Passed    bool // the company's overall outcome
	Criterion string
	Threshold string
	Actual    string
	Pass      bool // this criterion's outcome
}

// TearSheet is the per-candidate memo block: entry profile, base-case
// returns, the full criterion breakdown, and the returns grid.
type TearSheet struct {
	Ticker   string
	Metrics  domain.FundamentalMetrics
	Returns  domain.ReturnsResult
	Criteria []domain.CriterionResult
	Grid     *SensitivityGrid // nil when no grid cells were stored
}

// SensitivityGrid reshapes stored cells back into the entry x exit table.
// Rows follow EntryMultiples, columns follow ExitMultiples, both ascending.
type SensitivityGrid struct {
	EntryMultiples []float64
	ExitMultiples  []float64
	Cells          [][]domain.SensitivityCell
}
