package domain

// CriterionResult records one screening criterion evaluation.
type CriterionResult struct {
	Name      string // criterion identifier, stable across runs
	Threshold string // human-readable bound
	Actual    string // human-readable observed value, "n/a" when undefined
	Pass      bool
}

// ScreenResult is the full screening outcome for one company in one run.
// Corresponds to screen_results table in PostgreSQL; per-criterion rows
// are additionally retained in ClickHouse as CriterionOutcome.
type ScreenResult struct {
	ResultID    string // PRIMARY KEY, deterministic hash of (run_id, ticker)
	RunID       string
	Ticker      string
	Passed      bool
	RejectedBy  string            // first failing criterion name, empty when passed
	Criteria    []CriterionResult // ordered, one row per criterion
	EvaluatedAt int64             // Unix timestamp in milliseconds
}

// Outcomes converts the result into per-criterion rows for analytics
// storage.
func (r *ScreenResult) Outcomes() []*CriterionOutcome {
	outcomes := make([]*CriterionOutcome, 0, len(r.Criteria))
	for _, c := range r.Criteria {
		outcomes = append(outcomes, &CriterionOutcome{
			RunID:       r.RunID,
			Ticker:      r.Ticker,
			Criterion:   c.Name,
			Threshold:   c.Threshold,
			Actual:      c.Actual,
			Pass:        c.Pass,
			EvaluatedAt: r.EvaluatedAt,
		})
	}
	return outcomes
}

// CriterionOutcome is one per-criterion screening observation retained for
// cross-run analytics. Corresponds to criterion_outcomes table in ClickHouse.
type CriterionOutcome struct {
	RunID       string
	Ticker      string
	Criterion   string
	Threshold   string
	Actual      string
	Pass        bool
	EvaluatedAt int64 // Unix timestamp in milliseconds
}
