package domain

// Run status values
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// ScreenRun records one end-to-end screening run.
// Corresponds to screen_runs table in PostgreSQL.
type ScreenRun struct {
	RunID        string // PRIMARY KEY, short base58 handle
	Status       string // running | completed | failed
	UniverseSize int
	Fetched      int   // companies with complete market + filing data
	Screened     int   // companies that passed every criterion
	Modeled      int   // companies with a defined base-case model run
	StartedAt    int64 // Unix timestamp in milliseconds
	FinishedAt   int64 // Unix timestamp in milliseconds, 0 while running
}

// ModelRun is a persisted base-case LBO outcome for one company in one
// run, with the assumptions echoed for reproducibility.
// Corresponds to model_runs table in PostgreSQL.
type ModelRun struct {
	ModelRunID  string // PRIMARY KEY, deterministic hash of (run_id, ticker)
	RunID       string
	Ticker      string
	Returns     ReturnsResult
	Assumptions Assumptions
	CreatedAt   int64 // Unix timestamp in milliseconds
}
