package domain

// ReturnsResult is the outcome of one LBO model run for one candidate at
// one (entry, exit) multiple pair. Ephemeral; persisted only via ModelRun.
type ReturnsResult struct {
	Ticker        string
	EntryMultiple float64
	ExitMultiple  float64
	EntryEV       float64
	EntryDebt     float64
	EntryEquity   float64
	ExitEV        float64
	ExitEquity    float64
	MOIC          float64 // exit equity / entry equity
	IRR           float64 // MOIC annualized over the horizon; -1.0 when MOIC <= 0
}
