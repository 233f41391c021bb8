package storage

import (
	"context"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
)

// CompanyStore provides access to companies storage.
type CompanyStore interface {
	// Insert adds a new company. Returns ErrDuplicateKey if ticker exists.
	Insert(ctx context.Context, c *domain.Company) error

	// Upsert inserts the company or refreshes its profile fields if the
	// ticker already exists.
	Upsert(ctx context.Context, c *domain.Company) error

	// GetByTicker retrieves a company by ticker. Returns ErrNotFound if not exists.
	GetByTicker(ctx context.Context, ticker string) (*domain.Company, error)

	// GetAll retrieves every company, ordered by ticker ASC.
	GetAll(ctx context.Context) ([]*domain.Company, error)
}

// SnapshotStore provides access to fundamental_snapshots storage.
type SnapshotStore interface {
	// Insert adds a new snapshot. Returns ErrDuplicateKey if snapshot_id exists.
	Insert(ctx context.Context, s *domain.FundamentalSnapshot) error

	// InsertBulk adds multiple snapshots. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, snapshots []*domain.FundamentalSnapshot) error

	// GetByID retrieves a snapshot by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, snapshotID string) (*domain.FundamentalSnapshot, error)

	// GetByTicker retrieves all snapshots for a ticker, newest first.
	GetByTicker(ctx context.Context, ticker string) ([]*domain.FundamentalSnapshot, error)

	// GetLatestByTicker retrieves the most recent snapshot for a ticker.
	// Returns ErrNotFound if the ticker has no snapshots.
	GetLatestByTicker(ctx context.Context, ticker string) (*domain.FundamentalSnapshot, error)

	// GetByRun retrieves the snapshots captured in a run, ordered by ticker ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.FundamentalSnapshot, error)
}

// ScreenResultStore provides access to screen_results storage.
type ScreenResultStore interface {
	// Insert adds a new result. Returns ErrDuplicateKey if result_id exists.
	Insert(ctx context.Context, r *domain.ScreenResult) error

	// InsertBulk adds multiple results. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, results []*domain.ScreenResult) error

	// GetByRun retrieves all results for a run, ordered by ticker ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.ScreenResult, error)

	// GetByRunPassed retrieves only passing results for a run, ordered by ticker ASC.
	GetByRunPassed(ctx context.Context, runID string) ([]*domain.ScreenResult, error)
}

// ModelRunStore provides access to model_runs storage.
type ModelRunStore interface {
	// Insert adds a new model run. Returns ErrDuplicateKey if model_run_id exists.
	Insert(ctx context.Context, m *domain.ModelRun) error

	// InsertBulk adds multiple model runs. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, runs []*domain.ModelRun) error

	// GetByRun retrieves all model runs for a run, ordered by IRR DESC.
	GetByRun(ctx context.Context, runID string) ([]*domain.ModelRun, error)

	// GetByTicker retrieves all model runs for a ticker, newest first.
	GetByTicker(ctx context.Context, ticker string) ([]*domain.ModelRun, error)
}

// RunStore provides access to screen_runs storage.
type RunStore interface {
	// Insert records the start of a run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.ScreenRun) error

	// Finish records the terminal status and counts of a run.
	// Returns ErrNotFound if run_id does not exist.
	Finish(ctx context.Context, runID, status string, fetched, screened, modeled int, finishedAt int64) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.ScreenRun, error)

	// GetAll retrieves every run, newest first.
	GetAll(ctx context.Context) ([]*domain.ScreenRun, error)
}

// SensitivityCellStore provides access to sensitivity_cells analytics storage.
type SensitivityCellStore interface {
	// InsertBulk adds the flattened cells of one or more grids. Re-inserts
	// of the same (run, ticker, entry, exit) key are idempotent.
	InsertBulk(ctx context.Context, points []domain.SensitivityPoint) error

	// GetByRunTicker retrieves one candidate's grid cells for a run,
	// ordered by (entry_multiple, exit_multiple) ASC.
	GetByRunTicker(ctx context.Context, runID, ticker string) ([]domain.SensitivityPoint, error)
}

// CriterionOutcomeStore provides access to criterion_outcomes analytics storage.
type CriterionOutcomeStore interface {
	// InsertBulk adds per-criterion screening rows. Re-inserts of the same
	// (run, ticker, criterion) key are idempotent.
	InsertBulk(ctx context.Context, outcomes []*domain.CriterionOutcome) error

	// GetByRun retrieves all criterion rows for a run, ordered by
	// (ticker, criterion) ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.CriterionOutcome, error)

	// PassRateByCriterion returns, per criterion name, the fraction of
	// companies in the run that passed it.
	PassRateByCriterion(ctx context.Context, runID string) (map[string]float64, error)
}
