package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage"
)

// ModelRunStore implements storage.ModelRunStore using PostgreSQL. Returns
// and assumptions are flattened into columns so runs can be ranked and
// filtered in SQL.
type ModelRunStore struct {
	pool *Pool
}

// NewModelRunStore creates a new ModelRunStore.
func NewModelRunStore(pool *Pool) *ModelRunStore {
	return &ModelRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ModelRunStore = (*ModelRunStore)(nil)

const modelRunColumns = `
	model_run_id, run_id, ticker,
	entry_multiple, exit_multiple, entry_ev, entry_debt, entry_equity,
	exit_ev, exit_equity, moic, irr,
	horizon_years, leverage_multiple, exit_premium, interest_rate, tax_rate,
	created_at
`

const insertModelRunQuery = `
	INSERT INTO model_runs (
		model_run_id, run_id, ticker,
		entry_multiple, exit_multiple, entry_ev, entry_debt, entry_equity,
		exit_ev, exit_equity, moic, irr,
		horizon_years, leverage_multiple, exit_premium, interest_rate, tax_rate,
		created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
`

func modelRunArgs(m *domain.ModelRun) []any {
	r := m.Returns
	a := m.Assumptions
	return []any{
		m.ModelRunID, m.RunID, m.Ticker,
		r.EntryMultiple, r.ExitMultiple, r.EntryEV, r.EntryDebt, r.EntryEquity,
		r.ExitEV, r.ExitEquity, r.MOIC, r.IRR,
		a.HorizonYears, a.LeverageMultiple, a.ExitPremium, a.InterestRate, a.TaxRate,
		m.CreatedAt,
	}
}

// Insert adds a new model run. Returns ErrDuplicateKey if model_run_id exists.
func (s *ModelRunStore) Insert(ctx context.Context, m *domain.ModelRun) error {
	if _, err := s.pool.Exec(ctx, insertModelRunQuery, modelRunArgs(m)...); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert model run: %w", err)
	}
	return nil
}

// InsertBulk adds multiple model runs atomically. Fails entire batch on any duplicate.
func (s *ModelRunStore) InsertBulk(ctx context.Context, runs []*domain.ModelRun) error {
	if len(runs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, m := range runs {
		if _, err := tx.Exec(ctx, insertModelRunQuery, modelRunArgs(m)...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert model run in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByRun retrieves all model runs for a run, ordered by IRR DESC with
// ticker ASC as a deterministic tie-break.
func (s *ModelRunStore) GetByRun(ctx context.Context, runID string) ([]*domain.ModelRun, error) {
	query := `
		SELECT ` + modelRunColumns + `
		FROM model_runs
		WHERE run_id = $1
		ORDER BY irr DESC, ticker ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get model runs by run: %w", err)
	}
	defer rows.Close()

	return scanModelRuns(rows)
}

// GetByTicker retrieves all model runs for a ticker, newest first.
func (s *ModelRunStore) GetByTicker(ctx context.Context, ticker string) ([]*domain.ModelRun, error) {
	query := `
		SELECT ` + modelRunColumns + `
		FROM model_runs
		WHERE ticker = $1
		ORDER BY created_at DESC, model_run_id ASC
	`

	rows, err := s.pool.Query(ctx, query, ticker)
	if err != nil {
		return nil, fmt.Errorf("get model runs by ticker: %w", err)
	}
	defer rows.Close()

	return scanModelRuns(rows)
}

// scanModelRun scans a single row into a ModelRun.
func scanModelRun(row pgx.Row) (*domain.ModelRun, error) {
	var m domain.ModelRun
	err := row.Scan(
		&m.ModelRunID, &m.RunID, &m.Ticker,
		&m.Returns.EntryMultiple, &m.Returns.ExitMultiple,
		&m.Returns.EntryEV, &m.Returns.EntryDebt, &m.Returns.EntryEquity,
		&m.Returns.ExitEV, &m.Returns.ExitEquity,
		&m.Returns.MOIC, &m.Returns.IRR,
		&m.Assumptions.HorizonYears, &m.Assumptions.LeverageMultiple,
		&m.Assumptions.ExitPremium, &m.Assumptions.InterestRate, &m.Assumptions.TaxRate,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Returns.Ticker = m.Ticker
	return &m, nil
}

// scanModelRuns scans multiple rows into a slice of ModelRun.
func scanModelRuns(rows pgx.Rows) ([]*domain.ModelRun, error) {
	var runs []*domain.ModelRun
	for rows.Next() {
		m, err := scanModelRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan model run row: %w", err)
		}
		runs = append(runs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate model run rows: %w", err)
	}
	return runs, nil
}
