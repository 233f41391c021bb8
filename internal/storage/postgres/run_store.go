package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

// Insert records the start of a run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.ScreenRun) error {
	query := `
		INSERT INTO screen_runs (
			run_id, status, universe_size, fetched, screened, modeled, started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RunID, r.Status, r.UniverseSize, r.Fetched, r.Screened, r.Modeled,
		r.StartedAt, r.FinishedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Finish records the terminal status and counts of a run.
func (s *RunStore) Finish(ctx context.Context, runID, status string, fetched, screened, modeled int, finishedAt int64) error {
	query := `
		UPDATE screen_runs
		SET status = $2, fetched = $3, screened = $4, modeled = $5, finished_at = $6
		WHERE run_id = $1
	`

	tag, err := s.pool.Exec(ctx, query, runID, status, fetched, screened, modeled, finishedAt)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (*domain.ScreenRun, error) {
	query := `
		SELECT run_id, status, universe_size, fetched, screened, modeled, started_at, finished_at
		FROM screen_runs
		WHERE run_id = $1
	`

	row := s.pool.QueryRow(ctx, query, runID)
	r, err := scanRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get run by id: %w", err)
	}
	return r, nil
}

// GetAll retrieves every run, newest first.
func (s *RunStore) GetAll(ctx context.Context) ([]*domain.ScreenRun, error) {
	query := `
		SELECT run_id, status, universe_size, fetched, screened, modeled, started_at, finished_at
		FROM screen_runs
		ORDER BY started_at DESC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.ScreenRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

// scanRun scans a single row into a ScreenRun.
func scanRun(row pgx.Row) (*domain.ScreenRun, error) {
	var r domain.ScreenRun
	err := row.Scan(
		&r.RunID, &r.Status, &r.UniverseSize, &r.Fetched, &r.Screened, &r.Modeled,
		&r.StartedAt, &r.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
