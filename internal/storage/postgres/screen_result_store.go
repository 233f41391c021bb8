package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage"
)

// ScreenResultStore implements storage.ScreenResultStore using PostgreSQL.
// The ordered per-criterion rows are stored as a JSONB document; analytics
// queries over individual criteria go to the ClickHouse outcome store.
type ScreenResultStore struct {
	pool *Pool
}

// NewScreenResultStore creates a new ScreenResultStore.
func NewScreenResultStore(pool *Pool) *ScreenResultStore {
	return &ScreenResultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ScreenResultStore = (*ScreenResultStore)(nil)

const insertResultQuery = `
	INSERT INTO screen_results (
		result_id, run_id, ticker, passed, rejected_by, criteria, evaluated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7)
`

func resultArgs(r *domain.ScreenResult) ([]any, error) {
	criteria, err := json.Marshal(r.Criteria)
	if err != nil {
		return nil, fmt.Errorf("marshal criteria: %w", err)
	}
	return []any{
		r.ResultID, r.RunID, r.Ticker, r.Passed, r.RejectedBy, criteria, r.EvaluatedAt,
	}, nil
}

// Insert adds a new result. Returns ErrDuplicateKey if result_id exists.
func (s *ScreenResultStore) Insert(ctx context.Context, r *domain.ScreenResult) error {
	args, err := resultArgs(r)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, insertResultQuery, args...); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert screen result: %w", err)
	}
	return nil
}

// InsertBulk adds multiple results atomically. Fails entire batch on any duplicate.
func (s *ScreenResultStore) InsertBulk(ctx context.Context, results []*domain.ScreenResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range results {
		args, err := resultArgs(r)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, insertResultQuery, args...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert screen result in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByRun retrieves all results for a run, ordered by ticker ASC.
func (s *ScreenResultStore) GetByRun(ctx context.Context, runID string) ([]*domain.ScreenResult, error) {
	query := `
		SELECT result_id, run_id, ticker, passed, rejected_by, criteria, evaluated_at
		FROM screen_results
		WHERE run_id = $1
		ORDER BY ticker ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get screen results by run: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// GetByRunPassed retrieves only passing results for a run, ordered by ticker ASC.
func (s *ScreenResultStore) GetByRunPassed(ctx context.Context, runID string) ([]*domain.ScreenResult, error) {
	query := `
		SELECT result_id, run_id, ticker, passed, rejected_by, criteria, evaluated_at
		FROM screen_results
		WHERE run_id = $1 AND passed
		ORDER BY ticker ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get passed screen results: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// scanResult scans a single row into a ScreenResult.
func scanResult(row pgx.Row) (*domain.ScreenResult, error) {
	var r domain.ScreenResult
	var criteria []byte

	err := row.Scan(
		&r.ResultID, &r.RunID, &r.Ticker, &r.Passed, &r.RejectedBy, &criteria, &r.EvaluatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(criteria, &r.Criteria); err != nil {
		return nil, fmt.Errorf("unmarshal criteria: %w", err)
	}
	return &r, nil
}

// scanResults scans multiple rows into a slice of ScreenResult.
func scanResults(rows pgx.Rows) ([]*domain.ScreenResult, error) {
	var results []*domain.ScreenResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan screen result row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate screen result rows: %w", err)
	}
	return results, nil
}
