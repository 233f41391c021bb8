package clickhouse

import (
	"context"
	"fmt"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage"
)

// CriterionOutcomeStore implements storage.CriterionOutcomeStore using
// ClickHouse. One row per (run, ticker, criterion); the ReplacingMergeTree
// key makes re-inserts idempotent.
type CriterionOutcomeStore struct {
	conn *Conn
}

// NewCriterionOutcomeStore creates a new CriterionOutcomeStore.
func NewCriterionOutcomeStore(conn *Conn) *CriterionOutcomeStore {
	return &CriterionOutcomeStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CriterionOutcomeStore = (*CriterionOutcomeStore)(nil)

// InsertBulk adds per-criterion rows for a run.
func (s *CriterionOutcomeStore) InsertBulk(ctx context.Context, outcomes []*domain.CriterionOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO criterion_outcomes (
			run_id, ticker, criterion, threshold, actual, pass, evaluated_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, o := range outcomes {
		if o == nil {
			return storage.ErrInvalidInput
		}
		err = batch.Append(
			o.RunID, o.Ticker, o.Criterion, o.Threshold,
			o.Actual, o.Pass, o.EvaluatedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRun retrieves every criterion outcome for a run, ordered by (ticker,
// criterion) ASC.
func (s *CriterionOutcomeStore) GetByRun(ctx context.Context, runID string) ([]*domain.CriterionOutcome, error) {
	query := `
		SELECT run_id, ticker, criterion, threshold, actual, pass, evaluated_at
		FROM criterion_outcomes FINAL
		WHERE run_id = ?
		ORDER BY ticker ASC, criterion ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query criterion outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []*domain.CriterionOutcome
	for rows.Next() {
		var o domain.CriterionOutcome
		err := rows.Scan(
			&o.RunID, &o.Ticker, &o.Criterion, &o.Threshold,
			&o.Actual, &o.Pass, &o.EvaluatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan criterion outcome row: %w", err)
		}
		outcomes = append(outcomes, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate criterion outcome rows: %w", err)
	}
	return outcomes, nil
}

// PassRateByCriterion computes the share of evaluated companies that passed
// each criterion in a run.
func (s *CriterionOutcomeStore) PassRateByCriterion(ctx context.Context, runID string) (map[string]float64, error) {
	query := `
		SELECT criterion, avg(toFloat64(pass)) AS pass_rate
		FROM criterion_outcomes FINAL
		WHERE run_id = ?
		GROUP BY criterion
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query pass rates: %w", err)
	}
	defer rows.Close()

	rates := make(map[string]float64)
	for rows.Next() {
		var (
			criterion string
			rate      float64
		)
		if err := rows.Scan(&criterion, &rate); err != nil {
			return nil, fmt.Errorf("scan pass rate row: %w", err)
		}
		rates[criterion] = rate
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pass rate rows: %w", err)
	}
	return rates, nil
}
