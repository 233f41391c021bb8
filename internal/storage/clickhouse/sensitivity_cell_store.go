package clickhouse

import (
	"context"
	"fmt"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage"
)

// SensitivityCellStore implements storage.SensitivityCellStore using
// ClickHouse. The table is a ReplacingMergeTree keyed on the grid
// coordinates, so re-running a deterministic run converges to one row per
// cell; reads go through FINAL.
type SensitivityCellStore struct {
	conn *Conn
}

// NewSensitivityCellStore creates a new SensitivityCellStore.
func NewSensitivityCellStore(conn *Conn) *SensitivityCellStore {
	return &SensitivityCellStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SensitivityCellStore = (*SensitivityCellStore)(nil)

// InsertBulk adds the flattened cells of one or more grids.
func (s *SensitivityCellStore) InsertBulk(ctx context.Context, points []domain.SensitivityPoint) error {
	if len(points) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO sensitivity_cells (
			run_id, ticker, entry_multiple, exit_multiple, irr, moic, defined
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.RunID, p.Ticker, p.EntryMultiple, p.ExitMultiple,
			p.IRR, p.MOIC, p.Defined,
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

// GetByRunTicker retrieves one candidate's grid cells for a run, ordered by
// (entry_multiple, exit_multiple) ASC.
func (s *SensitivityCellStore) GetByRunTicker(ctx context.Context, runID, ticker string) ([]domain.SensitivityPoint, error) {
	query := `
		SELECT run_id, ticker, entry_multiple, exit_multiple, irr, moic, defined
		FROM sensitivity_cells FINAL
		WHERE run_id = ? AND ticker = ?
		ORDER BY entry_multiple ASC, exit_multiple ASC
	`

	rows, err := s.conn.Query(ctx, query, runID, ticker)
	if err != nil {
		return nil, fmt.Errorf("query sensitivity cells: %w", err)
	}
	defer rows.Close()

	return scanSensitivityPoints(rows)
}

// scanSensitivityPoints scans multiple rows.
func scanSensitivityPoints(rows chRows) ([]domain.SensitivityPoint, error) {
	var points []domain.SensitivityPoint

	for rows.Next() {
		var p domain.SensitivityPoint
		err := rows.Scan(
			&p.RunID, &p.Ticker, &p.EntryMultiple, &p.ExitMultiple,
			&p.IRR, &p.MOIC, &p.Defined,
		)
		if err != nil {
			return nil, fmt.Errorf("scan sensitivity cell row: %w", err)
		}
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sensitivity cell rows: %w", err)
	}
	return points, nil
}
