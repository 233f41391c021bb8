package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
// Undefined metric figures map to NULL columns and back.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

const snapshotColumns = `
	snapshot_id, run_id, ticker, as_of, company_name, sector,
	ltm_ebitda, ev_ebitda, net_debt_ebitda,
	revenue_cagr, ebitda_margin_stddev, capex_pct_sales, created_at
`

const insertSnapshotQuery = `
	INSERT INTO fundamental_snapshots (
		snapshot_id, run_id, ticker, as_of, company_name, sector,
		ltm_ebitda, ev_ebitda, net_debt_ebitda,
		revenue_cagr, ebitda_margin_stddev, capex_pct_sales, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
`

func snapshotArgs(snap *domain.FundamentalSnapshot) []any {
	m := snap.Metrics
	return []any{
		snap.SnapshotID,
		snap.RunID,
		m.Ticker,
		snap.AsOf,
		m.CompanyName,
		m.Sector,
		m.LTMEBITDA.Ptr(),
		m.EVEBITDA.Ptr(),
		m.NetDebtEBITDA.Ptr(),
		m.RevenueCAGR.Ptr(),
		m.EBITDAMarginStdDev.Ptr(),
		m.CapexPctSales.Ptr(),
		snap.CreatedAt,
	}
}

// Insert adds a new snapshot. Returns ErrDuplicateKey if snapshot_id exists.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.FundamentalSnapshot) error {
	_, err := s.pool.Exec(ctx, insertSnapshotQuery, snapshotArgs(snap)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// InsertBulk adds multiple snapshots atomically. Fails entire batch on any duplicate.
func (s *SnapshotStore) InsertBulk(ctx context.Context, snapshots []*domain.FundamentalSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, snap := range snapshots {
		if _, err := tx.Exec(ctx, insertSnapshotQuery, snapshotArgs(snap)...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert snapshot in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByID retrieves a snapshot by its ID. Returns ErrNotFound if not exists.
func (s *SnapshotStore) GetByID(ctx context.Context, snapshotID string) (*domain.FundamentalSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM fundamental_snapshots WHERE snapshot_id = $1`

	row := s.pool.QueryRow(ctx, query, snapshotID)
	snap, err := scanSnapshot(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot by id: %w", err)
	}
	return snap, nil
}

// GetByTicker retrieves all snapshots for a ticker, newest first.
func (s *SnapshotStore) GetByTicker(ctx context.Context, ticker string) ([]*domain.FundamentalSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM fundamental_snapshots
		WHERE ticker = $1
		ORDER BY created_at DESC, snapshot_id ASC
	`

	rows, err := s.pool.Query(ctx, query, ticker)
	if err != nil {
		return nil, fmt.Errorf("get snapshots by ticker: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// GetLatestByTicker retrieves the most recent snapshot for a ticker.
func (s *SnapshotStore) GetLatestByTicker(ctx context.Context, ticker string) (*domain.FundamentalSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM fundamental_snapshots
		WHERE ticker = $1
		ORDER BY created_at DESC, snapshot_id ASC
		LIMIT 1
	`

	row := s.pool.QueryRow(ctx, query, ticker)
	snap, err := scanSnapshot(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}
	return snap, nil
}

// GetByRun retrieves the snapshots captured in a run, ordered by ticker ASC.
func (s *SnapshotStore) GetByRun(ctx context.Context, runID string) ([]*domain.FundamentalSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM fundamental_snapshots
		WHERE run_id = $1
		ORDER BY ticker ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get snapshots by run: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// scanSnapshot scans a single row into a FundamentalSnapshot.
func scanSnapshot(row pgx.Row) (*domain.FundamentalSnapshot, error) {
	var snap domain.FundamentalSnapshot
	var ltmEBITDA, evEBITDA, netDebt, cagr, marginStdDev, capex *float64

	err := row.Scan(
		&snap.SnapshotID,
		&snap.RunID,
		&snap.Metrics.Ticker,
		&snap.AsOf,
		&snap.Metrics.CompanyName,
		&snap.Metrics.Sector,
		&ltmEBITDA,
		&evEBITDA,
		&netDebt,
		&cagr,
		&marginStdDev,
		&capex,
		&snap.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	snap.Metrics.LTMEBITDA = domain.FigureFromPtr(ltmEBITDA)
	snap.Metrics.EVEBITDA = domain.FigureFromPtr(evEBITDA)
	snap.Metrics.NetDebtEBITDA = domain.FigureFromPtr(netDebt)
	snap.Metrics.RevenueCAGR = domain.FigureFromPtr(cagr)
	snap.Metrics.EBITDAMarginStdDev = domain.FigureFromPtr(marginStdDev)
	snap.Metrics.CapexPctSales = domain.FigureFromPtr(capex)
	return &snap, nil
}

// scanSnapshots scans multiple rows into a slice of FundamentalSnapshot.
func scanSnapshots(rows pgx.Rows) ([]*domain.FundamentalSnapshot, error) {
	var snapshots []*domain.FundamentalSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return snapshots, nil
}
