package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage"
)

// CompanyStore implements storage.CompanyStore using PostgreSQL.
type CompanyStore struct {
	pool *Pool
}

// NewCompanyStore creates a new CompanyStore.
func NewCompanyStore(pool *Pool) *CompanyStore {
	return &CompanyStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CompanyStore = (*CompanyStore)(nil)

// Insert adds a new company. Returns ErrDuplicateKey if ticker exists.
func (s *CompanyStore) Insert(ctx context.Context, c *domain.Company) error {
	query := `
		INSERT INTO companies (ticker, cik, name, sector, industry, added_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(ctx, query,
		c.Ticker, c.CIK, c.Name, c.Sector, c.Industry, c.AddedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert company: %w", err)
	}
	return nil
}

// Upsert inserts the company or refreshes its profile fields. The original
// added_at is preserved on conflict.
func (s *CompanyStore) Upsert(ctx context.Context, c *domain.Company) error {
	query := `
		INSERT INTO companies (ticker, cik, name, sector, industry, added_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (ticker) DO UPDATE SET
			cik = EXCLUDED.cik,
			name = EXCLUDED.name,
			sector = EXCLUDED.sector,
			industry = EXCLUDED.industry
	`

	_, err := s.pool.Exec(ctx, query,
		c.Ticker, c.CIK, c.Name, c.Sector, c.Industry, c.AddedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert company: %w", err)
	}
	return nil
}

// GetByTicker retrieves a company by ticker. Returns ErrNotFound if not exists.
func (s *CompanyStore) GetByTicker(ctx context.Context, ticker string) (*domain.Company, error) {
	query := `
		SELECT ticker, cik, name, sector, industry, added_at
		FROM companies
		WHERE ticker = $1
	`

	row := s.pool.QueryRow(ctx, query, ticker)
	c, err := scanCompany(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get company by ticker: %w", err)
	}
	return c, nil
}

// GetAll retrieves every company, ordered by ticker ASC.
func (s *CompanyStore) GetAll(ctx context.Context) ([]*domain.Company, error) {
	query := `
		SELECT ticker, cik, name, sector, industry, added_at
		FROM companies
		ORDER BY ticker ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all companies: %w", err)
	}
	defer rows.Close()

	var companies []*domain.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("scan company row: %w", err)
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate company rows: %w", err)
	}
	return companies, nil
}

// scanCompany scans a single row into a Company.
func scanCompany(row pgx.Row) (*domain.Company, error) {
	var c domain.Company
	err := row.Scan(&c.Ticker, &c.CIK, &c.Name, &c.Sector, &c.Industry, &c.AddedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
