package domain

// Company identifies one member of the screening universe.
// Corresponds to companies table in PostgreSQL.
type Company struct {
	Ticker   string // PRIMARY KEY, uppercase exchange symbol
	CIK      string // SEC Central Index Key, zero-padded to 10 digits
	Name     string
	Sector   string
	Industry string
	AddedAt  int64 // Unix timestamp in milliseconds
}
