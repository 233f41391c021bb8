package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/mr-tron/base58"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
)

// RunID computes a short deterministic run handle.
// Formula: base58(SHA256(started_at|universe_hash|criteria...|assumptions...)[:8])
//
// The full digest is truncated to 8 bytes before encoding so the handle
// stays legible in log lines, file names, and report headers while the
// started_at component keeps distinct runs distinct.
func RunID(startedAt int64, universeHash string, c domain.ScreeningCriteria, a domain.Assumptions) string {
	data := fmt.Sprintf("%d|%s|%g|%g|%g|%g|%g|%g|%d|%g|%g|%g|%g",
		startedAt,
		universeHash,
		c.MinLTMEBITDA,
		c.MaxEVEBITDA,
		c.MaxNetDebtEBITDA,
		c.MinRevenueCAGR,
		c.MaxMarginStdDev,
		c.MaxCapexPctSales,
		a.HorizonYears,
		a.LeverageMultiple,
		a.ExitPremium,
		a.InterestRate,
		a.TaxRate,
	)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:8])
}

// UniverseHash computes a deterministic digest of a ticker universe.
// Formula: SHA256(sorted tickers joined by |)
// Returns hex-encoded hash (64 characters).
//
// Input order does not matter; the caller's slice is not modified.
func UniverseHash(tickers []string) string {
	sorted := make([]string, len(tickers))
	copy(sorted, tickers)
	sort.Strings(sorted)

	hash := sha256.Sum256([]byte(strings.Join(sorted, "|")))
	return hex.EncodeToString(hash[:])
}
