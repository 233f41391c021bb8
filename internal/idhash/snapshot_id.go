package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// SnapshotID computes a deterministic snapshot_id using SHA256.
// Formula: SHA256(ticker|as_of)
// Returns hex-encoded hash (64 characters).
//
// Re-fetching the same ticker on the same observation date reproduces the
// same id, so repeated runs upsert rather than duplicate.
func SnapshotID(ticker string, asOf string) string {
	data := fmt.Sprintf("%s|%s", ticker, asOf)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ResultID computes a deterministic id for per-run, per-ticker rows
// (screen results and model runs) using SHA256.
// Formula: SHA256(run_id|ticker)
// Returns hex-encoded hash (64 characters).
func ResultID(runID string, ticker string) string {
	data := fmt.Sprintf("%s|%s", runID, ticker)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
