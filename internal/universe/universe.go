// Package universe loads the ticker universe from CSV and watches it for additions.
package universe

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// Load reads the ticker universe from a CSV file. The file must carry a
// Ticker column (header matched case-insensitively). Tickers are uppercased
// and deduplicated preserving first-seen order. An empty universe is an error.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open universe file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse universe file %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("universe file %s is empty", path)
	}

	col := -1
	for i, name := range records[0] {
		if strings.EqualFold(strings.TrimSpace(name), "ticker") {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("universe file %s has no Ticker column", path)
	}

	seen := make(map[string]bool)
	var tickers []string
	for _, row := range records[1:] {
		if col >= len(row) {
			continue
		}
		ticker := strings.ToUpper(strings.TrimSpace(row[col]))
		if ticker == "" || seen[ticker] {
			continue
		}
		seen[ticker] = true
		tickers = append(tickers, ticker)
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("universe file %s lists no tickers", path)
	}
	return tickers, nil
}
