package universe

import (
	"os"
	"path/filepath"
	"testing"
)

func writeUniverse(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "universe.csv")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write universe file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeUniverse(t, "Ticker,Name\nacme,Acme Corp\nBOLT,Bolt Inc\nAcme,dup\nZEN,Zen Ltd\n")

	tickers, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := []string{"ACME", "BOLT", "ZEN"}
	if len(tickers) != len(want) {
		t.Fatalf("Load() = %v, want %v", tickers, want)
	}
	for i, ticker := range want {
		if tickers[i] != ticker {
			t.Errorf("tickers[%d] = %s, want %s", i, tickers[i], ticker)
		}
	}
}

func TestLoad_HeaderCaseInsensitive(t *testing.T) {
	path := writeUniverse(t, "Name,TICKER\nAcme Corp,ACME\n")

	tickers, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(tickers) != 1 || tickers[0] != "ACME" {
		t.Fatalf("Load() = %v, want [ACME]", tickers)
	}
}

func TestLoad_SkipsBlankRows(t *testing.T) {
	path := writeUniverse(t, "Ticker\nACME\n\nBOLT\n")

	tickers, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(tickers) != 2 {
		t.Fatalf("Load() = %v, want 2 tickers", tickers)
	}
}

func TestLoad_MissingTickerColumn(t *testing.T) {
	path := writeUniverse(t, "Symbol,Name\nACME,Acme Corp\n")

	if _, err := Load(path); err == nil {
		t.Fatal("Load() succeeded without a Ticker column")
	}
}

func TestLoad_EmptyUniverse(t *testing.T) {
	path := writeUniverse(t, "Ticker,Name\n")

	if _, err := Load(path); err == nil {
		t.Fatal("Load() succeeded on an empty universe")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Fatal("Load() succeeded on a missing file")
	}
}
