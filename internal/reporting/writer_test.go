package reporting

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
)

func writerReport() *Report {
	return &Report{
		GeneratedAt: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
		Run: RunSummary{
			RunID:        "run-1",
			Status:       domain.RunStatusCompleted,
			UniverseSize: 2,
			Fetched:      2,
			Passed:       1,
			Modeled:      1,
		},
		Criteria: []CriterionSummaryRow{
			{Name: domain.CriterionMinEBITDA, Threshold: ">= $50.0M", PassRate: 1.0},
		},
		Shortlist: []ShortlistRow{
			{
				Ticker:      "ACME",
				CompanyName: "Acme Industrial Corp",
				Sector:      "Industrials",
				EVEBITDA:    domain.NewFigure(6.0),
				IRR:         0.12,
				MOIC:        1.76,
			},
		},
		Rejections: []RejectionRow{
			{Ticker: "ZEN", RejectedBy: domain.CriterionMaxEVEBITDA, Threshold: "<= 12.00x", Actual: "14.40x"},
		},
		ScreenResults: []ScreenResultRow{
			{Ticker: "ACME", Passed: true, Criterion: domain.CriterionMaxEVEBITDA, Threshold: "<= 12.00x", Actual: "6.00x", Pass: true},
			{Ticker: "ZEN", Passed: false, Criterion: domain.CriterionMaxEVEBITDA, Threshold: "<= 12.00x", Actual: "14.40x", Pass: false},
		},
		TearSheets: []TearSheet{
			{
				Ticker:  "ACME",
				Metrics: domain.FundamentalMetrics{Ticker: "ACME", CompanyName: "Acme Industrial Corp"},
				Returns: domain.ReturnsResult{Ticker: "ACME", IRR: 0.12, MOIC: 1.76},
				Grid: &SensitivityGrid{
					EntryMultiples: []float64{5.5, 6.0},
					ExitMultiples:  []float64{5.5, 6.0},
					Cells: [][]domain.SensitivityCell{
						{{IRR: 0.10, MOIC: 1.61, Defined: true}, {IRR: 0.14, MOIC: 1.92, Defined: true}},
						{{}, {IRR: 0.12, MOIC: 1.76, Defined: true}},
					},
				},
			},
		},
	}
}

func TestWriteFiles_AllArtifacts(t *testing.T) {
	dir := t.TempDir()

	written, err := WriteFiles(dir, writerReport())
	if err != nil {
		t.Fatalf("WriteFiles: %v", err)
	}

	want := []string{
		"SCREEN_REPORT.md",
		"shortlist.csv",
		"screen_results.csv",
		"rejections.csv",
		"sensitivity_acme_irr.csv",
		"sensitivity_acme_moic.csv",
	}
	if len(written) != len(want) {
		t.Fatalf("expected %d files, got %d: %v", len(want), len(written), written)
	}
	for i, name := range want {
		if filepath.Base(written[i]) != name {
			t.Errorf("file %d: expected %s, got %s", i, name, filepath.Base(written[i]))
		}
		if _, err := os.Stat(written[i]); err != nil {
			t.Errorf("stat %s: %v", written[i], err)
		}
	}

	report, err := os.ReadFile(filepath.Join(dir, "SCREEN_REPORT.md"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(report), "# LBO Screening Report") {
		t.Error("report missing title")
	}

	shortlist, err := os.ReadFile(filepath.Join(dir, "shortlist.csv"))
	if err != nil {
		t.Fatalf("read shortlist: %v", err)
	}
	if !strings.Contains(string(shortlist), "ACME") {
		t.Error("shortlist missing ACME row")
	}

	outcomes, err := os.ReadFile(filepath.Join(dir, "screen_results.csv"))
	if err != nil {
		t.Fatalf("read screen results: %v", err)
	}
	if !strings.Contains(string(outcomes), "ZEN,false") {
		t.Error("screen results missing ZEN failure row")
	}
}

func TestWriteFiles_NoGridSkipsSensitivityCSVs(t *testing.T) {
	dir := t.TempDir()
	r := writerReport()
	r.TearSheets[0].Grid = nil

	written, err := WriteFiles(dir, r)
	if err != nil {
		t.Fatalf("WriteFiles: %v", err)
	}
	if len(written) != 4 {
		t.Fatalf("expected 4 files without a grid, got %d: %v", len(written), written)
	}
}

func TestWriteFiles_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports", "latest")

	if _, err := WriteFiles(dir, writerReport()); err != nil {
		t.Fatalf("WriteFiles: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("expected output directory created: %v", err)
	}
}
