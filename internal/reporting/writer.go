package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteFiles renders the report and writes every artifact under dir:
// SCREEN_REPORT.md, shortlist.csv, screen_results.csv, rejections.csv,
// and one IRR plus one MOIC sensitivity CSV per tear sheet that carries
// a grid. Returns the written paths in write order.
func WriteFiles(dir string, r *Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	written := make([]string, 0, 4+2*len(r.TearSheets))
	write := func(name, content string) error {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		written = append(written, path)
		return nil
	}

	if err := write("SCREEN_REPORT.md", RenderMarkdown(r)); err != nil {
		return nil, err
	}
	if err := write("shortlist.csv", RenderShortlistCSV(r.Shortlist)); err != nil {
		return nil, err
	}
	if err := write("screen_results.csv", RenderScreenResultsCSV(r.ScreenResults)); err != nil {
		return nil, err
	}
	if err := write("rejections.csv", RenderRejectionsCSV(r.Rejections)); err != nil {
		return nil, err
	}

	for _, sheet := range r.TearSheets {
		if sheet.Grid == nil {
			continue
		}
		ticker := strings.ToLower(sheet.Ticker)
		name := fmt.Sprintf("sensitivity_%s_irr.csv", ticker)
		if err := write(name, RenderSensitivityCSV(sheet.Grid, GridIRR)); err != nil {
			return nil, err
		}
		name = fmt.Sprintf("sensitivity_%s_moic.csv", ticker)
		if err := write(name, RenderSensitivityCSV(sheet.Grid, GridMOIC)); err != nil {
			return nil, err
		}
	}

	return written, nil
}
