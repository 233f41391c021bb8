package reporting

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
)

// GridMetric selects which outcome a sensitivity CSV carries.
type GridMetric int

const (
	GridIRR GridMetric = iota
	GridMOIC
)

// RenderShortlistCSV renders the shortlist as CSV. Company names are free
// text, so records go through a CSV writer for quoting. Undefined figures
// render as empty cells, never as zero.
func RenderShortlistCSV(rows []ShortlistRow) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	w.Write([]string{"ticker", "company_name", "sector", "ev_ebitda", "net_debt_ebitda", "revenue_cagr", "irr", "moic"})
	for _, r := range rows {
		w.Write([]string{
			r.Ticker,
			r.CompanyName,
			r.Sector,
			csvFigure(r.EVEBITDA),
			csvFigure(r.NetDebtEBITDA),
			csvFigure(r.RevenueCAGR),
			fmt.Sprintf("%.6f", r.IRR),
			fmt.Sprintf("%.6f", r.MOIC),
		})
	}
	w.Flush()
	return sb.String()
}

// RenderScreenResultsCSV renders every criterion evaluation for every
// screened company, pass and fail alike.
func RenderScreenResultsCSV(rows []ScreenResultRow) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	w.Write([]string{"ticker", "passed", "criterion", "threshold", "actual", "pass"})
	for _, r := range rows {
		w.Write([]string{
			r.Ticker,
			strconv.FormatBool(r.Passed),
			r.Criterion,
			r.Threshold,
			r.Actual,
			strconv.FormatBool(r.Pass),
		})
	}
	w.Flush()
	return sb.String()
}

// RenderRejectionsCSV renders the rejected companies with the criterion
// that eliminated each.
func RenderRejectionsCSV(rows []RejectionRow) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	w.Write([]string{"ticker", "rejected_by", "threshold", "actual"})
	for _, r := range rows {
		w.Write([]string{r.Ticker, r.RejectedBy, r.Threshold, r.Actual})
	}
	w.Flush()
	return sb.String()
}

// RenderSensitivityCSV renders one candidate's grid: the first column is
// the entry multiple, remaining columns are exit multiples. Undefined
// cells render empty.
func RenderSensitivityCSV(grid *SensitivityGrid, metric GridMetric) string {
	if grid == nil {
		return ""
	}
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	header := make([]string, 0, len(grid.ExitMultiples)+1)
	header = append(header, "entry_multiple")
	for _, exit := range grid.ExitMultiples {
		header = append(header, fmt.Sprintf("%.2f", exit))
	}
	w.Write(header)

	for i, entry := range grid.EntryMultiples {
		record := make([]string, 0, len(grid.ExitMultiples)+1)
		record = append(record, fmt.Sprintf("%.2f", entry))
		for j := range grid.ExitMultiples {
			cell := grid.Cells[i][j]
			if !cell.Defined {
				record = append(record, "")
				continue
			}
			switch metric {
			case GridMOIC:
				record = append(record, fmt.Sprintf("%.6f", cell.MOIC))
			default:
				record = append(record, fmt.Sprintf("%.6f", cell.IRR))
			}
		}
		w.Write(record)
	}
	w.Flush()
	return sb.String()
}

func csvFigure(f domain.Figure) string {
	if !f.Defined {
		return ""
	}
	return fmt.Sprintf("%.6f", f.Value)
}
