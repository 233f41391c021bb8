package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
)

// RenderMarkdown renders the report as a Markdown memo.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# LBO Screening Report\n\n")
	sb.WriteString(fmt.Sprintf("Run: %s | Status: %s\n\n", r.Run.RunID, r.Run.Status))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Funnel
	sb.WriteString("## Run Summary\n\n")
	sb.WriteString("| Stage | Count |\n")
	sb.WriteString("|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Universe | %d |\n", r.Run.UniverseSize))
	sb.WriteString(fmt.Sprintf("| Complete profiles | %d |\n", r.Run.Fetched))
	sb.WriteString(fmt.Sprintf("| Passed screen | %d |\n", r.Run.Passed))
	sb.WriteString(fmt.Sprintf("| Modeled | %d |\n", r.Run.Modeled))
	sb.WriteString("\n")

	// Criteria summary
	sb.WriteString("## Screening Criteria\n\n")
	if len(r.Criteria) > 0 {
		sb.WriteString("| Criterion | Threshold | Pass Rate |\n")
		sb.WriteString("|-----------|-----------|----------|\n")
		for _, c := range r.Criteria {
			sb.WriteString(fmt.Sprintf("| %s | %s | %.1f%% |\n", c.Name, c.Threshold, c.PassRate*100))
		}
	} else {
		sb.WriteString("No companies were evaluated.\n")
	}
	sb.WriteString("\n")

	// Shortlist
	sb.WriteString("## Candidate Shortlist\n\n")
	if len(r.Shortlist) > 0 {
		sb.WriteString("| Ticker | Company | Sector | EV/EBITDA | Net Debt/EBITDA | Revenue CAGR | IRR | MOIC |\n")
		sb.WriteString("|--------|---------|--------|-----------|-----------------|--------------|-----|------|\n")
		for _, row := range r.Shortlist {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %.1f%% | %.2fx |\n",
				row.Ticker, row.CompanyName, row.Sector,
				figureMultiple(row.EVEBITDA), figureMultiple(row.NetDebtEBITDA),
				figurePercent(row.RevenueCAGR),
				row.IRR*100, row.MOIC))
		}
	} else {
		sb.WriteString("No companies passed the screening criteria.\n")
	}
	sb.WriteString("\n")

	// Rejections
	sb.WriteString("## Rejections\n\n")
	if len(r.Rejections) > 0 {
		sb.WriteString("| Ticker | Rejected By | Threshold | Actual |\n")
		sb.WriteString("|--------|-------------|-----------|--------|\n")
		for _, row := range r.Rejections {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				row.Ticker, row.RejectedBy, row.Threshold, row.Actual))
		}
	} else {
		sb.WriteString("No companies were rejected.\n")
	}
	sb.WriteString("\n")

	// Tear sheets
	for i := range r.TearSheets {
		renderTearSheet(&sb, &r.TearSheets[i])
	}

	return sb.String()
}

func renderTearSheet(sb *strings.Builder, t *TearSheet) {
	name := t.Metrics.CompanyName
	if name == "" {
		name = t.Ticker
	}
	sb.WriteString(fmt.Sprintf("## Tear Sheet: %s (%s)\n\n", name, t.Ticker))

	sb.WriteString(fmt.Sprintf("Projected IRR: %.1f%% | Projected MOIC: %.2fx | Entry EV/EBITDA: %.2fx | Net Debt/EBITDA: %s\n\n",
		t.Returns.IRR*100, t.Returns.MOIC, t.Returns.EntryMultiple,
		figureMultiple(t.Metrics.NetDebtEBITDA)))

	// Sources and uses
	sb.WriteString("### Transaction Structure\n\n")
	sb.WriteString("| Sources | Amount | Uses | Amount |\n")
	sb.WriteString("|---------|--------|------|--------|\n")
	sb.WriteString(fmt.Sprintf("| New debt | %s | Purchase of company | %s |\n",
		money(t.Returns.EntryDebt), money(t.Returns.EntryEV*0.98)))
	sb.WriteString(fmt.Sprintf("| Sponsor equity | %s | Fees and expenses | %s |\n",
		money(t.Returns.EntryEquity), money(t.Returns.EntryEV*0.02)))
	sb.WriteString("\n")

	// Value creation bridge
	exitDebt := t.Returns.ExitEV - t.Returns.ExitEquity
	sb.WriteString("### Value Creation Bridge\n\n")
	sb.WriteString("| Component | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Entry equity | %s |\n", money(t.Returns.EntryEquity)))
	sb.WriteString(fmt.Sprintf("| Entry debt | %s |\n", money(t.Returns.EntryDebt)))
	sb.WriteString(fmt.Sprintf("| Exit equity | %s |\n", money(t.Returns.ExitEquity)))
	sb.WriteString(fmt.Sprintf("| Debt paydown | %s |\n", money(t.Returns.EntryDebt-exitDebt)))
	sb.WriteString("\n")

	// Criterion breakdown
	if len(t.Criteria) > 0 {
		sb.WriteString("### Screening Criteria\n\n")
		sb.WriteString("| Criterion | Threshold | Actual | Status |\n")
		sb.WriteString("|-----------|-----------|--------|--------|\n")
		for _, c := range t.Criteria {
			status := "FAIL"
			if c.Pass {
				status = "PASS"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", c.Name, c.Threshold, c.Actual, status))
		}
		sb.WriteString("\n")
	}

	// Returns grids
	if t.Grid != nil {
		sb.WriteString("### IRR Sensitivity\n\n")
		renderGrid(sb, t.Grid, func(c cellValue) string {
			return fmt.Sprintf("%.1f%%", c.irr*100)
		})
		sb.WriteString("### MOIC Sensitivity\n\n")
		renderGrid(sb, t.Grid, func(c cellValue) string {
			return fmt.Sprintf("%.2fx", c.moic)
		})
	}
}

type cellValue struct {
	irr  float64
	moic float64
}

// renderGrid writes one entry x exit table. Rows are entry multiples,
// columns exit multiples, matching the heatmap orientation: y entry,
// x exit.
func renderGrid(sb *strings.Builder, g *SensitivityGrid, format func(cellValue) string) {
	sb.WriteString("| Entry \\ Exit |")
	for _, exit := range g.ExitMultiples {
		sb.WriteString(fmt.Sprintf(" %.2fx |", exit))
	}
	sb.WriteString("\n|---|")
	for range g.ExitMultiples {
		sb.WriteString("---|")
	}
	sb.WriteString("\n")

	for i, entry := range g.EntryMultiples {
		sb.WriteString(fmt.Sprintf("| %.2fx |", entry))
		for j := range g.ExitMultiples {
			cell := g.Cells[i][j]
			if cell.Defined {
				sb.WriteString(" " + format(cellValue{irr: cell.IRR, moic: cell.MOIC}) + " |")
			} else {
				sb.WriteString(" n/a |")
			}
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

func money(v float64) string {
	return fmt.Sprintf("$%.1fM", v/1e6)
}

func figureMultiple(f domain.Figure) string {
	if !f.Defined {
		return "n/a"
	}
	return fmt.Sprintf("%.2fx", f.Value)
}

func figurePercent(f domain.Figure) string {
	if !f.Defined {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", f.Value*100)
}
