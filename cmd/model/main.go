package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/lbo"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage"
	pgstore "github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage/postgres"
)

func main() {
	godotenv.Load()

	ticker := flag.String("ticker", "", "Candidate ticker (required)")

	// Candidate profile. Unset metrics stay undefined; with --from-store
	// a set flag overrides the stored value.
	ebitda := flag.Float64("ebitda", math.NaN(), "LTM EBITDA in USD millions")
	evEBITDA := flag.Float64("ev-ebitda", math.NaN(), "Entry EV/EBITDA multiple")
	netDebtEBITDA := flag.Float64("net-debt-ebitda", math.NaN(), "Current net debt / EBITDA")
	cagr := flag.Float64("cagr", math.NaN(), "Revenue CAGR as a fraction (0.06 = 6%)")
	marginStdDev := flag.Float64("margin-stddev", math.NaN(), "EBITDA margin standard deviation")
	capexPct := flag.Float64("capex-pct", math.NaN(), "Capex as a fraction of sales")

	// Deal assumptions.
	horizon := flag.Int("horizon", domain.DefaultAssumptions.HorizonYears, "Hold period in years")
	leverage := flag.Float64("leverage", domain.DefaultAssumptions.LeverageMultiple, "Entry debt as a multiple of LTM EBITDA")
	exitPremium := flag.Float64("exit-premium", domain.DefaultAssumptions.ExitPremium, "Exit multiple premium over entry (turns)")
	interestRate := flag.Float64("interest-rate", domain.DefaultAssumptions.InterestRate, "Blended interest rate on debt")
	taxRate := flag.Float64("tax-rate", domain.DefaultAssumptions.TaxRate, "Cash tax rate")

	fromStore := flag.Bool("from-store", false, "Load the candidate's latest stored snapshot")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("APERTURE_STORAGE_POSTGRES_DSN"), "PostgreSQL connection string (with --from-store)")
	outputJSON := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	logger := logrus.New()

	if *ticker == "" {
		logger.Fatal("--ticker is required")
	}
	*ticker = strings.ToUpper(*ticker)

	ctx := context.Background()

	profile := domain.FundamentalMetrics{}
	if *fromStore {
		if *postgresDSN == "" {
			logger.Fatal("--postgres-dsn is required with --from-store")
		}
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("connect to postgres: %v", err)
		}
		defer pool.Close()

		snap, err := pgstore.NewSnapshotStore(pool).GetLatestByTicker(ctx, *ticker)
		if errors.Is(err, storage.ErrNotFound) {
			logger.Fatalf("no stored snapshot for %s", *ticker)
		}
		if err != nil {
			logger.Fatalf("load snapshot for %s: %v", *ticker, err)
		}
		profile = snap.Metrics
	}
	profile.Ticker = *ticker

	if !math.IsNaN(*ebitda) {
		profile.LTMEBITDA = domain.NewFigure(*ebitda * 1e6)
	}
	if !math.IsNaN(*evEBITDA) {
		profile.EVEBITDA = domain.NewFigure(*evEBITDA)
	}
	if !math.IsNaN(*netDebtEBITDA) {
		profile.NetDebtEBITDA = domain.NewFigure(*netDebtEBITDA)
	}
	if !math.IsNaN(*cagr) {
		profile.RevenueCAGR = domain.NewFigure(*cagr)
	}
	if !math.IsNaN(*marginStdDev) {
		profile.EBITDAMarginStdDev = domain.NewFigure(*marginStdDev)
	}
	if !math.IsNaN(*capexPct) {
		profile.CapexPctSales = domain.NewFigure(*capexPct)
	}

	assumptions := domain.Assumptions{
		HorizonYears:     *horizon,
		LeverageMultiple: *leverage,
		ExitPremium:      *exitPremium,
		InterestRate:     *interestRate,
		TaxRate:          *taxRate,
	}

	model, err := lbo.New(profile, assumptions)
	if err != nil {
		logger.Fatalf("model: %v", err)
	}

	returns, ok := model.Base()
	if !ok {
		logger.Fatalf("base case undefined for %s: missing entry multiple, missing LTM EBITDA, or non-positive entry equity", *ticker)
	}
	matrix, hasMatrix := model.Sensitivity()

	if *outputJSON {
		out := modelOutput{
			Ticker:      *ticker,
			Assumptions: assumptions,
			Returns:     returns,
		}
		if hasMatrix {
			out.Sensitivity = &matrix
		}
		encoded, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(encoded))
		return
	}

	printReturns(profile, assumptions, returns)
	if hasMatrix {
		fmt.Println()
		printGrid("IRR sensitivity (entry \\ exit):", matrix, func(c domain.SensitivityCell) string {
			return fmt.Sprintf("%.1f%%", c.IRR*100)
		})
		fmt.Println()
		printGrid("MOIC sensitivity (entry \\ exit):", matrix, func(c domain.SensitivityCell) string {
			return fmt.Sprintf("%.2fx", c.MOIC)
		})
	}
}

// modelOutput is the --json payload.
type modelOutput struct {
	Ticker      string                    `json:"ticker"`
	Assumptions domain.Assumptions        `json:"assumptions"`
	Returns     domain.ReturnsResult      `json:"returns"`
	Sensitivity *domain.SensitivityMatrix `json:"sensitivity,omitempty"`
}

// printReturns outputs the human-readable base case.
func printReturns(profile domain.FundamentalMetrics, a domain.Assumptions, r domain.ReturnsResult) {
	fmt.Println()
	fmt.Printf("=== LBO Model: %s ===\n", r.Ticker)
	fmt.Println()

	fmt.Println("Assumptions:")
	fmt.Printf("  Horizon:           %d years\n", a.HorizonYears)
	fmt.Printf("  Leverage:          %.2fx EBITDA\n", a.LeverageMultiple)
	fmt.Printf("  Exit premium:      %+.2fx\n", a.ExitPremium)
	fmt.Printf("  Interest rate:     %.1f%%\n", a.InterestRate*100)
	fmt.Printf("  Tax rate:          %.1f%%\n", a.TaxRate*100)
	fmt.Println()

	fmt.Println("Entry:")
	fmt.Printf("  LTM EBITDA:        %s\n", money(profile.LTMEBITDA.Value))
	fmt.Printf("  EV/EBITDA:         %.2fx\n", r.EntryMultiple)
	fmt.Printf("  Enterprise value:  %s\n", money(r.EntryEV))
	fmt.Printf("  New debt:          %s\n", money(r.EntryDebt))
	fmt.Printf("  Sponsor equity:    %s\n", money(r.EntryEquity))
	fmt.Println()

	fmt.Printf("Exit (year %d):\n", a.HorizonYears)
	fmt.Printf("  Exit multiple:     %.2fx\n", r.ExitMultiple)
	fmt.Printf("  Enterprise value:  %s\n", money(r.ExitEV))
	fmt.Printf("  Equity value:      %s\n", money(r.ExitEquity))
	fmt.Println()

	fmt.Println("Returns:")
	fmt.Printf("  MOIC:              %.2fx\n", r.MOIC)
	fmt.Printf("  IRR:               %.1f%%\n", r.IRR*100)
}

// printGrid outputs one sensitivity table with entry multiples as rows
// and exit multiples as columns.
func printGrid(title string, m domain.SensitivityMatrix, format func(domain.SensitivityCell) string) {
	fmt.Println(title)
	fmt.Printf("%8s", "")
	for _, exit := range m.ExitMultiples {
		fmt.Printf("%9s", fmt.Sprintf("%.2fx", exit))
	}
	fmt.Println()
	for i, entry := range m.EntryMultiples {
		fmt.Printf("%8s", fmt.Sprintf("%.2fx", entry))
		for j := range m.ExitMultiples {
			cell := m.Cells[i][j]
			value := "n/a"
			if cell.Defined {
				value = format(cell)
			}
			fmt.Printf("%9s", value)
		}
		fmt.Println()
	}
}

func money(v float64) string {
	return fmt.Sprintf("$%.1fM", v/1e6)
}
