// Package pipeline fans the ticker universe out to the data connectors
// and assembles the per-company screening profiles. Tickers whose market
// or SEC data is unavailable are skipped and counted, never faulted; any
// other connector error aborts the pass.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/marketdata"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/metrics"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/secdata"
)

// DefaultWorkers is the fetch pool size when none is configured.
const DefaultWorkers = 10

// Result is one fetch pass over the universe. Companies carries registry
// rows assembled from the connector payloads; offline passes leave it
// empty since stored snapshots do not retain CIK or industry.
type Result struct {
	Profiles  []domain.FundamentalMetrics // sorted by ticker
	Companies []*domain.Company           // sorted by ticker, live fetches only
	Skipped   int                         // tickers dropped on absence signals
}

// ProfileSource yields screening profiles for a set of tickers.
type ProfileSource interface {
	Fetch(ctx context.Context, tickers []string) (*Result, error)
}

// Fetcher assembles profiles from the live connectors with a bounded
// worker pool. Output order is deterministic regardless of which worker
// finishes first.
type Fetcher struct {
	market  marketdata.Source
	sec     secdata.Source
	calc    *metrics.Calculator
	workers int
	logger  logrus.FieldLogger
}

// NewFetcher creates a fetcher over the two connectors.
func NewFetcher(market marketdata.Source, sec secdata.Source, calc *metrics.Calculator) *Fetcher {
	return &Fetcher{
		market:  market,
		sec:     sec,
		calc:    calc,
		workers: DefaultWorkers,
	}
}

// Compile-time interface check.
var _ ProfileSource = (*Fetcher)(nil)

// WithWorkers sets the pool size. Values below one keep the default.
func (f *Fetcher) WithWorkers(n int) *Fetcher {
	if n >= 1 {
		f.workers = n
	}
	return f
}

// WithLogger attaches a logger for per-ticker skips and the pass summary.
func (f *Fetcher) WithLogger(logger logrus.FieldLogger) *Fetcher {
	f.logger = logger
	return f
}

// Fetch resolves every ticker to a screening profile. A ticker is skipped
// when either connector reports it unavailable or when its filings carry
// no usable LTM EBITDA; the first error of any other kind cancels the
// remaining work and fails the pass.
func (f *Fetcher) Fetch(ctx context.Context, tickers []string) (*Result, error) {
	if len(tickers) == 0 {
		return &Result{}, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := f.workers
	if workers > len(tickers) {
		workers = len(tickers)
	}

	jobs := make(chan string)
	fetched := make(chan companyProfile, len(tickers))
	errc := make(chan error, 1)
	var skipped atomic.Int64

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ticker := range jobs {
				cp, ok, err := f.fetchOne(ctx, ticker)
				if err != nil {
					select {
					case errc <- err:
					default:
					}
					cancel()
					return
				}
				if !ok {
					skipped.Add(1)
					continue
				}
				fetched <- cp
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, ticker := range tickers {
			select {
			case jobs <- ticker:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	close(fetched)

	select {
	case err := <-errc:
		return nil, err
	default:
	}

	result := &Result{
		Profiles:  make([]domain.FundamentalMetrics, 0, len(fetched)),
		Companies: make([]*domain.Company, 0, len(fetched)),
		Skipped:   int(skipped.Load()),
	}
	for cp := range fetched {
		result.Profiles = append(result.Profiles, cp.profile)
		result.Companies = append(result.Companies, cp.company)
	}
	sort.Slice(result.Profiles, func(i, j int) bool {
		return result.Profiles[i].Ticker < result.Profiles[j].Ticker
	})
	sort.Slice(result.Companies, func(i, j int) bool {
		return result.Companies[i].Ticker < result.Companies[j].Ticker
	})

	if f.logger != nil {
		f.logger.WithFields(logrus.Fields{
			"tickers": len(tickers),
			"fetched": len(result.Profiles),
			"skipped": result.Skipped,
		}).Info("Fetch pass complete")
	}
	return result, nil
}

// companyProfile pairs a screening profile with its registry row.
type companyProfile struct {
	profile domain.FundamentalMetrics
	company *domain.Company
}

// fetchOne resolves a single ticker. ok false marks an absence skip.
func (f *Fetcher) fetchOne(ctx context.Context, ticker string) (companyProfile, bool, error) {
	snapshot, err := f.market.Snapshot(ctx, ticker)
	if errors.Is(err, marketdata.ErrUnavailable) {
		f.skip(ticker, "market data unavailable")
		return companyProfile{}, false, nil
	}
	if err != nil {
		return companyProfile{}, false, fmt.Errorf("market snapshot for %s: %w", ticker, err)
	}

	statements, err := f.sec.Statements(ctx, ticker)
	if errors.Is(err, secdata.ErrUnavailable) {
		f.skip(ticker, "sec filings unavailable")
		return companyProfile{}, false, nil
	}
	if err != nil {
		return companyProfile{}, false, fmt.Errorf("statements for %s: %w", ticker, err)
	}

	profile, ok := f.calc.Compute(snapshot, statements)
	if !ok {
		f.skip(ticker, "no usable ltm ebitda")
		return companyProfile{}, false, nil
	}

	return companyProfile{
		profile: profile,
		company: &domain.Company{
			Ticker:   profile.Ticker,
			CIK:      statements.CIK,
			Name:     snapshot.CompanyName,
			Sector:   snapshot.Sector,
			Industry: snapshot.Industry,
		},
	}, true, nil
}

func (f *Fetcher) skip(ticker, reason string) {
	if f.logger == nil {
		return
	}
	f.logger.WithFields(logrus.Fields{
		"ticker": ticker,
		"reason": reason,
	}).Info("Ticker skipped")
}
