package metrics

import (
	"math"
	"sort"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
)

// firstSeries returns the series for the first tag present in the
// statement. Tag lists are ordered by preference: filers report the same
// concept under different us-gaap tags and the earliest match wins.
func firstSeries(stmt domain.FinancialStatement, tags []string) (domain.FactSeries, bool) {
	for _, tag := range tags {
		if series, ok := stmt.Get(tag); ok {
			return series, true
		}
	}
	return domain.FactSeries{}, false
}

// sumSeries adds two series aligned by fiscal year end. The result covers
// the union of both date sets, a year missing from one side contributes
// zero, and points come back newest first.
func sumSeries(a, b domain.FactSeries) domain.FactSeries {
	byEnd := make(map[string]float64, a.Len()+b.Len())
	for _, p := range a.Points {
		byEnd[p.FiscalYearEnd] += p.Value
	}
	for _, p := range b.Points {
		byEnd[p.FiscalYearEnd] += p.Value
	}

	ends := make([]string, 0, len(byEnd))
	for end := range byEnd {
		ends = append(ends, end)
	}
	// YYYY-MM-DD sorts lexically, so reverse order is newest first.
	sort.Sort(sort.Reverse(sort.StringSlice(ends)))

	points := make([]domain.FactPoint, len(ends))
	for i, end := range ends {
		points[i] = domain.FactPoint{FiscalYearEnd: end, Value: byEnd[end]}
	}
	return domain.FactSeries{
		Concept: a.Concept + "+" + b.Concept,
		Points:  points,
	}
}

// alignInner intersects two series by fiscal year end and returns the
// paired values in a's order (newest first). Years present on only one
// side are dropped.
func alignInner(a, b domain.FactSeries) ([]float64, []float64) {
	bByEnd := make(map[string]float64, b.Len())
	for _, p := range b.Points {
		bByEnd[p.FiscalYearEnd] = p.Value
	}

	av := make([]float64, 0, a.Len())
	bv := make([]float64, 0, a.Len())
	for _, p := range a.Points {
		if v, ok := bByEnd[p.FiscalYearEnd]; ok {
			av = append(av, p.Value)
			bv = append(bv, v)
		}
	}
	return av, bv
}

// computeMean calculates arithmetic mean of values.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0 // Need at least 2 samples for sample stddev
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computeCAGR calculates the compound annual growth rate from start to end
// over the given number of years. Caller guarantees start > 0.
func computeCAGR(end, start float64, years int) float64 {
	return math.Pow(end/start, 1/float64(years)) - 1
}
