// Package align matches bar series against portfolio timestamps.
//
// Every lookup is nearest-prior: the bar with the greatest time at or before
// the reference time. Bars must be sorted ascending; use SortBars first when
// the source order is not guaranteed.
package align

import (
	"sort"
	"time"

	"alpha_dashboard/internal/models"
)

// SortBars returns a time-ordered copy.
func SortBars(bars []models.Bar) []models.Bar {
	out := make([]models.Bar, len(bars))
	copy(out, bars)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

// NearestPrior returns the last bar at or before t. When every bar is after
// t the earliest bar is returned instead. ok is false only for empty input.
func NearestPrior(bars []models.Bar, t time.Time) (models.Bar, bool) {
	if len(bars) == 0 {
		return models.Bar{}, false
	}
	// first index strictly after t
	i := sort.Search(len(bars), func(i int) bool { return bars[i].Time.After(t) })
	if i == 0 {
		return bars[0], true
	}
	return bars[i-1], true
}

type ReturnPoint struct {
	DayKey    string    `json:"day"`
	Time      time.Time `json:"time"`
	Portfolio float64   `json:"portfolio_return"`
	Benchmark float64   `json:"benchmark_return"`
}

// CompareReturns expresses both the portfolio and the benchmark as percent
// returns from the first portfolio point, re-anchored so that point reads
// exactly zero for both curves.
func CompareReturns(portfolio []models.DownsampledPoint, bars []models.Bar) []ReturnPoint {
	if len(portfolio) == 0 || len(bars) == 0 {
		return nil
	}

	basePortfolio := portfolio[0].Value
	baseBar, _ := NearestPrior(bars, portfolio[0].Time)
	baseBench := baseBar.Close

	raw := make([]ReturnPoint, len(portfolio))
	for i, p := range portfolio {
		bar, _ := NearestPrior(bars, p.Time)
		raw[i] = ReturnPoint{
			DayKey:    p.DayKey,
			Time:      p.Time,
			Portfolio: pctChange(basePortfolio, p.Value),
			Benchmark: pctChange(baseBench, bar.Close),
		}
	}

	first := raw[0]
	for i := range raw {
		if i == 0 {
			raw[i].Portfolio, raw[i].Benchmark = 0, 0
			continue
		}
		raw[i].Portfolio -= first.Portfolio
		raw[i].Benchmark -= first.Benchmark
	}
	return raw
}

func pctChange(base, v float64) float64 {
	if base == 0 {
		return 0
	}
	return (v - base) / base * 100
}
