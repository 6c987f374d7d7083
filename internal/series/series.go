// Package series turns raw time-value samples into chart-ready daily series.
//
// All day arithmetic is done in UTC so the portfolio curve and benchmark bars
// agree on which calendar day a sample belongs to.
package series

import (
	"sort"
	"time"

	"alpha_dashboard/internal/models"
)

// Point is a generic sample. Equity points and bars are both converted to it.
type Point struct {
	Time  time.Time
	Value float64
}

// FillHourUTC is the clock time given to days that had no sample.
const FillHourUTC = 16

// DayKey formats t as its UTC calendar day.
func DayKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

func dayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func FromEquity(points []models.EquityPoint) []Point {
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = Point{Time: p.Time, Value: p.Equity}
	}
	return out
}

func FromBars(bars []models.Bar) []Point {
	out := make([]Point, len(bars))
	for i, b := range bars {
		out[i] = Point{Time: b.Time, Value: b.Close}
	}
	return out
}

// TrustedEquity drops samples at or below min. Near-zero equity values come
// from account resets and would flatten every chart.
func TrustedEquity(points []models.EquityPoint, min float64) []models.EquityPoint {
	out := make([]models.EquityPoint, 0, len(points))
	for _, p := range points {
		if p.Equity > min {
			out = append(out, p)
		}
	}
	return out
}

func sorted(points []Point) []Point {
	out := make([]Point, len(points))
	copy(out, points)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

// groupByDay returns the distinct days in order together with their samples.
func groupByDay(points []Point) ([]string, map[string][]Point) {
	byDay := make(map[string][]Point)
	var days []string
	for _, p := range sorted(points) {
		k := DayKey(p.Time)
		if _, ok := byDay[k]; !ok {
			days = append(days, k)
		}
		byDay[k] = append(byDay[k], p)
	}
	return days, byDay
}

// eachDay walks every UTC day from first to last inclusive.
func eachDay(first, last string, fn func(day time.Time, key string)) {
	start, err := time.Parse(time.DateOnly, first)
	if err != nil {
		return
	}
	end, err := time.Parse(time.DateOnly, last)
	if err != nil {
		return
	}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		fn(d, d.Format(time.DateOnly))
	}
}

func carried(day time.Time, key string, value float64) models.DownsampledPoint {
	return models.DownsampledPoint{
		DayKey:    key,
		Time:      day.Add(FillHourUTC * time.Hour),
		Value:     value,
		Synthetic: true,
	}
}

func toDownsampled(p Point) models.DownsampledPoint {
	return models.DownsampledPoint{DayKey: DayKey(p.Time), Time: p.Time, Value: p.Value}
}

// OnePerDay keeps the last sample of each day and fills every missing day
// between the first and last day with the previous day's value.
// The result has exactly lastDay-firstDay+1 points with distinct day keys.
func OnePerDay(points []Point) []models.DownsampledPoint {
	days, byDay := groupByDay(points)
	if len(days) == 0 {
		return nil
	}

	var out []models.DownsampledPoint
	var last float64
	eachDay(days[0], days[len(days)-1], func(day time.Time, key string) {
		if samples, ok := byDay[key]; ok {
			p := samples[len(samples)-1]
			last = p.Value
			out = append(out, toDownsampled(p))
			return
		}
		out = append(out, carried(day, key, last))
	})
	return out
}

// TwoPerDay keeps at most two samples per day: one from the trading
// afternoon and one from the evening close. Missing days get one carried
// point, like OnePerDay.
func TwoPerDay(points []Point) []models.DownsampledPoint {
	days, byDay := groupByDay(points)
	if len(days) == 0 {
		return nil
	}

	var out []models.DownsampledPoint
	var last float64
	eachDay(days[0], days[len(days)-1], func(day time.Time, key string) {
		samples, ok := byDay[key]
		if !ok {
			out = append(out, carried(day, key, last))
			return
		}
		last = samples[len(samples)-1].Value
		for _, p := range pickTwo(samples) {
			out = append(out, toDownsampled(p))
		}
	})
	return out
}

func pickTwo(samples []Point) []Point {
	if len(samples) <= 2 {
		return samples
	}

	afternoon := samples[len(samples)/2]
	for _, p := range samples {
		if h := p.Time.UTC().Hour(); h >= 14 && h <= 16 {
			afternoon = p
			break
		}
	}

	evening := samples[len(samples)-1]
	for i := len(samples) - 1; i >= 0; i-- {
		if h := samples[i].Time.UTC().Hour(); h >= 19 && h <= 23 {
			evening = samples[i]
			break
		}
	}

	switch {
	case afternoon.Time.Equal(evening.Time):
		return []Point{afternoon}
	case afternoon.Time.Before(evening.Time):
		return []Point{afternoon, evening}
	default:
		return []Point{evening, afternoon}
	}
}

// Values extracts the plain values of a downsampled series.
func Values(points []models.DownsampledPoint) []Point {
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = Point{Time: p.Time, Value: p.Value}
	}
	return out
}
