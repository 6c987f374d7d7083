package series

import (
	"time"

	"alpha_dashboard/internal/models"
)

type ExtendOptions struct {
	StaleAfter time.Duration // gap that triggers extension
	MaxHours   int           // cap on interpolated hourly points
	MinValue   float64       // current values at or below this are not trusted
}

func DefaultExtendOptions() ExtendOptions {
	return ExtendOptions{StaleAfter: 6 * time.Hour, MaxHours: 72, MinValue: 1000}
}

// ExtendToNow bridges a stale tail up to now. Hourly points interpolate
// linearly between the last sample and current, and a final point at now
// carries current itself. An empty series is bridged from 24h ago at a
// flat current value.
func ExtendToNow(points []models.EquityPoint, current float64, now time.Time, opts ExtendOptions) []models.EquityPoint {
	if current <= opts.MinValue {
		return points
	}

	start := now.Add(-24 * time.Hour)
	lastValue := current
	if n := len(points); n > 0 {
		start = points[n-1].Time
		lastValue = points[n-1].Equity
	}
	if len(points) > 0 && now.Sub(start) <= opts.StaleAfter {
		return points
	}

	gap := now.Sub(start)
	if gap <= 0 {
		return points
	}

	out := make([]models.EquityPoint, len(points), len(points)+opts.MaxHours+1)
	copy(out, points)

	hours := int((gap + time.Hour - 1) / time.Hour)
	if hours > opts.MaxHours {
		hours = opts.MaxHours
	}
	for i := 1; i <= hours; i++ {
		ts := start.Add(time.Duration(i) * time.Hour)
		if !ts.Before(now) {
			break
		}
		progress := float64(ts.Sub(start)) / float64(gap)
		out = append(out, models.EquityPoint{Time: ts, Equity: lastValue + (current-lastValue)*progress})
	}
	return append(out, models.EquityPoint{Time: now, Equity: current})
}

// DayChange is a downsampled point with the change from the previous point.
type DayChange struct {
	models.DownsampledPoint
	Change float64 `json:"change"`
}

// WithChange annotates each point with its delta against the previous one.
func WithChange(points []models.DownsampledPoint) []DayChange {
	out := make([]DayChange, len(points))
	for i, p := range points {
		out[i] = DayChange{DownsampledPoint: p}
		if i > 0 {
			out[i].Change = p.Value - points[i-1].Value
		}
	}
	return out
}
