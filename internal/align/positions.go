package align

import (
	"math"
	"sort"
	"strings"
	"time"

	"alpha_dashboard/internal/models"
)

type quantityEvent struct {
	at     time.Time
	symbol string
	after  float64
}

// QuantityTimeline is the running share count per symbol, built by replaying
// filled orders in effective-time order.
type QuantityTimeline struct {
	events []quantityEvent
}

func NewQuantityTimeline(orders []models.Order) *QuantityTimeline {
	filled := filledByTime(orders)
	held := make(map[string]float64)
	events := make([]quantityEvent, 0, len(filled))
	for _, o := range filled {
		sym := strings.ToUpper(o.Symbol)
		switch strings.ToLower(o.Side) {
		case models.SideBuy:
			held[sym] += o.FilledQuantity()
		case models.SideSell:
			held[sym] -= o.FilledQuantity()
		default:
			continue
		}
		events = append(events, quantityEvent{at: o.EffectiveTime(), symbol: sym, after: held[sym]})
	}
	return &QuantityTimeline{events: events}
}

// At returns the quantity of every symbol traded at or before t.
func (q *QuantityTimeline) At(t time.Time) map[string]float64 {
	out := make(map[string]float64)
	for _, e := range q.events {
		if e.at.After(t) {
			break
		}
		out[e.symbol] = e.after
	}
	return out
}

func filledByTime(orders []models.Order) []models.Order {
	out := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if o.IsFilled() {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EffectiveTime().Before(out[j].EffectiveTime()) })
	return out
}

// HoldingPeriods spans, per symbol, the first buy at or after historyStart to
// the last sell. Buys before the history began are pre-history and ignored;
// a symbol with no such buy has no period.
func HoldingPeriods(orders []models.Order, historyStart time.Time) map[string]models.HoldingPeriod {
	out := make(map[string]models.HoldingPeriod)
	lastSell := make(map[string]time.Time)
	for _, o := range filledByTime(orders) {
		sym := strings.ToUpper(o.Symbol)
		at := o.EffectiveTime()
		switch strings.ToLower(o.Side) {
		case models.SideBuy:
			if _, ok := out[sym]; !ok && !at.Before(historyStart) {
				out[sym] = models.HoldingPeriod{Symbol: sym, FirstBuy: at}
			}
		case models.SideSell:
			lastSell[sym] = at // ascending, so the last write is the latest
		}
	}
	for sym, p := range out {
		if at, ok := lastSell[sym]; ok {
			p.LastSell = &at
			out[sym] = p
		}
	}
	return out
}

// PositionValues is the per-symbol market value of holdings at one chart point.
type PositionValues struct {
	DayKey string             `json:"day"`
	Time   time.Time          `json:"time"`
	Total  float64            `json:"total"`
	Values map[string]float64 `json:"values"`
}

// HistoricalValues values every symbol inside its holding period at each
// point as |quantity x nearest-prior close|. Symbols without bars are skipped.
func HistoricalValues(points []models.DownsampledPoint, timeline *QuantityTimeline, bars map[string][]models.Bar, periods map[string]models.HoldingPeriod) []PositionValues {
	out := make([]PositionValues, 0, len(points))
	for _, p := range points {
		row := PositionValues{DayKey: p.DayKey, Time: p.Time, Total: p.Value, Values: map[string]float64{}}
		for sym, qty := range timeline.At(p.Time) {
			period, ok := periods[sym]
			if !ok || !period.Contains(p.Time) || qty == 0 {
				continue
			}
			bar, ok := NearestPrior(bars[sym], p.Time)
			if !ok {
				continue
			}
			row.Values[sym] = math.Abs(qty * bar.Close)
		}
		out = append(out, row)
	}
	return out
}

// CurrentValues values only the symbols still held at the broker. A symbol
// with no bars is marked at the position's current price. Points before the
// earliest buy of a currently held symbol, or holding none of them, are dropped.
func CurrentValues(points []models.DownsampledPoint, timeline *QuantityTimeline, positions []models.BrokerPosition, bars map[string][]models.Bar, orders []models.Order) []PositionValues {
	marks := make(map[string]float64, len(positions))
	for _, pos := range positions {
		marks[strings.ToUpper(pos.Symbol)] = pos.CurrentPrice.InexactFloat64()
	}

	var earliest time.Time
	for _, o := range filledByTime(orders) {
		if _, held := marks[strings.ToUpper(o.Symbol)]; held && strings.ToLower(o.Side) == models.SideBuy {
			earliest = o.EffectiveTime()
			break
		}
	}
	if earliest.IsZero() {
		return nil
	}

	var out []PositionValues
	for _, p := range points {
		if p.Time.Before(earliest) {
			continue
		}
		row := PositionValues{DayKey: p.DayKey, Time: p.Time, Total: p.Value, Values: map[string]float64{}}
		active := false
		for sym, qty := range timeline.At(p.Time) {
			mark, held := marks[sym]
			if !held || qty == 0 {
				continue
			}
			active = true
			if bar, ok := NearestPrior(bars[sym], p.Time); ok {
				row.Values[sym] = math.Abs(qty * bar.Close)
			} else if mark != 0 {
				row.Values[sym] = math.Abs(qty * mark)
			}
		}
		if active {
			out = append(out, row)
		}
	}
	return out
}
