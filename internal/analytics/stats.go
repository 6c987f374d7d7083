package analytics

import (
	"strings"
	"time"

	"alpha_dashboard/internal/models"
)

// DefaultWeekBase is used when there is no history to measure against.
const DefaultWeekBase = 100000.0

type Return struct {
	Base    float64 `json:"base"`
	Percent float64 `json:"percent"`
	Dollar  float64 `json:"dollar"`
}

func returnFrom(base, current float64) Return {
	r := Return{Base: base, Dollar: current - base}
	if base > 0 {
		r.Percent = (current - base) / base * 100
	}
	return r
}

type Stats struct {
	PortfolioValue float64 `json:"portfolio_value"`
	Day            Return  `json:"day"`   // last 48 hours
	Week           Return  `json:"week"`  // since the first chart point
	Month          Return  `json:"month"` // last 30 days

	WinRate           float64 `json:"win_rate"`
	ClosedSymbols     int     `json:"closed_symbols"`
	ProfitableSymbols int     `json:"profitable_symbols"`

	MarketExposure float64 `json:"market_exposure"`
	UnrealizedPnL  float64 `json:"unrealized_pnl"`

	// PositionPnL covers current holdings, HistoricalPnL every traded symbol.
	PositionPnL   map[string]float64 `json:"position_pnl_pct"`
	HistoricalPnL map[string]float64 `json:"historical_pnl_pct"`
}

// ComputeStats derives the headline numbers. history is the two-per-day
// chart series, oldest first.
func ComputeStats(account models.Account, positions []models.BrokerPosition, log []TradeEntry, history []models.DownsampledPoint, now time.Time) Stats {
	pv := account.PortfolioValue.InexactFloat64()
	cash := account.Cash.InexactFloat64()

	weekBase := DefaultWeekBase
	if len(history) > 0 {
		weekBase = history[0].Value
	}
	dayBase := firstSince(history, now.Add(-48*time.Hour), weekBase)
	monthBase := firstSince(history, now.AddDate(0, 0, -30), weekBase)

	s := Stats{
		PortfolioValue: pv,
		Day:            returnFrom(dayBase, pv),
		Week:           returnFrom(weekBase, pv),
		Month:          returnFrom(monthBase, pv),
		PositionPnL:    make(map[string]float64),
		HistoricalPnL:  make(map[string]float64),
	}
	if pv != 0 {
		s.MarketExposure = (pv - cash) / pv * 100
	}

	held := make(map[string]bool, len(positions))
	for _, p := range positions {
		s.UnrealizedPnL += p.UnrealizedPL.InexactFloat64()
		sym := strings.ToUpper(p.Symbol)
		held[sym] = true
		if entry := p.AvgEntryPrice.InexactFloat64(); entry != 0 {
			s.PositionPnL[sym] = (p.CurrentPrice.InexactFloat64() - entry) / entry * 100
		}
	}

	for sym, f := range fillsBySymbol(log) {
		switch {
		case f.buys.n > 0 && f.sells.n > 0:
			s.ClosedSymbols++
			buy, sell := f.buys.mean(), f.sells.mean()
			if sell > buy {
				s.ProfitableSymbols++
			}
			if buy > 0 {
				s.HistoricalPnL[sym] = (sell - buy) / buy * 100
			}
		case f.buys.n > 0 && held[sym]:
			s.HistoricalPnL[sym] = s.PositionPnL[sym]
		}
	}
	if s.ClosedSymbols > 0 {
		s.WinRate = float64(s.ProfitableSymbols) / float64(s.ClosedSymbols) * 100
	}
	return s
}

func firstSince(points []models.DownsampledPoint, since time.Time, fallback float64) float64 {
	for _, p := range points {
		if !p.Time.Before(since) {
			return p.Value
		}
	}
	return fallback
}

type priceSum struct {
	total float64
	n     int
}

func (p priceSum) mean() float64 {
	if p.n == 0 {
		return 0
	}
	return p.total / float64(p.n)
}

type symbolFills struct{ buys, sells priceSum }

// fillsBySymbol collects plain (unweighted) fill price averages per side.
func fillsBySymbol(log []TradeEntry) map[string]*symbolFills {
	out := make(map[string]*symbolFills)
	for _, e := range log {
		if e.Status != models.StatusFilled || e.Price == nil || e.Symbol == "" {
			continue
		}
		f := out[e.Symbol]
		if f == nil {
			f = &symbolFills{}
			out[e.Symbol] = f
		}
		switch e.Action {
		case "BUY":
			f.buys.total += *e.Price
			f.buys.n++
		case "SELL":
			f.sells.total += *e.Price
			f.sells.n++
		}
	}
	return out
}
