package reconstruct

import (
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"alpha_dashboard/internal/models"
)

const (
	defaultEntryPrice = 100.0
	defaultDrift      = 1.05 // assumed exit when the position is still open
	waveAmplitude     = 0.03
	waveCycles        = 4
	noiseBand         = 0.01 // total width, so +/-0.5% of entry
)

// PlaceholderGenerator draws cosmetic hourly bars for a traded symbol that
// has no real price data. The output only keeps charts populated. It is not
// a price history and must never be used for valuation or cached as market
// data.
type PlaceholderGenerator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewPlaceholderGenerator(rnd *rand.Rand) *PlaceholderGenerator {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &PlaceholderGenerator{rnd: rnd}
}

// Generate returns false when the symbol was never bought.
func (g *PlaceholderGenerator) Generate(symbol string, orders []models.Order, end time.Time) (models.BarSeries, bool) {
	var buys, sells []models.Order
	for _, o := range orders {
		if !strings.EqualFold(o.Symbol, symbol) {
			continue
		}
		switch strings.ToLower(o.Side) {
		case models.SideBuy:
			buys = append(buys, o)
		case models.SideSell:
			sells = append(sells, o)
		}
	}
	if len(buys) == 0 {
		return models.BarSeries{}, false
	}
	byTime := func(s []models.Order) {
		sort.SliceStable(s, func(i, j int) bool { return s[i].EffectiveTime().Before(s[j].EffectiveTime()) })
	}
	byTime(buys)
	byTime(sells)

	start := buys[0].EffectiveTime()
	entry := defaultEntryPrice
	if p, ok := buys[0].FillPrice(); ok {
		entry = p
	}

	exitAt := end
	exit := entry * defaultDrift
	if len(sells) > 0 {
		last := sells[len(sells)-1]
		exitAt = last.EffectiveTime()
		exit = entry
		if p, ok := last.FillPrice(); ok {
			exit = p
		}
	}

	hours := int(exitAt.Sub(start) / time.Hour)
	if hours < 1 {
		hours = 1
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	bars := make([]models.Bar, 0, hours+1)
	for i := 0; i <= hours; i++ {
		t := float64(i) / float64(hours)
		trend := entry + (exit-entry)*t
		wave := entry * waveAmplitude * math.Sin(2*math.Pi*waveCycles*t)
		noise := (g.rnd.Float64() - 0.5) * entry * noiseBand
		bars = append(bars, models.Bar{
			Time:  start.Add(time.Duration(i) * time.Hour),
			Close: roundCents(trend + wave + noise),
		})
	}

	return models.BarSeries{Symbol: strings.ToUpper(symbol), Bars: bars, Source: models.SourcePlaceholder}, true
}
