package dashboard

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"alpha_dashboard/internal/align"
	"alpha_dashboard/internal/analytics"
	"alpha_dashboard/internal/config"
	"alpha_dashboard/internal/models"
	"alpha_dashboard/internal/series"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Benchmark is one index series and its return comparison with the portfolio.
type Benchmark struct {
	Series  models.BarSeries    `json:"series"`
	Returns []align.ReturnPoint `json:"returns"`
}

// Snapshot is everything the dashboard renders, computed in one cycle.
type Snapshot struct {
	CycleID     string        `json:"cycle_id"`
	GeneratedAt time.Time     `json:"generated_at"`
	Duration    time.Duration `json:"duration_ns"`

	Account   *models.Account         `json:"account"`
	Positions []models.BrokerPosition `json:"positions"`

	History models.EquitySeries       `json:"history"`
	Daily   []series.DayChange        `json:"daily"`
	Chart   []models.DownsampledPoint `json:"chart"`

	Benchmarks map[string]Benchmark        `json:"benchmarks"`
	SymbolBars map[string]models.BarSeries `json:"symbol_bars"`

	HistoricalPositions []align.PositionValues `json:"historical_positions"`
	CurrentPositions    []align.PositionValues `json:"current_positions"`

	TradeLog []analytics.TradeEntry   `json:"trade_log"`
	Timeline []analytics.TimelineItem `json:"timeline"`
	Stats    analytics.Stats          `json:"stats"`

	Warnings []string `json:"warnings,omitempty"`
}

func (snap *Snapshot) warn(log zerolog.Logger, err error, msg string) {
	log.Warn().Err(err).Msg("⚠️ " + msg)
	snap.Warnings = append(snap.Warnings, msg+": "+err.Error())
}

// Refresh runs one full cycle. Only missing credentials abort it; every
// other failure leaves its part of the snapshot empty. Concurrent calls
// are not serialised and the last one to finish wins.
func (s *Service) Refresh(ctx context.Context) (*Snapshot, error) {
	started := s.now()
	snap := &Snapshot{
		CycleID:     uuid.NewString(),
		GeneratedAt: started,
		Benchmarks:  make(map[string]Benchmark),
		SymbolBars:  make(map[string]models.BarSeries),
	}
	log := s.log.With().Str("cycle", snap.CycleID).Logger()
	log.Info().Msg("🔄 Refresh started")

	snap, err := s.refresh(ctx, log, snap)
	elapsed := s.now().Sub(started)
	if err != nil {
		s.metrics.RecordRefresh("failed", elapsed.Seconds())
		log.Error().Err(err).Msg("❌ Refresh aborted")
		return nil, err
	}
	snap.Duration = elapsed

	outcome := "ok"
	if len(snap.Warnings) > 0 {
		outcome = "degraded"
	}
	s.metrics.RecordRefresh(outcome, elapsed.Seconds())
	s.setLatest(snap)
	log.Info().Dur("took", elapsed).Int("warnings", len(snap.Warnings)).Msg("✅ Refresh complete")
	return snap, nil
}

func (s *Service) refresh(ctx context.Context, log zerolog.Logger, snap *Snapshot) (*Snapshot, error) {
	now := snap.GeneratedAt

	// Account, positions, orders and history are read one after another.
	account, err := s.Account(ctx)
	if errors.Is(err, config.ErrMissingCredentials) {
		return nil, err
	}
	if err != nil {
		snap.warn(log, err, "account unavailable")
	}
	snap.Account = account

	positions, err := s.Positions(ctx)
	if errors.Is(err, config.ErrMissingCredentials) {
		return nil, err
	}
	if err != nil {
		snap.warn(log, err, "positions unavailable")
	}
	snap.Positions = positions

	orders, err := s.Orders(ctx)
	if errors.Is(err, config.ErrMissingCredentials) {
		return nil, err
	}
	if err != nil {
		snap.warn(log, err, "orders unavailable")
	}

	hist, err := s.EquityHistory(ctx)
	if err != nil {
		return nil, err
	}

	var current float64
	if account != nil {
		current = account.PortfolioValue.InexactFloat64()
	}
	points := series.TrustedEquity(hist.Points, s.minTrusted)
	points = series.ExtendToNow(points, current, now, s.extend)
	snap.History = models.EquitySeries{Points: points, Source: hist.Source}

	raw := series.FromEquity(points)
	snap.Daily = series.WithChange(series.OnePerDay(raw))
	snap.Chart = series.TwoPerDay(raw)

	start, end := s.barRange(points, now)
	for _, sym := range s.benchmarks {
		bs := s.BenchmarkBars(ctx, sym, start, end)
		snap.Benchmarks[sym] = Benchmark{Series: bs, Returns: align.CompareReturns(snap.Chart, bs.Bars)}
	}

	traded := tradedSymbols(orders)
	live := s.fetchSymbolBars(ctx, log, traded, start, end)
	for _, sym := range traded {
		if bs, ok := live[sym]; ok {
			snap.SymbolBars[sym] = bs
			continue
		}
		if ph, ok := s.placeholders.Generate(sym, orders, now); ok {
			snap.SymbolBars[sym] = ph
			s.metrics.RecordBars(sym, string(models.SourcePlaceholder))
			log.Debug().Str("symbol", sym).Msg("🎨 Drew placeholder bars")
		}
	}

	// Valuations only ever see live closes.
	closes := make(map[string][]models.Bar, len(live))
	for sym, bs := range live {
		closes[sym] = bs.Bars
	}
	timeline := align.NewQuantityTimeline(orders)
	var historyStart time.Time
	if len(points) > 0 {
		historyStart = points[0].Time
	}
	snap.HistoricalPositions = align.HistoricalValues(snap.Chart, timeline, closes, align.HoldingPeriods(orders, historyStart))
	snap.CurrentPositions = align.CurrentValues(snap.Chart, timeline, positions, closes, orders)

	var notes []models.ReasoningEntry
	if s.reasoning != nil {
		if notes, err = s.reasoning.Fetch(ctx); err != nil {
			snap.warn(log, err, "reasoning feed unavailable")
		}
	}
	snap.TradeLog = analytics.TradeLog(orders, s.logLimit)
	snap.Timeline = analytics.Timeline(snap.TradeLog, notes)

	var acct models.Account
	if account != nil {
		acct = *account
	}
	snap.Stats = analytics.ComputeStats(acct, positions, snap.TradeLog, snap.Chart, now)
	return snap, nil
}

// barRange pads the history span by the range buffer on both sides and
// always reaches past now.
func (s *Service) barRange(points []models.EquityPoint, now time.Time) (time.Time, time.Time) {
	if len(points) == 0 {
		return now.AddDate(0, 0, -30).Add(-s.rangeBuffer), now.Add(s.rangeBuffer)
	}
	first, last := points[0].Time, points[len(points)-1].Time
	if now.After(last) {
		last = now
	}
	return first.Add(-s.rangeBuffer), last.Add(s.rangeBuffer)
}

// fetchSymbolBars queries every symbol concurrently. Failures and empty
// answers are logged and left out of the result.
func (s *Service) fetchSymbolBars(ctx context.Context, log zerolog.Logger, symbols []string, start, end time.Time) map[string]models.BarSeries {
	var (
		mu  sync.Mutex
		out = make(map[string]models.BarSeries, len(symbols))
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.fanOut)
	for _, sym := range symbols {
		sym := sym
		eg.Go(func() error {
			bs, err := s.SymbolBars(egCtx, sym, start, end)
			if err != nil {
				log.Warn().Err(err).Str("symbol", sym).Msg("⚠️ Symbol bars unavailable")
				return nil
			}
			if len(bs.Bars) == 0 {
				return nil
			}
			mu.Lock()
			out[sym] = bs
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()
	return out
}

// tradedSymbols lists every symbol with a filled order, sorted.
func tradedSymbols(orders []models.Order) []string {
	seen := make(map[string]bool)
	for _, o := range orders {
		if o.IsFilled() && o.Symbol != "" {
			seen[strings.ToUpper(o.Symbol)] = true
		}
	}
	out := make([]string, 0, len(seen))
	for sym := range seen {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
