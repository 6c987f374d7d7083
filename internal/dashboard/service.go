// Package dashboard is the boundary between the upstream APIs and the
// presentation layer. Reads go through the cache store; recoverable
// upstream failures degrade to empty data and only missing credentials
// fail hard.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"alpha_dashboard/internal/align"
	"alpha_dashboard/internal/cache"
	"alpha_dashboard/internal/config"
	"alpha_dashboard/internal/history"
	"alpha_dashboard/internal/market"
	"alpha_dashboard/internal/metrics"
	"alpha_dashboard/internal/models"
	"alpha_dashboard/internal/reasoning"
	"alpha_dashboard/internal/reconstruct"
	"alpha_dashboard/internal/series"
	"alpha_dashboard/internal/storage"

	"github.com/rs/zerolog"
)

// ReasoningFeed supplies the free-text notes shown in the activity timeline.
type ReasoningFeed interface {
	Fetch(ctx context.Context) ([]models.ReasoningEntry, error)
}

type Service struct {
	broker       market.Broker
	bars         market.BarSource // nil when no bar provider is configured
	store        *cache.Store
	files        *storage.Store
	history      *history.Fetcher
	reasoning    ReasoningFeed
	placeholders *reconstruct.PlaceholderGenerator
	metrics      *metrics.Recorder
	log          zerolog.Logger
	now          func() time.Time

	benchmarks   []string
	startingCash float64
	minTrusted   float64
	extend       series.ExtendOptions
	rangeBuffer  time.Duration
	logLimit     int
	fanOut       int

	mu     sync.RWMutex
	latest *Snapshot
}

type Option func(*Service)

func WithClock(now func() time.Time) Option  { return func(s *Service) { s.now = now } }
func WithLogger(l zerolog.Logger) Option     { return func(s *Service) { s.log = l } }
func WithMetrics(r *metrics.Recorder) Option { return func(s *Service) { s.metrics = r } }
func WithHistory(f *history.Fetcher) Option  { return func(s *Service) { s.history = f } }

func WithPlaceholders(g *reconstruct.PlaceholderGenerator) Option {
	return func(s *Service) { s.placeholders = g }
}

// WithReasoning sets the notes feed. A nil *reasoning.Client is accepted
// and yields no notes.
func WithReasoning(feed ReasoningFeed) Option {
	return func(s *Service) {
		if c, ok := feed.(*reasoning.Client); ok && c == nil {
			return
		}
		s.reasoning = feed
	}
}

func New(cfg *config.Config, broker market.Broker, bars market.BarSource, store *cache.Store, files *storage.Store, opts ...Option) *Service {
	s := &Service{
		broker:       broker,
		bars:         bars,
		store:        store,
		files:        files,
		log:          zerolog.Nop(),
		now:          time.Now,
		benchmarks:   upper(cfg.Bars.Benchmarks),
		startingCash: cfg.Series.StartingCash,
		minTrusted:   cfg.Series.MinTrustedValue,
		extend: series.ExtendOptions{
			StaleAfter: cfg.Series.StaleAfter,
			MaxHours:   cfg.Series.MaxExtendHours,
			MinValue:   cfg.Series.MinTrustedValue,
		},
		rangeBuffer: cfg.Series.RangeBuffer,
		logLimit:    100,
		fanOut:      4,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.placeholders == nil {
		s.placeholders = reconstruct.NewPlaceholderGenerator(nil)
	}
	if s.history == nil {
		s.history = history.NewFetcher(broker, store,
			history.WithStartingCash(s.startingCash),
			history.WithClock(s.now),
			history.WithLogger(s.log),
			history.WithMetrics(s.metrics),
		)
	}
	return s
}

func upper(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		if sym = strings.ToUpper(strings.TrimSpace(sym)); sym != "" {
			out = append(out, sym)
		}
	}
	return out
}

// Benchmarks lists the configured benchmark symbols.
func (s *Service) Benchmarks() []string { return append([]string(nil), s.benchmarks...) }

// cached serves key from the store while fresh, otherwise fetches and
// replaces the entry. Failed fetches leave the old entry alone.
func cached[T any](s *Service, key string, fetch func() (T, error)) (T, error) {
	class := string(cache.ClassOf(key))
	if v, ok := cache.Lookup[T](s.store, key); ok {
		s.metrics.RecordCacheLookup(class, true)
		s.log.Debug().Str("key", key).Msg("📦 Cache hit")
		return v, nil
	}
	s.metrics.RecordCacheLookup(class, false)

	v, err := fetch()
	if err != nil {
		var zero T
		return zero, err
	}
	s.store.Put(key, v)
	return v, nil
}

func (s *Service) Account(ctx context.Context) (*models.Account, error) {
	return cached(s, cache.AccountKey, func() (*models.Account, error) {
		acc, err := s.broker.GetAccount(ctx)
		if err != nil {
			return nil, fmt.Errorf("get account: %w", err)
		}
		return acc, nil
	})
}

func (s *Service) Positions(ctx context.Context) ([]models.BrokerPosition, error) {
	return cached(s, cache.PositionsKey, func() ([]models.BrokerPosition, error) {
		pos, err := s.broker.ListPositions(ctx)
		if err != nil {
			return nil, fmt.Errorf("list positions: %w", err)
		}
		return pos, nil
	})
}

// Orders lists every order newest first, with the operator's date
// corrections applied and hand-reconstructed trades merged in.
func (s *Service) Orders(ctx context.Context) ([]models.Order, error) {
	return cached(s, cache.OrdersKey, func() ([]models.Order, error) {
		orders, err := s.broker.ListOrders(ctx, market.AllOrders)
		if err != nil {
			return nil, fmt.Errorf("list orders: %w", err)
		}
		return s.correct(orders), nil
	})
}

func (s *Service) correct(orders []models.Order) []models.Order {
	if s.files == nil {
		return orders
	}
	mappings, err := s.files.LoadDateMappings()
	switch {
	case err == nil:
		if n := storage.ApplyDateMappings(orders, mappings); n > 0 {
			s.log.Info().Int("orders", n).Msg("📅 Applied trade log date corrections")
		}
	case !errors.Is(err, storage.ErrNotFound):
		s.log.Warn().Err(err).Msg("⚠️ Could not read date mappings")
	}

	trades, err := s.files.LoadInjectedTrades()
	switch {
	case err == nil:
		before := len(orders)
		orders = storage.InjectTrades(orders, trades)
		if n := len(orders) - before; n > 0 {
			s.log.Info().Int("trades", n).Msg("🔧 Injected reconstructed trades")
		}
	case !errors.Is(err, storage.ErrNotFound):
		s.log.Warn().Err(err).Msg("⚠️ Could not read reconstructed trades")
	}
	return orders
}

// EquityHistory fails only on missing credentials.
func (s *Service) EquityHistory(ctx context.Context) (models.EquitySeries, error) {
	return s.history.Fetch(ctx)
}

// BenchmarkBars never fails. A live series is preferred; when it is empty
// or the query fails, a configured benchmark falls back to its snapshot
// file. Anything else yields an empty series.
func (s *Service) BenchmarkBars(ctx context.Context, symbol string, start, end time.Time) models.BarSeries {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	key := cache.BarsKey(symbol, start, end)
	if v, ok := cache.Lookup[models.BarSeries](s.store, key); ok {
		s.metrics.RecordCacheLookup(string(cache.ClassBars), true)
		return v
	}
	s.metrics.RecordCacheLookup(string(cache.ClassBars), false)

	bars, err := s.liveBars(ctx, symbol, start, end)
	if err == nil && len(bars) > 0 {
		out := models.BarSeries{Symbol: symbol, Bars: bars, Source: models.SourceLive}
		s.store.Put(key, out)
		s.metrics.RecordBars(symbol, string(models.SourceLive))
		return out
	}
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("⚠️ Benchmark fetch failed")
	}

	if !s.isBenchmark(symbol) || s.files == nil {
		return models.BarSeries{Symbol: symbol}
	}
	snap, err := s.files.LoadSnapshot(symbol)
	if err != nil || len(snap) == 0 {
		s.log.Error().Err(err).Str("symbol", symbol).Msg("❌ No benchmark data and no fallback snapshot")
		return models.BarSeries{Symbol: symbol}
	}
	// snapshot files may list bars in any order
	out := models.BarSeries{Symbol: symbol, Bars: align.SortBars(snap), Source: models.SourceSnapshot}
	s.store.Put(key, out)
	s.metrics.RecordBars(symbol, string(models.SourceSnapshot))
	s.log.Info().Str("symbol", symbol).Int("bars", len(snap)).Msg("🗄️ Using fallback snapshot")
	return out
}

// SymbolBars is a single live query. An empty answer is returned as an
// empty series and is not cached.
func (s *Service) SymbolBars(ctx context.Context, symbol string, start, end time.Time) (models.BarSeries, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	key := cache.BarsKey(symbol, start, end)
	if v, ok := cache.Lookup[models.BarSeries](s.store, key); ok {
		s.metrics.RecordCacheLookup(string(cache.ClassBars), true)
		return v, nil
	}
	s.metrics.RecordCacheLookup(string(cache.ClassBars), false)

	bars, err := s.liveBars(ctx, symbol, start, end)
	if err != nil {
		return models.BarSeries{Symbol: symbol}, fmt.Errorf("bars for %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return models.BarSeries{Symbol: symbol}, nil
	}
	out := models.BarSeries{Symbol: symbol, Bars: bars, Source: models.SourceLive}
	s.store.Put(key, out)
	s.metrics.RecordBars(symbol, string(models.SourceLive))
	return out, nil
}

var errNoBarSource = errors.New("no bar provider configured")

func (s *Service) liveBars(ctx context.Context, symbol string, start, end time.Time) ([]models.Bar, error) {
	if s.bars == nil {
		return nil, errNoBarSource
	}
	return s.bars.GetHourlyBars(ctx, symbol, start, end)
}

func (s *Service) isBenchmark(symbol string) bool {
	for _, b := range s.benchmarks {
		if b == symbol {
			return true
		}
	}
	return false
}

// CacheStatus reports every cached key with its age and freshness.
func (s *Service) CacheStatus() []cache.EntryStatus {
	return s.store.Summary()
}

// Latest returns the snapshot of the last completed refresh, or nil.
func (s *Service) Latest() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func (s *Service) setLatest(snap *Snapshot) {
	s.mu.Lock()
	s.latest = snap
	s.mu.Unlock()
}
