package history

import (
	"context"
	"errors"
	"time"

	"alpha_dashboard/internal/cache"
	"alpha_dashboard/internal/config"
	"alpha_dashboard/internal/market"
	"alpha_dashboard/internal/metrics"
	"alpha_dashboard/internal/models"
	"alpha_dashboard/internal/reconstruct"

	"github.com/rs/zerolog"
)

const (
	SourceReconstructed = "reconstructed"
	SourceEmpty         = "empty"
)

// OrderLister feeds the reconstruction step.
type OrderLister interface {
	ListOrders(ctx context.Context, q market.OrderQuery) ([]models.Order, error)
}

type Fetcher struct {
	chain        Chain
	orders       OrderLister
	store        *cache.Store
	startingCash float64
	now          func() time.Time
	log          zerolog.Logger
	metrics      *metrics.Recorder
}

type Option func(*Fetcher)

func WithStartingCash(v float64) Option      { return func(f *Fetcher) { f.startingCash = v } }
func WithClock(now func() time.Time) Option  { return func(f *Fetcher) { f.now = now } }
func WithLogger(l zerolog.Logger) Option     { return func(f *Fetcher) { f.log = l } }
func WithMetrics(r *metrics.Recorder) Option { return func(f *Fetcher) { f.metrics = r } }
func WithChain(c Chain) Option               { return func(f *Fetcher) { f.chain = c } }

// NewFetcher wires the default provider chain over broker.
func NewFetcher(broker market.Broker, store *cache.Store, opts ...Option) *Fetcher {
	f := &Fetcher{
		chain:        ProviderSteps(broker),
		orders:       broker,
		store:        store,
		startingCash: 100000,
		now:          time.Now,
		log:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the equity curve, serving a fresh cached copy when present.
// It fails only on missing credentials; everything else degrades to a
// reconstructed or empty series.
func (f *Fetcher) Fetch(ctx context.Context) (models.EquitySeries, error) {
	if s, ok := cache.Lookup[models.EquitySeries](f.store, cache.HistoryKey); ok {
		f.metrics.RecordCacheLookup(string(cache.ClassHistory), true)
		f.log.Debug().Str("source", s.Source).Int("points", len(s.Points)).Msg("📦 Portfolio history: using cached data")
		return s, nil
	}
	f.metrics.RecordCacheLookup(string(cache.ClassHistory), false)

	best, _, err := f.chain.Run(ctx, f.log, f.metrics)
	if err != nil {
		return models.EquitySeries{}, err
	}
	if best.OK() {
		s := models.EquitySeries{Points: best.Points, Source: best.Step}
		f.store.Put(cache.HistoryKey, s)
		return s, nil
	}

	f.log.Warn().Msg("⚠️ Portfolio history: all broker queries failed, reconstructing from orders")
	return f.reconstruct(ctx)
}

func (f *Fetcher) reconstruct(ctx context.Context) (models.EquitySeries, error) {
	empty := models.EquitySeries{Source: SourceEmpty}

	orders, err := f.orders.ListOrders(ctx, market.FilledOrdersAsc)
	if errors.Is(err, config.ErrMissingCredentials) {
		return models.EquitySeries{}, err
	}
	if err != nil {
		f.metrics.RecordHistoryStep(SourceReconstructed, "failed")
		f.log.Error().Err(err).Msg("❌ Portfolio reconstruction failed: could not list orders")
		f.store.Put(cache.HistoryKey, empty)
		return empty, nil
	}
	if len(orders) == 0 {
		f.metrics.RecordHistoryStep(SourceReconstructed, "no_orders")
		f.log.Warn().Msg("❌ No filled orders found, returning empty history")
		return empty, nil
	}

	points, err := reconstruct.Equity(orders, f.startingCash, f.now())
	if err != nil {
		f.metrics.RecordHistoryStep(SourceReconstructed, "failed")
		f.log.Error().Err(err).Msg("❌ Portfolio reconstruction failed")
		f.store.Put(cache.HistoryKey, empty)
		return empty, nil
	}
	if len(points) == 0 {
		f.metrics.RecordHistoryStep(SourceReconstructed, "no_orders")
		return empty, nil
	}

	f.metrics.RecordHistoryStep(SourceReconstructed, "ok")
	f.log.Info().Int("points", len(points)).Msg("✅ Portfolio history: reconstructed from orders")
	s := models.EquitySeries{Points: points, Source: SourceReconstructed}
	f.store.Put(cache.HistoryKey, s)
	return s, nil
}
