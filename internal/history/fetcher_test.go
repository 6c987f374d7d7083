package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"alpha_dashboard/internal/cache"
	"alpha_dashboard/internal/config"
	"alpha_dashboard/internal/market"
	"alpha_dashboard/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 10, 10, 15, 0, 0, 0, time.UTC)

// MockBroker implements market.Broker with testify expectations.
type MockBroker struct {
	mock.Mock
}

func (m *MockBroker) GetAccount(ctx context.Context) (*models.Account, error) {
	return nil, errors.New("not used")
}

func (m *MockBroker) ListPositions(ctx context.Context) ([]models.BrokerPosition, error) {
	return nil, errors.New("not used")
}

func (m *MockBroker) ListOrders(ctx context.Context, q market.OrderQuery) ([]models.Order, error) {
	args := m.Called(q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *MockBroker) GetPortfolioHistory(ctx context.Context, period, timeframe string) (*models.PortfolioHistory, error) {
	args := m.Called(period, timeframe)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PortfolioHistory), args.Error(1)
}

func history(values ...int64) *models.PortfolioHistory {
	h := &models.PortfolioHistory{}
	for i, v := range values {
		h.Timestamps = append(h.Timestamps, now.Add(time.Duration(i-len(values))*time.Hour).Unix())
		h.Equity = append(h.Equity, decimal.NewFromInt(v))
	}
	return h
}

func newFetcher(b *MockBroker, store *cache.Store) *Fetcher {
	return NewFetcher(b, store, WithClock(func() time.Time { return now }), WithLogger(zerolog.Nop()))
}

func TestFetch_TriesStepsInOrderAndStopsAtFirstSuccess(t *testing.T) {
	b := &MockBroker{}
	var calls []string
	record := func(args mock.Arguments) { calls = append(calls, args.String(0)+"/"+args.String(1)) }

	b.On("GetPortfolioHistory", "3M", "1H").Return(nil, errors.New("500")).Run(record).Once()
	b.On("GetPortfolioHistory", "all", "1H").Return(&models.PortfolioHistory{}, nil).Run(record).Once()
	b.On("GetPortfolioHistory", "1M", "1H").Return(history(100500, 101000), nil).Run(record).Once()

	store := cache.New(cache.WithClock(func() time.Time { return now }))
	s, err := newFetcher(b, store).Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"3M/1H", "all/1H", "1M/1H"}, calls)
	assert.Equal(t, "1M/1H", s.Source)
	require.Len(t, s.Points, 2)
	assert.Equal(t, 101000.0, s.Points[1].Equity)
	b.AssertNotCalled(t, "GetPortfolioHistory", "1M", "1D")
	b.AssertNotCalled(t, "ListOrders", mock.Anything)

	cached, ok := cache.Lookup[models.EquitySeries](store, cache.HistoryKey)
	require.True(t, ok)
	assert.Equal(t, s, cached)
}

func TestFetch_ServesFreshCache(t *testing.T) {
	b := &MockBroker{}
	store := cache.New(cache.WithClock(func() time.Time { return now }))
	want := models.EquitySeries{Points: []models.EquityPoint{{Time: now, Equity: 1}}, Source: "3M/1H"}
	store.Put(cache.HistoryKey, want)

	got, err := newFetcher(b, store).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
	b.AssertNotCalled(t, "GetPortfolioHistory", mock.Anything, mock.Anything)
}

func TestFetch_MalformedPayloadIsFailure(t *testing.T) {
	b := &MockBroker{}
	bad := history(1, 2)
	bad.Equity = bad.Equity[:1]
	b.On("GetPortfolioHistory", "3M", "1H").Return(bad, nil).Once()
	b.On("GetPortfolioHistory", "all", "1H").Return(history(100000), nil).Once()

	s, err := newFetcher(b, cache.New()).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "all/1H", s.Source)
}

func failAllSteps(b *MockBroker) {
	for _, q := range ProviderQueries {
		b.On("GetPortfolioHistory", q.Period, q.TimeFrame).Return(nil, errors.New("unavailable")).Once()
	}
}

func TestFetch_ReconstructsWhenAllStepsFail(t *testing.T) {
	b := &MockBroker{}
	failAllSteps(b)
	price := decimal.NewFromInt(100)
	filledAt := now.Add(-2 * time.Hour)
	b.On("ListOrders", market.FilledOrdersAsc).Return([]models.Order{{
		ID: "1", Symbol: "XYZ", Side: models.SideBuy, Status: models.StatusFilled,
		Qty: decimal.NewFromInt(10), FilledQty: decimal.NewFromInt(10),
		FilledAvgPrice: &price, FilledAt: &filledAt,
	}}, nil).Once()

	store := cache.New(cache.WithClock(func() time.Time { return now }))
	s, err := newFetcher(b, store).Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, SourceReconstructed, s.Source)
	assert.Len(t, s.Points, 3)
	_, ok := store.Fresh(cache.HistoryKey)
	assert.True(t, ok)
	b.AssertExpectations(t)
}

func TestFetch_NoOrdersIsEmptyAndNotCached(t *testing.T) {
	b := &MockBroker{}
	failAllSteps(b)
	b.On("ListOrders", market.FilledOrdersAsc).Return([]models.Order{}, nil).Once()

	store := cache.New()
	s, err := newFetcher(b, store).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceEmpty, s.Source)
	assert.Empty(t, s.Points)
	_, _, ok := store.Get(cache.HistoryKey)
	assert.False(t, ok)
}

func TestFetch_ReconstructionErrorIsEmptyAndCached(t *testing.T) {
	b := &MockBroker{}
	failAllSteps(b)
	filledAt := now
	b.On("ListOrders", market.FilledOrdersAsc).Return([]models.Order{{
		ID: "no-price", Symbol: "XYZ", Side: models.SideBuy, Status: models.StatusFilled, FilledAt: &filledAt,
	}}, nil).Once()

	store := cache.New()
	s, err := newFetcher(b, store).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceEmpty, s.Source)
	cached, ok := cache.Lookup[models.EquitySeries](store, cache.HistoryKey)
	require.True(t, ok)
	assert.Empty(t, cached.Points)
}

func TestFetch_MissingCredentialsAborts(t *testing.T) {
	b := &MockBroker{}
	b.On("GetPortfolioHistory", "3M", "1H").Return(nil, config.ErrMissingCredentials).Once()

	_, err := newFetcher(b, cache.New()).Fetch(context.Background())
	assert.ErrorIs(t, err, config.ErrMissingCredentials)
	b.AssertNotCalled(t, "GetPortfolioHistory", "all", "1H")
}

func TestChain_RecordsEveryAttempt(t *testing.T) {
	ok := []models.EquityPoint{{Time: now, Equity: 1}}
	chain := Chain{
		{Name: "a", Run: func(context.Context) ([]models.EquityPoint, error) { return nil, errors.New("boom") }},
		{Name: "b", Run: func(context.Context) ([]models.EquityPoint, error) { return nil, nil }},
		{Name: "c", Run: func(context.Context) ([]models.EquityPoint, error) { return ok, nil }},
		{Name: "d", Run: func(context.Context) ([]models.EquityPoint, error) { t.Fatal("ran past success"); return nil, nil }},
	}

	best, tried, err := chain.Run(context.Background(), zerolog.Nop(), nil)
	require.NoError(t, err)
	assert.Equal(t, "c", best.Step)
	require.Len(t, tried, 3)
	assert.EqualError(t, tried[0].Err, "boom")
	assert.ErrorIs(t, tried[1].Err, ErrNoData)
	assert.True(t, tried[2].OK())
}

func TestToPointsAndBack(t *testing.T) {
	h := history(100000, 100500)
	points, err := ToPoints(h)
	require.NoError(t, err)
	ts, eq := FromPoints(points)
	assert.Equal(t, h.Timestamps, ts)
	assert.Equal(t, []float64{100000, 100500}, eq)

	_, err = ToPoints(nil)
	assert.ErrorIs(t, err, ErrMalformed)
}
