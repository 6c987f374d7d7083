package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"alpha_dashboard/internal/market"
	"alpha_dashboard/internal/models"
)

type fakeBroker struct {
	mu        sync.Mutex
	account   *models.Account
	positions []models.BrokerPosition
	orders    []models.Order
	history   *models.PortfolioHistory
	errs      map[string]error
	calls     map[string]int
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{errs: map[string]error{}, calls: map[string]int{}}
}

func (b *fakeBroker) hit(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[name]++
	return b.errs[name]
}

func (b *fakeBroker) count(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[name]
}

func (b *fakeBroker) GetAccount(ctx context.Context) (*models.Account, error) {
	if err := b.hit("account"); err != nil {
		return nil, err
	}
	return b.account, nil
}

func (b *fakeBroker) ListPositions(ctx context.Context) ([]models.BrokerPosition, error) {
	if err := b.hit("positions"); err != nil {
		return nil, err
	}
	return b.positions, nil
}

func (b *fakeBroker) ListOrders(ctx context.Context, q market.OrderQuery) ([]models.Order, error) {
	if err := b.hit("orders"); err != nil {
		return nil, err
	}
	return append([]models.Order(nil), b.orders...), nil
}

func (b *fakeBroker) GetPortfolioHistory(ctx context.Context, period, timeframe string) (*models.PortfolioHistory, error) {
	if err := b.hit("history"); err != nil {
		return nil, err
	}
	if b.history == nil {
		return nil, errors.New("no history")
	}
	return b.history, nil
}

type fakeBars struct {
	mu    sync.Mutex
	bars  map[string][]models.Bar
	errs  map[string]error
	calls map[string]int
}

func newFakeBars() *fakeBars {
	return &fakeBars{bars: map[string][]models.Bar{}, errs: map[string]error{}, calls: map[string]int{}}
}

func (f *fakeBars) GetHourlyBars(ctx context.Context, symbol string, start, end time.Time) ([]models.Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[symbol]++
	if err := f.errs[symbol]; err != nil {
		return nil, err
	}
	return f.bars[symbol], nil
}

func (f *fakeBars) count(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[symbol]
}

type fakeFeed struct {
	notes []models.ReasoningEntry
	err   error
}

func (f fakeFeed) Fetch(ctx context.Context) ([]models.ReasoningEntry, error) {
	return f.notes, f.err
}
