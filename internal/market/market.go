package market

import (
	"context"
	"time"

	"alpha_dashboard/internal/models"
)

// Broker is the read-only brokerage surface the dashboard needs.
// Any struct with these methods satisfies it, so tests plug in fakes and
// the Alpaca adapter lives in its own package.
type Broker interface {
	GetAccount(ctx context.Context) (*models.Account, error)
	ListPositions(ctx context.Context) ([]models.BrokerPosition, error)
	ListOrders(ctx context.Context, q OrderQuery) ([]models.Order, error)
	GetPortfolioHistory(ctx context.Context, period, timeframe string) (*models.PortfolioHistory, error)
}

// BarSource serves hourly closing prices for a symbol.
type BarSource interface {
	GetHourlyBars(ctx context.Context, symbol string, start, end time.Time) ([]models.Bar, error)
}

// OrderQuery mirrors the broker's order listing parameters.
type OrderQuery struct {
	Status    string // open, closed, all, filled
	Limit     int
	Direction string // asc, desc
}

// AllOrders is the query behind the activity log: everything, newest first.
var AllOrders = OrderQuery{Status: "all", Limit: 10000, Direction: "desc"}

// FilledOrdersAsc is the query behind equity reconstruction.
var FilledOrdersAsc = OrderQuery{Status: "filled", Limit: 500, Direction: "asc"}

// Unavailable is a Broker that fails every call with Err. It stands in for
// the real broker when credentials are missing.
type Unavailable struct{ Err error }

func (u Unavailable) GetAccount(context.Context) (*models.Account, error) { return nil, u.Err }

func (u Unavailable) ListPositions(context.Context) ([]models.BrokerPosition, error) {
	return nil, u.Err
}

func (u Unavailable) ListOrders(context.Context, OrderQuery) ([]models.Order, error) {
	return nil, u.Err
}

func (u Unavailable) GetPortfolioHistory(context.Context, string, string) (*models.PortfolioHistory, error) {
	return nil, u.Err
}
