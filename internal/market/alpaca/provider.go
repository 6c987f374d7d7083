package alpaca

import (
	"context"
	"fmt"
	"strings"
	"time"

	"alpha_dashboard/internal/config"
	"alpha_dashboard/internal/market"
	"alpha_dashboard/internal/models"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
)

// Provider implements market.Broker against the Alpaca trading API.
type Provider struct {
	tradeClient *alpaca.Client
}

// Ensure Provider implements the interface
var _ market.Broker = (*Provider)(nil)

// NewProvider returns config.ErrMissingCredentials when keys are absent;
// nothing downstream can stand in for authentication.
func NewProvider(cfg config.AlpacaConfig) (*Provider, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, config.ErrMissingCredentials
	}
	return &Provider{
		tradeClient: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    cfg.APIKey,
			APISecret: cfg.APISecret,
			BaseURL:   cfg.BaseURL,
		}),
	}, nil
}

func (p *Provider) GetAccount(ctx context.Context) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a, err := p.tradeClient.GetAccount()
	if err != nil {
		return nil, err
	}
	return &models.Account{
		ID:             a.ID,
		AccountNumber:  a.AccountNumber,
		Status:         a.Status,
		Currency:       a.Currency,
		Cash:           a.Cash,
		Equity:         a.Equity,
		BuyingPower:    a.BuyingPower,
		PortfolioValue: a.PortfolioValue,
	}, nil
}

func (p *Provider) ListPositions(ctx context.Context) ([]models.BrokerPosition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	alpacaPositions, err := p.tradeClient.GetPositions()
	if err != nil {
		return nil, err
	}

	result := make([]models.BrokerPosition, 0, len(alpacaPositions))
	for _, x := range alpacaPositions {
		result = append(result, models.BrokerPosition{
			AssetID:        x.AssetID,
			Symbol:         x.Symbol,
			Qty:            x.Qty, // value in SDK v3
			Side:           x.Side,
			AvgEntryPrice:  x.AvgEntryPrice,
			CurrentPrice:   deref(x.CurrentPrice),
			MarketValue:    deref(x.MarketValue),
			CostBasis:      x.CostBasis,
			UnrealizedPL:   deref(x.UnrealizedPL),
			UnrealizedPLPC: deref(x.UnrealizedPLPC),
		})
	}
	return result, nil
}

// ListOrders accepts "filled" as a status even though the API only knows
// open/closed/all: it asks for closed orders and keeps the filled ones.
func (p *Provider) ListOrders(ctx context.Context, q market.OrderQuery) ([]models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	status := q.Status
	onlyFilled := status == models.StatusFilled
	if onlyFilled {
		status = "closed"
	}

	orders, err := p.tradeClient.GetOrders(alpaca.GetOrdersRequest{
		Status:    status,
		Limit:     q.Limit,
		Direction: q.Direction,
	})
	if err != nil {
		return nil, err
	}

	result := make([]models.Order, 0, len(orders))
	for i := range orders {
		o := mapOrder(&orders[i])
		if onlyFilled && !o.IsFilled() {
			continue
		}
		result = append(result, o)
	}
	return result, nil
}

func (p *Provider) GetPortfolioHistory(ctx context.Context, period, timeframe string) (*models.PortfolioHistory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, err := p.tradeClient.GetPortfolioHistory(alpaca.GetPortfolioHistoryRequest{
		Period:    period,
		TimeFrame: alpaca.TimeFrame(timeframe),
	})
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, fmt.Errorf("empty portfolio history response for %s/%s", period, timeframe)
	}
	return &models.PortfolioHistory{
		Timestamps: h.Timestamp,
		Equity:     h.Equity,
	}, nil
}

// BarSource serves hourly bars from Alpaca market data (IEX feed).
type BarSource struct {
	mdClient *marketdata.Client
}

var _ market.BarSource = (*BarSource)(nil)

func NewBarSource(cfg config.AlpacaConfig) (*BarSource, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, config.ErrMissingCredentials
	}
	return &BarSource{
		mdClient: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    cfg.APIKey,
			APISecret: cfg.APISecret,
		}),
	}, nil
}

func (b *BarSource) GetHourlyBars(ctx context.Context, symbol string, start, end time.Time) ([]models.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bars, err := b.mdClient.GetBars(strings.ToUpper(symbol), marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneHour,
		Start:     start,
		End:       end,
		Feed:      marketdata.IEX,
	})
	if err != nil {
		return nil, err
	}

	result := make([]models.Bar, 0, len(bars))
	for _, x := range bars {
		result = append(result, models.Bar{Time: x.Timestamp.UTC(), Close: x.Close})
	}
	return result, nil
}

// Helpers

func deref(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

func mapOrder(o *alpaca.Order) models.Order {
	res := models.Order{
		ID:             o.ID,
		ClientOrderID:  o.ClientOrderID,
		Symbol:         o.Symbol,
		FilledQty:      o.FilledQty,
		Type:           string(o.Type),
		Side:           strings.ToLower(string(o.Side)),
		Status:         o.Status,
		FilledAvgPrice: o.FilledAvgPrice,
		SubmittedAt:    o.SubmittedAt,
		CreatedAt:      o.CreatedAt,
		FilledAt:       o.FilledAt,
	}
	if o.Qty != nil {
		res.Qty = *o.Qty
	}
	return res
}
