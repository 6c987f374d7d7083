package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order represents an order as reported by the broker.
type Order struct {
	ID             string           `json:"id"`
	ClientOrderID  string           `json:"client_order_id"`
	Symbol         string           `json:"symbol"`
	Qty            decimal.Decimal  `json:"qty"`
	FilledQty      decimal.Decimal  `json:"filled_qty"`
	Type           string           `json:"type"`   // market, limit, stop, etc.
	Side           string           `json:"side"`   // buy, sell
	Status         string           `json:"status"` // new, filled, canceled, expired, rejected
	FilledAvgPrice *decimal.Decimal `json:"filled_avg_price"`
	SubmittedAt    time.Time        `json:"submitted_at"`
	CreatedAt      time.Time        `json:"created_at"`
	FilledAt       *time.Time       `json:"filled_at,omitempty"`
}

const (
	SideBuy      = "buy"
	SideSell     = "sell"
	StatusFilled = "filled"
)

// EffectiveTime is the fill time when known, else the submission time.
func (o Order) EffectiveTime() time.Time {
	if o.FilledAt != nil && !o.FilledAt.IsZero() {
		return *o.FilledAt
	}
	return o.SubmittedAt
}

// FilledQuantity prefers the filled quantity and falls back to the requested one.
func (o Order) FilledQuantity() float64 {
	if !o.FilledQty.IsZero() {
		return o.FilledQty.InexactFloat64()
	}
	return o.Qty.InexactFloat64()
}

// FillPrice returns the average fill price, if any.
func (o Order) FillPrice() (float64, bool) {
	if o.FilledAvgPrice == nil {
		return 0, false
	}
	return o.FilledAvgPrice.InexactFloat64(), true
}

func (o Order) IsFilled() bool { return o.Status == StatusFilled }

// Account represents the brokerage account snapshot.
type Account struct {
	ID             string          `json:"id"`
	AccountNumber  string          `json:"account_number"`
	Status         string          `json:"status"`
	Currency       string          `json:"currency"`
	Cash           decimal.Decimal `json:"cash"`
	Equity         decimal.Decimal `json:"equity"`
	BuyingPower    decimal.Decimal `json:"buying_power"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
}

// BrokerPosition represents a position held at the broker.
// A negative Qty is a short.
type BrokerPosition struct {
	AssetID        string          `json:"asset_id"`
	Symbol         string          `json:"symbol"`
	Qty            decimal.Decimal `json:"qty"`
	Side           string          `json:"side"`
	AvgEntryPrice  decimal.Decimal `json:"avg_entry_price"`
	CurrentPrice   decimal.Decimal `json:"current_price"`
	MarketValue    decimal.Decimal `json:"market_value"`
	CostBasis      decimal.Decimal `json:"cost_basis"`
	UnrealizedPL   decimal.Decimal `json:"unrealized_pl"`
	UnrealizedPLPC decimal.Decimal `json:"unrealized_plpc"`
}

// PortfolioHistory is the raw equity curve returned by the broker.
type PortfolioHistory struct {
	Timestamps []int64           `json:"timestamp"`
	Equity     []decimal.Decimal `json:"equity"`
}
