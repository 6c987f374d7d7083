package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"alpha_dashboard/internal/models"

	"github.com/shopspring/decimal"
)

// DateMapping replaces an order's submission time with the date recorded in
// the operator's own trade log.
type DateMapping struct {
	UserLogDate time.Time `json:"user_log_date"`
}

// UnmarshalJSON accepts RFC 3339 timestamps and bare dates (read as UTC midnight).
func (m *DateMapping) UnmarshalJSON(b []byte) error {
	var raw struct {
		UserLogDate string `json:"user_log_date"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, raw.UserLogDate); err == nil {
			m.UserLogDate = t
			return nil
		}
	}
	return fmt.Errorf("user_log_date %q is not a date", raw.UserLogDate)
}

type dateMappingsFile struct {
	DateMappings map[string]DateMapping `json:"date_mappings"`
}

// InjectedTrade is a fill the broker no longer reports, reconstructed by hand.
type InjectedTrade struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Symbol    string          `json:"symbol"`
	Qty       decimal.Decimal `json:"qty"`
	Price     decimal.Decimal `json:"price"`
	Side      string          `json:"side"`
}

// Order renders the trade as a filled market order.
func (t InjectedTrade) Order() models.Order {
	price := t.Price
	filledAt := t.Timestamp
	return models.Order{
		ID:             t.ID,
		ClientOrderID:  t.ID,
		Symbol:         t.Symbol,
		Qty:            t.Qty,
		FilledQty:      t.Qty,
		Type:           "market",
		Side:           t.Side,
		Status:         models.StatusFilled,
		FilledAvgPrice: &price,
		SubmittedAt:    t.Timestamp,
		CreatedAt:      t.Timestamp,
		FilledAt:       &filledAt,
	}
}

// Both the single-trade and the list form are accepted.
type injectedFile struct {
	Trade  *InjectedTrade  `json:"reconstructed_trade"`
	Trades []InjectedTrade `json:"reconstructed_trades"`
}

func (s *Store) LoadDateMappings() (map[string]DateMapping, error) {
	var f dateMappingsFile
	if err := s.readJSON(filepath.Join(s.dir, s.dateMappings), &f); err != nil {
		return nil, err
	}
	return f.DateMappings, nil
}

func (s *Store) LoadInjectedTrades() ([]InjectedTrade, error) {
	var f injectedFile
	if err := s.readJSON(filepath.Join(s.dir, s.injectedTrades), &f); err != nil {
		return nil, err
	}
	trades := f.Trades
	if f.Trade != nil {
		trades = append(trades, *f.Trade)
	}
	return trades, nil
}

// ApplyDateMappings rewrites SubmittedAt of mapped orders. Fill times are
// left as the broker reported them. It returns how many orders changed.
func ApplyDateMappings(orders []models.Order, mappings map[string]DateMapping) int {
	n := 0
	for i := range orders {
		if m, ok := mappings[orders[i].ID]; ok && !m.UserLogDate.IsZero() {
			orders[i].SubmittedAt = m.UserLogDate
			n++
		}
	}
	return n
}

// InjectTrades adds trades whose IDs the broker list does not already
// contain, keeping the list newest first.
func InjectTrades(orders []models.Order, trades []InjectedTrade) []models.Order {
	if len(trades) == 0 {
		return orders
	}
	seen := make(map[string]bool, len(orders))
	for _, o := range orders {
		seen[o.ID] = true
	}
	out := append([]models.Order(nil), orders...)
	for _, t := range trades {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		out = append(out, t.Order())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out
}
