// Package analytics turns orders, positions and equity history into the
// activity log and headline numbers the dashboard shows.
package analytics

import (
	"sort"
	"strings"
	"time"

	"alpha_dashboard/internal/models"
)

// DefaultLogLimit is how many of the newest orders make it into the log.
const DefaultLogLimit = 100

// Fills further than this from the submission time are flagged.
const discrepancyAfter = 24 * time.Hour

type TradeEntry struct {
	ID              string     `json:"id"`
	Symbol          string     `json:"symbol"`
	Action          string     `json:"action"` // BUY, SELL
	OrderType       string     `json:"order_type"`
	Status          string     `json:"status"`
	Quantity        float64    `json:"quantity"`
	Price           *float64   `json:"price"`
	TotalValue      *float64   `json:"total_value"`
	Tags            []string   `json:"tags"`
	SubmittedAt     time.Time  `json:"timestamp"`
	FilledAt        *time.Time `json:"filled_at,omitempty"`
	DateDiscrepancy bool       `json:"date_discrepancy"`
	PositionBefore  float64    `json:"position_before"`
	PositionAfter   float64    `json:"position_after"`
}

// TradeLog maps the first limit orders (the broker lists newest first) to
// log entries. Running positions are accumulated oldest first over filled
// quantities; an unfilled order leaves the position unchanged. The result
// is newest first.
func TradeLog(orders []models.Order, limit int) []TradeEntry {
	if limit <= 0 || limit > len(orders) {
		limit = len(orders)
	}
	entries := make([]TradeEntry, 0, limit)
	for _, o := range orders[:limit] {
		entries = append(entries, entryFor(o))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].SubmittedAt.Before(entries[j].SubmittedAt)
	})
	held := make(map[string]float64)
	for i := range entries {
		e := &entries[i]
		e.PositionBefore = held[e.Symbol]
		e.PositionAfter = e.PositionBefore
		if e.Status == models.StatusFilled {
			switch e.Action {
			case "BUY":
				e.PositionAfter += e.Quantity
			case "SELL":
				e.PositionAfter -= e.Quantity
			}
		}
		held[e.Symbol] = e.PositionAfter
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries
}

func entryFor(o models.Order) TradeEntry {
	e := TradeEntry{
		ID:          o.ID,
		Symbol:      strings.ToUpper(o.Symbol),
		Action:      strings.ToUpper(o.Side),
		OrderType:   o.Type,
		Status:      o.Status,
		Quantity:    o.FilledQuantity(),
		Tags:        []string{o.Status},
		SubmittedAt: o.SubmittedAt,
		FilledAt:    o.FilledAt,
	}
	if p, ok := o.FillPrice(); ok {
		total := p * e.Quantity
		e.Price = &p
		e.TotalValue = &total
	}
	if o.FilledAt != nil {
		d := o.FilledAt.Sub(o.SubmittedAt)
		if d < 0 {
			d = -d
		}
		e.DateDiscrepancy = d > discrepancyAfter
	}
	return e
}

// TimelineItem is either a trade or a reasoning note.
type TimelineItem struct {
	Kind      string                 `json:"type"` // trade, reasoning
	Time      time.Time              `json:"timestamp"`
	Trade     *TradeEntry            `json:"trade,omitempty"`
	Reasoning *models.ReasoningEntry `json:"reasoning,omitempty"`
}

// Timeline interleaves trades and reasoning notes, newest first.
func Timeline(log []TradeEntry, notes []models.ReasoningEntry) []TimelineItem {
	items := make([]TimelineItem, 0, len(log)+len(notes))
	for i := range log {
		items = append(items, TimelineItem{Kind: "trade", Time: log[i].SubmittedAt, Trade: &log[i]})
	}
	for i := range notes {
		items = append(items, TimelineItem{Kind: "reasoning", Time: notes[i].Timestamp, Reasoning: &notes[i]})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Time.After(items[j].Time) })
	return items
}
