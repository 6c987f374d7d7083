package models

import "time"

// Bar is a single closing price. The short JSON keys match the snapshot files.
type Bar struct {
	Time  time.Time `json:"t"`
	Close float64   `json:"c"`
}

// BarSource says where a series came from.
type BarSource string

const (
	SourceLive        BarSource = "live"
	SourceSnapshot    BarSource = "snapshot"
	SourcePlaceholder BarSource = "placeholder" // cosmetic only, never used for valuation truth
)

type BarSeries struct {
	Symbol string    `json:"symbol"`
	Bars   []Bar     `json:"bars"`
	Source BarSource `json:"source"`
}

// EquityPoint is one sample of total account value.
type EquityPoint struct {
	Time   time.Time `json:"time"`
	Equity float64   `json:"equity"`
}

// EquitySeries carries the points together with the fallback step that produced them.
type EquitySeries struct {
	Points []EquityPoint `json:"points"`
	Source string        `json:"source"`
}

// DownsampledPoint is a chart point keyed by its UTC calendar day.
type DownsampledPoint struct {
	DayKey    string    `json:"day"`
	Time      time.Time `json:"time"`
	Value     float64   `json:"value"`
	Synthetic bool      `json:"synthetic,omitempty"`
}

// HoldingPeriod spans the first buy to the last sell of a symbol.
// LastSell is nil while the position is still open.
type HoldingPeriod struct {
	Symbol   string     `json:"symbol"`
	FirstBuy time.Time  `json:"first_buy"`
	LastSell *time.Time `json:"last_sell,omitempty"`
}

// Contains reports whether t falls inside the period.
func (h HoldingPeriod) Contains(t time.Time) bool {
	if t.Before(h.FirstBuy) {
		return false
	}
	return h.LastSell == nil || !t.After(*h.LastSell)
}

// ReasoningEntry is one item of the external trade reasoning feed.
type ReasoningEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Ticker    string    `json:"ticker"`
	Text      string    `json:"reasoning"`
}
