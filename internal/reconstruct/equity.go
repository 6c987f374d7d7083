// Package reconstruct rebuilds an approximate equity curve from filled orders
// when the broker has no usable portfolio history.
package reconstruct

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"alpha_dashboard/internal/models"
)

// ErrBadOrder marks a filled order that lacks a time, a price or a known side.
var ErrBadOrder = errors.New("order cannot be replayed")

type holding struct {
	qty      float64
	avgPrice float64
}

// Equity replays filled orders hour by hour from the hour of the first fill
// up to now. Open positions are valued at their average cost, not at market,
// so the curve only moves when cash changes hands.
//
// The result depends only on its arguments.
func Equity(orders []models.Order, startingCash float64, now time.Time) ([]models.EquityPoint, error) {
	filled := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if o.IsFilled() {
			filled = append(filled, o)
		}
	}
	if len(filled) == 0 {
		return nil, nil
	}
	sort.SliceStable(filled, func(i, j int) bool {
		return filled[i].EffectiveTime().Before(filled[j].EffectiveTime())
	})

	for _, o := range filled {
		if o.EffectiveTime().IsZero() {
			return nil, fmt.Errorf("%w: %s has no fill or submit time", ErrBadOrder, o.ID)
		}
		if _, ok := o.FillPrice(); !ok {
			return nil, fmt.Errorf("%w: %s has no fill price", ErrBadOrder, o.ID)
		}
		switch strings.ToLower(o.Side) {
		case models.SideBuy, models.SideSell:
		default:
			return nil, fmt.Errorf("%w: %s has side %q", ErrBadOrder, o.ID, o.Side)
		}
	}

	cash := startingCash
	positions := make(map[string]*holding)
	var points []models.EquityPoint

	next := 0
	step := filled[0].EffectiveTime().UTC().Truncate(time.Hour)
	for !step.After(now) {
		// orders in (previous step, step]; the first step takes everything up to it
		for next < len(filled) && !filled[next].EffectiveTime().After(step) {
			cash = apply(filled[next], cash, positions)
			next++
		}

		value := cash
		for _, h := range positions {
			value += h.qty * h.avgPrice
		}
		points = append(points, models.EquityPoint{Time: step, Equity: roundCents(value)})
		step = step.Add(time.Hour)
	}
	return points, nil
}

func apply(o models.Order, cash float64, positions map[string]*holding) float64 {
	qty := o.FilledQuantity()
	price, _ := o.FillPrice()

	if strings.ToLower(o.Side) == models.SideBuy {
		h, ok := positions[o.Symbol]
		if !ok {
			h = &holding{}
			positions[o.Symbol] = h
		}
		total := h.qty + qty
		if total != 0 {
			h.avgPrice = (h.avgPrice*h.qty + price*qty) / total
		}
		h.qty = total
		return cash - qty*price
	}

	if h, ok := positions[o.Symbol]; ok {
		h.qty -= qty
		if h.qty <= 0 {
			delete(positions, o.Symbol)
		}
	}
	return cash + qty*price
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
