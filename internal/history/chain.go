// Package history produces the account equity curve.
//
// Broker queries are tried in a fixed order until one returns data; when
// all of them fail the curve is rebuilt from filled orders, and when that is
// impossible an empty series is returned. Only missing credentials stop the
// chain early.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"alpha_dashboard/internal/config"
	"alpha_dashboard/internal/metrics"
	"alpha_dashboard/internal/models"

	"github.com/rs/zerolog"
)

var (
	// ErrMalformed is returned when timestamps and equity values do not line up.
	ErrMalformed = errors.New("malformed portfolio history")
	// ErrNoData marks a step that answered without error but with no points.
	ErrNoData = errors.New("portfolio history is empty")
)

// Step is one strategy in the chain.
type Step struct {
	Name string
	Run  func(ctx context.Context) ([]models.EquityPoint, error)
}

// Attempt is the tagged outcome of running a step.
type Attempt struct {
	Step   string
	Points []models.EquityPoint
	Err    error
}

func (a Attempt) OK() bool { return a.Err == nil && len(a.Points) > 0 }

// Chain runs steps in order and stops at the first successful attempt.
type Chain []Step

// Run returns the winning attempt and everything tried (winner included).
// If nothing succeeds the returned attempt is the zero value. A
// config.ErrMissingCredentials from any step aborts the loop.
func (c Chain) Run(ctx context.Context, log zerolog.Logger, rec *metrics.Recorder) (Attempt, []Attempt, error) {
	tried := make([]Attempt, 0, len(c))
	for _, step := range c {
		if err := ctx.Err(); err != nil {
			return Attempt{}, tried, err
		}

		points, err := step.Run(ctx)
		if err == nil && len(points) == 0 {
			err = ErrNoData
		}
		a := Attempt{Step: step.Name, Points: points, Err: err}
		tried = append(tried, a)

		if errors.Is(err, config.ErrMissingCredentials) {
			rec.RecordHistoryStep(step.Name, "aborted")
			return Attempt{}, tried, err
		}
		if a.OK() {
			rec.RecordHistoryStep(step.Name, "ok")
			log.Info().Str("step", step.Name).Int("points", len(points)).Msg("✅ Portfolio history loaded")
			return a, tried, nil
		}
		rec.RecordHistoryStep(step.Name, "failed")
		log.Warn().Str("step", step.Name).Err(err).Msg("⚠️ Portfolio history step failed, trying next")
	}
	return Attempt{}, tried, nil
}

// HistorySource is the broker query behind the provider steps.
type HistorySource interface {
	GetPortfolioHistory(ctx context.Context, period, timeframe string) (*models.PortfolioHistory, error)
}

// ProviderQueries is the order the broker is asked in: widest useful window first.
var ProviderQueries = []struct{ Period, TimeFrame string }{
	{"3M", "1H"},
	{"all", "1H"},
	{"1M", "1H"},
	{"1M", "1D"},
	{"1W", "1H"},
}

// ProviderSteps builds one step per ProviderQueries entry.
func ProviderSteps(src HistorySource) Chain {
	chain := make(Chain, 0, len(ProviderQueries))
	for _, q := range ProviderQueries {
		q := q
		chain = append(chain, Step{
			Name: q.Period + "/" + q.TimeFrame,
			Run: func(ctx context.Context) ([]models.EquityPoint, error) {
				h, err := src.GetPortfolioHistory(ctx, q.Period, q.TimeFrame)
				if err != nil {
					return nil, err
				}
				return ToPoints(h)
			},
		})
	}
	return chain
}

// ToPoints zips timestamps (unix seconds) with equity values.
func ToPoints(h *models.PortfolioHistory) ([]models.EquityPoint, error) {
	if h == nil {
		return nil, fmt.Errorf("%w: nil payload", ErrMalformed)
	}
	if len(h.Timestamps) != len(h.Equity) {
		return nil, fmt.Errorf("%w: %d timestamps, %d equity values", ErrMalformed, len(h.Timestamps), len(h.Equity))
	}
	points := make([]models.EquityPoint, len(h.Timestamps))
	for i, ts := range h.Timestamps {
		points[i] = models.EquityPoint{Time: time.Unix(ts, 0).UTC(), Equity: h.Equity[i].InexactFloat64()}
	}
	return points, nil
}

// FromPoints is the inverse of ToPoints, for the wire format.
func FromPoints(points []models.EquityPoint) ([]int64, []float64) {
	ts := make([]int64, len(points))
	eq := make([]float64, len(points))
	for i, p := range points {
		ts[i] = p.Time.Unix()
		eq[i] = p.Equity
	}
	return ts, eq
}
