// Package alphavantage reads hourly intraday closes from Alpha Vantage.
package alphavantage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
	_ "time/tzdata" // exchange zones on hosts without zoneinfo

	"alpha_dashboard/internal/config"
	"alpha_dashboard/internal/market"
	"alpha_dashboard/internal/models"

	"github.com/tidwall/gjson"
)

var (
	ErrAPIKeyMissing = errors.New("alpha vantage API key not set")
	ErrRateLimited   = errors.New("alpha vantage rate limit or information note")
	ErrMalformed     = errors.New("alpha vantage response has no 60min series")
)

const (
	seriesKey   = "Time Series (60min)"
	timeZoneKey = "Meta Data.6\\. Time Zone"
	closeKey    = "4\\. close"
	stampLayout = "2006-01-02 15:04:05"
)

type Client struct {
	apiKey  string
	baseURL string
	cli     *http.Client
}

var _ market.BarSource = (*Client)(nil)

func New(cfg config.AlphaVantageConfig) (*Client, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, ErrAPIKeyMissing
	}
	return &Client{
		apiKey:  key,
		baseURL: cfg.BaseURL,
		cli:     &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// GetHourlyBars returns the closes inside [start, end], oldest first.
// The API always answers with its full intraday window; the range is
// applied locally.
func (c *Client) GetHourlyBars(ctx context.Context, symbol string, start, end time.Time) ([]models.Bar, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	q := url.Values{}
	q.Set("function", "TIME_SERIES_INTRADAY")
	q.Set("symbol", symbol)
	q.Set("interval", "60min")
	q.Set("outputsize", "full")
	q.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "alpha-dashboard/1.0")

	resp, err := c.cli.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alphavantage http %d for %s", resp.StatusCode, symbol)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	bars, err := Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}
	return within(bars, start, end), nil
}

// Parse decodes a TIME_SERIES_INTRADAY 60min body into time-ordered bars.
// Timestamps are read in the exchange zone named by the metadata.
func Parse(body []byte) ([]models.Bar, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrMalformed
	}
	root := gjson.ParseBytes(body)
	if root.Get("Note").Exists() || root.Get("Information").Exists() {
		return nil, ErrRateLimited
	}
	if msg := root.Get("Error Message"); msg.Exists() {
		return nil, fmt.Errorf("alphavantage: %s", msg.String())
	}

	loc := location(root.Get(timeZoneKey).String())

	var series gjson.Result
	root.ForEach(func(key, value gjson.Result) bool {
		if key.String() == seriesKey {
			series = value
			return false
		}
		return true
	})
	if !series.IsObject() {
		return nil, ErrMalformed
	}

	var bars []models.Bar
	series.ForEach(func(stamp, values gjson.Result) bool {
		ts, err := time.ParseInLocation(stampLayout, stamp.String(), loc)
		if err != nil {
			return true
		}
		closeVal := values.Get(closeKey)
		if !closeVal.Exists() {
			return true
		}
		bars = append(bars, models.Bar{Time: ts.UTC(), Close: closeVal.Float()})
		return true
	})

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func location(name string) *time.Location {
	for _, n := range []string{name, "America/New_York"} {
		if n == "" {
			continue
		}
		if loc, err := time.LoadLocation(n); err == nil {
			return loc
		}
	}
	return time.UTC
}

func within(bars []models.Bar, start, end time.Time) []models.Bar {
	out := bars[:0:0]
	for _, b := range bars {
		if b.Time.Before(start) || b.Time.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out
}
