package alphavantage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"alpha_dashboard/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBody = `{
  "Meta Data": {
    "1. Information": "Intraday (60min) open, high, low, close prices and volume",
    "2. Symbol": "SPY",
    "4. Interval": "60min",
    "6. Time Zone": "UTC"
  },
  "Time Series (60min)": {
    "2024-10-10 15:00:00": {"1. open": "572.00", "4. close": "573.45"},
    "2024-10-10 14:00:00": {"1. open": "571.00", "4. close": "572.10"},
    "2024-10-09 19:00:00": {"1. open": "570.00", "4. close": "570.55"}
  }
}`

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(config.AlphaVantageConfig{APIKey: "demo", BaseURL: srv.URL, Timeout: time.Second})
	require.NoError(t, err)
	return c
}

func TestParse_SortsAscending(t *testing.T) {
	bars, err := Parse([]byte(sampleBody))
	require.NoError(t, err)
	require.Len(t, bars, 3)

	assert.Equal(t, time.Date(2024, 10, 9, 19, 0, 0, 0, time.UTC), bars[0].Time)
	assert.Equal(t, 570.55, bars[0].Close)
	assert.Equal(t, 573.45, bars[2].Close)
}

func TestParse_RateLimited(t *testing.T) {
	_, err := Parse([]byte(`{"Note": "Thank you for using Alpha Vantage!"}`))
	assert.ErrorIs(t, err, ErrRateLimited)

	_, err = Parse([]byte(`{"Information": "premium endpoint"}`))
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte(`{"Meta Data": {}}`))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Parse([]byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParse_ErrorMessage(t *testing.T) {
	_, err := Parse([]byte(`{"Error Message": "Invalid API call"}`))
	assert.ErrorContains(t, err, "Invalid API call")
}

func TestGetHourlyBars_QueryAndRange(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "TIME_SERIES_INTRADAY", q.Get("function"))
		assert.Equal(t, "SPY", q.Get("symbol"))
		assert.Equal(t, "60min", q.Get("interval"))
		assert.Equal(t, "full", q.Get("outputsize"))
		assert.Equal(t, "demo", q.Get("apikey"))
		w.Write([]byte(sampleBody))
	})

	start := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 10, 11, 0, 0, 0, 0, time.UTC)
	bars, err := c.GetHourlyBars(context.Background(), "spy", start, end)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 572.10, bars[0].Close)
}

func TestGetHourlyBars_HTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.GetHourlyBars(context.Background(), "SPY", time.Time{}, time.Now())
	assert.Error(t, err)
}

func TestNew_MissingKey(t *testing.T) {
	_, err := New(config.AlphaVantageConfig{APIKey: "  "})
	assert.ErrorIs(t, err, ErrAPIKeyMissing)
}
