//go:build integration

package alpaca

import (
	"context"
	"os"
	"testing"
	"time"

	"alpha_dashboard/internal/config"
	"alpha_dashboard/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) config.AlpacaConfig {
	key := os.Getenv("TEST_APCA_API_KEY_ID")
	secret := os.Getenv("TEST_APCA_API_SECRET_KEY")
	url := os.Getenv("TEST_APCA_API_BASE_URL")

	if key == "" || secret == "" {
		t.Skip("Skipping integration test: TEST_APCA credentials not set")
	}
	if url == "" {
		url = "https://paper-api.alpaca.markets"
	}
	return config.AlpacaConfig{APIKey: key, APISecret: secret, BaseURL: url}
}

func TestIntegration_AccountAndPositions(t *testing.T) {
	provider, err := NewProvider(testConfig(t))
	require.NoError(t, err)
	ctx := context.Background()

	acct, err := provider.GetAccount(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, acct.ID)
	assert.True(t, acct.PortfolioValue.IsPositive())

	_, err = provider.ListPositions(ctx)
	assert.NoError(t, err)
}

func TestIntegration_FilledOrdersAreFilled(t *testing.T) {
	provider, err := NewProvider(testConfig(t))
	require.NoError(t, err)

	orders, err := provider.ListOrders(context.Background(), market.FilledOrdersAsc)
	require.NoError(t, err)
	for _, o := range orders {
		assert.True(t, o.IsFilled(), o.ID)
		assert.NotNil(t, o.FilledAvgPrice, o.ID)
	}
}

func TestIntegration_PortfolioHistory(t *testing.T) {
	provider, err := NewProvider(testConfig(t))
	require.NoError(t, err)

	h, err := provider.GetPortfolioHistory(context.Background(), "1M", "1D")
	require.NoError(t, err)
	assert.Equal(t, len(h.Timestamps), len(h.Equity))
}

func TestIntegration_HourlyBars(t *testing.T) {
	src, err := NewBarSource(testConfig(t))
	require.NoError(t, err)

	end := time.Now().Add(-time.Hour)
	bars, err := src.GetHourlyBars(context.Background(), "SPY", end.AddDate(0, 0, -7), end)
	require.NoError(t, err)
	require.NotEmpty(t, bars)
	for i := 1; i < len(bars); i++ {
		assert.True(t, bars[i].Time.After(bars[i-1].Time))
	}
}
