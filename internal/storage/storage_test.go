package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"alpha_dashboard/internal/config"
	"alpha_dashboard/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	dir := t.TempDir()
	return New(config.DataConfig{
		Dir:             dir,
		DateMappings:    "user_log_date_mappings.json",
		InjectedTrades:  "reconstructed_trades.json",
		SnapshotPattern: "%s_fallback.json",
	}), dir
}

func write(t *testing.T, dir, name, body string) {
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
}

func TestLoadSnapshot(t *testing.T) {
	s, dir := newTestStore(t)
	write(t, dir, "spy_fallback.json", `{"bars":[{"t":"2024-10-10T15:00:00Z","c":573.45},{"t":"2024-10-10T16:00:00Z","c":574}]}`)

	bars, err := s.LoadSnapshot("SPY")
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 573.45, bars[0].Close)
	assert.Equal(t, time.Date(2024, 10, 10, 16, 0, 0, 0, time.UTC), bars[1].Time)
}

func TestLoadSnapshot_Missing(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.LoadSnapshot("QQQ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveSnapshot_AtomicRoundTrip(t *testing.T) {
	s, dir := newTestStore(t)
	bars := []models.Bar{{Time: time.Date(2024, 10, 1, 14, 0, 0, 0, time.UTC), Close: 480.5}}

	require.NoError(t, s.SaveSnapshot("QQQ", bars))
	_, err := os.Stat(filepath.Join(dir, "qqq_fallback.json.tmp"))
	assert.True(t, os.IsNotExist(err), "temp file is renamed away")

	got, err := s.LoadSnapshot("qqq")
	require.NoError(t, err)
	assert.Equal(t, bars, got)
}

func TestDateMappings(t *testing.T) {
	s, dir := newTestStore(t)
	write(t, dir, "user_log_date_mappings.json", `{"date_mappings":{
		"o1":{"user_log_date":"2024-10-06T14:30:00Z"},
		"o2":{"user_log_date":"2024-10-07"}}}`)

	m, err := s.LoadDateMappings()
	require.NoError(t, err)

	filled := time.Date(2024, 10, 9, 15, 0, 0, 0, time.UTC)
	orders := []models.Order{
		{ID: "o1", SubmittedAt: filled, FilledAt: &filled},
		{ID: "o2", SubmittedAt: filled},
		{ID: "o3", SubmittedAt: filled},
	}
	assert.Equal(t, 2, ApplyDateMappings(orders, m))
	assert.Equal(t, time.Date(2024, 10, 6, 14, 30, 0, 0, time.UTC), orders[0].SubmittedAt)
	assert.Equal(t, filled, *orders[0].FilledAt)
	assert.Equal(t, time.Date(2024, 10, 7, 0, 0, 0, 0, time.UTC), orders[1].SubmittedAt)
	assert.Equal(t, filled, orders[2].SubmittedAt)
}

func TestDateMappings_BadDate(t *testing.T) {
	s, dir := newTestStore(t)
	write(t, dir, "user_log_date_mappings.json", `{"date_mappings":{"o1":{"user_log_date":"last tuesday"}}}`)
	_, err := s.LoadDateMappings()
	assert.Error(t, err)
}

func TestInjectedTrades(t *testing.T) {
	s, dir := newTestStore(t)
	write(t, dir, "reconstructed_trades.json", `{"reconstructed_trade":{
		"id":"recon-1","timestamp":"2024-10-06T15:00:00Z","symbol":"LRCX","qty":12,"price":"74.10","side":"buy"}}`)

	trades, err := s.LoadInjectedTrades()
	require.NoError(t, err)
	require.Len(t, trades, 1)

	newer := time.Date(2024, 10, 8, 0, 0, 0, 0, time.UTC)
	older := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	orders := []models.Order{{ID: "b", SubmittedAt: newer}, {ID: "a", SubmittedAt: older}}

	out := InjectTrades(orders, trades)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"b", "recon-1", "a"}, []string{out[0].ID, out[1].ID, out[2].ID})

	injected := out[1]
	assert.True(t, injected.IsFilled())
	assert.True(t, injected.FilledQty.Equal(decimal.NewFromInt(12)))
	p, ok := injected.FillPrice()
	require.True(t, ok)
	assert.Equal(t, 74.10, p)

	again := InjectTrades(out, trades)
	assert.Len(t, again, 3, "already present IDs are not duplicated")
}
