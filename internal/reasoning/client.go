// Package reasoning pulls the agent's free-text trade rationale from an
// external JSON feed.
package reasoning

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"alpha_dashboard/internal/config"
	"alpha_dashboard/internal/models"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

var ErrMalformed = errors.New("reasoning feed is not a JSON list")

// Timestamps in the feed come from a spreadsheet export and are not uniform.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04:05 PM",
	time.DateOnly,
}

type Client struct {
	url string
	cli *http.Client
	log zerolog.Logger
}

// New returns nil when no feed URL is configured; a nil Client fetches nothing.
func New(cfg config.ReasoningConfig, log zerolog.Logger) *Client {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil
	}
	return &Client{
		url: cfg.URL,
		cli: &http.Client{Timeout: cfg.Timeout},
		log: log.With().Str("component", "reasoning").Logger(),
	}
}

// Fetch returns the feed entries, newest first.
func (c *Client) Fetch(ctx context.Context) ([]models.ReasoningEntry, error) {
	if c == nil {
		return nil, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.cli.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("reasoning feed error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	entries, skipped, err := Parse(body)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		c.log.Warn().Int("skipped", skipped).Msg("reasoning entries without a readable timestamp")
	}
	return entries, nil
}

// Parse decodes a list of {timestamp, ticker, reasoning} objects. Entries
// with empty text or an unreadable timestamp are dropped and counted.
func Parse(body []byte) ([]models.ReasoningEntry, int, error) {
	if !gjson.ValidBytes(body) {
		return nil, 0, ErrMalformed
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil, 0, ErrMalformed
	}

	var (
		out     []models.ReasoningEntry
		skipped int
	)
	root.ForEach(func(_, item gjson.Result) bool {
		text := strings.TrimSpace(item.Get("reasoning").String())
		ts, ok := parseTime(item.Get("timestamp").String())
		if text == "" || !ok {
			skipped++
			return true
		}
		out = append(out, models.ReasoningEntry{
			Timestamp: ts,
			Ticker:    strings.ToUpper(strings.TrimSpace(item.Get("ticker").String())),
			Text:      text,
		})
		return true
	})

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, skipped, nil
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
