package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"alpha_dashboard/internal/config"
	"alpha_dashboard/internal/history"
	"alpha_dashboard/internal/models"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type handler struct {
	backend Backend
	log     zerolog.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

// fail maps missing credentials to 500, the one case the UI shows as a
// banner. Everything else is an upstream failure.
func (h *handler) fail(c echo.Context, err error) error {
	status := http.StatusBadGateway
	if errors.Is(err, config.ErrMissingCredentials) {
		status = http.StatusInternalServerError
	}
	h.log.Error().Err(err).Str("path", c.Path()).Int("status", status).Msg("❌ Request failed")
	return c.JSON(status, errorResponse{Error: err.Error()})
}

func (h *handler) account(c echo.Context) error {
	acc, err := h.backend.Account(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, acc)
}

func (h *handler) positions(c echo.Context) error {
	pos, err := h.backend.Positions(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	if pos == nil {
		pos = []models.BrokerPosition{}
	}
	return c.JSON(http.StatusOK, pos)
}

func (h *handler) orders(c echo.Context) error {
	orders, err := h.backend.Orders(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return c.JSON(http.StatusOK, orders)
}

type historyResponse struct {
	Timestamp []int64   `json:"timestamp"`
	Equity    []float64 `json:"equity"`
	Source    string    `json:"source"`
}

func (h *handler) portfolioHistory(c echo.Context) error {
	s, err := h.backend.EquityHistory(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	ts, eq := history.FromPoints(s.Points)
	return c.JSON(http.StatusOK, historyResponse{Timestamp: ts, Equity: eq, Source: s.Source})
}

type barsResponse struct {
	Symbol string           `json:"symbol"`
	Source models.BarSource `json:"source,omitempty"`
	Bars   []models.Bar     `json:"bars"`
}

func (h *handler) benchmark(c echo.Context) error {
	start, end, err := rangeParams(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	bs := h.backend.BenchmarkBars(c.Request().Context(), c.Param("symbol"), start, end)
	return c.JSON(http.StatusOK, barsResponse{Symbol: bs.Symbol, Source: bs.Source, Bars: bs.Bars})
}

func (h *handler) bars(c echo.Context) error {
	start, end, err := rangeParams(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	bs, err := h.backend.SymbolBars(c.Request().Context(), c.Param("symbol"), start, end)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, barsResponse{Symbol: bs.Symbol, Source: bs.Source, Bars: bs.Bars})
}

func (h *handler) cacheStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, h.backend.CacheStatus())
}

func (h *handler) dashboard(c echo.Context) error {
	snap := h.backend.Latest()
	if snap == nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "no refresh has completed yet"})
	}
	return c.JSON(http.StatusOK, snap)
}

func (h *handler) refresh(c echo.Context) error {
	snap, err := h.backend.Refresh(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

var (
	errMissingRange = errors.New("start and end query parameters are required")
	errBadRange     = errors.New("start and end must be RFC 3339 timestamps or YYYY-MM-DD dates")
)

func rangeParams(c echo.Context) (time.Time, time.Time, error) {
	rawStart, rawEnd := strings.TrimSpace(c.QueryParam("start")), strings.TrimSpace(c.QueryParam("end"))
	if rawStart == "" || rawEnd == "" {
		return time.Time{}, time.Time{}, errMissingRange
	}
	start, ok1 := parseInstant(rawStart)
	end, ok2 := parseInstant(rawEnd)
	if !ok1 || !ok2 {
		return time.Time{}, time.Time{}, errBadRange
	}
	return start, end, nil
}

func parseInstant(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
