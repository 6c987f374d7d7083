// Package server exposes the dashboard over a read-only JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"alpha_dashboard/internal/cache"
	"alpha_dashboard/internal/dashboard"
	"alpha_dashboard/internal/metrics"
	"alpha_dashboard/internal/models"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Backend is the part of dashboard.Service the API serves.
type Backend interface {
	Account(ctx context.Context) (*models.Account, error)
	Positions(ctx context.Context) ([]models.BrokerPosition, error)
	Orders(ctx context.Context) ([]models.Order, error)
	EquityHistory(ctx context.Context) (models.EquitySeries, error)
	BenchmarkBars(ctx context.Context, symbol string, start, end time.Time) models.BarSeries
	SymbolBars(ctx context.Context, symbol string, start, end time.Time) (models.BarSeries, error)
	CacheStatus() []cache.EntryStatus
	Latest() *dashboard.Snapshot
	Refresh(ctx context.Context) (*dashboard.Snapshot, error)
}

var _ Backend = (*dashboard.Service)(nil)

type Server struct {
	echo *echo.Echo
	addr string
	log  zerolog.Logger
}

func New(backend Backend, rec *metrics.Recorder, addr string, log zerolog.Logger) *Server {
	log = log.With().Str("component", "http").Logger()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(recoverer(log))
	e.Use(requestLogging(log))

	h := &handler{backend: backend, log: log}
	g := e.Group("/api")
	g.GET("/account", h.account)
	g.GET("/positions", h.positions)
	g.GET("/orders", h.orders)
	g.GET("/portfolio-history", h.portfolioHistory)
	g.GET("/benchmarks/:symbol", h.benchmark)
	g.GET("/bars/:symbol", h.bars)
	g.GET("/cache-status", h.cacheStatus)
	g.GET("/dashboard", h.dashboard)
	g.POST("/refresh", h.refresh)

	e.GET("/metrics", echo.WrapHandler(rec.Handler()))
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	return &Server{echo: e, addr: addr, log: log}
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.echo }

// Start listens in the background.
func (s *Server) Start() {
	go func() {
		s.log.Info().Str("addr", s.addr).Msg("🌐 HTTP server listening")
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("❌ HTTP server error")
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.log.Info().Msg("🌐 HTTP server stopped")
	return nil
}
