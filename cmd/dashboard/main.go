package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"alpha_dashboard/internal/cache"
	"alpha_dashboard/internal/config"
	"alpha_dashboard/internal/dashboard"
	"alpha_dashboard/internal/logger"
	"alpha_dashboard/internal/market"
	"alpha_dashboard/internal/market/alpaca"
	"alpha_dashboard/internal/market/alphavantage"
	"alpha_dashboard/internal/metrics"
	"alpha_dashboard/internal/reasoning"
	"alpha_dashboard/internal/scheduler"
	"alpha_dashboard/internal/server"
	"alpha_dashboard/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

const VersionFile = "version.latest"

const shutdownGrace = 10 * time.Second

func main() {
	// Missing credentials still returns a config; anything else is fatal.
	cfg, err := config.Load()
	if cfg == nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.Setup(cfg.Log)
	config.LogEnv()

	if len(os.Args) > 1 && os.Args[1] == "snapshot" {
		if err := runSnapshot(cfg, os.Args[2:], log); err != nil {
			log.Fatal().Err(err).Msg("snapshot failed")
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var broker market.Broker
	provider, err := alpaca.NewProvider(cfg.Alpaca)
	if err != nil {
		log.Error().Err(err).Msg("🚫 Alpaca credentials missing, every read will report it")
		broker = market.Unavailable{Err: err}
	} else {
		broker = provider
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.New(reg)

	store := cache.New(cache.WithThresholds(map[cache.KeyClass]time.Duration{
		cache.ClassAccount:   cfg.Cache.DefaultTTL,
		cache.ClassPositions: cfg.Cache.DefaultTTL,
		cache.ClassOrders:    cfg.Cache.DefaultTTL,
		cache.ClassHistory:   cfg.Cache.DefaultTTL,
		cache.ClassUnknown:   cfg.Cache.DefaultTTL,
		cache.ClassBars:      cfg.Cache.BarsTTL,
	}))

	svc := dashboard.New(cfg, broker, newBarSource(cfg, log), store, storage.New(cfg.Data),
		dashboard.WithLogger(log),
		dashboard.WithMetrics(rec),
		dashboard.WithReasoning(reasoning.New(cfg.Reasoning, log)),
	)

	sched := scheduler.New(ctx, svc, cfg.RefreshInterval, log)
	if err := sched.Register(); err != nil {
		log.Fatal().Err(err).Msg("scheduler setup failed")
	}

	srv := server.New(svc, rec, cfg.HTTP.Addr, log)
	srv.Start()
	sched.Start()
	go sched.RunNow() // first refresh without waiting a full interval

	log.Info().
		Str("version", readVersion()).
		Dur("refresh", cfg.RefreshInterval).
		Str("bars", cfg.Bars.Provider).
		Msg("Alpha Dashboard Initialized")

	<-ctx.Done()
	log.Info().Msg("⚠️ Dashboard Shutting Down: System signal received.")

	sched.Stop(shutdownGrace)
	stopCtx, stop := context.WithTimeout(context.Background(), shutdownGrace)
	defer stop()
	if err := srv.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown")
	}
}

// newBarSource returns nil when the selected provider cannot be built;
// benchmarks then come from snapshots and symbol charts from placeholders.
func newBarSource(cfg *config.Config, log zerolog.Logger) market.BarSource {
	switch cfg.Bars.Provider {
	case "alpaca":
		src, err := alpaca.NewBarSource(cfg.Alpaca)
		if err != nil {
			log.Warn().Err(err).Msg("⚠️ Alpaca market data unavailable")
			return nil
		}
		return src
	default:
		src, err := alphavantage.New(cfg.AlphaVantage)
		if err != nil {
			log.Warn().Err(err).Msg("⚠️ Alpha Vantage unavailable")
			return nil
		}
		return src
	}
}

// runSnapshot refreshes the benchmark fallback files from the live provider.
func runSnapshot(cfg *config.Config, args []string, log zerolog.Logger) error {
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	days := fs.Int("days", 30, "how many days of hourly bars to keep")
	if err := fs.Parse(args); err != nil {
		return err
	}
	symbols := fs.Args()
	if len(symbols) == 0 {
		symbols = cfg.Bars.Benchmarks
	}

	src := newBarSource(cfg, log)
	if src == nil {
		return errors.New("no bar provider configured")
	}
	files := storage.New(cfg.Data)

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -*days)
	var failed []string
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		bars, err := src.GetHourlyBars(ctx, sym, start, end)
		cancel()
		if err == nil && len(bars) == 0 {
			err = errors.New("no bars returned")
		}
		if err == nil {
			err = files.SaveSnapshot(sym, bars)
		}
		if err != nil {
			log.Error().Err(err).Str("symbol", sym).Msg("❌ Snapshot not written")
			failed = append(failed, sym)
			continue
		}
		log.Info().Str("symbol", sym).Int("bars", len(bars)).Msg("✅ Snapshot written")
	}
	if len(failed) > 0 {
		return fmt.Errorf("snapshot failed for %s", strings.Join(failed, ", "))
	}
	return nil
}

func readVersion() string {
	version, err := os.ReadFile(VersionFile)
	if err != nil {
		return "v0.0.0-dev"
	}
	return strings.TrimSpace(string(version))
}
