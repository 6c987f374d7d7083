package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the dashboard's Prometheus instrumentation. A nil *Recorder
// records nothing, so components can be built without metrics in tests.
type Recorder struct {
	registry     *prometheus.Registry
	historySteps *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
	barsServed   *prometheus.CounterVec
	refreshes    *prometheus.CounterVec
	refreshTime  prometheus.Histogram
}

// New registers all collectors on reg. A fresh registry per process (or per
// test) keeps repeated construction from panicking on duplicate registration.
func New(reg *prometheus.Registry) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		historySteps: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_history_steps_total",
				Help: "Equity history fallback steps by outcome",
			},
			[]string{"step", "outcome"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_cache_lookups_total",
				Help: "Cache lookups by key class and result",
			},
			[]string{"class", "result"},
		),
		barsServed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_bars_served_total",
				Help: "Bar series served by symbol and source",
			},
			[]string{"symbol", "source"},
		),
		refreshes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_refresh_total",
				Help: "Refresh cycles by outcome",
			},
			[]string{"outcome"},
		),
		refreshTime: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dashboard_refresh_duration_seconds",
				Help:    "Duration of a full refresh cycle",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

func (r *Recorder) RecordHistoryStep(step, outcome string) {
	if r == nil {
		return
	}
	r.historySteps.WithLabelValues(step, outcome).Inc()
}

func (r *Recorder) RecordCacheLookup(class string, hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(class, result).Inc()
}

func (r *Recorder) RecordBars(symbol, source string) {
	if r == nil {
		return
	}
	r.barsServed.WithLabelValues(symbol, source).Inc()
}

func (r *Recorder) RecordRefresh(outcome string, seconds float64) {
	if r == nil {
		return
	}
	r.refreshes.WithLabelValues(outcome).Inc()
	r.refreshTime.Observe(seconds)
}

// Handler exposes the registry for scraping.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
